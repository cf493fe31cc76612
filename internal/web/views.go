package web

import (
	"fmt"
	"html/template"

	"wikiguess/internal/assets"
	"wikiguess/internal/report"
)

// headlineGraph is the main results graph every test directory carries.
const headlineGraph = "pamplona.jpeg"

type baseView struct {
	Title string
}

type errorView struct {
	baseView
	Batch string
	Why   string
}

type finishedView struct {
	baseView
	Batch string
}

type variationView struct {
	Value    string
	LongName string
	Shots    []string
}

type guessView struct {
	baseView
	Batch       string
	Test        string
	Date        string
	Description string
	ManyType    string
	GuessNone   string
	Variations  []variationView
}

type seriesView struct {
	Type string
	URLs []string
}

type resultView struct {
	baseView
	Batch string
	Test  string

	// Grading (GUESS mode only)
	Graded  bool
	Correct bool
	Leaned  bool

	Confident bool
	Winner    string
	Loser     string
	WinBy     float64
	AtLeast   float64
	AtMost    float64

	HasDollar   bool
	DollarPct   float64
	LowerDollar float64
	UpperDollar float64
	Campaign    string

	Description string

	// NOGUESS pages show the screenshots inline
	ShowScreens bool
	ManyType    string
	Variations  []variationView

	GraphURL         string
	Tables           []template.HTML
	DiagnosticCharts []template.HTML
	Diagnostics      []seriesView

	NextTest string
	PrevTest string
}

type dirEntry struct {
	Test       string
	Date       string
	Variable   string
	Variations []variationView

	Confident bool
	Winner    string
	WinBy     float64
}

type dirView struct {
	baseView
	Batch       string
	ShowResults bool
	Entries     []dirEntry
}

// variationViews shapes a screenshot set for the templates,
// substituting the placeholder image for shotless variations.
func variationViews(set *report.ScreenshotSet, resolver *assets.Resolver) []variationView {
	views := make([]variationView, 0, len(set.Variations))
	for _, value := range set.Variations {
		shots := set.Shots[value]
		if len(shots) == 0 {
			shots = []string{resolver.NoShotURL()}
		}
		views = append(views, variationView{
			Value:    value,
			LongName: set.LongNames[value],
			Shots:    shots,
		})
	}
	return views
}

// graphURL picks the bucket or local URL for a test's headline graph.
func graphURL(resolver *assets.Resolver, test string) string {
	rel := "report/" + test + "/" + headlineGraph
	if resolver.GraphLocal(test, headlineGraph) {
		return resolver.LocalURL(rel)
	}
	return resolver.URL(rel)
}

// diagnosticViews expands the discovered diagnostic series into image URLs.
func diagnosticViews(resolver *assets.Resolver, test string) []seriesView {
	series := resolver.Diagnostics(test)

	var views []seriesView
	for _, typ := range resolver.DiagnosticTypes(test) {
		s, ok := series[typ]
		if !ok || s.Num < 1 {
			continue
		}
		view := seriesView{Type: typ}
		for i := 1; i <= s.Num; i++ {
			name := diagnosticFile(typ, i)
			rel := "report/" + test + "/" + name
			if s.Local {
				view.URLs = append(view.URLs, resolver.LocalURL(rel))
			} else {
				view.URLs = append(view.URLs, resolver.URL(rel))
			}
		}
		views = append(views, view)
	}
	return views
}

func diagnosticFile(typ string, n int) string {
	if typ != "" {
		return fmt.Sprintf("diagnostic_%s_%d.jpeg", typ, n)
	}
	return fmt.Sprintf("diagnostic_%d.jpeg", n)
}

func asHTML(fragments []string) []template.HTML {
	out := make([]template.HTML, len(fragments))
	for i, f := range fragments {
		out[i] = template.HTML(f)
	}
	return out
}
