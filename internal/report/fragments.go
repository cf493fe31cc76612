package report

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Lettered stats-table fragments produced by the legacy report pipeline.
var tableFragments = []string{"reportA.html", "reportB.html", "reportD.html", "reportE.html"}

// Info returns the freeform test description from info.txt, or "".
func Info(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "info.txt"))
	if err != nil {
		return ""
	}
	return string(data)
}

// Tables returns the sanitized stats-table fragments of a test. It
// prefers the lettered fragments and falls back to a single
// report.html; a test with neither renders no tables.
func Tables(dir string) []string {
	var tables []string
	for _, name := range tableFragments {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		tables = append(tables, SanitizeFragment(string(data)))
	}
	if len(tables) > 0 {
		return tables
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.html"))
	if err != nil {
		return nil
	}
	return []string{SanitizeFragment(string(data))}
}

// DiagnosticCharts returns the sanitized diagnostic_data*.html chart
// fragments of a test, in name order.
func DiagnosticCharts(dir string) []string {
	matches, err := filepath.Glob(filepath.Join(dir, "diagnostic_data*.html"))
	if err != nil {
		return nil
	}
	sort.Strings(matches)

	var charts []string
	for _, name := range matches {
		data, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		charts = append(charts, SanitizeFragment(string(data)))
	}
	return charts
}

// Elements stripped from legacy fragments before inlining them.
var strippedElements = map[string]struct{}{
	"script": {},
	"iframe": {},
	"object": {},
	"embed":  {},
}

// SanitizeFragment strips active content from an HTML fragment. The
// legacy fragments are trusted-ish R output, but they get inlined
// unescaped into report pages, so script-bearing elements are removed.
func SanitizeFragment(fragment string) string {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return ""
	}

	var sb strings.Builder
	for _, n := range nodes {
		stripActive(n)
		if err := html.Render(&sb, n); err != nil {
			return ""
		}
	}
	return sb.String()
}

func stripActive(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			if _, bad := strippedElements[c.Data]; bad {
				n.RemoveChild(c)
				c = next
				continue
			}
			stripActive(c)
		}
		c = next
	}
}
