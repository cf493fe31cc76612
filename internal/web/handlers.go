package web

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"wikiguess/internal/config"
	"wikiguess/internal/report"
)

// defaultBatch is used when the URL names no ordering.
const defaultBatch = report.BatchReverse

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "welcome.html", baseView{Title: "WikiGuess"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, http.StatusNotFound, "",
		"There's nothing here. Sorry! Your URL was probably mistyped etc.")
}

// --- directory pages ---

func (s *Server) handleDirDefault(w http.ResponseWriter, r *http.Request) {
	s.showDir(w, defaultBatch)
}

func (s *Server) handleDir(w http.ResponseWriter, r *http.Request) {
	s.showDir(w, r.PathValue("batch"))
}

func (s *Server) showDir(w http.ResponseWriter, batch string) {
	// The directory page is built from the chronological base; other
	// orderings are not worth the render cost.
	if batch != report.BatchChronological && batch != report.BatchReverse {
		s.renderError(w, http.StatusBadRequest, batch,
			"Batch type '"+batch+"' not supported. Use 'chronological' or 'reverse'.")
		return
	}

	entries := s.directoryEntries()
	if batch == report.BatchReverse {
		entries = reversedEntries(entries)
	}

	s.render(w, http.StatusOK, "directory.html", dirView{
		baseView:    baseView{Title: "All tests"},
		Batch:       batch,
		ShowResults: s.cfg.Server.Mode == config.ModeNoGuess,
		Entries:     entries,
	})
}

// directoryEntries assembles (and caches) the chronological directory
// listing. The cache follows the store's generation so new tests appear
// without a restart.
func (s *Server) directoryEntries() []dirEntry {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()

	gen := s.store.Generation()
	if s.dirBuilt && gen == s.dirGen {
		return s.dirBase
	}

	s.log.Info("building directory listing")
	var entries []dirEntry
	for _, test := range s.store.Tests(report.BatchChronological) {
		dir := s.store.TestDir(test)

		meta, err := report.ReadMeta(dir)
		if err != nil {
			s.log.Warn("directory: skipping test", zap.String("test", test), zap.Error(err))
			continue
		}
		set, err := report.ReadScreenshots(dir)
		if err != nil {
			s.log.Warn("directory: skipping test", zap.String("test", test), zap.Error(err))
			continue
		}

		entries = append(entries, dirEntry{
			Test:       test,
			Date:       meta.Date(),
			Variable:   meta.Variable,
			Variations: variationViews(set, s.resolver),
			Confident:  meta.Confident(),
			Winner:     report.LookupValue(dir, meta.Winner),
			WinBy:      meta.BestGuess,
		})
	}

	s.dirBase = entries
	s.dirGen = gen
	s.dirBuilt = true
	return entries
}

func reversedEntries(entries []dirEntry) []dirEntry {
	out := make([]dirEntry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

// --- test pages ---

func (s *Server) handleShowDefault(w http.ResponseWriter, r *http.Request) {
	s.showTest(w, defaultBatch, "")
}

func (s *Server) handleShowBatch(w http.ResponseWriter, r *http.Request) {
	s.showTest(w, r.PathValue("batch"), "")
}

func (s *Server) handleShowTest(w http.ResponseWriter, r *http.Request) {
	s.showTest(w, r.PathValue("batch"), r.PathValue("testname"))
}

func (s *Server) showTest(w http.ResponseWriter, batch, testname string) {
	if testname == "error" {
		s.renderError(w, http.StatusNotFound, batch,
			"Ordering scheme: "+batch+" not found")
		return
	}

	if testname == "" {
		testname = s.store.First(batch)
		if testname == "" {
			s.renderError(w, http.StatusNotFound, batch,
				"No tests found in the "+batch+" ordering scheme")
			return
		}
	}

	switch strings.ToLower(testname) {
	case "random":
		testname = s.store.Random(batch)
	case report.EndOfBatch:
		s.render(w, http.StatusOK, "finished.html", finishedView{
			baseView: baseView{Title: "Finished!"},
			Batch:    batch,
		})
		return
	}

	if !s.store.Contains(testname, batch) {
		s.renderError(w, http.StatusNotFound, batch,
			"Sorry, but this test doesn't exist in the "+batch+" ordering scheme")
		return
	}

	if s.cfg.Server.Mode == config.ModeGuess {
		s.showGuess(w, batch, testname)
		return
	}
	s.showResult(w, batch, testname, "")
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	batch := r.PathValue("batch")
	testname := r.PathValue("testname")
	guess := r.PathValue("guess")

	if !s.store.Contains(testname, batch) {
		s.renderError(w, http.StatusNotFound, batch,
			"Sorry, but this test doesn't exist in the "+batch+" ordering scheme")
		return
	}

	// In NOGUESS mode the result URL just shows the regular page. In
	// GUESS mode an empty guess segment would reveal the answer
	// ungraded, so it gets the same 404 as a bad path.
	if s.cfg.Server.Mode != config.ModeGuess {
		guess = ""
	} else if guess == "" {
		s.handleNotFound(w, r)
		return
	}
	s.showResult(w, batch, testname, guess)
}

// showGuess renders the ask-a-guess page: screenshots only, no results.
func (s *Server) showGuess(w http.ResponseWriter, batch, testname string) {
	dir := s.store.TestDir(testname)

	meta, err := report.ReadMeta(dir)
	if err != nil {
		s.renderError(w, http.StatusNotFound, batch, "Incorrect Test Name")
		return
	}

	set, err := report.ReadScreenshots(dir)
	if err != nil {
		s.renderError(w, http.StatusNotFound, batch, screenshotError(err, dir))
		return
	}

	s.render(w, http.StatusOK, "guess.html", guessView{
		baseView:    baseView{Title: "Guess the winner"},
		Batch:       batch,
		Test:        testname,
		Date:        meta.Date(),
		Description: report.Info(dir),
		ManyType:    set.ManyType,
		GuessNone:   report.GuessNoDifference,
		Variations:  variationViews(set, s.resolver),
	})
}

// showResult renders the full result page. A non-empty guess grades it
// first (GUESS mode); NOGUESS pages also show the screenshots inline.
func (s *Server) showResult(w http.ResponseWriter, batch, testname, guess string) {
	dir := s.store.TestDir(testname)

	meta, err := report.ReadMeta(dir)
	if err != nil {
		s.renderError(w, http.StatusNotFound, batch, "Incorrect Test Name")
		return
	}

	graded := report.Grade(meta, dir, guess)

	view := resultView{
		baseView: baseView{Title: testname},
		Batch:    batch,
		Test:     testname,

		Graded:  graded.Graded,
		Correct: graded.Correct,
		Leaned:  graded.Leaned,

		Confident: graded.Confident,
		Winner:    graded.Winner,
		Loser:     graded.Loser,
		WinBy:     meta.BestGuess,
		AtLeast:   meta.LowerBound,
		AtMost:    meta.UpperBound,

		HasDollar:   meta.HasDollar,
		DollarPct:   meta.DollarPct,
		LowerDollar: meta.LowerDollar,
		UpperDollar: meta.UpperDollar,
		Campaign:    meta.Campaign,

		Description: report.Info(dir),

		GraphURL:         graphURL(s.resolver, testname),
		Tables:           asHTML(report.Tables(dir)),
		DiagnosticCharts: asHTML(report.DiagnosticCharts(dir)),
		Diagnostics:      diagnosticViews(s.resolver, testname),

		NextTest: s.store.Next(testname, batch),
		PrevTest: s.store.Prev(testname, batch),
	}

	if s.cfg.Server.Mode == config.ModeNoGuess {
		set, err := report.ReadScreenshots(dir)
		if err != nil {
			s.renderError(w, http.StatusNotFound, batch, screenshotError(err, dir))
			return
		}
		view.ShowScreens = true
		view.ManyType = set.ManyType
		view.Variations = variationViews(set, s.resolver)
	}

	s.render(w, http.StatusOK, "result.html", view)
}

func screenshotError(err error, dir string) string {
	if errors.Is(err, report.ErrWrongVariations) {
		return "Wrong number of screenshots: " + dir
	}
	return "No such test: " + dir
}
