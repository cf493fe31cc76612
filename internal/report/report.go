// Package report reads A/B test results stored as per-test directories
// of CSV and HTML files under <static root>/report/<testname>/.
//
// A test directory holds meta.csv (the result row), screenshots.csv
// (variation screenshots), and optional val_lookup.csv, info.txt,
// report fragments, and diagnostic charts. The Store builds and caches
// the test orderings ("batches") used for navigation.
package report

import "errors"

// Sentinel returned by Next when navigating past the last test.
const EndOfBatch = "fin"

// GuessNoDifference is the guess value meaning "no detectable winner".
const GuessNoDifference = "__guess_no_difference__"

// Errors surfaced by the data layer.
var (
	// ErrNoMeta means the test directory has no meta.csv (or does not exist).
	ErrNoMeta = errors.New("report: no meta.csv for test")

	// ErrNoScreenshots means the test directory has no screenshots.csv.
	ErrNoScreenshots = errors.New("report: no screenshots.csv for test")

	// ErrWrongVariations means screenshots.csv does not describe exactly
	// two variations.
	ErrWrongVariations = errors.New("report: wrong number of variations")
)
