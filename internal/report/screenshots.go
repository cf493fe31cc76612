package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
)

// Test kinds when a variation carries more than one screenshot.
const (
	ManyMultivariate = "multivariate"
	ManyCombo        = "combo"
)

// Column layout of screenshots.csv (after the header row).
const (
	colValue      = 1
	colScreenshot = 3
	colExtra      = 4
)

// missing marks an absent value in the legacy CSVs.
const missing = "NA"

// ScreenshotSet is the parsed screenshots.csv of one test.
type ScreenshotSet struct {
	// Variations in first-seen order; a valid test has exactly two.
	Variations []string

	// Shots maps a variation to its screenshot URLs. Variations with no
	// screenshot map to an empty slice; callers substitute a placeholder.
	Shots map[string][]string

	// LongNames maps variation slugs to their val_lookup.csv descriptions.
	LongNames map[string]string

	// ManyType distinguishes multivariate tests from combo tests when a
	// variation has several screenshots.
	ManyType string
}

// ReadScreenshots parses screenshots.csv and val_lookup.csv from a test
// directory. Returns ErrNoScreenshots when the file is missing and
// ErrWrongVariations unless exactly two distinct variations appear.
func ReadScreenshots(dir string) (*ScreenshotSet, error) {
	lines, err := readScreenshotLines(dir)
	if err != nil {
		return nil, err
	}

	distinct := map[string]struct{}{}
	for _, line := range lines {
		if len(line) > colValue {
			distinct[line[colValue]] = struct{}{}
		}
	}
	if len(distinct) != 2 {
		return nil, ErrWrongVariations
	}

	set := &ScreenshotSet{
		Shots:     make(map[string][]string),
		LongNames: make(map[string]string),
		ManyType:  ManyMultivariate,
	}

	for _, line := range lines {
		if len(line) <= colExtra {
			continue
		}
		value := line[colValue]
		shot := line[colScreenshot]
		extra := line[colExtra]

		if _, seen := set.Shots[value]; !seen {
			set.Variations = append(set.Variations, value)
			set.LongNames[value] = LookupValue(dir, value)
			set.Shots[value] = []string{}
		}

		if shot == missing {
			continue
		}
		if !contains(set.Shots[value], shot) {
			set.Shots[value] = append(set.Shots[value], shot)
		}
		if extra != missing {
			set.ManyType = ManyCombo
			if !contains(set.Shots[value], extra) {
				set.Shots[value] = append(set.Shots[value], extra)
			}
		}
	}

	return set, nil
}

// LookupValue resolves a variation slug through the test's
// val_lookup.csv. Unknown slugs (or a missing lookup file) resolve to
// the slug itself.
func LookupValue(dir, slug string) string {
	f, err := os.Open(filepath.Join(dir, "val_lookup.csv"))
	if err != nil {
		return slug
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil { // header
		return slug
	}
	for {
		row, err := r.Read()
		if err != nil {
			return slug
		}
		if len(row) >= 2 && row[0] == slug {
			return row[1]
		}
	}
}

func readScreenshotLines(dir string) ([][]string, error) {
	f, err := os.Open(filepath.Join(dir, "screenshots.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoScreenshots
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoScreenshots
	}
	return rows[1:], nil // skip header
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
