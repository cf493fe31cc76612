package migrate

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Columns carrying screenshot URLs. The legacy files spell the extra
// columns with dots or underscores depending on their vintage.
var urlColumns = []string{
	"screenshot",
	"extra.screenshot.1",
	"extra.screenshot.2",
	"extra_screenshot_1",
	"extra_screenshot_2",
}

// Scan walks the report root and collects every screenshot URL from
// the per-test screenshots.csv files. Rows yield one entry per
// populated URL column; empty and NA cells are skipped.
func Scan(reportRoot string, log *zap.Logger) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(reportRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "screenshots.csv" {
			return nil
		}

		found, err := scanFile(path)
		if err != nil {
			log.Warn("skipping unreadable screenshots file",
				zap.String("path", path), zap.Error(err))
			return nil
		}
		entries = append(entries, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk report root: %w", err)
	}
	return entries, nil
}

func scanFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	var entries []Entry
	for {
		row, err := r.Read()
		if err != nil {
			break
		}

		test := cell(row, col, "testname")
		value := cell(row, col, "value")
		for _, name := range urlColumns {
			url := cell(row, col, name)
			if url == "" || url == "NA" {
				continue
			}
			entries = append(entries, Entry{Test: test, Value: value, URL: url})
		}
	}
	return entries, nil
}

func cell(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Dedupe drops entries whose URL was already seen, keeping the first
// occurrence so the test/value attribution stays stable.
func Dedupe(entries []Entry) []Entry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		if _, dup := seen[e.URL]; dup {
			continue
		}
		seen[e.URL] = struct{}{}
		out = append(out, e)
	}
	return out
}
