package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Meta is the single result row of a test's meta.csv.
type Meta struct {
	BestGuess  float64
	LowerBound float64
	UpperBound float64
	Variable   string
	Country    string
	Language   string
	Winner     string
	Loser      string
	Time       int64

	// Dollar-impact figures are absent from older tests.
	HasDollar   bool
	DollarPct   float64
	LowerDollar float64
	UpperDollar float64
	Campaign    string
}

// Confident reports whether the test has a clear winner: the lower
// confidence bound must not cross zero.
func (m *Meta) Confident() bool {
	return m.LowerBound >= 0
}

// Date formats the test timestamp the way the report pages display it.
func (m *Meta) Date() string {
	return time.Unix(m.Time, 0).UTC().Format("Mon, 02 Jan 2006 15:04:05 UTC")
}

// ReadMeta loads the meta.csv result row from a test directory.
// Returns ErrNoMeta when the file (or directory) does not exist.
func ReadMeta(dir string) (*Meta, error) {
	row, err := readHeaderedRow(filepath.Join(dir, "meta.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoMeta
		}
		return nil, err
	}

	m := &Meta{
		Variable: row["var"],
		Country:  row["country"],
		Language: row["language"],
		Winner:   row["winner"],
		Loser:    row["loser"],
		Campaign: "Unknown",
	}

	if m.BestGuess, err = strconv.ParseFloat(row["bestguess"], 64); err != nil {
		return nil, fmt.Errorf("report: bad bestguess in %s: %w", dir, err)
	}
	if m.LowerBound, err = strconv.ParseFloat(row["lowerbound"], 64); err != nil {
		return nil, fmt.Errorf("report: bad lowerbound in %s: %w", dir, err)
	}
	if m.UpperBound, err = strconv.ParseFloat(row["upperbound"], 64); err != nil {
		return nil, fmt.Errorf("report: bad upperbound in %s: %w", dir, err)
	}

	ts, err := strconv.ParseFloat(row["time"], 64)
	if err != nil {
		return nil, fmt.Errorf("report: bad time in %s: %w", dir, err)
	}
	m.Time = int64(ts)

	// Dollar columns arrived later; tests without them render
	// "Not calculated" instead.
	pct, errP := strconv.ParseFloat(row["dollarimprovementpct"], 64)
	lower, errL := strconv.ParseFloat(row["dollarlowerpct"], 64)
	upper, errU := strconv.ParseFloat(row["dollarupperpct"], 64)
	if errP == nil && errL == nil && errU == nil {
		m.HasDollar = true
		m.DollarPct = pct
		m.LowerDollar = lower
		m.UpperDollar = upper
		if c := row["campaign"]; c != "" {
			m.Campaign = c
		}
	}

	return m, nil
}

// readHeaderedRow reads the first data row of a CSV file keyed by its
// header, like Python's csv.DictReader.
func readHeaderedRow(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("report: reading header of %s: %w", path, err)
	}
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("report: reading row of %s: %w", path, err)
	}

	out := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			out[name] = row[i]
		}
	}
	return out, nil
}
