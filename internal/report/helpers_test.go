package report

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

// testMeta is everything needed to fabricate a meta.csv row.
type testMeta struct {
	best, lower, upper float64
	variable, lang     string
	winner, loser      string
	time               int64
	dollar             bool
}

func writeTestDir(t *testing.T, root, name string, m testMeta) string {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	header := "bestguess,lowerbound,upperbound,var,country,language,winner,loser,time"
	row := fmt.Sprintf("%g,%g,%g,%s,US,%s,%s,%s,%d",
		m.best, m.lower, m.upper, m.variable, m.lang, m.winner, m.loser, m.time)
	if m.dollar {
		header += ",dollarimprovementpct,dollarlowerpct,dollarupperpct,campaign"
		row += ",2.5,1.0,4.0,spring"
	}
	writeFile(t, dir, "meta.csv", header+"\n"+row+"\n")
	return dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestStore(t *testing.T, root string, interesting ...string) *Store {
	t.Helper()
	s := NewStore(root, filepath.Join(root, "..", "order"), interesting, zap.NewNop())
	t.Cleanup(func() { s.Close() })
	return s
}
