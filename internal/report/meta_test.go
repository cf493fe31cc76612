package report

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMeta(t *testing.T) {
	root := t.TempDir()
	dir := writeTestDir(t, root, "1366633701Bolding", testMeta{
		best: 4.2, lower: 1.1, upper: 7.3,
		variable: "bolding", lang: "en",
		winner: "bold", loser: "plain",
		time: 1366633701, dollar: true,
	})

	m, err := ReadMeta(dir)
	require.NoError(t, err)

	assert.Equal(t, 4.2, m.BestGuess)
	assert.Equal(t, 1.1, m.LowerBound)
	assert.Equal(t, "bold", m.Winner)
	assert.Equal(t, "plain", m.Loser)
	assert.True(t, m.HasDollar)
	assert.Equal(t, 2.5, m.DollarPct)
	assert.Equal(t, "spring", m.Campaign)
	assert.True(t, m.Confident())
	assert.Equal(t, "Mon, 22 Apr 2013 12:28:21 UTC", m.Date())
}

func TestReadMeta_NoDollarColumns(t *testing.T) {
	root := t.TempDir()
	dir := writeTestDir(t, root, "old", testMeta{
		best: -0.5, lower: -2.0, upper: 1.0,
		variable: "color", lang: "de",
		winner: "red", loser: "blue",
		time: 1366633702,
	})

	m, err := ReadMeta(dir)
	require.NoError(t, err)

	assert.False(t, m.HasDollar)
	assert.Equal(t, "Unknown", m.Campaign)
	assert.False(t, m.Confident(), "negative lower bound means no clear winner")
}

func TestReadMeta_Missing(t *testing.T) {
	_, err := ReadMeta(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, errors.Is(err, ErrNoMeta))
}

func TestReadMeta_BadNumbers(t *testing.T) {
	root := t.TempDir()
	d := writeTestDir(t, root, "broken", testMeta{time: 1})
	writeFile(t, d, "meta.csv", "bestguess,lowerbound,upperbound,var,country,language,winner,loser,time\nnot-a-number,0,0,v,US,en,a,b,1\n")

	_, err := ReadMeta(d)
	assert.Error(t, err)
}
