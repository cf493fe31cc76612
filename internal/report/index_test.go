package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func seedTests(t *testing.T, root string) {
	t.Helper()
	writeTestDir(t, root, "first", testMeta{best: 1.0, lower: 0.5, lang: "en", time: 100, winner: "a", loser: "b"})
	writeTestDir(t, root, "second", testMeta{best: 3.0, lower: -1.0, lang: "yy", time: 200, winner: "a", loser: "b"})
	writeTestDir(t, root, "third", testMeta{best: 2.0, lower: 1.0, lang: "ru", time: 300, winner: "a", loser: "b"})
}

func TestStore_ChronologicalAndReverse(t *testing.T) {
	root := t.TempDir()
	seedTests(t, root)
	s := newTestStore(t, root)

	assert.Equal(t, []string{"first", "second", "third"}, s.Tests(BatchChronological))
	assert.Equal(t, []string{"third", "second", "first"}, s.Tests(BatchReverse))
}

func TestStore_TimestampCollision(t *testing.T) {
	root := t.TempDir()
	writeTestDir(t, root, "a", testMeta{time: 100, winner: "x", loser: "y"})
	writeTestDir(t, root, "b", testMeta{time: 100, winner: "x", loser: "y"})
	s := newTestStore(t, root)

	// Both tests survive the collision; order between them follows the
	// one-second nudge.
	assert.Len(t, s.Tests(BatchChronological), 2)
}

func TestStore_EffectOrderings(t *testing.T) {
	root := t.TempDir()
	seedTests(t, root)
	s := newTestStore(t, root)

	assert.Equal(t, []string{"first", "third", "second"}, s.Tests(BatchAscending))
	assert.Equal(t, []string{"second", "third", "first"}, s.Tests(BatchDescending))
}

func TestStore_LanguageOrderings(t *testing.T) {
	root := t.TempDir()
	seedTests(t, root)
	s := newTestStore(t, root)

	if diff := cmp.Diff([]string{"first", "second"}, s.Tests(BatchEnglish)); diff != "" {
		t.Errorf("english ordering mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"third"}, s.Tests(BatchForeign))
}

func TestStore_Interesting(t *testing.T) {
	root := t.TempDir()
	seedTests(t, root)
	s := newTestStore(t, root, "third", "does-not-exist", "first")

	// Keeps configured order, drops tests that no longer exist.
	assert.Equal(t, []string{"third", "first"}, s.Tests(BatchInteresting))
}

func TestStore_CustomOrdering(t *testing.T) {
	root := filepath.Join(t.TempDir(), "report")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	seedTests(t, root)

	orderDir := filepath.Join(root, "..", "order")
	if err := os.MkdirAll(orderDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(orderDir, "picks.txt"), []byte("third\nfirst\n\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := newTestStore(t, root)
	assert.Equal(t, []string{"third", "first"}, s.Tests("picks"))
	assert.Empty(t, s.Tests("no-such-ordering"))
}

func TestStore_Navigation(t *testing.T) {
	root := t.TempDir()
	seedTests(t, root)
	s := newTestStore(t, root)

	assert.Equal(t, "first", s.First(BatchChronological))
	assert.Equal(t, "second", s.Next("first", BatchChronological))
	assert.Equal(t, EndOfBatch, s.Next("third", BatchChronological))
	assert.Equal(t, "", s.Next("ghost", BatchChronological))

	assert.Equal(t, "", s.Prev("first", BatchChronological))
	assert.Equal(t, "first", s.Prev("second", BatchChronological))

	assert.True(t, s.Contains("second", BatchChronological))
	assert.False(t, s.Contains("ghost", BatchChronological))

	got := s.Random(BatchChronological)
	assert.Contains(t, []string{"first", "second", "third"}, got)
}

func TestStore_EmptyRoot(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	assert.Empty(t, s.Tests(BatchChronological))
	assert.Equal(t, "", s.First(BatchChronological))
	assert.Equal(t, "", s.Random(BatchChronological))
}

func TestStore_InvalidateBumpsGeneration(t *testing.T) {
	root := t.TempDir()
	seedTests(t, root)
	s := newTestStore(t, root)

	_ = s.Tests(BatchChronological)
	gen := s.Generation()

	writeTestDir(t, root, "fourth", testMeta{time: 400, winner: "a", loser: "b"})
	s.Invalidate()

	assert.Greater(t, s.Generation(), gen)
	assert.Len(t, s.Tests(BatchChronological), 4)
}
