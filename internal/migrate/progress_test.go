package migrate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")

	p := NewProgress()
	p.MarkProcessed("https://i.imgur.com/a.png")
	p.MarkProcessed("https://i.imgur.com/b.png")
	p.MarkFailed("https://i.imgur.com/gone.png")
	require.NoError(t, p.Save(path))

	loaded, err := LoadProgress(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://i.imgur.com/a.png", "https://i.imgur.com/b.png"}, loaded.Processed)
	assert.Equal(t, []string{"https://i.imgur.com/gone.png"}, loaded.Failed)
	assert.NotEmpty(t, loaded.UpdatedAt)

	assert.True(t, loaded.Seen("https://i.imgur.com/a.png"))
	assert.True(t, loaded.Seen("https://i.imgur.com/gone.png"))
	assert.False(t, loaded.Seen("https://i.imgur.com/new.png"))
}

func TestLoadProgress_MissingFile(t *testing.T) {
	p, err := LoadProgress(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, p.Processed)
	assert.False(t, p.Seen("anything"))
}

func TestProgress_MarkIsIdempotent(t *testing.T) {
	p := NewProgress()
	p.MarkProcessed("url")
	p.MarkProcessed("url")
	assert.Len(t, p.Processed, 1)
}
