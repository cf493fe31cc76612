package migrate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDownloader_Fetch(t *testing.T) {
	var flakyHits, goneHits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngBytes)
		case "/flaky.png":
			if flakyHits.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write(pngBytes)
		case "/untyped.png":
			// No Content-Type header; sniffing has to save it.
			w.Header()["Content-Type"] = nil
			w.Write(pngBytes)
		case "/gone.png":
			goneHits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		case "/removed.png":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>removed</body></html>"))
		}
	}))
	defer srv.Close()

	dl := NewDownloader(5*time.Second, "test-agent", 3, zap.NewNop())
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		body, ctype, err := dl.Fetch(ctx, srv.URL+"/ok.png")
		require.NoError(t, err)
		assert.Equal(t, pngBytes, body)
		assert.Equal(t, "image/png", ctype)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		body, _, err := dl.Fetch(ctx, srv.URL+"/flaky.png")
		require.NoError(t, err)
		assert.Equal(t, pngBytes, body)
		assert.Equal(t, int32(2), flakyHits.Load())
	})

	t.Run("sniffs missing content type", func(t *testing.T) {
		_, ctype, err := dl.Fetch(ctx, srv.URL+"/untyped.png")
		require.NoError(t, err)
		assert.Equal(t, "image/png", ctype)
	})

	t.Run("404 fails without retrying", func(t *testing.T) {
		_, _, err := dl.Fetch(ctx, srv.URL+"/gone.png")
		require.Error(t, err)
		assert.Equal(t, int32(1), goneHits.Load())
	})

	t.Run("rejects html tombstones", func(t *testing.T) {
		_, _, err := dl.Fetch(ctx, srv.URL+"/removed.png")
		assert.ErrorIs(t, err, ErrNotImage)
	})
}
