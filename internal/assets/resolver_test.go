package assets

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBucket serves HEAD requests for a fixed set of keys below /static/.
func fakeBucket(t *testing.T, keys ...string) *httptest.Server {
	t.Helper()
	have := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		have["/static/"+k] = struct{}{}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := have[r.URL.Path]; ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func touch(t *testing.T, root string, rel string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
}

func TestBucketURL(t *testing.T) {
	assert.Equal(t, "https://wikitoy.s3.us-east-1.amazonaws.com/static", BucketURL("wikitoy", "us-east-1"))
	assert.Equal(t, "", BucketURL("", "us-east-1"))
}

func TestResolver_LocalOnly(t *testing.T) {
	r := NewResolver(t.TempDir(), "", zap.NewNop())

	assert.False(t, r.Remote())
	assert.Equal(t, "/static/img/noshot.gif", r.NoShotURL())
	assert.Equal(t, "/static/report/x/pamplona.jpeg", r.URL("report/x/pamplona.jpeg"))
	assert.False(t, r.GraphLocal("x", "pamplona.jpeg"), "local serving never forces a fallback")
}

func TestResolver_RemoteURL(t *testing.T) {
	r := NewResolver(t.TempDir(), "https://bucket.example/static", zap.NewNop())
	assert.True(t, r.Remote())
	assert.Equal(t, "https://bucket.example/static/img/noshot.gif", r.NoShotURL())
}

func TestResolver_GraphLocalFallback(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "report/onlylocal/pamplona.jpeg")
	srv := fakeBucket(t, "report/uploaded/pamplona.jpeg")

	r := NewResolver(root, srv.URL+"/static", zap.NewNop())

	assert.False(t, r.GraphLocal("uploaded", "pamplona.jpeg"), "present in bucket")
	assert.True(t, r.GraphLocal("onlylocal", "pamplona.jpeg"), "missing from bucket, on disk")
	assert.False(t, r.GraphLocal("nowhere", "pamplona.jpeg"), "missing everywhere")
}

func TestResolver_MaxDiagnosticNum(t *testing.T) {
	t.Run("local series of 4", func(t *testing.T) {
		root := t.TempDir()
		for i := 1; i <= 4; i++ {
			touch(t, root, fmt.Sprintf("report/x/diagnostic_%d.jpeg", i))
		}
		r := NewResolver(root, "", zap.NewNop())

		num, local := r.MaxDiagnosticNum("x", "")
		assert.Equal(t, 4, num)
		assert.False(t, local)
	})

	t.Run("series past the starting probe", func(t *testing.T) {
		root := t.TempDir()
		for i := 1; i <= 13; i++ {
			touch(t, root, fmt.Sprintf("report/x/diagnostic_mobile_%d.jpeg", i))
		}
		r := NewResolver(root, "", zap.NewNop())

		num, _ := r.MaxDiagnosticNum("x", "mobile")
		assert.Equal(t, 13, num)
	})

	t.Run("no series", func(t *testing.T) {
		r := NewResolver(t.TempDir(), "", zap.NewNop())
		num, local := r.MaxDiagnosticNum("x", "")
		assert.Equal(t, 0, num)
		assert.False(t, local)
	})

	t.Run("remote falls back to local files", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "report/x/diagnostic_1.jpeg")
		touch(t, root, "report/x/diagnostic_2.jpeg")
		srv := fakeBucket(t) // empty bucket

		r := NewResolver(root, srv.URL+"/static", zap.NewNop())
		num, local := r.MaxDiagnosticNum("x", "")
		assert.Equal(t, 2, num)
		assert.True(t, local)
	})
}

func TestResolver_DiagnosticTypes(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "report/x/diagnostic_1.jpeg")
	touch(t, root, "report/x/diagnostic_mobile_1.jpeg")
	touch(t, root, "report/x/diagnostic_mobile_2.jpeg")
	touch(t, root, "report/x/diagnostic_tablet_1.jpeg")
	touch(t, root, "report/x/pamplona.jpeg")

	r := NewResolver(root, "", zap.NewNop())
	assert.Equal(t, []string{"", "mobile", "tablet"}, r.DiagnosticTypes("x"))

	// Unknown test still yields the untyped series.
	assert.Equal(t, []string{""}, r.DiagnosticTypes("ghost"))
}

func TestResolver_ProbeCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	r := NewResolver(t.TempDir(), srv.URL+"/static", zap.NewNop())
	r.GraphLocal("x", "pamplona.jpeg")
	r.GraphLocal("x", "pamplona.jpeg")

	assert.Equal(t, 1, hits, "second probe should come from cache")
}
