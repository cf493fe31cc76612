// Package assets decides where static report assets live: served from
// the S3 bucket when one is configured, with fallback to files on
// local disk. Probes are cached because report pages ask about the
// same graphs over and over.
package assets

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Diagnostic image discovery bounds. Series are contiguous from 1, so
// a hill-climb from the middle finds the last one without probing all.
const (
	diagStart = 10
	diagMax   = 30
)

var diagTypeRe = regexp.MustCompile(`^diagnostic_(.+)_[0-9]+\.jpeg$`)

// Series describes one diagnostic image series of a test.
type Series struct {
	// Num is the highest image number in the series (0 when empty).
	Num int

	// Local is true when the images are missing from S3 and must be
	// served from local disk.
	Local bool
}

// Resolver maps asset-relative paths (below /static/) to URLs.
type Resolver struct {
	staticRoot string
	baseURL    string // "" means S3 serving is off
	client     *http.Client
	log        *zap.Logger

	mu     sync.Mutex
	probes map[string]bool
}

// BucketURL builds the public base URL for static assets in a bucket.
func BucketURL(bucket, region string) string {
	if bucket == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/static", bucket, region)
}

// NewResolver creates a Resolver. Pass an empty baseURL to serve all
// assets from local disk.
func NewResolver(staticRoot, baseURL string, log *zap.Logger) *Resolver {
	return &Resolver{
		staticRoot: staticRoot,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		log:        log,
		probes:     make(map[string]bool),
	}
}

// Remote reports whether assets resolve to the bucket by default.
func (r *Resolver) Remote() bool { return r.baseURL != "" }

// URL returns the canonical URL for an asset path relative to the
// static root.
func (r *Resolver) URL(rel string) string {
	if r.baseURL != "" {
		return r.baseURL + "/" + path.Clean(rel)
	}
	return r.LocalURL(rel)
}

// LocalURL returns the locally-served URL for an asset path.
func (r *Resolver) LocalURL(rel string) string {
	return "/static/" + path.Clean(rel)
}

// NoShotURL is the placeholder shown for variations with no screenshot.
func (r *Resolver) NoShotURL() string {
	return r.URL("img/noshot.gif")
}

// GraphLocal reports whether a test graph must be served locally
// because it never made it to the bucket.
func (r *Resolver) GraphLocal(test, graph string) bool {
	if r.baseURL == "" {
		return false
	}
	rel := path.Join("report", test, graph)
	if r.existsRemote(rel) {
		return false
	}
	return r.existsLocal(rel)
}

// DiagnosticTypes lists the diagnostic series names of a test. The
// untyped series ("") is always included.
func (r *Resolver) DiagnosticTypes(test string) []string {
	entries, err := os.ReadDir(filepath.Join(r.staticRoot, "report", test))
	if err != nil {
		return []string{""}
	}

	seen := map[string]struct{}{"": {}}
	for _, e := range entries {
		if m := diagTypeRe.FindStringSubmatch(e.Name()); m != nil {
			seen[m[1]] = struct{}{}
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Diagnostics discovers every diagnostic series of a test.
func (r *Resolver) Diagnostics(test string) map[string]Series {
	out := make(map[string]Series)
	for _, typ := range r.DiagnosticTypes(test) {
		num, local := r.MaxDiagnosticNum(test, typ)
		out[typ] = Series{Num: num, Local: local}
	}
	return out
}

// MaxDiagnosticNum finds the highest diagnostic image number of a
// series by hill-climbing from the middle of the allowed range, and
// whether the series had to fall back to local files.
func (r *Resolver) MaxDiagnosticNum(test, diagType string) (int, bool) {
	i := diagStart
	direction := ""
	useLocal := false

	for i > 0 && i < diagMax {
		rel := path.Join("report", test, diagnosticName(diagType, i))
		exists, viaLocal := r.probe(rel)
		if viaLocal {
			useLocal = true
		}

		if exists {
			if direction == "down" {
				return i, useLocal
			}
			i++
			direction = "up"
		} else {
			if direction == "up" {
				return i - 1, useLocal
			}
			i--
			direction = "down"
		}
	}
	return i, false
}

func diagnosticName(diagType string, n int) string {
	if diagType != "" {
		return fmt.Sprintf("diagnostic_%s_%d.jpeg", diagType, n)
	}
	return fmt.Sprintf("diagnostic_%d.jpeg", n)
}

// probe checks whether an asset exists, remotely first when S3 serving
// is on. viaLocal is true when the asset exists only on local disk.
func (r *Resolver) probe(rel string) (exists, viaLocal bool) {
	if r.baseURL == "" {
		return r.existsLocal(rel), false
	}
	if r.existsRemote(rel) {
		return true, false
	}
	if r.existsLocal(rel) {
		return true, true
	}
	return false, false
}

func (r *Resolver) existsLocal(rel string) bool {
	_, err := os.Stat(filepath.Join(r.staticRoot, filepath.FromSlash(rel)))
	return err == nil
}

func (r *Resolver) existsRemote(rel string) bool {
	url := r.baseURL + "/" + rel

	r.mu.Lock()
	cached, ok := r.probes[url]
	r.mu.Unlock()
	if ok {
		return cached
	}

	exists := false
	resp, err := r.client.Head(url)
	if err != nil {
		r.log.Debug("asset probe failed", zap.String("url", url), zap.Error(err))
	} else {
		resp.Body.Close()
		exists = resp.StatusCode == http.StatusOK
	}

	r.mu.Lock()
	r.probes[url] = exists
	r.mu.Unlock()
	return exists
}
