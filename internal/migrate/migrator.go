package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wikiguess/internal/config"
)

// Options control one migration run.
type Options struct {
	// ReportRoot is the directory walked for screenshots.csv files.
	ReportRoot string

	// DryRun logs what would happen without touching S3 or disk.
	DryRun bool

	// Cleanup removes the checkpoint and lookup files after the run.
	Cleanup bool

	// Limit stops after this many entries (0 means no limit).
	Limit int
}

// Result summarizes a migration run. It is also what gets written to
// the report file.
type Result struct {
	Total      int      `json:"total"`
	Migrated   int      `json:"migrated"`
	Skipped    int      `json:"skipped"`
	Failed     int      `json:"failed"`
	FailedURLs []string `json:"failed_urls,omitempty"`
	DryRun     bool     `json:"dry_run"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at"`
}

// Migrator runs the imgur to S3 copy job.
type Migrator struct {
	cfg  *config.Config
	up   *Uploader
	dl   *Downloader
	log  *zap.Logger
	opts Options

	mu       sync.Mutex
	progress *Progress
	lookup   map[string]string
	result   *Result
}

// New creates a Migrator over an uploader and downloader.
func New(cfg *config.Config, up *Uploader, dl *Downloader, opts Options, log *zap.Logger) *Migrator {
	return &Migrator{
		cfg:    cfg,
		up:     up,
		dl:     dl,
		log:    log,
		opts:   opts,
		lookup: make(map[string]string),
	}
}

// Run executes the migration. A cancelled context stops the run early
// with progress persisted; the partial result is still returned.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	entries, err := Scan(m.opts.ReportRoot, m.log)
	if err != nil {
		return nil, err
	}
	entries = Dedupe(entries)
	if m.opts.Limit > 0 && len(entries) > m.opts.Limit {
		entries = entries[:m.opts.Limit]
	}

	// Reruns always pick up the checkpoint; a missing file means a
	// fresh start.
	m.progress, err = LoadProgress(m.cfg.Migration.ProgressFile)
	if err != nil {
		return nil, err
	}
	if err := m.loadLookup(); err != nil {
		return nil, err
	}

	if !m.opts.DryRun {
		if err := m.up.CheckBucket(ctx); err != nil {
			return nil, err
		}
	}

	m.result = &Result{
		Total:     len(entries),
		DryRun:    m.opts.DryRun,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	m.log.Info("starting migration",
		zap.Int("entries", len(entries)),
		zap.Int("already_seen", len(m.progress.Processed)+len(m.progress.Failed)),
		zap.Bool("dry_run", m.opts.DryRun))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Migration.Concurrency)
	for _, e := range entries {
		if gctx.Err() != nil {
			break
		}
		e := e
		g.Go(func() error {
			m.process(gctx, e)
			return nil
		})
	}
	_ = g.Wait()

	m.result.FinishedAt = time.Now().UTC().Format(time.RFC3339)

	if !m.opts.DryRun {
		if err := m.writeReport(); err != nil {
			m.log.Warn("failed to write migration report", zap.Error(err))
		}
		if m.opts.Cleanup {
			m.cleanup()
		}
	}
	if ctx.Err() != nil {
		m.log.Warn("migration interrupted, progress saved",
			zap.Int("migrated", m.result.Migrated))
	}
	return m.result, nil
}

// process handles one screenshot entry end to end.
func (m *Migrator) process(ctx context.Context, e Entry) {
	id, ok := ExtractID(e.URL)
	if !ok {
		m.log.Debug("skipping non-imgur URL", zap.String("url", e.URL))
		m.count(func(r *Result) { r.Skipped++ })
		return
	}

	m.mu.Lock()
	seen := m.progress.Seen(e.URL)
	m.mu.Unlock()
	if seen {
		m.count(func(r *Result) { r.Skipped++ })
		return
	}

	if !m.opts.DryRun {
		// Older runs uploaded everything as .png, so that key is the
		// already-migrated marker.
		exists, err := m.up.Exists(ctx, PrefixImgur+id+".png")
		if err != nil {
			m.log.Warn("existence check failed, migrating anyway",
				zap.String("url", e.URL), zap.Error(err))
		}
		if exists {
			m.finish(e.URL, m.up.PublicURL(PrefixImgur+id+".png"),
				func(r *Result) { r.Skipped++ })
			return
		}
	}

	data, _, err := m.dl.Fetch(ctx, e.URL)
	m.pause(ctx)
	if err != nil {
		m.log.Warn("download failed", zap.String("url", e.URL), zap.Error(err))
		m.fail(e.URL)
		return
	}

	ctype, ext := ContentTypeFor(ExtFromURL(e.URL), data)
	imgurKey := PrefixImgur + id + "." + ext

	if m.opts.DryRun {
		m.log.Info("would upload",
			zap.String("url", e.URL),
			zap.String("key", imgurKey),
			zap.Int("bytes", len(data)))
		m.count(func(r *Result) { r.Migrated++ })
		return
	}

	if err := m.up.Put(ctx, imgurKey, ctype, data); err != nil {
		m.log.Warn("upload failed", zap.String("key", imgurKey), zap.Error(err))
		m.fail(e.URL)
		return
	}

	// The clean copy is best effort; the imgur-keyed copy is the one
	// the lookup references.
	if e.Test != "" && e.Value != "" {
		cleanKey := PrefixClean + e.Test + "/" + CleanValue(e.Value) + "." + ext
		if err := m.up.Put(ctx, cleanKey, ctype, data); err != nil {
			m.log.Warn("clean copy failed", zap.String("key", cleanKey), zap.Error(err))
		}
	}

	m.log.Info("migrated", zap.String("url", e.URL), zap.String("key", imgurKey))
	m.finish(e.URL, m.up.PublicURL(imgurKey), func(r *Result) { r.Migrated++ })
}

// pause enforces the inter-request delay between downloads.
func (m *Migrator) pause(ctx context.Context) {
	delay := m.cfg.GetMigrationDelay()
	if delay <= 0 {
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (m *Migrator) count(update func(*Result)) {
	m.mu.Lock()
	update(m.result)
	m.mu.Unlock()
}

// finish records a URL as done and checkpoints.
func (m *Migrator) finish(url, s3URL string, update func(*Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress.MarkProcessed(url)
	m.lookup[url] = s3URL
	update(m.result)
	m.checkpointLocked()
}

// fail records a URL as permanently failed and checkpoints.
func (m *Migrator) fail(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress.MarkFailed(url)
	m.result.Failed++
	m.result.FailedURLs = append(m.result.FailedURLs, url)
	m.checkpointLocked()
}

func (m *Migrator) checkpointLocked() {
	if m.opts.DryRun {
		return
	}
	if err := m.progress.Save(m.cfg.Migration.ProgressFile); err != nil {
		m.log.Warn("failed to save progress", zap.Error(err))
	}
	if err := writeJSON(m.cfg.Migration.LookupFile, m.lookup); err != nil {
		m.log.Warn("failed to save lookup", zap.Error(err))
	}
}

func (m *Migrator) loadLookup() error {
	data, err := os.ReadFile(m.cfg.Migration.LookupFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read lookup file: %w", err)
	}
	if err := json.Unmarshal(data, &m.lookup); err != nil {
		return fmt.Errorf("failed to parse lookup file: %w", err)
	}
	return nil
}

func (m *Migrator) writeReport() error {
	return writeJSON(m.cfg.Migration.ReportFile, m.result)
}

func (m *Migrator) cleanup() {
	for _, path := range []string{m.cfg.Migration.ProgressFile, m.cfg.Migration.LookupFile} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			m.log.Warn("cleanup failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
