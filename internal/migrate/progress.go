package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Progress is the resumable checkpoint of a migration run. It is
// rewritten after every entry so an interrupted run loses nothing.
type Progress struct {
	Processed []string `json:"processed"`
	Failed    []string `json:"failed"`
	UpdatedAt string   `json:"updated_at"`

	processed map[string]struct{}
	failed    map[string]struct{}
}

// NewProgress returns an empty checkpoint.
func NewProgress() *Progress {
	return &Progress{
		processed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
	}
}

// LoadProgress reads a checkpoint file. A missing file is not an
// error; it just means a fresh start.
func LoadProgress(path string) (*Progress, error) {
	p := NewProgress()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse progress file: %w", err)
	}

	for _, url := range p.Processed {
		p.processed[url] = struct{}{}
	}
	for _, url := range p.Failed {
		p.failed[url] = struct{}{}
	}
	return p, nil
}

// Save writes the checkpoint atomically.
func (p *Progress) Save(path string) error {
	p.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write progress file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}

// Seen reports whether a URL was already processed or already failed.
func (p *Progress) Seen(url string) bool {
	if _, ok := p.processed[url]; ok {
		return true
	}
	_, ok := p.failed[url]
	return ok
}

// MarkProcessed records a URL as successfully migrated.
func (p *Progress) MarkProcessed(url string) {
	if _, ok := p.processed[url]; ok {
		return
	}
	p.processed[url] = struct{}{}
	p.Processed = append(p.Processed, url)
}

// MarkFailed records a URL as permanently failed.
func (p *Progress) MarkFailed(url string) {
	if _, ok := p.failed[url]; ok {
		return
	}
	p.failed[url] = struct{}{}
	p.Failed = append(p.Failed, url)
}
