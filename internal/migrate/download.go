package migrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// Downloader fetches screenshot bytes with retries. Transient errors
// back off exponentially; 404s and non-image responses fail fast
// because retrying them never helps.
type Downloader struct {
	client  *http.Client
	ua      string
	retries int
	log     *zap.Logger
}

// NewDownloader creates a Downloader. retries is the total number of
// attempts per URL, minimum 1.
func NewDownloader(timeout time.Duration, ua string, retries int, log *zap.Logger) *Downloader {
	if retries < 1 {
		retries = 1
	}
	return &Downloader{
		client:  &http.Client{Timeout: timeout},
		ua:      ua,
		retries: retries,
		log:     log,
	}
}

// Fetch downloads a URL and returns its bytes and content type.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	var body []byte
	var ctype string

	attempt := 0
	op := func() error {
		attempt++
		var err error
		body, ctype, err = d.fetchOnce(ctx, url)
		if err != nil && attempt < d.retries {
			d.log.Warn("download attempt failed, retrying",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(d.retries-1)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, "", err
	}
	return body, ctype, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", d.ua)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", backoff.Permanent(fmt.Errorf("image gone: %s", url))
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	// Deleted imgur images come back as HTML pages with status 200.
	ctype := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ctype, "image/") {
		if m := mimetype.Detect(body); strings.HasPrefix(m.String(), "image/") {
			ctype = m.String()
		} else {
			return nil, "", backoff.Permanent(fmt.Errorf("%w: %s served %s", ErrNotImage, url, ctype))
		}
	}
	return body, ctype, nil
}
