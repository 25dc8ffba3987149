package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Fetcher downloads a remote media URL to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, url, dst string) error
}

const userAgent = "Mozilla/5.0 (compatible; ad-insights-go/1.0)"

// HTTPFetcher streams downloads to disk, retrying transient failures.
type HTTPFetcher struct {
	client     *http.Client
	maxElapsed time.Duration
	log        *logrus.Entry
}

func NewHTTPFetcher(timeout, maxElapsed time.Duration, log *logrus.Entry) *HTTPFetcher {
	return &HTTPFetcher{
		client:     &http.Client{Timeout: timeout},
		maxElapsed: maxElapsed,
		log:        log.WithField("component", "fetcher"),
	}
}

// StatusError is a non-2xx download response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: HTTP %d", e.URL, e.StatusCode)
}

// Fetch writes the body of url to dst. A partial file is removed on failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, url, dst string) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = f.maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		err := f.fetchOnce(ctx, url, dst)
		if err == nil {
			return nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests {
			// Permanent: don't retry on client errors
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		f.log.WithField("attempt", attempt).WithError(err).Warn("download attempt failed")
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	file, err := os.Create(dst)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create %s: %w", dst, err))
	}
	written, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		_ = os.Remove(dst)
		return fmt.Errorf("download incomplete: expected %d bytes, got %d", resp.ContentLength, written)
	}
	if written == 0 {
		_ = os.Remove(dst)
		return backoff.Permanent(fmt.Errorf("download %s: empty body", url))
	}
	return nil
}

// Download fetches url into a fresh scratch path. Nothing is left in the
// scratch area on failure.
func Download(ctx context.Context, f Fetcher, s *Scratch, url string) (Asset, error) {
	a := Asset{Path: s.NewPath(".src")}
	if err := f.Fetch(ctx, url, a.Path); err != nil {
		s.Drop(a)
		return Asset{}, err
	}
	return a, nil
}
