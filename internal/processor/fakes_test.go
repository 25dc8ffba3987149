package processor

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"ad-insights-go/internal/extractor"
	"ad-insights-go/internal/logger"
	"ad-insights-go/internal/media"
)

var (
	mp4Bytes = append([]byte{0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2'}, make([]byte, 64)...)
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 64)...)
)

// fakeFetcher serves fixed bodies by URL; unknown URLs fail.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dst string) error {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	body, ok := f.bodies[url]
	f.mu.Unlock()
	if !ok {
		return &media.StatusError{StatusCode: 404, URL: url}
	}
	return os.WriteFile(dst, body, 0o644)
}

// fakeTranscoder writes a plausible output file, or fails for the kinds
// listed in fail.
type fakeTranscoder struct {
	mu    sync.Mutex
	fail  map[media.Kind]bool
	calls []media.Kind
}

func (f *fakeTranscoder) Transcode(_ context.Context, s *media.Scratch, _ media.Asset, kind media.Kind, _ *media.Preset) (media.Asset, bool) {
	f.mu.Lock()
	f.calls = append(f.calls, kind)
	fail := f.fail[kind]
	f.mu.Unlock()
	if fail {
		return media.Asset{}, false
	}
	out := media.Asset{Path: s.NewPath(".jpg"), MIME: "image/jpeg"}
	body := jpegBytes
	if kind == media.KindVideo {
		out = media.Asset{Path: s.NewPath(".mp4"), MIME: "video/mp4"}
		body = mp4Bytes
	}
	if err := os.WriteFile(out.Path, body, 0o644); err != nil {
		return media.Asset{}, false
	}
	return out, true
}

func (f *fakeTranscoder) count(kind media.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.calls {
		if k == kind {
			n++
		}
	}
	return n
}

// fakeClient answers through respond and records every request.
type fakeClient struct {
	mu       sync.Mutex
	respond  func(extractor.Request) extractor.Result
	requests []extractor.Request
}

func (f *fakeClient) Analyze(_ context.Context, req extractor.Request) extractor.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond == nil {
		return extractor.Result{Fields: map[string]any{"summary": "ok"}}
	}
	return f.respond(req)
}

func (f *fakeClient) models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Model)
	}
	return out
}

func success(fields map[string]any) extractor.Result {
	return extractor.Result{Fields: fields}
}

func malformed(model, raw string) extractor.Result {
	return extractor.Result{
		Fields: map[string]any{extractor.RawResponseKey: raw},
		Err:    &extractor.AnalysisError{Model: model, Err: extractor.ErrMalformedResponse},
	}
}

func transportFailure(model string) extractor.Result {
	err := errors.New("connection reset")
	return extractor.Result{
		Fields: map[string]any{extractor.RawResponseKey: err.Error()},
		Err:    &extractor.AnalysisError{Model: model, Err: errors.Join(extractor.ErrTransport, err)},
	}
}

type harness struct {
	analyzer   *Analyzer
	fetcher    *fakeFetcher
	transcoder *fakeTranscoder
	client     *fakeClient
	store      *media.Store
}

func newHarness(t *testing.T, chain ...string) *harness {
	t.Helper()
	store, err := media.NewStore(t.TempDir())
	require.NoError(t, err)
	if len(chain) == 0 {
		chain = []string{"video/a", "video/b", "video/c"}
	}
	h := &harness{
		fetcher:    &fakeFetcher{bodies: map[string][]byte{}},
		transcoder: &fakeTranscoder{fail: map[media.Kind]bool{}},
		client:     &fakeClient{},
		store:      store,
	}
	h.analyzer = New(Options{
		Client:          h.client,
		Fetcher:         h.fetcher,
		Transcoder:      h.transcoder,
		Store:           store,
		Log:             logger.Discard(),
		Model:           "default/model",
		VideoModels:     chain,
		EnableInference: true,
	})
	return h
}

// requireNoLeftovers asserts the scratch root is empty after a job.
func (h *harness) requireNoLeftovers(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.store.Root())
	require.NoError(t, err)
	require.Empty(t, entries, "scratch root should be empty after the job")
}
