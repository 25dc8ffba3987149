package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ad-insights-go/internal/media"
)

// RawResponseKey holds the unparsed model output when JSON parsing fails.
const RawResponseKey = "raw_response"

var (
	ErrMalformedResponse = errors.New("model response is not a JSON object")
	ErrTransport         = errors.New("inference request failed")
)

// AnalysisError signals that model should be given up on and the next
// fallback tried.
type AnalysisError struct {
	Model string
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis with %s: %v", e.Model, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

type Request struct {
	Prompt    string
	MediaURI  string // inline data URI, optional
	MediaKind media.Kind
	Model     string
}

// Result is either a success (Err nil) or a retryable failure. On failure
// Fields still carries a displayable soft fallback, so lenient callers can
// use Fields unconditionally. A success with no choices has empty Fields.
type Result struct {
	Fields map[string]any
	Err    error
}

func (r Result) OK() bool { return r.Err == nil }

// Client is the inference backend as seen by the analysis strategies.
type Client interface {
	Analyze(ctx context.Context, req Request) Result
}

// Gateway talks to an OpenAI-compatible chat-completions endpoint.
type Gateway struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logrus.Entry
}

func NewGateway(baseURL, apiKey string, timeout time.Duration, log *logrus.Entry) *Gateway {
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.WithField("component", "gateway"),
	}
}

type contentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *mediaRef `json:"image_url,omitempty"`
	VideoURL *mediaRef `json:"video_url,omitempty"`
}

type mediaRef struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
}

// BuildRequestBody renders the single-turn chat request for req.
func BuildRequestBody(req Request) ([]byte, error) {
	content := []contentBlock{{Type: "text", Text: req.Prompt}}
	if req.MediaURI != "" {
		ref := &mediaRef{URL: req.MediaURI}
		if req.MediaKind == media.KindVideo {
			content = append(content, contentBlock{Type: "video_url", VideoURL: ref})
		} else {
			content = append(content, contentBlock{Type: "image_url", ImageURL: ref})
		}
	}
	return json.Marshal(chatRequest{
		Model:          req.Model,
		Messages:       []chatMessage{{Role: "user", Content: content}},
		ResponseFormat: map[string]string{"type": "json_object"},
	})
}

// Analyze performs one inference call. It never retries.
func (g *Gateway) Analyze(ctx context.Context, req Request) Result {
	log := g.log.WithFields(logrus.Fields{
		"model":      req.Model,
		"media_kind": req.MediaKind,
		"has_media":  req.MediaURI != "",
	})

	data, err := BuildRequestBody(req)
	if err != nil {
		return g.failure(log, req.Model, "", fmt.Errorf("%w: encode request: %v", ErrTransport, err))
	}
	log.WithField("payload_len", len(data)).Debug("sending inference request")

	start := time.Now()
	body, status, err := g.post(ctx, data)
	log = log.WithField("duration_ms", time.Since(start).Milliseconds())
	if err != nil {
		return g.failure(log, req.Model, "", fmt.Errorf("%w: %v", ErrTransport, err))
	}
	if status < 200 || status >= 300 {
		return g.failure(log, req.Model, string(body), fmt.Errorf("%w: HTTP %d", ErrTransport, status))
	}

	content, ok, err := contentFromChoices(body)
	if err != nil {
		return g.failure(log, req.Model, string(body), err)
	}
	if !ok {
		log.Warn("inference response had no choices")
		return Result{Fields: map[string]any{}}
	}

	fields, err := ParseContent(content)
	if err != nil {
		return g.failure(log, req.Model, content, err)
	}
	log.Debug("inference response parsed")
	return Result{Fields: fields}
}

func (g *Gateway) post(ctx context.Context, data []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func (g *Gateway) failure(log *logrus.Entry, model, raw string, err error) Result {
	log.WithError(err).Warn("inference failed")
	if raw == "" {
		raw = err.Error()
	}
	return Result{
		Fields: map[string]any{RawResponseKey: raw},
		Err:    &AnalysisError{Model: model, Err: err},
	}
}

// contentFromChoices reads choices[0].message.content. ok is false when a
// well-formed envelope carries no usable choice; a body that is not a
// chat-completions envelope at all is malformed.
func contentFromChoices(body []byte) (string, bool, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, fmt.Errorf("%w: decode envelope: %v", ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", false, nil
	}
	raw := parsed.Choices[0].Message.Content
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, strings.TrimSpace(s) != "", nil
	}
	// Some backends return the object itself instead of a string.
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		return "", false, nil
	}
	return string(raw), true, nil
}

// ParseContent decodes model output into a JSON object, tolerating code
// fences and prose around the object.
func ParseContent(content string) (map[string]any, error) {
	s := stripFence(content)
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err == nil && out != nil {
		return out, nil
	}
	if candidate := extractJSON(s); candidate != "" {
		if err := json.Unmarshal([]byte(candidate), &out); err == nil && out != nil {
			return out, nil
		}
	}
	return nil, ErrMalformedResponse
}

// stripFence removes a surrounding ```json ... ``` block.
func stripFence(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:] // language tag
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// extractJSON finds the first balanced JSON object in a string and returns it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}

	// no balanced found
	return ""
}
