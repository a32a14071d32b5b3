// Package ollama scores the classifier's label set with a vision model
// served by Ollama. It is a remote fallback backend for hosts without a
// TFLite runtime; scores are model-reported confidences in [0,1].
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-classifier/pkg/engine"
	"github.com/menta2k/image-classifier/pkg/imageio"
	"github.com/menta2k/image-classifier/pkg/status"
)

const scoringPrompt = `You are an image classifier.

Given the candidate labels below, score how well each one describes the
image. Return JSON only:
{"scores": {"<label>": 0.0}}

HARD RULES
- Score every candidate label, between 0.0 and 1.0.
- Use the label strings exactly as given as the JSON keys.
- JSON only. No markdown, no code fences, no comments, no trailing commas.

Candidate labels:
`

// defaultInputSize keeps remote payloads small; the server-side model does
// its own resizing.
const defaultInputSize = 224

// Executor sends the preprocessed image to an Ollama server and maps the
// returned per-label scores onto the dense class index space.
type Executor struct {
	client  *api.Client
	model   string
	labels  []string
	quality int
}

// New builds a remote executor for the given server URL, model name, and
// label set in class-index order.
func New(serverURL, model string, labels []string) (*Executor, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if len(labels) == 0 {
		return nil, status.InvalidArgumentf("remote scoring requires a non-empty label set")
	}

	// Base URL only; paths like /api/chat are supplied by the SDK.
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &Executor{
		client:  api.NewClient(base, http.DefaultClient),
		model:   model,
		labels:  append([]string(nil), labels...),
		quality: 85,
	}, nil
}

// InputSize reports the square input size images are scaled to before
// transport.
func (e *Executor) InputSize() (int, int) {
	return defaultInputSize, defaultInputSize
}

// Infer encodes the pixels as JPEG, asks the model to score every label,
// and returns a single dense head.
func (e *Executor) Infer(ctx context.Context, pixels *image.NRGBA) ([]engine.HeadScores, error) {
	// Add a timeout if the context doesn't carry one; CPU-bound vision
	// models can be slow.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	imgBytes, err := imageio.EncodeJPEG(pixels, 0, e.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: e.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: scoringPrompt + "- " + strings.Join(e.labels, "\n- "),
				Images:  []api.ImageData{api.ImageData(imgBytes)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err = e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, status.Internalf("ollama chat error: %v", err)
	}
	if responseContent == "" {
		return nil, status.Internalf("empty response from ollama")
	}

	scores, err := parseScores(responseContent, e.labels)
	if err != nil {
		return nil, err
	}
	return []engine.HeadScores{{HeadIndex: 0, Scores: scores}}, nil
}

// Close is a no-op; the HTTP client holds no resources of its own.
func (e *Executor) Close() error { return nil }

// parseScores maps the model's per-label scores onto the dense class index
// space. Labels the model omitted score zero.
func parseScores(raw string, labels []string) ([]float64, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, status.Internalf("model returned non-JSON response")
	}

	var payload struct {
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, status.Internalf("failed to parse model response: %v", err)
	}

	dense := make([]float64, len(labels))
	for i, label := range labels {
		dense[i] = payload.Scores[label]
	}
	return dense, nil
}

// sanitizeModelJSON removes code fences, comments, and trailing commas
// from a model JSON response.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present.
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments.
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line/inline comments.
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ].
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}.
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
