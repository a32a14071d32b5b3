// Package llamacpp scores the classifier's label set with a vision model
// behind an OpenAI-compatible llama.cpp server, as a remote fallback
// backend alongside the ollama one.
package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

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

const defaultInputSize = 224

// OpenAI-compatible message format.
type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Executor sends the preprocessed image to a llama.cpp server and maps the
// returned per-label scores onto the dense class index space.
type Executor struct {
	baseURL    string
	httpClient *http.Client
	model      string
	labels     []string
	quality    int
}

// New builds a remote executor for the given server URL, model name, and
// label set in class-index order.
func New(serverURL, model string, labels []string) (*Executor, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if len(labels) == 0 {
		return nil, status.InvalidArgumentf("remote scoring requires a non-empty label set")
	}

	return &Executor{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
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

// Infer embeds the pixels in a data URL, asks the model to score every
// label, and returns a single dense head.
func (e *Executor) Infer(ctx context.Context, pixels *image.NRGBA) ([]engine.HeadScores, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	imgB64, err := imageio.EncodeJPEGBase64(pixels, 0, e.quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	req := chatCompletionRequest{
		Model: e.model,
		Messages: []message{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: scoringPrompt + "- " + strings.Join(e.labels, "\n- ")},
					{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imgB64}},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   4096,
		Stream:      false,
	}

	respBody, err := e.sendRequest(ctx, "/v1/chat/completions", req)
	if err != nil {
		return nil, status.Internalf("request failed: %v", err)
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, status.Internalf("failed to parse response: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, status.Internalf("no choices in response")
	}
	responseText := resp.Choices[0].Message.Content
	if responseText == "" {
		return nil, status.Internalf("empty response from llama.cpp server")
	}

	scores, err := parseScores(responseText, e.labels)
	if err != nil {
		return nil, err
	}
	return []engine.HeadScores{{HeadIndex: 0, Scores: scores}}, nil
}

// Close is a no-op; the HTTP client holds no resources of its own.
func (e *Executor) Close() error { return nil }

func (e *Executor) sendRequest(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

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
