package analysis

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

	"github.com/aqljon/aqljon/internal/queue"
	"github.com/aqljon/aqljon/internal/session"
)

// Default analysis call bounds. Heavy kinds (video, document) get the longer
// bound; everything else the shorter one.
const (
	DefaultMediaTimeout = 15 * time.Second
	DefaultHeavyTimeout = 30 * time.Second

	defaultBaseURL = "https://generativelanguage.googleapis.com"

	// maxPromptTurns bounds how much conversation history rides along with
	// each call.
	maxPromptTurns = 20

	// maxPromptContent bounds how many content-memory entries ride along.
	maxPromptContent = 10
)

// Config holds Gemini client settings.
type Config struct {
	APIKey        string
	Model         string
	FallbackModel string // used when the primary model is unavailable
	BaseURL       string
	MediaTimeout  time.Duration
	HeavyTimeout  time.Duration
	HTTPClient    *http.Client
}

// Client calls the Gemini generateContent API. It implements queue.Analyzer.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a Gemini client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key cannot be empty")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model cannot be empty")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.MediaTimeout == 0 {
		config.MediaTimeout = DefaultMediaTimeout
	}
	if config.HeavyTimeout == 0 {
		config.HeavyTimeout = DefaultHeavyTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{config: config, httpClient: httpClient}, nil
}

// generateRequest mirrors the generateContent request body.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text     string    `json:"text,omitempty"`
	FileData *fileData `json:"file_data,omitempty"`
}

type fileData struct {
	FileURI string `json:"file_uri"`
}

// generateResponse mirrors the generateContent response body.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze sends one payload plus the user's context to Gemini and returns
// the response text. The call is bounded by a per-kind timeout.
func (c *Client) Analyze(ctx context.Context, kind queue.Kind, payloadRef string, snap session.Snapshot) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(kind))
	defer cancel()

	body := buildRequest(kind, payloadRef, snap)

	text, err := c.call(ctx, c.config.Model, body)
	if err != nil && c.config.FallbackModel != "" && isModelUnavailable(err) {
		return c.call(ctx, c.config.FallbackModel, body)
	}
	return text, err
}

func (c *Client) timeoutFor(kind queue.Kind) time.Duration {
	switch kind {
	case queue.KindDocument, queue.KindVideo:
		return c.config.HeavyTimeout
	default:
		return c.config.MediaTimeout
	}
}

func (c *Client) call(ctx context.Context, model string, reqBody generateRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.config.BaseURL, model, c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", ErrRateLimited, strings.TrimSpace(string(data)))
	}
	if resp.StatusCode != http.StatusOK {
		var parsed generateResponse
		msg := strings.TrimSpace(string(data))
		if jsonErr := json.Unmarshal(data, &parsed); jsonErr == nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", &BackendError{Status: resp.StatusCode, Message: msg}
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", &BackendError{Status: resp.StatusCode, Message: "empty response"}
	}

	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// kindInstructions tell the model what to do with each payload kind.
var kindInstructions = map[queue.Kind]string{
	queue.KindPhoto:    "Describe and analyze this image in detail.",
	queue.KindVoice:    "Transcribe this voice message and respond to it.",
	queue.KindAudio:    "Transcribe and summarize this audio.",
	queue.KindDocument: "Summarize this document and highlight its key points.",
	queue.KindVideo:    "Describe what happens in this video.",
	queue.KindText:     "Answer using the conversation and stored content context.",
}

// buildRequest folds the user's recent history and content memory into the
// request so follow-up jobs can reference earlier results.
func buildRequest(kind queue.Kind, payloadRef string, snap session.Snapshot) generateRequest {
	var req generateRequest

	if ctxText := contextText(snap); ctxText != "" {
		req.Contents = append(req.Contents, content{
			Role:  "user",
			Parts: []part{{Text: ctxText}},
		})
	}

	turns := snap.Turns
	if len(turns) > maxPromptTurns {
		turns = turns[len(turns)-maxPromptTurns:]
	}
	for _, turn := range turns {
		role := "user"
		if turn.Role == "model" {
			role = "model"
		}
		req.Contents = append(req.Contents, content{
			Role:  role,
			Parts: []part{{Text: turn.Text}},
		})
	}

	final := content{Role: "user", Parts: []part{{Text: kindInstructions[kind]}}}
	if kind != queue.KindText && payloadRef != "" {
		final.Parts = append(final.Parts, part{FileData: &fileData{FileURI: payloadRef}})
	}
	req.Contents = append(req.Contents, final)

	return req
}

func contextText(snap session.Snapshot) string {
	entries := snap.Content
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > maxPromptContent {
		entries = entries[len(entries)-maxPromptContent:]
	}

	var sb strings.Builder
	sb.WriteString("Previously analyzed content for this user:\n")
	for _, entry := range entries {
		fmt.Fprintf(&sb, "- [%s] %s\n", entry.Kind, entry.Summary)
	}
	return sb.String()
}

// isModelUnavailable matches the backend's model-not-found failures so the
// client can fall back to a secondary model.
func isModelUnavailable(err error) bool {
	var backendErr *BackendError
	if !errors.As(err, &backendErr) {
		return false
	}
	msg := strings.ToLower(backendErr.Message)
	return backendErr.Status == http.StatusNotFound ||
		strings.Contains(msg, "not found for api version") ||
		strings.Contains(msg, "not supported for generatecontent")
}
