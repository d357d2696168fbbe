// Package llm performs streaming transcription requests against a remote
// chat-completion endpoint, hiding the wire protocol and the truncation
// retry policy from the orchestrator.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/docfold/pagescribe/internal/cancel"
	"github.com/docfold/pagescribe/internal/config"
	"github.com/docfold/pagescribe/internal/domain"
	"github.com/docfold/pagescribe/internal/observability"
)

// finishReasonLength is the terminal reason the server reports when the
// token budget was exhausted mid-generation.
const finishReasonLength = "length"

// Client handles communication with the model server.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	maxTokens  int
	timeout    time.Duration
	ctrl       *cancel.Controller
	log        *observability.Logger
	httpClient *http.Client
}

// Message represents a chat message
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart represents a part of message content (text or image)
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL represents an image URL in the message
type ImageURL struct {
	URL string `json:"url"`
}

// Request represents the API request structure
type Request struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
	MaxTokens int       `json:"max_tokens"`
}

// NewClient creates a new transcription client. The HTTP client carries no
// overall timeout of its own; the watchdog bounds each call.
func NewClient(cfg config.LLMConfig, ctrl *cancel.Controller, log *observability.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxTokens:  cfg.MaxTokens,
		timeout:    cfg.AttemptTimeout,
		ctrl:       ctrl,
		log:        log.WithComponent("llm"),
		httpClient: &http.Client{},
	}
}

// Transcribe sends one page image to the model and returns the transcribed
// text with any leading metadata fence stripped. An empty return means the
// page had no content; that is not an error.
//
// Failure modes callers must distinguish: a timeout error when the deadline
// elapsed, an interrupted error when the transport was torn down by the
// controller, and a transport error for everything else.
func (c *Client) Transcribe(ctx context.Context, imageBytes []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageBytes)

	text, err := runWithDeadline(c.timeout, c.ctrl, func() (string, error) {
		return c.generate(ctx, dataURL)
	})

	if err != nil && domain.IsTimeout(err) {
		return "", err
	}

	// A deliberately torn-down transport surfaces as a read error on the
	// attempt goroutine; reclassify it so the caller sees a clean stop
	// signal rather than a page failure.
	if c.ctrl.Stopped() || ctx.Err() != nil {
		return "", domain.InterruptedError("transcription cancelled", err)
	}

	if err != nil {
		return "", err
	}
	return stripMetadataBlock(text), nil
}

// stripMetadataBlock removes a leading metadata block fenced by "---"
// delimiter lines, then trims surrounding whitespace. Text without such a
// block is returned trimmed but otherwise unchanged.
var metadataFence = regexp.MustCompile(`(?s)^---[ \t]*\n.*?---[ \t]*(?:\n|$)`)

func stripMetadataBlock(text string) string {
	return strings.TrimSpace(metadataFence.ReplaceAllString(text, ""))
}

// generate runs the truncation-retry loop: a truncated attempt discards its
// partial text and reissues the whole request with a doubled budget. There
// is no retry cap beyond the watchdog deadline and operator cancellation.
func (c *Client) generate(ctx context.Context, dataURL string) (string, error) {
	budget := c.maxTokens

	for {
		text, status, err := c.attempt(ctx, dataURL, budget)
		if err != nil {
			return "", err
		}
		if status != domain.AttemptTruncated {
			return text, nil
		}

		c.log.Warn().
			Int("budget", budget).
			Int("next_budget", budget*2).
			Msg("token budget exhausted, retrying from scratch")
		budget *= 2
	}
}

// attempt performs one streaming call with the given token budget. The
// attempt is registered with the controller for its whole duration so a
// concurrent interrupt can tear it down; the server-assigned generation id
// is published as soon as the first response chunk reveals it.
func (c *Client) attempt(ctx context.Context, dataURL string, budget int) (string, domain.AttemptStatus, error) {
	payload := Request{
		Model:     c.model,
		Stream:    true,
		MaxTokens: budget,
		Messages: []Message{{
			Role: "user",
			Content: []ContentPart{{
				Type:     "image_url",
				ImageURL: &ImageURL{URL: dataURL},
			}},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", domain.AttemptErrored, domain.TransportError("marshal request", err)
	}

	attemptCtx, cancelAttempt := context.WithCancel(ctx)
	defer cancelAttempt()

	token := c.ctrl.RegisterAttempt(func() { cancelAttempt() })
	defer c.ctrl.ClearAttempt(token)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", domain.AttemptErrored, domain.TransportError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.AttemptErrored, domain.TransportError("send request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.AttemptErrored,
			domain.TransportError(fmt.Sprintf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	parser := NewStreamParser(resp.Body)
	var text strings.Builder
	var finishReason string
	idPublished := false

	for {
		chunk, err := parser.Next()
		if err != nil {
			return "", domain.AttemptErrored, domain.TransportError("read stream", err)
		}

		if chunk.ID != "" && !idPublished {
			idPublished = true
			c.ctrl.SetGenerationID(token, chunk.ID)
			c.log.Debug().Str("generation_id", chunk.ID).Msg("generation started")
		}
		c.log.Debug().
			Str("fragment", chunk.Content).
			Str("finish_reason", chunk.FinishReason).
			Bool("done", chunk.Done).
			Msg("stream chunk")
		if chunk.Content != "" {
			text.WriteString(chunk.Content)
		}
		if chunk.FinishReason != "" {
			finishReason = chunk.FinishReason
		}
		if chunk.Done {
			break
		}
	}

	if finishReason == finishReasonLength {
		return text.String(), domain.AttemptTruncated, nil
	}
	return text.String(), domain.AttemptCompleted, nil
}
