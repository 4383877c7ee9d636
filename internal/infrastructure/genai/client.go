// Package genai implements the drafting generator on top of the Gemini
// generateContent REST API, plus an offline heuristic fallback.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/atlas/internal/application/drafting"
)

// Defaults for Config.
const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel       = "gemini-2.5-flash-lite"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

const decomposeInstruction = `You split messy requirements into a list of atomic intents.
Rules: at most 12 words per intent, start with an imperative verb, no "and" separators.
Respond with JSON: {"intents": [{"text": "intent string"}]}`

const draftInstruction = `You are a project task architect for the project %q.
Convert each intent into a task with:
- subject: professional summary
- priority: Low, Medium, High or Urgent
- weight: story points (1, 2, 3, 5, 8, 13)
- confidence: 0.0 to 1.0 based on how clear the intent is
- reasoning: why this priority and weight
Respond with JSON: {"tasks": [{"subject": "", "priority": "", "weight": 0, "confidence": 0.0, "reasoning": ""}]}`

// Config holds Gemini client settings.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	BaseDelay   time.Duration

	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
}

// Client calls Gemini. It satisfies drafting.Generator.
type Client struct {
	config Config
	http   *http.Client
}

var _ drafting.Generator = (*Client)(nil)

// NewClient creates a Gemini client, applying defaults for zero values.
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = DefaultBaseDelay
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{config: config, http: hc}
}

// Decompose splits prompt into atomic intents.
func (c *Client) Decompose(ctx context.Context, prompt string) ([]string, error) {
	var out struct {
		Intents []struct {
			Text string `json:"text"`
		} `json:"intents"`
	}
	if err := c.generate(ctx, decomposeInstruction, prompt, &out); err != nil {
		return nil, err
	}

	intents := make([]string, 0, len(out.Intents))
	for _, in := range out.Intents {
		intents = append(intents, in.Text)
	}
	return intents, nil
}

// Draft turns intents into task proposals.
func (c *Client) Draft(ctx context.Context, req drafting.DraftRequest) ([]drafting.Proposal, error) {
	var b strings.Builder
	b.WriteString("Intents:\n")
	for _, in := range req.Intents {
		b.WriteString("- ")
		b.WriteString(in)
		b.WriteString("\n")
	}

	var out struct {
		Tasks []drafting.Proposal `json:"tasks"`
	}
	if err := c.generate(ctx, fmt.Sprintf(draftInstruction, req.ProjectName), b.String(), &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction content   `json:"system_instruction"`
	Contents          []content `json:"contents"`
	GenerationConfig  struct {
		ResponseMimeType string `json:"response_mime_type"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate runs one generateContent call with retries on rate limiting and
// decodes the model's JSON text into out.
func (c *Client) generate(ctx context.Context, instruction, prompt string, out any) error {
	req := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: instruction}}},
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
	}
	req.GenerationConfig.ResponseMimeType = "application/json"
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	backoff := retry.WithMaxRetries(uint64(c.config.MaxAttempts-1), retry.NewExponential(c.config.BaseDelay))

	attempt := 0
	var text string
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		t, err := c.call(ctx, body)
		if err != nil {
			if IsKind(err, KindRateLimited) {
				slog.WarnContext(ctx, "gemini rate limited, retrying", "attempt", attempt, "model", c.config.Model)
				return retry.RetryableError(err)
			}
			return err
		}
		text = t
		return nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(text), out); err != nil {
		return &Error{Kind: KindMalformed, Err: fmt.Errorf("model output is not valid JSON: %w", err)}
	}
	return nil
}

func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimSuffix(c.config.BaseURL, "/"), url.PathEscape(c.config.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Not a query parameter: spans and *url.Error both record the full URL.
	req.Header.Set("x-goog-api-key", c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &Error{Kind: KindTimeout, Err: err}
		}
		return "", &Error{Kind: KindUpstream, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &Error{Kind: KindUpstream, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", &Error{Kind: KindRateLimited, Status: resp.StatusCode, Err: errors.New("too many requests")}
	case resp.StatusCode == http.StatusGatewayTimeout:
		return "", &Error{Kind: KindTimeout, Status: resp.StatusCode, Err: errors.New("gateway timeout")}
	case resp.StatusCode >= 300:
		return "", &Error{Kind: KindUpstream, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(payload)))}
	}

	var gr generateResponse
	if err := json.Unmarshal(payload, &gr); err != nil {
		return "", &Error{Kind: KindMalformed, Status: resp.StatusCode, Err: err}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", &Error{Kind: KindMalformed, Status: resp.StatusCode, Err: errors.New("response has no candidates")}
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}
