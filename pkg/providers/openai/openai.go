// Package openai implements the provider transport for the OpenAI
// chat-completions API.
package openai

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

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/wpembed/toolscope/internal/utils"
	"github.com/wpembed/toolscope/pkg/providers"
)

const (
	defaultModel    = "gpt-4o-mini"
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	requestTimeout  = 15 * time.Second
)

// Config controls the OpenAI client. Endpoint is overridable for tests and
// proxies.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string
}

type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	// streamClient has no overall deadline; a generation stream
	// legitimately outlives the 15s request timeout.
	streamClient *http.Client
	limiter      *rate.Limiter
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai: missing API key (set openai.api_key in config or OPENAI_API_KEY)")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		apiKey:       apiKey,
		model:        model,
		endpoint:     endpoint,
		client:       &http.Client{Timeout: requestTimeout},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}, nil
}

func (c *Client) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

func (c *Client) buildBody(req providers.Request, stream bool) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	var msgs []chatMessage
	if req.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: req.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if len(req.JSONSchema) > 0 {
		// The chat-completions endpoint has no per-request schema slot we
		// use here; json_object mode plus the prompt carries the shape.
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return json.Marshal(body)
}

func (c *Client) post(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.client
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
		client = c.streamClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, providers.ErrorFromResponse(c.Name(), resp.StatusCode, slurp)
	}
	return resp, nil
}

func (c *Client) Complete(ctx context.Context, req providers.Request) (string, error) {
	body, err := c.buildBody(req, false)
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, body, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	slurp, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	content := gjson.GetBytes(slurp, "choices.0.message.content").String()
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("openai: empty completion")
	}
	return content, nil
}

func (c *Client) Stream(ctx context.Context, req providers.Request, fn providers.StreamHandler) error {
	body, err := c.buildBody(req, true)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, body, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return providers.ScanSSE(resp.Body, func(data string) (bool, error) {
		if data == "[DONE]" {
			return true, nil
		}
		if !gjson.Valid(data) {
			utils.Log.Debugf("openai: skipping malformed stream line: %s", utils.TruncateRunes(data, 80))
			return false, nil
		}
		delta := gjson.Get(data, "choices.0.delta.content").String()
		if delta == "" {
			return false, nil
		}
		return false, fn(delta)
	})
}

func (c *Client) Validate(ctx context.Context) bool {
	body, err := c.buildBody(providers.Request{Kind: providers.CallValidate, Prompt: "ping", MaxTokens: 1}, false)
	if err != nil {
		return false
	}
	resp, err := c.post(ctx, body, false)
	if err != nil {
		utils.Log.Debugf("openai: key validation failed: %v", err)
		return false
	}
	resp.Body.Close()
	return true
}
