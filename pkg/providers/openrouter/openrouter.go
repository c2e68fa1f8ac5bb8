// Package openrouter implements the provider transport for OpenRouter, an
// aggregator speaking the chat-completions wire format. Unlike the other
// providers there is no sensible default model: the catalog is huge and
// routing costs differ wildly, so callers must pick one explicitly.
package openrouter

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
	defaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	requestTimeout  = 15 * time.Second

	// Attribution headers OpenRouter uses for app rankings.
	refererHeader = "https://github.com/wpembed/toolscope"
	titleHeader   = "toolscope"
)

type Config struct {
	APIKey   string
	Model    string
	Endpoint string
}

type Client struct {
	apiKey       string
	model        string
	endpoint     string
	client       *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openrouter: missing API key (set openrouter.api_key in config or OPENROUTER_API_KEY)")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("openrouter: a model name is required (set openrouter.model, e.g. meta-llama/llama-3.3-70b-instruct)")
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
		limiter:      rate.NewLimiter(rate.Every(time.Second), 1),
	}, nil
}

func (c *Client) Name() string { return "openrouter" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
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

	// JSON output is prompt-enforced only; structured output support varies
	// too much across routed models to rely on.
	return json.Marshal(chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	})
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
	httpReq.Header.Set("HTTP-Referer", refererHeader)
	httpReq.Header.Set("X-Title", titleHeader)

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
		return "", fmt.Errorf("openrouter: empty completion")
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
			// OpenRouter occasionally interleaves processing comments.
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
		utils.Log.Debugf("openrouter: key validation failed: %v", err)
		return false
	}
	resp.Body.Close()
	return true
}
