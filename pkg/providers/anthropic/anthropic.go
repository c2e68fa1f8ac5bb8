// Package anthropic implements the provider transport for the Anthropic
// Messages API.
package anthropic

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
	defaultModel    = "claude-sonnet-4-5"
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
	requestTimeout  = 15 * time.Second

	// max_tokens is mandatory on the Messages API.
	defaultMaxTokens = 8192
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
		return nil, errors.New("anthropic: missing API key (set anthropic.api_key in config or ANTHROPIC_API_KEY)")
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
		limiter:      rate.NewLimiter(rate.Every(time.Second), 2),
	}, nil
}

func (c *Client) Name() string { return "anthropic" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

func (c *Client) buildBody(req providers.Request, stream bool) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	// JSON output is prompt-enforced; the Messages API has no response
	// schema slot outside of tool use.
	return json.Marshal(messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
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
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
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
	text := gjson.GetBytes(slurp, "content.0.text").String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("anthropic: empty completion")
	}
	return text, nil
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
		if !gjson.Valid(data) {
			utils.Log.Debugf("anthropic: skipping malformed stream line: %s", utils.TruncateRunes(data, 80))
			return false, nil
		}
		switch gjson.Get(data, "type").String() {
		case "message_stop":
			return true, nil
		case "content_block_delta":
			delta := gjson.Get(data, "delta.text").String()
			if delta == "" {
				return false, nil
			}
			return false, fn(delta)
		default:
			// message_start, ping, content_block_start etc. carry no text.
			return false, nil
		}
	})
}

func (c *Client) Validate(ctx context.Context) bool {
	body, err := c.buildBody(providers.Request{Kind: providers.CallValidate, Prompt: "ping", MaxTokens: 1}, false)
	if err != nil {
		return false
	}
	resp, err := c.post(ctx, body, false)
	if err != nil {
		utils.Log.Debugf("anthropic: key validation failed: %v", err)
		return false
	}
	resp.Body.Close()
	return true
}
