// Package gemini implements the provider transport for the Google
// Generative Language API. Two models are in play: a fast one for scoring,
// ideas and key validation, and a higher-capability one for code
// generation. Structured output for the JSON-producing calls is enforced at
// the transport level via responseSchema rather than by the prompt alone.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/wpembed/toolscope/internal/utils"
	"github.com/wpembed/toolscope/pkg/providers"
)

const (
	defaultFastModel = "gemini-2.5-flash"
	defaultProModel  = "gemini-2.5-pro"
	defaultBaseURL   = "https://generativelanguage.googleapis.com"
	requestTimeout   = 15 * time.Second
)

type Config struct {
	APIKey    string
	FastModel string
	ProModel  string
	BaseURL   string
}

type Client struct {
	apiKey       string
	fastModel    string
	proModel     string
	baseURL      string
	client       *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
}

func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini: missing API key (set gemini.api_key in config or GEMINI_API_KEY)")
	}
	fast := strings.TrimSpace(cfg.FastModel)
	if fast == "" {
		fast = defaultFastModel
	}
	pro := strings.TrimSpace(cfg.ProModel)
	if pro == "" {
		pro = defaultProModel
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		apiKey:       apiKey,
		fastModel:    fast,
		proModel:     pro,
		baseURL:      strings.TrimRight(base, "/"),
		client:       &http.Client{Timeout: requestTimeout},
		streamClient: &http.Client{},
		limiter:      rate.NewLimiter(rate.Every(time.Second), 2),
	}, nil
}

func (c *Client) Name() string { return "gemini" }

// modelFor maps a call kind to a model: code generation gets the pro model,
// everything else the fast one.
func (c *Client) modelFor(req providers.Request) string {
	if req.Model != "" {
		return req.Model
	}
	if req.Kind == providers.CallGenerate {
		return c.proModel
	}
	return c.fastModel
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature"`
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

func (c *Client) buildBody(req providers.Request) ([]byte, error) {
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	if len(req.JSONSchema) > 0 {
		body.GenerationConfig.ResponseMIMEType = "application/json"
		body.GenerationConfig.ResponseSchema = req.JSONSchema
	}
	return json.Marshal(body)
}

func (c *Client) endpoint(req providers.Request, stream bool) string {
	model := url.PathEscape(c.modelFor(req))
	if stream {
		return c.baseURL + "/v1beta/models/" + model + ":streamGenerateContent?alt=sse"
	}
	return c.baseURL + "/v1beta/models/" + model + ":generateContent"
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte, stream bool) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)
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
	body, err := c.buildBody(req)
	if err != nil {
		return "", err
	}
	resp, err := c.post(ctx, c.endpoint(req, false), body, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	slurp, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	text := gjson.GetBytes(slurp, "candidates.0.content.parts.0.text").String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: empty completion")
	}
	return text, nil
}

func (c *Client) Stream(ctx context.Context, req providers.Request, fn providers.StreamHandler) error {
	body, err := c.buildBody(req)
	if err != nil {
		return err
	}
	resp, err := c.post(ctx, c.endpoint(req, true), body, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Gemini streams have no end sentinel; the stream simply closes.
	return providers.ScanSSE(resp.Body, func(data string) (bool, error) {
		if !gjson.Valid(data) {
			utils.Log.Debugf("gemini: skipping malformed stream line: %s", utils.TruncateRunes(data, 80))
			return false, nil
		}
		delta := gjson.Get(data, "candidates.0.content.parts.0.text").String()
		if delta == "" {
			return false, nil
		}
		return false, fn(delta)
	})
}

func (c *Client) Validate(ctx context.Context) bool {
	req := providers.Request{Kind: providers.CallValidate, Prompt: "ping", MaxTokens: 1}
	body, err := c.buildBody(req)
	if err != nil {
		return false
	}
	resp, err := c.post(ctx, c.endpoint(req, false), body, false)
	if err != nil {
		utils.Log.Debugf("gemini: key validation failed: %v", err)
		return false
	}
	resp.Body.Close()
	return true
}
