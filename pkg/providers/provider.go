package providers

import (
	"context"
	"encoding/json"
)

// CallKind selects the model a provider uses for a request. Providers that
// split a fast model from a higher-capability one (Gemini) key off this;
// everyone else maps every kind to their single default.
type CallKind int

const (
	CallScoring CallKind = iota
	CallIdeas
	CallGenerate
	CallValidate
)

// Request is the provider-agnostic shape of a single generation call. Each
// provider translates it into its own wire envelope.
type Request struct {
	// Kind picks the default model; Model overrides it when non-empty.
	Kind  CallKind
	Model string

	System string
	Prompt string

	// JSONSchema, when set, asks for structured JSON output. Gemini enforces
	// it at the transport level (responseSchema); OpenAI-shaped providers
	// degrade to json_object mode; Anthropic relies on the prompt alone.
	JSONSchema json.RawMessage

	// MaxTokens caps the completion when > 0.
	MaxTokens int

	Temperature float64
}

// StreamHandler receives each incremental text delta of a streaming call, in
// arrival order. Returning an error aborts the stream.
type StreamHandler func(chunk string) error

// Provider is the uniform transport over one generative-AI backend.
// Implementations live in the per-provider subpackages and are selected once
// at configuration time.
type Provider interface {
	Name() string

	// Complete issues a non-streaming call and returns the raw response
	// text. Callers normalize it themselves (see ai.DecodeJSON).
	Complete(ctx context.Context, req Request) (string, error)

	// Stream issues a streaming call, invoking fn once per text delta.
	Stream(ctx context.Context, req Request, fn StreamHandler) error

	// Validate issues the cheapest possible real call and reports whether
	// the configured credentials are usable. Transport errors collapse to
	// false; this is a user-facing check, not a diagnostic one.
	Validate(ctx context.Context) bool
}
