package providers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/wpembed/toolscope/internal/utils"
)

// TransportError is a non-2xx response from a provider API.
type TransportError struct {
	Provider string
	Status   int
	Message  string
}

func (e *TransportError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
}

// Retryable treats rate limits and server-side failures as transient.
// Malformed requests cannot succeed on a resend.
func (e *TransportError) Retryable() bool {
	if e.Status == http.StatusBadRequest {
		return false
	}
	return true
}

// AuthError is a rejected credential. Never retried.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: credentials rejected", e.Provider)
	}
	return fmt.Sprintf("%s: credentials rejected: %s", e.Provider, e.Message)
}

func (e *AuthError) Retryable() bool { return false }

// ErrorFromResponse classifies a non-2xx provider response. Every backend in
// the supported set reports failures as {"error": {"message": ...}}, give or
// take nesting, so the message is extracted defensively with gjson.
func ErrorFromResponse(provider string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = gjson.GetBytes(body, "message").String()
	}
	if msg == "" {
		msg = utils.TruncateRunes(strings.TrimSpace(string(body)), 200)
	}

	if status == http.StatusUnauthorized || status == http.StatusForbidden || looksLikeBadKey(msg) {
		return &AuthError{Provider: provider, Message: msg}
	}
	return &TransportError{Provider: provider, Status: status, Message: msg}
}

func looksLikeBadKey(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "invalid api key") ||
		strings.Contains(m, "incorrect api key") ||
		strings.Contains(m, "api key not valid")
}
