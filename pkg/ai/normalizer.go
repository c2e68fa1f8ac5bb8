package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/wpembed/toolscope/internal/utils"
)

// Models are instructed to answer with bare JSON but routinely wrap it in
// markdown fences or conversational prose anyway. DecodeJSON recovers the
// embedded structure instead of failing on the first stray backtick.

const parseErrorSnippetLen = 100

var fenceMarker = regexp.MustCompile("```[a-zA-Z0-9]*\n?")

// ParseError reports that no JSON structure could be recovered from a model
// response. Snippet holds a truncated prefix of the raw text for diagnostics.
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no JSON found in model response: %q", e.Snippet)
}

// DecodeJSON unmarshals a model response into v. It first strips fence
// markers and tries a direct parse, then falls back to the outermost
// object or array embedded in the raw text.
func DecodeJSON(raw string, v any) error {
	cleaned := strings.TrimSpace(fenceMarker.ReplaceAllString(raw, ""))
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	if block := outermostJSON(raw); block != "" {
		if err := json.Unmarshal([]byte(block), v); err == nil {
			return nil
		}
	}

	return &ParseError{Snippet: utils.TruncateRunes(raw, parseErrorSnippetLen)}
}

// outermostJSON returns the greedy span from the first opening brace or
// bracket to its matching last closer, or "" when no such span exists.
func outermostJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')

	arrStart := strings.IndexByte(raw, '[')
	if arrStart != -1 && (start == -1 || arrStart < start) {
		start = arrStart
		end = strings.LastIndexByte(raw, ']')
	}

	if start == -1 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
