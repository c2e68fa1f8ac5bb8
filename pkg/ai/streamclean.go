package ai

import "regexp"

// Generation streams are prompted to emit raw markup, yet models still wrap
// the whole answer in a markdown fence now and then. CleanChunk strips those
// markers incrementally so the UI never has to buffer the full document.
//
// The markers are assumed to appear only at the true start and end of the
// stream; a fence split across chunk boundaries mid-stream would leak
// through.

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z0-9]*\n?")
	trailingFence = regexp.MustCompile("```\\s*$")
)

// CleanChunk removes a leading fence marker when first is true and a
// trailing fence marker on every chunk. Content without markers passes
// through unchanged. The caller owns the first-chunk flag; CleanChunk itself
// is stateless.
func CleanChunk(chunk string, first bool) string {
	if first {
		chunk = leadingFence.ReplaceAllString(chunk, "")
	}
	return trailingFence.ReplaceAllString(chunk, "")
}
