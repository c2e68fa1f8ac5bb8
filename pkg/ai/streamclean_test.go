package ai

import "testing"

func TestCleanChunk(t *testing.T) {
	tests := []struct {
		name     string
		chunk    string
		first    bool
		expected string
	}{
		{
			name:     "leading fence with language tag",
			chunk:    "```html\n<div>",
			first:    true,
			expected: "<div>",
		},
		{
			name:     "leading fence without language tag",
			chunk:    "```\n<!DOCTYPE html>",
			first:    true,
			expected: "<!DOCTYPE html>",
		},
		{
			name:     "trailing fence",
			chunk:    "</div>```",
			first:    false,
			expected: "</div>",
		},
		{
			name:     "trailing fence after newline keeps the newline",
			chunk:    "</html>\n```",
			first:    false,
			expected: "</html>\n",
		},
		{
			name:     "mid-stream content untouched",
			chunk:    "<span>mid</span>",
			first:    false,
			expected: "<span>mid</span>",
		},
		{
			name:     "fence-like text inside chunk untouched",
			chunk:    "const fence = \"``\" + \"`\";",
			first:    false,
			expected: "const fence = \"``\" + \"`\";",
		},
		{
			name:     "leading fence ignored on non-first chunk",
			chunk:    "```html\n<div>",
			first:    false,
			expected: "```html\n<div>",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanChunk(tc.chunk, tc.first); got != tc.expected {
				t.Fatalf("CleanChunk(%q, %v) = %q, want %q", tc.chunk, tc.first, got, tc.expected)
			}
		})
	}
}

func TestCleanChunkIdempotent(t *testing.T) {
	chunk := "<p>plain content</p>"
	once := CleanChunk(chunk, false)
	twice := CleanChunk(once, false)
	if once != chunk || twice != chunk {
		t.Fatalf("clean chunk should pass through unchanged: %q -> %q -> %q", chunk, once, twice)
	}
}
