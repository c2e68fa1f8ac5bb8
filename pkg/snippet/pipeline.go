// Package snippet turns a blog post into embeddable interactive-tool HTML:
// idea suggestions over a non-streaming call, then document generation and
// refresh over streaming calls with markdown fences stripped chunk by chunk.
package snippet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/wpembed/toolscope/internal/utils"
	"github.com/wpembed/toolscope/pkg/ai"
	"github.com/wpembed/toolscope/pkg/providers"
	"github.com/wpembed/toolscope/pkg/wordpress"
)

const (
	maxBodyRunes = 4000
	maxIdeas     = 3

	defaultIcon = "calculator"
)

// ErrNoOutput marks a stream that completed without producing any content.
// Callers must treat it as a failed generation, not an empty document.
var ErrNoOutput = errors.New("model failed to produce output")

var validIcons = map[string]bool{
	"calculator": true,
	"quiz":       true,
	"checklist":  true,
	"converter":  true,
	"planner":    true,
	"chart":      true,
	"timer":      true,
}

// Idea is one suggested tool for a post.
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Pipeline drives idea and document generation through a provider. Zero
// values for MaxRetries and RetryDelay take the shared retry defaults.
type Pipeline struct {
	Provider   providers.Provider
	MaxRetries int
	RetryDelay time.Duration
}

// Ideas asks the provider for tool suggestions for a post. An empty list is a
// valid answer; not every post has a tool opportunity.
func (p *Pipeline) Ideas(ctx context.Context, post wordpress.Post) ([]Idea, error) {
	raw, err := p.retryComplete(ctx, providers.Request{
		Kind:        providers.CallIdeas,
		System:      ideasSystemPrompt,
		Prompt:      postContext(post),
		JSONSchema:  ideasSchema,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Ideas []Idea `json:"ideas"`
	}
	if err := ai.DecodeJSON(raw, &parsed); err != nil {
		return nil, err
	}

	ideas := parsed.Ideas
	if len(ideas) > maxIdeas {
		ideas = ideas[:maxIdeas]
	}
	for i := range ideas {
		if !validIcons[ideas[i].Icon] {
			ideas[i].Icon = defaultIcon
		}
	}
	return ideas, nil
}

// Generate streams a complete HTML document for an idea. Cleaned chunks go to
// onChunk as they arrive and the assembled document is returned at the end.
func (p *Pipeline) Generate(ctx context.Context, post wordpress.Post, idea Idea, onChunk providers.StreamHandler) (string, error) {
	prompt := fmt.Sprintf("Build this tool:\nTitle: %s\nDescription: %s\n\nIt will be embedded in the following post.\n\n%s",
		idea.Title, idea.Description, postContext(post))
	return p.stream(ctx, providers.Request{
		Kind:   providers.CallGenerate,
		System: generateSystemPrompt,
		Prompt: prompt,
	}, onChunk)
}

// Refresh regenerates an existing tool document, optionally steered by
// revision notes.
func (p *Pipeline) Refresh(ctx context.Context, post wordpress.Post, currentHTML, notes string, onChunk providers.StreamHandler) (string, error) {
	var b strings.Builder
	b.WriteString("Revise this tool.\n")
	if notes = strings.TrimSpace(notes); notes != "" {
		fmt.Fprintf(&b, "Revision notes: %s\n", notes)
	}
	fmt.Fprintf(&b, "\nIt is embedded in the following post.\n\n%s\n\nCurrent document:\n%s", postContext(post), currentHTML)

	return p.stream(ctx, providers.Request{
		Kind:   providers.CallGenerate,
		System: refreshSystemPrompt,
		Prompt: b.String(),
	}, onChunk)
}

func (p *Pipeline) retryComplete(ctx context.Context, req providers.Request) (string, error) {
	maxRetries, retryDelay := p.retryPolicy()
	return ai.RetryWithPolicy(ctx, func(ctx context.Context) (string, error) {
		return p.Provider.Complete(ctx, req)
	}, maxRetries, retryDelay)
}

// stream runs a streaming call through the fence cleaner. Attempts that fail
// before any chunk reaches the caller are retried; once output has been
// delivered a failure is final, since the caller may have rendered it.
func (p *Pipeline) stream(ctx context.Context, req providers.Request, onChunk providers.StreamHandler) (string, error) {
	maxRetries, retryDelay := p.retryPolicy()

	var doc strings.Builder
	delivered := false

	_, err := ai.RetryWithPolicy(ctx, func(ctx context.Context) (struct{}, error) {
		first := true
		err := p.Provider.Stream(ctx, req, func(chunk string) error {
			cleaned := ai.CleanChunk(chunk, first)
			first = false
			if cleaned == "" {
				return nil
			}
			delivered = true
			doc.WriteString(cleaned)
			if onChunk != nil {
				return onChunk(cleaned)
			}
			return nil
		})
		if err != nil && delivered {
			return struct{}{}, &abortedStream{err: err}
		}
		return struct{}{}, err
	}, maxRetries, retryDelay)
	if err != nil {
		return "", err
	}

	if !delivered {
		return "", fmt.Errorf("%s: %w", p.Provider.Name(), ErrNoOutput)
	}
	return doc.String(), nil
}

func (p *Pipeline) retryPolicy() (int, time.Duration) {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = ai.DefaultMaxRetries
	}
	retryDelay := p.RetryDelay
	if retryDelay <= 0 {
		retryDelay = ai.DefaultInitialDelay
	}
	return maxRetries, retryDelay
}

// abortedStream wraps a mid-stream failure so the retry layer does not rerun
// a stream whose partial output already reached the caller.
type abortedStream struct {
	err error
}

func (e *abortedStream) Error() string   { return fmt.Sprintf("stream aborted: %v", e.err) }
func (e *abortedStream) Unwrap() error   { return e.err }
func (e *abortedStream) Retryable() bool { return false }

// postContext renders the prompt fragment describing a post: title, section
// headings, and a bounded plain-text excerpt of the body.
func postContext(post wordpress.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post title: %s\n", utils.StripHTML(post.Title))

	if headings := extractHeadings(post.Content); len(headings) > 0 {
		b.WriteString("Section headings:\n")
		for _, h := range headings {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	if excerpt := utils.TruncateRunes(utils.StripHTML(post.Content), maxBodyRunes); excerpt != "" {
		fmt.Fprintf(&b, "Body excerpt:\n%s\n", excerpt)
	}
	return b.String()
}

func extractHeadings(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		utils.Log.Debugf("snippet: heading parse failed: %v", err)
		return nil
	}
	var headings []string
	doc.Find("h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			headings = append(headings, t)
		}
	})
	return headings
}
