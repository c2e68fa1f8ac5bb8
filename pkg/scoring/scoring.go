// Package scoring fans a post collection out to a generative-AI provider in
// fixed-size batches and reports opportunity scores incrementally as each
// batch lands.
package scoring

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wpembed/toolscope/internal/utils"
	"github.com/wpembed/toolscope/pkg/ai"
	"github.com/wpembed/toolscope/pkg/providers"
	"github.com/wpembed/toolscope/pkg/wordpress"
)

const (
	// batchSize keeps a single prompt small enough that every model in the
	// supported set returns the full batch without truncation.
	batchSize = 8

	defaultConcurrency = 6
	maxTitleRunes      = 200
)

// Update is one post's freshly computed score. Scores arrive as the provider
// produced them; out-of-range values pass through unclamped.
type Update struct {
	PostID    int
	Score     int
	Rationale string
	ScoredAt  time.Time
}

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Orchestrator scores posts through a provider. Zero values take defaults:
// 6 concurrent batches, 3 retries starting at one second.
type Orchestrator struct {
	Provider    providers.Provider
	Concurrency int
	MaxRetries  int
	RetryDelay  time.Duration
	Log         Logger
}

// Score partitions posts into batches and runs them through the provider
// with bounded concurrency, invoking onProgress once per successful batch.
// Batches complete in arbitrary order relative to submission. A failed batch
// is logged and omitted from progress; Score itself only returns an error
// for failures outside per-batch handling (currently context cancellation).
//
// onProgress invocations are serialized, so callers may write straight to
// the score cache without their own locking.
func (o *Orchestrator) Score(ctx context.Context, posts []wordpress.Post, onProgress func([]Update)) error {
	log := o.Log
	if log == nil {
		log = nopLogger{}
	}
	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	batches := partition(posts, batchSize)
	if len(batches) == 0 {
		return nil
	}
	log.Infof("scoring %d posts in %d batches (concurrency %d)", len(posts), len(batches), concurrency)

	sem := make(chan struct{}, concurrency)
	var progressMu sync.Mutex
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		go func(idx int, batch []wordpress.Post) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			updates, err := o.scoreBatch(ctx, batch)
			if err != nil {
				log.Warnf("batch %d/%d failed, omitting from results: %v", idx+1, len(batches), err)
				return
			}
			log.Debugf("batch %d/%d scored %d posts", idx+1, len(batches), len(updates))

			if onProgress != nil {
				progressMu.Lock()
				onProgress(updates)
				progressMu.Unlock()
			}
		}(i, batch)
	}

	wg.Wait()
	return ctx.Err()
}

// partition splits posts into ordered slices of at most size elements. Every
// post lands in exactly one batch and batch order follows input order.
func partition(posts []wordpress.Post, size int) [][]wordpress.Post {
	var batches [][]wordpress.Post
	for start := 0; start < len(posts); start += size {
		end := start + size
		if end > len(posts) {
			end = len(posts)
		}
		batches = append(batches, posts[start:end])
	}
	return batches
}

type batchItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type scoredPost struct {
	ID                   int    `json:"id"`
	OpportunityScore     int    `json:"opportunityScore"`
	OpportunityRationale string `json:"opportunityRationale"`
}

type scoreResponse struct {
	Posts []scoredPost `json:"posts"`
}

func (o *Orchestrator) scoreBatch(ctx context.Context, batch []wordpress.Post) ([]Update, error) {
	items := make([]batchItem, 0, len(batch))
	members := make(map[int]bool, len(batch))
	for _, p := range batch {
		items = append(items, batchItem{
			ID:    p.ID,
			Title: utils.TruncateRunes(utils.StripHTML(p.Title), maxTitleRunes),
		})
		members[p.ID] = true
	}

	payload, err := json.Marshal(struct {
		Posts []batchItem `json:"posts"`
	}{Posts: items})
	if err != nil {
		return nil, err
	}

	maxRetries := o.MaxRetries
	if maxRetries <= 0 {
		maxRetries = ai.DefaultMaxRetries
	}
	retryDelay := o.RetryDelay
	if retryDelay <= 0 {
		retryDelay = ai.DefaultInitialDelay
	}

	raw, err := ai.RetryWithPolicy(ctx, func(ctx context.Context) (string, error) {
		return o.Provider.Complete(ctx, providers.Request{
			Kind:        providers.CallScoring,
			System:      scoringSystemPrompt,
			Prompt:      string(payload),
			JSONSchema:  scoreSchema,
			Temperature: 0.2,
		})
	}, maxRetries, retryDelay)
	if err != nil {
		return nil, err
	}

	var parsed scoreResponse
	if err := ai.DecodeJSON(raw, &parsed); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := make([]Update, 0, len(parsed.Posts))
	for _, sp := range parsed.Posts {
		if !members[sp.ID] {
			// Hallucinated ids must never leak into the cache.
			utils.Log.Debugf("scoring: dropping unknown post id %d from provider response", sp.ID)
			continue
		}
		updates = append(updates, Update{
			PostID:    sp.ID,
			Score:     sp.OpportunityScore,
			Rationale: sp.OpportunityRationale,
			ScoredAt:  now,
		})
	}
	return updates, nil
}
