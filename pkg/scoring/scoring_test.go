package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wpembed/toolscope/pkg/providers"
	"github.com/wpembed/toolscope/pkg/wordpress"
)

// fakeProvider scripts Complete and counts concurrent entries.
type fakeProvider struct {
	complete func(ctx context.Context, req providers.Request) (string, error)

	inFlight    int64
	maxInFlight int64
	calls       int64
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req providers.Request) (string, error) {
	atomic.AddInt64(&f.calls, 1)
	cur := atomic.AddInt64(&f.inFlight, 1)
	for {
		max := atomic.LoadInt64(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt64(&f.maxInFlight, max, cur) {
			break
		}
	}
	defer atomic.AddInt64(&f.inFlight, -1)

	// Hold the call open long enough for siblings to pile up.
	time.Sleep(5 * time.Millisecond)
	return f.complete(ctx, req)
}

func (f *fakeProvider) Stream(context.Context, providers.Request, providers.StreamHandler) error {
	return fmt.Errorf("not used")
}

func (f *fakeProvider) Validate(context.Context) bool { return true }

// echoScores answers any batch prompt with a well-formed score response
// covering exactly the requested ids.
func echoScores(_ context.Context, req providers.Request) (string, error) {
	var in struct {
		Posts []struct {
			ID int `json:"id"`
		} `json:"posts"`
	}
	if err := json.Unmarshal([]byte(req.Prompt), &in); err != nil {
		return "", err
	}
	out := scoreResponse{}
	for _, p := range in.Posts {
		out.Posts = append(out.Posts, scoredPost{
			ID:                   p.ID,
			OpportunityScore:     p.ID % 101,
			OpportunityRationale: fmt.Sprintf("rationale %d", p.ID),
		})
	}
	b, _ := json.Marshal(out)
	return string(b), nil
}

func makePosts(n int) []wordpress.Post {
	posts := make([]wordpress.Post, n)
	for i := range posts {
		posts[i] = wordpress.Post{ID: i + 1, Title: fmt.Sprintf("Post %d", i+1)}
	}
	return posts
}

func TestPartition(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 9, 20, 64, 65} {
		posts := makePosts(n)
		batches := partition(posts, 8)

		wantBatches := (n + 7) / 8
		if len(batches) != wantBatches {
			t.Fatalf("n=%d: %d batches, want %d", n, len(batches), wantBatches)
		}

		var flat []wordpress.Post
		seen := map[int]bool{}
		for _, b := range batches {
			if len(b) == 0 || len(b) > 8 {
				t.Fatalf("n=%d: batch size %d out of bounds", n, len(b))
			}
			for _, p := range b {
				if seen[p.ID] {
					t.Fatalf("n=%d: post %d in two batches", n, p.ID)
				}
				seen[p.ID] = true
			}
			flat = append(flat, b...)
		}
		for i, p := range flat {
			if p.ID != posts[i].ID {
				t.Fatalf("n=%d: concatenated batches reorder input at %d", n, i)
			}
		}
	}
}

func TestScoreRespectsConcurrencyBound(t *testing.T) {
	fp := &fakeProvider{complete: echoScores}
	o := &Orchestrator{Provider: fp, Concurrency: 6, RetryDelay: time.Millisecond}

	// 80 posts -> 10 batches, enough to saturate the bound.
	posts := makePosts(80)
	var mu sync.Mutex
	got := map[int]bool{}
	progressCalls := 0

	err := o.Score(context.Background(), posts, func(updates []Update) {
		mu.Lock()
		defer mu.Unlock()
		progressCalls++
		for _, u := range updates {
			if got[u.PostID] {
				t.Errorf("post %d reported twice", u.PostID)
			}
			got[u.PostID] = true
		}
	})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if max := atomic.LoadInt64(&fp.maxInFlight); max > 6 {
		t.Fatalf("observed %d concurrent batches, bound is 6", max)
	}
	if progressCalls != 10 {
		t.Fatalf("onProgress called %d times, want 10", progressCalls)
	}
	if len(got) != 80 {
		t.Fatalf("union of progress ids has %d entries, want 80", len(got))
	}
}

func TestScoreParsesFencedResponse(t *testing.T) {
	fenced := "```json\n" +
		`{"posts":[{"id":1,"opportunityScore":95,"opportunityRationale":"Great calculator fit"},` +
		`{"id":2,"opportunityScore":10,"opportunityRationale":"News item"},` +
		`{"id":3,"opportunityScore":60,"opportunityRationale":"Moderate"}]}` +
		"\n```"
	fp := &fakeProvider{complete: func(context.Context, providers.Request) (string, error) {
		return fenced, nil
	}}
	o := &Orchestrator{Provider: fp, RetryDelay: time.Millisecond}

	start := time.Now().Add(-time.Second)
	var all []Update
	calls := 0
	err := o.Score(context.Background(), makePosts(3), func(updates []Update) {
		calls++
		all = append(all, updates...)
	})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if calls != 1 {
		t.Fatalf("onProgress called %d times, want 1", calls)
	}
	if len(all) != 3 {
		t.Fatalf("got %d updates", len(all))
	}

	byID := map[int]Update{}
	for _, u := range all {
		byID[u.PostID] = u
		if u.ScoredAt.Before(start) {
			t.Errorf("stale timestamp on %d: %v", u.PostID, u.ScoredAt)
		}
	}
	if byID[1].Score != 95 || byID[1].Rationale != "Great calculator fit" {
		t.Fatalf("post 1: %+v", byID[1])
	}
	if byID[2].Score != 10 || byID[3].Score != 60 {
		t.Fatalf("posts 2/3: %+v %+v", byID[2], byID[3])
	}
}

func TestScoreOmitsFailedBatches(t *testing.T) {
	var n int64
	fp := &fakeProvider{complete: func(ctx context.Context, req providers.Request) (string, error) {
		// Fail every other batch with a non-retryable error.
		if atomic.AddInt64(&n, 1)%2 == 0 {
			return "", &providers.AuthError{Provider: "fake", Message: "invalid api key"}
		}
		return echoScores(ctx, req)
	}}
	o := &Orchestrator{Provider: fp, RetryDelay: time.Millisecond}

	var mu sync.Mutex
	var all []Update
	err := o.Score(context.Background(), makePosts(32), func(updates []Update) {
		mu.Lock()
		all = append(all, updates...)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("partial failure must not reject the run: %v", err)
	}
	if len(all) != 16 {
		t.Fatalf("got %d updates from 2 surviving batches, want 16", len(all))
	}
}

func TestScoreRetriesTransientFailures(t *testing.T) {
	var n int64
	fp := &fakeProvider{complete: func(ctx context.Context, req providers.Request) (string, error) {
		if atomic.AddInt64(&n, 1) < 3 {
			return "", &providers.TransportError{Provider: "fake", Status: 429, Message: "rate limited"}
		}
		return echoScores(ctx, req)
	}}
	o := &Orchestrator{Provider: fp, RetryDelay: time.Millisecond}

	var all []Update
	err := o.Score(context.Background(), makePosts(3), func(updates []Update) {
		all = append(all, updates...)
	})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d updates after retries", len(all))
	}
	if calls := atomic.LoadInt64(&fp.calls); calls != 3 {
		t.Fatalf("provider called %d times, want 3", calls)
	}
}

func TestScoreDropsUnknownIDs(t *testing.T) {
	fp := &fakeProvider{complete: func(context.Context, providers.Request) (string, error) {
		return `{"posts":[{"id":1,"opportunityScore":50,"opportunityRationale":"ok"},{"id":999,"opportunityScore":90,"opportunityRationale":"hallucinated"}]}`, nil
	}}
	o := &Orchestrator{Provider: fp, RetryDelay: time.Millisecond}

	var all []Update
	if err := o.Score(context.Background(), makePosts(1), func(updates []Update) {
		all = append(all, updates...)
	}); err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(all) != 1 || all[0].PostID != 1 {
		t.Fatalf("got %+v", all)
	}
}

func TestScoreOutOfRangePassesThrough(t *testing.T) {
	fp := &fakeProvider{complete: func(context.Context, providers.Request) (string, error) {
		return `{"posts":[{"id":1,"opportunityScore":150,"opportunityRationale":"overenthusiastic"}]}`, nil
	}}
	o := &Orchestrator{Provider: fp, RetryDelay: time.Millisecond}

	var all []Update
	if err := o.Score(context.Background(), makePosts(1), func(updates []Update) {
		all = append(all, updates...)
	}); err != nil {
		t.Fatalf("Score: %v", err)
	}
	if len(all) != 1 || all[0].Score != 150 {
		t.Fatalf("out-of-range score should pass through unchanged: %+v", all)
	}
}

func TestScorePromptEmbedsCleanTitles(t *testing.T) {
	var gotPrompt string
	fp := &fakeProvider{complete: func(_ context.Context, req providers.Request) (string, error) {
		gotPrompt = req.Prompt
		return `{"posts":[{"id":1,"opportunityScore":10,"opportunityRationale":"x"}]}`, nil
	}}
	o := &Orchestrator{Provider: fp, RetryDelay: time.Millisecond}

	posts := []wordpress.Post{{ID: 1, Title: "<em>Fancy</em> &amp; bold"}}
	if err := o.Score(context.Background(), posts, nil); err != nil {
		t.Fatalf("Score: %v", err)
	}
	if strings.Contains(gotPrompt, "<em>") {
		t.Fatalf("prompt leaked markup: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, `"id":1`) {
		t.Fatalf("prompt missing id hint: %q", gotPrompt)
	}
}
