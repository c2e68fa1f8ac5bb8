package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"github.com/wpembed/toolscope/pkg/providers"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "g-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCompleteUsesSchemaAndFastModel(t *testing.T) {
	var gotPath string
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if got := r.Header.Get("x-goog-api-key"); got != "g-test" {
			t.Errorf("bad key header: %q", got)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"posts\":[]}"}]}}]}`))
	})

	out, err := c.Complete(context.Background(), providers.Request{
		Kind:       providers.CallScoring,
		System:     "score things",
		Prompt:     "here are posts",
		JSONSchema: []byte(`{"type":"object","properties":{"posts":{"type":"array"}}}`),
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"posts":[]}` {
		t.Fatalf("got %q", out)
	}

	if want := "/v1beta/models/" + defaultFastModel + ":generateContent"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if got := gjson.GetBytes(gotBody, "generationConfig.responseMimeType").String(); got != "application/json" {
		t.Errorf("responseMimeType = %q", got)
	}
	if !gjson.GetBytes(gotBody, "generationConfig.responseSchema.properties.posts").Exists() {
		t.Errorf("responseSchema not forwarded: %s", gotBody)
	}
	if got := gjson.GetBytes(gotBody, "systemInstruction.parts.0.text").String(); got != "score things" {
		t.Errorf("systemInstruction = %q", got)
	}
}

func TestGenerateKindSelectsProModel(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"<html></html>"}]}}]}`))
	})

	if _, err := c.Complete(context.Background(), providers.Request{Kind: providers.CallGenerate, Prompt: "build"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(gotPath, defaultProModel) {
		t.Fatalf("path %q should use the pro model for code generation", gotPath)
	}
}

func TestModelOverrideWins(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	if _, err := c.Complete(context.Background(), providers.Request{Kind: providers.CallGenerate, Model: "gemini-exp", Prompt: "x"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(gotPath, "gemini-exp") {
		t.Fatalf("path %q should use the override model", gotPath)
	}
}

func TestStream(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"<!DOCTYPE\"}]}}]}\n\n" +
				"data: not-json\n\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\" html>\"}]}}]}\n\n"))
	})

	var chunks []string
	err := c.Stream(context.Background(), providers.Request{Kind: providers.CallGenerate, Prompt: "go"}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if !reflect.DeepEqual(chunks, []string{"<!DOCTYPE", " html>"}) {
		t.Fatalf("got %v", chunks)
	}
	if gotQuery != "alt=sse" {
		t.Fatalf("query = %q, want alt=sse", gotQuery)
	}
}

func TestValidateRejectedKey(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"API key not valid. Please pass a valid API key."}}`))
	})

	if c.Validate(context.Background()) {
		t.Fatal("expected false")
	}
	if calls != 1 {
		t.Fatalf("observed %d calls, want 1", calls)
	}
}
