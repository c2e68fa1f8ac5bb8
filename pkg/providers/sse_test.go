package providers

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// chunkedReader returns its fragments one Read call at a time, simulating a
// network stream that splits event lines across packets.
type chunkedReader struct {
	fragments []string
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.fragments) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.fragments[0])
	c.fragments[0] = c.fragments[0][n:]
	if c.fragments[0] == "" {
		c.fragments = c.fragments[1:]
	}
	return n, nil
}

func TestScanSSE(t *testing.T) {
	body := strings.Join([]string{
		"event: message_start",
		`data: {"text":"one"}`,
		"",
		": keep-alive comment",
		`data: {"text":"two"}`,
		"data: [DONE]",
		`data: {"text":"never"}`,
		"",
	}, "\n")

	var got []string
	err := ScanSSE(strings.NewReader(body), func(data string) (bool, error) {
		if data == "[DONE]" {
			return true, nil
		}
		got = append(got, data)
		return false, nil
	})
	if err != nil {
		t.Fatalf("ScanSSE: %v", err)
	}

	want := []string{`{"text":"one"}`, `{"text":"two"}`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScanSSEReassemblesSplitLines(t *testing.T) {
	r := &chunkedReader{fragments: []string{
		`data: {"te`,
		`xt":"hel`,
		"lo\"}\ndata: [DONE]\n",
	}}

	var got []string
	err := ScanSSE(r, func(data string) (bool, error) {
		if data == "[DONE]" {
			return true, nil
		}
		got = append(got, data)
		return false, nil
	})
	if err != nil {
		t.Fatalf("ScanSSE: %v", err)
	}
	if len(got) != 1 || got[0] != `{"text":"hello"}` {
		t.Fatalf("got %v", got)
	}
}

func TestScanSSEPropagatesHandlerError(t *testing.T) {
	boom := errors.New("consumer gave up")
	err := ScanSSE(strings.NewReader("data: x\n"), func(string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestScanSSEPlainEOF(t *testing.T) {
	// Streams without an end sentinel (Gemini) terminate at EOF.
	var got []string
	err := ScanSSE(strings.NewReader("data: a\ndata: b"), func(data string) (bool, error) {
		got = append(got, data)
		return false, nil
	})
	if err != nil {
		t.Fatalf("ScanSSE: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("got %v", got)
	}
}
