package providers

import (
	"bufio"
	"io"
	"strings"
)

// maxSSELineBytes bounds a single event line. Generation deltas are small,
// but scoring payloads echoed in error events can be large.
const maxSSELineBytes = 1 << 20

// ScanSSE reads a line-oriented event stream, invoking fn once per data
// payload. Non-data lines (event names, comments, keep-alive blanks) are
// ignored. fn returns done=true to stop at a protocol end sentinel.
//
// bufio.Scanner keeps an incomplete trailing line buffered across reads, so
// a data line split over two network chunks is reassembled before parsing.
func ScanSSE(r io.Reader, fn func(data string) (done bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineBytes)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		done, err := fn(data)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}
