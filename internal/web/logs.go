package web

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxLineBytes = 1024 * 1024
	defaultTail  = 200
	maxTail      = 5000
)

// LogBuffer is an io.Writer that keeps the most recent log lines in a fixed
// ring for /api/logs.
type LogBuffer struct {
	mu      sync.Mutex
	ring    []string
	next    int
	full    bool
	partial []byte
	dropped uint64
}

func NewLogBuffer(maxLines int) *LogBuffer {
	if maxLines <= 0 {
		maxLines = 2000
	}
	return &LogBuffer{ring: make([]string, maxLines)}
}

// Write keeps complete lines; a trailing fragment waits for the rest of its
// line unless it grows past maxLineBytes.
func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rest := p
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		b.partial = append(b.partial, rest[:i]...)
		b.pushLocked()
		rest = rest[i+1:]
	}
	b.partial = append(b.partial, rest...)
	if len(b.partial) > maxLineBytes {
		b.pushLocked()
	}
	return len(p), nil
}

func (b *LogBuffer) pushLocked() {
	line := strings.TrimRight(string(b.partial), "\r")
	b.partial = b.partial[:0]
	if line == "" {
		return
	}
	if b.full {
		b.dropped++
	}
	b.ring[b.next] = line
	b.next = (b.next + 1) % len(b.ring)
	if b.next == 0 {
		b.full = true
	}
}

// linesLocked returns the buffered lines, oldest first.
func (b *LogBuffer) linesLocked() []string {
	if !b.full {
		return append([]string(nil), b.ring[:b.next]...)
	}
	out := make([]string, 0, len(b.ring))
	out = append(out, b.ring[b.next:]...)
	return append(out, b.ring[:b.next]...)
}

// Snapshot returns up to tail of the newest lines and the count of lines
// evicted so far.
func (b *LogBuffer) Snapshot(tail int) (lines []string, dropped uint64) {
	return b.Filter(tail, "")
}

// Filter is Snapshot restricted to lines logged by component, i.e. lines
// beginning with "<component>:". An empty component matches everything.
func (b *LogBuffer) Filter(tail int, component string) (lines []string, dropped uint64) {
	if b == nil {
		return nil, 0
	}
	if tail <= 0 {
		tail = defaultTail
	}
	b.mu.Lock()
	all := b.linesLocked()
	dropped = b.dropped
	b.mu.Unlock()

	if component != "" {
		prefix := component + ":"
		kept := all[:0]
		for _, line := range all {
			if strings.HasPrefix(line, prefix) {
				kept = append(kept, line)
			}
		}
		all = kept
	}
	if len(all) > tail {
		all = all[len(all)-tail:]
	}
	return all, dropped
}

type LogsResponse struct {
	NowUTC    string   `json:"now_utc"`
	Component string   `json:"component,omitempty"`
	Dropped   uint64   `json:"dropped"`
	Lines     []string `json:"lines"`
}

// Handler serves the buffer. Query parameters: tail (1..5000), component
// (e.g. "acro" or "sim") and format=text for plain output.
func (b *LogBuffer) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowGET(w, r) {
			return
		}
		q := r.URL.Query()
		tail := defaultTail
		if s := strings.TrimSpace(q.Get("tail")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > maxTail {
				http.Error(w, "tail must be an integer in [1,5000]", http.StatusBadRequest)
				return
			}
			tail = v
		}
		component := strings.TrimSpace(q.Get("component"))
		lines, dropped := b.Filter(tail, component)

		if strings.EqualFold(q.Get("format"), "text") {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			var buf bytes.Buffer
			if dropped > 0 {
				buf.WriteString("[dropped=" + strconv.FormatUint(dropped, 10) + "]\n")
			}
			for _, line := range lines {
				buf.WriteString(line)
				buf.WriteByte('\n')
			}
			_, _ = w.Write(buf.Bytes())
			return
		}
		writeJSON(w, LogsResponse{
			NowUTC:    time.Now().UTC().Format(time.RFC3339Nano),
			Component: component,
			Dropped:   dropped,
			Lines:     lines,
		})
	})
}
