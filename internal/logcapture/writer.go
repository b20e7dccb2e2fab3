package logcapture

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Sink writes a managed process's captured stdout/stderr both to its
// per-process log file (filesystem layout, §6: "~/.adasa/logs/<name>.{out,err}.log")
// and into the shared ring buffer the Logs command reads from.
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	buf    *RingBuffer
	name   string
	stream string
	line   bytes.Buffer
}

// Open creates (or appends to) the log file for name/stream under dir and
// returns a Sink ready to be used as an io.Writer.
func Open(dir, name, stream string, shared *RingBuffer) (*Sink, error) {
	ext := "out"
	if stream == "stderr" {
		ext = "err"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.%s.log", name, ext))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &Sink{file: f, buf: shared, name: name, stream: stream}, nil
}

// Write implements io.Writer: p is appended to the log file as-is, and each
// newline-separated piece of p is recorded in the ring buffer. Each call is
// split on its own, so text after p's last newline is recorded as a line of
// its own, and a line split across two calls appears as two entries.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.file.Write(p)
	if err != nil {
		return n, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(p))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if s.buf != nil {
			s.buf.Add(Line{Timestamp: time.Now(), Name: s.name, Stream: s.stream, Text: scanner.Text()})
		}
	}
	return n, nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
