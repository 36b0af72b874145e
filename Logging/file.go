package Logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink is the append-only log file. Writes and Rewrite share one lock,
// so a rewrite never loses lines written while it runs.
type FileSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenFile opens path for appending, creating its directory when needed
func OpenFile(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return &FileSink{path: path, f: f}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// Path returns the file the sink writes to
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, os.ErrClosed
	}
	return s.f.Write(p)
}

// Close releases the file. Safe on a nil sink.
func (s *FileSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Rewrite keeps only the lines for which keep returns true and reports how
// many were dropped. The filtered copy replaces the file atomically and the
// sink continues appending to the new file.
func (s *FileSink) Rewrite(keep func(line []byte) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return 0, os.ErrClosed
	}

	content, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("reading log file: %w", err)
	}
	var kept bytes.Buffer
	dropped := 0
	for _, line := range bytes.SplitAfter(content, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		if !keep(trimmed) {
			dropped++
			continue
		}
		kept.Write(line)
	}
	if dropped == 0 {
		return 0, nil
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, kept.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("writing trimmed log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("replacing log file: %w", err)
	}
	f, err := openAppend(s.path)
	if err != nil {
		return 0, fmt.Errorf("reopening log file: %w", err)
	}
	s.f.Close()
	s.f = f
	return dropped, nil
}
