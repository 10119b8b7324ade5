package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Sink is the append-only statistics file of one session. The header row
// is written by [OpenSink]; every [Sink.Append] adds exactly one row.
type Sink struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
	rows int
}

// SinkPath returns the file path for a session started at t:
// <dir>/<operation>.<unix-millis>.csv.
func SinkPath(dir, operation string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d.csv", operation, t.UnixMilli()))
}

// OpenSink creates the statistics file for a session and writes the header.
func OpenSink(dir, operation string, t time.Time) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create stats dir %s", dir)
	}
	path := SinkPath(dir, operation, t)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create stats file")
	}
	s := &Sink{path: path, f: f, w: csv.NewWriter(f)}
	if err := s.write(Header); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write stats header")
	}
	return s, nil
}

// Path is the file backing the sink.
func (s *Sink) Path() string { return s.path }

// Rows is the number of data rows appended so far.
func (s *Sink) Rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Append writes one result row and flushes it to the file.
func (s *Sink) Append(r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("stats sink closed")
	}
	if err := s.write(r.Record()); err != nil {
		return errors.Wrapf(err, "append stats row for %s", r.Reference)
	}
	s.rows++
	return nil
}

func (s *Sink) write(record []string) error {
	if err := s.w.Write(record); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the file. Safe to call more than once.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	s.w.Flush()
	err := s.w.Error()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}
