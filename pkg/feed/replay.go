package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// ReplaySource reads one JSON event per line from a recorded feed.
// Used for offline runs and as the test harness source.
type ReplaySource struct {
	f       *os.File
	scanner *bufio.Scanner
}

func OpenReplay(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &ReplaySource{f: f, scanner: sc}, nil
}

func (r *ReplaySource) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		return Decode(line)
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("replay scan: %w", err)
	}
	return Event{}, io.EOF
}

func (r *ReplaySource) Close() error {
	return r.f.Close()
}

// SliceSource yields a fixed event sequence; test helper.
type SliceSource struct {
	events []Event
	pos    int
}

func NewSliceSource(events ...Event) *SliceSource {
	return &SliceSource{events: events}
}

func (s *SliceSource) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

func (s *SliceSource) Close() error { return nil }
