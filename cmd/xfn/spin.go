package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Spinner shows that suites are running while the report is not yet
// written.
type Spinner struct {
	frames []string
	out    io.Writer

	mu      sync.Mutex
	message string
	running bool

	stop   sync.Once
	ticker *time.Ticker
	done   chan struct{}
}

func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		frames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		out:    w,
		ticker: time.NewTicker(time.Millisecond * 90),
		done:   make(chan struct{}),
	}
}

func (s *Spinner) SetMessage(msg string) {
	msg = strings.TrimSpace(msg)
	msg = strings.TrimRight(msg, ".")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = msg
}

func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.run()
}

func (s *Spinner) Stop() {
	s.stop.Do(func() {
		close(s.done)
		s.ticker.Stop()
		s.clear()
	})
}

func (s *Spinner) run() {
	for i := 0; ; i++ {
		select {
		case <-s.ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			s.clear()
			fmt.Fprintf(s.out, "%s %s...", s.frames[i%len(s.frames)], msg)
		case <-s.done:
			return
		}
	}
}

func (s *Spinner) clear() {
	io.WriteString(s.out, "\x1b[0G\x1b[2K\x1b[0G")
}
