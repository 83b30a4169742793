package logger

import (
	"fmt"
	"sync"
)

// Entry is one recorded diagnostic.
type Entry struct {
	Level   string
	Message string
}

// Recorder forwards to another Logger and remembers warnings and errors so
// callers can report or fail on them after a run.
type Recorder struct {
	next    Logger
	mu      sync.Mutex
	entries []Entry
}

// NewRecorder wraps next; a nil next records without forwarding.
func NewRecorder(next Logger) *Recorder {
	if next == nil {
		next = NewNoOpLogger()
	}
	return &Recorder{next: next}
}

func (r *Recorder) Tracef(format string, args ...interface{}) {
	r.next.Tracef(format, args...)
}

func (r *Recorder) Debugf(format string, args ...interface{}) {
	r.next.Debugf(format, args...)
}

func (r *Recorder) Infof(format string, args ...interface{}) {
	r.next.Infof(format, args...)
}

func (r *Recorder) Warnf(format string, args ...interface{}) {
	r.record("warn", format, args...)
	r.next.Warnf(format, args...)
}

func (r *Recorder) Errorf(format string, args ...interface{}) {
	r.record("error", format, args...)
	r.next.Errorf(format, args...)
}

// Entries returns a copy of the recorded warnings and errors.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns the number of recorded entries at level ("warn" or "error").
func (r *Recorder) Count(level string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Reset forgets all recorded entries.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

func (r *Recorder) record(level, format string, args ...interface{}) {
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: message})
}
