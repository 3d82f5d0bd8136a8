// Package diagnostics keeps a bounded history of recent request and channel
// failures for display in a debug overlay.
package diagnostics

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 20

// Kind classifies an entry.
type Kind string

const (
	KindAPI     Kind = "api"
	KindChannel Kind = "channel"
)

// Entry is one recorded failure.
type Entry struct {
	Kind       Kind      `json:"kind"`
	URL        string    `json:"url,omitempty"`
	ZoneID     string    `json:"zone_id,omitempty"`
	Status     int       `json:"status"`
	StatusText string    `json:"status_text"`
	Text       string    `json:"text,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Recorder accepts entries. Components depend on this rather than on Log.
type Recorder interface {
	Record(e Entry)
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Entry) {}

// Log is a fixed-size ring of the most recent entries.
type Log struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

// NewLog creates a ring holding at most capacity entries.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{entries: make([]Entry, capacity), now: time.Now}
}

// Record stores e, evicting the oldest entry when the ring is full.
func (l *Log) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	const maxText = 200
	if len(e.Text) > maxText {
		e.Text = e.Text[:maxText]
	}
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns a copy of the stored entries, oldest first.
func (l *Log) Recent() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]Entry, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]Entry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Cap returns the ring capacity.
func (l *Log) Cap() int {
	return len(l.entries)
}

var (
	processMu  sync.RWMutex
	processLog *Log
)

// Init creates the process-wide log. It is called once at startup; calling
// it again replaces the log.
func Init(capacity int) *Log {
	processMu.Lock()
	defer processMu.Unlock()
	processLog = NewLog(capacity)
	return processLog
}

// Default returns the process-wide log, or nil before Init.
func Default() *Log {
	processMu.RLock()
	defer processMu.RUnlock()
	return processLog
}
