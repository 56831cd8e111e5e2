package relay

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Stream identifiers carried on events.
const (
	SourceTerminal = "terminal"
	SourceStderr   = "stderr"
	SourceSystem   = "system"
)

// EventType distinguishes session lifecycle notifications from relayed
// output.
type EventType string

const (
	EventTypeStarting  EventType = "starting"
	EventTypeLog       EventType = "log"
	EventTypeSignaling EventType = "signaling"
	EventTypeExited    EventType = "exited"
	EventTypeError     EventType = "error"
)

// Event is a single lifecycle or output notification for a session.
type Event struct {
	Timestamp time.Time
	Job       string
	Type      EventType
	Message   string
	Level     string
	Source    string
	Err       error
	ExitCode  int
}

// Mux fans in events from a session's streams and delivers them via a
// bounded channel. When the consumer cannot keep up and the buffer would
// overflow, the mux drops records and emits a synthesized warning carrying
// the number of discarded entries.
type Mux struct {
	out chan Event

	mu     sync.Mutex
	drops  map[string]dropRecord
	inputs sync.WaitGroup
}

type dropRecord struct {
	count int
}

// New constructs a mux backed by a channel of the provided size. A size of
// zero results in a minimally buffered channel.
func New(size int) *Mux {
	if size <= 0 {
		size = 1
	}
	return &Mux{
		out:   make(chan Event, size),
		drops: make(map[string]dropRecord),
	}
}

// Output exposes the muxed event channel.
func (m *Mux) Output() <-chan Event {
	return m.out
}

// Add registers a new source channel. The mux consumes events until the
// source channel is closed.
func (m *Mux) Add(source <-chan Event) {
	if source == nil {
		return
	}
	m.inputs.Add(1)
	go func() {
		defer m.inputs.Done()
		for evt := range source {
			m.deliver(normalize(evt))
		}
	}()
}

// Stream scans the reader line by line and registers the resulting event
// channel with the mux. It is the bridge between a session's byte streams
// and the event surface.
func (m *Mux) Stream(r io.Reader, job, source string) {
	if r == nil {
		return
	}
	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r\n")
			evt := Event{
				Timestamp: time.Now(),
				Job:       job,
				Type:      EventTypeLog,
				Message:   line,
				Source:    source,
			}
			if source == SourceStderr {
				evt.Level = "warn"
			}
			ch <- evt
		}
		if err := scanner.Err(); err != nil {
			ch <- Event{
				Timestamp: time.Now(),
				Job:       job,
				Type:      EventTypeError,
				Message:   "stream read failed",
				Level:     "error",
				Source:    source,
				Err:       err,
			}
		}
	}()
	m.Add(ch)
}

// Close waits for all sources to be drained, emits any pending drop
// metadata, and closes the output channel.
func (m *Mux) Close() {
	m.inputs.Wait()
	m.flushDrops()
	close(m.out)
}

func (m *Mux) deliver(evt Event) {
	if !m.flushPending(evt.Source) {
		m.recordDrop(evt.Source, 1)
		return
	}
	if m.trySend(evt) {
		return
	}
	m.recordDrop(evt.Source, 1)
}

func (m *Mux) flushPending(source string) bool {
	for {
		rec := m.takeDrops(source)
		if rec.count == 0 {
			return true
		}
		meta := synthesizeDropEvent(source, rec)
		if m.trySend(meta) {
			continue
		}
		m.recordDrop(source, rec.count)
		return false
	}
}

func (m *Mux) takeDrops(source string) dropRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.drops[source]
	if rec.count != 0 {
		delete(m.drops, source)
	}
	return rec
}

func (m *Mux) recordDrop(source string, count int) {
	if count <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.drops[source]
	rec.count += count
	m.drops[source] = rec
}

func (m *Mux) flushDrops() {
	pending := m.collectDrops()
	for source, rec := range pending {
		m.out <- synthesizeDropEvent(source, rec)
	}
}

func (m *Mux) collectDrops() map[string]dropRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.drops) == 0 {
		return nil
	}
	dup := make(map[string]dropRecord, len(m.drops))
	for source, rec := range m.drops {
		if rec.count == 0 {
			continue
		}
		dup[source] = rec
	}
	m.drops = make(map[string]dropRecord)
	return dup
}

func (m *Mux) trySend(evt Event) bool {
	select {
	case m.out <- evt:
		return true
	default:
		return false
	}
}

func normalize(evt Event) Event {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	if evt.Source == "" {
		evt.Source = SourceTerminal
	}
	if evt.Level == "" {
		if evt.Source == SourceStderr {
			evt.Level = "warn"
		} else {
			evt.Level = "info"
		}
	}
	return evt
}

func synthesizeDropEvent(source string, rec dropRecord) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      EventTypeLog,
		Message:   fmt.Sprintf("dropped=%d source=%s", rec.count, source),
		Level:     "warn",
		Source:    SourceSystem,
	}
}
