package updatelog

import "sync/atomic"

// Seq is the monotonic sequence number iterate() pairs with each event.
type Seq uint64

// Entry pairs one Event with the sequence number it was appended under.
type Entry struct {
	Seq   Seq
	Event Event
}

// Log is the append(event)/iterate() contract every update log satisfies. A
// Log is owned by a single writer at a time and is consumed exactly once by its
// reader; Append must be O(1) amortized regardless of whether the
// implementation keeps entries in memory or has spilled to disk.
type Log interface {
	// Append adds event to the end of the log and returns the sequence
	// number assigned to it.
	Append(event Event) Seq

	// Iterate returns a function that yields log entries one at a time in
	// insertion order. The returned function returns ok=false once the log
	// is exhausted. Iterate must be safe to call only once per Log: the
	// reader consumes the sequence, it does not rewind it.
	Iterate() func() (Entry, bool)

	// Len reports the number of events appended so far.
	Len() int

	// Close releases any resources (e.g. a spill-tier Badger instance).
	// Safe to call on a Log that never spilled.
	Close() error
}

// memoryLog is the in-memory Log implementation: an append-only slice. This
// is the default; SpillThreshold in Options decides when a Log instead
// becomes a spillingLog (see spill.go).
type memoryLog struct {
	entries []Entry
	next    atomic.Uint64
}

// NewMemory returns an in-memory Log with no spill tier. Use New with
// Options to get automatic spill-to-disk past a size threshold.
func NewMemory() Log {
	return &memoryLog{}
}

func (l *memoryLog) Append(event Event) Seq {
	seq := Seq(l.next.Add(1) - 1)
	l.entries = append(l.entries, Entry{Seq: seq, Event: event})
	return seq
}

func (l *memoryLog) Iterate() func() (Entry, bool) {
	i := 0
	return func() (Entry, bool) {
		if i >= len(l.entries) {
			return Entry{}, false
		}
		e := l.entries[i]
		i++
		return e, true
	}
}

func (l *memoryLog) Len() int { return len(l.entries) }

func (l *memoryLog) Close() error { return nil }
