package eventlog

import "sync"

// Log is the append-only event log for one dictation session. It is safe for
// concurrent use: the transport's receive loop and the note pipeline append
// from separate goroutines, and views read snapshots.
//
// Entries are immutable once appended and are kept in strict append order.
// Reset discards all entries; it is called exactly once per session start.
type Log struct {
	mu      sync.Mutex
	entries []Event
	subs    []chan struct{}
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Append adds e to the end of the log and notifies subscribers.
func (l *Log) Append(e Event) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	l.notify()
}

// Reset discards all entries. Subscribers are notified so derived state can
// recompute against the now-empty log.
func (l *Log) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	l.notify()
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Snapshot returns a copy of all entries in append order. The returned slice
// is owned by the caller; the log never mutates entries after append.
func (l *Log) Snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}

// Subscribe returns a channel that receives a coalesced signal whenever the
// log changes. The channel has a buffer of one; rapid successive appends
// collapse into a single pending signal, so a reader that recomputes from a
// fresh snapshot on every signal never misses state.
func (l *Log) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}

func (l *Log) notify() {
	l.mu.Lock()
	subs := l.subs
	l.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
