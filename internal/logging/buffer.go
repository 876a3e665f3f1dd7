package logging

import (
	"sync"
	"time"
)

// LogEntry is one record kept for GET /api/logs. Seq increases by one per
// record written, so clients can poll with the last Seq they saw.
type LogEntry struct {
	Seq        uint64         `json:"seq"`
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the newest records, overwriting the oldest when full.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    uint64 // Seq of the next record
}

// NewRingBuffer creates a buffer holding up to size records.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, max(size, 1)), next: 1}
}

// Write stores entry and assigns its Seq.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	entry.Seq = rb.next
	rb.entries[rb.slot(rb.next)] = entry
	rb.next++
	rb.mu.Unlock()
}

// Tail returns up to n of the newest entries, oldest first.
// n <= 0 returns everything.
func (rb *RingBuffer) Tail(n int) []LogEntry {
	return rb.Since(0, n)
}

// Since returns up to n of the newest entries with Seq greater than after,
// oldest first. n <= 0 means no limit.
func (rb *RingBuffer) Since(after uint64, n int) []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	first := rb.oldest()
	if after >= first {
		first = after + 1
	}
	if n > 0 && rb.next-first > uint64(n) {
		first = rb.next - uint64(n)
	}
	if first >= rb.next {
		return nil
	}

	out := make([]LogEntry, 0, rb.next-first)
	for seq := first; seq < rb.next; seq++ {
		out = append(out, rb.entries[rb.slot(seq)])
	}
	return out
}

// Count returns the number of entries in the buffer.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return int(rb.next - rb.oldest())
}

// oldest is the Seq of the oldest retained record. Callers hold mu.
func (rb *RingBuffer) oldest() uint64 {
	size := uint64(len(rb.entries))
	if rb.next-1 <= size {
		return 1
	}
	return rb.next - size
}

func (rb *RingBuffer) slot(seq uint64) int {
	return int(seq % uint64(len(rb.entries)))
}
