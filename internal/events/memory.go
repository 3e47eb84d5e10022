package events

import (
	"context"
	"sync"
)

// MemoryLog is an in-memory Log and Outbox.
type MemoryLog struct {
	mu        sync.RWMutex
	events    []Event
	published int
}

// NewMemoryLog creates an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, event Event) (Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	event.Seq = uint64(len(l.events)) + 1
	l.events = append(l.events, event)
	return event, nil
}

func (l *MemoryLog) List(_ context.Context, afterSeq uint64, limit int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if afterSeq >= uint64(len(l.events)) {
		return []Event{}, nil
	}
	end := len(l.events)
	if limit > 0 && int(afterSeq)+limit < end {
		end = int(afterSeq) + limit
	}
	out := make([]Event, end-int(afterSeq))
	copy(out, l.events[afterSeq:end])
	return out, nil
}

// Unpublished returns events after the publish cursor. Events are published
// strictly in order, so the cursor is a single index.
func (l *MemoryLog) Unpublished(_ context.Context, limit int) ([]Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	end := len(l.events)
	if limit > 0 && l.published+limit < end {
		end = l.published + limit
	}
	out := make([]Event, end-l.published)
	copy(out, l.events[l.published:end])
	return out, nil
}

func (l *MemoryLog) MarkPublished(_ context.Context, seqs []uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, seq := range seqs {
		if int(seq) == l.published+1 {
			l.published++
		}
	}
	return nil
}
