package service

import (
	"sync"
)

// Event is one progress notification for a job.
type Event struct {
	JobID    string
	Progress int
	Message  string
}

// ProgressFunc receives checkpoint notifications from the pipeline.
type ProgressFunc func(message string, progress int)

type EventBus struct {
	subscribers map[string][]chan Event
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan Event),
	}
}

func (eb *EventBus) Subscribe(jobID string) chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan Event, 16)
	eb.subscribers[jobID] = append(eb.subscribers[jobID], ch)
	return ch
}

func (eb *EventBus) Unsubscribe(jobID string, ch chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.subscribers[jobID]
	for i, sub := range subs {
		if sub == ch {
			eb.subscribers[jobID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}

	if len(eb.subscribers[jobID]) == 0 {
		delete(eb.subscribers, jobID)
	}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers[event.JobID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Observer adapts the bus to the pipeline's progress callback.
func (eb *EventBus) Observer(jobID string) ProgressFunc {
	return func(message string, progress int) {
		eb.Publish(Event{JobID: jobID, Progress: progress, Message: message})
	}
}
