package events

import (
	"context"
	"sync"
)

// NoopPublisher drops every event. serve uses it when no NATS URL is set.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }

// Published is one event captured by a Recorder.
type Published struct {
	Topic     string
	ProjectID string
	Event     any
}

// Recorder keeps published events in memory, in publish order.
type Recorder struct {
	mu     sync.Mutex
	events []Published
}

func (r *Recorder) Publish(_ context.Context, topic string, event any) error {
	r.mu.Lock()
	r.events = append(r.events, Published{Topic: topic, ProjectID: ProjectOf(event), Event: event})
	r.mu.Unlock()
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Topics returns the topics published so far, in order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	topics := make([]string, len(r.events))
	for i, e := range r.events {
		topics[i] = e.Topic
	}
	return topics
}
