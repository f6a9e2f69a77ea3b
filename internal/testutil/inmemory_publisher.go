package testutil

import (
	"context"
	"sync"

	"github.com/brfledger/utilitybilling/internal/publisher"
	"github.com/samber/lo"
)

// InMemoryPublisher records published events
type InMemoryPublisher struct {
	mu     sync.Mutex
	events []*publisher.Event
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Publish(_ context.Context, event *publisher.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryPublisher) Close() error { return nil }

func (p *InMemoryPublisher) Events() []*publisher.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*publisher.Event(nil), p.events...)
}

// EventsNamed returns the recorded events with the given name
func (p *InMemoryPublisher) EventsNamed(name publisher.EventName) []*publisher.Event {
	return lo.Filter(p.Events(), func(e *publisher.Event, _ int) bool { return e.EventName == name })
}

func (p *InMemoryPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
