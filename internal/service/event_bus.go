// internal/service/event_bus.go
package service

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"printer-service/internal/model"
)

// EventBus fans printer events out to any number of subscribers. Slow
// subscribers lose events rather than stall the printer.
type EventBus struct {
	subscribers map[uint64]*subscription
	nextID      uint64
	events      chan model.PrinterEvent
	mutex       sync.RWMutex
	logger      *zap.Logger
}

type subscription struct {
	ch    chan model.PrinterEvent
	types []model.EventType
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[uint64]*subscription),
		events:      make(chan model.PrinterEvent, 1000),
		logger:      logger.With(zap.String("component", "event_bus")),
	}
}

// Start distributes events until ctx is done
func (eb *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			eb.closeAll()
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// Publish queues an event without blocking
func (eb *EventBus) Publish(event model.PrinterEvent) {
	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe returns a channel receiving the given event types, or every
// event when none are given, and a func that cancels the subscription.
func (eb *EventBus) Subscribe(types ...model.EventType) (<-chan model.PrinterEvent, func()) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eb.nextID++
	id := eb.nextID
	sub := &subscription{ch: make(chan model.PrinterEvent, 100), types: types}
	eb.subscribers[id] = sub

	var once sync.Once
	return sub.ch, func() { once.Do(func() { eb.unsubscribe(id) }) }
}

// SubscriberCount returns the number of live subscriptions
func (eb *EventBus) SubscriberCount() int {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()
	return len(eb.subscribers)
}

func (eb *EventBus) unsubscribe(id uint64) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if sub, ok := eb.subscribers[id]; ok {
		delete(eb.subscribers, id)
		close(sub.ch)
	}
}

func (eb *EventBus) closeAll() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for id, sub := range eb.subscribers {
		delete(eb.subscribers, id)
		close(sub.ch)
	}
}

// distributeEvent delivers an event to matching subscribers
func (eb *EventBus) distributeEvent(event model.PrinterEvent) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, sub := range eb.subscribers {
		if len(sub.types) > 0 && !slices.Contains(sub.types, event.EventType) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			eb.logger.Debug("Subscriber is slow, event skipped",
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
}
