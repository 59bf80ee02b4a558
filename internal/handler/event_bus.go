// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"ble-discovery-service/internal/model"
)

// EventBus manages event distribution
type EventBus struct {
	subscribers map[model.EventType][]chan model.Event
	events      chan model.Event
	done        chan struct{}
	stopOnce    sync.Once
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EventBus{
		subscribers: make(map[model.EventType][]chan model.Event),
		events:      make(chan model.Event, 1000),
		done:        make(chan struct{}),
		logger:      logger.With(zap.String("component", "event-bus")),
	}
}

// Start distributes published events until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case <-eb.done:
			return
		case event := <-eb.events:
			eb.distributeEvent(event)
		}
	}
}

// Stop stops distribution. Events published afterwards are discarded.
func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() {
		close(eb.done)
	})
}

// Publish publishes an event without blocking
func (eb *EventBus) Publish(event model.Event) {
	select {
	case <-eb.done:
		return
	default:
	}

	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.Type)),
		)
	}
}

// Subscribe subscribes to events of a specific type
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan model.Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan model.Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// Unsubscribe removes and closes a subscription
func (eb *EventBus) Unsubscribe(eventType model.EventType, subscription <-chan model.Event) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscribers := eb.subscribers[eventType]
	for i, subscriber := range subscribers {
		if subscriber == subscription {
			eb.subscribers[eventType] = append(subscribers[:i:i], subscribers[i+1:]...)
			close(subscriber)
			return
		}
	}
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event model.Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for _, subscriber := range eb.subscribers[event.Type] {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
