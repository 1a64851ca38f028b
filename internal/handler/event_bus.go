// internal/handler/event_bus.go
package handler

import (
	"sync"

	"go.uber.org/zap"

	"camera-service/internal/model"
)

// AllEvents subscribes to every event type
const AllEvents model.EventType = "*"

// EventBus manages event distribution
type EventBus struct {
	subscribers map[model.EventType][]chan *model.Event
	events      chan *model.Event
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	logger      *zap.Logger
}

// NewEventBus creates a new event bus
func NewEventBus(logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[model.EventType][]chan *model.Event),
		events:      make(chan *model.Event, 1000),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Start distributes events until Stop is called
func (eb *EventBus) Start() {
	for {
		select {
		case event := <-eb.events:
			eb.distributeEvent(event)
		case <-eb.done:
			eb.mutex.Lock()
			for _, subs := range eb.subscribers {
				for _, ch := range subs {
					close(ch)
				}
			}
			eb.subscribers = make(map[model.EventType][]chan *model.Event)
			eb.mutex.Unlock()
			return
		}
	}
}

// Stop ends distribution and closes every subscriber channel
func (eb *EventBus) Stop() {
	eb.closeOnce.Do(func() { close(eb.done) })
}

// Publish publishes an event. It never blocks.
func (eb *EventBus) Publish(event *model.Event) {
	select {
	case eb.events <- event:
	default:
		// Event bus is full
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe subscribes to events of a specific type, or AllEvents
func (eb *EventBus) Subscribe(eventType model.EventType) <-chan *model.Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	subscriber := make(chan *model.Event, 100)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
	return subscriber
}

// distributeEvent distributes an event to subscribers
func (eb *EventBus) distributeEvent(event *model.Event) {
	eb.mutex.RLock()
	subscribers := append([]chan *model.Event(nil), eb.subscribers[event.EventType]...)
	subscribers = append(subscribers, eb.subscribers[AllEvents]...)
	eb.mutex.RUnlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
