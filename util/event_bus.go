// util/event_bus.go

package util

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	logger "github.com/clearops/clearance/logging"
)

// Topic names an event stream. Topics follow "<aggregate>.<verb>".
type Topic string

const (
	TopicApprovalCreated   Topic = "approval.created"
	TopicApprovalDecided   Topic = "approval.decided"
	TopicPolicyRuleCreated Topic = "policyrule.created"
	TopicPolicyRuleDeleted Topic = "policyrule.deleted"
	TopicTokenIssued       Topic = "token.issued"
	TopicTokenConsumed     Topic = "token.consumed"
	TopicDelegationCreated Topic = "delegation.created"
	TopicDelegationRevoked Topic = "delegation.revoked"
)

// Event is one published occurrence. Payload is the aggregate the topic
// names, already persisted by the time the event fires.
type Event struct {
	Topic       Topic
	Payload     interface{}
	PublishedAt time.Time
}

// EventHandler is a function that handles an event
type EventHandler func(context.Context, Event) error

// EventBus manages event subscriptions and publications. Handlers run
// asynchronously; a handler failure never fails the publishing
// operation, it is reported on the error channel.
type EventBus struct {
	subscribers map[Topic][]EventHandler
	mu          sync.RWMutex
	errorChan   chan error
}

// NewEventBus creates a new EventBus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[Topic][]EventHandler),
		errorChan:   make(chan error, 100),
	}
}

// Subscribe adds a new subscriber for a topic
func (eb *EventBus) Subscribe(topic Topic, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[topic] = append(eb.subscribers[topic], handler)
}

// Publish sends an event to all subscribers of the topic
func (eb *EventBus) Publish(ctx context.Context, topic Topic, payload interface{}) {
	eb.mu.RLock()
	handlers, exists := eb.subscribers[topic]
	eb.mu.RUnlock()

	if !exists {
		return
	}

	event := Event{
		Topic:       topic,
		Payload:     payload,
		PublishedAt: time.Now().UTC(),
	}

	for _, handler := range handlers {
		go func(h EventHandler) {
			if err := h(ctx, event); err != nil {
				select {
				case eb.errorChan <- fmt.Errorf("handler for %s failed: %w", topic, err):
				default:
					logger.Error("Error channel full, logging event handler error",
						zap.Error(err),
						zap.String("topic", string(topic)))
				}
			}
		}(handler)
	}
}

// Start begins processing events and handling errors
func (eb *EventBus) Start(ctx context.Context) {
	go eb.processErrors(ctx)
}

// processErrors handles errors from event handlers
func (eb *EventBus) processErrors(ctx context.Context) {
	for {
		select {
		case err := <-eb.errorChan:
			logger.Error("Event handler error", zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
