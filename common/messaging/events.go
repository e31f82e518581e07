package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is the payload published for every frontier lifecycle transition.
type Event struct {
	Crawler string    `json:"crawler"`
	Event   string    `json:"event"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// FrontierEvents publishes frontier events on frontier.<crawler>.<event>
// subjects. It satisfies the frontier Notifier seam.
type FrontierEvents struct {
	broker *NatsBroker
}

// NewFrontierEvents creates an event publisher over the given broker.
func NewFrontierEvents(broker *NatsBroker) *FrontierEvents {
	return &FrontierEvents{broker: broker}
}

// PublishEvent publishes one lifecycle event. It never blocks on consumers.
func (e *FrontierEvents) PublishEvent(ctx context.Context, crawler, event string, payload any) error {
	body, err := json.Marshal(Event{
		Crawler: crawler,
		Event:   event,
		At:      time.Now().UTC(),
		Payload: payload,
	})
	if err != nil {
		return err
	}
	return e.broker.Publish(fmt.Sprintf("frontier.%s.%s", crawler, event), body)
}
