package events

import "context"

// EventPublisher is the interface for publishing traffic events.
type EventPublisher interface {
	PublishTraffic(ctx context.Context, event *TrafficEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (tap disabled).
type NoOpPublisher struct{}

// PublishTraffic is a no-op.
func (p *NoOpPublisher) PublishTraffic(_ context.Context, _ *TrafficEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *TrafficEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *TrafficEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishTraffic calls the callback.
func (p *CallbackPublisher) PublishTraffic(ctx context.Context, event *TrafficEvent) error {
	return p.callback(ctx, event)
}
