package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/echo-node/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// BaseSubject overrides the traffic subject prefix (e.g. from TAP_SUBJECT).
	BaseSubject string
}

// CommsPublisher publishes traffic events to COMMS subjects of the form
// <base>.<node>.<direction>.
type CommsPublisher struct {
	nc          *comms.Conn
	baseSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	base := commsutil.SubjectTraffic
	if opts != nil && opts.BaseSubject != "" {
		base = opts.BaseSubject
	}
	return &CommsPublisher{nc: nc, baseSubject: base}
}

// PublishTraffic publishes a TrafficEvent. The client buffers the message;
// this call does not wait for the server.
func (p *CommsPublisher) PublishTraffic(_ context.Context, event *TrafficEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	subject := commsutil.BuildTrafficSubject(p.baseSubject, event.Node, event.Direction)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("%s - failed to publish to %s: %w", commsPublisherLogPrefix, subject, err)
	}

	slog.Debug(fmt.Sprintf("%s - Published %s event on %s", commsPublisherLogPrefix, event.Direction, subject))
	return nil
}
