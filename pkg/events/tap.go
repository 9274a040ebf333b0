package events

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const tapLogPrefix = "events:tap"

// Tap stamps wire lines with a per-process session id and a timestamp and
// hands them to a publisher. Publish failures are logged and swallowed.
type Tap struct {
	session   string
	publisher EventPublisher
	now       func() time.Time
}

// NewTap creates a Tap with a fresh session id. A nil publisher disables it.
func NewTap(publisher EventPublisher) *Tap {
	if publisher == nil {
		publisher = &NoOpPublisher{}
	}
	return &Tap{session: uuid.NewString(), publisher: publisher, now: time.Now}
}

// Session returns the id shared by every event of this process.
func (t *Tap) Session() string {
	return t.session
}

// Record publishes one line. node is empty before the handshake and typ is
// empty for lines that could not be decoded.
func (t *Tap) Record(ctx context.Context, node, direction, typ string, line []byte) {
	event := &TrafficEvent{
		Session:   t.session,
		Node:      node,
		Direction: direction,
		Type:      typ,
		Line:      string(bytes.TrimRight(line, "\r\n")),
		Timestamp: t.now().UTC().Format(time.RFC3339Nano),
	}
	if err := t.publisher.PublishTraffic(ctx, event); err != nil {
		slog.WarnContext(ctx, fmt.Sprintf("%s - dropped %s traffic event: %v", tapLogPrefix, direction, err))
	}
}
