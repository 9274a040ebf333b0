// Package commsutil provides COMMS (NATS) connection helpers for the traffic tap.
package commsutil

import (
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"
)

const logPrefix = "commsutil:connect"

// Bounds for the tap connection. Publishing is fire-and-forget; while
// disconnected the client buffers up to tapReconnectBuf bytes and then
// drops, so the request loop never waits on COMMS.
const (
	tapConnectTimeout = 5 * time.Second
	tapReconnectWait  = time.Second
	tapMaxReconnects  = 10
	tapReconnectBuf   = 8 * 1024 * 1024
)

// Connect creates a COMMS connection to the given URL.
func Connect(url, name string) (*comms.Conn, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to COMMS at %s as %s", logPrefix, url, name))

	nc, err := comms.Connect(url,
		comms.Name(name),
		comms.Timeout(tapConnectTimeout),
		comms.ReconnectWait(tapReconnectWait),
		comms.MaxReconnects(tapMaxReconnects),
		comms.ReconnectBufSize(tapReconnectBuf),
		comms.DisconnectErrHandler(func(_ *comms.Conn, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS disconnected, traffic events are buffered: %v", logPrefix, err))
		}),
		comms.ReconnectHandler(func(nc *comms.Conn) {
			slog.Info(fmt.Sprintf("%s - COMMS reconnected to %s", logPrefix, nc.ConnectedUrl()))
		}),
		comms.ErrorHandler(func(_ *comms.Conn, _ *comms.Subscription, err error) {
			slog.Warn(fmt.Sprintf("%s - COMMS async error: %v", logPrefix, err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Connected to COMMS at %s", logPrefix, nc.ConnectedUrl()))
	return nc, nil
}

// Close flushes pending publishes for at most timeout and closes nc.
// A flush failure is logged; the connection is closed regardless.
func Close(nc *comms.Conn, timeout time.Duration) {
	if nc == nil {
		return
	}
	if err := nc.FlushTimeout(timeout); err != nil {
		slog.Warn(fmt.Sprintf("%s - COMMS flush before close failed: %v", logPrefix, err))
	}
	nc.Close()
}
