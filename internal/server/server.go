// Package server runs the node: it wires configuration, logging, the traffic
// tap and metrics around the line-oriented request loop on stdin/stdout.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/morezero/echo-node/internal/config"
	"github.com/morezero/echo-node/internal/telemetry"
	"github.com/morezero/echo-node/pkg/commsutil"
	"github.com/morezero/echo-node/pkg/dispatcher"
	"github.com/morezero/echo-node/pkg/events"
	"github.com/morezero/echo-node/pkg/message"
)

const (
	logPrefix       = "server:server"
	tapCloseTimeout = 2 * time.Second
)

// ErrIO marks failures of the input or output stream. There is no channel
// left to report them on, so they end the process.
var ErrIO = errors.New("stream failure")

// Options are the collaborators of a Serve loop. Tap and Metrics are optional.
type Options struct {
	Dispatcher *dispatcher.Dispatcher
	Tap        *events.Tap
	Metrics    *telemetry.Metrics
}

// Run serves stdin/stdout until EOF. Only stream failures are returned;
// invalid settings are logged and replaced by their defaults.
func Run(version string) error {
	return run(version, os.Stdin, os.Stdout, os.Stderr)
}

func run(version string, in io.Reader, out, stderr io.Writer) error {
	cfg, warnings := config.LoadOrDefault()

	logger, logCloser := newLogger(cfg, stderr)
	defer logCloser.Close()
	slog.SetDefault(logger)
	for _, w := range warnings {
		slog.Warn(fmt.Sprintf("%s - ignoring setting: %v", logPrefix, w))
	}

	metrics := telemetry.New()
	metrics.SetBuildInfo(version)

	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if cfg.TapEnabled() {
		nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			// The tap is observational; the harness still gets its replies.
			slog.Error(fmt.Sprintf("%s - traffic tap disabled: %v", logPrefix, err))
		} else {
			defer commsutil.Close(nc, tapCloseTimeout)
			publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{BaseSubject: cfg.TapSubject})
		}
	}
	tap := events.NewTap(publisher)

	disp, err := dispatcher.NewDispatcher(dispatcher.EchoHandler{})
	if err != nil {
		return fmt.Errorf("%s - failed to create dispatcher: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Starting echo-node %s, session %s", logPrefix, telemetry.NormalizeVersion(version), tap.Session()))

	serveErr := Serve(context.Background(), in, out, Options{
		Dispatcher: disp,
		Tap:        tap,
		Metrics:    metrics,
	})

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			slog.Error(fmt.Sprintf("%s - %v", logPrefix, err))
		}
	}
	return serveErr
}

// Serve reads one envelope per line from in and writes one reply line to out
// per decodable request, in order, flushing after each. It returns nil at EOF
// and an error wrapping ErrIO when either stream fails.
func Serve(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
	if opts.Dispatcher == nil {
		return fmt.Errorf("%s - Serve requires a dispatcher", logPrefix)
	}
	if opts.Tap == nil {
		opts.Tap = events.NewTap(nil)
	}

	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 {
			if err := turn(ctx, line, writer, opts); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if !opts.Dispatcher.Ready() {
					slog.Warn(fmt.Sprintf("%s - input closed before the handshake", logPrefix))
				}
				slog.Info(fmt.Sprintf("%s - input closed, shutting down", logPrefix))
				return nil
			}
			return fmt.Errorf("%s - read: %w: %w", logPrefix, ErrIO, readErr)
		}
	}
}

// turn handles one input line. Only stream errors are returned.
func turn(ctx context.Context, raw []byte, w *bufio.Writer, opts Options) error {
	line := bytes.TrimSuffix(bytes.TrimSuffix(raw, []byte("\n")), []byte("\r"))
	nodeID := currentNode(opts.Dispatcher)

	req, err := message.Decode(line)
	if err != nil {
		slog.WarnContext(ctx, fmt.Sprintf("%s - dropping line: %v", logPrefix, err))
		if opts.Metrics != nil {
			opts.Metrics.ObserveMalformed()
		}
		opts.Tap.Record(ctx, nodeID, commsutil.DirectionIn, "", line)
		return nil
	}
	opts.Tap.Record(ctx, nodeID, commsutil.DirectionIn, req.Body.Type, line)
	if opts.Metrics != nil {
		opts.Metrics.ObserveRequest(req)
	}

	start := time.Now()
	reply := opts.Dispatcher.Dispatch(ctx, req)
	encoded, err := message.Encode(reply)
	if err != nil {
		slog.ErrorContext(ctx, fmt.Sprintf("%s - cannot encode %s reply: %v", logPrefix, reply.Body.Type, err))
		reply.Body.Type = message.TypeError
		reply.Body.Payload = message.NewRPCError(message.CodeCrash, "reply could not be encoded").Payload()
		if encoded, err = message.Encode(reply); err != nil {
			return fmt.Errorf("%s - encode error reply: %w", logPrefix, err)
		}
	}

	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("%s - write: %w: %w", logPrefix, ErrIO, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%s - flush: %w: %w", logPrefix, ErrIO, err)
	}

	if opts.Metrics != nil {
		opts.Metrics.ObserveReply(req, reply, time.Since(start))
	}
	opts.Tap.Record(ctx, currentNode(opts.Dispatcher), commsutil.DirectionOut, reply.Body.Type, encoded)
	return nil
}

func currentNode(d *dispatcher.Dispatcher) string {
	id, _ := d.Identity()
	return id.NodeID()
}
