// Package dispatcher holds the node's session state and routes decoded
// requests to registered handlers by body type.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/echo-node/pkg/message"
)

const logPrefix = "dispatcher:dispatch"

// Dispatcher owns the handler registry, the node identity and the outbound
// msg_id counter. It is driven from a single goroutine.
type Dispatcher struct {
	handlers map[string]Handler
	identity Identity
	// lastMsgID numbers replies for the whole session, so error replies sent
	// before the handshake consume ids too and no id is ever reused.
	lastMsgID uint64
}

// NewDispatcher creates a Dispatcher with the init handler and the given
// handlers registered.
func NewDispatcher(handlers ...Handler) (*Dispatcher, error) {
	d := &Dispatcher{handlers: make(map[string]Handler)}
	if err := d.Register(InitHandler{}); err != nil {
		return nil, err
	}
	for _, h := range handlers {
		if err := d.Register(h); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds h under h.Type(). Types are unique.
func (d *Dispatcher) Register(h Handler) error {
	typ := h.Type()
	if typ == "" {
		return fmt.Errorf("%s - handler type must not be empty", logPrefix)
	}
	if typ == message.TypeError {
		return fmt.Errorf("%s - handler type %q is reserved", logPrefix, typ)
	}
	if _, exists := d.handlers[typ]; exists {
		return fmt.Errorf("%s - handler for %q already registered", logPrefix, typ)
	}
	d.handlers[typ] = h
	return nil
}

// Ready reports whether the handshake has completed.
func (d *Dispatcher) Ready() bool {
	return !d.identity.isZero()
}

// Identity returns the installed identity and whether the handshake has completed.
func (d *Dispatcher) Identity() (Identity, bool) {
	return d.identity, d.Ready()
}

// Dispatch handles one request and returns exactly one reply: the handler's
// reply, or an error reply when the request is refused.
func (d *Dispatcher) Dispatch(ctx context.Context, req *message.Envelope) *message.Envelope {
	slog.DebugContext(ctx, fmt.Sprintf("%s - type=%s src=%s msg_id=%s", logPrefix, req.Body.Type, req.Src, formatID(req.Body.MsgID)))

	reply := req.Reply()
	replyType, payload, err := d.route(req)
	if err != nil {
		rpcErr := toRPCError(err)
		slog.InfoContext(ctx, fmt.Sprintf("%s - refusing %s from %s: %v", logPrefix, req.Body.Type, req.Src, rpcErr))
		reply.Body.Type = message.TypeError
		reply.Body.Payload = rpcErr.Payload()
	} else {
		reply.Body.Type = replyType
		reply.Body.Payload = payload
	}

	d.lastMsgID++
	reply.Body.MsgID = message.ID(d.lastMsgID)
	return reply
}

func (d *Dispatcher) route(req *message.Envelope) (string, message.Payload, error) {
	typ := req.Body.Type
	h, ok := d.handlers[typ]
	if !ok {
		if !d.Ready() {
			return "", nil, message.NewRPCError(message.CodeNotInitialized, "node is not initialized; got %q before init", typ)
		}
		return "", nil, message.NewRPCError(message.CodeNotSupported, "unsupported message type %q", typ)
	}

	if b, ok := h.(Bootstrapper); ok {
		if d.Ready() {
			return "", nil, message.NewRPCError(message.CodeAlreadyInitialized, "node already initialized as %q", d.identity.NodeID())
		}
		id, err := b.Bootstrap(&req.Body)
		if err != nil {
			return "", nil, err
		}
		d.identity = id
		slog.Info(fmt.Sprintf("%s - initialized as %s, peers %v", logPrefix, id.NodeID(), id.Peers()))
	} else if h.RequiresInit() && !d.Ready() {
		return "", nil, message.NewRPCError(message.CodeNotInitialized, "node is not initialized; got %q before init", typ)
	}

	payload, err := h.Handle(&req.Body, d.identity)
	if err != nil {
		return "", nil, err
	}

	if payload == nil {
		payload = message.Payload{}
	}
	for key := range payload {
		if message.IsReserved(key) {
			return "", nil, message.NewRPCError(message.CodeCrash, "handler for %q set reserved field %q", typ, key)
		}
	}
	return h.ReplyType(), payload, nil
}

// toRPCError maps handler failures onto error reply codes.
func toRPCError(err error) *message.RPCError {
	var rpcErr *message.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &message.RPCError{Code: message.CodeCrash, Text: err.Error()}
}

func formatID(id *uint64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}
