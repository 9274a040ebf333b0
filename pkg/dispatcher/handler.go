package dispatcher

import "github.com/morezero/echo-node/pkg/message"

// Handler serves one request type. Handlers decode their own payload, so a
// new kind is added by registering a Handler without touching the envelope.
type Handler interface {
	// Type is the request body type this handler is registered under.
	Type() string
	// ReplyType is the body type of a successful reply.
	ReplyType() string
	// RequiresInit reports whether the handshake must have completed.
	RequiresInit() bool
	// Handle returns the reply payload. Returning a *message.RPCError yields
	// an error reply with that code; any other error is reported as a crash.
	Handle(req *message.Body, node Identity) (message.Payload, error)
}

// Bootstrapper is implemented by the handler that installs the node identity.
// The dispatcher calls Bootstrap before Handle and refuses it once an
// identity exists.
type Bootstrapper interface {
	Handler
	Bootstrap(req *message.Body) (Identity, error)
}

// HandleFunc is the signature of a plain handler function.
type HandleFunc func(req *message.Body, node Identity) (message.Payload, error)

type funcHandler struct {
	typ       string
	replyType string
	fn        HandleFunc
}

// HandlerFunc adapts fn into a Handler that requires the handshake.
func HandlerFunc(typ, replyType string, fn HandleFunc) Handler {
	return &funcHandler{typ: typ, replyType: replyType, fn: fn}
}

func (h *funcHandler) Type() string       { return h.typ }
func (h *funcHandler) ReplyType() string  { return h.replyType }
func (h *funcHandler) RequiresInit() bool { return true }

func (h *funcHandler) Handle(req *message.Body, node Identity) (message.Payload, error) {
	return h.fn(req, node)
}
