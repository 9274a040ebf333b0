package dispatcher

import (
	"encoding/json"

	"github.com/morezero/echo-node/pkg/message"
)

// Built-in message types.
const (
	TypeInit   = "init"
	TypeInitOk = "init_ok"
	TypeEcho   = "echo"
	TypeEchoOk = "echo_ok"
)

// InitHandler performs the handshake: it reads node_id and node_ids and
// replies init_ok with an empty payload.
type InitHandler struct{}

func (InitHandler) Type() string       { return TypeInit }
func (InitHandler) ReplyType() string  { return TypeInitOk }
func (InitHandler) RequiresInit() bool { return false }

// Bootstrap validates the init payload and returns the identity to install.
func (InitHandler) Bootstrap(req *message.Body) (Identity, error) {
	var nodeID string
	if err := req.Payload.Get("node_id", &nodeID); err != nil {
		return Identity{}, message.BadRequest("invalid init payload: %v", err)
	}
	var nodeIDs []string
	if err := req.Payload.Get("node_ids", &nodeIDs); err != nil {
		return Identity{}, message.BadRequest("invalid init payload: %v", err)
	}
	return NewIdentity(nodeID, nodeIDs)
}

func (InitHandler) Handle(_ *message.Body, _ Identity) (message.Payload, error) {
	return message.Payload{}, nil
}

// EchoHandler reflects the request's echo string.
type EchoHandler struct{}

func (EchoHandler) Type() string       { return TypeEcho }
func (EchoHandler) ReplyType() string  { return TypeEchoOk }
func (EchoHandler) RequiresInit() bool { return true }

// Handle copies the raw JSON string under "echo" into the reply, so escapes
// and Unicode come back exactly as sent.
func (EchoHandler) Handle(req *message.Body, _ Identity) (message.Payload, error) {
	raw, ok := req.Payload["echo"]
	if !ok {
		return nil, message.BadRequest("echo request is missing the echo field")
	}
	var s string
	if len(raw) == 0 || raw[0] != '"' || json.Unmarshal(raw, &s) != nil {
		return nil, message.BadRequest("echo must be a string, got %s", raw)
	}

	reply := message.Payload{}
	if err := reply.SetRaw("echo", raw); err != nil {
		return nil, err
	}
	return reply, nil
}
