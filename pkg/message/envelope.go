// Package message defines the line-delimited JSON envelope exchanged with the test harness.
package message

import (
	"encoding/json"
	"fmt"
)

// Reserved body keys. Everything else in a body is payload.
const (
	KeyType      = "type"
	KeyMsgID     = "msg_id"
	KeyInReplyTo = "in_reply_to"
)

// Envelope is the outer wire record: {src, dest, body}.
type Envelope struct {
	Src  string
	Dest string
	Body Body
}

// Body carries the kind discriminant, the optional correlation ids and the
// kind-specific payload flattened beside them.
type Body struct {
	Type      string
	MsgID     *uint64
	InReplyTo *uint64
	Payload   Payload
}

// Payload holds the body keys other than type, msg_id and in_reply_to.
// Values are compacted raw JSON.
type Payload map[string]json.RawMessage

// IsReserved reports whether key belongs to the body header rather than the payload.
func IsReserved(key string) bool {
	return key == KeyType || key == KeyMsgID || key == KeyInReplyTo
}

// Has reports whether key is present.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Get decodes the value stored under key into v.
func (p Payload) Get(key string, v interface{}) error {
	raw, ok := p[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

// Set encodes v and stores it under key.
func (p Payload) Set(key string, v interface{}) error {
	raw, err := marshalNoEscape(v)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return p.SetRaw(key, raw)
}

// SetRaw stores an already encoded JSON value under key. The value is
// compacted but otherwise kept byte-for-byte.
func (p Payload) SetRaw(key string, raw json.RawMessage) error {
	if IsReserved(key) {
		return fmt.Errorf("field %q is reserved", key)
	}
	compacted, err := compact(raw)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	p[key] = compacted
	return nil
}

// ID returns a pointer to a copy of v, for filling MsgID and InReplyTo.
func ID(v uint64) *uint64 {
	return &v
}

// Reply builds the envelope answering e: src and dest swapped, in_reply_to
// taken from e's msg_id. The caller fills in msg_id, type and payload.
func (e *Envelope) Reply() *Envelope {
	reply := &Envelope{
		Src:  e.Dest,
		Dest: e.Src,
		Body: Body{Payload: Payload{}},
	}
	if e.Body.MsgID != nil {
		reply.Body.InReplyTo = ID(*e.Body.MsgID)
	}
	return reply
}
