package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

var nullLiteral = []byte("null")

// Decode parses one wire line into an Envelope. Any failure wraps ErrMalformedInput.
// Body keys other than type, msg_id and in_reply_to are kept in Payload.
func Decode(line []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return nil, malformed("blank line")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &top); err != nil {
		return nil, malformed("invalid JSON: %v", err)
	}
	if top == nil {
		return nil, malformed("envelope is not an object")
	}

	src, err := requiredString(top, "src")
	if err != nil {
		return nil, err
	}
	dest, err := requiredString(top, "dest")
	if err != nil {
		return nil, err
	}
	rawBody, ok := top["body"]
	if !ok {
		return nil, malformed("missing body")
	}
	body, err := decodeBody(rawBody)
	if err != nil {
		return nil, err
	}

	return &Envelope{Src: src, Dest: dest, Body: *body}, nil
}

func decodeBody(raw json.RawMessage) (*Body, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, malformed("body is not an object")
	}

	typ, err := requiredString(fields, KeyType)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, malformed("body.type is empty")
	}

	body := &Body{Type: typ, Payload: make(Payload, len(fields))}
	if body.MsgID, err = optionalID(fields, KeyMsgID); err != nil {
		return nil, err
	}
	if body.InReplyTo, err = optionalID(fields, KeyInReplyTo); err != nil {
		return nil, err
	}

	for key, value := range fields {
		if IsReserved(key) {
			continue
		}
		compacted, err := compact(value)
		if err != nil {
			return nil, malformed("body.%s: %v", key, err)
		}
		body.Payload[key] = compacted
	}
	return body, nil
}

func requiredString(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok {
		return "", malformed("missing %s", key)
	}
	if bytes.Equal(raw, nullLiteral) {
		return "", malformed("%s is null", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed("%s is not a string", key)
	}
	return s, nil
}

// optionalID decodes an unsigned integer id. Absent and null both mean "no id".
func optionalID(fields map[string]json.RawMessage, key string) (*uint64, error) {
	raw, ok := fields[key]
	if !ok || bytes.Equal(raw, nullLiteral) {
		return nil, nil
	}
	var v uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, malformed("%s is not an unsigned integer: %s", key, raw)
	}
	return &v, nil
}

// Encode serialises env as a single JSON object terminated by exactly one newline.
//
// Body keys are written as type, in_reply_to, msg_id, then payload keys in
// lexical order. Absent ids are omitted.
func Encode(env *Envelope) ([]byte, error) {
	if env.Body.Type == "" {
		return nil, fmt.Errorf("encode: body.type is empty")
	}

	var buf bytes.Buffer
	buf.WriteString(`{"src":`)
	writeString(&buf, env.Src)
	buf.WriteString(`,"dest":`)
	writeString(&buf, env.Dest)
	buf.WriteString(`,"body":{"type":`)
	writeString(&buf, env.Body.Type)

	if env.Body.InReplyTo != nil {
		buf.WriteString(`,"in_reply_to":`)
		buf.WriteString(strconv.FormatUint(*env.Body.InReplyTo, 10))
	}
	if env.Body.MsgID != nil {
		buf.WriteString(`,"msg_id":`)
		buf.WriteString(strconv.FormatUint(*env.Body.MsgID, 10))
	}

	keys := make([]string, 0, len(env.Body.Payload))
	for key := range env.Body.Payload {
		if IsReserved(key) {
			return nil, fmt.Errorf("encode: payload key %q is reserved", key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		buf.WriteByte(',')
		writeString(&buf, key)
		buf.WriteByte(':')
		if err := json.Compact(&buf, env.Body.Payload[key]); err != nil {
			return nil, fmt.Errorf("encode: payload key %q: %w", key, err)
		}
	}

	buf.WriteString("}}\n")
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) {
	// Marshalling a string cannot fail.
	b, _ := marshalNoEscape(s)
	buf.Write(b)
}

// marshalNoEscape is json.Marshal without HTML escaping, so '<', '>' and '&'
// survive untouched.
func marshalNoEscape(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func compact(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
