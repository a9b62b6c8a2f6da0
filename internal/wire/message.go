package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Message is a decoded inbound frame: either *Reply or *Event.
type Message interface {
	messageKind() string
}

// Compile-time verification that both frame kinds implement Message.
var (
	_ Message = (*Reply)(nil)
	_ Message = (*Event)(nil)
)

// Reply is the editor's answer to a previously sent command.
type Reply struct {
	// ID is the correlation id of the command being answered.
	ID uint64

	// Payload is the raw success payload. Empty when the editor sent none.
	Payload json.RawMessage

	// Fault is set when the editor reported an error for the command.
	Fault *Fault

	// Malformed is set when the frame is correlated but its body cannot be interpreted.
	Malformed error
}

func (*Reply) messageKind() string { return "reply" }

// Fault is an error description supplied by the editor.
type Fault struct {
	Message string
	Code    string
	Data    map[string]any
}

// Event is an unsolicited notification pushed by the editor.
type Event struct {
	Topic   string
	Payload json.RawMessage
}

func (*Event) messageKind() string { return "event" }

// Decode unmarshals the event payload into v.
func (e *Event) Decode(v any) error {
	return decodeRaw(e.Payload, v)
}

// Result is the success payload of a command, passed through unchanged.
type Result struct {
	Raw json.RawMessage
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (r *Result) Decode(v any) error {
	return decodeRaw(r.Raw, v)
}

// Map returns the payload as a generic object. Numbers are kept as json.Number
// so that their textual form survives. An absent or null payload yields an empty map.
func (r *Result) Map() (map[string]any, error) {
	out := make(map[string]any)

	if !present(r.Raw) {
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader(r.Raw))
	dec.UseNumber()

	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode payload as object: %w", err)
	}

	return out, nil
}

func decodeRaw(raw json.RawMessage, v any) error {
	if !present(raw) {
		return nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	return nil
}

// present reports whether a raw field was supplied with a non-null value.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)

	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
