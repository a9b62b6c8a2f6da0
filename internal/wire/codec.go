package wire

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wagiedev/godot-bridge-go/internal/errors"
)

// idPrefix is the scheme used for outgoing correlation ids.
const idPrefix = "cmd_"

// Command is an outbound command frame.
//
// Wire format:
//
//	{
//	  "id": "cmd_42",
//	  "command": "debugger_set_breakpoint",
//	  "params": {"script_path": "res://player.gd", "line": 12}
//	}
type Command struct {
	ID      string         `json:"id"`
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// envelope is the superset of fields any inbound frame may carry.
type envelope struct {
	ID      json.RawMessage `json:"id"`
	Command json.RawMessage `json:"command"`
	Topic   json.RawMessage `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	Error   json.RawMessage `json:"error"`
}

// FormatID renders a correlation id in the outgoing scheme.
func FormatID(id uint64) string {
	return idPrefix + strconv.FormatUint(id, 10)
}

// ParseID parses an id rendered by FormatID. Only the canonical form is
// accepted, so "cmd_007" is not id 7.
func ParseID(s string) (uint64, bool) {
	rest, ok := strings.CutPrefix(s, idPrefix)
	if !ok || rest == "" {
		return 0, false
	}

	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || FormatID(id) != s {
		return 0, false
	}

	return id, true
}

// Encode serializes a command with its correlation id.
// Nil params are sent as an empty object.
func Encode(id uint64, command string, params map[string]any) ([]byte, error) {
	if command == "" {
		return nil, stderrors.New("encode command: empty command name")
	}

	if params == nil {
		params = map[string]any{}
	}

	data, err := json.Marshal(&Command{
		ID:      FormatID(id),
		Command: command,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("encode command %q: %w", command, err)
	}

	return data, nil
}

// Decode classifies an inbound frame.
//
// A frame is a *Reply when its id follows the outgoing scheme, an *Event when
// it instead carries a non-empty topic, and a *errors.DecodeError otherwise.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &errors.DecodeError{RawData: string(data), Err: err}
	}

	if id, ok := correlationID(env.ID); ok {
		if present(env.Command) {
			return nil, &errors.DecodeError{
				RawData: string(data),
				Err:     fmt.Errorf("%w: inbound command %s", errors.ErrUnknownMessage, env.Command),
			}
		}

		return decodeReply(id, &env), nil
	}

	if topic, ok := stringField(env.Topic); ok && topic != "" {
		return &Event{Topic: topic, Payload: env.Payload}, nil
	}

	return nil, &errors.DecodeError{RawData: string(data), Err: errors.ErrUnknownMessage}
}

func decodeReply(id uint64, env *envelope) *Reply {
	reply := &Reply{ID: id}

	if !present(env.Error) {
		reply.Payload = env.Payload

		return reply
	}

	fault, err := decodeFault(env.Error)
	if err != nil {
		reply.Malformed = err

		return reply
	}

	reply.Fault = fault

	return reply
}

// decodeFault accepts either a bare string or an object with message, code and data.
func decodeFault(raw json.RawMessage) (*Fault, error) {
	if s, ok := stringField(raw); ok {
		return &Fault{Message: s}, nil
	}

	var obj struct {
		Message json.RawMessage `json:"message"`
		Code    json.RawMessage `json:"code"`
		Data    map[string]any  `json:"data"`
	}

	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("error field is neither string nor object: %s", raw)
	}

	fault := &Fault{Data: obj.Data}

	if msg, ok := stringField(obj.Message); ok {
		fault.Message = msg
	} else {
		fault.Message = "unspecified editor error"
	}

	if code, ok := stringField(obj.Code); ok {
		fault.Code = code
	} else if present(obj.Code) {
		fault.Code = string(obj.Code)
	}

	return fault, nil
}

func correlationID(raw json.RawMessage) (uint64, bool) {
	s, ok := stringField(raw)
	if !ok {
		return 0, false
	}

	return ParseID(s)
}

func stringField(raw json.RawMessage) (string, bool) {
	if !present(raw) {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}

	return s, true
}
