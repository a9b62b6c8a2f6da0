// Package wire implements the message envelope exchanged with the editor.
//
// Every frame on the link is a JSON object drawn from one envelope shape:
//
//	{"id": "cmd_7", "command": "ping", "params": {...}}   outbound command
//	{"id": "cmd_7", "payload": {...}}                     reply (success)
//	{"id": "cmd_7", "error": "message"}                   reply (failure)
//	{"topic": "debugger_breakpoint_hit", "payload": {...}} event
//
// Encode builds outbound commands. Decode classifies inbound frames as a
// *Reply or an *Event, or fails with an *errors.DecodeError. Payloads are
// carried as raw JSON and never reinterpreted by this package.
package wire
