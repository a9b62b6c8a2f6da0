// Package tools exposes editor commands as Model Context Protocol tools.
//
// Each tool validates its arguments, issues one command through a Commander
// and renders the editor's payload as text. Tool failures are reported as
// error results rather than protocol errors so the client can show them.
// Editor events are forwarded to connected MCP sessions as logging
// notifications.
package tools
