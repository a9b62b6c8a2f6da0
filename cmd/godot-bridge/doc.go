// Command godot-bridge connects to a running Godot editor.
//
// "serve" runs an MCP server on stdio whose tools drive the editor.
// "send", "watch" and "status" issue commands, print events and probe the
// editor from a terminal. "config init" writes a sample configuration file.
package main
