// Package editortest provides an in-process fake of the editor's WebSocket
// endpoint for tests.
//
// The fake decodes each command frame, answers it through a registered
// handler, and can push events or drop every client to simulate the editor
// going away.
package editortest
