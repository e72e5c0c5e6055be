// Package control exposes the router over HTTP for browser and tablet
// remotes: state snapshots and a server-sent event stream, layer selection,
// command dispatch, opacity, diagnostics, and target settings.
package control
