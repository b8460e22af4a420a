// Package mcp implements the Model Context Protocol server side over
// line-delimited JSON-RPC 2.0.
//
// Server is transport-agnostic: Handle takes one encoded message and returns
// the encoded response (nil for notifications). Serve runs a stdio session on
// top of it; the HTTP and WebSocket transports call Handle directly.
//
// Tool failures are reported inside a successful tools/call result with
// isError set. Protocol failures use JSON-RPC error codes.
package mcp
