// Package http provides the gin handlers of the HTTP transport.
//
// Routes:
//   - GET /: Service identity
//   - GET /health: Registry and metrics snapshot
//   - GET /tools: Tool descriptors
//   - POST /tools/:name: Run a tool with a flat JSON argument object
//   - POST /mcp: One JSON-RPC message per request
//
// Tool failures on /tools/:name are returned as a failed result with an
// HTTP status derived from the error kind.
package http
