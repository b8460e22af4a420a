// Package ws serves MCP sessions over WebSocket.
//
// Each connection is one session. Every text frame from the client carries
// one JSON-RPC message and every non-notification gets exactly one text
// frame back, in request order. Binary frames are ignored.
//
// Example Usage:
//
//	handler := ws.NewHandler(server, metrics, logger)
//	router.GET("/ws", handler.HandleConnection)
package ws
