// Package server assembles the HTTP transport.
//
// The router stack is recovery, request IDs, access logging, metrics,
// CORS and per-client rate limiting, in that order. Responses are gzip
// compressed when the client accepts it.
//
// Routes:
//   - GET /, GET /health
//   - GET /tools, POST /tools/:name
//   - POST /mcp
//   - GET /ws
//   - GET /metrics
//
// Example Usage:
//
//	srv := server.NewServer(cfg, registry, mcpServer, metrics, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server failed", zap.Error(err))
//	}
package server
