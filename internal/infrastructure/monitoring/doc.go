/*
Package monitoring provides Prometheus metrics for tool calls and transports.

# Overview

Metrics live on their own registry so several servers (and tests) can run in
one process. The registry is exposed through Handler for the /metrics route.

# Features

- HTTP request metrics (latency, throughput, size)
- Tool call metrics (duration, errors by kind, transport)
- JSON-RPC message and session metrics
- WebSocket connection metrics

# Usage

	metrics := monitoring.NewMetrics(nil)
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "read_file", "stdio")
	// ... perform operation ...
	timer.Stop("")
*/
package monitoring
