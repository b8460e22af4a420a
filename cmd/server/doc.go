// Package main is the entry point for fsmcp, a read-only filesystem MCP
// server.
//
// Every tool call is confined to one sandbox root. Files are only read when
// their extension is on the allow list, and hidden or sensitive names such
// as .git, .env and node_modules are never exposed.
//
// Usage:
//
//	# stdio MCP server rooted at the working directory
//	fsmcp
//	fsmcp serve --root ~/projects
//
//	# HTTP and WebSocket transport
//	fsmcp http --root ~/projects --port 8765
//
//	# Register with Claude Desktop
//	fsmcp install --root ~/projects --launch-script ~/bin
//	fsmcp uninstall
//
//	# Inspect
//	fsmcp tools
//	fsmcp policy --format yaml
//
// Configuration:
//   - Environment variables (FSMCP_ROOT, PORT, HOST, LOG_LEVEL, LOG_DEV,
//     AUDIT_LOG, RATE_LIMIT_*, REQUEST_TIMEOUT)
//   - Flags override the environment
//
// Logs are written to stderr; stdout carries only protocol messages.
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
