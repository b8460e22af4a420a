// Package config provides 12-factor configuration management for the server.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags override environment variables.
//
// Configuration Sections:
//   - Sandbox: Root directory tools are confined to and search parallelism
//   - Server: HTTP transport settings (port, host, request timeout)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP and optional server-wide rate limiting for the HTTP transport
//   - Audit: Optional per-call audit log
//
// Example Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		return err
//	}
//	guard, err := sandbox.NewGuard(cfg.Sandbox.Root, sandbox.DefaultPolicy())
//
// Environment Variables:
//   - FSMCP_ROOT, SEARCH_WORKERS
//   - PORT, HOST, REQUEST_TIMEOUT
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - RATE_LIMIT_GLOBAL_RPS, RATE_LIMIT_GLOBAL_BURST
//   - AUDIT_LOG
package config
