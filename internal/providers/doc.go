// Package providers adapts domain operations to the tool-based provider
// interface used by the service registry.
//
// Provider Interface:
//   - Definition(): Returns service metadata and tool definitions
//   - Execute(): Executes a tool with parameters and context
//
// Tool failures are reported both as a failed Result carrying the error kind
// and as a returned error.
//
// Example Usage:
//
//	fs := providers.NewFilesystem(filesystem.New(guard))
//	result, err := fs.Execute(ctx, providers.ToolReadFile, params, appCtx)
package providers
