// Package service provides the registry that maps tool IDs to providers.
//
// Tool IDs are qualified as "<service>.<tool>"; Execute routes on the service
// part. Services are kept in registration order so tool listings are stable.
//
// Example Usage:
//
//	registry := service.NewRegistry()
//	registry.Register(providers.NewFilesystem(ops))
//	result, err := registry.Execute(ctx, "filesystem.read_file", params, appCtx)
package service
