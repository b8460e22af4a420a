// Package filesystem implements the read-only file operations exposed by the
// server: directory listing, file reading, name search and metadata lookup.
//
// Operations never touch a path the sandbox guard has not resolved. Results
// report paths relative to the sandbox root so host layout is not leaked to
// clients.
//
//   - ListDirectory: immediate children, sorted by name
//   - ReadFile: decoded text with a hard size cap
//   - SearchFiles: parallel name search with depth and result caps
//   - GetFileInfo: stat plus MIME sniffing for files
//
// Example Usage:
//
//	guard, err := sandbox.NewGuard(root, sandbox.DefaultPolicy())
//	if err != nil {
//		return err
//	}
//	ops := filesystem.New(guard)
//	listing, err := ops.ListDirectory(ctx, "docs")
package filesystem
