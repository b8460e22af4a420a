// Package sandbox confines filesystem access to a single root directory.
//
// A Guard turns untrusted, caller-supplied paths into ResolvedPath values.
// Resolution is ordered and every step can reject the candidate:
//
//  1. empty or malformed input (InvalidArgument)
//  2. lexical containment after joining onto the root (OutsideSandbox)
//  3. lexical exclusion of hidden and sensitive segments (ExcludedPath)
//  4. symlink resolution; missing or dangling targets (NotFound)
//  5. containment and exclusion of the resolved path (OutsideSandbox, ExcludedPath)
//  6. extension allowlist for regular files, when requested (UnsupportedType)
//
// The Policy holding the limits and rule sets is built once with DefaultPolicy
// and shared read-only between goroutines.
//
// Example Usage:
//
//	guard, err := sandbox.NewGuard(".", sandbox.DefaultPolicy())
//	if err != nil {
//		return err
//	}
//	defer guard.Close()
//
//	rp, err := guard.Resolve("docs/readme.md", true)
//	if sandbox.KindOf(err) == sandbox.KindExcludedPath {
//		// hidden or sensitive path
//	}
package sandbox
