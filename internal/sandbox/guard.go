package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ResolvedPath is a path that passed every check of a Guard.
type ResolvedPath struct {
	// Abs is the symlink-free absolute host path.
	Abs string
	// Rel is Abs relative to the sandbox root, slash-separated; "." for the root.
	Rel string
	// Info describes the target at resolution time.
	Info fs.FileInfo
}

// IsDir reports whether the target is a directory.
func (r ResolvedPath) IsDir() bool { return r.Info != nil && r.Info.IsDir() }

// IsRegular reports whether the target is a regular file.
func (r ResolvedPath) IsRegular() bool { return r.Info != nil && r.Info.Mode().IsRegular() }

// Guard validates candidate paths against a single sandbox root.
// A Guard is safe for concurrent use.
type Guard struct {
	root   string
	alias  string
	policy Policy
	fsroot *os.Root
}

// NewGuard opens a guard on root. An empty root means the working directory.
func NewGuard(root string, policy Policy) (*Guard, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	alias, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to make root absolute: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(alias)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", alias, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", resolved, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root is not a directory: %s", resolved)
	}

	fsroot, err := os.OpenRoot(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open root %s: %w", resolved, err)
	}

	return &Guard{
		root:   resolved,
		alias:  filepath.Clean(alias),
		policy: policy,
		fsroot: fsroot,
	}, nil
}

// Root returns the resolved absolute sandbox root.
func (g *Guard) Root() string { return g.root }

// Policy returns the policy the guard enforces.
func (g *Guard) Policy() Policy { return g.policy }

// Close releases the root handle.
func (g *Guard) Close() error { return g.fsroot.Close() }

// Resolve validates candidate and returns its resolved form. Relative
// candidates are taken relative to the root. When requireExtensionCheck is
// set, regular files must carry an allowed extension; directories are exempt.
func (g *Guard) Resolve(candidate string, requireExtensionCheck bool) (ResolvedPath, error) {
	if strings.TrimSpace(candidate) == "" {
		return ResolvedPath{}, Errorf(KindInvalidArgument, candidate, "path must not be empty")
	}
	if strings.ContainsRune(candidate, 0) {
		return ResolvedPath{}, Errorf(KindInvalidArgument, candidate, "path contains a NUL byte")
	}

	joined := candidate
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(g.root, joined)
	}
	joined = filepath.Clean(joined)

	// Names below the root are checked before touching the disk, so an
	// excluded name is reported as excluded whether or not it exists. An
	// absolute candidate outside the root may still reach it through a
	// symlink and is judged only by where it resolves.
	rel, lexical := within(g.root, joined)
	if !lexical {
		rel, lexical = within(g.alias, joined)
	}
	if !lexical && !filepath.IsAbs(candidate) {
		return ResolvedPath{}, Errorf(KindOutsideSandbox, candidate, "path is outside the sandbox: %s", candidate)
	}
	if lexical {
		if seg, excluded := g.excludedSegment(rel); excluded {
			return ResolvedPath{}, Errorf(KindExcludedPath, candidate, "access to %q is not allowed: %s", seg, candidate)
		}
	}

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if !lexical {
			return ResolvedPath{}, Errorf(KindOutsideSandbox, candidate, "path is outside the sandbox: %s", candidate)
		}
		if errors.Is(err, fs.ErrNotExist) {
			return ResolvedPath{}, &Error{Kind: KindNotFound, Path: candidate, Message: fmt.Sprintf("path does not exist: %s", candidate), Err: err}
		}
		return ResolvedPath{}, WrapOS(candidate, err)
	}

	rel, ok := within(g.root, resolved)
	if !ok {
		return ResolvedPath{}, Errorf(KindOutsideSandbox, candidate, "path resolves outside the sandbox: %s", candidate)
	}
	if seg, excluded := g.excludedSegment(rel); excluded {
		return ResolvedPath{}, Errorf(KindExcludedPath, candidate, "path resolves to excluded location %q: %s", seg, candidate)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return ResolvedPath{}, WrapOS(candidate, err)
	}

	if requireExtensionCheck && info.Mode().IsRegular() && !g.policy.AllowsExtension(resolved) {
		return ResolvedPath{}, Errorf(KindUnsupportedType, candidate, "file type %q is not allowed: %s", filepath.Ext(resolved), candidate)
	}

	return ResolvedPath{Abs: resolved, Rel: filepath.ToSlash(rel), Info: info}, nil
}

// Open opens a resolved path through the root handle, so a target swapped
// for an escaping symlink after resolution still cannot leave the sandbox.
func (g *Guard) Open(rp ResolvedPath) (*os.File, error) {
	f, err := g.fsroot.Open(filepath.FromSlash(rp.Rel))
	if err != nil {
		return nil, WrapOS(rp.Rel, err)
	}
	return f, nil
}

func (g *Guard) excludedSegment(rel string) (string, bool) {
	if rel == "." {
		return "", false
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if g.policy.IsExcludedName(seg) {
			return seg, true
		}
	}
	return "", false
}

// within returns target relative to base when target is base or below it.
func within(base, target string) (string, bool) {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}
