package sandbox

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

// newTestGuard builds a sandbox tree plus a sibling directory outside it.
func newTestGuard(t *testing.T) (*Guard, string) {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")

	writeFile(t, filepath.Join(root, "docs", "readme.md"), "# readme")
	writeFile(t, filepath.Join(root, "docs", "UPPER.MD"), "upper")
	writeFile(t, filepath.Join(root, "src", "main.py"), "print('hi')")
	writeFile(t, filepath.Join(root, "binary.exe"), "MZ")
	writeFile(t, filepath.Join(root, "config.env"), "KEY=value")
	writeFile(t, filepath.Join(root, "foo.dockerfile"), "FROM scratch")
	writeFile(t, filepath.Join(root, ".env"), "SECRET=1")
	writeFile(t, filepath.Join(root, ".git", "config"), "[core]")
	writeFile(t, filepath.Join(root, ".hidden", "secret.txt"), "hidden")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "module.exports = {}")
	writeFile(t, filepath.Join(root, "__pycache__", "mod.py"), "")
	writeFile(t, filepath.Join(outside, "secret.txt"), "outside")

	guard, err := NewGuard(root, DefaultPolicy())
	require.NoError(t, err)
	t.Cleanup(func() { guard.Close() })

	return guard, outside
}

func TestNewGuard(t *testing.T) {
	guard, _ := newTestGuard(t)

	assert.True(t, filepath.IsAbs(guard.Root()))
	assert.Equal(t, 100, guard.Policy().MaxSearchResults())
}

func TestNewGuardErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	writeFile(t, file, "x")

	_, err := NewGuard(filepath.Join(dir, "missing"), DefaultPolicy())
	assert.Error(t, err)

	_, err = NewGuard(file, DefaultPolicy())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestResolveRoot(t *testing.T) {
	guard, _ := newTestGuard(t)

	for _, candidate := range []string{".", "./", guard.Root(), "docs/.."} {
		rp, err := guard.Resolve(candidate, true)
		require.NoError(t, err, candidate)
		assert.Equal(t, ".", rp.Rel, candidate)
		assert.True(t, rp.IsDir(), candidate)
		assert.Equal(t, guard.Root(), rp.Abs)
	}
}

func TestResolveInvalidArgument(t *testing.T) {
	guard, _ := newTestGuard(t)

	for _, candidate := range []string{"", "   ", "docs/\x00readme.md"} {
		_, err := guard.Resolve(candidate, false)
		assert.Equal(t, KindInvalidArgument, KindOf(err), "%q", candidate)
	}
}

func TestResolveInside(t *testing.T) {
	guard, _ := newTestGuard(t)

	rp, err := guard.Resolve("docs/readme.md", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(guard.Root(), "docs", "readme.md"), rp.Abs)
	assert.Equal(t, "docs/readme.md", rp.Rel)
	assert.True(t, rp.IsRegular())
	assert.NotEqual(t, ".", rp.Rel)

	abs, err := guard.Resolve(filepath.Join(guard.Root(), "src", "main.py"), true)
	require.NoError(t, err)
	assert.Equal(t, "src/main.py", abs.Rel)

	dotted, err := guard.Resolve("docs/../src/./main.py", true)
	require.NoError(t, err)
	assert.Equal(t, "src/main.py", dotted.Rel)
}

func TestResolveOutsideSandbox(t *testing.T) {
	guard, outside := newTestGuard(t)

	symlink(t, filepath.Join(outside, "secret.txt"), filepath.Join(guard.Root(), "escape.txt"))
	symlink(t, outside, filepath.Join(guard.Root(), "escape_dir"))

	tests := []struct {
		name      string
		candidate string
	}{
		{"parent", ".."},
		{"parent traversal", "../outside/secret.txt"},
		{"nested traversal", "docs/../../outside/secret.txt"},
		{"traversal to missing", "../../does/not/exist.txt"},
		{"absolute elsewhere", filepath.Join(outside, "secret.txt")},
		{"filesystem root", string(filepath.Separator)},
		{"file symlink out", "escape.txt"},
		{"dir symlink out", "escape_dir"},
		{"through dir symlink", "escape_dir/secret.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.Resolve(tt.candidate, false)
			require.Error(t, err)
			assert.Equal(t, KindOutsideSandbox, KindOf(err))
			assert.ErrorIs(t, err, ErrOutsideSandbox)
		})
	}
}

func TestResolveExcluded(t *testing.T) {
	guard, _ := newTestGuard(t)

	symlink(t, filepath.Join(guard.Root(), ".git", "config"), filepath.Join(guard.Root(), "gitconfig.txt"))
	symlink(t, filepath.Join(guard.Root(), ".hidden"), filepath.Join(guard.Root(), "visible"))

	tests := []struct {
		name      string
		candidate string
	}{
		{"git dir", ".git"},
		{"git file", ".git/config"},
		{"env file", ".env"},
		{"dot dir", ".hidden/secret.txt"},
		{"node_modules", "node_modules/pkg/index.js"},
		{"pycache", "__pycache__/mod.py"},
		{"missing file in excluded dir", ".ssh/id_rsa"},
		{"traversal into excluded", "docs/../.git/config"},
		{"absolute into excluded", filepath.Join(guard.Root(), ".git", "config")},
		{"symlink into excluded file", "gitconfig.txt"},
		{"symlink to excluded dir", "visible/secret.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.Resolve(tt.candidate, false)
			require.Error(t, err)
			assert.Equal(t, KindExcludedPath, KindOf(err))
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	guard, _ := newTestGuard(t)

	symlink(t, filepath.Join(guard.Root(), "gone.txt"), filepath.Join(guard.Root(), "dangling.txt"))

	for _, candidate := range []string{"missing.txt", "docs/missing/deeper.md", "dangling.txt"} {
		_, err := guard.Resolve(candidate, true)
		require.Error(t, err, candidate)
		assert.Equal(t, KindNotFound, KindOf(err), candidate)
	}
}

func TestResolveExcludedNameBeforeExistence(t *testing.T) {
	guard, _ := newTestGuard(t)

	symlink(t, filepath.Join(guard.Root(), "gone.txt"), filepath.Join(guard.Root(), ".dangling"))

	// An excluded name is refused on its name alone, dangling or not.
	_, err := guard.Resolve(".dangling", true)
	assert.Equal(t, KindExcludedPath, KindOf(err))

	_, err = guard.Resolve(".missing", true)
	assert.Equal(t, KindExcludedPath, KindOf(err))
}

func TestResolveAbsoluteThroughOutsideSymlink(t *testing.T) {
	guard, outside := newTestGuard(t)

	symlink(t, guard.Root(), filepath.Join(outside, "link"))

	rp, err := guard.Resolve(filepath.Join(outside, "link", "docs", "readme.md"), true)
	require.NoError(t, err)
	assert.Equal(t, "docs/readme.md", rp.Rel)
	assert.Equal(t, filepath.Join(guard.Root(), "docs", "readme.md"), rp.Abs)

	rp, err = guard.Resolve(filepath.Join(outside, "link"), false)
	require.NoError(t, err)
	assert.Equal(t, ".", rp.Rel)

	tests := []struct {
		name      string
		candidate string
		kind      Kind
	}{
		{"excluded after resolution", filepath.Join(outside, "link", ".git", "config"), KindExcludedPath},
		{"missing below link", filepath.Join(outside, "link", "missing.txt"), KindOutsideSandbox},
		{"missing outside", filepath.Join(outside, "nothing.txt"), KindOutsideSandbox},
		{"relative through outside", "../outside/link/docs/readme.md", KindOutsideSandbox},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := guard.Resolve(tt.candidate, false)
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
		})
	}
}

func TestResolveExtensionCheck(t *testing.T) {
	guard, _ := newTestGuard(t)

	_, err := guard.Resolve("binary.exe", true)
	assert.Equal(t, KindUnsupportedType, KindOf(err))

	rp, err := guard.Resolve("binary.exe", false)
	require.NoError(t, err)
	assert.Equal(t, "binary.exe", rp.Rel)

	for _, candidate := range []string{"docs", "config.env", "foo.dockerfile", "docs/UPPER.MD"} {
		_, err := guard.Resolve(candidate, true)
		assert.NoError(t, err, candidate)
	}
}

func TestResolveExtensionOfSymlinkTarget(t *testing.T) {
	guard, _ := newTestGuard(t)

	symlink(t, filepath.Join(guard.Root(), "binary.exe"), filepath.Join(guard.Root(), "disguised.txt"))
	symlink(t, filepath.Join(guard.Root(), "docs", "readme.md"), filepath.Join(guard.Root(), "readme-link"))

	_, err := guard.Resolve("disguised.txt", true)
	assert.Equal(t, KindUnsupportedType, KindOf(err))

	rp, err := guard.Resolve("readme-link", true)
	require.NoError(t, err)
	assert.Equal(t, "docs/readme.md", rp.Rel)
}

func TestResolveThroughRootAlias(t *testing.T) {
	guard, _ := newTestGuard(t)

	alias := filepath.Join(t.TempDir(), "alias")
	symlink(t, guard.Root(), alias)

	aliased, err := NewGuard(alias, DefaultPolicy())
	require.NoError(t, err)
	defer aliased.Close()

	assert.Equal(t, guard.Root(), aliased.Root())

	rp, err := aliased.Resolve(filepath.Join(alias, "docs", "readme.md"), true)
	require.NoError(t, err)
	assert.Equal(t, "docs/readme.md", rp.Rel)

	_, err = aliased.Resolve(filepath.Join(alias, ".git", "config"), false)
	assert.Equal(t, KindExcludedPath, KindOf(err))
}

func TestOpen(t *testing.T) {
	guard, _ := newTestGuard(t)

	rp, err := guard.Resolve("docs/readme.md", true)
	require.NoError(t, err)

	f, err := guard.Open(rp)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "# readme", string(data))
}

func TestOpenRoot(t *testing.T) {
	guard, _ := newTestGuard(t)

	rp, err := guard.Resolve(".", false)
	require.NoError(t, err)

	dir, err := guard.Open(rp)
	require.NoError(t, err)
	defer dir.Close()

	entries, err := dir.ReadDir(-1)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
