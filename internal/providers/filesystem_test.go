package providers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/filesystem-mcp/internal/providers/filesystem"
	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

func newTestFilesystem(t *testing.T) *Filesystem {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "guide.md"), []byte("# guide"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.exe"), []byte("MZ"), 0o644))

	guard, err := sandbox.NewGuard(root, sandbox.DefaultPolicy())
	require.NoError(t, err)
	t.Cleanup(func() { guard.Close() })

	return NewFilesystem(filesystem.New(guard))
}

func TestFilesystemDefinition(t *testing.T) {
	fs := newTestFilesystem(t)
	def := fs.Definition()

	assert.Equal(t, "filesystem", def.ID)
	assert.Equal(t, types.CategoryFilesystem, def.Category)
	require.Len(t, def.Tools, 4)

	names := make([]string, 0, len(def.Tools))
	for _, tool := range def.Tools {
		names = append(names, tool.Name)
		assert.Equal(t, "filesystem."+tool.Name, tool.ID)
	}
	assert.Equal(t, []string{"list_directory", "read_file", "search_files", "get_file_info"}, names)

	read := def.Tools[1]
	require.Len(t, read.Parameters, 2)
	assert.True(t, read.Parameters[0].Required)
	assert.Equal(t, "utf-8", read.Parameters[1].Default)
}

func TestFilesystemExecute(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()
	appCtx := &types.Context{Transport: types.TransportCLI}

	t.Run("list_directory defaults to root", func(t *testing.T) {
		result, err := fs.Execute(ctx, ToolListDirectory, map[string]interface{}{}, appCtx)
		require.NoError(t, err)
		assert.True(t, result.Success)

		listing, ok := result.Data.(*filesystem.Listing)
		require.True(t, ok)
		assert.Len(t, listing.Items, 2)
	})

	t.Run("read_file", func(t *testing.T) {
		result, err := fs.Execute(ctx, ToolReadFile, map[string]interface{}{"path": "docs/guide.md"}, appCtx)
		require.NoError(t, err)

		content := result.Data.(*filesystem.Content)
		assert.Equal(t, "# guide", content.Content)
		assert.Equal(t, "utf-8", content.Encoding)
	})

	t.Run("search_files", func(t *testing.T) {
		result, err := fs.Execute(ctx, ToolSearchFiles, map[string]interface{}{"pattern": "*.md", "path": nil}, appCtx)
		require.NoError(t, err)

		found := result.Data.(*filesystem.SearchResult)
		require.Len(t, found.Matches, 1)
		assert.Equal(t, "docs/guide.md", found.Matches[0].Path)
	})

	t.Run("get_file_info", func(t *testing.T) {
		result, err := fs.Execute(ctx, ToolGetFileInfo, map[string]interface{}{"path": "docs"}, appCtx)
		require.NoError(t, err)

		info := result.Data.(*filesystem.Info)
		assert.Equal(t, filesystem.TypeDirectory, info.Type)
	})
}

func TestFilesystemExecuteFailures(t *testing.T) {
	fs := newTestFilesystem(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		toolID string
		params map[string]interface{}
		kind   sandbox.Kind
	}{
		{"unknown tool", "filesystem.write_file", nil, sandbox.KindInvalidArgument},
		{"missing path", ToolReadFile, map[string]interface{}{}, sandbox.KindInvalidArgument},
		{"non-string path", ToolGetFileInfo, map[string]interface{}{"path": 42.0}, sandbox.KindInvalidArgument},
		{"missing pattern", ToolSearchFiles, map[string]interface{}{"path": "."}, sandbox.KindInvalidArgument},
		{"non-string encoding", ToolReadFile, map[string]interface{}{"path": "docs/guide.md", "encoding": true}, sandbox.KindInvalidArgument},
		{"unsupported type", ToolReadFile, map[string]interface{}{"path": "app.exe"}, sandbox.KindUnsupportedType},
		{"outside", ToolListDirectory, map[string]interface{}{"path": "../"}, sandbox.KindOutsideSandbox},
		{"not a directory", ToolListDirectory, map[string]interface{}{"path": "docs/guide.md"}, sandbox.KindNotADirectory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := fs.Execute(ctx, tt.toolID, tt.params, &types.Context{})
			require.Error(t, err)
			require.NotNil(t, result)
			assert.False(t, result.Success)
			require.NotNil(t, result.Error)
			assert.Equal(t, err.Error(), *result.Error)
			assert.Equal(t, string(tt.kind), result.Kind)
		})
	}
}
