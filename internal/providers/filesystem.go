package providers

import (
	"context"

	"github.com/GriffinCanCode/filesystem-mcp/internal/providers/filesystem"
	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

// Qualified tool IDs served by the filesystem provider.
const (
	ToolListDirectory = "filesystem.list_directory"
	ToolReadFile      = "filesystem.read_file"
	ToolSearchFiles   = "filesystem.search_files"
	ToolGetFileInfo   = "filesystem.get_file_info"
)

// Filesystem exposes sandboxed read-only file operations as tools
type Filesystem struct {
	ops *filesystem.Ops
}

// NewFilesystem creates a filesystem provider
func NewFilesystem(ops *filesystem.Ops) *Filesystem {
	return &Filesystem{ops: ops}
}

// Definition returns service metadata
func (f *Filesystem) Definition() types.Service {
	return types.Service{
		ID:          "filesystem",
		Name:        "Filesystem Service",
		Description: "Read-only access to files inside a sandboxed directory",
		Category:    types.CategoryFilesystem,
		Capabilities: []string{
			"list",
			"read",
			"search",
			"stat",
		},
		Tools: []types.Tool{
			{
				ID:          ToolListDirectory,
				Name:        "list_directory",
				Description: "List files and directories in the given path",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "Directory path to list (relative to the sandbox root)", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          ToolReadFile,
				Name:        "read_file",
				Description: "Read the contents of a text file",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "File path to read", Required: true},
					{Name: "encoding", Type: "string", Description: "Text encoding (utf-8, ascii, auto or any WHATWG label)", Default: filesystem.EncodingUTF8},
				},
				Returns: "object",
			},
			{
				ID:          ToolSearchFiles,
				Name:        "search_files",
				Description: "Search for files by name pattern",
				Parameters: []types.Parameter{
					{Name: "pattern", Type: "string", Description: "Name pattern; supports * and ? wildcards, otherwise a case-insensitive substring", Required: true},
					{Name: "path", Type: "string", Description: "Directory to search in", Default: "."},
				},
				Returns: "object",
			},
			{
				ID:          ToolGetFileInfo,
				Name:        "get_file_info",
				Description: "Get metadata about a file or directory",
				Parameters: []types.Parameter{
					{Name: "path", Type: "string", Description: "File or directory path", Required: true},
				},
				Returns: "object",
			},
		},
	}
}

// Execute runs a filesystem operation
func (f *Filesystem) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case ToolListDirectory:
		return f.listDirectory(ctx, params)
	case ToolReadFile:
		return f.readFile(ctx, params)
	case ToolSearchFiles:
		return f.searchFiles(ctx, params)
	case ToolGetFileInfo:
		return f.getFileInfo(ctx, params)
	default:
		return failure(sandbox.Errorf(sandbox.KindInvalidArgument, "", "unknown tool: %s", toolID))
	}
}

func (f *Filesystem) listDirectory(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, err := stringParam(params, "path", ".")
	if err != nil {
		return failure(err)
	}

	listing, err := f.ops.ListDirectory(ctx, path)
	if err != nil {
		return failure(err)
	}
	return success(listing)
}

func (f *Filesystem) readFile(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, err := requiredParam(params, "path")
	if err != nil {
		return failure(err)
	}
	encoding, err := stringParam(params, "encoding", filesystem.EncodingUTF8)
	if err != nil {
		return failure(err)
	}

	content, err := f.ops.ReadFile(ctx, path, encoding)
	if err != nil {
		return failure(err)
	}
	return success(content)
}

func (f *Filesystem) searchFiles(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	pattern, err := requiredParam(params, "pattern")
	if err != nil {
		return failure(err)
	}
	path, err := stringParam(params, "path", ".")
	if err != nil {
		return failure(err)
	}

	result, err := f.ops.SearchFiles(ctx, pattern, path)
	if err != nil {
		return failure(err)
	}
	return success(result)
}

func (f *Filesystem) getFileInfo(ctx context.Context, params map[string]interface{}) (*types.Result, error) {
	path, err := requiredParam(params, "path")
	if err != nil {
		return failure(err)
	}

	info, err := f.ops.GetFileInfo(ctx, path)
	if err != nil {
		return failure(err)
	}
	return success(info)
}

// stringParam returns params[name], or def when the argument is absent or null.
func stringParam(params map[string]interface{}, name, def string) (string, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", sandbox.Errorf(sandbox.KindInvalidArgument, "", "%s parameter must be a string", name)
	}
	return s, nil
}

func requiredParam(params map[string]interface{}, name string) (string, error) {
	if raw, ok := params[name]; !ok || raw == nil {
		return "", sandbox.Errorf(sandbox.KindInvalidArgument, "", "%s parameter required", name)
	}
	return stringParam(params, name, "")
}

func success(data interface{}) (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    data,
	}, nil
}

// failure reports a tool error. The error is returned alongside the result so
// callers that only care about success can check err alone.
func failure(err error) (*types.Result, error) {
	msg := err.Error()
	return &types.Result{
		Success: false,
		Error:   &msg,
		Kind:    string(sandbox.KindOf(err)),
	}, err
}
