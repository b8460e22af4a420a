package filesystem

import (
	"context"
	"io"

	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
)

// ReadFile returns the decoded text of a file. The size limit is checked on
// the stat result before reading and again on the bytes read, so a file that
// grows after validation is still rejected.
func (o *Ops) ReadFile(ctx context.Context, filePath, encoding string) (*Content, error) {
	rp, err := o.guard.Resolve(filePath, true)
	if err != nil {
		return nil, err
	}
	if rp.IsDir() {
		return nil, sandbox.Errorf(sandbox.KindNotAFile, filePath, "path is a directory, not a file: %s", filePath)
	}
	if !rp.IsRegular() {
		return nil, sandbox.Errorf(sandbox.KindNotAFile, filePath, "path is not a regular file: %s", filePath)
	}

	limit := o.policy.MaxFileSize()
	if rp.Info.Size() > limit {
		return nil, tooLarge(filePath, limit)
	}

	label := normalizeEncoding(encoding)
	if err := checkEncoding(label, filePath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := o.guard.Open(rp)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, sandbox.WrapOS(filePath, err)
	}
	if int64(len(data)) > limit {
		return nil, tooLarge(filePath, limit)
	}

	text, used, err := decode(data, label, filePath)
	if err != nil {
		return nil, err
	}

	return &Content{
		Path:         filePath,
		ResolvedPath: rp.Rel,
		Content:      text,
		Size:         int64(len(data)),
		Encoding:     used,
	}, nil
}

func tooLarge(path string, limit int64) error {
	return sandbox.Errorf(sandbox.KindFileTooLarge, path, "file too large: %s (max %s)", path, formatBytes(limit))
}
