package filesystem

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
)

// GetFileInfo describes a file or directory. Directories are always
// described; files must carry an allowed extension.
func (o *Ops) GetFileInfo(ctx context.Context, target string) (*Info, error) {
	rp, err := o.guard.Resolve(target, false)
	if err != nil {
		return nil, err
	}
	if rp.IsRegular() && !o.policy.AllowsExtension(rp.Abs) {
		return nil, sandbox.Errorf(sandbox.KindUnsupportedType, target, "file type %q is not allowed: %s", filepath.Ext(rp.Abs), target)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info := &Info{
		Path:         target,
		ResolvedPath: rp.Rel,
		Name:         filepath.Base(rp.Abs),
		Type:         entryType(rp.Info),
		Modified:     rp.Info.ModTime(),
		Permissions:  fmt.Sprintf("%03o", rp.Info.Mode().Perm()),
	}

	if rp.IsRegular() {
		size := rp.Info.Size()
		readable := size <= o.policy.MaxFileSize()
		info.Size = &size
		info.SizeHuman = formatBytes(size)
		info.Extension = filepath.Ext(rp.Abs)
		info.Readable = &readable
		info.MimeType = o.detectMIME(rp)
	}

	return info, nil
}

// detectMIME sniffs the content type; failures leave the field empty.
func (o *Ops) detectMIME(rp sandbox.ResolvedPath) string {
	f, err := o.guard.Open(rp)
	if err != nil {
		return ""
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return ""
	}
	return mtype.String()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB", "EB"}
	return fmt.Sprintf("%.2f %s", float64(bytes)/float64(div), units[exp])
}
