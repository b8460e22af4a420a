package filesystem

import (
	"context"
	"path"
	"path/filepath"
	"sort"

	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
)

// ListDirectory returns the immediate children of a directory, sorted by name.
// Hidden and excluded children are skipped, as are symlinks that resolve
// outside the sandbox or to nothing.
func (o *Ops) ListDirectory(ctx context.Context, dirPath string) (*Listing, error) {
	rp, err := o.guard.Resolve(dirPath, false)
	if err != nil {
		return nil, err
	}
	if !rp.IsDir() {
		return nil, sandbox.Errorf(sandbox.KindNotADirectory, dirPath, "path is not a directory: %s", dirPath)
	}

	dir, err := o.guard.Open(rp)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	children, err := dir.ReadDir(-1)
	if err != nil {
		return nil, sandbox.WrapOS(dirPath, err)
	}

	items := make([]Entry, 0, len(children))
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := child.Name()
		if o.policy.IsExcludedName(name) {
			continue
		}

		crp, err := o.guard.Resolve(filepath.Join(rp.Abs, name), false)
		if err != nil {
			continue
		}

		items = append(items, Entry{
			Name:     name,
			Type:     entryType(crp.Info),
			Path:     path.Join(rp.Rel, name),
			Size:     sizeOf(crp.Info),
			Modified: crp.Info.ModTime(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})

	return &Listing{
		Path:         dirPath,
		ResolvedPath: rp.Rel,
		Items:        items,
	}, nil
}
