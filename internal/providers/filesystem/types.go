package filesystem

import (
	"io/fs"
	"time"

	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
)

// EntryType is the kind of filesystem object an entry refers to.
type EntryType string

const (
	TypeFile      EntryType = "file"
	TypeDirectory EntryType = "directory"
	TypeOther     EntryType = "other"
)

func entryType(info fs.FileInfo) EntryType {
	switch {
	case info.IsDir():
		return TypeDirectory
	case info.Mode().IsRegular():
		return TypeFile
	default:
		return TypeOther
	}
}

// Entry is a snapshot of one directory child taken at list time.
type Entry struct {
	Name     string    `json:"name"`
	Type     EntryType `json:"type"`
	Path     string    `json:"path"`
	Size     *int64    `json:"size,omitempty"`
	Modified time.Time `json:"modified"`
}

// Listing is the result of ListDirectory.
type Listing struct {
	Path         string  `json:"path"`
	ResolvedPath string  `json:"resolved_path"`
	Items        []Entry `json:"items"`
}

// Content is the result of ReadFile.
type Content struct {
	Path         string `json:"path"`
	ResolvedPath string `json:"resolved_path"`
	Content      string `json:"content"`
	Size         int64  `json:"size"`
	Encoding     string `json:"encoding"`
}

// Match is a single search hit.
type Match struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// SearchResult is the result of SearchFiles. Truncated is set when the walk
// stopped at the result cap.
type SearchResult struct {
	Pattern    string  `json:"pattern"`
	SearchPath string  `json:"search_path"`
	Matches    []Match `json:"matches"`
	Truncated  bool    `json:"truncated"`
}

// Info is the result of GetFileInfo. File-only fields are omitted for
// directories.
type Info struct {
	Path         string    `json:"path"`
	ResolvedPath string    `json:"resolved_path"`
	Name         string    `json:"name"`
	Type         EntryType `json:"type"`
	Size         *int64    `json:"size,omitempty"`
	SizeHuman    string    `json:"size_human,omitempty"`
	Modified     time.Time `json:"modified"`
	Permissions  string    `json:"permissions"`
	Extension    string    `json:"extension,omitempty"`
	Readable     *bool     `json:"readable,omitempty"`
	MimeType     string    `json:"mime_type,omitempty"`
}

// Ops implements the read-only file operations on top of a sandbox guard.
// Every path an operation touches is resolved by the guard first.
type Ops struct {
	guard      *sandbox.Guard
	policy     sandbox.Policy
	numWorkers int
}

// Option configures Ops.
type Option func(*Ops)

// WithWorkers sets the number of goroutines used by SearchFiles.
// Zero selects the fastwalk default.
func WithWorkers(n int) Option {
	return func(o *Ops) {
		o.numWorkers = n
	}
}

// New creates file operations bound to guard and its policy.
func New(guard *sandbox.Guard, opts ...Option) *Ops {
	o := &Ops{
		guard:  guard,
		policy: guard.Policy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Guard returns the guard the operations resolve paths with.
func (o *Ops) Guard() *sandbox.Guard { return o.guard }

func sizeOf(info fs.FileInfo) *int64 {
	if !info.Mode().IsRegular() {
		return nil
	}
	size := info.Size()
	return &size
}
