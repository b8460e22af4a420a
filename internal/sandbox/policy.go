package sandbox

import (
	"path/filepath"
	"sort"
	"strings"
)

// Fixed limits applied to every sandbox.
const (
	MaxFileSize      int64 = 10 * 1024 * 1024
	MaxSearchResults       = 100
	MaxSearchDepth         = 5
)

var allowedExtensions = []string{
	".txt", ".md", ".json", ".yaml", ".yml", ".xml", ".csv",
	".py", ".js", ".ts", ".html", ".css", ".sql", ".sh",
	".bat", ".ps1", ".dockerfile", ".gitignore", ".env",
}

var excludedNames = []string{
	".git", ".env", ".ssh", ".aws", "node_modules", "__pycache__",
}

// Policy holds the admission rules and resource limits of a sandbox.
// The zero value admits nothing; use DefaultPolicy.
type Policy struct {
	extensions       map[string]struct{}
	excluded         map[string]struct{}
	maxFileSize      int64
	maxSearchResults int
	maxSearchDepth   int
}

// DefaultPolicy returns the policy every server instance runs with.
func DefaultPolicy() Policy {
	p := Policy{
		extensions:       make(map[string]struct{}, len(allowedExtensions)),
		excluded:         make(map[string]struct{}, len(excludedNames)),
		maxFileSize:      MaxFileSize,
		maxSearchResults: MaxSearchResults,
		maxSearchDepth:   MaxSearchDepth,
	}
	for _, ext := range allowedExtensions {
		p.extensions[ext] = struct{}{}
	}
	for _, name := range excludedNames {
		p.excluded[name] = struct{}{}
	}
	return p
}

// MaxFileSize is the largest file, in bytes, that may be read.
func (p Policy) MaxFileSize() int64 { return p.maxFileSize }

// MaxSearchResults caps the number of matches a search returns.
func (p Policy) MaxSearchResults() int { return p.maxSearchResults }

// MaxSearchDepth is the number of directory levels a search descends
// below its starting directory.
func (p Policy) MaxSearchDepth() int { return p.maxSearchDepth }

// AllowedExtensions returns a sorted copy of the extension allowlist.
func (p Policy) AllowedExtensions() []string {
	return sortedKeys(p.extensions)
}

// ExcludedNames returns a sorted copy of the exact-name exclusion list.
// Names starting with "." are excluded in addition to these.
func (p Policy) ExcludedNames() []string {
	return sortedKeys(p.excluded)
}

// IsExcludedName reports whether a single path segment is hidden or sensitive.
func (p Policy) IsExcludedName(name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	_, ok := p.excluded[name]
	return ok
}

// AllowsExtension reports whether the extension of name is on the allowlist.
// Matching is case-insensitive; names without an extension are rejected.
func (p Policy) AllowsExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := p.extensions[ext]
	return ok
}

// Snapshot is a serializable view of a Policy.
type Snapshot struct {
	AllowedExtensions []string `json:"allowed_extensions" yaml:"allowed_extensions" toml:"allowed_extensions"`
	ExcludedNames     []string `json:"excluded_names" yaml:"excluded_names" toml:"excluded_names"`
	ExcludeDotNames   bool     `json:"exclude_dot_names" yaml:"exclude_dot_names" toml:"exclude_dot_names"`
	MaxFileSize       int64    `json:"max_file_size" yaml:"max_file_size" toml:"max_file_size"`
	MaxSearchResults  int      `json:"max_search_results" yaml:"max_search_results" toml:"max_search_results"`
	MaxSearchDepth    int      `json:"max_search_depth" yaml:"max_search_depth" toml:"max_search_depth"`
}

// Snapshot returns a copy of the policy suitable for encoding.
func (p Policy) Snapshot() Snapshot {
	return Snapshot{
		AllowedExtensions: p.AllowedExtensions(),
		ExcludedNames:     p.ExcludedNames(),
		ExcludeDotNames:   true,
		MaxFileSize:       p.maxFileSize,
		MaxSearchResults:  p.maxSearchResults,
		MaxSearchDepth:    p.maxSearchDepth,
	}
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
