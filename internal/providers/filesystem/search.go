package filesystem

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/filesystem-mcp/internal/sandbox"
)

// nameMatcher matches entry names case-insensitively. Patterns containing
// glob metacharacters use wildcard matching, anything else is a substring
// test. Patterns containing "/" are applied to the path below the search
// directory instead of the bare name.
type nameMatcher struct {
	pattern  string
	glob     bool
	fullPath bool
}

func newNameMatcher(pattern string) (nameMatcher, error) {
	p := strings.ToLower(pattern)
	m := nameMatcher{
		pattern:  p,
		glob:     strings.ContainsAny(p, "*?[{"),
		fullPath: strings.Contains(p, "/"),
	}
	if m.glob && !doublestar.ValidatePattern(p) {
		return nameMatcher{}, sandbox.Errorf(sandbox.KindInvalidArgument, pattern, "invalid search pattern: %s", pattern)
	}
	return m, nil
}

func (m nameMatcher) match(name, rel string) bool {
	target := name
	if m.fullPath {
		target = rel
	}
	target = strings.ToLower(target)
	if m.glob {
		return doublestar.MatchUnvalidated(m.pattern, target)
	}
	return strings.Contains(target, m.pattern)
}

// SearchFiles walks searchPath looking for names matching pattern. Excluded
// directories are pruned and directories more than MaxSearchDepth levels down
// are not entered. Matches come back in depth-first order with entries sorted
// by name; when more than MaxSearchResults match, the first MaxSearchResults
// in that order are kept and Truncated is set. An empty searchPath searches
// from the sandbox root.
func (o *Ops) SearchFiles(ctx context.Context, pattern, searchPath string) (*SearchResult, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, sandbox.Errorf(sandbox.KindInvalidArgument, pattern, "pattern must not be empty")
	}
	if searchPath == "" {
		searchPath = "."
	}

	matcher, err := newNameMatcher(pattern)
	if err != nil {
		return nil, err
	}

	rp, err := o.guard.Resolve(searchPath, false)
	if err != nil {
		return nil, err
	}
	if !rp.IsDir() {
		return nil, sandbox.Errorf(sandbox.KindNotADirectory, searchPath, "path is not a directory: %s", searchPath)
	}

	var (
		maxDepth = o.policy.MaxSearchDepth()
		hits     = newTopMatches(o.policy.MaxSearchResults())
	)

	conf := fastwalk.Config{
		Follow:     false,
		Sort:       fastwalk.SortLexical,
		NumWorkers: o.numWorkers,
	}

	err = fastwalk.Walk(&conf, rp.Abs, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || p == rp.Abs {
			return nil
		}

		relPath, err := filepath.Rel(rp.Abs, p)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)
		depth := strings.Count(relPath, "/")

		name := d.Name()
		if o.policy.IsExcludedName(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher.match(name, relPath) {
			if m, ok := o.admit(p, name, path.Join(rp.Rel, relPath)); ok {
				hits.add(relPath, m)
			}
		}

		if d.IsDir() && (depth >= maxDepth || hits.past(relPath)) {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, sandbox.WrapOS(searchPath, err)
	}

	matches, truncated := hits.result()
	return &SearchResult{
		Pattern:    pattern,
		SearchPath: searchPath,
		Matches:    matches,
		Truncated:  truncated,
	}, nil
}

// topMatches keeps the first limit matches in depth-first walk order no
// matter which order the parallel walk reports them in.
type topMatches struct {
	mu      sync.Mutex
	limit   int
	keys    []string
	matches []Match
	total   int
}

func newTopMatches(limit int) *topMatches {
	return &topMatches{
		limit:   limit,
		keys:    make([]string, 0, limit),
		matches: make([]Match, 0, limit),
	}
}

func (t *topMatches) add(rel string, m Match) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	if len(t.keys) == t.limit && (t.limit == 0 || !walkOrderLess(rel, t.keys[len(t.keys)-1])) {
		return
	}
	i := sort.Search(len(t.keys), func(i int) bool { return walkOrderLess(rel, t.keys[i]) })
	t.keys = slices.Insert(t.keys, i, rel)
	t.matches = slices.Insert(t.matches, i, m)
	if len(t.keys) > t.limit {
		t.keys = t.keys[:t.limit]
		t.matches = t.matches[:t.limit]
	}
}

// past reports whether the result is already known to be truncated and
// everything at or below rel comes after the last kept match, so the subtree
// can be skipped without changing the result.
func (t *topMatches) past(rel string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total > t.limit && t.limit > 0 && walkOrderLess(t.keys[len(t.keys)-1], rel)
}

func (t *topMatches) result() ([]Match, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.matches, t.total > t.limit
}

// walkOrderLess orders slash-separated relative paths the way a depth-first
// walk with name-sorted directories visits them: segment by segment, with a
// directory before everything below it.
func walkOrderLess(a, b string) bool {
	for {
		sa, restA, moreA := strings.Cut(a, "/")
		sb, restB, moreB := strings.Cut(b, "/")
		if sa != sb {
			return sa < sb
		}
		if !moreA || !moreB {
			return !moreA && moreB
		}
		a, b = restA, restB
	}
}

// admit runs a candidate match through the guard. Files need an allowed
// extension; symlinks are judged by their target.
func (o *Ops) admit(abs, name, rel string) (Match, bool) {
	crp, err := o.guard.Resolve(abs, true)
	if err != nil {
		return Match{}, false
	}
	return Match{
		Name: name,
		Path: rel,
		Type: entryType(crp.Info),
	}, true
}
