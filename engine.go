package sindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	"github.com/jward/sindex/internal/frontend"
	"github.com/jward/sindex/internal/store"
)

// Engine owns the store and orchestrates the indexing pipeline: frontend
// analysis into the staging table, file-identity bookkeeping, and the
// final atomic merge. The project root is the working directory at
// construction time; sources outside it contribute no records.
type Engine struct {
	store *store.Store
	root  string

	includeLocal bool
	verbose      bool
	excludes     []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocalSymbols indexes function-local symbols, which are dropped by
// default.
func WithLocalSymbols() Option {
	return func(e *Engine) {
		e.includeLocal = true
	}
}

// WithVerbose enables progress lines on stderr.
func WithVerbose() Option {
	return func(e *Engine) {
		e.verbose = true
	}
}

// WithExcludes drops input files matching any of the glob patterns before
// analysis. Patterns are compiled at New; a malformed pattern fails the
// construction.
func WithExcludes(patterns ...string) Option {
	return func(e *Engine) {
		e.excludes = append(e.excludes, patterns...)
	}
}

// New opens (or, when writable, creates) the index database at dbPath.
func New(dbPath string, writable bool, opts ...Option) (*Engine, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("sindex: resolve project root: %w", err)
	}
	// Stored names and the registry's containment check compare against
	// symlink-resolved paths; the root must be in the same form.
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	e := &Engine{root: root}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := e.compiledExcludes(); err != nil {
		return nil, err
	}
	s, err := store.Open(dbPath, !writable)
	if err != nil {
		return nil, fmt.Errorf("sindex: %w", err)
	}
	e.store = s
	return e, nil
}

// Close releases the engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Root returns the project root all stored paths are relative to.
func (e *Engine) Root() string {
	return e.root
}

func (e *Engine) compiledExcludes() ([]glob.Glob, error) {
	var globs []glob.Glob
	for _, pat := range e.excludes {
		g, err := glob.Compile(pat, '/')
		if err != nil {
			return nil, fmt.Errorf("sindex: bad exclude pattern %q: %w", pat, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Add runs one indexing pass. args is the frontend tail of the command
// line: frontend options and input files, forwarded verbatim. Records are
// staged in memory while the frontend runs and merged into the persistent
// table in one transaction at the end.
func (e *Engine) Add(ctx context.Context, args []string) error {
	globs, err := e.compiledExcludes()
	if err != nil {
		return err
	}
	fe, err := frontend.New(args, frontend.WithExcludes(globs...))
	if err != nil {
		return fmt.Errorf("sindex: frontend: %w", err)
	}

	if err := e.store.BeginStaging(); err != nil {
		return fmt.Errorf("sindex: %w", err)
	}
	defer e.store.EndStaging()

	snk := &sink{
		fe:           fe,
		reg:          &fileRegistry{root: e.root, store: e.store},
		store:        e.store,
		includeLocal: e.includeLocal,
	}
	if err := fe.Run(ctx, snk); err != nil {
		return fmt.Errorf("sindex: %w", err)
	}
	if snk.err != nil {
		return fmt.Errorf("sindex: %w", snk.err)
	}

	if err := e.store.MergeStaging(); err != nil {
		return fmt.Errorf("sindex: %w", err)
	}
	if e.verbose {
		fmt.Fprintf(os.Stderr, "sindex: indexed %d stream(s)\n", fe.Streams())
	}
	return nil
}

// Remove deletes every indexed file whose stored name matches one of the
// GLOB patterns; their index records go with them by cascade. Returns the
// number of files removed.
func (e *Engine) Remove(patterns []string) (int64, error) {
	n, err := e.store.RemoveFiles(patterns)
	if err != nil {
		return 0, fmt.Errorf("sindex: %w", err)
	}
	if e.verbose {
		fmt.Fprintf(os.Stderr, "sindex: removed %d file(s)\n", n)
	}
	return n, nil
}

// relToRoot normalizes a user-supplied path to the root-relative form
// paths are stored in. The second return is false when the path lies
// outside the project root and therefore cannot match anything.
func (e *Engine) relToRoot(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(e.root, abs)
	if err != nil || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return rel, true
}
