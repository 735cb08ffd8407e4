// Package frontend is the C analyzer that feeds the index. It parses each
// input stream with tree-sitter, tracks declarations through lexical
// scopes, and reports every definition and use of a named entity to a
// Reporter, with the access mode worked out from the expression context.
package frontend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"

	"github.com/jward/sindex/internal/usage"
)

// Kind codes attached to reported symbols.
const (
	KindStruct byte = 's' // struct/union/enum tag
	KindFunc   byte = 'f' // function
	KindVar    byte = 'v' // variable or enumerator
	KindMember byte = 'm' // struct/union member
)

// Ident is an interned identifier. Two occurrences of the same spelling
// within one Frontend share the same *Ident.
type Ident struct {
	Name string
}

// Position locates one occurrence: the input stream it came from and its
// 1-based line and column. Columns are byte offsets with the tab stop
// forced to 1.
type Position struct {
	Stream int
	Line   int
	Col    int
}

// Symbol is a reported entity: its interned identifier, kind code,
// position of this occurrence, and whether it is local to a function.
type Symbol struct {
	Ident *Ident
	Kind  byte
	Pos   Position
	Local bool
}

// Reporter receives the analyzer's callbacks. SymbolDef and MemberDef
// announce definitions; Symbol and Member announce uses with the access
// mode. A Member call with a nil member means the whole aggregate was
// accessed as a value.
type Reporter interface {
	SymbolDef(sym *Symbol)
	Symbol(mode usage.Mode, pos Position, sym *Symbol)
	MemberDef(tag *Ident, member *Symbol)
	Member(mode usage.Mode, pos Position, tag, member *Ident)
}

// Frontend holds the input streams and per-run analyzer state.
type Frontend struct {
	streams  []string
	options  []string
	excludes []glob.Glob

	interned map[string]*Ident
	context  *Ident // current top-level definition, nil at file scope
}

// Option configures a Frontend.
type Option func(*Frontend)

// WithExcludes drops input files matching any of the compiled patterns
// before analysis.
func WithExcludes(patterns ...glob.Glob) Option {
	return func(fe *Frontend) {
		fe.excludes = append(fe.excludes, patterns...)
	}
}

// New builds a Frontend from the raw argument tail of an add run. Tokens
// starting with "-" are frontend options and are accepted without effect
// at this analysis level; every other token names an input file. Excluded
// files are dropped silently.
func New(args []string, opts ...Option) (*Frontend, error) {
	fe := &Frontend{interned: make(map[string]*Ident)}
	for _, opt := range opts {
		opt(fe)
	}
inputs:
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			fe.options = append(fe.options, arg)
			continue
		}
		for _, g := range fe.excludes {
			if g.Match(arg) || g.Match(filepath.ToSlash(arg)) {
				continue inputs
			}
		}
		fe.streams = append(fe.streams, arg)
	}
	return fe, nil
}

// Streams returns the number of input streams.
func (fe *Frontend) Streams() int {
	return len(fe.streams)
}

// StreamPath returns the path backing the given stream number.
func (fe *Frontend) StreamPath(stream int) string {
	return fe.streams[stream]
}

// Intern returns the canonical *Ident for a spelling.
func (fe *Frontend) Intern(name string) *Ident {
	if id, ok := fe.interned[name]; ok {
		return id
	}
	id := &Ident{Name: name}
	fe.interned[name] = id
	return id
}

// Context returns the identifier of the definition currently being
// analyzed, or nil at file scope. The reporter copies it into records.
func (fe *Frontend) Context() *Ident {
	return fe.context
}

// Run parses every stream in order and drives the reporter. Analysis is
// synchronous; callbacks arrive from this goroutine only.
func (fe *Frontend) Run(ctx context.Context, rep Reporter) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(c.GetLanguage())

	for i, path := range fe.streams {
		src, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		tree, err := parser.ParseCtx(ctx, nil, src)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		a := &analyzer{fe: fe, rep: rep, src: src, stream: i}
		a.run(tree.RootNode())
		tree.Close()
	}
	return nil
}
