package frontend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gobwas/glob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/sindex/internal/usage"
)

// event is one recorded reporter callback, flattened for assertions.
type event struct {
	op     string // symdef, sym, memdef, mem
	name   string // identifier, or composite "tag.member" for mem ops
	kind   byte
	mode   usage.Mode
	line   int
	col    int
	local  bool
	stream int
}

type recorder struct {
	events []event
}

func (r *recorder) SymbolDef(sym *Symbol) {
	r.events = append(r.events, event{
		op: "symdef", name: sym.Ident.Name, kind: sym.Kind,
		line: sym.Pos.Line, col: sym.Pos.Col, local: sym.Local, stream: sym.Pos.Stream,
	})
}

func (r *recorder) Symbol(mode usage.Mode, pos Position, sym *Symbol) {
	r.events = append(r.events, event{
		op: "sym", name: sym.Ident.Name, kind: sym.Kind, mode: mode,
		line: pos.Line, col: pos.Col, local: sym.Local, stream: pos.Stream,
	})
}

func (r *recorder) MemberDef(tag *Ident, member *Symbol) {
	name := "?"
	if tag != nil {
		name = tag.Name
	}
	r.events = append(r.events, event{
		op: "memdef", name: name + "." + member.Ident.Name, kind: KindMember,
		line: member.Pos.Line, col: member.Pos.Col, local: member.Local, stream: member.Pos.Stream,
	})
}

func (r *recorder) Member(mode usage.Mode, pos Position, tag, member *Ident) {
	tagName, memberName := "?", "*"
	if tag != nil {
		tagName = tag.Name
	}
	if member != nil {
		memberName = member.Name
	}
	r.events = append(r.events, event{
		op: "mem", name: tagName + "." + memberName, kind: KindMember, mode: mode,
		line: pos.Line, col: pos.Col, stream: pos.Stream,
	})
}

// find returns every event with the given op and name.
func (r *recorder) find(op, name string) []event {
	var out []event
	for _, ev := range r.events {
		if ev.op == op && ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

// one asserts exactly one matching event and returns it.
func (r *recorder) one(t *testing.T, op, name string) event {
	t.Helper()
	evs := r.find(op, name)
	require.Len(t, evs, 1, "want exactly one %s event for %q, have %v", op, name, r.events)
	return evs[0]
}

// analyze writes src to a temp file and runs the frontend over it.
func analyze(t *testing.T, src string) *recorder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.c")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	fe, err := New([]string{path})
	require.NoError(t, err)
	rec := &recorder{}
	require.NoError(t, fe.Run(context.Background(), rec))
	return rec
}

// =============================================================================
// Input handling
// =============================================================================

func TestNew_SplitsOptionsFromFiles(t *testing.T) {
	t.Parallel()
	fe, err := New([]string{"-Iinclude", "a.c", "--foo", "b.c"})
	require.NoError(t, err)
	require.Equal(t, 2, fe.Streams())
	assert.Equal(t, "a.c", fe.StreamPath(0))
	assert.Equal(t, "b.c", fe.StreamPath(1))
}

func TestNew_Excludes(t *testing.T) {
	t.Parallel()
	g, err := glob.Compile("*_gen.c", '/')
	require.NoError(t, err)
	fe, err := New([]string{"a.c", "b_gen.c"}, WithExcludes(g))
	require.NoError(t, err)
	require.Equal(t, 1, fe.Streams())
	assert.Equal(t, "a.c", fe.StreamPath(0))
}

func TestIntern_SharesIdents(t *testing.T) {
	t.Parallel()
	fe, err := New(nil)
	require.NoError(t, err)
	assert.Same(t, fe.Intern("x"), fe.Intern("x"))
	assert.NotSame(t, fe.Intern("x"), fe.Intern("y"))
}

func TestRun_MissingFileFails(t *testing.T) {
	t.Parallel()
	fe, err := New([]string{filepath.Join(t.TempDir(), "nope.c")})
	require.NoError(t, err)
	require.Error(t, fe.Run(context.Background(), &recorder{}))
}

// =============================================================================
// Definitions and uses
// =============================================================================

func TestAnalyze_GlobalDefAndUse(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "int x;\nint f(void) { return x; }\n")

	def := rec.one(t, "symdef", "x")
	assert.Equal(t, KindVar, def.kind)
	assert.Equal(t, 1, def.line)
	assert.Equal(t, 5, def.col)
	assert.False(t, def.local)

	fdef := rec.one(t, "symdef", "f")
	assert.Equal(t, KindFunc, fdef.kind)
	assert.Equal(t, 2, fdef.line)
	assert.Equal(t, 5, fdef.col)

	use := rec.one(t, "sym", "x")
	assert.Equal(t, usage.RVal, use.mode)
	assert.Equal(t, 2, use.line)
	assert.Equal(t, 22, use.col)
	assert.False(t, use.local)
}

func TestAnalyze_LocalsFlagged(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "void f(int n) { int y; y = n; }\n")

	assert.True(t, rec.one(t, "symdef", "n").local)
	assert.True(t, rec.one(t, "symdef", "y").local)
	assert.True(t, rec.one(t, "sym", "y").local)
	assert.True(t, rec.one(t, "sym", "n").local)
	assert.False(t, rec.one(t, "symdef", "f").local)
}

func TestAnalyze_AssignmentModes(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "int a;\nint b;\nvoid f(void) { a = b; a += b; a++; }\n")

	uses := rec.find("sym", "a")
	require.Len(t, uses, 3)
	assert.Equal(t, usage.WVal, uses[0].mode, "plain assignment writes")
	assert.Equal(t, usage.RVal|usage.WVal, uses[1].mode, "compound assignment modifies")
	assert.Equal(t, usage.RVal|usage.WVal, uses[2].mode, "increment modifies")

	for _, use := range rec.find("sym", "b") {
		assert.Equal(t, usage.RVal, use.mode)
	}
}

func TestAnalyze_AddressOfAndDeref(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "int v;\nint *q;\nvoid f(void) { q = &v; *q = 1; v = *q; }\n")

	vUses := rec.find("sym", "v")
	require.Len(t, vUses, 2)
	assert.Equal(t, usage.RAoF, vUses[0].mode, "&v reads the address")
	assert.Equal(t, usage.WVal, vUses[1].mode)

	qUses := rec.find("sym", "q")
	require.Len(t, qUses, 3)
	assert.Equal(t, usage.WVal, qUses[0].mode, "q = ... writes the pointer")
	assert.Equal(t, usage.WPtr, qUses[1].mode, "*q = ... writes through the pointer")
	assert.Equal(t, usage.RPtr, qUses[2].mode, "... = *q reads through the pointer")
}

func TestAnalyze_SubscriptIsPointerAccess(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "int arr[4];\nint i;\nvoid f(void) { arr[i] = 0; }\n")

	use := rec.one(t, "sym", "arr")
	assert.Equal(t, usage.WPtr, use.mode)
	assert.Equal(t, usage.RVal, rec.one(t, "sym", "i").mode)
}

func TestAnalyze_CallReadsDesignatorAndArgs(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "int g(int);\nint x;\nvoid f(void) { g(x); ext(x); }\n")

	gUse := rec.one(t, "sym", "g")
	assert.Equal(t, usage.RVal, gUse.mode)
	assert.Equal(t, KindFunc, gUse.kind)

	// Undeclared call designators are functions, not extern objects.
	extUse := rec.one(t, "sym", "ext")
	assert.Equal(t, KindFunc, extUse.kind)

	assert.Len(t, rec.find("sym", "x"), 2)
}

func TestAnalyze_PrototypeIsFunctionDef(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "int g(int);\n")
	def := rec.one(t, "symdef", "g")
	assert.Equal(t, KindFunc, def.kind)
}

func TestAnalyze_Enumerators(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "enum color { RED, GREEN };\nint f(void) { return RED; }\n")

	assert.Equal(t, KindStruct, rec.one(t, "symdef", "color").kind)
	assert.Equal(t, KindVar, rec.one(t, "symdef", "RED").kind)
	assert.Equal(t, KindVar, rec.one(t, "symdef", "GREEN").kind)
	assert.Equal(t, usage.RVal, rec.one(t, "sym", "RED").mode)
}

// =============================================================================
// Struct tags and members
// =============================================================================

func TestAnalyze_StructTagAndMemberDefs(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "struct point { int x; int y; };\n")

	tag := rec.one(t, "symdef", "point")
	assert.Equal(t, KindStruct, tag.kind)
	assert.Equal(t, 1, tag.line)
	assert.Equal(t, 8, tag.col)

	x := rec.one(t, "memdef", "point.x")
	assert.Equal(t, 20, x.col)
	y := rec.one(t, "memdef", "point.y")
	assert.Equal(t, 27, y.col)
}

func TestAnalyze_AnonymousStructMembers(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "struct { int n; } thing;\n")
	assert.Len(t, rec.find("memdef", "?.n"), 1)
	assert.Len(t, rec.find("symdef", "thing"), 1)
}

func TestAnalyze_MemberAccessModes(t *testing.T) {
	t.Parallel()
	src := "struct point { int x; int y; };\n" +
		"struct point p;\n" +
		"int g(struct point *pp) { p.x = pp->y; return p.x; }\n"
	rec := analyze(t, src)

	xUses := rec.find("mem", "point.x")
	require.Len(t, xUses, 2)
	assert.Equal(t, usage.WVal, xUses[0].mode)
	assert.Equal(t, 3, xUses[0].line)
	assert.Equal(t, 29, xUses[0].col)
	assert.Equal(t, usage.RVal, xUses[1].mode)

	yUse := rec.one(t, "mem", "point.y")
	assert.Equal(t, usage.RVal, yUse.mode)
	assert.Equal(t, 37, yUse.col)

	// The base of p.x follows the member's access; the base of pp->y is a
	// pointer value read.
	pUses := rec.find("sym", "p")
	require.Len(t, pUses, 2)
	assert.Equal(t, usage.WVal, pUses[0].mode)
	assert.Equal(t, usage.RVal, pUses[1].mode)
	assert.Equal(t, usage.RVal, rec.one(t, "sym", "pp").mode)
}

func TestAnalyze_WholeAggregateAccess(t *testing.T) {
	t.Parallel()
	src := "struct point { int x; };\n" +
		"struct point a;\n" +
		"struct point b;\n" +
		"void h(void) { a = b; }\n"
	rec := analyze(t, src)

	stars := rec.find("mem", "point.*")
	require.Len(t, stars, 2)
	assert.Equal(t, usage.WVal, stars[0].mode)
	assert.Equal(t, usage.RVal, stars[1].mode)
}

func TestAnalyze_TypedefResolvesTag(t *testing.T) {
	t.Parallel()
	src := "typedef struct point { int x; } point_t;\n" +
		"point_t p;\n" +
		"void f(void) { p.x = 1; }\n"
	rec := analyze(t, src)

	use := rec.one(t, "mem", "point.x")
	assert.Equal(t, usage.WVal, use.mode)
}

func TestAnalyze_UnknownBaseTagIsQuestionMark(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "void f(int *u) { u->n = 1; }\n")
	use := rec.one(t, "mem", "?.n")
	assert.Equal(t, usage.WVal, use.mode)
}

// =============================================================================
// Streams and positions
// =============================================================================

func TestAnalyze_MultipleStreams(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.c")
	b := filepath.Join(dir, "b.c")
	require.NoError(t, os.WriteFile(a, []byte("int one;\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("int two;\n"), 0o644))

	fe, err := New([]string{a, b})
	require.NoError(t, err)
	rec := &recorder{}
	require.NoError(t, fe.Run(context.Background(), rec))

	assert.Equal(t, 0, rec.one(t, "symdef", "one").stream)
	assert.Equal(t, 1, rec.one(t, "symdef", "two").stream)
}

func TestAnalyze_TabsCountOneColumn(t *testing.T) {
	t.Parallel()
	rec := analyze(t, "\tint x;\n")
	def := rec.one(t, "symdef", "x")
	assert.Equal(t, 6, def.col, "a tab advances the column by one")
}
