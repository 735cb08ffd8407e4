package frontend

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/sindex/internal/usage"
)

// declInfo is what the analyzer remembers about a declared name: its kind,
// locality, and — for objects of aggregate type — the aggregate's tag and
// whether the object is a pointer to it rather than an instance of it.
type declInfo struct {
	ident *Ident
	kind  byte
	local bool
	tag   *Ident
	ptr   bool
}

// typeInfo describes the aggregate behind a type expression, if any.
type typeInfo struct {
	tag *Ident
	ptr bool
}

// analyzer walks one stream's syntax tree. Scopes form a stack of name
// tables; typedefs are tracked separately so "T x" resolves to the same
// tag as "struct S x" when T aliases struct S.
type analyzer struct {
	fe     *Frontend
	rep    Reporter
	src    []byte
	stream int

	scopes   []map[string]*declInfo
	typedefs map[string]*typeInfo
}

func (a *analyzer) run(root *sitter.Node) {
	a.typedefs = make(map[string]*typeInfo)
	a.push()
	a.topLevelList(root)
	a.pop()
}

func (a *analyzer) push() {
	a.scopes = append(a.scopes, make(map[string]*declInfo))
}

func (a *analyzer) pop() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *analyzer) declare(d *declInfo) {
	a.scopes[len(a.scopes)-1][d.ident.Name] = d
}

func (a *analyzer) lookup(name string) *declInfo {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if d, ok := a.scopes[i][name]; ok {
			return d
		}
	}
	return nil
}

// local reports whether the analyzer is inside a function body or
// parameter list. The file scope is the bottom of the stack.
func (a *analyzer) local() bool {
	return len(a.scopes) > 1
}

func (a *analyzer) pos(n *sitter.Node) Position {
	p := n.StartPoint()
	return Position{Stream: a.stream, Line: int(p.Row) + 1, Col: int(p.Column) + 1}
}

func (a *analyzer) text(n *sitter.Node) string {
	return n.Content(a.src)
}

// --- Top-level items ---

func (a *analyzer) topLevelList(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.topLevel(n.NamedChild(i))
	}
}

func (a *analyzer) topLevel(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		a.functionDef(n)
	case "declaration":
		a.declaration(n)
	case "type_definition":
		a.typedefDecl(n)
	case "struct_specifier", "union_specifier", "enum_specifier":
		a.typeSpecifier(n)
	case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif", "linkage_specification":
		// Conditional sections contain further top-level items.
		a.topLevelList(n)
	case "expression_statement":
		// K&R-era stray statements; nothing meaningful at file scope.
	}
}

// typeOf resolves a type expression to its aggregate info, reporting tag
// and member definitions on the way when the expression defines them.
func (a *analyzer) typeOf(n *sitter.Node) *typeInfo {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "struct_specifier", "union_specifier", "enum_specifier":
		return a.typeSpecifier(n)
	case "type_identifier":
		if ti, ok := a.typedefs[a.text(n)]; ok {
			return ti
		}
	}
	return nil
}

// typeSpecifier handles struct/union/enum type expressions. A specifier
// with a body defines the tag and its members; one without a body merely
// names the tag for declaration tracking.
func (a *analyzer) typeSpecifier(n *sitter.Node) *typeInfo {
	var tag *Ident
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		tag = a.fe.Intern(a.text(nameNode))
		if n.ChildByFieldName("body") != nil {
			a.rep.SymbolDef(&Symbol{
				Ident: tag,
				Kind:  KindStruct,
				Pos:   a.pos(nameNode),
				Local: a.local(),
			})
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		if n.Type() == "enum_specifier" {
			return nil
		}
		return &typeInfo{tag: tag}
	}

	switch body.Type() {
	case "field_declaration_list":
		for i := 0; i < int(body.NamedChildCount()); i++ {
			field := body.NamedChild(i)
			if field.Type() != "field_declaration" {
				continue
			}
			a.typeOf(field.ChildByFieldName("type"))
			a.fieldDeclarators(field, tag)
		}
		return &typeInfo{tag: tag}
	case "enumerator_list":
		for i := 0; i < int(body.NamedChildCount()); i++ {
			enum := body.NamedChild(i)
			if enum.Type() != "enumerator" {
				continue
			}
			nameNode := enum.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			ident := a.fe.Intern(a.text(nameNode))
			a.declare(&declInfo{ident: ident, kind: KindVar, local: a.local()})
			a.rep.SymbolDef(&Symbol{
				Ident: ident,
				Kind:  KindVar,
				Pos:   a.pos(nameNode),
				Local: a.local(),
			})
			if value := enum.ChildByFieldName("value"); value != nil {
				a.expr(value, usage.RVal)
			}
		}
		return nil
	}
	return nil
}

// fieldDeclarators reports every member declared by one field_declaration.
func (a *analyzer) fieldDeclarators(field *sitter.Node, tag *Ident) {
	for i := 0; i < int(field.ChildCount()); i++ {
		if field.FieldNameForChild(i) != "declarator" {
			continue
		}
		nameNode := innermostDeclarator(field.Child(i))
		if nameNode == nil {
			continue
		}
		member := &Symbol{
			Ident: a.fe.Intern(a.text(nameNode)),
			Kind:  KindMember,
			Pos:   a.pos(nameNode),
			Local: a.local(),
		}
		a.rep.MemberDef(tag, member)
	}
}

// typedefDecl records typedef aliases so later declarations through the
// alias still resolve to the aggregate tag. Typedef names themselves are
// not indexed entities.
func (a *analyzer) typedefDecl(n *sitter.Node) {
	ti := a.typeOf(n.ChildByFieldName("type"))
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		decl := n.Child(i)
		ptr := false
		for decl != nil && decl.Type() == "pointer_declarator" {
			ptr = true
			decl = decl.ChildByFieldName("declarator")
		}
		nameNode := innermostDeclarator(decl)
		if nameNode == nil || ti == nil {
			continue
		}
		a.typedefs[a.text(nameNode)] = &typeInfo{tag: ti.tag, ptr: ptr || ti.ptr}
	}
}

// declaration handles object and prototype declarations at any scope.
func (a *analyzer) declaration(n *sitter.Node) {
	ti := a.typeOf(n.ChildByFieldName("type"))
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "declarator" {
			continue
		}
		a.objectDeclarator(n.Child(i), ti)
	}
}

// objectDeclarator unwraps one declarator, registers the declared name,
// reports its definition, and walks any initializer.
func (a *analyzer) objectDeclarator(n *sitter.Node, ti *typeInfo) {
	var value *sitter.Node
	if n.Type() == "init_declarator" {
		value = n.ChildByFieldName("value")
		n = n.ChildByFieldName("declarator")
	}

	kind := KindVar
	ptr := false
	for n != nil {
		switch n.Type() {
		case "pointer_declarator":
			ptr = true
			n = n.ChildByFieldName("declarator")
			continue
		case "function_declarator":
			kind = KindFunc
			n = n.ChildByFieldName("declarator")
			continue
		case "array_declarator", "parenthesized_declarator":
			n = firstDeclaratorChild(n)
			continue
		}
		break
	}
	if n == nil || (n.Type() != "identifier" && n.Type() != "field_identifier") {
		return
	}

	d := &declInfo{
		ident: a.fe.Intern(a.text(n)),
		kind:  kind,
		local: a.local(),
	}
	if ti != nil && kind == KindVar {
		d.tag = ti.tag
		d.ptr = ptr || ti.ptr
	}
	a.declare(d)
	a.rep.SymbolDef(&Symbol{Ident: d.ident, Kind: d.kind, Pos: a.pos(n), Local: d.local})

	if value != nil {
		// A file-scope initializer runs in the context of the definition
		// it belongs to.
		if !a.local() {
			prev := a.fe.context
			a.fe.context = d.ident
			a.expr(value, usage.RVal)
			a.fe.context = prev
		} else {
			a.expr(value, usage.RVal)
		}
	}
}

// functionDef handles a full function definition: name, parameters, body.
func (a *analyzer) functionDef(n *sitter.Node) {
	a.typeOf(n.ChildByFieldName("type"))

	decl := n.ChildByFieldName("declarator")
	for decl != nil && decl.Type() == "pointer_declarator" {
		decl = decl.ChildByFieldName("declarator")
	}
	if decl == nil || decl.Type() != "function_declarator" {
		return
	}
	nameNode := innermostDeclarator(decl.ChildByFieldName("declarator"))
	if nameNode == nil {
		return
	}

	ident := a.fe.Intern(a.text(nameNode))
	a.declare(&declInfo{ident: ident, kind: KindFunc})
	a.rep.SymbolDef(&Symbol{Ident: ident, Kind: KindFunc, Pos: a.pos(nameNode)})

	prev := a.fe.context
	a.fe.context = ident
	a.push()

	if params := decl.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			a.parameter(params.NamedChild(i))
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		a.blockItems(body)
	}

	a.pop()
	a.fe.context = prev
}

// parameter declares and reports one parameter_declaration.
func (a *analyzer) parameter(n *sitter.Node) {
	if n.Type() != "parameter_declaration" {
		return
	}
	ti := a.typeOf(n.ChildByFieldName("type"))
	decl := n.ChildByFieldName("declarator")
	if decl == nil {
		return
	}
	ptr := false
	for decl != nil && decl.Type() == "pointer_declarator" {
		ptr = true
		decl = decl.ChildByFieldName("declarator")
	}
	nameNode := innermostDeclarator(decl)
	if nameNode == nil {
		return
	}
	d := &declInfo{ident: a.fe.Intern(a.text(nameNode)), kind: KindVar, local: true}
	if ti != nil {
		d.tag = ti.tag
		d.ptr = ptr || ti.ptr
	}
	a.declare(d)
	a.rep.SymbolDef(&Symbol{Ident: d.ident, Kind: KindVar, Pos: a.pos(nameNode), Local: true})
}

// --- Statements ---

// blockItems walks the items of a compound statement in a fresh scope's
// caller; the scope itself is managed by stmt for nested blocks.
func (a *analyzer) blockItems(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.stmt(n.NamedChild(i))
	}
}

func (a *analyzer) stmt(n *sitter.Node) {
	switch n.Type() {
	case "declaration":
		a.declaration(n)
	case "type_definition":
		a.typedefDecl(n)
	case "compound_statement":
		a.push()
		a.blockItems(n)
		a.pop()
	case "else_clause", "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			a.stmt(n.NamedChild(i))
		}
	case "comment", "break_statement", "continue_statement", "goto_statement":
	default:
		if strings.HasSuffix(n.Type(), "_statement") {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if isStatementLike(child.Type()) {
					a.stmt(child)
				} else {
					a.expr(child, usage.RVal)
				}
			}
			return
		}
		a.expr(n, usage.RVal)
	}
}

// isStatementLike reports node kinds the statement walker owns, as
// opposed to expression operands.
func isStatementLike(kind string) bool {
	return kind == "declaration" || kind == "type_definition" || kind == "else_clause" ||
		strings.HasPrefix(kind, "preproc") || strings.HasSuffix(kind, "_statement")
}

// --- Expressions ---

// valTo rewrites the VAL pair of a mode into another access class; taking
// an address or dereferencing changes what the identifier's own access
// means, not whether it is a read or a write.
func valTo(mode usage.Mode, r, w usage.Mode) usage.Mode {
	out := mode &^ (usage.RVal | usage.WVal)
	if mode&usage.RVal != 0 {
		out |= r
	}
	if mode&usage.WVal != 0 {
		out |= w
	}
	return out
}

func (a *analyzer) expr(n *sitter.Node, mode usage.Mode) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		a.emitIdent(n, mode, true)

	case "assignment_expression":
		left := usage.RVal | usage.WVal
		if op := n.ChildByFieldName("operator"); op != nil && a.text(op) == "=" {
			left = usage.WVal
		}
		a.expr(n.ChildByFieldName("left"), left)
		a.expr(n.ChildByFieldName("right"), usage.RVal)

	case "update_expression":
		a.expr(n.ChildByFieldName("argument"), usage.RVal|usage.WVal)

	case "pointer_expression":
		arg := n.ChildByFieldName("argument")
		switch a.text(n.ChildByFieldName("operator")) {
		case "*":
			a.expr(arg, valTo(mode, usage.RPtr, usage.WPtr))
		case "&":
			a.expr(arg, valTo(mode, usage.RAoF, usage.WAoF))
		default:
			a.expr(arg, usage.RVal)
		}

	case "subscript_expression":
		a.expr(n.ChildByFieldName("argument"), valTo(mode, usage.RPtr, usage.WPtr))
		a.expr(n.ChildByFieldName("index"), usage.RVal)

	case "field_expression":
		a.fieldExpr(n, mode)

	case "call_expression":
		a.callExpr(n)

	case "unary_expression", "binary_expression":
		a.expr(n.ChildByFieldName("left"), usage.RVal)
		a.expr(n.ChildByFieldName("right"), usage.RVal)
		a.expr(n.ChildByFieldName("argument"), usage.RVal)

	case "conditional_expression":
		a.expr(n.ChildByFieldName("condition"), usage.RVal)
		a.expr(n.ChildByFieldName("consequence"), usage.RVal)
		a.expr(n.ChildByFieldName("alternative"), usage.RVal)

	case "comma_expression":
		a.expr(n.ChildByFieldName("left"), usage.RVal)
		a.expr(n.ChildByFieldName("right"), mode)

	case "cast_expression":
		a.expr(n.ChildByFieldName("value"), mode)

	case "parenthesized_expression":
		if n.NamedChildCount() > 0 {
			a.expr(n.NamedChild(0), mode)
		}

	case "sizeof_expression":
		// Unevaluated; no access happens.

	case "number_literal", "string_literal", "char_literal", "concatenated_string",
		"true", "false", "null", "comment", "type_descriptor":

	default:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			a.expr(n.NamedChild(i), usage.RVal)
		}
	}
}

// callExpr reads the designator and the arguments as values. An
// undeclared designator is reported as a function rather than an extern
// object.
func (a *analyzer) callExpr(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn != nil && fn.Type() == "identifier" && a.lookup(a.text(fn)) == nil {
		pos := a.pos(fn)
		sym := &Symbol{Ident: a.fe.Intern(a.text(fn)), Kind: KindFunc, Pos: pos}
		a.rep.Symbol(usage.RVal, pos, sym)
	} else {
		a.expr(fn, usage.RVal)
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			a.expr(args.NamedChild(i), usage.RVal)
		}
	}
}

// fieldExpr reports the member access and then the base. The base of
// "p->m" is read as a pointer value; the base of "x.m" shares the access
// mode of the member, but without the whole-aggregate expansion that a
// bare use of x would get.
func (a *analyzer) fieldExpr(n *sitter.Node, mode usage.Mode) {
	arg := n.ChildByFieldName("argument")
	fieldNode := n.ChildByFieldName("field")
	if fieldNode == nil {
		a.expr(arg, usage.RVal)
		return
	}

	member := a.fe.Intern(a.text(fieldNode))
	a.rep.Member(mode, a.pos(fieldNode), a.baseTag(arg), member)

	if a.isArrow(n) {
		a.expr(arg, usage.RVal)
		return
	}
	if arg != nil && arg.Type() == "identifier" {
		a.emitIdent(arg, mode, false)
		return
	}
	a.expr(arg, mode)
}

// isArrow reports whether a field_expression uses "->".
func (a *analyzer) isArrow(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.IsNamed() && a.text(child) == "->" {
			return true
		}
	}
	return false
}

// baseTag resolves the aggregate tag of a field access base, descending
// through parentheses, casts, dereferences and subscripts. Unresolvable
// bases yield nil, rendered as "?" downstream.
func (a *analyzer) baseTag(n *sitter.Node) *Ident {
	for n != nil {
		switch n.Type() {
		case "identifier":
			if d := a.lookup(a.text(n)); d != nil {
				return d.tag
			}
			return nil
		case "parenthesized_expression":
			if n.NamedChildCount() == 0 {
				return nil
			}
			n = n.NamedChild(0)
		case "pointer_expression", "subscript_expression":
			n = n.ChildByFieldName("argument")
		case "cast_expression":
			n = n.ChildByFieldName("value")
		default:
			return nil
		}
	}
	return nil
}

// emitIdent reports one identifier use. When aggregate expansion is on
// and the name is a non-pointer object of known aggregate type accessed
// by value, the whole-aggregate member record is reported as well.
func (a *analyzer) emitIdent(n *sitter.Node, mode usage.Mode, aggregate bool) {
	name := a.text(n)
	pos := a.pos(n)
	d := a.lookup(name)

	sym := &Symbol{Ident: a.fe.Intern(name), Kind: KindVar, Pos: pos}
	if d != nil {
		sym.Ident = d.ident
		sym.Kind = d.kind
		sym.Local = d.local
	}
	a.rep.Symbol(mode, pos, sym)

	if aggregate && d != nil && d.tag != nil && !d.ptr && mode&(usage.RVal|usage.WVal) != 0 {
		a.rep.Member(mode, pos, d.tag, nil)
	}
}

// --- Declarator helpers ---

// innermostDeclarator descends a declarator chain to the declared
// identifier node.
func innermostDeclarator(n *sitter.Node) *sitter.Node {
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier":
			return n
		case "pointer_declarator", "function_declarator", "init_declarator":
			n = n.ChildByFieldName("declarator")
		case "array_declarator", "parenthesized_declarator":
			n = firstDeclaratorChild(n)
		default:
			return nil
		}
	}
	return nil
}

// firstDeclaratorChild returns the declarator field if present, else the
// first named child. Parenthesized declarators expose no field name.
func firstDeclaratorChild(n *sitter.Node) *sitter.Node {
	if d := n.ChildByFieldName("declarator"); d != nil {
		return d
	}
	if n.NamedChildCount() > 0 {
		return n.NamedChild(0)
	}
	return nil
}
