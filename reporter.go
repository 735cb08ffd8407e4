package sindex

import (
	"fmt"
	"os"

	"github.com/jward/sindex/internal/frontend"
	"github.com/jward/sindex/internal/store"
	"github.com/jward/sindex/internal/usage"
)

// sink consumes the frontend's reporter callbacks and turns them into
// staged index records. Callbacks cannot return errors, so the first
// failure is latched and every later callback becomes a no-op; Add checks
// the latch after the frontend returns.
type sink struct {
	fe           *frontend.Frontend
	reg          *fileRegistry
	store        *store.Store
	includeLocal bool
	err          error
}

var _ frontend.Reporter = (*sink)(nil)

// SymbolDef stages a definition record.
func (k *sink) SymbolDef(sym *frontend.Symbol) {
	k.record(usage.Def, sym.Pos, sym.Ident.Name, sym.Kind, sym.Local)
}

// Symbol stages a use record with its access mode.
func (k *sink) Symbol(mode usage.Mode, pos frontend.Position, sym *frontend.Symbol) {
	k.record(mode, pos, sym.Ident.Name, sym.Kind, sym.Local)
}

// MemberDef stages a member definition under its composite name.
func (k *sink) MemberDef(tag *frontend.Ident, member *frontend.Symbol) {
	k.record(usage.Def, member.Pos, compositeName(tag, member.Ident), frontend.KindMember, member.Local)
}

// Member stages a member use. A nil member means the whole aggregate was
// accessed; the member component renders as "*".
func (k *sink) Member(mode usage.Mode, pos frontend.Position, tag, member *frontend.Ident) {
	k.record(mode, pos, compositeName(tag, member), frontend.KindMember, false)
}

// compositeName builds "<tag>.<member>", substituting "?" for a missing
// tag or member identifier and "*" for a whole-aggregate access.
func compositeName(tag, member *frontend.Ident) string {
	t, m := "?", "*"
	if tag != nil && tag.Name != "" {
		t = tag.Name
	}
	if member != nil {
		m = member.Name
		if m == "" {
			m = "?"
		}
	}
	return t + "." + m
}

func (k *sink) record(mode usage.Mode, pos frontend.Position, symbol string, kind byte, local bool) {
	if k.err != nil {
		return
	}
	if local && !k.includeLocal {
		return
	}
	if symbol == "" {
		fmt.Fprintf(os.Stderr, "sindex: warning: symbol with no identifier at %s:%d:%d\n",
			k.fe.StreamPath(pos.Stream), pos.Line, pos.Col)
		return
	}

	fileID, ok, err := k.reg.ensure(k.fe.StreamPath(pos.Stream), pos.Stream)
	if err != nil {
		k.err = err
		return
	}
	if !ok {
		return
	}

	context := ""
	if cur := k.fe.Context(); cur != nil {
		context = cur.Name
	}
	if err := k.store.StageRecord(fileID, pos.Line, pos.Col, symbol, kind, context, uint32(mode)); err != nil {
		k.err = err
	}
}
