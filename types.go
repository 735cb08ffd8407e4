package sindex

import "github.com/jward/sindex/internal/usage"

// Kind codes stored with every record, as the integer value of the ASCII
// character. Member records use the composite "<tag>.<member>" symbol
// form.
const (
	KindStructTag byte = 's'
	KindFunction  byte = 'f'
	KindVariable  byte = 'v'
	KindMember    byte = 'm'
)

// Record is one indexed occurrence as projected by a search: the file
// name relative to the project root, the 1-based position, the enclosing
// definition (empty at file scope), the symbol text, the kind code and
// the access mode.
type Record struct {
	File    string
	Line    int
	Col     int
	Context string
	Symbol  string
	Kind    byte
	Mode    usage.Mode
}
