package sindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/sindex/internal/usage"
)

// Location names a point in a source file for the explain/usage search
// modes. Line and column are optional refinements.
type Location struct {
	File    string
	Line    int
	Col     int
	HasLine bool
	HasCol  bool
}

// ParseLocation parses "filename[:line[:column]]".
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 || parts[0] == "" {
		return Location{}, fmt.Errorf("invalid location %q: want filename[:line[:column]]", s)
	}
	loc := Location{File: parts[0]}
	if len(parts) > 1 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return Location{}, fmt.Errorf("invalid line in location %q", s)
		}
		loc.Line, loc.HasLine = n, true
	}
	if len(parts) > 2 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			return Location{}, fmt.Errorf("invalid column in location %q", s)
		}
		loc.Col, loc.HasCol = n, true
	}
	return loc, nil
}

// SearchOptions is the structured form of a search. All set fields are
// AND-combined. Explain and Usage are mutually exclusive with Symbol and
// with each other.
type SearchOptions struct {
	Symbol string // literal, or GLOB when it contains * ? [ ]
	Path   string // GLOB against the stored file name
	Kind   byte   // 0 matches any kind

	Mode      usage.Mode
	ModeSet   bool // enables mode filtering
	ModeExact bool // equality instead of any-bit matching

	Explain *Location // records at the point
	Usage   *Location // records of every symbol occurring at the point
}

// isPattern reports whether a symbol argument should match as a GLOB.
func isPattern(s string) bool {
	return strings.ContainsAny(s, "*?[]")
}

// Search compiles the options into one indexed query and returns the
// matching records ordered by (file name, line, column) ascending — the
// ordering the renderer's forward-only source reads depend on.
func (e *Engine) Search(opts SearchOptions) ([]Record, error) {
	var (
		where []string
		args  []any
	)

	if opts.Symbol != "" {
		if isPattern(opts.Symbol) {
			where = append(where, "sindex.symbol GLOB ?")
		} else {
			where = append(where, "sindex.symbol = ?")
		}
		args = append(args, opts.Symbol)
	}
	if opts.Path != "" {
		where = append(where, "file.name GLOB ?")
		args = append(args, opts.Path)
	}
	if opts.Kind != 0 {
		where = append(where, "sindex.kind = ?")
		args = append(args, int64(opts.Kind))
	}
	if opts.ModeSet {
		if opts.ModeExact {
			where = append(where, "sindex.mode = ?")
		} else {
			where = append(where, "(sindex.mode & ?) != 0")
		}
		args = append(args, int64(opts.Mode))
	}

	if loc := opts.Explain; loc != nil {
		cond, locArgs, ok := e.locationCond(loc, "file.name", "sindex.line", `sindex."column"`)
		if !ok {
			return nil, nil
		}
		where = append(where, cond...)
		args = append(args, locArgs...)
	}
	if loc := opts.Usage; loc != nil {
		cond, locArgs, ok := e.locationCond(loc, "f2.name", "i2.line", `i2."column"`)
		if !ok {
			return nil, nil
		}
		where = append(where,
			`sindex.symbol IN (SELECT i2.symbol FROM sindex i2 JOIN file f2 ON f2.id = i2.file WHERE `+
				strings.Join(cond, " AND ")+`)`)
		args = append(args, locArgs...)
	}

	query := `SELECT file.name, sindex.line, sindex."column", sindex.context, sindex.symbol, sindex.mode, sindex.kind
 FROM sindex JOIN file ON file.id = sindex.file`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY file.name, sindex.line, sindex."column"`

	rows, err := e.store.DB().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sindex: search: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			rec        Record
			mode, kind int64
		)
		if err := rows.Scan(&rec.File, &rec.Line, &rec.Col, &rec.Context, &rec.Symbol, &mode, &kind); err != nil {
			return nil, fmt.Errorf("sindex: search: scan: %w", err)
		}
		rec.Mode = usage.Mode(mode)
		rec.Kind = byte(kind)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sindex: search: %w", err)
	}
	return recs, nil
}

// locationCond builds the conditions pinning a query to a location. The
// filename is normalized to its stored root-relative form; ok is false
// when the location lies outside the project root and nothing can match.
func (e *Engine) locationCond(loc *Location, nameCol, lineCol, colCol string) (conds []string, args []any, ok bool) {
	name, ok := e.relToRoot(loc.File)
	if !ok {
		return nil, nil, false
	}
	conds = append(conds, nameCol+" = ?")
	args = append(args, name)
	if loc.HasLine {
		conds = append(conds, lineCol+" = ?")
		args = append(args, int64(loc.Line))
	}
	if loc.HasCol {
		conds = append(conds, colCol+" = ?")
		args = append(args, int64(loc.Col))
	}
	return conds, args, true
}
