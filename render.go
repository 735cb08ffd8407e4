package sindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// fmtOp is one compiled element of a format template: either a literal
// run or a single directive character.
type fmtOp struct {
	directive byte   // 0 for a literal
	lit       string // literal text when directive is 0
}

// Formatter renders search result rows from a template with % directives
// and backslash escapes:
//
//	%f file name      %l line          %c column    %C context
//	%n symbol         %m mode          %k kind      %s source line
//	\t \r \n \\
//
// The %s directive re-reads the original source. Because result rows
// arrive ordered by file then line, at most one file is open at a time
// and its line cursor only moves forward.
type Formatter struct {
	ops []fmtOp
	src sourceReader
}

// NewFormatter compiles a template. Unknown directives, unknown escapes,
// and a dangling % or \ at the end of the template are errors.
func NewFormatter(format string) (*Formatter, error) {
	const (
		stLiteral = iota
		stPercent
		stBackslash
	)
	f := &Formatter{}
	var lit strings.Builder
	state := stLiteral

	for i := 0; i < len(format); i++ {
		ch := format[i]
		switch state {
		case stLiteral:
			switch ch {
			case '%':
				state = stPercent
			case '\\':
				state = stBackslash
			default:
				lit.WriteByte(ch)
			}
		case stPercent:
			switch ch {
			case 'f', 'l', 'c', 'C', 'n', 'm', 'k', 's':
				if lit.Len() > 0 {
					f.ops = append(f.ops, fmtOp{lit: lit.String()})
					lit.Reset()
				}
				f.ops = append(f.ops, fmtOp{directive: ch})
			case '%':
				lit.WriteByte('%')
			default:
				return nil, fmt.Errorf("unknown format directive %%%c", ch)
			}
			state = stLiteral
		case stBackslash:
			switch ch {
			case 't':
				lit.WriteByte('\t')
			case 'r':
				lit.WriteByte('\r')
			case 'n':
				lit.WriteByte('\n')
			case '\\':
				lit.WriteByte('\\')
			default:
				return nil, fmt.Errorf("unknown escape \\%c", ch)
			}
			state = stLiteral
		}
	}
	if state != stLiteral {
		return nil, fmt.Errorf("format string %q ends mid-directive", format)
	}
	if lit.Len() > 0 {
		f.ops = append(f.ops, fmtOp{lit: lit.String()})
	}
	return f, nil
}

// Format renders one record followed by a newline.
func (f *Formatter) Format(w io.Writer, rec *Record) error {
	for _, op := range f.ops {
		if op.directive == 0 {
			if _, err := io.WriteString(w, op.lit); err != nil {
				return err
			}
			continue
		}
		var err error
		switch op.directive {
		case 'f':
			_, err = io.WriteString(w, rec.File)
		case 'l':
			_, err = fmt.Fprintf(w, "%d", rec.Line)
		case 'c':
			_, err = fmt.Fprintf(w, "%d", rec.Col)
		case 'C':
			_, err = io.WriteString(w, rec.Context)
		case 'n':
			_, err = io.WriteString(w, rec.Symbol)
		case 'm':
			_, err = io.WriteString(w, rec.Mode.String())
		case 'k':
			_, err = w.Write([]byte{rec.Kind})
		case 's':
			var line string
			line, err = f.src.lineAt(rec.File, rec.Line)
			if err == nil {
				_, err = io.WriteString(w, line)
			}
		}
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Close releases the source stream held for %s, if any.
func (f *Formatter) Close() error {
	return f.src.close()
}

// sourceReader extracts source lines by cursor-advancing reads. One file
// is open at a time; a request for a new file closes the previous stream
// and restarts the cursor at line zero. Lines before the cursor cannot be
// revisited, which the result ordering guarantees is never needed; the
// last line read is cached for the common several-records-per-line case.
type sourceReader struct {
	name string
	file *os.File
	br   *bufio.Reader
	line int
	last string
}

func (sr *sourceReader) lineAt(name string, line int) (string, error) {
	if name != sr.name || sr.file == nil {
		if err := sr.close(); err != nil {
			return "", err
		}
		file, err := os.Open(name)
		if err != nil {
			return "", fmt.Errorf("source line: %w", err)
		}
		sr.name = name
		sr.file = file
		sr.br = bufio.NewReader(file)
		sr.line = 0
	}

	if line == sr.line {
		return sr.last, nil
	}
	if line < sr.line {
		return "", fmt.Errorf("source line: %s:%d already passed (results out of order)", name, line)
	}
	for sr.line < line {
		text, err := sr.br.ReadString('\n')
		if err == io.EOF && text == "" {
			return "", fmt.Errorf("source line: %s has no line %d", name, line)
		}
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("source line: read %s: %w", name, err)
		}
		sr.line++
		sr.last = strings.TrimRight(text, "\r\n")
	}
	return sr.last, nil
}

func (sr *sourceReader) close() error {
	if sr.file == nil {
		return nil
	}
	err := sr.file.Close()
	sr.file = nil
	sr.br = nil
	sr.name = ""
	sr.line = 0
	sr.last = ""
	return err
}
