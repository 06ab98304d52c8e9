// Package textpos provides types and functions for working with line-based
// positions of text in a textual document, used to attribute RDF syntax errors
// to a line and column of the fetched document.
package textpos

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Line is the line number of some text in a file.
type Line struct {
	value int
}

// LineFromOffset returns a Line object from an offset value.
func LineFromOffset(o int) Line { return LineFromOrdinal(o + 1) }

// LineFromOrdinal returns a Line object from a positive value.
func LineFromOrdinal(o int) Line { return Line{o} }

// Offset returns the line number where 0 indicates the first line.
func (n Line) Offset() int { return n.Ordinal() - 1 }

// Ordinal returns the line number where 1 indicates the first line.
func (n Line) Ordinal() int { return n.value }

// String returns the ordinal value encoded as a base 10 string.
func (n Line) String() string { return fmt.Sprintf("%d", n.Ordinal()) }

// IsValid reports if the line value is valid (ordinal >= 1).
func (n Line) IsValid() bool { return n.Ordinal() > 0 }

// Column is a number indicating a horizontal offset within a line of text,
// counted in characters.
type Column struct {
	value int
}

// ColumnFromOffset returns a Column object from an offset value (where 0 indicates the first column).
func ColumnFromOffset(o int) Column { return ColumnFromOrdinal(o + 1) }

// ColumnFromOrdinal returns a Column object from an ordinal value (where 1 indicates the first column).
func ColumnFromOrdinal(o int) Column { return Column{o} }

// Offset returns the Column number where 0 indicates the first Column.
func (n Column) Offset() int { return n.Ordinal() - 1 }

// Ordinal returns the Column number where 1 indicates the first Column.
func (n Column) Ordinal() int { return n.value }

// String returns the ordinal value encoded as a base 10 string.
func (n Column) String() string { return fmt.Sprintf("%d", n.Ordinal()) }

// IsValid reports if the column value is valid (ordinal >= 1).
func (n Column) IsValid() bool { return n.Ordinal() > 0 }

// LineColumn is a two dimensional textual position (line, column).
type LineColumn struct {
	line Line
	col  Column
}

// MakeLineColumn returns a new LineColumn tuple.
func MakeLineColumn(line Line, col Column) LineColumn {
	return LineColumn{line, col}
}

// Line returns the line for the tuple.
func (p LineColumn) Line() Line { return p.line }

// Column returns the column for the tuple.
func (p LineColumn) Column() Column { return p.col }

// String returns a string representation of a LineColumn pair.
//
// If column and line are valid, returns "lineOrdinal:columnOrdinal."
func (p LineColumn) String() string {
	l, c := "-", "-"
	if p.Line().IsValid() {
		l = p.Line().String()
	}
	if p.Column().IsValid() {
		c = p.Column().String()
	}
	return fmt.Sprintf("%s:%s", l, c)
}

// FromByteOffset returns the position of the byte at offset within text. An
// offset past the end of text is clamped to the end.
func FromByteOffset(text string, offset int) LineColumn {
	if offset > len(text) {
		offset = len(text)
	}
	if offset < 0 {
		offset = 0
	}
	before := text[:offset]
	line := strings.Count(before, "\n")
	lineStart := strings.LastIndexByte(before, '\n') + 1
	col := utf8.RuneCountInString(before[lineStart:])
	return MakeLineColumn(LineFromOffset(line), ColumnFromOffset(col))
}

// Error is an error attributed to a position within a textual document.
type Error struct {
	Pos LineColumn
	Err error
}

// Errorf returns an *Error at pos with a formatted message.
func Errorf(pos LineColumn, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Pos, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }
