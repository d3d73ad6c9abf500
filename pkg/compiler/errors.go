package compiler

import (
	"fmt"
	"strings"
)

// Sentinel strings written when a category accumulated no records.
// They exist only at the serialization boundary; code tests Count(), never
// compares against these.
const (
	NoLexicalErrors  = "There is no lexical errors."
	NoSyntaxErrors   = "There is no syntax error."
	NoSemanticErrors = "The input program is semantically correct."
)

// Diagnostic is one accumulated error record.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// ErrorList accumulates diagnostics for one category (lexical, syntax or
// semantic). Append-only for the duration of a compilation run.
type ErrorList struct {
	records  []Diagnostic
	sentinel string // written by Text() when no records accumulated
}

func newErrorList(sentinel string) *ErrorList {
	return &ErrorList{sentinel: sentinel}
}

func (e *ErrorList) Add(line int, format string, args ...any) {
	e.records = append(e.records, Diagnostic{Line: line, Message: fmt.Sprintf(format, args...)})
}

// Count reports how many records were accumulated.
func (e *ErrorList) Count() int { return len(e.records) }

// Records returns the accumulated diagnostics in append order.
func (e *ErrorList) Records() []Diagnostic { return e.records }

// Text renders the category for its error file: one record per line, or the
// category's sentinel when the run was clean.
func (e *ErrorList) Text() string {
	if len(e.records) == 0 {
		return e.sentinel
	}
	var sb strings.Builder
	for _, d := range e.records {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
