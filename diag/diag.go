// Package diag implements the diagnostic sink described in spec.md
// §6: a synchronous, ordered consumer of tagged diagnostic records.
// Adapted from the teacher's cpp.ErrorLoc/cpp.ErrWithLoc and the
// line-printing in report.go, generalized from "print straight to
// stderr" into a Sink interface with two concrete implementations.
package diag

import (
	"fmt"

	"github.com/cdecl-lang/cdecl/token"
)

// Tag identifies the kind of diagnostic. The set mirrors the error
// paths named across spec.md §4 and §7.
type Tag int

const (
	MissingTypeSpecifier Tag = iota
	DuplicateSpecifier
	CannotCombineSpecifier
	IsolatedComplex
	MultipleStorageClass
	InvalidThreadLocal
	DuplicateFunctionSpecifier
	InvalidFunctionSpecifier
	RestrictOnNonPointer
	DuplicateQualifier
	StaticArrayNested
	QualifiedArrayNested
	ArrayElementIncomplete
	ArrayElementIsFunction
	FunctionReturnsArray
	FunctionReturnsFunction
	VoidParameterMisuse
	EllipsisWithoutParameter
	ExpectedToken
	UnexpectedToken
	NotATypedef
	InitializerOnTypedef
	InitializerOnFunction
	ExternInitializerDowngrade
	NestedFunctionDefinition
	Redefinition
	StaticAssertFailed
	AlignasNotAllowed
	InlineOnNonFunction
	NoreturnOnNonFunction
	IncompleteTypeUse
)

var tagNames = map[Tag]string{
	MissingTypeSpecifier:      "missing type specifier",
	DuplicateSpecifier:        "duplicate specifier",
	CannotCombineSpecifier:    "cannot combine specifier",
	IsolatedComplex:           "'_Complex' without a base floating type",
	MultipleStorageClass:      "multiple storage classes",
	InvalidThreadLocal:        "invalid use of '_Thread_local'",
	DuplicateFunctionSpecifier: "duplicate function specifier",
	InvalidFunctionSpecifier:  "function specifier in a typedef declaration",
	RestrictOnNonPointer:      "'restrict' on a non-pointer type",
	DuplicateQualifier:        "duplicate qualifier",
	StaticArrayNested:         "'static' array bound outside outermost parameter array",
	QualifiedArrayNested:      "qualifier on non-outermost array constructor",
	ArrayElementIncomplete:    "array element has incomplete type",
	ArrayElementIsFunction:    "array element has function type",
	FunctionReturnsArray:      "function returns array type",
	FunctionReturnsFunction:   "function returns function type",
	VoidParameterMisuse:       "'void' parameter misuse",
	EllipsisWithoutParameter:  "'...' without a preceding named parameter",
	ExpectedToken:             "expected token",
	UnexpectedToken:           "unexpected token",
	NotATypedef:               "not a typedef name",
	InitializerOnTypedef:      "initializer on a typedef declaration",
	InitializerOnFunction:     "initializer on a function declaration",
	ExternInitializerDowngrade: "initializer on 'extern' declaration",
	NestedFunctionDefinition:  "nested function definition",
	Redefinition:              "redefinition",
	StaticAssertFailed:        "static assertion failed",
	AlignasNotAllowed:         "'_Alignas' not allowed in this context",
	InlineOnNonFunction:       "'inline' on a non-function",
	NoreturnOnNonFunction:     "'_Noreturn' on a non-function",
	IncompleteTypeUse:         "use of incomplete type",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return "diagnostic"
}

// Extra is the optional payload of a Record: either a plain string
// (for lexeme interpolation) or a Mismatch (for expected/actual
// token-kind errors).
type Extra interface{}

// Mismatch is the {expected, actual} payload for token-mismatch diagnostics.
type Mismatch struct {
	Expected token.Kind
	Actual   token.Kind
}

// Record is one diagnostic, matching spec.md §6's {tag, source_id,
// location, optional extra payload}.
type Record struct {
	Tag      Tag
	Pos      token.Pos
	Extra    Extra
	Typedef  *token.Token // optional: the typedef token that contributed a conflicting kind
}

func (r Record) String() string {
	msg := r.Tag.String()
	switch e := r.Extra.(type) {
	case string:
		msg = fmt.Sprintf("%s: %s", msg, e)
	case Mismatch:
		msg = fmt.Sprintf("expected %s but got %s", e.Expected, e.Actual)
	}
	if r.Typedef != nil {
		msg = fmt.Sprintf("%s (conflicts with typedef %q at %s)", msg, r.Typedef.Val, r.Typedef.Pos)
	}
	return fmt.Sprintf("%s: %s", r.Pos, msg)
}

// Sink is the external collaborator that consumes diagnostics. Calls
// are synchronous and the only ordering guarantee is submission order.
type Sink interface {
	Report(Record)
}

// CollectingSink accumulates every record it receives, for tests and
// for programmatic callers that want to inspect diagnostics before
// deciding what to do with them.
type CollectingSink struct {
	Records []Record
}

func (s *CollectingSink) Report(r Record) {
	s.Records = append(s.Records, r)
}

func (s *CollectingSink) HasTag(t Tag) bool {
	for _, r := range s.Records {
		if r.Tag == t {
			return true
		}
	}
	return false
}

// WriterSink hands each record, formatted as one line by
// Record.String, to its Write callback.
type WriterSink struct {
	Write func(string)
}

func (s *WriterSink) Report(r Record) {
	s.Write(r.String())
}

// TaggedError lets a lower layer (specbuilder, ctypes, declparser) raise
// an error that still carries the specific diagnostic Tag it corresponds
// to, so the Coordinator's top-level recovery can report it under the
// right tag instead of collapsing everything to UnexpectedToken.
type TaggedError struct {
	Tag Tag
	Msg string
}

func (e *TaggedError) Error() string { return e.Msg }
