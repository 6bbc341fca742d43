// Package specbuilder implements the Specifier Builder of spec.md
// §4.1: an accumulator that consumes type-specifier keywords in
// whatever order C11 allows them (`signed long long int` and
// `long long signed int` name the same type) and produces a single
// ctypes.Specifier, or reports the first combination that cannot
// legally occur together.
//
// Grounded on fragata-ai-chlicc's declspec(), which tracks counts of
// each keyword's bit in an int bitmask and switches on the
// accumulated mask once input ends. That counter-based technique
// replaces the teacher's parse.go parseDeclarationSpecifiers, which is
// a non-functional stub that unconditionally returns CInt regardless
// of what it consumed.
package specbuilder

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/diag"
	"github.com/cdecl-lang/cdecl/token"
)

// ErrMissingTypeSpecifier is returned by Finish when no type specifier
// at all was accumulated (spec.md §4.1, §7's MissingTypeSpecifier tag).
var ErrMissingTypeSpecifier = &diag.TaggedError{Tag: diag.MissingTypeSpecifier, Msg: "a type specifier is required"}

// bit is one keyword's contribution to the accumulated mask. Each
// basic keyword contributes once; `long` is special-cased to count up
// to two occurrences (long vs. long long) via a separate counter
// rather than a bit, following chlicc's declspec technique directly.
type bit uint32

const (
	bVoid bit = 1 << iota
	bBool
	bChar
	bShort
	bInt
	bFloat
	bDouble
	bSigned
	bUnsigned
	bComplex
	bStruct
	bUnion
	bEnum
	bTypedefName
	bTypeof
)

// Builder accumulates type-specifier keywords for one declaration's
// specifier-qualifier-list. It carries no position/diagnostic state of
// its own; callers (the Coordinator) report errors using their own
// token positions, since a Builder may be consulted more than once
// while backtracking over an ambiguous declaration-vs-expression
// boundary is never required here (spec.md §4.4 resolves that
// statically by keyword, not by backtracking).
type Builder struct {
	mask     bit
	longs    int // 0, 1 ("long"), or 2 ("long long")
	named    ctypes.Type // set by Typedef/TagType/Typeof; mask bit records which
	complete bool
}

// New returns an empty Builder, ready to accept its first keyword.
func New() *Builder { return &Builder{} }

// Add feeds one basic type-specifier keyword (void, char, int, signed,
// unsigned, _Bool, float, double, _Complex, or one of short/long) into
// the builder. struct/union/enum/typeof carry their own sub-grammar
// and a resolved Type, so they go through TagType/Typeof/Typedef
// instead of Add.
func (b *Builder) Add(k token.Kind) error {
	switch k {
	case token.VOID:
		return b.set(bVoid, k)
	case token.BOOL_KW:
		return b.set(bBool, k)
	case token.CHAR_KW:
		return b.set(bChar, k)
	case token.SHORT:
		return b.set(bShort, k)
	case token.INT_KW:
		return b.set(bInt, k)
	case token.FLOAT_KW:
		return b.set(bFloat, k)
	case token.DOUBLE_KW:
		return b.set(bDouble, k)
	case token.SIGNED:
		return b.set(bSigned, k)
	case token.UNSIGNED:
		return b.set(bUnsigned, k)
	case token.COMPLEX:
		return b.set(bComplex, k)
	case token.LONG:
		b.longs++
		if b.longs > 2 {
			b.longs = 2
			return &diag.TaggedError{Tag: diag.DuplicateSpecifier, Msg: "'long' specified too many times"}
		}
		return nil
	default:
		return errors.Errorf("%s is not a basic type specifier", k)
	}
}

func (b *Builder) set(bt bit, k token.Kind) error {
	if b.mask&(bTypedefName|bStruct|bUnion|bEnum|bTypeof) != 0 {
		return errors.Errorf("cannot combine %s with a tag/typedef type", k)
	}
	if bt != bSigned && bt != bUnsigned && b.mask&bt != 0 {
		return &diag.TaggedError{Tag: diag.DuplicateSpecifier, Msg: fmt.Sprintf("duplicate '%s'", k)}
	}
	b.mask |= bt
	return nil
}

// TagType records a struct/union/enum specifier already resolved to a
// Type by the Coordinator (which owns tag-scope lookup). Only one
// basic/tag/typedef/typeof specifier may occur in a declaration, so
// this fails if the builder already saw one.
func (b *Builder) TagType(spec ctypes.Specifier, t ctypes.Type) error {
	var bt bit
	switch spec {
	case ctypes.Struct:
		bt = bStruct
	case ctypes.Union:
		bt = bUnion
	case ctypes.Enum:
		bt = bEnum
	default:
		return errors.Errorf("internal error: %s is not a tag specifier", spec)
	}
	if b.mask != 0 || b.longs != 0 {
		return errors.New("cannot combine a tag type with another type specifier")
	}
	b.mask = bt
	b.named = t
	return nil
}

// Typedef records that the declaration's type-specifier is a
// previously-declared typedef name resolving to t.
func (b *Builder) Typedef(t ctypes.Type) error {
	if b.mask != 0 || b.longs != 0 {
		return errors.New("cannot combine a typedef name with another type specifier")
	}
	b.mask = bTypedefName
	b.named = t
	return nil
}

// Typeof records a `typeof(expr-or-type)` specifier (spec.md §12
// supplement) already resolved to t by the Coordinator.
func (b *Builder) Typeof(t ctypes.Type) error {
	if b.mask != 0 || b.longs != 0 {
		return errors.New("cannot combine 'typeof' with another type specifier")
	}
	b.mask = bTypeof
	b.named = t
	return nil
}

// Empty reports whether Add/TagType/Typedef/Typeof has been called yet.
func (b *Builder) Empty() bool { return b.mask == 0 && b.longs == 0 }

// Finish resolves the accumulated keywords into a single ctypes.Type,
// per the combine table implied by C11 6.7.2's list of valid
// specifier combinations. An empty builder is an error here
// (ErrMissingTypeSpecifier, with no type); the coordinator reports it
// and then substitutes int itself.
func (b *Builder) Finish() (ctypes.Type, error) {
	if b.longs > 0 && b.mask&^(bInt|bDouble|bSigned|bUnsigned|bComplex) != 0 {
		return ctypes.Type{}, errors.New("cannot combine 'long' with this type specifier")
	}
	if b.longs == 2 && b.mask&(bDouble|bComplex) != 0 {
		return ctypes.Type{}, errors.New("cannot combine 'long long' with a floating type")
	}
	switch b.mask {
	case bTypedefName, bTypeof:
		return b.named, nil
	case bStruct:
		return b.named, nil
	case bUnion:
		return b.named, nil
	case bEnum:
		return b.named, nil
	case bVoid:
		return ctypes.Primitive(ctypes.Void), nil
	case bBool:
		return ctypes.Primitive(ctypes.Bool), nil
	case bFloat:
		return ctypes.Primitive(ctypes.Float), nil
	case bFloat | bComplex:
		return ctypes.Primitive(ctypes.ComplexFloat), nil
	case bDouble:
		if b.longs == 1 {
			return ctypes.Primitive(ctypes.LongDouble), nil
		}
		return ctypes.Primitive(ctypes.Double), nil
	case bDouble | bComplex:
		if b.longs == 1 {
			return ctypes.Primitive(ctypes.ComplexLongDouble), nil
		}
		return ctypes.Primitive(ctypes.ComplexDouble), nil
	case bComplex:
		return ctypes.Primitive(ctypes.ComplexDouble), &diag.TaggedError{Tag: diag.IsolatedComplex, Msg: "'_Complex' without a base floating type"}
	}
	if b.mask&bComplex != 0 {
		return ctypes.Type{}, errors.New("'_Complex' without a floating base type")
	}
	return b.finishInteger()
}

// finishInteger resolves every combination of char/short/int/long/
// signed/unsigned, which chlicc's declspec handles via the same
// counter-based switch this mirrors. 'signed' and 'unsigned' together
// is a reported-and-continued diagnostic (spec.md §7): a best-effort
// type is still produced (favoring 'unsigned', whichever of the two
// keywords came last), with the conflict attached as a non-fatal
// trailing error.
func (b *Builder) finishInteger() (ctypes.Type, error) {
	base := b.mask &^ (bSigned | bUnsigned)
	unsigned := b.mask&bUnsigned != 0
	signed := b.mask&bSigned != 0

	t, err := b.resolveIntegerCombination(base, unsigned, signed)
	if err != nil {
		return ctypes.Type{}, err
	}
	if signed && unsigned {
		return t, &diag.TaggedError{Tag: diag.CannotCombineSpecifier, Msg: "cannot combine 'signed' and 'unsigned'"}
	}
	return t, nil
}

func (b *Builder) resolveIntegerCombination(base bit, unsigned, signed bool) (ctypes.Type, error) {
	switch {
	case base == 0 && b.longs == 0:
		if unsigned || signed {
			return primInt(unsigned), nil
		}
		return ctypes.Type{}, ErrMissingTypeSpecifier
	case base == bChar:
		if unsigned {
			return ctypes.Primitive(ctypes.UChar), nil
		}
		if signed {
			return ctypes.Primitive(ctypes.SChar), nil
		}
		return ctypes.Primitive(ctypes.Char), nil
	case base == bShort, base == bShort|bInt:
		return primShort(unsigned), nil
	case base == 0 && b.longs == 1:
		return primLong(unsigned), nil
	case base == 0 && b.longs == 2:
		return primLongLong(unsigned), nil
	case base == bInt && b.longs == 0:
		return primInt(unsigned), nil
	case base == bInt && b.longs == 1:
		return primLong(unsigned), nil
	case base == bInt && b.longs == 2:
		return primLongLong(unsigned), nil
	}
	return ctypes.Type{}, errors.New("invalid combination of type specifiers")
}

func primInt(unsigned bool) ctypes.Type {
	if unsigned {
		return ctypes.Primitive(ctypes.UInt)
	}
	return ctypes.Primitive(ctypes.Int)
}

func primShort(unsigned bool) ctypes.Type {
	if unsigned {
		return ctypes.Primitive(ctypes.UShort)
	}
	return ctypes.Primitive(ctypes.Short)
}

func primLong(unsigned bool) ctypes.Type {
	if unsigned {
		return ctypes.Primitive(ctypes.ULong)
	}
	return ctypes.Primitive(ctypes.Long)
}

func primLongLong(unsigned bool) ctypes.Type {
	if unsigned {
		return ctypes.Primitive(ctypes.ULongLong)
	}
	return ctypes.Primitive(ctypes.LongLong)
}
