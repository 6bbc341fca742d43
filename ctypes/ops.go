package ctypes

import "github.com/cdecl-lang/cdecl/target"

// IsVoid, IsInt, IsFloat and friends implement the classification
// queries of spec.md §4.2. Grounded on the teacher's IsPtrType/
// IsIntType/IsScalarType helpers in parse/ctypes.go, widened from the
// teacher's six-primitive set to the full specifier list.

func (t Type) IsVoid() bool { return t.Spec == Void }

func (t Type) IsBool() bool { return t.Spec == Bool }

func (t Type) IsInt() bool {
	switch t.Spec {
	case Bool, Char, SChar, UChar, Short, UShort, Int, UInt, Long, ULong, LongLong, ULongLong, Enum:
		return true
	}
	return false
}

func (t Type) IsFloat() bool {
	switch t.Spec {
	case Float, Double, LongDouble, ComplexFloat, ComplexDouble, ComplexLongDouble:
		return true
	}
	return false
}

func (t Type) IsArithmetic() bool { return t.IsInt() || t.IsFloat() }

func (t Type) IsPointer() bool { return t.Spec == Pointer }

func (t Type) IsArray() bool { return t.Spec.isArrayLike() }

func (t Type) IsFunc() bool { return t.Spec.isFuncLike() }

func (t Type) IsScalar() bool { return t.IsArithmetic() || t.IsPointer() }

func (t Type) IsEnumOrRecord() bool {
	return t.Spec == Enum || t.Spec == Struct || t.Spec == Union
}

// IsUnsignedInt reports whether t is an unsigned integer type. Plain
// `char`'s signedness is target-defined, so ctx resolves it; every
// other unsigned kind is unsigned on every target.
func (t Type) IsUnsignedInt(ctx target.Context) bool {
	switch t.Spec {
	case Bool, UChar, UShort, UInt, ULong, ULongLong:
		return true
	case Char:
		return !ctx.CharIsSigned()
	}
	return false
}

// HasIncompleteSize reports whether t's size cannot currently be
// computed: void, an incomplete array, or a struct/union/enum whose
// body hasn't been completed yet (spec.md §3 invariant 7, §4.2).
func (t Type) HasIncompleteSize() bool {
	switch t.Spec {
	case Void:
		return true
	case IncompleteArray:
		return true
	case Struct, Union:
		rec, ok := t.Record()
		return !ok || !rec.IsComplete()
	case Enum:
		e, ok := t.EnumDescriptor()
		return !ok || !e.IsComplete()
	}
	return false
}

// rank orders the integer conversion ranks spec.md §4.2 needs for
// usual-arithmetic-conversion-style promotion: higher ranks promote
// over lower ones of the same signedness tier.
var rank = map[Specifier]int{
	Bool: 0, Char: 1, SChar: 1, UChar: 1,
	Short: 2, UShort: 2,
	Int: 3, UInt: 3, Enum: 3,
	Long: 4, ULong: 4,
	LongLong: 5, ULongLong: 5,
}

// IntegerPromotion applies C11 6.3.1.1p2: any integer type with rank
// less than int promotes to int. C also allows promotion to unsigned
// int when int cannot represent every value of the original type, but
// Sizeof gives ushort 2 bytes and int 4 bytes on every target this
// module models, so every type ranked below int fits in int and there
// is no unsigned-int branch.
func IntegerPromotion(t Type, ctx target.Context) Type {
	if !t.IsInt() {
		return t
	}
	if rank[t.Spec] >= rank[Int] {
		return t
	}
	return Primitive(Int)
}

// Sizeof returns the size, in bytes, of t on ctx's target, per
// spec.md §4.2. Grounded on the teacher's fixed-size Primitive table
// in parse/ctypes.go, generalized to be target-parametric via
// target.LongSize and target.Context.PointerBits instead of hardcoded
// x86-64-Linux constants.
func Sizeof(t Type, ctx target.Context) (uint32, error) {
	if t.HasIncompleteSize() {
		return 0, errIncompleteSize(t)
	}
	switch t.Spec {
	case Bool, Char, SChar, UChar:
		return 1, nil
	case Short, UShort:
		return 2, nil
	case Int, UInt:
		return 4, nil
	case Long, ULong:
		return target.LongSize(ctx), nil
	case LongLong, ULongLong:
		return 8, nil
	case Float:
		return 4, nil
	case Double:
		return 8, nil
	case LongDouble:
		return 16, nil
	case ComplexFloat:
		return 8, nil
	case ComplexDouble:
		return 16, nil
	case ComplexLongDouble:
		return 32, nil
	case Pointer, StaticArray:
		return ctx.PointerBits() / 8, nil
	case Array:
		elemSize, err := Sizeof(t.arr.Elem, ctx)
		if err != nil {
			return 0, err
		}
		return elemSize * uint32(t.arr.Length), nil
	case Struct, Union:
		return t.rec.size, nil
	case Enum:
		return Sizeof(t.enumT.Tag, ctx)
	}
	return 0, errIncompleteSize(t)
}

// Alignof returns the alignment, in bytes, of t on ctx's target,
// honoring an explicit _Alignas override if one was recorded on t.
func Alignof(t Type, ctx target.Context) (uint32, error) {
	if t.Align != 0 {
		return t.Align, nil
	}
	switch t.Spec {
	case Struct, Union:
		if !t.rec.IsComplete() {
			return 0, errIncompleteSize(t)
		}
		return t.rec.align, nil
	case StaticArray:
		return ctx.PointerBits() / 8, nil
	case Array:
		return Alignof(t.arr.Elem, ctx)
	}
	return Sizeof(t, ctx)
}

// Eql implements the type-equality query of spec.md §4.2: structural
// equality down to alignment, with struct/union/enum compared by
// descriptor identity rather than by recursing into members (matching
// C's name-equivalence rule for tagged types). checkQualifiers controls
// whether cv-qualifiers participate in that comparison at every level of
// the recursion: callers comparing a declaration against a prior one for
// strict identity pass true; callers that only care about the
// unqualified shape (e.g. checking two pointers target compatible types
// regardless of a `const` on one side) pass false.
func Eql(a, b Type, checkQualifiers bool) bool {
	if a.Spec != b.Spec || a.Align != b.Align {
		return false
	}
	if checkQualifiers && a.Qual != b.Qual {
		return false
	}
	switch a.Spec {
	case Pointer, UnspecifiedVariableLenArray:
		ae, aok := a.Elem()
		be, bok := b.Elem()
		return aok == bok && (!aok || Eql(ae, be, checkQualifiers))
	case Array, StaticArray, IncompleteArray:
		if a.arr == nil || b.arr == nil {
			return a.arr == b.arr
		}
		return a.arr.Length == b.arr.Length && Eql(a.arr.Elem, b.arr.Elem, checkQualifiers)
	case VariableLenArray:
		if a.vla == nil || b.vla == nil {
			return a.vla == b.vla
		}
		return Eql(a.vla.Elem, b.vla.Elem, checkQualifiers)
	case Func, VarArgsFunc, OldStyleFunc:
		return eqlFunc(a.fn, b.fn, checkQualifiers)
	case Struct, Union:
		return a.rec == b.rec
	case Enum:
		return a.enumT == b.enumT
	}
	return true
}

func eqlFunc(a, b *Function, checkQualifiers bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !Eql(a.Return, b.Return, checkQualifiers) || len(a.Params) != len(b.Params) {
		return false
	}
	for i := range a.Params {
		if !Eql(a.Params[i].Type, b.Params[i].Type, checkQualifiers) {
			return false
		}
	}
	return true
}

type incompleteSizeError struct{ spec Specifier }

func (e incompleteSizeError) Error() string {
	return "size of incomplete type " + e.spec.String() + " is unknown"
}

func errIncompleteSize(t Type) error { return incompleteSizeError{t.Spec} }
