// Package ctypes is the Type Representation component of spec.md §3-4.2:
// the concrete data model for C types, the arena that owns their
// derived-type payloads, and the semantic queries over them. Grounded
// in the teacher's parse/ctypes.go (CType/Primitive/Array/Ptr/Struct/
// FunctionType), generalized from the teacher's fixed x86-64 sizes and
// single Struct/no-Enum/no-VLA model to the full closed specifier set
// spec.md §3 requires.
package ctypes

import "fmt"

// Specifier is the closed tag enumeration of spec.md §3.
type Specifier uint8

const (
	Void Specifier = iota
	Bool

	Char
	SChar
	UChar
	Short
	UShort
	Int
	UInt
	Long
	ULong
	LongLong
	ULongLong

	Float
	Double
	LongDouble
	ComplexFloat
	ComplexDouble
	ComplexLongDouble

	Pointer
	Array
	StaticArray
	IncompleteArray
	VariableLenArray
	UnspecifiedVariableLenArray
	Func
	VarArgsFunc
	OldStyleFunc
	Struct
	Union
	Enum

	// pending is an internal placeholder used only by declparser's
	// declarator assembly (spec.md §4.3); it never appears in a Type
	// returned to a caller outside this module, because combine always
	// overwrites it before the finished Type escapes.
	pending
)

var specNames = map[Specifier]string{
	Void: "void", Bool: "bool", Char: "char", SChar: "schar", UChar: "uchar",
	Short: "short", UShort: "ushort", Int: "int", UInt: "uint",
	Long: "long", ULong: "ulong", LongLong: "long_long", ULongLong: "ulong_long",
	Float: "float", Double: "double", LongDouble: "long_double",
	ComplexFloat: "complex_float", ComplexDouble: "complex_double",
	ComplexLongDouble: "complex_long_double",
	Pointer: "pointer", Array: "array", StaticArray: "static_array",
	IncompleteArray: "incomplete_array", VariableLenArray: "variable_len_array",
	UnspecifiedVariableLenArray: "unspecified_variable_len_array",
	Func:     "func", VarArgsFunc: "var_args_func", OldStyleFunc: "old_style_func",
	Struct: "struct", Union: "union", Enum: "enum",
}

func (s Specifier) String() string {
	if n, ok := specNames[s]; ok {
		return n
	}
	return "?"
}

// IsDerived reports whether s carries a payload that itself wraps
// another Type (pointer/array/VLA/function) as opposed to being a leaf
// specifier. combine's recursion bottoms out exactly when IsDerived is false.
func (s Specifier) IsDerived() bool {
	switch s {
	case Pointer, Array, StaticArray, IncompleteArray, VariableLenArray,
		UnspecifiedVariableLenArray, Func, VarArgsFunc, OldStyleFunc:
		return true
	}
	return false
}

func (s Specifier) isArrayLike() bool {
	switch s {
	case Array, StaticArray, IncompleteArray, VariableLenArray, UnspecifiedVariableLenArray:
		return true
	}
	return false
}

func (s Specifier) isFuncLike() bool {
	switch s {
	case Func, VarArgsFunc, OldStyleFunc:
		return true
	}
	return false
}

// Qualifiers is the independent set of booleans described in spec.md §3.
type Qualifiers struct {
	Const, Volatile, Restrict, Atomic bool
}

func (q Qualifiers) any() bool { return q.Const || q.Volatile || q.Restrict || q.Atomic }

func (q Qualifiers) union(o Qualifiers) Qualifiers {
	return Qualifiers{
		Const:    q.Const || o.Const,
		Volatile: q.Volatile || o.Volatile,
		Restrict: q.Restrict || o.Restrict,
		Atomic:   q.Atomic || o.Atomic,
	}
}

// Param is one entry of a Function's parameter list.
type Param struct {
	Name     string
	Type     Type
	Register bool
}

// Function is the auxiliary descriptor for func/var_args_func/old_style_func.
type Function struct {
	Return Type
	Params []Param
}

// ExprRef is an opaque reference to an expression node, owned by the
// expression evaluator collaborator (spec.md §1, "deliberately out of
// scope"). This module never inspects it, only stores and forwards it.
type ExprRef interface{}

// Array is the auxiliary descriptor for array/static_array/incomplete_array.
type Array struct {
	Elem   Type
	Length uint64 // meaningless when Specifier is IncompleteArray
}

// VLA is the auxiliary descriptor for variable_len_array.
type VLA struct {
	Elem    Type
	LenExpr ExprRef
}

// Field is one member of a Record.
type Field struct {
	Name     string
	Type     Type
	BitWidth uint32 // 0 = not a bit-field
}

// Record is the auxiliary descriptor for struct/union. It is
// arena-owned and referenced by identity: two Types built from the
// same *Record are the same record, full stop, even before Complete
// is called. completed starts false; Complete mutates the descriptor
// in place so every earlier reference observes the completion, per
// spec.md §3 invariant 7 and the cyclic-reference design note in §9.
type Record struct {
	Name       string
	Fields     []Field
	size       uint32
	align      uint32
	completed  bool
}

func (r *Record) Complete(fields []Field, size, align uint32) {
	r.Fields = fields
	r.size = size
	r.align = align
	r.completed = true
}

func (r *Record) IsComplete() bool { return r.completed }

// Enumerator is one member of an Enum.
type Enumerator struct {
	Name  string
	Type  Type
	Value uint64
}

// Enum is the auxiliary descriptor for enum, also arena-owned and
// identity-referenced like Record.
type Enum struct {
	Name        string
	Tag         Type // the integer type backing the enum's representation
	Enumerators []Enumerator
	completed   bool
}

func (e *Enum) Complete(tag Type, enumerators []Enumerator) {
	e.Tag = tag
	e.Enumerators = enumerators
	e.completed = true
}

func (e *Enum) IsComplete() bool { return e.completed }

// Type is the value type described in spec.md §3: specifier,
// qualifiers, alignment, and a specifier-dependent payload. Types are
// small values copied by structure; only the payload pointers
// (elem/fn/arr/vla/rec/enumT) are shared, and all of them point into a
// single Arena for the owning translation unit.
type Type struct {
	Spec  Specifier
	Qual  Qualifiers
	Align uint32 // 0 = natural alignment for Spec

	elem   *Type     // pointer, unspecified_variable_len_array
	fn     *Function // func, var_args_func, old_style_func
	arr    *Array    // array, static_array, incomplete_array
	vla    *VLA      // variable_len_array
	rec    *Record   // struct, union
	enumT  *Enum     // enum
}

// Primitive constructs a leaf Type with no payload.
func Primitive(spec Specifier) Type { return Type{Spec: spec} }

// PointerTo constructs a pointer Type whose pointee is elem, allocated in a.
func PointerTo(a *Arena, elem Type, qual Qualifiers) Type {
	return Type{Spec: Pointer, Qual: qual, elem: a.newElem(elem)}
}

// Elem returns the referenced element Type of a pointer,
// unspecified_variable_len_array, array, static_array,
// incomplete_array, or variable_len_array, per spec.md §4.2's
// elem_type. Any other specifier reports false.
func (t Type) Elem() (Type, bool) {
	switch t.Spec {
	case Pointer, UnspecifiedVariableLenArray:
		if t.elem == nil {
			return Type{}, false
		}
		return *t.elem, true
	case Array, StaticArray, IncompleteArray:
		if t.arr == nil {
			return Type{}, false
		}
		return t.arr.Elem, true
	case VariableLenArray:
		if t.vla == nil {
			return Type{}, false
		}
		return t.vla.Elem, true
	}
	return Type{}, false
}

func (t Type) Function() (*Function, bool) {
	if !t.Spec.isFuncLike() {
		return nil, false
	}
	return t.fn, t.fn != nil
}

func (t Type) ArrayDescriptor() (*Array, bool) {
	if !t.Spec.isArrayLike() || t.Spec == VariableLenArray || t.Spec == UnspecifiedVariableLenArray {
		return nil, false
	}
	return t.arr, t.arr != nil
}

func (t Type) VLADescriptor() (*VLA, bool) {
	if t.Spec != VariableLenArray {
		return nil, false
	}
	return t.vla, t.vla != nil
}

func (t Type) Record() (*Record, bool) {
	if t.Spec != Struct && t.Spec != Union {
		return nil, false
	}
	return t.rec, t.rec != nil
}

func (t Type) EnumDescriptor() (*Enum, bool) {
	if t.Spec != Enum {
		return nil, false
	}
	return t.enumT, t.enumT != nil
}

// WithQualifiers returns a copy of t with q merged into its existing qualifiers.
func (t Type) WithQualifiers(q Qualifiers) Type {
	t.Qual = t.Qual.union(q)
	return t
}

// WithAlignment returns a copy of t with an explicit _Alignas(n) alignment.
func (t Type) WithAlignment(n uint32) Type {
	t.Align = n
	return t
}

func (t Type) String() string {
	return fmt.Sprintf("Type{%s}", Dump(t, ""))
}
