package ctypes

// Arena is the ownership boundary of spec.md §5: every auxiliary
// descriptor (Function, Array, VLA, Record, Enum) and every pointer
// Type's elem allocated while building one translation unit's types
// traces back to exactly one Arena, and the whole graph is released at
// once by dropping the Arena.
//
// The teacher allocates each CType payload with a bare `&T{...}`
// literal and lets the Go GC reclaim it (see parse/ctypes.go's
// `&Ptr{ty}`/`&Array{ty, n}` constructors). A literal bump-pointer
// arena doesn't fit Go: an append-growable slice of descriptors would
// relocate on growth and invalidate every pointer already handed out
// to a Type. So New here keeps the teacher's one-object-per-allocation
// idiom and uses Arena purely as a bookkeeping/count object, not as
// the backing storage itself; per-translation-unit release happens by
// simply letting the Arena and everything it allocated become
// unreachable together.
type Arena struct {
	allocCount int
}

// NewArena returns a fresh, empty Arena for one translation unit.
func NewArena() *Arena { return &Arena{} }

// AllocCount reports how many descriptors this Arena has allocated,
// for tests asserting that combine() doesn't leak extra allocations.
func (a *Arena) AllocCount() int { return a.allocCount }

func (a *Arena) newElem(t Type) *Type {
	a.allocCount++
	v := t
	return &v
}

func (a *Arena) NewFunction(ret Type, params []Param) *Function {
	a.allocCount++
	return &Function{Return: ret, Params: params}
}

func (a *Arena) NewArray(elem Type, length uint64) *Array {
	a.allocCount++
	return &Array{Elem: elem, Length: length}
}

func (a *Arena) NewVLA(elem Type, lenExpr ExprRef) *VLA {
	a.allocCount++
	return &VLA{Elem: elem, LenExpr: lenExpr}
}

// NewRecord allocates a fresh, incomplete struct/union descriptor.
// Callers hold onto the returned pointer and call Complete on it once
// the member list is known, so every Type already referencing this
// Record observes completion without being rebuilt.
func (a *Arena) NewRecord(name string) *Record {
	a.allocCount++
	return &Record{Name: name}
}

func (a *Arena) NewEnum(name string) *Enum {
	a.allocCount++
	return &Enum{Name: name}
}

// PointerType builds a pointer-to-t Type allocated in a.
func (a *Arena) PointerType(t Type, q Qualifiers) Type {
	return Type{Spec: Pointer, Qual: q, elem: a.newElem(t)}
}

// ArrayType builds a fixed-length array-of-t Type allocated in a.
func (a *Arena) ArrayType(t Type, length uint64) Type {
	return Type{Spec: Array, arr: a.NewArray(t, length)}
}

// StaticArrayType builds a `static`-bounded array parameter type (spec.md §4.3).
func (a *Arena) StaticArrayType(t Type, length uint64) Type {
	return Type{Spec: StaticArray, arr: a.NewArray(t, length)}
}

// IncompleteArrayType builds an array-of-t Type with unknown length.
func (a *Arena) IncompleteArrayType(t Type) Type {
	return Type{Spec: IncompleteArray, arr: a.NewArray(t, 0)}
}

// VariableLenArrayType builds a `type ident[expr]` VLA Type.
func (a *Arena) VariableLenArrayType(t Type, lenExpr ExprRef) Type {
	return Type{Spec: VariableLenArray, vla: a.NewVLA(t, lenExpr)}
}

// UnspecifiedVLAType builds a `type ident[*]` VLA Type (spec.md §4.3).
func (a *Arena) UnspecifiedVLAType(t Type) Type {
	return Type{Spec: UnspecifiedVariableLenArray, elem: a.newElem(t)}
}

// FuncType builds a function-returning-ret Type with the given
// parameter list and calling convention specifier (Func, VarArgsFunc,
// or OldStyleFunc).
func (a *Arena) FuncType(spec Specifier, ret Type, params []Param) Type {
	return Type{Spec: spec, fn: a.NewFunction(ret, params)}
}

// RecordType wraps an existing Record descriptor (struct or union) in a Type.
func (a *Arena) RecordType(spec Specifier, rec *Record) Type {
	return Type{Spec: spec, rec: rec}
}

// EnumType wraps an existing Enum descriptor in a Type.
func (a *Arena) EnumType(e *Enum) Type {
	return Type{Spec: Enum, enumT: e}
}

// Hole returns the sentinel placeholder Type declparser uses to mark
// "the spot where the base type eventually goes" while it assembles a
// declarator outside-in (spec.md §4.3). Combine is the only operation
// that ever resolves one; a Hole must never escape into a finished
// declaration.
func Hole() Type { return Type{Spec: pending} }

// IsHole reports whether t is an unresolved Hole.
func (t Type) IsHole() bool { return t.Spec == pending }
