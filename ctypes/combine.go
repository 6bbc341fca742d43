package ctypes

import (
	"github.com/pkg/errors"

	"github.com/cdecl-lang/cdecl/diag"
)

// Combine is the declarator-assembly primitive of spec.md §4.2. A
// declarator is parsed syntactically outside-in (pointer prefixes
// first, then array/function suffixes, recursing into parenthesized
// sub-declarators) but means something inside-out: the base type named
// by the declaration-specifiers ends up nested at the bottom of
// whatever chain of derived types the declarator describes.
//
// outer is a derived Type (pointer, array, or function) built while
// parsing progressed, with its innermost payload still a Hole.
// Combine walks outer's payload chain until it finds that Hole and
// replaces it with inner, returning the grafted result. Anything
// outside this module never sees a Hole: declparser is the only
// caller, and it always calls Combine before the declarator it is
// building escapes to its own caller.
//
// This generalizes the teacher's parse.go declarator logic, which
// hardcodes "pointer wraps outside array/function" (the wrong
// precedence for C) with no grafting step at all; here the caller
// decides nesting order by the order it builds `outer`, and Combine is
// the one place that performs the graft, so getting declarator
// precedence right is entirely declparser's job, not this function's.
func Combine(outer, inner Type) (Type, error) {
	if !outer.IsHole() && !outer.Spec.IsDerived() {
		return Type{}, errors.Errorf("combine: outer type %s is not derived and not a hole", outer.Spec)
	}
	return combineRec(outer, inner)
}

func combineRec(outer, inner Type) (Type, error) {
	if outer.IsHole() {
		return inner, nil
	}
	switch outer.Spec {
	case Pointer:
		if outer.elem == nil {
			return Type{}, errors.New("combine: derived type missing payload")
		}
		next, err := combineRec(*outer.elem, inner)
		if err != nil {
			return Type{}, err
		}
		outer.elem = &next
		return outer, nil
	case UnspecifiedVariableLenArray:
		if outer.elem == nil {
			return Type{}, errors.New("combine: derived type missing payload")
		}
		next, err := combineRec(*outer.elem, inner)
		if err != nil {
			return Type{}, err
		}
		if err := checkArrayElement(next); err != nil {
			return Type{}, err
		}
		outer.elem = &next
		return outer, nil
	case Array, StaticArray, IncompleteArray:
		if outer.arr == nil {
			return Type{}, errors.New("combine: array missing payload")
		}
		next, err := combineRec(outer.arr.Elem, inner)
		if err != nil {
			return Type{}, err
		}
		if err := checkArrayElement(next); err != nil {
			return Type{}, err
		}
		newArr := *outer.arr
		newArr.Elem = next
		outer.arr = &newArr
		return outer, nil
	case VariableLenArray:
		if outer.vla == nil {
			return Type{}, errors.New("combine: VLA missing payload")
		}
		next, err := combineRec(outer.vla.Elem, inner)
		if err != nil {
			return Type{}, err
		}
		if err := checkArrayElement(next); err != nil {
			return Type{}, err
		}
		newVLA := *outer.vla
		newVLA.Elem = next
		outer.vla = &newVLA
		return outer, nil
	case Func, VarArgsFunc, OldStyleFunc:
		if outer.fn == nil {
			return Type{}, errors.New("combine: function missing payload")
		}
		next, err := combineRec(outer.fn.Return, inner)
		if err != nil {
			return Type{}, err
		}
		if next.IsArray() {
			return Type{}, &diag.TaggedError{Tag: diag.FunctionReturnsArray, Msg: "function cannot return array type"}
		}
		if next.IsFunc() {
			return Type{}, &diag.TaggedError{Tag: diag.FunctionReturnsFunction, Msg: "function cannot return function type"}
		}
		newFn := *outer.fn
		newFn.Return = next
		outer.fn = &newFn
		return outer, nil
	}
	// outer is a leaf (non-derived, non-hole) type: there is nowhere
	// left to graft inner, which means the caller built a declarator
	// chain with no Hole in it. That is a bug in declparser, not a
	// malformed-input condition, so it is reported the same way.
	return Type{}, errors.Errorf("combine: no hole found under %s", outer.Spec)
}

// checkArrayElement enforces spec.md §4.2's array/VLA composition
// constraints on next, the type about to become an array's element: it
// must have complete size and must not itself be a function (C11
// 6.7.6.2p1), and if next is itself array-like (this array is not the
// outermost array in the chain), neither a 'static' bound nor a
// qualifier may appear on it (C11 6.7.6.2p1 restricts both to the
// outermost array of a parameter declaration). Spec and Qual on next
// are already fixed at the moment its own bracket was parsed, so this
// check is correct whether or not next's own element has been grafted
// yet.
func checkArrayElement(next Type) error {
	if next.IsFunc() {
		return &diag.TaggedError{Tag: diag.ArrayElementIsFunction, Msg: "array of function is not allowed"}
	}
	if next.HasIncompleteSize() {
		return &diag.TaggedError{Tag: diag.ArrayElementIncomplete, Msg: "array element has incomplete type"}
	}
	if next.Spec.isArrayLike() {
		if next.Spec == StaticArray || next.Spec == UnspecifiedVariableLenArray {
			return &diag.TaggedError{Tag: diag.StaticArrayNested, Msg: "'static' array bound is only allowed in the outermost parameter array"}
		}
		if next.Qual.any() {
			return &diag.TaggedError{Tag: diag.QualifiedArrayNested, Msg: "qualifier on non-outermost array is not allowed"}
		}
	}
	return nil
}
