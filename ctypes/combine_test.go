package ctypes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdecl-lang/cdecl/ctypes"
)

// These mirror the declarator shapes spec.md §4.3 singles out as the
// precedence cases the teacher's fixed-precedence parser gets wrong:
// `int *a[10]` is "array of pointer", not "pointer to array".

func TestCombinePointerThenArray(t *testing.T) {
	a := ctypes.NewArena()
	// int *a[10]: pointers(base) wraps int in Pointer directly (no hole
	// involved at that step, since there's no deferred suffix yet), then
	// declaratorSuffixes builds array(10, Hole) and Combine grafts the
	// pointer-to-int in as the array's element.
	ptrToInt := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{})
	suffix := a.ArrayType(ctypes.Hole(), 10)

	got, err := ctypes.Combine(suffix, ptrToInt)
	require.NoError(t, err)

	require.True(t, got.IsArray())
	arr, ok := got.ArrayDescriptor()
	require.True(t, ok)
	require.Equal(t, uint64(10), arr.Length)
	require.True(t, arr.Elem.IsPointer())
	elem, ok := arr.Elem.Elem()
	require.True(t, ok)
	require.Equal(t, ctypes.Int, elem.Spec)
}

func TestCombineParenPointerThenArray(t *testing.T) {
	a := ctypes.NewArena()
	// int (*b)[10]: the parenthesized `*b` parses against a Hole, giving
	// pointer(Hole); the array suffix builds array(10, Hole) separately;
	// the outer declarator first grafts its own base into the array
	// suffix, then grafts that whole array into the parenthesized
	// pointer's Hole, producing "pointer to array of int".
	pointerToHole := a.PointerType(ctypes.Hole(), ctypes.Qualifiers{})
	arraySuffix := a.ArrayType(ctypes.Hole(), 10)

	arrayOfInt, err := ctypes.Combine(arraySuffix, ctypes.Primitive(ctypes.Int))
	require.NoError(t, err)

	got, err := ctypes.Combine(pointerToHole, arrayOfInt)
	require.NoError(t, err)

	require.True(t, got.IsPointer())
	elem, ok := got.Elem()
	require.True(t, ok)
	require.True(t, elem.IsArray())
}

func TestCombineFunctionReturningPointer(t *testing.T) {
	a := ctypes.NewArena()
	// int *f(void): pointers(base) wraps int in Pointer, then the
	// function suffix func(Hole, []) grafts that pointer in as the
	// return type.
	ptrToInt := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{})
	fn := a.FuncType(ctypes.Func, ctypes.Hole(), nil)

	got, err := ctypes.Combine(fn, ptrToInt)
	require.NoError(t, err)
	require.True(t, got.IsFunc())
	f, ok := got.Function()
	require.True(t, ok)
	require.True(t, f.Return.IsPointer())
}

func TestCombineNoHoleIsAnError(t *testing.T) {
	_, err := ctypes.Combine(ctypes.Primitive(ctypes.Int), ctypes.Primitive(ctypes.Char))
	require.Error(t, err)
}

func TestHoleNeverEscapesASuccessfulCombine(t *testing.T) {
	a := ctypes.NewArena()
	got, err := ctypes.Combine(a.ArrayType(ctypes.Hole(), 4), ctypes.Primitive(ctypes.Char))
	require.NoError(t, err)
	require.False(t, got.IsHole())
	elem, _ := got.Elem()
	require.False(t, elem.IsHole())
}

// The remaining tests exercise spec.md §4.2's composed-type
// constraints: what Combine must reject during the recursive descent,
// not just what it must accept.

func TestCombineArrayOfFunctionIsRejected(t *testing.T) {
	a := ctypes.NewArena()
	// int a[3](void): array whose element is a function.
	fn := a.FuncType(ctypes.Func, ctypes.Hole(), nil)
	arraySuffix := a.ArrayType(ctypes.Hole(), 3)

	_, err := ctypes.Combine(arraySuffix, fn)
	require.Error(t, err)
}

func TestCombineArrayOfIncompleteArrayIsRejected(t *testing.T) {
	a := ctypes.NewArena()
	// int a[3][]: an incomplete array nested inside another array.
	inner := a.IncompleteArrayType(ctypes.Hole())
	outer := a.ArrayType(ctypes.Hole(), 3)

	_, err := ctypes.Combine(outer, inner)
	require.Error(t, err)
}

func TestCombineQualifiedNonOutermostArrayIsRejected(t *testing.T) {
	a := ctypes.NewArena()
	// int a[3][const 4]: the qualifier binds to the inner (non-outermost)
	// array, which C11 forbids.
	inner := a.ArrayType(ctypes.Hole(), 4).WithQualifiers(ctypes.Qualifiers{Const: true})
	outer := a.ArrayType(ctypes.Hole(), 3)

	_, err := ctypes.Combine(outer, inner)
	require.Error(t, err)
}

func TestCombineStaticNonOutermostArrayIsRejected(t *testing.T) {
	a := ctypes.NewArena()
	// int a[3][static 4]: 'static' may only bound the outermost array of
	// a parameter declaration.
	inner := a.StaticArrayType(ctypes.Hole(), 4)
	outer := a.ArrayType(ctypes.Hole(), 3)

	_, err := ctypes.Combine(outer, inner)
	require.Error(t, err)
}

func TestCombineFunctionReturningArrayIsRejected(t *testing.T) {
	a := ctypes.NewArena()
	// int f()[3]: function returning an array.
	fn := a.FuncType(ctypes.Func, ctypes.Hole(), nil)
	arraySuffix := a.ArrayType(ctypes.Hole(), 3)

	_, err := ctypes.Combine(fn, arraySuffix)
	require.Error(t, err)
}

func TestCombineFunctionReturningFunctionIsRejected(t *testing.T) {
	a := ctypes.NewArena()
	// int f()(): function returning a function.
	outer := a.FuncType(ctypes.Func, ctypes.Hole(), nil)
	inner := a.FuncType(ctypes.Func, ctypes.Hole(), nil)

	_, err := ctypes.Combine(outer, inner)
	require.Error(t, err)
}
