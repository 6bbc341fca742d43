package ctypes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdecl-lang/cdecl/ctypes"
)

// These mirror spec.md §8's literal dump scenarios: the dump format is
// a deliberately foreign prefix syntax, not an English cdecl reading.

func TestDumpPlainSpecifier(t *testing.T) {
	require.Equal(t, "int", ctypes.Dump(ctypes.Primitive(ctypes.Int), ""))
}

func TestDumpPointerToConstInt(t *testing.T) {
	// const int *p: non-const pointer to a const int.
	constInt := ctypes.Primitive(ctypes.Int).WithQualifiers(ctypes.Qualifiers{Const: true})
	a := ctypes.NewArena()
	p := a.PointerType(constInt, ctypes.Qualifiers{})
	require.Equal(t, "*const int", ctypes.Dump(p, ""))
}

func TestDumpConstPointerToInt(t *testing.T) {
	// int *const p: const pointer to a plain int.
	a := ctypes.NewArena()
	p := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{Const: true})
	require.Equal(t, "const *int", ctypes.Dump(p, ""))
}

func TestDumpArrayOfPointerToFunction(t *testing.T) {
	// int (*a[10])(char c): array of 10 pointers to function(char c) returning int.
	a := ctypes.NewArena()
	fn := a.FuncType(ctypes.Func, ctypes.Primitive(ctypes.Int), []ctypes.Param{
		{Name: "c", Type: ctypes.Primitive(ctypes.Char)},
	})
	ptr := a.PointerType(fn, ctypes.Qualifiers{})
	arr := a.ArrayType(ptr, 10)
	require.Equal(t, "[10]*fn (c: char) int", ctypes.Dump(arr, ""))
}

func TestDumpFunctionReturningPointer(t *testing.T) {
	// int *f(void): function() returning pointer to int.
	a := ctypes.NewArena()
	ptr := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{})
	fn := a.FuncType(ctypes.Func, ptr, nil)
	require.Equal(t, "fn () *int", ctypes.Dump(fn, ""))
}

func TestDumpAlignasIsAppended(t *testing.T) {
	// spec.md §6: "_Alignas(N) is appended when alignment is non-zero" —
	// it trails the type text, unlike a qualifier, which leads it.
	aligned := ctypes.Primitive(ctypes.Char).WithAlignment(16)
	require.Equal(t, "char _Alignas(16)", ctypes.Dump(aligned, ""))
}

func TestDumpVariadicFunction(t *testing.T) {
	a := ctypes.NewArena()
	fn := a.FuncType(ctypes.VarArgsFunc, ctypes.Primitive(ctypes.Int), []ctypes.Param{
		{Name: "fmt", Type: ctypes.Primitive(ctypes.Int)},
	})
	require.Equal(t, "fn (fmt: int, ...) int", ctypes.Dump(fn, ""))
}
