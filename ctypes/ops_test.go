package ctypes_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/target"
)

func amd64Linux() target.Context { return target.NewDefault(target.Linux, target.AMD64) }

func TestSizeofPrimitives(t *testing.T) {
	ctx := amd64Linux()
	cases := []struct {
		spec ctypes.Specifier
		want uint32
	}{
		{ctypes.Char, 1}, {ctypes.Short, 2}, {ctypes.Int, 4},
		{ctypes.Long, 8}, {ctypes.LongLong, 8}, {ctypes.Float, 4}, {ctypes.Double, 8},
	}
	for _, c := range cases {
		got, err := ctypes.Sizeof(ctypes.Primitive(c.spec), ctx)
		require.NoError(t, err)
		require.Equal(t, c.want, got, c.spec.String())
	}
}

func TestSizeofLongIs4OnWindows(t *testing.T) {
	got, err := ctypes.Sizeof(ctypes.Primitive(ctypes.Long), target.NewDefault(target.Windows, target.AMD64))
	require.NoError(t, err)
	require.Equal(t, uint32(4), got)
}

func TestSizeofPointerFollowsArchWidth(t *testing.T) {
	a := ctypes.NewArena()
	ptr := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{})
	got, err := ctypes.Sizeof(ptr, amd64Linux())
	require.NoError(t, err)
	require.Equal(t, uint32(8), got)

	got, err = ctypes.Sizeof(ptr, target.NewDefault(target.Linux, target.I386))
	require.NoError(t, err)
	require.Equal(t, uint32(4), got)
}

func TestSizeofArrayMultipliesElementSize(t *testing.T) {
	a := ctypes.NewArena()
	arr := a.ArrayType(ctypes.Primitive(ctypes.Int), 10)
	got, err := ctypes.Sizeof(arr, amd64Linux())
	require.NoError(t, err)
	require.Equal(t, uint32(40), got)
}

func TestSizeofStaticArrayFoldsToPointerWidth(t *testing.T) {
	a := ctypes.NewArena()
	sa := a.StaticArrayType(ctypes.Primitive(ctypes.Int), 10)
	got, err := ctypes.Sizeof(sa, amd64Linux())
	require.NoError(t, err, "static_array decays to pointer width, not element_size*length")
	require.Equal(t, uint32(8), got)

	alignGot, err := ctypes.Alignof(sa, amd64Linux())
	require.NoError(t, err)
	require.Equal(t, uint32(8), alignGot)
}

func TestSizeofIncompleteTypeErrors(t *testing.T) {
	a := ctypes.NewArena()
	_, err := ctypes.Sizeof(a.IncompleteArrayType(ctypes.Primitive(ctypes.Int)), amd64Linux())
	require.Error(t, err)

	rec := a.NewRecord("foo")
	_, err = ctypes.Sizeof(a.RecordType(ctypes.Struct, rec), amd64Linux())
	require.Error(t, err)

	rec.Complete(nil, 0, 1)
	_, err = ctypes.Sizeof(a.RecordType(ctypes.Struct, rec), amd64Linux())
	require.NoError(t, err)
}

func TestAlignasOverridesNaturalAlignment(t *testing.T) {
	t32 := ctypes.Primitive(ctypes.Char).WithAlignment(16)
	got, err := ctypes.Alignof(t32, amd64Linux())
	require.NoError(t, err)
	require.Equal(t, uint32(16), got)
}

func TestIntegerPromotionPromotesBelowIntRank(t *testing.T) {
	ctx := amd64Linux()
	got := ctypes.IntegerPromotion(ctypes.Primitive(ctypes.Short), ctx)
	require.Equal(t, ctypes.Int, got.Spec)

	got = ctypes.IntegerPromotion(ctypes.Primitive(ctypes.Long), ctx)
	require.Equal(t, ctypes.Long, got.Spec)

	got = ctypes.IntegerPromotion(ctypes.Primitive(ctypes.Float), ctx)
	require.Equal(t, ctypes.Float, got.Spec)
}

func TestEqlStructuralForLeavesAndPointers(t *testing.T) {
	a := ctypes.NewArena()
	p1 := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{})
	p2 := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{})
	require.True(t, ctypes.Eql(p1, p2, true))

	p3 := a.PointerType(ctypes.Primitive(ctypes.Int), ctypes.Qualifiers{Const: true})
	require.False(t, ctypes.Eql(p1, p3, true))
	require.True(t, ctypes.Eql(p1, p3, false), "unqualified comparison ignores the pointer's own const")
}

func TestEqlRecordsByIdentityNotStructure(t *testing.T) {
	a := ctypes.NewArena()
	r1 := a.NewRecord("point")
	r2 := a.NewRecord("point")
	r1.Complete([]ctypes.Field{{Name: "x", Type: ctypes.Primitive(ctypes.Int)}}, 4, 4)
	r2.Complete([]ctypes.Field{{Name: "x", Type: ctypes.Primitive(ctypes.Int)}}, 4, 4)

	t1 := a.RecordType(ctypes.Struct, r1)
	t2 := a.RecordType(ctypes.Struct, r2)
	require.False(t, ctypes.Eql(t1, t2, true), "distinct Record descriptors are distinct types even with identical fields")

	t1again := a.RecordType(ctypes.Struct, r1)
	require.True(t, ctypes.Eql(t1, t1again, true))
}

func TestRecordCompleteIsObservedThroughExistingReferences(t *testing.T) {
	a := ctypes.NewArena()
	rec := a.NewRecord("node")
	forward := a.RecordType(ctypes.Struct, rec)
	require.True(t, forward.HasIncompleteSize())

	rec.Complete([]ctypes.Field{{Name: "v", Type: ctypes.Primitive(ctypes.Int)}}, 4, 4)
	require.False(t, forward.HasIncompleteSize(), "forward already held the same *Record, so Complete is visible through it")
}

func TestEqlComparesAlignment(t *testing.T) {
	plain := ctypes.Primitive(ctypes.Char)
	aligned := ctypes.Primitive(ctypes.Char).WithAlignment(16)
	require.False(t, ctypes.Eql(plain, aligned, true), "an explicit _Alignas override makes the types distinct")
	require.False(t, ctypes.Eql(plain, aligned, false), "alignment is compared even when qualifiers are ignored")
}

func TestIsUnsignedIntRespectsCharSignedness(t *testing.T) {
	ctx := amd64Linux()
	require.False(t, ctypes.Primitive(ctypes.Char).IsUnsignedInt(ctx))
	require.True(t, ctypes.Primitive(ctypes.UChar).IsUnsignedInt(ctx))

	unsignedChar := false
	d := target.NewDefault(target.Linux, target.ARM64)
	d.CharSignedOverride = &unsignedChar
	require.True(t, ctypes.Primitive(ctypes.Char).IsUnsignedInt(d))
}
