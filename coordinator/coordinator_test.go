package coordinator_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cdecl-lang/cdecl/coordinator"
	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/diag"
	"github.com/cdecl-lang/cdecl/target"
	"github.com/cdecl-lang/cdecl/token"
)

func parseSrc(t *testing.T, src string) ([]coordinator.Declaration, *diag.CollectingSink) {
	lx := token.NewLexer("<test>", strings.NewReader(src))
	toks, err := lx.All()
	require.NoError(t, err)
	sink := &diag.CollectingSink{}
	ctx := target.NewDefault(target.Linux, target.AMD64)
	co, err := coordinator.New(token.NewSlice(toks), ctx, sink)
	require.NoError(t, err)
	decls, err := co.ParseTranslationUnit()
	require.NoError(t, err)
	return decls, sink
}

func byName(t *testing.T, decls []coordinator.Declaration, name string) coordinator.Declaration {
	for _, d := range decls {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("no declaration named %q among %d declarations", name, len(decls))
	return coordinator.Declaration{}
}

func TestTypedefResolvesInLaterDeclarations(t *testing.T) {
	decls, sink := parseSrc(t, "typedef int myint; myint x;")
	require.Empty(t, sink.Records)
	require.Equal(t, ctypes.Int, byName(t, decls, "x").Type.Spec)
}

func TestArrayOfPointerPrecedence(t *testing.T) {
	decls, sink := parseSrc(t, "int *a[10];")
	require.Empty(t, sink.Records)
	ty := byName(t, decls, "a").Type
	require.True(t, ty.IsArray())
	arr, _ := ty.ArrayDescriptor()
	require.True(t, arr.Elem.IsPointer())
}

func TestSelfReferentialStructThroughPointer(t *testing.T) {
	decls, sink := parseSrc(t, "struct node { int value; struct node *next; }; struct node n;")
	require.Empty(t, sink.Records)
	ty := byName(t, decls, "n").Type
	rec, ok := ty.Record()
	require.True(t, ok)
	require.True(t, rec.IsComplete())
	require.Len(t, rec.Fields, 2)
	require.Equal(t, "next", rec.Fields[1].Name)
	nextElem, ok := rec.Fields[1].Type.Elem()
	require.True(t, ok)
	nextRec, _ := nextElem.Record()
	require.Same(t, rec, nextRec, "the self-reference resolves to the same *Record, not a copy")
}

func TestEnumeratorValuesAndImplicitIncrement(t *testing.T) {
	decls, sink := parseSrc(t, "enum color { RED, GREEN, BLUE = 5, YELLOW } c;")
	require.Empty(t, sink.Records)
	en, ok := byName(t, decls, "c").Type.EnumDescriptor()
	require.True(t, ok)
	require.True(t, en.IsComplete())
	want := map[string]uint64{"RED": 0, "GREEN": 1, "BLUE": 5, "YELLOW": 6}
	require.Len(t, en.Enumerators, len(want))
	for _, e := range en.Enumerators {
		require.Equal(t, want[e.Name], e.Value, e.Name)
	}
}

func TestEnumeratorsShareTheOrdinaryIdentifierNamespace(t *testing.T) {
	_, sink := parseSrc(t, "enum color { RED, GREEN } c; int RED;")
	require.True(t, sink.HasTag(diag.Redefinition), "RED is already bound by the enum, so redeclaring it as an object conflicts")
}

func TestBitFieldsRecordWidths(t *testing.T) {
	decls, sink := parseSrc(t, "struct flags { unsigned a : 1; unsigned b : 2; } f;")
	require.Empty(t, sink.Records)
	rec, ok := byName(t, decls, "f").Type.Record()
	require.True(t, ok)
	require.Len(t, rec.Fields, 2)
	require.Equal(t, uint32(1), rec.Fields[0].BitWidth)
	require.Equal(t, uint32(2), rec.Fields[1].BitWidth)
}

func TestTypeofTypeNameForm(t *testing.T) {
	decls, sink := parseSrc(t, "typeof(int) z;")
	require.Empty(t, sink.Records)
	require.Equal(t, ctypes.Int, byName(t, decls, "z").Type.Spec)
}

func TestTypeofExpressionFormFallsBackToInt(t *testing.T) {
	decls, sink := parseSrc(t, "int x; typeof(x) y;")
	require.Empty(t, sink.Records)
	require.Equal(t, ctypes.Int, byName(t, decls, "y").Type.Spec)
}

func TestFunctionParameterAdjustments(t *testing.T) {
	decls, sink := parseSrc(t, "void f(int a[], int b(void));")
	require.Empty(t, sink.Records)
	fn, ok := byName(t, decls, "f").Type.Function()
	require.True(t, ok)
	require.True(t, fn.Params[0].Type.IsPointer(), "array parameter decays to pointer")
	require.True(t, fn.Params[1].Type.IsPointer(), "function parameter decays to pointer-to-function")
}

func TestFunctionDefinitionDetection(t *testing.T) {
	decls, sink := parseSrc(t, "int main(void) { return 0; }")
	require.Empty(t, sink.Records)
	d := byName(t, decls, "main")
	require.True(t, d.IsFuncDef)
}

func TestAlignasRecordsExplicitAlignment(t *testing.T) {
	decls, sink := parseSrc(t, "_Alignas(16) char buf;")
	require.Empty(t, sink.Records)
	require.Equal(t, uint32(16), byName(t, decls, "buf").Type.Align)
}

func TestDuplicateQualifierDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "const const int x;")
	require.True(t, sink.HasTag(diag.DuplicateQualifier))
}

func TestMultipleStorageClassDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "static extern int x;")
	require.True(t, sink.HasTag(diag.MultipleStorageClass))
}

func TestInitializerOnTypedefDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "typedef int myint = 1;")
	require.True(t, sink.HasTag(diag.InitializerOnTypedef))
}

func TestRedefinitionDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "int x; int x;")
	require.True(t, sink.HasTag(diag.Redefinition))
}

func TestStaticAssertPassingConditionIsSilent(t *testing.T) {
	decls, sink := parseSrc(t, `_Static_assert(1+1 == 2, "ok");`)
	require.Empty(t, sink.Records)
	require.Empty(t, decls)
}

func TestStaticAssertFailingConditionIsDiagnosed(t *testing.T) {
	_, sink := parseSrc(t, `_Static_assert(0, "fail");`)
	require.True(t, sink.HasTag(diag.StaticAssertFailed))
}

func TestQualifiedPointerDeclaration(t *testing.T) {
	decls, sink := parseSrc(t, "const char *p;")
	require.Empty(t, sink.Records)
	ty := byName(t, decls, "p").Type
	require.True(t, ty.IsPointer())
	elem, _ := ty.Elem()
	require.Equal(t, ctypes.Char, elem.Spec)
	require.True(t, elem.Qual.Const)
}

func TestRestrictOnPointerIsClean(t *testing.T) {
	decls, sink := parseSrc(t, "int *restrict p;")
	require.Empty(t, sink.Records)
	require.True(t, byName(t, decls, "p").Type.IsPointer())
}

func TestRestrictOnNonPointerDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "int restrict x;")
	require.True(t, sink.HasTag(diag.RestrictOnNonPointer))
}

func TestRestrictOnNonPointerFieldDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "struct s { int restrict x; };")
	require.True(t, sink.HasTag(diag.RestrictOnNonPointer))
}

func TestInlineOnNonFunctionDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "inline int x;")
	require.True(t, sink.HasTag(diag.InlineOnNonFunction))
}

func TestInlineOnFunctionIsClean(t *testing.T) {
	decls, sink := parseSrc(t, "inline int f(void) { return 0; }")
	require.False(t, sink.HasTag(diag.InlineOnNonFunction))
	require.True(t, byName(t, decls, "f").Type.IsFunc())
}

func TestNoreturnOnNonFunctionDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "_Noreturn int x;")
	require.True(t, sink.HasTag(diag.NoreturnOnNonFunction))
}

func TestInvalidFunctionSpecifierOnTypedefDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "typedef inline int myfn;")
	require.True(t, sink.HasTag(diag.InvalidFunctionSpecifier))
}

func TestAlignasOnFunctionDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "_Alignas(8) void f(void);")
	require.True(t, sink.HasTag(diag.AlignasNotAllowed))
}

func TestAlignasOnRegisterDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "_Alignas(8) register int x;")
	require.True(t, sink.HasTag(diag.AlignasNotAllowed))
}

func TestVoidParameterMisuseDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "void f(int a, void);")
	require.True(t, sink.HasTag(diag.VoidParameterMisuse))
}

func TestIsolatedComplexDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "_Complex x;")
	require.True(t, sink.HasTag(diag.IsolatedComplex))
}

func TestDuplicateSpecifierDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "long long long x;")
	require.True(t, sink.HasTag(diag.DuplicateSpecifier))
}

func TestArrayOfFunctionDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "int a[10](void);")
	require.True(t, sink.HasTag(diag.ArrayElementIsFunction))
}

func TestFunctionReturningArrayDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "int f(void)[10];")
	require.True(t, sink.HasTag(diag.FunctionReturnsArray))
}

func TestQualifiedNonOutermostArrayDiagnostic(t *testing.T) {
	_, sink := parseSrc(t, "int a[10][const 5];")
	require.True(t, sink.HasTag(diag.QualifiedArrayNested))
}

func TestNotATypedefDiagnostic(t *testing.T) {
	pos := token.Pos{File: "<test>", Line: 1, Col: 1}
	toks := []token.Token{
		{Kind: token.TYPENAME, Val: "ghost_t", Pos: pos},
		{Kind: token.IDENT, Val: "x", Pos: pos},
		{Kind: token.SEMICOLON, Pos: pos},
	}
	sink := &diag.CollectingSink{}
	ctx := target.NewDefault(target.Linux, target.AMD64)
	co, err := coordinator.New(token.NewSlice(toks), ctx, sink)
	require.NoError(t, err)
	_, err = co.ParseTranslationUnit()
	require.NoError(t, err)
	require.True(t, sink.HasTag(diag.NotATypedef), "a TYPENAME token with no scope binding is still reported, not silently trusted")
}
