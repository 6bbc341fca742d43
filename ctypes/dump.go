package ctypes

import (
	"fmt"
	"strings"

	"github.com/cdecl-lang/cdecl/token"
)

// Dump renders t in the deliberately foreign syntax spec.md §6 prescribes
// for observable type dumps: pointer/array/function precedence is spelled
// out with prefix sigils (`*T`, `[N]T`, `fn (params) ReturnType`) instead
// of English prose, so a reader can't mistake it for a real C
// declaration and has to read the actual structure. The dump names only
// the type, never the declared identifier — name is accepted for call-site
// symmetry with String() but is otherwise unused, since spec.md §6's
// scenarios dump a bare type (`int (*a[10])(char c);` dumps as
// `[10]*fn (c: char) int`, with no "a" anywhere in it).
func Dump(t Type, name string) string {
	var b strings.Builder
	dumpRec(&b, t)
	return b.String()
}

func dumpRec(b *strings.Builder, t Type) {
	writeQual(b, t.Qual)
	switch t.Spec {
	case Pointer:
		b.WriteString("*")
		if elem, ok := t.Elem(); ok {
			dumpRec(b, elem)
		}
	case UnspecifiedVariableLenArray:
		b.WriteString("[*]")
		if elem, ok := t.Elem(); ok {
			dumpRec(b, elem)
		}
	case Array, StaticArray, IncompleteArray:
		switch t.Spec {
		case StaticArray:
			fmt.Fprintf(b, "[static %d]", t.arr.Length)
		case IncompleteArray:
			b.WriteString("[]")
		default:
			fmt.Fprintf(b, "[%d]", t.arr.Length)
		}
		if t.arr != nil {
			dumpRec(b, t.arr.Elem)
		}
	case VariableLenArray:
		fmt.Fprintf(b, "[%s]", vlaBoundText(t.vla))
		if t.vla != nil {
			dumpRec(b, t.vla.Elem)
		}
	case Func, VarArgsFunc, OldStyleFunc:
		b.WriteString("fn (")
		if t.fn != nil {
			for i, p := range t.fn.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				if p.Name != "" {
					fmt.Fprintf(b, "%s: ", p.Name)
				}
				dumpRec(b, p.Type)
			}
			if t.Spec == VarArgsFunc {
				if len(t.fn.Params) > 0 {
					b.WriteString(", ")
				}
				b.WriteString("...")
			}
		}
		b.WriteString(") ")
		if t.fn != nil {
			dumpRec(b, t.fn.Return)
		}
	case Struct:
		dumpTag(b, "struct", t.rec)
	case Union:
		dumpTag(b, "union", t.rec)
	case Enum:
		dumpEnumTag(b, t.enumT)
	case pending:
		b.WriteString("<hole>")
	default:
		b.WriteString(t.Spec.String())
	}
	if t.Align != 0 {
		fmt.Fprintf(b, " _Alignas(%d)", t.Align)
	}
}

func writeQual(b *strings.Builder, q Qualifiers) {
	if q.Const {
		b.WriteString("const ")
	}
	if q.Volatile {
		b.WriteString("volatile ")
	}
	if q.Restrict {
		b.WriteString("restrict ")
	}
	if q.Atomic {
		b.WriteString("atomic ")
	}
}

// vlaBoundText renders a variable-length array's bound expression from
// the raw tokens declparser recorded for it (spec.md §1 excludes an
// expression evaluator, so this only has lexemes to work with, never a
// folded value).
func vlaBoundText(vla *VLA) string {
	if vla == nil {
		return ""
	}
	toks, ok := vla.LenExpr.([]token.Token)
	if !ok {
		return ""
	}
	parts := make([]string, len(toks))
	for i, tk := range toks {
		parts[i] = tk.Val
	}
	return strings.Join(parts, " ")
}

func dumpTag(b *strings.Builder, kw string, rec *Record) {
	if rec == nil {
		fmt.Fprintf(b, "%s <anonymous>", kw)
		return
	}
	name := rec.Name
	if name == "" {
		name = "<anonymous>"
	}
	if !rec.IsComplete() {
		fmt.Fprintf(b, "%s %s (incomplete)", kw, name)
		return
	}
	fmt.Fprintf(b, "%s %s {", kw, name)
	for i, f := range rec.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: ", f.Name)
		dumpRec(b, f.Type)
		if f.BitWidth > 0 {
			fmt.Fprintf(b, " : %d", f.BitWidth)
		}
	}
	b.WriteString("}")
}

func dumpEnumTag(b *strings.Builder, e *Enum) {
	if e == nil {
		b.WriteString("enum <anonymous>")
		return
	}
	name := e.Name
	if name == "" {
		name = "<anonymous>"
	}
	if !e.IsComplete() {
		fmt.Fprintf(b, "enum %s (incomplete)", name)
		return
	}
	fmt.Fprintf(b, "enum %s {", name)
	for i, m := range e.Enumerators {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s=%d", m.Name, m.Value)
	}
	b.WriteString("}")
}
