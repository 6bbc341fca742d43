// Package declparser implements the Declarator Parser of spec.md
// §4.3: recursive-descent parsing of a C declarator (the part of a
// declaration after the type specifiers) into a ctypes.Type, grafted
// onto a caller-supplied base type.
//
// C declarators are written outside-in ("the leading '*' is the
// outermost thing you see") but mean something inside-out ("the
// pointer is the innermost type, applied to the base"), and
// parenthesized sub-declarators invert that again. The teacher's
// parse.go parseDeclarator/parseDeclaratorTail parses this with fixed,
// incorrect precedence (it always wraps a leading pointer outside any
// trailing array/function suffix, producing "pointer to array" for
// `int *a[10]` when C means "array of pointer"). The double-parse
// trick used by chibicc-style parsers (parse once with a placeholder
// type just to skip the parenthesized part, then back up and parse it
// again with the real type) is replaced here by a single pass that
// defers unresolved pieces as a ctypes.Hole and grafts them with
// ctypes.Combine once the real base is known — the token stream is
// only ever walked once.
package declparser

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/diag"
	"github.com/cdecl-lang/cdecl/token"
)

// parseErrorBreakOut is the internal panic/recover signal used to
// unwind out of a partially-parsed declarator the moment something
// doesn't match, matching the teacher's parser.error/parseErrorBreakOut
// in parse/parse.go. It never escapes this package: every exported
// entry point recovers it and returns a plain error instead.
type parseErrorBreakOut struct{ err error }

// Parser consumes a token.Stream one declarator at a time. It holds no
// scope or diagnostic-sink state of its own; the Coordinator owns
// those and calls back into Parser once per declarator.
type Parser struct {
	toks        token.Stream
	curt, nextt token.Token
	arena       *ctypes.Arena
	paramSpec   ParameterSpecifier
}

// New returns a Parser positioned at the first token of toks. Callers
// normally hand it a token.Stream that starts right after the
// declaration-specifiers, at the beginning of the first declarator.
// paramSpec resolves the nested declaration-specifiers of any
// parameter-type-list this declarator's suffixes turn out to contain;
// it may be nil if the caller knows no function suffix with a real
// parameter-type-list can occur (e.g. parsing a struct member).
func New(toks token.Stream, arena *ctypes.Arena, paramSpec ParameterSpecifier) (*Parser, error) {
	p := &Parser{toks: toks, arena: arena, paramSpec: paramSpec}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// Current and Lookahead expose the Parser's own one-token lookahead
// buffer so a caller that shares its underlying token.Stream (the
// Coordinator parsing a declarator in the middle of a larger
// declaration) can resynchronize its own position once Declarator
// returns, without this package needing to know anything about that
// caller's bookkeeping.
func (p *Parser) Current() token.Token  { return p.curt }
func (p *Parser) Lookahead() token.Token { return p.nextt }

// Advance consumes and returns the current token, moving the lookahead
// forward by one. A collaborator driving this Parser's cursor (the
// Coordinator, parsing a parameter's declaration-specifiers) uses this
// instead of reaching into private fields.
func (p *Parser) Advance() token.Token {
	t := p.curt
	p.next()
	return t
}

func (p *Parser) advance() error {
	p.curt = p.nextt
	t, err := p.toks.Next()
	if err != nil {
		return err
	}
	p.nextt = t
	return nil
}

func (p *Parser) error(pos token.Pos, format string, args ...interface{}) {
	panic(parseErrorBreakOut{errors.Errorf(format, args...)})
}

func (p *Parser) expect(k token.Kind) token.Token {
	if p.curt.Kind != k {
		p.error(p.curt.Pos, "expected %s but got %s at %s", k, p.curt.Kind, p.curt.Pos)
	}
	t := p.curt
	if err := p.advance(); err != nil {
		panic(parseErrorBreakOut{err})
	}
	return t
}

func (p *Parser) next() {
	if err := p.advance(); err != nil {
		panic(parseErrorBreakOut{err})
	}
}

// Result is what one declarator parse produces: the declared
// identifier (empty for an abstract declarator), the assembled type,
// and the position of the identifier (or of the declarator's start,
// for an abstract one) for diagnostics.
type Result struct {
	Name string
	Type ctypes.Type
	Pos  token.Pos
}

// Declarator parses one declarator and grafts it onto base, per
// spec.md §4.3. abstract permits (but does not require) an omitted
// identifier, for parameter lists, casts, and sizeof/_Alignas type
// names.
func (p *Parser) Declarator(base ctypes.Type, abstract bool) (res Result, err error) {
	defer func() {
		if e := recover(); e != nil {
			peb, ok := e.(parseErrorBreakOut)
			if !ok {
				panic(e)
			}
			err = peb.err
		}
	}()
	res = p.declarator(base, abstract)
	return res, nil
}

func (p *Parser) declarator(base ctypes.Type, abstract bool) Result {
	innerBase := p.pointers(base)
	return p.directDeclarator(innerBase, abstract)
}

// pointers consumes zero or more `*` (each optionally followed by
// qualifier keywords) and wraps base in a Pointer per occurrence,
// outermost-parsed-first-applied-innermost, which for a plain pointer
// prefix is the same thing since there is no deferred piece to graft:
// the base is already known at this call site.
func (p *Parser) pointers(base ctypes.Type) ctypes.Type {
	for p.curt.Kind == token.MUL {
		p.next()
		q := p.qualifierList()
		base = p.arena.PointerType(base, q)
	}
	return base
}

func (p *Parser) qualifierList() ctypes.Qualifiers {
	var q ctypes.Qualifiers
	for {
		switch p.curt.Kind {
		case token.CONST:
			q.Const = true
		case token.VOLATILE:
			q.Volatile = true
		case token.RESTRICT:
			q.Restrict = true
		case token.ATOMIC:
			q.Atomic = true
		default:
			return q
		}
		p.next()
	}
}

// directDeclarator implements direct-declarator: an identifier or a
// parenthesized sub-declarator, each optionally followed by a chain of
// array/function suffixes. innerBase is the type that the eventual
// base (after all suffixes are applied) substitutes for — already
// including any pointer prefix this declarator started with.
func (p *Parser) directDeclarator(innerBase ctypes.Type, abstract bool) Result {
	switch {
	case p.curt.Kind == token.IDENT:
		nameTok := p.curt
		p.next()
		suffixChain := p.declaratorSuffixes()
		result, err := ctypes.Combine(suffixChain, innerBase)
		if err != nil {
			panic(parseErrorBreakOut{err})
		}
		return Result{Name: nameTok.Val, Type: result, Pos: nameTok.Pos}

	case p.curt.Kind == token.LPAREN && p.startsNestedDeclarator():
		pos := p.curt.Pos
		p.next()
		inner := p.declarator(ctypes.Hole(), abstract)
		p.expect(token.RPAREN)
		suffixChain := p.declaratorSuffixes()
		combinedBase, err := ctypes.Combine(suffixChain, innerBase)
		if err != nil {
			panic(parseErrorBreakOut{err})
		}
		result, err := ctypes.Combine(inner.Type, combinedBase)
		if err != nil {
			panic(parseErrorBreakOut{err})
		}
		if inner.Name == "" {
			inner.Pos = pos
		}
		return Result{Name: inner.Name, Type: result, Pos: inner.Pos}

	default:
		if !abstract {
			p.error(p.curt.Pos, "expected identifier or '(' but got %s at %s", p.curt.Kind, p.curt.Pos)
		}
		pos := p.curt.Pos
		suffixChain := p.declaratorSuffixes()
		result, err := ctypes.Combine(suffixChain, innerBase)
		if err != nil {
			panic(parseErrorBreakOut{err})
		}
		return Result{Type: result, Pos: pos}
	}
}

// startsNestedDeclarator disambiguates `(` beginning a parenthesized
// sub-declarator from `(` beginning a parameter list of an abstract
// function declarator (`int (*)(void)` vs `int (void)`): a parameter
// list's first token is never `*`, an identifier directly followed by
// another declarator token, or another `(`/`)` that itself starts a
// declarator. Concretely: it is a sub-declarator unless the very next
// token is one that can only start a parameter-type-list or an empty
// `()`.
func (p *Parser) startsNestedDeclarator() bool {
	switch p.nextt.Kind {
	case token.RPAREN:
		return false // `()` is an empty parameter list, not `( )`-wrapped nothing
	case token.MUL, token.LPAREN, token.IDENT:
		return true
	default:
		return false
	}
}

// declaratorSuffixes parses zero or more trailing `[...]` or `(...)`
// suffixes, accumulating them left-to-right into a single Hole-rooted
// chain where each new suffix is grafted into the previous suffix's
// Hole — so `a[3][4]` builds array(3, array(4, Hole)), matching C's
// row-major nesting, and a bare identifier with no suffixes returns
// an unresolved Hole that Combine treats as "substitute directly".
func (p *Parser) declaratorSuffixes() ctypes.Type {
	chain := ctypes.Hole()
	for {
		switch p.curt.Kind {
		case token.LBRACK:
			chain = p.mustCombine(chain, p.arrayBoundSuffix())
		case token.LPAREN:
			chain = p.mustCombine(chain, p.paramListSuffix())
		default:
			return chain
		}
	}
}

func (p *Parser) mustCombine(outer, inner ctypes.Type) ctypes.Type {
	result, err := ctypes.Combine(outer, inner)
	if err != nil {
		panic(parseErrorBreakOut{err})
	}
	return result
}

// arrayBoundSuffix parses one `[` qualifiers? static? bound? `]`
// suffix. Bounds are handled per spec.md §4.3: omitted means
// incomplete, `*` means an unspecified-length VLA (parameter
// declarations only), a single integer-constant token (decimal, octal
// or hex, with any u/l suffix) is
// folded here directly since no separate constant-expression
// evaluator is wired in (out of scope per spec.md §1), and any other
// token sequence up to the matching `]` is kept as an opaque ExprRef
// for a variable-length array, exactly as the declarator only records
// that collaborator's input and never evaluates it itself.
func (p *Parser) arrayBoundSuffix() ctypes.Type {
	p.expect(token.LBRACK)

	// `static` may appear before or after the qualifier-list in a
	// parameter array declarator; both spellings are legal C11.
	isStatic := false
	if p.curt.Kind == token.STATIC {
		isStatic = true
		p.next()
	}
	q := p.qualifierList()
	if !isStatic && p.curt.Kind == token.STATIC {
		isStatic = true
		p.next()
	}

	if p.curt.Kind == token.RBRACK {
		p.next()
		return p.arena.IncompleteArrayType(ctypes.Hole()).WithQualifiers(q)
	}
	if p.curt.Kind == token.MUL && p.nextt.Kind == token.RBRACK {
		p.next()
		p.expect(token.RBRACK)
		return p.arena.UnspecifiedVLAType(ctypes.Hole()).WithQualifiers(q)
	}

	toks := p.collectBoundTokens()
	p.expect(token.RBRACK)

	if n, ok := literalLength(toks); ok {
		if isStatic {
			return p.arena.StaticArrayType(ctypes.Hole(), n).WithQualifiers(q)
		}
		return p.arena.ArrayType(ctypes.Hole(), n).WithQualifiers(q)
	}
	return p.arena.VariableLenArrayType(ctypes.Hole(), toks).WithQualifiers(q)
}

// collectBoundTokens gathers every token up to (but not including) the
// matching `]`, tracking nested bracket/paren depth so a bound
// expression like `a[f(1, 2)]` isn't truncated at the inner `)`.
func (p *Parser) collectBoundTokens() []token.Token {
	var out []token.Token
	depth := 0
	for {
		switch p.curt.Kind {
		case token.RBRACK:
			if depth == 0 {
				return out
			}
			depth--
		case token.LBRACK, token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.EOF:
			p.error(p.curt.Pos, "unterminated array bound starting before %s", p.curt.Pos)
		}
		out = append(out, p.curt)
		p.next()
	}
}

func literalLength(toks []token.Token) (uint64, bool) {
	if len(toks) != 1 || toks[0].Kind != token.INT_CONSTANT {
		return 0, false
	}
	n, err := strconv.ParseUint(trimIntSuffix(toks[0].Val), 0, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func trimIntSuffix(s string) string {
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if c == 'u' || c == 'U' || c == 'l' || c == 'L' {
			end--
			continue
		}
		break
	}
	return s[:end]
}

// paramListSuffix parses `( parameter-type-list )` or the K&R
// old-style `( identifier-list? )`, per spec.md §4.3's parameter
// handling: `(void)` is zero parameters, `()` is an old-style
// declarator with an unspecified (and, for a definition, yet to be
// supplied) parameter list, a trailing `, ...` marks a variadic
// function, and every parameter undergoes the array-to-pointer and
// function-to-pointer adjustments before being recorded.
func (p *Parser) paramListSuffix() ctypes.Type {
	p.expect(token.LPAREN)

	if p.curt.Kind == token.RPAREN {
		p.next()
		return p.arena.FuncType(ctypes.OldStyleFunc, ctypes.Hole(), nil)
	}
	if p.curt.Kind == token.VOID && p.nextt.Kind == token.RPAREN {
		p.next()
		p.next()
		return p.arena.FuncType(ctypes.Func, ctypes.Hole(), nil)
	}
	if p.curt.Kind == token.IDENT && p.startsOldStyleIdentList() {
		names := p.oldStyleIdentList()
		p.expect(token.RPAREN)
		params := make([]ctypes.Param, len(names))
		for i, n := range names {
			params[i] = ctypes.Param{Name: n}
		}
		return p.arena.FuncType(ctypes.OldStyleFunc, ctypes.Hole(), params)
	}

	if p.paramSpec == nil {
		p.error(p.curt.Pos, "parameter-type-list not allowed in this declarator context")
	}

	var params []ctypes.Param
	variadic := false
	for {
		if p.curt.Kind == token.ELLIPSIS {
			if len(params) == 0 {
				p.error(p.curt.Pos, "'...' must follow a named parameter")
			}
			variadic = true
			p.next()
			break
		}
		paramPos := p.curt.Pos
		param, err := p.ParameterDeclaration(p.paramSpec)
		if err != nil {
			panic(parseErrorBreakOut{err})
		}
		if param.Type.IsVoid() {
			panic(parseErrorBreakOut{&diag.TaggedError{Tag: diag.VoidParameterMisuse, Msg: "'void' must be the only, unnamed parameter at " + paramPos.String()}})
		}
		params = append(params, param)
		if p.curt.Kind != token.COMMA {
			break
		}
		p.next()
	}
	p.expect(token.RPAREN)
	spec := ctypes.Func
	if variadic {
		spec = ctypes.VarArgsFunc
	}
	return p.arena.FuncType(spec, ctypes.Hole(), params)
}

// startsOldStyleIdentList reports whether the parameter list about to
// be parsed is a K&R bare identifier list rather than a parameter-type-list
// beginning with a typedef name used as a type specifier. The
// Coordinator resolves that ambiguity for us by only ever calling
// Declarator on a stream where an upcoming IDENT has already been
// classified; declparser treats any IDENT immediately followed by `,`
// or `)` as old-style, since a parameter-type-list entry always
// carries at least one type-specifier token before its (optional)
// name.
func (p *Parser) startsOldStyleIdentList() bool {
	return p.nextt.Kind == token.COMMA || p.nextt.Kind == token.RPAREN
}

func (p *Parser) oldStyleIdentList() []string {
	var names []string
	for {
		t := p.expect(token.IDENT)
		names = append(names, t.Val)
		if p.curt.Kind != token.COMMA {
			return names
		}
		p.next()
	}
}

// ParameterSpecifier is the minimal interface the Coordinator provides
// so declparser can ask for a parameter's declaration-specifiers
// without this package knowing about specbuilder or scope lookup.
// ParseSpecifiers is handed this same Parser so it reads and advances
// through the one shared cursor instead of a separate buffered one.
type ParameterSpecifier interface {
	// ParseSpecifiers consumes this parameter's type-specifier,
	// qualifier, and storage-class (register only) tokens and returns
	// the resulting base type plus whether `register` was seen.
	ParseSpecifiers(p *Parser) (ctypes.Type, bool, error)
}

// ParameterDeclaration parses one parameter-declaration using spec to
// resolve its declaration-specifiers, then applies the array-to-pointer
// and function-to-pointer parameter adjustments of spec.md §4.3.
func (p *Parser) ParameterDeclaration(spec ParameterSpecifier) (ctypes.Param, error) {
	base, isRegister, err := spec.ParseSpecifiers(p)
	if err != nil {
		return ctypes.Param{}, err
	}
	if p.curt.Kind == token.COMMA || p.curt.Kind == token.RPAREN {
		return ctypes.Param{Type: p.AdjustParamType(base), Register: isRegister}, nil
	}
	res, err := p.Declarator(base, true)
	if err != nil {
		return ctypes.Param{}, err
	}
	return ctypes.Param{Name: res.Name, Type: p.AdjustParamType(res.Type), Register: isRegister}, nil
}

// AdjustParamType applies C11 6.7.6.3p7-8: a parameter written with
// array type is adjusted to pointer-to-element (dropping only the
// outermost array), and a parameter written with function type is
// adjusted to pointer-to-function.
func (p *Parser) AdjustParamType(t ctypes.Type) ctypes.Type {
	if t.IsArray() {
		// A qualifier written inside the brackets (`int a[const 10]`)
		// binds to the pointer produced by this adjustment, not to the
		// array's element type (C11 6.7.6.3p7). Every array variant
		// (fixed, static, incomplete, and both VLA forms) adjusts the
		// same way, not just the ones with a fixed ArrayDescriptor.
		elem, _ := t.Elem()
		return ctypes.PointerTo(p.arena, elem, t.Qual)
	}
	if t.IsFunc() {
		return ctypes.PointerTo(p.arena, t, ctypes.Qualifiers{})
	}
	return t
}
