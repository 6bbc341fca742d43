// Package coordinator implements the Declaration Coordinator of
// spec.md §4.4: the top-level driver that reads declaration-specifiers
// (storage class, qualifiers, type specifiers, function specifiers,
// alignment), resolves struct/union/enum/typeof sub-grammars and
// typedef names against a scope stack, drives the Declarator Parser
// once per declarator in an init-declarator-list, and reports every
// diagnostic spec.md §7 names along the way.
//
// Grounded on the teacher's parser struct and parseDeclaration in
// parse/parse.go (which only stubs this logic out) for the overall
// token-consuming shape, and on parse/scope.go for the scope
// discipline it drives through coordinator/scope.go.
package coordinator

import (
	"github.com/pkg/errors"

	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/declparser"
	"github.com/cdecl-lang/cdecl/diag"
	"github.com/cdecl-lang/cdecl/target"
	"github.com/cdecl-lang/cdecl/token"
)

type breakOut struct{ err error }

// StorageClass is the closed set of C11 storage-class specifiers,
// exactly one of which (at most) may appear per declaration.
type StorageClass int

const (
	NoStorageClass StorageClass = iota
	Typedef
	Extern
	Static
	Auto
	Register
)

// Specifiers is everything a declaration-specifiers parse accumulates
// besides the base ctypes.Type itself.
type Specifiers struct {
	Base         ctypes.Type
	Storage      StorageClass
	ThreadLocal  bool
	Inline       bool
	Noreturn     bool
	Align        uint32
	AlignSet     bool
}

// Declaration is one completed top-level or block declaration, for
// tests and cmd/cdecl to inspect.
type Declaration struct {
	Specifiers Specifiers
	Name       string
	Type       ctypes.Type
	IsFuncDef  bool
	HasInit    bool
}

// Coordinator drives one translation unit's worth of declaration
// parsing against a single token.Stream.
type Coordinator struct {
	toks        token.Stream
	curt, nextt token.Token
	arena       *ctypes.Arena
	sink        diag.Sink
	ctx         target.Context
	scope       *ScopeStack
}

// New returns a Coordinator reading toks, reporting diagnostics to
// sink and resolving target-dependent facts (sizeof long, pointer
// width, char signedness) against ctx.
func New(toks token.Stream, ctx target.Context, sink diag.Sink) (*Coordinator, error) {
	c := &Coordinator{toks: toks, arena: ctypes.NewArena(), sink: sink, ctx: ctx, scope: NewScopeStack()}
	if err := c.advance(); err != nil {
		return nil, err
	}
	if err := c.advance(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Coordinator) advance() error {
	c.curt = c.nextt
	t, err := c.toks.Next()
	if err != nil {
		return err
	}
	c.nextt = t
	return nil
}

func (c *Coordinator) next() {
	if err := c.advance(); err != nil {
		panic(breakOut{err})
	}
}

func (c *Coordinator) report(tag diag.Tag, pos token.Pos, extra diag.Extra) {
	c.sink.Report(diag.Record{Tag: tag, Pos: pos, Extra: extra})
}

// reportAbort reports the diagnostic behind a declaration-aborting
// error: err's own Tag if it arrived as a *diag.TaggedError (a
// collaborator that already knew exactly what went wrong, e.g. spec.md
// §4.2's composed-type constraints surfacing out of ctypes.Combine),
// or the catch-all UnexpectedToken otherwise.
func (c *Coordinator) reportAbort(err error) {
	if te, ok := err.(*diag.TaggedError); ok {
		c.report(te.Tag, c.curt.Pos, diag.Extra(te.Msg))
		return
	}
	c.report(diag.UnexpectedToken, c.curt.Pos, err.Error())
}

func (c *Coordinator) errorf(format string, args ...interface{}) {
	panic(breakOut{errors.Errorf(format, args...)})
}

func (c *Coordinator) expect(k token.Kind) token.Token {
	if c.curt.Kind != k {
		c.report(diag.ExpectedToken, c.curt.Pos, diag.Mismatch{Expected: k, Actual: c.curt.Kind})
		c.errorf("expected %s but got %s at %s", k, c.curt.Kind, c.curt.Pos)
	}
	t := c.curt
	c.next()
	return t
}

// ParseTranslationUnit drives declarations until EOF, recovering from
// a syntax error in one declaration by skipping to the next `;` or
// `}` so later declarations still get a chance, matching the
// teacher's breakout-and-continue error layer in spirit (spec.md §7).
func (c *Coordinator) ParseTranslationUnit() (decls []Declaration, err error) {
	defer func() {
		if e := recover(); e != nil {
			bo, ok := e.(breakOut)
			if !ok {
				panic(e)
			}
			err = bo.err
		}
	}()
	for c.curt.Kind != token.EOF {
		d, ok := c.parseOneDeclarationRecovering(true)
		if ok {
			decls = append(decls, d...)
		}
	}
	return decls, nil
}

func (c *Coordinator) parseOneDeclarationRecovering(topLevel bool) (ds []Declaration, ok bool) {
	defer func() {
		if e := recover(); e != nil {
			bo, isBo := e.(breakOut)
			if !isBo {
				panic(e)
			}
			c.reportAbort(bo.err)
			c.skipToDeclarationEnd()
			ok = false
		}
	}()
	ds = c.parseDeclaration(topLevel)
	return ds, true
}

func (c *Coordinator) skipToDeclarationEnd() {
	depth := 0
	for {
		switch c.curt.Kind {
		case token.EOF:
			return
		case token.LBRACE:
			depth++
		case token.RBRACE:
			if depth == 0 {
				c.next()
				return
			}
			depth--
		case token.SEMICOLON:
			if depth == 0 {
				c.next()
				return
			}
		}
		c.next()
	}
}

// parseDeclaration implements spec.md §4.4's top-level loop: one
// declaration-specifiers parse followed by zero or more declarators.
func (c *Coordinator) parseDeclaration(topLevel bool) []Declaration {
	if c.curt.Kind == token.STATIC_ASSERT {
		c.parseStaticAssert()
		return nil
	}

	spec := c.parseDeclarationSpecifiers()

	if c.curt.Kind == token.SEMICOLON {
		c.next()
		return nil // tag-only declaration: `struct foo;`, `enum color { ... };` with no declarator
	}

	var out []Declaration
	first := true
	for {
		res, err := c.parseOneDeclarator(spec.Base, false)
		if err != nil {
			panic(breakOut{err})
		}
		c.validateDeclaratorType(spec, res)

		d := Declaration{Specifiers: spec, Name: res.Name, Type: res.Type}

		if first && topLevel && c.curt.Kind == token.LBRACE && res.Type.IsFunc() {
			if spec.Storage == Typedef {
				c.errorf("function definition declared 'typedef'")
			}
			c.defineDeclarator(spec, res)
			c.skipFunctionBody()
			d.IsFuncDef = true
			return append(out, d)
		}
		if !topLevel && c.curt.Kind == token.LBRACE && res.Type.IsFunc() {
			c.report(diag.NestedFunctionDefinition, res.Pos, nil)
			c.defineDeclarator(spec, res)
			c.skipFunctionBody()
			d.IsFuncDef = true
			out = append(out, d)
			first = false
			if c.curt.Kind != token.COMMA {
				break
			}
			c.next()
			continue
		}

		if c.curt.Kind == token.ASSIGN {
			c.next()
			c.validateInitializer(spec, res)
			c.skipInitializer()
			d.HasInit = true
		}

		c.defineDeclarator(spec, res)
		out = append(out, d)

		first = false
		if c.curt.Kind != token.COMMA {
			break
		}
		c.next()
	}
	c.expect(token.SEMICOLON)
	return out
}

// validateDeclaratorType applies spec.md §7's post-hoc declarator
// checks that don't belong to Combine's recursive descent: the
// function-specifier/alignment restrictions are about the declarator's
// outermost shape, not about a constraint Combine can see mid-graft,
// and 'restrict' is legal only on a pointer wherever it appears in the
// whole derived-type chain, not just at the top.
func (c *Coordinator) validateDeclaratorType(spec Specifiers, res declparser.Result) {
	if !restrictValid(res.Type) {
		c.report(diag.RestrictOnNonPointer, res.Pos, nil)
	}
	if spec.Inline && !res.Type.IsFunc() {
		c.report(diag.InlineOnNonFunction, res.Pos, nil)
	}
	if spec.Noreturn && !res.Type.IsFunc() {
		c.report(diag.NoreturnOnNonFunction, res.Pos, nil)
	}
	if spec.Storage == Typedef && (spec.Inline || spec.Noreturn) {
		c.report(diag.InvalidFunctionSpecifier, res.Pos, nil)
	}
	if spec.AlignSet && (res.Type.IsFunc() || spec.Storage == Register) {
		c.report(diag.AlignasNotAllowed, res.Pos, nil)
	}
}

// restrictValid walks t's derived-type chain and reports whether every
// 'restrict' qualifier in it sits on a pointer, the only place C11
// 6.7.3p2 allows one.
func restrictValid(t ctypes.Type) bool {
	if t.Qual.Restrict && t.Spec != ctypes.Pointer {
		return false
	}
	switch t.Spec {
	case ctypes.Pointer, ctypes.UnspecifiedVariableLenArray:
		if elem, ok := t.Elem(); ok {
			return restrictValid(elem)
		}
	case ctypes.Array, ctypes.StaticArray, ctypes.IncompleteArray:
		if arr, ok := t.ArrayDescriptor(); ok {
			return restrictValid(arr.Elem)
		}
	case ctypes.VariableLenArray:
		if vla, ok := t.VLADescriptor(); ok {
			return restrictValid(vla.Elem)
		}
	case ctypes.Func, ctypes.VarArgsFunc, ctypes.OldStyleFunc:
		fn, ok := t.Function()
		if !ok {
			return true
		}
		if !restrictValid(fn.Return) {
			return false
		}
		for _, p := range fn.Params {
			if !restrictValid(p.Type) {
				return false
			}
		}
	}
	return true
}

func (c *Coordinator) validateInitializer(spec Specifiers, res declparser.Result) {
	if spec.Storage == Typedef {
		c.report(diag.InitializerOnTypedef, res.Pos, nil)
	}
	if res.Type.IsFunc() {
		c.report(diag.InitializerOnFunction, res.Pos, nil)
	}
	if spec.Storage == Extern {
		c.report(diag.ExternInitializerDowngrade, res.Pos, nil)
	}
}

// skipInitializer consumes an initializer (an assignment-expression or
// a brace-enclosed initializer-list) without evaluating it: constant
// folding and expression parsing are a separate collaborator, out of
// scope per spec.md §1.
func (c *Coordinator) skipInitializer() {
	depth := 0
	for {
		switch c.curt.Kind {
		case token.LBRACE, token.LPAREN, token.LBRACK:
			depth++
		case token.RBRACE, token.RPAREN, token.RBRACK:
			depth--
		case token.COMMA, token.SEMICOLON:
			if depth <= 0 {
				return
			}
		case token.EOF:
			return
		}
		c.next()
	}
}

// skipFunctionBody consumes a brace-balanced compound-statement: the
// statement grammar is out of scope per spec.md §1, so a function
// definition's body is only ever validated for brace matching here.
func (c *Coordinator) skipFunctionBody() {
	c.expect(token.LBRACE)
	depth := 1
	for depth > 0 {
		switch c.curt.Kind {
		case token.LBRACE:
			depth++
		case token.RBRACE:
			depth--
		case token.EOF:
			c.errorf("unterminated function body")
		}
		c.next()
	}
}

func (c *Coordinator) defineDeclarator(spec Specifiers, res declparser.Result) {
	if res.Name == "" {
		return
	}
	if spec.Storage == Typedef {
		if !c.scope.DeclareTypedef(res.Name, res.Type, token.Token{Val: res.Name, Pos: res.Pos}) {
			c.report(diag.Redefinition, res.Pos, res.Name)
		}
		return
	}
	if tok, ok := c.scope.ConflictingTypedef(res.Name); ok {
		c.report(diag.Redefinition, res.Pos, diag.Extra(res.Name))
		_ = tok
		return
	}
	if !c.scope.DeclareObject(res.Name, res.Type, token.Token{Val: res.Name, Pos: res.Pos}) {
		if spec.Storage != Extern {
			c.report(diag.Redefinition, res.Pos, res.Name)
		}
	}
}

// handoffStream lets declparser consume the Coordinator's already-buffered
// two-token lookahead first, then fall straight through to the
// Coordinator's own underlying token.Stream. It exists so the
// Coordinator can hand control to declparser mid-stream without
// double-buffering: declparser never asks for a token the Coordinator
// has already consumed, and the Coordinator resyncs its own curt/nextt
// from declparser.Current()/Lookahead() the moment it gets control back.
type handoffStream struct {
	buffered [2]token.Token
	used     int
	rest     token.Stream
}

func (h *handoffStream) Next() (token.Token, error) {
	if h.used < len(h.buffered) {
		t := h.buffered[h.used]
		h.used++
		return t, nil
	}
	return h.rest.Next()
}

// parseOneDeclarator hands the Coordinator's current position off to a
// fresh declparser.Parser, runs one Declarator parse, and resyncs the
// Coordinator's own lookahead to wherever declparser left off.
func (c *Coordinator) parseOneDeclarator(base ctypes.Type, abstract bool) (declparser.Result, error) {
	hs := &handoffStream{buffered: [2]token.Token{c.curt, c.nextt}, rest: c.toks}
	dp, err := declparser.New(hs, c.arena, c)
	if err != nil {
		return declparser.Result{}, err
	}
	res, err := dp.Declarator(base, abstract)
	c.curt = dp.Current()
	c.nextt = dp.Lookahead()
	return res, err
}
