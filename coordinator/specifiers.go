package coordinator

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/declparser"
	"github.com/cdecl-lang/cdecl/diag"
	"github.com/cdecl-lang/cdecl/specbuilder"
	"github.com/cdecl-lang/cdecl/token"
)

func (c *Coordinator) newBuilder() *specbuilder.Builder { return specbuilder.New() }

// cursor is the minimal token-reading surface spec.md §4.1's
// "specifiers can appear in any order" loop needs. Both the
// Coordinator itself (top-level and block declarations) and a
// *declparser.Parser mid-parameter-list implement it, so one
// specifier-parsing routine serves both call sites without this
// package depending on declparser's internals or vice versa.
type cursor interface {
	Current() token.Token
	Lookahead() token.Token
	Advance() token.Token
}

func (c *Coordinator) Current() token.Token   { return c.curt }
func (c *Coordinator) Lookahead() token.Token { return c.nextt }
func (c *Coordinator) Advance() token.Token {
	t := c.curt
	c.next()
	return t
}

// ParseSpecifiers implements declparser.ParameterSpecifier: it is
// called mid-parameter-list, with p as the live cursor, to resolve one
// parameter's declaration-specifiers.
func (c *Coordinator) ParseSpecifiers(p *declparser.Parser) (ctypes.Type, bool, error) {
	spec, err := c.parseSpecifiersOn(p)
	if err != nil {
		return ctypes.Type{}, false, err
	}
	return spec.Base, spec.Storage == Register, nil
}

func (c *Coordinator) parseDeclarationSpecifiers() Specifiers {
	spec, err := c.parseSpecifiersOn(c)
	if err != nil {
		panic(breakOut{err})
	}
	return spec
}

func storageClassFor(k token.Kind) StorageClass {
	switch k {
	case token.TYPEDEF:
		return Typedef
	case token.EXTERN:
		return Extern
	case token.STATIC:
		return Static
	case token.AUTO:
		return Auto
	case token.REGISTER:
		return Register
	}
	return NoStorageClass
}

// parseSpecifiersOn consumes a declaration-specifiers or
// specifier-qualifier-list in whatever order C11 permits (spec.md
// §4.1/§4.4) and returns the resolved base type plus everything else
// that rode along with it. It stops the moment it sees a token that
// cannot extend the specifier list, leaving cur positioned at the
// start of the declarator.
func (c *Coordinator) parseSpecifiersOn(cur cursor) (Specifiers, error) {
	b := c.newBuilder()
	var spec Specifiers
	var qual ctypes.Qualifiers
	storageSet := false
	qualSeen := map[token.Kind]bool{}

	for {
		tok := cur.Current()
		switch {
		case token.IsStorageClassKeyword(tok.Kind):
			sc := storageClassFor(tok.Kind)
			if storageSet {
				c.report(diag.MultipleStorageClass, tok.Pos, nil)
			}
			spec.Storage = sc
			storageSet = true
			cur.Advance()

		case tok.Kind == token.THREAD_LOCAL:
			spec.ThreadLocal = true
			cur.Advance()

		case tok.Kind == token.INLINE:
			if spec.Inline {
				c.report(diag.DuplicateFunctionSpecifier, tok.Pos, nil)
			}
			spec.Inline = true
			cur.Advance()

		case tok.Kind == token.NORETURN:
			if spec.Noreturn {
				c.report(diag.DuplicateFunctionSpecifier, tok.Pos, nil)
			}
			spec.Noreturn = true
			cur.Advance()

		case token.IsQualifierKeyword(tok.Kind):
			if qualSeen[tok.Kind] {
				c.report(diag.DuplicateQualifier, tok.Pos, nil)
			}
			qualSeen[tok.Kind] = true
			applyQualifier(&qual, tok.Kind)
			cur.Advance()

		case tok.Kind == token.ALIGNAS:
			n, err := c.parseAlignas(cur)
			if err != nil {
				return Specifiers{}, err
			}
			spec.Align, spec.AlignSet = n, true

		case tok.Kind == token.STRUCT || tok.Kind == token.UNION:
			t, err := c.parseStructOrUnion(cur, tok.Kind)
			if err != nil {
				return Specifiers{}, err
			}
			if err := b.TagType(structOrUnionSpec(tok.Kind), t); err != nil {
				return Specifiers{}, err
			}

		case tok.Kind == token.ENUM:
			t, err := c.parseEnum(cur)
			if err != nil {
				return Specifiers{}, err
			}
			if err := b.TagType(ctypes.Enum, t); err != nil {
				return Specifiers{}, err
			}

		case tok.Kind == token.TYPEOF:
			t, err := c.parseTypeof(cur)
			if err != nil {
				return Specifiers{}, err
			}
			if err := b.Typeof(t); err != nil {
				return Specifiers{}, err
			}

		case tok.Kind == token.TYPENAME:
			t, ok := c.scope.LookupTypedef(tok.Val)
			if !ok {
				c.report(diag.NotATypedef, tok.Pos, diag.Extra(tok.Val))
			}
			if err := b.Typedef(t); err != nil {
				return Specifiers{}, err
			}
			cur.Advance()

		case tok.Kind == token.IDENT && b.Empty() && c.scope.IsTypedefName(tok.Val):
			t, _ := c.scope.LookupTypedef(tok.Val)
			if err := b.Typedef(t); err != nil {
				return Specifiers{}, err
			}
			cur.Advance()

		case token.IsTypeSpecifierKeyword(tok.Kind) || tok.Kind == token.LONG:
			if err := b.Add(tok.Kind); err != nil {
				if !c.reportSoftError(tok.Pos, err) {
					c.report(diag.CannotCombineSpecifier, tok.Pos, diag.Extra(err.Error()))
					return Specifiers{}, err
				}
			}
			cur.Advance()

		default:
			base, err := b.Finish()
			if err != nil {
				if !c.reportSoftError(tok.Pos, err) {
					c.report(diag.MissingTypeSpecifier, tok.Pos, diag.Extra(err.Error()))
					return Specifiers{}, err
				}
				if te, ok := err.(*diag.TaggedError); ok && te.Tag == diag.MissingTypeSpecifier {
					// No salvageable type came back from the builder
					// (spec.md §4.1): fall back to the legacy implicit-int
					// rule so the declaration can still be continued.
					base = ctypes.Primitive(ctypes.Int)
				}
			}
			if spec.ThreadLocal && spec.Storage != Static && spec.Storage != Extern && spec.Storage != NoStorageClass {
				c.report(diag.InvalidThreadLocal, tok.Pos, nil)
			}
			base = base.WithQualifiers(qual)
			if spec.AlignSet {
				base = base.WithAlignment(spec.Align)
			}
			spec.Base = base
			return spec, nil
		}
	}
}

// reportSoftError reports err's own diagnostic tag and reports true if
// err is a *diag.TaggedError (spec.md §7's reported-and-continued
// layer: the caller keeps whatever best-effort type the collaborator
// still produced). A plain error reports false, leaving the hard-abort
// path to the caller.
func (c *Coordinator) reportSoftError(pos token.Pos, err error) bool {
	te, ok := err.(*diag.TaggedError)
	if !ok {
		return false
	}
	c.report(te.Tag, pos, diag.Extra(te.Msg))
	return true
}

func applyQualifier(q *ctypes.Qualifiers, k token.Kind) {
	switch k {
	case token.CONST:
		q.Const = true
	case token.VOLATILE:
		q.Volatile = true
	case token.RESTRICT:
		q.Restrict = true
	case token.ATOMIC:
		q.Atomic = true
	}
}

func structOrUnionSpec(k token.Kind) ctypes.Specifier {
	if k == token.STRUCT {
		return ctypes.Struct
	}
	return ctypes.Union
}

// parseAlignas resolves `_Alignas(type-name)` via Alignof and
// `_Alignas(constant-expression)` by reading a single integer-constant
// token directly, the same simplification declparser's array bounds
// use for the same reason (no expression evaluator is wired in).
func (c *Coordinator) parseAlignas(cur cursor) (uint32, error) {
	cur.Advance() // _Alignas
	if t := cur.Current(); t.Kind != token.LPAREN {
		return 0, errors.Errorf("expected '(' after '_Alignas' at %s", t.Pos)
	}
	cur.Advance()

	if looksLikeTypeName(cur) {
		t, err := c.parseAbstractTypeName(cur)
		if err != nil {
			return 0, err
		}
		n, err := ctypes.Alignof(t, c.ctx)
		if err != nil {
			return 0, err
		}
		if cur.Current().Kind != token.RPAREN {
			return 0, errors.Errorf("expected ')' at %s", cur.Current().Pos)
		}
		cur.Advance()
		return n, nil
	}

	tok := cur.Current()
	if tok.Kind != token.INT_CONSTANT {
		return 0, errors.Errorf("expected a constant expression in '_Alignas' at %s", tok.Pos)
	}
	cur.Advance()
	n, err := strconv.ParseUint(tok.Val, 0, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid '_Alignas' constant at %s", tok.Pos)
	}
	if cur.Current().Kind != token.RPAREN {
		return 0, errors.Errorf("expected ')' at %s", cur.Current().Pos)
	}
	cur.Advance()
	return uint32(n), nil
}

// looksLikeTypeName reports whether cur is positioned at something
// that can only start a type-name: a type-specifier keyword, a known
// typedef name, or a tag keyword. An integer/character/string literal
// or an ordinary expression-starting token means the alternative,
// constant-expression, branch applies instead.
func looksLikeTypeName(cur cursor) bool {
	t := cur.Current()
	if token.IsTypeSpecifierKeyword(t.Kind) || t.Kind == token.STRUCT || t.Kind == token.UNION ||
		t.Kind == token.ENUM || t.Kind == token.TYPENAME {
		return true
	}
	return false
}

// parseAbstractTypeName parses a type-name (specifier-qualifier-list
// plus an optional abstract declarator) used by `_Alignas`, `sizeof`,
// casts, and `typeof`.
func (c *Coordinator) parseAbstractTypeName(cur cursor) (ctypes.Type, error) {
	spec, err := c.parseSpecifiersOn(cur)
	if err != nil {
		return ctypes.Type{}, err
	}
	if cc, ok := cur.(*Coordinator); ok {
		res, err := cc.parseOneDeclarator(spec.Base, true)
		if err != nil {
			return ctypes.Type{}, err
		}
		return res.Type, nil
	}
	if p, ok := cur.(*declparser.Parser); ok {
		res, err := p.Declarator(spec.Base, true)
		if err != nil {
			return ctypes.Type{}, err
		}
		return res.Type, nil
	}
	return spec.Base, nil
}
