package coordinator

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/diag"
	"github.com/cdecl-lang/cdecl/token"
)

func expectOn(cur cursor, k token.Kind) (token.Token, error) {
	t := cur.Current()
	if t.Kind != k {
		return token.Token{}, errors.Errorf("expected %s but got %s at %s", k, t.Kind, t.Pos)
	}
	cur.Advance()
	return t, nil
}

func alignUp(offset, align uint32) uint32 {
	if align == 0 {
		return offset
	}
	if r := offset % align; r != 0 {
		offset += align - r
	}
	return offset
}

// parseStructOrUnion handles spec.md §4.4's struct-or-union-specifier:
// a tag reference, a forward declaration, or a full member-list
// definition. Record descriptors are identity-shared (spec.md §3
// invariant 7), so a forward reference and its later completion are
// always the same *ctypes.Record.
func (c *Coordinator) parseStructOrUnion(cur cursor, kw token.Kind) (ctypes.Type, error) {
	cur.Advance()
	name := ""
	if cur.Current().Kind == token.IDENT {
		name = cur.Current().Val
		cur.Advance()
	}
	hasBody := cur.Current().Kind == token.LBRACE
	spec := structOrUnionSpec(kw)

	var rec *ctypes.Record
	if name != "" {
		if existing, ok := c.scope.LookupTag(name); ok {
			if r, ok2 := existing.Record(); ok2 {
				rec = r
			}
		}
	}
	if rec == nil {
		rec = c.arena.NewRecord(name)
		if name != "" {
			c.scope.DeclareTag(name, c.arena.RecordType(spec, rec))
		}
	}
	t := c.arena.RecordType(spec, rec)
	if !hasBody {
		return t, nil
	}

	cc, ok := cur.(*Coordinator)
	if !ok {
		return ctypes.Type{}, errors.Errorf("%s definitions are not supported inside a parameter declaration", kw)
	}
	fields, size, align, err := cc.parseStructBody(spec == ctypes.Union)
	if err != nil {
		return ctypes.Type{}, err
	}
	rec.Complete(fields, size, align)
	return t, nil
}

// parseStructBody parses `{ struct-declaration-list }`, computing a
// simplified sequential (struct) or overlaid (union) layout: fields
// are naturally aligned and packed in declaration order with no
// target-specific padding rules beyond alignment, since exact ABI
// layout (ABI-mandated padding quirks, ms_struct packing, #pragma
// pack) is a code-generation concern this front end does not own.
func (c *Coordinator) parseStructBody(isUnion bool) ([]ctypes.Field, uint32, uint32, error) {
	if _, err := expectOn(c, token.LBRACE); err != nil {
		return nil, 0, 0, err
	}
	var fields []ctypes.Field
	var offset, maxSize, maxAlign uint32 = 0, 0, 1

	place := func(t ctypes.Type) error {
		sz, err := ctypes.Sizeof(t, c.ctx)
		if err != nil {
			return err
		}
		al, err := ctypes.Alignof(t, c.ctx)
		if err != nil {
			return err
		}
		if al > maxAlign {
			maxAlign = al
		}
		if isUnion {
			if sz > maxSize {
				maxSize = sz
			}
			return nil
		}
		offset = alignUp(offset, al)
		offset += sz
		return nil
	}

	for c.curt.Kind != token.RBRACE {
		spec, err := c.parseSpecifiersOn(c)
		if err != nil {
			return nil, 0, 0, err
		}
		if c.curt.Kind == token.SEMICOLON {
			c.next()
			if err := place(spec.Base); err != nil {
				return nil, 0, 0, err
			}
			fields = append(fields, ctypes.Field{Type: spec.Base})
			continue
		}
		for {
			var name string
			fieldType := spec.Base
			if c.curt.Kind != token.COLON {
				res, err := c.parseOneDeclarator(spec.Base, true)
				if err != nil {
					return nil, 0, 0, err
				}
				name, fieldType = res.Name, res.Type
				if !restrictValid(fieldType) {
					c.report(diag.RestrictOnNonPointer, res.Pos, nil)
				}
			}
			bitWidth := uint32(0)
			if c.curt.Kind == token.COLON {
				c.next()
				if c.curt.Kind != token.INT_CONSTANT {
					return nil, 0, 0, errors.Errorf("expected a constant bit-field width at %s", c.curt.Pos)
				}
				n, err := strconv.ParseUint(c.curt.Val, 0, 32)
				if err != nil {
					return nil, 0, 0, err
				}
				bitWidth = uint32(n)
				c.next()
			}
			if fieldType.HasIncompleteSize() {
				c.report(diag.IncompleteTypeUse, c.curt.Pos, name)
			} else if err := place(fieldType); err != nil {
				return nil, 0, 0, err
			}
			fields = append(fields, ctypes.Field{Name: name, Type: fieldType, BitWidth: bitWidth})
			if c.curt.Kind != token.COMMA {
				break
			}
			c.next()
		}
		if _, err := expectOn(c, token.SEMICOLON); err != nil {
			return nil, 0, 0, err
		}
	}
	if _, err := expectOn(c, token.RBRACE); err != nil {
		return nil, 0, 0, err
	}
	size := offset
	if isUnion {
		size = maxSize
	}
	return fields, alignUp(size, maxAlign), maxAlign, nil
}

// parseEnum handles spec.md §4.4's enum-specifier. Enumerators are
// declared as ordinary identifiers bound to the enum's type, sharing
// the namespace with typedefs and objects per C11 6.2.3 — exactly how
// the teacher's single Symbol namespace in parse/scope.go already
// unifies them.
func (c *Coordinator) parseEnum(cur cursor) (ctypes.Type, error) {
	cur.Advance()
	name := ""
	if cur.Current().Kind == token.IDENT {
		name = cur.Current().Val
		cur.Advance()
	}
	hasBody := cur.Current().Kind == token.LBRACE

	var en *ctypes.Enum
	if name != "" {
		if existing, ok := c.scope.LookupTag(name); ok {
			if e, ok2 := existing.EnumDescriptor(); ok2 {
				en = e
			}
		}
	}
	if en == nil {
		en = c.arena.NewEnum(name)
		if name != "" {
			c.scope.DeclareTag(name, c.arena.EnumType(en))
		}
	}
	t := c.arena.EnumType(en)
	if !hasBody {
		return t, nil
	}

	cc, ok := cur.(*Coordinator)
	if !ok {
		return ctypes.Type{}, errors.New("enum definitions are not supported inside a parameter declaration")
	}
	enumerators, err := cc.parseEnumBody()
	if err != nil {
		return ctypes.Type{}, err
	}
	en.Complete(ctypes.Primitive(ctypes.Int), enumerators)
	for _, m := range enumerators {
		cc.scope.DeclareObject(m.Name, t, token.Token{Val: m.Name})
	}
	return t, nil
}

func (c *Coordinator) parseEnumBody() ([]ctypes.Enumerator, error) {
	if _, err := expectOn(c, token.LBRACE); err != nil {
		return nil, err
	}
	var out []ctypes.Enumerator
	var next uint64
	for c.curt.Kind != token.RBRACE {
		nameTok := c.curt
		if nameTok.Kind != token.IDENT {
			return nil, errors.Errorf("expected an enumerator name at %s", nameTok.Pos)
		}
		c.next()
		val := next
		if c.curt.Kind == token.ASSIGN {
			c.next()
			if c.curt.Kind != token.INT_CONSTANT {
				return nil, errors.Errorf("expected a constant expression at %s", c.curt.Pos)
			}
			n, err := strconv.ParseUint(c.curt.Val, 0, 64)
			if err != nil {
				return nil, err
			}
			val = n
			c.next()
		}
		out = append(out, ctypes.Enumerator{Name: nameTok.Val, Value: val})
		next = val + 1
		if c.curt.Kind != token.COMMA {
			break
		}
		c.next()
		if c.curt.Kind == token.RBRACE {
			break // trailing comma before '}'
		}
	}
	if _, err := expectOn(c, token.RBRACE); err != nil {
		return nil, err
	}
	return out, nil
}

// parseStaticAssert handles the `_Static_assert(const-expr, "message")`
// declaration supplemented in spec.md §12. Constant-expression
// evaluation is out of scope (spec.md §1), so the condition is judged
// by the same best-effort rule the rest of this package applies where
// an evaluator would otherwise be needed: a bare `0` literal is
// false, everything else is treated as true without being evaluated.
func (c *Coordinator) parseStaticAssert() {
	c.next() // _Static_assert
	c.expect(token.LPAREN)

	condTok := c.curt
	condIsZero := condTok.Kind == token.INT_CONSTANT && condTok.Val == "0"
	depth := 0
	for !(depth == 0 && c.curt.Kind == token.COMMA) {
		switch c.curt.Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
		case token.EOF:
			c.errorf("unterminated '_Static_assert' condition")
		}
		c.next()
	}
	c.expect(token.COMMA)
	msgTok := c.expect(token.STRING)
	c.expect(token.RPAREN)
	c.expect(token.SEMICOLON)

	if condIsZero {
		c.report(diag.StaticAssertFailed, condTok.Pos, diag.Extra(msgTok.Val))
	}
}

// parseTypeof handles the `typeof`/`__typeof__` specifier supplemented
// in spec.md §12: `typeof(type-name)` resolves directly;
// `typeof(expression)` needs the expression evaluator this front end
// deliberately excludes (spec.md §1), so it is accepted syntactically
// (balanced parens are consumed) and resolves to `int` as a documented
// best-effort fallback rather than failing the whole declaration.
func (c *Coordinator) parseTypeof(cur cursor) (ctypes.Type, error) {
	cur.Advance()
	if _, err := expectOn(cur, token.LPAREN); err != nil {
		return ctypes.Type{}, err
	}
	if looksLikeTypeName(cur) {
		t, err := c.parseAbstractTypeName(cur)
		if err != nil {
			return ctypes.Type{}, err
		}
		if _, err := expectOn(cur, token.RPAREN); err != nil {
			return ctypes.Type{}, err
		}
		return t, nil
	}
	depth := 0
	for {
		switch cur.Current().Kind {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			if depth == 0 {
				cur.Advance()
				return ctypes.Primitive(ctypes.Int), nil
			}
			depth--
		case token.EOF:
			return ctypes.Type{}, errors.New("unterminated 'typeof' expression")
		}
		cur.Advance()
	}
}
