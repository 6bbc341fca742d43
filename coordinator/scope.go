package coordinator

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cdecl-lang/cdecl/ctypes"
	"github.com/cdecl-lang/cdecl/token"
)

// identEntry is one binding in the ordinary identifier namespace:
// typedef names, enumeration constants, and declared objects/functions
// all share this namespace in C, exactly as the teacher's Symbol
// interface unifies GSymbol/LSymbol/TSymbol under one lookup.
type identEntry struct {
	Type      ctypes.Type
	IsTypedef bool
	Tok       token.Token
}

// tagEntry is one binding in the tag namespace (struct/union/enum),
// kept separate from identEntry per C11 6.2.3: `struct foo` and a
// plain `foo` never collide.
type tagEntry struct {
	Type ctypes.Type
}

// scope is one block's bindings, chained to its parent exactly like
// the teacher's parse/scope.go. generation is an id, unique within its
// ScopeStack, stamped at Push time, used only to namespace the typedef LRU cache
// below so stale entries from a long-closed scope simply age out
// rather than needing explicit invalidation.
type scope struct {
	parent     *scope
	generation int
	idents     map[string]*identEntry
	tags       map[string]*tagEntry
}

func newScope(parent *scope, generation int) *scope {
	return &scope{parent: parent, generation: generation, idents: map[string]*identEntry{}, tags: map[string]*tagEntry{}}
}

func (s *scope) lookupIdent(name string) (*identEntry, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if e, ok := cur.idents[name]; ok {
			return e, true
		}
	}
	return nil, false
}

func (s *scope) lookupTag(name string) (*tagEntry, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if e, ok := cur.tags[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// defineIdent installs name in this scope's own bindings (not a
// parent's), returning false if it is already bound in this exact
// scope, matching spec.md §4.4's redefinition diagnostic.
func (s *scope) defineIdent(name string, e *identEntry) bool {
	if _, exists := s.idents[name]; exists {
		return false
	}
	s.idents[name] = e
	return true
}

func (s *scope) defineTag(name string, e *tagEntry) {
	s.tags[name] = e
}

// ScopeStack is the Coordinator's view of nested block scopes plus a
// small LRU-backed cache over the typedef-name question that the
// scanning step asks for every identifier token, per the "hashed
// overlay" invited by spec.md §9. The teacher's scope.go walks the
// parent chain on every lookup with no caching at all; for a deeply
// nested declaration region re-asking "is this a typedef" on every
// token, the chain walk is the dominant cost, so this wraps it with an
// LRU keyed by (scope generation, name) — grounded on go-gitea's
// modules/regexplru/regexplru.go, which caches compiled regexes behind
// exactly this kind of generation-free LRU because recompiling is
// expensive and the key space is unbounded but skewed.
type ScopeStack struct {
	cur        *scope
	nextGen    int
	typedefLRU *lru.Cache[string, bool]
}

// NewScopeStack returns a stack with one (the global/file) scope pushed.
func NewScopeStack() *ScopeStack {
	ss := &ScopeStack{}
	cache, err := lru.New[string, bool](1024)
	if err != nil {
		// lru.New only fails for a non-positive size, which 1024 never is.
		panic(err)
	}
	ss.typedefLRU = cache
	ss.cur = newScope(nil, ss.nextGen)
	ss.nextGen++
	return ss
}

// Push enters a new nested scope (a block, a function's parameter
// scope, a struct's member scope).
func (ss *ScopeStack) Push() {
	ss.cur = newScope(ss.cur, ss.nextGen)
	ss.nextGen++
}

// Pop leaves the current scope, returning to its parent.
func (ss *ScopeStack) Pop() {
	if ss.cur.parent == nil {
		panic("coordinator: Pop of the outermost scope")
	}
	ss.cur = ss.cur.parent
}

func (ss *ScopeStack) cacheKey(name string) string {
	return fmt.Sprintf("%d:%s", ss.cur.generation, name)
}

// IsTypedefName reports whether name currently resolves to a typedef
// in scope, consulting (and populating) the LRU before walking the
// parent chain.
func (ss *ScopeStack) IsTypedefName(name string) bool {
	key := ss.cacheKey(name)
	if v, ok := ss.typedefLRU.Get(key); ok {
		return v
	}
	e, ok := ss.cur.lookupIdent(name)
	result := ok && e.IsTypedef
	ss.typedefLRU.Add(key, result)
	return result
}

// LookupTypedef returns the type a typedef name resolves to.
func (ss *ScopeStack) LookupTypedef(name string) (ctypes.Type, bool) {
	e, ok := ss.cur.lookupIdent(name)
	if !ok || !e.IsTypedef {
		return ctypes.Type{}, false
	}
	return e.Type, true
}

// DeclareTypedef installs name as a typedef for t in the current
// scope. It reports false (without installing anything) if name is
// already bound in this exact scope.
func (ss *ScopeStack) DeclareTypedef(name string, t ctypes.Type, tok token.Token) bool {
	ok := ss.cur.defineIdent(name, &identEntry{Type: t, IsTypedef: true, Tok: tok})
	if ok {
		ss.typedefLRU.Add(ss.cacheKey(name), true)
	}
	return ok
}

// DeclareObject installs name as an ordinary (non-typedef) identifier:
// a variable, function, or parameter.
func (ss *ScopeStack) DeclareObject(name string, t ctypes.Type, tok token.Token) bool {
	ok := ss.cur.defineIdent(name, &identEntry{Type: t, Tok: tok})
	if ok {
		ss.typedefLRU.Add(ss.cacheKey(name), false)
	}
	return ok
}

// LookupObject returns the type of any ordinary identifier, typedef or not.
func (ss *ScopeStack) LookupObject(name string) (ctypes.Type, bool) {
	e, ok := ss.cur.lookupIdent(name)
	if !ok {
		return ctypes.Type{}, false
	}
	return e.Type, true
}

// ConflictingTypedef returns the token that declared name as a typedef
// in scope, for the "conflicts with typedef declared at ..." diagnostic.
func (ss *ScopeStack) ConflictingTypedef(name string) (token.Token, bool) {
	e, ok := ss.cur.lookupIdent(name)
	if !ok || !e.IsTypedef {
		return token.Token{}, false
	}
	return e.Tok, true
}

// LookupTag resolves a struct/union/enum tag visible from the current scope.
func (ss *ScopeStack) LookupTag(name string) (ctypes.Type, bool) {
	e, ok := ss.cur.lookupTag(name)
	if !ok {
		return ctypes.Type{}, false
	}
	return e.Type, true
}

// DeclareTag installs (or, for a forward reference already present in
// this exact scope, returns the existing) tag binding. The bool result
// reports whether a new binding was installed.
func (ss *ScopeStack) DeclareTag(name string, t ctypes.Type) (ctypes.Type, bool) {
	if e, ok := ss.cur.tags[name]; ok {
		return e.Type, false
	}
	ss.cur.defineTag(name, &tagEntry{Type: t})
	return t, true
}
