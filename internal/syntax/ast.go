package syntax

import (
	"strings"

	"github.com/toyz/requnsafe/internal/errors"
)

// Attribute is an outer `#[...]` or inner `#![...]` attribute.
type Attribute struct {
	Tokens Tokens // `#`, optional `!`, and the bracket group
	Path   string // path with `::` separators and no spaces, e.g. `inline`
	Args   Tokens // everything after the path inside the brackets
	Inner  bool
}

// IsIdent reports whether the attribute path is exactly the single
// identifier name.
func (a Attribute) IsIdent(name string) bool {
	return a.Path == name
}

// Name returns the last segment of the attribute path.
func (a Attribute) Name() string {
	if i := strings.LastIndex(a.Path, "::"); i >= 0 {
		return a.Path[i+2:]
	}
	return a.Path
}

// Span covers the whole attribute.
func (a Attribute) Span() errors.Span {
	return a.Tokens.Span()
}

// GenericParamKind is the tag of a GenericParam.
type GenericParamKind int

const (
	LifetimeParam GenericParamKind = iota
	TypeParam
	ConstParam
)

// GenericParam is one entry of a `<...>` parameter list.
type GenericParam struct {
	Kind    GenericParamKind
	Attrs   Tokens
	Name    string
	Bounds  Tokens // after `:` for lifetime and type parameters
	Type    Tokens // the type of a const parameter
	Default Tokens // after `=`
}

// Generics is a generic parameter list with its where clause.
type Generics struct {
	Params []GenericParam
	Where  Tokens // predicates, without the `where` keyword
}

// Clone returns a copy whose parameter slice can be modified freely.
func (g Generics) Clone() Generics {
	params := make([]GenericParam, len(g.Params))
	copy(params, g.Params)
	return Generics{Params: params, Where: g.Where}
}

// IsEmpty reports whether there are neither parameters nor predicates.
func (g Generics) IsEmpty() bool {
	return len(g.Params) == 0 && len(g.Where) == 0
}

// Forwardable returns the type and const parameters in declared order.
// Lifetimes cannot be named in a call-site generic argument list.
func (g Generics) Forwardable() []GenericParam {
	var result []GenericParam
	for _, p := range g.Params {
		if p.Kind != LifetimeParam {
			result = append(result, p)
		}
	}
	return result
}

// ParamKind is the tag of a Param.
type ParamKind int

const (
	ReceiverParam ParamKind = iota
	TypedParam
)

// Param is a function parameter: either a receiver such as `&mut self`, or
// a pattern with a type.
type Param struct {
	Kind     ParamKind
	Attrs    Tokens
	Receiver Tokens
	Pat      Tokens
	Type     Tokens
}

// IsSelf reports whether the parameter binds `self`: a receiver, or a typed
// parameter whose pattern is `self` / `mut self`.
func (p Param) IsSelf() bool {
	if p.Kind == ReceiverParam {
		return true
	}
	if len(p.Pat) == 2 && p.Pat[0].IsIdent("mut") {
		return p.Pat[1].IsIdent("self")
	}
	return p.Pat.IsSingleIdent("self")
}

// Span covers the parameter.
func (p Param) Span() errors.Span {
	if p.Kind == ReceiverParam {
		return p.Receiver.Span()
	}
	return errors.Span{Start: p.Pat.Span().Start, End: p.Type.Span().End}
}

// Signature is everything between the visibility and the body of a
// function-like item.
type Signature struct {
	Const    bool
	Async    bool
	Unsafe   bool
	Abi      Tokens // `extern` and its optional ABI string; nil when absent
	Name     string
	NameTok  Token
	Generics Generics
	Params   []Param
	Output   Tokens // return type after `->`; nil for `()`
}

// Clone returns a deep enough copy that parameters and generics can be
// rewritten without touching the original.
func (s Signature) Clone() Signature {
	clone := s
	clone.Generics = s.Generics.Clone()
	clone.Params = make([]Param, len(s.Params))
	copy(clone.Params, s.Params)
	return clone
}

// Stmt is one statement of a synthesized block.
type Stmt interface {
	stmt()
}

// Expr is an expression statement, with or without a trailing semicolon.
type Expr struct {
	Tokens Tokens
	Semi   bool
}

func (*Expr) stmt()      {}
func (*FnDecl) stmt()    {}
func (*ItemTrait) stmt() {}
func (*ItemImpl) stmt()  {}

// Block is a function body. Parsed bodies keep their brace group and are
// rendered verbatim; synthesized bodies carry statements instead.
type Block struct {
	Raw   *Tree
	Stmts []Stmt
}

// FnDecl is a free function, an associated function or a trait method.
type FnDecl struct {
	Attrs   []Attribute
	Vis     Tokens
	Default bool
	Sig     Signature
	Body    *Block // nil when the declaration ends in `;`

	// Raw holds the original tokens. While Dirty is false the declaration
	// renders as Raw, byte for byte.
	Raw   Tokens
	Dirty bool
}

// Clone copies the declaration. The body is shared; blocks are replaced,
// never modified in place.
func (f *FnDecl) Clone() *FnDecl {
	clone := *f
	clone.Attrs = make([]Attribute, len(f.Attrs))
	copy(clone.Attrs, f.Attrs)
	clone.Sig = f.Sig.Clone()
	return &clone
}

// Span covers the original declaration, or its name when synthesized.
func (f *FnDecl) Span() errors.Span {
	if len(f.Raw) > 0 {
		return f.Raw.Span()
	}
	return f.Sig.NameTok.Span()
}

// Item is a member of an impl or trait body. Members other than functions
// (associated types, constants, macro invocations) only have Raw tokens.
type Item struct {
	Fn  *FnDecl
	Raw Tokens
}

// ItemImpl is an `impl` block.
type ItemImpl struct {
	Attrs    []Attribute
	Default  bool
	Unsafe   bool
	Generics Generics
	Negative bool
	Trait    Tokens // implemented trait path; nil for inherent impls
	SelfType Tokens
	Items    []Item

	Header Tokens // original tokens before the body; nil when synthesized
	Body   *Tree  // original brace group
}

// Clone copies the block; items may then be replaced independently.
func (i *ItemImpl) Clone() *ItemImpl {
	clone := *i
	clone.Items = make([]Item, len(i.Items))
	copy(clone.Items, i.Items)
	return &clone
}

// ItemTrait is a `trait` definition.
type ItemTrait struct {
	Attrs       []Attribute
	Vis         Tokens
	Unsafe      bool
	Auto        bool
	Name        string
	Generics    Generics
	Supertraits Tokens
	Items       []Item

	Header Tokens
	Body   *Tree
}

// Clone copies the definition; items may then be replaced independently.
func (t *ItemTrait) Clone() *ItemTrait {
	clone := *t
	clone.Items = make([]Item, len(t.Items))
	copy(clone.Items, t.Items)
	return &clone
}
