package rewrite

import (
	"strings"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/syntax"
)

// Attributes that must not be copied onto the extracted body: the body is
// always inlined, and symbol attributes belong to the exported wrapper only.
var droppedInnerAttrs = map[string]bool{
	"inline":    true,
	"cold":      true,
	"no_mangle": true,
}

var inlineAlways = syntax.MustAttribute("#[inline(always)]")

// Rewriter splits unsafe function declarations into a safe-bodied inner
// function and an unsafe wrapper that forwards to it.
type Rewriter struct {
	namer Namer
}

// NewRewriter creates a rewriter that names generated items with namer.
func NewRewriter(namer Namer) *Rewriter {
	return &Rewriter{namer: namer}
}

// Namer returns the namer in use.
func (r *Rewriter) Namer() Namer {
	return r.namer
}

// Rewrite transforms decl in place. ctx is nil for free functions and
// describes the enclosing block for methods. Declarations that are not
// `unsafe`, or that have no body, are left untouched. decl is only
// modified when the rewrite succeeds.
func (r *Rewriter) Rewrite(decl *syntax.FnDecl, ctx *MethodContext) error {
	if ctx == nil {
		if span, ok := IsMethod(decl); ok {
			return errors.MethodRequiresScope(decl.Sig.Name, span)
		}
	}
	if !decl.Sig.Unsafe || decl.Body == nil {
		return nil
	}

	fwd := r.namer.RenameParams(decl.Sig.Params)
	inner := r.innerDecl(decl)
	call := r.call(decl, ctx, fwd)

	var body *syntax.Block
	if ctx == nil {
		body = &syntax.Block{Stmts: []syntax.Stmt{inner, call}}
	} else {
		// Trait items cannot be const.
		inner.Sig.Const = false
		body = &syntax.Block{Stmts: []syntax.Stmt{
			r.helperTrait(inner, fwd, ctx),
			r.helperImpl(inner, ctx),
			call,
		}}
	}

	decl.Sig.Params = fwd.Params
	decl.Body = body
	decl.Dirty = true
	return nil
}

// innerDecl copies decl into the private function holding the original
// body. It keeps the original parameter patterns.
func (r *Rewriter) innerDecl(decl *syntax.FnDecl) *syntax.FnDecl {
	inner := decl.Clone()
	inner.Raw = nil
	inner.Dirty = true
	inner.Vis = nil
	inner.Default = false
	inner.Sig.Name = r.namer.Inner()
	inner.Sig.Unsafe = false
	inner.Sig.Abi = nil

	attrs := make([]syntax.Attribute, 0, len(decl.Attrs)+1)
	attrs = append(attrs, inlineAlways)
	for _, attr := range decl.Attrs {
		if !droppedInnerAttrs[attr.Path] {
			attrs = append(attrs, attr)
		}
	}
	inner.Attrs = attrs
	return inner
}

// call builds the tail expression that invokes the inner function.
func (r *Rewriter) call(decl *syntax.FnDecl, ctx *MethodContext, fwd Forwarding) *syntax.Expr {
	var b strings.Builder
	if ctx != nil {
		b.WriteString("<Self as ")
		b.WriteString(r.namer.Trait())
		b.WriteString(ctx.GenericArgs())
		b.WriteString(">::")
	}
	b.WriteString(r.namer.Inner())
	if args := syntax.GenericArgs(decl.Sig.Generics.Forwardable()); args != "" {
		b.WriteString("::")
		b.WriteString(args)
	}
	b.WriteString("(")
	b.WriteString(strings.Join(fwd.Args, ", "))
	b.WriteString(")")
	if decl.Sig.Async {
		b.WriteString(".await")
	}
	return &syntax.Expr{Tokens: syntax.MustTokens(b.String())}
}

// helperTrait declares the inner function on a private trait. Bodiless
// declarations may not use patterns, so the renamed parameters are used.
func (r *Rewriter) helperTrait(inner *syntax.FnDecl, fwd Forwarding, ctx *MethodContext) *syntax.ItemTrait {
	sig := inner.Clone()
	sig.Attrs = nil
	sig.Body = nil
	sig.Sig.Params = fwd.Params

	trait := &syntax.ItemTrait{
		Name:     r.namer.Trait(),
		Generics: ctx.Generics,
		Items:    []syntax.Item{{Fn: sig}},
	}
	if ctx.Trait != nil {
		trait.Supertraits = ctx.Trait.Bound
	}
	return trait
}

// helperImpl implements the helper trait for the context's self type with
// the original body.
func (r *Rewriter) helperImpl(inner *syntax.FnDecl, ctx *MethodContext) *syntax.ItemImpl {
	return &syntax.ItemImpl{
		Generics: ctx.Generics,
		Trait:    syntax.MustTokens(r.namer.Trait() + syntax.GenericArgs(ctx.Generics.Params)),
		SelfType: ctx.SelfType,
		Items:    []syntax.Item{{Fn: inner}},
	}
}
