package rewrite

import (
	"github.com/toyz/requnsafe/internal/syntax"
)

// MethodContext describes the impl or trait block a method belongs to. The
// helper trait and its impl are generic over exactly these parameters.
type MethodContext struct {
	Generics syntax.Generics
	SelfType syntax.Tokens

	// Trait is set when the methods belong to a trait, either as the trait
	// being implemented or as the trait that declares default methods.
	Trait *TraitContext
}

// TraitContext carries the trait bound the helper trait must require.
type TraitContext struct {
	Bound syntax.Tokens

	// SelfParam is the placeholder type parameter added for trait default
	// methods. It is nil for impl blocks.
	SelfParam *syntax.GenericParam
}

// ForImpl builds the context of an impl block.
func ForImpl(item *syntax.ItemImpl) *MethodContext {
	ctx := &MethodContext{
		Generics: withoutDefaults(item.Generics),
		SelfType: item.SelfType,
	}
	if len(item.Trait) > 0 && !item.Negative {
		ctx.Trait = &TraitContext{Bound: item.Trait}
	}
	return ctx
}

// ForTrait builds the context of a trait definition. Default methods only
// know that `Self` implements the trait, so the helper is generic over a
// placeholder bounded by it.
func ForTrait(item *syntax.ItemTrait, namer Namer) *MethodContext {
	bound := item.Name + syntax.GenericArgs(item.Generics.Params)
	placeholder := syntax.GenericParam{
		Kind:   syntax.TypeParam,
		Name:   namer.SelfPlaceholder(),
		Bounds: syntax.MustTokens("?Sized + " + bound),
	}
	generics := withoutDefaults(item.Generics)
	generics.Params = append(generics.Params, placeholder)
	return &MethodContext{
		Generics: generics,
		SelfType: syntax.MustTokens(placeholder.Name),
		Trait: &TraitContext{
			Bound:     syntax.MustTokens(bound),
			SelfParam: &generics.Params[len(generics.Params)-1],
		},
	}
}

// withoutDefaults drops parameter defaults, which the helper impl may not
// carry and the helper trait does not need.
func withoutDefaults(g syntax.Generics) syntax.Generics {
	clone := g.Clone()
	for i := range clone.Params {
		clone.Params[i].Default = nil
	}
	return clone
}

// GenericArgs returns the argument list naming the context's parameters as
// seen from inside a method body, where the placeholder is `Self`.
func (ctx *MethodContext) GenericArgs() string {
	params := make([]syntax.GenericParam, len(ctx.Generics.Params))
	copy(params, ctx.Generics.Params)
	if ctx.Trait != nil && ctx.Trait.SelfParam != nil {
		for i := range params {
			if params[i].Name == ctx.Trait.SelfParam.Name {
				params[i].Name = "Self"
			}
		}
	}
	return syntax.GenericArgs(params)
}
