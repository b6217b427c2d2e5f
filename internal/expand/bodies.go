package expand

import (
	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/rewrite"
	"github.com/toyz/requnsafe/internal/syntax"
)

type scope = Either[*syntax.ItemImpl, *syntax.ItemTrait]

// RequireUnsafeInBodies rewrites every unsafe method of an impl block, or
// every unsafe default method of a trait.
func (t *Transformer) RequireUnsafeInBodies(attr, item syntax.Tokens) (string, error) {
	if len(attr) > 0 {
		return "", errors.NewUsageError(errors.BodiesAttribute, attr.Span())
	}

	parsed, err := parseScope(item)
	if err != nil {
		return "", err
	}
	if parsed.IsLeft {
		impl, err := t.RewriteImpl(parsed.Left)
		if err != nil {
			return "", err
		}
		return syntax.RenderImpl(impl), nil
	}
	trait, err := t.RewriteTrait(parsed.Right)
	if err != nil {
		return "", err
	}
	return syntax.RenderTrait(trait), nil
}

// RewriteImpl returns a copy of item with its methods rewritten. item is
// not modified.
func (t *Transformer) RewriteImpl(item *syntax.ItemImpl) (*syntax.ItemImpl, error) {
	out := item.Clone()
	if err := t.rewriteMembers(out.Items, rewrite.ForImpl(item)); err != nil {
		return nil, err
	}
	return out, nil
}

// RewriteTrait returns a copy of item with its default methods rewritten.
// item is not modified.
func (t *Transformer) RewriteTrait(item *syntax.ItemTrait) (*syntax.ItemTrait, error) {
	out := item.Clone()
	if err := t.rewriteMembers(out.Items, rewrite.ForTrait(item, t.rewriter.Namer())); err != nil {
		return nil, err
	}
	return out, nil
}

// rewriteMembers rewrites clones of the members and only stores them once
// all of them succeeded.
func (t *Transformer) rewriteMembers(items []syntax.Item, ctx *rewrite.MethodContext) error {
	rewritten := make(map[int]*syntax.FnDecl)
	for i, member := range items {
		if member.Fn == nil || member.Fn.Body == nil {
			continue
		}
		fn := member.Fn.Clone()
		if err := t.rewriter.Rewrite(fn, ctx); err != nil {
			return err
		}
		if fn.Dirty {
			rewritten[i] = fn
		}
	}
	for i, fn := range rewritten {
		items[i].Fn = fn
	}
	return nil
}

// parseScope parses item as an impl block or, failing that, a trait.
func parseScope(item syntax.Tokens) (scope, error) {
	c := syntax.NewCursor(item, syntax.Token{})
	parsed, err := ParseEither(c, syntax.ParseItemImpl, syntax.ParseItemTrait)
	if err == nil {
		return parsed, nil
	}

	var either *EitherError
	if errors.As(err, &either) {
		switch leadingKeyword(item) {
		case "impl":
			return parsed, either.Left
		case "trait":
			return parsed, either.Right
		}
	}
	shapeErr := errors.NewShapeError(
		"expected an `impl` block or a `trait` definition",
		item.Span(), "impl block", "trait definition",
	)
	shapeErr.WithCause(err)
	shapeErr.WithSuggestion("#[" + errors.BodiesAttribute + "] only applies to `impl` blocks and `trait` definitions")
	return parsed, shapeErr
}

// leadingKeyword returns the first identifier after attributes, visibility
// and item qualifiers.
func leadingKeyword(item syntax.Tokens) string {
	c := syntax.NewCursor(item, syntax.Token{})
	if _, err := syntax.ParseAttributes(c); err != nil {
		return ""
	}
	for {
		t, ok := c.Next()
		if !ok || t.Kind != syntax.Ident {
			return ""
		}
		switch t.Text {
		case "pub":
			if c.PeekGroup(syntax.Paren) {
				c.Next()
			}
		case "default", "unsafe", "auto":
		default:
			return t.Text
		}
	}
}
