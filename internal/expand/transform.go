package expand

import (
	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/rewrite"
	"github.com/toyz/requnsafe/internal/syntax"
)

// Transformer implements both attribute entry points. It holds no state
// between calls.
type Transformer struct {
	rewriter *rewrite.Rewriter
}

// NewTransformer creates a transformer whose generated names come from namer.
func NewTransformer(namer rewrite.Namer) *Transformer {
	return &Transformer{rewriter: rewrite.NewRewriter(namer)}
}

// Transform runs the entry point registered under name. attr holds the
// attribute arguments and item the decorated item, attribute removed.
func (t *Transformer) Transform(name string, attr, item syntax.Tokens) (string, error) {
	var (
		out string
		err error
	)
	switch name {
	case errors.BodyAttribute:
		out, err = t.RequireUnsafeInBody(attr, item)
	case errors.BodiesAttribute:
		out, err = t.RequireUnsafeInBodies(attr, item)
	default:
		err = errors.Newf(errors.UsageErrorCode, "unknown attribute `%s`", name).
			WithSuggestion("use #[" + errors.BodyAttribute + "] or #[" + errors.BodiesAttribute + "]")
	}
	if err != nil {
		fallback := item.Span()
		if len(attr) > 0 {
			fallback = attr.Span()
		}
		return "", errors.WithFallbackSpan(err, fallback)
	}
	return out, nil
}

// ArgsOf returns the arguments an attribute was invoked with. `#[a]` and
// `#[a()]` both have none.
func ArgsOf(attr syntax.Attribute) syntax.Tokens {
	if len(attr.Args) == 1 && attr.Args[0].IsGroup(syntax.Paren) {
		return attr.Args[0].Inner
	}
	return attr.Args
}
