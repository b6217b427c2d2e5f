package expand

import (
	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/syntax"
)

// RequireUnsafeInBody rewrites a single free function. Items that are not
// `unsafe` come back unchanged.
func (t *Transformer) RequireUnsafeInBody(attr, item syntax.Tokens) (string, error) {
	if len(attr) > 0 {
		return "", errors.NewUsageError(errors.BodyAttribute, attr.Span())
	}

	c := syntax.NewCursor(item, syntax.Token{})
	decl, err := syntax.ParseFnDecl(c)
	if err == nil {
		err = c.ExpectDone("function")
	}
	if err != nil {
		if _, scopeErr := parseScope(item); scopeErr == nil {
			return "", errors.UseBodiesInstead(item.Span())
		}
		return "", err
	}

	if !decl.Sig.Unsafe {
		return item.String(), nil
	}
	if err := t.rewriter.Rewrite(decl, nil); err != nil {
		return "", err
	}
	if !decl.Dirty {
		return item.String(), nil
	}
	return syntax.RenderFn(decl), nil
}
