package rewrite

import (
	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/syntax"
)

// IsMethod reports whether decl takes its enclosing type as the first
// parameter: a `self` receiver, a parameter bound to `self`, or one typed
// exactly `Self`. The returned span points at that parameter.
func IsMethod(decl *syntax.FnDecl) (errors.Span, bool) {
	if len(decl.Sig.Params) == 0 {
		return errors.Span{}, false
	}
	first := decl.Sig.Params[0]
	if first.IsSelf() || first.Type.IsSingleIdent("Self") {
		return first.Span(), true
	}
	return errors.Span{}, false
}
