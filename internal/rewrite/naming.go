package rewrite

import (
	"fmt"
	"regexp"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/syntax"
)

// DefaultArgPrefix is the prefix of the generated parameter names.
const DefaultArgPrefix = "arg_"

var (
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	saltPattern  = regexp.MustCompile(`^[A-Za-z0-9_]*$`)
)

// Namer produces the identifiers introduced by a rewrite. Every generated
// name is reserved: it starts with `__require_unsafe_`, which user code is
// not expected to use. A non-empty Salt is mixed into the reserved names so
// output from two configurations can coexist in one scope.
type Namer struct {
	ArgPrefix string
	Salt      string
}

// DefaultNamer returns the namer used when nothing is configured.
func DefaultNamer() Namer {
	return Namer{ArgPrefix: DefaultArgPrefix}
}

// Validate checks that every generated name is a valid identifier.
func (n Namer) Validate() error {
	if !identPattern.MatchString(n.ArgPrefix) {
		return errors.Newf(errors.ConfigurationErrorCode, "argument prefix %q is not a valid identifier", n.ArgPrefix).
			WithSuggestion("use letters, digits and underscores, starting with a letter or underscore")
	}
	if !saltPattern.MatchString(n.Salt) {
		return errors.Newf(errors.ConfigurationErrorCode, "salt %q may only contain letters, digits and underscores", n.Salt)
	}
	return nil
}

func (n Namer) reserved(name string) string {
	if n.Salt == "" {
		return "__require_unsafe__" + name
	}
	return fmt.Sprintf("__require_unsafe_%s__%s", n.Salt, name)
}

// Inner is the name of the extracted body function.
func (n Namer) Inner() string {
	return n.reserved("inner")
}

// Trait is the name of the helper trait that carries a method body.
func (n Namer) Trait() string {
	return n.reserved("trait")
}

// SelfPlaceholder is the type parameter standing in for `Self` when a trait
// default method is rewritten.
func (n Namer) SelfPlaceholder() string {
	return n.reserved("Self")
}

// Arg is the name of the i-th non-receiver parameter, counting from zero.
func (n Namer) Arg(i int) string {
	prefix := n.ArgPrefix
	if prefix == "" {
		prefix = DefaultArgPrefix
	}
	return fmt.Sprintf("%s%d", prefix, i)
}

// Forwarding is the outcome of renaming a parameter list: the parameters
// the outer declaration keeps and the expressions that pass them on.
type Forwarding struct {
	Params []syntax.Param
	Args   []string
}

// RenameParams replaces every non-receiver pattern with a generated
// identifier. Receivers, including `self: Type` forms, keep their binding
// and are forwarded as `self`.
func (n Namer) RenameParams(params []syntax.Param) Forwarding {
	fwd := Forwarding{
		Params: make([]syntax.Param, len(params)),
		Args:   make([]string, 0, len(params)),
	}
	index := 0
	for i, param := range params {
		if param.IsSelf() {
			fwd.Params[i] = param
			fwd.Args = append(fwd.Args, "self")
			continue
		}
		name := n.Arg(index)
		index++
		renamed := param
		renamed.Pat = syntax.MustTokens(name)
		fwd.Params[i] = renamed
		fwd.Args = append(fwd.Args, name)
	}
	return fwd
}
