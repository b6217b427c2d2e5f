package errors

import (
	"fmt"
	"strings"
)

// Attribute names as written by users; they appear in guidance messages.
const (
	BodyAttribute   = "require_unsafe_in_body"
	BodiesAttribute = "require_unsafe_in_bodies"
)

// UsageError reports a transformation invoked with configuration arguments.
type UsageError struct {
	*BaseError
	Attribute string
}

// NewUsageError creates a usage error for the given attribute.
func NewUsageError(attribute string, span Span) *UsageError {
	err := &UsageError{
		BaseError: New(UsageErrorCode, "Unexpected parameter(s)"),
		Attribute: attribute,
	}
	err.WithSpan(span)
	err.WithContext("attribute", attribute)
	err.WithSuggestion(fmt.Sprintf("write the attribute without arguments: #[%s]", attribute))
	return err
}

// ContextError reports a method-shaped declaration handed to the
// single-declaration transform.
type ContextError struct {
	*BaseError
	Function string
}

// MethodRequiresScope creates the error raised when a method is decorated
// directly instead of through its enclosing impl or trait block.
func MethodRequiresScope(function string, span Span) *ContextError {
	message := fmt.Sprintf(
		"`#[%s]` does not support directly decorating a method; you need to decorate the whole `impl` or `trait` block with `#[%s]`",
		BodyAttribute, BodiesAttribute,
	)
	err := &ContextError{
		BaseError: New(ContextErrorCode, message),
		Function:  function,
	}
	err.WithSpan(span)
	err.WithContext("function_name", function)
	err.WithSuggestion(fmt.Sprintf("move the attribute to the enclosing block as #[%s]", BodiesAttribute))
	return err
}

// ShapeError reports an item that is not one of the shapes an entry point
// accepts.
type ShapeError struct {
	*BaseError
	Expected []string
}

// NewShapeError creates a shape error listing every accepted shape.
func NewShapeError(message string, span Span, expected ...string) *ShapeError {
	err := &ShapeError{
		BaseError: New(ShapeErrorCode, message),
		Expected:  expected,
	}
	err.WithSpan(span)
	if len(expected) > 0 {
		err.WithContext("expected", strings.Join(expected, " or "))
	}
	return err
}

// UseBodiesInstead creates the guidance error emitted when the
// single-declaration attribute decorates a whole impl or trait block.
func UseBodiesInstead(span Span) *ShapeError {
	err := NewShapeError(
		fmt.Sprintf("To decorate an `impl` or `trait` block, you need to use `#[%s]`", BodiesAttribute),
		span, "function",
	)
	err.WithSuggestion(fmt.Sprintf("replace #[%s] with #[%s]", BodyAttribute, BodiesAttribute))
	return err
}

// SyntaxError reports input tokens that do not parse.
type SyntaxError struct {
	*BaseError
	Found string
}

// NewSyntaxError creates a syntax error at the given span.
func NewSyntaxError(message string, span Span) *SyntaxError {
	err := &SyntaxError{
		BaseError: New(SyntaxErrorCode, message),
	}
	err.WithSpan(span)
	return err
}

// Expected creates the common "expected X, found Y" syntax error.
func Expected(what, found string, span Span) *SyntaxError {
	if found == "" {
		found = "end of input"
	}
	err := NewSyntaxError(fmt.Sprintf("expected %s, found `%s`", what, found), span)
	err.Found = found
	return err
}

// CompileError renders err as the `compile_error!` invocation a macro
// emits in place of the item it failed to expand.
func CompileError(err error) string {
	return fmt.Sprintf("compile_error!(%s);", quoteRust(MessageOf(err)))
}

// MessageOf returns the message of the first ExpandError in err's chain
// without its location prefix, or err.Error() for other errors.
func MessageOf(err error) string {
	var expandErr ExpandError
	if As(err, &expandErr) {
		if base, ok := baseOf(expandErr); ok {
			return base.Message
		}
	}
	return err.Error()
}

func baseOf(err ExpandError) (*BaseError, bool) {
	switch e := err.(type) {
	case *BaseError:
		return e, true
	case *UsageError:
		return e.BaseError, true
	case *ContextError:
		return e.BaseError, true
	case *ShapeError:
		return e.BaseError, true
	case *SyntaxError:
		return e.BaseError, true
	}
	return nil, false
}

func quoteRust(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
