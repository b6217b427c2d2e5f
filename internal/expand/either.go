package expand

import (
	"fmt"

	"github.com/toyz/requnsafe/internal/syntax"
)

// Either is the result of a two-way speculative parse. Exactly one side is
// set, as reported by IsLeft.
type Either[L, R any] struct {
	Left   L
	Right  R
	IsLeft bool
}

// EitherError reports that neither alternative matched.
type EitherError struct {
	Left  error
	Right error
}

func (e *EitherError) Error() string {
	return fmt.Sprintf("no alternative matched: %v; %v", e.Left, e.Right)
}

func (e *EitherError) Unwrap() []error {
	return []error{e.Left, e.Right}
}

// ParseEither tries left, then right, each on a fork of c. A trial wins
// only if it consumes all remaining input; the winning fork is committed
// to c. On failure c is left where it was.
func ParseEither[L, R any](
	c *syntax.Cursor,
	left func(*syntax.Cursor) (L, error),
	right func(*syntax.Cursor) (R, error),
) (Either[L, R], error) {
	var result Either[L, R]

	fork := c.Fork()
	l, leftErr := left(fork)
	if leftErr == nil {
		leftErr = fork.ExpectDone("item")
	}
	if leftErr == nil {
		c.AdvanceTo(fork)
		result.Left, result.IsLeft = l, true
		return result, nil
	}

	fork = c.Fork()
	r, rightErr := right(fork)
	if rightErr == nil {
		rightErr = fork.ExpectDone("item")
	}
	if rightErr == nil {
		c.AdvanceTo(fork)
		result.Right = r
		return result, nil
	}
	return result, &EitherError{Left: leftErr, Right: rightErr}
}
