package syntax

import (
	"github.com/toyz/requnsafe/internal/errors"
)

// Cursor walks a run of token trees. It is a value-sized checkpoint: Fork
// copies it for a speculative parse and AdvanceTo commits the fork once the
// trial succeeded. Nothing is shared between a cursor and its forks, so a
// failed trial leaves the original untouched.
type Cursor struct {
	trees Tokens
	pos   int
	end   Token
}

// NewCursor creates a cursor over trees. end is reported as the position of
// "end of input" errors, typically a group's closing delimiter or EOF.
func NewCursor(trees Tokens, end Token) *Cursor {
	return &Cursor{trees: trees, end: end}
}

// Fork returns an independent copy of the cursor.
func (c *Cursor) Fork() *Cursor {
	fork := *c
	return &fork
}

// AdvanceTo moves c to the position reached by fork. fork must have been
// created from c.
func (c *Cursor) AdvanceTo(fork *Cursor) {
	c.pos = fork.pos
}

// Done reports whether every tree has been consumed.
func (c *Cursor) Done() bool {
	return c.pos >= len(c.trees)
}

// Peek returns the current tree without consuming it.
func (c *Cursor) Peek() (Tree, bool) {
	return c.PeekN(0)
}

// PeekN returns the tree n positions ahead.
func (c *Cursor) PeekN(n int) (Tree, bool) {
	if c.pos+n >= len(c.trees) {
		return Tree{}, false
	}
	return c.trees[c.pos+n], true
}

// Next consumes and returns the current tree.
func (c *Cursor) Next() (Tree, bool) {
	t, ok := c.Peek()
	if ok {
		c.pos++
	}
	return t, ok
}

// Rest returns the unconsumed trees.
func (c *Cursor) Rest() Tokens {
	return c.trees[c.pos:]
}

// Since returns the trees consumed since the cursor was at mark.
func (c *Cursor) Since(mark int) Tokens {
	return c.trees[mark:c.pos]
}

// Mark returns the current position for use with Since.
func (c *Cursor) Mark() int {
	return c.pos
}

// PeekIdent reports whether the current tree is the identifier name.
func (c *Cursor) PeekIdent(name string) bool {
	t, ok := c.Peek()
	return ok && t.IsIdent(name)
}

// PeekPunct reports whether the upcoming trees spell op as a run of joint
// punctuation characters.
func (c *Cursor) PeekPunct(op string) bool {
	return c.punctAt(0, op)
}

func (c *Cursor) punctAt(offset int, op string) bool {
	for i := 0; i < len(op); i++ {
		t, ok := c.PeekN(offset + i)
		if !ok || !t.IsPunct(op[i:i+1]) {
			return false
		}
		if i > 0 && t.Lead != "" {
			return false
		}
	}
	return true
}

// PeekGroup reports whether the current tree is a group with delimiter d.
func (c *Cursor) PeekGroup(d Delimiter) bool {
	t, ok := c.Peek()
	return ok && t.IsGroup(d)
}

// EatIdent consumes the identifier name if it is next.
func (c *Cursor) EatIdent(name string) bool {
	if c.PeekIdent(name) {
		c.pos++
		return true
	}
	return false
}

// EatPunct consumes op if it is next.
func (c *Cursor) EatPunct(op string) bool {
	if c.PeekPunct(op) {
		c.pos += len(op)
		return true
	}
	return false
}

// ExpectIdent consumes the identifier name or fails.
func (c *Cursor) ExpectIdent(name string) (Tree, error) {
	t, _ := c.Peek()
	if !c.EatIdent(name) {
		return Tree{}, c.Errorf("`" + name + "`")
	}
	return t, nil
}

// ExpectPunct consumes op or fails.
func (c *Cursor) ExpectPunct(op string) error {
	if !c.EatPunct(op) {
		return c.Errorf("`" + op + "`")
	}
	return nil
}

// ExpectGroup consumes a group with delimiter d or fails.
func (c *Cursor) ExpectGroup(d Delimiter, what string) (Tree, error) {
	if !c.PeekGroup(d) {
		return Tree{}, c.Errorf(what)
	}
	t, _ := c.Next()
	return t, nil
}

// AnyIdent consumes any identifier.
func (c *Cursor) AnyIdent(what string) (Tree, error) {
	t, ok := c.Peek()
	if !ok || t.Kind != Ident {
		return Tree{}, c.Errorf(what)
	}
	c.pos++
	return t, nil
}

// Span is the span of the current tree, or of the end token when done.
func (c *Cursor) Span() errors.Span {
	if t, ok := c.Peek(); ok {
		return t.Span()
	}
	return c.end.Span()
}

// Errorf builds an "expected what, found ..." syntax error at the cursor.
func (c *Cursor) Errorf(what string) error {
	found := ""
	if t, ok := c.Peek(); ok {
		found = t.Text
	}
	return errors.Expected(what, found, c.Span())
}

// ExpectDone fails unless the cursor consumed every tree.
func (c *Cursor) ExpectDone(what string) error {
	if c.Done() {
		return nil
	}
	t, _ := c.Peek()
	return errors.NewSyntaxError("unexpected token `"+t.Text+"` after "+what, t.Span())
}
