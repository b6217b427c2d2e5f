package syntax

import (
	"strings"

	"github.com/toyz/requnsafe/internal/errors"
)

// ParseAttributes consumes a run of outer or inner attributes.
func ParseAttributes(c *Cursor) ([]Attribute, error) {
	var attrs []Attribute
	for c.PeekPunct("#") {
		mark := c.Mark()
		fork := c.Fork()
		fork.Next()
		inner := fork.EatPunct("!")
		group, ok := fork.Peek()
		if !ok || !group.IsGroup(Bracket) {
			return attrs, fork.Errorf("`[`")
		}
		fork.Next()
		c.AdvanceTo(fork)

		path, args := splitAttrPath(group.Inner)
		if path == "" {
			return attrs, errors.Expected("attribute path", firstText(group.Inner), group.Span())
		}
		attrs = append(attrs, Attribute{
			Tokens: c.Since(mark),
			Path:   path,
			Args:   args,
			Inner:  inner,
		})
	}
	return attrs, nil
}

func splitAttrPath(inner Tokens) (string, Tokens) {
	c := NewCursor(inner, Token{})
	var path strings.Builder
	if c.EatPunct("::") {
		path.WriteString("::")
	}
	for {
		t, ok := c.Peek()
		if !ok || t.Kind != Ident {
			break
		}
		c.Next()
		path.WriteString(t.Text)
		if !c.EatPunct("::") {
			break
		}
		path.WriteString("::")
	}
	return path.String(), c.Rest()
}

func firstText(ts Tokens) string {
	if len(ts) == 0 {
		return ""
	}
	return ts[0].Text
}

// parseVisibility consumes `pub`, `pub(crate)`, `pub(in path)` and friends.
func parseVisibility(c *Cursor) Tokens {
	mark := c.Mark()
	if !c.EatIdent("pub") {
		return nil
	}
	if g, ok := c.Peek(); ok && g.IsGroup(Paren) && len(g.Inner) > 0 {
		switch g.Inner[0].Text {
		case "crate", "self", "super", "in":
			c.Next()
		}
	}
	return c.Since(mark)
}

// arrowTail reports whether the current tree is the `>` of `->` or `=>`.
func (c *Cursor) arrowTail() bool {
	t, ok := c.Peek()
	if !ok || !t.IsPunct(">") || t.Lead != "" || c.pos == 0 {
		return false
	}
	prev := c.trees[c.pos-1]
	return prev.IsPunct("-") || prev.IsPunct("=")
}

// scanType consumes trees until stop matches at angle-bracket depth zero.
// `->` and `=>` never close an angle bracket.
func scanType(c *Cursor, stop func(*Cursor) bool) Tokens {
	mark := c.Mark()
	depth := 0
	for !c.Done() {
		arrow := c.arrowTail()
		if depth == 0 && !arrow && stop(c) {
			break
		}
		t, _ := c.Next()
		switch {
		case arrow:
		case t.IsPunct("<"):
			depth++
		case t.IsPunct(">") && depth > 0:
			depth--
		}
	}
	return c.Since(mark)
}

func stopAt(puncts []string, idents []string, brace bool) func(*Cursor) bool {
	return func(c *Cursor) bool {
		for _, p := range puncts {
			if c.PeekPunct(p) {
				return true
			}
		}
		for _, id := range idents {
			if c.PeekIdent(id) {
				return true
			}
		}
		return brace && c.PeekGroup(Brace)
	}
}

var (
	stopGenericBound = stopAt([]string{",", ">", "="}, nil, false)
	stopGenericEnd   = stopAt([]string{",", ">"}, nil, false)
	stopReturnType   = stopAt([]string{";"}, []string{"where"}, true)
	stopWhere        = stopAt([]string{";"}, nil, true)
	stopImplTrait    = stopAt(nil, []string{"for", "where"}, true)
	stopImplSelf     = stopAt(nil, []string{"where"}, true)
	stopParam        = stopAt([]string{","}, nil, false)
)

// genericsAhead decides whether the `<` after `impl` opens a parameter list
// rather than a qualified self type such as `impl <T as Trait>::Out`.
func genericsAhead(c *Cursor) bool {
	if !c.PeekPunct("<") {
		return false
	}
	next, ok := c.PeekN(1)
	if !ok {
		return false
	}
	switch {
	case next.IsPunct(">"), next.IsPunct("#"), next.Kind == Lifetime, next.IsIdent("const"):
		return true
	case next.Kind == Ident:
		after, ok := c.PeekN(2)
		if !ok {
			return false
		}
		if after.IsPunct(":") {
			// `T::Assoc` is a path, `T: Bound` a parameter.
			if colon, ok := c.PeekN(3); ok && colon.IsPunct(":") && colon.Lead == "" {
				return false
			}
			return true
		}
		return after.IsPunct(",") || after.IsPunct(">") || after.IsPunct("=")
	}
	return false
}

// parseGenericParams parses `<...>` into parameters.
func parseGenericParams(c *Cursor) ([]GenericParam, error) {
	if err := c.ExpectPunct("<"); err != nil {
		return nil, err
	}
	var params []GenericParam
	for {
		if c.EatPunct(">") {
			return params, nil
		}
		mark := c.Mark()
		if _, err := ParseAttributes(c); err != nil {
			return nil, err
		}
		attrs := c.Since(mark)

		t, ok := c.Peek()
		if !ok {
			return nil, c.Errorf("`>`")
		}
		param := GenericParam{Attrs: attrs}
		switch {
		case t.Kind == Lifetime:
			c.Next()
			param.Kind = LifetimeParam
			param.Name = t.Text
			if c.EatPunct(":") {
				param.Bounds = scanType(c, stopGenericEnd)
			}
		case t.IsIdent("const"):
			c.Next()
			name, err := c.AnyIdent("const parameter name")
			if err != nil {
				return nil, err
			}
			if err := c.ExpectPunct(":"); err != nil {
				return nil, err
			}
			param.Kind = ConstParam
			param.Name = name.Text
			param.Type = scanType(c, stopGenericBound)
			if c.EatPunct("=") {
				param.Default = scanType(c, stopGenericEnd)
			}
		case t.Kind == Ident:
			c.Next()
			param.Kind = TypeParam
			param.Name = t.Text
			if c.EatPunct(":") {
				param.Bounds = scanType(c, stopGenericBound)
			}
			if c.EatPunct("=") {
				param.Default = scanType(c, stopGenericEnd)
			}
		default:
			return nil, c.Errorf("generic parameter")
		}
		params = append(params, param)

		if !c.EatPunct(",") {
			if err := c.ExpectPunct(">"); err != nil {
				return nil, err
			}
			return params, nil
		}
	}
}

// parseParams parses the contents of a function's parameter group.
func parseParams(group Tree) ([]Param, error) {
	c := NewCursor(group.Inner, group.Close)
	var params []Param
	for !c.Done() {
		mark := c.Mark()
		if _, err := ParseAttributes(c); err != nil {
			return nil, err
		}
		attrs := c.Since(mark)

		chunk := scanType(c, stopParam)
		if len(chunk) == 0 {
			return nil, c.Errorf("parameter")
		}
		param, err := splitParam(chunk)
		if err != nil {
			return nil, err
		}
		param.Attrs = attrs
		params = append(params, param)

		if !c.EatPunct(",") && !c.Done() {
			return nil, c.Errorf("`,`")
		}
	}
	return params, nil
}

func splitParam(chunk Tokens) (Param, error) {
	depth := 0
	for i := 0; i < len(chunk); i++ {
		t := chunk[i]
		switch {
		case t.IsPunct("<"):
			depth++
		case t.IsPunct(">") && depth > 0:
			depth--
		case t.IsPunct(":") && depth == 0:
			if i+1 < len(chunk) && chunk[i+1].IsPunct(":") && chunk[i+1].Lead == "" {
				i++
				continue
			}
			pat, typ := chunk[:i], chunk[i+1:]
			if len(pat) == 0 || len(typ) == 0 {
				return Param{}, errors.Expected("parameter pattern and type", t.Text, t.Span())
			}
			return Param{Kind: TypedParam, Pat: pat, Type: typ}, nil
		}
	}

	if chunk[len(chunk)-1].IsIdent("self") {
		for _, t := range chunk[:len(chunk)-1] {
			if !t.IsPunct("&") && !t.IsIdent("mut") && t.Kind != Lifetime {
				return Param{}, errors.Expected("`self` receiver", t.Text, t.Span())
			}
		}
		return Param{Kind: ReceiverParam, Receiver: chunk}, nil
	}
	return Param{}, errors.Expected("`:` after parameter pattern", chunk[len(chunk)-1].Text, chunk.Span())
}

// fnAhead reports whether a function signature starts at c, after any
// `default`, `const`, `async`, `unsafe` and `extern "abi"` qualifiers.
func fnAhead(c *Cursor) bool {
	fork := c.Fork()
	if fork.PeekIdent("default") {
		fork.Next()
	}
	fork.EatIdent("const")
	fork.EatIdent("async")
	fork.EatIdent("unsafe")
	if fork.EatIdent("extern") {
		if t, ok := fork.Peek(); ok && t.Kind == Literal {
			fork.Next()
		}
	}
	return fork.PeekIdent("fn")
}

func parseSignature(c *Cursor) (Signature, error) {
	var sig Signature
	sig.Const = c.EatIdent("const")
	sig.Async = c.EatIdent("async")
	sig.Unsafe = c.EatIdent("unsafe")
	if c.PeekIdent("extern") {
		mark := c.Mark()
		c.Next()
		if t, ok := c.Peek(); ok && t.Kind == Literal {
			c.Next()
		}
		sig.Abi = c.Since(mark)
	}
	if _, err := c.ExpectIdent("fn"); err != nil {
		return sig, err
	}
	name, err := c.AnyIdent("function name")
	if err != nil {
		return sig, err
	}
	sig.Name = name.Text
	sig.NameTok = name.Token

	if c.PeekPunct("<") {
		params, err := parseGenericParams(c)
		if err != nil {
			return sig, err
		}
		sig.Generics.Params = params
	}

	group, err := c.ExpectGroup(Paren, "`(`")
	if err != nil {
		return sig, err
	}
	if sig.Params, err = parseParams(group); err != nil {
		return sig, err
	}

	if c.EatPunct("->") {
		sig.Output = scanType(c, stopReturnType)
		if len(sig.Output) == 0 {
			return sig, c.Errorf("return type")
		}
	}
	if c.EatIdent("where") {
		sig.Generics.Where = scanType(c, stopWhere)
	}
	return sig, nil
}

// ParseFnDecl parses one function-like item: attributes, visibility,
// optional `default`, the signature, and a body or `;`.
func ParseFnDecl(c *Cursor) (*FnDecl, error) {
	mark := c.Mark()
	attrs, err := ParseAttributes(c)
	if err != nil {
		return nil, err
	}
	decl := &FnDecl{Attrs: attrs}
	decl.Vis = parseVisibility(c)
	if c.PeekIdent("default") {
		fork := c.Fork()
		fork.Next()
		if fnAhead(fork) {
			c.AdvanceTo(fork)
			decl.Default = true
		}
	}
	if decl.Sig, err = parseSignature(c); err != nil {
		return nil, err
	}

	switch {
	case c.PeekGroup(Brace):
		body, _ := c.Next()
		decl.Body = &Block{Raw: &body}
	case c.EatPunct(";"):
	default:
		return nil, c.Errorf("`{` or `;`")
	}
	decl.Raw = c.Since(mark)
	return decl, nil
}

// ParseItemImpl parses an `impl` block.
func ParseItemImpl(c *Cursor) (*ItemImpl, error) {
	mark := c.Mark()
	attrs, err := ParseAttributes(c)
	if err != nil {
		return nil, err
	}
	item := &ItemImpl{Attrs: attrs}
	if c.PeekIdent("default") {
		if next, ok := c.PeekN(1); ok && (next.IsIdent("impl") || next.IsIdent("unsafe")) {
			c.Next()
			item.Default = true
		}
	}
	item.Unsafe = c.EatIdent("unsafe")
	if _, err := c.ExpectIdent("impl"); err != nil {
		return nil, err
	}
	if genericsAhead(c) {
		if item.Generics.Params, err = parseGenericParams(c); err != nil {
			return nil, err
		}
	}
	item.Negative = c.EatPunct("!")

	first := scanType(c, stopImplTrait)
	if len(first) == 0 {
		return nil, c.Errorf("type")
	}
	if c.EatIdent("for") {
		item.Trait = first
		item.SelfType = scanType(c, stopImplSelf)
		if len(item.SelfType) == 0 {
			return nil, c.Errorf("self type")
		}
	} else {
		if item.Negative {
			return nil, c.Errorf("`for`")
		}
		item.SelfType = first
	}

	if c.EatIdent("where") {
		item.Generics.Where = scanType(c, stopWhere)
	}
	item.Header = c.Since(mark)
	body, err := c.ExpectGroup(Brace, "`{`")
	if err != nil {
		return nil, err
	}
	item.Body = &body
	if item.Items, err = parseMembers(body); err != nil {
		return nil, err
	}
	return item, nil
}

// ParseItemTrait parses a `trait` definition.
func ParseItemTrait(c *Cursor) (*ItemTrait, error) {
	mark := c.Mark()
	attrs, err := ParseAttributes(c)
	if err != nil {
		return nil, err
	}
	item := &ItemTrait{Attrs: attrs}
	item.Vis = parseVisibility(c)
	item.Unsafe = c.EatIdent("unsafe")
	item.Auto = c.EatIdent("auto")
	if _, err := c.ExpectIdent("trait"); err != nil {
		return nil, err
	}
	name, err := c.AnyIdent("trait name")
	if err != nil {
		return nil, err
	}
	item.Name = name.Text
	if c.PeekPunct("<") {
		if item.Generics.Params, err = parseGenericParams(c); err != nil {
			return nil, err
		}
	}
	if c.EatPunct(":") {
		item.Supertraits = scanType(c, stopImplSelf)
	}
	if c.EatIdent("where") {
		item.Generics.Where = scanType(c, stopWhere)
	}
	item.Header = c.Since(mark)
	body, err := c.ExpectGroup(Brace, "`{`")
	if err != nil {
		return nil, err
	}
	item.Body = &body
	if item.Items, err = parseMembers(body); err != nil {
		return nil, err
	}
	return item, nil
}

// parseMembers splits an impl or trait body into members. Functions are
// parsed; everything else is kept as raw tokens.
func parseMembers(body Tree) ([]Item, error) {
	c := NewCursor(body.Inner, body.Close)
	var items []Item
	for !c.Done() {
		// inner attributes such as `#![allow(unused)]`
		if c.PeekPunct("#") {
			if bang, ok := c.PeekN(1); ok && bang.IsPunct("!") {
				mark := c.Mark()
				if _, err := ParseAttributes(c); err != nil {
					return nil, err
				}
				items = append(items, Item{Raw: c.Since(mark)})
				continue
			}
		}

		fork := c.Fork()
		if _, err := ParseAttributes(fork); err != nil {
			return nil, err
		}
		parseVisibility(fork)
		if fnAhead(fork) {
			fn, err := ParseFnDecl(c)
			if err != nil {
				return nil, err
			}
			items = append(items, Item{Fn: fn, Raw: fn.Raw})
			continue
		}

		mark := c.Mark()
		for !c.Done() {
			t, _ := c.Next()
			if t.IsPunct(";") {
				break
			}
			if t.IsGroup(Brace) && macroBody(c.Since(mark)) {
				break
			}
		}
		items = append(items, Item{Raw: c.Since(mark)})
	}
	return items, nil
}

// macroBody reports whether run ends with the brace group of a macro
// invocation (`m! { }` or `macro_rules! m { }`), which needs no `;`.
func macroBody(run Tokens) bool {
	n := len(run)
	if n < 2 {
		return false
	}
	if run[n-2].IsPunct("!") {
		return true
	}
	return n >= 3 && run[n-2].Kind == Ident && run[n-3].IsPunct("!")
}

// MustAttribute parses a single attribute from a fixed template.
func MustAttribute(src string) Attribute {
	trees := MustTokens(src)
	attrs, err := ParseAttributes(NewCursor(trees, Token{}))
	if err != nil || len(attrs) != 1 {
		panic("syntax: invalid attribute template " + src)
	}
	return attrs[0]
}
