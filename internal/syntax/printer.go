package syntax

import (
	"strings"
)

const indentUnit = "    "

// printer renders AST nodes. Untouched parts are written from their
// original tokens; synthesized and rewritten parts get canonical layout.
//
// base is the indentation of the item being printed and level the nesting
// relative to it. Original tokens printed at level n are shifted right by
// extra plus n indentation units so nested bodies keep their relative
// layout.
type printer struct {
	b     strings.Builder
	base  string
	extra string
	level int
}

func (p *printer) indent() string {
	return p.base + strings.Repeat(indentUnit, p.level)
}

func (p *printer) shift() string {
	return p.extra + strings.Repeat(indentUnit, p.level)
}

func (p *printer) newline() {
	p.b.WriteString("\n")
	p.b.WriteString(p.indent())
}

func (p *printer) raw(ts Tokens) {
	ts.write(&p.b, true, p.shift())
}

func (p *printer) word(s string) {
	p.b.WriteString(s)
}

// RenderFn renders a function declaration.
func RenderFn(f *FnDecl) string {
	p := &printer{base: leadIndent(f.Raw)}
	p.fn(f)
	return p.b.String()
}

// RenderImpl renders an impl block.
func RenderImpl(i *ItemImpl) string {
	p := &printer{base: leadIndent(i.Header)}
	p.impl(i)
	return p.b.String()
}

// RenderTrait renders a trait definition.
func RenderTrait(t *ItemTrait) string {
	p := &printer{base: leadIndent(t.Header)}
	p.trait(t)
	return p.b.String()
}

func leadIndent(ts Tokens) string {
	if len(ts) == 0 {
		return ""
	}
	return indentOf(ts[0].Lead)
}

func (p *printer) fn(f *FnDecl) {
	if !f.Dirty && len(f.Raw) > 0 {
		p.raw(f.Raw)
		return
	}
	for _, attr := range f.Attrs {
		p.raw(attr.Tokens)
		p.newline()
	}
	if len(f.Vis) > 0 {
		p.raw(f.Vis)
		p.word(" ")
	}
	if f.Default {
		p.word("default ")
	}
	p.signature(f.Sig)
	if f.Body == nil {
		p.word(";")
		return
	}
	p.word(" ")
	p.block(f.Body)
}

func (p *printer) signature(sig Signature) {
	if sig.Const {
		p.word("const ")
	}
	if sig.Async {
		p.word("async ")
	}
	if sig.Unsafe {
		p.word("unsafe ")
	}
	if len(sig.Abi) > 0 {
		p.raw(sig.Abi)
		p.word(" ")
	}
	p.word("fn ")
	p.word(sig.Name)
	p.genericParams(sig.Generics.Params, true)
	p.word("(")
	for i, param := range sig.Params {
		if i > 0 {
			p.word(", ")
		}
		p.param(param)
	}
	p.word(")")
	if len(sig.Output) > 0 {
		p.word(" -> ")
		p.raw(sig.Output)
	}
	p.where(sig.Generics.Where)
}

func (p *printer) param(param Param) {
	if len(param.Attrs) > 0 {
		p.raw(param.Attrs)
		p.word(" ")
	}
	if param.Kind == ReceiverParam {
		p.raw(param.Receiver)
		return
	}
	p.raw(param.Pat)
	p.word(": ")
	p.raw(param.Type)
}

func (p *printer) where(preds Tokens) {
	if len(preds) == 0 {
		return
	}
	p.word(" where ")
	p.raw(preds)
}

// genericParams writes `<...>` with bounds. Defaults are only allowed on
// type and trait definitions, so impls pass withDefaults=false.
func (p *printer) genericParams(params []GenericParam, withDefaults bool) {
	if len(params) == 0 {
		return
	}
	p.word("<")
	for i, param := range params {
		if i > 0 {
			p.word(", ")
		}
		if len(param.Attrs) > 0 {
			p.raw(param.Attrs)
			p.word(" ")
		}
		switch param.Kind {
		case ConstParam:
			p.word("const ")
			p.word(param.Name)
			p.word(": ")
			p.raw(param.Type)
		default:
			p.word(param.Name)
			if len(param.Bounds) > 0 {
				p.word(": ")
				p.raw(param.Bounds)
			}
		}
		if withDefaults && len(param.Default) > 0 {
			p.word(" = ")
			p.raw(param.Default)
		}
	}
	p.word(">")
}

// GenericArgs renders the parameter names as an argument list, e.g.
// `<'a, T, N>`, or the empty string when there are none.
func GenericArgs(params []GenericParam) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, len(params))
	for i, param := range params {
		names[i] = param.Name
	}
	return "<" + strings.Join(names, ", ") + ">"
}

func (p *printer) block(b *Block) {
	if b.Raw != nil {
		p.raw(Tokens{*b.Raw})
		return
	}
	p.word("{")
	p.level++
	for _, stmt := range b.Stmts {
		p.newline()
		p.stmt(stmt)
	}
	p.level--
	p.newline()
	p.word("}")
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *Expr:
		p.raw(s.Tokens)
		if s.Semi {
			p.word(";")
		}
	case *FnDecl:
		p.fn(s)
	case *ItemTrait:
		p.trait(s)
	case *ItemImpl:
		p.impl(s)
	}
}

func (p *printer) impl(i *ItemImpl) {
	if len(i.Header) > 0 {
		p.raw(i.Header)
		p.members(i.Body, i.Items)
		return
	}
	for _, attr := range i.Attrs {
		p.raw(attr.Tokens)
		p.newline()
	}
	if i.Unsafe {
		p.word("unsafe ")
	}
	p.word("impl")
	p.genericParams(i.Generics.Params, false)
	p.word(" ")
	if len(i.Trait) > 0 {
		if i.Negative {
			p.word("!")
		}
		p.raw(i.Trait)
		p.word(" for ")
	}
	p.raw(i.SelfType)
	p.where(i.Generics.Where)
	p.word(" ")
	p.synthesizedMembers(i.Items)
}

func (p *printer) trait(t *ItemTrait) {
	if len(t.Header) > 0 {
		p.raw(t.Header)
		p.members(t.Body, t.Items)
		return
	}
	for _, attr := range t.Attrs {
		p.raw(attr.Tokens)
		p.newline()
	}
	if len(t.Vis) > 0 {
		p.raw(t.Vis)
		p.word(" ")
	}
	if t.Unsafe {
		p.word("unsafe ")
	}
	p.word("trait ")
	p.word(t.Name)
	p.genericParams(t.Generics.Params, true)
	if len(t.Supertraits) > 0 {
		p.word(": ")
		p.raw(t.Supertraits)
	}
	p.where(t.Generics.Where)
	p.word(" ")
	p.synthesizedMembers(t.Items)
}

func (p *printer) synthesizedMembers(items []Item) {
	p.word("{")
	p.level++
	for _, item := range items {
		p.newline()
		if item.Fn != nil {
			p.fn(item.Fn)
		} else {
			p.raw(item.Raw)
		}
	}
	p.level--
	p.newline()
	p.word("}")
}

// members writes a parsed body. Members that were not rewritten keep their
// original text, trivia included; rewritten ones are laid out at the
// indentation their original first line had.
func (p *printer) members(body *Tree, items []Item) {
	shift := p.shift()
	p.word(shiftLead(body.Lead, shift))
	p.word(body.Text)
	for _, item := range items {
		if item.Fn == nil || !item.Fn.Dirty || len(item.Raw) == 0 {
			item.Raw.write(&p.b, false, shift)
			continue
		}
		lead := item.Raw[0].Lead
		p.word(shiftLead(lead, shift))
		sub := &printer{base: shift + indentOf(lead), extra: shift}
		sub.fn(item.Fn)
		p.word(sub.b.String())
	}
	p.word(shiftLead(body.Close.Lead, shift))
	p.word(body.Close.Text)
}
