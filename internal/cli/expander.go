package cli

import (
	"fmt"
	"strings"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/expand"
	"github.com/toyz/requnsafe/internal/syntax"
)

// Diagnostic is an expansion failure together with the text its span
// points into. Spans of later passes refer to partially expanded text.
type Diagnostic struct {
	Err    error
	Source string
}

// Expansion is the outcome of expanding one source text.
type Expansion struct {
	Output      string
	Expansions  int
	Passes      int
	Diagnostics []Diagnostic
}

// Changed reports whether any attribute was expanded.
func (e *Expansion) Changed() bool {
	return e.Expansions > 0
}

// Err combines every diagnostic, or returns nil.
func (e *Expansion) Err() error {
	if len(e.Diagnostics) == 0 {
		return nil
	}
	all := errors.NewMultipleErrors()
	for _, d := range e.Diagnostics {
		all.Add(d.Err)
	}
	return all
}

// FileExpander expands attribute invocations inside whole source files.
type FileExpander struct {
	transformer    *expand.Transformer
	recursionLimit int
}

// NewFileExpander creates an expander. recursionLimit bounds the number of
// rescans of expanded output.
func NewFileExpander(transformer *expand.Transformer, recursionLimit int) *FileExpander {
	if recursionLimit <= 0 {
		recursionLimit = DefaultRecursionLimit
	}
	return &FileExpander{transformer: transformer, recursionLimit: recursionLimit}
}

// invocation is one decorated item found in a pass.
type invocation struct {
	start, end int
	attr       syntax.Attribute
	item       syntax.Tokens
}

// Expand rewrites every item of src carrying one of the attributes.
// Outermost invocations are expanded first and the result is rescanned, so
// attributes left in expanded output are handled by later passes. Items
// that fail are replaced by a `compile_error!` invocation and reported in
// the returned Expansion. The error is only set when src cannot be lexed.
func (fe *FileExpander) Expand(filename, src string) (*Expansion, error) {
	result := &Expansion{Output: src}

	for {
		source, err := syntax.Parse(filename, result.Output)
		if err != nil {
			if result.Passes == 0 {
				return nil, err
			}
			result.Diagnostics = append(result.Diagnostics, Diagnostic{Err: err, Source: result.Output})
			return result, nil
		}

		found := findInvocations(source.Trees)
		if len(found) == 0 {
			return result, nil
		}
		if result.Passes >= fe.recursionLimit {
			err := errors.NewShapeError(
				fmt.Sprintf("recursion limit reached while expanding `#[%s]`", found[0].attr.Path),
				found[0].attr.Span(),
			)
			err.WithSuggestion(fmt.Sprintf("raise expand.recursion_limit (currently %d)", fe.recursionLimit))
			result.Diagnostics = append(result.Diagnostics, Diagnostic{Err: err, Source: result.Output})
			return result, nil
		}

		result.Output = fe.pass(result, found)
		result.Passes++
	}
}

func (fe *FileExpander) pass(result *Expansion, found []invocation) string {
	text := result.Output
	var b strings.Builder
	last := 0
	for _, inv := range found {
		b.WriteString(text[last:inv.start])

		out, err := fe.transformer.Transform(inv.attr.Name(), expand.ArgsOf(inv.attr), inv.item)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{Err: err, Source: text})
			out = errors.CompileError(err)
		}
		b.WriteString(out)

		result.Expansions++
		last = inv.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// IsExpandable reports whether an attribute invokes one of the transforms.
// Any path ending in the attribute name matches, so both the bare name and
// a crate-qualified path are accepted.
func IsExpandable(attr syntax.Attribute) bool {
	if attr.Inner {
		return false
	}
	switch attr.Name() {
	case errors.BodyAttribute, errors.BodiesAttribute:
		return true
	}
	return false
}

// findInvocations returns the outermost decorated items of trees in source
// order. Macro invocation bodies are not searched.
func findInvocations(trees syntax.Tokens) []invocation {
	var found []invocation

	for i := 0; i < len(trees); {
		t := trees[i]

		if t.IsPunct("#") {
			c := syntax.NewCursor(trees[i:], syntax.Token{})
			attrs, err := syntax.ParseAttributes(c)
			consumed := c.Mark()
			if err != nil || consumed == 0 {
				i++
				continue
			}
			if inv, ok := invocationAt(trees, i, attrs, i+consumed); ok {
				found = append(found, inv)
				i = itemEnd(trees, i+consumed)
				continue
			}
			i += consumed
			continue
		}

		if t.IsGroup() && !isMacroBody(trees, i) {
			found = append(found, findInvocations(t.Inner)...)
		}
		i++
	}
	return found
}

// invocationAt builds the invocation for the attribute run trees[start:body]
// if one of its attributes is expandable.
func invocationAt(trees syntax.Tokens, start int, attrs []syntax.Attribute, body int) (invocation, bool) {
	target := -1
	for k, attr := range attrs {
		if IsExpandable(attr) {
			target = k
			break
		}
	}
	if target < 0 {
		return invocation{}, false
	}

	end := itemEnd(trees, body)
	item := make(syntax.Tokens, 0, end-start)
	for k, attr := range attrs {
		if k != target {
			item = append(item, attr.Tokens...)
		}
	}
	item = append(item, trees[body:end]...)
	if len(item) > 0 {
		// the item takes over the attribute's position and indentation
		item[0].Lead = trees[start].Lead
	}

	return invocation{
		start: trees[start].Pos.Offset,
		end:   endOffset(trees[end-1]),
		attr:  attrs[target],
		item:  item,
	}, true
}

// itemEnd returns the index just past the item starting at from: after the
// first top-level `;` or after the brace group closing the item. Braces
// used as const generic arguments or initializers do not end an item.
func itemEnd(trees syntax.Tokens, from int) int {
	for j := from; j < len(trees); j++ {
		t := trees[j]
		if t.IsPunct(";") {
			return j + 1
		}
		if t.IsGroup(syntax.Brace) {
			if j > from {
				prev := trees[j-1]
				if prev.IsPunct("<") || prev.IsPunct(",") || prev.IsPunct("=") {
					continue
				}
			}
			return j + 1
		}
	}
	return len(trees)
}

// isMacroBody reports whether the group at i is the body of `name!(...)`
// or `macro_rules! name {...}`.
func isMacroBody(trees syntax.Tokens, i int) bool {
	if i >= 2 && trees[i-1].IsPunct("!") && trees[i-2].Kind == syntax.Ident {
		return true
	}
	return i >= 3 && trees[i-1].Kind == syntax.Ident && trees[i-2].IsPunct("!") && trees[i-3].IsIdent("macro_rules")
}

func endOffset(t syntax.Tree) int {
	if t.Kind == syntax.Group {
		return t.Close.Pos.Offset + len(t.Close.Text)
	}
	return t.Pos.Offset + len(t.Text)
}
