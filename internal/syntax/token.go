package syntax

import (
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/requnsafe/internal/errors"
)

// Kind classifies a token tree.
type Kind int

const (
	EOF Kind = iota
	Ident
	Lifetime
	Literal
	Punct
	Group
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case Ident:
		return "identifier"
	case Lifetime:
		return "lifetime"
	case Literal:
		return "literal"
	case Punct:
		return "punctuation"
	case Group:
		return "group"
	default:
		return "end of input"
	}
}

// Delimiter is the bracket kind of a Group.
type Delimiter int

const (
	NoDelim Delimiter = iota
	Paren
	Bracket
	Brace
)

// Token is one lexical token together with the trivia (whitespace and
// comments) that preceded it in the source.
type Token struct {
	Kind Kind
	Text string
	Pos  lexer.Position
	Lead string
}

// Span returns the source range covered by the token.
func (t Token) Span() errors.Span {
	start := locationOf(t.Pos)
	end := start
	end.Offset += len(t.Text)
	if nl := strings.LastIndexByte(t.Text, '\n'); nl >= 0 {
		end.Line += strings.Count(t.Text, "\n")
		end.Column = utf8.RuneCountInString(t.Text[nl+1:]) + 1
	} else {
		end.Column += utf8.RuneCountInString(t.Text)
	}
	return errors.Span{Start: start, End: end}
}

func locationOf(pos lexer.Position) errors.SourceLocation {
	return errors.SourceLocation{
		File:   pos.Filename,
		Offset: pos.Offset,
		Line:   pos.Line,
		Column: pos.Column,
	}
}

// Tree is either a leaf token or a delimited group of trees. For groups the
// embedded Token is the opening delimiter.
type Tree struct {
	Token
	Delim Delimiter
	Inner Tokens
	Close Token
}

// IsGroup reports whether the tree is a delimited group, optionally of the
// given delimiter kind.
func (t Tree) IsGroup(delim ...Delimiter) bool {
	if t.Kind != Group {
		return false
	}
	if len(delim) == 0 {
		return true
	}
	for _, d := range delim {
		if t.Delim == d {
			return true
		}
	}
	return false
}

// IsIdent reports whether the tree is the identifier name.
func (t Tree) IsIdent(name string) bool {
	return t.Kind == Ident && t.Text == name
}

// IsPunct reports whether the tree is the single punctuation character ch.
func (t Tree) IsPunct(ch string) bool {
	return t.Kind == Punct && t.Text == ch
}

// Span covers the whole tree, including a group's closing delimiter.
func (t Tree) Span() errors.Span {
	span := t.Token.Span()
	if t.Kind == Group {
		span.End = t.Close.Span().End
	}
	return span
}

// Tokens is an ordered run of token trees.
type Tokens []Tree

// String renders the run with its original trivia, without the leading
// trivia of the first tree.
func (ts Tokens) String() string {
	var b strings.Builder
	ts.write(&b, true, "")
	return b.String()
}

// IsEmpty reports whether the run has no trees.
func (ts Tokens) IsEmpty() bool {
	return len(ts) == 0
}

// Normalized renders the run with exactly one space between tokens. Two
// runs with the same Normalized form are token-for-token identical.
func (ts Tokens) Normalized() string {
	var parts []string
	ts.collect(&parts)
	return strings.Join(parts, " ")
}

func (ts Tokens) collect(parts *[]string) {
	for _, t := range ts {
		*parts = append(*parts, t.Text)
		if t.Kind == Group {
			t.Inner.collect(parts)
			*parts = append(*parts, t.Close.Text)
		}
	}
}

// Span covers the run from the first to the last tree.
func (ts Tokens) Span() errors.Span {
	if len(ts) == 0 {
		return errors.Span{}
	}
	return errors.Span{Start: ts[0].Span().Start, End: ts[len(ts)-1].Span().End}
}

// IsSingleIdent reports whether the run is exactly the identifier name.
func (ts Tokens) IsSingleIdent(name string) bool {
	return len(ts) == 1 && ts[0].IsIdent(name)
}

func (ts Tokens) write(b *strings.Builder, dropFirstLead bool, shift string) {
	for i, t := range ts {
		if i > 0 || !dropFirstLead {
			b.WriteString(shiftLead(t.Lead, shift))
		}
		b.WriteString(t.Text)
		if t.Kind == Group {
			t.Inner.write(b, false, shift)
			b.WriteString(shiftLead(t.Close.Lead, shift))
			b.WriteString(t.Close.Text)
		}
	}
}

// shiftLead indents every line that starts inside lead by shift. Blank lines
// are left alone so no trailing whitespace is introduced.
func shiftLead(lead, shift string) string {
	if shift == "" || !strings.Contains(lead, "\n") {
		return lead
	}
	var b strings.Builder
	for i := 0; i < len(lead); i++ {
		b.WriteByte(lead[i])
		if lead[i] != '\n' {
			continue
		}
		if i+1 < len(lead) && (lead[i+1] == '\n' || lead[i+1] == '\r') {
			continue
		}
		b.WriteString(shift)
	}
	return b.String()
}

// indentOf returns the whitespace that starts the last line of lead.
func indentOf(lead string) string {
	nl := strings.LastIndexByte(lead, '\n')
	if nl < 0 {
		return ""
	}
	line := lead[nl+1:]
	end := 0
	for end < len(line) && (line[end] == ' ' || line[end] == '\t') {
		end++
	}
	return line[:end]
}
