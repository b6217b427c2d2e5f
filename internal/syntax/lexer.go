package syntax

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/requnsafe/internal/errors"
)

// Rules are tried in order; the first alternative that matches wins, so
// literal prefixes (b", r", b') must come before identifiers.
var rustLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s\x{FEFF}]+`},
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*(?s:.*?)\*/`},
	{Name: "RawString", Pattern: `b?r(?:"(?s:.*?)"|#"(?s:.*?)"#|##"(?s:.*?)"##|###"(?s:.*?)"###)`},
	{Name: "String", Pattern: `b?"(?s:\\.|[^"\\])*"`},
	{Name: "Char", Pattern: `b?'(?:\\u\{[0-9a-fA-F_]+\}|\\x[0-9a-fA-F]{2}|\\.|[^'\\\n])'`},
	{Name: "Lifetime", Pattern: `'(?:r#)?[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Number", Pattern: `(?:0x[0-9a-fA-F_]+|0o[0-7_]+|0b[01_]+|[0-9][0-9_]*(?:\.[0-9][0-9_]*)?(?:[eE][+-]?[0-9_]+)?)(?:[\p{L}_][\p{L}\p{N}_]*)?`},
	{Name: "Ident", Pattern: `(?:r#)?[\p{L}_][\p{L}\p{N}_]*`},
	{Name: "Delim", Pattern: `[()\[\]{}]`},
	{Name: "Punct", Pattern: `[!#$%&*+,\-./:;<=>?@^|~]`},
})

var kindBySymbol = func() map[lexer.TokenType]Kind {
	kinds := map[string]Kind{
		"RawString": Literal,
		"String":    Literal,
		"Char":      Literal,
		"Number":    Literal,
		"Lifetime":  Lifetime,
		"Ident":     Ident,
		"Delim":     Group,
		"Punct":     Punct,
	}
	result := make(map[lexer.TokenType]Kind)
	for name, typ := range rustLexer.Symbols() {
		if kind, ok := kinds[name]; ok {
			result[typ] = kind
		}
	}
	return result
}()

// Tokenize splits src into tokens. Whitespace and comments are folded into
// the Lead of the token that follows them; trailing trivia ends up on the
// final EOF token.
func Tokenize(filename, src string) ([]Token, error) {
	lex, err := rustLexer.LexString(filename, src)
	if err != nil {
		return nil, lexError(err)
	}
	raw, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, lexError(err)
	}

	tokens := make([]Token, 0, len(raw))
	lead := ""
	for _, tok := range raw {
		if tok.EOF() {
			tokens = append(tokens, Token{Kind: EOF, Pos: tok.Pos, Lead: lead})
			break
		}
		kind, ok := kindBySymbol[tok.Type]
		if !ok {
			lead += tok.Value
			continue
		}
		tokens = append(tokens, Token{Kind: kind, Text: tok.Value, Pos: tok.Pos, Lead: lead})
		lead = ""
	}
	return tokens, nil
}

func lexError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		loc := locationOf(pos)
		syntaxErr := errors.NewSyntaxError(fmt.Sprintf("unexpected character: %s", perr.Message()), errors.Span{Start: loc, End: loc})
		syntaxErr.WithCause(err)
		return syntaxErr
	}
	return errors.WrapParseError("source text", err)
}

// Source is a fully lexed file or snippet.
type Source struct {
	Trees Tokens
	EOF   Token
}

// String renders the source back to text, including all trivia.
func (s *Source) String() string {
	var b strings.Builder
	s.Trees.write(&b, false, "")
	b.WriteString(s.EOF.Lead)
	return b.String()
}

// Parse lexes src and groups the tokens into trees.
func Parse(filename, src string) (*Source, error) {
	tokens, err := Tokenize(filename, src)
	if err != nil {
		return nil, err
	}
	trees, eof, err := BuildTrees(tokens)
	if err != nil {
		return nil, err
	}
	return &Source{Trees: trees, EOF: eof}, nil
}

// MustTokens parses a snippet and panics on failure. It is meant for
// building synthesized code from fixed templates.
func MustTokens(src string) Tokens {
	source, err := Parse("<synthesized>", src)
	if err != nil {
		panic(fmt.Sprintf("syntax: invalid template %q: %v", src, err))
	}
	return source.Trees
}

var closers = map[string]string{"(": ")", "[": "]", "{": "}"}

var delimiters = map[string]Delimiter{"(": Paren, "[": Bracket, "{": Brace}

// BuildTrees groups a flat token list (terminated by EOF) into token trees.
func BuildTrees(tokens []Token) (Tokens, Token, error) {
	type frame struct {
		open  Token
		trees Tokens
	}
	stack := []frame{{}}
	var eof Token

	for _, tok := range tokens {
		if tok.Kind == EOF {
			eof = tok
			break
		}
		top := &stack[len(stack)-1]
		if tok.Kind != Group {
			top.trees = append(top.trees, Tree{Token: tok})
			continue
		}
		if _, opening := closers[tok.Text]; opening {
			stack = append(stack, frame{open: tok})
			continue
		}
		if len(stack) == 1 {
			return nil, Token{}, errors.NewSyntaxError(fmt.Sprintf("unexpected closing delimiter `%s`", tok.Text), tok.Span())
		}
		if closers[top.open.Text] != tok.Text {
			return nil, Token{}, errors.NewSyntaxError(
				fmt.Sprintf("mismatched closing delimiter `%s`, expected `%s`", tok.Text, closers[top.open.Text]),
				tok.Span(),
			)
		}
		group := Tree{Token: top.open, Delim: delimiters[top.open.Text], Inner: top.trees, Close: tok}
		stack = stack[:len(stack)-1]
		parent := &stack[len(stack)-1]
		parent.trees = append(parent.trees, group)
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1].open
		return nil, Token{}, errors.NewSyntaxError(fmt.Sprintf("unclosed delimiter `%s`", open.Text), open.Span())
	}
	return stack[0].trees, eof, nil
}
