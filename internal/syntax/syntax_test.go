package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/requnsafe/internal/errors"
)

func cursorOf(src string) *Cursor {
	return NewCursor(MustTokens(src), Token{})
}

func TestTokenize(t *testing.T) {
	tokens, err := Tokenize("lib.rs", "fn a<'x>(s: &'x str) -> char { 'c' } // end\n")
	require.NoError(t, err)

	var kinds []Kind
	var texts []string
	for _, tok := range tokens {
		kinds = append(kinds, tok.Kind)
		texts = append(texts, tok.Text)
	}
	assert.Equal(t, []string{
		"fn", "a", "<", "'x", ">", "(", "s", ":", "&", "'x", "str", ")",
		"-", ">", "char", "{", "'c'", "}", "",
	}, texts)
	assert.Equal(t, Lifetime, kinds[3])
	assert.Equal(t, Literal, kinds[16])
	assert.Equal(t, EOF, kinds[len(kinds)-1])
	assert.Equal(t, " // end\n", tokens[len(tokens)-1].Lead)
}

func TestTokenize_Literals(t *testing.T) {
	src := `r#"a "quoted" b"# b"\x00" 1_000u32 0x_FF 2.5e-3 b'\n' '\u{1F600}' r#type`
	tokens, err := Tokenize("", src)
	require.NoError(t, err)
	require.Len(t, tokens, 9)
	for _, tok := range tokens[:7] {
		assert.Equal(t, Literal, tok.Kind, tok.Text)
	}
	assert.Equal(t, Ident, tokens[7].Kind)
	assert.Equal(t, "r#type", tokens[7].Text)
}

func TestTokenize_Positions(t *testing.T) {
	tokens, err := Tokenize("src/lib.rs", "fn\n  foo")
	require.NoError(t, err)
	span := tokens[1].Span()
	assert.Equal(t, "src/lib.rs", span.Start.File)
	assert.Equal(t, 2, span.Start.Line)
	assert.Equal(t, 3, span.Start.Column)
	assert.Equal(t, 6, span.End.Column)
}

func TestParse_RoundTrip(t *testing.T) {
	src := "// header\n#![allow(dead_code)]\n\nimpl Foo {\n    /* c */ fn a(&self) {}\n}\n\n"
	source, err := Parse("lib.rs", src)
	require.NoError(t, err)
	assert.Equal(t, src, source.String())
	assert.Len(t, source.Trees, 6)
}

func TestBuildTrees_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"unclosed", "fn f() {", "unclosed delimiter `{`"},
		{"mismatched", "fn f(] {}", "mismatched closing delimiter `]`, expected `)`"},
		{"stray closer", "fn f() {}}", "unexpected closing delimiter `}`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("", tt.src)
			require.Error(t, err)
			assert.Equal(t, errors.SyntaxErrorCode, errors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestTokens_Normalized(t *testing.T) {
	a := MustTokens("fn  f ( x : u8 ) {\n}")
	b := MustTokens("fn f(x: u8) {}")
	assert.Equal(t, a.Normalized(), b.Normalized())
	assert.Equal(t, "fn f ( x : u8 ) { }", b.Normalized())
}

func TestCursor_ForkAndPunct(t *testing.T) {
	c := cursorOf("a -> b - > c")
	fork := c.Fork()
	fork.Next()
	assert.True(t, fork.PeekPunct("->"))
	assert.True(t, fork.EatPunct("->"))
	assert.Equal(t, 0, c.Mark())

	c.AdvanceTo(fork)
	assert.True(t, c.PeekIdent("b"))
	c.Next()
	assert.False(t, c.PeekPunct("->"), "spaced punctuation is not joint")
	assert.True(t, c.PeekPunct("-"))
}

func TestCursor_Errors(t *testing.T) {
	c := cursorOf("fn")
	_, err := c.ExpectIdent("struct")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected `struct`, found `fn`")

	c.Next()
	err = c.Errorf("name")
	assert.Contains(t, err.Error(), "found `end of input`")

	c = cursorOf("a b")
	c.Next()
	assert.Contains(t, c.ExpectDone("item").Error(), "unexpected token `b` after item")
}

func TestParseFnDecl(t *testing.T) {
	c := cursorOf(`#[inline]
/// doc
pub(crate) const async unsafe extern "C" fn call<'a, T: Into<Vec<u8>> + 'a, const N: usize = 3>(
    &'a mut self,
    #[allow(unused)] (a, b): (T, [u8; N]),
    f: impl Fn(u8) -> Result<(), ()>,
) -> Option<HashMap<u8, u8>>
where
    T: Clone,
{
    body()
}`)
	decl, err := ParseFnDecl(c)
	require.NoError(t, err)
	require.NoError(t, c.ExpectDone("function"))

	require.Len(t, decl.Attrs, 1)
	assert.Equal(t, "inline", decl.Attrs[0].Path)
	assert.Equal(t, "pub ( crate )", decl.Vis.Normalized())

	sig := decl.Sig
	assert.True(t, sig.Const)
	assert.True(t, sig.Async)
	assert.True(t, sig.Unsafe)
	assert.Equal(t, `extern "C"`, sig.Abi.Normalized())
	assert.Equal(t, "call", sig.Name)

	require.Len(t, sig.Generics.Params, 3)
	assert.Equal(t, LifetimeParam, sig.Generics.Params[0].Kind)
	assert.Equal(t, "Into < Vec < u8 > > + 'a", sig.Generics.Params[1].Bounds.Normalized())
	assert.Equal(t, ConstParam, sig.Generics.Params[2].Kind)
	assert.Equal(t, "usize", sig.Generics.Params[2].Type.Normalized())
	assert.Equal(t, "3", sig.Generics.Params[2].Default.Normalized())
	assert.Len(t, sig.Generics.Forwardable(), 2)

	require.Len(t, sig.Params, 3)
	assert.Equal(t, ReceiverParam, sig.Params[0].Kind)
	assert.Equal(t, "& 'a mut self", sig.Params[0].Receiver.Normalized())
	assert.Equal(t, "# [ allow ( unused ) ]", sig.Params[1].Attrs.Normalized())
	assert.Equal(t, "( a , b )", sig.Params[1].Pat.Normalized())
	assert.Equal(t, "impl Fn ( u8 ) - > Result < ( ) , ( ) >", sig.Params[2].Type.Normalized())

	assert.Equal(t, "Option < HashMap < u8 , u8 > >", sig.Output.Normalized())
	assert.Equal(t, "T : Clone ,", sig.Generics.Where.Normalized())
	require.NotNil(t, decl.Body)
	assert.Equal(t, "{ body ( ) }", Tokens{*decl.Body.Raw}.Normalized())
}

func TestParseFnDecl_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing name", "fn (x: u8) {}"},
		{"missing params", "fn f {}"},
		{"missing body", "fn f()"},
		{"bad param", "fn f(x) {}"},
		{"not a function", "struct S;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFnDecl(cursorOf(tt.src))
			require.Error(t, err)
			assert.Equal(t, errors.SyntaxErrorCode, errors.CodeOf(err))
		})
	}
}

func TestParseItemImpl(t *testing.T) {
	t.Run("trait impl", func(t *testing.T) {
		item, err := ParseItemImpl(cursorOf(`unsafe impl<T: Copy> Send for Foo<T> where T: 'static {
    type Out = u8;
    const N: usize = 1;
    my_macro! { x }
    fn a(&self) {}
    unsafe fn b() -> u8 { 0 }
}`))
		require.NoError(t, err)
		assert.True(t, item.Unsafe)
		assert.Equal(t, "Send", item.Trait.Normalized())
		assert.Equal(t, "Foo < T >", item.SelfType.Normalized())
		assert.Equal(t, "T : 'static", item.Generics.Where.Normalized())
		require.Len(t, item.Items, 5)
		assert.Nil(t, item.Items[0].Fn)
		assert.Nil(t, item.Items[2].Fn)
		assert.Equal(t, "a", item.Items[3].Fn.Sig.Name)
		assert.Equal(t, "b", item.Items[4].Fn.Sig.Name)
	})

	t.Run("qualified self type", func(t *testing.T) {
		item, err := ParseItemImpl(cursorOf("impl <T as Tr>::Out {}"))
		require.NoError(t, err)
		assert.Empty(t, item.Generics.Params)
		assert.Equal(t, "< T as Tr > : : Out", item.SelfType.Normalized())
	})

	t.Run("negative impl", func(t *testing.T) {
		item, err := ParseItemImpl(cursorOf("impl !Sync for Foo {}"))
		require.NoError(t, err)
		assert.True(t, item.Negative)
	})
}

func TestParseItemTrait(t *testing.T) {
	item, err := ParseItemTrait(cursorOf(`pub unsafe trait Tr<'a, T = u8>: Super<T> + 'a where T: Copy {
    #![allow(unused)]
    type Arg;
    fn required(&self);
    default fn provided(&self) {}
}`))
	require.NoError(t, err)
	assert.True(t, item.Unsafe)
	assert.Equal(t, "Tr", item.Name)
	assert.Equal(t, "Super < T > + 'a", item.Supertraits.Normalized())
	require.Len(t, item.Generics.Params, 2)
	assert.Equal(t, "u8", item.Generics.Params[1].Default.Normalized())

	require.Len(t, item.Items, 4)
	assert.Nil(t, item.Items[0].Fn)
	assert.Nil(t, item.Items[2].Fn.Body)
	assert.True(t, item.Items[3].Fn.Default)
}

func TestRender_Unchanged(t *testing.T) {
	src := "impl Foo {\n    // one\n    fn a(&self) {}\n}"
	item, err := ParseItemImpl(cursorOf(src))
	require.NoError(t, err)
	assert.Equal(t, src, RenderImpl(item))
}

func TestRender_Synthesized(t *testing.T) {
	decl, err := ParseFnDecl(cursorOf("pub fn f<T: Clone>(x: T) -> T {\n    x\n}"))
	require.NoError(t, err)

	decl.Dirty = true
	decl.Body = &Block{Stmts: []Stmt{
		&ItemTrait{
			Name:     "Helper",
			Generics: decl.Sig.Generics,
			Items:    []Item{{Raw: MustTokens("type X;")}},
		},
		&Expr{Tokens: MustTokens("x"), Semi: true},
		&Expr{Tokens: MustTokens("x")},
	}}
	assert.Equal(t, "pub fn f<T: Clone>(x: T) -> T {\n"+
		"    trait Helper<T: Clone> {\n"+
		"        type X;\n"+
		"    }\n"+
		"    x;\n"+
		"    x\n"+
		"}", RenderFn(decl))
}

func TestRender_NestedShift(t *testing.T) {
	src := "    impl Foo {\n        unsafe fn a() {\n            body();\n        }\n    }"
	source, err := Parse("", src)
	require.NoError(t, err)
	item, err := ParseItemImpl(NewCursor(source.Trees, source.EOF))
	require.NoError(t, err)

	fn := item.Items[0].Fn.Clone()
	fn.Dirty = true
	fn.Body = &Block{Stmts: []Stmt{
		&FnDecl{Sig: Signature{Name: "inner"}, Body: fn.Body, Dirty: true},
	}}
	item.Items[0].Fn = fn

	assert.Equal(t, "impl Foo {\n"+
		"        unsafe fn a() {\n"+
		"            fn inner() {\n"+
		"                body();\n"+
		"            }\n"+
		"        }\n"+
		"    }", RenderImpl(item))
}

func TestGenericArgs(t *testing.T) {
	decl, err := ParseFnDecl(cursorOf("fn f<'a, T, const N: usize>() {}"))
	require.NoError(t, err)
	assert.Equal(t, "<'a, T, N>", GenericArgs(decl.Sig.Generics.Params))
	assert.Equal(t, "<T, N>", GenericArgs(decl.Sig.Generics.Forwardable()))
	assert.Equal(t, "", GenericArgs(nil))
}

func TestMustAttribute(t *testing.T) {
	attr := MustAttribute("#[path::to::attr(x, y)]")
	assert.Equal(t, "path::to::attr", attr.Path)
	assert.Equal(t, "attr", attr.Name())
	assert.Equal(t, "( x , y )", attr.Args.Normalized())

	assert.Panics(t, func() { MustAttribute("fn") })
}
