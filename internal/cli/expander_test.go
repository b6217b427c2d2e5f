package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/expand"
	"github.com/toyz/requnsafe/internal/rewrite"
)

func newExpander(limit int) *FileExpander {
	return NewFileExpander(expand.NewTransformer(rewrite.DefaultNamer()), limit)
}

func TestFileExpander_TopLevelFunction(t *testing.T) {
	src := "use std::ptr;\n\n" +
		"#[require_unsafe_in_body]\n" +
		"pub unsafe fn deref(p: *const u8) -> u8 {\n" +
		"    let v = *p;\n" +
		"    v\n" +
		"}\n\n" +
		"fn safe() {}\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)
	require.Empty(t, exp.Diagnostics)

	assert.Equal(t, "use std::ptr;\n\n"+
		"pub unsafe fn deref(arg_0: *const u8) -> u8 {\n"+
		"    #[inline(always)]\n"+
		"    fn __require_unsafe__inner(p: *const u8) -> u8 {\n"+
		"        let v = *p;\n"+
		"        v\n"+
		"    }\n"+
		"    __require_unsafe__inner(arg_0)\n"+
		"}\n\n"+
		"fn safe() {}\n", exp.Output)
	assert.Equal(t, 1, exp.Expansions)
	assert.Equal(t, 1, exp.Passes)
	assert.True(t, exp.Changed())
}

func TestFileExpander_NestedInModule(t *testing.T) {
	src := "mod m {\n" +
		"    #[require_unsafe_in_body]\n" +
		"    unsafe fn f() {}\n" +
		"}\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)

	assert.Equal(t, "mod m {\n"+
		"    unsafe fn f() {\n"+
		"        #[inline(always)]\n"+
		"        fn __require_unsafe__inner() {}\n"+
		"        __require_unsafe__inner()\n"+
		"    }\n"+
		"}\n", exp.Output)
}

func TestFileExpander_KeepsOtherAttributes(t *testing.T) {
	src := "/// Docs.\n#[must_use]\n#[requnsafe::require_unsafe_in_body]\n#[cfg(unix)]\nunsafe fn f() -> u8 { 0 }\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)
	require.Empty(t, exp.Diagnostics)

	assert.True(t, strings.HasPrefix(exp.Output, "/// Docs.\n#[must_use]\n#[cfg(unix)]\nunsafe fn f() -> u8 {"), exp.Output)
	assert.NotContains(t, exp.Output, "require_unsafe_in_body")
}

func TestFileExpander_Bodies(t *testing.T) {
	src := "#[require_unsafe_in_bodies]\n" +
		"impl Foo {\n" +
		"    unsafe fn get(&self) -> u8 { self.0 }\n" +
		"    fn safe(&self) {}\n" +
		"}\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)
	require.Empty(t, exp.Diagnostics)

	assert.True(t, strings.HasPrefix(exp.Output, "impl Foo {\n"))
	assert.Contains(t, exp.Output, "<Self as __require_unsafe__trait>::__require_unsafe__inner(self)")
	assert.Contains(t, exp.Output, "\n    fn safe(&self) {}\n}\n")
}

func TestFileExpander_RescansExpandedOutput(t *testing.T) {
	src := "#[require_unsafe_in_body]\n" +
		"unsafe fn outer() {\n" +
		"    #[require_unsafe_in_body]\n" +
		"    unsafe fn helper() {}\n" +
		"}\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)
	require.Empty(t, exp.Diagnostics)

	assert.Equal(t, 2, exp.Expansions)
	assert.Equal(t, 2, exp.Passes)
	assert.NotContains(t, exp.Output, "require_unsafe_in_body")
}

func TestFileExpander_RecursionLimit(t *testing.T) {
	src := "#[require_unsafe_in_body]\n" +
		"unsafe fn outer() {\n" +
		"    #[require_unsafe_in_body]\n" +
		"    unsafe fn helper() {}\n" +
		"}\n"

	exp, err := newExpander(1).Expand("lib.rs", src)
	require.NoError(t, err)

	require.Len(t, exp.Diagnostics, 1)
	assert.Contains(t, exp.Diagnostics[0].Err.Error(), "recursion limit reached")
	assert.Equal(t, 1, exp.Expansions)
	assert.Error(t, exp.Err())
}

func TestFileExpander_FailuresBecomeCompileErrors(t *testing.T) {
	src := "fn before() {}\n\n#[require_unsafe_in_body(fast)]\nunsafe fn f() {}\n\nfn after() {}\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)

	assert.Equal(t, "fn before() {}\n\ncompile_error!(\"Unexpected parameter(s)\");\n\nfn after() {}\n", exp.Output)
	require.Len(t, exp.Diagnostics, 1)
	assert.Equal(t, errors.UsageErrorCode, errors.CodeOf(exp.Diagnostics[0].Err))
	assert.Equal(t, src, exp.Diagnostics[0].Source)

	span := exp.Diagnostics[0].Err.(errors.ExpandError).Span()
	assert.Equal(t, "lib.rs", span.Start.File)
	assert.Equal(t, 3, span.Start.Line)
}

func TestFileExpander_CollectsEveryFailure(t *testing.T) {
	src := "#[require_unsafe_in_body]\nstruct A;\n#[require_unsafe_in_body]\nunsafe fn ok() {}\n#[require_unsafe_in_bodies]\nenum B {}\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)

	require.Len(t, exp.Diagnostics, 2)
	assert.Equal(t, errors.SyntaxErrorCode, errors.CodeOf(exp.Diagnostics[0].Err))
	assert.Equal(t, errors.ShapeErrorCode, errors.CodeOf(exp.Diagnostics[1].Err))
	assert.Equal(t, 3, exp.Expansions)
	assert.Contains(t, exp.Output, "__require_unsafe__inner()")

	var multi *errors.MultipleErrors
	require.ErrorAs(t, exp.Err(), &multi)
	assert.Equal(t, 2, multi.Count())
}

func TestFileExpander_Untouched(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no attributes", "fn main() {\n    println!(\"hi\");\n}\n"},
		{"other attributes", "#[inline]\n#![allow(unused)]\nunsafe fn f() {}\n"},
		{"macro bodies", "macro_rules! m {\n    () => {\n        #[require_unsafe_in_body]\n        unsafe fn f() {}\n    };\n}\n"},
		{"macro invocation", "quote! {\n    #[require_unsafe_in_body]\n    unsafe fn f() {}\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := newExpander(0).Expand("lib.rs", tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.src, exp.Output)
			assert.False(t, exp.Changed())
			assert.NoError(t, exp.Err())
		})
	}
}

func TestFileExpander_LexErrors(t *testing.T) {
	_, err := newExpander(0).Expand("lib.rs", "fn f() { ]")
	require.Error(t, err)
	assert.Equal(t, errors.SyntaxErrorCode, errors.CodeOf(err))
}

func TestItemEnd(t *testing.T) {
	src := "#[require_unsafe_in_body]\nunsafe fn f<const N: usize>() -> Arr<{ N }> where Arr<{ N }>: Copy { todo!() }\nfn g() {}\n"

	exp, err := newExpander(0).Expand("lib.rs", src)
	require.NoError(t, err)
	require.Empty(t, exp.Diagnostics)
	assert.True(t, strings.HasSuffix(exp.Output, "}\nfn g() {}\n"), exp.Output)
	assert.Contains(t, exp.Output, "__require_unsafe__inner::<N>()")
}
