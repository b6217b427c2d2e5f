package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = "#[require_unsafe_in_body]\nunsafe fn f() {}\n"

const expanded = "unsafe fn f() {\n" +
	"    #[inline(always)]\n" +
	"    fn __require_unsafe__inner() {}\n" +
	"    __require_unsafe__inner()\n" +
	"}\n"

// execute runs the command line in-process with an isolated cache.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, Version)
}

func TestHelp(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "expand")
	assert.Contains(t, stdout, "check")
	assert.Contains(t, stdout, "clean")
}

func TestExpand_RequiresPaths(t *testing.T) {
	_, _, err := execute(t, "expand")
	assert.Error(t, err)
}

func TestExpand_WritesOutputs(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "src/lib.rs", source)
	writeSource(t, dir, "src/plain.rs", "fn g() {}\n")

	_, stderr, err := execute(t, "expand", dir+"/...")
	require.NoError(t, err)
	assert.Contains(t, stderr, "1 attribute(s) rewritten")

	out, err := os.ReadFile(filepath.Join(dir, "src", "lib.expanded.rs"))
	require.NoError(t, err)
	assert.Equal(t, expanded, string(out))

	_, err = os.Stat(filepath.Join(dir, "src", "plain.expanded.rs"))
	assert.True(t, os.IsNotExist(err), "unchanged files produce no output")
}

func TestExpand_Stdout(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "lib.rs", source)

	stdout, _, err := execute(t, "expand", "--stdout", lib)
	require.NoError(t, err)
	assert.Equal(t, expanded, stdout)

	_, err = os.Stat(filepath.Join(dir, "lib.expanded.rs"))
	assert.True(t, os.IsNotExist(err))
}

func TestExpand_FlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, ".requnsafe.toml", "[naming]\nsalt = \"cfg\"\n")
	lib := writeSource(t, dir, "lib.rs", source)

	stdout, _, err := execute(t, "expand", "--stdout", lib)
	require.NoError(t, err)
	assert.Contains(t, stdout, "__require_unsafe_cfg__inner")

	stdout, _, err = execute(t, "expand", "--stdout", "--salt", "flag", lib)
	require.NoError(t, err)
	assert.Contains(t, stdout, "__require_unsafe_flag__inner")
}

func TestExpand_CustomSuffix(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "lib.rs", source)

	_, _, err := execute(t, "expand", "--suffix", ".out.rs", dir)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "lib.out.rs"))
	require.NoError(t, err)
	assert.Equal(t, expanded, string(out))
}

func TestExpand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, ".requnsafe.toml", "[expand]\nrecursion_limit = 0\n")
	writeSource(t, dir, "lib.rs", source)

	_, stderr, err := execute(t, "expand", dir)
	require.Error(t, err)
	assert.Contains(t, stderr, "recursion_limit")
}

func TestExpand_RequiresNewerVersion(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, ".requnsafe.toml", "requires = \">= 99.0.0\"\n")
	writeSource(t, dir, "lib.rs", source)

	_, _, err := execute(t, "expand", dir)
	assert.Error(t, err)
}

func TestCheck(t *testing.T) {
	t.Run("clean sources pass", func(t *testing.T) {
		dir := t.TempDir()
		writeSource(t, dir, "lib.rs", source)

		_, _, err := execute(t, "check", dir)
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(dir, "lib.expanded.rs"))
		assert.True(t, os.IsNotExist(err), "check writes nothing")
	})

	t.Run("failures are reported", func(t *testing.T) {
		dir := t.TempDir()
		writeSource(t, dir, "bad.rs", "#[require_unsafe_in_body(x)]\nunsafe fn f() {}\n")

		_, stderr, err := execute(t, "check", dir)
		require.Error(t, err)
		assert.Contains(t, stderr, "error[usage]: Unexpected parameter(s)")
		assert.Contains(t, stderr, "bad.rs:1:")
	})
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	lib := writeSource(t, dir, "src/lib.rs", source)
	output := writeSource(t, dir, "src/lib.expanded.rs", expanded)

	_, _, err := execute(t, "clean", dir+"/...")
	require.NoError(t, err)

	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(lib)
	assert.NoError(t, err, "sources are kept")
}

func TestClean_CacheOnly(t *testing.T) {
	dir := t.TempDir()
	output := writeSource(t, dir, "lib.expanded.rs", expanded)

	stdout, _, err := execute(t, "clean", "--cache-only")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dropped 0 cached expansion(s)")

	_, err = os.Stat(output)
	assert.NoError(t, err, "outputs are kept")
}
