package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestDiagnostics(level DiagnosticLevel) (*DiagnosticSystem, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	d := NewDiagnosticSystemWithWriters(level, &out, &errOut)
	d.SetColors(false)
	d.SetShowTime(false)
	return d, &out, &errOut
}

func TestDiagnosticSystem_Levels(t *testing.T) {
	d, out, errOut := newTestDiagnostics(DiagnosticInfo)

	d.Error("broken %s", "file")
	d.Warn("careful")
	d.Info("hello")
	d.Verbose("hidden")
	d.Debug("hidden")

	assert.Equal(t, "[ERROR] broken file\n[WARN] careful\n", errOut.String())
	assert.Equal(t, "[INFO] hello\n", out.String())
}

func TestDiagnosticSystem_Silent(t *testing.T) {
	d, out, errOut := newTestDiagnostics(DiagnosticSilent)

	d.Error("x")
	d.Section("x")
	d.Summary("x", map[string]interface{}{"a": 1})

	assert.Empty(t, out.String())
	assert.Empty(t, errOut.String())
}

func TestDiagnosticSystem_IndentAndList(t *testing.T) {
	d, out, _ := newTestDiagnostics(DiagnosticInfo)

	d.Section("Files")
	d.Indent()
	d.List("%s", "lib.rs")
	d.Unindent()
	d.Unindent()
	d.List("done")

	assert.Equal(t, "Files\n  - lib.rs\n- done\n", out.String())
}

func TestDiagnosticSystem_Progress(t *testing.T) {
	d, out, _ := newTestDiagnostics(DiagnosticInfo)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }

	d.StartProgress("Expanding")
	clock = clock.Add(1500 * time.Millisecond)
	d.EndProgress("Expanding")
	d.EndProgress("Unknown")

	assert.Equal(t, "✓ Expanding (1.5s)\n✓ Unknown\n", out.String())
}

func TestDiagnosticSystem_SummarySorted(t *testing.T) {
	d, out, _ := newTestDiagnostics(DiagnosticInfo)

	d.Summary("Done", map[string]interface{}{"written": 2, "failed": 0, "scanned": 3})

	assert.Equal(t, "\nDone\n   failed: 0\n   scanned: 3\n   written: 2\n", out.String())
}

func TestShouldUseColors(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv("FORCE_COLOR", "")
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ShouldUseColors(&buf))

	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "1")
	assert.True(t, ShouldUseColors(&buf))

	t.Setenv("FORCE_COLOR", "")
	assert.False(t, ShouldUseColors(&buf))
}
