package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// DiagnosticLevel represents the level of diagnostic output
type DiagnosticLevel int

const (
	DiagnosticSilent DiagnosticLevel = iota
	DiagnosticError
	DiagnosticWarn
	DiagnosticInfo
	DiagnosticVerbose
	DiagnosticDebug
)

// DiagnosticSystem provides structured, user-friendly output. It is safe
// for concurrent use; files are expanded in parallel.
type DiagnosticSystem struct {
	mu        sync.Mutex
	level     DiagnosticLevel
	useColors bool
	showTime  bool
	output    io.Writer
	errorOut  io.Writer
	indent    int
	started   map[string]time.Time
	now       func() time.Time
}

// NewDiagnosticSystem creates a diagnostic system writing to stdout and
// stderr.
func NewDiagnosticSystem(level DiagnosticLevel) *DiagnosticSystem {
	return NewDiagnosticSystemWithWriters(level, os.Stdout, os.Stderr)
}

// NewDiagnosticSystemWithWriters creates a diagnostic system writing to
// out and errOut. Colors are only used when errOut is a terminal.
func NewDiagnosticSystemWithWriters(level DiagnosticLevel, out, errOut io.Writer) *DiagnosticSystem {
	return &DiagnosticSystem{
		level:     level,
		useColors: ShouldUseColors(errOut),
		showTime:  level >= DiagnosticVerbose,
		output:    out,
		errorOut:  errOut,
		started:   make(map[string]time.Time),
		now:       time.Now,
	}
}

// NewQuietDiagnostics creates a diagnostic system that only shows errors
func NewQuietDiagnostics() *DiagnosticSystem {
	return NewDiagnosticSystem(DiagnosticError)
}

// NewVerboseDiagnostics creates a diagnostic system with full output
func NewVerboseDiagnostics() *DiagnosticSystem {
	return NewDiagnosticSystem(DiagnosticVerbose)
}

// Level returns the configured level.
func (d *DiagnosticSystem) Level() DiagnosticLevel {
	return d.level
}

// SetColors forces colored output on or off.
func (d *DiagnosticSystem) SetColors(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.useColors = enabled
}

// SetShowTime toggles the timestamp prefix.
func (d *DiagnosticSystem) SetShowTime(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showTime = enabled
}

// Error outputs error messages (always shown unless silent)
func (d *DiagnosticSystem) Error(format string, args ...interface{}) {
	if d.level >= DiagnosticError {
		d.writeMessage(d.errorOut, "ERROR", color.FgRed, format, args...)
	}
}

// Warn outputs warning messages
func (d *DiagnosticSystem) Warn(format string, args ...interface{}) {
	if d.level >= DiagnosticWarn {
		d.writeMessage(d.errorOut, "WARN", color.FgYellow, format, args...)
	}
}

// Info outputs informational messages
func (d *DiagnosticSystem) Info(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "INFO", color.FgBlue, format, args...)
	}
}

// Success outputs success messages with emphasis
func (d *DiagnosticSystem) Success(format string, args ...interface{}) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "SUCCESS", color.FgGreen, format, args...)
	}
}

// Verbose outputs detailed messages (verbose mode only)
func (d *DiagnosticSystem) Verbose(format string, args ...interface{}) {
	if d.level >= DiagnosticVerbose {
		d.writeMessage(d.output, "VERBOSE", color.FgHiBlack, format, args...)
	}
}

// Debug outputs debug messages (highest verbosity)
func (d *DiagnosticSystem) Debug(format string, args ...interface{}) {
	if d.level >= DiagnosticDebug {
		d.writeMessage(d.output, "DEBUG", color.FgMagenta, format, args...)
	}
}

// Section creates a prominent section header
func (d *DiagnosticSystem) Section(title string) {
	if d.level < DiagnosticInfo {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.output, "%s\n", d.paint(title, color.FgCyan, color.Bold))
}

// List outputs a bulleted list item
func (d *DiagnosticSystem) List(format string, args ...interface{}) {
	if d.level < DiagnosticInfo {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.output, "%s- %s\n", d.getIndent(), fmt.Sprintf(format, args...))
}

// Indent increases the indentation level
func (d *DiagnosticSystem) Indent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.indent++
}

// Unindent decreases the indentation level
func (d *DiagnosticSystem) Unindent() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indent > 0 {
		d.indent--
	}
}

// StartProgress records the start of a named phase and announces it in
// verbose mode.
func (d *DiagnosticSystem) StartProgress(phase string) {
	d.mu.Lock()
	d.started[phase] = d.now()
	d.mu.Unlock()
	d.Verbose("%s...", phase)
}

// EndProgress reports a phase started with StartProgress along with its
// duration. Unknown phases are reported without one.
func (d *DiagnosticSystem) EndProgress(phase string) {
	d.mu.Lock()
	start, ok := d.started[phase]
	delete(d.started, phase)
	d.mu.Unlock()

	if d.level < DiagnosticInfo {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	mark := d.paint("✓", color.FgGreen)
	if !ok {
		fmt.Fprintf(d.output, "%s%s %s\n", d.getIndent(), mark, phase)
		return
	}
	elapsed := d.now().Sub(start).Round(time.Millisecond)
	fmt.Fprintf(d.output, "%s%s %s %s\n", d.getIndent(), mark, phase, d.paint("("+elapsed.String()+")", color.FgHiBlack))
}

// Summary outputs a final summary with statistics, sorted by key.
func (d *DiagnosticSystem) Summary(title string, stats map[string]interface{}) {
	if d.level < DiagnosticInfo {
		return
	}

	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.output, "\n%s\n", d.paint(title, color.Bold))
	for _, key := range keys {
		fmt.Fprintf(d.output, "   %s: %v\n", key, stats[key])
	}
}

func (d *DiagnosticSystem) writeMessage(writer io.Writer, level string, attr color.Attribute, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)

	d.mu.Lock()
	defer d.mu.Unlock()

	var output strings.Builder
	output.WriteString(d.getIndent())
	if d.showTime {
		output.WriteString(d.now().Format("15:04:05 "))
	}
	output.WriteString(d.paint("["+level+"]", attr))
	output.WriteString(" ")
	output.WriteString(message)
	output.WriteString("\n")

	fmt.Fprint(writer, output.String())
}

func (d *DiagnosticSystem) paint(s string, attrs ...color.Attribute) string {
	if !d.useColors {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (d *DiagnosticSystem) getIndent() string {
	return strings.Repeat("  ", d.indent)
}

// ShouldUseColors reports whether colored output should be written to w.
// NO_COLOR always wins, FORCE_COLOR enables colors for any writer, and
// otherwise w must be a terminal.
func ShouldUseColors(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if term := os.Getenv("TERM"); term == "dumb" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
