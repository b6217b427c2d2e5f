package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/utils"
)

const tabWidth = 4

// DiagnosticReporter renders expansion errors the way compilers do: a
// header, the location, the offending source line with a caret underline,
// context notes and suggestions. It is safe for concurrent use.
type DiagnosticReporter struct {
	mu      sync.Mutex
	verbose bool
	colors  bool
	out     io.Writer
	locator *utils.CrateLocator
}

// NewDiagnosticReporter creates a reporter writing to stderr.
func NewDiagnosticReporter(verbose bool) *DiagnosticReporter {
	return NewDiagnosticReporterWithWriter(os.Stderr, verbose, utils.ShouldUseColors(os.Stderr))
}

// NewDiagnosticReporterWithWriter creates a reporter writing to out.
func NewDiagnosticReporterWithWriter(out io.Writer, verbose, colors bool) *DiagnosticReporter {
	return &DiagnosticReporter{
		verbose: verbose,
		colors:  colors,
		out:     out,
		locator: utils.NewCrateLocator(),
	}
}

func (r *DiagnosticReporter) paint(s string, attrs ...color.Attribute) string {
	if !r.colors {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// ReportWarning prints a one-line warning followed by its suggestions.
func (r *DiagnosticReporter) ReportWarning(message string, suggestions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "%s %s\n", r.paint("warning:", color.FgYellow, color.Bold), message)
	for _, suggestion := range suggestions {
		fmt.Fprintf(r.out, "  %s %s\n", r.paint("= help:", color.FgCyan), suggestion)
	}
}

// ReportDiagnostic prints one expansion failure with its source excerpt.
func (r *DiagnosticReporter) ReportDiagnostic(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report(d.Err, d.Source)
}

// ReportError prints err. Collections are reported one entry at a time;
// without source text no excerpt is shown.
func (r *DiagnosticReporter) ReportError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if multi, ok := err.(*errors.MultipleErrors); ok {
		for _, e := range multi.Errors {
			r.report(e, "")
		}
		return
	}
	r.report(err, "")
}

func (r *DiagnosticReporter) report(err error, source string) {
	var expandErr errors.ExpandError
	if !errors.As(err, &expandErr) {
		fmt.Fprintf(r.out, "%s %s\n\n", r.paint("error:", color.FgRed, color.Bold), err.Error())
		return
	}

	header := fmt.Sprintf("error[%s]:", kebab(expandErr.ErrorCode().String()))
	fmt.Fprintf(r.out, "%s %s\n", r.paint(header, color.FgRed, color.Bold), errors.MessageOf(expandErr))

	span := expandErr.Span()
	if !span.IsEmpty() {
		fmt.Fprintf(r.out, "  %s %s\n", r.paint("-->", color.FgBlue, color.Bold), span.Start.String())
		r.printExcerpt(span, source)
		if name := r.crateOf(span.Start.File); name != "" {
			fmt.Fprintf(r.out, "  %s crate: %s\n", r.paint("=", color.FgBlue), name)
		}
	}

	r.printContext(expandErr.Context())
	for _, suggestion := range expandErr.Suggestions() {
		fmt.Fprintf(r.out, "  %s %s\n", r.paint("= help:", color.FgCyan), suggestion)
	}

	if r.verbose {
		r.printCauses(expandErr.Unwrap())
	}
	fmt.Fprintln(r.out)
}

func (r *DiagnosticReporter) crateOf(file string) string {
	if file == "" || strings.HasPrefix(file, "<") {
		return ""
	}
	return r.locator.CrateName(file)
}

// printExcerpt writes the first line of span with a caret underline.
// Columns are counted in display cells so wide characters and tabs line
// up with the source.
func (r *DiagnosticReporter) printExcerpt(span errors.Span, source string) {
	line, ok := sourceLine(source, span.Start.Line)
	if !ok {
		return
	}

	runes := []rune(line)
	startCol := clamp(span.Start.Column-1, 0, len(runes))
	endCol := len(runes)
	if span.End.Line == span.Start.Line && span.End.Column > span.Start.Column {
		endCol = clamp(span.End.Column-1, startCol, len(runes))
	}

	prefix := displayWidth(string(runes[:startCol]))
	width := displayWidth(string(runes[startCol:endCol]))
	if width == 0 {
		width = 1
	}

	number := strconv.Itoa(span.Start.Line)
	gutter := strings.Repeat(" ", len(number))
	bar := r.paint("|", color.FgBlue, color.Bold)

	fmt.Fprintf(r.out, "%s %s\n", gutter, bar)
	fmt.Fprintf(r.out, "%s %s %s\n", r.paint(number, color.FgBlue, color.Bold), bar, expandTabs(line))
	fmt.Fprintf(r.out, "%s %s %s%s\n", gutter, bar, strings.Repeat(" ", prefix), r.paint(strings.Repeat("^", width), color.FgRed, color.Bold))
}

func (r *DiagnosticReporter) printContext(context map[string]interface{}) {
	if len(context) == 0 {
		return
	}
	keys := make([]string, 0, len(context))
	for key := range context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(r.out, "  %s %s: %v\n", r.paint("=", color.FgBlue), r.formatContextKey(key), context[key])
	}
}

func (r *DiagnosticReporter) printCauses(cause error) {
	level := 1
	for cause != nil {
		fmt.Fprintf(r.out, "  %s %d. %s\n", r.paint("caused by", color.FgHiBlack), level, cause.Error())
		unwrapper, ok := cause.(interface{ Unwrap() error })
		if !ok {
			return
		}
		cause = unwrapper.Unwrap()
		level++
	}
}

// formatContextKey formats context keys to be more readable
func (r *DiagnosticReporter) formatContextKey(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// ReportSuccess prints the run summary.
func (r *DiagnosticReporter) ReportSuccess(summary Summary, w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(w, "%s %d file(s) scanned, %d expanded, %d attribute(s) rewritten",
		r.paint("Finished", color.FgGreen, color.Bold),
		summary.FilesScanned, summary.FilesChanged, summary.Expansions)
	if summary.CacheHits > 0 {
		fmt.Fprintf(w, ", %d from cache", summary.CacheHits)
	}
	fmt.Fprintln(w)

	for _, file := range summary.Written {
		fmt.Fprintf(w, "  - %s\n", file)
	}
}

func sourceLine(source string, line int) (string, bool) {
	if source == "" || line < 1 {
		return "", false
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return "", false
	}
	return strings.TrimRight(lines[line-1], "\r"), true
}

func displayWidth(s string) int {
	width := 0
	for _, r := range s {
		if r == '\t' {
			width += tabWidth
			continue
		}
		width += runewidth.RuneWidth(r)
	}
	return width
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// kebab turns an error code name such as SyntaxError into `syntax`.
func kebab(code string) string {
	code = strings.TrimSuffix(code, "Error")
	var b strings.Builder
	for i, r := range code {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
