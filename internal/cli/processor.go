package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/toyz/requnsafe/internal/errors"
	"github.com/toyz/requnsafe/internal/expand"
	"github.com/toyz/requnsafe/internal/utils"
)

// Summary contains information about a processing run
type Summary struct {
	FilesScanned int
	FilesChanged int
	FilesFailed  int
	Expansions   int
	CacheHits    int
	Written      []string
}

// Stats returns the summary as diagnostic statistics.
func (s Summary) Stats() map[string]interface{} {
	return map[string]interface{}{
		"files scanned":  s.FilesScanned,
		"files expanded": s.FilesChanged,
		"files failed":   s.FilesFailed,
		"expansions":     s.Expansions,
		"cache hits":     s.CacheHits,
	}
}

// FileResult is the outcome of processing one file.
type FileResult struct {
	Path       string
	OutputPath string
	Expansion  *Expansion
	FromCache  bool
}

// Processor coordinates scanning, expanding and writing files
type Processor struct {
	config      Config
	scanner     *DirectoryScanner
	reader      *utils.FileReader
	expander    *FileExpander
	cache       *DiskCache
	reporter    *DiagnosticReporter
	diagnostics *utils.DiagnosticSystem
	stdout      io.Writer

	mu      sync.Mutex
	summary Summary
}

// NewProcessor creates a processor for cfg. cache may be nil.
func NewProcessor(cfg Config, cache *DiskCache, reporter *DiagnosticReporter, diagnostics *utils.DiagnosticSystem) *Processor {
	if diagnostics == nil {
		diagnostics = utils.NewQuietDiagnostics()
	}
	if reporter == nil {
		reporter = NewDiagnosticReporter(cfg.Verbose)
	}
	return &Processor{
		config:      cfg,
		scanner:     NewDirectoryScanner(cfg.Expand.OutputSuffix),
		reader:      utils.NewFileReader(),
		expander:    NewFileExpander(expand.NewTransformer(cfg.Namer()), cfg.Expand.RecursionLimit),
		cache:       cache,
		reporter:    reporter,
		diagnostics: diagnostics,
		stdout:      os.Stdout,
	}
}

// SetStdout redirects the output used in stdout mode.
func (p *Processor) SetStdout(w io.Writer) {
	p.stdout = w
}

// Summary returns the statistics of the last run.
func (p *Processor) Summary() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	summary := p.summary
	summary.Written = append([]string(nil), p.summary.Written...)
	sort.Strings(summary.Written)
	return summary
}

// OutputPath returns where the expansion of source is written.
func (p *Processor) OutputPath(source string) string {
	return strings.TrimSuffix(source, ".rs") + p.config.Expand.OutputSuffix
}

// Run expands every file named by the configured paths. Files are processed
// concurrently and independently; failures in one file do not stop the
// others. The returned error collects every failure.
func (p *Processor) Run(ctx context.Context) error {
	p.mu.Lock()
	p.summary = Summary{}
	p.mu.Unlock()

	p.diagnostics.StartProgress("Scanning for Rust sources")
	files, err := p.scanner.ScanPaths(p.config.Paths)
	if err != nil {
		p.diagnostics.Error("Failed to scan paths: %v", err)
		return err
	}
	p.diagnostics.EndProgress("Scanning for Rust sources")

	if len(files) == 0 {
		p.reporter.ReportWarning("no Rust sources found",
			"pass a file, a directory, or `dir/...` to search recursively")
		return nil
	}
	p.diagnostics.Verbose("Found %d files to process", len(files))

	_, err = p.ProcessFiles(ctx, files)
	return err
}

// ProcessFiles expands files with at most Jobs() in flight.
func (p *Processor) ProcessFiles(ctx context.Context, files []string) ([]*FileResult, error) {
	results := make([]*FileResult, len(files))
	failures := errors.NewMultipleErrors()
	var failMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Jobs())

	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := p.ProcessFile(file)
			results[i] = result
			if err != nil {
				failMu.Lock()
				failures.Add(err)
				failMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	if p.config.Stdout {
		p.writeStdout(results)
	}
	return results, failures.ErrorOrNil()
}

// ProcessFile expands a single file and writes the result according to the
// configured mode. Expansion diagnostics are reported as they are found.
func (p *Processor) ProcessFile(path string) (*FileResult, error) {
	p.diagnostics.Debug("Expanding %s", path)

	src, err := p.reader.ReadFile(path)
	if err != nil {
		p.record(nil, true)
		p.reporter.ReportError(err)
		return nil, err
	}

	key := p.cache.KeyFor(src, p.config.Namer(), p.config.Expand.RecursionLimit)
	result := &FileResult{Path: path, OutputPath: p.OutputPath(path)}

	if cached, ok := p.cache.Get(key); ok {
		result.Expansion = cached
		result.FromCache = true
	} else {
		exp, err := p.expander.Expand(path, src)
		if err != nil {
			p.record(nil, true)
			p.reporter.ReportDiagnostic(Diagnostic{Err: err, Source: src})
			return nil, err
		}
		result.Expansion = exp
		if len(exp.Diagnostics) == 0 {
			if err := p.cache.Put(key, exp); err != nil {
				p.diagnostics.Warn("Failed to cache %s: %v", path, err)
			}
		}
	}

	exp := result.Expansion
	for _, d := range exp.Diagnostics {
		p.reporter.ReportDiagnostic(d)
	}

	if !p.config.Check && !p.config.Stdout && exp.Changed() {
		if err := utils.WriteFileAtomic(result.OutputPath, []byte(exp.Output), 0o644); err != nil {
			p.record(result, true)
			return result, err
		}
		p.diagnostics.Verbose("Wrote %s", result.OutputPath)
	}

	failed := len(exp.Diagnostics) > 0
	p.record(result, failed)
	if failed {
		return result, errors.Newf(errors.UnknownErrorCode, "%s: %d attribute(s) failed to expand", path, len(exp.Diagnostics)).
			WithCause(exp.Err())
	}
	return result, nil
}

func (p *Processor) record(result *FileResult, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.summary.FilesScanned++
	if failed {
		p.summary.FilesFailed++
	}
	if result == nil {
		return
	}
	exp := result.Expansion
	p.summary.Expansions += exp.Expansions
	if exp.Changed() {
		p.summary.FilesChanged++
		if !p.config.Check && !p.config.Stdout {
			p.summary.Written = append(p.summary.Written, result.OutputPath)
		}
	}
	if result.FromCache {
		p.summary.CacheHits++
	}
}

// writeStdout prints expansions in input order, each preceded by a marker
// comment naming the source when more than one file was processed.
func (p *Processor) writeStdout(results []*FileResult) {
	multiple := len(results) > 1
	for _, result := range results {
		if result == nil || result.Expansion == nil {
			continue
		}
		if multiple {
			fmt.Fprintf(p.stdout, "// ===== %s =====\n", result.Path)
		}
		fmt.Fprint(p.stdout, result.Expansion.Output)
		if multiple && !strings.HasSuffix(result.Expansion.Output, "\n") {
			fmt.Fprintln(p.stdout)
		}
	}
}
