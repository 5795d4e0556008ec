// Package pipeline runs a whole extraction: locate sources, analyze them in
// parallel, merge the facts in locator order and build the document.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/toyz/spectra/internal/aggregate"
	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/facts"
	"github.com/toyz/spectra/internal/frontend/annotation"
	"github.com/toyz/spectra/internal/frontend/decorator"
	"github.com/toyz/spectra/internal/ir"
	"github.com/toyz/spectra/internal/locator"
	"github.com/toyz/spectra/internal/utils"
)

// Options configures a pipeline
type Options struct {
	Workers     int
	CacheSize   int
	MaxFileSize int64
	Registry    *facts.Registry
	Diagnostics *utils.DiagnosticSystem
}

// Stats summarizes one run
type Stats struct {
	FilesScanned int
	FilesSkipped int
	FilesFailed  int
	CacheHits    int
	Endpoints    int
	Schemas      int
	Conflicts    int
	Duration     time.Duration
}

// Result is the outcome of one run
type Result struct {
	RunID     string
	Document  *ir.Document
	Conflicts []aggregate.Conflict
	// Warnings holds every recoverable diagnostic in discovery order
	Warnings []errors.SpectraError
	Stats    Stats
}

// Pipeline owns the analyzer registry and the facts cache shared by
// successive runs, so watch-mode rebuilds only re-analyze changed files
type Pipeline struct {
	registry    *facts.Registry
	cache       *utils.Cache[string, outcome]
	diagnostics *utils.DiagnosticSystem
	workers     int
	maxFileSize int64
}

// outcome is the analysis result of one file, cached by path and validated
// against the content hash
type outcome struct {
	facts *facts.FileFacts
	err   errors.SpectraError
}

// DefaultRegistry registers every built-in front-end
func DefaultRegistry() (*facts.Registry, error) {
	registry := facts.NewRegistry()
	for _, a := range []facts.Analyzer{decorator.New(), annotation.New()} {
		if err := registry.Register(a); err != nil {
			return nil, fmt.Errorf("failed to register %s analyzer: %w", a.Name(), err)
		}
	}
	return registry, nil
}

// New creates a pipeline. Zero options fall back to defaults.
func New(opts Options) (*Pipeline, error) {
	registry := opts.Registry
	if registry == nil {
		var err error
		if registry, err = DefaultRegistry(); err != nil {
			return nil, err
		}
	}
	cache, err := utils.NewCache[string, outcome](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create facts cache: %w", err)
	}
	diagnostics := opts.Diagnostics
	if diagnostics == nil {
		diagnostics = utils.NewDiscardDiagnostics()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pipeline{
		registry:    registry,
		cache:       cache,
		diagnostics: diagnostics,
		workers:     workers,
		maxFileSize: opts.MaxFileSize,
	}, nil
}

// Run extracts the document for every source file under root. Only a missing
// root or a cancelled context is an error; everything else degrades into
// warnings.
func (p *Pipeline) Run(ctx context.Context, root string, info ir.Info) (*Result, error) {
	started := time.Now()

	located, err := locator.Locate(root, locator.Options{
		Extensions:  p.registry.Extensions(),
		MaxFileSize: p.maxFileSize,
	})
	if err != nil {
		return nil, err
	}
	p.diagnostics.Verbose("Found %d source files under %s", len(located.Sources), root)

	slots := make([]outcome, len(located.Sources))
	hits := make([]bool, len(located.Sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, src := range located.Sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i], hits[i] = p.analyze(src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	run := aggregate.NewRun(info)
	result := &Result{RunID: run.ID}
	p.diagnostics.Debug("Merging facts for run %s", run.ID)

	for _, skip := range located.Skipped {
		result.Warnings = append(result.Warnings, skip.Reason)
	}
	result.Stats.FilesScanned = len(located.Sources)
	result.Stats.FilesSkipped = len(located.Skipped)

	for i, out := range slots {
		if hits[i] {
			result.Stats.CacheHits++
		}
		if out.err != nil {
			result.Stats.FilesFailed++
			result.Warnings = append(result.Warnings, out.err)
			continue
		}
		result.Warnings = append(result.Warnings, out.facts.Diagnostics...)
		diags, err := run.Merge(out.facts)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(result.Warnings, diags...)
	}

	doc, conflicts, warnings := run.Build()
	for _, c := range conflicts {
		result.Warnings = append(result.Warnings, c.Err())
	}
	result.Warnings = append(result.Warnings, warnings...)

	result.Document = doc
	result.Conflicts = conflicts
	result.Stats.Endpoints = doc.EndpointCount()
	result.Stats.Schemas = len(doc.Schemas())
	result.Stats.Conflicts = len(conflicts)
	result.Stats.Duration = time.Since(started)
	return result, nil
}

// analyze runs the front-end for one file, serving unchanged files from the
// cache. The second result reports a cache hit.
func (p *Pipeline) analyze(src locator.Source) (outcome, bool) {
	fingerprint := utils.ContentFingerprint(src.Content)
	if cached, ok := p.cache.GetValidated(src.RelPath, fingerprint); ok {
		p.diagnostics.Debug("Reusing cached facts for %s", src.RelPath)
		return cached, true
	}

	analyzer, ok := p.registry.ForPath(src.RelPath)
	if !ok {
		// the locator only returns registered extensions
		return outcome{facts: facts.NewFileFacts(src.RelPath, "")}, false
	}

	p.diagnostics.Verbose("Analyzing %s (%s)", src.RelPath, analyzer.Name())
	out := safeAnalyze(analyzer, src)
	p.cache.Set(src.RelPath, out, fingerprint)
	return out, false
}

// safeAnalyze turns analyzer failures, including panics, into a syntax
// error for the whole file
func safeAnalyze(analyzer facts.Analyzer, src locator.Source) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: errors.WrapSyntaxError(analyzer.Name(), src.RelPath, fmt.Errorf("analyzer panic: %v", r))}
		}
	}()

	ff, err := analyzer.Analyze(src.Content, src.RelPath)
	if err != nil {
		if se, ok := err.(errors.SpectraError); ok {
			return outcome{err: se}
		}
		return outcome{err: errors.WrapSyntaxError(analyzer.Name(), src.RelPath, err)}
	}
	if ff == nil {
		ff = facts.NewFileFacts(src.RelPath, analyzer.Name())
	}
	return outcome{facts: ff}
}

// Extensions lists the file extensions the registered front-ends handle
func (p *Pipeline) Extensions() []string {
	return p.registry.Extensions()
}

// Forget drops cached facts for the given relative paths
func (p *Pipeline) Forget(paths ...string) {
	for _, path := range paths {
		p.cache.Delete(path)
	}
}
