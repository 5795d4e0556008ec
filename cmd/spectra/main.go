package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/toyz/spectra/internal/config"
	"github.com/toyz/spectra/internal/emit"
	"github.com/toyz/spectra/internal/errors"
	"github.com/toyz/spectra/internal/ir"
	"github.com/toyz/spectra/internal/pipeline"
	"github.com/toyz/spectra/internal/server"
	"github.com/toyz/spectra/internal/utils"
	"github.com/toyz/spectra/internal/watch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one invocation and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Default()
	if err := config.LoadDotEnv(os.Getenv(config.EnvPrefix + "ENV_FILE")); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("spectra", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfg.BindFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: spectra [options] [root-directory]\n\n")
		fmt.Fprintf(stderr, "Spectra API Surface Extractor\n")
		fmt.Fprintf(stderr, "Scans Python (FastAPI, Flask) and Java (Spring) sources for route declarations\n")
		fmt.Fprintf(stderr, "and unifies them into one OpenAPI 3.0.0 document.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nEnvironment:\n")
		fmt.Fprintf(stderr, "  Every option can also be set as %s<OPTION>, e.g. %sFORMAT=yaml.\n", config.EnvPrefix, config.EnvPrefix)
		fmt.Fprintf(stderr, "  Variables are also read from .env (or the file named by %sENV_FILE).\n", config.EnvPrefix)
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  spectra ./service                              # Print JSON to stdout\n")
		fmt.Fprintf(stderr, "  spectra --format yaml --output api.yaml .      # Write YAML to a file\n")
		fmt.Fprintf(stderr, "  spectra --validate --api-version 2.0.0 .       # Validate the result\n")
		fmt.Fprintf(stderr, "  spectra --watch --serve :8080 --framework gin . # Serve and rebuild on change\n")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintf(stderr, "Error: At most one root directory may be given\n\n")
		fs.Usage()
		return 2
	}
	if fs.NArg() == 1 {
		cfg.Root = fs.Arg(0)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var diagnostics *utils.DiagnosticSystem
	switch {
	case cfg.Quiet:
		diagnostics = utils.NewQuietDiagnostics()
	case cfg.Verbose:
		diagnostics = utils.NewVerboseDiagnostics()
	default:
		diagnostics = utils.NewDiagnosticSystem(utils.DiagnosticInfo)
	}
	diagnostics.SetOutput(stderr)

	if cfg.Verbose {
		diagnostics.Section("Spectra API Surface Extractor")
		diagnostics.Subsection("Configuration")
		diagnostics.List("Root: %s", cfg.Root)
		diagnostics.List("Format: %s", cfg.Format)
		diagnostics.List("Workers: %d", cfg.Workers)
		if cfg.Output != "" {
			diagnostics.List("Output: %s", cfg.Output)
		}
	}

	p, err := pipeline.New(pipeline.Options{
		Workers:     cfg.Workers,
		CacheSize:   cfg.CacheSize,
		MaxFileSize: cfg.MaxFileSize,
		Diagnostics: diagnostics,
	})
	if err != nil {
		diagnostics.Error("Failed to initialize: %v", err)
		return 1
	}

	a := &app{cfg: cfg, pipeline: p, diagnostics: diagnostics, stdout: stdout}
	if cfg.Serve != "" {
		a.store = server.NewStore()
	}

	if err := a.build(ctx); err != nil {
		diagnostics.Error("%v", err)
		return 1
	}
	if !cfg.Watch && cfg.Serve == "" {
		return 0
	}
	return a.serveAndWatch(ctx)
}

type app struct {
	cfg         config.Config
	pipeline    *pipeline.Pipeline
	diagnostics *utils.DiagnosticSystem
	stdout      io.Writer
	store       *server.Store
}

// build runs the pipeline once and hands the document to every sink
func (a *app) build(ctx context.Context) error {
	result, err := a.pipeline.Run(ctx, a.cfg.Root, ir.Info{
		Title:       a.cfg.Title,
		Version:     a.cfg.Version,
		Description: a.cfg.Description,
	})
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	warnings := errors.NewMultipleErrors()
	for _, w := range result.Warnings {
		a.diagnostics.Report(w)
		warnings.Add(w)
	}

	var buf bytes.Buffer
	if err := emit.Encode(&buf, result.Document, a.cfg.Format); err != nil {
		return err
	}
	if a.cfg.ValidateOutput {
		if err := emit.Validate(ctx, buf.Bytes()); err != nil {
			return err
		}
		a.diagnostics.Verbose("Document passed OpenAPI validation")
	}
	if err := a.write(buf.Bytes()); err != nil {
		return err
	}
	if a.store != nil {
		if err := a.store.Publish(result.RunID, result.Document); err != nil {
			return err
		}
	}

	a.diagnostics.Summary("Extraction Complete!", map[string]interface{}{
		"Files scanned": result.Stats.FilesScanned,
		"Files skipped": result.Stats.FilesSkipped,
		"Files failed":  result.Stats.FilesFailed,
		"Endpoints":     result.Stats.Endpoints,
		"Schemas":       result.Stats.Schemas,
		"Conflicts":     result.Stats.Conflicts,
		"Warnings":      warnings.Count(),
		"Syntax errors": len(warnings.GetByCode(errors.SyntaxErrorCode)),
		"Cached files":  result.Stats.CacheHits,
		"Duration":      result.Stats.Duration.Round(time.Millisecond),
	})
	return nil
}

func (a *app) write(data []byte) error {
	if a.cfg.Output == "" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(a.cfg.Output, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	a.diagnostics.Success("Wrote %s", a.cfg.Output)
	return nil
}

// serveAndWatch keeps the process alive for --serve and --watch until ctx is
// cancelled
func (a *app) serveAndWatch(ctx context.Context) int {
	errs := make(chan error, 2)

	var srv server.Server
	if a.store != nil {
		var err error
		srv, err = server.New(a.cfg.Framework, a.store)
		if err != nil {
			a.diagnostics.Error("%v", err)
			return 1
		}
		go func() {
			a.diagnostics.Info("Serving %s on %s (%s)", server.JSONPath, a.cfg.Serve, srv.Name())
			errs <- srv.Start(a.cfg.Serve)
		}()
	}

	if a.cfg.Watch {
		go func() {
			a.diagnostics.Info("Watching %s for changes", a.cfg.Root)
			errs <- watch.Watch(ctx, a.cfg.Root, watch.Options{
				Extensions: a.pipeline.Extensions(),
				Debounce:   a.cfg.Debounce,
			}, func(changed []string) {
				a.diagnostics.Verbose("%d files changed, rebuilding", len(changed))
				if err := a.build(ctx); err != nil {
					a.diagnostics.Error("%v", err)
				}
			})
		}()
	}

	code := 0
	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil && ctx.Err() == nil {
			a.diagnostics.Error("%v", err)
			code = 1
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			a.diagnostics.Warn("Shutdown: %v", err)
		}
	}
	return code
}
