package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/dedup"
	"github.com/joseph-ayodele/invoice-extractor/internal/export"
	"github.com/joseph-ayodele/invoice-extractor/internal/imaging"
	"github.com/joseph-ayodele/invoice-extractor/internal/ingest"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm/openrouter"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extractor/internal/prompt"
	"github.com/joseph-ayodele/invoice-extractor/internal/validation"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir     = flag.String("dir", "", "directory to process invoices from (required)")
		out     = flag.String("out", "", "directory for extracted invoice JSON (default <dir>/../extracted)")
		errOut  = flag.String("errors", "", "directory for failure diagnostics (default <dir>/../errors)")
		report  = flag.String("report", "", "batch report XLSX path (default <dir>/../invoices.xlsx)")
		exts    = flag.String("exts", "", "comma-separated extensions to include (default tiff,tif,jpg,jpeg,png)")
		force   = flag.Bool("force", false, "reprocess documents already in the dedup index")
		envFile = flag.String("env", "", "path to .env file (optional)")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}

	parentDir := filepath.Dir(*dir)
	if *out == "" {
		*out = filepath.Join(parentDir, "extracted")
	}
	if *errOut == "" {
		*errOut = filepath.Join(parentDir, "errors")
	}
	if *report == "" {
		*report = filepath.Join(parentDir, "invoices.xlsx")
	}

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			printError("Error: load env file %s: %v\n", *envFile, err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Provider chain: Gemini primary, OpenRouter fallback. Either may be
	// absent; Validate guarantees at least one key is set.
	var chain []llm.ChainedProvider
	if cfg.Gemini.APIKey != "" {
		chain = append(chain, llm.ChainedProvider{
			Provider: gemini.NewClient(gemini.Config{
				APIKey:      cfg.Gemini.APIKey,
				BaseURL:     cfg.Gemini.BaseURL,
				Model:       cfg.Gemini.Model,
				Temperature: cfg.Gemini.Temperature,
				Timeout:     cfg.Gemini.AttemptTimeout,
			}, logger),
			Policy: llm.RetryPolicy{
				MaxAttempts:    cfg.Gemini.MaxAttempts,
				BackoffBase:    cfg.Gemini.BackoffBase,
				BackoffCap:     cfg.Gemini.BackoffCap,
				AttemptTimeout: cfg.Gemini.AttemptTimeout,
			},
		})
		logger.Info("gemini client initialized", "model", cfg.Gemini.Model)
	}
	if cfg.OpenRouter.APIKey != "" {
		chain = append(chain, llm.ChainedProvider{
			Provider: openrouter.NewClient(openrouter.Config{
				APIKey:      cfg.OpenRouter.APIKey,
				BaseURL:     cfg.OpenRouter.BaseURL,
				Model:       cfg.OpenRouter.Model,
				Temperature: cfg.OpenRouter.Temperature,
				Timeout:     cfg.OpenRouter.AttemptTimeout,
			}, logger),
			Policy: llm.RetryPolicy{
				MaxAttempts:    cfg.OpenRouter.MaxAttempts,
				BackoffBase:    cfg.OpenRouter.BackoffBase,
				BackoffCap:     cfg.OpenRouter.BackoffCap,
				AttemptTimeout: cfg.OpenRouter.AttemptTimeout,
			},
		})
		logger.Info("openrouter client initialized", "model", cfg.OpenRouter.Model)
	}
	gateway := llm.NewGateway(logger, chain...)

	// Dedup index: durable when a path is configured, in-memory otherwise.
	var index dedup.Index
	if cfg.Pipeline.DedupDBPath != "" {
		sq, err := dedup.OpenSQLiteIndex(cfg.Pipeline.DedupDBPath)
		if err != nil {
			logger.Error("failed to open dedup index", "path", cfg.Pipeline.DedupDBPath, "error", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := sq.Close(); cerr != nil {
				logger.Warn("dedup index close failed", "error", cerr)
			}
		}()
		index = sq
		logger.Info("dedup index opened", "path", cfg.Pipeline.DedupDBPath)
	} else {
		index = dedup.NewMapIndex()
	}

	sink, err := export.NewFileSink(*out, *errOut, logger)
	if err != nil {
		logger.Error("failed to prepare output directories", "error", err)
		os.Exit(1)
	}

	processor := pipeline.NewProcessor(
		imaging.NewNormalizer(cfg.Pipeline.MaxImageDim, logger),
		gateway,
		prompt.DirSource{Dir: cfg.Pipeline.PromptDir},
		index,
		validation.ConfigFromEnv(cfg.Validation),
		logger,
		pipeline.WithDocumentTimeout(cfg.Pipeline.DocumentTimeout),
		pipeline.WithExcerptLength(cfg.Pipeline.RawExcerptLen),
	)

	queue := pipeline.NewQueue(ctx, processor, sink.Accept, logger,
		pipeline.WithWorkers(cfg.Pipeline.Workers),
		pipeline.WithQueueSize(cfg.Pipeline.QueueSize),
	)

	var includeExts []string
	if *exts != "" {
		includeExts = strings.Split(*exts, ",")
	}

	logger.Info("starting discovery", "dir", *dir)
	stats, err := ingest.Discover(ctx, *dir, includeExts, true, func(doc pipeline.Document) {
		doc.Force = *force
		queue.Enqueue(doc)
	}, logger)
	if err != nil {
		logger.Error("discovery failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	results := sink.Results()
	succeeded, failed, skipped := 0, 0, 0
	for _, res := range results {
		switch {
		case res.Skipped:
			skipped++
		case res.Success:
			succeeded++
		default:
			failed++
		}
	}

	reporter := export.NewReporter(logger)
	xlsxBytes, err := reporter.BatchXLSX(results)
	if err != nil {
		logger.Error("failed to render batch report", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*report, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write batch report", "path", *report, "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", succeeded,
		"failed", failed,
		"skipped", skipped,
		"report", *report,
	)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files matched: %d\n", stats.Matched)
	fmt.Printf("- Succeeded: %d\n", succeeded)
	fmt.Printf("- Failed: %d\n", failed)
	fmt.Printf("- Skipped (duplicates): %d\n", skipped)
	fmt.Printf("- Report: %s\n", *report)

	if failed > 0 {
		os.Exit(2)
	}
}
