package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/dedup"
	"github.com/joseph-ayodele/invoice-extractor/internal/imaging"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
	"github.com/joseph-ayodele/invoice-extractor/internal/prompt"
	"github.com/joseph-ayodele/invoice-extractor/internal/validation"
)

// Extractor is the gateway seam; the processor never talks to a provider
// directly.
type Extractor interface {
	Extract(ctx context.Context, req llm.Request) (llm.ProviderResponse, error)
}

// Processor runs one document through normalize, extract and validate, and
// assembles the terminal Result. It holds no per-document state and is safe
// for concurrent use by the worker pool.
type Processor struct {
	normalizer *imaging.Normalizer
	extractor  Extractor
	prompts    prompt.Source
	index      dedup.Index
	vcfg       validation.Config

	docTimeout time.Duration
	excerptLen int
	logger     *slog.Logger
}

type Option func(*Processor)

func WithDocumentTimeout(d time.Duration) Option {
	return func(p *Processor) { p.docTimeout = d }
}

func WithExcerptLength(n int) Option {
	return func(p *Processor) { p.excerptLen = n }
}

func NewProcessor(normalizer *imaging.Normalizer, extractor Extractor, prompts prompt.Source, index dedup.Index, vcfg validation.Config, logger *slog.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if index == nil {
		index = dedup.NewMapIndex()
	}
	p := &Processor{
		normalizer: normalizer,
		extractor:  extractor,
		prompts:    prompts,
		index:      index,
		vcfg:       vcfg,
		docTimeout: 3 * time.Minute,
		excerptLen: 500,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the full pipeline for one document. Every failure is converted
// into the Result's error list; the only way this returns a panic or escaped
// error is a programming bug.
func (p *Processor) Process(ctx context.Context, doc Document) Result {
	ctx, cancel := context.WithTimeout(ctx, p.docTimeout)
	defer cancel()

	start := time.Now()
	logger := p.logger.With("file", doc.FileRef)
	logger.Info("pipeline.document.start", "format", doc.SourceFormat, "bytes", len(doc.Raw))

	// Dedup check is advisory: an index error degrades to "not seen", and
	// Force reprocesses on demand.
	fp := dedup.Fingerprint(doc.Raw)
	if id, seen, err := p.index.Seen(fp); err != nil {
		logger.Warn("pipeline.dedup.lookup_failed", "error", err)
	} else if seen && !doc.Force {
		logger.Info("pipeline.document.skipped", "invoice_id", id)
		return Result{
			Success:   true,
			Skipped:   true,
			Stage:     constants.StageSucceeded,
			Errors:    []string{},
			Warnings:  []string{fmt.Sprintf("duplicate content: previously processed as %s", id)},
			InputFile: doc.FileRef,
		}
	}

	// Normalizing
	pages, err := p.normalizer.Normalize(doc.Raw, doc.SourceFormat, doc.FileRef)
	if err != nil {
		logger.Error("pipeline.normalize.failed", "error", err)
		return failed(doc.FileRef, constants.StageNormalizing, []string{err.Error()})
	}

	// Extracting
	promptText, err := prompt.Build(p.prompts, doc.VendorHint)
	if err != nil {
		logger.Error("pipeline.prompt.failed", "vendor", doc.VendorHint, "error", err)
		return failed(doc.FileRef, constants.StageExtracting, []string{err.Error()})
	}

	images := make([][]byte, 0, len(pages))
	for _, page := range pages {
		png, encErr := page.PNG()
		if encErr != nil {
			logger.Error("pipeline.encode.failed", "page", page.Index, "error", encErr)
			return failed(doc.FileRef, constants.StageNormalizing,
				[]string{common.ImageProcessingError(doc.FileRef, encErr).Error()})
		}
		images = append(images, png)
	}

	resp, err := p.extractor.Extract(ctx, llm.Request{Images: images, Prompt: promptText})
	if err != nil {
		var exhausted *llm.ChainExhaustedError
		errs := []string{err.Error()}
		if errors.As(err, &exhausted) {
			errs = exhausted.ChainSummaries()
		}
		logger.Error("pipeline.extract.failed", "error", err)
		res := failed(doc.FileRef, constants.StageExtracting, errs)
		res.LatencyMS = resp.LatencyMS
		return res
	}

	// Validating
	inv, outcome := validation.Run(resp.Text, nil, p.vcfg, logger)

	result := Result{
		Success:    outcome.Valid(),
		Source:     &resp.Provider,
		Confidence: outcome.Confidence,
		LatencyMS:  resp.LatencyMS,
		TokensUsed: resp.Usage,
		Errors:     outcome.Errors(),
		Warnings:   outcome.Warnings(),
		InputFile:  doc.FileRef,
	}
	if result.Errors == nil {
		result.Errors = []string{}
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}

	switch {
	case !result.Success:
		// Stage names where the failure occurred; schema rejection and
		// blocking rule violations are both validation-stage failures.
		result.Stage = constants.StageValidating
		result.RawExcerpt = excerpt(resp.Text, p.excerptLen)
	default:
		result.Stage = constants.StageSucceeded
		result.Invoice = inv
		if recErr := p.index.Record(fp, inv.InvoiceID); recErr != nil {
			logger.Warn("pipeline.dedup.record_failed", "error", recErr)
		}
	}

	logger.Info("pipeline.document.done",
		"success", result.Success,
		"stage", result.Stage,
		"confidence", result.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result
}

// excerpt bounds a diagnostic string without splitting a multi-byte rune.
func excerpt(s string, limit int) string {
	if limit <= 0 {
		limit = 500
	}
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
