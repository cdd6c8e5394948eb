package pipeline

import (
	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
	"github.com/joseph-ayodele/invoice-extractor/internal/llm"
)

// Document is one unit of work handed to the orchestrator by file discovery.
type Document struct {
	Raw          []byte
	SourceFormat string // file extension without dot, lowercased
	FileRef      string // path or other operator-facing reference
	VendorHint   string // optional vendor category for prompt selection
	Force        bool   // reprocess even when the dedup index has seen it
}

// Result is the terminal outcome of one document's pipeline run. Its JSON
// shape is an external contract consumed by downstream loaders; field names
// must not change.
type Result struct {
	Invoice    *invoice.Invoice `json:"invoice"`
	Success    bool             `json:"success"`
	Source     *string          `json:"source"`
	Confidence float64          `json:"confidence"`
	LatencyMS  int64            `json:"latency_ms"`
	TokensUsed *llm.Usage       `json:"tokens_used"`
	Errors     []string         `json:"errors"`
	Warnings   []string         `json:"warnings"`
	InputFile  string           `json:"input_file"`

	// Diagnostics beyond the loader contract.
	Stage      constants.Stage `json:"stage"`
	RawExcerpt string          `json:"raw_excerpt,omitempty"`
	Skipped    bool            `json:"skipped,omitempty"`
}

// failed builds a terminal failure Result. Slices are always non-nil so the
// serialized shape is stable for consumers.
func failed(inputFile string, stage constants.Stage, errs []string) Result {
	if errs == nil {
		errs = []string{}
	}
	return Result{
		Success:   false,
		Stage:     stage,
		Errors:    errs,
		Warnings:  []string{},
		InputFile: inputFile,
	}
}
