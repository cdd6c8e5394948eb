package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// FileSink routes each Result to disk as it arrives: successes into the
// output directory keyed by invoice ID, failures into the error directory
// keyed by the source file's stem. It also keeps the in-memory list for the
// batch report.
type FileSink struct {
	outDir string
	errDir string
	logger *slog.Logger

	mu      sync.Mutex
	results []pipeline.Result
}

func NewFileSink(outDir, errDir string, logger *slog.Logger) (*FileSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{outDir, errDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sink directory %s: %w", dir, err)
		}
	}
	return &FileSink{outDir: outDir, errDir: errDir, logger: logger}, nil
}

// Accept is called from worker goroutines; it must never panic or the worker
// dies with it.
func (s *FileSink) Accept(res pipeline.Result) {
	s.mu.Lock()
	s.results = append(s.results, res)
	s.mu.Unlock()

	if res.Skipped {
		return
	}

	path := s.pathFor(res)
	bs, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		s.logger.Error("sink.encode.failed", "file", res.InputFile, "error", err)
		return
	}
	if err := os.WriteFile(path, bs, 0o644); err != nil {
		s.logger.Error("sink.write.failed", "path", path, "error", err)
		return
	}
	s.logger.Debug("sink.write.ok", "path", path, "success", res.Success)
}

// Results returns a snapshot for the batch report.
func (s *FileSink) Results() []pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pipeline.Result, len(s.results))
	copy(out, s.results)
	return out
}

func (s *FileSink) pathFor(res pipeline.Result) string {
	if res.Success && res.Invoice != nil && res.Invoice.InvoiceID != "" {
		return filepath.Join(s.outDir, sanitizeName(res.Invoice.InvoiceID)+".json")
	}
	stem := strings.TrimSuffix(filepath.Base(res.InputFile), filepath.Ext(res.InputFile))
	if stem == "" {
		stem = "unknown"
	}
	return filepath.Join(s.errDir, sanitizeName(stem)+"_error.json")
}

// sanitizeName keeps identifiers filesystem-safe without losing readability.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
