package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// DirStats summarizes one discovery walk.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Emitted uint32
	Failed  uint32
}

// Discover walks root, filters by includeExts (or the default allowed set),
// reads each matching file and emits it as a pipeline Document. The vendor
// hint is the file's immediate parent directory name when it canonicalizes to
// a known platform; layout convention is <root>/<vendor>/<invoice files>.
// Unreadable files are counted and logged, never fatal for the walk.
func Discover(ctx context.Context, root string, includeExts []string, skipHidden bool, emit func(pipeline.Document), logger *slog.Logger) (DirStats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(root) == "" {
		return DirStats{}, errors.New("root path is required")
	}

	exts := map[string]struct{}{}
	if len(includeExts) == 0 {
		exts = constants.AllowedExtensions
	} else {
		for _, e := range includeExts {
			e = constants.NormalizeExt(strings.TrimSpace(e))
			if e != "" {
				exts[e] = struct{}{}
			}
		}
	}

	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Scanned++
		if walkErr != nil {
			logger.Warn("ingest.walk.error", "path", path, "error", walkErr)
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		stats.Matched++

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			logger.Warn("ingest.read.error", "path", path, "error", readErr)
			stats.Failed++
			return nil
		}

		emit(pipeline.Document{
			Raw:          raw,
			SourceFormat: ext,
			FileRef:      path,
			VendorHint:   vendorHint(path),
		})
		stats.Emitted++
		return nil
	})
	if err != nil {
		return stats, err
	}

	logger.Info("ingest.discover.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"emitted", stats.Emitted,
		"failed", stats.Failed,
	)
	return stats, nil
}

// vendorHint derives the platform from the parent directory name; an
// unrecognized directory yields no hint so the default prompt applies.
func vendorHint(path string) string {
	parent := filepath.Base(filepath.Dir(path))
	if vt, ok := constants.CanonicalizeVendor(parent); ok {
		return string(vt)
	}
	return ""
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}
