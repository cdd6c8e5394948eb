package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// schemaPlaceholder is replaced with the JSON schema when building the
// final extraction prompt.
const schemaPlaceholder = "{schema}"

// Source resolves the prompt template for a vendor hint. A missing template
// is a configuration error: the pipeline must not silently fall back to a
// generic prompt the operator never reviewed.
type Source interface {
	Template(vendor string) (string, error)
}

// DirSource reads templates from <dir>/<vendor>.txt with <dir>/default.txt
// as the fallback when no vendor-specific file exists.
type DirSource struct {
	Dir string
}

func (s DirSource) Template(vendor string) (string, error) {
	candidates := []string{}
	if vendor != "" {
		candidates = append(candidates, filepath.Join(s.Dir, strings.ToLower(vendor)+".txt"))
	}
	candidates = append(candidates, filepath.Join(s.Dir, "default.txt"))

	for _, path := range candidates {
		bs, err := os.ReadFile(path)
		if err == nil {
			if strings.TrimSpace(string(bs)) == "" {
				return "", common.ConfigurationError(fmt.Sprintf("prompt template %s is empty", path))
			}
			return string(bs), nil
		}
		if !os.IsNotExist(err) {
			return "", common.ConfigurationError(fmt.Sprintf("read prompt template %s: %v", path, err))
		}
	}
	return "", common.ConfigurationError(fmt.Sprintf("no prompt template for vendor %q under %s", vendor, s.Dir))
}

// StaticSource returns the same template for every vendor. Used in tests and
// single-vendor deployments.
type StaticSource struct {
	Text string
}

func (s StaticSource) Template(string) (string, error) {
	if strings.TrimSpace(s.Text) == "" {
		return "", common.ConfigurationError("static prompt template is empty")
	}
	return s.Text, nil
}

// Build resolves the template for the vendor hint and substitutes the
// extraction schema. Templates without the placeholder get the schema
// appended so the model always sees the contract.
func Build(src Source, vendor string) (string, error) {
	tmpl, err := src.Template(vendor)
	if err != nil {
		return "", err
	}

	schema := invoice.SchemaJSON()
	if strings.Contains(tmpl, schemaPlaceholder) {
		return strings.ReplaceAll(tmpl, schemaPlaceholder, schema), nil
	}
	return tmpl + "\n\nRespond with a single JSON object matching this schema exactly:\n" + schema, nil
}
