package invoice

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// SchemaError describes one structural or type violation in a provider payload.
type SchemaError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	compiledSchema     *jsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

func extractionSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		b, err := json.Marshal(BuildInvoiceSchema())
		if err != nil {
			compileSchemaError = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("invoice.json", bytes.NewReader(b)); err != nil {
			compileSchemaError = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileSchemaError = compiler.Compile("invoice.json")
	})
	return compiledSchema, compileSchemaError
}

// Parse turns a raw provider response into a typed Invoice (validation Layer 1).
// It strips markdown fencing, validates the payload against the extraction
// schema (with one lenient sanitize pass for cosmetically-off payloads), and
// decodes all-or-nothing: on any schema error the invoice is nil and the full
// error list is returned.
//
// The second return value is the provider-reported confidence when the payload
// carries one.
func Parse(raw string) (*Invoice, *float64, []SchemaError) {
	payload := ExtractJSON(raw)
	if payload == "" {
		return nil, nil, []SchemaError{{Field: "(root)", Message: "response contains no JSON object"}}
	}

	var probe any
	if err := json.Unmarshal([]byte(payload), &probe); err != nil {
		return nil, nil, []SchemaError{{Field: "(root)", Message: fmt.Sprintf("JSON parsing error: %v", err)}}
	}

	schema, err := extractionSchema()
	if err != nil {
		return nil, nil, []SchemaError{{Field: "(root)", Message: err.Error()}}
	}

	doc := []byte(payload)
	if verr := schema.Validate(probe); verr != nil {
		cleaned, _, serr := SanitizeFields(doc)
		if serr != nil {
			return nil, nil, flattenValidationError(verr)
		}
		var cleanedProbe any
		if err := json.Unmarshal(cleaned, &cleanedProbe); err != nil {
			return nil, nil, flattenValidationError(verr)
		}
		if verr2 := schema.Validate(cleanedProbe); verr2 != nil {
			return nil, nil, flattenValidationError(verr2)
		}
		doc = cleaned
	}

	var inv Invoice
	if err := json.Unmarshal(doc, &inv); err != nil {
		return nil, nil, []SchemaError{{Field: "(root)", Message: fmt.Sprintf("decode invoice: %v", err)}}
	}
	if errs := postDecodeChecks(&inv); len(errs) > 0 {
		return nil, nil, errs
	}
	if inv.VendorType == "" {
		inv.VendorType = constants.Other
	}
	if inv.LineItems == nil {
		inv.LineItems = []LineItem{}
	}

	var modelConf *float64
	var confProbe struct {
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal(doc, &confProbe); err == nil && confProbe.Confidence != nil {
		modelConf = confProbe.Confidence
	}

	return &inv, modelConf, nil
}

// postDecodeChecks enforces constraints the schema patterns cannot express,
// e.g. "2025-02-30" matches the date pattern but is not a calendar date.
func postDecodeChecks(inv *Invoice) []SchemaError {
	var errs []SchemaError
	if inv.InvoiceDate.IsZero() {
		errs = append(errs, SchemaError{Field: "invoice_date", Message: "missing or invalid date"})
	}
	if inv.DueDate.IsZero() {
		errs = append(errs, SchemaError{Field: "due_date", Message: "missing or invalid date"})
	}
	for i, li := range inv.LineItems {
		if li.Quantity < 1 || li.Quantity > 1000 {
			errs = append(errs, SchemaError{
				Field:   fmt.Sprintf("line_items/%d/quantity", i),
				Message: "must be between 1 and 1000",
			})
		}
		if li.UnitPrice.IsNegative() {
			errs = append(errs, SchemaError{
				Field:   fmt.Sprintf("line_items/%d/unit_price", i),
				Message: "must be non-negative",
			})
		}
	}
	return errs
}

// ExtractJSON pulls the outermost JSON object out of a provider response,
// tolerating markdown code fences and surrounding prose.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// flattenValidationError walks the cause tree and keeps the leaves, which name
// the offending instance locations.
func flattenValidationError(err error) []SchemaError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []SchemaError{{Field: "(root)", Message: err.Error()}}
	}

	var out []SchemaError
	seen := map[string]struct{}{}

	var walk func(ve *jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) == 0 {
			field := ve.InstanceLocation
			if field == "" {
				field = "(root)"
			}
			key := field + "|" + ve.Message
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				out = append(out, SchemaError{Field: field, Message: ve.Message})
			}
			return
		}
		for _, c := range ve.Causes {
			walk(c)
		}
	}
	walk(verr)

	if len(out) == 0 {
		out = append(out, SchemaError{Field: "(root)", Message: verr.Message})
	}
	return out
}
