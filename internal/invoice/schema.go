package invoice

import (
	"encoding/json"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// BuildInvoiceSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// We pass this to the extraction providers as a structured output constraint and
// also use it locally as validation Layer 1.
func BuildInvoiceSchema() map[string]any {
	lineItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "minLength": 1, "maxLength": 500},
			"quantity":    map[string]any{"type": "integer", "minimum": 1, "maximum": 1000},
			"unit_price":  decimalProp(),
			"amount":      decimalProp(), // providers may echo it; the decoder derives its own
		},
		"required": []string{"description", "unit_price"},
	}

	props := map[string]any{
		"invoice_id":   map[string]any{"type": "string", "minLength": 1, "maxLength": 50},
		"vendor_name":  map[string]any{"type": "string", "minLength": 1, "maxLength": 200},
		"vendor_type":  map[string]any{"type": "string", "enum": constants.VendorTypesAsStrings()},
		"invoice_date": dateProp(),
		"due_date":     dateProp(),
		"currency": map[string]any{
			"type": "string",
			"enum": []string{"BRL", "USD", "EUR", "GBP", "CAD", "AUD"},
		},
		"line_items":        map[string]any{"type": "array", "items": lineItem},
		"subtotal":          decimalProp(),
		"tax_amount":        decimalProp(),
		"commission_rate":   rateProp(),
		"commission_amount": decimalProp(),
		"total_amount":      decimalProp(),
		"confidence":        map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}
	required := []string{
		"invoice_id", "vendor_name", "invoice_date", "due_date",
		"currency", "subtotal", "total_amount",
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

// SchemaJSON renders the extraction schema for embedding into prompts.
func SchemaJSON() string {
	b, _ := json.MarshalIndent(BuildInvoiceSchema(), "", "  ")
	return string(b)
}

// Monetary fields are non-negative string decimals with at most 2 places.
func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d+(\.\d{1,2})?$`,
	}
}

// Commission rate is a string decimal in [0,1] with at most 4 places.
func rateProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^(0(\.\d{1,4})?|1(\.0{1,4})?)$`,
	}
}

func dateProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^\d{4}-\d{2}-\d{2}$`,
	}
}
