package invoice

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

const validPayload = `{
	"invoice_id": "UE-2026-001234",
	"vendor_name": "Uber Eats",
	"vendor_type": "ubereats",
	"invoice_date": "2026-01-15",
	"due_date": "2026-02-15",
	"currency": "USD",
	"line_items": [
		{"description": "Delivery services", "quantity": 1, "unit_price": "1000.00"}
	],
	"subtotal": "1000.00",
	"tax_amount": "50.00",
	"commission_rate": "0.15",
	"commission_amount": "150.00",
	"total_amount": "1100.00"
}`

func TestParseValidPayload(t *testing.T) {
	inv, conf, errs := Parse(validPayload)
	if len(errs) > 0 {
		t.Fatalf("unexpected schema errors: %v", errs)
	}
	if inv == nil {
		t.Fatal("expected invoice")
	}
	if conf != nil {
		t.Errorf("no confidence in payload, got %v", *conf)
	}
	if inv.InvoiceID != "UE-2026-001234" {
		t.Errorf("InvoiceID = %q", inv.InvoiceID)
	}
	if inv.VendorType != constants.UberEats {
		t.Errorf("VendorType = %q", inv.VendorType)
	}
	if !inv.Subtotal.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("Subtotal = %s", inv.Subtotal)
	}
	if len(inv.LineItems) != 1 {
		t.Fatalf("LineItems = %d", len(inv.LineItems))
	}
}

func TestParseStripsMarkdownFence(t *testing.T) {
	fenced := "Here is the extraction:\n```json\n" + validPayload + "\n```\nDone."
	inv, _, errs := Parse(fenced)
	if len(errs) > 0 {
		t.Fatalf("unexpected schema errors: %v", errs)
	}
	if inv == nil || inv.InvoiceID != "UE-2026-001234" {
		t.Fatal("fenced payload should parse")
	}
}

func TestParseMissingRequiredField(t *testing.T) {
	payload := strings.Replace(validPayload, `"invoice_id": "UE-2026-001234",`, "", 1)
	inv, _, errs := Parse(payload)
	if inv != nil {
		t.Fatal("invoice must be nil on schema rejection")
	}
	if len(errs) == 0 {
		t.Fatal("expected schema errors")
	}
}

func TestParseSanitizesNumericMoney(t *testing.T) {
	// Providers sometimes emit numbers instead of string decimals; the
	// lenient pass coerces them rather than failing the document.
	payload := strings.Replace(validPayload, `"subtotal": "1000.00"`, `"subtotal": 1000.0`, 1)
	payload = strings.Replace(payload, `"commission_rate": "0.15"`, `"commission_rate": 0.15`, 1)

	inv, _, errs := Parse(payload)
	if len(errs) > 0 {
		t.Fatalf("unexpected schema errors: %v", errs)
	}
	if inv == nil {
		t.Fatal("expected invoice after sanitize pass")
	}
	if !inv.Subtotal.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("Subtotal = %s", inv.Subtotal)
	}
}

func TestParseRejectsImpossibleDate(t *testing.T) {
	payload := strings.Replace(validPayload, "2026-01-15", "2026-02-30", 1)
	inv, _, errs := Parse(payload)
	if inv != nil {
		t.Fatal("2026-02-30 matches the date pattern but is not a calendar date")
	}
	if len(errs) == 0 {
		t.Fatal("expected schema errors")
	}
}

func TestParseNotJSON(t *testing.T) {
	inv, _, errs := Parse("I could not read this invoice, sorry.")
	if inv != nil {
		t.Fatal("expected nil invoice")
	}
	if len(errs) == 0 {
		t.Fatal("expected schema errors")
	}
}

func TestParseExtractsProviderConfidence(t *testing.T) {
	payload := strings.Replace(validPayload, `"total_amount": "1100.00"`, `"total_amount": "1100.00", "confidence": 0.92`, 1)
	inv, conf, errs := Parse(payload)
	if len(errs) > 0 {
		t.Fatalf("unexpected schema errors: %v", errs)
	}
	if inv == nil {
		t.Fatal("expected invoice")
	}
	if conf == nil || *conf != 0.92 {
		t.Errorf("confidence = %v, want 0.92", conf)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `the result is {"a":1} as requested`, `{"a":1}`},
		{"no object", "nothing here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
