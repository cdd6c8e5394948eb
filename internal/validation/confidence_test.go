package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreHappyPath(t *testing.T) {
	// All fields present, all rules pass, default provider confidence:
	// 0.40*1.0 + 0.30*1.0 + 0.30*0.80 = 0.94.
	got := Score(wellFormed(), nil, nil, DefaultConfig())
	if !almostEqual(got, 0.94) {
		t.Errorf("Score = %v, want 0.94", got)
	}
	if got < 0.90 {
		t.Errorf("well-formed invoice must score at least 0.90, got %v", got)
	}
}

func TestScoreUsesProviderConfidence(t *testing.T) {
	pc := 1.0
	got := Score(wellFormed(), nil, &pc, DefaultConfig())
	if !almostEqual(got, 1.0) {
		t.Errorf("Score = %v, want 1.0", got)
	}
}

func TestScoreDropsWithViolations(t *testing.T) {
	cfg := DefaultConfig()
	inv := wellFormed()

	clean := Score(inv, nil, nil, cfg)
	one := Score(inv, []RuleViolation{{Rule: "line-item-sum", Severity: SeverityWarning}}, nil, cfg)
	two := Score(inv, []RuleViolation{
		{Rule: "line-item-sum", Severity: SeverityWarning},
		{Rule: "date-order", Severity: SeverityError},
	}, nil, cfg)

	if !(clean > one && one > two) {
		t.Errorf("score must strictly decrease as violations accumulate: %v, %v, %v", clean, one, two)
	}
	// One failed rule out of six: 0.40 + 0.30*(5/6) + 0.24 = 0.89.
	if !almostEqual(one, 0.89) {
		t.Errorf("single-violation score = %v, want 0.89", one)
	}
}

func TestScoreIncompleteRecord(t *testing.T) {
	cfg := DefaultConfig()
	full := Score(wellFormed(), nil, nil, cfg)

	inv := wellFormed()
	inv.VendorName = ""
	partial := Score(inv, nil, nil, cfg)

	if partial >= full {
		t.Errorf("missing header field must lower the score: %v >= %v", partial, full)
	}
}

func TestScoreBounds(t *testing.T) {
	cfg := DefaultConfig()
	many := make([]RuleViolation, 10)
	low := Score(&invoice.Invoice{}, many, nil, cfg)
	if low < 0 || low > 1 {
		t.Errorf("score out of bounds: %v", low)
	}

	pc := 2.0 // out-of-range provider value must still clamp
	high := Score(wellFormed(), nil, &pc, cfg)
	if high > 1 {
		t.Errorf("score must clamp to 1, got %v", high)
	}
}

func TestRunFullStack(t *testing.T) {
	payload := `{
		"invoice_id": "UE-2026-001234",
		"vendor_name": "Uber Eats",
		"vendor_type": "ubereats",
		"invoice_date": "2026-01-15",
		"due_date": "2026-02-15",
		"currency": "USD",
		"line_items": [{"description": "Delivery services", "unit_price": "1000.00"}],
		"subtotal": "1000.00",
		"tax_amount": "50.00",
		"commission_rate": "0.15",
		"commission_amount": "150.00",
		"total_amount": "1100.00"
	}`
	inv, outcome := Run(payload, nil, DefaultConfig(), nil)
	if inv == nil {
		t.Fatal("expected invoice")
	}
	if !outcome.Valid() {
		t.Fatalf("expected valid outcome, errors: %v", outcome.Errors())
	}
	if outcome.Confidence < 0.90 {
		t.Errorf("confidence = %v, want >= 0.90", outcome.Confidence)
	}
	if len(outcome.Errors()) != 0 {
		t.Errorf("unexpected errors: %v", outcome.Errors())
	}
}

func TestRunDateViolationBlocks(t *testing.T) {
	payload := `{
		"invoice_id": "UE-2026-001234",
		"vendor_name": "Uber Eats",
		"invoice_date": "2026-02-10",
		"due_date": "2026-02-01",
		"currency": "USD",
		"subtotal": "1000.00",
		"tax_amount": "50.00",
		"commission_rate": "0.15",
		"commission_amount": "150.00",
		"total_amount": "1100.00"
	}`
	inv, outcome := Run(payload, nil, DefaultConfig(), nil)
	if inv == nil {
		t.Fatal("schema-valid payload must still parse")
	}
	if outcome.Valid() {
		t.Fatal("date-order violation must block")
	}
	found := false
	for _, e := range outcome.Errors() {
		if strings.Contains(e, "date-order") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors should name date-order, got %v", outcome.Errors())
	}
	if outcome.Confidence <= 0 {
		t.Error("confidence is reported regardless of validity")
	}
}

func TestRunSchemaRejection(t *testing.T) {
	_, outcome := Run(`{"vendor_name": "Uber Eats"}`, nil, DefaultConfig(), nil)
	if outcome.SchemaValid {
		t.Fatal("expected schema rejection")
	}
	if outcome.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 for schema rejection", outcome.Confidence)
	}
	if len(outcome.SchemaErrors) == 0 {
		t.Error("expected schema errors")
	}
}
