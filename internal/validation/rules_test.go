package validation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// wellFormed returns an invoice that passes every business rule.
func wellFormed() *invoice.Invoice {
	return &invoice.Invoice{
		InvoiceID:   "UE-2026-001234",
		VendorName:  "Uber Eats",
		InvoiceDate: invoice.NewDate(2026, time.January, 15),
		DueDate:     invoice.NewDate(2026, time.February, 15),
		Currency:    "USD",
		LineItems: []invoice.LineItem{
			{Description: "Delivery services", Quantity: 1, UnitPrice: dec("1000.00")},
		},
		Subtotal:         dec("1000.00"),
		TaxAmount:        dec("50.00"),
		CommissionRate:   dec("0.15"),
		CommissionAmount: dec("150.00"),
		TotalAmount:      dec("1100.00"),
	}
}

func findRule(violations []RuleViolation, rule string) *RuleViolation {
	for i := range violations {
		if violations[i].Rule == rule {
			return &violations[i]
		}
	}
	return nil
}

func TestCheckRulesWellFormedInvoice(t *testing.T) {
	// Total above subtotal+tax is legitimate: platforms add delivery and
	// service fees on top.
	violations := CheckRules(wellFormed(), DefaultConfig())
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestCheckRulesDateOrder(t *testing.T) {
	inv := wellFormed()
	inv.InvoiceDate = invoice.NewDate(2026, time.February, 10)
	inv.DueDate = invoice.NewDate(2026, time.February, 1)

	violations := CheckRules(inv, DefaultConfig())
	v := findRule(violations, "date-order")
	if v == nil {
		t.Fatal("expected date-order violation")
	}
	if v.Severity != SeverityError {
		t.Errorf("severity = %s, want error", v.Severity)
	}
	if !HasBlocking(violations) {
		t.Error("date-order must block")
	}
}

func TestCheckRulesCommissionReconciliation(t *testing.T) {
	tests := []struct {
		name       string
		commission string
		wantBreach bool
	}{
		{"exact", "150.00", false},
		{"within tolerance", "150.02", false},
		{"above tolerance", "150.03", true},
		{"wildly off", "200.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := wellFormed()
			inv.CommissionAmount = dec(tt.commission)
			violations := CheckRules(inv, DefaultConfig())
			got := findRule(violations, "commission-reconciliation") != nil
			if got != tt.wantBreach {
				t.Errorf("breach = %v, want %v", got, tt.wantBreach)
			}
		})
	}
}

func TestCheckRulesTotalReconciliationIsOneSided(t *testing.T) {
	tests := []struct {
		name       string
		total      string
		wantBreach bool
	}{
		{"exactly subtotal plus tax", "1050.00", false},
		{"above floor with platform fees", "1100.00", false},
		{"just inside tolerance", "1049.95", false},
		{"below floor", "1049.00", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := wellFormed()
			inv.TotalAmount = dec(tt.total)
			violations := CheckRules(inv, DefaultConfig())
			got := findRule(violations, "total-reconciliation") != nil
			if got != tt.wantBreach {
				t.Errorf("breach = %v, want %v", got, tt.wantBreach)
			}
		})
	}
}

func TestCheckRulesLineItemSumIsWarning(t *testing.T) {
	inv := wellFormed()
	inv.LineItems = []invoice.LineItem{
		{Description: "Delivery services", Quantity: 1, UnitPrice: dec("900.00")},
	}
	violations := CheckRules(inv, DefaultConfig())
	v := findRule(violations, "line-item-sum")
	if v == nil {
		t.Fatal("expected line-item-sum violation")
	}
	if v.Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", v.Severity)
	}
	if HasBlocking(violations) {
		t.Error("a lone warning must not block")
	}
}

func TestCheckRulesLineItemSumSkippedWhenNoItems(t *testing.T) {
	inv := wellFormed()
	inv.LineItems = nil
	violations := CheckRules(inv, DefaultConfig())
	if findRule(violations, "line-item-sum") != nil {
		t.Error("rule must not fire for an empty item list")
	}
}

func TestCheckRulesNonNegativity(t *testing.T) {
	inv := wellFormed()
	inv.TaxAmount = dec("50.00").Neg()
	violations := CheckRules(inv, DefaultConfig())
	v := findRule(violations, "non-negativity")
	if v == nil {
		t.Fatal("expected non-negativity violation")
	}
	if v.Severity != SeverityError {
		t.Errorf("severity = %s, want error", v.Severity)
	}
}

func TestCheckRulesIdentifierFormat(t *testing.T) {
	inv := wellFormed()
	inv.InvoiceID = "invoice#99"
	violations := CheckRules(inv, DefaultConfig())
	v := findRule(violations, "identifier-format")
	if v == nil {
		t.Fatal("expected identifier-format violation")
	}
	if v.Severity != SeverityWarning {
		t.Errorf("severity = %s, want warning", v.Severity)
	}
}

func TestCheckRulesNoShortCircuit(t *testing.T) {
	// Multiple independent breaches must all be reported.
	inv := wellFormed()
	inv.DueDate = invoice.NewDate(2025, time.December, 1)
	inv.CommissionAmount = dec("999.00")
	inv.InvoiceID = "bad"

	violations := CheckRules(inv, DefaultConfig())
	for _, rule := range []string{"date-order", "commission-reconciliation", "identifier-format"} {
		if findRule(violations, rule) == nil {
			t.Errorf("missing violation %s", rule)
		}
	}
}
