package validation

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Severity tags a rule violation as blocking or advisory.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// RuleViolation is a detected breach of a named cross-field invariant.
type RuleViolation struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ruleCount is the fixed number of business rules; the consistency term of the
// confidence score is computed against it.
const ruleCount = 6

var reInvoiceID = regexp.MustCompile(`^[A-Z]{2,4}-\d{4}-\d{4,8}$`)

// Config holds the tolerance and confidence knobs. The defaults are the
// empirically chosen constants from the extraction prototype; override them
// per environment rather than treating them as requirements.
type Config struct {
	CommissionTolerance decimal.Decimal
	TotalTolerance      decimal.Decimal
	LineItemTolerance   decimal.Decimal

	CompletenessWeight float64
	ConsistencyWeight  float64
	ProviderWeight     float64

	DefaultProviderConfidence float64
}

func DefaultConfig() Config {
	return Config{
		CommissionTolerance:       decimal.RequireFromString("0.02"),
		TotalTolerance:            decimal.RequireFromString("0.05"),
		LineItemTolerance:         decimal.RequireFromString("0.10"),
		CompletenessWeight:        0.40,
		ConsistencyWeight:         0.30,
		ProviderWeight:            0.30,
		DefaultProviderConfidence: 0.80,
	}
}

// ConfigFromEnv builds a Config from the env-derived application settings,
// falling back to defaults on unparseable tolerances.
func ConfigFromEnv(vc common.ValidationConfig) Config {
	cfg := DefaultConfig()
	if d, err := decimal.NewFromString(vc.CommissionTolerance); err == nil {
		cfg.CommissionTolerance = d
	}
	if d, err := decimal.NewFromString(vc.TotalTolerance); err == nil {
		cfg.TotalTolerance = d
	}
	if d, err := decimal.NewFromString(vc.LineItemTolerance); err == nil {
		cfg.LineItemTolerance = d
	}
	if vc.CompletenessWeight > 0 {
		cfg.CompletenessWeight = vc.CompletenessWeight
	}
	if vc.ConsistencyWeight > 0 {
		cfg.ConsistencyWeight = vc.ConsistencyWeight
	}
	if vc.ProviderWeight > 0 {
		cfg.ProviderWeight = vc.ProviderWeight
	}
	if vc.DefaultProviderConfidence > 0 {
		cfg.DefaultProviderConfidence = vc.DefaultProviderConfidence
	}
	return cfg
}

// CheckRules evaluates every business rule independently (validation Layer 2).
// No short-circuiting: the caller always receives the complete violation set.
func CheckRules(inv *invoice.Invoice, cfg Config) []RuleViolation {
	var violations []RuleViolation

	// date-order: due date may not precede the invoice date.
	if inv.DueDate.Before(inv.InvoiceDate.Time) {
		violations = append(violations, RuleViolation{
			Rule:     "date-order",
			Severity: SeverityError,
			Message: fmt.Sprintf("due_date (%s) cannot be before invoice_date (%s)",
				inv.DueDate, inv.InvoiceDate),
		})
	}

	// commission-reconciliation: commission_amount ≈ subtotal * commission_rate.
	expected := inv.ExpectedCommission()
	if diff := inv.CommissionAmount.Sub(expected).Abs(); diff.GreaterThan(cfg.CommissionTolerance) {
		violations = append(violations, RuleViolation{
			Rule:     "commission-reconciliation",
			Severity: SeverityError,
			Message: fmt.Sprintf("commission_amount (%s) does not match subtotal * commission_rate (%s), difference: %s",
				inv.CommissionAmount, expected, diff),
		})
	}

	// total-reconciliation: platform invoices carry delivery/service fees above
	// subtotal + tax, so only a total BELOW that floor indicates missing data.
	floor := inv.Subtotal.Add(inv.TaxAmount)
	if inv.TotalAmount.LessThan(floor.Sub(cfg.TotalTolerance)) {
		violations = append(violations, RuleViolation{
			Rule:     "total-reconciliation",
			Severity: SeverityError,
			Message: fmt.Sprintf("total_amount (%s) is less than subtotal + tax_amount (%s), possible missing data",
				inv.TotalAmount, floor),
		})
	}

	// line-item-sum: items should reconcile with the subtotal, loosely.
	if len(inv.LineItems) > 0 {
		sum := inv.LineItemTotal()
		if diff := sum.Sub(inv.Subtotal).Abs(); diff.GreaterThan(cfg.LineItemTolerance) {
			violations = append(violations, RuleViolation{
				Rule:     "line-item-sum",
				Severity: SeverityWarning,
				Message: fmt.Sprintf("line items sum to %s but subtotal is %s, difference: %s",
					sum, inv.Subtotal, diff),
			})
		}
	}

	// non-negativity: every monetary field must be >= 0.
	for name, v := range map[string]decimal.Decimal{
		"subtotal":          inv.Subtotal,
		"tax_amount":        inv.TaxAmount,
		"commission_amount": inv.CommissionAmount,
		"total_amount":      inv.TotalAmount,
	} {
		if v.IsNegative() {
			violations = append(violations, RuleViolation{
				Rule:     "non-negativity",
				Severity: SeverityError,
				Message:  fmt.Sprintf("%s (%s) is negative", name, v),
			})
		}
	}

	// identifier-format: soft expectation, providers extract odd IDs.
	if !reInvoiceID.MatchString(inv.InvoiceID) {
		violations = append(violations, RuleViolation{
			Rule:     "identifier-format",
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("invoice_id (%q) does not match the expected pattern", inv.InvoiceID),
		})
	}

	return violations
}

// HasBlocking reports whether any violation carries error severity.
func HasBlocking(violations []RuleViolation) bool {
	for _, v := range violations {
		if v.Severity == SeverityError {
			return true
		}
	}
	return false
}
