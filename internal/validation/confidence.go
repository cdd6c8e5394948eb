package validation

import (
	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Score combines field completeness, rule-pass ratio, and provider-reported
// confidence into one quality estimate in [0,1] (validation Layer 3).
// When the provider reports no confidence, a fixed default stands in.
func Score(inv *invoice.Invoice, violations []RuleViolation, providerConf *float64, cfg Config) float64 {
	passed := ruleCount - len(violations)
	if passed < 0 {
		passed = 0
	}
	consistency := float64(passed) / float64(ruleCount)

	pc := cfg.DefaultProviderConfidence
	if providerConf != nil {
		pc = *providerConf
	}

	score := cfg.CompletenessWeight*completeness(inv) +
		cfg.ConsistencyWeight*consistency +
		cfg.ProviderWeight*pc

	return clamp01(score)
}

// completeness is the fraction of the fixed required-field list that is
// populated. The two monetary entries are always present once a record
// exists (zero is a legitimate amount), so only the header fields vary.
func completeness(inv *invoice.Invoice) float64 {
	if inv == nil {
		return 0
	}
	present := 2 // subtotal, total_amount
	if inv.InvoiceID != "" {
		present++
	}
	if inv.VendorName != "" {
		present++
	}
	if !inv.InvoiceDate.IsZero() {
		present++
	}
	if !inv.DueDate.IsZero() {
		present++
	}
	return float64(present) / 6.0
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
