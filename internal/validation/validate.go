package validation

import (
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/invoice"
)

// Outcome is the combined result of the three validation layers.
type Outcome struct {
	SchemaValid        bool            `json:"schema_valid"`
	BusinessRulesValid bool            `json:"business_rules_valid"`
	Confidence         float64         `json:"confidence_score"`
	Violations         []RuleViolation `json:"violations"`
	SchemaErrors       []string        `json:"schema_errors"`
}

// Valid reports overall validity: schema passed and no blocking violations.
func (o Outcome) Valid() bool {
	return o.SchemaValid && o.BusinessRulesValid
}

// Warnings returns the messages of the advisory violations.
func (o Outcome) Warnings() []string {
	var out []string
	for _, v := range o.Violations {
		if v.Severity == SeverityWarning {
			out = append(out, v.Rule+": "+v.Message)
		}
	}
	return out
}

// Errors returns the schema errors plus the messages of blocking violations.
func (o Outcome) Errors() []string {
	out := append([]string{}, o.SchemaErrors...)
	for _, v := range o.Violations {
		if v.Severity == SeverityError {
			out = append(out, v.Rule+": "+v.Message)
		}
	}
	return out
}

// Run executes the full validation stack on a raw provider response:
// schema parse (Layer 1), business rules (Layer 2), confidence (Layer 3).
// providerConf, when non-nil, overrides any confidence embedded in the
// payload itself. Confidence is reported regardless of validity.
func Run(raw string, providerConf *float64, cfg Config, logger *slog.Logger) (*invoice.Invoice, Outcome) {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	inv, payloadConf, schemaErrs := invoice.Parse(raw)
	if inv == nil {
		msgs := make([]string, len(schemaErrs))
		for i, e := range schemaErrs {
			msgs[i] = e.Error()
		}
		logger.Warn("validation.schema.rejected",
			"errors", len(msgs),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, Outcome{
			SchemaValid:        false,
			BusinessRulesValid: false,
			Confidence:         0,
			Violations:         []RuleViolation{},
			SchemaErrors:       msgs,
		}
	}

	if providerConf == nil {
		providerConf = payloadConf
	}

	violations := CheckRules(inv, cfg)
	outcome := Outcome{
		SchemaValid:        true,
		BusinessRulesValid: !HasBlocking(violations),
		Confidence:         Score(inv, violations, providerConf, cfg),
		Violations:         violations,
		SchemaErrors:       []string{},
	}

	logger.Info("validation.ok",
		"invoice_id", inv.InvoiceID,
		"rules_valid", outcome.BusinessRulesValid,
		"violations", len(violations),
		"confidence", outcome.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return inv, outcome
}
