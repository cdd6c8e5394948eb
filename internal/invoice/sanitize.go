package invoice

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reDecimal = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	moneyKeys = []string{"subtotal", "tax_amount", "commission_amount", "total_amount"}
)

// SanitizeFields normalizes a raw extraction payload so a payload that is only
// cosmetically off (numbers instead of string decimals, stray nulls, mixed-case
// enums) can still validate. Required semantics are never invented: a missing
// or garbage value stays missing.
func SanitizeFields(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, err
	}

	var changed []string

	for _, k := range moneyKeys {
		if fixMoney(m, k) {
			changed = append(changed, k)
		}
	}
	if fixRate(m, "commission_rate") {
		changed = append(changed, "commission_rate")
	}

	if v, ok := m["currency"].(string); ok {
		m["currency"] = strings.ToUpper(strings.TrimSpace(v))
	}
	if v, ok := m["vendor_type"].(string); ok {
		m["vendor_type"] = strings.ToLower(strings.TrimSpace(v))
	}

	// null optionals are dropped so required-field checks stay meaningful
	for k, v := range m {
		if v == nil {
			delete(m, k)
			changed = append(changed, k)
		}
	}

	if items, ok := m["line_items"].([]any); ok {
		for _, raw := range items {
			li, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if fixMoney(li, "unit_price") {
				changed = append(changed, "line_items.unit_price")
			}
			if fixMoney(li, "amount") {
				changed = append(changed, "line_items.amount")
			}
			if q, ok := li["quantity"].(float64); ok && q == float64(int64(q)) {
				li["quantity"] = int64(q)
			}
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changed, nil
}

// fixMoney coerces a money value into the canonical non-negative two-decimal
// string form. Reports whether the value changed.
func fixMoney(m map[string]any, k string) bool {
	v, ok := m[k]
	if !ok {
		return false
	}
	switch t := v.(type) {
	case float64:
		m[k] = fmt.Sprintf("%.2f", t)
		return true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			return true
		}
		if reDecimal.MatchString(s) {
			if s != t {
				m[k] = s
				return true
			}
			return false
		}
		// strip currency symbols and thousands separators, then reformat
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, s)
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f >= 0 {
			m[k] = fmt.Sprintf("%.2f", f)
			return true
		}
		return false
	default:
		return false
	}
}

// fixRate is like fixMoney but keeps up to 4 decimal places and leaves
// out-of-range values alone for the schema to reject.
func fixRate(m map[string]any, k string) bool {
	v, ok := m[k]
	if !ok {
		return false
	}
	if f, ok := v.(float64); ok {
		m[k] = strconv.FormatFloat(f, 'f', -1, 64)
		return true
	}
	return false
}
