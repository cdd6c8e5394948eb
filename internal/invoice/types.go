package invoice

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

const dateLayout = "2006-01-02"

// Date is a calendar day that marshals as YYYY-MM-DD.
type Date struct {
	time.Time
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = parsed
	return nil
}

// LineItem is one invoice line. Amount is always derived from quantity and
// unit price; there is no way to set it independently.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Amount returns quantity * unit_price rounded to 2 decimal places.
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity))).Round(2)
}

func (li LineItem) MarshalJSON() ([]byte, error) {
	type wire struct {
		Description string          `json:"description"`
		Quantity    int             `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
		Amount      decimal.Decimal `json:"amount"`
	}
	return json.Marshal(wire{
		Description: li.Description,
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice,
		Amount:      li.Amount(),
	})
}

// UnmarshalJSON defaults quantity to 1 and discards any supplied amount.
func (li *LineItem) UnmarshalJSON(b []byte) error {
	type wire struct {
		Description string          `json:"description"`
		Quantity    *int            `json:"quantity"`
		UnitPrice   decimal.Decimal `json:"unit_price"`
	}
	var w wire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	li.Description = strings.TrimSpace(w.Description)
	li.UnitPrice = w.UnitPrice
	if w.Quantity != nil {
		li.Quantity = *w.Quantity
	} else {
		li.Quantity = 1
	}
	return nil
}

// Invoice is the typed candidate record derived from a provider response,
// prior to business-rule validation. Header and financial summary fields are
// flattened into one object to keep the wire shape simple.
type Invoice struct {
	InvoiceID   string               `json:"invoice_id"`
	VendorName  string               `json:"vendor_name"`
	VendorType  constants.VendorType `json:"vendor_type"`
	InvoiceDate Date                 `json:"invoice_date"`
	DueDate     Date                 `json:"due_date"`
	Currency    string               `json:"currency"`

	LineItems []LineItem `json:"line_items"`

	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
}

// LineItemTotal sums the derived amounts of all line items.
func (inv *Invoice) LineItemTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range inv.LineItems {
		total = total.Add(li.Amount())
	}
	return total
}

// ExpectedCommission returns subtotal * commission_rate rounded to cents.
func (inv *Invoice) ExpectedCommission() decimal.Decimal {
	return inv.Subtotal.Mul(inv.CommissionRate).Round(2)
}
