package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extractor/internal/pipeline"
)

// Reporter renders a batch summary workbook from the results the sink
// collected; rendering happens once, after the queue has drained.
type Reporter struct {
	logger *slog.Logger
}

func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger}
}

// BatchXLSX renders one row per processed document: extracted header fields
// for successes, stage and first error for failures.
func (r *Reporter) BatchXLSX(results []pipeline.Result) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Invoices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Input File",
		"Status",
		"Invoice ID",
		"Vendor",
		"Invoice Date",
		"Currency",
		"Subtotal",
		"Tax",
		"Commission",
		"Total",
		"Confidence",
		"Provider",
		"Latency (ms)",
		"Errors",
		"Warnings",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, res := range results {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, res.InputFile)
		write(2, statusLabel(res))
		if inv := res.Invoice; inv != nil {
			write(3, inv.InvoiceID)
			write(4, inv.VendorName)
			write(5, inv.InvoiceDate.String())
			write(6, inv.Currency)
			write(7, inv.Subtotal.StringFixed(2))
			write(8, inv.TaxAmount.StringFixed(2))
			write(9, inv.CommissionAmount.StringFixed(2))
			write(10, inv.TotalAmount.StringFixed(2))
		}
		write(11, fmt.Sprintf("%.2f", res.Confidence))
		if res.Source != nil {
			write(12, *res.Source)
		}
		write(13, res.LatencyMS)
		write(14, truncate(joinLines(res.Errors), 300))
		write(15, truncate(joinLines(res.Warnings), 300))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 50)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "C", 20)
	_ = f.SetColWidth(sheet, "D", "F", 14)
	_ = f.SetColWidth(sheet, "G", "J", 12)
	_ = f.SetColWidth(sheet, "N", "O", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	r.logger.Info("export.xlsx.ok",
		"rows", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func statusLabel(res pipeline.Result) string {
	switch {
	case res.Skipped:
		return "SKIPPED"
	case res.Success:
		return "OK"
	default:
		return "FAILED"
	}
}

func joinLines(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
