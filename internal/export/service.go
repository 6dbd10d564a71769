package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/po-extract/internal/common"
	"github.com/joseph-ayodele/po-extract/internal/entity"
	"github.com/joseph-ayodele/po-extract/internal/repository"
)

const (
	OrdersSheet = "Purchase Orders"
	ItemsSheet  = "Line Items"
)

// Row is one document's outcome. Draft is nil for failed documents.
type Row struct {
	Source string
	JobID  string
	Method string
	Pages  int
	Error  string
	Draft  *entity.PurchaseOrderDraft
}

// Service produces XLSX workbooks of extracted drafts.
type Service struct {
	jobs   repository.ExtractJobRepository
	logger *slog.Logger
}

// NewService returns a Service. jobs may be nil when only DraftsXLSX is used.
func NewService(jobs repository.ExtractJobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{jobs: jobs, logger: logger}
}

// ExportJobsXLSX exports the most recent journaled jobs.
func (s *Service) ExportJobsXLSX(ctx context.Context, limit int) ([]byte, error) {
	if s.jobs == nil {
		return nil, common.NewAppError("JOURNAL_DISABLED", "export: no job journal configured", common.ErrInternal)
	}
	jobs, err := s.jobs.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	rows := make([]Row, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, rowFromJob(j))
	}
	return s.DraftsXLSX(rows)
}

func rowFromJob(j *entity.ExtractJob) Row {
	r := Row{Source: j.SourceName, JobID: j.ID.String()}
	if j.Method != nil {
		r.Method = *j.Method
	}
	if j.Pages != nil {
		r.Pages = *j.Pages
	}
	if j.ErrorMessage != nil {
		r.Error = *j.ErrorMessage
	}
	if len(j.DraftJSON) > 0 {
		d := entity.NewPurchaseOrderDraft()
		if err := json.Unmarshal(j.DraftJSON, d); err == nil {
			r.Draft = d
		} else {
			r.Error = fmt.Sprintf("stored draft unreadable: %v", err)
		}
	}
	return r
}

var orderHeaders = []string{
	"Source", "Job ID", "Method", "Pages", "Error",
	"PO Number", "PO Date", "Buyer Name", "Buyer Address", "Buyer Email", "Buyer Phone",
	"GST Number", "PAN Number", "Payment Terms", "Style Ref No", "Delivery Address", "Delivery Date",
	"CGST", "SGST", "IGST", "Total Amount", "Amount In Words", "Notes", "Items",
}

var itemHeaders = []string{
	"Source", "PO Number", "Line", "Yarn Description", "Color", "Count",
	"Quantity", "UOM", "Rate", "Taxable Amount", "Bag Count", "GST %",
}

// DraftsXLSX returns a workbook with one sheet of order headers and one of
// line items.
func (s *Service) DraftsXLSX(rows []Row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default "Sheet1" becomes the orders sheet
	if err := f.SetSheetName(f.GetSheetName(0), OrdersSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return nil, err
	}
	if idx, err := f.GetSheetIndex(OrdersSheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := writeRow(f, OrdersSheet, 1, toAny(orderHeaders)); err != nil {
		return nil, err
	}
	if err := writeRow(f, ItemsSheet, 1, toAny(itemHeaders)); err != nil {
		return nil, err
	}

	itemRow := 2
	for i, r := range rows {
		d := r.Draft
		if d == nil {
			d = entity.NewPurchaseOrderDraft()
		}
		var total any
		if d.TotalAmount != nil {
			total = *d.TotalAmount
		}
		vals := []any{
			r.Source, r.JobID, r.Method, r.Pages, r.Error,
			d.PONumber, d.PODate, d.BuyerName, d.BuyerAddress, d.BuyerEmail, d.BuyerPhone,
			d.GSTNumber, d.PANNumber, d.PaymentTerms, d.StyleRefNo, d.DeliveryAddress, d.DeliveryDate,
			d.TaxDetails.CGST, d.TaxDetails.SGST, d.TaxDetails.IGST, total, d.AmountInWords,
			truncate(d.Notes, 500), len(d.Items),
		}
		if err := writeRow(f, OrdersSheet, i+2, vals); err != nil {
			return nil, err
		}

		for n, it := range d.Items {
			vals := []any{
				r.Source, d.PONumber, n + 1, it.YarnDescription, it.Color, deref(it.Count),
				it.Quantity, it.UOM, it.Rate, it.TaxableAmount, deref(it.BagCount), deref(it.GSTPercent),
			}
			if err := writeRow(f, ItemsSheet, itemRow, vals); err != nil {
				return nil, err
			}
			itemRow++
		}
	}

	// Widen a few columns
	_ = f.SetColWidth(OrdersSheet, "A", "A", 28) // source
	_ = f.SetColWidth(OrdersSheet, "B", "B", 38) // job id
	_ = f.SetColWidth(OrdersSheet, "H", "I", 36) // buyer
	_ = f.SetColWidth(OrdersSheet, "W", "W", 48) // notes
	_ = f.SetColWidth(ItemsSheet, "A", "A", 28)
	_ = f.SetColWidth(ItemsSheet, "D", "E", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"items", itemRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, vals []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &vals)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// deref returns nil for a nil pointer so the cell stays empty.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
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
