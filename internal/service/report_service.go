package service

import (
	"context"
	"fmt"
	"io"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/pkg/export"

	"github.com/shopspring/decimal"
)

type ReportService interface {
	Summary(ctx context.Context, w repository.Window) (*repository.ReportSummary, error)
	ByMaterial(ctx context.Context, w repository.Window) ([]repository.MaterialReportRow, error)
	ByPartner(ctx context.Context, w repository.Window) ([]repository.PartnerReportRow, error)
	ExportByMaterial(ctx context.Context, w repository.Window, out io.Writer) error
	ExportByPartner(ctx context.Context, w repository.Window, out io.Writer) error
}

type reportService struct {
	reportRepo repository.ReportRepository
}

func NewReportService(reportRepo repository.ReportRepository) ReportService {
	return &reportService{reportRepo: reportRepo}
}

func checkWindow(w repository.Window) error {
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return apperror.NewValidation(fmt.Sprintf("end date %s is before start date %s",
			w.End.Format("2006-01-02"), w.Start.Format("2006-01-02")))
	}
	return nil
}

func (s *reportService) Summary(ctx context.Context, w repository.Window) (*repository.ReportSummary, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	summary, err := s.reportRepo.Summary(ctx, w)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return summary, nil
}

func (s *reportService) ByMaterial(ctx context.Context, w repository.Window) ([]repository.MaterialReportRow, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	rows, err := s.reportRepo.ByMaterial(ctx, w)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return rows, nil
}

func (s *reportService) ByPartner(ctx context.Context, w repository.Window) ([]repository.PartnerReportRow, error) {
	if err := checkWindow(w); err != nil {
		return nil, err
	}
	rows, err := s.reportRepo.ByPartner(ctx, w)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return rows, nil
}

func (s *reportService) ExportByMaterial(ctx context.Context, w repository.Window, out io.Writer) error {
	rows, err := s.ByMaterial(ctx, w)
	if err != nil {
		return err
	}

	sheet := export.Sheet{
		Name:     "Materiais",
		Headings: []string{"Código", "Material", "Unidade", "Recebido", "Comprado", "Vendido", "Saldo", "Receita"},
		Rows:     make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		sheet.Rows = append(sheet.Rows, []any{
			r.Code, r.Name, r.Unit,
			cell(r.Received), cell(r.Purchased), cell(r.Sold), cell(r.Balance), cell(r.Revenue),
		})
	}
	if err := export.WriteXLSX(out, sheet); err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

func (s *reportService) ExportByPartner(ctx context.Context, w repository.Window, out io.Writer) error {
	rows, err := s.ByPartner(ctx, w)
	if err != nil {
		return err
	}

	sheet := export.Sheet{
		Name:     "Parceiros",
		Headings: []string{"Parceiro", "Tipo", "Categoria", "Recebido", "Comprado", "Total"},
		Rows:     make([][]any, 0, len(rows)),
	}
	for _, r := range rows {
		sheet.Rows = append(sheet.Rows, []any{
			r.Name, r.TypeName, string(r.Kind),
			cell(r.Received), cell(r.Purchased), cell(r.Total),
		})
	}
	if err := export.WriteXLSX(out, sheet); err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

// cell converts a quantity for the spreadsheet, which only stores floats.
func cell(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
