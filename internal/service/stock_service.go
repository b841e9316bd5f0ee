package service

import (
	"context"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/shopspring/decimal"
)

// ClampStock never lets callers observe negative stock.
func ClampStock(raw decimal.Decimal) decimal.Decimal {
	if raw.IsNegative() {
		return decimal.Zero
	}
	return raw
}

// StockDiagnostics exposes the unclamped figure that ClampStock hides.
type StockDiagnostics struct {
	MaterialID uint            `json:"material_id"`
	Donated    decimal.Decimal `json:"donated"`
	Purchased  decimal.Decimal `json:"purchased"`
	Sold       decimal.Decimal `json:"sold"`
	Raw        decimal.Decimal `json:"raw"`
	Stock      decimal.Decimal `json:"stock"`
	Drift      bool            `json:"drift"`
}

type MaterialStock struct {
	model.Material
	Stock decimal.Decimal `json:"stock"`
}

type StockService interface {
	Stock(ctx context.Context, materialID uint) (decimal.Decimal, error)
	Diagnostics(ctx context.Context, materialID uint) (*StockDiagnostics, error)
	Overview(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[MaterialStock], error)
}

type stockService struct {
	materialRepo repository.MaterialRepository
	stockRepo    repository.StockRepository
}

func NewStockService(materialRepo repository.MaterialRepository, stockRepo repository.StockRepository) StockService {
	return &stockService{materialRepo: materialRepo, stockRepo: stockRepo}
}

func (s *stockService) Stock(ctx context.Context, materialID uint) (decimal.Decimal, error) {
	d, err := s.Diagnostics(ctx, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Stock, nil
}

func (s *stockService) Diagnostics(ctx context.Context, materialID uint) (*StockDiagnostics, error) {
	if _, err := s.materialRepo.FindByID(ctx, materialID); err != nil {
		return nil, lookupErr(err, "material", materialID)
	}
	t, err := s.stockRepo.Totals(ctx, materialID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	raw := t.Raw()
	return &StockDiagnostics{
		MaterialID: materialID,
		Donated:    t.Donated,
		Purchased:  t.Purchased,
		Sold:       t.Sold,
		Raw:        raw,
		Stock:      ClampStock(raw),
		Drift:      raw.IsNegative(),
	}, nil
}

// Overview lists active materials with their current stock.
func (s *stockService) Overview(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[MaterialStock], error) {
	page, err := s.materialRepo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	ids := make([]uint, len(page.Items))
	for i, m := range page.Items {
		ids[i] = m.ID
	}
	totals, err := s.stockRepo.TotalsByMaterial(ctx, ids)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	out := &repository.PageResult[MaterialStock]{Total: page.Total, Items: make([]MaterialStock, 0, len(page.Items))}
	for _, m := range page.Items {
		out.Items = append(out.Items, MaterialStock{Material: m, Stock: ClampStock(totals[m.ID].Raw())})
	}
	return out, nil
}
