package repository

import (
	"context"

	"go-recycling-ledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockTotals are the three movement sums stock is derived from.
type StockTotals struct {
	Donated   decimal.Decimal `json:"donated"`
	Purchased decimal.Decimal `json:"purchased"`
	Sold      decimal.Decimal `json:"sold"`
}

// Raw is donated + purchased - sold, without clamping.
func (t StockTotals) Raw() decimal.Decimal {
	return t.Donated.Add(t.Purchased).Sub(t.Sold)
}

type StockRepository interface {
	WithTx(tx *gorm.DB) StockRepository
	Totals(ctx context.Context, materialID uint) (StockTotals, error)
	TotalsByMaterial(ctx context.Context, materialIDs []uint) (map[uint]StockTotals, error)
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

func (r *stockRepo) WithTx(tx *gorm.DB) StockRepository {
	return &stockRepo{tx}
}

func (r *stockRepo) Totals(ctx context.Context, materialID uint) (StockTotals, error) {
	all, err := r.TotalsByMaterial(ctx, []uint{materialID})
	if err != nil {
		return StockTotals{}, err
	}
	return all[materialID], nil
}

// TotalsByMaterial sums confirmed donations, concluded purchases and items of
// concluded sales for each material. Materials without movements get zeros.
func (r *stockRepo) TotalsByMaterial(ctx context.Context, materialIDs []uint) (map[uint]StockTotals, error) {
	out := make(map[uint]StockTotals, len(materialIDs))
	for _, id := range materialIDs {
		out[id] = StockTotals{Donated: decimal.Zero, Purchased: decimal.Zero, Sold: decimal.Zero}
	}
	if len(materialIDs) == 0 {
		return out, nil
	}

	db := r.db.WithContext(ctx)

	donated, err := groupedSums(db.Model(&model.Donation{}).
		Select("material_id, COALESCE(SUM(quantity), 0)").
		Where("status = ? AND material_id IN ?", model.DonationConfirmed, materialIDs).
		Group("material_id"), 1)
	if err != nil {
		return nil, err
	}

	purchased, err := groupedSums(db.Model(&model.Purchase{}).
		Select("material_id, COALESCE(SUM(quantity), 0)").
		Where("status = ? AND material_id IN ?", model.PurchaseConcluded, materialIDs).
		Group("material_id"), 1)
	if err != nil {
		return nil, err
	}

	sold, err := groupedSums(db.Model(&model.SaleItem{}).
		Select("sale_items.material_id, COALESCE(SUM(sale_items.quantity), 0)").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.concluded = ? AND sale_items.material_id IN ?", true, materialIDs).
		Group("sale_items.material_id"), 1)
	if err != nil {
		return nil, err
	}

	for id := range out {
		out[id] = StockTotals{
			Donated:   sumAt(donated, id, 0),
			Purchased: sumAt(purchased, id, 0),
			Sold:      sumAt(sold, id, 0),
		}
	}
	return out, nil
}
