package repository

import (
	"context"

	"go-recycling-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	WithTx(tx *gorm.DB) SaleRepository
	Create(ctx context.Context, sale *model.Sale) error
	FindByID(ctx context.Context, id uint) (*model.Sale, error)
	FindForUpdate(ctx context.Context, id uint) (*model.Sale, error)
	SetConcluded(ctx context.Context, id uint, concluded bool) error
	List(ctx context.Context, filter MovementFilter) (*PageResult[model.Sale], error)
	CountCodes(ctx context.Context, prefix string) (int64, error)
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) WithTx(tx *gorm.DB) SaleRepository {
	return &saleRepo{tx}
}

// Create inserts the header and then its items in the same session.
func (r *saleRepo) Create(ctx context.Context, sale *model.Sale) error {
	db := r.db.WithContext(ctx)
	items := sale.Items
	if err := db.Omit(clause.Associations).Create(sale).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].SaleID = sale.ID
	}
	if len(items) > 0 {
		if err := db.Omit(clause.Associations).Create(&items).Error; err != nil {
			return err
		}
	}
	sale.Items = items
	return nil
}

func (r *saleRepo) FindByID(ctx context.Context, id uint) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Preload("Buyer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Material").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) FindForUpdate(ctx context.Context, id uint) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) SetConcluded(ctx context.Context, id uint, concluded bool) error {
	return r.db.WithContext(ctx).Model(&model.Sale{}).Where("id = ?", id).Update("concluded", concluded).Error
}

// List returns concluded sales, newest first. MaterialID matches sales with
// at least one item of that material.
func (r *saleRepo) List(ctx context.Context, filter MovementFilter) (*PageResult[model.Sale], error) {
	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("sales.concluded = ?", true)
	q = filter.Window.apply(q, "sales.occurred_at")
	if filter.BuyerID != nil {
		q = q.Where("sales.buyer_id = ?", *filter.BuyerID)
	}
	if filter.MaterialID != nil {
		q = q.Where("EXISTS (SELECT 1 FROM sale_items WHERE sale_items.sale_id = sales.id AND sale_items.material_id = ?)", *filter.MaterialID)
	}
	q = q.Session(&gorm.Session{})

	result := &PageResult[model.Sale]{Items: []model.Sale{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := filter.Page.apply(q.
		Preload("Buyer").
		Preload("Items").
		Preload("Items.Material").
		Order("sales.occurred_at DESC, sales.id DESC")).
		Find(&result.Items).Error
	return result, err
}

func (r *saleRepo) CountCodes(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Sale{}).Where("code LIKE ?", prefix+"%").Count(&n).Error
	return n, err
}
