package repository

import (
	"context"

	"go-recycling-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	WithTx(tx *gorm.DB) PurchaseRepository
	Create(ctx context.Context, purchase *model.Purchase) error
	FindByID(ctx context.Context, id uint) (*model.Purchase, error)
	FindForUpdate(ctx context.Context, id uint) (*model.Purchase, error)
	UpdateStatus(ctx context.Context, id uint, status model.PurchaseStatus) error
	List(ctx context.Context, filter MovementFilter) (*PageResult[model.Purchase], error)
	CountCodes(ctx context.Context, prefix string) (int64, error)
}

type purchaseRepo struct {
	db *gorm.DB
}

func NewPurchaseRepo(db *gorm.DB) PurchaseRepository {
	return &purchaseRepo{db}
}

func (r *purchaseRepo) WithTx(tx *gorm.DB) PurchaseRepository {
	return &purchaseRepo{tx}
}

func (r *purchaseRepo) Create(ctx context.Context, purchase *model.Purchase) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(purchase).Error
}

func (r *purchaseRepo) FindByID(ctx context.Context, id uint) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Preload("Material").
		Preload("Partner").
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepo) FindForUpdate(ctx context.Context, id uint) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *purchaseRepo) UpdateStatus(ctx context.Context, id uint, status model.PurchaseStatus) error {
	return r.db.WithContext(ctx).Model(&model.Purchase{}).Where("id = ?", id).Update("status", status).Error
}

// List returns concluded purchases, newest first.
func (r *purchaseRepo) List(ctx context.Context, filter MovementFilter) (*PageResult[model.Purchase], error) {
	q := r.db.WithContext(ctx).Model(&model.Purchase{}).Where("status = ?", model.PurchaseConcluded)
	q = filter.Window.apply(q, "occurred_at")
	if filter.MaterialID != nil {
		q = q.Where("material_id = ?", *filter.MaterialID)
	}
	if filter.PartnerID != nil {
		q = q.Where("partner_id = ?", *filter.PartnerID)
	}
	q = q.Session(&gorm.Session{})

	result := &PageResult[model.Purchase]{Items: []model.Purchase{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := filter.Page.apply(q.Preload("Material").Preload("Partner").Order("occurred_at DESC, id DESC")).
		Find(&result.Items).Error
	return result, err
}

func (r *purchaseRepo) CountCodes(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Purchase{}).Where("code LIKE ?", prefix+"%").Count(&n).Error
	return n, err
}
