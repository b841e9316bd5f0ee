package repository

import (
	"context"

	"go-recycling-ledger/internal/model"

	"gorm.io/gorm"
)

type BuyerRepository interface {
	WithTx(tx *gorm.DB) BuyerRepository
	Create(ctx context.Context, buyer *model.Buyer) error
	FindByID(ctx context.Context, id uint) (*model.Buyer, error)
	List(ctx context.Context, filter NameFilter) (*PageResult[model.Buyer], error)
	Update(ctx context.Context, buyer *model.Buyer) error
	Deactivate(ctx context.Context, id uint) error
	CountActive(ctx context.Context) (int64, error)
}

type buyerRepo struct {
	db *gorm.DB
}

func NewBuyerRepo(db *gorm.DB) BuyerRepository {
	return &buyerRepo{db}
}

func (r *buyerRepo) WithTx(tx *gorm.DB) BuyerRepository {
	return &buyerRepo{tx}
}

func (r *buyerRepo) Create(ctx context.Context, buyer *model.Buyer) error {
	return r.db.WithContext(ctx).Create(buyer).Error
}

func (r *buyerRepo) FindByID(ctx context.Context, id uint) (*model.Buyer, error) {
	var buyer model.Buyer
	if err := r.db.WithContext(ctx).First(&buyer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &buyer, nil
}

// List returns active buyers ordered by name.
func (r *buyerRepo) List(ctx context.Context, filter NameFilter) (*PageResult[model.Buyer], error) {
	q := r.db.WithContext(ctx).Model(&model.Buyer{}).Where("active = ?", true)
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Name+"%")
	}
	q = q.Session(&gorm.Session{})

	result := &PageResult[model.Buyer]{Items: []model.Buyer{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := filter.Page.apply(q.Order("name")).Find(&result.Items).Error
	return result, err
}

func (r *buyerRepo) Update(ctx context.Context, buyer *model.Buyer) error {
	return r.db.WithContext(ctx).Save(buyer).Error
}

func (r *buyerRepo) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.Buyer{}).Where("id = ?", id).Update("active", false).Error
}

func (r *buyerRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Buyer{}).Where("active = ?", true).Count(&n).Error
	return n, err
}
