package repository

import (
	"context"

	"go-recycling-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DonationRepository interface {
	WithTx(tx *gorm.DB) DonationRepository
	Create(ctx context.Context, donation *model.Donation) error
	FindByID(ctx context.Context, id uint) (*model.Donation, error)
	FindForUpdate(ctx context.Context, id uint) (*model.Donation, error)
	UpdateStatus(ctx context.Context, id uint, status model.DonationStatus) error
	List(ctx context.Context, filter MovementFilter) (*PageResult[model.Donation], error)
	CountCodes(ctx context.Context, prefix string) (int64, error)
}

type donationRepo struct {
	db *gorm.DB
}

func NewDonationRepo(db *gorm.DB) DonationRepository {
	return &donationRepo{db}
}

func (r *donationRepo) WithTx(tx *gorm.DB) DonationRepository {
	return &donationRepo{tx}
}

func (r *donationRepo) Create(ctx context.Context, donation *model.Donation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(donation).Error
}

func (r *donationRepo) FindByID(ctx context.Context, id uint) (*model.Donation, error) {
	var donation model.Donation
	err := r.db.WithContext(ctx).
		Preload("Material").
		Preload("Partner").
		First(&donation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepo) FindForUpdate(ctx context.Context, id uint) (*model.Donation, error) {
	var donation model.Donation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&donation, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepo) UpdateStatus(ctx context.Context, id uint, status model.DonationStatus) error {
	return r.db.WithContext(ctx).Model(&model.Donation{}).Where("id = ?", id).Update("status", status).Error
}

// List returns confirmed donations, newest first.
func (r *donationRepo) List(ctx context.Context, filter MovementFilter) (*PageResult[model.Donation], error) {
	q := r.db.WithContext(ctx).Model(&model.Donation{}).Where("status = ?", model.DonationConfirmed)
	q = filter.Window.apply(q, "occurred_at")
	if filter.MaterialID != nil {
		q = q.Where("material_id = ?", *filter.MaterialID)
	}
	if filter.PartnerID != nil {
		q = q.Where("partner_id = ?", *filter.PartnerID)
	}
	q = q.Session(&gorm.Session{})

	result := &PageResult[model.Donation]{Items: []model.Donation{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := filter.Page.apply(q.Preload("Material").Preload("Partner").Order("occurred_at DESC, id DESC")).
		Find(&result.Items).Error
	return result, err
}

// CountCodes counts donations of any status whose code starts with prefix.
func (r *donationRepo) CountCodes(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Donation{}).Where("code LIKE ?", prefix+"%").Count(&n).Error
	return n, err
}
