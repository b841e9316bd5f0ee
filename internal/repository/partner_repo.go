package repository

import (
	"context"

	"go-recycling-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PartnerRepository interface {
	WithTx(tx *gorm.DB) PartnerRepository

	CreateType(ctx context.Context, pt *model.PartnerType) error
	FindTypeByID(ctx context.Context, id uint) (*model.PartnerType, error)
	FindTypeByKind(ctx context.Context, kind model.PartnerKind) (*model.PartnerType, error)
	FindAllTypes(ctx context.Context) ([]model.PartnerType, error)
	SeedDefaultTypes(ctx context.Context) error

	Create(ctx context.Context, partner *model.Partner) error
	FindByID(ctx context.Context, id uint) (*model.Partner, error)
	List(ctx context.Context, filter NameFilter) (*PageResult[model.Partner], error)
	Update(ctx context.Context, partner *model.Partner) error
	Delete(ctx context.Context, id uint) error
	CountMovements(ctx context.Context, id uint) (int64, error)
	Count(ctx context.Context) (int64, error)

	CreateAssociation(ctx context.Context, a *model.Association) error
	FindAssociation(ctx context.Context, partnerID uint) (*model.Association, error)
	ListAssociations(ctx context.Context, filter NameFilter) (*PageResult[model.Association], error)
	UpdateAssociation(ctx context.Context, a *model.Association) error
	DeactivateAssociation(ctx context.Context, partnerID uint) error
}

type partnerRepo struct {
	db *gorm.DB
}

func NewPartnerRepo(db *gorm.DB) PartnerRepository {
	return &partnerRepo{db}
}

func (r *partnerRepo) WithTx(tx *gorm.DB) PartnerRepository {
	return &partnerRepo{tx}
}

func (r *partnerRepo) CreateType(ctx context.Context, pt *model.PartnerType) error {
	return r.db.WithContext(ctx).Create(pt).Error
}

func (r *partnerRepo) FindTypeByID(ctx context.Context, id uint) (*model.PartnerType, error) {
	var pt model.PartnerType
	if err := r.db.WithContext(ctx).First(&pt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pt, nil
}

// FindTypeByKind returns the oldest partner type of the given kind.
func (r *partnerRepo) FindTypeByKind(ctx context.Context, kind model.PartnerKind) (*model.PartnerType, error) {
	var pt model.PartnerType
	if err := r.db.WithContext(ctx).Where("kind = ?", kind).Order("id").First(&pt).Error; err != nil {
		return nil, err
	}
	return &pt, nil
}

func (r *partnerRepo) FindAllTypes(ctx context.Context) ([]model.PartnerType, error) {
	var types []model.PartnerType
	err := r.db.WithContext(ctx).Order("name").Find(&types).Error
	return types, err
}

// SeedDefaultTypes inserts the default partner types that are missing by name.
func (r *partnerRepo) SeedDefaultTypes(ctx context.Context) error {
	for _, pt := range model.DefaultPartnerTypes() {
		pt := pt
		err := r.db.WithContext(ctx).
			Where(model.PartnerType{Name: pt.Name}).
			Attrs(model.PartnerType{Kind: pt.Kind}).
			FirstOrCreate(&pt).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *partnerRepo) Create(ctx context.Context, partner *model.Partner) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(partner).Error
}

func (r *partnerRepo) FindByID(ctx context.Context, id uint) (*model.Partner, error) {
	var partner model.Partner
	if err := r.db.WithContext(ctx).Preload("PartnerType").First(&partner, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &partner, nil
}

func (r *partnerRepo) List(ctx context.Context, filter NameFilter) (*PageResult[model.Partner], error) {
	q := r.db.WithContext(ctx).Model(&model.Partner{})
	if filter.Name != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Name+"%")
	}
	q = q.Session(&gorm.Session{})

	result := &PageResult[model.Partner]{Items: []model.Partner{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := filter.Page.apply(q.Preload("PartnerType").Order("name")).Find(&result.Items).Error
	return result, err
}

func (r *partnerRepo) Update(ctx context.Context, partner *model.Partner) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(partner).Error
}

// Delete removes the partner together with its association detail, if any.
func (r *partnerRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Association{}, "partner_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Partner{}, "id = ?", id).Error
	})
}

// CountMovements counts donations and purchases of any status that reference the partner.
func (r *partnerRepo) CountMovements(ctx context.Context, id uint) (int64, error) {
	var donations, purchases int64
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.Donation{}).Where("partner_id = ?", id).Count(&donations).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&model.Purchase{}).Where("partner_id = ?", id).Count(&purchases).Error; err != nil {
		return 0, err
	}
	return donations + purchases, nil
}

func (r *partnerRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Partner{}).Count(&n).Error
	return n, err
}

func (r *partnerRepo) CreateAssociation(ctx context.Context, a *model.Association) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

func (r *partnerRepo) FindAssociation(ctx context.Context, partnerID uint) (*model.Association, error) {
	var a model.Association
	if err := r.db.WithContext(ctx).Preload("Partner").First(&a, "partner_id = ?", partnerID).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAssociations returns active associations ordered by partner name.
func (r *partnerRepo) ListAssociations(ctx context.Context, filter NameFilter) (*PageResult[model.Association], error) {
	q := r.db.WithContext(ctx).Model(&model.Association{}).
		Joins("JOIN partners ON partners.id = associations.partner_id").
		Where("associations.active = ?", true)
	if filter.Name != "" {
		q = q.Where("LOWER(partners.name) LIKE LOWER(?)", "%"+filter.Name+"%")
	}
	q = q.Session(&gorm.Session{})

	result := &PageResult[model.Association]{Items: []model.Association{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := filter.Page.apply(q.Preload("Partner").Order("partners.name")).Find(&result.Items).Error
	return result, err
}

func (r *partnerRepo) UpdateAssociation(ctx context.Context, a *model.Association) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(a).Error
}

func (r *partnerRepo) DeactivateAssociation(ctx context.Context, partnerID uint) error {
	return r.db.WithContext(ctx).Model(&model.Association{}).
		Where("partner_id = ?", partnerID).
		Update("active", false).Error
}
