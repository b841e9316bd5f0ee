package repository

import (
	"context"
	"strings"

	"go-recycling-ledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MaterialRepository interface {
	WithTx(tx *gorm.DB) MaterialRepository
	Create(ctx context.Context, material *model.Material) error
	SetCode(ctx context.Context, id uint, code string) error
	FindByID(ctx context.Context, id uint) (*model.Material, error)
	FindByName(ctx context.Context, name string) (*model.Material, error)
	FindByIDs(ctx context.Context, ids []uint) ([]model.Material, error)
	LockByIDs(ctx context.Context, ids []uint) ([]model.Material, error)
	List(ctx context.Context, filter NameFilter) (*PageResult[model.Material], error)
	FindAll(ctx context.Context) ([]model.Material, error)
	Update(ctx context.Context, material *model.Material) error
	Deactivate(ctx context.Context, id uint) error
	CountActive(ctx context.Context) (int64, error)
}

type materialRepo struct {
	db *gorm.DB
}

func NewMaterialRepo(db *gorm.DB) MaterialRepository {
	return &materialRepo{db}
}

func (r *materialRepo) WithTx(tx *gorm.DB) MaterialRepository {
	return &materialRepo{tx}
}

func (r *materialRepo) Create(ctx context.Context, material *model.Material) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(material).Error
}

func (r *materialRepo) SetCode(ctx context.Context, id uint, code string) error {
	return r.db.WithContext(ctx).Model(&model.Material{}).Where("id = ?", id).Update("code", code).Error
}

func (r *materialRepo) FindByID(ctx context.Context, id uint) (*model.Material, error) {
	var material model.Material
	if err := r.db.WithContext(ctx).Preload("Category").First(&material, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepo) FindByName(ctx context.Context, name string) (*model.Material, error) {
	var material model.Material
	if err := r.db.WithContext(ctx).First(&material, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *materialRepo) FindByIDs(ctx context.Context, ids []uint) ([]model.Material, error) {
	var materials []model.Material
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&materials).Error
	return materials, err
}

// LockByIDs reads the materials with SELECT ... FOR UPDATE, in id order so
// concurrent sales over the same materials lock them in the same sequence.
func (r *materialRepo) LockByIDs(ctx context.Context, ids []uint) ([]model.Material, error) {
	var materials []model.Material
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&materials).Error
	return materials, err
}

func (r *materialRepo) List(ctx context.Context, filter NameFilter) (*PageResult[model.Material], error) {
	q := r.db.WithContext(ctx).Model(&model.Material{}).Where("active = ?", true)
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}

	q = q.Session(&gorm.Session{})

	result := &PageResult[model.Material]{Items: []model.Material{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := filter.Page.apply(q.Preload("Category").Order("name")).Find(&result.Items).Error
	return result, err
}

// FindAll includes inactive materials; reports list every material.
func (r *materialRepo) FindAll(ctx context.Context) ([]model.Material, error) {
	var materials []model.Material
	err := r.db.WithContext(ctx).Order("name").Find(&materials).Error
	return materials, err
}

func (r *materialRepo) Update(ctx context.Context, material *model.Material) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(material).Error
}

func (r *materialRepo) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&model.Material{}).Where("id = ?", id).Update("active", false).Error
}

func (r *materialRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Material{}).Where("active = ?", true).Count(&n).Error
	return n, err
}
