package service

import (
	"context"
	"strings"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CategoryInput struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

type MaterialInput struct {
	Name       string `json:"name" validate:"required,notblank,max=100"`
	Unit       string `json:"unit" validate:"max=20"`
	CategoryID *uint  `json:"category_id"`
}

type MaterialService interface {
	CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, id uint) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateMaterial(ctx context.Context, in MaterialInput) (*model.Material, error)
	GetMaterial(ctx context.Context, id uint) (*model.Material, error)
	ListMaterials(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Material], error)
	UpdateMaterial(ctx context.Context, id uint, patch model.MaterialPatch) (*model.Material, error)
	DeleteMaterial(ctx context.Context, id uint) error
}

type materialService struct {
	db           *gorm.DB
	materialRepo repository.MaterialRepository
	categoryRepo repository.CategoryRepository
	log          *zap.Logger
}

func NewMaterialService(db *gorm.DB, materialRepo repository.MaterialRepository, categoryRepo repository.CategoryRepository, log *zap.Logger) MaterialService {
	return &materialService{
		db:           db,
		materialRepo: materialRepo,
		categoryRepo: categoryRepo,
		log:          log.Named("materials"),
	}
}

func (s *materialService) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	category := &model.Category{Name: strings.TrimSpace(in.Name)}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, writeErr(err, "category", unique{repository.CategoryNameConstraint, "name", category.Name})
	}
	return category, nil
}

func (s *materialService) GetCategory(ctx context.Context, id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "category", id)
	}
	return category, nil
}

func (s *materialService) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return categories, nil
}

func (s *materialService) CreateMaterial(ctx context.Context, in MaterialInput) (*model.Material, error) {
	// 1. Validate input and category
	if err := validate(&in); err != nil {
		return nil, err
	}
	if in.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *in.CategoryID); err != nil {
			return nil, lookupErr(err, "category", *in.CategoryID)
		}
	}

	// 2. Insert, then derive the code from the id in the same transaction
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = model.DefaultUnit
	}
	material := &model.Material{
		Name:       strings.TrimSpace(in.Name),
		Unit:       unit,
		CategoryID: in.CategoryID,
		Active:     true,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.materialRepo.WithTx(tx)
		if err := repo.Create(ctx, material); err != nil {
			return err
		}
		code := model.MaterialCode(material.ID)
		material.Code = &code
		return repo.SetCode(ctx, material.ID, code)
	})
	if err != nil {
		return nil, writeErr(err, "material", unique{repository.MaterialNameConstraint, "name", material.Name})
	}

	s.log.Info("material created", zap.Uint("id", material.ID), zap.String("name", material.Name))
	return s.GetMaterial(ctx, material.ID)
}

func (s *materialService) GetMaterial(ctx context.Context, id uint) (*model.Material, error) {
	material, err := s.materialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "material", id)
	}
	return material, nil
}

func (s *materialService) ListMaterials(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Material], error) {
	res, err := s.materialRepo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}

func (s *materialService) UpdateMaterial(ctx context.Context, id uint, patch model.MaterialPatch) (*model.Material, error) {
	if err := validate(&patch); err != nil {
		return nil, err
	}
	if err := trimName(&patch.Name, "material"); err != nil {
		return nil, err
	}

	material, err := s.materialRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "material", id)
	}
	if patch.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *patch.CategoryID); err != nil {
			return nil, lookupErr(err, "category", *patch.CategoryID)
		}
	}

	patch.Apply(material)
	if err := s.materialRepo.Update(ctx, material); err != nil {
		return nil, writeErr(err, "material", unique{repository.MaterialNameConstraint, "name", material.Name})
	}
	return s.GetMaterial(ctx, id)
}

// DeleteMaterial deactivates the material; history keeps referencing it.
func (s *materialService) DeleteMaterial(ctx context.Context, id uint) error {
	if _, err := s.materialRepo.FindByID(ctx, id); err != nil {
		return lookupErr(err, "material", id)
	}
	if err := s.materialRepo.Deactivate(ctx, id); err != nil {
		return apperror.Wrap(err)
	}
	s.log.Info("material deactivated", zap.Uint("id", id))
	return nil
}
