package service

import (
	"context"
	"fmt"
	"strings"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PartnerTypeInput struct {
	Name string            `json:"name" validate:"required,notblank,max=60"`
	Kind model.PartnerKind `json:"kind" validate:"required,oneof=ASSOCIACAO DOADOR_EXTERNO FORNECEDOR OUTRO"`
}

type PartnerInput struct {
	Name          string `json:"name" validate:"required,notblank,max=150"`
	PartnerTypeID uint   `json:"partner_type_id" validate:"required"`
}

type AssociationInput struct {
	Name   string  `json:"name" validate:"required,notblank,max=150"`
	Leader string  `json:"leader" validate:"max=150"`
	Phone  string  `json:"phone" validate:"max=30"`
	TaxID  *string `json:"tax_id" validate:"omitempty,max=20"`
}

type PartnerService interface {
	ListTypes(ctx context.Context) ([]model.PartnerType, error)
	CreateType(ctx context.Context, in PartnerTypeInput) (*model.PartnerType, error)
	SeedDefaultTypes(ctx context.Context) error

	CreatePartner(ctx context.Context, in PartnerInput) (*model.Partner, error)
	GetPartner(ctx context.Context, id uint) (*model.Partner, error)
	ListPartners(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Partner], error)
	UpdatePartner(ctx context.Context, id uint, patch model.PartnerPatch) (*model.Partner, error)
	DeletePartner(ctx context.Context, id uint) error

	CreateAssociation(ctx context.Context, in AssociationInput) (*model.Association, error)
	GetAssociation(ctx context.Context, partnerID uint) (*model.Association, error)
	ListAssociations(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Association], error)
	UpdateAssociation(ctx context.Context, partnerID uint, patch model.AssociationPatch) (*model.Association, error)
	DeleteAssociation(ctx context.Context, partnerID uint) error
}

type partnerService struct {
	db          *gorm.DB
	partnerRepo repository.PartnerRepository
	log         *zap.Logger
}

func NewPartnerService(db *gorm.DB, partnerRepo repository.PartnerRepository, log *zap.Logger) PartnerService {
	return &partnerService{db: db, partnerRepo: partnerRepo, log: log.Named("partners")}
}

func (s *partnerService) ListTypes(ctx context.Context) ([]model.PartnerType, error) {
	types, err := s.partnerRepo.FindAllTypes(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return types, nil
}

func (s *partnerService) CreateType(ctx context.Context, in PartnerTypeInput) (*model.PartnerType, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	pt := &model.PartnerType{Name: strings.TrimSpace(in.Name), Kind: in.Kind}
	if err := s.partnerRepo.CreateType(ctx, pt); err != nil {
		return nil, writeErr(err, "partner type", unique{repository.PartnerTypeNameConstraint, "name", pt.Name})
	}
	return pt, nil
}

func (s *partnerService) SeedDefaultTypes(ctx context.Context) error {
	if err := s.partnerRepo.SeedDefaultTypes(ctx); err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

func (s *partnerService) CreatePartner(ctx context.Context, in PartnerInput) (*model.Partner, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	pt, err := s.partnerRepo.FindTypeByID(ctx, in.PartnerTypeID)
	if err != nil {
		return nil, lookupErr(err, "partner type", in.PartnerTypeID)
	}

	partner := &model.Partner{
		Name:          strings.TrimSpace(in.Name),
		PartnerTypeID: pt.ID,
		Kind:          pt.Kind,
	}
	if err := s.partnerRepo.Create(ctx, partner); err != nil {
		return nil, writeErr(err, "partner", unique{repository.PartnerNameConstraint, "name", partner.Name})
	}
	return s.GetPartner(ctx, partner.ID)
}

func (s *partnerService) GetPartner(ctx context.Context, id uint) (*model.Partner, error) {
	partner, err := s.partnerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "partner", id)
	}
	return partner, nil
}

func (s *partnerService) ListPartners(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Partner], error) {
	res, err := s.partnerRepo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}

func (s *partnerService) UpdatePartner(ctx context.Context, id uint, patch model.PartnerPatch) (*model.Partner, error) {
	if err := validate(&patch); err != nil {
		return nil, err
	}
	if err := trimName(&patch.Name, "partner"); err != nil {
		return nil, err
	}
	partner, err := s.partnerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "partner", id)
	}
	patch.Apply(partner)
	if err := s.partnerRepo.Update(ctx, partner); err != nil {
		return nil, writeErr(err, "partner", unique{repository.PartnerNameConstraint, "name", partner.Name})
	}
	return s.GetPartner(ctx, id)
}

// DeletePartner removes a partner nobody has moved material with yet.
func (s *partnerService) DeletePartner(ctx context.Context, id uint) error {
	partner, err := s.partnerRepo.FindByID(ctx, id)
	if err != nil {
		return lookupErr(err, "partner", id)
	}
	n, err := s.partnerRepo.CountMovements(ctx, id)
	if err != nil {
		return apperror.Wrap(err)
	}
	if n > 0 {
		return apperror.NewConflict(fmt.Sprintf("partner '%s' is referenced by %d movement(s)", partner.Name, n))
	}
	if err := s.partnerRepo.Delete(ctx, id); err != nil {
		return apperror.Wrap(err)
	}
	s.log.Info("partner deleted", zap.Uint("id", id), zap.String("name", partner.Name))
	return nil
}

// CreateAssociation stores the partner row and its association detail in one
// transaction, under the first partner type of kind ASSOCIACAO.
func (s *partnerService) CreateAssociation(ctx context.Context, in AssociationInput) (*model.Association, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	pt, err := s.partnerRepo.FindTypeByKind(ctx, model.KindAssociation)
	if err != nil {
		return nil, lookupErr(err, "partner type", model.KindAssociation)
	}

	partner := &model.Partner{
		Name:          strings.TrimSpace(in.Name),
		PartnerTypeID: pt.ID,
		Kind:          model.KindAssociation,
	}
	association := &model.Association{
		Leader: strings.TrimSpace(in.Leader),
		Phone:  strings.TrimSpace(in.Phone),
		TaxID:  optional(in.TaxID),
		Active: true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.partnerRepo.WithTx(tx)
		if err := repo.Create(ctx, partner); err != nil {
			return err
		}
		association.PartnerID = partner.ID
		return repo.CreateAssociation(ctx, association)
	})
	if err != nil {
		return nil, writeErr(err, "association",
			unique{repository.PartnerNameConstraint, "name", partner.Name},
			unique{repository.AssociationTaxConstraint, "tax_id", deref(association.TaxID)})
	}

	s.log.Info("association created", zap.Uint("partner_id", partner.ID), zap.String("name", partner.Name))
	return s.GetAssociation(ctx, partner.ID)
}

func (s *partnerService) GetAssociation(ctx context.Context, partnerID uint) (*model.Association, error) {
	a, err := s.partnerRepo.FindAssociation(ctx, partnerID)
	if err != nil {
		return nil, lookupErr(err, "association", partnerID)
	}
	return a, nil
}

func (s *partnerService) ListAssociations(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Association], error) {
	res, err := s.partnerRepo.ListAssociations(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}

// UpdateAssociation applies the name to the partner row and the rest to the
// association detail.
func (s *partnerService) UpdateAssociation(ctx context.Context, partnerID uint, patch model.AssociationPatch) (*model.Association, error) {
	if err := validate(&patch); err != nil {
		return nil, err
	}
	if err := trimName(&patch.Name, "association"); err != nil {
		return nil, err
	}
	var a *model.Association
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.partnerRepo.WithTx(tx)
		found, err := repo.FindAssociation(ctx, partnerID)
		if err != nil {
			return lookupErr(err, "association", partnerID)
		}
		a = found
		patch.Apply(a)
		a.TaxID = optional(a.TaxID)
		if patch.Name != nil && a.Partner != nil {
			if err := repo.Update(ctx, a.Partner); err != nil {
				return err
			}
		}
		return repo.UpdateAssociation(ctx, a)
	})
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		name := ""
		if patch.Name != nil {
			name = *patch.Name
		}
		return nil, writeErr(err, "association",
			unique{repository.PartnerNameConstraint, "name", name},
			unique{repository.AssociationTaxConstraint, "tax_id", deref(patch.TaxID)})
	}
	return s.GetAssociation(ctx, partnerID)
}

// DeleteAssociation only deactivates; the partner stays for history.
func (s *partnerService) DeleteAssociation(ctx context.Context, partnerID uint) error {
	if _, err := s.partnerRepo.FindAssociation(ctx, partnerID); err != nil {
		return lookupErr(err, "association", partnerID)
	}
	if err := s.partnerRepo.DeactivateAssociation(ctx, partnerID); err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

// trimName trims an optional name in place and rejects a blank one.
func trimName(name **string, entity string) error {
	if *name == nil {
		return nil
	}
	v := strings.TrimSpace(**name)
	if v == "" {
		return apperror.NewValidation(entity + " name cannot be blank")
	}
	*name = &v
	return nil
}

// optional maps blank strings to nil so they stay out of unique indexes.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
