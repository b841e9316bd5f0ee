package service

import (
	"context"
	"strings"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"go.uber.org/zap"
)

type BuyerInput struct {
	Name  string  `json:"name" validate:"required,notblank,max=150"`
	TaxID *string `json:"tax_id" validate:"omitempty,max=20"`
	Phone string  `json:"phone" validate:"max=30"`
	Email string  `json:"email" validate:"omitempty,email"`
}

type BuyerService interface {
	Create(ctx context.Context, in BuyerInput) (*model.Buyer, error)
	Get(ctx context.Context, id uint) (*model.Buyer, error)
	List(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Buyer], error)
	Update(ctx context.Context, id uint, patch model.BuyerPatch) (*model.Buyer, error)
	Delete(ctx context.Context, id uint) error
}

type buyerService struct {
	buyerRepo repository.BuyerRepository
	log       *zap.Logger
}

func NewBuyerService(buyerRepo repository.BuyerRepository, log *zap.Logger) BuyerService {
	return &buyerService{buyerRepo: buyerRepo, log: log.Named("buyers")}
}

func (s *buyerService) Create(ctx context.Context, in BuyerInput) (*model.Buyer, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	buyer := &model.Buyer{
		Name:   strings.TrimSpace(in.Name),
		TaxID:  optional(in.TaxID),
		Phone:  strings.TrimSpace(in.Phone),
		Email:  strings.TrimSpace(in.Email),
		Active: true,
	}
	if err := s.buyerRepo.Create(ctx, buyer); err != nil {
		return nil, buyerWriteErr(err, buyer)
	}
	s.log.Info("buyer created", zap.Uint("id", buyer.ID), zap.String("name", buyer.Name))
	return buyer, nil
}

func (s *buyerService) Get(ctx context.Context, id uint) (*model.Buyer, error) {
	buyer, err := s.buyerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "buyer", id)
	}
	return buyer, nil
}

func (s *buyerService) List(ctx context.Context, filter repository.NameFilter) (*repository.PageResult[model.Buyer], error) {
	res, err := s.buyerRepo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}

func (s *buyerService) Update(ctx context.Context, id uint, patch model.BuyerPatch) (*model.Buyer, error) {
	if err := validate(&patch); err != nil {
		return nil, err
	}
	if err := trimName(&patch.Name, "buyer"); err != nil {
		return nil, err
	}
	buyer, err := s.buyerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "buyer", id)
	}
	patch.Apply(buyer)
	buyer.TaxID = optional(buyer.TaxID)
	if err := s.buyerRepo.Update(ctx, buyer); err != nil {
		return nil, buyerWriteErr(err, buyer)
	}
	return buyer, nil
}

// Delete deactivates the buyer; past sales keep their reference.
func (s *buyerService) Delete(ctx context.Context, id uint) error {
	if _, err := s.buyerRepo.FindByID(ctx, id); err != nil {
		return lookupErr(err, "buyer", id)
	}
	if err := s.buyerRepo.Deactivate(ctx, id); err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

func buyerWriteErr(err error, b *model.Buyer) error {
	return writeErr(err, "buyer",
		unique{repository.BuyerNameConstraint, "name", b.Name},
		unique{repository.BuyerTaxConstraint, "tax_id", deref(b.TaxID)})
}
