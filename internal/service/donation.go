package service

import (
	"context"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DonationInput struct {
	MaterialID uint            `json:"material_id" validate:"required"`
	PartnerID  uint            `json:"partner_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
}

func (s *movementService) CreateDonation(ctx context.Context, in DonationInput) (*model.Donation, error) {
	// 1. Validate references and quantity
	if err := validate(&in); err != nil {
		return nil, err
	}
	material, err := s.findMaterial(ctx, s.repos, in.MaterialID)
	if err != nil {
		return nil, err
	}
	if _, err := s.findPartner(ctx, s.repos, in.PartnerID); err != nil {
		return nil, err
	}
	if err := checkQuantity(material.Name, in.Quantity); err != nil {
		return nil, err
	}

	// 2. Persist under a fresh code, retrying on collisions
	var donation *model.Donation
	err = s.withCodeRetry(ctx, model.PrefixDonation, repository.DonationCodeConstraint, func(tx *gorm.DB, dayPrefix string) error {
		repos := s.repos.withTx(tx)
		code, err := nextCode(ctx, repos.Donations.CountCodes, dayPrefix)
		if err != nil {
			return err
		}
		donation = &model.Donation{
			Code:       code,
			Quantity:   in.Quantity,
			Status:     model.DonationConfirmed,
			MaterialID: material.ID,
			PartnerID:  in.PartnerID,
			OccurredAt: s.now().UTC(),
			CreatedBy:  actorFrom(ctx),
		}
		return repos.Donations.Create(ctx, donation)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("donation recorded",
		zap.String("code", donation.Code),
		zap.String("material", material.Name),
		zap.String("quantity", donation.Quantity.String()))
	return s.GetDonation(ctx, donation.ID)
}

// CancelDonation marks the donation cancelled. Cancelling twice is a no-op.
func (s *movementService) CancelDonation(ctx context.Context, id uint) (*model.Donation, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.withTx(tx)
		donation, err := repos.Donations.FindForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "donation", id)
		}
		if donation.Cancelled() {
			return nil
		}
		return repos.Donations.UpdateStatus(ctx, id, model.DonationCancelled)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return s.GetDonation(ctx, id)
}

func (s *movementService) GetDonation(ctx context.Context, id uint) (*model.Donation, error) {
	donation, err := s.repos.Donations.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "donation", id)
	}
	return donation, nil
}

func (s *movementService) ListDonations(ctx context.Context, filter repository.MovementFilter) (*repository.PageResult[model.Donation], error) {
	res, err := s.repos.Donations.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}
