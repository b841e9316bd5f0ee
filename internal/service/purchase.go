package service

import (
	"context"
	"fmt"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PurchaseInput struct {
	MaterialID uint            `json:"material_id" validate:"required"`
	PartnerID  uint            `json:"partner_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

func (s *movementService) CreatePurchase(ctx context.Context, in PurchaseInput) (*model.Purchase, error) {
	// 1. Validate references, quantity and price
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
	if err := checkUnitPrice(material.Name, in.UnitPrice); err != nil {
		return nil, err
	}
	total := in.Quantity.Mul(in.UnitPrice).Round(2)

	// 2. Check funds, persist and pay inside one transaction
	var purchase *model.Purchase
	err = s.withCodeRetry(ctx, model.PrefixPurchase, repository.PurchaseCodeConstraint, func(tx *gorm.DB, dayPrefix string) error {
		repos := s.repos.withTx(tx)

		balance, err := balanceOf(ctx, repos.Transactions)
		if err != nil {
			return err
		}
		if balance.Current.LessThan(total) {
			return apperror.NewInsufficientFunds(total, balance.Current)
		}

		code, err := nextCode(ctx, repos.Purchases.CountCodes, dayPrefix)
		if err != nil {
			return err
		}
		now := s.now()
		purchase = &model.Purchase{
			Code:       code,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			TotalCost:  total,
			Status:     model.PurchaseConcluded,
			MaterialID: material.ID,
			PartnerID:  in.PartnerID,
			OccurredAt: now.UTC(),
			CreatedBy:  actorFrom(ctx),
		}
		if err := repos.Purchases.Create(ctx, purchase); err != nil {
			return err
		}

		if !total.IsPositive() {
			return nil
		}
		entry, err := newEntry(model.TxOut, total,
			fmt.Sprintf("Pagamento referente à Compra Cód: %s", purchase.Code),
			&purchase.ID, nil, true, actorFrom(ctx), now)
		if err != nil {
			return err
		}
		return repos.Transactions.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("purchase recorded",
		zap.String("code", purchase.Code),
		zap.String("material", material.Name),
		zap.String("total", total.StringFixed(2)))
	return s.GetPurchase(ctx, purchase.ID)
}

// CancelPurchase marks the purchase cancelled and refunds its total.
// Cancelling twice is a no-op.
func (s *movementService) CancelPurchase(ctx context.Context, id uint) (*model.Purchase, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.withTx(tx)
		purchase, err := repos.Purchases.FindForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "purchase", id)
		}
		if purchase.Cancelled() {
			return nil
		}
		if err := repos.Purchases.UpdateStatus(ctx, id, model.PurchaseCancelled); err != nil {
			return err
		}

		if !purchase.TotalCost.IsPositive() {
			return nil
		}
		entry, err := newEntry(model.TxIn, purchase.TotalCost,
			fmt.Sprintf("Estorno referente ao Cancelamento da Compra Cód: %s", purchase.Code),
			&purchase.ID, nil, true, actorFrom(ctx), s.now())
		if err != nil {
			return err
		}
		return repos.Transactions.Create(ctx, entry)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	s.log.Info("purchase cancelled", zap.Uint("id", id))
	return s.GetPurchase(ctx, id)
}

func (s *movementService) GetPurchase(ctx context.Context, id uint) (*model.Purchase, error) {
	purchase, err := s.repos.Purchases.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "purchase", id)
	}
	return purchase, nil
}

func (s *movementService) ListPurchases(ctx context.Context, filter repository.MovementFilter) (*repository.PageResult[model.Purchase], error) {
	res, err := s.repos.Purchases.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}
