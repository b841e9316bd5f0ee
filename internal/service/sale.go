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

type SaleItemInput struct {
	MaterialID uint            `json:"material_id" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

type SaleInput struct {
	BuyerID uint            `json:"buyer_id" validate:"required"`
	Items   []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

// CreateSale validates every line against current stock before writing
// anything, then stores header, items and the ENTRADA entry in one commit.
func (s *movementService) CreateSale(ctx context.Context, in SaleInput) (*model.Sale, error) {
	// 1. Basic shape and buyer
	if err := validate(&in); err != nil {
		return nil, err
	}
	if _, err := s.repos.Buyers.FindByID(ctx, in.BuyerID); err != nil {
		return nil, lookupErr(err, "buyer", in.BuyerID)
	}

	// 2. Resolve every distinct material
	materials, ids, err := s.resolveSaleMaterials(ctx, s.repos, in.Items)
	if err != nil {
		return nil, err
	}

	// 3. Quantities and prices
	for _, it := range in.Items {
		name := materials[it.MaterialID].Name
		if err := checkQuantity(name, it.Quantity); err != nil {
			return nil, err
		}
		if err := checkUnitPrice(name, it.UnitPrice); err != nil {
			return nil, err
		}
	}

	// 4. Stock
	if err := s.checkSaleStock(ctx, s.repos, in.Items, materials, ids); err != nil {
		return nil, err
	}

	// 5. Atomic creation under a fresh code
	var sale *model.Sale
	err = s.withCodeRetry(ctx, model.PrefixSale, repository.SaleCodeConstraint, func(tx *gorm.DB, dayPrefix string) error {
		repos := s.repos.withTx(tx)

		if s.opts.LockMaterialsOnSale {
			if _, err := repos.Materials.LockByIDs(ctx, ids); err != nil {
				return err
			}
			if err := s.checkSaleStock(ctx, repos, in.Items, materials, ids); err != nil {
				return err
			}
		}

		code, err := nextCode(ctx, repos.Sales.CountCodes, dayPrefix)
		if err != nil {
			return err
		}
		now := s.now()
		sale = &model.Sale{
			Code:       code,
			BuyerID:    in.BuyerID,
			Concluded:  true,
			OccurredAt: now.UTC(),
			CreatedBy:  actorFrom(ctx),
			Items:      make([]model.SaleItem, 0, len(in.Items)),
		}
		for _, it := range in.Items {
			sale.Items = append(sale.Items, model.SaleItem{
				MaterialID: it.MaterialID,
				Quantity:   it.Quantity,
				UnitPrice:  it.UnitPrice,
			})
		}
		if err := repos.Sales.Create(ctx, sale); err != nil {
			return err
		}

		total := sale.Total().Round(2)
		if !total.IsPositive() {
			return nil
		}
		entry, err := newEntry(model.TxIn, total,
			fmt.Sprintf("Recebimento referente à Venda Cód: %s", sale.Code),
			nil, &sale.ID, true, actorFrom(ctx), now)
		if err != nil {
			return err
		}
		return repos.Transactions.Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sale recorded",
		zap.String("code", sale.Code),
		zap.Int("items", len(sale.Items)),
		zap.String("total", sale.Total().StringFixed(2)))
	return s.GetSale(ctx, sale.ID)
}

func (s *movementService) resolveSaleMaterials(ctx context.Context, repos MovementRepos, items []SaleItemInput) (map[uint]model.Material, []uint, error) {
	seen := make(map[uint]bool, len(items))
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		if !seen[it.MaterialID] {
			seen[it.MaterialID] = true
			ids = append(ids, it.MaterialID)
		}
	}

	found, err := repos.Materials.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, apperror.Wrap(err)
	}
	materials := make(map[uint]model.Material, len(found))
	for _, m := range found {
		materials[m.ID] = m
	}
	for _, id := range ids {
		if _, ok := materials[id]; !ok {
			return nil, nil, apperror.NewNotFound("material", id)
		}
	}
	return materials, ids, nil
}

// checkSaleStock compares what the sale takes of each material, summed over
// its lines, with the clamped stock.
func (s *movementService) checkSaleStock(ctx context.Context, repos MovementRepos, items []SaleItemInput, materials map[uint]model.Material, ids []uint) error {
	totals, err := repos.Stock.TotalsByMaterial(ctx, ids)
	if err != nil {
		return apperror.Wrap(err)
	}

	requested := make(map[uint]decimal.Decimal, len(ids))
	for _, it := range items {
		requested[it.MaterialID] = requested[it.MaterialID].Add(it.Quantity)
	}

	for _, id := range ids {
		available := ClampStock(totals[id].Raw())
		if requested[id].GreaterThan(available) {
			m := materials[id]
			return apperror.NewInsufficientStock(m.Name, m.Unit, available, requested[id])
		}
	}
	return nil
}

// CancelSale sets concluded=false and refunds the items total with a SAIDA
// entry. Cancelling twice is a no-op.
func (s *movementService) CancelSale(ctx context.Context, id uint) (*model.Sale, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := s.repos.withTx(tx)
		sale, err := repos.Sales.FindForUpdate(ctx, id)
		if err != nil {
			return lookupErr(err, "sale", id)
		}
		if !sale.Concluded {
			return nil
		}
		if err := repos.Sales.SetConcluded(ctx, id, false); err != nil {
			return err
		}

		total := sale.Total().Round(2)
		if !total.IsPositive() {
			return nil
		}
		entry, err := newEntry(model.TxOut, total,
			fmt.Sprintf("Estorno referente ao Cancelamento da Venda Cód: %s", sale.Code),
			nil, &sale.ID, true, actorFrom(ctx), s.now())
		if err != nil {
			return err
		}
		return repos.Transactions.Create(ctx, entry)
	})
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	s.log.Info("sale cancelled", zap.Uint("id", id))
	return s.GetSale(ctx, id)
}

func (s *movementService) GetSale(ctx context.Context, id uint) (*model.Sale, error) {
	sale, err := s.repos.Sales.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "sale", id)
	}
	return sale, nil
}

func (s *movementService) ListSales(ctx context.Context, filter repository.MovementFilter) (*repository.PageResult[model.Sale], error) {
	res, err := s.repos.Sales.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}
