package service

import (
	"context"
	"fmt"
	"time"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MovementService records donations, purchases and sales together with the
// cash entries they imply.
type MovementService interface {
	CreateDonation(ctx context.Context, in DonationInput) (*model.Donation, error)
	CancelDonation(ctx context.Context, id uint) (*model.Donation, error)
	GetDonation(ctx context.Context, id uint) (*model.Donation, error)
	ListDonations(ctx context.Context, filter repository.MovementFilter) (*repository.PageResult[model.Donation], error)

	CreatePurchase(ctx context.Context, in PurchaseInput) (*model.Purchase, error)
	CancelPurchase(ctx context.Context, id uint) (*model.Purchase, error)
	GetPurchase(ctx context.Context, id uint) (*model.Purchase, error)
	ListPurchases(ctx context.Context, filter repository.MovementFilter) (*repository.PageResult[model.Purchase], error)

	CreateSale(ctx context.Context, in SaleInput) (*model.Sale, error)
	CancelSale(ctx context.Context, id uint) (*model.Sale, error)
	GetSale(ctx context.Context, id uint) (*model.Sale, error)
	ListSales(ctx context.Context, filter repository.MovementFilter) (*repository.PageResult[model.Sale], error)
}

// MovementRepos groups the repositories the movement ledger writes through.
type MovementRepos struct {
	Materials    repository.MaterialRepository
	Partners     repository.PartnerRepository
	Buyers       repository.BuyerRepository
	Donations    repository.DonationRepository
	Purchases    repository.PurchaseRepository
	Sales        repository.SaleRepository
	Stock        repository.StockRepository
	Transactions repository.TransactionRepository
}

func NewMovementRepos(db *gorm.DB) MovementRepos {
	return MovementRepos{
		Materials:    repository.NewMaterialRepo(db),
		Partners:     repository.NewPartnerRepo(db),
		Buyers:       repository.NewBuyerRepo(db),
		Donations:    repository.NewDonationRepo(db),
		Purchases:    repository.NewPurchaseRepo(db),
		Sales:        repository.NewSaleRepo(db),
		Stock:        repository.NewStockRepo(db),
		Transactions: repository.NewTransactionRepo(db),
	}
}

func (r MovementRepos) withTx(tx *gorm.DB) MovementRepos {
	return MovementRepos{
		Materials:    r.Materials.WithTx(tx),
		Partners:     r.Partners.WithTx(tx),
		Buyers:       r.Buyers.WithTx(tx),
		Donations:    r.Donations.WithTx(tx),
		Purchases:    r.Purchases.WithTx(tx),
		Sales:        r.Sales.WithTx(tx),
		Stock:        r.Stock.WithTx(tx),
		Transactions: r.Transactions.WithTx(tx),
	}
}

type MovementOptions struct {
	Retry RetryPolicy
	// LockMaterialsOnSale locks the sold materials and re-checks stock inside
	// the sale transaction. Off, a concurrent sale can oversell between the
	// stock check and the insert.
	LockMaterialsOnSale bool
	// Location decides the calendar day in movement codes.
	Location *time.Location
	Now      func() time.Time
	Sleep    func(context.Context, time.Duration) error
}

type movementService struct {
	db    *gorm.DB
	repos MovementRepos
	opts  MovementOptions
	log   *zap.Logger
}

func NewMovementService(db *gorm.DB, repos MovementRepos, opts MovementOptions, log *zap.Logger) MovementService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &movementService{
		db:    db,
		repos: repos,
		opts:  opts,
		log:   log.Named("movements"),
	}
}

func (s *movementService) now() time.Time {
	return s.opts.Now()
}

func (s *movementService) findMaterial(ctx context.Context, repos MovementRepos, id uint) (*model.Material, error) {
	m, err := repos.Materials.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "material", id)
	}
	return m, nil
}

func (s *movementService) findPartner(ctx context.Context, repos MovementRepos, id uint) (*model.Partner, error) {
	p, err := repos.Partners.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "partner", id)
	}
	return p, nil
}

// checkQuantity accepts positive quantities that fit the quantity columns.
func checkQuantity(material string, q decimal.Decimal) error {
	if !q.IsPositive() {
		return apperror.NewInvalidQuantity(material, q)
	}
	if !model.FitsScale(q, model.QuantityScale) {
		return apperror.NewQuantityTooPrecise(material, q, model.QuantityScale)
	}
	return nil
}

// checkUnitPrice accepts zero or positive prices in whole cents.
func checkUnitPrice(material string, price decimal.Decimal) error {
	if price.IsNegative() {
		return apperror.NewInvalidAmount(fmt.Sprintf("unit price for '%s' cannot be negative", material))
	}
	if !model.FitsScale(price, model.MoneyScale) {
		return apperror.NewInvalidAmount(fmt.Sprintf("unit price for '%s' accepts at most %d decimal places", material, model.MoneyScale))
	}
	return nil
}
