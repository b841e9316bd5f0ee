package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Balance is recomputed from the whole ledger on every read.
type Balance struct {
	Current  decimal.Decimal `json:"current"`
	TotalIn  decimal.Decimal `json:"total_in"`
	TotalOut decimal.Decimal `json:"total_out"`
}

type ManualEntryInput struct {
	Type        model.TransactionType `json:"type" validate:"required,oneof=ENTRADA SAIDA"`
	Amount      decimal.Decimal       `json:"amount"`
	Description string                `json:"description" validate:"required,notblank,max=255"`
	PurchaseID  *uint                 `json:"purchase_id"`
	SaleID      *uint                 `json:"sale_id"`
}

type FinanceService interface {
	Balance(ctx context.Context) (*Balance, error)
	RecordManual(ctx context.Context, in ManualEntryInput) (*model.FinancialTransaction, error)
	ListTransactions(ctx context.Context, page repository.Page) (*repository.PageResult[model.FinancialTransaction], error)
	GetTransaction(ctx context.Context, id uint) (*model.FinancialTransaction, error)
}

type financeService struct {
	txRepo repository.TransactionRepository
	now    func() time.Time
	log    *zap.Logger
}

func NewFinanceService(txRepo repository.TransactionRepository, now func() time.Time, log *zap.Logger) FinanceService {
	if now == nil {
		now = time.Now
	}
	return &financeService{txRepo: txRepo, now: now, log: log.Named("finance")}
}

func (s *financeService) Balance(ctx context.Context) (*Balance, error) {
	return balanceOf(ctx, s.txRepo)
}

func balanceOf(ctx context.Context, txRepo repository.TransactionRepository) (*Balance, error) {
	in, out, err := txRepo.Totals(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return &Balance{Current: in.Sub(out), TotalIn: in, TotalOut: out}, nil
}

// RecordManual appends an operator entry. Purchase and sale links are
// reserved for entries the ledger creates itself.
func (s *financeService) RecordManual(ctx context.Context, in ManualEntryInput) (*model.FinancialTransaction, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	if in.PurchaseID != nil || in.SaleID != nil {
		return nil, apperror.NewValidation("manual transactions cannot reference a purchase or a sale")
	}

	entry, err := newEntry(in.Type, in.Amount, strings.TrimSpace(in.Description), nil, nil, false, actorFrom(ctx), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.txRepo.Create(ctx, entry); err != nil {
		return nil, apperror.Wrap(err)
	}

	s.log.Info("manual transaction recorded",
		zap.Uint("id", entry.ID),
		zap.String("type", string(entry.Type)),
		zap.String("amount", entry.Amount.StringFixed(2)))
	return entry, nil
}

func (s *financeService) ListTransactions(ctx context.Context, page repository.Page) (*repository.PageResult[model.FinancialTransaction], error) {
	res, err := s.txRepo.List(ctx, page)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return res, nil
}

func (s *financeService) GetTransaction(ctx context.Context, id uint) (*model.FinancialTransaction, error) {
	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "transaction", id)
	}
	return tx, nil
}

// newEntry builds a ledger entry after checking the amount and that at most
// one of purchaseID and saleID is set.
func newEntry(t model.TransactionType, amount decimal.Decimal, description string, purchaseID, saleID *uint, automatic bool, actor string, at time.Time) (*model.FinancialTransaction, error) {
	if !t.Valid() {
		return nil, apperror.NewValidation("transaction type must be ENTRADA or SAIDA")
	}
	if !amount.IsPositive() {
		return nil, apperror.NewInvalidAmount("amount must be greater than zero")
	}
	if !model.FitsScale(amount, model.MoneyScale) {
		return nil, apperror.NewInvalidAmount(fmt.Sprintf("amount accepts at most %d decimal places", model.MoneyScale))
	}
	if purchaseID != nil && saleID != nil {
		return nil, apperror.NewValidation("a transaction references a purchase or a sale, never both")
	}
	return &model.FinancialTransaction{
		Type:        t,
		Amount:      amount,
		Description: description,
		OccurredAt:  at.UTC(),
		PurchaseID:  purchaseID,
		SaleID:      saleID,
		Automatic:   automatic,
		CreatedBy:   actor,
	}, nil
}
