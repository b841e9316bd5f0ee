package repository

import (
	"context"

	"go-recycling-ledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository
	Create(ctx context.Context, tx *model.FinancialTransaction) error
	FindByID(ctx context.Context, id uint) (*model.FinancialTransaction, error)
	List(ctx context.Context, page Page) (*PageResult[model.FinancialTransaction], error)
	Totals(ctx context.Context) (in, out decimal.Decimal, err error)
	FindBySale(ctx context.Context, saleID uint) ([]model.FinancialTransaction, error)
	FindByPurchase(ctx context.Context, purchaseID uint) ([]model.FinancialTransaction, error)
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) WithTx(tx *gorm.DB) TransactionRepository {
	return &transactionRepo{tx}
}

func (r *transactionRepo) Create(ctx context.Context, tx *model.FinancialTransaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepo) FindByID(ctx context.Context, id uint) (*model.FinancialTransaction, error) {
	var tx model.FinancialTransaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

// List returns the ledger newest first.
func (r *transactionRepo) List(ctx context.Context, page Page) (*PageResult[model.FinancialTransaction], error) {
	q := r.db.WithContext(ctx).Model(&model.FinancialTransaction{}).Session(&gorm.Session{})

	result := &PageResult[model.FinancialTransaction]{Items: []model.FinancialTransaction{}}
	if err := q.Count(&result.Total).Error; err != nil {
		return nil, err
	}
	err := page.apply(q.Order("occurred_at DESC, id DESC")).Find(&result.Items).Error
	return result, err
}

// Totals sums ENTRADA and SAIDA over the whole history.
func (r *transactionRepo) Totals(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	in, err := r.sumByType(ctx, model.TxIn)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	out, err := r.sumByType(ctx, model.TxOut)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return in, out, nil
}

func (r *transactionRepo) sumByType(ctx context.Context, t model.TransactionType) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.FinancialTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ?", t).
		Row().
		Scan(&sum)
	return sum, err
}

func (r *transactionRepo) FindBySale(ctx context.Context, saleID uint) ([]model.FinancialTransaction, error) {
	var txs []model.FinancialTransaction
	err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).Order("id").Find(&txs).Error
	return txs, err
}

func (r *transactionRepo) FindByPurchase(ctx context.Context, purchaseID uint) ([]model.FinancialTransaction, error) {
	var txs []model.FinancialTransaction
	err := r.db.WithContext(ctx).Where("purchase_id = ?", purchaseID).Order("id").Find(&txs).Error
	return txs, err
}
