package service

import (
	"context"
	"testing"
	"time"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/pkg/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 9, 25, 10, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// setupTestDB opens a private in-memory database. A single connection keeps
// every query on the same database, so nothing may run outside an open
// transaction while it is in progress.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, repository.NewPartnerRepo(db).SeedDefaultTypes(context.Background()))
	return db
}

type ledgerFixture struct {
	db        *gorm.DB
	repos     MovementRepos
	movements MovementService
	materials MaterialService
	partners  PartnerService
	buyers    BuyerService
	stock     StockService
	finance   FinanceService
	reports   ReportService
	sleeps    int
}

func newLedgerFixture(t *testing.T, opts MovementOptions) *ledgerFixture {
	t.Helper()
	db := setupTestDB(t)
	return newLedgerFixtureWithRepos(t, db, NewMovementRepos(db), opts)
}

func newLedgerFixtureWithRepos(t *testing.T, db *gorm.DB, repos MovementRepos, opts MovementOptions) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{db: db, repos: repos}

	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = RetryPolicy{MaxAttempts: 3}
	}
	if opts.Now == nil {
		opts.Now = fixedClock
	}
	if opts.Sleep == nil {
		opts.Sleep = func(context.Context, time.Duration) error {
			f.sleeps++
			return nil
		}
	}

	log := zap.NewNop()
	f.movements = NewMovementService(db, repos, opts, log)
	f.materials = NewMaterialService(db, repos.Materials, repository.NewCategoryRepo(db), log)
	f.partners = NewPartnerService(db, repos.Partners, log)
	f.buyers = NewBuyerService(repos.Buyers, log)
	f.stock = NewStockService(repos.Materials, repos.Stock)
	f.finance = NewFinanceService(repos.Transactions, fixedClock, log)
	f.reports = NewReportService(repository.NewReportRepo(db))
	return f
}

func testCtx() context.Context {
	return WithActor(context.Background(), "operador@coop.org")
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func (f *ledgerFixture) material(t *testing.T, name string) *model.Material {
	t.Helper()
	m, err := f.materials.CreateMaterial(testCtx(), MaterialInput{Name: name})
	require.NoError(t, err)
	return m
}

func (f *ledgerFixture) partner(t *testing.T, name string, kind model.PartnerKind) *model.Partner {
	t.Helper()
	pt, err := f.repos.Partners.FindTypeByKind(context.Background(), kind)
	require.NoError(t, err)
	p, err := f.partners.CreatePartner(testCtx(), PartnerInput{Name: name, PartnerTypeID: pt.ID})
	require.NoError(t, err)
	return p
}

func (f *ledgerFixture) buyer(t *testing.T, name string) *model.Buyer {
	t.Helper()
	b, err := f.buyers.Create(testCtx(), BuyerInput{Name: name})
	require.NoError(t, err)
	return b
}

func (f *ledgerFixture) donate(t *testing.T, materialID, partnerID uint, qty string) *model.Donation {
	t.Helper()
	d, err := f.movements.CreateDonation(testCtx(), DonationInput{MaterialID: materialID, PartnerID: partnerID, Quantity: dec(qty)})
	require.NoError(t, err)
	return d
}

func (f *ledgerFixture) deposit(t *testing.T, amount string) {
	t.Helper()
	_, err := f.finance.RecordManual(testCtx(), ManualEntryInput{Type: model.TxIn, Amount: dec(amount), Description: "Aporte inicial"})
	require.NoError(t, err)
}

func (f *ledgerFixture) stockOf(t *testing.T, materialID uint) decimal.Decimal {
	t.Helper()
	s, err := f.stock.Stock(context.Background(), materialID)
	require.NoError(t, err)
	return s
}

func (f *ledgerFixture) balance(t *testing.T) *Balance {
	t.Helper()
	b, err := f.finance.Balance(context.Background())
	require.NoError(t, err)
	return b
}

func (f *ledgerFixture) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}
