package service

import (
	"context"
	"testing"
	"time"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDonation_CreateAndCancel(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{})
	ctx := testCtx()
	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)

	first := f.donate(t, pet.ID, coop.ID, "40")
	second := f.donate(t, pet.ID, coop.ID, "12.5")

	assert.Equal(t, "R-20250925-001", first.Code)
	assert.Equal(t, "R-20250925-002", second.Code)
	assert.Equal(t, model.DonationConfirmed, first.Status)
	assert.Equal(t, "operador@coop.org", first.CreatedBy)
	assertDecimal(t, "52.5", f.stockOf(t, pet.ID))

	cancelled, err := f.movements.CancelDonation(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DonationCancelled, cancelled.Status)
	assertDecimal(t, "12.5", f.stockOf(t, pet.ID))

	t.Run("cancelling twice is a no-op", func(t *testing.T) {
		again, err := f.movements.CancelDonation(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, again.Cancelled())
		assertDecimal(t, "12.5", f.stockOf(t, pet.ID))
	})

	t.Run("cancelled codes still count", func(t *testing.T) {
		third := f.donate(t, pet.ID, coop.ID, "1")
		assert.Equal(t, "R-20250925-003", third.Code)
	})

	t.Run("donations never touch the cash ledger", func(t *testing.T) {
		assert.Zero(t, f.count(t, &model.FinancialTransaction{}))
	})
}

func TestDonation_Rejections(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{})
	ctx := testCtx()
	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)

	_, err := f.movements.CreateDonation(ctx, DonationInput{MaterialID: pet.ID, PartnerID: coop.ID, Quantity: dec("0")})
	assertAppError(t, err, apperror.CodeInvalidQuantity)

	_, err = f.movements.CreateDonation(ctx, DonationInput{MaterialID: pet.ID, PartnerID: coop.ID, Quantity: dec("-3")})
	assertAppError(t, err, apperror.CodeInvalidQuantity)

	_, err = f.movements.CreateDonation(ctx, DonationInput{MaterialID: pet.ID, PartnerID: coop.ID, Quantity: dec("0.0004")})
	assertAppError(t, err, apperror.CodeInvalidQuantity)
	appErr, _ := apperror.As(err)
	assert.Equal(t, model.QuantityScale, appErr.Details["max_decimals"])

	_, err = f.movements.CreateDonation(ctx, DonationInput{MaterialID: 999, PartnerID: coop.ID, Quantity: dec("1")})
	assertAppError(t, err, apperror.CodeNotFound)

	_, err = f.movements.CreateDonation(ctx, DonationInput{MaterialID: pet.ID, PartnerID: 999, Quantity: dec("1")})
	assertAppError(t, err, apperror.CodeNotFound)

	_, err = f.movements.CancelDonation(ctx, 999)
	assertAppError(t, err, apperror.CodeNotFound)

	assert.Zero(t, f.count(t, &model.Donation{}))
}

func TestSale_PlasticScenario(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{LockMaterialsOnSale: true})
	ctx := testCtx()
	plastic := f.material(t, "Plástico")
	coop := f.partner(t, "Coop Norte", model.KindAssociation)
	buyer := f.buyer(t, "Recicla SA")

	f.donate(t, plastic.ID, coop.ID, "100")

	sale, err := f.movements.CreateSale(ctx, SaleInput{
		BuyerID: buyer.ID,
		Items:   []SaleItemInput{{MaterialID: plastic.ID, Quantity: dec("30"), UnitPrice: dec("2.50")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "V-20250925-001", sale.Code)
	assert.True(t, sale.Concluded)
	require.Len(t, sale.Items, 1)
	assertDecimal(t, "75", sale.Total())
	assertDecimal(t, "70", f.stockOf(t, plastic.ID))

	entries, err := f.repos.Transactions.FindBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TxIn, entries[0].Type)
	assertDecimal(t, "75", entries[0].Amount)
	assert.Equal(t, "Recebimento referente à Venda Cód: V-20250925-001", entries[0].Description)
	assert.True(t, entries[0].Automatic)
	assertDecimal(t, "75", f.balance(t).Current)

	t.Run("overselling names the material and both quantities", func(t *testing.T) {
		_, err := f.movements.CreateSale(ctx, SaleInput{
			BuyerID: buyer.ID,
			Items:   []SaleItemInput{{MaterialID: plastic.ID, Quantity: dec("71"), UnitPrice: dec("1")}},
		})
		assertAppError(t, err, apperror.CodeInsufficientStock)
		appErr, _ := apperror.As(err)
		assert.Equal(t, "Plástico", appErr.Details["material"])
		assert.Equal(t, "70", appErr.Details["available"])
		assert.Equal(t, "71", appErr.Details["requested"])
		assert.Contains(t, appErr.Message, "Plástico")

		assert.Equal(t, int64(1), f.count(t, &model.Sale{}))
		assert.Equal(t, int64(1), f.count(t, &model.SaleItem{}))
		assertDecimal(t, "75", f.balance(t).Current)
	})

	t.Run("cancel restores stock and refunds the total", func(t *testing.T) {
		cancelled, err := f.movements.CancelSale(ctx, sale.ID)
		require.NoError(t, err)
		assert.False(t, cancelled.Concluded)
		assertDecimal(t, "100", f.stockOf(t, plastic.ID))

		entries, err := f.repos.Transactions.FindBySale(context.Background(), sale.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		refund := entries[1]
		assert.Equal(t, model.TxOut, refund.Type)
		assertDecimal(t, "75", refund.Amount)
		assert.Equal(t, "Estorno referente ao Cancelamento da Venda Cód: V-20250925-001", refund.Description)
		assertDecimal(t, "0", f.balance(t).Current)

		_, err = f.movements.CancelSale(ctx, sale.ID)
		require.NoError(t, err)
		entries, err = f.repos.Transactions.FindBySale(context.Background(), sale.ID)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("cancelled sales are hidden from the listing", func(t *testing.T) {
		page, err := f.movements.ListSales(ctx, repository.MovementFilter{})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
		assert.Empty(t, page.Items)
	})
}

func TestSale_StockCheckSumsLinesPerMaterial(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{LockMaterialsOnSale: true})
	ctx := testCtx()
	glass := f.material(t, "Vidro")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")
	f.donate(t, glass.ID, coop.ID, "10")

	_, err := f.movements.CreateSale(ctx, SaleInput{
		BuyerID: buyer.ID,
		Items: []SaleItemInput{
			{MaterialID: glass.ID, Quantity: dec("6"), UnitPrice: dec("1")},
			{MaterialID: glass.ID, Quantity: dec("6"), UnitPrice: dec("1")},
		},
	})
	assertAppError(t, err, apperror.CodeInsufficientStock)
	appErr, _ := apperror.As(err)
	assert.Equal(t, "12", appErr.Details["requested"])
	assert.Zero(t, f.count(t, &model.Sale{}))
}

func TestSale_MultipleMaterials(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{LockMaterialsOnSale: true})
	ctx := testCtx()
	pet := f.material(t, "PET")
	paper := f.material(t, "Papelão")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")
	f.donate(t, pet.ID, coop.ID, "50")
	f.donate(t, paper.ID, coop.ID, "20")

	t.Run("a single short line rejects the whole sale", func(t *testing.T) {
		_, err := f.movements.CreateSale(ctx, SaleInput{
			BuyerID: buyer.ID,
			Items: []SaleItemInput{
				{MaterialID: pet.ID, Quantity: dec("10"), UnitPrice: dec("2")},
				{MaterialID: paper.ID, Quantity: dec("25"), UnitPrice: dec("1")},
			},
		})
		assertAppError(t, err, apperror.CodeInsufficientStock)
		appErr, _ := apperror.As(err)
		assert.Equal(t, "Papelão", appErr.Details["material"])
		assertDecimal(t, "50", f.stockOf(t, pet.ID))
	})

	sale, err := f.movements.CreateSale(ctx, SaleInput{
		BuyerID: buyer.ID,
		Items: []SaleItemInput{
			{MaterialID: pet.ID, Quantity: dec("10"), UnitPrice: dec("2")},
			{MaterialID: paper.ID, Quantity: dec("20"), UnitPrice: dec("0.5")},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)
	assertDecimal(t, "30", sale.Total())
	assertDecimal(t, "40", f.stockOf(t, pet.ID))
	assertDecimal(t, "0", f.stockOf(t, paper.ID))
	assertDecimal(t, "30", f.balance(t).Current)
}

func TestSale_Rejections(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{LockMaterialsOnSale: true})
	ctx := testCtx()
	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")
	f.donate(t, pet.ID, coop.ID, "10")

	tests := []struct {
		name string
		in   SaleInput
		code string
	}{
		{"no items", SaleInput{BuyerID: buyer.ID}, apperror.CodeValidation},
		{"unknown buyer", SaleInput{BuyerID: 999, Items: []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("1"), UnitPrice: dec("1")}}}, apperror.CodeNotFound},
		{"unknown material", SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{{MaterialID: 999, Quantity: dec("1"), UnitPrice: dec("1")}}}, apperror.CodeNotFound},
		{"zero quantity", SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("0"), UnitPrice: dec("1")}}}, apperror.CodeInvalidQuantity},
		{"negative price", SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("1"), UnitPrice: dec("-1")}}}, apperror.CodeInvalidAmount},
		{"quantity finer than grams", SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("1.0004"), UnitPrice: dec("100")}}}, apperror.CodeInvalidQuantity},
		{"price finer than cents", SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("1"), UnitPrice: dec("2.505")}}}, apperror.CodeInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.movements.CreateSale(ctx, tt.in)
			assertAppError(t, err, tt.code)
		})
	}
	assert.Zero(t, f.count(t, &model.Sale{}))
	assert.Zero(t, f.count(t, &model.FinancialTransaction{}))

	_, err := f.movements.CancelSale(ctx, 999)
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestSale_FractionalQuantityReversesExactTotal(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{LockMaterialsOnSale: true})
	ctx := testCtx()
	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")
	f.donate(t, pet.ID, coop.ID, "10")

	sale, err := f.movements.CreateSale(ctx, SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{
		{MaterialID: pet.ID, Quantity: dec("1.005"), UnitPrice: dec("0.99")},
		{MaterialID: pet.ID, Quantity: dec("0.333"), UnitPrice: dec("1.01")},
	}})
	require.NoError(t, err)
	assertDecimal(t, "1.33", f.balance(t).Current)

	_, err = f.movements.CancelSale(ctx, sale.ID)
	require.NoError(t, err)

	b := f.balance(t)
	assertDecimal(t, "1.33", b.TotalIn)
	assertDecimal(t, "1.33", b.TotalOut)
	assertDecimal(t, "0", b.Current)
}

func TestSale_ZeroTotalWritesNoCashEntry(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{})
	ctx := testCtx()
	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")
	f.donate(t, pet.ID, coop.ID, "10")

	sale, err := f.movements.CreateSale(ctx, SaleInput{
		BuyerID: buyer.ID,
		Items:   []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("4"), UnitPrice: dec("0")}},
	})
	require.NoError(t, err)
	assertDecimal(t, "6", f.stockOf(t, pet.ID))

	_, err = f.movements.CancelSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Zero(t, f.count(t, &model.FinancialTransaction{}))
}

func TestPurchase_FundsAndCancel(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{})
	ctx := testCtx()
	can := f.material(t, "Alumínio")
	supplier := f.partner(t, "Sucata Sul", model.KindSupplier)
	f.deposit(t, "100")

	t.Run("purchase beyond the balance is rejected", func(t *testing.T) {
		_, err := f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("50"), UnitPrice: dec("3")})
		assertAppError(t, err, apperror.CodeInsufficientFunds)
		appErr, _ := apperror.As(err)
		assert.Equal(t, "150.00", appErr.Details["needed"])
		assert.Equal(t, "100.00", appErr.Details["available"])

		assertDecimal(t, "100", f.balance(t).Current)
		assert.Zero(t, f.count(t, &model.Purchase{}))
		assertDecimal(t, "0", f.stockOf(t, can.ID))
	})

	purchase, err := f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("20"), UnitPrice: dec("2.5")})
	require.NoError(t, err)
	assert.Equal(t, "C-20250925-001", purchase.Code)
	assert.Equal(t, model.PurchaseConcluded, purchase.Status)
	assertDecimal(t, "50", purchase.TotalCost)
	assertDecimal(t, "20", f.stockOf(t, can.ID))
	assertDecimal(t, "50", f.balance(t).Current)

	entries, err := f.repos.Transactions.FindByPurchase(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TxOut, entries[0].Type)
	assert.Equal(t, "Pagamento referente à Compra Cód: C-20250925-001", entries[0].Description)

	t.Run("purchase draining the balance exactly is allowed", func(t *testing.T) {
		p, err := f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("10"), UnitPrice: dec("5")})
		require.NoError(t, err)
		assert.Equal(t, "C-20250925-002", p.Code)
		assertDecimal(t, "0", f.balance(t).Current)

		_, err = f.movements.CancelPurchase(ctx, p.ID)
		require.NoError(t, err)
		assertDecimal(t, "50", f.balance(t).Current)
	})

	cancelled, err := f.movements.CancelPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled())
	assertDecimal(t, "0", f.stockOf(t, can.ID))
	assertDecimal(t, "100", f.balance(t).Current)

	entries, err = f.repos.Transactions.FindByPurchase(context.Background(), purchase.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.TxIn, entries[1].Type)
	assert.Equal(t, "Estorno referente ao Cancelamento da Compra Cód: C-20250925-001", entries[1].Description)

	_, err = f.movements.CancelPurchase(ctx, purchase.ID)
	require.NoError(t, err)
	assertDecimal(t, "100", f.balance(t).Current)
}

func TestPurchase_Rejections(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{})
	ctx := testCtx()
	can := f.material(t, "Alumínio")
	supplier := f.partner(t, "Sucata Sul", model.KindSupplier)

	_, err := f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("0"), UnitPrice: dec("1")})
	assertAppError(t, err, apperror.CodeInvalidQuantity)

	_, err = f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("1"), UnitPrice: dec("-1")})
	assertAppError(t, err, apperror.CodeInvalidAmount)

	_, err = f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("0.0004"), UnitPrice: dec("0")})
	assertAppError(t, err, apperror.CodeInvalidQuantity)

	_, err = f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("1"), UnitPrice: dec("0.001")})
	assertAppError(t, err, apperror.CodeInvalidAmount)

	_, err = f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: 999, Quantity: dec("1"), UnitPrice: dec("1")})
	assertAppError(t, err, apperror.CodeNotFound)
	assert.Zero(t, f.count(t, &model.Purchase{}))

	t.Run("free purchase needs no funds", func(t *testing.T) {
		p, err := f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("3"), UnitPrice: dec("0")})
		require.NoError(t, err)
		assertDecimal(t, "0", p.TotalCost)
		assert.Zero(t, f.count(t, &model.FinancialTransaction{}))
	})
}

func TestMovements_DistinctCodeSequences(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{})
	ctx := testCtx()
	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindSupplier)
	buyer := f.buyer(t, "Recicla SA")
	f.deposit(t, "10")

	d := f.donate(t, pet.ID, coop.ID, "5")
	p, err := f.movements.CreatePurchase(ctx, PurchaseInput{MaterialID: pet.ID, PartnerID: coop.ID, Quantity: dec("1"), UnitPrice: dec("1")})
	require.NoError(t, err)
	s, err := f.movements.CreateSale(ctx, SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("1"), UnitPrice: dec("1")}}})
	require.NoError(t, err)

	assert.Equal(t, "R-20250925-001", d.Code)
	assert.Equal(t, "C-20250925-001", p.Code)
	assert.Equal(t, "V-20250925-001", s.Code)
}

func TestMovements_CodeDayFollowsLocation(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)
	f := newLedgerFixture(t, MovementOptions{
		Location: saoPaulo,
		Now:      func() time.Time { return time.Date(2025, 9, 26, 1, 30, 0, 0, time.UTC) },
	})
	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)

	d := f.donate(t, pet.ID, coop.ID, "1")
	assert.Equal(t, "R-20250925-001", d.Code)
}

// staleCount hands out an outdated code count for the first n calls, the
// way a concurrent writer that committed in between would leave it.
type staleCount struct{ n *int }

func (s staleCount) apply(count int64, err error) (int64, error) {
	if *s.n > 0 {
		*s.n--
		return 0, err
	}
	return count, err
}

type staleSales struct {
	repository.SaleRepository
	staleCount
}

func (r staleSales) WithTx(tx *gorm.DB) repository.SaleRepository {
	return staleSales{SaleRepository: r.SaleRepository.WithTx(tx), staleCount: r.staleCount}
}

func (r staleSales) CountCodes(ctx context.Context, prefix string) (int64, error) {
	return r.apply(r.SaleRepository.CountCodes(ctx, prefix))
}

type staleDonations struct {
	repository.DonationRepository
	staleCount
}

func (r staleDonations) WithTx(tx *gorm.DB) repository.DonationRepository {
	return staleDonations{DonationRepository: r.DonationRepository.WithTx(tx), staleCount: r.staleCount}
}

func (r staleDonations) CountCodes(ctx context.Context, prefix string) (int64, error) {
	return r.apply(r.DonationRepository.CountCodes(ctx, prefix))
}

type stalePurchases struct {
	repository.PurchaseRepository
	staleCount
}

func (r stalePurchases) WithTx(tx *gorm.DB) repository.PurchaseRepository {
	return stalePurchases{PurchaseRepository: r.PurchaseRepository.WithTx(tx), staleCount: r.staleCount}
}

func (r stalePurchases) CountCodes(ctx context.Context, prefix string) (int64, error) {
	return r.apply(r.PurchaseRepository.CountCodes(ctx, prefix))
}

func newStaleSalesFixture(t *testing.T, stale int, policy RetryPolicy) (*ledgerFixture, *model.Material, *model.Buyer) {
	t.Helper()
	db := setupTestDB(t)
	repos := NewMovementRepos(db)
	repos.Sales = staleSales{SaleRepository: repos.Sales, staleCount: staleCount{n: &stale}}
	f := newLedgerFixtureWithRepos(t, db, repos, MovementOptions{Retry: policy, LockMaterialsOnSale: true})

	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")
	f.donate(t, pet.ID, coop.ID, "10")

	taken := &model.Sale{Code: "V-20250925-001", BuyerID: buyer.ID, OccurredAt: testNow}
	require.NoError(t, db.Omit("Items").Create(taken).Error)
	return f, pet, buyer
}

func TestSale_RetriesAfterCodeCollision(t *testing.T) {
	f, pet, buyer := newStaleSalesFixture(t, 1, RetryPolicy{MaxAttempts: 3})

	sale, err := f.movements.CreateSale(testCtx(), SaleInput{
		BuyerID: buyer.ID,
		Items:   []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("2"), UnitPrice: dec("3")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "V-20250925-002", sale.Code)
	assert.Equal(t, 1, f.sleeps)

	assert.Equal(t, int64(1), f.count(t, &model.SaleItem{}))
	assert.Equal(t, int64(1), f.count(t, &model.FinancialTransaction{}))
	assertDecimal(t, "6", f.balance(t).Current)
}

func TestSale_CodeGenerationExhausted(t *testing.T) {
	f, pet, buyer := newStaleSalesFixture(t, 100, RetryPolicy{MaxAttempts: 3})

	_, err := f.movements.CreateSale(testCtx(), SaleInput{
		BuyerID: buyer.ID,
		Items:   []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("2"), UnitPrice: dec("3")}},
	})
	assertAppError(t, err, apperror.CodeCodeGenerationExhausted)
	appErr, _ := apperror.As(err)
	assert.Equal(t, 3, appErr.Details["attempts"])
	assert.Equal(t, 2, f.sleeps)

	assert.Equal(t, int64(1), f.count(t, &model.Sale{}))
	assert.Zero(t, f.count(t, &model.SaleItem{}))
	assert.Zero(t, f.count(t, &model.FinancialTransaction{}))
	assertDecimal(t, "10", f.stockOf(t, pet.ID))
}

// newStaleIntakeFixture takes code 001 for today's donations and purchases
// and makes both repositories report a stale count for the given calls.
func newStaleIntakeFixture(t *testing.T, stale int, policy RetryPolicy) (*ledgerFixture, *model.Material, *model.Partner) {
	t.Helper()
	db := setupTestDB(t)
	repos := NewMovementRepos(db)
	donations, purchases := stale, stale
	repos.Donations = staleDonations{DonationRepository: repos.Donations, staleCount: staleCount{n: &donations}}
	repos.Purchases = stalePurchases{PurchaseRepository: repos.Purchases, staleCount: staleCount{n: &purchases}}
	f := newLedgerFixtureWithRepos(t, db, repos, MovementOptions{Retry: policy})

	can := f.material(t, "Alumínio")
	supplier := f.partner(t, "Sucata Sul", model.KindSupplier)
	f.deposit(t, "100")

	require.NoError(t, db.Create(&model.Donation{
		Code: "R-20250925-001", Quantity: dec("1"), Status: model.DonationConfirmed,
		MaterialID: can.ID, PartnerID: supplier.ID, OccurredAt: testNow,
	}).Error)
	require.NoError(t, db.Create(&model.Purchase{
		Code: "C-20250925-001", Quantity: dec("1"), UnitPrice: dec("0"), TotalCost: dec("0"),
		Status: model.PurchaseConcluded, MaterialID: can.ID, PartnerID: supplier.ID, OccurredAt: testNow,
	}).Error)
	return f, can, supplier
}

func TestDonation_RetriesAfterCodeCollision(t *testing.T) {
	f, can, supplier := newStaleIntakeFixture(t, 1, RetryPolicy{MaxAttempts: 3})

	d, err := f.movements.CreateDonation(testCtx(), DonationInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("4")})
	require.NoError(t, err)
	assert.Equal(t, "R-20250925-002", d.Code)
	assert.Equal(t, 1, f.sleeps)
	assert.Equal(t, int64(2), f.count(t, &model.Donation{}))
}

func TestDonation_CodeGenerationExhausted(t *testing.T) {
	f, can, supplier := newStaleIntakeFixture(t, 100, RetryPolicy{MaxAttempts: 3})

	_, err := f.movements.CreateDonation(testCtx(), DonationInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("4")})
	assertAppError(t, err, apperror.CodeCodeGenerationExhausted)
	assert.Equal(t, 2, f.sleeps)
	assert.Equal(t, int64(1), f.count(t, &model.Donation{}))
	assertDecimal(t, "2", f.stockOf(t, can.ID))
}

func TestPurchase_RetriesAfterCodeCollision(t *testing.T) {
	f, can, supplier := newStaleIntakeFixture(t, 1, RetryPolicy{MaxAttempts: 3})

	p, err := f.movements.CreatePurchase(testCtx(), PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("2"), UnitPrice: dec("1")})
	require.NoError(t, err)
	assert.Equal(t, "C-20250925-002", p.Code)
	assert.Equal(t, 1, f.sleeps)
	assert.Equal(t, int64(2), f.count(t, &model.FinancialTransaction{}))
	assertDecimal(t, "98", f.balance(t).Current)
}

func TestPurchase_CodeGenerationExhausted(t *testing.T) {
	f, can, supplier := newStaleIntakeFixture(t, 100, RetryPolicy{MaxAttempts: 3})

	_, err := f.movements.CreatePurchase(testCtx(), PurchaseInput{MaterialID: can.ID, PartnerID: supplier.ID, Quantity: dec("2"), UnitPrice: dec("1")})
	assertAppError(t, err, apperror.CodeCodeGenerationExhausted)
	appErr, _ := apperror.As(err)
	assert.Equal(t, 3, appErr.Details["attempts"])
	assert.Equal(t, 2, f.sleeps)

	assert.Equal(t, int64(1), f.count(t, &model.Purchase{}))
	assert.Equal(t, int64(1), f.count(t, &model.FinancialTransaction{}))
	assertDecimal(t, "100", f.balance(t).Current)
	assertDecimal(t, "2", f.stockOf(t, can.ID))
}

// racingStock lets a competing sale commit right after the first stock read
// outside the sale transaction.
type racingStock struct {
	repository.StockRepository
	race  func()
	fired bool
}

func (r *racingStock) TotalsByMaterial(ctx context.Context, ids []uint) (map[uint]repository.StockTotals, error) {
	totals, err := r.StockRepository.TotalsByMaterial(ctx, ids)
	if !r.fired {
		r.fired = true
		r.race()
	}
	return totals, err
}

func newRacingFixture(t *testing.T, lock bool) (*ledgerFixture, *model.Material, *model.Buyer) {
	t.Helper()
	db := setupTestDB(t)
	repos := NewMovementRepos(db)
	stock := &racingStock{StockRepository: repos.Stock}
	repos.Stock = stock
	f := newLedgerFixtureWithRepos(t, db, repos, MovementOptions{LockMaterialsOnSale: lock})

	pet := f.material(t, "PET")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")
	f.donate(t, pet.ID, coop.ID, "10")

	stock.fired = false
	stock.race = func() {
		competing := &model.Sale{
			Code:       "V-20250925-001",
			BuyerID:    buyer.ID,
			Concluded:  true,
			OccurredAt: testNow,
			Items:      []model.SaleItem{{MaterialID: pet.ID, Quantity: dec("8"), UnitPrice: dec("1")}},
		}
		require.NoError(t, db.Create(competing).Error)
	}
	return f, pet, buyer
}

func TestSale_LockRechecksStockInsideTransaction(t *testing.T) {
	f, pet, buyer := newRacingFixture(t, true)

	_, err := f.movements.CreateSale(testCtx(), SaleInput{
		BuyerID: buyer.ID,
		Items:   []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("5"), UnitPrice: dec("1")}},
	})
	assertAppError(t, err, apperror.CodeInsufficientStock)
	appErr, _ := apperror.As(err)
	assert.Equal(t, "2", appErr.Details["available"])

	diag, err := f.stock.Diagnostics(context.Background(), pet.ID)
	require.NoError(t, err)
	assertDecimal(t, "2", diag.Raw)
	assert.False(t, diag.Drift)
}

func TestSale_WithoutLockConcurrentSalesCanOversell(t *testing.T) {
	f, pet, buyer := newRacingFixture(t, false)

	sale, err := f.movements.CreateSale(testCtx(), SaleInput{
		BuyerID: buyer.ID,
		Items:   []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("5"), UnitPrice: dec("1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "V-20250925-002", sale.Code)

	diag, err := f.stock.Diagnostics(context.Background(), pet.ID)
	require.NoError(t, err)
	assertDecimal(t, "-3", diag.Raw)
	assertDecimal(t, "0", diag.Stock)
	assert.True(t, diag.Drift)
	assertDecimal(t, "0", f.stockOf(t, pet.ID))
}

func TestMovements_ListFilters(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{})
	ctx := testCtx()
	pet := f.material(t, "PET")
	glass := f.material(t, "Vidro")
	north := f.partner(t, "Coop Norte", model.KindExternalDonor)
	south := f.partner(t, "Coop Sul", model.KindExternalDonor)

	f.donate(t, pet.ID, north.ID, "1")
	f.donate(t, glass.ID, north.ID, "2")
	cancelled := f.donate(t, pet.ID, south.ID, "3")
	_, err := f.movements.CancelDonation(ctx, cancelled.ID)
	require.NoError(t, err)

	all, err := f.movements.ListDonations(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	byMaterial, err := f.movements.ListDonations(ctx, repository.MovementFilter{MaterialID: &pet.ID})
	require.NoError(t, err)
	require.Len(t, byMaterial.Items, 1)
	assert.Equal(t, "R-20250925-001", byMaterial.Items[0].Code)

	bySouth, err := f.movements.ListDonations(ctx, repository.MovementFilter{PartnerID: &south.ID})
	require.NoError(t, err)
	assert.Zero(t, bySouth.Total)

	day := time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC)
	before := day.AddDate(0, 0, -1)
	inWindow, err := f.movements.ListDonations(ctx, repository.MovementFilter{Window: repository.Window{Start: &day, End: &day}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), inWindow.Total)

	outside, err := f.movements.ListDonations(ctx, repository.MovementFilter{Window: repository.Window{End: &before}})
	require.NoError(t, err)
	assert.Zero(t, outside.Total)

	paged, err := f.movements.ListDonations(ctx, repository.MovementFilter{Page: repository.Page{Limit: 1}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), paged.Total)
	assert.Len(t, paged.Items, 1)
}
