package service

import (
	"testing"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampStock(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"10.5", "10.5"},
		{"0", "0"},
		{"-3", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assertDecimal(t, tt.want, ClampStock(dec(tt.raw)))
		})
	}
}

func TestStockService(t *testing.T) {
	f := newLedgerFixture(t, MovementOptions{LockMaterialsOnSale: true})
	ctx := testCtx()
	pet := f.material(t, "PET")
	glass := f.material(t, "Vidro")
	coop := f.partner(t, "Coop Norte", model.KindExternalDonor)
	buyer := f.buyer(t, "Recicla SA")

	f.donate(t, pet.ID, coop.ID, "50")
	_, err := f.movements.CreateSale(ctx, SaleInput{BuyerID: buyer.ID, Items: []SaleItemInput{{MaterialID: pet.ID, Quantity: dec("20"), UnitPrice: dec("1")}}})
	require.NoError(t, err)

	diag, err := f.stock.Diagnostics(ctx, pet.ID)
	require.NoError(t, err)
	assertDecimal(t, "50", diag.Donated)
	assertDecimal(t, "0", diag.Purchased)
	assertDecimal(t, "20", diag.Sold)
	assertDecimal(t, "30", diag.Raw)
	assertDecimal(t, "30", diag.Stock)
	assert.False(t, diag.Drift)

	overview, err := f.stock.Overview(ctx, repository.NameFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.Total)
	require.Len(t, overview.Items, 2)
	assert.Equal(t, "PET", overview.Items[0].Name)
	assertDecimal(t, "30", overview.Items[0].Stock)
	assert.Equal(t, glass.ID, overview.Items[1].ID)
	assertDecimal(t, "0", overview.Items[1].Stock)

	_, err = f.stock.Stock(ctx, 999)
	assertAppError(t, err, apperror.CodeNotFound)
}
