package database

import (
	"go-recycling-ledger/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates every ledger table.
// Sale items are migrated after sales so the cascade constraint resolves.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Material{},
		&model.PartnerType{},
		&model.Partner{},
		&model.Association{},
		&model.Buyer{},
		&model.Donation{},
		&model.Purchase{},
		&model.Sale{},
		&model.SaleItem{},
		&model.FinancialTransaction{},
	)
}
