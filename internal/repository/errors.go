package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Constraint names a unique index. Column is the table.column form SQLite
// reports, since SQLite errors do not carry the index name.
type Constraint struct {
	Name   string
	Column string
}

var (
	DonationCodeConstraint    = Constraint{Name: "idx_donations_code", Column: "donations.code"}
	PurchaseCodeConstraint    = Constraint{Name: "idx_purchases_code", Column: "purchases.code"}
	SaleCodeConstraint        = Constraint{Name: "idx_sales_code", Column: "sales.code"}
	MaterialNameConstraint    = Constraint{Name: "idx_materials_name", Column: "materials.name"}
	CategoryNameConstraint    = Constraint{Name: "idx_categories_name", Column: "categories.name"}
	PartnerTypeNameConstraint = Constraint{Name: "idx_partner_types_name", Column: "partner_types.name"}
	PartnerNameConstraint     = Constraint{Name: "idx_partners_name", Column: "partners.name"}
	AssociationTaxConstraint  = Constraint{Name: "idx_associations_tax_id", Column: "associations.tax_id"}
	BuyerNameConstraint       = Constraint{Name: "idx_buyers_name", Column: "buyers.name"}
	BuyerTaxConstraint        = Constraint{Name: "idx_buyers_tax_id", Column: "buyers.tax_id"}
	UserEmailConstraint       = Constraint{Name: "idx_users_email", Column: "users.email"}
)

// IsUniqueViolation reports whether err violates c. A zero Constraint matches
// any unique violation.
func IsUniqueViolation(err error, c Constraint) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && (c.Name == "" || pgErr.ConstraintName == c.Name)
	}

	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return c.Column == "" || strings.Contains(msg, c.Column)
}
