package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DonationStatus string

const (
	DonationConfirmed DonationStatus = "Confirmada"
	DonationCancelled DonationStatus = "Cancelada"
)

type PurchaseStatus string

const (
	PurchaseConcluded PurchaseStatus = "Concluída"
	PurchaseCancelled PurchaseStatus = "Cancelada"
)

// Decimal places kept by the numeric columns.
const (
	QuantityScale int32 = 3
	MoneyScale    int32 = 2
)

// FitsScale reports whether d is stored without rounding in a column with
// the given number of decimal places.
func FitsScale(d decimal.Decimal, scale int32) bool {
	return d.Equal(d.Round(scale))
}

// Code prefixes of the day-scoped movement codes, e.g. V-20250925-001.
const (
	PrefixDonation = "R"
	PrefixPurchase = "C"
	PrefixSale     = "V"
)

// Donation is a no-cost material intake from a partner.
type Donation struct {
	Model
	Code       string          `gorm:"type:varchar(20);uniqueIndex:idx_donations_code;not null" json:"code"`
	Quantity   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	Status     DonationStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	MaterialID uint            `gorm:"not null;index" json:"material_id"`
	Material   *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	PartnerID  uint            `gorm:"not null;index" json:"partner_id"`
	Partner    *Partner        `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	OccurredAt time.Time       `gorm:"not null;index" json:"occurred_at"`
	CreatedBy  string          `gorm:"type:varchar(64)" json:"created_by"`
}

func (d *Donation) Cancelled() bool { return d.Status == DonationCancelled }

// Purchase is a paid material intake. TotalCost is fixed at creation.
type Purchase struct {
	Model
	Code       string          `gorm:"type:varchar(20);uniqueIndex:idx_purchases_code;not null" json:"code"`
	Quantity   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	TotalCost  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_cost"`
	Status     PurchaseStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	MaterialID uint            `gorm:"not null;index" json:"material_id"`
	Material   *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	PartnerID  uint            `gorm:"not null;index" json:"partner_id"`
	Partner    *Partner        `gorm:"foreignKey:PartnerID" json:"partner,omitempty"`
	OccurredAt time.Time       `gorm:"not null;index" json:"occurred_at"`
	CreatedBy  string          `gorm:"type:varchar(64)" json:"created_by"`
}

func (p *Purchase) Cancelled() bool { return p.Status == PurchaseCancelled }

// Sale is a material outflow to a buyer. Concluded=false means cancelled.
type Sale struct {
	Model
	Code       string     `gorm:"type:varchar(20);uniqueIndex:idx_sales_code;not null" json:"code"`
	BuyerID    uint       `gorm:"not null;index" json:"buyer_id"`
	Buyer      *Buyer     `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	Concluded  bool       `gorm:"not null;index" json:"concluded"`
	OccurredAt time.Time  `gorm:"not null;index" json:"occurred_at"`
	CreatedBy  string     `gorm:"type:varchar(64)" json:"created_by"`
	Items      []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
}

// Total is the sum of the rounded line subtotals.
func (s *Sale) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

type SaleItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SaleID     uint            `gorm:"not null;index" json:"sale_id"`
	MaterialID uint            `gorm:"not null;index" json:"material_id"`
	Material   *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Quantity   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
}

// Subtotal is rounded to cents, as reports and cash entries record it.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice).Round(MoneyScale)
}
