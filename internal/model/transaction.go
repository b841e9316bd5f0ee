package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxIn  TransactionType = "ENTRADA"
	TxOut TransactionType = "SAIDA"
)

func (t TransactionType) Valid() bool {
	return t == TxIn || t == TxOut
}

// FinancialTransaction is one append-only cash ledger entry.
// System entries reference exactly one purchase or sale; manual entries none.
type FinancialTransaction struct {
	Model
	Type        TransactionType `gorm:"type:varchar(10);not null;index" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description string          `gorm:"type:varchar(255);not null" json:"description"`
	OccurredAt  time.Time       `gorm:"not null;index" json:"occurred_at"`
	PurchaseID  *uint           `gorm:"index" json:"purchase_id,omitempty"`
	SaleID      *uint           `gorm:"index" json:"sale_id,omitempty"`
	Automatic   bool            `gorm:"not null" json:"automatic"`
	CreatedBy   string          `gorm:"type:varchar(64)" json:"created_by"`
}
