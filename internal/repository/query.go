package repository

import (
	"time"

	"gorm.io/gorm"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

// Page is offset pagination as the listing endpoints expose it.
type Page struct {
	Offset int
	Limit  int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	return q.Offset(offset).Limit(limit)
}

type PageResult[T any] struct {
	Total int64 `json:"total_count"`
	Items []T   `json:"items"`
}

// Window is an optional date range. Both ends are calendar days and End is
// inclusive, so rows are matched with column >= Start and column < End+1day.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) apply(q *gorm.DB, column string) *gorm.DB {
	if w.Start != nil {
		q = q.Where(column+" >= ?", w.Start.UTC())
	}
	if w.End != nil {
		q = q.Where(column+" < ?", w.End.AddDate(0, 0, 1).UTC())
	}
	return q
}

// MovementFilter narrows donation, purchase and sale listings.
// PartnerID is ignored for sales and BuyerID for donations and purchases.
type MovementFilter struct {
	Window
	Page
	MaterialID *uint
	PartnerID  *uint
	BuyerID    *uint
}

type NameFilter struct {
	Page
	Name string
}
