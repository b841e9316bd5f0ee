package repository

import (
	"context"
	"sort"
	"time"

	"go-recycling-ledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReportSummary struct {
	TotalReceived      decimal.Decimal `json:"total_received"`
	TotalPurchasedQty  decimal.Decimal `json:"total_purchased_qty"`
	TotalPurchaseSpend decimal.Decimal `json:"total_purchase_spend"`
	TotalSoldQty       decimal.Decimal `json:"total_sold_qty"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	GrossMargin        decimal.Decimal `json:"gross_margin"`
}

type MaterialReportRow struct {
	MaterialID uint            `json:"material_id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	Received   decimal.Decimal `json:"received"`
	Purchased  decimal.Decimal `json:"purchased"`
	Sold       decimal.Decimal `json:"sold"`
	Balance    decimal.Decimal `json:"balance"`
	Revenue    decimal.Decimal `json:"revenue"`
}

type PartnerReportRow struct {
	PartnerID uint              `json:"partner_id"`
	Name      string            `json:"name"`
	TypeName  string            `json:"type_name"`
	Kind      model.PartnerKind `json:"kind"`
	Received  decimal.Decimal   `json:"received"`
	Purchased decimal.Decimal   `json:"purchased"`
	Total     decimal.Decimal   `json:"total"`
}

// StockMovementData is one day of the dashboard chart.
type StockMovementData struct {
	Date     string          `json:"date"`
	Inbound  decimal.Decimal `json:"inbound"`
	Outbound decimal.Decimal `json:"outbound"`
}

type DashboardStats struct {
	TotalMaterials int64 `json:"total_materials"`
	TotalBuyers    int64 `json:"total_buyers"`
	TotalPartners  int64 `json:"total_partners"`
}

type ReportRepository interface {
	Summary(ctx context.Context, w Window) (*ReportSummary, error)
	ByMaterial(ctx context.Context, w Window) ([]MaterialReportRow, error)
	ByPartner(ctx context.Context, w Window) ([]PartnerReportRow, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) donations(ctx context.Context, w Window) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Donation{}).Where("donations.status = ?", model.DonationConfirmed)
	return w.apply(q, "donations.occurred_at")
}

func (r *reportRepo) purchases(ctx context.Context, w Window) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Purchase{}).Where("purchases.status = ?", model.PurchaseConcluded)
	return w.apply(q, "purchases.occurred_at")
}

func (r *reportRepo) saleItems(ctx context.Context, w Window) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.SaleItem{}).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.concluded = ?", true)
	return w.apply(q, "sales.occurred_at")
}

func (r *reportRepo) Summary(ctx context.Context, w Window) (*ReportSummary, error) {
	var s ReportSummary

	// 1. Donations received
	if err := r.donations(ctx, w).
		Select("COALESCE(SUM(donations.quantity), 0)").
		Row().Scan(&s.TotalReceived); err != nil {
		return nil, err
	}

	// 2. Purchased quantity and spend
	if err := r.purchases(ctx, w).
		Select("COALESCE(SUM(purchases.quantity), 0), COALESCE(SUM(purchases.total_cost), 0)").
		Row().Scan(&s.TotalPurchasedQty, &s.TotalPurchaseSpend); err != nil {
		return nil, err
	}

	// 3. Sold quantity and revenue
	if err := r.saleItems(ctx, w).
		Select("COALESCE(SUM(sale_items.quantity), 0), COALESCE(SUM(ROUND(sale_items.quantity * sale_items.unit_price, 2)), 0)").
		Row().Scan(&s.TotalSoldQty, &s.TotalRevenue); err != nil {
		return nil, err
	}

	s.GrossMargin = s.TotalRevenue.Sub(s.TotalPurchaseSpend)
	return &s, nil
}

// ByMaterial lists active materials, with zeros where nothing moved.
// Deactivated materials appear only when they moved in the window.
func (r *reportRepo) ByMaterial(ctx context.Context, w Window) ([]MaterialReportRow, error) {
	var materials []model.Material
	if err := r.db.WithContext(ctx).Order("name").Find(&materials).Error; err != nil {
		return nil, err
	}

	received, err := groupedSums(r.donations(ctx, w).
		Select("donations.material_id, COALESCE(SUM(donations.quantity), 0)").
		Group("donations.material_id"), 1)
	if err != nil {
		return nil, err
	}
	purchased, err := groupedSums(r.purchases(ctx, w).
		Select("purchases.material_id, COALESCE(SUM(purchases.quantity), 0)").
		Group("purchases.material_id"), 1)
	if err != nil {
		return nil, err
	}
	sold, err := groupedSums(r.saleItems(ctx, w).
		Select("sale_items.material_id, COALESCE(SUM(sale_items.quantity), 0), COALESCE(SUM(ROUND(sale_items.quantity * sale_items.unit_price, 2)), 0)").
		Group("sale_items.material_id"), 2)
	if err != nil {
		return nil, err
	}

	rows := make([]MaterialReportRow, 0, len(materials))
	for _, m := range materials {
		if !m.Active && !movedIn(m.ID, received, purchased, sold) {
			continue
		}
		row := MaterialReportRow{
			MaterialID: m.ID,
			Name:       m.Name,
			Unit:       m.Unit,
			Received:   sumAt(received, m.ID, 0),
			Purchased:  sumAt(purchased, m.ID, 0),
			Sold:       sumAt(sold, m.ID, 0),
			Revenue:    sumAt(sold, m.ID, 1),
		}
		if m.Code != nil {
			row.Code = *m.Code
		}
		row.Balance = row.Received.Add(row.Purchased).Sub(row.Sold)
		rows = append(rows, row)
	}
	return rows, nil
}

// ByPartner lists partners with donations or purchases in the window,
// highest combined quantity first.
func (r *reportRepo) ByPartner(ctx context.Context, w Window) ([]PartnerReportRow, error) {
	received, err := groupedSums(r.donations(ctx, w).
		Select("donations.partner_id, COALESCE(SUM(donations.quantity), 0)").
		Group("donations.partner_id"), 1)
	if err != nil {
		return nil, err
	}
	purchased, err := groupedSums(r.purchases(ctx, w).
		Select("purchases.partner_id, COALESCE(SUM(purchases.quantity), 0)").
		Group("purchases.partner_id"), 1)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(received)+len(purchased))
	for id := range received {
		ids = append(ids, id)
	}
	for id := range purchased {
		if _, ok := received[id]; !ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []PartnerReportRow{}, nil
	}

	var partners []model.Partner
	if err := r.db.WithContext(ctx).Preload("PartnerType").Where("id IN ?", ids).Find(&partners).Error; err != nil {
		return nil, err
	}

	rows := make([]PartnerReportRow, 0, len(partners))
	for _, p := range partners {
		row := PartnerReportRow{
			PartnerID: p.ID,
			Name:      p.Name,
			Kind:      p.Kind,
			Received:  sumAt(received, p.ID, 0),
			Purchased: sumAt(purchased, p.ID, 0),
		}
		if p.PartnerType != nil {
			row.TypeName = p.PartnerType.Name
		}
		row.Total = row.Received.Add(row.Purchased)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].Total.Cmp(rows[j].Total); c != 0 {
			return c > 0
		}
		return rows[i].Name < rows[j].Name
	})
	return rows, nil
}

// GetStockMovement aggregates inbound (donations + purchases) and outbound
// (sold) quantities per day between startDate and endDate.
func (r *reportRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	start, end := startDate.UTC(), endDate.UTC()
	db := r.db.WithContext(ctx)

	donated, err := dailySums(db.Model(&model.Donation{}).
		Select("DATE(occurred_at), COALESCE(SUM(quantity), 0)").
		Where("status = ? AND occurred_at BETWEEN ? AND ?", model.DonationConfirmed, start, end).
		Group("DATE(occurred_at)"))
	if err != nil {
		return nil, err
	}
	purchased, err := dailySums(db.Model(&model.Purchase{}).
		Select("DATE(occurred_at), COALESCE(SUM(quantity), 0)").
		Where("status = ? AND occurred_at BETWEEN ? AND ?", model.PurchaseConcluded, start, end).
		Group("DATE(occurred_at)"))
	if err != nil {
		return nil, err
	}
	sold, err := dailySums(db.Model(&model.SaleItem{}).
		Select("DATE(sales.occurred_at), COALESCE(SUM(sale_items.quantity), 0)").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.concluded = ? AND sales.occurred_at BETWEEN ? AND ?", true, start, end).
		Group("DATE(sales.occurred_at)"))
	if err != nil {
		return nil, err
	}

	days := make(map[string]*StockMovementData)
	point := func(day string) *StockMovementData {
		if p, ok := days[day]; ok {
			return p
		}
		p := &StockMovementData{Date: day, Inbound: decimal.Zero, Outbound: decimal.Zero}
		days[day] = p
		return p
	}
	for day, v := range donated {
		p := point(day)
		p.Inbound = p.Inbound.Add(v)
	}
	for day, v := range purchased {
		p := point(day)
		p.Inbound = p.Inbound.Add(v)
	}
	for day, v := range sold {
		p := point(day)
		p.Outbound = p.Outbound.Add(v)
	}

	results := make([]StockMovementData, 0, len(days))
	for _, p := range days {
		results = append(results, *p)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Date < results[j].Date })
	return results, nil
}

func (r *reportRepo) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Material{}).Where("active = ?", true).Count(&stats.TotalMaterials).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Buyer{}).Where("active = ?", true).Count(&stats.TotalBuyers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Partner{}).Count(&stats.TotalPartners).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// groupedSums scans (id, v1..vn) rows.
func groupedSums(q *gorm.DB, n int) (map[uint][]decimal.Decimal, error) {
	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint][]decimal.Decimal)
	for rows.Next() {
		var id uint
		vals := make([]decimal.Decimal, n)
		dest := make([]any, 0, n+1)
		dest = append(dest, &id)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out[id] = vals
	}
	return out, rows.Err()
}

func movedIn(id uint, sums ...map[uint][]decimal.Decimal) bool {
	for _, m := range sums {
		if _, ok := m[id]; ok {
			return true
		}
	}
	return false
}

func sumAt(m map[uint][]decimal.Decimal, id uint, i int) decimal.Decimal {
	if vals, ok := m[id]; ok && i < len(vals) {
		return vals[i]
	}
	return decimal.Zero
}

func dailySums(q *gorm.DB) (map[string]decimal.Decimal, error) {
	rows, err := q.Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var (
			day string
			sum decimal.Decimal
		)
		if err := rows.Scan(&day, &sum); err != nil {
			return nil, err
		}
		// Postgres returns DATE as a timestamp, SQLite as text
		if len(day) > 10 {
			day = day[:10]
		}
		out[day] = out[day].Add(sum)
	}
	return out, rows.Err()
}
