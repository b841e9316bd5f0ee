package service

import (
	"context"
	"time"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	DefaultMovementDays = 7
	MaxMovementDays     = 365
)

type DashboardStats struct {
	repository.DashboardStats
	Balance decimal.Decimal `json:"balance"`
}

type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

type dashboardService struct {
	reportRepo repository.ReportRepository
	txRepo     repository.TransactionRepository
	now        func() time.Time
}

func NewDashboardService(reportRepo repository.ReportRepository, txRepo repository.TransactionRepository, now func() time.Time) DashboardService {
	if now == nil {
		now = time.Now
	}
	return &dashboardService{reportRepo: reportRepo, txRepo: txRepo, now: now}
}

// GetStockMovement returns the daily inbound/outbound series for the last days.
func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = DefaultMovementDays
	}
	if days > MaxMovementDays {
		days = MaxMovementDays
	}
	endDate := s.now()
	startDate := endDate.AddDate(0, 0, -days)

	data, err := s.reportRepo.GetStockMovement(ctx, startDate, endDate)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return data, nil
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats, err := s.reportRepo.GetDashboardStats(ctx)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	balance, err := balanceOf(ctx, s.txRepo)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{DashboardStats: *stats, Balance: balance.Current}, nil
}
