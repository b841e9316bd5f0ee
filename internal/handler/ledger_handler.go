package handler

import (
	"go-recycling-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LedgerHandler exposes stock and cash: the two running balances of the cooperative.
type LedgerHandler struct {
	stock   service.StockService
	finance service.FinanceService
}

func NewLedgerHandler(stock service.StockService, finance service.FinanceService) *LedgerHandler {
	return &LedgerHandler{stock: stock, finance: finance}
}

func (h *LedgerHandler) Register(r fiber.Router) {
	r.Get("/stock", h.StockOverview)
	r.Get("/stock/:id", h.Stock)
	r.Get("/stock/:id/diagnostics", h.StockDiagnostics)

	r.Get("/finance/balance", h.Balance)
	r.Get("/finance/transactions", h.ListTransactions)
	r.Post("/finance/transactions", h.CreateTransaction)
	r.Get("/finance/transactions/:id", h.GetTransaction)
}

func (h *LedgerHandler) StockOverview(c *fiber.Ctx) error {
	res, err := h.stock.Overview(c.UserContext(), parseNameFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *LedgerHandler) Stock(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	stock, err := h.stock.Stock(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"material_id": id, "stock": stock})
}

func (h *LedgerHandler) StockDiagnostics(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	d, err := h.stock.Diagnostics(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *LedgerHandler) Balance(c *fiber.Ctx) error {
	b, err := h.finance.Balance(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (h *LedgerHandler) ListTransactions(c *fiber.Ctx) error {
	res, err := h.finance.ListTransactions(c.UserContext(), parsePage(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *LedgerHandler) CreateTransaction(c *fiber.Ctx) error {
	var req service.ManualEntryInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	tx, err := h.finance.RecordManual(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

func (h *LedgerHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	tx, err := h.finance.GetTransaction(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(tx)
}
