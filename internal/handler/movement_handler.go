package handler

import (
	"time"

	"go-recycling-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type MovementHandler struct {
	service service.MovementService
	loc     *time.Location
}

func NewMovementHandler(s service.MovementService, loc *time.Location) *MovementHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &MovementHandler{service: s, loc: loc}
}

func (h *MovementHandler) Register(r fiber.Router) {
	r.Get("/donations", h.ListDonations)
	r.Post("/donations", h.CreateDonation)
	r.Get("/donations/:id", h.GetDonation)
	r.Post("/donations/:id/cancel", h.CancelDonation)

	r.Get("/purchases", h.ListPurchases)
	r.Post("/purchases", h.CreatePurchase)
	r.Get("/purchases/:id", h.GetPurchase)
	r.Post("/purchases/:id/cancel", h.CancelPurchase)

	r.Get("/sales", h.ListSales)
	r.Post("/sales", h.CreateSale)
	r.Get("/sales/:id", h.GetSale)
	r.Post("/sales/:id/cancel", h.CancelSale)
}

// ---- donations ----

func (h *MovementHandler) ListDonations(c *fiber.Ctx) error {
	filter, err := parseMovementFilter(c, h.loc)
	if err != nil {
		return err
	}
	res, err := h.service.ListDonations(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *MovementHandler) CreateDonation(c *fiber.Ctx) error {
	var req service.DonationInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	donation, err := h.service.CreateDonation(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(donation)
}

func (h *MovementHandler) GetDonation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	donation, err := h.service.GetDonation(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(donation)
}

func (h *MovementHandler) CancelDonation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	donation, err := h.service.CancelDonation(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(donation)
}

// ---- purchases ----

func (h *MovementHandler) ListPurchases(c *fiber.Ctx) error {
	filter, err := parseMovementFilter(c, h.loc)
	if err != nil {
		return err
	}
	res, err := h.service.ListPurchases(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *MovementHandler) CreatePurchase(c *fiber.Ctx) error {
	var req service.PurchaseInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	purchase, err := h.service.CreatePurchase(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(purchase)
}

func (h *MovementHandler) GetPurchase(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	purchase, err := h.service.GetPurchase(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(purchase)
}

func (h *MovementHandler) CancelPurchase(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	purchase, err := h.service.CancelPurchase(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(purchase)
}

// ---- sales ----

func (h *MovementHandler) ListSales(c *fiber.Ctx) error {
	filter, err := parseMovementFilter(c, h.loc)
	if err != nil {
		return err
	}
	res, err := h.service.ListSales(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *MovementHandler) CreateSale(c *fiber.Ctx) error {
	var req service.SaleInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	sale, err := h.service.CreateSale(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sale)
}

func (h *MovementHandler) GetSale(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sale, err := h.service.GetSale(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(sale)
}

func (h *MovementHandler) CancelSale(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sale, err := h.service.CancelSale(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(sale)
}
