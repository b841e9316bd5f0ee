package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/internal/service"
	"go-recycling-ledger/pkg/export"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
	loc     *time.Location
	now     func() time.Time
}

func NewReportHandler(s service.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{service: s, loc: loc, now: time.Now}
}

func (h *ReportHandler) Register(r fiber.Router) {
	r.Get("/reports/summary", h.Summary)
	r.Get("/reports/by-material", h.ByMaterial)
	r.Get("/reports/by-material/export", h.ExportByMaterial)
	r.Get("/reports/by-partner", h.ByPartner)
	r.Get("/reports/by-partner/export", h.ExportByPartner)
}

func (h *ReportHandler) Summary(c *fiber.Ctx) error {
	w, err := parseWindow(c, h.loc)
	if err != nil {
		return err
	}
	summary, err := h.service.Summary(c.UserContext(), w)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *ReportHandler) ByMaterial(c *fiber.Ctx) error {
	w, err := parseWindow(c, h.loc)
	if err != nil {
		return err
	}
	rows, err := h.service.ByMaterial(c.UserContext(), w)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

func (h *ReportHandler) ByPartner(c *fiber.Ctx) error {
	w, err := parseWindow(c, h.loc)
	if err != nil {
		return err
	}
	rows, err := h.service.ByPartner(c.UserContext(), w)
	if err != nil {
		return err
	}
	return c.JSON(rows)
}

func (h *ReportHandler) ExportByMaterial(c *fiber.Ctx) error {
	return h.sendXLSX(c, "relatorio-materiais", h.service.ExportByMaterial)
}

func (h *ReportHandler) ExportByPartner(c *fiber.Ctx) error {
	return h.sendXLSX(c, "relatorio-parceiros", h.service.ExportByPartner)
}

func (h *ReportHandler) sendXLSX(c *fiber.Ctx, name string, render func(context.Context, repository.Window, io.Writer) error) error {
	w, err := parseWindow(c, h.loc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := render(c.UserContext(), w, &buf); err != nil {
		return err
	}

	filename := fmt.Sprintf("%s-%s.xlsx", name, h.now().In(h.loc).Format("20060102"))
	c.Set(fiber.HeaderContentType, export.ContentTypeXLSX)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}
