package handler

import (
	"go-recycling-ledger/internal/model"
	"go-recycling-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CatalogueHandler serves categories, materials, partner types, partners,
// associations and buyers.
type CatalogueHandler struct {
	materials service.MaterialService
	partners  service.PartnerService
	buyers    service.BuyerService
}

func NewCatalogueHandler(materials service.MaterialService, partners service.PartnerService, buyers service.BuyerService) *CatalogueHandler {
	return &CatalogueHandler{materials: materials, partners: partners, buyers: buyers}
}

// Register mounts the catalogue routes on r.
func (h *CatalogueHandler) Register(r fiber.Router) {
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.CreateCategory)
	r.Get("/categories/:id", h.GetCategory)

	r.Get("/partner-types", h.ListPartnerTypes)
	r.Post("/partner-types", h.CreatePartnerType)

	r.Get("/materials", h.ListMaterials)
	r.Post("/materials", h.CreateMaterial)
	r.Get("/materials/:id", h.GetMaterial)
	r.Patch("/materials/:id", h.UpdateMaterial)
	r.Delete("/materials/:id", h.DeleteMaterial)

	r.Get("/partners", h.ListPartners)
	r.Post("/partners", h.CreatePartner)
	r.Get("/partners/:id", h.GetPartner)
	r.Patch("/partners/:id", h.UpdatePartner)
	r.Delete("/partners/:id", h.DeletePartner)

	r.Get("/associations", h.ListAssociations)
	r.Post("/associations", h.CreateAssociation)
	r.Get("/associations/:id", h.GetAssociation)
	r.Patch("/associations/:id", h.UpdateAssociation)
	r.Delete("/associations/:id", h.DeleteAssociation)

	r.Get("/buyers", h.ListBuyers)
	r.Post("/buyers", h.CreateBuyer)
	r.Get("/buyers/:id", h.GetBuyer)
	r.Patch("/buyers/:id", h.UpdateBuyer)
	r.Delete("/buyers/:id", h.DeleteBuyer)
}

// ---- categories ----

func (h *CatalogueHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.materials.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

func (h *CatalogueHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	category, err := h.materials.CreateCategory(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CatalogueHandler) GetCategory(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	category, err := h.materials.GetCategory(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(category)
}

// ---- partner types ----

func (h *CatalogueHandler) ListPartnerTypes(c *fiber.Ctx) error {
	types, err := h.partners.ListTypes(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(types)
}

func (h *CatalogueHandler) CreatePartnerType(c *fiber.Ctx) error {
	var req service.PartnerTypeInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	pt, err := h.partners.CreateType(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(pt)
}

// ---- materials ----

func (h *CatalogueHandler) ListMaterials(c *fiber.Ctx) error {
	res, err := h.materials.ListMaterials(c.UserContext(), parseNameFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *CatalogueHandler) CreateMaterial(c *fiber.Ctx) error {
	var req service.MaterialInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	material, err := h.materials.CreateMaterial(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(material)
}

func (h *CatalogueHandler) GetMaterial(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	material, err := h.materials.GetMaterial(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(material)
}

func (h *CatalogueHandler) UpdateMaterial(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch model.MaterialPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	material, err := h.materials.UpdateMaterial(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(material)
}

func (h *CatalogueHandler) DeleteMaterial(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.materials.DeleteMaterial(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- partners ----

func (h *CatalogueHandler) ListPartners(c *fiber.Ctx) error {
	res, err := h.partners.ListPartners(c.UserContext(), parseNameFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *CatalogueHandler) CreatePartner(c *fiber.Ctx) error {
	var req service.PartnerInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	partner, err := h.partners.CreatePartner(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(partner)
}

func (h *CatalogueHandler) GetPartner(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	partner, err := h.partners.GetPartner(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(partner)
}

func (h *CatalogueHandler) UpdatePartner(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch model.PartnerPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	partner, err := h.partners.UpdatePartner(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(partner)
}

func (h *CatalogueHandler) DeletePartner(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.partners.DeletePartner(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- associations ----

func (h *CatalogueHandler) ListAssociations(c *fiber.Ctx) error {
	res, err := h.partners.ListAssociations(c.UserContext(), parseNameFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *CatalogueHandler) CreateAssociation(c *fiber.Ctx) error {
	var req service.AssociationInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	a, err := h.partners.CreateAssociation(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *CatalogueHandler) GetAssociation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.partners.GetAssociation(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *CatalogueHandler) UpdateAssociation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch model.AssociationPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	a, err := h.partners.UpdateAssociation(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *CatalogueHandler) DeleteAssociation(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.partners.DeleteAssociation(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ---- buyers ----

func (h *CatalogueHandler) ListBuyers(c *fiber.Ctx) error {
	res, err := h.buyers.List(c.UserContext(), parseNameFilter(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *CatalogueHandler) CreateBuyer(c *fiber.Ctx) error {
	var req service.BuyerInput
	if err := parseBody(c, &req); err != nil {
		return err
	}
	buyer, err := h.buyers.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(buyer)
}

func (h *CatalogueHandler) GetBuyer(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	buyer, err := h.buyers.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(buyer)
}

func (h *CatalogueHandler) UpdateBuyer(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch model.BuyerPatch
	if err := parseBody(c, &patch); err != nil {
		return err
	}
	buyer, err := h.buyers.Update(c.UserContext(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(buyer)
}

func (h *CatalogueHandler) DeleteBuyer(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.buyers.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
