package handler

import (
	"errors"
	"strconv"
	"time"

	"go-recycling-ledger/internal/apperror"
	"go-recycling-ledger/internal/repository"
	"go-recycling-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// ErrorHandler renders AppErrors with their status and hides everything else
// behind a 500. Install it as fiber.Config.ErrorHandler.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		appErr, ok := apperror.As(err)
		if !ok {
			appErr = apperror.NewInternal(err)
		}
		if appErr.HTTPStatus >= fiber.StatusInternalServerError {
			logger.FromContext(c.UserContext(), log).Error("request failed",
				zap.String("code", appErr.Code), zap.Error(appErr.Err))
		}

		body := fiber.Map{"error": appErr.Message, "code": appErr.Code}
		if len(appErr.Details) > 0 {
			body["details"] = appErr.Details
		}
		return c.Status(appErr.HTTPStatus).JSON(body)
	}
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.NewValidation("Invalid ID format")
	}
	return uint(id), nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.NewValidation("Invalid JSON")
	}
	return nil
}

func parsePage(c *fiber.Ctx) repository.Page {
	return repository.Page{
		Offset: c.QueryInt("offset", 0),
		Limit:  c.QueryInt("limit", repository.DefaultPageLimit),
	}
}

func parseNameFilter(c *fiber.Ctx) repository.NameFilter {
	return repository.NameFilter{Page: parsePage(c), Name: c.Query("name")}
}

func optionalUint(c *fiber.Ctx, key string) (*uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, apperror.NewValidation("Invalid " + key)
	}
	id := uint(v)
	return &id, nil
}

func optionalDate(c *fiber.Ctx, key string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return nil, apperror.NewValidation("Invalid " + key + ", expected YYYY-MM-DD")
	}
	return &t, nil
}

// parseWindow reads ?start=YYYY-MM-DD&end=YYYY-MM-DD as calendar days in loc.
func parseWindow(c *fiber.Ctx, loc *time.Location) (repository.Window, error) {
	start, err := optionalDate(c, "start", loc)
	if err != nil {
		return repository.Window{}, err
	}
	end, err := optionalDate(c, "end", loc)
	if err != nil {
		return repository.Window{}, err
	}
	return repository.Window{Start: start, End: end}, nil
}

func parseMovementFilter(c *fiber.Ctx, loc *time.Location) (repository.MovementFilter, error) {
	w, err := parseWindow(c, loc)
	if err != nil {
		return repository.MovementFilter{}, err
	}
	f := repository.MovementFilter{Window: w, Page: parsePage(c)}
	if f.MaterialID, err = optionalUint(c, "material_id"); err != nil {
		return f, err
	}
	if f.PartnerID, err = optionalUint(c, "partner_id"); err != nil {
		return f, err
	}
	if f.BuyerID, err = optionalUint(c, "buyer_id"); err != nil {
		return f, err
	}
	return f, nil
}
