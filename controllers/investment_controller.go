package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

type UploadInvestmentsRequest struct {
	Rows       []models.InvestmentRecord `json:"rows" validate:"required,min=1"`
	RawColumns []string                  `json:"raw_columns"`
}

// UploadInvestments replaces the working dataset with a new snapshot.
// Rows arrive as already-parsed objects keyed by normalized column name.
func UploadInvestments(c *fiber.Ctx) error {
	var req UploadInvestmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if len(req.Rows) == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Upload contains no rows", nil)
	}

	snapshot, err := Store.Save(req.Rows, req.RawColumns)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save dataset", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"rows":      len(snapshot.Rows),
		"columns":   len(snapshot.RawColumns),
		"parsed_at": snapshot.ParsedAt,
	}))
}

// ListInvestments returns the current snapshot with a staleness warning
// when the data is older than the configured freshness window.
func ListInvestments(c *fiber.Ctx) error {
	snapshot, err := Store.Snapshot()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dataset", err)
	}
	if snapshot == nil {
		return c.JSON(utils.SuccessResponse(fiber.Map{
			"rows":     []models.InvestmentRecord{},
			"warnings": []string{"No dataset has been uploaded yet"},
		}))
	}

	var warnings []string
	if settings, err := models.LoadSettings(config.DB); err == nil && settings.DataFreshnessWarningDays > 0 {
		maxAge := time.Duration(settings.DataFreshnessWarningDays) * 24 * time.Hour
		if time.Since(snapshot.ParsedAt) > maxAge {
			warnings = append(warnings, "Dataset is stale; consider uploading fresh data")
		}
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"rows":        snapshot.Rows,
		"raw_columns": snapshot.RawColumns,
		"parsed_at":   snapshot.ParsedAt,
		"warnings":    warnings,
	}))
}
