package controller

import (
	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

type UpdateSettingsRequest struct {
	DefaultSenderName        *string `json:"default_sender_name"`
	DefaultSenderEmail       *string `json:"default_sender_email"`
	GlobalCcEmails           *string `json:"global_cc_emails"`
	Timezone                 *string `json:"timezone"`
	EnableOpenTracking       *bool   `json:"enable_open_tracking"`
	DefaultDedupeWindowDays  *int    `json:"default_dedupe_window_days"`
	DefaultEscalationThresh  *int    `json:"default_escalation_threshold"`
	DataFreshnessWarningDays *int    `json:"data_freshness_warning_days"`
}

func GetSettings(c *fiber.Ctx) error {
	settings, err := models.LoadSettings(config.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", err)
	}
	return c.JSON(utils.SuccessResponse(settings))
}

func UpdateSettings(c *fiber.Ctx) error {
	settings, err := models.LoadSettings(config.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", err)
	}

	var req UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if req.DefaultSenderEmail != nil && *req.DefaultSenderEmail != "" {
		if err := checkmail.ValidateFormat(*req.DefaultSenderEmail); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid sender email", err)
		}
	}

	if req.DefaultSenderName != nil {
		settings.DefaultSenderName = *req.DefaultSenderName
	}
	if req.DefaultSenderEmail != nil {
		settings.DefaultSenderEmail = *req.DefaultSenderEmail
	}
	if req.GlobalCcEmails != nil {
		settings.GlobalCcEmails = *req.GlobalCcEmails
	}
	if req.Timezone != nil {
		settings.Timezone = *req.Timezone
	}
	if req.EnableOpenTracking != nil {
		settings.EnableOpenTracking = *req.EnableOpenTracking
	}
	if req.DefaultDedupeWindowDays != nil {
		settings.DefaultDedupeWindowDays = *req.DefaultDedupeWindowDays
	}
	if req.DefaultEscalationThresh != nil {
		settings.DefaultEscalationThresh = *req.DefaultEscalationThresh
	}
	if req.DataFreshnessWarningDays != nil {
		settings.DataFreshnessWarningDays = *req.DataFreshnessWarningDays
	}

	if err := config.DB.Save(settings).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update settings", err)
	}
	return c.JSON(utils.SuccessResponse(settings))
}

// ClearDedupeLogs wipes the dedupe ledger, optionally for one workstream.
// The next run of an affected workstream regenerates everything fresh.
func ClearDedupeLogs(c *fiber.Ctx) error {
	query := config.DB.Where("1 = 1")
	if workstreamID := utils.ParseUint(c.Query("workstream_id")); workstreamID != 0 {
		query = config.DB.Where("workstream_id = ?", workstreamID)
	}

	result := query.Delete(&models.DedupeLog{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to clear dedupe logs", result.Error)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"cleared": result.RowsAffected}))
}
