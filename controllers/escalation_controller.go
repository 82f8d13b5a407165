package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

type ResolveEscalationRequest struct {
	Notes string `json:"notes"`
}

// ListEscalations returns open cycles that reached their workstream's
// visibility threshold. Resolved history is available with ?resolved=true,
// and ?all=true lists every cycle regardless of threshold.
func ListEscalations(c *fiber.Ctx) error {
	query := config.DB.Model(&models.Escalation{}).
		Joins("JOIN workstreams ON workstreams.id = escalations.workstream_id").
		Order("escalations.last_emailed_at desc")

	if c.Query("all") != "true" {
		query = query.Where("escalations.send_count >= workstreams.escalation_threshold")
	}
	if c.Query("resolved") == "true" {
		query = query.Where("escalations.resolved = ?", true)
	} else {
		query = query.Where("escalations.resolved = ?", false)
	}
	if workstreamID := utils.ParseUint(c.Query("workstream_id")); workstreamID != 0 {
		query = query.Where("escalations.workstream_id = ?", workstreamID)
	}

	var escalations []models.Escalation
	if err := query.Find(&escalations).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch escalations", err)
	}
	return c.JSON(utils.SuccessResponse(escalations))
}

// ResolveEscalation closes a cycle by hand. The next qualifying send
// for the investment starts a fresh cycle at count one.
func ResolveEscalation(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var req ResolveEscalationRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	var escalation models.Escalation
	if err := config.DB.First(&escalation, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Escalation not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch escalation", err)
	}
	if escalation.Resolved {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Escalation is already resolved", nil)
	}

	now := time.Now()
	updates := map[string]any{
		"resolved":    true,
		"resolved_at": now,
		"resolved_by": utils.Operator(c),
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}
	if err := config.DB.Model(&escalation).Updates(updates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve escalation", err)
	}
	return c.JSON(utils.SuccessResponse(escalation))
}
