package controller

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

type CreateWorkstreamRequest struct {
	Name                string                   `json:"name" validate:"required"`
	Description         string                   `json:"description"`
	Enabled             *bool                    `json:"enabled"`
	Cadence             string                   `json:"cadence" validate:"omitempty,oneof=manual daily weekly custom"`
	CronExpression      string                   `json:"cron_expression"`
	TriggerLogic        models.TriggerLogic      `json:"trigger_logic"`
	RecipientConfig     models.RecipientConfig   `json:"recipient_config"`
	SubTemplateRules    []models.SubTemplateRule `json:"sub_template_rules"`
	TemplateID          uint                     `json:"template_id" validate:"required"`
	DedupeWindowDays    *int                     `json:"dedupe_window_days"`
	EscalationThreshold *int                     `json:"escalation_threshold"`
	AutoApprove         bool                     `json:"auto_approve"`
}

type UpdateWorkstreamRequest struct {
	Name                *string                   `json:"name"`
	Description         *string                   `json:"description"`
	Enabled             *bool                     `json:"enabled"`
	Cadence             *string                   `json:"cadence" validate:"omitempty,oneof=manual daily weekly custom"`
	CronExpression      *string                   `json:"cron_expression"`
	TriggerLogic        *models.TriggerLogic      `json:"trigger_logic"`
	RecipientConfig     *models.RecipientConfig   `json:"recipient_config"`
	SubTemplateRules    *[]models.SubTemplateRule `json:"sub_template_rules"`
	TemplateID          *uint                     `json:"template_id"`
	DedupeWindowDays    *int                      `json:"dedupe_window_days"`
	EscalationThreshold *int                      `json:"escalation_threshold"`
	AutoApprove         *bool                     `json:"auto_approve"`
}

func ListWorkstreams(c *fiber.Ctx) error {
	var workstreams []models.Workstream
	if err := config.DB.Preload("Template").Order("id asc").Find(&workstreams).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch workstreams", err)
	}
	return c.JSON(utils.SuccessResponse(workstreams))
}

func GetWorkstream(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var workstream models.Workstream
	if err := config.DB.Preload("Template").First(&workstream, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Workstream not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch workstream", err)
	}
	return c.JSON(utils.SuccessResponse(workstream))
}

func CreateWorkstream(c *fiber.Ctx) error {
	var req CreateWorkstreamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	workstream := models.Workstream{
		Name:             req.Name,
		Description:      req.Description,
		Enabled:          true,
		Cadence:          "manual",
		CronExpression:   req.CronExpression,
		TriggerLogic:     req.TriggerLogic,
		RecipientConfig:  req.RecipientConfig,
		SubTemplateRules: req.SubTemplateRules,
		TemplateID:       req.TemplateID,
		DedupeWindowDays: 7,
		AutoApprove:      req.AutoApprove,
	}
	workstream.EscalationThreshold = 3
	if req.Enabled != nil {
		workstream.Enabled = *req.Enabled
	}
	if req.Cadence != "" {
		workstream.Cadence = req.Cadence
	}
	if req.DedupeWindowDays != nil {
		workstream.DedupeWindowDays = *req.DedupeWindowDays
	}
	if req.EscalationThreshold != nil {
		workstream.EscalationThreshold = *req.EscalationThreshold
	}
	if workstream.TriggerLogic.Logic == "" {
		workstream.TriggerLogic.Logic = "AND"
	}

	if err := workstream.ValidateConfig(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := config.DB.Create(&workstream).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create workstream", err)
	}

	refreshScheduler()
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(workstream))
}

func UpdateWorkstream(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var workstream models.Workstream
	if err := config.DB.First(&workstream, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Workstream not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch workstream", err)
	}

	var req UpdateWorkstreamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if req.Name != nil {
		workstream.Name = *req.Name
	}
	if req.Description != nil {
		workstream.Description = *req.Description
	}
	if req.Enabled != nil {
		workstream.Enabled = *req.Enabled
	}
	if req.Cadence != nil {
		workstream.Cadence = *req.Cadence
	}
	if req.CronExpression != nil {
		workstream.CronExpression = *req.CronExpression
	}
	if req.TriggerLogic != nil {
		workstream.TriggerLogic = *req.TriggerLogic
	}
	if req.RecipientConfig != nil {
		workstream.RecipientConfig = *req.RecipientConfig
	}
	if req.SubTemplateRules != nil {
		workstream.SubTemplateRules = *req.SubTemplateRules
	}
	if req.TemplateID != nil {
		workstream.TemplateID = *req.TemplateID
	}
	if req.DedupeWindowDays != nil {
		workstream.DedupeWindowDays = *req.DedupeWindowDays
	}
	if req.EscalationThreshold != nil {
		workstream.EscalationThreshold = *req.EscalationThreshold
	}
	if req.AutoApprove != nil {
		workstream.AutoApprove = *req.AutoApprove
	}

	if err := workstream.ValidateConfig(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if err := config.DB.Save(&workstream).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update workstream", err)
	}

	refreshScheduler()
	return c.JSON(utils.SuccessResponse(workstream))
}

// DeleteWorkstream removes the workstream along with its batches,
// dedupe ledger and escalations.
func DeleteWorkstream(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var workstream models.Workstream
	if err := config.DB.First(&workstream, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Workstream not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch workstream", err)
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var batchIDs []uint
		if err := tx.Model(&models.SendBatch{}).Where("workstream_id = ?", id).Pluck("id", &batchIDs).Error; err != nil {
			return err
		}
		if len(batchIDs) > 0 {
			if err := tx.Where("batch_id IN ?", batchIDs).Delete(&models.SendEmail{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("workstream_id = ?", id).Delete(&models.SendBatch{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workstream_id = ?", id).Delete(&models.DedupeLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workstream_id = ?", id).Delete(&models.Escalation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&workstream).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete workstream", err)
	}

	refreshScheduler()
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": id}))
}

// RunWorkstream triggers batch generation on demand. When the
// workstream is flagged auto-approve, delivery starts immediately.
func RunWorkstream(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))
	operator := utils.Operator(c)

	result, err := Engine.Run(id, operator, models.TriggerManual)
	if err != nil {
		return respondEngineError(c, err)
	}

	var workstream models.Workstream
	if err := config.DB.First(&workstream, id).Error; err == nil && workstream.AutoApprove {
		stats, err := Workflow.Approve(context.Background(), result.BatchID, nil, nil, operator)
		if err != nil {
			return respondEngineError(c, err)
		}
		return c.JSON(utils.SuccessResponse(fiber.Map{
			"result":        result,
			"auto_approved": true,
			"delivery":      stats,
		}))
	}

	return c.JSON(utils.SuccessResponse(result))
}

// refreshScheduler re-arms cron entries after a workstream change. A
// refresh failure is logged; the workstream change itself stands.
func refreshScheduler() {
	if Scheduler == nil {
		return
	}
	if err := Scheduler.Refresh(); err != nil {
		logrus.WithError(err).Warn("scheduler refresh failed")
	}
}
