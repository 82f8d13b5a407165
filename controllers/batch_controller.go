package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

type ApproveBatchRequest struct {
	ExcludedEmailIDs   []uint `json:"excluded_email_ids"`
	ReIncludedEmailIDs []uint `json:"re_included_email_ids"`
}

type TestSendRequest struct {
	TestEmail string `json:"test_email" validate:"required,email"`
}

func ListBatches(c *fiber.Ctx) error {
	query := config.DB.Preload("Workstream").Order("id desc")

	if workstreamID := utils.ParseUint(c.Query("workstream_id")); workstreamID != 0 {
		query = query.Where("workstream_id = ?", workstreamID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := query.Model(&models.SendBatch{}).Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count batches", err)
	}

	var batches []models.SendBatch
	if err := query.Offset((page - 1) * limit).Limit(limit).Find(&batches).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch batches", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:  batches,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

func GetBatch(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var batch models.SendBatch
	if err := config.DB.Preload("Emails", func(db *gorm.DB) *gorm.DB {
		return db.Order("send_emails.id asc")
	}).Preload("Workstream").First(&batch, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Batch not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch batch", err)
	}
	return c.JSON(utils.SuccessResponse(batch))
}

func ApproveBatch(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var req ApproveBatchRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	stats, err := Workflow.Approve(c.Context(), id, req.ExcludedEmailIDs, req.ReIncludedEmailIDs, utils.Operator(c))
	if err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(utils.SuccessResponse(stats))
}

func CancelBatch(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	if err := Workflow.Cancel(id, utils.Operator(c)); err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"cancelled": id}))
}

func TestSendBatch(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var req TestSendRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	stats, err := Workflow.TestSend(c.Context(), id, req.TestEmail)
	if err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(utils.SuccessResponse(stats))
}

func RetryBatch(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	stats, err := Deliverer.Retry(c.Context(), id)
	if err != nil {
		return respondEngineError(c, err)
	}
	return c.JSON(utils.SuccessResponse(stats))
}
