package controller

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/engine"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

type TemplateRequest struct {
	Name         string               `json:"name" validate:"required"`
	Subject      string               `json:"subject" validate:"required"`
	Body         string               `json:"body"`
	Signature    string               `json:"signature"`
	TableColumns []models.TableColumn `json:"table_columns"`
}

type PreviewTemplateRequest struct {
	Record models.InvestmentRecord `json:"record"`
}

func ListTemplates(c *fiber.Ctx) error {
	var templates []models.EmailTemplate
	if err := config.DB.Order("id asc").Find(&templates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch templates", err)
	}
	return c.JSON(utils.SuccessResponse(templates))
}

func GetTemplate(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var template models.EmailTemplate
	if err := config.DB.First(&template, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch template", err)
	}
	return c.JSON(utils.SuccessResponse(template))
}

func CreateTemplate(c *fiber.Ctx) error {
	var req TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	template := models.EmailTemplate{
		Name:         req.Name,
		Subject:      req.Subject,
		Body:         req.Body,
		Signature:    req.Signature,
		TableColumns: req.TableColumns,
	}
	if err := config.DB.Create(&template).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create template", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(template))
}

func UpdateTemplate(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var template models.EmailTemplate
	if err := config.DB.First(&template, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch template", err)
	}

	var req TemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	template.Name = req.Name
	template.Subject = req.Subject
	template.Body = req.Body
	template.Signature = req.Signature
	template.TableColumns = req.TableColumns

	if err := config.DB.Save(&template).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update template", err)
	}
	return c.JSON(utils.SuccessResponse(template))
}

// DeleteTemplate refuses to remove a template while a workstream still
// references it.
func DeleteTemplate(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var inUse int64
	if err := config.DB.Model(&models.Workstream{}).Where("template_id = ?", id).Count(&inUse).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check template usage", err)
	}
	if inUse > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Template is in use by a workstream", nil)
	}

	result := config.DB.Delete(&models.EmailTemplate{}, id)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete template", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": id}))
}

// PreviewTemplate renders the template against a sample record, or the
// first row of the loaded dataset when none is supplied.
func PreviewTemplate(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var template models.EmailTemplate
	if err := config.DB.First(&template, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch template", err)
	}

	var req PreviewTemplateRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	record := req.Record
	if record == nil {
		snapshot, err := Store.Snapshot()
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dataset", err)
		}
		if snapshot == nil || len(snapshot.Rows) == 0 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "No sample record available; upload a dataset or supply one", nil)
		}
		record = snapshot.Rows[0]
	}

	settings, err := models.LoadSettings(config.DB)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load settings", err)
	}

	var contact *models.IndustryContact
	if industry := record.Field("primary_industry"); industry != "" {
		var row models.IndustryContact
		if err := config.DB.Where("primary_industry = ?", models.NormalizeIndustry(industry)).First(&row).Error; err == nil {
			contact = &row
		}
	}

	data := engine.BuildTemplateData(record, contact, settings.DefaultSenderName)
	subject, body, warnings := engine.RenderEmail(template, data)

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"subject":   subject,
		"body":      body,
		"html_body": engine.WrapBodyHTML(body),
		"warnings":  warnings,
	}))
}
