package controller

import (
	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

type ContactRequest struct {
	PrimaryIndustry string `json:"primary_industry" validate:"required"`
	SelName         string `json:"sel_name"`
	SelEmail        string `json:"sel_email"`
	OpsManagerName  string `json:"ops_manager_name"`
	OpsManagerEmail string `json:"ops_manager_email"`
	ConciergeName   string `json:"concierge_name"`
	ConciergeEmail  string `json:"concierge_email"`
}

func (r *ContactRequest) validateEmails() error {
	for _, addr := range []string{r.SelEmail, r.OpsManagerEmail, r.ConciergeEmail} {
		if addr == "" {
			continue
		}
		if err := checkmail.ValidateFormat(addr); err != nil {
			return err
		}
	}
	return nil
}

func ListContacts(c *fiber.Ctx) error {
	var contacts []models.IndustryContact
	if err := config.DB.Order("primary_industry asc").Find(&contacts).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch contacts", err)
	}
	return c.JSON(utils.SuccessResponse(contacts))
}

func CreateContact(c *fiber.Ctx) error {
	var req ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if err := req.validateEmails(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	contact := models.IndustryContact{
		PrimaryIndustry: models.NormalizeIndustry(req.PrimaryIndustry),
		SelName:         req.SelName,
		SelEmail:        req.SelEmail,
		OpsManagerName:  req.OpsManagerName,
		OpsManagerEmail: req.OpsManagerEmail,
		ConciergeName:   req.ConciergeName,
		ConciergeEmail:  req.ConciergeEmail,
	}
	if err := config.DB.Create(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create contact", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(contact))
}

func UpdateContact(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	var contact models.IndustryContact
	if err := config.DB.First(&contact, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch contact", err)
	}

	var req ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}
	if err := req.validateEmails(); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	contact.PrimaryIndustry = models.NormalizeIndustry(req.PrimaryIndustry)
	contact.SelName = req.SelName
	contact.SelEmail = req.SelEmail
	contact.OpsManagerName = req.OpsManagerName
	contact.OpsManagerEmail = req.OpsManagerEmail
	contact.ConciergeName = req.ConciergeName
	contact.ConciergeEmail = req.ConciergeEmail

	if err := config.DB.Save(&contact).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update contact", err)
	}
	return c.JSON(utils.SuccessResponse(contact))
}

func DeleteContact(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))

	result := config.DB.Delete(&models.IndustryContact{}, id)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete contact", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Contact not found", nil)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": id}))
}
