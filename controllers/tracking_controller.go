package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/config"
	"github.com/dlabonte15/investment-emailer/models"
	"github.com/dlabonte15/investment-emailer/utils"
)

// transparentGIF is a 1x1 transparent pixel.
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackOpen serves the open-tracking pixel and records the open. It
// always returns the pixel, even on a bad token, so broken tracking
// never renders as a broken image in the recipient's client.
func TrackOpen(c *fiber.Ctx) error {
	id := utils.ParseUint(c.Params("id"))
	token := c.Params("token")

	if id != 0 && token == utils.TrackingToken(id) {
		now := time.Now()
		updates := map[string]any{
			"open_count": gorm.Expr("open_count + 1"),
		}

		var email models.SendEmail
		if err := config.DB.Select("id", "opened_at").First(&email, id).Error; err == nil {
			if email.OpenedAt == nil {
				updates["opened_at"] = now
			}
			config.DB.Model(&models.SendEmail{}).Where("id = ?", id).Updates(updates)
		}
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	return c.Send(transparentGIF)
}
