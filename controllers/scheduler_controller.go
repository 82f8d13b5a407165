package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dlabonte15/investment-emailer/utils"
)

// SchedulerStatus reports the registered cron entries and their next
// fire times.
func SchedulerStatus(c *fiber.Ctx) error {
	if Scheduler == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Scheduler is not running", nil)
	}
	return c.JSON(utils.SuccessResponse(Scheduler.Status()))
}
