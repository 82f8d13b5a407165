package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	controller "github.com/dlabonte15/investment-emailer/controllers"
	"github.com/dlabonte15/investment-emailer/middleware"
)

// SetupRoutes registers the full HTTP surface: the versioned API plus
// the unauthenticated tracking pixel.
func SetupRoutes(app *fiber.App) {
	routeLogger := log.New(os.Stdout, "ROUTES: ", log.LstdFlags)

	app.Use(middleware.CORS())

	// Open-tracking pixel lives outside the API group: email clients
	// fetch it with no headers beyond the URL itself.
	app.Get("/track/open/:id/:token", controller.TrackOpen)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Workstream routes
	workstreams := api.Group("/workstreams")
	workstreams.Get("/", controller.ListWorkstreams)
	workstreams.Post("/", controller.CreateWorkstream)
	workstreams.Get("/:id", controller.GetWorkstream)
	workstreams.Put("/:id", controller.UpdateWorkstream)
	workstreams.Delete("/:id", controller.DeleteWorkstream)
	workstreams.Post("/:id/run", controller.RunWorkstream)

	// Batch lifecycle routes
	batches := api.Group("/batches")
	batches.Get("/", controller.ListBatches)
	batches.Get("/:id", controller.GetBatch)
	batches.Post("/:id/approve", controller.ApproveBatch)
	batches.Post("/:id/cancel", controller.CancelBatch)
	batches.Post("/:id/test-send", controller.TestSendBatch)
	batches.Post("/:id/retry", controller.RetryBatch)

	// Escalation routes
	escalations := api.Group("/escalations")
	escalations.Get("/", controller.ListEscalations)
	escalations.Post("/:id/resolve", controller.ResolveEscalation)

	// Industry contact routes
	contacts := api.Group("/contacts")
	contacts.Get("/", controller.ListContacts)
	contacts.Post("/", controller.CreateContact)
	contacts.Put("/:id", controller.UpdateContact)
	contacts.Delete("/:id", controller.DeleteContact)

	// Template routes
	templates := api.Group("/templates")
	templates.Get("/", controller.ListTemplates)
	templates.Post("/", controller.CreateTemplate)
	templates.Get("/:id", controller.GetTemplate)
	templates.Put("/:id", controller.UpdateTemplate)
	templates.Delete("/:id", controller.DeleteTemplate)
	templates.Post("/:id/preview", controller.PreviewTemplate)

	// Dataset routes
	investments := api.Group("/investments")
	investments.Get("/", controller.ListInvestments)
	investments.Post("/upload", controller.UploadInvestments)

	// Settings routes
	settings := api.Group("/settings")
	settings.Get("/", controller.GetSettings)
	settings.Put("/", controller.UpdateSettings)
	settings.Delete("/dedupe-logs", controller.ClearDedupeLogs)

	// Scheduler status
	api.Get("/scheduler/status", controller.SchedulerStatus)

	routeLogger.Println("Routes initialized successfully")
}
