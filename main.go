package main

import (
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"

	"github.com/dlabonte15/investment-emailer/config"
	controller "github.com/dlabonte15/investment-emailer/controllers"
	"github.com/dlabonte15/investment-emailer/engine"
	"github.com/dlabonte15/investment-emailer/routes"
	"github.com/dlabonte15/investment-emailer/store"
	"github.com/dlabonte15/investment-emailer/utils"
	"github.com/dlabonte15/investment-emailer/worker"
)

func main() {
	logger := log.New(os.Stdout, "ENGINE: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Sentry (no-op with an empty DSN)
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Dataset store
	investmentStore, err := store.NewInvestmentStore(config.AppConfig.DataDir, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize investment store: %v", err)
	}

	if config.AppConfig.TrackingSecret != "" {
		utils.TrackingTokenSecret = config.AppConfig.TrackingSecret
	}

	// Trigger engine and delivery pipeline
	triggerEngine := engine.NewEngine(config.DB, investmentStore, logger)

	mailer := utils.NewSMTPMailer(utils.SMTPConfig{
		Host:      config.AppConfig.SMTPHost,
		Port:      config.AppConfig.SMTPPort,
		Username:  config.AppConfig.SMTPUsername,
		Password:  config.AppConfig.SMTPPassword,
		FromName:  config.AppConfig.SMTPFromName,
		FromEmail: config.AppConfig.SMTPFromEmail,
	})

	deliverer := engine.NewDeliverer(config.DB, mailer, logger)
	deliverer.SendDelay = time.Duration(config.AppConfig.SendDelayMs) * time.Millisecond
	deliverer.TrackingURL = func(emailID uint) string {
		return utils.GenerateTrackingPixelURL(config.AppConfig.TrackingBaseURL, emailID)
	}

	workflow := engine.NewWorkflow(config.DB, deliverer, logger)

	// Scheduler for unattended cadences
	scheduler := worker.NewScheduler(config.DB, triggerEngine, workflow,
		log.New(os.Stdout, "SCHEDULER: ", log.LstdFlags))
	if err := scheduler.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	controller.Init(triggerEngine, workflow, deliverer, investmentStore, scheduler)

	// Create Fiber app
	app := fiber.New()
	routes.SetupRoutes(app)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
