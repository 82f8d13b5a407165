package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/dlabonte15/investment-emailer/engine"
	"github.com/dlabonte15/investment-emailer/store"
	"github.com/dlabonte15/investment-emailer/worker"
)

var (
	Engine    *engine.Engine
	Workflow  *engine.Workflow
	Deliverer *engine.Deliverer
	Store     *store.InvestmentStore
	Scheduler *worker.Scheduler
)

// Init wires the handler package's collaborators at startup.
func Init(eng *engine.Engine, workflow *engine.Workflow, deliverer *engine.Deliverer, st *store.InvestmentStore, sched *worker.Scheduler) {
	Engine = eng
	Workflow = workflow
	Deliverer = deliverer
	Store = st
	Scheduler = sched
}

// respondEngineError maps the engine's typed errors onto HTTP statuses.
// Anything unclassified is a 500.
func respondEngineError(c *fiber.Ctx, err error) error {
	var (
		validationErr   *engine.ValidationError
		notFoundErr     *engine.NotFoundError
		invalidStateErr *engine.InvalidStateError
		noDataErr       *engine.NoDataError
	)
	switch {
	case errors.As(err, &notFoundErr):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &validationErr), errors.As(err, &invalidStateErr), errors.As(err, &noDataErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
