package common

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/report"
	"github.com/syncwatch/syncwatch/types"
)

type HandlerRegistrar interface {
	Register(router fiber.Router)
}

type BaseHandler struct {
	store  *report.Store
	logger *slog.Logger
}

func NewBaseHandler(store *report.Store, logger *slog.Logger) *BaseHandler {
	return &BaseHandler{
		store:  store,
		logger: logger,
	}
}

func (h *BaseHandler) GetStore() *report.Store { return h.store }

// GetReport returns the latest fleet report, or a 503 error while the first
// scan is still running.
func (h *BaseHandler) GetReport() (*types.FleetReport, error) {
	r, ok := h.store.Latest()
	if !ok {
		h.logger.Debug("report requested before the first scan completed")
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "first scan has not completed yet")
	}
	return r, nil
}
