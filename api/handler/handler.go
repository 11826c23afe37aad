package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/api/handler/common"
	"github.com/syncwatch/syncwatch/api/handler/deployment"
	"github.com/syncwatch/syncwatch/api/handler/status"
	"github.com/syncwatch/syncwatch/report"
)

func Register(router fiber.Router, store *report.Store, logger *slog.Logger) {
	base := common.NewBaseHandler(store, logger)
	handlers := []common.HandlerRegistrar{
		status.NewStatusHandler(base),
		deployment.NewDeploymentHandler(base),
	}

	for _, handler := range handlers {
		handler.Register(router)
	}
}
