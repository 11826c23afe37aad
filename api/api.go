package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/api/handler"
	"github.com/syncwatch/syncwatch/config"
	"github.com/syncwatch/syncwatch/report"
)

type Api struct {
	cfg    *config.Config
	logger *slog.Logger
	app    *fiber.App
}

// New builds the serve-mode API over the reports kept in store.
func New(cfg *config.Config, logger *slog.Logger, store *report.Store) *Api {
	app := fiber.New(fiber.Config{
		AppName:               "syncwatch",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(httpMetrics())
	app.Get("/health", health)
	handler.Register(app, store, logger)

	return &Api{
		cfg:    cfg,
		logger: logger,
		app:    app,
	}
}

// App exposes the underlying fiber app, e.g. for app.Test.
func (a *Api) App() *fiber.App {
	return a.app
}

func (a *Api) Start() error {
	port := a.cfg.GetListenPort()
	a.logger.Info("starting API server", slog.String("addr", fmt.Sprintf("http://localhost:%s", port)))
	return a.app.Listen(":" + port)
}

func (a *Api) Shutdown(ctx context.Context) error {
	return a.app.ShutdownWithContext(ctx)
}

// health handles GET /health
func health(c *fiber.Ctx) error {
	return c.SendString("OK")
}
