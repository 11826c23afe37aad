package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/metrics"
	"github.com/syncwatch/syncwatch/types"
)

// httpMetrics records every request under a low-cardinality handler label.
func httpMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m := metrics.GetMetrics().HTTPMetrics()
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		err := c.Next()

		// the error handler has not written the response yet
		status := c.Response().StatusCode()
		if err != nil {
			status = statusCode(err)
		}

		handler := metrics.GetHandlerPattern(c.Path())
		m.RequestsTotal.WithLabelValues(c.Method(), handler, metrics.GetStatusClass(status)).Inc()
		m.RequestDuration.WithLabelValues(c.Method(), handler).Observe(time.Since(start).Seconds())
		return err
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func statusCode(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch types.ErrorTypeOf(err) {
	case types.ErrTypeNotFound:
		return fiber.StatusNotFound
	case types.ErrTypeBadRequest, types.ErrTypeInvalidValue, types.ErrTypeValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler renders handler errors as JSON.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusCode(err)

		var (
			fe      *fiber.Error
			message string
		)
		if errors.As(err, &fe) {
			message = fe.Message
		} else {
			message = types.Describe(err)
		}

		if code >= fiber.StatusInternalServerError && code != fiber.StatusServiceUnavailable {
			metrics.TrackError("api", string(types.ErrorTypeOf(err)))
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(errorResponse{Code: code, Message: message})
	}
}
