package status

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/config"
)

// GetStatus handles GET /status
func (h *StatusHandler) GetStatus(c *fiber.Ctx) error {
	resp := &StatusResponse{
		Version:    config.Version,
		CommitHash: config.CommitHash,
		Scanning:   h.GetStore().Scanning(),
	}

	if r, ok := h.GetStore().Latest(); ok {
		resp.LastScan = &ScanSummary{
			RunID:       r.RunID,
			FinishedAt:  r.StartedAt.Add(r.Duration).UTC().Format(time.RFC3339),
			Duration:    r.Duration.Seconds(),
			Deployments: len(r.Summaries),
			Omitted:     len(r.Omitted),
		}
	}

	return c.JSON(resp)
}
