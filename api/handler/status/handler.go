package status

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"

	"github.com/syncwatch/syncwatch/api/handler/common"
)

const statusCacheExpiration = 250 * time.Millisecond

type StatusHandler struct {
	*common.BaseHandler
}

var _ common.HandlerRegistrar = (*StatusHandler)(nil)

func NewStatusHandler(base *common.BaseHandler) *StatusHandler {
	return &StatusHandler{BaseHandler: base}
}

func (h *StatusHandler) Register(router fiber.Router) {
	status := router.Group("/status")

	// bypass the cache while a scan runs so the scanning flag and the
	// freshly stored report show up immediately
	status.Get("/", cache.New(cache.Config{
		Expiration: statusCacheExpiration,
		Next: func(c *fiber.Ctx) bool {
			return h.GetStore().Scanning()
		},
	}), h.GetStatus)
}
