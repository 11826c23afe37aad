package deployment

import (
	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/api/handler/common"
)

type DeploymentHandler struct {
	*common.BaseHandler
}

var _ common.HandlerRegistrar = (*DeploymentHandler)(nil)

func NewDeploymentHandler(base *common.BaseHandler) *DeploymentHandler {
	return &DeploymentHandler{BaseHandler: base}
}

func (h *DeploymentHandler) Register(router fiber.Router) {
	report := router.Group("/report")
	report.Get("/", h.GetFleetReport)
	report.Get("/totals", h.GetTotals)

	deployments := router.Group("/deployments")
	// static route first so it is not captured by :id
	deployments.Get("/attention", h.GetNeedingAttention)
	deployments.Get("/:id", h.GetDeployment)
}
