package deployment

import (
	"github.com/gofiber/fiber/v2"

	"github.com/syncwatch/syncwatch/api/handler/common"
	"github.com/syncwatch/syncwatch/types"
)

// GetFleetReport handles GET /report
func (h *DeploymentHandler) GetFleetReport(c *fiber.Ctx) error {
	r, err := h.GetReport()
	if err != nil {
		return err
	}
	return c.JSON(r)
}

// GetTotals handles GET /report/totals
func (h *DeploymentHandler) GetTotals(c *fiber.Ctx) error {
	r, err := h.GetReport()
	if err != nil {
		return err
	}
	return c.JSON(r.Totals())
}

// GetNeedingAttention handles GET /deployments/attention
//
// latest=true keeps only the newest version of each subgraph.
func (h *DeploymentHandler) GetNeedingAttention(c *fiber.Ctx) error {
	latestOnly, err := common.GetBoolQuery(c, "latest")
	if err != nil {
		return err
	}
	r, err := h.GetReport()
	if err != nil {
		return err
	}

	deployments := make([]types.DeploymentSummary, 0)
	for _, s := range r.NeedsAttention() {
		if latestOnly && !s.Latest {
			continue
		}
		deployments = append(deployments, s)
	}

	return c.JSON(DeploymentsResponse{
		RunID:       r.RunID,
		Deployments: deployments,
		Count:       len(deployments),
	})
}

// GetDeployment handles GET /deployments/:id
func (h *DeploymentHandler) GetDeployment(c *fiber.Ctx) error {
	id, err := common.GetDeploymentIDParam(c)
	if err != nil {
		return err
	}
	r, err := h.GetReport()
	if err != nil {
		return err
	}
	s, err := r.Find(id)
	if err != nil {
		return err
	}
	return c.JSON(s)
}
