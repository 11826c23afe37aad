package deployment

import "github.com/syncwatch/syncwatch/types"

type DeploymentsResponse struct {
	RunID       string                    `json:"run_id"`
	Deployments []types.DeploymentSummary `json:"deployments"`
	Count       int                       `json:"count"`
}
