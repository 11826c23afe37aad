package config

import (
	"fmt"
	"time"

	"github.com/syncwatch/syncwatch/types"
)

// ProbeConfig bounds the two-level fan-out: DeploymentWorkers deployments
// at once, each probing at most Workers sources at once.
type ProbeConfig struct {
	Mode              types.ProbeKind
	ProgressURL       string
	Timeout           time.Duration
	Workers           int
	DeploymentWorkers int
}

func (pc ProbeConfig) GetTimeout() time.Duration {
	return pc.Timeout
}

func (pc ProbeConfig) Validate() error {
	if !pc.Mode.Valid() {
		return types.NewValidationError("PROBE_MODE", fmt.Sprintf("invalid value '%s', must be '%s' or '%s'", pc.Mode, types.ProbeDirect, types.ProbeConsolidated))
	}
	if pc.Mode == types.ProbeConsolidated {
		if err := validateHTTPURL("PROGRESS_URL", pc.ProgressURL); err != nil {
			return err
		}
	}
	if pc.Timeout <= 0 {
		return types.NewValidationError("PROBE_TIMEOUT", "must be positive")
	}
	if pc.Workers < 1 {
		return types.NewValidationError("PROBE_WORKERS", "must be at least 1")
	}
	if pc.Workers > MaxAllowedWorkers {
		return types.NewInvalidValueError("PROBE_WORKERS", fmt.Sprintf("%d", pc.Workers), fmt.Sprintf("must not exceed %d", MaxAllowedWorkers))
	}
	if pc.DeploymentWorkers < 1 {
		return types.NewValidationError("DEPLOYMENT_WORKERS", "must be at least 1")
	}
	if pc.DeploymentWorkers > MaxAllowedWorkers {
		return types.NewInvalidValueError("DEPLOYMENT_WORKERS", fmt.Sprintf("%d", pc.DeploymentWorkers), fmt.Sprintf("must not exceed %d", MaxAllowedWorkers))
	}
	return nil
}
