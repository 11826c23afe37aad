package cmd

import (
	"log/slog"
	"strings"

	"github.com/syncwatch/syncwatch/config"
	"github.com/syncwatch/syncwatch/log"
	"github.com/syncwatch/syncwatch/metrics"
	"github.com/syncwatch/syncwatch/sentry_integration"
	"github.com/syncwatch/syncwatch/types"
)

// setup wires the process-wide concerns shared by scan and serve.
func setup(cfg *config.Config) (*slog.Logger, error) {
	logger := log.NewLogger(cfg)

	metrics.Init(cfg.GetEnvironment())

	if err := sentry_integration.Init(cfg); err != nil {
		return nil, types.NewConfigError("failed to initialize sentry", err)
	}

	if len(cfg.GetAccounts()) == 0 {
		return nil, types.NewValidationError("ACCOUNTS", "at least one account is required")
	}
	if invalid := cfg.GetNetworkConfig().InvalidAccounts(); len(invalid) > 0 {
		logger.Warn("accounts are not valid addresses and will likely list nothing",
			slog.String("accounts", strings.Join(invalid, ",")))
	}

	return logger, nil
}
