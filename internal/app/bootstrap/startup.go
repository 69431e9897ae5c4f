// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It wires
// the shared services and starts the refresh session cleanup worker.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	s, err := buildServices(appCfg, coreCfg.Env == "prod", deps.MongoDatabase, nil, logger)
	if err != nil {
		logger.Error("service wiring failed", zap.Error(err))
		return err
	}
	*deps.Services = *s
	deps.Services.Cleanup.Start()
	return nil
}
