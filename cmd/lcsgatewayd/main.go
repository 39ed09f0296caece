// Command lcsgatewayd runs the LCS lighting-control-bus gateway: it loads
// configuration, wires logging, and hands off to internal/app for the full
// component lifecycle.
package main

import (
	cfgpkg "github.com/lumenbus/lcs-gateway/internal/config"
	"github.com/lumenbus/lcs-gateway/internal/app"
	"github.com/lumenbus/lcs-gateway/internal/logging"

	"go.uber.org/zap"
)

func main() {
	cfg, err := cfgpkg.Load("")
	if err != nil {
		panic(err)
	}

	logger, err := logging.InitLogger(cfg.App, cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err := app.Run(cfg, logger); err != nil {
		logger.Fatal("gateway exited with error", zap.Error(err))
	}
}
