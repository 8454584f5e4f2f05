package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap-backed logr.Logger that writes JSON to stderr. Stdout
// stays free for command output and the language server transport.
func New(debug bool, buildVersion string) (logr.Logger, func(), error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stderr"}
	zapCfg.ErrorOutputPaths = []string{"stderr"}
	if debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	zl, err := zapCfg.Build()
	if err != nil {
		return logr.Discard(), func() {}, err
	}

	logger := zapr.NewLogger(zl)
	if buildVersion != "" {
		logger = logger.WithValues("serviceBuild", buildVersion)
	}
	return logger, func() { _ = zl.Sync() }, nil
}
