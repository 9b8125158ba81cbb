package main

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/closetmatch/closet-sync/pkg/log"
)

func main() {
	logger := log.InitLog(zap.NewAtomicLevelAt(zapcore.InfoLevel))
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
