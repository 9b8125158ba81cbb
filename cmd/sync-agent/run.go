package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/agent"
	"github.com/closetmatch/closet-sync/internal/config"
	"github.com/closetmatch/closet-sync/pkg/log"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalf("reading configuration: %v", err)
		}

		logger := log.InitLog(log.LevelOrInfo(cfg.Sync.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		storeLog := logrus.New()
		if lvl, err := logrus.ParseLevel(cfg.Sync.LogLevel); err == nil {
			storeLog.SetLevel(lvl)
		}

		ctx := context.Background()
		agentInstance, err := agent.New(ctx, cfg, storeLog.WithField("pkg", "store"))
		if err != nil {
			zap.S().Fatalf("initializing agent: %v", err)
		}

		if err := agentInstance.Run(ctx); err != nil {
			zap.S().Fatalf("running sync agent: %v", err)
		}
		return nil
	},
}
