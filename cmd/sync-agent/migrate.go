package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/config"
	"github.com/closetmatch/closet-sync/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the local db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalf("reading configuration: %v", err)
		}

		log := logrus.New()
		if lvl, err := logrus.ParseLevel(cfg.Sync.LogLevel); err == nil {
			log.SetLevel(lvl)
		}

		log.Println("Initializing data store")
		s, err := store.New(cfg, log.WithField("pkg", "store"))
		if err != nil {
			zap.S().Fatalf("initializing data store: %v", err)
		}
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Fatalf("running initial migration: %v", err)
		}
		log.Println("Db migrated")

		return nil
	},
}
