package store

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/closetmatch/closet-sync/internal/config"
)

type Store interface {
	Item() Item
	Scan() Scan
	InitialMigration() error
	Close() error
}

// New builds the store selected by configuration: the supabase driver for
// the hosted backend, otherwise a direct gorm connection.
func New(cfg *config.Config, log logrus.FieldLogger) (Store, error) {
	if cfg.Database.Type == "supabase" {
		return NewSupabaseStore(cfg.Database.Supabase.Url, cfg.Database.Supabase.Key, log)
	}
	db, err := InitDB(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(db, log), nil
}

// DataStore is the direct-database driver, used for self-hosted
// deployments and for tests (sqlite dialector).
type DataStore struct {
	item Item
	scan Scan
	db   *gorm.DB
}

func NewStore(db *gorm.DB, log logrus.FieldLogger) Store {
	return &DataStore{
		item: NewItem(db, log),
		scan: NewScan(db, log),
		db:   db,
	}
}

func (s *DataStore) Item() Item {
	return s.item
}

func (s *DataStore) Scan() Scan {
	return s.scan
}

func (s *DataStore) InitialMigration() error {
	if err := s.item.InitialMigration(); err != nil {
		return err
	}
	return s.scan.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
