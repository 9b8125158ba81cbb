package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/closetmatch/closet-sync/internal/store/model"
)

type Scan interface {
	List(ctx context.Context, ownerID string) (model.ScanList, error)
	Create(ctx context.Context, scan model.Scan) (*model.Scan, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Scan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateImageURI(ctx context.Context, id uuid.UUID, expectedURI string, newURI string) (int64, error)
	ImageURIs(ctx context.Context, ownerID string) ([]string, error)
	InitialMigration() error
}

type ScanStore struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// Make sure we conform to Scan interface
var _ Scan = (*ScanStore)(nil)

func NewScan(db *gorm.DB, log logrus.FieldLogger) Scan {
	return &ScanStore{db: db, log: log}
}

func (s *ScanStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Scan{})
}

func (s *ScanStore) List(ctx context.Context, ownerID string) (model.ScanList, error) {
	var scans model.ScanList
	result := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&scans)
	if result.Error != nil {
		return nil, result.Error
	}
	return scans, nil
}

func (s *ScanStore) Create(ctx context.Context, scan model.Scan) (*model.Scan, error) {
	if scan.Status == "" {
		scan.Status = model.ScanStatusPending
	}
	result := s.db.WithContext(ctx).Create(&scan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &scan, nil
}

func (s *ScanStore) Get(ctx context.Context, id uuid.UUID) (*model.Scan, error) {
	scan := model.Scan{ID: id}
	result := s.db.WithContext(ctx).First(&scan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &scan, nil
}

func (s *ScanStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&model.Scan{ID: id})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		s.log.Infof("ERROR: %v", result.Error)
		return result.Error
	}
	return nil
}

func (s *ScanStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	result := s.db.WithContext(ctx).
		Model(&model.Scan{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// UpdateImageURI commits newURI only while the row still carries
// expectedURI and the scan is still saved. Scans are the one record
// class the user can un-save, so the status predicate keeps an upload
// that raced a dismissal from resurrecting the image reference.
func (s *ScanStore) UpdateImageURI(ctx context.Context, id uuid.UUID, expectedURI string, newURI string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Scan{}).
		Where("id = ? AND image_uri = ? AND status = ?", id, expectedURI, model.ScanStatusSaved).
		Update("image_uri", newURI)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *ScanStore) ImageURIs(ctx context.Context, ownerID string) ([]string, error) {
	uris := []string{}
	result := s.db.WithContext(ctx).
		Model(&model.Scan{}).
		Where("owner_id = ? AND image_uri <> ''", ownerID).
		Pluck("image_uri", &uris)
	if result.Error != nil {
		return nil, result.Error
	}
	return uris, nil
}
