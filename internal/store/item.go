package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/closetmatch/closet-sync/internal/store/model"
)

type Item interface {
	List(ctx context.Context, ownerID string) (model.WardrobeItemList, error)
	Create(ctx context.Context, item model.WardrobeItem) (*model.WardrobeItem, error)
	Get(ctx context.Context, id uuid.UUID) (*model.WardrobeItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateImageURI(ctx context.Context, id uuid.UUID, expectedURI string, newURI string) (int64, error)
	ImageURIs(ctx context.Context, ownerID string) ([]string, error)
	InitialMigration() error
}

type ItemStore struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// Make sure we conform to Item interface
var _ Item = (*ItemStore)(nil)

func NewItem(db *gorm.DB, log logrus.FieldLogger) Item {
	return &ItemStore{db: db, log: log}
}

func (s *ItemStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.WardrobeItem{})
}

func (s *ItemStore) List(ctx context.Context, ownerID string) (model.WardrobeItemList, error) {
	var items model.WardrobeItemList
	result := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at").Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}

func (s *ItemStore) Create(ctx context.Context, item model.WardrobeItem) (*model.WardrobeItem, error) {
	result := s.db.WithContext(ctx).Create(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &item, nil
}

func (s *ItemStore) Get(ctx context.Context, id uuid.UUID) (*model.WardrobeItem, error) {
	item := model.WardrobeItem{ID: id}
	result := s.db.WithContext(ctx).First(&item)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &item, nil
}

func (s *ItemStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&model.WardrobeItem{ID: id})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		s.log.Infof("ERROR: %v", result.Error)
		return result.Error
	}
	return nil
}

// UpdateImageURI commits newURI only while the row still carries
// expectedURI. A count of 0 means the record was deleted or its image
// replaced after the expectation was captured; callers treat that as
// stale and move on instead of retrying.
func (s *ItemStore) UpdateImageURI(ctx context.Context, id uuid.UUID, expectedURI string, newURI string) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.WardrobeItem{}).
		Where("id = ? AND image_uri = ?", id, expectedURI).
		Update("image_uri", newURI)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ImageURIs returns every non-empty image reference for the owner,
// fetched by the sweep right before it walks the local directory.
func (s *ItemStore) ImageURIs(ctx context.Context, ownerID string) ([]string, error) {
	uris := []string{}
	result := s.db.WithContext(ctx).
		Model(&model.WardrobeItem{}).
		Where("owner_id = ? AND image_uri <> ''", ownerID).
		Pluck("image_uri", &uris)
	if result.Error != nil {
		return nil, result.Error
	}
	return uris, nil
}
