package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"github.com/closetmatch/closet-sync/internal/store/model"
)

const (
	itemsTable = "wardrobe_items"
	scansTable = "scans"
)

// SupabaseStore reaches the hosted backend through PostgREST instead of
// a direct database connection. Mutations request an exact count so
// callers see the same 0-or-1 affected-row contract as the gorm driver.
type SupabaseStore struct {
	item Item
	scan Scan
}

var _ Store = (*SupabaseStore)(nil)

func NewSupabaseStore(url string, key string, log logrus.FieldLogger) (Store, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, errors.Wrap(err, "initializing supabase client")
	}
	return &SupabaseStore{
		item: &supabaseItemStore{client: client, log: log},
		scan: &supabaseScanStore{client: client, log: log},
	}, nil
}

func (s *SupabaseStore) Item() Item {
	return s.item
}

func (s *SupabaseStore) Scan() Scan {
	return s.scan
}

// InitialMigration is a no-op, the hosted schema is owned by the backend
func (s *SupabaseStore) InitialMigration() error {
	return nil
}

func (s *SupabaseStore) Close() error {
	return nil
}

type supabaseItemStore struct {
	client *supa.Client
	log    logrus.FieldLogger
}

var _ Item = (*supabaseItemStore)(nil)

func (s *supabaseItemStore) InitialMigration() error {
	return nil
}

func (s *supabaseItemStore) List(ctx context.Context, ownerID string) (model.WardrobeItemList, error) {
	var items model.WardrobeItemList
	if _, err := s.client.From(itemsTable).
		Select("*", "", false).
		Eq("owner_id", ownerID).
		ExecuteTo(&items); err != nil {
		return nil, errors.Wrap(err, "listing wardrobe items")
	}
	return items, nil
}

func (s *supabaseItemStore) Create(ctx context.Context, item model.WardrobeItem) (*model.WardrobeItem, error) {
	var created []model.WardrobeItem
	if _, err := s.client.From(itemsTable).
		Insert(item, false, "", "representation", "").
		ExecuteTo(&created); err != nil {
		return nil, errors.Wrap(err, "creating wardrobe item")
	}
	if len(created) == 0 {
		return nil, errors.New("created wardrobe item not returned")
	}
	return &created[0], nil
}

func (s *supabaseItemStore) Get(ctx context.Context, id uuid.UUID) (*model.WardrobeItem, error) {
	var items []model.WardrobeItem
	if _, err := s.client.From(itemsTable).
		Select("*", "", false).
		Eq("id", id.String()).
		ExecuteTo(&items); err != nil {
		return nil, errors.Wrap(err, "fetching wardrobe item")
	}
	if len(items) == 0 {
		return nil, ErrRecordNotFound
	}
	return &items[0], nil
}

func (s *supabaseItemStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, _, err := s.client.From(itemsTable).
		Delete("minimal", "").
		Eq("id", id.String()).
		Execute(); err != nil {
		s.log.Infof("ERROR: %v", err)
		return errors.Wrap(err, "deleting wardrobe item")
	}
	return nil
}

func (s *supabaseItemStore) UpdateImageURI(ctx context.Context, id uuid.UUID, expectedURI string, newURI string) (int64, error) {
	_, count, err := s.client.From(itemsTable).
		Update(map[string]interface{}{"image_uri": newURI}, "", "exact").
		Eq("id", id.String()).
		Eq("image_uri", expectedURI).
		Execute()
	if err != nil {
		return 0, errors.Wrap(err, "updating wardrobe item image uri")
	}
	return count, nil
}

func (s *supabaseItemStore) ImageURIs(ctx context.Context, ownerID string) ([]string, error) {
	var rows []struct {
		ImageURI string `json:"image_uri"`
	}
	if _, err := s.client.From(itemsTable).
		Select("image_uri", "", false).
		Eq("owner_id", ownerID).
		Neq("image_uri", "").
		ExecuteTo(&rows); err != nil {
		return nil, errors.Wrap(err, "listing wardrobe item image uris")
	}
	uris := make([]string, 0, len(rows))
	for _, row := range rows {
		uris = append(uris, row.ImageURI)
	}
	return uris, nil
}

type supabaseScanStore struct {
	client *supa.Client
	log    logrus.FieldLogger
}

var _ Scan = (*supabaseScanStore)(nil)

func (s *supabaseScanStore) InitialMigration() error {
	return nil
}

func (s *supabaseScanStore) List(ctx context.Context, ownerID string) (model.ScanList, error) {
	var scans model.ScanList
	if _, err := s.client.From(scansTable).
		Select("*", "", false).
		Eq("owner_id", ownerID).
		ExecuteTo(&scans); err != nil {
		return nil, errors.Wrap(err, "listing scans")
	}
	return scans, nil
}

func (s *supabaseScanStore) Create(ctx context.Context, scan model.Scan) (*model.Scan, error) {
	if scan.Status == "" {
		scan.Status = model.ScanStatusPending
	}
	var created []model.Scan
	if _, err := s.client.From(scansTable).
		Insert(scan, false, "", "representation", "").
		ExecuteTo(&created); err != nil {
		return nil, errors.Wrap(err, "creating scan")
	}
	if len(created) == 0 {
		return nil, errors.New("created scan not returned")
	}
	return &created[0], nil
}

func (s *supabaseScanStore) Get(ctx context.Context, id uuid.UUID) (*model.Scan, error) {
	var scans []model.Scan
	if _, err := s.client.From(scansTable).
		Select("*", "", false).
		Eq("id", id.String()).
		ExecuteTo(&scans); err != nil {
		return nil, errors.Wrap(err, "fetching scan")
	}
	if len(scans) == 0 {
		return nil, ErrRecordNotFound
	}
	return &scans[0], nil
}

func (s *supabaseScanStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, _, err := s.client.From(scansTable).
		Delete("minimal", "").
		Eq("id", id.String()).
		Execute(); err != nil {
		s.log.Infof("ERROR: %v", err)
		return errors.Wrap(err, "deleting scan")
	}
	return nil
}

func (s *supabaseScanStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, count, err := s.client.From(scansTable).
		Update(map[string]interface{}{"status": status}, "", "exact").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return errors.Wrap(err, "updating scan status")
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *supabaseScanStore) UpdateImageURI(ctx context.Context, id uuid.UUID, expectedURI string, newURI string) (int64, error) {
	_, count, err := s.client.From(scansTable).
		Update(map[string]interface{}{"image_uri": newURI}, "", "exact").
		Eq("id", id.String()).
		Eq("image_uri", expectedURI).
		Eq("status", model.ScanStatusSaved).
		Execute()
	if err != nil {
		return 0, errors.Wrap(err, "updating scan image uri")
	}
	return count, nil
}

func (s *supabaseScanStore) ImageURIs(ctx context.Context, ownerID string) ([]string, error) {
	var rows []struct {
		ImageURI string `json:"image_uri"`
	}
	if _, err := s.client.From(scansTable).
		Select("image_uri", "", false).
		Eq("owner_id", ownerID).
		Neq("image_uri", "").
		ExecuteTo(&rows); err != nil {
		return nil, errors.Wrap(err, "listing scan image uris")
	}
	uris := make([]string, 0, len(rows))
	for _, row := range rows {
		uris = append(uris, row.ImageURI)
	}
	return uris, nil
}
