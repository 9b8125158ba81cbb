package store_test

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	st "github.com/closetmatch/closet-sync/internal/store"
	"github.com/closetmatch/closet-sync/internal/store/model"
)

const (
	insertScanStm = "INSERT INTO scans (id, owner_id, status, image_uri) VALUES ('%s', '%s', '%s', '%s');"
)

var _ = Describe("ScanStore", Ordered, func() {
	var (
		s      st.Store
		gormDB *gorm.DB
		tmpDir string
	)

	BeforeAll(func() {
		s, gormDB, tmpDir = newTestStore()
	})

	AfterAll(func() {
		Expect(s.Close()).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	AfterEach(func() {
		gormDB.Exec("DELETE FROM scans;")
	})

	Context("create", func() {
		It("defaults a new scan to pending", func() {
			scan, err := s.Scan().Create(context.TODO(), model.Scan{
				ID:       uuid.New(),
				OwnerID:  "owner-1",
				ImageURI: "/data/images/scan/a.jpg",
			})
			Expect(err).To(BeNil())
			Expect(scan.Status).To(Equal(model.ScanStatusPending))
		})
	})

	Context("update status", func() {
		It("moves a scan to saved", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertScanStm, id, "owner-1", model.ScanStatusPending, "/a.jpg"))
			Expect(tx.Error).To(BeNil())

			Expect(s.Scan().UpdateStatus(context.TODO(), id, model.ScanStatusSaved)).To(Succeed())

			scan, err := s.Scan().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(scan.Status).To(Equal(model.ScanStatusSaved))
		})

		It("returns ErrRecordNotFound for an unknown id", func() {
			err := s.Scan().UpdateStatus(context.TODO(), uuid.New(), model.ScanStatusSaved)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("update image uri", func() {
		It("commits the remote uri for a saved scan", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertScanStm, id, "owner-1", model.ScanStatusSaved, "/data/images/scan/a.jpg"))
			Expect(tx.Error).To(BeNil())

			count, err := s.Scan().UpdateImageURI(context.TODO(), id, "/data/images/scan/a.jpg", "https://cdn.example.com/a.jpg")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})

		It("updates nothing while the scan is still pending", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertScanStm, id, "owner-1", model.ScanStatusPending, "/data/images/scan/a.jpg"))
			Expect(tx.Error).To(BeNil())

			count, err := s.Scan().UpdateImageURI(context.TODO(), id, "/data/images/scan/a.jpg", "https://cdn.example.com/a.jpg")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("updates nothing once the scan was dismissed", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertScanStm, id, "owner-1", model.ScanStatusDismissed, "/data/images/scan/a.jpg"))
			Expect(tx.Error).To(BeNil())

			count, err := s.Scan().UpdateImageURI(context.TODO(), id, "/data/images/scan/a.jpg", "https://cdn.example.com/a.jpg")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))

			scan, err := s.Scan().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(scan.ImageURI).To(Equal("/data/images/scan/a.jpg"))
		})

		It("updates nothing when the image was replaced meanwhile", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertScanStm, id, "owner-1", model.ScanStatusSaved, "/data/images/scan/b.jpg"))
			Expect(tx.Error).To(BeNil())

			count, err := s.Scan().UpdateImageURI(context.TODO(), id, "/data/images/scan/a.jpg", "https://cdn.example.com/a.jpg")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})
	})

	Context("image uris", func() {
		It("returns references regardless of status", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertScanStm, uuid.New(), "owner-1", model.ScanStatusSaved, "/data/images/scan/a.jpg"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertScanStm, uuid.New(), "owner-1", model.ScanStatusDismissed, "/data/images/scan/b.jpg"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertScanStm, uuid.New(), "owner-2", model.ScanStatusSaved, "/data/images/scan/c.jpg"))
			Expect(tx.Error).To(BeNil())

			uris, err := s.Scan().ImageURIs(context.TODO(), "owner-1")
			Expect(err).To(BeNil())
			Expect(uris).To(ConsistOf(
				"/data/images/scan/a.jpg",
				"/data/images/scan/b.jpg",
			))
		})
	})
})
