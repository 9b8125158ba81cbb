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
	insertItemStm = "INSERT INTO wardrobe_items (id, owner_id, name, image_uri) VALUES ('%s', '%s', '%s', '%s');"
)

var _ = Describe("ItemStore", Ordered, func() {
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
		gormDB.Exec("DELETE FROM wardrobe_items;")
	})

	Context("create", func() {
		It("creates an item and reads it back", func() {
			item, err := s.Item().Create(context.TODO(), model.WardrobeItem{
				ID:       uuid.New(),
				OwnerID:  "owner-1",
				Name:     "linen shirt",
				Category: "tops",
				ImageURI: "/data/images/wardrobe/a.jpg",
			})
			Expect(err).To(BeNil())

			found, err := s.Item().Get(context.TODO(), item.ID)
			Expect(err).To(BeNil())
			Expect(found.Name).To(Equal("linen shirt"))
			Expect(found.ImageURI).To(Equal("/data/images/wardrobe/a.jpg"))
		})
	})

	Context("get", func() {
		It("returns ErrRecordNotFound for an unknown id", func() {
			_, err := s.Item().Get(context.TODO(), uuid.New())
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})
	})

	Context("list", func() {
		It("returns only the owner's items", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertItemStm, uuid.New(), "owner-1", "shirt", "/a.jpg"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertItemStm, uuid.New(), "owner-1", "jeans", "/b.jpg"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertItemStm, uuid.New(), "owner-2", "coat", "/c.jpg"))
			Expect(tx.Error).To(BeNil())

			items, err := s.Item().List(context.TODO(), "owner-1")
			Expect(err).To(BeNil())
			Expect(items).To(HaveLen(2))
		})
	})

	Context("delete", func() {
		It("deletes an item", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertItemStm, id, "owner-1", "shirt", "/a.jpg"))
			Expect(tx.Error).To(BeNil())

			Expect(s.Item().Delete(context.TODO(), id)).To(Succeed())

			_, err := s.Item().Get(context.TODO(), id)
			Expect(err).To(MatchError(st.ErrRecordNotFound))
		})

		It("does not fail for an unknown id", func() {
			Expect(s.Item().Delete(context.TODO(), uuid.New())).To(Succeed())
		})
	})

	Context("update image uri", func() {
		It("commits the remote uri while the expectation holds", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertItemStm, id, "owner-1", "shirt", "/data/images/wardrobe/a.jpg"))
			Expect(tx.Error).To(BeNil())

			count, err := s.Item().UpdateImageURI(context.TODO(), id, "/data/images/wardrobe/a.jpg", "https://cdn.example.com/a.jpg")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))

			item, err := s.Item().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(item.ImageURI).To(Equal("https://cdn.example.com/a.jpg"))
		})

		It("updates nothing when the image was replaced meanwhile", func() {
			id := uuid.New()
			tx := gormDB.Exec(fmt.Sprintf(insertItemStm, id, "owner-1", "shirt", "/data/images/wardrobe/b.jpg"))
			Expect(tx.Error).To(BeNil())

			count, err := s.Item().UpdateImageURI(context.TODO(), id, "/data/images/wardrobe/a.jpg", "https://cdn.example.com/a.jpg")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))

			item, err := s.Item().Get(context.TODO(), id)
			Expect(err).To(BeNil())
			Expect(item.ImageURI).To(Equal("/data/images/wardrobe/b.jpg"))
		})

		It("updates nothing when the record is gone", func() {
			count, err := s.Item().UpdateImageURI(context.TODO(), uuid.New(), "/data/images/wardrobe/a.jpg", "https://cdn.example.com/a.jpg")
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})
	})

	Context("image uris", func() {
		It("returns the owner's non-empty image references", func() {
			tx := gormDB.Exec(fmt.Sprintf(insertItemStm, uuid.New(), "owner-1", "shirt", "/data/images/wardrobe/a.jpg"))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertItemStm, uuid.New(), "owner-1", "jeans", ""))
			Expect(tx.Error).To(BeNil())
			tx = gormDB.Exec(fmt.Sprintf(insertItemStm, uuid.New(), "owner-2", "coat", "/data/images/wardrobe/c.jpg"))
			Expect(tx.Error).To(BeNil())

			uris, err := s.Item().ImageURIs(context.TODO(), "owner-1")
			Expect(err).To(BeNil())
			Expect(uris).To(ConsistOf("/data/images/wardrobe/a.jpg"))
		})
	})
})
