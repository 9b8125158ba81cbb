package store_test

import (
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/closetmatch/closet-sync/internal/config"
	st "github.com/closetmatch/closet-sync/internal/store"
)

func TestStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Store Suite")
}

// newTestStore opens a sqlite database in a fresh temp dir and runs the
// migrations. The caller removes the dir in AfterAll.
func newTestStore() (st.Store, *gorm.DB, string) {
	tmpDir, err := os.MkdirTemp("", "closet-store-test")
	Expect(err).To(BeNil())

	cfg := config.NewDefault()
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "closet.db"
	cfg.Database.DataDir = tmpDir

	db, err := st.InitDB(cfg)
	Expect(err).To(BeNil())

	s := st.NewStore(db, logrus.New())
	Expect(s).ToNot(BeNil())
	Expect(s.InitialMigration()).To(Succeed())

	return s, db, tmpDir
}
