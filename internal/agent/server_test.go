package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/closetmatch/closet-sync/internal/agent"
	"github.com/closetmatch/closet-sync/internal/config"
	"github.com/closetmatch/closet-sync/internal/fileio"
	"github.com/closetmatch/closet-sync/internal/kvstore"
	"github.com/closetmatch/closet-sync/internal/lifecycle"
	"github.com/closetmatch/closet-sync/internal/queue"
)

var _ = Describe("Server", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		tmpDir  string
		writer  *fileio.Writer
		p       *queue.Processor
		ts      *httptest.Server
		failing atomic.Bool
	)

	fastSchedule := []time.Duration{5 * time.Millisecond, 10 * time.Millisecond, 15 * time.Millisecond}

	upload := func(_ context.Context, _ *queue.Job) error {
		if failing.Load() {
			return errors.New("object store unavailable")
		}
		return nil
	}

	stage := func(job queue.Job) queue.Job {
		Expect(writer.WriteFile(job.LocalPath, []byte("payload"))).To(Succeed())
		return job
	}

	BeforeEach(func() {
		var err error
		ctx, cancel = context.WithCancel(context.Background())
		tmpDir, err = os.MkdirTemp("", "closet-server-test")
		Expect(err).To(BeNil())

		reader := fileio.NewReader()
		reader.SetRootdir(tmpDir)
		writer = fileio.NewWriter()
		writer.SetRootdir(tmpDir)

		failing.Store(false)
		cfg := config.NewDefault()
		p = queue.NewProcessor(kvstore.NewMemoryStore(), reader, lifecycle.NewManualObserver(), queue.WithBackoffSchedule(fastSchedule))
		ts = httptest.NewServer(agent.NewServer(cfg, p).Handler())
	})

	AfterEach(func() {
		ts.Close()
		p.Close()
		cancel()
		_ = os.RemoveAll(tmpDir)
	})

	It("reports liveness", func() {
		resp, err := http.Get(ts.URL + "/health")
		Expect(err).To(BeNil())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		Expect(strings.TrimSpace(string(body))).To(Equal(`{"status":"ok"}`))
	})

	It("exposes prometheus metrics", func() {
		resp, err := http.Get(ts.URL + "/metrics")
		Expect(err).To(BeNil())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		Expect(string(body)).To(ContainSubstring("go_goroutines"))
	})

	It("reports the queue census for both kinds", func() {
		p.Enqueue(stage(queue.Job{
			Kind:      queue.KindWardrobe,
			ID:        uuid.New(),
			LocalPath: "images/wardrobe/waiting.jpg",
		}))

		resp, err := http.Get(ts.URL + "/api/v1/queue")
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var reply struct {
			Queues map[string]struct {
				Pending int `json:"pending"`
				Failed  int `json:"failed"`
			} `json:"queues"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&reply)).To(Succeed())
		Expect(reply.Queues).To(HaveLen(2))
		Expect(reply.Queues["wardrobe"].Pending).To(Equal(1))
		Expect(reply.Queues["wardrobe"].Failed).To(Equal(0))
		Expect(reply.Queues["scan"].Pending).To(Equal(0))
	})

	It("rejects a malformed retry id", func() {
		resp, err := http.Post(ts.URL+"/api/v1/queue/not-a-uuid/retry", "", nil)
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("returns not found for an unknown retry id", func() {
		resp, err := http.Post(ts.URL+"/api/v1/queue/"+uuid.NewString()+"/retry", "", nil)
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("re-arms an exhausted upload through the retry endpoint", func() {
		failing.Store(true)
		job := stage(queue.Job{
			Kind:      queue.KindWardrobe,
			ID:        uuid.New(),
			LocalPath: "images/wardrobe/exhausted.jpg",
		})
		p.Initialize(ctx, upload)
		p.Enqueue(job)
		Eventually(func() bool { return p.IsFailed(job.ID) }, "2s", "20ms").Should(BeTrue())

		failing.Store(false)
		resp, err := http.Post(ts.URL+"/api/v1/queue/"+job.ID.String()+"/retry", "", nil)
		Expect(err).To(BeNil())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusAccepted))

		Eventually(func() bool { return p.HasPending(job.ID) }, "2s", "20ms").Should(BeFalse())
	})
})
