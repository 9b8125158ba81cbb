package agent

import (
	"context"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/config"
	"github.com/closetmatch/closet-sync/internal/events"
	"github.com/closetmatch/closet-sync/internal/fileio"
	"github.com/closetmatch/closet-sync/internal/kvstore"
	"github.com/closetmatch/closet-sync/internal/lifecycle"
	"github.com/closetmatch/closet-sync/internal/objstore"
	"github.com/closetmatch/closet-sync/internal/queue"
	"github.com/closetmatch/closet-sync/internal/recents"
	"github.com/closetmatch/closet-sync/internal/store"
	"github.com/closetmatch/closet-sync/internal/store/model"
	"github.com/closetmatch/closet-sync/internal/sweep"
	"github.com/closetmatch/closet-sync/internal/uploader"
)

// stateDir holds the queue snapshot, relative to Sync.DataDir.
const stateDir = "state"

// Agent ties the store, the upload queue, and the sweeper together and
// runs them as one long-lived background service. Writes go to the
// local store and staging area first; the public object store catches
// up asynchronously.
type Agent struct {
	cfg       *config.Config
	store     store.Store
	blobs     objstore.Client
	reader    *fileio.Reader
	writer    *fileio.Writer
	kv        kvstore.Store
	observer  lifecycle.Observer
	recents   *recents.Registry
	processor *queue.Processor
	uploader  *uploader.Uploader
	sweeper   *sweep.Sweeper
	events    *events.EventProducer
	server    *Server
	ticker    *jitterbug.Ticker
	cron      *cron.Cron
	unsubIdle []func()

	processorOpts []queue.ProcessorOpts
}

type AgentOpts func(a *Agent)

// WithStore substitutes the record store, bypassing config-driven
// database setup.
func WithStore(s store.Store) AgentOpts {
	return func(a *Agent) {
		a.store = s
	}
}

// WithBlobStore substitutes the object store client.
func WithBlobStore(c objstore.Client) AgentOpts {
	return func(a *Agent) {
		a.blobs = c
	}
}

// WithObserver substitutes the foreground lifecycle observer.
func WithObserver(o lifecycle.Observer) AgentOpts {
	return func(a *Agent) {
		a.observer = o
	}
}

// WithProcessorOpts forwards options to the upload queue processor.
func WithProcessorOpts(opts ...queue.ProcessorOpts) AgentOpts {
	return func(a *Agent) {
		a.processorOpts = opts
	}
}

func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, opts ...AgentOpts) (*Agent, error) {
	a := &Agent{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		s, err := store.New(cfg, log)
		if err != nil {
			return nil, errors.Wrap(err, "initializing store")
		}
		a.store = s
	}
	if err := a.store.InitialMigration(); err != nil {
		return nil, errors.Wrap(err, "running initial migration")
	}

	if a.blobs == nil {
		blobs, err := objstore.New(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "initializing object store")
		}
		a.blobs = blobs
	}

	if a.observer == nil {
		a.observer = lifecycle.NewSignalObserver()
	}

	a.reader = fileio.NewReader()
	a.reader.SetRootdir(cfg.Sync.DataDir)
	a.writer = fileio.NewWriter()
	a.writer.SetRootdir(cfg.Sync.DataDir)

	a.kv = kvstore.NewFileStore(path.Join(cfg.Sync.DataDir, stateDir))
	a.recents = recents.NewRegistry()
	a.events = events.NewEventProducer(&events.StdoutWriter{})
	a.processor = queue.NewProcessor(a.kv, a.reader, a.observer, a.processorOpts...)
	a.uploader = uploader.New(a.reader, a.store, a.blobs, cfg, uploader.WithEvents(a.events))
	a.sweeper = sweep.NewSweeper(a.reader, a.writer)
	a.server = NewServer(cfg, a.processor)

	return a, nil
}

// Run starts the agent and blocks until the context is cancelled or a
// termination signal arrives.
func (a *Agent) Run(ctx context.Context) error {
	log := zap.S().Named("agent")
	log.Infow("starting sync agent", "dataDir", a.cfg.Sync.DataDir, "address", a.cfg.Sync.Address)
	defer log.Info("sync agent stopped")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(ctx); err != nil {
		return err
	}

	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("stopping sync agent...")
	a.Stop()
	return nil
}

// Start brings up the background machinery: a cold-start sweep, the
// upload queue, the periodic drain ticker, scheduled sweeps, and the
// debug server. The sweep runs before the queue initializes so no
// upload can be in flight while orphans are reclaimed.
func (a *Agent) Start(ctx context.Context) error {
	a.cron = cron.New()
	if _, err := a.cron.AddFunc(a.cfg.Sync.SweepSchedule, func() { a.sweepAll(ctx) }); err != nil {
		return errors.Wrapf(err, "invalid sweep schedule %q", a.cfg.Sync.SweepSchedule)
	}

	a.sweepAll(ctx)

	a.processor.Initialize(ctx, a.uploader.UploadFunc())

	for _, kind := range queue.Kinds {
		kind := kind
		a.unsubIdle = append(a.unsubIdle, a.processor.OnIdle(kind, func() {
			zap.S().Named("agent").Debugw("upload queue idle", "kind", kind)
		}))
	}

	go a.server.Start()

	a.ticker = jitterbug.New(
		time.Duration(a.cfg.Sync.DrainInterval)*time.Second,
		&jitterbug.Norm{Stdev: 2 * time.Second, Mean: 0},
	)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.ticker.C:
			}
			a.processor.Drain()
		}
	}()

	a.cron.Start()

	return nil
}

// Stop shuts the agent down in reverse start order and waits for the
// pieces that need draining.
func (a *Agent) Stop() {
	log := zap.S().Named("agent")

	serverCh := make(chan any)
	a.server.Stop(serverCh)
	<-serverCh
	log.Info("server stopped")

	if a.ticker != nil {
		a.ticker.Stop()
	}
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	for _, unsubscribe := range a.unsubIdle {
		unsubscribe()
	}
	a.unsubIdle = nil

	a.processor.Close()
	if observer, ok := a.observer.(*lifecycle.SignalObserver); ok {
		observer.Close()
	}
	if err := a.events.Close(); err != nil {
		log.Warnw("failed to close event producer", "error", err)
	}
	if err := a.store.Close(); err != nil {
		log.Warnw("failed to close store", "error", err)
	}
}

// SaveItem stages the image locally, creates the record pointing at the
// staged file, and queues the background upload. The caller gets the
// row back immediately; reconciliation to the public URL happens later.
func (a *Agent) SaveItem(ctx context.Context, item model.WardrobeItem, image []byte, ext string) (*model.WardrobeItem, error) {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.OwnerID == "" {
		item.OwnerID = a.cfg.Sync.OwnerID
	}

	localPath, err := a.stageImage(queue.KindWardrobe, item.ID, image, ext)
	if err != nil {
		return nil, err
	}

	item.ImageURI = localPath
	created, err := a.store.Item().Create(ctx, item)
	if err != nil {
		_ = a.writer.RemoveFile(localPath)
		return nil, errors.Wrap(err, "creating wardrobe item")
	}

	a.enqueueUpload(queue.KindWardrobe, created.ID, created.OwnerID, localPath)
	return created, nil
}

// SaveScan stages the scan image and record the same way SaveItem does
// for wardrobe items.
func (a *Agent) SaveScan(ctx context.Context, scan model.Scan, image []byte, ext string) (*model.Scan, error) {
	if scan.ID == uuid.Nil {
		scan.ID = uuid.New()
	}
	if scan.OwnerID == "" {
		scan.OwnerID = a.cfg.Sync.OwnerID
	}

	localPath, err := a.stageImage(queue.KindScan, scan.ID, image, ext)
	if err != nil {
		return nil, err
	}

	scan.ImageURI = localPath
	created, err := a.store.Scan().Create(ctx, scan)
	if err != nil {
		_ = a.writer.RemoveFile(localPath)
		return nil, errors.Wrap(err, "creating scan")
	}

	a.enqueueUpload(queue.KindScan, created.ID, created.OwnerID, localPath)
	return created, nil
}

// DeleteItem removes the record and cancels any queued upload for it.
// The staged file becomes an orphan and the next sweep reclaims it.
func (a *Agent) DeleteItem(ctx context.Context, id uuid.UUID) error {
	if err := a.store.Item().Delete(ctx, id); err != nil {
		return err
	}
	a.processor.Cancel(id)
	return nil
}

// DeleteScan removes the scan record and cancels any queued upload.
func (a *Agent) DeleteScan(ctx context.Context, id uuid.UUID) error {
	if err := a.store.Scan().Delete(ctx, id); err != nil {
		return err
	}
	a.processor.Cancel(id)
	return nil
}

// UpdateScanStatus moves a scan between pending, saved, and dismissed.
func (a *Agent) UpdateScanStatus(ctx context.Context, id uuid.UUID, status string) error {
	return a.store.Scan().UpdateStatus(ctx, id, status)
}

// RetryUpload clears an exhausted job's attempt budget and drains.
func (a *Agent) RetryUpload(id uuid.UUID) bool {
	return a.processor.Retry(id)
}

// CancelUpload drops any queued upload for the given record id.
func (a *Agent) CancelUpload(id uuid.UUID) {
	a.processor.Cancel(id)
}

// QueueStats reports the pending and failed counts per upload kind.
func (a *Agent) QueueStats() map[queue.Kind]queue.KindStats {
	return a.processor.Stats()
}

// Sweep runs an immediate orphan sweep over every kind, outside the
// regular schedule.
func (a *Agent) Sweep(ctx context.Context) {
	a.sweepAll(ctx)
}

func (a *Agent) stageImage(kind queue.Kind, id uuid.UUID, image []byte, ext string) (string, error) {
	localPath := path.Join(sweep.KindDir(kind), id.String()+strings.ToLower(ext))
	if err := a.writer.WriteFile(localPath, image); err != nil {
		return "", errors.Wrapf(err, "staging %s image", kind)
	}
	// Protects the file from a concurrent sweep until the row and the
	// queue entry exist.
	a.recents.Track(localPath)
	return localPath, nil
}

func (a *Agent) enqueueUpload(kind queue.Kind, id uuid.UUID, ownerID string, localPath string) {
	a.processor.Enqueue(queue.Job{
		Kind:             kind,
		ID:               id,
		OwnerID:          ownerID,
		LocalPath:        localPath,
		ExpectedImageURI: localPath,
		Bucket:           a.bucketFor(kind),
		RemotePath:       uploader.RemotePathFor(ownerID, kind, id, path.Ext(localPath)),
	})
}

func (a *Agent) bucketFor(kind queue.Kind) string {
	if kind == queue.KindScan {
		return a.cfg.Storage.ScanBucket
	}
	return a.cfg.Storage.WardrobeBucket
}

func (a *Agent) sweepAll(ctx context.Context) {
	for _, kind := range queue.Kinds {
		a.sweepKind(ctx, kind)
	}
}

// sweepKind reclaims the kind's orphaned files unless uploads are still
// pending for it. The valid set is assembled immediately before the
// sweep: database rows first, then queued jobs, then the
// recently-created window.
func (a *Agent) sweepKind(ctx context.Context, kind queue.Kind) {
	log := zap.S().Named("agent")
	if a.processor.HasAnyPending(kind) {
		log.Infow("skipping sweep, uploads pending", "kind", kind)
		return
	}

	uris, err := a.imageURIs(ctx, kind)
	if err != nil {
		log.Errorw("failed to snapshot database uris, skipping sweep", "kind", kind, "error", err)
		return
	}

	valid := make(map[string]struct{})
	for _, uri := range uris {
		valid[uri] = struct{}{}
	}
	for uri := range a.processor.PendingURIs(kind) {
		valid[uri] = struct{}{}
	}
	for _, uri := range a.recents.Snapshot() {
		valid[uri] = struct{}{}
	}

	deleted := a.sweeper.Sweep(ctx, kind, valid)
	if deleted > 0 {
		if err := a.events.Write(events.SweepMessageKind, events.SweepEvent{Kind: string(kind), Deleted: deleted}); err != nil {
			log.Debugw("failed to queue sweep event", "error", err)
		}
	}
}

func (a *Agent) imageURIs(ctx context.Context, kind queue.Kind) ([]string, error) {
	if kind == queue.KindScan {
		return a.store.Scan().ImageURIs(ctx, a.cfg.Sync.OwnerID)
	}
	return a.store.Item().ImageURIs(ctx, a.cfg.Sync.OwnerID)
}
