package uploader

import (
	"context"
	"path"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/config"
	"github.com/closetmatch/closet-sync/internal/events"
	"github.com/closetmatch/closet-sync/internal/fileio"
	"github.com/closetmatch/closet-sync/internal/media"
	"github.com/closetmatch/closet-sync/internal/objstore"
	"github.com/closetmatch/closet-sync/internal/queue"
	"github.com/closetmatch/closet-sync/internal/store"
	"github.com/closetmatch/closet-sync/pkg/metrics"
)

// Uploader is the upload function handed to the queue processor: read the
// staged file, push the blob with upsert semantics, then reconcile the
// owning record with a guarded update. A guarded update that matches zero
// rows means the record moved on while the job waited; that outcome is
// logged and counted, never retried, because a retry would carry the same
// stale expectation.
type Uploader struct {
	reader     *fileio.Reader
	store      store.Store
	blobs      objstore.Client
	normalizer *media.Normalizer
	events     *events.EventProducer
	buckets    map[queue.Kind]string
}

type Opts func(u *Uploader)

// WithEvents reports every attempt's outcome on the event feed.
func WithEvents(producer *events.EventProducer) Opts {
	return func(u *Uploader) {
		u.events = producer
	}
}

func New(reader *fileio.Reader, st store.Store, blobs objstore.Client, cfg *config.Config, opts ...Opts) *Uploader {
	var normalizer *media.Normalizer
	if cfg.Sync.NormalizeImages {
		normalizer = media.NewNormalizer(cfg.Sync.MaxImageEdge)
	}
	u := &Uploader{
		reader:     reader,
		store:      st,
		blobs:      blobs,
		normalizer: normalizer,
		buckets: map[queue.Kind]string{
			queue.KindWardrobe: cfg.Storage.WardrobeBucket,
			queue.KindScan:     cfg.Storage.ScanBucket,
		},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UploadFunc adapts the uploader for Processor.Initialize.
func (u *Uploader) UploadFunc() queue.UploadFunc {
	return u.Upload
}

// Upload performs one attempt for a job. An error return makes the
// processor schedule a retry; nil removes the job, whether the record was
// reconciled or the update turned out stale.
func (u *Uploader) Upload(ctx context.Context, job *queue.Job) error {
	log := zap.S().Named("uploader")

	data, err := u.reader.ReadFile(job.LocalPath)
	if err != nil {
		err = errors.Wrapf(err, "reading staged file %q", job.LocalPath)
		u.emit(ctx, job, events.UploadFailed, "", err)
		return err
	}

	ext := path.Ext(job.LocalPath)
	contentType := ContentTypeFor(ext)
	if u.normalizer != nil {
		data, contentType = u.normalizer.Normalize(data, contentType)
	}

	// Jobs persisted by older builds predate the precomputed layout
	bucket := job.Bucket
	if bucket == "" {
		bucket = u.buckets[job.Kind]
	}
	remotePath := job.RemotePath
	if remotePath == "" {
		remotePath = RemotePathFor(job.OwnerID, job.Kind, job.ID, ext)
	}

	if err := u.blobs.Upload(ctx, bucket, remotePath, data, contentType); err != nil {
		err = errors.Wrapf(err, "uploading %s/%s", bucket, remotePath)
		u.emit(ctx, job, events.UploadFailed, "", err)
		return err
	}
	publicURL := u.blobs.PublicURL(bucket, remotePath)

	count, err := u.updateRecord(ctx, job, publicURL)
	if err != nil {
		err = errors.Wrapf(err, "reconciling %s %s", job.Kind, job.ID)
		u.emit(ctx, job, events.UploadFailed, publicURL, err)
		return err
	}
	if count == 0 {
		metrics.IncreaseUploadStaleIgnored(string(job.Kind))
		log.Infow("record diverged since enqueue, stale update ignored",
			"kind", job.Kind,
			"id", job.ID,
			"expectedImageUri", job.ExpectedImageURI,
		)
		u.emit(ctx, job, events.UploadStale, publicURL, nil)
		return nil
	}

	log.Infow("record reconciled",
		"kind", job.Kind,
		"id", job.ID,
		"imageUri", publicURL,
	)
	u.emit(ctx, job, events.UploadReconciled, publicURL, nil)
	return nil
}

// emit queues an outcome event. Cancelled attempts stay silent, shutdown
// is not an upload outcome.
func (u *Uploader) emit(ctx context.Context, job *queue.Job, outcome string, uri string, attemptErr error) {
	if u.events == nil || ctx.Err() != nil {
		return
	}
	event := events.UploadEvent{
		Kind:     string(job.Kind),
		ID:       job.ID.String(),
		OwnerID:  job.OwnerID,
		ImageURI: uri,
		Outcome:  outcome,
	}
	if attemptErr != nil {
		event.Error = attemptErr.Error()
	}
	if err := u.events.Write(events.UploadMessageKind, event); err != nil {
		zap.S().Named("uploader").Debugw("failed to queue upload event", "error", err)
	}
}

func (u *Uploader) updateRecord(ctx context.Context, job *queue.Job, publicURL string) (int64, error) {
	switch job.Kind {
	case queue.KindScan:
		return u.store.Scan().UpdateImageURI(ctx, job.ID, job.ExpectedImageURI, publicURL)
	default:
		return u.store.Item().UpdateImageURI(ctx, job.ID, job.ExpectedImageURI, publicURL)
	}
}
