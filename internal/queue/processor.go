package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/fileio"
	"github.com/closetmatch/closet-sync/internal/kvstore"
	"github.com/closetmatch/closet-sync/internal/lifecycle"
	"github.com/closetmatch/closet-sync/pkg/metrics"
)

// idleNotifyDelay debounces idle notifications so a burst of enqueues
// right after a queue empties does not fire listeners spuriously.
const idleNotifyDelay = 100 * time.Millisecond

// UploadFunc performs one upload attempt for a job: push the blob, then
// reconcile the owning record. A nil return removes the job; an error
// schedules a retry.
type UploadFunc func(ctx context.Context, job *Job) error

// Processor drains the durable job store one job at a time. Drains are
// single flight: a kick while a pass is running is absorbed and the pass
// reruns once it finishes, so no kick is ever lost. Background failures
// never escape to callers; they surface through query methods, logs, and
// metrics instead.
type Processor struct {
	mu       sync.Mutex
	store    *jobStore
	reader   *fileio.Reader
	observer lifecycle.Observer
	backoff  []time.Duration

	ctx         context.Context
	uploadFn    UploadFunc
	initialized bool
	unsubscribe func()

	draining     bool
	pendingDrain bool
	closed       bool
	cancelled    map[uuid.UUID]struct{}
	loggedSkips  map[uuid.UUID]struct{}

	wakeTimer  *time.Timer
	idleTimers map[Kind]*time.Timer
	idleSubs   map[Kind]map[int]func()
	nextSubID  int
}

// ProcessorOpts is the type for the functional options.
type ProcessorOpts func(p *Processor)

// WithBackoffSchedule overrides the retry ladder.
func WithBackoffSchedule(schedule []time.Duration) ProcessorOpts {
	return func(p *Processor) {
		if len(schedule) > 0 {
			p.backoff = schedule
		}
	}
}

func NewProcessor(kv kvstore.Store, reader *fileio.Reader, observer lifecycle.Observer, opts ...ProcessorOpts) *Processor {
	p := &Processor{
		store:       newJobStore(kv),
		reader:      reader,
		observer:    observer,
		backoff:     backoffDelays,
		ctx:         context.Background(),
		cancelled:   make(map[uuid.UUID]struct{}),
		loggedSkips: make(map[uuid.UUID]struct{}),
		idleTimers:  make(map[Kind]*time.Timer),
		idleSubs:    make(map[Kind]map[int]func()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize registers the upload function and kicks a drain to resume
// any backlog persisted by a previous run. It is idempotent: calling it
// again replaces the function and drains, without re-registering the
// foreground hook. ctx bounds every upload attempt, including those
// started by self-scheduled wake-ups.
func (p *Processor) Initialize(ctx context.Context, uploadFn UploadFunc) {
	p.mu.Lock()
	p.store.load()
	if ctx != nil {
		p.ctx = ctx
	}
	p.uploadFn = uploadFn
	first := !p.initialized
	p.initialized = true
	if first {
		if p.observer != nil {
			p.unsubscribe = p.observer.OnForeground(p.Drain)
		}
		for _, kind := range Kinds {
			p.updateDepthLocked(kind)
		}
	}
	p.mu.Unlock()

	p.Drain()
}

// Enqueue replaces any queued job for the same (kind, id), appends the
// job with a fresh attempt budget, persists, and kicks a drain.
func (p *Processor) Enqueue(job Job) {
	if !job.Kind.Valid() || job.ID == uuid.Nil || job.LocalPath == "" {
		zap.S().Named("queue").Warnw("ignoring malformed enqueue",
			"kind", job.Kind,
			"id", job.ID,
			"localPath", job.LocalPath,
		)
		return
	}

	p.mu.Lock()
	p.store.load()

	job.Attempts = 0
	job.LastError = ""
	job.NextAttemptAt = nil
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.ExpectedImageURI == "" {
		job.ExpectedImageURI = job.LocalPath
	}

	p.store.removeByIdentity(job.Kind, job.ID)
	queued := job
	p.store.add(&queued)
	p.store.persist()

	// Queue state changed, any scheduled wake-up is stale
	if p.wakeTimer != nil {
		p.wakeTimer.Stop()
		p.wakeTimer = nil
	}
	p.updateDepthLocked(job.Kind)
	p.mu.Unlock()

	zap.S().Named("queue").Debugw("enqueued upload", "kind", job.Kind, "id", job.ID)
	p.Drain()
}

// Cancel removes every job carrying id, across kinds, and marks the id
// so a drain iteration with an upload already in flight discards its
// result. Used when the owning record is deleted.
func (p *Processor) Cancel(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.load()

	p.cancelled[id] = struct{}{}
	kinds := p.store.removeByID(id)
	if len(kinds) == 0 {
		return
	}
	p.store.persist()
	delete(p.loggedSkips, id)
	for _, kind := range kinds {
		p.updateDepthLocked(kind)
	}
	zap.S().Named("queue").Debugw("cancelled upload", "id", id)
}

// Retry resets an exhausted job's attempt budget and kicks a drain. It
// reports whether a job with that id was found.
func (p *Processor) Retry(id uuid.UUID) bool {
	p.mu.Lock()
	p.store.load()

	job := p.store.byID(id)
	if job == nil {
		p.mu.Unlock()
		return false
	}
	job.Attempts = 0
	job.LastError = ""
	job.NextAttemptAt = nil
	delete(p.loggedSkips, id)
	p.store.persist()
	p.mu.Unlock()

	zap.S().Named("queue").Infow("manual retry requested", "id", id)
	p.Drain()
	return true
}

// Drain kicks a background pass over the queue. Reentrancy is guarded by
// a flag: a kick during an active pass schedules one rerun instead of a
// concurrent drain.
func (p *Processor) Drain() {
	p.mu.Lock()
	if !p.initialized || p.uploadFn == nil || p.closed {
		p.mu.Unlock()
		return
	}
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	if p.draining {
		p.pendingDrain = true
		p.mu.Unlock()
		return
	}
	p.draining = true
	p.mu.Unlock()

	go p.run()
}

func (p *Processor) run() {
	for {
		p.pass()

		p.mu.Lock()
		if !p.pendingDrain {
			p.draining = false
			p.mu.Unlock()
			return
		}
		p.pendingDrain = false
		p.mu.Unlock()
	}
}

// pass processes one snapshot of the queue, oldest created first. Jobs
// enqueued while the pass runs are picked up by the rerun, not this
// snapshot.
func (p *Processor) pass() {
	log := zap.S().Named("queue")

	p.mu.Lock()
	p.store.load()
	// Cancellation marks only need to outlive the pass they raced
	p.cancelled = make(map[uuid.UUID]struct{})

	hadJobs := make(map[Kind]bool, len(Kinds))
	for _, kind := range Kinds {
		hadJobs[kind] = p.store.countByKind(kind) > 0
	}

	snapshot := p.store.ordered()
	uploadFn := p.uploadFn
	ctx := p.ctx
	p.mu.Unlock()

	for _, job := range snapshot {
		if ctx.Err() != nil {
			break
		}

		p.mu.Lock()
		if !p.store.contains(job) {
			// Removed or replaced since the snapshot
			p.mu.Unlock()
			continue
		}
		if _, isCancelled := p.cancelled[job.ID]; isCancelled {
			p.mu.Unlock()
			continue
		}
		if job.Attempts >= MaxAttempts {
			if _, logged := p.loggedSkips[job.ID]; !logged {
				p.loggedSkips[job.ID] = struct{}{}
				log.Warnw("job exhausted its retry budget, awaiting manual retry",
					"kind", job.Kind,
					"id", job.ID,
					"lastError", job.LastError,
				)
			}
			p.mu.Unlock()
			continue
		}
		if job.NextAttemptAt != nil && job.NextAttemptAt.After(time.Now()) {
			p.mu.Unlock()
			continue
		}
		attempt := *job
		p.mu.Unlock()

		exists, err := p.reader.PathExists(attempt.LocalPath)
		if err != nil {
			log.Debugw("could not stat queued file, attempting upload anyway",
				"path", attempt.LocalPath,
				"error", err,
			)
		} else if !exists {
			// Nothing to upload. This points at a sweep ordering bug, so it
			// is worth a loud warning even though the job is unrecoverable.
			log.Warnw("queued file missing from disk, dropping job",
				"kind", attempt.Kind,
				"id", attempt.ID,
				"path", attempt.LocalPath,
			)
			p.mu.Lock()
			if p.store.remove(job) {
				p.store.persist()
				p.updateDepthLocked(job.Kind)
			}
			p.mu.Unlock()
			continue
		}

		uploadErr := uploadFn(ctx, &attempt)

		p.mu.Lock()
		if !p.store.contains(job) {
			// Cancelled or replaced while the upload was in flight; the
			// result belongs to a job that no longer exists.
			p.mu.Unlock()
			continue
		}
		if _, isCancelled := p.cancelled[job.ID]; isCancelled {
			p.mu.Unlock()
			continue
		}
		if uploadErr != nil && ctx.Err() != nil {
			// Shutdown, not a real failure; leave the job untouched for the
			// next run.
			p.mu.Unlock()
			break
		}

		if uploadErr == nil {
			p.store.remove(job)
			p.store.persist()
			p.updateDepthLocked(job.Kind)
			metrics.IncreaseUploadAttempt(string(job.Kind), metrics.OutcomeSuccess)
			log.Infow("upload complete",
				"kind", job.Kind,
				"id", job.ID,
				"attempt", job.Attempts+1,
			)
		} else {
			job.Attempts++
			job.LastError = uploadErr.Error()
			next := time.Now().Add(backoffDelay(p.backoff, job.Attempts))
			job.NextAttemptAt = &next
			p.store.persist()
			metrics.IncreaseUploadAttempt(string(job.Kind), metrics.OutcomeFailure)
			if job.Attempts >= MaxAttempts {
				metrics.IncreaseUploadFailedMaxRetries(string(job.Kind))
				log.Errorw("upload failed, retry budget exhausted",
					"kind", job.Kind,
					"id", job.ID,
					"error", uploadErr,
				)
			} else {
				log.Warnw("upload failed, will retry",
					"kind", job.Kind,
					"id", job.ID,
					"attempts", job.Attempts,
					"nextAttemptAt", next,
				)
			}
		}
		p.mu.Unlock()
	}

	p.mu.Lock()
	for kind, had := range hadJobs {
		if had && p.store.countByKind(kind) == 0 {
			p.scheduleIdleNotifyLocked(kind)
		}
	}
	p.scheduleWakeLocked()
	p.mu.Unlock()
}

// scheduleIdleNotifyLocked arms the debounced idle notification for a
// kind whose queue just emptied. Callers hold p.mu.
func (p *Processor) scheduleIdleNotifyLocked(kind Kind) {
	if p.closed {
		return
	}
	if timer, ok := p.idleTimers[kind]; ok {
		timer.Stop()
	}
	p.idleTimers[kind] = time.AfterFunc(idleNotifyDelay, func() {
		p.mu.Lock()
		if p.store.countByKind(kind) != 0 {
			// Something was enqueued during the debounce window
			p.mu.Unlock()
			return
		}
		subs := make([]func(), 0, len(p.idleSubs[kind]))
		for _, fn := range p.idleSubs[kind] {
			subs = append(subs, fn)
		}
		p.mu.Unlock()

		for _, fn := range subs {
			fn()
		}
	})
}

// scheduleWakeLocked arms a timer for the earliest backoff deadline among
// retryable jobs so the queue resumes without an external kick. Callers
// hold p.mu.
func (p *Processor) scheduleWakeLocked() {
	if p.wakeTimer != nil {
		p.wakeTimer.Stop()
		p.wakeTimer = nil
	}
	if p.closed {
		return
	}

	var earliest *time.Time
	for _, job := range p.store.all() {
		if job.Attempts >= MaxAttempts || job.NextAttemptAt == nil {
			continue
		}
		if earliest == nil || job.NextAttemptAt.Before(*earliest) {
			earliest = job.NextAttemptAt
		}
	}
	if earliest == nil {
		return
	}

	delay := time.Until(*earliest)
	if delay < 0 {
		delay = 0
	}
	p.wakeTimer = time.AfterFunc(delay, p.Drain)
}

// OnIdle registers fn to run shortly after kind's queue transitions from
// busy to empty. The returned function unsubscribes.
func (p *Processor) OnIdle(kind Kind, fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	if p.idleSubs[kind] == nil {
		p.idleSubs[kind] = make(map[int]func())
	}
	p.idleSubs[kind][id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.idleSubs[kind], id)
	}
}

// HasPending reports whether any job for id is queued, in backoff, or
// exhausted awaiting manual retry.
func (p *Processor) HasPending(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.load()
	return p.store.byID(id) != nil
}

// IsFailed reports whether id's job has exhausted its retry budget.
func (p *Processor) IsFailed(id uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.load()

	job := p.store.byID(id)
	return job != nil && job.Attempts >= MaxAttempts
}

// FailedJob returns a copy of id's job if it has exhausted its retry
// budget, nil otherwise.
func (p *Processor) FailedJob(id uuid.UUID) *Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.load()

	job := p.store.byID(id)
	if job == nil || job.Attempts < MaxAttempts {
		return nil
	}
	failed := *job
	return &failed
}

// PendingURIs returns the set of local paths referenced by queued jobs,
// optionally filtered by kind. The orphan sweep folds this into its
// valid set.
func (p *Processor) PendingURIs(kinds ...Kind) map[string]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.load()

	uris := make(map[string]struct{})
	for _, job := range p.store.all() {
		if len(kinds) > 0 && !kindIn(kinds, job.Kind) {
			continue
		}
		uris[job.LocalPath] = struct{}{}
	}
	return uris
}

// HasAnyPending reports whether any job is queued, optionally filtered
// by kind. The sweep safety gate refuses to run while this is true.
func (p *Processor) HasAnyPending(kinds ...Kind) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.load()

	for _, job := range p.store.all() {
		if len(kinds) > 0 && !kindIn(kinds, job.Kind) {
			continue
		}
		return true
	}
	return false
}

// KindStats is one kind's queue census.
type KindStats struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// Stats returns per-kind queue counts. Pending counts every stored job,
// Failed the subset that exhausted its retries.
func (p *Processor) Stats() map[Kind]KindStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.load()

	stats := make(map[Kind]KindStats, len(Kinds))
	for _, kind := range Kinds {
		stats[kind] = KindStats{}
	}
	for _, job := range p.store.all() {
		s := stats[job.Kind]
		s.Pending++
		if job.Attempts >= MaxAttempts {
			s.Failed++
		}
		stats[job.Kind] = s
	}
	return stats
}

// Close releases timers and the foreground hook. In-flight passes finish
// on their own; a cancelled Initialize context makes them wind down
// without consuming retry budget.
func (p *Processor) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	if p.wakeTimer != nil {
		p.wakeTimer.Stop()
		p.wakeTimer = nil
	}
	for _, timer := range p.idleTimers {
		timer.Stop()
	}
	p.idleTimers = make(map[Kind]*time.Timer)
}

func (p *Processor) updateDepthLocked(kind Kind) {
	metrics.UpdateQueueDepthMetric(string(kind), p.store.countByKind(kind))
}

func kindIn(kinds []Kind, kind Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
