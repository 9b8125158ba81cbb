package queue

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/closetmatch/closet-sync/internal/kvstore"
)

// queueStateKey is where the serialized job collection lives in the
// durable key value store.
const queueStateKey = "closet.upload.queue.v1"

// jobStore owns the in-memory job collection and mirrors it to durable
// storage after every mutation. It is private to the Processor; all
// access happens under the Processor's lock.
type jobStore struct {
	kv     kvstore.Store
	jobs   []*Job
	loaded bool
}

func newJobStore(kv kvstore.Store) *jobStore {
	return &jobStore{kv: kv}
}

// load fetches the persisted collection exactly once per process
// lifetime. Unreadable or corrupt state resets to an empty collection
// instead of failing the caller.
func (s *jobStore) load() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.jobs = []*Job{}

	data, found, err := s.kv.GetItem(queueStateKey)
	if err != nil {
		zap.S().Named("queue").Warnw("failed to read queue state, starting empty", "error", err)
		return
	}
	if !found {
		return
	}

	var records []jobRecord
	if err := json.Unmarshal(data, &records); err != nil {
		zap.S().Named("queue").Warnw("corrupt queue state, starting empty", "error", err)
		return
	}

	for _, rec := range records {
		job := rec.Job
		if job.ID == uuid.Nil && rec.LegacyItemID != nil {
			job.ID = *rec.LegacyItemID
		}
		if job.ID == uuid.Nil || !job.Kind.Valid() || job.LocalPath == "" {
			zap.S().Named("queue").Warnw("dropping malformed queued job",
				"kind", rec.Kind,
				"localPath", rec.LocalPath,
			)
			continue
		}
		queued := job
		s.jobs = append(s.jobs, &queued)
	}
}

// persist mirrors the collection to durable storage. Failure is logged
// and absorbed; the in-memory copy stays authoritative and the next
// mutation retries the write.
func (s *jobStore) persist() {
	records := make([]jobRecord, 0, len(s.jobs))
	for _, job := range s.jobs {
		records = append(records, jobRecord{Job: *job})
	}

	data, err := json.Marshal(records)
	if err != nil {
		zap.S().Named("queue").Errorw("failed to serialize queue state", "error", err)
		return
	}
	if err := s.kv.SetItem(queueStateKey, data); err != nil {
		zap.S().Named("queue").Warnw("failed to persist queue state, keeping in-memory copy", "error", err)
	}
}

func (s *jobStore) all() []*Job {
	return s.jobs
}

// ordered returns a snapshot of the collection, oldest created first.
func (s *jobStore) ordered() []*Job {
	snapshot := make([]*Job, len(s.jobs))
	copy(snapshot, s.jobs)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].CreatedAt.Before(snapshot[j].CreatedAt)
	})
	return snapshot
}

// contains reports whether this exact job object is still queued. A job
// replaced by a newer enqueue for the same identity no longer matches.
func (s *jobStore) contains(job *Job) bool {
	for _, queued := range s.jobs {
		if queued == job {
			return true
		}
	}
	return false
}

func (s *jobStore) byID(id uuid.UUID) *Job {
	for _, job := range s.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

func (s *jobStore) add(job *Job) {
	s.jobs = append(s.jobs, job)
}

// remove drops this exact job object. It reports whether anything was
// removed.
func (s *jobStore) remove(job *Job) bool {
	for i, queued := range s.jobs {
		if queued == job {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// removeByIdentity drops any job for the (kind, id) pair.
func (s *jobStore) removeByIdentity(kind Kind, id uuid.UUID) bool {
	for i, queued := range s.jobs {
		if queued.Kind == kind && queued.ID == id {
			s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// removeByID drops every job carrying id, across kinds, and returns the
// kinds that were affected.
func (s *jobStore) removeByID(id uuid.UUID) []Kind {
	kinds := []Kind{}
	kept := s.jobs[:0]
	for _, queued := range s.jobs {
		if queued.ID == id {
			kinds = append(kinds, queued.Kind)
			continue
		}
		kept = append(kept, queued)
	}
	s.jobs = kept
	return kinds
}

func (s *jobStore) countByKind(kind Kind) int {
	count := 0
	for _, job := range s.jobs {
		if job.Kind == kind {
			count++
		}
	}
	return count
}
