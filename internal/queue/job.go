package queue

import (
	"time"

	"github.com/google/uuid"
)

// Kind partitions jobs by the record class that owns the image.
type Kind string

const (
	KindWardrobe Kind = "wardrobe"
	KindScan     Kind = "scan"
)

// Kinds lists every job kind, in the order status surfaces report them.
var Kinds = []Kind{KindWardrobe, KindScan}

func (k Kind) Valid() bool {
	return k == KindWardrobe || k == KindScan
}

// MaxAttempts bounds automatic retries. An exhausted job stays in the
// store, skipped, until the user asks for a manual retry.
const MaxAttempts = 3

// backoffDelays is the retry ladder. attempts=1 waits 5s, attempts=2
// waits 30s, everything after waits 120s.
var backoffDelays = []time.Duration{5 * time.Second, 30 * time.Second, 120 * time.Second}

func backoffDelay(schedule []time.Duration, attempts int) time.Duration {
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return schedule[idx]
}

// Job is the unit of durable work: one staged local file waiting to be
// uploaded and reconciled into its owning record.
type Job struct {
	Kind    Kind      `json:"kind"`
	ID      uuid.UUID `json:"id"`
	OwnerID string    `json:"ownerId"`

	// LocalPath is the staged source file. ExpectedImageURI snapshots the
	// record's image reference at enqueue time and becomes the guard
	// predicate for the reconciling update.
	LocalPath        string `json:"localPath"`
	ExpectedImageURI string `json:"expectedImageUri"`

	// Destination in the remote object store.
	Bucket     string `json:"bucket"`
	RemotePath string `json:"remotePath"`

	Attempts      int        `json:"attempts"`
	LastError     string     `json:"lastError,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	NextAttemptAt *time.Time `json:"nextAttemptAt,omitempty"`
}

// jobRecord is the persisted shape. Early releases keyed jobs by
// "itemId"; load still accepts that and migrates it onto ID.
type jobRecord struct {
	Job
	LegacyItemID *uuid.UUID `json:"itemId,omitempty"`
}
