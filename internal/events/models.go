package events

// Upload outcomes reported on the event feed.
const (
	UploadReconciled = "reconciled"
	UploadStale      = "stale"
	UploadFailed     = "failed"
)

// UploadEvent reports the outcome of one upload attempt for a staged
// image.
type UploadEvent struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	ImageURI string `json:"image_uri"`
	Outcome  string `json:"outcome"`
	Error    string `json:"error,omitempty"`
}

// SweepEvent reports one finished orphan sweep.
type SweepEvent struct {
	Kind    string `json:"kind"`
	Deleted int    `json:"deleted"`
}
