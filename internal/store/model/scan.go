package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Scan statuses. A scan starts pending while matching runs, then the user
// either saves it into the wardrobe or dismisses it.
const (
	ScanStatusPending   = "pending"
	ScanStatusSaved     = "saved"
	ScanStatusDismissed = "dismissed"
)

type Scan struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID   string          `gorm:"index;not null" json:"owner_id"`
	Status    string          `gorm:"not null;default:pending" json:"status"`
	ImageURI  string          `gorm:"column:image_uri" json:"image_uri"`
	Matches   json.RawMessage `gorm:"type:jsonb" json:"matches,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ScanList []Scan

func (s Scan) String() string {
	val, _ := json.Marshal(s)
	return string(val)
}
