package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WardrobeItem struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID    string          `gorm:"index;not null" json:"owner_id"`
	Name       string          `gorm:"not null" json:"name"`
	Category   string          `json:"category,omitempty"`
	Attributes json.RawMessage `gorm:"type:jsonb" json:"attributes,omitempty"`
	ImageURI   string          `gorm:"column:image_uri" json:"image_uri"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type WardrobeItemList []WardrobeItem

func (i WardrobeItem) String() string {
	val, _ := json.Marshal(i)
	return string(val)
}
