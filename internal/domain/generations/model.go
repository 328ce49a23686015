package generations

import (
	"artgen-app/internal/domain/users"
	"time"
)

const (
	KindImage = "image"
	KindVideo = "video"
)

// Record is the persisted outcome of one successful generation. Rows are
// created once and never mutated.
type Record struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	UserID         uint   `gorm:"index;not null"`
	User           users.User
	Prompt         string
	NegativePrompt string
	Style          string
	Width          int
	Height         int
	Kind           string `gorm:"type:varchar(10);not null;default:'image'"`
	OutputRef      string `gorm:"column:output_reference"`
	CreatedAt      time.Time
}

func (Record) TableName() string {
	return "generation_records"
}
