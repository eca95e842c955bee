// internal/storage/models/event.go
package models

import "time"

// Event is the raw journal row: every bus event lands here with its full
// JSON payload, so indexers can rebuild any view without schema churn.
type Event struct {
	EventID    string    `gorm:"primarykey;type:varchar(36)"`
	Type       string    `gorm:"index;not null;type:varchar(50)"`
	Mint       string    `gorm:"index;type:varchar(44)"`
	Payload    string    `gorm:"type:jsonb"`
	OccurredAt time.Time `gorm:"index;not null"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP"`
}
