// internal/storage/models/lock.go
package models

import "time"

// Lock is the persisted snapshot of one LP custody position.
type Lock struct {
	BaseModel
	Mint       string    `gorm:"unique;not null;type:varchar(44)"`
	Creator    string    `gorm:"index;not null;type:varchar(44)"`
	LPShares   uint64    `gorm:"not null"`
	UnlockTime time.Time `gorm:"not null"`
	Active     bool      `gorm:"index"`
}
