// internal/storage/models/launch.go
package models

import "time"

// Launch is the persisted row for one launch, updated as its lifecycle
// advances. Monetary columns are raw lamports / token base units.
type Launch struct {
	BaseModel
	Mint           string `gorm:"unique;not null;type:varchar(44)"`
	Creator        string `gorm:"index;not null;type:varchar(44)"`
	Mode           string `gorm:"not null;type:varchar(20)"`
	Name           string `gorm:"not null;type:varchar(100)"`
	Symbol         string `gorm:"index;not null;type:varchar(20)"`
	TotalSupply    uint64 `gorm:"not null"`
	RaiseTarget    uint64
	TotalRaised    uint64
	RaiseCompleted bool `gorm:"index"`
	Graduated      bool `gorm:"index"`
	GraduatedAt    *time.Time
}
