// internal/storage/models/harvest.go
package models

// Harvest is an append-only record of one fee harvest from a custodied
// LP position.
type Harvest struct {
	BaseModel
	Mint          string `gorm:"index;not null;type:varchar(44)"`
	LPRemoved     uint64 `gorm:"not null"`
	Proceeds      uint64 `gorm:"not null"`
	CreatorShare  uint64 `gorm:"not null"`
	PlatformShare uint64 `gorm:"not null"`
}
