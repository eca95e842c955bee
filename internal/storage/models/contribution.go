// internal/storage/models/contribution.go
package models

// Contribution is an append-only record of one accepted contribution.
// A wallet contributing twice produces two rows.
type Contribution struct {
	BaseModel
	Mint           string `gorm:"index;not null;type:varchar(44)"`
	Contributor    string `gorm:"index;not null;type:varchar(44)"`
	Amount         uint64 `gorm:"not null"`
	TotalRaised    uint64 `gorm:"not null"`
	RaiseCompleted bool
}
