// internal/storage/models/trade.go
package models

// Trade is an append-only record of one settled buy or sell.
type Trade struct {
	BaseModel
	Mint      string `gorm:"index;not null;type:varchar(44)"`
	Wallet    string `gorm:"index;not null;type:varchar(44)"`
	Side      string `gorm:"not null;type:varchar(4)"`
	Venue     string `gorm:"not null;type:varchar(10)"`
	AmountIn  uint64 `gorm:"not null"`
	AmountOut uint64 `gorm:"not null"`
}
