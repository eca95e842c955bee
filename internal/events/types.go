// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType identifies a launchpad event for subscribers and indexers.
type EventType string

const (
	LaunchCreated        EventType = "launch.created"
	InstantLaunchCreated EventType = "launch.instant_created"
	ContributionMade     EventType = "launch.contribution"
	TradeExecuted        EventType = "launch.trade"
	TokensBurned         EventType = "launch.tokens_burned"
	Graduated            EventType = "launch.graduated"
	LPBurned             EventType = "custody.lp_burned"
	LPLocked             EventType = "custody.lp_locked"
	LPUnlocked           EventType = "custody.lp_unlocked"
	FeesHarvested        EventType = "custody.fees_harvested"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides the common fields.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.EventTime }

// LaunchCreatedEvent is emitted for both launch modes at creation.
type LaunchCreatedEvent struct {
	BaseEvent
	Mint        solana.PublicKey
	Creator     solana.PublicKey
	Symbol      string
	TotalSupply uint64
	RaiseTarget uint64
	Instant     bool
}

// ContributionMadeEvent is emitted for every accepted contribution.
type ContributionMadeEvent struct {
	BaseEvent
	Mint           solana.PublicKey
	Contributor    solana.PublicKey
	Amount         uint64
	TotalRaised    uint64
	RaiseCompleted bool
}

// TradeExecutedEvent is emitted for every settled buy or sell, on either
// venue.
type TradeExecutedEvent struct {
	BaseEvent
	Mint      solana.PublicKey
	Wallet    solana.PublicKey
	Side      string // "buy" or "sell"
	Venue     string // "curve" or "amm"
	AmountIn  uint64
	AmountOut uint64
}

// TokensBurnedEvent is emitted during failed-raise cleanup.
type TokensBurnedEvent struct {
	BaseEvent
	Mint   solana.PublicKey
	Amount uint64
}

// GraduatedEvent is emitted once per launch when liquidity moves to the
// external pool.
type GraduatedEvent struct {
	BaseEvent
	Mint          solana.PublicKey
	NativeDeposit uint64
	TokenDeposit  uint64
	PlatformFee   uint64
	LPShares      uint64
	LPBurned      bool
}

// LPBurnedEvent is emitted when a launch opted to burn its LP shares.
type LPBurnedEvent struct {
	BaseEvent
	Mint     solana.PublicKey
	LPShares uint64
}

// LPLockedEvent is emitted when LP shares enter custody.
type LPLockedEvent struct {
	BaseEvent
	Mint       solana.PublicKey
	Creator    solana.PublicKey
	LPShares   uint64
	UnlockTime time.Time
}

// LPUnlockedEvent is emitted when a lock is released after its timelock.
type LPUnlockedEvent struct {
	BaseEvent
	Mint     solana.PublicKey
	Creator  solana.PublicKey
	LPShares uint64
}

// FeesHarvestedEvent is emitted on every successful harvest.
type FeesHarvestedEvent struct {
	BaseEvent
	Mint          solana.PublicKey
	LPRemoved     uint64
	Proceeds      uint64
	CreatorShare  uint64
	PlatformShare uint64
}

// Handler processes events.
type Handler interface {
	Handle(event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(event Event) error

func (f HandlerFunc) Handle(event Event) error { return f(event) }

// Subscription allows a subscriber to detach.
type Subscription interface {
	Unsubscribe()
}
