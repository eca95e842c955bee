// =============================
// File: internal/custody/vault.go
// =============================

// Package custody locks liquidity-pool shares received at graduation under
// a creator-extendable timelock and meters fee extraction from them.
package custody

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/amm"
	"github.com/rovshanmuradov/token-launchpad/internal/events"
	"github.com/rovshanmuradov/token-launchpad/internal/ledger"
)

const (
	// HarvestCooldown is the minimum gap between two harvests of one lock.
	HarvestCooldown = 24 * time.Hour

	// HarvestCapBps caps a single harvest at 5% of the LP balance present
	// immediately before that harvest. Recomputed per call, so repeated
	// harvests converge geometrically instead of draining linearly.
	HarvestCapBps = 500

	// Harvest proceeds split. The project-beneficiary share is reserved
	// for future use and intentionally zero.
	CreatorShareBps = 7000
	ProjectShareBps = 0

	// MinLockDuration is the fixed timelock applied to every new lock.
	MinLockDuration = 180 * 24 * time.Hour
)

var (
	ErrLockNotFound     = errors.New("lp lock not found")
	ErrLockExists       = errors.New("lp lock already exists")
	ErrLockInactive     = errors.New("lp lock is not active")
	ErrCooldownActive   = errors.New("harvest cooldown active")
	ErrLockNotExpired   = errors.New("lock period not expired")
	ErrNotLockCreator   = errors.New("caller is not the lock creator")
	ErrZeroExtension    = errors.New("lock extension must be positive")
	ErrNothingToHarvest = errors.New("lp balance too small to harvest")
)

// lock is the mutable state of one LPLock.
type lock struct {
	mint               solana.PublicKey
	creator            solana.PublicKey
	projectBeneficiary solana.PublicKey

	lpAmount        uint64
	initialLPAmount uint64 // immutable snapshot from lock time

	lockStart  time.Time
	unlockTime time.Time

	totalFeesHarvested uint64
	harvestCount       uint64
	lastHarvest        time.Time

	active bool
}

// LockInfo is the read view of a lock.
type LockInfo struct {
	Mint               solana.PublicKey
	Creator            solana.PublicKey
	ProjectBeneficiary solana.PublicKey
	LPAmount           uint64
	InitialLPAmount    uint64
	LockStart          time.Time
	UnlockTime         time.Time
	TotalFeesHarvested uint64
	HarvestCount       uint64
	LastHarvest        time.Time
	Active             bool
}

// HarvestRecord is one append-only harvest audit entry.
type HarvestRecord struct {
	Time      time.Time
	LPRemoved uint64
	Proceeds  uint64
}

// HarvestResult reports the outcome of a single harvest.
type HarvestResult struct {
	LPRemoved     uint64
	Proceeds      uint64
	CreatorShare  uint64
	ProjectShare  uint64
	PlatformShare uint64
}

// PlatformStats aggregates across currently-active locks only.
type PlatformStats struct {
	ActiveLocks        int
	TotalLPLocked      uint64
	TotalValueLocked   uint64 // lamports, both legs of each position
	TotalFeesHarvested uint64
}

// Vault owns every LPLock, keyed by token mint.
type Vault struct {
	mu      sync.Mutex
	locks   map[solana.PublicKey]*lock
	history map[solana.PublicKey][]HarvestRecord

	router amm.Router
	bus    *events.Bus
	logger *zap.Logger
	now    func() time.Time
}

// NewVault creates an empty vault against the given external router.
func NewVault(router amm.Router, bus *events.Bus, logger *zap.Logger) *Vault {
	return &Vault{
		locks:   make(map[solana.PublicKey]*lock),
		history: make(map[solana.PublicKey][]HarvestRecord),
		router:  router,
		bus:     bus,
		logger:  logger.Named("custody"),
		now:     time.Now,
	}
}

// WithClock overrides the vault's clock. Used by tests.
func (v *Vault) WithClock(now func() time.Time) *Vault {
	v.now = now
	return v
}

func (v *Vault) publish(event events.Event) {
	if v.bus != nil {
		v.bus.Publish(event)
	}
}

// Lock takes custody of lpAmount shares for mint. With burnLP the shares
// are destroyed immediately and no lock is created.
func (v *Vault) Lock(mint solana.PublicKey, lpAmount uint64, creator, projectBeneficiary solana.PublicKey, burnLP bool) error {
	if lpAmount == 0 {
		return fmt.Errorf("lp amount must be positive")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()

	if burnLP {
		// Shares are dropped on the floor: nobody can ever remove this
		// liquidity from the external pool again.
		v.logger.Info("LP shares burned",
			zap.String("mint", mint.String()),
			zap.Uint64("lp_shares", lpAmount))
		v.publish(events.LPBurnedEvent{
			BaseEvent: events.BaseEvent{EventType: events.LPBurned, EventTime: now},
			Mint:      mint,
			LPShares:  lpAmount,
		})
		return nil
	}

	if _, ok := v.locks[mint]; ok {
		return ErrLockExists
	}

	unlockTime := now.Add(MinLockDuration)
	v.locks[mint] = &lock{
		mint:               mint,
		creator:            creator,
		projectBeneficiary: projectBeneficiary,
		lpAmount:           lpAmount,
		initialLPAmount:    lpAmount,
		lockStart:          now,
		unlockTime:         unlockTime,
		active:             true,
	}

	v.logger.Info("LP shares locked",
		zap.String("mint", mint.String()),
		zap.String("creator", creator.String()),
		zap.Uint64("lp_shares", lpAmount),
		zap.Time("unlock_time", unlockTime))

	v.publish(events.LPLockedEvent{
		BaseEvent:  events.BaseEvent{EventType: events.LPLocked, EventTime: now},
		Mint:       mint,
		Creator:    creator,
		LPShares:   lpAmount,
		UnlockTime: unlockTime,
	})

	return nil
}

// HarvestFees removes a capped slice of the lock's LP shares from the
// external pool and splits the realized proceeds. The cooldown check and
// lastHarvest update happen under the vault lock, so two concurrent
// harvests cannot both pass the cooldown.
func (v *Vault) HarvestFees(mint solana.PublicKey) (HarvestResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	l, ok := v.locks[mint]
	if !ok {
		return HarvestResult{}, ErrLockNotFound
	}
	if !l.active {
		return HarvestResult{}, ErrLockInactive
	}

	now := v.now()
	if !l.lastHarvest.IsZero() && now.Sub(l.lastHarvest) < HarvestCooldown {
		return HarvestResult{}, fmt.Errorf("%w: next harvest at %s",
			ErrCooldownActive, l.lastHarvest.Add(HarvestCooldown).Format(time.RFC3339))
	}

	// Safety cap against the balance immediately before THIS harvest,
	// not against the original lock.
	lpToRemove := ledger.ShareFloor(l.lpAmount, HarvestCapBps)
	if lpToRemove == 0 {
		return HarvestResult{}, ErrNothingToHarvest
	}

	// External calls happen before any local commit: a router failure
	// leaves the lock exactly as it was.
	nativeOut, tokenOut, err := v.router.RemoveLiquidity(mint, lpToRemove)
	if err != nil {
		return HarvestResult{}, fmt.Errorf("failed to remove liquidity: %w", err)
	}

	proceeds := nativeOut
	if tokenOut > 0 {
		swapped, err := v.router.SwapTokensForNative(mint, tokenOut, 0)
		if err != nil {
			return HarvestResult{}, fmt.Errorf("failed to convert token leg: %w", err)
		}
		proceeds += swapped
	}

	creatorShare := ledger.ShareFloor(proceeds, CreatorShareBps)
	projectShare := ledger.ShareFloor(proceeds, ProjectShareBps)
	platformShare := proceeds - creatorShare - projectShare

	l.lpAmount -= lpToRemove
	l.totalFeesHarvested += proceeds
	l.harvestCount++
	l.lastHarvest = now
	v.history[mint] = append(v.history[mint], HarvestRecord{
		Time:      now,
		LPRemoved: lpToRemove,
		Proceeds:  proceeds,
	})

	v.logger.Info("Fees harvested",
		zap.String("mint", mint.String()),
		zap.Uint64("lp_removed", lpToRemove),
		zap.String("proceeds_sol", ledger.SolString(proceeds)),
		zap.String("creator_share_sol", ledger.SolString(creatorShare)),
		zap.String("platform_share_sol", ledger.SolString(platformShare)),
		zap.Uint64("harvest_count", l.harvestCount))

	v.publish(events.FeesHarvestedEvent{
		BaseEvent:     events.BaseEvent{EventType: events.FeesHarvested, EventTime: now},
		Mint:          mint,
		LPRemoved:     lpToRemove,
		Proceeds:      proceeds,
		CreatorShare:  creatorShare,
		PlatformShare: platformShare,
	})

	return HarvestResult{
		LPRemoved:     lpToRemove,
		Proceeds:      proceeds,
		CreatorShare:  creatorShare,
		ProjectShare:  projectShare,
		PlatformShare: platformShare,
	}, nil
}

// UnlockLP releases the remaining shares to the creator once the timelock
// has expired. The call is permissionless; shares always go to the creator.
func (v *Vault) UnlockLP(mint solana.PublicKey) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	l, ok := v.locks[mint]
	if !ok {
		return 0, ErrLockNotFound
	}
	if !l.active {
		return 0, ErrLockInactive
	}

	now := v.now()
	if now.Before(l.unlockTime) {
		return 0, fmt.Errorf("%w: unlocks at %s", ErrLockNotExpired, l.unlockTime.Format(time.RFC3339))
	}

	released := l.lpAmount
	l.lpAmount = 0
	l.active = false

	v.logger.Info("LP lock released",
		zap.String("mint", mint.String()),
		zap.String("creator", l.creator.String()),
		zap.Uint64("lp_shares", released))

	v.publish(events.LPUnlockedEvent{
		BaseEvent: events.BaseEvent{EventType: events.LPUnlocked, EventTime: now},
		Mint:      mint,
		Creator:   l.creator,
		LPShares:  released,
	})

	return released, nil
}

// ExtendLock pushes the unlock time forward. Only the lock's creator may
// extend, and only forward.
func (v *Vault) ExtendLock(mint, caller solana.PublicKey, extra time.Duration) error {
	if extra <= 0 {
		return ErrZeroExtension
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	l, ok := v.locks[mint]
	if !ok {
		return ErrLockNotFound
	}
	if !l.active {
		return ErrLockInactive
	}
	if !l.creator.Equals(caller) {
		return ErrNotLockCreator
	}

	l.unlockTime = l.unlockTime.Add(extra)

	v.logger.Info("Lock extended",
		zap.String("mint", mint.String()),
		zap.Duration("extra", extra),
		zap.Time("unlock_time", l.unlockTime))

	return nil
}

// GetLockInfo returns the read view of one lock.
func (v *Vault) GetLockInfo(mint solana.PublicKey) (LockInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	l, ok := v.locks[mint]
	if !ok {
		return LockInfo{}, ErrLockNotFound
	}
	return LockInfo{
		Mint:               l.mint,
		Creator:            l.creator,
		ProjectBeneficiary: l.projectBeneficiary,
		LPAmount:           l.lpAmount,
		InitialLPAmount:    l.initialLPAmount,
		LockStart:          l.lockStart,
		UnlockTime:         l.unlockTime,
		TotalFeesHarvested: l.totalFeesHarvested,
		HarvestCount:       l.harvestCount,
		LastHarvest:        l.lastHarvest,
		Active:             l.active,
	}, nil
}

// GetHarvestHistory returns the append-only harvest log for one lock.
func (v *Vault) GetHarvestHistory(mint solana.PublicKey) ([]HarvestRecord, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.locks[mint]; !ok {
		return nil, ErrLockNotFound
	}
	records := make([]HarvestRecord, len(v.history[mint]))
	copy(records, v.history[mint])
	return records, nil
}

// ActiveMints returns the mints of all currently-active locks. Used by the
// harvest scheduler.
func (v *Vault) ActiveMints() []solana.PublicKey {
	v.mu.Lock()
	defer v.mu.Unlock()

	mints := make([]solana.PublicKey, 0, len(v.locks))
	for mint, l := range v.locks {
		if l.active {
			mints = append(mints, mint)
		}
	}
	return mints
}

// GetPlatformStats aggregates across active locks only.
func (v *Vault) GetPlatformStats() PlatformStats {
	v.mu.Lock()
	defer v.mu.Unlock()

	stats := PlatformStats{}
	for mint, l := range v.locks {
		if !l.active {
			continue
		}
		stats.ActiveLocks++
		stats.TotalLPLocked += l.lpAmount
		stats.TotalFeesHarvested += l.totalFeesHarvested

		res, err := v.router.PoolReserves(mint)
		if err != nil || res.LPSupply == 0 {
			continue
		}
		nativeLeg, err := ledger.MulDiv(res.Native, l.lpAmount, res.LPSupply)
		if err != nil {
			continue
		}
		// Both legs of a balanced position are worth the native leg twice.
		stats.TotalValueLocked += 2 * nativeLeg
	}
	return stats
}
