package storage

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/events"
	"github.com/rovshanmuradov/token-launchpad/internal/storage/models"
)

// memStore records calls in memory; good enough to verify projections.
type memStore struct {
	launches      []*models.Launch
	contributions []*models.Contribution
	trades        []*models.Trade
	locks         []*models.Lock
	harvests      []*models.Harvest
	events        []*models.Event
	completed     map[string]uint64
	graduated     map[string]bool
	unlocked      map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		completed: make(map[string]uint64),
		graduated: make(map[string]bool),
		unlocked:  make(map[string]bool),
	}
}

func (s *memStore) SaveLaunch(_ context.Context, l *models.Launch) error {
	s.launches = append(s.launches, l)
	return nil
}

func (s *memStore) GetLaunch(_ context.Context, mint string) (*models.Launch, error) {
	for _, l := range s.launches {
		if l.Mint == mint {
			return l, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListLaunches(_ context.Context, _, _ int) ([]*models.Launch, error) {
	return s.launches, nil
}

func (s *memStore) MarkRaiseCompleted(_ context.Context, mint string, totalRaised uint64) error {
	s.completed[mint] = totalRaised
	return nil
}

func (s *memStore) MarkGraduated(_ context.Context, mint string) error {
	s.graduated[mint] = true
	return nil
}

func (s *memStore) SaveContribution(_ context.Context, c *models.Contribution) error {
	s.contributions = append(s.contributions, c)
	return nil
}

func (s *memStore) ListContributions(_ context.Context, _ string, _, _ int) ([]*models.Contribution, error) {
	return s.contributions, nil
}

func (s *memStore) SaveTrade(_ context.Context, tr *models.Trade) error {
	s.trades = append(s.trades, tr)
	return nil
}

func (s *memStore) ListTrades(_ context.Context, _ string, _, _ int) ([]*models.Trade, error) {
	return s.trades, nil
}

func (s *memStore) SaveLock(_ context.Context, l *models.Lock) error {
	s.locks = append(s.locks, l)
	return nil
}

func (s *memStore) MarkLockInactive(_ context.Context, mint string) error {
	s.unlocked[mint] = true
	return nil
}

func (s *memStore) SaveHarvest(_ context.Context, h *models.Harvest) error {
	s.harvests = append(s.harvests, h)
	return nil
}

func (s *memStore) ListHarvests(_ context.Context, _ string, _, _ int) ([]*models.Harvest, error) {
	return s.harvests, nil
}

func (s *memStore) SaveEvent(_ context.Context, e *models.Event) error {
	s.events = append(s.events, e)
	return nil
}

func (s *memStore) RunMigrations() error { return nil }

func TestJournalProjectsLaunchLifecycle(t *testing.T) {
	store := newMemStore()
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(time.Second) }()

	NewJournal(store, zap.NewNop()).Attach(bus)

	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	now := time.Now()

	require.NoError(t, bus.PublishSync(events.LaunchCreatedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.LaunchCreated, EventTime: now},
		Mint:        mint,
		Creator:     creator,
		Symbol:      "TEST",
		TotalSupply: 1_000_000_000,
		RaiseTarget: 50_000_000_000,
	}))

	require.NoError(t, bus.PublishSync(events.ContributionMadeEvent{
		BaseEvent:      events.BaseEvent{EventType: events.ContributionMade, EventTime: now},
		Mint:           mint,
		Contributor:    solana.NewWallet().PublicKey(),
		Amount:         4_440_000_000,
		TotalRaised:    52_000_000_000,
		RaiseCompleted: true,
	}))

	require.NoError(t, bus.PublishSync(events.GraduatedEvent{
		BaseEvent: events.BaseEvent{EventType: events.Graduated, EventTime: now},
		Mint:      mint,
	}))

	require.Len(t, store.launches, 1)
	assert.Equal(t, mint.String(), store.launches[0].Mint)
	assert.Equal(t, "PROJECT_RAISE", store.launches[0].Mode)

	require.Len(t, store.contributions, 1)
	assert.Equal(t, uint64(52_000_000_000), store.completed[mint.String()])
	assert.True(t, store.graduated[mint.String()])

	// Every event also lands verbatim in the journal with a fresh id.
	require.Len(t, store.events, 3)
	assert.NotEmpty(t, store.events[0].EventID)
	assert.Equal(t, mint.String(), store.events[0].Mint)
	assert.NotEqual(t, store.events[0].EventID, store.events[1].EventID)
	assert.Contains(t, store.events[1].Payload, `"TotalRaised":52000000000`)
}

func TestJournalProjectsTradesAndLocks(t *testing.T) {
	store := newMemStore()
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(time.Second) }()

	NewJournal(store, zap.NewNop()).Attach(bus)

	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	now := time.Now()

	require.NoError(t, bus.PublishSync(events.TradeExecutedEvent{
		BaseEvent: events.BaseEvent{EventType: events.TradeExecuted, EventTime: now},
		Mint:      mint,
		Wallet:    solana.NewWallet().PublicKey(),
		Side:      "buy",
		Venue:     "curve",
		AmountIn:  1_000_000_000,
		AmountOut: 42_000_000,
	}))

	require.NoError(t, bus.PublishSync(events.LPLockedEvent{
		BaseEvent:  events.BaseEvent{EventType: events.LPLocked, EventTime: now},
		Mint:       mint,
		Creator:    creator,
		LPShares:   1000,
		UnlockTime: now.Add(180 * 24 * time.Hour),
	}))

	require.NoError(t, bus.PublishSync(events.LPUnlockedEvent{
		BaseEvent: events.BaseEvent{EventType: events.LPUnlocked, EventTime: now},
		Mint:      mint,
		Creator:   creator,
		LPShares:  1000,
	}))

	require.Len(t, store.trades, 1)
	assert.Equal(t, "buy", store.trades[0].Side)
	assert.Equal(t, "curve", store.trades[0].Venue)

	require.Len(t, store.locks, 1)
	assert.True(t, store.locks[0].Active)
	assert.True(t, store.unlocked[mint.String()])
}

func TestJournalRecordsHarvests(t *testing.T) {
	store := newMemStore()
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(time.Second) }()

	NewJournal(store, zap.NewNop()).Attach(bus)

	mint := solana.NewWallet().PublicKey()
	require.NoError(t, bus.PublishSync(events.FeesHarvestedEvent{
		BaseEvent:     events.BaseEvent{EventType: events.FeesHarvested, EventTime: time.Now()},
		Mint:          mint,
		LPRemoved:     50,
		Proceeds:      1_000_000,
		CreatorShare:  700_000,
		PlatformShare: 300_000,
	}))

	require.Len(t, store.harvests, 1)
	assert.Equal(t, uint64(700_000), store.harvests[0].CreatorShare)
	assert.Equal(t, uint64(300_000), store.harvests[0].PlatformShare)
}
