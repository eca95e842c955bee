package custody

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/amm"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestVault(t *testing.T) (*Vault, *amm.MemoryRouter, *fakeClock) {
	t.Helper()
	router := amm.NewMemoryRouter(zap.NewNop())
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	vault := NewVault(router, nil, zap.NewNop()).WithClock(clock.now)
	return vault, router, clock
}

func lockWithPool(t *testing.T, vault *Vault, router *amm.MemoryRouter, native, tokens uint64) (solana.PublicKey, solana.PublicKey, uint64) {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	lp, err := router.CreatePool(mint, native, tokens)
	require.NoError(t, err)
	require.NoError(t, vault.Lock(mint, lp, creator, solana.PublicKey{}, false))
	return mint, creator, lp
}

func TestBurnLPCreatesNoLock(t *testing.T) {
	vault, router, _ := newTestVault(t)
	mint := solana.NewWallet().PublicKey()
	_, err := router.CreatePool(mint, 1_000_000, 1_000_000)
	require.NoError(t, err)

	require.NoError(t, vault.Lock(mint, 500, solana.NewWallet().PublicKey(), solana.PublicKey{}, true))

	_, err = vault.GetLockInfo(mint)
	assert.ErrorIs(t, err, ErrLockNotFound)
}

func TestHarvestCapRecomputedAgainstCurrentBalance(t *testing.T) {
	vault, router, clock := newTestVault(t)

	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	_, err := router.CreatePool(mint, 1_000_000_000, 1_000_000_000)
	require.NoError(t, err)
	// Lock exactly 1000 shares: the reference scenario.
	require.NoError(t, vault.Lock(mint, 1000, creator, solana.PublicKey{}, false))

	res, err := vault.HarvestFees(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), res.LPRemoved, "first harvest removes 5%% of 1000")

	clock.advance(HarvestCooldown)

	res, err = vault.HarvestFees(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(47), res.LPRemoved, "second harvest caps at 5%% of 950, not of 1000")

	info, err := vault.GetLockInfo(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), info.InitialLPAmount, "initial snapshot is immutable")
	assert.Equal(t, uint64(903), info.LPAmount)
	assert.Equal(t, uint64(2), info.HarvestCount)
}

func TestHarvestCooldown(t *testing.T) {
	vault, router, clock := newTestVault(t)
	mint, _, _ := lockWithPool(t, vault, router, 1_000_000_000, 1_000_000_000)

	_, err := vault.HarvestFees(mint)
	require.NoError(t, err)

	_, err = vault.HarvestFees(mint)
	assert.ErrorIs(t, err, ErrCooldownActive)

	clock.advance(HarvestCooldown - time.Minute)
	_, err = vault.HarvestFees(mint)
	assert.ErrorIs(t, err, ErrCooldownActive)

	clock.advance(time.Minute)
	_, err = vault.HarvestFees(mint)
	assert.NoError(t, err)
}

func TestHarvestSplit(t *testing.T) {
	vault, router, _ := newTestVault(t)
	mint, _, _ := lockWithPool(t, vault, router, 10_000_000_000, 10_000_000_000)

	res, err := vault.HarvestFees(mint)
	require.NoError(t, err)
	require.Greater(t, res.Proceeds, uint64(0))

	assert.Equal(t, uint64(0), res.ProjectShare, "project beneficiary share is reserved and must be zero")
	assert.Equal(t, res.Proceeds, res.CreatorShare+res.ProjectShare+res.PlatformShare, "split must be exact")

	// 70/30: platform*7 == creator*3 within rounding of one lamport split.
	diff := int64(res.PlatformShare*7) - int64(res.CreatorShare*3)
	if diff < 0 {
		diff = -diff
	}
	assert.LessOrEqual(t, diff, int64(7), "split must be 70/30 within rounding")
}

func TestHarvestHistoryAppendOnly(t *testing.T) {
	vault, router, clock := newTestVault(t)
	mint, _, _ := lockWithPool(t, vault, router, 1_000_000_000, 1_000_000_000)

	for i := 0; i < 3; i++ {
		_, err := vault.HarvestFees(mint)
		require.NoError(t, err)
		clock.advance(HarvestCooldown)
	}

	history, err := vault.GetHarvestHistory(mint)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].Time.After(history[i-1].Time))
		assert.Less(t, history[i].LPRemoved, history[i-1].LPRemoved, "harvests converge geometrically")
	}
}

func TestUnlockLP(t *testing.T) {
	vault, router, clock := newTestVault(t)
	mint, _, lp := lockWithPool(t, vault, router, 1_000_000_000, 1_000_000_000)

	_, err := vault.UnlockLP(mint)
	assert.ErrorIs(t, err, ErrLockNotExpired)

	clock.advance(MinLockDuration)

	released, err := vault.UnlockLP(mint)
	require.NoError(t, err)
	assert.Equal(t, lp, released)

	info, err := vault.GetLockInfo(mint)
	require.NoError(t, err)
	assert.False(t, info.Active)
	assert.Equal(t, uint64(0), info.LPAmount)

	_, err = vault.UnlockLP(mint)
	assert.ErrorIs(t, err, ErrLockInactive)

	_, err = vault.HarvestFees(mint)
	assert.ErrorIs(t, err, ErrLockInactive)
}

func TestExtendLock(t *testing.T) {
	vault, router, clock := newTestVault(t)
	mint, creator, _ := lockWithPool(t, vault, router, 1_000_000_000, 1_000_000_000)

	err := vault.ExtendLock(mint, solana.NewWallet().PublicKey(), time.Hour)
	assert.ErrorIs(t, err, ErrNotLockCreator)

	err = vault.ExtendLock(mint, creator, 0)
	assert.ErrorIs(t, err, ErrZeroExtension)

	before, err := vault.GetLockInfo(mint)
	require.NoError(t, err)

	require.NoError(t, vault.ExtendLock(mint, creator, 48*time.Hour))

	after, err := vault.GetLockInfo(mint)
	require.NoError(t, err)
	assert.Equal(t, before.UnlockTime.Add(48*time.Hour), after.UnlockTime)

	// Extension applies even past the original expiry.
	clock.advance(MinLockDuration)
	_, err = vault.UnlockLP(mint)
	assert.ErrorIs(t, err, ErrLockNotExpired)
}

func TestPlatformStatsCountActiveOnly(t *testing.T) {
	vault, router, clock := newTestVault(t)
	lockWithPool(t, vault, router, 1_000_000_000, 1_000_000_000)
	mint2, _, _ := lockWithPool(t, vault, router, 2_000_000_000, 2_000_000_000)

	stats := vault.GetPlatformStats()
	assert.Equal(t, 2, stats.ActiveLocks)
	assert.Greater(t, stats.TotalValueLocked, uint64(0))

	clock.advance(MinLockDuration)
	_, err := vault.UnlockLP(mint2)
	require.NoError(t, err)

	stats = vault.GetPlatformStats()
	assert.Equal(t, 1, stats.ActiveLocks)
}

func TestHarvestUnknownLock(t *testing.T) {
	vault, _, _ := newTestVault(t)
	_, err := vault.HarvestFees(solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrLockNotFound)
}
