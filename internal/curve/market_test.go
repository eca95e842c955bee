package curve

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/ledger"
	"github.com/rovshanmuradov/token-launchpad/internal/oracle"
)

const (
	testSupply  = 1_000_000_000_000_000 // 1B tokens at 6 decimals
	testDeposit = 800_000_000_000_000   // 80% of supply on the curve
)

func newTestMarket(t *testing.T, usdPrice float64) (*Market, solana.PublicKey) {
	t.Helper()
	m := NewMarket(oracle.Static{Price: usdPrice}, zap.NewNop())
	mint := solana.NewWallet().PublicKey()
	require.NoError(t, m.CreatePool(mint, solana.NewWallet().PublicKey(), testDeposit, testSupply))
	return m, mint
}

func TestCreatePoolRejectsDuplicates(t *testing.T) {
	m, mint := newTestMarket(t, 150)
	err := m.CreatePool(mint, solana.NewWallet().PublicKey(), testDeposit, testSupply)
	assert.ErrorIs(t, err, ErrPoolExists)
}

func TestBuyMovesReservesAndAccruesCreatorFee(t *testing.T) {
	m, mint := newTestMarket(t, 150)
	ctx := context.Background()

	buyIn := uint64(1 * ledger.LamportsPerSol)
	out, err := m.Buy(ctx, mint, buyIn, 0)
	require.NoError(t, err)
	assert.Greater(t, out, uint64(0))

	info, err := m.PoolInfo(ctx, mint)
	require.NoError(t, err)

	fee := ledger.ShareCeil(buyIn, CreatorFeeBps)
	assert.Equal(t, buyIn-fee, info.NativeReserve, "creator fee must not enter the reserve")
	assert.Equal(t, fee, info.CreatorFees)
	assert.Equal(t, uint64(testDeposit)-out, info.TokenReserve)
}

func TestBuySlippageRevertsWithoutPartialExecution(t *testing.T) {
	m, mint := newTestMarket(t, 150)
	ctx := context.Background()

	before, err := m.PoolInfo(ctx, mint)
	require.NoError(t, err)

	_, err = m.Buy(ctx, mint, 1*ledger.LamportsPerSol, testDeposit)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	after, err := m.PoolInfo(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, before.NativeReserve, after.NativeReserve)
	assert.Equal(t, before.TokenReserve, after.TokenReserve)
	assert.Equal(t, before.CreatorFees, after.CreatorFees)
}

func TestSellRoundTrip(t *testing.T) {
	m, mint := newTestMarket(t, 150)
	ctx := context.Background()

	out, err := m.Buy(ctx, mint, 2*ledger.LamportsPerSol, 0)
	require.NoError(t, err)

	native, err := m.Sell(ctx, mint, out, 0)
	require.NoError(t, err)

	// Round trip loses the creator fee twice plus curve rounding.
	assert.Less(t, native, uint64(2*ledger.LamportsPerSol))
	assert.Greater(t, native, uint64(19*ledger.LamportsPerSol/10))
}

func TestSellSlippageGuard(t *testing.T) {
	m, mint := newTestMarket(t, 150)
	ctx := context.Background()

	out, err := m.Buy(ctx, mint, 1*ledger.LamportsPerSol, 0)
	require.NoError(t, err)

	_, err = m.Sell(ctx, mint, out, 2*ledger.LamportsPerSol)
	assert.ErrorIs(t, err, ErrSlippageExceeded)
}

func TestMarketCapReconciliationAfterTrades(t *testing.T) {
	m, mint := newTestMarket(t, 150)
	ctx := context.Background()

	trades := []uint64{
		ledger.LamportsPerSol / 2,
		3 * ledger.LamportsPerSol,
		10 * ledger.LamportsPerSol,
	}
	for _, in := range trades {
		_, err := m.Buy(ctx, mint, in, 0)
		require.NoError(t, err)

		// PoolInfo internally cross-checks the integer reserves-implied cap
		// against the float price-times-supply cap at 0.1% tolerance.
		info, err := m.PoolInfo(ctx, mint)
		require.NoError(t, err)
		assert.Greater(t, info.MarketCapLamports, uint64(0))
	}
}

func TestDualGraduationGate(t *testing.T) {
	ctx := context.Background()

	t.Run("reserve alone does not graduate", func(t *testing.T) {
		// $1/SOL keeps the USD cap far below the threshold.
		m, mint := newTestMarket(t, 1)

		_, err := m.Buy(ctx, mint, 20*ledger.LamportsPerSol, 0)
		require.NoError(t, err)

		info, err := m.PoolInfo(ctx, mint)
		require.NoError(t, err)
		require.GreaterOrEqual(t, info.NativeReserve, uint64(GraduationReserveLamports))

		graduated, err := m.Graduated(mint)
		require.NoError(t, err)
		assert.False(t, graduated, "reserve leg alone must not graduate")
	})

	t.Run("market cap alone does not graduate", func(t *testing.T) {
		// Enormous USD rate satisfies the cap leg instantly, but the real
		// reserve is still below 15 SOL.
		m, mint := newTestMarket(t, 1_000_000)

		_, err := m.Buy(ctx, mint, 1*ledger.LamportsPerSol, 0)
		require.NoError(t, err)

		graduated, err := m.Graduated(mint)
		require.NoError(t, err)
		assert.False(t, graduated, "market-cap leg alone must not graduate")
	})

	t.Run("both legs graduate and block further trades", func(t *testing.T) {
		m, mint := newTestMarket(t, 1_000_000)

		_, err := m.Buy(ctx, mint, 20*ledger.LamportsPerSol, 0)
		require.NoError(t, err)

		graduated, err := m.Graduated(mint)
		require.NoError(t, err)
		require.True(t, graduated)

		_, err = m.Buy(ctx, mint, 1*ledger.LamportsPerSol, 0)
		assert.ErrorIs(t, err, ErrAlreadyGraduated)
		_, err = m.Sell(ctx, mint, 1_000_000, 0)
		assert.ErrorIs(t, err, ErrAlreadyGraduated)
	})

	t.Run("sell that suppresses the cap keeps the flag monotonic", func(t *testing.T) {
		m, mint := newTestMarket(t, 1_000_000)

		out, err := m.Buy(ctx, mint, 20*ledger.LamportsPerSol, 0)
		require.NoError(t, err)

		graduated, err := m.Graduated(mint)
		require.NoError(t, err)
		require.True(t, graduated)

		// A sell is rejected post-graduation, so the flag cannot regress.
		_, err = m.Sell(ctx, mint, out, 0)
		assert.ErrorIs(t, err, ErrAlreadyGraduated)

		graduated, err = m.Graduated(mint)
		require.NoError(t, err)
		assert.True(t, graduated)
	})
}

func TestSurrender(t *testing.T) {
	ctx := context.Background()
	m, mint := newTestMarket(t, 1_000_000)

	_, err := m.Buy(ctx, mint, 20*ledger.LamportsPerSol, 0)
	require.NoError(t, err)

	_, _, _, err = m.Surrender(solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrPoolNotFound)

	native, tokens, fees, err := m.Surrender(mint)
	require.NoError(t, err)
	assert.Greater(t, native, uint64(0))
	assert.Greater(t, tokens, uint64(0))
	assert.Greater(t, fees, uint64(0))

	// Second surrender must fail distinctly.
	_, _, _, err = m.Surrender(mint)
	assert.ErrorIs(t, err, ErrAlreadyGraduated)

	info, err := m.PoolInfo(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), info.NativeReserve)
	assert.Equal(t, uint64(0), info.TokenReserve)
}

func TestSurrenderRequiresGraduation(t *testing.T) {
	m, mint := newTestMarket(t, 1)
	_, _, _, err := m.Surrender(mint)
	assert.ErrorIs(t, err, ErrNotGraduated)
}

func TestGraduationProgress(t *testing.T) {
	ctx := context.Background()
	m, mint := newTestMarket(t, 150)

	info, err := m.PoolInfo(ctx, mint)
	require.NoError(t, err)
	assert.Less(t, info.GraduationProgressBps, uint64(ledger.BpsDenominator))

	_, err = m.Buy(ctx, mint, 5*ledger.LamportsPerSol, 0)
	require.NoError(t, err)

	after, err := m.PoolInfo(ctx, mint)
	require.NoError(t, err)
	assert.Greater(t, after.GraduationProgressBps, info.GraduationProgressBps)
}

func TestReconcileCapsToleranceBand(t *testing.T) {
	// 10 bps band; the limit is floored, so dust-sized caps tolerate
	// zero divergence.
	cases := []struct {
		name     string
		capInt   uint64
		capFloat uint64
		mismatch bool
	}{
		{"equal", 1_000_000, 1_000_000, false},
		{"inside band", 1_000_000, 1_001_000, false},
		{"just outside band", 1_000_000, 1_001_002, true},
		{"dust cap off by one", 30, 29, true},
		{"both zero", 0, 0, false},
		{"zero against positive", 0, 5, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := reconcileCaps(tc.capInt, tc.capFloat)
			if tc.mismatch {
				assert.ErrorIs(t, err, ErrMarketCapMismatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.capInt, got, "integer derivation wins when in band")
		})
	}
}

func TestMarketCapMismatchHaltsPricing(t *testing.T) {
	// Reserves chosen so the float derivation truncates one lamport below
	// the integer one: 3 * 10_000_000 / 1_000_000 = 30, while
	// 3e-9 SOL/token times 10 whole tokens lands at 29.999... and floors
	// to 29. At a 30-lamport cap the 10 bps band is zero wide, so the
	// cross-check must refuse to price the pool.
	p := &pool{
		mint:          solana.NewWallet().PublicKey(),
		totalSupply:   10_000_000,
		virtualNative: 3,
		virtualToken:  1_000_000,
	}
	_, err := p.reconciledMarketCap()
	assert.ErrorIs(t, err, ErrMarketCapMismatch)

	// The guard surfaces through every read path, not just trades.
	m := NewMarket(oracle.Static{Price: 150}, zap.NewNop())
	m.pools[p.mint] = p
	_, err = m.PoolInfo(context.Background(), p.mint)
	assert.ErrorIs(t, err, ErrMarketCapMismatch)
}

func TestReevaluateGraduatesAfterOracleRecovers(t *testing.T) {
	ctx := context.Background()
	feed := &flakyOracle{failures: 2, price: 1_000_000}
	m := NewMarket(feed, zap.NewNop())
	mint := solana.NewWallet().PublicKey()
	require.NoError(t, m.CreatePool(mint, solana.NewWallet().PublicKey(), testDeposit, testSupply))

	// The crossing trade itself succeeds; the gate check inside it cannot
	// reach the oracle, so the flag stays down.
	_, err := m.Buy(ctx, mint, 20*ledger.LamportsPerSol, 0)
	require.NoError(t, err)

	graduated, err := m.Graduated(mint)
	require.NoError(t, err)
	require.False(t, graduated, "oracle outage must not graduate the pool")

	// Still down: the re-check reports the outage instead of guessing.
	err = m.Reevaluate(ctx, mint)
	require.ErrorContains(t, err, "failed to get oracle price")

	// Feed is back; no further trade is needed to flip the flag.
	require.NoError(t, m.Reevaluate(ctx, mint))
	graduated, err = m.Graduated(mint)
	require.NoError(t, err)
	assert.True(t, graduated)
}

type flakyOracle struct {
	failures int
	price    float64
}

func (o *flakyOracle) NativeUSDPrice(context.Context) (float64, error) {
	if o.failures > 0 {
		o.failures--
		return 0, errors.New("price feed unreachable")
	}
	return o.price, nil
}
