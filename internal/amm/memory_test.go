package amm

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter() *MemoryRouter {
	return NewMemoryRouter(zap.NewNop())
}

func TestCreatePool(t *testing.T) {
	r := newTestRouter()
	mint := solana.NewWallet().PublicKey()

	lp, err := r.CreatePool(mint, 16_000_000_000, 4_000_000_000)
	require.NoError(t, err)
	// sqrt(16e9 * 4e9) = 8e9
	assert.Equal(t, uint64(8_000_000_000), lp)

	_, err = r.CreatePool(mint, 1, 1)
	assert.ErrorIs(t, err, ErrPoolExists)

	_, err = r.CreatePool(solana.NewWallet().PublicKey(), 0, 1)
	assert.ErrorIs(t, err, ErrZeroLiquidity)
}

func TestSwapMovesReservesAndKeepsFee(t *testing.T) {
	r := newTestRouter()
	mint := solana.NewWallet().PublicKey()

	_, err := r.CreatePool(mint, 1_000_000_000, 1_000_000_000)
	require.NoError(t, err)

	out, err := r.SwapNativeForTokens(mint, 100_000_000, 0)
	require.NoError(t, err)

	// With a 0.3% input fee the output must be below the no-fee quote
	// y*a/(x+a) = 90_909_090 and above the quote minus a generous margin.
	assert.Less(t, out, uint64(90_909_091))
	assert.Greater(t, out, uint64(90_600_000))

	res, err := r.PoolReserves(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_100_000_000), res.Native)
	assert.Equal(t, uint64(1_000_000_000)-out, res.Token)

	// k must not decrease: the fee stays in the pool.
	assert.GreaterOrEqual(t, res.Native*res.Token/1_000_000_000, uint64(1_000_000_000))
}

func TestSwapSlippageGuard(t *testing.T) {
	r := newTestRouter()
	mint := solana.NewWallet().PublicKey()

	_, err := r.CreatePool(mint, 1_000_000_000, 1_000_000_000)
	require.NoError(t, err)

	_, err = r.SwapNativeForTokens(mint, 100_000_000, 95_000_000)
	assert.ErrorIs(t, err, ErrSlippageExceeded)

	// Failed swap must not move reserves.
	res, err := r.PoolReserves(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), res.Native)
	assert.Equal(t, uint64(1_000_000_000), res.Token)
}

func TestRemoveLiquidityProRata(t *testing.T) {
	r := newTestRouter()
	mint := solana.NewWallet().PublicKey()

	lp, err := r.CreatePool(mint, 1_000_000, 4_000_000)
	require.NoError(t, err)

	native, tokens, err := r.RemoveLiquidity(mint, lp/2)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000), native)
	assert.Equal(t, uint64(2_000_000), tokens)

	res, err := r.PoolReserves(mint)
	require.NoError(t, err)
	assert.Equal(t, lp-lp/2, res.LPSupply)

	_, _, err = r.RemoveLiquidity(mint, res.LPSupply+1)
	assert.ErrorIs(t, err, ErrExcessiveRemoval)
}

func TestLPAppreciatesFromFees(t *testing.T) {
	r := newTestRouter()
	mint := solana.NewWallet().PublicKey()

	lp, err := r.CreatePool(mint, 1_000_000_000, 1_000_000_000)
	require.NoError(t, err)

	// Round-trip volume leaves fee value inside the reserves.
	for i := 0; i < 10; i++ {
		out, err := r.SwapNativeForTokens(mint, 50_000_000, 0)
		require.NoError(t, err)
		_, err = r.SwapTokensForNative(mint, out, 0)
		require.NoError(t, err)
	}

	native, _, err := r.RemoveLiquidity(mint, lp)
	require.NoError(t, err)
	assert.Greater(t, native, uint64(1_000_000_000), "full withdrawal must realize accrued fees")
}

func TestPoolNotFound(t *testing.T) {
	r := newTestRouter()
	mint := solana.NewWallet().PublicKey()

	_, err := r.SwapNativeForTokens(mint, 1, 0)
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, _, err = r.RemoveLiquidity(mint, 1)
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, err = r.PoolReserves(mint)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}
