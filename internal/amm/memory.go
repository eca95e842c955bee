// =============================
// File: internal/amm/memory.go
// =============================
package amm

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/ledger"
)

// SwapFeeBps is the trading fee retained by the pool on every swap.
// Fees compound into reserves, so LP shares appreciate and harvesting a
// slice of them realizes the accumulated fees.
const SwapFeeBps = 30

// pool is one constant-product native/token pair.
type pool struct {
	native   uint64
	token    uint64
	lpSupply uint64
}

// MemoryRouter is an in-process constant-product router keyed by token mint.
type MemoryRouter struct {
	mu     sync.Mutex
	pools  map[solana.PublicKey]*pool
	logger *zap.Logger
}

// NewMemoryRouter creates an empty router.
func NewMemoryRouter(logger *zap.Logger) *MemoryRouter {
	return &MemoryRouter{
		pools:  make(map[solana.PublicKey]*pool),
		logger: logger.Named("amm"),
	}
}

// CreatePool seeds a pool and mints sqrt(native*token) LP shares, the
// standard initial-liquidity geometric mean.
func (r *MemoryRouter) CreatePool(mint solana.PublicKey, nativeAmount, tokenAmount uint64) (uint64, error) {
	if nativeAmount == 0 || tokenAmount == 0 {
		return 0, ErrZeroLiquidity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pools[mint]; ok {
		return 0, ErrPoolExists
	}

	product := new(big.Int).Mul(
		new(big.Int).SetUint64(nativeAmount),
		new(big.Int).SetUint64(tokenAmount),
	)
	lp := new(big.Int).Sqrt(product)
	if !lp.IsUint64() || lp.Uint64() == 0 {
		return 0, fmt.Errorf("invalid initial lp supply for pool %s", mint.String())
	}

	r.pools[mint] = &pool{
		native:   nativeAmount,
		token:    tokenAmount,
		lpSupply: lp.Uint64(),
	}

	r.logger.Info("External pool created",
		zap.String("mint", mint.String()),
		zap.String("native_reserve_sol", ledger.SolString(nativeAmount)),
		zap.Uint64("token_reserve", tokenAmount),
		zap.Uint64("lp_supply", lp.Uint64()))

	return lp.Uint64(), nil
}

// RemoveLiquidity burns lpShares and pays out both legs pro rata, rounded
// down so the pool can never be over-drawn.
func (r *MemoryRouter) RemoveLiquidity(mint solana.PublicKey, lpShares uint64) (uint64, uint64, error) {
	if lpShares == 0 {
		return 0, 0, ErrInsufficientLP
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[mint]
	if !ok {
		return 0, 0, ErrPoolNotFound
	}
	if lpShares > p.lpSupply {
		return 0, 0, ErrExcessiveRemoval
	}

	nativeOut, err := ledger.MulDiv(p.native, lpShares, p.lpSupply)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute native leg: %w", err)
	}
	tokenOut, err := ledger.MulDiv(p.token, lpShares, p.lpSupply)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to compute token leg: %w", err)
	}

	p.native -= nativeOut
	p.token -= tokenOut
	p.lpSupply -= lpShares

	return nativeOut, tokenOut, nil
}

// SwapNativeForTokens applies the constant-product formula with the fee
// taken on the input side.
func (r *MemoryRouter) SwapNativeForTokens(mint solana.PublicKey, nativeIn, minTokensOut uint64) (uint64, error) {
	return r.swap(mint, nativeIn, minTokensOut, true)
}

// SwapTokensForNative is the reverse direction.
func (r *MemoryRouter) SwapTokensForNative(mint solana.PublicKey, tokensIn, minNativeOut uint64) (uint64, error) {
	return r.swap(mint, tokensIn, minNativeOut, false)
}

func (r *MemoryRouter) swap(mint solana.PublicKey, amountIn, minOut uint64, nativeIn bool) (uint64, error) {
	if amountIn == 0 {
		return 0, ErrZeroSwapAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[mint]
	if !ok {
		return 0, ErrPoolNotFound
	}
	if p.native == 0 || p.token == 0 {
		return 0, ErrEmptyReserves
	}

	inReserve, outReserve := p.native, p.token
	if !nativeIn {
		inReserve, outReserve = p.token, p.native
	}

	// out = y * a' / (x + a') with a' = a * (1 - fee)
	effectiveIn := amountIn - ledger.ShareCeil(amountIn, SwapFeeBps)
	num := new(big.Int).Mul(new(big.Int).SetUint64(outReserve), new(big.Int).SetUint64(effectiveIn))
	den := new(big.Int).Add(new(big.Int).SetUint64(inReserve), new(big.Int).SetUint64(effectiveIn))
	out := new(big.Int).Quo(num, den)
	if !out.IsUint64() {
		return 0, fmt.Errorf("swap output overflow for pool %s", mint.String())
	}
	amountOut := out.Uint64()

	if amountOut < minOut {
		return 0, fmt.Errorf("%w: got %d, want at least %d", ErrSlippageExceeded, amountOut, minOut)
	}
	if amountOut >= outReserve {
		return 0, ErrEmptyReserves
	}

	if nativeIn {
		p.native += amountIn
		p.token -= amountOut
	} else {
		p.token += amountIn
		p.native -= amountOut
	}

	return amountOut, nil
}

// PoolReserves returns the current snapshot.
func (r *MemoryRouter) PoolReserves(mint solana.PublicKey) (Reserves, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pools[mint]
	if !ok {
		return Reserves{}, ErrPoolNotFound
	}
	return Reserves{Native: p.native, Token: p.token, LPSupply: p.lpSupply}, nil
}
