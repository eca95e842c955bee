// =============================
// File: internal/amm/router.go
// =============================

// Package amm models the external liquidity venue the launchpad graduates
// into. The engine only ever talks to the Router interface; the in-memory
// implementation exists so graduation and harvesting have a real
// constant-product collaborator to settle against.
package amm

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrPoolNotFound     = errors.New("amm pool not found")
	ErrPoolExists       = errors.New("amm pool already exists")
	ErrZeroLiquidity    = errors.New("liquidity amounts must be positive")
	ErrInsufficientLP   = errors.New("insufficient lp shares")
	ErrSlippageExceeded = errors.New("slippage exceeded minimum output")
	ErrEmptyReserves    = errors.New("pool has empty reserves")
	ErrZeroSwapAmount   = errors.New("swap amount must be positive")
	ErrExcessiveRemoval = errors.New("removal exceeds pool lp supply")
)

// Reserves is a point-in-time snapshot of an external pool.
type Reserves struct {
	Native   uint64
	Token    uint64
	LPSupply uint64
}

// Router is the boundary to the external liquidity pool router/factory.
type Router interface {
	// CreatePool seeds a new native/token pool and returns the minted LP shares.
	CreatePool(mint solana.PublicKey, nativeAmount, tokenAmount uint64) (uint64, error)
	// RemoveLiquidity burns lpShares and returns the pro-rata native and token legs.
	RemoveLiquidity(mint solana.PublicKey, lpShares uint64) (nativeOut, tokenOut uint64, err error)
	// SwapNativeForTokens trades native in for tokens out, reverting below minOut.
	SwapNativeForTokens(mint solana.PublicKey, nativeIn, minTokensOut uint64) (uint64, error)
	// SwapTokensForNative trades tokens in for native out, reverting below minOut.
	SwapTokensForNative(mint solana.PublicKey, tokensIn, minNativeOut uint64) (uint64, error)
	// PoolReserves returns the current reserve snapshot.
	PoolReserves(mint solana.PublicKey) (Reserves, error)
}
