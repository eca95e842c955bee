// =============================
// File: internal/token/registry.go
// =============================
package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Decimals is the fixed precision for launchpad tokens, matching the
// 6-decimal convention of pump.fun style mints.
const Decimals = 6

var (
	ErrTokenNotFound       = errors.New("token not found")
	ErrInvalidSupply       = errors.New("supply must be positive")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// Metadata describes a token mint.
type Metadata struct {
	Name   string
	Symbol string
	URI    string
}

// mint holds the full mutable state of a single fixed-supply token.
type mint struct {
	meta     Metadata
	supply   uint64
	balances map[solana.PublicKey]uint64
}

// Registry is the token mint allocator. Every launch owns exactly one
// fixed-supply mint; the registry is the only writer of balances.
type Registry struct {
	mu     sync.RWMutex
	mints  map[solana.PublicKey]*mint
	logger *zap.Logger
}

// NewRegistry creates an empty token registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		mints:  make(map[solana.PublicKey]*mint),
		logger: logger.Named("token_registry"),
	}
}

// Create mints a new token with the full supply credited to owner and
// returns the generated mint address.
func (r *Registry) Create(meta Metadata, supply uint64, owner solana.PublicKey) (solana.PublicKey, error) {
	if supply == 0 {
		return solana.PublicKey{}, ErrInvalidSupply
	}

	mintKey := solana.NewWallet().PublicKey()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.mints[mintKey] = &mint{
		meta:     meta,
		supply:   supply,
		balances: map[solana.PublicKey]uint64{owner: supply},
	}

	r.logger.Info("Token minted",
		zap.String("mint", mintKey.String()),
		zap.String("symbol", meta.Symbol),
		zap.Uint64("supply", supply),
		zap.String("owner", owner.String()))

	return mintKey, nil
}

// Transfer moves amount of the given mint between holders.
func (r *Registry) Transfer(mintKey, from, to solana.PublicKey, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mints[mintKey]
	if !ok {
		return ErrTokenNotFound
	}
	if m.balances[from] < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, m.balances[from], amount)
	}

	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

// Burn destroys amount from holder's balance and reduces total supply.
// Used for failed-raise cleanup and for the burn-LP launch option.
func (r *Registry) Burn(mintKey, holder solana.PublicKey, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mints[mintKey]
	if !ok {
		return ErrTokenNotFound
	}
	if m.balances[holder] < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, m.balances[holder], amount)
	}

	m.balances[holder] -= amount
	m.supply -= amount

	r.logger.Info("Tokens burned",
		zap.String("mint", mintKey.String()),
		zap.String("holder", holder.String()),
		zap.Uint64("amount", amount),
		zap.Uint64("remaining_supply", m.supply))

	return nil
}

// BalanceOf returns holder's balance of the given mint.
func (r *Registry) BalanceOf(mintKey, holder solana.PublicKey) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mints[mintKey]
	if !ok {
		return 0, ErrTokenNotFound
	}
	return m.balances[holder], nil
}

// TotalSupply returns the current (post-burn) supply of the given mint.
func (r *Registry) TotalSupply(mintKey solana.PublicKey) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mints[mintKey]
	if !ok {
		return 0, ErrTokenNotFound
	}
	return m.supply, nil
}

// Meta returns the metadata recorded at mint time.
func (r *Registry) Meta(mintKey solana.PublicKey) (Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mints[mintKey]
	if !ok {
		return Metadata{}, ErrTokenNotFound
	}
	return m.meta, nil
}
