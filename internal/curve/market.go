// =============================
// File: internal/curve/market.go
// =============================

// Package curve implements the internal bonding-curve market: one
// virtual-reserve constant-product pool per token, priced in native units,
// with a dual reserve/market-cap graduation gate.
package curve

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/ledger"
	"github.com/rovshanmuradov/token-launchpad/internal/oracle"
	"github.com/rovshanmuradov/token-launchpad/internal/token"
)

const (
	// InitialVirtualNativeLamports seeds every new pool's virtual native
	// reserve so the opening price is nonzero before any buy.
	InitialVirtualNativeLamports = 30 * ledger.LamportsPerSol

	// CreatorFeeBps is the slice of every trade's native amount accrued to
	// the launch creator, paid out at graduation.
	CreatorFeeBps = 100

	// GraduationReserveLamports is the real native reserve leg of the dual
	// graduation gate.
	GraduationReserveLamports = 15 * ledger.LamportsPerSol

	// GraduationMarketCapUSD is the USD market-cap leg of the dual gate.
	// Both legs must hold simultaneously.
	GraduationMarketCapUSD = 90_000.0

	// MarketCapToleranceBps bounds the allowed disagreement between the two
	// independent market-cap derivations.
	MarketCapToleranceBps = 10
)

var (
	ErrPoolNotFound       = errors.New("curve pool not found")
	ErrPoolExists         = errors.New("curve pool already exists")
	ErrAlreadyGraduated   = errors.New("pool already graduated")
	ErrNotGraduated       = errors.New("pool has not graduated")
	ErrZeroTrade          = errors.New("trade amount must be positive")
	ErrSlippageExceeded   = errors.New("slippage exceeded minimum output")
	ErrInsufficientTokens = errors.New("insufficient token reserve")
	ErrMarketCapMismatch  = errors.New("market cap derivations disagree beyond tolerance")
)

// pool is the full mutable state of one bonding curve.
type pool struct {
	mu sync.Mutex

	mint        solana.PublicKey
	creator     solana.PublicKey
	totalSupply uint64

	virtualNative uint64 // lamports, includes the initial virtual seed
	virtualToken  uint64 // raw token units
	realNative    uint64 // lamports actually held, surrendered at graduation
	tokenReserve  uint64 // raw tokens actually held

	creatorFees uint64 // lamports owed to the creator
	graduated   bool
	surrendered bool
}

// Info is the read view of a pool.
type Info struct {
	Mint                  solana.PublicKey
	Creator               solana.PublicKey
	NativeReserve         uint64 // real lamports
	VirtualNativeReserve  uint64
	TokenReserve          uint64
	PriceNative           float64 // SOL per whole token
	MarketCapLamports     uint64
	MarketCapUSD          float64
	CreatorFees           uint64
	Graduated             bool
	GraduationProgressBps uint64
}

// Market owns every bonding-curve pool, keyed by token mint.
type Market struct {
	mu     sync.RWMutex
	pools  map[solana.PublicKey]*pool
	oracle oracle.Oracle
	logger *zap.Logger
}

// NewMarket creates an empty market backed by the given price oracle.
func NewMarket(o oracle.Oracle, logger *zap.Logger) *Market {
	return &Market{
		pools:  make(map[solana.PublicKey]*pool),
		oracle: o,
		logger: logger.Named("curve"),
	}
}

// CreatePool registers a curve for mint holding tokenDeposit of a
// totalSupply token. The market is the token custodian from this point on.
func (m *Market) CreatePool(mint, creator solana.PublicKey, tokenDeposit, totalSupply uint64) error {
	if tokenDeposit == 0 || totalSupply == 0 {
		return fmt.Errorf("token deposit and supply must be positive")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pools[mint]; ok {
		return ErrPoolExists
	}

	m.pools[mint] = &pool{
		mint:          mint,
		creator:       creator,
		totalSupply:   totalSupply,
		virtualNative: InitialVirtualNativeLamports,
		virtualToken:  tokenDeposit,
		tokenReserve:  tokenDeposit,
	}

	m.logger.Info("Bonding curve created",
		zap.String("mint", mint.String()),
		zap.String("creator", creator.String()),
		zap.Uint64("token_deposit", tokenDeposit),
		zap.Uint64("total_supply", totalSupply))

	return nil
}

func (m *Market) get(mint solana.PublicKey) (*pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[mint]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// Buy trades nativeIn lamports for tokens, reverting if the output falls
// below minTokensOut. The graduation gate is re-evaluated atomically with
// the trade that could cross it.
func (m *Market) Buy(ctx context.Context, mint solana.PublicKey, nativeIn, minTokensOut uint64) (uint64, error) {
	if nativeIn == 0 {
		return 0, ErrZeroTrade
	}

	p, err := m.get(mint)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.graduated {
		return 0, ErrAlreadyGraduated
	}

	fee := ledger.ShareCeil(nativeIn, CreatorFeeBps)
	effective := nativeIn - fee

	tokensOut, err := curveOutput(p.virtualToken, p.virtualNative, effective)
	if err != nil {
		return 0, err
	}
	if tokensOut < minTokensOut {
		return 0, fmt.Errorf("%w: got %d, want at least %d", ErrSlippageExceeded, tokensOut, minTokensOut)
	}
	if tokensOut > p.tokenReserve {
		return 0, ErrInsufficientTokens
	}

	p.virtualNative += effective
	p.virtualToken -= tokensOut
	p.realNative += effective
	p.tokenReserve -= tokensOut
	p.creatorFees += fee

	if err := m.evaluateGraduationLocked(ctx, p); err != nil {
		m.logger.Warn("Graduation check failed after buy",
			zap.String("mint", mint.String()),
			zap.Error(err))
	}

	m.logger.Debug("Curve buy",
		zap.String("mint", mint.String()),
		zap.String("native_in_sol", ledger.SolString(nativeIn)),
		zap.Uint64("tokens_out", tokensOut),
		zap.Bool("graduated", p.graduated))

	return tokensOut, nil
}

// Sell trades tokensIn for lamports, reverting below minNativeOut.
func (m *Market) Sell(ctx context.Context, mint solana.PublicKey, tokensIn, minNativeOut uint64) (uint64, error) {
	if tokensIn == 0 {
		return 0, ErrZeroTrade
	}

	p, err := m.get(mint)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.graduated {
		return 0, ErrAlreadyGraduated
	}

	gross, err := curveOutput(p.virtualNative, p.virtualToken, tokensIn)
	if err != nil {
		return 0, err
	}
	if gross > p.realNative {
		// Virtual reserves can quote more than the pool actually holds
		// while the curve is young; cap at the real balance.
		gross = p.realNative
	}

	fee := ledger.ShareCeil(gross, CreatorFeeBps)
	nativeOut := gross - fee
	if nativeOut < minNativeOut {
		return 0, fmt.Errorf("%w: got %d, want at least %d", ErrSlippageExceeded, nativeOut, minNativeOut)
	}

	p.virtualNative -= gross
	p.virtualToken += tokensIn
	p.realNative -= gross
	p.tokenReserve += tokensIn
	p.creatorFees += fee

	if err := m.evaluateGraduationLocked(ctx, p); err != nil {
		m.logger.Warn("Graduation check failed after sell",
			zap.String("mint", mint.String()),
			zap.Error(err))
	}

	return nativeOut, nil
}

// curveOutput computes out = outReserve * in / (inReserve + in), floor.
func curveOutput(outReserve, inReserve, in uint64) (uint64, error) {
	num := new(big.Int).Mul(new(big.Int).SetUint64(outReserve), new(big.Int).SetUint64(in))
	den := new(big.Int).Add(new(big.Int).SetUint64(inReserve), new(big.Int).SetUint64(in))
	if den.Sign() == 0 {
		return 0, fmt.Errorf("curve has empty reserves")
	}
	out := new(big.Int).Quo(num, den)
	if !out.IsUint64() {
		return 0, fmt.Errorf("curve output overflow")
	}
	return out.Uint64(), nil
}

// marketCapLamports derives market cap from virtual reserves using pure
// integer arithmetic: cap = virtualNative * totalSupply / virtualToken.
func (p *pool) marketCapLamports() (uint64, error) {
	return ledger.MulDiv(p.virtualNative, p.totalSupply, p.virtualToken)
}

// priceNative is SOL per whole token, derived from virtual reserves.
func (p *pool) priceNative() float64 {
	if p.virtualToken == 0 {
		return 0
	}
	solReserve := float64(p.virtualNative) / float64(ledger.LamportsPerSol)
	tokenReserve := float64(p.virtualToken) / math.Pow10(token.Decimals)
	return solReserve / tokenReserve
}

// reconciledMarketCap computes the market cap both ways (integer
// reserves-implied and float price-times-supply) and fails if they
// disagree beyond tolerance. Independent trading and graduation code paths
// both go through here, so a drift bug in either derivation is caught
// instead of silently mispricing the gate.
func (p *pool) reconciledMarketCap() (uint64, error) {
	capInt, err := p.marketCapLamports()
	if err != nil {
		return 0, fmt.Errorf("failed to compute reserves-implied market cap: %w", err)
	}

	supplyWhole := float64(p.totalSupply) / math.Pow10(token.Decimals)
	capFloat := uint64(p.priceNative() * supplyWhole * float64(ledger.LamportsPerSol))

	return reconcileCaps(capInt, capFloat)
}

// reconcileCaps accepts the integer derivation only while the float
// derivation stays inside the tolerance band.
func reconcileCaps(capInt, capFloat uint64) (uint64, error) {
	if !ledger.WithinToleranceBps(capInt, capFloat, MarketCapToleranceBps) {
		return 0, fmt.Errorf("%w: reserves-implied %d, price-times-supply %d",
			ErrMarketCapMismatch, capInt, capFloat)
	}
	return capInt, nil
}

// evaluateGraduationLocked flips the graduated flag when BOTH gate legs
// hold: real native reserve and USD market cap. The flag is monotonic.
// Caller must hold p.mu.
func (m *Market) evaluateGraduationLocked(ctx context.Context, p *pool) error {
	if p.graduated {
		return nil
	}
	if p.realNative < GraduationReserveLamports {
		return nil
	}

	capLamports, err := p.reconciledMarketCap()
	if err != nil {
		return err
	}

	usdRate, err := m.oracle.NativeUSDPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get oracle price: %w", err)
	}

	capUSD := float64(capLamports) / float64(ledger.LamportsPerSol) * usdRate
	if capUSD < GraduationMarketCapUSD {
		return nil
	}

	p.graduated = true
	m.logger.Info("Pool reached graduation",
		zap.String("mint", p.mint.String()),
		zap.String("native_reserve_sol", ledger.SolString(p.realNative)),
		zap.Float64("market_cap_usd", capUSD))

	return nil
}

// Reevaluate re-runs the graduation gate outside a trade. Covers the case
// where the oracle was unreachable during the crossing trade: a quiet pool
// would otherwise sit eligible-but-ungraduated until the next trade.
func (m *Market) Reevaluate(ctx context.Context, mint solana.PublicKey) error {
	p, err := m.get(mint)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return m.evaluateGraduationLocked(ctx, p)
}

// Graduated reports whether the pool has crossed the dual gate.
func (m *Market) Graduated(mint solana.PublicKey) (bool, error) {
	p, err := m.get(mint)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graduated, nil
}

// Surrender hands the pool's real reserves and accrued creator fees to the
// caller exactly once. Only callable after graduation.
func (m *Market) Surrender(mint solana.PublicKey) (nativeOut, tokensOut, creatorFees uint64, err error) {
	p, err := m.get(mint)
	if err != nil {
		return 0, 0, 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.graduated {
		return 0, 0, 0, ErrNotGraduated
	}
	if p.surrendered {
		return 0, 0, 0, ErrAlreadyGraduated
	}

	nativeOut = p.realNative
	tokensOut = p.tokenReserve
	creatorFees = p.creatorFees

	p.realNative = 0
	p.tokenReserve = 0
	p.creatorFees = 0
	p.surrendered = true

	m.logger.Info("Curve reserves surrendered",
		zap.String("mint", mint.String()),
		zap.String("native_sol", ledger.SolString(nativeOut)),
		zap.Uint64("tokens", tokensOut),
		zap.String("creator_fees_sol", ledger.SolString(creatorFees)))

	return nativeOut, tokensOut, creatorFees, nil
}

// PoolInfo returns the full read view including derived price, both-ways
// market cap and graduation progress.
func (m *Market) PoolInfo(ctx context.Context, mint solana.PublicKey) (Info, error) {
	p, err := m.get(mint)
	if err != nil {
		return Info{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	capLamports, err := p.reconciledMarketCap()
	if err != nil {
		return Info{}, err
	}

	usdRate, err := m.oracle.NativeUSDPrice(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("failed to get oracle price: %w", err)
	}
	capUSD := float64(capLamports) / float64(ledger.LamportsPerSol) * usdRate

	reserveProgress := ledger.ProgressBps(p.realNative, GraduationReserveLamports)
	capProgress := uint64(ledger.BpsDenominator)
	if capUSD < GraduationMarketCapUSD {
		capProgress = uint64(capUSD / GraduationMarketCapUSD * ledger.BpsDenominator)
	}
	// Both legs gate graduation, so progress is the lagging one.
	progress := reserveProgress
	if capProgress < progress {
		progress = capProgress
	}
	if p.graduated {
		progress = ledger.BpsDenominator
	}

	return Info{
		Mint:                  p.mint,
		Creator:               p.creator,
		NativeReserve:         p.realNative,
		VirtualNativeReserve:  p.virtualNative,
		TokenReserve:          p.tokenReserve,
		PriceNative:           p.priceNative(),
		MarketCapLamports:     capLamports,
		MarketCapUSD:          capUSD,
		CreatorFees:           p.creatorFees,
		Graduated:             p.graduated,
		GraduationProgressBps: progress,
	}, nil
}
