// =============================
// File: internal/launch/manager.go
// =============================

// Package launch is the top-level orchestrator: it owns the fundraising
// state machine (contribution window, claims, refunds, founder vesting)
// and the graduation workflow that moves liquidity to the external pool.
package launch

import (
	"errors"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/amm"
	"github.com/rovshanmuradov/token-launchpad/internal/curve"
	"github.com/rovshanmuradov/token-launchpad/internal/custody"
	"github.com/rovshanmuradov/token-launchpad/internal/events"
	"github.com/rovshanmuradov/token-launchpad/internal/token"
)

// Mode selects the fundraising path of a launch.
type Mode string

const (
	ModeProjectRaise  Mode = "PROJECT_RAISE"
	ModeInstantLaunch Mode = "INSTANT_LAUNCH"
)

const (
	// RaiseWindow is the fixed contribution window. Deliberately not
	// configurable: a bounded window limits front-running and stale
	// commitments.
	RaiseWindow = 24 * time.Hour

	// PerWalletCapLamports is the fixed anti-whale contribution cap per
	// wallet, independent of raise size.
	PerWalletCapLamports = 4_440_000_000 // 4.44 SOL

	// Tokenomics, in bps of total supply.
	ContributorPoolBps   = 7000
	FounderAllocationBps = 2000
	LiquidityTokenBps    = 1000

	// FounderImmediateBps is the slice of the founder allocation released
	// immediately; the remainder vests linearly.
	FounderImmediateBps = 1000

	// RaiseLiquidityBps is the slice of raised capital committed as the
	// native liquidity leg at graduation; the remainder is creator
	// proceeds.
	RaiseLiquidityBps = 8000

	// PlatformFeeBps is deducted from the native liquidity leg at
	// graduation.
	PlatformFeeBps = 500
)

// Error taxonomy. Window, state, authorization and economic violations are
// all normal outcomes surfaced to the caller with a stable reason.
var (
	ErrLaunchNotFound        = errors.New("launch not found")
	ErrInvalidParams         = errors.New("invalid launch parameters")
	ErrWrongMode             = errors.New("operation not valid for launch mode")
	ErrDeadlinePassed        = errors.New("raise deadline passed")
	ErrRaiseAlreadyCompleted = errors.New("raise already completed")
	ErrRaiseNotCompleted     = errors.New("raise not completed")
	ErrPerWalletCapExceeded  = errors.New("per-wallet contribution cap exceeded")
	ErrRaiseMaximumExceeded  = errors.New("contribution exceeds raise maximum")
	ErrAlreadyClaimed        = errors.New("already claimed")
	ErrAlreadyRefunded       = errors.New("already refunded")
	ErrNoContribution        = errors.New("no contribution from this wallet")
	ErrRaiseStillActive      = errors.New("raise still active")
	ErrRaiseWasSuccessful    = errors.New("raise was successful, refunds unavailable")
	ErrAlreadyGraduated      = errors.New("launch already graduated")
	ErrNotEligible           = errors.New("launch not eligible for graduation")
	ErrNotCreator            = errors.New("caller is not the launch creator")
	ErrTradingUnavailable    = errors.New("trading not available for this launch")
)

// CreateParams are the creator-supplied launch inputs.
type CreateParams struct {
	Name            string
	Symbol          string
	MetadataURI     string
	TotalSupply     uint64
	RaiseTarget     uint64 // lamports, PROJECT_RAISE only
	RaiseMaximum    uint64 // lamports, PROJECT_RAISE only
	VestingDuration time.Duration
	BurnLP          bool
}

// contribution is the per-(launch, contributor) record.
type contribution struct {
	amount   uint64
	claimed  bool
	refunded bool
}

// state is the full mutable record of one launch. All transitions happen
// under its mutex, so no partial state is ever visible.
type state struct {
	mu sync.Mutex

	mint    solana.PublicKey
	creator solana.PublicKey
	mode    Mode
	params  CreateParams

	createdAt     time.Time
	raiseDeadline time.Time

	totalRaised      uint64
	raiseCompleted   bool
	raiseCompletedAt time.Time

	contributions map[solana.PublicKey]*contribution

	founderAllocation uint64
	founderImmediate  uint64
	founderClaimed    uint64
	contributorPool   uint64
	liquidityTokens   uint64

	graduated       bool
	creatorProceeds uint64
	tokensBurned    bool
}

// Manager owns every launch, keyed by token mint.
type Manager struct {
	mu       sync.RWMutex
	launches map[solana.PublicKey]*state

	tokens *token.Registry
	market *curve.Market
	router amm.Router
	vault  *custody.Vault
	bus    *events.Bus

	// escrow holds undistributed launch tokens; venue mirrors the token
	// balance deposited into the external pool.
	escrow solana.PublicKey
	venue  solana.PublicKey

	logger *zap.Logger
	now    func() time.Time
}

// NewManager wires the launch manager against its collaborators.
func NewManager(tokens *token.Registry, market *curve.Market, router amm.Router, vault *custody.Vault, bus *events.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		launches: make(map[solana.PublicKey]*state),
		tokens:   tokens,
		market:   market,
		router:   router,
		vault:    vault,
		bus:      bus,
		escrow:   solana.NewWallet().PublicKey(),
		venue:    solana.NewWallet().PublicKey(),
		logger:   logger.Named("launch"),
		now:      time.Now,
	}
}

// WithClock overrides the manager's clock. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) publish(event events.Event) {
	if m.bus != nil {
		m.bus.Publish(event)
	}
}

func (m *Manager) get(mint solana.PublicKey) (*state, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.launches[mint]
	if !ok {
		return nil, ErrLaunchNotFound
	}
	return s, nil
}
