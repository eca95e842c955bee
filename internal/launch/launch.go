// =============================
// File: internal/launch/launch.go
// =============================
package launch

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/events"
	"github.com/rovshanmuradov/token-launchpad/internal/ledger"
	"github.com/rovshanmuradov/token-launchpad/internal/token"
)

func validateParams(p CreateParams, raiseMode bool) error {
	if p.TotalSupply == 0 {
		return fmt.Errorf("%w: supply must be positive", ErrInvalidParams)
	}
	if p.VestingDuration <= 0 {
		return fmt.Errorf("%w: vesting duration must be positive", ErrInvalidParams)
	}
	if raiseMode {
		if p.RaiseTarget == 0 || p.RaiseMaximum == 0 {
			return fmt.Errorf("%w: raise target and maximum must be positive", ErrInvalidParams)
		}
		if p.RaiseTarget > p.RaiseMaximum {
			return fmt.Errorf("%w: raise target exceeds maximum", ErrInvalidParams)
		}
	}
	return nil
}

// newState mints the launch token into escrow and carves the fixed
// allocations out of the supply.
func (m *Manager) newState(creator solana.PublicKey, params CreateParams, mode Mode) (*state, error) {
	mint, err := m.tokens.Create(token.Metadata{
		Name:   params.Name,
		Symbol: params.Symbol,
		URI:    params.MetadataURI,
	}, params.TotalSupply, m.escrow)
	if err != nil {
		return nil, fmt.Errorf("failed to mint launch token: %w", err)
	}

	founder := ledger.ShareFloor(params.TotalSupply, FounderAllocationBps)
	now := m.now()

	s := &state{
		mint:              mint,
		creator:           creator,
		mode:              mode,
		params:            params,
		createdAt:         now,
		contributions:     make(map[solana.PublicKey]*contribution),
		founderAllocation: founder,
		founderImmediate:  ledger.ShareFloor(founder, FounderImmediateBps),
		contributorPool:   ledger.ShareFloor(params.TotalSupply, ContributorPoolBps),
		liquidityTokens:   ledger.ShareFloor(params.TotalSupply, LiquidityTokenBps),
	}
	return s, nil
}

// CreateLaunch opens a PROJECT_RAISE launch: contributors pay into a raise
// pool during a fixed 24h window and claim tokens after completion.
func (m *Manager) CreateLaunch(creator solana.PublicKey, params CreateParams) (solana.PublicKey, error) {
	if err := validateParams(params, true); err != nil {
		return solana.PublicKey{}, err
	}

	s, err := m.newState(creator, params, ModeProjectRaise)
	if err != nil {
		return solana.PublicKey{}, err
	}
	s.raiseDeadline = s.createdAt.Add(RaiseWindow)

	m.mu.Lock()
	m.launches[s.mint] = s
	m.mu.Unlock()

	m.logger.Info("Launch created",
		zap.String("mint", s.mint.String()),
		zap.String("creator", creator.String()),
		zap.String("symbol", params.Symbol),
		zap.String("raise_target_sol", ledger.SolString(params.RaiseTarget)),
		zap.Time("raise_deadline", s.raiseDeadline))

	m.publish(events.LaunchCreatedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.LaunchCreated, EventTime: s.createdAt},
		Mint:        s.mint,
		Creator:     creator,
		Symbol:      params.Symbol,
		TotalSupply: params.TotalSupply,
		RaiseTarget: params.RaiseTarget,
	})

	return s.mint, nil
}

// CreateInstantLaunch opens an INSTANT_LAUNCH: everything except the
// founder allocation goes straight onto the bonding curve, optionally
// with an initial creator buy.
func (m *Manager) CreateInstantLaunch(ctx context.Context, creator solana.PublicKey, params CreateParams, initialBuy uint64) (solana.PublicKey, error) {
	if err := validateParams(params, false); err != nil {
		return solana.PublicKey{}, err
	}

	s, err := m.newState(creator, params, ModeInstantLaunch)
	if err != nil {
		return solana.PublicKey{}, err
	}

	curveDeposit := params.TotalSupply - s.founderAllocation
	if err := m.market.CreatePool(s.mint, creator, curveDeposit, params.TotalSupply); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to create bonding curve: %w", err)
	}

	m.mu.Lock()
	m.launches[s.mint] = s
	m.mu.Unlock()

	m.logger.Info("Instant launch created",
		zap.String("mint", s.mint.String()),
		zap.String("creator", creator.String()),
		zap.String("symbol", params.Symbol),
		zap.Uint64("curve_deposit", curveDeposit))

	m.publish(events.LaunchCreatedEvent{
		BaseEvent:   events.BaseEvent{EventType: events.InstantLaunchCreated, EventTime: s.createdAt},
		Mint:        s.mint,
		Creator:     creator,
		Symbol:      params.Symbol,
		TotalSupply: params.TotalSupply,
		Instant:     true,
	})

	if initialBuy > 0 {
		if _, err := m.BuyTokens(ctx, s.mint, creator, initialBuy, 0); err != nil {
			return s.mint, fmt.Errorf("initial buy failed: %w", err)
		}
	}

	return s.mint, nil
}

// Contribute pays amount lamports into a raise. Acceptance and the
// target-reached flip are one atomic step under the launch lock, so two
// concurrent contributions cannot both believe they completed the raise.
func (m *Manager) Contribute(mint, contributor solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: contribution must be positive", ErrInvalidParams)
	}

	s, err := m.get(mint)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeProjectRaise {
		return ErrWrongMode
	}

	now := m.now()
	if s.raiseCompleted {
		return ErrRaiseAlreadyCompleted
	}
	if !now.Before(s.raiseDeadline) {
		return ErrDeadlinePassed
	}

	c := s.contributions[contributor]
	if c == nil {
		c = &contribution{}
		s.contributions[contributor] = c
	}

	// The cap rejects the whole contribution rather than truncating it:
	// an anti-whale control, not a rounding convenience.
	if c.amount+amount > PerWalletCapLamports {
		return fmt.Errorf("%w: %s + %s over cap %s",
			ErrPerWalletCapExceeded,
			ledger.SolString(c.amount), ledger.SolString(amount),
			ledger.SolString(PerWalletCapLamports))
	}
	if s.totalRaised+amount > s.params.RaiseMaximum {
		return ErrRaiseMaximumExceeded
	}

	c.amount += amount
	s.totalRaised += amount

	if s.totalRaised >= s.params.RaiseTarget {
		s.raiseCompleted = true
		s.raiseCompletedAt = now
	}

	m.logger.Info("Contribution accepted",
		zap.String("mint", mint.String()),
		zap.String("contributor", contributor.String()),
		zap.String("amount_sol", ledger.SolString(amount)),
		zap.String("total_raised_sol", ledger.SolString(s.totalRaised)),
		zap.Bool("raise_completed", s.raiseCompleted))

	m.publish(events.ContributionMadeEvent{
		BaseEvent:      events.BaseEvent{EventType: events.ContributionMade, EventTime: now},
		Mint:           mint,
		Contributor:    contributor,
		Amount:         amount,
		TotalRaised:    s.totalRaised,
		RaiseCompleted: s.raiseCompleted,
	})

	return nil
}

// ClaimContributorTokens pays out the contributor's pro-rata share of the
// contributor pool after a completed raise.
func (m *Manager) ClaimContributorTokens(mint, contributor solana.PublicKey) (uint64, error) {
	s, err := m.get(mint)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeProjectRaise {
		return 0, ErrWrongMode
	}
	if !s.raiseCompleted {
		return 0, ErrRaiseNotCompleted
	}

	c := s.contributions[contributor]
	if c == nil || c.amount == 0 {
		return 0, ErrNoContribution
	}
	if c.claimed {
		return 0, ErrAlreadyClaimed
	}

	tokensOut, err := ledger.MulDiv(c.amount, s.contributorPool, s.totalRaised)
	if err != nil {
		return 0, fmt.Errorf("failed to compute allocation: %w", err)
	}

	if err := m.tokens.Transfer(mint, m.escrow, contributor, tokensOut); err != nil {
		return 0, fmt.Errorf("failed to transfer allocation: %w", err)
	}
	c.claimed = true

	m.logger.Info("Contributor tokens claimed",
		zap.String("mint", mint.String()),
		zap.String("contributor", contributor.String()),
		zap.Uint64("tokens", tokensOut))

	return tokensOut, nil
}

// ClaimRefund returns the full contribution after a failed raise. The
// first refund also burns the launch's undistributed tokens.
func (m *Manager) ClaimRefund(mint, contributor solana.PublicKey) (uint64, error) {
	s, err := m.get(mint)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != ModeProjectRaise {
		return 0, ErrWrongMode
	}
	if s.raiseCompleted {
		return 0, ErrRaiseWasSuccessful
	}
	if m.now().Before(s.raiseDeadline) {
		return 0, ErrRaiseStillActive
	}

	c := s.contributions[contributor]
	if c == nil || c.amount == 0 {
		return 0, ErrNoContribution
	}
	if c.refunded {
		return 0, ErrAlreadyRefunded
	}

	c.refunded = true
	refund := c.amount

	m.burnFailedRaiseTokensLocked(s)

	m.logger.Info("Refund claimed",
		zap.String("mint", mint.String()),
		zap.String("contributor", contributor.String()),
		zap.String("amount_sol", ledger.SolString(refund)))

	return refund, nil
}

// burnFailedRaiseTokensLocked destroys everything except the founder's
// immediate release once a raise has definitively failed. Runs at most
// once per launch. Caller must hold s.mu.
func (m *Manager) burnFailedRaiseTokensLocked(s *state) {
	if s.tokensBurned {
		return
	}

	burn := s.contributorPool + s.liquidityTokens + (s.founderAllocation - s.founderImmediate)
	if err := m.tokens.Burn(s.mint, m.escrow, burn); err != nil {
		m.logger.Error("Failed-raise token burn failed",
			zap.String("mint", s.mint.String()),
			zap.Error(err))
		return
	}
	s.tokensBurned = true

	m.publish(events.TokensBurnedEvent{
		BaseEvent: events.BaseEvent{EventType: events.TokensBurned, EventTime: m.now()},
		Mint:      s.mint,
		Amount:    burn,
	})
}

// founderClaimableLocked computes the total founder tokens vested so far:
// the immediate release plus the linear portion. Monotone in time.
// Caller must hold s.mu.
func (m *Manager) founderClaimableLocked(s *state) uint64 {
	claimable := s.founderImmediate

	vestStart := s.createdAt
	if s.mode == ModeProjectRaise {
		if !s.raiseCompleted {
			// Before completion (or after failure) only the immediate
			// release is available.
			return claimable
		}
		vestStart = s.raiseCompletedAt
	}

	vesting := s.founderAllocation - s.founderImmediate
	elapsed := m.now().Sub(vestStart)
	if elapsed >= s.params.VestingDuration {
		return s.founderAllocation
	}
	if elapsed <= 0 {
		return claimable
	}

	vested, err := ledger.MulDiv(vesting, uint64(elapsed), uint64(s.params.VestingDuration))
	if err != nil {
		return claimable
	}
	return claimable + vested
}

// ClaimFounderTokens releases the founder allocation vested since the
// last claim. Safe to call repeatedly; pays zero when nothing new vested.
func (m *Manager) ClaimFounderTokens(mint, caller solana.PublicKey) (uint64, error) {
	s, err := m.get(mint)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.creator.Equals(caller) {
		return 0, ErrNotCreator
	}

	claimable := m.founderClaimableLocked(s)
	if claimable <= s.founderClaimed {
		return 0, nil
	}
	delta := claimable - s.founderClaimed

	if err := m.tokens.Transfer(mint, m.escrow, s.creator, delta); err != nil {
		return 0, fmt.Errorf("failed to transfer founder tokens: %w", err)
	}
	s.founderClaimed = claimable

	m.logger.Info("Founder tokens claimed",
		zap.String("mint", mint.String()),
		zap.Uint64("tokens", delta),
		zap.Uint64("total_claimed", s.founderClaimed))

	return delta, nil
}
