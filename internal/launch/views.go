// =============================
// File: internal/launch/views.go
// =============================
package launch

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/token-launchpad/internal/ledger"
)

// LaunchInfo is the public read view of a launch.
type LaunchInfo struct {
	Mint              solana.PublicKey
	Creator           solana.PublicKey
	Mode              Mode
	Name              string
	Symbol            string
	MetadataURI       string
	TotalSupply       uint64
	CreatedAt         time.Time
	RaiseDeadline     time.Time
	RaiseTarget       uint64
	RaiseMaximum      uint64
	TotalRaised       uint64
	RaiseProgressBps  uint64
	RaiseCompleted    bool
	Contributors      int
	FounderAllocation uint64
	FounderClaimed    uint64
	ContributorPool   uint64
	Graduated         bool
	CreatorProceeds   uint64
}

// ContributionInfo is the per-wallet read view.
type ContributionInfo struct {
	Contributor solana.PublicKey
	Amount      uint64
	Claimed     bool
	Refunded    bool
}

// ClaimableAmounts reports what a wallet could claim right now, without
// mutating anything.
type ClaimableAmounts struct {
	ContributorTokens uint64
	RefundLamports    uint64
	FounderTokens     uint64
}

// GetLaunchInfo returns the launch read view.
func (m *Manager) GetLaunchInfo(mint solana.PublicKey) (LaunchInfo, error) {
	s, err := m.get(mint)
	if err != nil {
		return LaunchInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := LaunchInfo{
		Mint:              s.mint,
		Creator:           s.creator,
		Mode:              s.mode,
		Name:              s.params.Name,
		Symbol:            s.params.Symbol,
		MetadataURI:       s.params.MetadataURI,
		TotalSupply:       s.params.TotalSupply,
		CreatedAt:         s.createdAt,
		RaiseDeadline:     s.raiseDeadline,
		RaiseTarget:       s.params.RaiseTarget,
		RaiseMaximum:      s.params.RaiseMaximum,
		TotalRaised:       s.totalRaised,
		RaiseCompleted:    s.raiseCompleted,
		Contributors:      len(s.contributions),
		FounderAllocation: s.founderAllocation,
		FounderClaimed:    s.founderClaimed,
		ContributorPool:   s.contributorPool,
		Graduated:         s.graduated,
		CreatorProceeds:   s.creatorProceeds,
	}
	if s.mode == ModeProjectRaise {
		info.RaiseProgressBps = ledger.ProgressBps(s.totalRaised, s.params.RaiseTarget)
	}
	return info, nil
}

// GetContribution returns one wallet's contribution record.
func (m *Manager) GetContribution(mint, contributor solana.PublicKey) (ContributionInfo, error) {
	s, err := m.get(mint)
	if err != nil {
		return ContributionInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.contributions[contributor]
	if c == nil || c.amount == 0 {
		return ContributionInfo{}, ErrNoContribution
	}
	return ContributionInfo{
		Contributor: contributor,
		Amount:      c.amount,
		Claimed:     c.claimed,
		Refunded:    c.refunded,
	}, nil
}

// GetClaimableAmounts previews every claim a wallet could make against a
// launch at the current time. Read-only.
func (m *Manager) GetClaimableAmounts(mint, caller solana.PublicKey) (ClaimableAmounts, error) {
	s, err := m.get(mint)
	if err != nil {
		return ClaimableAmounts{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out ClaimableAmounts

	if s.mode == ModeProjectRaise {
		if c := s.contributions[caller]; c != nil && c.amount > 0 {
			switch {
			case s.raiseCompleted && !c.claimed:
				tokens, err := ledger.MulDiv(c.amount, s.contributorPool, s.totalRaised)
				if err == nil {
					out.ContributorTokens = tokens
				}
			case !s.raiseCompleted && !m.now().Before(s.raiseDeadline) && !c.refunded:
				out.RefundLamports = c.amount
			}
		}
	}

	if s.creator.Equals(caller) {
		claimable := m.founderClaimableLocked(s)
		if claimable > s.founderClaimed {
			out.FounderTokens = claimable - s.founderClaimed
		}
	}

	return out, nil
}

// Mints returns every known launch mint. Order is unspecified.
func (m *Manager) Mints() []solana.PublicKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mints := make([]solana.PublicKey, 0, len(m.launches))
	for mint := range m.launches {
		mints = append(mints, mint)
	}
	return mints
}
