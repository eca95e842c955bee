// =============================
// File: internal/launch/graduate.go
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

// GraduateToExternalPool moves a launch's liquidity into the external AMM
// and hands the LP shares to custody (or burns them). Permissionless:
// anyone may trigger it once the launch is eligible. Terminal state.
func (m *Manager) GraduateToExternalPool(ctx context.Context, mint solana.PublicKey) error {
	s, err := m.get(mint)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.graduated {
		return ErrAlreadyGraduated
	}

	var (
		liquidityNative uint64 // lamports before the platform fee
		tokenDeposit    uint64
		creatorProceeds uint64
		surrender       bool
	)

	switch s.mode {
	case ModeProjectRaise:
		if !s.raiseCompleted {
			return ErrRaiseNotCompleted
		}
		liquidityNative = ledger.ShareFloor(s.totalRaised, RaiseLiquidityBps)
		tokenDeposit = s.liquidityTokens
		creatorProceeds = s.totalRaised - liquidityNative

	case ModeInstantLaunch:
		// The gate may have been crossed while the oracle was down, so
		// re-check it here rather than relying on the last trade's verdict.
		if err := m.market.Reevaluate(ctx, mint); err != nil {
			m.logger.Warn("Graduation gate re-check failed",
				zap.String("mint", mint.String()),
				zap.Error(err))
		}
		curveDone, err := m.market.Graduated(mint)
		if err != nil {
			return err
		}
		if !curveDone {
			return ErrNotEligible
		}
		// Trading is halted once the curve graduates and this manager is
		// the only writer, so the snapshot cannot drift before surrender.
		info, err := m.market.PoolInfo(ctx, mint)
		if err != nil {
			return err
		}
		liquidityNative = info.NativeReserve
		tokenDeposit = info.TokenReserve
		creatorProceeds = info.CreatorFees
		surrender = true

	default:
		return ErrWrongMode
	}

	platformFee := ledger.ShareCeil(liquidityNative, PlatformFeeBps)
	nativeDeposit := liquidityNative - platformFee
	if nativeDeposit == 0 || tokenDeposit == 0 {
		return ErrNotEligible
	}

	// External call first: if the router rejects the pool, every local
	// book stays untouched and the whole graduation can be retried.
	lpShares, err := m.router.CreatePool(mint, nativeDeposit, tokenDeposit)
	if err != nil {
		return fmt.Errorf("failed to create external pool: %w", err)
	}

	if err := m.tokens.Transfer(mint, m.escrow, m.venue, tokenDeposit); err != nil {
		return fmt.Errorf("failed to move liquidity tokens: %w", err)
	}

	// Point of no return: cannot fail for an eligible, unsurrendered pool.
	if surrender {
		if _, _, _, err := m.market.Surrender(mint); err != nil {
			return fmt.Errorf("failed to surrender curve reserves: %w", err)
		}
	}

	if err := m.vault.Lock(mint, lpShares, s.creator, s.creator, s.params.BurnLP); err != nil {
		return fmt.Errorf("failed to lock lp shares: %w", err)
	}

	s.graduated = true
	s.creatorProceeds = creatorProceeds

	m.logger.Info("Launch graduated",
		zap.String("mint", mint.String()),
		zap.String("mode", string(s.mode)),
		zap.String("native_deposit_sol", ledger.SolString(nativeDeposit)),
		zap.Uint64("token_deposit", tokenDeposit),
		zap.String("platform_fee_sol", ledger.SolString(platformFee)),
		zap.Uint64("lp_shares", lpShares),
		zap.Bool("lp_burned", s.params.BurnLP))

	m.publish(events.GraduatedEvent{
		BaseEvent:     events.BaseEvent{EventType: events.Graduated, EventTime: m.now()},
		Mint:          mint,
		NativeDeposit: nativeDeposit,
		TokenDeposit:  tokenDeposit,
		PlatformFee:   platformFee,
		LPShares:      lpShares,
		LPBurned:      s.params.BurnLP,
	})

	return nil
}

// BuyTokens routes a buy to wherever the launch currently trades: the
// bonding curve before graduation, the external pool after.
func (m *Manager) BuyTokens(ctx context.Context, mint, buyer solana.PublicKey, nativeIn, minTokensOut uint64) (uint64, error) {
	s, err := m.get(mint)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.graduated:
		tokensOut, err := m.router.SwapNativeForTokens(mint, nativeIn, minTokensOut)
		if err != nil {
			return 0, err
		}
		if err := m.tokens.Transfer(mint, m.venue, buyer, tokensOut); err != nil {
			return 0, fmt.Errorf("failed to settle buy: %w", err)
		}
		m.publishTrade(mint, buyer, "buy", "amm", nativeIn, tokensOut)
		return tokensOut, nil

	case s.mode == ModeInstantLaunch:
		tokensOut, err := m.market.Buy(ctx, mint, nativeIn, minTokensOut)
		if err != nil {
			return 0, err
		}
		if err := m.tokens.Transfer(mint, m.escrow, buyer, tokensOut); err != nil {
			return 0, fmt.Errorf("failed to settle buy: %w", err)
		}
		m.publishTrade(mint, buyer, "buy", "curve", nativeIn, tokensOut)
		return tokensOut, nil

	default:
		return 0, ErrTradingUnavailable
	}
}

// SellTokens is the sell-side counterpart of BuyTokens.
func (m *Manager) SellTokens(ctx context.Context, mint, seller solana.PublicKey, tokensIn, minNativeOut uint64) (uint64, error) {
	s, err := m.get(mint)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := m.tokens.BalanceOf(mint, seller)
	if err != nil {
		return 0, err
	}
	if balance < tokensIn {
		return 0, fmt.Errorf("%w: balance %d below %d", token.ErrInsufficientBalance, balance, tokensIn)
	}

	switch {
	case s.graduated:
		nativeOut, err := m.router.SwapTokensForNative(mint, tokensIn, minNativeOut)
		if err != nil {
			return 0, err
		}
		if err := m.tokens.Transfer(mint, seller, m.venue, tokensIn); err != nil {
			return 0, fmt.Errorf("failed to settle sell: %w", err)
		}
		m.publishTrade(mint, seller, "sell", "amm", tokensIn, nativeOut)
		return nativeOut, nil

	case s.mode == ModeInstantLaunch:
		nativeOut, err := m.market.Sell(ctx, mint, tokensIn, minNativeOut)
		if err != nil {
			return 0, err
		}
		if err := m.tokens.Transfer(mint, seller, m.escrow, tokensIn); err != nil {
			return 0, fmt.Errorf("failed to settle sell: %w", err)
		}
		m.publishTrade(mint, seller, "sell", "curve", tokensIn, nativeOut)
		return nativeOut, nil

	default:
		return 0, ErrTradingUnavailable
	}
}

func (m *Manager) publishTrade(mint, wallet solana.PublicKey, side, venue string, amountIn, amountOut uint64) {
	m.publish(events.TradeExecutedEvent{
		BaseEvent: events.BaseEvent{EventType: events.TradeExecuted, EventTime: m.now()},
		Mint:      mint,
		Wallet:    wallet,
		Side:      side,
		Venue:     venue,
		AmountIn:  amountIn,
		AmountOut: amountOut,
	})
}
