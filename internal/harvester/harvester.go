// internal/harvester/harvester.go

// Package harvester runs the scheduled fee sweep: on every tick it walks
// the active LP locks and harvests whichever ones are off cooldown.
package harvester

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/token-launchpad/internal/custody"
	"github.com/rovshanmuradov/token-launchpad/internal/ledger"
)

// maxConcurrentHarvests bounds the sweep fan-out.
const maxConcurrentHarvests = 4

// Harvester drives permissionless harvests on a cron schedule.
type Harvester struct {
	vault    *custody.Vault
	cron     *cron.Cron
	schedule string
	logger   *zap.Logger
}

// New creates a harvester; schedule is a cron expression (descriptors
// like "@hourly" work too).
func New(vault *custody.Vault, schedule string, logger *zap.Logger) *Harvester {
	return &Harvester{
		vault:    vault,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger.Named("harvester"),
	}
}

// Start registers the sweep job and starts the scheduler.
func (h *Harvester) Start(ctx context.Context) error {
	_, err := h.cron.AddFunc(h.schedule, func() {
		if err := h.Sweep(ctx); err != nil {
			h.logger.Error("Harvest sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	h.cron.Start()
	h.logger.Info("Harvester started", zap.String("schedule", h.schedule))
	return nil
}

// Stop halts the scheduler and waits for any running sweep jobs.
func (h *Harvester) Stop() {
	stopCtx := h.cron.Stop()
	<-stopCtx.Done()
	h.logger.Info("Harvester stopped")
}

// Sweep harvests every active lock that is currently eligible. Locks on
// cooldown or with dust balances are skipped, not failed.
func (h *Harvester) Sweep(ctx context.Context) error {
	mints := h.vault.ActiveMints()
	if len(mints) == 0 {
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentHarvests)

	for _, mint := range mints {
		mint := mint
		g.Go(func() error {
			result, err := h.vault.HarvestFees(mint)
			switch {
			case errors.Is(err, custody.ErrCooldownActive),
				errors.Is(err, custody.ErrNothingToHarvest),
				errors.Is(err, custody.ErrLockInactive):
				return nil
			case err != nil:
				h.logger.Warn("Harvest failed",
					zap.String("mint", mint.String()),
					zap.Error(err))
				return err
			}

			h.logger.Info("Harvested",
				zap.String("mint", mint.String()),
				zap.Uint64("lp_removed", result.LPRemoved),
				zap.String("proceeds_sol", ledger.SolString(result.Proceeds)),
				zap.String("creator_share_sol", ledger.SolString(result.CreatorShare)))
			return nil
		})
	}

	return g.Wait()
}
