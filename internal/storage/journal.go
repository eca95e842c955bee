// internal/storage/journal.go
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-launchpad/internal/events"
	"github.com/rovshanmuradov/token-launchpad/internal/storage/models"
)

// Journal subscribes to the event bus and projects events into storage.
// The engine never calls storage directly: a slow or down database delays
// indexing, not launches or trades.
type Journal struct {
	store   Storage
	logger  *zap.Logger
	timeout time.Duration
}

// NewJournal creates a journal writing through store.
func NewJournal(store Storage, logger *zap.Logger) *Journal {
	return &Journal{
		store:   store,
		logger:  logger.Named("journal"),
		timeout: 5 * time.Second,
	}
}

// Attach subscribes the journal to every event type it projects.
func (j *Journal) Attach(bus *events.Bus) {
	for _, et := range []events.EventType{
		events.LaunchCreated,
		events.InstantLaunchCreated,
		events.ContributionMade,
		events.TradeExecuted,
		events.TokensBurned,
		events.Graduated,
		events.LPBurned,
		events.LPLocked,
		events.LPUnlocked,
		events.FeesHarvested,
	} {
		bus.SubscribeFunc(et, j.handle)
	}
}

func (j *Journal) handle(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.journalRaw(ctx, event); err != nil {
		j.logger.Error("Failed to journal event",
			zap.String("type", string(event.Type())),
			zap.Error(err))
		return err
	}
	if err := j.project(ctx, event); err != nil {
		j.logger.Error("Failed to project event",
			zap.String("type", string(event.Type())),
			zap.Error(err))
		return err
	}
	return nil
}

// journalRaw appends the event verbatim to the journal table.
func (j *Journal) journalRaw(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return j.store.SaveEvent(ctx, &models.Event{
		EventID:    uuid.NewString(),
		Type:       string(event.Type()),
		Mint:       eventMint(event),
		Payload:    string(payload),
		OccurredAt: event.Timestamp(),
	})
}

// project maintains the typed query tables.
func (j *Journal) project(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LaunchCreatedEvent:
		mode := "PROJECT_RAISE"
		if e.Instant {
			mode = "INSTANT_LAUNCH"
		}
		return j.store.SaveLaunch(ctx, &models.Launch{
			Mint:        e.Mint.String(),
			Creator:     e.Creator.String(),
			Mode:        mode,
			Symbol:      e.Symbol,
			TotalSupply: e.TotalSupply,
			RaiseTarget: e.RaiseTarget,
		})

	case events.ContributionMadeEvent:
		if err := j.store.SaveContribution(ctx, &models.Contribution{
			Mint:           e.Mint.String(),
			Contributor:    e.Contributor.String(),
			Amount:         e.Amount,
			TotalRaised:    e.TotalRaised,
			RaiseCompleted: e.RaiseCompleted,
		}); err != nil {
			return err
		}
		if e.RaiseCompleted {
			return j.store.MarkRaiseCompleted(ctx, e.Mint.String(), e.TotalRaised)
		}
		return nil

	case events.TradeExecutedEvent:
		return j.store.SaveTrade(ctx, &models.Trade{
			Mint:      e.Mint.String(),
			Wallet:    e.Wallet.String(),
			Side:      e.Side,
			Venue:     e.Venue,
			AmountIn:  e.AmountIn,
			AmountOut: e.AmountOut,
		})

	case events.GraduatedEvent:
		return j.store.MarkGraduated(ctx, e.Mint.String())

	case events.LPLockedEvent:
		return j.store.SaveLock(ctx, &models.Lock{
			Mint:       e.Mint.String(),
			Creator:    e.Creator.String(),
			LPShares:   e.LPShares,
			UnlockTime: e.UnlockTime,
			Active:     true,
		})

	case events.LPUnlockedEvent:
		return j.store.MarkLockInactive(ctx, e.Mint.String())

	case events.FeesHarvestedEvent:
		return j.store.SaveHarvest(ctx, &models.Harvest{
			Mint:          e.Mint.String(),
			LPRemoved:     e.LPRemoved,
			Proceeds:      e.Proceeds,
			CreatorShare:  e.CreatorShare,
			PlatformShare: e.PlatformShare,
		})
	}

	// Remaining event types only live in the raw journal.
	return nil
}

// eventMint extracts the mint column for indexed lookups.
func eventMint(event events.Event) string {
	switch e := event.(type) {
	case events.LaunchCreatedEvent:
		return e.Mint.String()
	case events.ContributionMadeEvent:
		return e.Mint.String()
	case events.TradeExecutedEvent:
		return e.Mint.String()
	case events.TokensBurnedEvent:
		return e.Mint.String()
	case events.GraduatedEvent:
		return e.Mint.String()
	case events.LPBurnedEvent:
		return e.Mint.String()
	case events.LPLockedEvent:
		return e.Mint.String()
	case events.LPUnlockedEvent:
		return e.Mint.String()
	case events.FeesHarvestedEvent:
		return e.Mint.String()
	}
	return ""
}
