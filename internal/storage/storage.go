// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/rovshanmuradov/token-launchpad/internal/storage/models"
)

// Storage is the persistence boundary. The engine itself never blocks on
// it; the journal feeds it from the event bus.
type Storage interface {
	// Launches
	SaveLaunch(ctx context.Context, launch *models.Launch) error
	GetLaunch(ctx context.Context, mint string) (*models.Launch, error)
	ListLaunches(ctx context.Context, limit, offset int) ([]*models.Launch, error)
	MarkRaiseCompleted(ctx context.Context, mint string, totalRaised uint64) error
	MarkGraduated(ctx context.Context, mint string) error

	// Contributions
	SaveContribution(ctx context.Context, c *models.Contribution) error
	ListContributions(ctx context.Context, mint string, limit, offset int) ([]*models.Contribution, error)

	// Trades
	SaveTrade(ctx context.Context, t *models.Trade) error
	ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error)

	// LP locks
	SaveLock(ctx context.Context, l *models.Lock) error
	MarkLockInactive(ctx context.Context, mint string) error

	// Harvests
	SaveHarvest(ctx context.Context, h *models.Harvest) error
	ListHarvests(ctx context.Context, mint string, limit, offset int) ([]*models.Harvest, error)

	// Raw event journal
	SaveEvent(ctx context.Context, e *models.Event) error

	RunMigrations() error
}
