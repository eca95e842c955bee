// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/token-launchpad/internal/storage"
	"github.com/rovshanmuradov/token-launchpad/internal/storage/models"
)

// gormLogger adapts zap to GORM's logger.Interface.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// postgresStorage implements the Storage interface.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

// RunMigrations applies GORM AutoMigrate under an advisory lock so only
// one replica migrates at a time.
func (p *postgresStorage) RunMigrations() error {
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(101)").Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(101)")

	err = p.db.AutoMigrate(
		&models.Launch{},
		&models.Contribution{},
		&models.Trade{},
		&models.Lock{},
		&models.Harvest{},
		&models.Event{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (p *postgresStorage) SaveLaunch(ctx context.Context, launch *models.Launch) error {
	return p.db.WithContext(ctx).Create(launch).Error
}

func (p *postgresStorage) GetLaunch(ctx context.Context, mint string) (*models.Launch, error) {
	var launch models.Launch
	err := p.db.WithContext(ctx).Where("mint = ?", mint).First(&launch).Error
	if err != nil {
		return nil, err
	}
	return &launch, nil
}

func (p *postgresStorage) ListLaunches(ctx context.Context, limit, offset int) ([]*models.Launch, error) {
	var launches []*models.Launch
	err := p.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&launches).Error
	return launches, err
}

func (p *postgresStorage) MarkRaiseCompleted(ctx context.Context, mint string, totalRaised uint64) error {
	return p.db.WithContext(ctx).Model(&models.Launch{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"raise_completed": true,
			"total_raised":    totalRaised,
		}).Error
}

func (p *postgresStorage) MarkGraduated(ctx context.Context, mint string) error {
	now := time.Now().UTC()
	return p.db.WithContext(ctx).Model(&models.Launch{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"graduated":    true,
			"graduated_at": now,
		}).Error
}

func (p *postgresStorage) SaveContribution(ctx context.Context, c *models.Contribution) error {
	return p.db.WithContext(ctx).Create(c).Error
}

func (p *postgresStorage) ListContributions(ctx context.Context, mint string, limit, offset int) ([]*models.Contribution, error) {
	var contributions []*models.Contribution
	err := p.db.WithContext(ctx).
		Where("mint = ?", mint).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&contributions).Error
	return contributions, err
}

func (p *postgresStorage) SaveTrade(ctx context.Context, t *models.Trade) error {
	return p.db.WithContext(ctx).Create(t).Error
}

func (p *postgresStorage) ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := p.db.WithContext(ctx).
		Where("mint = ?", mint).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	return trades, err
}

func (p *postgresStorage) SaveLock(ctx context.Context, l *models.Lock) error {
	return p.db.WithContext(ctx).Create(l).Error
}

func (p *postgresStorage) MarkLockInactive(ctx context.Context, mint string) error {
	return p.db.WithContext(ctx).Model(&models.Lock{}).
		Where("mint = ?", mint).
		Update("active", false).Error
}

func (p *postgresStorage) SaveHarvest(ctx context.Context, h *models.Harvest) error {
	return p.db.WithContext(ctx).Create(h).Error
}

func (p *postgresStorage) ListHarvests(ctx context.Context, mint string, limit, offset int) ([]*models.Harvest, error) {
	var harvests []*models.Harvest
	err := p.db.WithContext(ctx).
		Where("mint = ?", mint).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&harvests).Error
	return harvests, err
}

func (p *postgresStorage) SaveEvent(ctx context.Context, e *models.Event) error {
	return p.db.WithContext(ctx).Create(e).Error
}
