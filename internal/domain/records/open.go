package records

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/platform/db"
)

// Open builds the reader selected by cfg.DataSource. The returned close func
// releases any pool and is safe to call once.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (SnapshotReader, func(), error) {
	noop := func() {}

	switch cfg.DataSource {
	case config.SourceMemory, "":
		logger.Info().Str("source", config.SourceMemory).Msg("serving built-in sample records")
		return NewMemorySnapshotRepo(SampleSnapshot()), noop, nil

	case config.SourceFixture:
		r := NewFixtureSnapshotRepo(cfg.FixturePath)
		if err := r.(Pinger).Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("open fixture: %w", err)
		}
		logger.Info().Str("source", config.SourceFixture).Str("path", cfg.FixturePath).Msg("reading records from fixture")
		return r, noop, nil

	case config.SourcePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("source", config.SourcePostgres).Str("schema", cfg.DBSchema).Msg("connected to database")
		return NewSnapshotRepoPG(pool), pool.Close, nil

	case config.SourceMySQL:
		sqlDB, err := db.NewMySQL(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("source", config.SourceMySQL).Msg("connected to database")
		return NewSnapshotRepoMySQL(sqlDB), func() { sqlDB.Close() }, nil

	case config.SourceSQLite:
		gdb, err := OpenSQLite(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite handle: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, nil, fmt.Errorf("ping sqlite: %w", err)
		}
		logger.Info().Str("source", config.SourceSQLite).Str("path", cfg.DatabaseURL).Msg("opened embedded store")
		return NewSnapshotRepoSQLite(gdb), func() { sqlDB.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}
