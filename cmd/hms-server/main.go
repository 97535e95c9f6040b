package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/records"
	"github.com/hms/hms/internal/domain/reports"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/logging"
	"github.com/hms/hms/internal/platform/metrics"
	"github.com/hms/hms/internal/platform/middleware"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "hms-server",
		Short:        "Hospital records reporting server",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reportCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// loadConfig loads and validates configuration and builds the process logger.
func loadConfig(out io.Writer) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}
	logger, err := logging.New(cfg, out)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logger, nil
}

func runServer() error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}

	ctx := context.Background()
	reader, closeReader, err := records.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Str("source", cfg.DataSource).Msg("failed to open data source")
		return err
	}
	defer closeReader()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	e := newServer(cfg, logger, reader, m)

	addr := fmt.Sprintf(":%s", cfg.Port)
	go func() {
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and routes. m may be nil.
func newServer(cfg *config.Config, logger zerolog.Logger, reader records.SnapshotReader, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	if m != nil {
		e.Use(middleware.Metrics(m))
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	pinger, _ := reader.(db.Pinger)
	e.GET("/health/db", db.HealthHandler(cfg.DataSource, pinger))
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	svc := reports.NewService(reader, logger, m, cfg.DefaultCondition)
	reports.NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))

	return e
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Create or update the records tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")
			seed, _ := cmd.Flags().GetString("seed")

			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			if schema == "" {
				schema = cfg.DBSchema
			}

			ctx := context.Background()
			switch cfg.DataSource {
			case config.SourcePostgres:
				if seed != "" {
					return fmt.Errorf("--seed is only supported for the %s source", config.SourceSQLite)
				}
				pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, schema)
				if err != nil {
					return err
				}
				defer pool.Close()

				migrator, err := db.NewMigrator(pool, dir, schema)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", migrator.Schema())
				count, err := migrator.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil

			case config.SourceSQLite:
				gdb, err := records.OpenSQLite(cfg.DatabaseURL, logger)
				if err != nil {
					return err
				}
				if sqlDB, err := gdb.DB(); err == nil {
					defer sqlDB.Close()
				}
				if err := records.AutoMigrateSQLite(gdb); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Migrated embedded store: %s\n", cfg.DatabaseURL)
				if seed == "" {
					return nil
				}
				snap, err := records.NewFixtureSnapshotRepo(seed).ReadSnapshot(ctx)
				if err != nil {
					return err
				}
				if err := records.ImportSnapshotSQLite(ctx, gdb, snap); err != nil {
					return fmt.Errorf("seed failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d patient(s), %d history row(s), %d treatment row(s).\n",
					len(snap.Patients), len(snap.MedicalHistories), len(snap.TreatmentRecords))
				return nil

			default:
				return fmt.Errorf("migrate is not supported for the %q source", cfg.DataSource)
			}
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	upCmd.Flags().String("seed", "", "Fixture file to import after migrating (sqlite only)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, _, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			if cfg.DataSource != config.SourcePostgres {
				return fmt.Errorf("migrate status requires the %s source", config.SourcePostgres)
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			if schema == "" {
				schema = cfg.DBSchema
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, schema)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator, err := db.NewMigrator(pool, dir, schema)
			if err != nil {
				return err
			}
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return renderMigrationStatus(cmd.OutOrStdout(), migrator.Schema(), statuses)
		},
	}
	statusCmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run reports from the command line",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			return renderDefinitions(cmd.OutOrStdout(), reports.Catalog, output)
		},
	}
	listCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
	cmd.AddCommand(listCmd)

	runCmd := &cobra.Command{
		Use:   "run <report-id>",
		Short: "Evaluate a report against the configured data source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			if !validFormat(output) {
				return fmt.Errorf("unknown output format %q", output)
			}
			condition, _ := cmd.Flags().GetString("condition")
			treatmentType, _ := cmd.Flags().GetString("treatment-type")

			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			reader, closeReader, err := records.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeReader()

			svc := reports.NewService(reader, logger, nil, cfg.DefaultCondition)
			return runReport(ctx, cmd.OutOrStdout(), svc, args[0], map[string]string{
				reports.ParamCondition:     condition,
				reports.ParamTreatmentType: treatmentType,
			}, output)
		},
	}
	runCmd.Flags().String("condition", "", "Medical condition (defaults to DEFAULT_CONDITION)")
	runCmd.Flags().String("treatment-type", "", "Treatment type for treatment-success-rate")
	runCmd.Flags().StringP("output", "o", formatTable, "Output format: table, json or yaml")
	cmd.AddCommand(runCmd)

	return cmd
}

func runReport(ctx context.Context, w io.Writer, svc *reports.Service, id string, params map[string]string, format string) error {
	report, err := svc.Run(ctx, id, params)
	if err != nil {
		return err
	}
	return renderReport(w, reports.FindReport(id), report, format)
}
