package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/consultorio/consultorio/internal/config"
	"github.com/consultorio/consultorio/internal/domain/appointment"
	"github.com/consultorio/consultorio/internal/domain/billing"
	"github.com/consultorio/consultorio/internal/domain/catalog"
	"github.com/consultorio/consultorio/internal/domain/doctor"
	"github.com/consultorio/consultorio/internal/domain/patient"
	"github.com/consultorio/consultorio/internal/platform/auth"
	"github.com/consultorio/consultorio/internal/platform/db"
	"github.com/consultorio/consultorio/internal/platform/logging"
	"github.com/consultorio/consultorio/internal/platform/mail"
	"github.com/consultorio/consultorio/internal/platform/middleware"
	"github.com/consultorio/consultorio/internal/platform/reporting"
	"github.com/consultorio/consultorio/internal/platform/web"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "consultorio-server",
		Short: "Clinic management web application",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// openPool loads the config and connects, for the one-shot commands.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema, dir := migrateTarget(cmd, cfg)
			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	addMigrateFlags(upCmd)
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema, dir := migrateTarget(cmd, cfg)
			statuses, err := db.NewMigrator(pool, dir).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.Changed {
						status = "changed"
					}
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	addMigrateFlags(statusCmd)
	cmd.AddCommand(statusCmd)

	return cmd
}

func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", "", "Target schema (defaults to DB_SCHEMA)")
	cmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
}

func migrateTarget(cmd *cobra.Command, cfg *config.Config) (schema, dir string) {
	schema, _ = cmd.Flags().GetString("schema")
	dir, _ = cmd.Flags().GetString("dir")
	if schema == "" {
		schema = cfg.DBSchema
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	return schema, dir
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage access tokens",
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the access token of a token type",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenType, _ := cmd.Flags().GetString("type")
			token, _ := cmd.Flags().GetString("token")
			if !auth.ValidTokenType(tokenType) {
				return fmt.Errorf("--type must be one of %v", auth.TokenTypes)
			}
			if token == "" {
				return fmt.Errorf("--token is required")
			}

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := auth.NewAuthenticator(auth.NewTokenStorePG(pool)).SetToken(ctx, tokenType, token); err != nil {
				return err
			}
			fmt.Printf("Access token for %s updated.\n", tokenType)
			return nil
		},
	}
	setCmd.Flags().String("type", "", "Token type (admin or reception)")
	setCmd.Flags().String("token", "", "New access token")

	cmd.AddCommand(setCmd)
	return cmd
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid config")
	}

	// Logger
	logger := logging.New(cfg)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBSchema)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	renderer, err := web.NewRenderer(cfg.ClinicName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse templates")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = web.HTTPErrorHandler

	metrics := middleware.NewMetrics(prometheus.NewRegistry())

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.BodyLimit("1M"))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/metrics"))
	e.Use(echomw.CSRFWithConfig(echomw.CSRFConfig{
		TokenLookup:    "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "consultorio_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))

	// Public endpoints
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	if cfg.MetricsEnabled {
		e.GET("/metrics", metrics.Handler())
	}

	// Session-protected application
	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)
	authenticator := auth.NewAuthenticator(auth.NewTokenStorePG(pool))
	app := e.Group("", auth.RequireSession(sessions, authenticator), middleware.Audit(logger))
	auth.NewHandler(authenticator, sessions).RegisterRoutes(e, app)

	tx := db.NewTransactor(pool)

	// Catalog
	catalogSvc := catalog.NewService(
		catalog.NewRoomRepoPG(pool),
		catalog.NewTypeRepoPG(pool),
		catalog.NewInsuranceRepoPG(pool),
		catalog.NewInstitutionRepoPG(pool),
		cfg.PhoneRegion,
	)
	catalog.NewHandler(catalogSvc).RegisterRoutes(app)

	// Patients and doctors
	patientSvc := patient.NewService(patient.NewRepoPG(pool), cfg.PhoneRegion)
	patient.NewHandler(patientSvc, catalogSvc).RegisterRoutes(app)

	doctorSvc := doctor.NewService(doctor.NewRepoPG(pool), cfg.PhoneRegion)
	doctor.NewHandler(doctorSvc).RegisterRoutes(app)

	// Agenda
	appointmentSvc := appointment.NewService(appointment.NewRepoPG(pool), tx, doctorSvc)
	appointment.NewHandler(appointmentSvc, doctorSvc, catalogSvc, patientSvc).RegisterRoutes(app)

	// Billing
	billingSvc := billing.NewService(
		billing.NewInvoiceRepoPG(pool),
		billing.NewPaymentRepoPG(pool),
		tx,
		mail.New(mail.FromConfig(cfg)),
		billing.Clinic{
			Name:           cfg.ClinicName,
			Address:        cfg.ClinicAddress,
			CurrencySymbol: cfg.CurrencySymbol,
		},
	)
	billing.NewHandler(billingSvc, billingLookups{catalogSvc, patientSvc}).RegisterRoutes(app)

	// Reports
	reportSvc := reporting.NewService(reporting.NewRepoPG(pool), appointmentSvc)
	reporting.NewHandler(reportSvc, doctorSvc, cfg.CurrencySymbol).RegisterRoutes(app)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
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
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// billingLookups joins the catalog and patient services for the invoice
// form selects.
type billingLookups struct {
	catalog  *catalog.Service
	patients *patient.Service
}

func (l billingLookups) InsuranceCompanyOptions(ctx context.Context) ([][2]string, error) {
	return l.catalog.InsuranceCompanyOptions(ctx)
}

func (l billingLookups) PatientLabel(ctx context.Context, id uuid.UUID) (string, error) {
	return l.patients.PatientLabel(ctx, id)
}
