package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hce/hce/internal/config"
	"github.com/hce/hce/internal/domain/account"
	"github.com/hce/hce/internal/domain/assignment"
	"github.com/hce/hce/internal/domain/session"
	"github.com/hce/hce/internal/platform/auth"
	"github.com/hce/hce/internal/platform/db"
	"github.com/hce/hce/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hce-server",
		Short: "Electronic health record auth and access API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo accounts (password: secret)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := account.NewRepoPG(pool)
			documento := "30111222"
			matricula := "MP-1001"
			demos := []*account.Account{
				{Username: "admin1", Email: "admin1@example.com", Role: auth.RoleAdmin, IsActive: true},
				{Username: "doctor1", Email: "doctor1@example.com", Role: auth.RolePractitioner, IsActive: true, Matricula: &matricula},
				{Username: "paciente1", Email: "paciente1@example.com", Role: auth.RolePatient, IsActive: true, DocumentoID: &documento},
			}

			for _, a := range demos {
				if _, err := repo.ByUsername(ctx, a.Username); err == nil {
					fmt.Printf("%s already exists, skipping\n", a.Username)
					continue
				} else if !errors.Is(err, account.ErrNotFound) {
					return err
				}
				a.HashedPassword = auth.LegacySeedHash
				if err := repo.Create(ctx, a); err != nil {
					return fmt.Errorf("seed %s: %w", a.Username, err)
				}
				fmt.Printf("created %s (%s)\n", a.Username, a.Role)
			}
			return nil
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Token codec and credential hashing
	codec, err := auth.NewCodec(auth.CodecConfig{
		Secret:    []byte(cfg.JWTSecretKey),
		Algorithm: cfg.JWTAlgorithm,
		AccessTTL: cfg.AccessTokenTTL(),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build token codec")
	}
	hasher := auth.NewHasher(cfg.PBKDF2Iterations)

	// Refresh token store
	refreshRepo := auth.NewRefreshTokenRepoPG(pool)
	refreshMgr := auth.NewRefreshManager(refreshRepo, cfg.RefreshTokenTTL())

	// Domain repositories
	accountRepo := account.NewRepoPG(pool)
	directory := account.NewDirectory(accountRepo)
	assignments := assignment.NewRepoPG(pool)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	e.Use(middleware.RateLimit(rateLimitCfg))

	// Identity middleware guards everything not on the public allowlist
	e.Use(auth.Middleware(auth.MiddlewareConfig{
		Codec:     codec,
		Allowlist: auth.NewAllowlist(cfg.PublicPaths),
		Debug:     cfg.IsDev(),
	}))

	// Session endpoints
	sessionSvc := session.NewService(accountRepo, hasher, codec, refreshMgr, logger)
	sessionHandler := session.NewHandler(sessionSvc)
	sessionHandler.RegisterRoutes(e.Group("/auth"))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Admin maintenance surface
	adminGroup := e.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.POST("/refresh-tokens/purge", func(c echo.Context) error {
		purged, err := refreshRepo.DeleteExpired(c.Request().Context(), time.Now().UTC())
		if err != nil {
			logger.Error().Err(err).Msg("purge expired refresh tokens")
			return echo.NewHTTPError(http.StatusInternalServerError, "purge failed")
		}
		return c.JSON(http.StatusOK, map[string]int64{"purged": purged})
	})

	// Patient record surface, guarded by ownership or assignment
	patientGroup := e.Group("/patients", auth.RequirePatientAccess(directory, assignments))
	patientGroup.GET("/:documento_id/summary", func(c echo.Context) error {
		identity := auth.IdentityFromContext(c.Request().Context())
		if identity == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
		}
		return c.JSON(http.StatusOK, map[string]string{
			"documento_id": c.Param("documento_id"),
			"accessed_by":  identity.UserID,
			"role":         identity.Role,
		})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
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
