// Copyright 2026 The Guildboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/guildboard/guildboard/internal/audit"
	"github.com/guildboard/guildboard/internal/authz"
	"github.com/guildboard/guildboard/internal/comment"
	"github.com/guildboard/guildboard/internal/config"
	"github.com/guildboard/guildboard/internal/identity"
	"github.com/guildboard/guildboard/internal/observability/logger"
	"github.com/guildboard/guildboard/internal/observability/metrics"
	"github.com/guildboard/guildboard/internal/observability/tracing"
	"github.com/guildboard/guildboard/internal/profile"
	"github.com/guildboard/guildboard/internal/session"
	"github.com/guildboard/guildboard/internal/store/postgres"
	"github.com/guildboard/guildboard/internal/store/redis"
	"github.com/guildboard/guildboard/internal/token"
	transportHTTP "github.com/guildboard/guildboard/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Observability.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		if err := runCommand(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
			slog.Error("command failed", logger.Operation(os.Args[1]), logger.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg); err != nil {
		slog.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cfg *config.Config, name string, args []string) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	switch name {
	case "migrate":
		return migrateAndSeed(ctx, db)
	case "bootstrap":
		return identity.NewBootstrapService(postgres.NewUserRepository(db), audit.NewSlogLogger()).
			Bootstrap(ctx, cfg.Bootstrap.AdminUsername)
	case "create-user":
		if len(args) != 2 {
			return errors.New("usage: create-user <username> <display-name> (password from GUILDBOARD_PASSWORD)")
		}
		svc := newIdentityService(cfg, db, audit.NewSlogLogger())
		user, err := svc.CreateUser(ctx, args[0], args[1], os.Getenv("GUILDBOARD_PASSWORD"))
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "user created", logger.UserID(user.ID), logger.Username(user.Username))
		return nil
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.InfoContext(ctx, "starting guildboard api")

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		Endpoint:       cfg.Observability.OTELEndpoint,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Observability.Environment,
		SamplingRate:   cfg.Observability.OTELSampleRate,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
		tracer, _ = tracing.New(ctx, tracing.Config{})
	}
	defer tracer.Shutdown(context.Background())

	meter, err := metrics.New(ctx, metrics.Config{Enabled: cfg.Observability.OTELEnabled}, cfg.Observability.ServiceName)
	if err != nil {
		return err
	}
	authzMetrics, err := metrics.NewAuthzMetrics(meter)
	if err != nil {
		return err
	}
	httpMetrics, err := metrics.NewHTTPMetrics(meter)
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.InfoContext(ctx, "connected to database")

	if err := migrateAndSeed(ctx, db); err != nil {
		return err
	}

	auditLogger := audit.NewSlogLogger()
	userRepo := postgres.NewUserRepository(db)

	if err := identity.NewBootstrapService(userRepo, auditLogger).Bootstrap(ctx, cfg.Bootstrap.AdminUsername); err != nil {
		slog.ErrorContext(ctx, "admin bootstrap failed", logger.Error(err))
	}

	redisClient, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()

	tokens, err := token.NewManager(cfg.Token.Secret, cfg.Token.Issuer, cfg.Token.Audience, cfg.Token.AccessTTL)
	if err != nil {
		return err
	}

	authzService := authz.NewService(
		postgres.NewPermissionRepository(db),
		postgres.NewRoleRepository(db),
		postgres.NewGrantRepository(db),
		auditLogger,
	).WithMetrics(authzMetrics)

	handler := transportHTTP.NewHandler(
		newIdentityService(cfg, db, auditLogger),
		session.NewService(redis.NewSessionRepository(redisClient), cfg.Token.RefreshTTL),
		authzService,
		comment.NewService(postgres.NewCommentRepository(db), auditLogger),
		profile.NewService(postgres.NewProfileRepository(db)),
		tokens,
		auditLogger,
	).
		WithMetrics(authzMetrics).
		WithHealthCheck("postgres", db).
		WithHealthCheck("redis", redis.Pinger{Client: redisClient})

	router := transportHTTP.NewRouter(handler, transportHTTP.RouterConfig{
		RateLimiter:    transportHTTP.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		LoginPerMinute: cfg.RateLimit.LoginPerMinute,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedHosts:   cfg.Security.AllowedHosts,
		Production:     cfg.Server.Production,
		HTTPMetrics:    httpMetrics,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func openDB(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	return postgres.New(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

// migrateAndSeed applies the schema, seeds roles on first bootstrap and
// ensures every manifest permission exists. Safe to run from every replica.
func migrateAndSeed(ctx context.Context, db *postgres.DB) error {
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}

	roles, err := authz.EnsureRolesSeeded(ctx, postgres.NewRoleRepository(db), authz.SeedRoles)
	if err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	res, err := authz.EnsureSeeded(ctx, postgres.NewPermissionRepository(db), authz.Manifest)
	if err != nil {
		return fmt.Errorf("failed to seed permission catalog: %w", err)
	}

	if roles > 0 || res.Created > 0 {
		audit.NewSlogLogger().Log(ctx, audit.Event{
			Type:     audit.TypeCatalogSeeded,
			ActorID:  audit.ActorSystemBootstrap,
			Resource: "permissions",
			Metadata: map[string]any{"roles_created": roles, "permissions_created": res.Created},
		})
	}
	slog.InfoContext(ctx, "permission catalog ready",
		logger.Component("authz"),
		slog.Int("created", res.Created),
		slog.Int("existing", res.Existing),
	)
	return nil
}

func newIdentityService(cfg *config.Config, db *postgres.DB, auditLogger audit.Logger) *identity.Service {
	hasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	grants := authz.NewService(
		postgres.NewPermissionRepository(db),
		postgres.NewRoleRepository(db),
		postgres.NewGrantRepository(db),
		auditLogger,
	)
	return identity.NewService(
		postgres.NewUserRepository(db),
		hasher,
		grants,
		auditLogger,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)
}
