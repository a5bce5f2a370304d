// Command api serves the credential service over HTTP.
//
// @title                       Credential Service API
// @version                     1.0
// @description                 User registration, password login and bearer token authentication.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/credential-service/internal/api"
	"github.com/99minutos/credential-service/internal/api/handler"
	"github.com/99minutos/credential-service/internal/api/metrics"
	"github.com/99minutos/credential-service/internal/core/ports"
	"github.com/99minutos/credential-service/internal/core/service"
	"github.com/99minutos/credential-service/internal/infrastructure/db/memory"
	mongostore "github.com/99minutos/credential-service/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/credential-service/internal/infrastructure/db/redis"
	"github.com/99minutos/credential-service/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/credential-service/internal/infrastructure/queue"
	"github.com/99minutos/credential-service/internal/infrastructure/security/password"
	"github.com/99minutos/credential-service/internal/infrastructure/security/token"
	"github.com/99minutos/credential-service/internal/pkg/config"
	"github.com/99minutos/credential-service/pkg/logger"
)

const (
	serviceName     = "credential-service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, envconfig.OsLookuper())
	if err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// store bundles the repositories of the selected backend.
type store struct {
	users  ports.UserRepository
	audit  ports.AuditRepository
	health []handler.Dependency
	close  func(context.Context)
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	hasher, err := password.NewHasher(password.Config{
		MemoryKB:    cfg.Password.MemoryKB,
		Iterations:  cfg.Password.Iterations,
		Parallelism: cfg.Password.Parallelism,
	})
	if err != nil {
		return err
	}

	codec, err := token.NewCodec(token.Config{
		Secret:    []byte(cfg.JWT.SecretKey),
		Algorithm: cfg.JWT.Algorithm,
	})
	if err != nil {
		return err
	}

	opts := []service.AuthOption{service.WithLogger(logger.Component("auth"))}
	health := st.health

	if cfg.Redis.ProfileCache {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()

		opts = append(opts, service.WithProfileCache(redisstore.NewProfileCache(rdb, cfg.Redis.ProfileCacheTTL)))
		health = append(health, redisstore.NewPinger(rdb))
		log.Info().Dur("ttl", cfg.Redis.ProfileCacheTTL).Msg("profile cache enabled")
	}

	// Workers outlive the signal context so buffered audit events are
	// recorded after the server stops accepting requests.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(
		cfg.Audit.Workers,
		service.NewAuditService(st.audit, logger.Component("audit")),
		logger.Component("audit"),
		queue.WithDropCounter(metrics.AuditEventsDroppedTotal),
		queue.WithDepthGauge(metrics.AuditQueueDepth),
	)
	dispatcher.Start(workerCtx)
	defer func() {
		cancelWorkers()
		dispatcher.Wait()
	}()
	opts = append(opts, service.WithAuditPublisher(dispatcher))

	authService := service.NewAuthService(st.users, hasher, codec, cfg.JWT.AccessTokenTTL(), opts...)

	e := api.NewRouter(api.Dependencies{
		AuthService:      authService,
		Guard:            service.NewAccessGuard(codec, logger.Component("guard")),
		Health:           health,
		Log:              log,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("store", cfg.Store.Driver).
			Str("jwt_algorithm", codec.Algorithm()).
			Msg("http server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		users := mongostore.NewUserRepository(db)
		if err := users.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return &store{
			users:  users,
			audit:  mongostore.NewAuditRepository(db),
			health: []handler.Dependency{mongostore.NewPinger(db)},
			close:  func(ctx context.Context) { _ = client.Disconnect(ctx) },
		}, nil

	case config.StorePostgres, config.StoreSQLite:
		dsn := cfg.SQL.DatabaseURL
		if cfg.Store.Driver == config.StoreSQLite {
			dsn = cfg.SQL.SQLitePath
		}
		db, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.Store.Driver, DSN: dsn})
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
		log.Info().Str("driver", cfg.Store.Driver).Msg("sql store ready")
		return &store{
			users:  sqlstore.NewUserRepository(db),
			audit:  sqlstore.NewAuditRepository(db),
			health: []handler.Dependency{sqlstore.NewPinger(db)},
			close:  func(context.Context) { _ = db.Close() },
		}, nil

	default:
		log.Warn().Msg("using in-memory store; accounts are lost on restart")
		return &store{
			users: memory.NewUserRepository(),
			close: func(context.Context) {},
		}, nil
	}
}
