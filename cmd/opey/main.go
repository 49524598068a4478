package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nemozak1/API-Explorer-II/internal/adapter/obp"
	"github.com/nemozak1/API-Explorer-II/internal/adapter/opey"
	"github.com/nemozak1/API-Explorer-II/internal/config"
	httptransport "github.com/nemozak1/API-Explorer-II/internal/http"
	"github.com/nemozak1/API-Explorer-II/internal/http/handler"
	"github.com/nemozak1/API-Explorer-II/internal/jwt"
	"github.com/nemozak1/API-Explorer-II/internal/middleware"
	"github.com/nemozak1/API-Explorer-II/internal/server"
	"github.com/nemozak1/API-Explorer-II/internal/service"
	"github.com/nemozak1/API-Explorer-II/internal/session"
	"github.com/nemozak1/API-Explorer-II/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newRedisClient,
			newSessionStore,
			newSessionMiddleware,
			newOBPClient,
			newOpeyClient,
			newSigner,
			service.NewConsentService,
			service.NewTokenService,
			handler.NewOpeyHandler,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newSessionStore(client redis.UniversalClient, cfg config.Config) session.Store {
	return session.NewRedisStore(client, cfg.SessionPrefix, cfg.SessionTTL)
}

func newSessionMiddleware(store session.Store, cfg config.Config, logger *zap.Logger) *session.Middleware {
	return session.NewMiddleware(store, cfg, logger)
}

func newOBPClient(cfg config.Config) obp.Client {
	return obp.NewHTTPClient(cfg.OBPBaseURL, cfg.OBPAPIVersion, &http.Client{Timeout: cfg.UpstreamTimeout})
}

func newOpeyClient(cfg config.Config) opey.Client {
	return opey.NewHTTPClient(cfg.OpeyBaseURL, &http.Client{Timeout: cfg.UpstreamTimeout})
}

func newSigner(cfg config.Config, logger *zap.Logger) *jwt.Signer {
	return jwt.NewSignerFromFile(cfg.SigningKeyPath, cfg.OpeyTokenTTL, logger)
}

func newRateLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimitRPM)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
