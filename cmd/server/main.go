package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"sigil/internal/auth/revocation"
	"sigil/internal/auth/service"
	"sigil/internal/events"
	"sigil/internal/events/kafka"
	"sigil/internal/identity/blindindex"
	"sigil/internal/identity/cipher"
	authstore "sigil/internal/identity/store/auth"
	jwttoken "sigil/internal/jwt_token"
	"sigil/internal/platform/config"
	"sigil/internal/platform/httpserver"
	"sigil/internal/platform/logger"
	"sigil/internal/platform/postgres"
	redisplatform "sigil/internal/platform/redis"
	profilestore "sigil/internal/profile/store/profile"
	"sigil/internal/registration"
	"sigil/internal/registration/metrics"
	httptransport "sigil/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// run wires the dependencies and owns the process lifecycle. Business logic
// lives in the internal services; main only assembles and supervises.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blindIndexKey, err := cfg.BlindIndexKey()
	if err != nil {
		return err
	}
	emailCipherKey, err := cfg.EmailCipherKey()
	if err != nil {
		return err
	}
	codec, err := blindindex.New(blindIndexKey)
	if err != nil {
		return err
	}
	emailCipher, err := cipher.New(emailCipherKey)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}

	auths := authstore.NewPostgres(db, codec, emailCipher)
	profiles := profilestore.NewPostgres(db, auths)

	bus := events.NewBus(log)
	saga := registration.NewSaga(auths, profiles, bus, log, metrics.New())
	saga.Register(bus)

	// Kafka egress is optional: without brokers the terminal facts simply
	// stay in-process.
	var egress *kafka.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		egress, err = kafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return err
		}
		defer egress.Close()
		egress.Register(bus)
	}

	// Redis is optional too; a single-instance deployment can run on the
	// in-memory revocation list.
	var trl revocation.TokenRevocationList
	var redisPing httptransport.Pinger
	rdb, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		trl = revocation.NewRedisTRL(rdb.Client)
		redisPing = rdb
	} else {
		log.Warn("redis not configured, using in-memory token revocation list")
		trl = revocation.NewInMemoryTRL()
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	authService := service.NewService(auths, profiles, bus, tokens, trl, emailCipher, log, service.Config{
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})

	handler := httptransport.NewHandler(authService, profiles, tokens, trl, db, redisPing, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Let in-flight saga work settle before the stores go away.
		return bus.Drain(shutdownCtx)
	})

	return g.Wait()
}
