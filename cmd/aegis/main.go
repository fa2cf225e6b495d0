package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/aegis-id/aegis/adapters/events"
	"github.com/aegis-id/aegis/adapters/metrics"
	"github.com/aegis-id/aegis/adapters/store"
	"github.com/aegis-id/aegis/adapters/tokenizer"
	"github.com/aegis-id/aegis/config"
	"github.com/aegis-id/aegis/core"
	"github.com/aegis-id/aegis/ports"
	"github.com/aegis-id/aegis/service"
	transport "github.com/aegis-id/aegis/transport/http"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("AEGIS_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	secret, err := config.DecodeSecret(cfg.MasterSecret)
	if err != nil {
		logger.Error("failed to decode master secret", "error", err)
		os.Exit(1)
	}

	signKey, err := loadSigningKey(cfg.SigningKeyPEM)
	if err != nil {
		logger.Error("failed to load signing key", "error", err)
		os.Exit(1)
	}

	clock := ports.SystemClock{}

	creds := store.NewMemoryCredentialStore()
	challenges := store.NewMemoryChallengeStore()

	var sessions ports.SessionStore
	var publisher message.Publisher
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		sessions = store.NewRedisSessionStore(client, clock)

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client},
			watermill.NewSlogLogger(logger),
		)
		if err != nil {
			logger.Error("failed to create redis publisher", "error", err)
			os.Exit(1)
		}
	} else {
		sessions = store.NewMemorySessionStore()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	}

	eventPub := events.NewWatermillPublisher(publisher)

	lockout := service.NewLockoutPolicy(creds, clock, eventPub, logger,
		cfg.Lockout.Threshold, cfg.Lockout.BaseDuration, cfg.Lockout.MaxDuration)

	verifier, err := service.NewPasswordVerifier(creds, lockout, service.DefaultArgon2Params())
	if err != nil {
		logger.Error("failed to initialize password verifier", "error", err)
		os.Exit(1)
	}

	registry := service.NewChallengeRegistry(challenges, creds, clock, secret, cfg.Challenge.TTL)
	manager := service.NewSessionManager(sessions, tokenizer.NewJWTTokenizer(signKey), clock,
		cfg.Sessions.BasicTTL, cfg.Sessions.ElevatedTTL)

	gate, err := service.NewEncryptionGate(manager, secret)
	if err != nil {
		logger.Error("failed to initialize encryption gate", "error", err)
		os.Exit(1)
	}

	engine := service.NewAuthService(service.Deps{
		Credentials: creds,
		Verifier:    verifier,
		Lockout:     lockout,
		Challenges:  registry,
		Sessions:    manager,
		Gate:        gate,
		Stats:       service.NewStatsCollector(),
		Events:      eventPub,
		Clock:       clock,
		Logger:      logger,
	})

	if cfg.Bootstrap.Username != "" && cfg.Bootstrap.Password != "" {
		if err := bootstrapUser(creds, cfg.Bootstrap.Username, cfg.Bootstrap.Password); err != nil {
			logger.Error("failed to bootstrap user", "error", err)
			os.Exit(1)
		}
		logger.Info("bootstrapped user", "username", cfg.Bootstrap.Username)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(metrics.NewCollector(engine))

	router := transport.SetupRouter(engine, promRegistry)
	server := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepLoop(ctx, engine, cfg.SweepInterval)

	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Drain: refuse new sessions, let in-flight validation finish.
	engine.Drain()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func sweepLoop(ctx context.Context, engine *service.AuthService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.Sweep(ctx)
		}
	}
}

func loadSigningKey(pemData string) (*ecdsa.PrivateKey, error) {
	if pemData == "" {
		// Ephemeral key: tokens do not survive a restart, which is
		// acceptable because the session records are server-side.
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("signing key is not valid PEM")
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

func bootstrapUser(creds *store.MemoryCredentialStore, username, password string) error {
	hash, salt, err := service.HashPassword(password, service.DefaultArgon2Params())
	if err != nil {
		return err
	}
	return creds.Put(context.Background(), &core.UserRecord{
		Username:     username,
		PasswordHash: hash,
		Salt:         salt,
	})
}
