package server

import (
	"context"
	"fmt"
	"log/slog"

	"socialgraph/internal/cache"
	"socialgraph/internal/config"
	"socialgraph/internal/database"
	"socialgraph/internal/identity"
	"socialgraph/internal/notifications"
	"socialgraph/internal/observability"
	"socialgraph/internal/storage"
)

// NewServer connects every external dependency named by cfg and wires the
// server over them. Resources are released by Shutdown.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	var closers []func() error
	fail := func(err error) (*Server, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, err
	}

	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, sqlDB.Close)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, rdb.Close)

	deps := Deps{DB: db, Redis: rdb}

	switch cfg.EventBroker {
	case "amqp":
		pub, err := notifications.NewAMQPPublisher(cfg.RabbitMQURL)
		if err != nil {
			return fail(fmt.Errorf("connect event broker: %w", err))
		}
		closers = append(closers, pub.Close)
		deps.Events, deps.Subscriber = pub, pub
	default:
		notifier := notifications.NewNotifier(rdb)
		deps.Events, deps.Subscriber = notifier, notifier
	}

	switch cfg.AuthProvider {
	case "firebase":
		verifier, err := identity.NewFirebaseVerifier(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return fail(err)
		}
		deps.Verifier = verifier
	default:
		deps.Verifier = identity.NewJWTVerifier(cfg.JWTSecret)
	}

	if cfg.S3Bucket != "" {
		images, err := storage.NewS3ImageStore(ctx, storage.Options{
			Bucket:      cfg.S3Bucket,
			Region:      cfg.AWSRegion,
			Endpoint:    cfg.S3Endpoint,
			MaxUploadMB: cfg.ImageMaxUploadSizeMB,
		})
		if err != nil {
			return fail(err)
		}
		deps.Images = images
	} else {
		observability.Logger.Warn("S3_BUCKET not set; image uploads disabled")
	}

	observability.Logger.Info("dependencies ready",
		slog.String("auth_provider", cfg.AuthProvider),
		slog.String("event_broker", cfg.EventBroker))

	s := NewServerWithDeps(cfg, deps)
	s.closers = closers
	return s, nil
}
