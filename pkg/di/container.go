// Package di wires the application's components together. Everything is
// constructed once from the configuration value built in main; no
// component reads ambient state afterwards.
package di

import (
	"context"
	"fmt"
	"time"

	"github.com/saipul12c/my-portofolio-sub004/internal/adapters"
	"github.com/saipul12c/my-portofolio-sub004/internal/gateway"
	"github.com/saipul12c/my-portofolio-sub004/internal/hub"
	"github.com/saipul12c/my-portofolio-sub004/internal/presence"
	"github.com/saipul12c/my-portofolio-sub004/internal/store"
	"github.com/saipul12c/my-portofolio-sub004/internal/ws"
	"github.com/saipul12c/my-portofolio-sub004/pkg/config"
	"github.com/saipul12c/my-portofolio-sub004/pkg/health"
	"github.com/saipul12c/my-portofolio-sub004/pkg/jwt"
	"github.com/saipul12c/my-portofolio-sub004/pkg/logger"
)

// Container holds all the dependencies for the application
type Container struct {
	Config        *config.Config
	Logger        *logger.Logger
	JWTService    *jwt.Service
	Store         *store.LogStore
	Broker        *hub.Broker
	Profiles      *gateway.Directory
	Gateway       *gateway.Gateway
	Tracker       *presence.Tracker
	WebhookSender *adapters.WebhookSender
	BotSender     *adapters.BotSender
	SocketHandler *ws.Handler
	Health        *health.Checker
}

// New builds the full dependency graph. The store is opened here; the
// reconciler is the caller's responsibility and must run before the
// router starts accepting traffic.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Expiry)

	st, err := store.Open(cfg.Storage.Path, log, store.Options{
		DefaultLimit: cfg.Limits.DefaultPageSize,
		MaxLimit:     cfg.Limits.MaxPageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open log store: %w", err)
	}

	broker := hub.NewBroker(log)
	profiles := gateway.NewDirectory()
	gw := gateway.New(st, broker, profiles, log, gateway.Options{
		MaxContentBytes: cfg.Limits.MaxContentBytes,
	})

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterCheck("store", true, st.Ping)

	var presenceStore presence.Store
	if cfg.Presence.RedisURL != "" {
		redisStore := presence.NewRedisStore(cfg.Presence.RedisURL)
		checker.RegisterCheck("presence-redis", false, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisStore.Ping(ctx)
		})
		presenceStore = redisStore
		log.Info("presence backed by redis", "addr", cfg.Presence.RedisURL)
	} else {
		presenceStore = presence.NewMemoryStore()
	}
	tracker := presence.NewTracker(presenceStore, broker, log)
	checker.Start()

	var botSender *adapters.BotSender
	if cfg.Bot.ID != "" {
		botSender = adapters.NewBotSender(gw, cfg.Bot.ID)
		log.Info("bot producer enabled", "bot_id", cfg.Bot.ID)
	}

	return &Container{
		Config:        cfg,
		Logger:        log,
		JWTService:    jwtService,
		Store:         st,
		Broker:        broker,
		Profiles:      profiles,
		Gateway:       gw,
		Tracker:       tracker,
		WebhookSender: adapters.NewWebhookSender(gw),
		BotSender:     botSender,
		SocketHandler: ws.NewHandler(broker, gw, tracker, jwtService, log),
		Health:        checker,
	}, nil
}

// Close releases the container's resources.
func (c *Container) Close() error {
	return c.Store.Close()
}
