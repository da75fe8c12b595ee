package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/config"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/controller"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/middleware"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/model"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/repository"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/router"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/service"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/internal/task"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/database"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/discord"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/ebay"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/logger"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/net"
	"github.com/scirpter/eBay-Shipping-Notifications-Discord-Bot/pkg/tracking"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// 1. config & logging
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{
		AppEnv:  cfg.App.Env,
		AppName: cfg.App.Name,
		Level:   cfg.App.LogLevel,
	})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("notifier exited", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// 2. database
	db, err := initDatabase(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	// 3. discord gateway
	session, err := initDiscord(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	// 4. dependencies
	deps, err := initDependencies(cfg, db, discord.NewTransport(session), log)
	if err != nil {
		return err
	}

	// 5. scheduler
	if err := deps.Task.Start(); err != nil {
		return err
	}
	defer deps.Task.Stop()

	// 6. ops endpoint
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	return serve(cfg, router.New(deps.Controllers, deps.RouterOptions, log), log)
}

// ==================== Dependency Container ====================

// Dependencies everything main wires together
type Dependencies struct {
	Repos         *Repositories
	Services      *Services
	Task          *task.SyncTask
	Controllers   router.Controllers
	RouterOptions router.Options
}

// Repositories persistence layer
type Repositories struct {
	Account  repository.AccountRepository
	Order    repository.OrderRepository
	Tracking repository.TrackingRepository
	Guild    repository.GuildRepository
}

// Services business layer
type Services struct {
	Credential   *service.CredentialService
	OrderSync    *service.OrderSyncService
	TrackingSync *service.TrackingSyncService // nil without a tracking key
	Notifier     *service.Notifier
	Account      *service.AccountSyncService
}

// ==================== Init Functions ====================

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	opts := database.DefaultOptions()
	opts.LogLevel = cfg.Database.LogLevel
	return database.InitDB(cfg.Database.URL, opts, model.AllModels()...)
}

func initDiscord(cfg *config.Config, log *zap.Logger) (*discordgo.Session, error) {
	session, err := discord.NewSession(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.Info("discord ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	})
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("open discord gateway: %w", err)
	}
	return session, nil
}

func httpOptions(cfg *config.Config) net.ClientOptions {
	opts := net.DefaultClientOptions()
	opts.Timeout = cfg.HTTP.Timeout
	opts.RetryCount = cfg.HTTP.RetryCount
	return opts
}

func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:  repository.NewAccountRepository(db),
		Order:    repository.NewOrderRepository(db),
		Tracking: repository.NewTrackingRepository(db),
		Guild:    repository.NewGuildRepository(db),
	}
}

func initDependencies(cfg *config.Config, db *gorm.DB, transport *discord.Transport, log *zap.Logger) (*Dependencies, error) {
	// -------- repositories --------
	repos := initRepositories(db)

	// -------- external clients --------
	ebayClient := ebay.NewClient(httpOptions(cfg))
	provider, err := tracking.New(tracking.Config{
		Provider:       cfg.Tracking.Provider,
		APIKey:         cfg.TrackingKey(),
		RequestsPerSec: cfg.Tracking.RequestsPerSec,
		HTTP:           httpOptions(cfg),
	})
	if err != nil {
		return nil, err
	}

	// -------- services --------
	credCfg := service.DefaultCredentialConfig()
	credCfg.EncryptionKey = cfg.Secret.EncryptionKey
	credCfg.ClientID = cfg.Ebay.ClientID
	credCfg.ClientSecret = cfg.Ebay.ClientSecret
	credCfg.DefaultScopes = cfg.Ebay.Scopes

	svcs := &Services{
		Credential: service.NewCredentialService(repos.Account, ebayClient, credCfg, log),
		Notifier:   service.NewNotifier(transport, log),
	}

	providerName := cfg.Tracking.Provider
	var trackingSync service.TrackingSyncer
	if provider != nil {
		providerName = provider.Name()
		svcs.TrackingSync = service.NewTrackingSyncService(
			provider, repos.Account, repos.Tracking, repos.Guild, svcs.Notifier, log,
		)
		trackingSync = svcs.TrackingSync
	} else {
		log.Warn("no tracking API key configured, tracking sync disabled",
			zap.String("provider", cfg.Tracking.Provider))
	}

	svcs.OrderSync = service.NewOrderSyncService(
		ebayClient, repos.Account, repos.Order, repos.Tracking, providerName, log,
	)
	svcs.Account = service.NewAccountSyncService(
		repos.Account, svcs.Credential, svcs.OrderSync, trackingSync, log,
	)

	// -------- scheduler --------
	schedule, err := scheduleConfig(cfg)
	if err != nil {
		return nil, err
	}
	syncTask := task.NewSyncTask(svcs.Account, schedule, log)

	// -------- controllers --------
	controllers := router.Controllers{
		Health:  controller.NewHealthController(syncTask),
		Sync:    controller.NewSyncController(syncTask),
		Account: controller.NewAccountController(svcs.Account),
	}
	if cfg.Ops.AdminToken == "" {
		log.Info("ops admin token not set, /api routes disabled")
	}

	return &Dependencies{
		Repos:       repos,
		Services:    svcs,
		Task:        syncTask,
		Controllers: controllers,
		RouterOptions: router.Options{
			AdminToken:      cfg.Ops.AdminToken,
			TriggerCooldown: cfg.Ops.TriggerCooldown,
			Limiter:         middleware.NewSyncRateLimiter(),
		},
	}, nil
}

func scheduleConfig(cfg *config.Config) (task.ScheduleConfig, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return task.ScheduleConfig{}, fmt.Errorf("load timezone %q: %w", cfg.Schedule.Timezone, err)
	}
	return task.ScheduleConfig{
		Mode:           cfg.Schedule.Mode,
		Location:       loc,
		Hour:           cfg.Schedule.Hour,
		Minute:         cfg.Schedule.Minute,
		Interval:       cfg.Schedule.Interval,
		AccountPause:   cfg.Schedule.AccountPause,
		AccountTimeout: cfg.Schedule.AccountTimeout,
	}, nil
}

// ==================== Server ====================

func serve(cfg *config.Config, r *gin.Engine, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              ":" + cfg.Ops.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("ops server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("ops server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("ops server shutdown: %w", err)
	}
	return nil
}
