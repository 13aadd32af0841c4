package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brokenweave/config"
	mqcontracts "brokenweave/contracts/mq"
	"brokenweave/internal/api"
	"brokenweave/internal/feed"
	"brokenweave/internal/mqhandler"
	"brokenweave/internal/repository"
	"brokenweave/internal/search"
	"brokenweave/internal/service"
	"brokenweave/internal/session"
	"brokenweave/internal/sideeffect"
	"brokenweave/internal/validate"
	"brokenweave/pkg/circuitbreaker"
	"brokenweave/pkg/db"
	pkgconfig "brokenweave/pkg/config"
	pkglogger "brokenweave/pkg/logger"
	"brokenweave/pkg/mq"
	"brokenweave/pkg/otel"
	"brokenweave/pkg/outbox"
	"brokenweave/pkg/redis"
	"brokenweave/pkg/util"
)

func main() {
	var logger *zap.Logger
	if pkgconfig.GetConfigEnv() == "local" {
		logger = pkglogger.NewDevelopmentLogger()
	} else {
		logger = pkglogger.NewLogger()
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is not configured")
	}

	logger.Info("Starting brokenweave server...")

	shutdownTracing, err := otel.Init(cfg.OTel, logger)
	if err != nil {
		logger.Fatal("Tracing init failed", zap.Error(err))
	}
	defer shutdownTracing()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Fatal("DB migration failed", zap.Error(err))
	}
	logger.Info("DB ready")

	// Redis
	rdb, err := redis.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Redis connection failed", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, cfg.Feed.DedupTTL, logger)
	retryCounter := util.NewRetryCounter(rdb, time.Hour)

	// MQ
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// repositories
	userRepo := repository.NewUserRepository(dbConn, logger)
	reportRepo := repository.NewMissingPersonRepository(dbConn, logger)
	donationRepo := repository.NewDonationRepository(dbConn, logger)
	volunteerRepo := repository.NewVolunteerRepository(dbConn, logger)
	storyRepo := repository.NewStoryRepository(dbConn, logger)
	queryRepo := repository.NewSearchQueryRepository(dbConn, logger)
	notificationRepo := repository.NewNotificationRepository(dbConn, logger)
	outboxRepo := outbox.NewRepository(dbConn)

	// outbox dispatcher
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, logger).WithInterval(cfg.Feed.OutboxPeriod)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Start(ctx)
	}()

	// change feed: admin_notification.created -> hub -> widgets
	hub := feed.NewHub(cfg.Feed.HubBuffer, logger)
	widgets := feed.NewRegistry(notificationRepo, hub, feed.Options{
		Limit:       cfg.Feed.RecentLimit,
		MaxItems:    cfg.Feed.MaxItems,
		CallTimeout: cfg.Feed.CallTimeout,
	}, logger)

	// every instance holds its own widgets, so each one needs every insert
	instance := feedInstance(cfg.Feed.Instance)
	feedHandler := mqhandler.NewAdminNotificationHandler(hub, deduper, logger).ForInstance(instance)
	logger.Info("Init consumer", zap.String("queue", mq.BroadcastQueueName(mqcontracts.RoutingKeyAdminNotificationCreated, instance)))
	consumer, err := mq.NewBroadcastConsumer(cfg.MQ.URL, mqcontracts.RoutingKeyAdminNotificationCreated, instance, logger)
	if err != nil {
		logger.Fatal("Feed consumer init failed", zap.Error(err))
	}
	consumer.WithRetry(retryCounter, cfg.MQ.MaxRetries)
	consumer.SetHandler(feedHandler.HandleCreated)
	go func() {
		if err := consumer.StartConsuming(ctx); err != nil {
			logger.Error("Feed consumer stopped", zap.Error(err))
		}
	}()
	defer consumer.Close()

	// services
	validator := validate.New()
	effects := sideeffect.NewRunner(logger, circuitbreaker.DefaultConfig(), cfg.Feed.CallTimeout)
	notifier := service.NewOutboxNotifier(dbConn, notificationRepo, outboxRepo, logger)
	sessions := session.NewManager(session.NewStore(rdb), cfg.JWT.Secret, cfg.Session.TTL, cfg.Session.GuestTTL)
	pages := search.NewPages()

	authSvc := service.NewAuthService(userRepo, sessions, validator, effects, notifier, logger)
	reportSvc := service.NewReportService(reportRepo, validator, effects, notifier, logger)
	searchSvc := service.NewSearchService(reportRepo, queryRepo, effects, pages, logger)
	donationSvc := service.NewDonationService(donationRepo, validator, effects, notifier, logger)
	volunteerSvc := service.NewVolunteerService(volunteerRepo, validator, effects, notifier, logger)
	storySvc := service.NewStoryService(storyRepo, validator)
	userSvc := service.NewUserService(userRepo, logger)
	settingsSvc := service.NewSettingsService(rdb, validator)

	// per-session state ends on logout, on a dead token, or by the sweeper
	tracker := session.NewTracker(logger)
	tracker.OnEnd(widgets.Drop)
	tracker.OnEnd(searchSvc.Forget)
	authSvc.OnLogout(tracker.End)
	go tracker.Run(ctx, cfg.Session.SweepInterval)

	router := api.NewRouter(api.Handlers{
		Auth:    api.NewAuthHandler(authSvc, logger),
		Missing: api.NewMissingHandler(reportSvc, searchSvc, logger),
		Forms:   api.NewFormHandler(donationSvc, volunteerSvc, storySvc, logger),
		Admin: api.NewAdminHandler(api.AdminServices{
			Users:      userSvc,
			Reports:    reportSvc,
			Donations:  donationSvc,
			Volunteers: volunteerSvc,
			Stories:    storySvc,
			Settings:   settingsSvc,
			Replay:     outbox.NewReplayService(outboxRepo, publisher, logger),
		}, logger),
		Notifications: api.NewNotificationHandler(widgets, logger),
	}, sessions, tracker, map[string]api.Pinger{
		"db": dbConn,
		"redis": api.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router.Engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down brokenweave gracefully...")

	logger.Info("Stopping MQ consumer...")
	consumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("Stopping HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	logger.Info("Unmounting notification widgets...")
	widgets.CloseAll()
	hub.Close()

	logger.Info("Waiting for side effects...")
	effects.Wait()

	logger.Info("Stopping outbox dispatcher...")
	stop()
	<-dispatcherDone

	logger.Info("brokenweave shutdown complete")
}

func feedInstance(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "brokenweave"
	}
	return host + "-" + uuid.NewString()[:8]
}
