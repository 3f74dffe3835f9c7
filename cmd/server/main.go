package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata" // business timezone must resolve on minimal images

	"github.com/google/logger"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/ticket-queue/internal/clock"
	"github.com/iliyamo/ticket-queue/internal/config"
	"github.com/iliyamo/ticket-queue/internal/database"
	"github.com/iliyamo/ticket-queue/internal/handler"
	"github.com/iliyamo/ticket-queue/internal/middleware"
	"github.com/iliyamo/ticket-queue/internal/queue"
	"github.com/iliyamo/ticket-queue/internal/repository"
	"github.com/iliyamo/ticket-queue/internal/router"
	"github.com/iliyamo/ticket-queue/internal/service"
	"github.com/iliyamo/ticket-queue/internal/utils"
)

func main() {
	// A missing .env is normal in containers; real env vars still apply.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	logOut, verbose, closeLog, err := logTarget(cfg)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer closeLog()
	defer logger.Init("ticket-queue", verbose, false, logOut).Close()

	rdb, err := config.NewRedisClient(cfg.StoreTimeout)
	if err != nil {
		logger.Fatalf("store: %v", err)
	}
	defer rdb.Close()

	clk := clock.Real()
	loc := cfg.Location
	keys := repository.NewKeys(cfg.KeyPrefix)
	today := func() time.Time { return clk.Now().In(loc) }

	retry := service.NewRetrier(service.RetryPolicy{
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
		Timeout:   cfg.StoreTimeout,
	}, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	states := repository.NewStateRepo(rdb, keys)
	archives := repository.NewArchiveRepo(rdb, keys,
		repository.WithListers(repository.DefaultListers(rdb, keys,
			repository.NewProbeLister(rdb, keys, cfg.ArchiveProbeDays, today))...),
		repository.WithListerTimeout(cfg.StoreTimeout),
		repository.WithLimit(cfg.ArchiveLimit))
	prizes := repository.NewPrizeRepo(rdb, keys)

	var mirror service.ArchiveMirror
	if cfg.MirrorEnabled() {
		db, err := database.Open(context.Background(), cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			logger.Fatalf("archive mirror: %v", err)
		}
		defer db.Close()
		repo := repository.NewArchiveMirrorRepo(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Fatalf("archive mirror schema: %v", err)
		}
		mirror = repo
		logger.Infof("archive mirror enabled on %s/%s", cfg.DBHost, cfg.DBName)
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.RabbitURL != "" {
		events = service.NewAMQPPublisher(cfg.RabbitURL)
	}

	archiver := service.NewArchiver(archives, mirror, retry, clk, loc)
	rollover := service.NewRolloverManager(states, archiver, retry, clk, loc, events)
	queueSvc := service.NewQueueService(states, rollover, archiver, retry, clk, loc, events)
	prizeSvc := service.NewPrizeService(prizes, retry, clk, loc, nil)
	health := service.NewHealthChecker(rdb, keys, cfg.StoreTimeout)

	cred, err := utils.NewAdminCredential(cfg.AdminSecret, cfg.BcryptCost)
	if err != nil {
		logger.Fatalf("admin credential: %v", err)
	}
	cfg.AdminSecret = ""

	cacheCfg := config.LoadCacheConfig(cfg.KeyPrefix)
	archiver.OnArchived(func(ctx context.Context) error {
		return middleware.PurgeCache(ctx, cacheCfg, rdb)
	})
	rlCfg := config.LoadRateLimitConfig(cfg.KeyPrefix)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger())

	router.RegisterRoutes(e, handler.NewHealthHandler(health))
	queueH := handler.NewQueueHandler(queueSvc)
	prizeH := handler.NewPrizeHandler(prizeSvc)
	router.RegisterQueue(e, queueH, prizeH, middleware.RateLimit(rlCfg, rdb))
	router.RegisterAdmin(e,
		handler.NewAuthHandler(cred, cfg.JWTSecret, cfg.AdminTokenTTLMin, clk),
		queueH,
		handler.NewArchiveHandler(archiver, queueSvc),
		prizeH, cfg.JWTSecret, middleware.ResponseCache(cacheCfg, rdb))
	router.RegisterCron(e, handler.NewCronHandler(rollover), cfg.CronSecret)

	bg, stopBackground := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rollover.Run(bg, cfg.RolloverInterval)
	}()
	if cfg.RabbitURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.StartEventConsumer(bg, cfg.RabbitURL, cfg.EventLogDir); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("event-consumer: stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Infof("listening on %s (env=%s, tz=%s)", addr, cfg.Env, loc)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	waitForShutdown(e, stopBackground, &wg)
}

// waitForShutdown blocks until SIGINT/SIGTERM, drains in-flight requests
// and then stops the background loops.
func waitForShutdown(e *echo.Echo, stopBackground context.CancelFunc, wg *sync.WaitGroup) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Infof("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}

	stopBackground()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Infof("background workers stopped")
	case <-time.After(5 * time.Second):
		logger.Warningf("background workers did not stop in time")
	}
}

// logTarget picks where logger.Init writes.  Without a log file, info and
// warning lines go to stdout (verbose) and errors to stderr.
func logTarget(cfg config.Config) (io.Writer, bool, func(), error) {
	if cfg.LogFile == "" {
		return io.Discard, true, func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
	}
	return f, cfg.Verbose, func() { _ = f.Close() }, nil
}
