package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskpulse/internal/api"
	"taskpulse/internal/bot"
	"taskpulse/internal/calendar"
	"taskpulse/internal/config"
	"taskpulse/internal/docstore"
	"taskpulse/internal/parser"
	"taskpulse/internal/repository"
	"taskpulse/internal/service"
)

const (
	shutdownTimeout = 10 * time.Second
	mirrorInterval  = time.Minute
)

func runServer(ctx context.Context, cfg config.Config) error {
	started := time.Now()
	clock := calendar.SystemClock{Location: cfg.Location}

	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, clock.Now)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer sqlDB.Close()
	if err := repository.Migrate(db); err != nil {
		return err
	}

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	var taskParser parser.Parser = parser.Heuristic{Clock: clock}
	if cfg.OpenAI.APIKey != "" {
		taskParser = &parser.OpenAI{
			APIKey: cfg.OpenAI.APIKey,
			URL:    cfg.OpenAI.URL,
			Model:  cfg.OpenAI.Model,
			Client: &http.Client{Timeout: 15 * time.Second},
			Clock:  clock,
		}
		log.Printf("[info] ai task parsing via %s", cfg.OpenAI.Model)
	}

	var store service.AnalyticsStore = taskRepo
	var mirror *service.MirrorService
	if cfg.Mongo.URI != "" {
		client, err := docstore.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("[warn] mongo disconnect: %v", err)
			}
		}()
		docs := docstore.Open(client, cfg.Mongo.Database)
		if err := docs.EnsureIndexes(ctx); err != nil {
			return err
		}
		mirror = service.NewMirrorService(taskRepo, docs, clock)
		n, err := mirror.Sync(ctx)
		if err != nil {
			return fmt.Errorf("initial mongo sync: %w", err)
		}
		log.Printf("[info] mirrored %d tasks to mongo", n)
		store = docs
	}

	analyticsSvc := service.NewAnalyticsService(store, clock)
	authSvc := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.JWTTTL, clock)
	taskSvc := service.NewTaskService(taskRepo, taskParser, clock)
	categorySvc := service.NewCategoryService(categoryRepo)

	var digestSvc *service.DigestService
	if cfg.Telegram.Token != "" {
		telegramBot, err := bot.New(cfg.Telegram.Token, bot.Services{
			Users:     userRepo,
			Tasks:     taskSvc,
			Analytics: analyticsSvc,
		})
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}
		digestSvc = service.NewDigestService(userRepo, taskRepo, analyticsSvc, telegramBot, clock)
		telegramBot.SetDigest(digestSvc)
		go func() {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[error] bot stopped: %v", err)
			}
		}()
	} else {
		log.Println("[info] TELEGRAM_TOKEN not set, daily digest disabled")
	}

	scheduler := service.NewSchedulerService(cfg.Location)
	if err := scheduler.RegisterDefaultJobs(digestSvc, authSvc, cfg.Telegram.DigestTime); err != nil {
		return err
	}
	if mirror != nil {
		if _, err := scheduler.ScheduleInterval("mongo mirror", mirrorInterval, func(ctx context.Context) error {
			_, err := mirror.Sync(ctx)
			return err
		}); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	gin.SetMode(cfg.GinMode)
	router := api.NewRouter(api.Handlers{
		Auth:        api.NewAuthHandler(authSvc),
		Tasks:       api.NewTaskHandler(taskSvc, categorySvc),
		Analytics:   api.NewAnalyticsHandler(analyticsSvc, clock, cfg.Analytics.StrictGranularity),
		Health:      api.NewHealthHandler(started, clock, sqlDB.PingContext),
		RequireAuth: api.RequireAuth(authSvc),
	}, api.Options{
		ClientURLs:   cfg.ClientURLs,
		QueryTimeout: cfg.Database.QueryTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[info] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Println("[info] shutdown complete")
	return nil
}
