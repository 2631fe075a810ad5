package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tryonapi/config"
	"tryonapi/controllers"
	"tryonapi/dbhelper"
	"tryonapi/orchestrator"
	"tryonapi/services"
	"tryonapi/telegram"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file, reading the environment only")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Env,
		Release:          "tryonapi@1.0.0",
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, gemini, err := orchestrator.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize providers: %v", err)
	}
	advisor := services.NewStyleAdvisor(gemini, cfg.StyleModel)

	if cfg.TelegramBot {
		if err := telegram.RunTryOnBot(ctx, cfg.TelegramToken, generator, advisor, cfg.MaxConcurrent); err != nil {
			log.Fatal(err)
		}
		return
	}

	db := dbhelper.SetupDB()
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.BrokerAddress})
	defer asynqClient.Close()

	deps := controllers.Deps{
		JobStore:      dbhelper.NewGormJobStore(db),
		Enqueuer:      asynqClient,
		Generator:     generator,
		Advisor:       advisor,
		Strategy:      generator.Strategy(),
		MaxConcurrent: cfg.MaxConcurrent,
	}
	if cfg.StorageEnabled() {
		r2, err := services.NewR2Service(ctx, services.R2Credentials{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
		})
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		urlCache, err := services.NewURLCacheService(r2, cfg.R2BucketName)
		if err != nil {
			log.Fatal("Failed to initialize URL cache service")
		}
		deps.URLCache = urlCache
	}

	e := controllers.SetupServer(deps)
	e.Debug = cfg.Env == "local"
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(3)))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()
	if err := e.Start(":" + cfg.Port); err != nil {
		e.Logger.Info(err)
	}
}
