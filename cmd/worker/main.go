package main

import (
	"context"
	"log"
	"time"

	"tryonapi/config"
	"tryonapi/dbhelper"
	"tryonapi/orchestrator"
	"tryonapi/services"
	"tryonapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
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
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Env,
		Release:     "tryonapi-worker@1.0.0",
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Flush(2 * time.Second)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.BrokerAddress},
		asynq.Config{Concurrency: cfg.MaxConcurrent, Queues: map[string]int{
			tasks.QueueGenerate: 1,
		}},
	)

	ctx := context.Background()
	generator, _, err := orchestrator.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("[Queue] Failed to initialize providers: %v", err)
	}

	results := tasks.ResultStore{BucketName: cfg.R2BucketName}
	if cfg.StorageEnabled() {
		r2, err := services.NewR2Service(ctx, services.R2Credentials{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
		})
		if err != nil {
			log.Fatal("[Queue] Failed to initialize storage provider: R2")
		}
		results.Storage = r2
	}

	store := dbhelper.NewGormJobStore(dbhelper.SetupDB())

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeTryOnGeneration, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleTryOnGenerationTask(ctx, t, store, generator, results)
	})

	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
