package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tryonapi/dbhelper"
	"tryonapi/models"
	"tryonapi/orchestrator"
	"tryonapi/services"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	TypeTryOnGeneration = "generate:tryon"
	QueueGenerate       = "generate"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type TryOnGenerationPayload struct {
	JobID   uint                `json:"job_id"`
	Request models.TryOnRequest `json:"request"`
}

// ResultStore uploads finished images. A nil Storage keeps provider URLs.
type ResultStore struct {
	Storage    services.StorageProvider
	BucketName string
}

func NewTryOnGenerationTask(jobID uint, req models.TryOnRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(TryOnGenerationPayload{JobID: jobID, Request: req})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTryOnGeneration, payload), nil
}

func EnqueueTryOnGeneration(client Enqueuer, jobID uint, req models.TryOnRequest) (*asynq.TaskInfo, error) {
	task, err := NewTryOnGenerationTask(jobID, req)
	if err != nil {
		return nil, err
	}
	return client.Enqueue(task, asynq.MaxRetry(3), asynq.Queue(QueueGenerate))
}

// HandleTryOnGenerationTask runs one queued generation. A failed generation
// is not retried since every candidate was already tried.
func HandleTryOnGenerationTask(ctx context.Context, t *asynq.Task, store dbhelper.JobStore, generator orchestrator.Generator, results ResultStore) error {
	var payload TryOnGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("[Queue] bad %s payload: %v: %w", TypeTryOnGeneration, err, asynq.SkipRetry)
	}

	job, err := store.Get(ctx, payload.JobID)
	if err != nil {
		if errors.Is(err, dbhelper.ErrJobNotFound) {
			return fmt.Errorf("[Job %d] %v: %w", payload.JobID, err, asynq.SkipRetry)
		}
		return err
	}
	if job.Status == models.JobCompleted {
		fmt.Printf("[Job %d] Already completed, skipping\n", job.ID)
		return nil
	}

	job.Status = models.JobGenerating
	if err := store.Save(ctx, job); err != nil {
		return err
	}

	start := time.Now()
	outcome := generator.GenerateTryOn(ctx, payload.Request)
	duration := time.Since(start).Seconds()
	job.Duration = &duration
	job.SetTrail(outcome.Attempts, outcome.Events)
	job.Degraded = outcome.Degraded()

	if !outcome.Success {
		job.Status = models.JobFailed
		job.ErrorKind = services.StrPointer(string(outcome.Kind))
		job.ErrorMessage = services.StrPointer(outcome.Message)
		if err := store.Save(ctx, job); err != nil {
			return err
		}
		fmt.Printf("[Job %d] Generation failed: %s %s\n", job.ID, outcome.Kind, outcome.Message)
		sentry.CaptureException(fmt.Errorf("[Job %d] generation failed: %s: %s", job.ID, outcome.Kind, outcome.Message))
		return fmt.Errorf("[Job %d] %s: %w", job.ID, outcome.Kind, asynq.SkipRetry)
	}

	storeResult(ctx, job, *outcome.Image, results)
	job.Status = models.JobCompleted
	if err := store.Save(ctx, job); err != nil {
		return err
	}
	fmt.Printf("[Job %d] Completed in %.1fs, degraded %v\n", job.ID, duration, job.Degraded)
	return nil
}

// storeResult uploads the image to R2. When that is not possible the job
// keeps the provider URL, or the data URI for inline images.
func storeResult(ctx context.Context, job *models.TryOnJob, image models.ImageReference, results ResultStore) {
	if results.Storage != nil && results.BucketName != "" {
		key, err := uploadResult(ctx, image, results)
		if err == nil {
			job.ResultObjectKey = &key
			return
		}
		fmt.Printf("[Job %d] Result upload failed: %v\n", job.ID, err)
		sentry.CaptureException(fmt.Errorf("[Job %d] result upload failed: %w", job.ID, err))
	}
	job.ResultURL = services.StrPointer(image.String())
}

func uploadResult(ctx context.Context, image models.ImageReference, results ResultStore) (string, error) {
	data, mimeType, err := services.MaterializeImage(ctx, image)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("results/%s%s", uuid.NewString(), services.ImageExtension(mimeType))
	uploadURL, err := results.Storage.PresignLink(ctx, results.BucketName, key)
	if err != nil {
		return "", err
	}
	if _, err := results.Storage.UploadToPresignedURL(ctx, uploadURL, data); err != nil {
		return "", err
	}
	return key, nil
}
