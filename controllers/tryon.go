package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"tryonapi/dbhelper"
	"tryonapi/models"
	"tryonapi/orchestrator"
	"tryonapi/services"
	"tryonapi/tasks"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
)

// Images are raw base64, data URIs or http(s) URLs.
type GenerateTryOnIn struct {
	SubjectImage  string  `json:"subject_image" validate:"required"`
	GarmentImage  string  `json:"garment_image" validate:"required"`
	Mode          string  `json:"mode" validate:"mode"`
	Gender        string  `json:"gender" validate:"gender"`
	PriorFeedback *string `json:"prior_feedback" validate:"omitempty,max=2000"`
	Category      string  `json:"category" validate:"category"`
}

type TryOnResponse struct {
	Image    string                   `json:"image"`
	Degraded bool                     `json:"degraded"`
	Attempts []models.ProviderAttempt `json:"attempts"`
	Events   []models.DiagnosticEvent `json:"events"`
}

type TryOnFailureResponse struct {
	ErrorKind models.ErrorKind         `json:"error_kind"`
	Error     string                   `json:"error"`
	Attempts  []models.ProviderAttempt `json:"attempts"`
}

type TryOnJobCreatedResponse struct {
	JobID  uint             `json:"job_id"`
	Status models.JobStatus `json:"status"`
}

type TryOnJobResponse struct {
	ID           uint                     `json:"id"`
	Status       models.JobStatus         `json:"status"`
	Mode         models.Mode              `json:"mode"`
	Gender       models.Gender            `json:"gender"`
	Strategy     string                   `json:"strategy"`
	ResultURL    *string                  `json:"result_url,omitempty"`
	ErrorKind    *string                  `json:"error_kind,omitempty"`
	ErrorMessage *string                  `json:"error,omitempty"`
	Degraded     bool                     `json:"degraded"`
	Duration     *float64                 `json:"duration,omitempty"`
	Attempts     []models.ProviderAttempt `json:"attempts"`
	Events       []models.DiagnosticEvent `json:"events"`
	CreatedAt    string                   `json:"created_at"`
	UpdatedAt    string                   `json:"updated_at"`
}

type TryOnController struct {
	Generator orchestrator.Generator
	URLCache  services.URLCacheServiceProvider
	FetchURL  ImageFetcher
	Strategy  string
	Slots     *semaphore.Weighted
}

func (controller *TryOnController) TryOnRoutes(g *echo.Group) {
	g.POST("", controller.GenerateTryOn, ConcurrencyLimitMiddleware(controller.Slots))
	g.POST("/jobs", controller.CreateTryOnJob)
	g.GET("/jobs/:id", controller.GetTryOnJob)
}

func (controller *TryOnController) bindRequest(c echo.Context) (models.TryOnRequest, error) {
	var req GenerateTryOnIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return models.TryOnRequest{}, c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return models.TryOnRequest{}, c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	ctx := c.Request().Context()
	subject, err := resolveImage(ctx, req.SubjectImage, controller.FetchURL)
	if err != nil {
		return models.TryOnRequest{}, imageError(c, "subject_image", err)
	}
	garment, err := resolveImage(ctx, req.GarmentImage, controller.FetchURL)
	if err != nil {
		return models.TryOnRequest{}, imageError(c, "garment_image", err)
	}
	tryOn := models.TryOnRequest{
		SubjectImage:  subject,
		GarmentImage:  garment,
		Mode:          models.Mode(req.Mode),
		SubjectGender: models.Gender(req.Gender),
		PriorFeedback: req.PriorFeedback,
		Category:      models.Category(req.Category),
	}
	return tryOn.WithDefaults(), nil
}

// GenerateTryOn runs the orchestrator inline and answers with the image.
func (controller *TryOnController) GenerateTryOn(c echo.Context) error {
	req, err := controller.bindRequest(c)
	if err != nil || c.Response().Committed {
		return err
	}

	outcome := controller.Generator.GenerateTryOn(c.Request().Context(), req)
	if !outcome.Success {
		status := http.StatusUnprocessableEntity
		if outcome.Kind == models.KindUnsupportedImageForm || outcome.Kind == models.KindInvalidRequest {
			status = http.StatusBadRequest
		}
		return c.JSON(status, TryOnFailureResponse{
			ErrorKind: outcome.Kind,
			Error:     outcome.Message,
			Attempts:  outcome.Attempts,
		})
	}
	return c.JSON(http.StatusOK, TryOnResponse{
		Image:    outcome.Image.String(),
		Degraded: outcome.Degraded(),
		Attempts: outcome.Attempts,
		Events:   nonNilEvents(outcome.Events),
	})
}

// CreateTryOnJob stores a pending job and queues it for the worker.
func (controller *TryOnController) CreateTryOnJob(c echo.Context) error {
	store, ok := c.Get("__jobstore").(dbhelper.JobStore)
	if !ok || store == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	asynqClient, ok := c.Get("__asynqclient").(tasks.Enqueuer)
	if !ok || asynqClient == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	req, err := controller.bindRequest(c)
	if err != nil || c.Response().Committed {
		return err
	}

	ctx := c.Request().Context()
	job := models.TryOnJob{
		Status:   models.JobPending,
		Mode:     req.Mode,
		Gender:   req.SubjectGender,
		Strategy: controller.Strategy,
	}
	if err := store.Create(ctx, &job); err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create try-on job, please try again"})
	}

	info, err := tasks.EnqueueTryOnGeneration(asynqClient, job.ID, req)
	if err != nil {
		sentry.CaptureException(err)
		job.Status = models.JobFailed
		job.ErrorMessage = services.StrPointer("could not queue generation")
		_ = store.Save(ctx, &job)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start generation, please try again"})
	}
	fmt.Println("[Queue] Try-on task submitted, Job ID: ", job.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusAccepted, TryOnJobCreatedResponse{JobID: job.ID, Status: job.Status})
}

func (controller *TryOnController) GetTryOnJob(c echo.Context) error {
	store, ok := c.Get("__jobstore").(dbhelper.JobStore)
	if !ok || store == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid job id"})
	}

	ctx := c.Request().Context()
	job, err := store.Get(ctx, uint(id))
	if err != nil {
		if errors.Is(err, dbhelper.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Job not found"})
		}
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get job"})
	}

	attempts, events := job.Trail()
	if attempts == nil {
		attempts = []models.ProviderAttempt{}
	}
	response := TryOnJobResponse{
		ID:           job.ID,
		Status:       job.Status,
		Mode:         job.Mode,
		Gender:       job.Gender,
		Strategy:     job.Strategy,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
		Degraded:     job.Degraded,
		Duration:     job.Duration,
		Attempts:     attempts,
		Events:       nonNilEvents(events),
		CreatedAt:    job.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    job.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if job.Status == models.JobCompleted {
		response.ResultURL = job.ResultURL
		if job.ResultObjectKey != nil && controller.URLCache != nil {
			url, err := controller.URLCache.GetReadURL(ctx, *job.ResultObjectKey)
			if err != nil {
				fmt.Printf("[Job %d] Error presigning result: %v\n", job.ID, err)
				sentry.CaptureException(err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get result link"})
			}
			response.ResultURL = &url
		}
	}
	return c.JSON(http.StatusOK, response)
}

func nonNilEvents(events []models.DiagnosticEvent) []models.DiagnosticEvent {
	if events == nil {
		return []models.DiagnosticEvent{}
	}
	return events
}
