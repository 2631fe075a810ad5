package controllers

import (
	"context"
	"net/http"

	"tryonapi/dbhelper"
	"tryonapi/models"
	"tryonapi/orchestrator"
	"tryonapi/services"
	"tryonapi/tasks"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

type StyleAdvisor interface {
	GetRecommendations(ctx context.Context, garment models.ImageReference) models.StyleRecommendation
}

// ImageFetcher downloads client supplied image URLs.
type ImageFetcher func(ctx context.Context, url string) ([]byte, error)

type Deps struct {
	JobStore  dbhelper.JobStore
	Enqueuer  tasks.Enqueuer
	Generator orchestrator.Generator
	Advisor   StyleAdvisor
	URLCache  services.URLCacheServiceProvider
	FetchURL  ImageFetcher
	Strategy  string

	MaxConcurrent int
}

func SetupServer(deps Deps) *echo.Echo {
	if deps.MaxConcurrent < 1 {
		deps.MaxConcurrent = 1
	}
	if deps.FetchURL == nil {
		deps.FetchURL = services.FetchPublicURL
	}

	e := echo.New()
	v := validator.New()
	v.RegisterValidation("mode", models.ValidateMode)
	v.RegisterValidation("gender", models.ValidateGender)
	v.RegisterValidation("category", models.ValidateCategory)
	e.Validator = &CustomValidator{validator: v}
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__jobstore", deps.JobStore)
			c.Set("__asynqclient", deps.Enqueuer)
			return next(c)
		}
	})

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	tryOnController := TryOnController{
		Generator: deps.Generator,
		URLCache:  deps.URLCache,
		FetchURL:  deps.FetchURL,
		Strategy:  deps.Strategy,
		Slots:     semaphore.NewWeighted(int64(deps.MaxConcurrent)),
	}
	tryOnController.TryOnRoutes(e.Group("/tryon"))

	styleController := StyleController{Advisor: deps.Advisor, FetchURL: deps.FetchURL}
	styleController.StyleRoutes(e.Group("/style"))

	return e
}
