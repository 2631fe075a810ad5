package controllers

import (
	"context"
	"fmt"
	"net/http"

	"tryonapi/models"
	"tryonapi/services"

	"github.com/labstack/echo/v4"
)

// resolveImage parses a client image string. Remote URLs must be public and
// are downloaded so every provider can read the result.
func resolveImage(ctx context.Context, value string, fetch ImageFetcher) (models.ImageReference, error) {
	image, err := services.ParseImageReference(value)
	if err != nil {
		return models.ImageReference{}, err
	}
	if !image.IsRemote() {
		return image, nil
	}
	if err := services.CheckPublicURL(image.URL); err != nil {
		return models.ImageReference{}, fmt.Errorf("%w: %w", err, models.ErrUnsupportedImageForm)
	}
	data, err := fetch(ctx, image.URL)
	if err != nil {
		return models.ImageReference{}, fmt.Errorf("could not download %s: %v: %w", image.URL, err, models.ErrUnsupportedImageForm)
	}
	if len(data) == 0 {
		return models.ImageReference{}, fmt.Errorf("empty download from %s: %w", image.URL, models.ErrUnsupportedImageForm)
	}
	return models.NewInlineImage(data, services.DetectImageMIME(data)), nil
}

func imageError(c echo.Context, field string, err error) error {
	fmt.Printf("[Image] %s rejected: %v\n", field, err)
	return c.JSON(http.StatusBadRequest, map[string]string{
		"error_kind": string(models.KindUnsupportedImageForm),
		"error":      fmt.Sprintf("%s could not be read, please upload a JPEG, PNG or WebP photo or a public image URL", field),
	})
}
