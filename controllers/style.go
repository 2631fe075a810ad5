package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

type StyleAdviceIn struct {
	GarmentImage string `json:"garment_image" validate:"required"`
}

type StyleController struct {
	Advisor  StyleAdvisor
	FetchURL ImageFetcher
}

func (controller *StyleController) StyleRoutes(g *echo.Group) {
	g.POST("/advice", controller.GetStyleAdvice)
}

// GetStyleAdvice always answers 200 once the garment image is readable.
func (controller *StyleController) GetStyleAdvice(c echo.Context) error {
	var req StyleAdviceIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if controller.Advisor == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Style advice is not available"})
	}

	garment, err := resolveImage(c.Request().Context(), req.GarmentImage, controller.FetchURL)
	if err != nil {
		return imageError(c, "garment_image", err)
	}
	return c.JSON(http.StatusOK, controller.Advisor.GetRecommendations(c.Request().Context(), garment))
}
