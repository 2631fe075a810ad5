package controllers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimitMiddleware rejects requests while every generation slot is taken.
func ConcurrencyLimitMiddleware(slots *semaphore.Weighted) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !slots.TryAcquire(1) {
				fmt.Println("[TryOn] All generation slots busy, rejecting", c.Request().URL.Path)
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "Too many generations in progress, please try again in a moment"})
			}
			defer slots.Release(1)
			return next(c)
		}
	}
}
