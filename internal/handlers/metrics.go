package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"leadbox/internal/cache"
	"leadbox/internal/conversations"
	"leadbox/internal/models"

	"github.com/labstack/echo/v4"
)

// Cache key prefixes for derived aggregates
const (
	metricsCachePrefix = "metrics"
	trendsCachePrefix  = "trends"
)

// MetricsHandler returns aggregate counts for the current view
// @Summary Conversation metrics
// @Description Per-status counts and average EV score over the whole view
// @Tags metrics
// @Produce json
// @Success 200 {object} models.MetricsResponse
// @Router /api/metrics [get]
func MetricsHandler(svc *conversations.Service, viewCache *cache.Cache, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		if cached, ok := viewCache.Get(metricsCachePrefix); ok {
			if m, valid := cached.(models.Metrics); valid {
				return c.JSON(http.StatusOK, models.MetricsResponse{Success: true, Metrics: &m})
			}
		}

		m := svc.Metrics()
		viewCache.Set(metricsCachePrefix, m, ttl)

		return c.JSON(http.StatusOK, models.MetricsResponse{Success: true, Metrics: &m})
	}
}

// TrendsHandler compares metrics across the requested window and the
// preceding one of equal length
// @Summary Conversation trends
// @Description Directional per-metric trends for the last N days
// @Tags metrics
// @Produce json
// @Param days query int false "Window length in days (default 7)"
// @Success 200 {object} models.TrendsResponse
// @Failure 400 {object} models.TrendsResponse
// @Router /api/trends [get]
func TrendsHandler(svc *conversations.Service, viewCache *cache.Cache, ttl time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		days := 7
		if raw := c.QueryParam("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 || parsed > 365 {
				return c.JSON(http.StatusBadRequest, models.TrendsResponse{
					Success: false,
					Error:   "days must be an integer between 1 and 365",
				})
			}
			days = parsed
		}

		key := fmt.Sprintf("%s:%d", trendsCachePrefix, days)
		if cached, ok := viewCache.Get(key); ok {
			if t, valid := cached.(models.Trends); valid {
				return c.JSON(http.StatusOK, models.TrendsResponse{Success: true, Trends: &t})
			}
		}

		windowEnd := time.Now().UTC()
		windowStart := windowEnd.AddDate(0, 0, -days)
		trends := svc.Trends(windowStart, windowEnd)
		viewCache.Set(key, trends, ttl)

		return c.JSON(http.StatusOK, models.TrendsResponse{Success: true, Trends: &trends})
	}
}
