package handlers

import (
	"net/http"
	"time"

	"leadbox/internal/config"
	"leadbox/internal/conversations"
	"leadbox/internal/models"
	"leadbox/internal/scorer"
	"leadbox/internal/store"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RescoreHandler runs the AI scorer over unscored inbound messages
// @Summary Rescore unscored messages
// @Description Scores every unscored inbound message and refreshes the view
// @Tags Admin
// @Produce json
// @Success 200 {object} models.RescoreResponse
// @Failure 500 {object} models.RescoreResponse
// @Failure 503 {object} models.RescoreResponse
// @Router /api/admin/rescore [post]
func RescoreHandler(cfg *config.Config, rs store.RecordStore, svc *conversations.Service, logger zerolog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !cfg.EnableScorer || cfg.OpenAIKey == "" {
			return c.JSON(http.StatusServiceUnavailable, models.RescoreResponse{
				Success: false,
				Error:   "scorer is not configured",
			})
		}

		client, err := scorer.NewClient(cfg.OpenAIKey, time.Duration(cfg.OpenAITimeout)*time.Second, logger)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.RescoreResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		scored, skipped, err := scorer.RescoreUnscored(c.Request().Context(), rs, client, logger)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.RescoreResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		// Absorb the new scores into the view
		if err := svc.Refresh(c.Request().Context()); err != nil {
			logger.Warn().Err(err).Msg("View refresh after rescore failed")
		}

		return c.JSON(http.StatusOK, models.RescoreResponse{
			Success: true,
			Scored:  scored,
			Skipped: skipped,
		})
	}
}
