package handlers

import (
	"context"
	"errors"
	"net/http"

	"leadbox/internal/cache"
	"leadbox/internal/conversations"
	"leadbox/internal/models"

	"github.com/labstack/echo/v4"
)

// invalidateAggregates drops cached metrics and trends after a successful
// mutation so the next read reflects the new view
func invalidateAggregates(viewCache *cache.Cache) {
	viewCache.InvalidatePrefix(metricsCachePrefix)
	viewCache.InvalidatePrefix(trendsCachePrefix)
}

// mutationHandler wraps a single optimistic mutation into an echo handler.
// A false result means the write failed and the view was rolled back; the
// client gets the rejection and can offer a retry.
func mutationHandler(viewCache *cache.Cache, mutate func(ctx context.Context, id string) bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !mutate(c.Request().Context(), c.Param("id")) {
			return c.JSON(http.StatusBadGateway, models.MutationResponse{
				Success: false,
				Error:   "mutation failed, state rolled back",
			})
		}

		invalidateAggregates(viewCache)
		return c.JSON(http.StatusOK, models.MutationResponse{Success: true})
	}
}

// MarkReadHandler marks a conversation as read
// @Summary Mark conversation read
// @Tags mutations
// @Produce json
// @Param id path string true "Conversation id"
// @Success 200 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/read [post]
func MarkReadHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return mutationHandler(viewCache, coord.MarkRead)
}

// ToggleLCPHandler flips the LCP feature on a conversation
// @Summary Toggle LCP
// @Tags mutations
// @Produce json
// @Param id path string true "Conversation id"
// @Success 200 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/lcp [post]
func ToggleLCPHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return mutationHandler(viewCache, coord.ToggleLCP)
}

// ToggleReviewOverrideHandler flips review checking on a conversation
// @Summary Toggle review override
// @Tags mutations
// @Produce json
// @Param id path string true "Conversation id"
// @Success 200 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/review-override [post]
func ToggleReviewOverrideHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return mutationHandler(viewCache, coord.ToggleReviewOverride)
}

// UnflagHandler clears the AI review flag
// @Summary Unflag for review
// @Tags mutations
// @Produce json
// @Param id path string true "Conversation id"
// @Success 200 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/unflag [post]
func UnflagHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return mutationHandler(viewCache, coord.UnflagForReview)
}

// ClearFlagHandler clears the completion-ready flag
// @Summary Clear completion flag
// @Tags mutations
// @Produce json
// @Param id path string true "Conversation id"
// @Success 200 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/clear-flag [post]
func ClearFlagHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return mutationHandler(viewCache, coord.ClearCompletionFlag)
}

// NotSpamHandler reopens a conversation marked as spam
// @Summary Mark not spam
// @Tags mutations
// @Produce json
// @Param id path string true "Conversation id"
// @Success 200 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/not-spam [post]
func NotSpamHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return mutationHandler(viewCache, coord.MarkNotSpam)
}

// CompleteHandler closes a conversation with a reason payload
// @Summary Complete conversation
// @Tags mutations
// @Accept json
// @Produce json
// @Param id path string true "Conversation id"
// @Param request body models.CompleteRequest true "Completion payload"
// @Success 200 {object} models.MutationResponse
// @Failure 400 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/complete [post]
func CompleteHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.CompleteRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.MutationResponse{
				Success: false,
				Error:   "invalid request body",
			})
		}
		if req.Reason == "" {
			return c.JSON(http.StatusBadRequest, models.MutationResponse{
				Success: false,
				Error:   "reason is required",
			})
		}

		if !coord.Complete(c.Request().Context(), c.Param("id"), req.Reason, req.NextSteps) {
			return c.JSON(http.StatusBadGateway, models.MutationResponse{
				Success: false,
				Error:   "mutation failed, state rolled back",
			})
		}

		invalidateAggregates(viewCache)
		return c.JSON(http.StatusOK, models.MutationResponse{Success: true})
	}
}

// SaveNotesHandler replaces the agent notes on a conversation
// @Summary Save notes
// @Tags mutations
// @Accept json
// @Produce json
// @Param id path string true "Conversation id"
// @Param request body models.NotesRequest true "Notes payload"
// @Success 200 {object} models.MutationResponse
// @Failure 400 {object} models.MutationResponse
// @Failure 502 {object} models.MutationResponse
// @Router /api/conversations/{id}/notes [post]
func SaveNotesHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.NotesRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.MutationResponse{
				Success: false,
				Error:   "invalid request body",
			})
		}

		if !coord.SaveNotes(c.Request().Context(), c.Param("id"), req.Notes) {
			return c.JSON(http.StatusBadGateway, models.MutationResponse{
				Success: false,
				Error:   "mutation failed, state rolled back",
			})
		}

		invalidateAggregates(viewCache)
		return c.JSON(http.StatusOK, models.MutationResponse{Success: true})
	}
}

// BulkHandler runs a bulk operation over a selection of conversations
// @Summary Bulk operation
// @Description Applies delete, markComplete or addNote to each selected id independently
// @Tags mutations
// @Accept json
// @Produce json
// @Param request body models.BulkRequest true "Bulk request"
// @Success 200 {object} models.BulkResponse
// @Failure 400 {object} models.BulkResponse
// @Failure 409 {object} models.BulkResponse
// @Router /api/conversations/bulk [post]
func BulkHandler(coord *conversations.Coordinator, viewCache *cache.Cache) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req models.BulkRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, models.BulkResponse{
				Success: false,
				Error:   "invalid request body",
			})
		}
		if len(req.IDs) == 0 {
			return c.JSON(http.StatusBadRequest, models.BulkResponse{
				Success: false,
				Error:   "ids are required",
			})
		}

		result, err := coord.ApplyToSelection(c.Request().Context(), req.IDs, req.Operation, req.Note)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, conversations.ErrBulkInFlight) {
				status = http.StatusConflict
			}
			return c.JSON(status, models.BulkResponse{
				Success: false,
				Error:   err.Error(),
			})
		}

		invalidateAggregates(viewCache)
		return c.JSON(http.StatusOK, models.BulkResponse{
			Success:   len(result.Failed) == 0,
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
		})
	}
}
