package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"leadbox/internal/conversations"
	"leadbox/internal/models"

	"github.com/labstack/echo/v4"
)

// ConversationsHandler lists the processed inbox view
// @Summary List conversations
// @Description Returns the filtered, sorted conversation view
// @Tags conversations
// @Produce json
// @Param status query string false "Comma-separated statuses (active,pending,completed,flagged,spam)"
// @Param ev_min query number false "Minimum EV score (inclusive)"
// @Param ev_max query number false "Maximum EV score (inclusive)"
// @Param date_from query string false "Earliest last activity (RFC3339)"
// @Param date_to query string false "Latest last activity (RFC3339)"
// @Param q query string false "Case-insensitive search over name, email, id and summary"
// @Param pending_only query boolean false "Only conversations awaiting a reply"
// @Param sort query string false "Sort field: lastMessage, aiScore or date"
// @Param direction query string false "Sort direction: asc or desc"
// @Param refresh query boolean false "Reload raw records from the store first"
// @Success 200 {object} models.ConversationsResponse
// @Failure 502 {object} models.ConversationsResponse
// @Router /api/conversations [get]
func ConversationsHandler(svc *conversations.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
		if refresh || len(svc.Snapshot()) == 0 {
			if err := svc.Refresh(c.Request().Context()); err != nil {
				return c.JSON(http.StatusBadGateway, models.ConversationsResponse{
					Success: false,
					Error:   err.Error(),
				})
			}
		}

		items, total := svc.List(parseFilterSpec(c), parseSortSpec(c))

		return c.JSON(http.StatusOK, models.ConversationsResponse{
			Success:       true,
			Conversations: items,
			Total:         total,
		})
	}
}

// ConversationHandler returns a single processed conversation
// @Summary Get one conversation
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation id"
// @Success 200 {object} models.ConversationResponse
// @Failure 404 {object} models.ConversationResponse
// @Router /api/conversations/{id} [get]
func ConversationHandler(svc *conversations.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		item, ok := svc.Get(c.Param("id"))
		if !ok {
			return c.JSON(http.StatusNotFound, models.ConversationResponse{
				Success: false,
				Error:   "conversation not found",
			})
		}

		return c.JSON(http.StatusOK, models.ConversationResponse{
			Success:      true,
			Conversation: &item,
		})
	}
}

// parseFilterSpec builds the filter spec from query parameters; unrecognized
// values fall back to the no-filter default for that category
func parseFilterSpec(c echo.Context) models.FilterSpec {
	spec := models.FilterSpec{
		SearchQuery: c.QueryParam("q"),
	}

	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			switch models.Status(strings.TrimSpace(s)) {
			case models.StatusActive, models.StatusPending, models.StatusCompleted,
				models.StatusFlagged, models.StatusSpam:
				spec.Statuses = append(spec.Statuses, models.Status(strings.TrimSpace(s)))
			}
		}
	}

	if v, err := strconv.ParseFloat(c.QueryParam("ev_min"), 64); err == nil {
		spec.EVScoreMin = &v
	}
	if v, err := strconv.ParseFloat(c.QueryParam("ev_max"), 64); err == nil {
		spec.EVScoreMax = &v
	}

	if t, err := time.Parse(time.RFC3339, c.QueryParam("date_from")); err == nil {
		spec.DateFrom = &t
	}
	if t, err := time.Parse(time.RFC3339, c.QueryParam("date_to")); err == nil {
		spec.DateTo = &t
	}

	spec.ShowPendingOnly, _ = strconv.ParseBool(c.QueryParam("pending_only"))

	return spec
}

func parseSortSpec(c echo.Context) models.SortSpec {
	spec := models.SortSpec{
		Field:     models.SortByLastMessage,
		Direction: models.SortDesc,
	}

	switch models.SortField(c.QueryParam("sort")) {
	case models.SortByAIScore:
		spec.Field = models.SortByAIScore
	case models.SortByDate:
		spec.Field = models.SortByDate
	}

	if c.QueryParam("direction") == string(models.SortAsc) {
		spec.Direction = models.SortAsc
	}

	return spec
}
