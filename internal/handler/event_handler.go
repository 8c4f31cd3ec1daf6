package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/clubhub-api/internal/middleware"
	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/service"
	"github.com/campushub/clubhub-api/pkg/response"
)

// EventHandler serves the read-only event catalogue.
type EventHandler struct {
	service *service.EventService
}

// NewEventHandler creates a new handler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{service: svc}
}

// List godoc
// @Summary List events
// @Description List events for the discover page, optionally filtered by category
// @Tags Events
// @Produce json
// @Param category query string false "Category"
// @Param sort query string false "Ordering" Enums(latest, closest, popular) default(latest)
// @Param limit query int false "Maximum results"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	filter := models.EventFilter{
		Category: c.Query("category"),
		Sort:     models.EventSort(c.DefaultQuery("sort", string(models.EventSortLatest))),
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))

	events, cacheHit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, events, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get an event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, event, nil)
}
