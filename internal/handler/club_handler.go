package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/clubhub-api/internal/middleware"
	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/service"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
	"github.com/campushub/clubhub-api/pkg/response"
)

// ClubHandler serves the club directory.
type ClubHandler struct {
	service *service.ClubService
}

// NewClubHandler creates a new handler.
func NewClubHandler(svc *service.ClubService) *ClubHandler {
	return &ClubHandler{service: svc}
}

// List godoc
// @Summary List clubs
// @Tags Clubs
// @Produce json
// @Param status query string false "Club status" Enums(active, inactive)
// @Param search query string false "Search term"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /clubs [get]
func (h *ClubHandler) List(c *gin.Context) {
	var filter models.ClubFilter
	if status := c.Query("status"); status != "" {
		s := models.ClubStatus(status)
		filter.Status = &s
	}
	filter.Search = c.Query("search")
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	clubs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, clubs, pagination)
}

// Get godoc
// @Summary Get a club
// @Tags Clubs
// @Produce json
// @Param id path string true "Club ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clubs/{id} [get]
func (h *ClubHandler) Get(c *gin.Context) {
	club, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, club, nil)
}

// MyClub godoc
// @Summary Organizer's own club
// @Description Return the club owned by the authenticated organizer
// @Tags Clubs
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /clubs/mine [get]
func (h *ClubHandler) MyClub(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	club, err := h.service.GetByOrganizer(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, club, nil)
}
