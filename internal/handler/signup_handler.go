package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/service"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
	"github.com/campushub/clubhub-api/pkg/response"
)

// SignupHandler serves signup intake and identity availability checks.
type SignupHandler struct {
	signup       *service.SignupService
	availability *service.AvailabilityService
}

// NewSignupHandler creates a new handler.
func NewSignupHandler(signup *service.SignupService, availability *service.AvailabilityService) *SignupHandler {
	return &SignupHandler{signup: signup, availability: availability}
}

// Signup godoc
// @Summary Submit a signup
// @Description Register a student account directly or queue an organizer/admin account request
// @Tags Signup
// @Accept json
// @Produce json
// @Param payload body models.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/signup [post]
func (h *SignupHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.signup.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, res)
}

// Availability godoc
// @Summary Check identity availability
// @Description Report whether a username or email can still be claimed. Answers are advisory; signup re-validates.
// @Tags Signup
// @Produce json
// @Param type query string true "Identity kind" Enums(username, email)
// @Param value query string true "Value to check"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/signup/availability [get]
func (h *SignupHandler) Availability(c *gin.Context) {
	kind := models.IdentityKind(c.Query("type"))
	value := c.Query("value")
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "value is required"))
		return
	}
	if kind != models.IdentityUsername && kind != models.IdentityEmail {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "type must be username or email"))
		return
	}

	result := h.availability.Check(c.Request.Context(), kind, value)
	response.JSON(c, http.StatusOK, result, nil)
}
