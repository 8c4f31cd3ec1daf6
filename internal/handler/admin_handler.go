package handler

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campushub/clubhub-api/internal/middleware"
	"github.com/campushub/clubhub-api/internal/models"
	"github.com/campushub/clubhub-api/internal/service"
	appErrors "github.com/campushub/clubhub-api/pkg/errors"
	"github.com/campushub/clubhub-api/pkg/response"
)

// AdminHandler serves the admin review console: the account-request queue,
// request exports and the system metrics snapshot.
type AdminHandler struct {
	approvals *service.ApprovalService
	exports   *service.ExportService
	metrics   *service.MetricsService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(approvals *service.ApprovalService, exports *service.ExportService, metrics *service.MetricsService) *AdminHandler {
	return &AdminHandler{approvals: approvals, exports: exports, metrics: metrics}
}

// ListRequests godoc
// @Summary List account requests
// @Description List account requests newest first, optionally filtered by kind and status
// @Tags Admin
// @Produce json
// @Param kind query string false "Request kind" Enums(organizer, admin)
// @Param status query string false "Request status" Enums(pending, approved, rejected)
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/requests [get]
func (h *AdminHandler) ListRequests(c *gin.Context) {
	filter := requestFilterFromQuery(c)

	requests, pagination, err := h.approvals.ListRequests(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, pagination)
}

// GetRequest godoc
// @Summary Get an account request
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/requests/{id} [get]
func (h *AdminHandler) GetRequest(c *gin.Context) {
	request, err := h.approvals.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// ApproveRequest godoc
// @Summary Approve an account request
// @Description Create the account (and club for organizer requests) and mint the activation token
// @Tags Admin
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/requests/{id}/approve [post]
func (h *AdminHandler) ApproveRequest(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	result, err := h.approvals.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// RejectRequest godoc
// @Summary Reject an account request
// @Description Resolve a pending request as rejected, releasing its email and username
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body models.RejectRequest false "Rejection reason"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/requests/{id}/reject [post]
func (h *AdminHandler) RejectRequest(c *gin.Context) {
	claims := middleware.CurrentUser(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
			return
		}
	}

	if err := h.approvals.Reject(c.Request.Context(), c.Param("id"), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ExportRequests godoc
// @Summary Export the request ledger
// @Description Render the account-request ledger to CSV or PDF and return a signed download token
// @Tags Admin
// @Produce json
// @Param format query string false "Export format" Enums(csv, pdf) default(csv)
// @Param kind query string false "Request kind" Enums(organizer, admin)
// @Param status query string false "Request status" Enums(pending, approved, rejected)
// @Success 200 {object} response.Envelope
// @Router /admin/requests/export [get]
func (h *AdminHandler) ExportRequests(c *gin.Context) {
	format := models.ExportFormat(c.DefaultQuery("format", "csv"))
	filter := requestFilterFromQuery(c)

	result, err := h.exports.ExportRequests(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadExport godoc
// @Summary Download an export
// @Description Stream a previously rendered export file; the token carries its own authentication
// @Tags Admin
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/download [get]
func (h *AdminHandler) DownloadExport(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, relPath, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.FileAttachment(file.Name(), filepath.Base(relPath))
}

// SystemMetrics godoc
// @Summary System metrics snapshot
// @Description Aggregate cache, request and database counters for the admin console
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/metrics [get]
func (h *AdminHandler) SystemMetrics(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "metrics are not configured"))
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}

func requestFilterFromQuery(c *gin.Context) models.RequestFilter {
	var filter models.RequestFilter
	if kind := c.Query("kind"); kind != "" {
		k := models.RequestKind(kind)
		filter.Kind = &k
	}
	if status := c.Query("status"); status != "" {
		s := models.RequestStatus(status)
		filter.Status = &s
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return filter
}
