package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-od-api/internal/dto"
	"github.com/noah-isme/campus-od-api/internal/middleware"
	"github.com/noah-isme/campus-od-api/internal/models"
	appErrors "github.com/noah-isme/campus-od-api/pkg/errors"
	"github.com/noah-isme/campus-od-api/pkg/response"
)

type odService interface {
	Create(ctx context.Context, req dto.CreateODRequest, actor *models.JWTClaims) (*models.ODRequest, error)
	ListByStudent(ctx context.Context, email string, actor *models.JWTClaims) ([]models.ODRequest, bool, error)
	List(ctx context.Context, query dto.ODQuery) ([]models.ODRequest, *models.Pagination, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ODRequest, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateODStatusRequest, reviewer *models.JWTClaims) (*models.ODRequest, error)
	Stats(ctx context.Context) (*models.ODStats, error)
}

// ODHandler exposes the OD request endpoints.
type ODHandler struct {
	service odService
}

// NewODHandler constructs an ODHandler.
func NewODHandler(svc odService) *ODHandler {
	return &ODHandler{service: svc}
}

// Create godoc
// @Summary Submit an OD request
// @Description Stores a new request with status pending. Students may only submit for their own email.
// @Tags OD
// @Accept json
// @Produce json
// @Param payload body dto.CreateODRequest true "OD request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /od/request [post]
func (h *ODHandler) Create(c *gin.Context) {
	var req dto.CreateODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid od request payload"))
		return
	}

	od, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, od)
}

// ListByStudent godoc
// @Summary List a student's OD requests
// @Description Newest first. Students may only list their own email.
// @Tags OD
// @Produce json
// @Param email path string true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /od/student/{email} [get]
func (h *ODHandler) ListByStudent(c *gin.Context) {
	list, hit, err := h.service.ListByStudent(c.Request.Context(), c.Param("email"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, list, nil, middleware.ExtractMeta(c))
}

// ListAll godoc
// @Summary List all OD requests
// @Description Faculty view with optional status filter, search, sort and paging. Without limit every row is returned.
// @Tags OD
// @Produce json
// @Param status query string false "all, pending, approved or rejected"
// @Param search query string false "Matches name, roll number, email or reason"
// @Param sort query string false "date-desc, date-asc or status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /od/all [get]
func (h *ODHandler) ListAll(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, err)
		return
	}

	list, pagination, err := h.service.List(c.Request.Context(), dto.ODQuery{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, list, pagination)
}

// Get godoc
// @Summary Get an OD request
// @Tags OD
// @Produce json
// @Param id path string true "OD request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /od/{id} [get]
func (h *ODHandler) Get(c *gin.Context) {
	od, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, od, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject an OD request
// @Tags OD
// @Accept json
// @Produce json
// @Param id path string true "OD request ID"
// @Param payload body dto.UpdateODStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /od/status/{id} [patch]
func (h *ODHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateODStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	od, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, od, nil)
}

// Stats godoc
// @Summary Count OD requests per status
// @Tags OD
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /od/stats [get]
func (h *ODHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a number")
	}
	return v, nil
}
