package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-gatepass-api/internal/dto"
	"github.com/noah-isme/sma-gatepass-api/internal/models"
	appErrors "github.com/noah-isme/sma-gatepass-api/pkg/errors"
	"github.com/noah-isme/sma-gatepass-api/pkg/response"
)

type gatePassService interface {
	Issue(ctx context.Context, req dto.IssueGatePassRequest, actor *models.JWTClaims) (*models.GatePass, error)
	MarkOut(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePass, error)
	MarkIn(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePass, error)
	Cancel(ctx context.Context, id string, req dto.CancelGatePassRequest, actor *models.JWTClaims) (*dto.CancelGatePassResult, error)
	Edit(ctx context.Context, id string, req dto.EditGatePassRequest, actor *models.JWTClaims) (*models.GatePass, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePassDetail, error)
	List(ctx context.Context, query dto.GatePassQuery, actor *models.JWTClaims) (*dto.GatePassListResponse, error)
	ClassRoster(ctx context.Context, classID string, actor *models.JWTClaims) ([]models.Student, error)
}

type dashboardInvalidator interface {
	InvalidateGate(ctx context.Context)
}

// GatePassHandler exposes REST endpoints for the gate pass lifecycle.
type GatePassHandler struct {
	service   gatePassService
	dashboard dashboardInvalidator
}

// NewGatePassHandler constructs the handler.
func NewGatePassHandler(service gatePassService, dashboard dashboardInvalidator) *GatePassHandler {
	return &GatePassHandler{service: service, dashboard: dashboard}
}

// Issue godoc
// @Summary Issue a new gate pass
// @Tags GatePasses
// @Accept json
// @Produce json
// @Param payload body dto.IssueGatePassRequest true "Gate pass payload"
// @Success 201 {object} response.Envelope
// @Router /gate-passes [post]
func (h *GatePassHandler) Issue(c *gin.Context) {
	var req dto.IssueGatePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid gate pass payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	pass, err := h.service.Issue(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateDashboard(c)
	response.JSON(c, http.StatusCreated, pass, nil)
}

// List godoc
// @Summary List gate passes with filters and status counts
// @Tags GatePasses
// @Produce json
// @Param status query string false "Status filter"
// @Param type query string false "Type filter"
// @Param q query string false "Free text search"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /gate-passes [get]
func (h *GatePassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.GatePassQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	listing, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Get godoc
// @Summary Get gate pass detail
// @Tags GatePasses
// @Produce json
// @Param id path string true "Gate pass ID"
// @Success 200 {object} response.Envelope
// @Router /gate-passes/{id} [get]
func (h *GatePassHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Edit godoc
// @Summary Edit an issued gate pass
// @Tags GatePasses
// @Accept json
// @Produce json
// @Param id path string true "Gate pass ID"
// @Param payload body dto.EditGatePassRequest true "Editable fields"
// @Success 200 {object} response.Envelope
// @Router /gate-passes/{id} [patch]
func (h *GatePassHandler) Edit(c *gin.Context) {
	var req dto.EditGatePassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid edit payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	pass, err := h.service.Edit(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pass, nil)
}

// MarkOut godoc
// @Summary Record the person leaving through the gate
// @Tags GatePasses
// @Produce json
// @Param id path string true "Gate pass ID"
// @Success 200 {object} response.Envelope
// @Router /gate-passes/{id}/out [post]
func (h *GatePassHandler) MarkOut(c *gin.Context) {
	h.transition(c, h.service.MarkOut)
}

// MarkIn godoc
// @Summary Record the person returning through the gate
// @Tags GatePasses
// @Produce json
// @Param id path string true "Gate pass ID"
// @Success 200 {object} response.Envelope
// @Router /gate-passes/{id}/in [post]
func (h *GatePassHandler) MarkIn(c *gin.Context) {
	h.transition(c, h.service.MarkIn)
}

// Cancel godoc
// @Summary Cancel a gate pass
// @Tags GatePasses
// @Accept json
// @Produce json
// @Param id path string true "Gate pass ID"
// @Param payload body dto.CancelGatePassRequest false "Cancel reason"
// @Success 200 {object} response.Envelope
// @Router /gate-passes/{id}/cancel [post]
func (h *GatePassHandler) Cancel(c *gin.Context) {
	var req dto.CancelGatePassRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid cancel payload"))
			return
		}
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.AlreadyCancelled {
		h.invalidateDashboard(c)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClassRoster godoc
// @Summary List active students of a class for issuance forms
// @Tags Directory
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students [get]
func (h *GatePassHandler) ClassRoster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	students, err := h.service.ClassRoster(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

func (h *GatePassHandler) transition(c *gin.Context, apply func(ctx context.Context, id string, actor *models.JWTClaims) (*models.GatePass, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	pass, err := apply(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateDashboard(c)
	response.JSON(c, http.StatusOK, pass, nil)
}

func (h *GatePassHandler) invalidateDashboard(c *gin.Context) {
	if h.dashboard == nil {
		return
	}
	h.dashboard.InvalidateGate(c.Request.Context())
}
