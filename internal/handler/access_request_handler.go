package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studisys/docshare-api/internal/models"
	"github.com/studisys/docshare-api/internal/service"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
	"github.com/studisys/docshare-api/pkg/response"
)

// AccessRequestHandler wires HTTP endpoints to the access request service.
type AccessRequestHandler struct {
	service *service.AccessRequestService
}

// NewAccessRequestHandler creates a new handler.
func NewAccessRequestHandler(svc *service.AccessRequestService) *AccessRequestHandler {
	return &AccessRequestHandler{service: svc}
}

// Create godoc
// @Summary Request course access
// @Description File a pending course access request addressed to a module leader
// @Tags AccessRequests
// @Accept json
// @Produce json
// @Param payload body service.CreateAccessRequestRequest true "Access request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /access-requests [post]
func (h *AccessRequestHandler) Create(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateAccessRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid access request payload"))
		return
	}

	request, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// Respond godoc
// @Summary Respond to an access request
// @Description Approve or reject a pending access request
// @Tags AccessRequests
// @Accept json
// @Produce json
// @Param id path string true "Access request ID"
// @Param payload body service.RespondAccessRequestRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /access-requests/{id}/respond [post]
func (h *AccessRequestHandler) Respond(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RespondAccessRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid response payload"))
		return
	}

	request, err := h.service.Respond(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// ListMine godoc
// @Summary List my access requests
// @Description List access requests filed by the calling teacher
// @Tags AccessRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /access-requests/mine [get]
func (h *AccessRequestHandler) ListMine(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requests, err := h.service.ListForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil)
}

// ListIncoming godoc
// @Summary List incoming access requests
// @Description List access requests addressed to the calling module leader, optionally filtered by status
// @Tags AccessRequests
// @Produce json
// @Param status query string false "Filter by status (PENDING, APPROVED, REJECTED)"
// @Success 200 {object} response.Envelope
// @Router /access-requests/incoming [get]
func (h *AccessRequestHandler) ListIncoming(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status := models.AccessRequestStatus(c.Query("status"))
	requests, err := h.service.ListForModuleLeader(c.Request.Context(), claims.UserID, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil)
}
