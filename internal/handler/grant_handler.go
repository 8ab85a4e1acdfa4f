package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studisys/docshare-api/internal/service"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
	"github.com/studisys/docshare-api/pkg/response"
)

// GrantHandler wires HTTP endpoints to the grant service.
type GrantHandler struct {
	service *service.GrantService
}

// NewGrantHandler creates a new handler.
func NewGrantHandler(svc *service.GrantService) *GrantHandler {
	return &GrantHandler{service: svc}
}

// ListAccessibleCourses godoc
// @Summary List accessible courses
// @Description List the ongoing courses the calling teacher has been granted access to
// @Tags Grants
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /grants/accessible-courses [get]
func (h *GrantHandler) ListAccessibleCourses(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	courses, err := h.service.ListAccessibleCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, nil)
}
