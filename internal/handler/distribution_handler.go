package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studisys/docshare-api/internal/models"
	"github.com/studisys/docshare-api/internal/service"
	appErrors "github.com/studisys/docshare-api/pkg/errors"
	"github.com/studisys/docshare-api/pkg/response"
)

// DistributionHandler wires HTTP endpoints to the distribution service.
type DistributionHandler struct {
	service *service.DistributionService
}

// NewDistributionHandler creates a new handler.
func NewDistributionHandler(svc *service.DistributionService) *DistributionHandler {
	return &DistributionHandler{service: svc}
}

// Create godoc
// @Summary Create distribution
// @Description Create a new pending document distribution owned by the caller
// @Tags Distributions
// @Accept json
// @Produce json
// @Param payload body service.CreateDistributionRequest true "Distribution payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions [post]
func (h *DistributionHandler) Create(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid distribution payload"))
		return
	}

	dist, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dist)
}

// Get godoc
// @Summary Get distribution
// @Description Get a distribution; allowed reads are recorded as view events
// @Tags Distributions
// @Produce json
// @Param id path string true "Distribution ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id} [get]
func (h *DistributionHandler) Get(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dist, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dist, nil)
}

// List godoc
// @Summary List distributions
// @Description List the caller's own distributions, or a course's visible ones when course_id is given
// @Tags Distributions
// @Produce json
// @Param course_id query string false "Filter by course"
// @Success 200 {object} response.Envelope
// @Router /distributions [get]
func (h *DistributionHandler) List(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	dists, err := h.service.List(c.Request.Context(), claims, c.Query("course_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dists, nil)
}

// AddFiles godoc
// @Summary Add files
// @Description Append files to a distribution the caller owns
// @Tags Distributions
// @Accept json
// @Produce json
// @Param id path string true "Distribution ID"
// @Param payload body service.AddFilesRequest true "Files payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/files [post]
func (h *DistributionHandler) AddFiles(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid files payload"))
		return
	}

	dist, err := h.service.AddFiles(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dist, nil)
}

// UploadFile godoc
// @Summary Upload file
// @Description Upload file content into the distribution's storage folder and register it
// @Tags Distributions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Distribution ID"
// @Param file formData file true "File content"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/files/upload [post]
func (h *DistributionHandler) UploadFile(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing file form field"))
		return
	}
	content, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read uploaded file"))
		return
	}
	defer content.Close() //nolint:errcheck

	dist, err := h.service.UploadFile(c.Request.Context(), c.Param("id"), claims, service.UploadFileInput{
		Name:     fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
	}, content)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dist, nil)
}

// DownloadFile godoc
// @Summary Download file
// @Description Stream a stored file; allowed downloads are recorded as download events
// @Tags Distributions
// @Produce application/octet-stream
// @Param id path string true "Distribution ID"
// @Param file_id path string true "File ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/files/{file_id} [get]
func (h *DistributionHandler) DownloadFile(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	content, file, err := h.service.DownloadFile(c.Request.Context(), c.Param("id"), c.Param("file_id"),
		claims, c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer content.Close() //nolint:errcheck

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", file.Name))
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, content, nil)
}

// Share godoc
// @Summary Share with teacher
// @Description Additively grant one teacher access to the distribution
// @Tags Distributions
// @Accept json
// @Produce json
// @Param id path string true "Distribution ID"
// @Param payload body service.ShareRequest true "Share payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/share [post]
func (h *DistributionHandler) Share(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid share payload"))
		return
	}

	dist, err := h.service.ShareWithTeacher(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dist, nil)
}

// UpdateStatus godoc
// @Summary Update status
// @Description Transition the distribution lifecycle state
// @Tags Distributions
// @Accept json
// @Produce json
// @Param id path string true "Distribution ID"
// @Param payload body service.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /distributions/{id}/status [patch]
func (h *DistributionHandler) UpdateStatus(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	dist, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dist, nil)
}

// UpdatePermissions godoc
// @Summary Update permissions
// @Description Replace the distribution's permission matrix
// @Tags Distributions
// @Accept json
// @Produce json
// @Param id path string true "Distribution ID"
// @Param payload body models.PermissionMatrix true "Permission matrix"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/permissions [put]
func (h *DistributionHandler) UpdatePermissions(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var matrix models.PermissionMatrix
	if err := c.ShouldBindJSON(&matrix); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid permission matrix"))
		return
	}

	dist, err := h.service.UpdatePermissions(c.Request.Context(), c.Param("id"), claims, matrix)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, dist, nil)
}

// TrackAccess godoc
// @Summary Track access event
// @Description Record a view/download/comment/edit event against the distribution
// @Tags Distributions
// @Accept json
// @Produce json
// @Param id path string true "Distribution ID"
// @Param payload body service.TrackAccessRequest true "Access event payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/access [post]
func (h *DistributionHandler) TrackAccess(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.TrackAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid access event payload"))
		return
	}

	if err := h.service.TrackAccess(c.Request.Context(), c.Param("id"), claims, req, c.ClientIP(), c.GetHeader("User-Agent")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ExportAccessReport godoc
// @Summary Export access report
// @Description Download the distribution's analytics as a PDF report
// @Tags Distributions
// @Produce application/pdf
// @Param id path string true "Distribution ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/export/access-report [get]
func (h *DistributionHandler) ExportAccessReport(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.service.ExportAccessReport(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=access-report-%s.pdf", c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", data)
}

// ExportAuditTrail godoc
// @Summary Export audit trail
// @Description Download the distribution's audit trail as CSV
// @Tags Distributions
// @Produce text/csv
// @Param id path string true "Distribution ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /distributions/{id}/export/audit-trail [get]
func (h *DistributionHandler) ExportAuditTrail(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.service.ExportAuditTrail(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=audit-trail-%s.csv", c.Param("id")))
	c.Data(http.StatusOK, "text/csv", data)
}
