// internal/handlers/application.go
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/i18n"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/services"
	"github.com/javajoker/registration-backend/internal/utils"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
	maxFileSize        int64
}

type ReviewRequest struct {
	Decision string `json:"decision" binding:"required"`
	Comment  string `json:"comment"`
}

type FinalizeRequest struct {
	Approve bool   `json:"approve"`
	Comment string `json:"comment"`
}

type AssignRequest struct {
	ReviewerID *uuid.UUID `json:"reviewer_id"`
}

func NewApplicationHandler(applicationService *services.ApplicationService, maxFileSize int64) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		maxFileSize:        maxFileSize,
	}
}

// POST /applications
//
// Accepts either a JSON ApplicationForm, or a multipart form whose
// "application" field holds the JSON form and whose file fields are named
// after the document type (ID_CARD, TRANSCRIPT, ...).
func (h *ApplicationHandler) CreateApplication(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var form services.ApplicationForm
	var uploads []*services.DocumentUpload

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		multipartForm, err := c.MultipartForm()
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "form"), err.Error())
			return
		}
		if err := json.Unmarshal([]byte(c.PostForm("application")), &form); err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "application"), err.Error())
			return
		}
		uploads, err = h.readUploads(multipartForm)
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "documents"), err.Error())
			return
		}
	} else if !bindJSON(c, &form) {
		return
	}

	form.ApplicantID = userID
	application, err := h.applicationService.CreateApplication(c.Request.Context(), &form, uploads)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"application": application,
	})
}

// readUploads turns every file field into a DocumentUpload, sorted by field
// name so the document order does not depend on the client.
func (h *ApplicationHandler) readUploads(form *multipart.Form) ([]*services.DocumentUpload, error) {
	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var uploads []*services.DocumentUpload
	for _, field := range fields {
		for _, header := range form.File[field] {
			upload, err := readUpload(header, models.DocumentType(strings.ToUpper(field)), h.maxFileSize)
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, upload)
		}
	}
	return uploads, nil
}

// readUpload reads at most maxSize+1 bytes so oversized files are still
// recorded and then rejected by the automatic validation.
func readUpload(header *multipart.FileHeader, docType models.DocumentType, maxSize int64) (*services.DocumentUpload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer file.Close()

	reader := io.Reader(file)
	if maxSize > 0 {
		reader = io.LimitReader(file, maxSize+1)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}

	return &services.DocumentUpload{
		Type:        docType,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// GET /applications
func (h *ApplicationHandler) ListApplications(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	filter := repository.ApplicationFilter{
		Status:     models.ApplicationStatus(strings.ToUpper(c.Query("status"))),
		Program:    c.Query("program"),
		Pagination: params,
	}
	if !role.CanReview() {
		filter.ApplicantID = &userID
	}

	applications, total, err := h.applicationService.ListApplications(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(applications, total, params))
}

// GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	application, ok := h.loadVisible(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}

// GET /applications/:id/history
func (h *ApplicationHandler) GetApplicationHistory(c *gin.Context) {
	application, ok := h.loadVisible(c)
	if !ok {
		return
	}

	history, err := h.applicationService.GetApplicationHistory(c.Request.Context(), application.ID)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"history": history,
	})
}

// loadVisible loads the :id application when the caller is its applicant or a reviewer.
func (h *ApplicationHandler) loadVisible(c *gin.Context) (*models.Application, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}

	application, found, err := h.applicationService.GetApplication(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "application")
		return nil, false
	}
	if !found {
		utils.NotFoundResponse(c, "application")
		return nil, false
	}
	if application.ApplicantID != userID && !role.CanReview() {
		// Other applicants' dossiers look the same as missing ones.
		utils.NotFoundResponse(c, "application")
		return nil, false
	}
	return application, true
}

// POST /applications/:id/pre-validate
func (h *ApplicationHandler) PreValidate(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.applicationService.PerformPreValidation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"result": result,
	})
}

// POST /applications/:id/assign
func (h *ApplicationHandler) Assign(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AssignRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	assignment, err := h.applicationService.AssignForManualReview(c.Request.Context(), id, req.ReviewerID)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"assignment": assignment,
	})
}

// POST /applications/:id/start-review
func (h *ApplicationHandler) StartReview(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	application, err := h.applicationService.StartReview(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}

// POST /applications/:id/review
func (h *ApplicationHandler) Review(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	application, err := h.applicationService.ReviewDossier(c.Request.Context(), id, req.Decision, userID, req.Comment)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}

// POST /applications/:id/finalize
func (h *ApplicationHandler) Finalize(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req FinalizeRequest
	if !bindJSON(c, &req) {
		return
	}

	application, err := h.applicationService.FinalizeApplication(c.Request.Context(), id, userID, req.Approve, req.Comment)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}

// PUT /applications/:id/resubmit
func (h *ApplicationHandler) Resubmit(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.ResubmissionForm
	if !bindJSON(c, &req) {
		return
	}

	application, err := h.applicationService.ResubmitApplication(c.Request.Context(), id, userID, &req)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"application": application,
	})
}
