// internal/handlers/document.go
package handlers

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/registration-backend/internal/i18n"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/services"
	"github.com/javajoker/registration-backend/internal/utils"
)

type DocumentHandler struct {
	documentService    *services.DocumentService
	applicationService *services.ApplicationService
	maxFileSize        int64
	uploadsRoot        string
}

// NewDocumentHandler builds the document endpoints. uploadsRoot is the local
// storage directory and may be empty when documents live in S3.
func NewDocumentHandler(documentService *services.DocumentService, applicationService *services.ApplicationService, maxFileSize int64, uploadsRoot string) *DocumentHandler {
	return &DocumentHandler{
		documentService:    documentService,
		applicationService: applicationService,
		maxFileSize:        maxFileSize,
		uploadsRoot:        uploadsRoot,
	}
}

// POST /applications/:id/documents
//
// Multipart form with a "file" part and a "type" field.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	applicationID, ok := h.authorizeApplication(c, c.Param("id"))
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "file"), err.Error())
		return
	}

	upload, err := readUpload(header, models.DocumentType(strings.ToUpper(c.PostForm("type"))), h.maxFileSize)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "file"), err.Error())
		return
	}

	document, err := h.documentService.UploadDocument(c.Request.Context(), applicationID, upload)
	if err != nil {
		respondError(c, err, "application")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"document": document,
	})
}

// GET /uploads/applications/:id/:file
//
// Serves a locally stored document to the application's owner and reviewers.
func (h *DocumentHandler) ServeLocalDocument(c *gin.Context) {
	applicationID, ok := h.authorizeApplication(c, c.Param("id"))
	if !ok {
		return
	}

	documents, err := h.documentService.GetDocumentsByApplicationID(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, err, "document")
		return
	}

	key := path.Join("applications", applicationID.String(), c.Param("file"))
	for _, document := range documents {
		if document.StorageKey == key {
			c.File(filepath.Join(h.uploadsRoot, filepath.FromSlash(key)))
			return
		}
	}

	utils.NotFoundResponse(c, "document")
}

// GET /applications/:id/documents
func (h *DocumentHandler) ListApplicationDocuments(c *gin.Context) {
	applicationID, ok := h.authorizeApplication(c, c.Param("id"))
	if !ok {
		return
	}

	documents, err := h.documentService.GetDocumentsByApplicationID(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, err, "document")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"documents": documents,
	})
}

// GET /documents (reviewers)
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	documents, total, err := h.documentService.GetAllDocuments(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "document")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(documents, total, params))
}

// GET /documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	document, ok := h.loadVisible(c)
	if !ok {
		return
	}

	utils.SuccessResponse(c, gin.H{
		"document": document,
	})
}

// GET /documents/:id/download
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	document, ok := h.loadVisible(c)
	if !ok {
		return
	}

	url, err := h.documentService.DownloadURL(c.Request.Context(), document.ID)
	if err != nil {
		respondError(c, err, "document")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"url": url,
	})
}

// PUT /documents/:id/validate (reviewers)
func (h *DocumentHandler) ValidateDocument(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	documentID, ok := idParam(c, "id")
	if !ok {
		return
	}

	document, err := h.documentService.ManualValidation(c.Request.Context(), documentID, userID)
	if err != nil {
		respondError(c, err, "document")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"document": document,
	})
}

// DELETE /documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	document, ok := h.loadVisible(c)
	if !ok {
		return
	}

	if err := h.documentService.DeleteDocument(c.Request.Context(), document.ID); err != nil {
		respondError(c, err, "document")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyDocumentDeleted),
	})
}

func (h *DocumentHandler) loadVisible(c *gin.Context) (*models.Document, bool) {
	documentID, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}

	document, found, err := h.documentService.GetDocument(c.Request.Context(), documentID)
	if err != nil {
		respondError(c, err, "document")
		return nil, false
	}
	if !found {
		utils.NotFoundResponse(c, "document")
		return nil, false
	}

	if _, ok := h.authorizeApplication(c, document.ApplicationID.String()); !ok {
		return nil, false
	}
	return document, true
}

// authorizeApplication parses rawID and lets through reviewers and the
// application's own applicant.
func (h *DocumentHandler) authorizeApplication(c *gin.Context, rawID string) (uuid.UUID, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		return uuid.Nil, false
	}

	applicationID, err := uuid.Parse(rawID)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "id"), nil)
		return uuid.Nil, false
	}
	if role.CanReview() {
		return applicationID, true
	}

	application, found, err := h.applicationService.GetApplication(c.Request.Context(), applicationID)
	if err != nil {
		respondError(c, err, "application")
		return uuid.Nil, false
	}
	if !found || application.ApplicantID != userID {
		utils.NotFoundResponse(c, "application")
		return uuid.Nil, false
	}
	return applicationID, true
}
