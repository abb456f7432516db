// internal/tests/document_test.go
package tests

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/javajoker/registration-backend/internal/models"
)

type documentPayload struct {
	Document models.Document `json:"document"`
}

func (suite *APITestSuite) uploadDocument(token, applicationID, docType string, file filePart) *httptest.ResponseRecorder {
	body, contentType := multipartBody(suite.T(), map[string]string{"type": docType}, []filePart{file})
	req := httptest.NewRequest(http.MethodPost, "/v1/applications/"+applicationID+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	return suite.serve(req, token)
}

func (suite *APITestSuite) TestDocumentUploadAndDownload() {
	_, token := suite.registerApplicant("uploader")
	_, otherToken := suite.registerApplicant("onlooker")
	application := suite.createApplication(token, "uploader")
	photo := pngContent("portrait")

	w := suite.uploadDocument(token, application.ID.String(), "photo", filePart{
		field: "file", fileName: "portrait.png", contentType: "image/png", content: photo,
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var uploaded documentPayload
	suite.decode(w, &uploaded)

	assert.Equal(suite.T(), models.DocumentTypePhoto, uploaded.Document.Type)
	assert.Equal(suite.T(), "image/png", uploaded.Document.DetectedType)
	assert.Equal(suite.T(), models.DocumentValidationPending, uploaded.Document.ValidationStatus)
	assert.True(suite.T(), strings.HasPrefix(uploaded.Document.URL, "http://localhost:8080/uploads/"))

	w = suite.request(http.MethodGet, "/v1/applications/"+application.ID.String()+"/documents", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var listed struct {
		Documents []models.Document `json:"documents"`
	}
	suite.decode(w, &listed)
	assert.Len(suite.T(), listed.Documents, 3)

	w = suite.request(http.MethodGet, "/v1/documents/"+uploaded.Document.ID.String()+"/download", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var download struct {
		URL string `json:"url"`
	}
	suite.decode(w, &download)

	// Local storage is served by the router to the owner and reviewers only
	contentPath := strings.TrimPrefix(download.URL, "http://localhost:8080")
	w = suite.request(http.MethodGet, contentPath, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), photo, w.Body.Bytes())

	w = suite.request(http.MethodGet, contentPath, suite.agentToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, contentPath, "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodGet, contentPath, otherToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, "/uploads/applications/"+application.ID.String()+"/"+uuid.NewString()+".png", token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestDocumentUploadValidation() {
	_, token := suite.registerApplicant("careless")
	application := suite.createApplication(token, "careless")

	// No file part
	body, contentType := multipartBody(suite.T(), map[string]string{"type": "PHOTO"}, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/applications/"+application.ID.String()+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	w := suite.serve(req, token)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.uploadDocument(token, application.ID.String(), "PASSPORT_STAMP", filePart{
		field: "file", fileName: "stamp.pdf", contentType: "application/pdf", content: pdfContent("stamp"),
	})
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", suite.errorCode(w))

	w = suite.uploadDocument(suite.agentToken, uuid.NewString(), "PHOTO", filePart{
		field: "file", fileName: "photo.png", contentType: "image/png", content: pngContent("ghost"),
	})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestDocumentAccessControl() {
	_, ownerToken := suite.registerApplicant("owner")
	_, otherToken := suite.registerApplicant("stranger")
	application := suite.createApplication(ownerToken, "owner")
	documentID := application.Documents[0].ID.String()

	w := suite.request(http.MethodGet, "/v1/documents/"+documentID, otherToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.uploadDocument(otherToken, application.ID.String(), "PHOTO", filePart{
		field: "file", fileName: "photo.png", contentType: "image/png", content: pngContent("intrusion"),
	})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, "/v1/documents", ownerToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, "/v1/documents?limit=1", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Equal(suite.T(), "2", w.Header().Get("X-Total-Count"))

	w = suite.request(http.MethodGet, "/v1/documents/"+documentID, suite.agentToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestManualDocumentValidation() {
	_, token := suite.registerApplicant("validated")
	application := suite.createApplication(token, "validated")
	documentID := application.Documents[0].ID.String()

	w := suite.request(http.MethodPut, "/v1/documents/"+documentID+"/validate", token, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPut, "/v1/documents/"+documentID+"/validate", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var validated documentPayload
	suite.decode(w, &validated)
	assert.Equal(suite.T(), models.DocumentValidationValidated, validated.Document.ValidationStatus)
	suite.Require().NotNil(validated.Document.ValidatedBy)
	assert.Equal(suite.T(), suite.agent.ID, *validated.Document.ValidatedBy)

	w = suite.request(http.MethodPut, "/v1/documents/"+uuid.NewString()+"/validate", suite.agentToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, "/v1/notifications", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var notifications struct {
		Notifications []models.Notification `json:"notifications"`
	}
	suite.decode(w, &notifications)

	types := make([]models.NotificationType, 0, len(notifications.Notifications))
	for _, notification := range notifications.Notifications {
		types = append(types, notification.Type)
	}
	assert.Contains(suite.T(), types, models.NotificationTypeDocumentValidated)
}

func (suite *APITestSuite) TestDeleteDocument() {
	_, token := suite.registerApplicant("deleter")
	application := suite.createApplication(token, "deleter")
	documentID := application.Documents[1].ID.String()

	w := suite.request(http.MethodDelete, "/v1/documents/"+documentID, token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/v1/documents/"+documentID, token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}
