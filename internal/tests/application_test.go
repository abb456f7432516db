// internal/tests/application_test.go
package tests

import (
	"net/http"
	"strings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/services"
)

func (suite *APITestSuite) TestApplicationApprovalWorkflow() {
	_, token := suite.registerApplicant("ada")
	application := suite.createApplication(token, "approval")

	assert.Equal(suite.T(), models.ApplicationStatusPreValidation, application.Status)
	assert.True(suite.T(), strings.HasPrefix(application.ReferenceNumber, "REG-"))
	assert.Len(suite.T(), application.Documents, 2)
	suite.mailer.AssertCalled(suite.T(), "Send", mock.Anything, mock.MatchedBy(func(email services.Email) bool {
		return email.To == "ada@example.com" && strings.Contains(email.Subject, application.ReferenceNumber)
	}))

	base := "/v1/applications/" + application.ID.String()

	// Applicants cannot drive the review workflow
	w := suite.request(http.MethodPost, base+"/pre-validate", token, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, base+"/pre-validate", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var preValidation struct {
		Result services.PreValidationResult `json:"result"`
	}
	suite.decode(w, &preValidation)
	assert.Equal(suite.T(), models.ApplicationStatusManualReview, preValidation.Result.Status)
	assert.Empty(suite.T(), preValidation.Result.MissingFields)
	assert.Len(suite.T(), preValidation.Result.Documents, 2)

	w = suite.request(http.MethodPost, base+"/pre-validate", suite.agentToken, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "INVALID_TRANSITION", suite.errorCode(w))

	w = suite.request(http.MethodPost, base+"/start-review", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), models.ApplicationStatusUnderReview, suite.applicationStatus(application.ID))

	w = suite.request(http.MethodPost, base+"/review", suite.agentToken, map[string]interface{}{
		"decision": "maybe",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, base+"/review", suite.agentToken, map[string]interface{}{
		"decision": "validate",
		"comment":  "Complete dossier",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), models.ApplicationStatusAgentValidated, suite.applicationStatus(application.ID))

	// Only administrators take the final decision
	w = suite.request(http.MethodPost, base+"/finalize", suite.agentToken, map[string]interface{}{"approve": true})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, base+"/finalize", suite.adminToken, map[string]interface{}{
		"approve": true,
		"comment": "Welcome",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var finalized struct {
		Application models.Application `json:"application"`
	}
	suite.decode(w, &finalized)
	assert.Equal(suite.T(), models.ApplicationStatusApproved, finalized.Application.Status)

	w = suite.request(http.MethodGet, base+"/history", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var history struct {
		History []models.AuditLog `json:"history"`
	}
	suite.decode(w, &history)

	actions := make([]string, 0, len(history.History))
	for _, entry := range history.History {
		actions = append(actions, entry.Action)
	}
	assert.Contains(suite.T(), actions, "application.created")
	assert.Contains(suite.T(), actions, "application.status_changed")
}

func (suite *APITestSuite) TestChangesRequestedAndResubmission() {
	_, token := suite.registerApplicant("grace")
	_, otherToken := suite.registerApplicant("intruder")
	application := suite.createApplication(token, "changes")
	base := "/v1/applications/" + application.ID.String()

	suite.Require().Equal(http.StatusOK, suite.request(http.MethodPost, base+"/pre-validate", suite.agentToken, nil).Code)
	suite.Require().Equal(http.StatusOK, suite.request(http.MethodPost, base+"/start-review", suite.agentToken, nil).Code)

	w := suite.request(http.MethodPost, base+"/review", suite.agentToken, map[string]interface{}{
		"decision": "request_changes",
		"comment":  "Nationality is missing",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	assert.Equal(suite.T(), models.ApplicationStatusChangesRequested, suite.applicationStatus(application.ID))
	suite.sms.AssertCalled(suite.T(), "Send", mock.Anything, "+33612345678", mock.Anything)

	resubmission := map[string]interface{}{
		"form_data": map[string]interface{}{"nationality": "FR"},
	}

	w = suite.request(http.MethodPut, base+"/resubmit", otherToken, resubmission)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPut, base+"/resubmit", token, map[string]interface{}{})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", suite.errorCode(w))

	w = suite.request(http.MethodPut, base+"/resubmit", token, resubmission)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resubmitted struct {
		Application models.Application `json:"application"`
	}
	suite.decode(w, &resubmitted)
	assert.Equal(suite.T(), models.ApplicationStatusPreValidation, resubmitted.Application.Status)
	assert.Equal(suite.T(), "FR", resubmitted.Application.FormData["nationality"])
	assert.Equal(suite.T(), "2004-12-10", resubmitted.Application.FormData["date_of_birth"])
}

func (suite *APITestSuite) TestPreValidationReportsMissingDocuments() {
	_, token := suite.registerApplicant("partial")

	files := requiredDocuments("partial")[:1]
	w := suite.submitApplication(token, applicationForm(), files)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Application models.Application `json:"application"`
	}
	suite.decode(w, &created)

	w = suite.request(http.MethodPost, "/v1/applications/"+created.Application.ID.String()+"/pre-validate", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var preValidation struct {
		Result services.PreValidationResult `json:"result"`
	}
	suite.decode(w, &preValidation)

	assert.Equal(suite.T(), models.ApplicationStatusChangesRequested, preValidation.Result.Status)
	assert.Contains(suite.T(), preValidation.Result.MissingFields, "documents.TRANSCRIPT")
}

func (suite *APITestSuite) TestCreateApplicationOrdersDocumentsByField() {
	_, token := suite.registerApplicant("orderly")
	documents := requiredDocuments("orderly")
	files := []filePart{
		documents[1],
		{field: "PHOTO", fileName: "photo.png", contentType: "image/png", content: pngContent("orderly")},
		documents[0],
	}

	w := suite.submitApplication(token, applicationForm(), files)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Application models.Application `json:"application"`
	}
	suite.decode(w, &created)

	types := make([]models.DocumentType, 0, len(created.Application.Documents))
	for _, document := range created.Application.Documents {
		types = append(types, document.Type)
	}
	assert.Equal(suite.T(), []models.DocumentType{
		models.DocumentTypeIDCard, models.DocumentTypePhoto, models.DocumentTypeTranscript,
	}, types)
}

func (suite *APITestSuite) TestCreateApplicationValidation() {
	_, token := suite.registerApplicant("hasty")

	w := suite.request(http.MethodPost, "/v1/applications", token, map[string]interface{}{
		"program": "Mathematics",
	})
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	response := suite.decode(w, nil)
	suite.Require().NotNil(response.Error)
	assert.Equal(suite.T(), "VALIDATION_ERROR", response.Error.Code)
	assert.Contains(suite.T(), string(response.Error.Details), `"academic_year"`)

	body, contentType := multipartBody(suite.T(), map[string]string{"application": "{not json"}, nil)
	req := newMultipartRequest(body, contentType)
	w = suite.serve(req, token)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "BAD_REQUEST", suite.errorCode(w))

	w = suite.request(http.MethodPost, "/v1/applications", "", applicationForm())
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestApplicationVisibility() {
	_, adaToken := suite.registerApplicant("ada_v")
	_, bobToken := suite.registerApplicant("bob_v")
	adaApplication := suite.createApplication(adaToken, "ada")
	suite.createApplication(bobToken, "bob")

	var page []models.Application

	w := suite.request(http.MethodGet, "/v1/applications", adaToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &page)
	suite.Require().Len(page, 1)
	assert.Equal(suite.T(), adaApplication.ID, page[0].ID)

	w = suite.request(http.MethodGet, "/v1/applications/"+adaApplication.ID.String(), bobToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, "/v1/applications?status=pre_validation&limit=1", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	response := suite.decode(w, &page)
	assert.Len(suite.T(), page, 1)
	assert.Contains(suite.T(), string(response.Meta), `"total":2`)
	assert.Equal(suite.T(), "2", w.Header().Get("X-Total-Count"))

	w = suite.request(http.MethodGet, "/v1/applications?status=APPROVED", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &page)
	assert.Empty(suite.T(), page)
}
