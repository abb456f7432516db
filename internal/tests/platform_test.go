// internal/tests/platform_test.go
package tests

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/services"
)

func (suite *APITestSuite) TestNotifications() {
	_, token := suite.registerApplicant("reader")
	_, otherToken := suite.registerApplicant("snoop")
	suite.createApplication(token, "reader")

	w := suite.request(http.MethodGet, "/v1/notifications", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var listed struct {
		Notifications []models.Notification `json:"notifications"`
	}
	suite.decode(w, &listed)
	suite.Require().Len(listed.Notifications, 1)
	notification := listed.Notifications[0]
	assert.Equal(suite.T(), models.NotificationTypeApplicationSubmitted, notification.Type)
	assert.False(suite.T(), notification.IsRead)

	var unread struct {
		Unread int64 `json:"unread"`
	}
	w = suite.request(http.MethodGet, "/v1/notifications/unread-count", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &unread)
	assert.Equal(suite.T(), int64(1), unread.Unread)

	w = suite.request(http.MethodPut, "/v1/notifications/"+notification.ID.String()+"/read", otherToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPut, "/v1/notifications/"+uuid.NewString()+"/read", token, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPut, "/v1/notifications/"+notification.ID.String()+"/read", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/v1/notifications/unread-count", token, nil)
	suite.decode(w, &unread)
	assert.Equal(suite.T(), int64(0), unread.Unread)

	var updated struct {
		Updated int64 `json:"updated"`
	}
	w = suite.request(http.MethodPut, "/v1/notifications/read-all", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &updated)
	assert.Equal(suite.T(), int64(0), updated.Updated)
}

func (suite *APITestSuite) TestAnalytics() {
	_, token := suite.registerApplicant("counted")
	suite.createApplication(token, "counted")

	w := suite.request(http.MethodGet, "/v1/analytics/stats", token, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodGet, "/v1/analytics/stats", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var stats struct {
		Stats services.RealTimeStatistics `json:"stats"`
	}
	suite.decode(w, &stats)
	assert.Equal(suite.T(), int64(1), stats.Stats.TotalApplications)
	assert.Equal(suite.T(), int64(1), stats.Stats.StatusCounts[models.ApplicationStatusPreValidation])
	assert.Equal(suite.T(), int64(0), stats.Stats.StatusCounts[models.ApplicationStatusApproved])

	w = suite.request(http.MethodGet, "/v1/analytics/alerts", suite.agentToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var alerts struct {
		Count int `json:"count"`
	}
	suite.decode(w, &alerts)
	assert.Equal(suite.T(), 0, alerts.Count)

	w = suite.request(http.MethodPost, "/v1/analytics/alerts/remind", suite.agentToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/v1/analytics/alerts/remind", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var reminded struct {
		Sent int `json:"sent"`
	}
	suite.decode(w, &reminded)
	assert.Equal(suite.T(), 0, reminded.Sent)
	suite.sms.AssertNotCalled(suite.T(), "Send", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *APITestSuite) TestHealthAndMetrics() {
	w := suite.request(http.MethodGet, "/health", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "healthy")

	w = suite.request(http.MethodGet, "/metrics", "", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "registration_http_requests_total")
}

func (suite *APITestSuite) TestLocalizedErrors() {
	req := httptest.NewRequest(http.MethodGet, "/v1/applications/"+uuid.NewString(), nil)
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.8")
	w := suite.serve(req, suite.agentToken)

	suite.Require().Equal(http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "fr", w.Header().Get("Content-Language"))
	response := suite.decode(w, nil)
	suite.Require().NotNil(response.Error)
	assert.Equal(suite.T(), "Dossier introuvable", response.Error.Message)
}

func (suite *APITestSuite) TestCORSPreflight() {
	req := httptest.NewRequest(http.MethodOptions, "/v1/applications", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := suite.serve(req, "")

	assert.Equal(suite.T(), http.StatusNoContent, w.Code)
	assert.Equal(suite.T(), "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func (suite *APITestSuite) TestMutationsAreAudited() {
	user, _ := suite.registerApplicant("audited")

	w := suite.request(http.MethodPut, "/v1/users/"+user.ID.String(), suite.adminToken, map[string]interface{}{
		"first_name": "Audrey",
		"password":   "N3wPassw0rd!",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	entries, err := suite.store.Audit().ListByResource(context.Background(), "users", user.ID)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)

	entry := entries[0]
	assert.Equal(suite.T(), "PUT /v1/users/:id", entry.Action)
	suite.Require().NotNil(entry.UserID)
	assert.Equal(suite.T(), suite.admin.ID, *entry.UserID)
	assert.Equal(suite.T(), "[REDACTED]", entry.NewValues["password"])
	assert.Equal(suite.T(), "Audrey", entry.NewValues["first_name"])
	assert.EqualValues(suite.T(), http.StatusOK, entry.NewValues["status"])
}
