// internal/tests/auth_test.go
package tests

import (
	"net/http"

	"github.com/stretchr/testify/assert"

	"github.com/javajoker/registration-backend/internal/models"
)

func (suite *APITestSuite) TestUserRegistration() {
	user, token := suite.registerApplicant("testuser")

	assert.NotEmpty(suite.T(), token)
	assert.Equal(suite.T(), "testuser", user.Username)
	assert.Equal(suite.T(), models.UserRoleApplicant, user.Role)

	// Test duplicate registration
	w := suite.request(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"username":   "testuser",
		"email":      "other@example.com",
		"password":   "Passw0rd!",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	assert.Equal(suite.T(), "CONFLICT", suite.errorCode(w))
}

func (suite *APITestSuite) TestRegistrationValidation() {
	w := suite.request(http.MethodPost, "/v1/auth/register", "", map[string]interface{}{
		"username": "x",
		"email":    "not-an-email",
		"password": "weak",
	})
	suite.Require().Equal(http.StatusBadRequest, w.Code)

	response := suite.decode(w, nil)
	suite.Require().NotNil(response.Error)
	assert.Equal(suite.T(), "VALIDATION_ERROR", response.Error.Code)
	assert.Contains(suite.T(), string(response.Error.Details), `"username"`)
	assert.Contains(suite.T(), string(response.Error.Details), `"email"`)
	assert.Contains(suite.T(), string(response.Error.Details), `"password"`)
}

func (suite *APITestSuite) TestUserLogin() {
	suite.registerApplicant("loginuser")

	tests := []struct {
		name   string
		login  string
		pass   string
		status int
	}{
		{"username", "loginuser", "Passw0rd!", http.StatusOK},
		{"email", "LoginUser@Example.com", "Passw0rd!", http.StatusOK},
		{"wrong password", "loginuser", "Wrong0ne!", http.StatusUnauthorized},
		{"unknown user", "nobody", "Passw0rd!", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.request(http.MethodPost, "/v1/auth/login", "", map[string]interface{}{
				"login":    tt.login,
				"password": tt.pass,
			})
			assert.Equal(suite.T(), tt.status, w.Code, w.Body.String())

			if tt.status == http.StatusOK {
				var payload authPayload
				suite.decode(w, &payload)
				assert.NotEmpty(suite.T(), payload.Token)
				assert.NotNil(suite.T(), payload.User.LastLoginAt)
			}
		})
	}
}

func (suite *APITestSuite) TestProfileRequiresToken() {
	w := suite.request(http.MethodGet, "/v1/auth/me", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodGet, "/v1/auth/me", "not-a-token", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	user, token := suite.registerApplicant("profileuser")
	w = suite.request(http.MethodGet, "/v1/auth/me", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var payload struct {
		User models.User `json:"user"`
	}
	suite.decode(w, &payload)
	assert.Equal(suite.T(), user.ID, payload.User.ID)
}

func (suite *APITestSuite) TestUpdateProfile() {
	_, token := suite.registerApplicant("renamed")

	w := suite.request(http.MethodPut, "/v1/users/profile", token, map[string]interface{}{
		"first_name": "Augusta",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var payload struct {
		User models.User `json:"user"`
	}
	suite.decode(w, &payload)
	assert.Equal(suite.T(), "Augusta", payload.User.FirstName)
	assert.Equal(suite.T(), "Lovelace", payload.User.LastName)
}

func (suite *APITestSuite) TestUserAdministration() {
	_, applicantToken := suite.registerApplicant("plainuser")

	w := suite.request(http.MethodGet, "/v1/users", applicantToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/v1/users", suite.adminToken, map[string]interface{}{
		"username": "new_agent",
		"email":    "new_agent@example.com",
		"password": "Passw0rd!",
		"role":     "AGENT",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		User models.User `json:"user"`
	}
	suite.decode(w, &created)
	assert.Equal(suite.T(), models.UserRoleAgent, created.User.Role)

	w = suite.request(http.MethodGet, "/v1/users", suite.adminToken, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var listed struct {
		Users []models.User `json:"users"`
	}
	suite.decode(w, &listed)
	assert.Len(suite.T(), listed.Users, 4)

	w = suite.request(http.MethodDelete, "/v1/users/"+created.User.ID.String(), suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/v1/users/"+created.User.ID.String(), suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, "/v1/users/not-a-uuid", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}
