// internal/handlers/common.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/i18n"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/services"
	"github.com/javajoker/registration-backend/internal/utils"
)

// respondError maps a service error to its HTTP response. resource is the
// i18n prefix used for 404 messages, e.g. "application".
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	var validationErr *utils.ValidationError
	var messagingErr *utils.MessagingError

	switch {
	case errors.As(err, &validationErr):
		utils.ValidationErrorResponse(c, validationErr.Violations)
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, services.ErrInvalidDecision):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyApplicationInvalidDecision), nil)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_TRANSITION", i18n.T(lang, i18n.KeyApplicationInvalidTransition), err.Error())
	case errors.Is(err, services.ErrReviewInProgress):
		utils.ErrorResponse(c, http.StatusConflict, "REVIEW_IN_PROGRESS", i18n.T(lang, i18n.KeyApplicationReviewInProgress), nil)
	case errors.Is(err, repository.ErrConflict):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyConflict))
	case errors.Is(err, services.ErrUserExists), errors.Is(err, repository.ErrDuplicate):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyAuthUserExists))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.As(err, &messagingErr):
		utils.BadGatewayResponse(c, i18n.T(lang, i18n.KeyMessagingFailed))
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

// currentUser returns the authenticated user's id and role.
func currentUser(c *gin.Context) (uuid.UUID, models.UserRole, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, "", false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, "", false
	}

	role, _ := utils.GetUserRoleFromContext(c)
	return userID, models.UserRole(role), true
}

// idParam parses the :name path parameter as a UUID.
func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
