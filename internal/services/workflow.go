package services

import (
	"strings"

	"github.com/javajoker/registration-backend/internal/models"
)

// transitions lists, for each status, the statuses it may move to.
// CHANGES_REQUESTED -> PRE_VALIDATION is the only backward edge.
var transitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationStatusPreValidation: {
		models.ApplicationStatusManualReview,
		models.ApplicationStatusPending,
		models.ApplicationStatusChangesRequested,
	},
	models.ApplicationStatusPending: {
		models.ApplicationStatusManualReview,
		models.ApplicationStatusChangesRequested,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusManualReview: {
		models.ApplicationStatusUnderReview,
		models.ApplicationStatusAgentValidated,
		models.ApplicationStatusChangesRequested,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusUnderReview: {
		models.ApplicationStatusAgentValidated,
		models.ApplicationStatusChangesRequested,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusAgentValidated: {
		models.ApplicationStatusApproved,
		models.ApplicationStatusRejected,
	},
	models.ApplicationStatusChangesRequested: {
		models.ApplicationStatusPreValidation,
	},
}

// CanTransition reports whether the workflow allows moving from one status to another.
func CanTransition(from, to models.ApplicationStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Review decisions accepted by ReviewDossier.
const (
	DecisionApprove        = "approve"
	DecisionValidate       = "validate"
	DecisionReject         = "reject"
	DecisionRequestChanges = "request_changes"
)

// ParseDecision maps a reviewer decision to the status it leads to.
func ParseDecision(decision string) (models.ApplicationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case DecisionApprove, DecisionValidate:
		return models.ApplicationStatusAgentValidated, true
	case DecisionReject:
		return models.ApplicationStatusRejected, true
	case DecisionRequestChanges, "request-changes":
		return models.ApplicationStatusChangesRequested, true
	default:
		return "", false
	}
}
