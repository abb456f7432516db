// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess      = "success"
	KeyError        = "error"
	KeyAccessDenied = "access_denied"
	KeyConflict     = "conflict"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"

	// Users
	KeyUserNotFound = "user.not_found"
	KeyUserDeleted  = "user.deleted"

	// Applications
	KeyApplicationNotFound          = "application.not_found"
	KeyApplicationInvalidTransition = "application.invalid_transition"
	KeyApplicationInvalidDecision   = "application.invalid_decision"
	KeyApplicationReviewInProgress  = "application.review_in_progress"

	// Documents
	KeyDocumentNotFound = "document.not_found"
	KeyDocumentDeleted  = "document.deleted"

	// Notifications
	KeyNotificationNotFound = "notification.not_found"
	KeyMessagingFailed      = "notification.messaging_failed"

	// Notification titles and bodies
	KeyNotifySubmittedTitle        = "notify.submitted.title"
	KeyNotifySubmittedMessage      = "notify.submitted.message"
	KeyNotifyStatusChangedTitle    = "notify.status_changed.title"
	KeyNotifyStatusChangedMessage  = "notify.status_changed.message"
	KeyNotifyChangesRequestedTitle = "notify.changes_requested.title"
	KeyNotifyChangesRequestedSMS   = "notify.changes_requested.sms"
	KeyNotifyDocumentValidated     = "notify.document_validated.title"
	KeyNotifyDocumentValidatedBody = "notify.document_validated.message"
	KeyNotifyReminderSMS           = "notify.reminder.sms"

	// Alerts
	KeyAlertStale = "alert.stale"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Rate limiting
	KeyRateLimited = "rate_limited"
)
