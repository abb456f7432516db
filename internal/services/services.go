package services

import (
	"github.com/redis/go-redis/v9"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/repository"
	"github.com/javajoker/registration-backend/internal/utils"
)

// Dependencies are the external collaborators the services are built on.
// Cache may be nil; Locks defaults to a Redis lock when Cache is set and to
// an in-process lock otherwise.
type Dependencies struct {
	Store     repository.Store
	Objects   ObjectStore
	Mailer    Mailer
	SMS       SMSSender
	Cache     *redis.Client
	Locks     ReviewLock
	Templates *TemplateService
}

type Services struct {
	Users         *UserService
	Auth          *AuthService
	Notifications *NotificationService
	Documents     *DocumentService
	Applications  *ApplicationService
	Analytics     *AnalyticsService
}

// New wires every service over deps.
func New(cfg *config.Config, deps Dependencies) (*Services, error) {
	validator := utils.NewObjectValidator()

	templates := deps.Templates
	if templates == nil {
		templates = NewTemplateService()
	}

	locks := deps.Locks
	if locks == nil {
		if deps.Cache != nil {
			locks = NewRedisReviewLock(deps.Cache, cfg.Workflow.ReviewLockTTL)
		} else {
			locks = NewLocalReviewLock()
		}
	}

	users := NewUserService(deps.Store, validator)
	notifications := NewNotificationService(deps.Store, deps.Mailer, deps.SMS, templates, validator, cfg)
	analytics := NewAnalyticsService(deps.Store, deps.Cache, cfg)
	documents := NewDocumentService(deps.Store, deps.Objects, notifications, analytics, validator, cfg)

	applications, err := NewApplicationService(deps.Store, deps.Objects, documents, notifications, analytics, locks, validator, cfg)
	if err != nil {
		return nil, err
	}

	return &Services{
		Users:         users,
		Auth:          NewAuthService(users, validator, cfg),
		Notifications: notifications,
		Documents:     documents,
		Applications:  applications,
		Analytics:     analytics,
	}, nil
}
