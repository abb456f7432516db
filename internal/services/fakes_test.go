package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/registration-backend/internal/config"
	"github.com/javajoker/registration-backend/internal/models"
	"github.com/javajoker/registration-backend/internal/repository/memory"
)

var errTransport = errors.New("transport unavailable")

type fakeMailer struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (m *fakeMailer) Send(_ context.Context, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}

func (m *fakeMailer) fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type smsMessage struct {
	phone   string
	message string
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []smsMessage
	err  error
}

func (s *fakeSMS) Send(_ context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, smsMessage{phone: phone, message: message})
	return nil
}

func (s *fakeSMS) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (o *fakeObjects) Put(_ context.Context, key, contentType string, data []byte) (*UploadResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.putErr != nil {
		return nil, o.putErr
	}
	o.objects[key] = append([]byte(nil), data...)
	return &UploadResult{URL: "mem://" + key, Key: key, Size: int64(len(data)), MimeType: contentType}, nil
}

func (o *fakeObjects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, key)
	return nil
}

func (o *fakeObjects) PresignURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "mem://" + key + "?ttl=" + ttl.String(), nil
}

func (o *fakeObjects) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT:         config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
		Storage: config.StorageConfig{
			MaxFileSize:  1024 * 1024,
			PresignTTL:   15,
			AllowedTypes: []string{"application/pdf", "image/jpeg", "image/png"},
		},
		Workflow: config.WorkflowConfig{
			RequiredDocuments:     []string{"ID_CARD", "TRANSCRIPT"},
			RequiredFormFields:    []string{"date_of_birth"},
			ReviewLockTTL:         30 * time.Second,
			StatsCacheTTL:         time.Minute,
			PendingAlertAfter:     48 * time.Hour,
			ChangesAlertAfter:     7 * 24 * time.Hour,
			ReviewAlertAfter:      72 * time.Hour,
			UnderReviewAlertAfter: 72 * time.Hour,
		},
		I18n:     config.I18nConfig{DefaultLocale: "en"},
		Frontend: config.FrontendConfig{BaseURL: "http://localhost:3000"},
	}
}

type testEnv struct {
	cfg     *config.Config
	store   *memory.Store
	mailer  *fakeMailer
	sms     *fakeSMS
	objects *fakeObjects
	svc     *Services

	applicant *models.User
	agent     *models.User
	admin     *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, Dependencies{})
}

// newTestEnvWith fills the unset dependencies with fakes.
func newTestEnvWith(t *testing.T, deps Dependencies) *testEnv {
	t.Helper()

	env := &testEnv{
		cfg:     testConfig(),
		store:   memory.NewStore(),
		mailer:  &fakeMailer{},
		sms:     &fakeSMS{},
		objects: newFakeObjects(),
	}
	deps.Store = env.store
	if deps.Mailer == nil {
		deps.Mailer = env.mailer
	}
	if deps.SMS == nil {
		deps.SMS = env.sms
	}
	if deps.Objects == nil {
		deps.Objects = env.objects
	}

	svc, err := New(env.cfg, deps)
	require.NoError(t, err)
	env.svc = svc

	env.applicant = env.createUser(t, "applicant", models.UserRoleApplicant)
	env.agent = env.createUser(t, "agent", models.UserRoleAgent)
	env.admin = env.createUser(t, "admin", models.UserRoleAdmin)
	return env
}

func (e *testEnv) createUser(t *testing.T, username string, role models.UserRole) *models.User {
	t.Helper()
	user, err := e.svc.Users.CreateUser(context.Background(), &CreateUserRequest{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "Passw0rd!",
		Role:      role,
		FirstName: "Test",
		LastName:  username,
	})
	require.NoError(t, err)
	return user
}

func pdfContent(seed string) []byte {
	return []byte("%PDF-1.4\n% " + seed + "\n")
}

func pngContent(seed string) []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), []byte(seed)...)
}

func (e *testEnv) form() *ApplicationForm {
	return &ApplicationForm{
		ApplicantID:  e.applicant.ID,
		Program:      "Computer Science",
		AcademicYear: "2026-2027",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		Phone:        "+33612345678",
		FormData:     map[string]interface{}{"date_of_birth": "2004-12-10"},
	}
}

// uploads returns the two required documents with contents unique to seed.
func uploads(seed string) []*DocumentUpload {
	return []*DocumentUpload{
		{Type: models.DocumentTypeIDCard, FileName: "id.pdf", ContentType: "application/pdf", Content: pdfContent("id-" + seed)},
		{Type: models.DocumentTypeTranscript, FileName: "transcript.pdf", ContentType: "application/pdf", Content: pdfContent("transcript-" + seed)},
	}
}

func (e *testEnv) submit(t *testing.T, seed string) *models.Application {
	t.Helper()
	application, err := e.svc.Applications.CreateApplication(context.Background(), e.form(), uploads(seed))
	require.NoError(t, err)
	return application
}

// reviewable submits an application and pre-validates it into MANUAL_REVIEW.
func (e *testEnv) reviewable(t *testing.T, seed string) *models.Application {
	t.Helper()
	application := e.submit(t, seed)
	result, err := e.svc.Applications.PerformPreValidation(context.Background(), application.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusManualReview, result.Status)
	return application
}

func (e *testEnv) status(t *testing.T, id uuid.UUID) models.ApplicationStatus {
	t.Helper()
	application, found, err := e.svc.Applications.GetApplication(context.Background(), id)
	require.NoError(t, err)
	require.True(t, found)
	return application.Status
}
