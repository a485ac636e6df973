package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/repository"
	"github.com/osms-business/osms_server/internal/testutil"
)

type fakeNotifier struct {
	verifications []string
	welcomes      []string
	err           error
}

func (n *fakeNotifier) SendVerification(to, fullName, token string) error {
	if n.err != nil {
		return n.err
	}
	n.verifications = append(n.verifications, token)
	return nil
}

func (n *fakeNotifier) SendWelcome(to, fullName string) error {
	if n.err != nil {
		return n.err
	}
	n.welcomes = append(n.welcomes, to)
	return nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.JWT = config.JWTConfig{
		Secret:      "test-secret-key-for-testing",
		ExpireHours: 24,
	}
	return cfg
}

func setupAuthService(t *testing.T) (*AuthService, *fakeNotifier, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	notifier := &fakeNotifier{}
	service := NewAuthService(repository.NewUserRepository(db), notifier, testConfig())

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return service, notifier, db, cleanup
}

func signupRequest(email string) *dto.SignupRequest {
	return &dto.SignupRequest{
		Email:    email,
		Password: "password123",
		FullName: "Ada Lovelace",
		Phone:    "+1 (555) 123-4567",
	}
}

func TestAuthService_Signup_Success(t *testing.T) {
	service, notifier, db, cleanup := setupAuthService(t)
	defer cleanup()

	resp, err := service.Signup(signupRequest(" Ada@Example.com "))
	require.NoError(t, err)
	assert.NotZero(t, resp.UserID)

	var user model.User
	require.NoError(t, db.First(&user, resp.UserID).Error)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, int64(0), user.Credits)
	require.NotNil(t, user.VerificationToken)
	require.Len(t, notifier.verifications, 1)
	assert.Equal(t, *user.VerificationToken, notifier.verifications[0])
	assert.NotEqual(t, "password123", user.PasswordHash)
}

func TestAuthService_Signup_NotificationFailureKeepsAccount(t *testing.T) {
	service, notifier, db, cleanup := setupAuthService(t)
	defer cleanup()
	notifier.err = errors.New("smtp down")

	resp, err := service.Signup(signupRequest("ada@example.com"))
	assert.ErrorIs(t, err, ErrNotificationDeliveryFailed)
	require.NotNil(t, resp)

	var count int64
	db.Model(&model.User{}).Where("id = ?", resp.UserID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	service, _, db, cleanup := setupAuthService(t)
	defer cleanup()

	testutil.TestUser(t, db, testutil.WithEmail("ada@example.com"))

	_, err := service.Signup(signupRequest("ADA@example.com"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Signup_Validation(t *testing.T) {
	service, _, _, cleanup := setupAuthService(t)
	defer cleanup()

	tests := []struct {
		name   string
		mutate func(*dto.SignupRequest)
		want   error
	}{
		{"short password", func(r *dto.SignupRequest) { r.Password = "12345" }, ErrWeakPassword},
		{"phone too short", func(r *dto.SignupRequest) { r.Phone = "12345" }, ErrInvalidPhone},
		{"phone with letters", func(r *dto.SignupRequest) { r.Phone = "call me maybe" }, ErrInvalidPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := signupRequest("v@example.com")
			tt.mutate(req)
			_, err := service.Signup(req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	service, _, db, cleanup := setupAuthService(t)
	defer cleanup()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	testutil.TestUser(t, db, testutil.WithEmail("empty@example.com"), testutil.WithPassword(string(hash)))
	testutil.TestUser(t, db, testutil.WithEmail("funded@example.com"), testutil.WithPassword(string(hash)), testutil.WithCredits(50))

	resp, err := service.Login(&dto.LoginRequest{Email: "empty@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, NextStepOnboarding, resp.NextStep)

	resp, err = service.Login(&dto.LoginRequest{Email: "funded@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, NextStepDashboard, resp.NextStep)
	assert.Equal(t, int64(50), resp.Account.Credits)
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	service, _, db, cleanup := setupAuthService(t)
	defer cleanup()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	testutil.TestUser(t, db, testutil.WithEmail("ada@example.com"), testutil.WithPassword(string(hash)))

	_, err := service.Login(&dto.LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_EmailNotVerified(t *testing.T) {
	service, _, db, cleanup := setupAuthService(t)
	defer cleanup()

	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	testutil.TestUser(t, db,
		testutil.WithEmail("ada@example.com"),
		testutil.WithPassword(string(hash)),
		testutil.WithUnverifiedEmail("tok", time.Now().Add(time.Hour)))

	_, err := service.Login(&dto.LoginRequest{Email: "ada@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailNotVerified)
}

func TestAuthService_VerifyEmail_Success(t *testing.T) {
	service, notifier, db, cleanup := setupAuthService(t)
	defer cleanup()

	user := testutil.TestUser(t, db, testutil.WithUnverifiedEmail("verify-me", time.Now().Add(time.Hour)))

	resp, err := service.VerifyEmail("verify-me")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, NextStepOnboarding, resp.NextStep)
	assert.True(t, resp.Account.EmailVerified)
	assert.Len(t, notifier.welcomes, 1)

	var reloaded model.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.EmailVerified)
	assert.Nil(t, reloaded.VerificationToken)

	// 令牌只能使用一次
	_, err = service.VerifyEmail("verify-me")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestAuthService_VerifyEmail_WelcomeFailureIgnored(t *testing.T) {
	service, notifier, db, cleanup := setupAuthService(t)
	defer cleanup()
	notifier.err = errors.New("smtp down")

	testutil.TestUser(t, db, testutil.WithUnverifiedEmail("verify-me", time.Now().Add(time.Hour)))

	resp, err := service.VerifyEmail("verify-me")
	require.NoError(t, err)
	assert.True(t, resp.Account.EmailVerified)
}

func TestAuthService_VerifyEmail_InvalidOrExpired(t *testing.T) {
	service, _, db, cleanup := setupAuthService(t)
	defer cleanup()

	testutil.TestUser(t, db, testutil.WithUnverifiedEmail("stale", time.Now().Add(-time.Minute)))

	_, err := service.VerifyEmail("stale")
	assert.ErrorIs(t, err, ErrVerifyTokenExpired)

	_, err = service.VerifyEmail("unknown")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)

	_, err = service.VerifyEmail("")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)
}

func TestAuthService_ResendVerification(t *testing.T) {
	service, notifier, db, cleanup := setupAuthService(t)
	defer cleanup()

	user := testutil.TestUser(t, db,
		testutil.WithEmail("ada@example.com"),
		testutil.WithUnverifiedEmail("old-token", time.Now().Add(-time.Minute)))

	require.NoError(t, service.ResendVerification("ada@example.com"))
	require.Len(t, notifier.verifications, 1)

	var reloaded model.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	require.NotNil(t, reloaded.VerificationToken)
	assert.Equal(t, notifier.verifications[0], *reloaded.VerificationToken)
	assert.True(t, reloaded.VerificationExpiresAt.After(time.Now()))

	_, err := service.VerifyEmail("old-token")
	assert.ErrorIs(t, err, ErrInvalidVerifyToken)

	_, err = service.VerifyEmail(notifier.verifications[0])
	assert.NoError(t, err)

	assert.ErrorIs(t, service.ResendVerification("ada@example.com"), ErrAlreadyVerified)
	assert.ErrorIs(t, service.ResendVerification("nobody@example.com"), ErrUserNotFound)
}

func TestAuthService_CurrentAccount(t *testing.T) {
	service, _, db, cleanup := setupAuthService(t)
	defer cleanup()

	verified := testutil.TestUser(t, db)
	unverified := testutil.TestUser(t, db, testutil.WithUnverifiedEmail("t", time.Now().Add(time.Hour)))

	user, err := service.CurrentAccount(verified.ID)
	require.NoError(t, err)
	assert.Equal(t, verified.Email, user.Email)

	_, err = service.CurrentAccount(unverified.ID)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = service.CurrentAccount(99999)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
