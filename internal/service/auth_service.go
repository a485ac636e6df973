package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/osms-business/osms_server/config"
	"github.com/osms-business/osms_server/internal/model"
	"github.com/osms-business/osms_server/internal/model/dto"
	"github.com/osms-business/osms_server/internal/pkg/jwt"
	"github.com/osms-business/osms_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("邮箱已被注册")
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrEmailNotVerified   = errors.New("邮箱尚未验证")
	ErrInvalidVerifyToken = errors.New("验证链接无效")
	ErrVerifyTokenExpired = errors.New("验证链接已过期")
	ErrAlreadyVerified    = errors.New("邮箱已验证")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrWeakPassword       = errors.New("密码至少 6 位")
	ErrInvalidPhone       = errors.New("手机号格式不正确")
)

const (
	NextStepOnboarding = "onboarding"
	NextStepDashboard  = "dashboard"

	verificationTTL = 24 * time.Hour
	minPasswordLen  = 6
)

var phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)

// Notifier 发送账户通知邮件
type Notifier interface {
	SendVerification(to, fullName, token string) error
	SendWelcome(to, fullName string) error
}

type AuthService struct {
	userRepo *repository.UserRepository
	notifier Notifier
	cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, notifier Notifier, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Signup 注册账户。账户与验证令牌一次写入，之后尽力发送验证邮件；
// 邮件发送失败时账户保留，返回账户 ID 和 ErrNotificationDeliveryFailed，可通过重发验证邮件恢复。
func (s *AuthService) Signup(req *dto.SignupRequest) (*dto.SignupResponse, error) {
	email := normalizeEmail(req.Email)
	if len(req.Password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	if !phonePattern.MatchString(req.Phone) {
		return nil, ErrInvalidPhone
	}

	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	token, err := generateToken(32)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(verificationTTL)

	user := &model.User{
		Email:                 email,
		PasswordHash:          string(hashedPassword),
		FullName:              strings.TrimSpace(req.FullName),
		Phone:                 strings.TrimSpace(req.Phone),
		VerificationToken:     &token,
		VerificationExpiresAt: &expiresAt,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	resp := &dto.SignupResponse{UserID: user.ID}
	if err := s.notifier.SendVerification(user.Email, user.FullName, token); err != nil {
		zap.L().Warn("verification email failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return resp, fmt.Errorf("%w: %v", ErrNotificationDeliveryFailed, err)
	}

	return resp, nil
}

// Login 登录，余额为 0 的账户引导到 onboarding
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueSession(user)
}

// VerifyEmail 验证邮箱并直接登录，欢迎邮件发送失败只记录日志
func (s *AuthService) VerifyEmail(token string) (*dto.LoginResponse, error) {
	if token == "" {
		return nil, ErrInvalidVerifyToken
	}

	user, err := s.userRepo.GetByVerificationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidVerifyToken
		}
		return nil, err
	}

	if user.VerificationExpiresAt == nil || s.now().After(*user.VerificationExpiresAt) {
		return nil, ErrVerifyTokenExpired
	}

	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"email_verified":          true,
		"verification_token":      nil,
		"verification_expires_at": nil,
	}); err != nil {
		return nil, err
	}
	user.EmailVerified = true
	user.VerificationToken = nil
	user.VerificationExpiresAt = nil

	if err := s.notifier.SendWelcome(user.Email, user.FullName); err != nil {
		zap.L().Warn("welcome email failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	return s.issueSession(user)
}

// ResendVerification 生成新的验证令牌并重发邮件，旧令牌随之失效
func (s *AuthService) ResendVerification(email string) error {
	user, err := s.userRepo.GetByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	token, err := generateToken(32)
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(verificationTTL)

	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": expiresAt,
	}); err != nil {
		return err
	}

	if err := s.notifier.SendVerification(user.Email, user.FullName, token); err != nil {
		zap.L().Warn("verification email resend failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrNotificationDeliveryFailed, err)
	}
	return nil
}

// CurrentAccount 把会话解析出的账户 ID 转成账户，不存在或未验证视为未登录
func (s *AuthService) CurrentAccount(accountID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	if !user.EmailVerified {
		return nil, ErrNotAuthenticated
	}
	return user, nil
}

func (s *AuthService) issueSession(user *model.User) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	next := NextStepDashboard
	if user.Credits == 0 {
		next = NextStepOnboarding
	}

	return &dto.LoginResponse{
		Token:    token,
		NextStep: next,
		Account:  buildAccountInfo(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
