package dto

// SignupRequest 注册请求
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=64"`
	FullName string `json:"full_name" binding:"required,max=100"`
	Phone    string `json:"phone" binding:"required"`
}

// SignupResponse 注册响应
type SignupResponse struct {
	UserID int64 `json:"user_id"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应，next_step 为 onboarding 或 dashboard
type LoginResponse struct {
	Token    string       `json:"token"`
	NextStep string       `json:"next_step"`
	Account  *AccountInfo `json:"account"`
}

// VerifyEmailRequest 邮箱验证请求
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest 重发验证邮件请求
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AccountInfo 账户信息（返回给前端）
type AccountInfo struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Credits       int64  `json:"credits"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at,omitempty"`
}
