package email

import (
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"github.com/osms-business/osms_server/config"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	cfg    *config.EmailConfig
	appURL string
	send   sendFunc
}

func NewService(cfg *config.EmailConfig, appURL string) *Service {
	return &Service{cfg: cfg, appURL: strings.TrimRight(appURL, "/"), send: smtp.SendMail}
}

// VerificationLink 邮件中的验证链接
func (s *Service) VerificationLink(token string) string {
	return fmt.Sprintf("%s/verify-email?token=%s", s.appURL, token)
}

// SendVerification 发送邮箱验证邮件
func (s *Service) SendVerification(to, fullName, token string) error {
	link := s.VerificationLink(token)
	subject := "Verify your email - O'SMS"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Confirm your email</h2>
        <p>Hi %s,</p>
        <p>Thanks for signing up for O'SMS. Confirm your email address to activate your account:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Verify email</a>
        </div>
        <p>Or paste this link into your browser:</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all;">%s</p>
        <p>The link expires in 24 hours.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, fullName, link, link)

	return s.sendHTML(to, subject, body)
}

// SendWelcome 发送欢迎邮件
func (s *Service) SendWelcome(to, fullName string) error {
	subject := "Welcome to O'SMS"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">Welcome aboard!</h2>
        <p>Hi %s,</p>
        <p>Your email is verified. Next steps:</p>
        <ul>
            <li>Pick a plan and pay with crypto to receive SMS credits</li>
            <li>Send your first message from the dashboard</li>
        </ul>
        <p><a href="%s/dashboard">Open your dashboard</a></p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">This is an automated message, please do not reply.</p>
    </div>
</body>
</html>
`, fullName, s.appURL)

	return s.sendHTML(to, subject, body)
}

// sendHTML 发送 HTML 邮件
func (s *Service) sendHTML(to, subject, body string) error {
	msg := buildMessage(map[string]string{
		"From":         s.cfg.From,
		"To":           to,
		"Subject":      subject,
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
	}, body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	if err := s.send(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(headers map[string]string, body string) []byte {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var msg strings.Builder
	for _, k := range keys {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", k, headers[k]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}
