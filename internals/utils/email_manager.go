package utils

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	AppName  string
}

// EmailManager sends transactional mail over SMTP. Every send is best-effort
// from the caller's perspective: delivery failures are logged, never
// propagated into the primary operation.
type EmailManager struct {
	Config *SMTPConfig
	// DialTimeout bounds the connection attempt so a dead SMTP host cannot
	// hang a request goroutine
	DialTimeout time.Duration
}

func NewEmailManager(config *SMTPConfig) *EmailManager {
	return &EmailManager{
		Config:      config,
		DialTimeout: 10 * time.Second,
	}
}

// send handles the actual SMTP handshake and delivery.
func (em *EmailManager) send(toEmail string, subject string, body string) error {
	smtpAddr := fmt.Sprintf("%s:%d", em.Config.Host, em.Config.Port)

	// Headers per RFC 822; the empty string yields the blank line
	// separating headers from the body
	headers := []string{
		fmt.Sprintf("From: %s", em.Config.User),
		fmt.Sprintf("To: %s", toEmail),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}
	message := strings.Join(headers, "\r\n")

	conn, err := net.DialTimeout("tcp", smtpAddr, em.DialTimeout)
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, em.Config.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: em.Config.Host}); err != nil {
			return err
		}
	}
	auth := smtp.PlainAuth("", em.Config.User, em.Config.Password, em.Config.Host)
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(em.Config.User); err != nil {
		return err
	}
	if err := client.Rcpt(toEmail); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// SendVerificationEmail delivers the 6-digit signup verification code.
func (em *EmailManager) SendVerificationEmail(toEmail string, code string) error {
	subject := fmt.Sprintf("%s - Verify your Email", em.Config.AppName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Thank you for signing up for %s! To complete your registration, please use the verification code below:\n\n"+
			"Verification Code: %s\n\n"+
			"This code will expire in 24 hours.\n\n"+
			"Best regards,\nThe %s Team",
		em.Config.AppName, code, em.Config.AppName)
	return em.send(toEmail, subject, body)
}

// SendWelcomeEmail greets a freshly verified user.
func (em *EmailManager) SendWelcomeEmail(toEmail string, name string) error {
	subject := fmt.Sprintf("Welcome to %s", em.Config.AppName)
	body := fmt.Sprintf(
		"Hello %s,\n\n"+
			"Your email has been verified and your account is ready to use. Jump in and say hi!\n\n"+
			"Best regards,\nThe %s Team",
		name, em.Config.AppName)
	return em.send(toEmail, subject, body)
}

// SendResetLinkEmail delivers a password-reset link for the link flow.
func (em *EmailManager) SendResetLinkEmail(toEmail string, resetURL string) error {
	subject := fmt.Sprintf("%s - Reset your password", em.Config.AppName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"We received a request to reset your password. Click the link below to choose a new one:\n\n"+
			"%s\n\n"+
			"This link will expire in 1 hour. If you did not request a reset, you can safely ignore this email.\n\n"+
			"Best regards,\nThe %s Team",
		resetURL, em.Config.AppName)
	return em.send(toEmail, subject, body)
}

// SendResetOTPEmail delivers a password-reset OTP for the OTP flow.
func (em *EmailManager) SendResetOTPEmail(toEmail string, code string) error {
	subject := fmt.Sprintf("%s - Your Password Reset Code", em.Config.AppName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"We received a request to reset your password. Use the code below to continue:\n\n"+
			"Reset Code: %s\n\n"+
			"This code will expire in 10 minutes. If you did not request a reset, you can safely ignore this email.\n\n"+
			"Best regards,\nThe %s Team",
		code, em.Config.AppName)
	return em.send(toEmail, subject, body)
}

// SendResetSuccessEmail confirms a completed password reset.
func (em *EmailManager) SendResetSuccessEmail(toEmail string) error {
	subject := fmt.Sprintf("%s - Password Reset Successful", em.Config.AppName)
	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Your password has been changed. If this wasn't you, please reset your password again immediately.\n\n"+
			"Best regards,\nThe %s Team",
		em.Config.AppName)
	return em.send(toEmail, subject, body)
}
