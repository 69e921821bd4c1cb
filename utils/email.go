// utils/email.go
package utils

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendEmail sends an HTML email using the configured SMTP server
func SendEmail(to, subject, htmlBody string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromEmail := os.Getenv("FROM_EMAIL")
	if fromEmail == "" {
		fromEmail = smtpUser
	}

	if smtpHost == "" || smtpPortStr == "" || smtpUser == "" || smtpPass == "" {
		return fmt.Errorf("missing SMTP configuration")
	}

	smtpPort, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %v", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", fromEmail)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}

	return nil
}

// SendPasswordResetOTP sends the password reset code to the user
func SendPasswordResetOTP(email, name, otp string) error {
	subject := "Password Reset OTP"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Reset Your Password</h2>
			<p>Hello %s,</p>
			<p>You have requested to reset your password. Please use the following OTP code to verify your request:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in 15 minutes.</p>
			<p>If you did not request a password reset, please ignore this email or contact support if you have concerns.</p>
			<p>Thank you,<br>The LynqMarket Team</p>
		</body>
		</html>
	`, name, otp)

	return SendEmail(email, subject, body)
}

// SendOrderConfirmation notifies the customer that an order was placed
func SendOrderConfirmation(email, name, orderID string, total float64) error {
	subject := "Order Confirmation"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Thank you for your order</h2>
			<p>Hello %s,</p>
			<p>Your order <strong>%s</strong> has been placed successfully.</p>
			<p>Order total: <strong>$%.2f</strong></p>
			<p>You will receive another update when the provider confirms your order.</p>
			<p>Thank you,<br>The LynqMarket Team</p>
		</body>
		</html>
	`, name, orderID, total)

	return SendEmail(email, subject, body)
}
