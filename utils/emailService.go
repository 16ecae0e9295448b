package utils

import (
	"fmt"
	"log"

	"academy/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail sends an HTML email through SendGrid
func SendEmail(toName, toEmail, subject, htmlBody string) error {
	from := mail.NewEmail("Academy", config.AppConfig.EmailSender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, " ", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendgridApiKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Println("Error sending email:", err)
		return err
	}
	if resp.StatusCode >= 400 {
		log.Printf("SendGrid rejected email (status %d): %s", resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid error: status %d", resp.StatusCode)
	}
	return nil
}

// SendPurchaseConfirmation emails the learner after a completed payment.
// Failures are logged, not propagated: the purchase already exists and the
// webhook must still be acknowledged.
func SendPurchaseConfirmation(toName, toEmail, courseTitle string) {
	body := fmt.Sprintf(`
	<html>
	<body style="font-family: Helvetica, Arial, sans-serif; color: #00004D;">
		<h2>You're in!</h2>
		<p>Hi %s,</p>
		<p>Your purchase of <b>%s</b> is confirmed. The course is now available under
		<a href="%s/learning">Your courses</a>.</p>
		<p>Happy learning!</p>
	</body>
	</html>`, toName, courseTitle, config.AppConfig.BaseURL)

	if err := SendEmail(toName, toEmail, "Purchase confirmed: "+courseTitle, body); err != nil {
		log.Printf("Failed to send purchase confirmation to %s: %v", toEmail, err)
	}
}
