package utils

import (
	"fmt"

	"davie-supply/config"

	"gopkg.in/gomail.v2"
)

// SendSubmitNotification mails the supervisor that a receipt is waiting for
// confirmation. Best effort; the submit transition never depends on it.
func SendSubmitNotification(receiptID int64) error {
	m := gomail.NewMessage()
	m.SetHeader("From", config.MailFrom)
	m.SetHeader("To", config.MailSupervisor)
	m.SetHeader("Subject", fmt.Sprintf("Receipt %d submitted for confirmation", receiptID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Delivery receipt %d has been submitted by the receiving clerk and is waiting for cost confirmation.", receiptID))

	d := gomail.NewDialer(config.MailHost, config.MailPort, config.MailUser, config.MailPassword)
	return d.DialAndSend(m)
}
