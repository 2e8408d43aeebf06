// Package notify sends the booking summary out of band, so the PNR code is not only on screen.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"thsr-booker/internal/components/assert"
	"thsr-booker/internal/components/telemetry"
	"thsr-booker/internal/scrapers/thsr"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_mailer_send = "mailer.send"
)

const DefaultSmtpPort = 587

var tracer = otel.Tracer("thsr-booker/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type sendFunc func(mail *email.Email, addr string, auth smtp.Auth) error

func sendMail(mail *email.Email, addr string, auth smtp.Auth) error {
	return mail.Send(addr, auth)
}

type Mailer struct {
	smtp SmtpConfig
	tel  telemetry.API
	send sendFunc
}

func NewMailer(config SmtpConfig, tel telemetry.API) Mailer {
	assert.NotNil(tel)
	if config.Port <= 0 {
		config.Port = DefaultSmtpPort
	}
	return Mailer{smtp: config, tel: tel, send: sendMail}
}

// Enabled is false when no SMTP server is configured.
func (m Mailer) Enabled() bool {
	return m.smtp.Server != ""
}

func BookingMessage(ticket thsr.Ticket) (subject string, body string) {
	subject = fmt.Sprintf("THSR booking %s: %s %s~%s", ticket.PnrCode, ticket.Date, ticket.Departure, ticket.Arrival)
	body = fmt.Sprintf(`Your train ticket has been reserved but is not paid for yet.

%s

Pay for and pick up the ticket with the PNR code above before the deadline or the reservation is cancelled.`, ticket.Summary())
	return subject, body
}

// SendBooking mails the ticket summary to `to`.
func (m Mailer) SendBooking(ctx context.Context, to string, ticket thsr.Ticket) error {
	_, span := tracer.Start(ctx, "notify:SendBooking")
	defer span.End()

	subject, body := BookingMessage(ticket)

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("THSR Booker <%s>", m.smtp.EmailAddress)
	mail.To = []string{to}
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.smtp.Server, m.smtp.Port)
	err := m.send(
		mail,
		addr,
		smtp.PlainAuth("", m.smtp.EmailAddress, m.smtp.Password, m.smtp.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = m.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		m.tel.ReportBroken(report_mailer_send, err, addr)
		return err
	}
	return nil
}
