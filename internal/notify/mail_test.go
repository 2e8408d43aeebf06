package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"thsr-booker/internal/components/telemetry"
	"thsr-booker/internal/scrapers/thsr"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/require"
)

var testTicket = thsr.Ticket{
	PnrCode:         "06152432",
	Price:           "TWD 1,490",
	PaymentDeadline: "06/03 23:59",
	Date:            "2024/06/10",
	Departure:       "06:26",
	Arrival:         "08:00",
	From:            "台北",
	To:              "左營",
	Class:           "標準車廂",
	PassengerCount:  "(全票 1 張)",
	Seats:           []string{"7車12A"},
}

type sentMail struct {
	mail *email.Email
	addr string
	auth smtp.Auth
}

func TestSendBooking(t *testing.T) {
	var sent []sentMail
	mailer := NewMailer(SmtpConfig{
		Server:       "smtp.example.com",
		EmailAddress: "booker@example.com",
		Password:     "secret",
	}, &telemetry.Recorder{})
	mailer.send = func(mail *email.Email, addr string, auth smtp.Auth) error {
		sent = append(sent, sentMail{mail: mail, addr: addr, auth: auth})
		return nil
	}

	require.True(t, mailer.Enabled())
	require.NoError(t, mailer.SendBooking(context.Background(), "rider@example.com", testTicket))

	require.Len(t, sent, 1)
	require.Equal(t, "smtp.example.com:587", sent[0].addr)
	require.NotNil(t, sent[0].auth)
	require.Equal(t, "THSR Booker <booker@example.com>", sent[0].mail.From)
	require.Equal(t, []string{"rider@example.com"}, sent[0].mail.To)
	require.Equal(t, "THSR booking 06152432: 2024/06/10 06:26~08:00", sent[0].mail.Subject)
	require.Contains(t, string(sent[0].mail.Text), "PNR Code: 06152432")
}

func TestSendBookingWithoutAuth(t *testing.T) {
	var auths []smtp.Auth
	mailer := NewMailer(SmtpConfig{Server: "localhost", Port: 25}, &telemetry.Recorder{})
	mailer.send = func(_ *email.Email, _ string, auth smtp.Auth) error {
		auths = append(auths, auth)
		if auth != nil {
			return errors.New("smtp: server doesn't support AUTH")
		}
		return nil
	}

	require.NoError(t, mailer.SendBooking(context.Background(), "rider@example.com", testTicket))
	require.Len(t, auths, 2)
	require.Nil(t, auths[1])
}

func TestSendBookingFailure(t *testing.T) {
	rec := &telemetry.Recorder{}
	mailer := NewMailer(SmtpConfig{Server: "localhost"}, rec)
	mailer.send = func(*email.Email, string, smtp.Auth) error {
		return errors.New("connection refused")
	}

	err := mailer.SendBooking(context.Background(), "rider@example.com", testTicket)
	require.Error(t, err)
	require.Equal(t, []string{report_mailer_send}, rec.Ids("broken"))
}

func TestMailerDisabled(t *testing.T) {
	require.False(t, NewMailer(SmtpConfig{}, &telemetry.Recorder{}).Enabled())
}

func TestBookingMessage(t *testing.T) {
	_, body := BookingMessage(testTicket)
	require.True(t, strings.HasPrefix(body, "Your train ticket has been reserved"))
	require.Contains(t, body, "7車12A")
}
