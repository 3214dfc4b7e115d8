package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

type Mailer struct {
	addr string
	from string
	pass string
	log  *zerolog.Logger
}

func New(addr, from, pass string, log *zerolog.Logger) *Mailer {
	return &Mailer{addr: addr, from: from, pass: pass, log: log}
}

// SendConfirmation mails the issued purchase codes to the buyer.
func (m *Mailer) SendConfirmation(recipient, eventName string, codes []string) error {
	if eventName == "" {
		eventName = "el congreso"
	}

	subject := "✅ Registro confirmado"
	body := fmt.Sprintf(
		"¡Hola!\n\nTu registro para «%s» fue recibido correctamente.\n\nCódigos de compra:\n%s\n\nConserva estos códigos: los necesitarás el día del evento.",
		eventName,
		"  "+strings.Join(codes, "\n  "),
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		m.from, recipient, subject, body,
	)

	host, _, _ := strings.Cut(m.addr, ":")
	auth := smtp.PlainAuth("", m.from, m.pass, host)

	if err := smtp.SendMail(m.addr, auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		m.log.Warn().Msgf("failed to send confirmation e-mail to %s: %v", recipient, err)
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Msgf("📧 confirmation e-mail sent to %s (%d codes)", recipient, len(codes))
	return nil
}
