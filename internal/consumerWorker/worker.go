package consumerWorker

import (
	"context"
	"encoding/json"

	"congresoreg/internal/dto"
	"congresoreg/internal/mailer"
	"congresoreg/internal/rabbit"

	"github.com/wb-go/wbf/zlog"
)

// Reader consumes registration-recorded events and sends confirmation e-mails.
// Everything here is best-effort: a failed send never reaches the HTTP client.
type Reader struct {
	RMQ    *rabbit.Client
	mail   *mailer.Mailer
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, mail *mailer.Mailer) *Reader {
	return &Reader{
		RMQ:  rmq,
		mail: mail,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("🐇 RabbitMQ Reader started")

	go func() {
		defer close(r.done)

		handler := func(body []byte) error {
			var msg dto.RegistrationRecordedMessage
			if err := json.Unmarshal(body, &msg); err != nil {
				zlog.Logger.Error().
					Err(err).
					Msgf("Failed to unmarshal message: %s", string(body))
				return err
			}

			zlog.Logger.Info().
				Str("email", msg.Email).
				Str("event", msg.EventName).
				Int("codes", len(msg.Codes)).
				Msg("📩 Received registration event from RabbitMQ")

			if msg.Email == "" {
				zlog.Logger.Info().Msg("registration has no e-mail address, skipping")
				return nil
			}

			if err := r.mail.SendConfirmation(msg.Email, msg.EventName, msg.Codes); err != nil {
				zlog.Logger.Warn().
					Err(err).
					Str("email", msg.Email).
					Msg("Failed to send confirmation e-mail")
			}

			return nil
		}

		if err := r.RMQ.Consume(handler); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("🛑 RabbitMQ Reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
