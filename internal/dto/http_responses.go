package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	SuccessMessage = "¡Registro exitoso!"
	FailureMessage = "Fallo al enviar el registro."
)

// SubmissionRequest carries only the validated slice of the form; the rest of
// the fields are accepted as-is (absent fields are empty by contract).
type SubmissionRequest struct {
	Email         string `validate:"omitempty,email"`
	PaymentMethod string `validate:"omitempty,payment"`
}

// RegistrationRecordedMessage is published after a successful append and
// consumed by the e-mail worker.
type RegistrationRecordedMessage struct {
	BuyerName  string    `json:"buyer_name"`
	Email      string    `json:"email"`
	EventName  string    `json:"event_name"`
	Codes      []string  `json:"codes"`
	RecordedAt time.Time `json:"recorded_at"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func SuccessResponse(c *ginext.Context) {
	c.JSON(200, MessageResponse{Message: SuccessMessage})
}

// InternalServerError is the single failure shape: internal detail goes to the
// logs, never to the client.
func InternalServerError(c *ginext.Context) {
	c.JSON(500, MessageResponse{Message: FailureMessage})
}
