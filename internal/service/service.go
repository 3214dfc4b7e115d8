package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"congresoreg/internal/codegen"
	"congresoreg/internal/dto"
	"congresoreg/internal/metrics"
	"congresoreg/internal/model"
	"congresoreg/internal/sheets"
	"congresoreg/internal/vision"
	"congresoreg/pkg/validator"
)

type Service interface {
	Submit(ctx *ginext.Context)
}

// RowStore is the spreadsheet collaborator: batched append plus a range read
// for the issued-pair history. Satisfied by sheets.Client.
type RowStore interface {
	AppendRows(ctx context.Context, tab string, rows [][]interface{}) error
	ReadRange(ctx context.Context, tab, a1 string) ([][]interface{}, error)
}

// ProofExtractor never fails: on any error it returns the sentinel result.
// Satisfied by vision.Extractor.
type ProofExtractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) model.OCRResult
}

// Notifier is the chat collaborator. Satisfied by telegram.Notifier.
type Notifier interface {
	SendText(text string) error
	SendPhoto(photo []byte, filename, caption string) error
}

// EventPublisher feeds the async e-mail worker. Satisfied by rabbit.Client.
type EventPublisher interface {
	Publish(message []byte) error
}

type service struct {
	store      RowStore
	extractor  ProofExtractor
	notifier   Notifier
	publisher  EventPublisher // nil when the rabbit pipeline is disabled
	metrics    *metrics.SubmissionMetrics
	defaultTab string
	log        *zerolog.Logger
}

func NewService(store RowStore, extractor ProofExtractor, notifier Notifier, publisher EventPublisher, m *metrics.SubmissionMetrics, defaultTab string, log *zerolog.Logger) Service {
	return &service{
		store:      store,
		extractor:  extractor,
		notifier:   notifier,
		publisher:  publisher,
		metrics:    m,
		defaultTab: defaultTab,
		log:        log,
	}
}

// Submit handles one registration end-to-end: parse → extract (QR with proof
// only) → generate codes → append rows in one batch → notify → respond.
// Persist failure skips the notification; notify failure still fails the
// request even though the rows are already written.
func (s *service) Submit(ctx *ginext.Context) {
	start := time.Now()

	sub, err := parseSubmission(ctx)
	if err != nil {
		s.fail(ctx, "", start, err, "failed to parse submission")
		return
	}

	if verr := validator.Validate(ctx, dto.SubmissionRequest{
		Email:         sub.Email,
		PaymentMethod: sub.PaymentMethod,
	}); verr != nil {
		s.fail(ctx, sub.PaymentMethod, start, verr, "submission failed validation")
		return
	}

	reqCtx := ctx.Request.Context()

	// At most one extraction per request, shared across all attendee rows.
	var ocr model.OCRResult
	if sub.PaymentMethod == model.PaymentQR && sub.Proof != nil {
		ocr = s.extractor.Extract(reqCtx, sub.Proof.Data, sub.Proof.MimeType)
		if ocr.Sender == vision.Sentinel {
			s.metrics.OCRFailuresTotal.Inc()
		}
	}

	tab := sheets.DestinationTab(sub, s.defaultTab)
	issued := s.loadIssuedPairs(reqCtx, tab)

	attendees := rowAttendees(sub)
	codes := make([]model.IssuedCode, 0, len(attendees))
	for range attendees {
		a, b, product, err := codegen.UniquePair(issued, codegen.DefaultMaxAttempts)
		if err != nil {
			s.fail(ctx, sub.PaymentMethod, start, err, "failed to generate unique prime pair")
			return
		}
		codes = append(codes, model.IssuedCode{
			PurchaseCode: codegen.NewPurchaseCode(),
			PrimeA:       a,
			PrimeB:       b,
			ProductC:     product,
		})
	}

	now := time.Now()
	rows := make([][]interface{}, 0, len(attendees))
	for i, att := range attendees {
		rows = append(rows, sheets.BuildRow(now, sub, att, codes[i], ocr))
	}

	if err := s.store.AppendRows(reqCtx, tab, rows); err != nil {
		// Nothing was notified: the pipeline aborts before the Telegram step.
		s.fail(ctx, sub.PaymentMethod, start, err, "failed to append rows to spreadsheet")
		return
	}
	s.metrics.RowsAppendedTotal.Add(float64(len(rows)))

	summary := formatSummary(sub, codes, ocr, tab)
	if sub.PaymentMethod == model.PaymentQR && sub.Proof != nil {
		err = s.notifier.SendPhoto(sub.Proof.Data, sub.Proof.Filename, summary)
	} else {
		err = s.notifier.SendText(summary)
	}
	if err != nil {
		// The rows are already persisted; the request still reports failure.
		s.metrics.NotifyFailuresTotal.Inc()
		s.fail(ctx, sub.PaymentMethod, start, err, "failed to send telegram notification")
		return
	}

	s.publishRecorded(sub, codes)

	s.log.Info().
		Str("tab", tab).
		Int("rows", len(rows)).
		Str("payment_method", sub.PaymentMethod).
		Msg("registration recorded")

	s.metrics.SubmissionsTotal.WithLabelValues(methodLabel(sub.PaymentMethod), "ok").Inc()
	s.metrics.SubmissionDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	dto.SuccessResponse(ctx)
}

func (s *service) fail(ctx *ginext.Context, method string, start time.Time, err error, msg string) {
	s.log.Error().Err(err).Msg(msg)
	s.metrics.SubmissionsTotal.WithLabelValues(methodLabel(method), "error").Inc()
	s.metrics.SubmissionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
	dto.InternalServerError(ctx)
}

func methodLabel(method string) string {
	if method == "" {
		return "unknown"
	}
	return method
}

// loadIssuedPairs fetches the pair history once per request. An unreadable
// range (tab not created yet, transient API error) counts as empty history.
func (s *service) loadIssuedPairs(ctx context.Context, tab string) codegen.IssuedSet {
	rows, err := s.store.ReadRange(ctx, tab, sheets.IssuedPairsRange())
	if err != nil {
		s.log.Warn().Err(err).Str("tab", tab).Msg("failed to load issued pairs, assuming empty history")
		return make(codegen.IssuedSet)
	}
	return codegen.ParseIssuedRows(rows)
}

func (s *service) publishRecorded(sub *model.Submission, codes []model.IssuedCode) {
	if s.publisher == nil {
		return
	}
	codeStrs := make([]string, 0, len(codes))
	for _, c := range codes {
		codeStrs = append(codeStrs, c.PurchaseCode)
	}
	payload, err := json.Marshal(dto.RegistrationRecordedMessage{
		BuyerName:  sub.ContactName(),
		Email:      sub.ContactEmail(),
		EventName:  sub.EventName,
		Codes:      codeStrs,
		RecordedAt: time.Now(),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal registration event")
		return
	}
	if err := s.publisher.Publish(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to publish registration event to RabbitMQ")
	}
}

// rowAttendees maps the submission onto the rows to be written: one per
// attendee in the batch variant, a single row built from the buyer otherwise.
func rowAttendees(sub *model.Submission) []model.Attendee {
	if len(sub.Attendees) > 0 {
		return sub.Attendees
	}
	phone := sub.Phone
	if phone == "" && sub.Buyer != nil {
		phone = sub.Buyer.Phone
	}
	return []model.Attendee{{FullName: sub.ContactName(), Phone: phone}}
}

func parseSubmission(c *ginext.Context) (*model.Submission, error) {
	sub := &model.Submission{
		Name:           c.PostForm("name"),
		LastName:       c.PostForm("lastName"),
		Email:          c.PostForm("email"),
		Phone:          c.PostForm("phone"),
		AcademicDegree: c.PostForm("academicDegree"),
		Department:     c.PostForm("department"),
		Institution:    c.PostForm("institution"),
		Career:         c.PostForm("career"),
		ResellerCode:   c.PostForm("resellerCode"),
		TotalAmount:    c.PostForm("totalAmount"),
		PaymentMethod:  c.PostForm("paymentMethod"),
		EventName:      c.PostForm("eventName"),
	}
	if sub.ResellerCode == "" {
		sub.ResellerCode = c.PostForm("userProvidedCode")
	}

	if raw := c.PostForm("selectedServices"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.SelectedServices); err != nil {
			return nil, fmt.Errorf("failed to decode selectedServices: %w", err)
		}
	}
	if raw := c.PostForm("buyer"); raw != "" {
		var buyer model.Buyer
		if err := json.Unmarshal([]byte(raw), &buyer); err != nil {
			return nil, fmt.Errorf("failed to decode buyer: %w", err)
		}
		sub.Buyer = &buyer
	}
	if raw := c.PostForm("attendees"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.Attendees); err != nil {
			return nil, fmt.Errorf("failed to decode attendees: %w", err)
		}
	}

	// A missing proof field is not an error: the file is optional.
	if fh, err := c.FormFile("proof"); err == nil && fh != nil {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded proof: %w", err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded proof: %w", err)
		}
		sub.Proof = &model.ProofFile{
			Data:     data,
			MimeType: fh.Header.Get("Content-Type"),
			Filename: fh.Filename,
		}
	}

	return sub, nil
}

func formatSummary(sub *model.Submission, codes []model.IssuedCode, ocr model.OCRResult, tab string) string {
	var b strings.Builder

	title := sub.EventName
	if title == "" {
		title = tab
	}
	fmt.Fprintf(&b, "🎟 *Nueva inscripción* — %s\n", title)

	b.WriteString("```\n")
	fmt.Fprintf(&b, "Nombre:    %s\n", sub.ContactName())
	if email := sub.ContactEmail(); email != "" {
		fmt.Fprintf(&b, "Email:     %s\n", email)
	}
	if sub.Phone != "" {
		fmt.Fprintf(&b, "Teléfono:  %s\n", sub.Phone)
	}
	fmt.Fprintf(&b, "Pago:      %s\n", sub.PaymentMethod)
	if sub.TotalAmount != "" {
		fmt.Fprintf(&b, "Monto:     %s\n", sub.TotalAmount)
	}
	if len(sub.SelectedServices) > 0 {
		fmt.Fprintf(&b, "Servicios: %s\n", strings.Join(sub.SelectedServices, ", "))
	}
	if sub.ResellerCode != "" {
		fmt.Fprintf(&b, "Revendedor: %s\n", sub.ResellerCode)
	}
	b.WriteString("```\n")

	b.WriteString("*Códigos emitidos:*\n")
	attendees := rowAttendees(sub)
	for i, code := range codes {
		fmt.Fprintf(&b, "%s — `%s` (%d × %d = %d)\n",
			attendees[i].FullName, code.PurchaseCode, code.PrimeA, code.PrimeB, code.ProductC)
	}

	if sub.PaymentMethod == model.PaymentQR && sub.Proof != nil {
		b.WriteString("*Comprobante:*\n")
		fmt.Fprintf(&b, "Remitente: %s | Destinatario: %s | Monto: %s | Fecha: %s\n",
			ocr.Sender, ocr.Receiver, ocr.Amount, ocr.DateTime)
	}

	return b.String()
}
