package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wb-go/wbf/zlog"

	"congresoreg/internal/api/api"
	"congresoreg/internal/metrics"
	"congresoreg/internal/model"
	"congresoreg/internal/service"
	"congresoreg/internal/sheets"
)

// promauto registers on the default registry, so the metrics are created once
// for the whole test binary.
var testMetrics = metrics.NewSubmissionMetrics()

type fakeStore struct {
	appendCalls int
	lastTab     string
	lastRows    [][]interface{}
	appendErr   error
	readRows    [][]interface{}
	readErr     error
}

func (f *fakeStore) AppendRows(ctx context.Context, tab string, rows [][]interface{}) error {
	f.appendCalls++
	f.lastTab = tab
	f.lastRows = rows
	return f.appendErr
}

func (f *fakeStore) ReadRange(ctx context.Context, tab, a1 string) ([][]interface{}, error) {
	return f.readRows, f.readErr
}

type fakeExtractor struct {
	calls  int
	result model.OCRResult
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) model.OCRResult {
	f.calls++
	return f.result
}

type fakeNotifier struct {
	texts       int
	photos      int
	lastCaption string
	err         error
}

func (f *fakeNotifier) SendText(text string) error {
	f.texts++
	f.lastCaption = text
	return f.err
}

func (f *fakeNotifier) SendPhoto(photo []byte, filename, caption string) error {
	f.photos++
	f.lastCaption = caption
	return f.err
}

type fakePublisher struct {
	published [][]byte
	err       error
}

func (f *fakePublisher) Publish(message []byte) error {
	f.published = append(f.published, message)
	return f.err
}

type env struct {
	store     *fakeStore
	extractor *fakeExtractor
	notifier  *fakeNotifier
	publisher *fakePublisher
	app       http.Handler
}

func newEnv() *env {
	zlog.Init()
	e := &env{
		store: &fakeStore{},
		extractor: &fakeExtractor{result: model.OCRResult{
			Sender: "Ana P", Receiver: "Congreso", Amount: "350.00", DateTime: "2026-08-30 10:00",
		}},
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
	}
	svc := service.NewService(e.store, e.extractor, e.notifier, e.publisher, testMetrics, "Registros", &zlog.Logger)
	e.app = api.NewRouters(&api.Routers{Service: svc})
	return e
}

func newSubmitRequest(t *testing.T, fields map[string]string, file []byte, filename string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile("proof", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(file); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func doSubmit(t *testing.T, e *env, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.app.ServeHTTP(rec, req)
	return rec
}

func responseMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body.Message
}

func TestSubmitCashWithoutProof(t *testing.T) {
	e := newEnv()
	req := newSubmitRequest(t, map[string]string{
		"name":          "Ana",
		"lastName":      "Pérez",
		"email":         "ana@example.com",
		"phone":         "555-0100",
		"paymentMethod": "efectivo",
		"totalAmount":   "350",
	}, nil, "")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if msg := responseMessage(t, rec); msg != "¡Registro exitoso!" {
		t.Fatalf("message = %q", msg)
	}
	if e.extractor.calls != 0 {
		t.Fatalf("extractor called %d times for cash payment", e.extractor.calls)
	}
	if e.notifier.texts != 1 || e.notifier.photos != 0 {
		t.Fatalf("notifications: %d texts, %d photos", e.notifier.texts, e.notifier.photos)
	}
	if e.store.appendCalls != 1 || len(e.store.lastRows) != 1 {
		t.Fatalf("append calls = %d, rows = %d", e.store.appendCalls, len(e.store.lastRows))
	}
	row := e.store.lastRows[0]
	if row[sheets.ColOCRSender] != "" || row[sheets.ColOCRAmount] != "" {
		t.Fatalf("OCR cells not empty: %v, %v", row[sheets.ColOCRSender], row[sheets.ColOCRAmount])
	}
	if e.store.lastTab != "Registros" {
		t.Fatalf("tab = %q, want default", e.store.lastTab)
	}
}

func TestSubmitQRWithProof(t *testing.T) {
	e := newEnv()
	req := newSubmitRequest(t, map[string]string{
		"name":          "Luis",
		"email":         "luis@example.com",
		"paymentMethod": "qr",
		"totalAmount":   "500",
	}, []byte("fake-image-bytes"), "comprobante.jpg")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if e.extractor.calls != 1 {
		t.Fatalf("extractor calls = %d, want exactly 1", e.extractor.calls)
	}
	if e.notifier.photos != 1 || e.notifier.texts != 0 {
		t.Fatalf("notifications: %d texts, %d photos", e.notifier.texts, e.notifier.photos)
	}
	row := e.store.lastRows[0]
	if row[sheets.ColOCRSender] != "Ana P" || row[sheets.ColOCRDateTime] != "2026-08-30 10:00" {
		t.Fatalf("OCR cells missing: %v, %v", row[sheets.ColOCRSender], row[sheets.ColOCRDateTime])
	}
	code, ok := row[sheets.ColPurchaseCode].(string)
	if !ok || len(code) != 8 {
		t.Fatalf("purchase code cell = %v", row[sheets.ColPurchaseCode])
	}
	if !bytes.Contains([]byte(e.notifier.lastCaption), []byte(code)) {
		t.Fatalf("caption does not contain purchase code %q:\n%s", code, e.notifier.lastCaption)
	}
}

func TestSubmitAppendFailureSkipsNotification(t *testing.T) {
	e := newEnv()
	e.store.appendErr = errors.New("sheets quota exceeded")
	req := newSubmitRequest(t, map[string]string{
		"name":          "Eva",
		"paymentMethod": "efectivo",
	}, nil, "")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if msg := responseMessage(t, rec); msg != "Fallo al enviar el registro." {
		t.Fatalf("message = %q", msg)
	}
	if e.notifier.texts+e.notifier.photos != 0 {
		t.Fatal("notification sent despite persist failure")
	}
}

func TestSubmitNotifyFailureAfterPersist(t *testing.T) {
	e := newEnv()
	e.notifier.err = errors.New("telegram: chat not found")
	req := newSubmitRequest(t, map[string]string{
		"name":          "Eva",
		"paymentMethod": "efectivo",
	}, nil, "")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// Non-atomic by design: the row is already in the spreadsheet.
	if e.store.appendCalls != 1 || len(e.store.lastRows) != 1 {
		t.Fatalf("append calls = %d, rows = %d", e.store.appendCalls, len(e.store.lastRows))
	}
}

func TestSubmitBatchAttendees(t *testing.T) {
	e := newEnv()
	attendees := make([]model.Attendee, 5)
	for i := range attendees {
		attendees[i] = model.Attendee{FullName: fmt.Sprintf("Persona %d", i+1), Phone: fmt.Sprintf("555-010%d", i)}
	}
	attendeesJSON, _ := json.Marshal(attendees)
	buyerJSON, _ := json.Marshal(model.Buyer{Name: "Org SA", Email: "org@example.com", Phone: "555-0200"})

	req := newSubmitRequest(t, map[string]string{
		"buyer":         string(buyerJSON),
		"attendees":     string(attendeesJSON),
		"paymentMethod": "efectivo",
		"totalAmount":   "1750",
		"eventName":     "Congreso 2026",
	}, nil, "")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if e.store.appendCalls != 1 {
		t.Fatalf("append calls = %d, want a single batched write", e.store.appendCalls)
	}
	if len(e.store.lastRows) != 5 {
		t.Fatalf("rows = %d, want 5", len(e.store.lastRows))
	}
	if e.store.lastTab != "Congreso 2026" {
		t.Fatalf("tab = %q", e.store.lastTab)
	}
	if e.notifier.texts != 1 {
		t.Fatalf("texts = %d, want exactly one summary message", e.notifier.texts)
	}

	keys := make(map[string]struct{})
	for _, row := range e.store.lastRows {
		a := row[sheets.ColPrimeA].(int)
		b := row[sheets.ColPrimeB].(int)
		if a > b {
			a, b = b, a
		}
		key := fmt.Sprintf("%d-%d", a, b)
		if _, dup := keys[key]; dup {
			t.Fatalf("pair %s issued twice within one batch", key)
		}
		keys[key] = struct{}{}

		code := row[sheets.ColPurchaseCode].(string)
		if !bytes.Contains([]byte(e.notifier.lastCaption), []byte(code)) {
			t.Fatalf("caption missing code %q", code)
		}
	}
}

func TestSubmitMalformedAttendeesJSON(t *testing.T) {
	e := newEnv()
	req := newSubmitRequest(t, map[string]string{
		"attendees":     "{not json",
		"paymentMethod": "efectivo",
	}, nil, "")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if e.store.appendCalls != 0 {
		t.Fatal("append happened despite parse failure")
	}
}

func TestSubmitPublishFailureDoesNotFailRequest(t *testing.T) {
	e := newEnv()
	e.publisher.err = errors.New("rabbit down")
	req := newSubmitRequest(t, map[string]string{
		"name":          "Ana",
		"email":         "ana@example.com",
		"paymentMethod": "efectivo",
	}, nil, "")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, publish failure must stay best-effort", rec.Code)
	}
	if len(e.publisher.published) != 1 {
		t.Fatalf("published %d events, want 1", len(e.publisher.published))
	}
}

func TestSubmitIssuedHistoryReadFailureIsEmptyHistory(t *testing.T) {
	e := newEnv()
	e.store.readErr = errors.New("tab does not exist yet")
	req := newSubmitRequest(t, map[string]string{
		"name":          "Ana",
		"paymentMethod": "efectivo",
	}, nil, "")

	rec := doSubmit(t, e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, unreadable history must not fail the request", rec.Code)
	}
}
