package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"congresoreg/internal/model"
)

// Sentinel replaces every extracted field when the vision call fails for any
// reason. The call is never retried.
const Sentinel = "OCR_ERROR"

const extractionPrompt = `Analiza esta imagen de un comprobante de transferencia bancaria o pago QR.
Devuelve únicamente un objeto JSON estricto con exactamente estos cuatro campos de tipo string:
{"sender": "...", "receiver": "...", "amount": "...", "dateTime": "..."}
sender: nombre del remitente; receiver: nombre del destinatario;
amount: monto como cadena decimal; dateTime: fecha y hora del comprobante.
No incluyas ningún texto adicional fuera del objeto JSON.`

type Extractor struct {
	client *genai.Client
	model  string
	log    *zerolog.Logger
}

func New(ctx context.Context, apiKey, modelName string, log *zerolog.Logger) (*Extractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &Extractor{client: client, model: modelName, log: log}, nil
}

func (e *Extractor) Close() error {
	return e.client.Close()
}

// Extract sends the proof image to the model once and returns the four
// transfer fields. Any failure yields the sentinel result; errors never reach
// the caller.
func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) model.OCRResult {
	m := e.client.GenerativeModel(e.model)
	resp, err := m.GenerateContent(ctx,
		genai.ImageData(imageFormat(mimeType), image),
		genai.Text(extractionPrompt),
	)
	if err != nil {
		e.log.Warn().Err(err).Msg("vision extraction call failed")
		return SentinelResult()
	}

	out, err := parseExtraction(responseText(resp))
	if err != nil {
		e.log.Warn().Err(err).Msg("vision response could not be parsed")
		return SentinelResult()
	}
	return out
}

func SentinelResult() model.OCRResult {
	return model.OCRResult{
		Sender:   Sentinel,
		Receiver: Sentinel,
		Amount:   Sentinel,
		DateTime: Sentinel,
	}
}

func imageFormat(mimeType string) string {
	if f, ok := strings.CutPrefix(mimeType, "image/"); ok && f != "" {
		return f
	}
	return "jpeg"
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
	}
	return sb.String()
}

// stripCodeFence removes a leading ```/```json and trailing ``` the model may
// wrap its answer in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseExtraction(raw string) (model.OCRResult, error) {
	var out model.OCRResult
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &out); err != nil {
		return model.OCRResult{}, fmt.Errorf("failed to decode extraction JSON: %w", err)
	}
	return out, nil
}
