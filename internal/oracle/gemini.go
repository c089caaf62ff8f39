package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dvloznov/statement-analyzer/internal/domain"
	"github.com/dvloznov/statement-analyzer/internal/logger"
	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// contentGenerator is the slice of *genai.Models the oracle needs.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures a GeminiOracle.
type GeminiConfig struct {
	// APIKey for the Gemini Developer API. When empty the SDK falls back to
	// GOOGLE_API_KEY / GEMINI_API_KEY or the Vertex AI environment variables.
	APIKey string

	// Model defaults to DefaultModelName.
	Model string

	// APIVersion overrides the SDK default API version, e.g. "v1".
	APIVersion string
}

// GeminiOracle is the ExtractionOracle backed by Google Gemini.
type GeminiOracle struct {
	models contentGenerator
	model  string
}

// NewGeminiOracle creates a Gemini client and wraps it in an oracle.
func NewGeminiOracle(ctx context.Context, cfg GeminiConfig) (*GeminiOracle, error) {
	clientCfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: cfg.APIVersion},
	}
	if cfg.APIKey != "" {
		clientCfg.APIKey = cfg.APIKey
		clientCfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiOracle: create genai client: %w", err)
	}
	return newGeminiOracle(client.Models, cfg.Model), nil
}

func newGeminiOracle(models contentGenerator, model string) *GeminiOracle {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiOracle{models: models, model: model}
}

// Extract sends the PDF inline to Gemini and decodes the JSON it returns.
func (o *GeminiOracle) Extract(ctx context.Context, pdf []byte) (*domain.StatementRecord, error) {
	log := logger.FromContext(ctx)

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: statementPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: "application/pdf",
						Data:     pdf,
					},
				},
			},
		},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}

	start := time.Now()
	resp, err := o.models.GenerateContent(ctx, o.model, contents, config)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ExtractionFailure("statement analysis timed out", err)
		}
		return nil, ExtractionFailure("statement analysis request failed", err)
	}
	if resp == nil {
		return nil, ExtractionFailure("model returned no response", nil)
	}

	event := log.Debug().Str("model", o.model).Dur("duration", time.Since(start))
	if resp.UsageMetadata != nil {
		event = event.
			Int32("tokens_input", resp.UsageMetadata.PromptTokenCount).
			Int32("tokens_output", resp.UsageMetadata.CandidatesTokenCount)
	}
	event.Msg("Model response received")

	rawText := resp.Text()
	if strings.TrimSpace(rawText) == "" {
		return nil, ExtractionFailure("model returned no text content", nil)
	}

	clean := cleanModelJSON(rawText)

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		log.Warn().Err(err).Str("raw_response", truncate(rawText, 500)).Msg("Model output is not valid JSON")
		return nil, ExtractionFailure("model output is not valid JSON", err)
	}

	return DecodeStatement(parsed)
}

// cleanModelJSON strips Markdown fences and surrounding chatter so that only
// the outermost JSON object remains.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)

		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
