package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/kitchen-ledger/internal/domain"
)

// GeminiExtractor reads receipts with a Gemini vision model. One client is
// shared by all sessions.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

// NewGeminiExtractor creates the genai client. An empty model selects DefaultModelName.
func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiExtractor: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

// Model returns the model name used for extraction.
func (g *GeminiExtractor) Model() string {
	return g.model
}

// Extract sends the receipt bytes inline with the fixed prompt and decodes the
// first JSON object of the answer. There is no retry.
func (g *GeminiExtractor) Extract(ctx context.Context, data []byte, mimeType string) (*Extraction, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: receiptPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("GeminiExtractor.Extract: generate content: %w: %w", ErrExtractionFailed, err)
	}

	rawText := resp.Text()
	receipt, err := decodeReceipt(rawText)
	if err != nil {
		return nil, err
	}

	return &Extraction{Receipt: receipt, RawText: rawText, ModelName: g.model}, nil
}

// decodeReceipt pulls the receipt object out of free model text. Code fences and
// chatter around the object are ignored.
func decodeReceipt(rawText string) (*ExtractedReceipt, error) {
	span, ok := extractJSONObject(rawText)
	if !ok {
		return nil, fmt.Errorf("decodeReceipt: no JSON object in model response: %w", ErrExtractionFailed)
	}

	var receipt ExtractedReceipt
	if err := json.Unmarshal([]byte(span), &receipt); err != nil {
		return nil, fmt.Errorf("decodeReceipt: unmarshal JSON: %w: %w", ErrExtractionFailed, err)
	}
	inferDirection(&receipt)
	return &receipt, nil
}

// Keywords in the transaction type that mark money coming in.
var incomingMarkers = []string{"gelen", "incoming"}

// inferDirection fills a missing or unrecognized transactionDirection from the
// transaction type text, the same rule the prompt gives the model. Only the
// incoming markers matter here; everything else stays undecided and later
// defaults to expense.
func inferDirection(r *ExtractedReceipt) {
	switch strings.ToLower(looseText(r.TransactionDirection)) {
	case "income", "expense":
		return
	}
	txType := domain.FoldName(looseText(r.TransactionType))
	for _, marker := range incomingMarkers {
		if strings.Contains(txType, marker) {
			r.TransactionDirection = LooseString("income")
			return
		}
	}
}

// extractJSONObject returns the first balanced {...} span of s. Braces inside
// JSON strings do not count.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
