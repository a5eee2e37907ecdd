// Package gemini implements the Scorer collaborator on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/Srujanx/financial-sentiment-dashboard/internal/domain"
)

const systemInstruction = `You are a financial sentiment classifier.
Classify the sentiment of the given financial news text toward the
companies it discusses. Respond with a JSON object containing:
- "label": one of "positive", "negative", "neutral"
- "confidence": a number between 0 and 1 expressing how certain you are

Base the label on the financial implications of the text, not its tone.
A factual report of falling revenue is negative even if written calmly.`

// Scorer classifies article text with a Gemini model. It satisfies the
// Scorer contract; any API or parse failure surfaces as
// domain.ErrModelInference so callers degrade uniformly.
type Scorer struct {
	client *genai.Client
	model  string
}

var _ domain.Scorer = (*Scorer)(nil)

func NewScorer(ctx context.Context, apiKey, model string) (*Scorer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Scorer{client: client, model: model}, nil
}

type classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (s *Scorer) Classify(ctx context.Context, text string) (domain.Label, float64, error) {
	contents := []*genai.Content{
		{
			Role:  "system",
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: text}},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return "", 0, fmt.Errorf("%w: gemini call: %w", domain.ErrModelInference, err)
	}

	var result classification
	if err := json.Unmarshal([]byte(resp.Text()), &result); err != nil {
		return "", 0, fmt.Errorf("%w: unmarshal gemini response: %w", domain.ErrModelInference, err)
	}

	if result.Confidence < 0 || result.Confidence > 1 {
		return "", 0, fmt.Errorf("%w: confidence %v out of range", domain.ErrModelInference, result.Confidence)
	}

	return domain.NormalizeLabel(result.Label), result.Confidence, nil
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"label": {
				Type:        genai.TypeString,
				Enum:        []string{"positive", "negative", "neutral"},
				Description: "Sentiment of the text toward the companies discussed.",
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "Classifier certainty between 0 and 1.",
			},
		},
		Required: []string{"label", "confidence"},
	}
}
