// Package openai adapts the OpenAI vision API to the document extractor port.
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/receipt"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = "You are an expert at reading receipts and invoices. " +
	"Extract expense fields accurately and respond with valid JSON only."

const extractionPrompt = `Examine this receipt and extract the expense fields.

Return a JSON object with this exact structure, omitting any field you cannot
read confidently:
{
  "amount": number,
  "date": "YYYY-MM-DD",
  "description": "short description of the purchase, e.g. merchant name",
  "category": "one of: Travel, Meals, Accommodation, Office Supplies, Other"
}

IMPORTANT:
- amount is the grand total actually paid, without currency symbols.
- Extract EXACTLY what you see. Never guess or make up values.`

// Extractor extracts expense fields from receipts using the vision API
type Extractor struct {
	client *openai.Client
	reader *receipt.Reader
	model  string
	logger *zap.Logger
}

// NewExtractor creates a new receipt extractor
func NewExtractor(apiKey, model string, reader *receipt.Reader, logger *zap.Logger) *Extractor {
	return &Extractor{
		client: openai.NewClient(apiKey),
		reader: reader,
		model:  model,
		logger: logger,
	}
}

// Extract reads a receipt upload and returns the fields the model could read
func (e *Extractor) Extract(ctx context.Context, data []byte, filename string) (*port.PartialExpenseFields, error) {
	pages, err := e.reader.Pages(data, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", approval.ErrValidation, err)
	}

	contentParts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: extractionPrompt,
	}}
	for _, page := range pages {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(page)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		MaxTokens:   1024,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		e.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("%w: vision extraction failed: %v", approval.ErrUpstreamUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty vision response", approval.ErrUpstreamUnavailable)
	}

	content := resp.Choices[0].Message.Content
	var fields port.PartialExpenseFields
	if err := json.Unmarshal([]byte(content), &fields); err != nil {
		e.logger.Error("Failed to parse vision response", zap.Error(err), zap.String("content", content))
		return nil, fmt.Errorf("%w: unparseable vision response", approval.ErrUpstreamUnavailable)
	}

	e.logger.Info("Receipt fields extracted",
		zap.String("filename", filename),
		zap.Int("pages", len(pages)),
		zap.Bool("has_amount", fields.Amount != nil),
	)
	return &fields, nil
}

// Verify interface compliance
var _ port.DocumentExtractor = (*Extractor)(nil)
