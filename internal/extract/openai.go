package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/yesan/internal/model"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig configures the vision extractor.
type OpenAIConfig struct {
	HTTPClient   *http.Client
	APIKey       string
	Model        string
	BaseURL      string
	RateLimitRPM int
}

// OpenAI reads documents with a vision-capable chat model.
type OpenAI struct {
	client  *openai.Client
	limiter *rateLimiter
	logger  *slog.Logger
	model   string
}

// NewOpenAI creates the vision extractor.
func NewOpenAI(cfg OpenAIConfig, logger *slog.Logger) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		limiter: newRateLimiter(cfg.RateLimitRPM),
		logger:  logger,
		model:   cfg.Model,
	}, nil
}

// Close releases the rate limiter.
func (o *OpenAI) Close() {
	o.limiter.close()
}

type visionReply struct {
	Amount  decimal.NullDecimal `json:"amount"`
	Account string              `json:"account"`
	Vendor  string              `json:"vendor"`
	Date    string              `json:"date"`
}

const systemPrompt = "You read Korean accounting documents. Reply with ONLY a JSON object " +
	`with the keys "amount" (number, KRW, no separators), "vendor" (string), ` +
	`"date" (YYYY-MM-DD) and "account" (bank account number as printed, or ""). ` +
	"Use null or an empty string for anything you cannot read."

// Extract implements DocumentExtractor. PDFs are reported as unsupported so
// a Fallback can take over.
func (o *OpenAI) Extract(ctx context.Context, kind Kind, doc Document) (Extracted, error) {
	if doc.IsPDF() || !strings.HasPrefix(doc.MIMEType, "image/") {
		return Extracted{}, fmt.Errorf("%w: vision extraction needs an image, got %s", ErrUnsupportedDocument, doc.MIMEType)
	}
	if err := o.limiter.wait(ctx); err != nil {
		return Extracted{}, err
	}

	dataURL := "data:" + doc.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(doc.Data)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          o.model,
		Temperature:    0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Document type: " + kind.Label()},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailAuto,
					}},
				},
			},
		},
	})
	if err != nil {
		return Extracted{}, fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Choices) != 1 {
		return Extracted{}, fmt.Errorf("unexpected number of choices: %d", len(resp.Choices))
	}

	o.logger.Debug("Vision extraction completed",
		"document", doc.Name,
		"kind", kind,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return parseVisionReply(resp.Choices[0].Message.Content)
}

func parseVisionReply(content string) (Extracted, error) {
	content = strings.TrimSpace(content)
	if strings.Contains(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var reply visionReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return Extracted{}, fmt.Errorf("invalid vision reply: %w", err)
	}

	out := Extracted{
		Account:   strings.TrimSpace(reply.Account),
		Vendor:    strings.TrimSpace(reply.Vendor),
		Amount:    reply.Amount.Decimal,
		HasAmount: reply.Amount.Valid,
	}
	if d, err := time.Parse(model.DateLayout, strings.TrimSpace(reply.Date)); err == nil {
		out.Date = d.Format(model.DateLayout)
	}
	return out, nil
}
