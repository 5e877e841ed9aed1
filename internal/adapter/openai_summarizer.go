package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"papertrade/internal/domain"
)

const defaultSummaryPrompt = `You summarise paper-trading portfolios for the account holder.
Write at most three sentences in plain English. Mention the cash balance, the best and
worst tokens by realized P&L, and the overall realized result. Do not give financial advice.`

// OpenAIConfig configures the OpenAI summarizer
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // optional, e.g. a compatible gateway
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float32
	Timeout      time.Duration
}

// OpenAISummarizer implements domain.SummaryService with a chat completion
type OpenAISummarizer struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAISummarizer creates a summarizer. It returns an error when no API key is set.
func NewOpenAISummarizer(config OpenAIConfig) (*OpenAISummarizer, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSummaryPrompt
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 200
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}

	return &OpenAISummarizer{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// reportPrompt is the compact report the model sees
type reportPrompt struct {
	Balance          float64       `json:"cash_balance"`
	TotalRealizedPnL float64       `json:"total_realized_pnl"`
	Tokens           []tokenPrompt `json:"tokens"`
}

type tokenPrompt struct {
	Symbol       string  `json:"symbol"`
	BuyAmount    float64 `json:"bought"`
	SellAmount   float64 `json:"sold"`
	AvgBuyPrice  float64 `json:"avg_buy_price"`
	AvgSellPrice float64 `json:"avg_sell_price"`
	RealizedPnL  float64 `json:"realized_pnl"`
	Trades       int     `json:"trades"`
}

func buildReportPrompt(report *domain.PnLReport) ([]byte, error) {
	p := reportPrompt{
		Balance:          report.Balance,
		TotalRealizedPnL: report.TotalRealizedPnL,
		Tokens:           make([]tokenPrompt, 0, len(report.Tokens)),
	}
	for _, t := range report.Tokens {
		symbol := t.TokenSymbol
		if symbol == "" {
			symbol = t.TokenAddress
		}
		p.Tokens = append(p.Tokens, tokenPrompt{
			Symbol:       symbol,
			BuyAmount:    t.BuyAmount,
			SellAmount:   t.SellAmount,
			AvgBuyPrice:  t.AvgBuyPrice,
			AvgSellPrice: t.AvgSellPrice,
			RealizedPnL:  t.RealizedPnL,
			Trades:       t.TradeCount,
		})
	}
	return json.Marshal(p)
}

// Summarize asks the model for a short description of report
func (s *OpenAISummarizer) Summarize(ctx context.Context, report *domain.PnLReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("nil report")
	}

	payload, err := buildReportPrompt(report)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.config.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
