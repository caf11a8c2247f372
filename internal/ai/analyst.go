package ai

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/bitly/go-simplejson"

	"quant_terminal/internal/analysis"
	"quant_terminal/internal/models"
)

const (
	DefaultAnalysisModel = "gemini-3-pro-preview"
	DefaultChatModel     = "gemini-3-flash-preview"

	analysisThinkingBudget = 8000
)

var ErrEmptyHistory = errors.New("price history is empty")

// AnalysisInput is everything one analysis request is built from
type AnalysisInput struct {
	Symbol     string
	History    []models.PricePoint
	News       []models.NewsItem
	Indicators analysis.Snapshot
	Horizon    models.Horizon
	Insight    string
}

// Analyst turns market context into structured analysis, price syncs and chat replies
type Analyst struct {
	gen           Generator
	analysisModel string
	chatModel     string
	retry         RetryPolicy
	chatGrounded  bool
	now           func() time.Time
}

type AnalystConfig struct {
	AnalysisModel string
	ChatModel     string
	Retry         RetryPolicy
	ChatGrounded  bool
}

func NewAnalyst(gen Generator, cfg AnalystConfig) *Analyst {
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = DefaultAnalysisModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Analyst{
		gen:           gen,
		analysisModel: cfg.AnalysisModel,
		chatModel:     cfg.ChatModel,
		retry:         cfg.Retry,
		chatGrounded:  cfg.ChatGrounded,
		now:           time.Now,
	}
}

// AnalyzeMarket requests a grounded analysis, falling back to a plain one when
// grounding is unavailable. A payload that does not parse yields a default
// result with Degraded set instead of an error.
func (a *Analyst) AnalyzeMarket(ctx context.Context, in AnalysisInput) (*models.AnalysisResult, error) {
	if len(in.History) == 0 {
		return nil, ErrEmptyHistory
	}
	if in.Horizon == "" {
		in.Horizon = models.HorizonDay
	}
	referencePrice := in.History[len(in.History)-1].Close

	resp, grounded, err := withGroundingFallback(ctx, a.retry, func(ctx context.Context, grounded bool) (*Response, error) {
		return a.gen.Generate(ctx, Request{
			Model:          a.analysisModel,
			Prompt:         buildAnalysisPrompt(in, grounded),
			Grounded:       grounded,
			JSON:           true,
			Schema:         analysisSchema(),
			ThinkingBudget: analysisThinkingBudget,
		})
	})
	if err != nil {
		return nil, err
	}

	result, ok := parseAnalysis(resp.Text)
	if !ok {
		log.Printf("⚠️ malformed analysis payload for %s, returning degraded result", in.Symbol)
		result = &models.AnalysisResult{Degraded: true}
	}
	result.Symbol = in.Symbol
	result.Horizon = in.Horizon
	result.ReferencePrice = referencePrice
	result.Sources = resp.Sources
	result.Grounded = grounded
	result.CreatedAt = a.now()
	return result, nil
}

func parseAnalysis(text string) (*models.AnalysisResult, bool) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, false
	}
	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false
	}
	if result.Trend == "" && result.Recommendation == "" && result.Reasoning == "" {
		return nil, false
	}
	return &result, true
}

// extractJSON trims code fences or chatter around the outermost JSON object
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

// SyncMarketPrices asks the model for current USD prices of symbols. Unparseable
// answers and non-positive values are dropped, so the map may be empty.
func (a *Analyst) SyncMarketPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	resp, _, err := withGroundingFallback(ctx, a.retry, func(ctx context.Context, grounded bool) (*Response, error) {
		return a.gen.Generate(ctx, Request{
			Model:    a.chatModel,
			Prompt:   buildSyncPrompt(symbols, grounded),
			Grounded: grounded,
			JSON:     true,
		})
	})
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64)
	raw := extractJSON(resp.Text)
	if raw == "" {
		return prices, nil
	}
	js, err := simplejson.NewJson([]byte(raw))
	if err != nil {
		log.Printf("⚠️ malformed price sync payload: %v", err)
		return prices, nil
	}
	for _, sym := range symbols {
		if p, err := js.Get(sym).Float64(); err == nil && p > 0 {
			prices[sym] = p
		}
	}
	return prices, nil
}

// Chat is a single-turn exchange. Only rate limits are retried.
func (a *Analyst) Chat(ctx context.Context, message, marketContext string) (string, error) {
	resp, err := withRetry(ctx, a.retry, func(ctx context.Context) (*Response, error) {
		return a.gen.Generate(ctx, Request{
			Model:             a.chatModel,
			Prompt:            buildChatPrompt(message, marketContext),
			SystemInstruction: chatSystemInstruction,
			Grounded:          a.chatGrounded,
		})
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return chatFallbackReply, nil
	}
	return resp.Text, nil
}
