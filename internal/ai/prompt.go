package ai

import (
	"fmt"
	"strings"

	"quant_terminal/internal/models"
)

const (
	chatSystemInstruction = "You are an expert financial analyst. Provide professional, concise, and data-driven answers based on the provided market context."
	chatFallbackReply     = "I'm sorry, I couldn't generate a response."

	// candles quoted verbatim in the analysis prompt
	promptCandles = 20
)

func number() map[string]any { return map[string]any{"type": "NUMBER"} }
func text() map[string]any   { return map[string]any{"type": "STRING"} }

// analysisSchema mirrors models.AnalysisResult
func analysisSchema() map[string]any {
	return map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"actualPrice":    number(),
			"referencePrice": number(),
			"sentiment":      text(),
			"trend": map[string]any{
				"type": "STRING",
				"enum": []string{"BULLISH", "BEARISH", "SIDEWAYS"},
			},
			"keyLevels":        map[string]any{"type": "ARRAY", "items": number()},
			"entryPrice":       number(),
			"targetPrice":      number(),
			"stopLoss":         number(),
			"recommendation":   text(),
			"reasoning":        text(),
			"confidence":       number(),
			"alphaScore":       number(),
			"suggestedHorizon": text(),
			"backtest": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"winRate":        number(),
					"totalTrades":    number(),
					"profitFactor":   number(),
					"expectedReturn": number(),
				},
				"required": []string{"winRate", "totalTrades", "profitFactor", "expectedReturn"},
			},
		},
		"required": []string{
			"actualPrice", "referencePrice", "sentiment", "trend", "keyLevels",
			"recommendation", "reasoning", "entryPrice", "targetPrice", "stopLoss",
			"confidence", "alphaScore", "suggestedHorizon", "backtest",
		},
	}
}

func horizonBrief(h models.Horizon) string {
	switch h {
	case models.HorizonScalp:
		return "SCALP (minutes to an hour, tight stops)"
	case models.HorizonSwing:
		return "SWING (several days to weeks, wider stops)"
	default:
		return "DAY (intraday, flat by the close)"
	}
}

func formatCandles(history []models.PricePoint) string {
	if len(history) > promptCandles {
		history = history[len(history)-promptCandles:]
	}
	var sb strings.Builder
	for i, p := range history {
		sb.WriteString(fmt.Sprintf("%d. %s O:%.4f H:%.4f L:%.4f C:%.4f V:%.0f\n",
			i+1, p.Label, p.Open, p.High, p.Low, p.Close, p.Volume))
	}
	return sb.String()
}

func buildAnalysisPrompt(in AnalysisInput, grounded bool) string {
	price := in.History[len(in.History)-1].Close

	research := "Analyze the market situation based on the data provided below."
	if grounded {
		research = "Use Google Search to research the latest financial news, price action and analyst forecasts for this instrument."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "The current price of %s is $%.2f.\n", in.Symbol, price)
	sb.WriteString(research + "\n")
	fmt.Fprintf(&sb, "Based on your findings, derive a target price (T/P) and a stop loss (S/L) measured from the chart price $%.2f.\n", price)
	fmt.Fprintf(&sb, "Trading horizon: %s.\n\n", horizonBrief(in.Horizon))

	sb.WriteString("**INDICATORS:**\n")
	if in.Indicators.RSIReady {
		fmt.Fprintf(&sb, "- RSI(14): %.2f\n", in.Indicators.RSI)
	}
	fmt.Fprintf(&sb, "- EMA 20: %.4f\n", in.Indicators.EMA20)
	fmt.Fprintf(&sb, "- MACD: %.4f (Signal: %.4f)\n", in.Indicators.MACD, in.Indicators.Signal)
	if in.Indicators.BandsReady {
		fmt.Fprintf(&sb, "- Bollinger(20, 2): %.4f / %.4f\n", in.Indicators.Upper, in.Indicators.Lower)
	}

	fmt.Fprintf(&sb, "\n**RECENT ACTION (Last %d Candles):**\n%s", promptCandles, formatCandles(in.History))

	if len(in.News) > 0 {
		sb.WriteString("\n**NEWS:**\n")
		for _, n := range in.News {
			fmt.Fprintf(&sb, "- [%s, %s] %s\n", n.Source, n.Time, n.Headline)
		}
	}

	if insight := strings.TrimSpace(in.Insight); insight != "" {
		fmt.Fprintf(&sb, "\n**TRADER NOTES:**\n%s\n", insight)
	}
	return sb.String()
}

func buildSyncPrompt(symbols []string, grounded bool) string {
	how := ""
	if grounded {
		how = " using Google Search"
	}
	return fmt.Sprintf(`Look up the latest market price in USD of the following instruments%s and return them as a JSON object.
Symbols: %s
Rules:
- Keys must match the symbol names exactly.
- Values must be plain numbers (float).`, how, strings.Join(symbols, ", "))
}

func buildChatPrompt(message, context string) string {
	return fmt.Sprintf("Market Context: %s\n\nUser Question: %s", context, message)
}
