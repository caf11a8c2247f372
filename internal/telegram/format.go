package telegram

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"quant_terminal/internal/ai"
	"quant_terminal/internal/engine"
	"quant_terminal/internal/exchange"
	"quant_terminal/internal/models"
)

func sentimentIcon(s models.Sentiment) string {
	switch s {
	case models.Bullish:
		return "🟢"
	case models.Bearish:
		return "🔴"
	default:
		return "⚪"
	}
}

func formatState(st engine.State, uptime time.Duration) string {
	var sb strings.Builder
	sb.WriteString("📈 *Quant Terminal*\n\n")
	fmt.Fprintf(&sb, "Symbol: *%s* (%s)\n", st.Selected, st.Horizon)
	if st.Price > 0 {
		fmt.Fprintf(&sb, "Price: $%.2f\n", st.Price)
	}
	fmt.Fprintf(&sb, "Balance: $%s\n", st.Balance.StringFixed(2))
	if !st.Exposure.NetQuantity.IsZero() {
		fmt.Fprintf(&sb, "Position: %s (P&L $%s)\n", st.Exposure.NetQuantity.String(), st.Exposure.UnrealizedPL.StringFixed(2))
	}
	fmt.Fprintf(&sb, "API: %s\n", st.APIStatus)
	fmt.Fprintf(&sb, "Uptime: %s\n\n", formatUptime(uptime))

	sb.WriteString("*Scanner*\n")
	for _, s := range st.Signals {
		if s.IsSyncing {
			fmt.Fprintf(&sb, "⏳ %s syncing\n", s.Symbol)
			continue
		}
		pick := ""
		if s.AIPick {
			pick = " ⭐"
		}
		fmt.Fprintf(&sb, "%s %s $%.2f (%+.3f%%) %s%s\n",
			sentimentIcon(s.Sentiment), s.Symbol, s.Price, s.Change, strings.Repeat("▮", s.Strength), pick)
	}
	return sb.String()
}

func formatAnalysis(a *models.AnalysisResult) string {
	if a == nil {
		return "No analysis available"
	}
	if a.Degraded {
		return fmt.Sprintf("⚠️ *%s*: the provider returned an unreadable analysis (reference $%.2f)", a.Symbol, a.ReferencePrice)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🤖 *%s %s* (%s)\n\n", a.Symbol, a.Recommendation, a.Horizon)
	fmt.Fprintf(&sb, "Trend: %s | Confidence: %.0f%% | Alpha: %.1f\n", a.Trend, a.Confidence, a.AlphaScore)
	fmt.Fprintf(&sb, "Entry: $%.2f\nTarget: $%.2f\nStop: $%.2f\n", a.EntryPrice, a.TargetPrice, a.StopLoss)
	fmt.Fprintf(&sb, "Backtest: win %.1f%% over %.0f trades, PF %.2f, exp. %.2f%%\n",
		a.Backtest.WinRate, a.Backtest.TotalTrades, a.Backtest.ProfitFactor, a.Backtest.ExpectedReturn)
	if a.SuggestedHorizon != "" && a.SuggestedHorizon != string(a.Horizon) {
		fmt.Fprintf(&sb, "Suggested horizon: %s\n", a.SuggestedHorizon)
	}
	fmt.Fprintf(&sb, "\n%s\n", a.Reasoning)
	if len(a.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for _, s := range a.Sources {
			fmt.Fprintf(&sb, "• %s\n", s.URI)
		}
	}
	if !a.Grounded {
		sb.WriteString("\n_without web search_")
	}
	return sb.String()
}

func formatTrade(t *models.Trade) string {
	icon := "🟢"
	if t.Side == models.Sell {
		icon = "🔴"
	}
	return fmt.Sprintf("%s *%s %s*\nQty: %s @ $%s\nNotional: $%s",
		icon, t.Side, t.Symbol, t.Quantity.String(), t.Price.StringFixed(2), t.Notional().StringFixed(2))
}

func formatTrades(trades []*models.Trade, limit int) string {
	if len(trades) == 0 {
		return "📋 No trades yet"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *Trades* (%d)\n\n", len(trades))
	for i, t := range trades {
		if i >= limit {
			fmt.Fprintf(&sb, "… and %d more", len(trades)-limit)
			break
		}
		fmt.Fprintf(&sb, "%s %s %s @ $%s\n", t.Time.Format("15:04:05"), t.Side, t.Quantity.String()+" "+t.Symbol, t.Price.StringFixed(2))
	}
	return sb.String()
}

func formatPrices(prices map[string]float64, message string) string {
	if len(prices) == 0 {
		return "⚠️ No prices returned"
	}
	symbols := make([]string, 0, len(prices))
	for s := range prices {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var sb strings.Builder
	sb.WriteString("🔄 Synced prices\n")
	for _, s := range symbols {
		fmt.Fprintf(&sb, "%s: $%.2f\n", s, prices[s])
	}
	if message != "" {
		sb.WriteString("\n✅ " + message)
	}
	return sb.String()
}

func describeError(err error) string {
	switch {
	case errors.Is(err, engine.ErrBusy):
		return "⏳ Already running, please wait"
	case errors.Is(err, engine.ErrNoHistory):
		return "⏳ Price history is still loading"
	case errors.Is(err, engine.ErrStaleResult):
		return "⚠️ Selection changed, result discarded"
	case errors.Is(err, exchange.ErrInsufficientBalance):
		return "❌ Insufficient balance"
	case errors.Is(err, engine.ErrInvalidQuantity), errors.Is(err, exchange.ErrInvalidOrder):
		return "❌ Invalid order: " + err.Error()
	case ai.KindOf(err) == ai.KindRateLimited:
		return "🚦 Rate limited by the AI provider, try again shortly"
	}
	return "❌ " + err.Error()
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
