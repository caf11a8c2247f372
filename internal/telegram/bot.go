package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v3"

	"quant_terminal/internal/engine"
	"quant_terminal/internal/models"
)

type Bot struct {
	bot          *tele.Bot
	engine       *engine.TradingEngine
	authorizedID int64
	lastChat     atomic.Int64
	startTime    time.Time
}

func NewBot(token string, authorizedID int64, engine *engine.TradingEngine) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.Printf("❌ Telegram handler error: %v", err)
		},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		bot:          b,
		engine:       engine,
		authorizedID: authorizedID,
		startTime:    time.Now(),
	}

	bot.setupHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	log.Println("📱 Telegram bot started")
	b.bot.Start()
}

func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) setupHandlers() {
	b.bot.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if b.authorizedID != 0 && (c.Sender() == nil || c.Sender().ID != b.authorizedID) {
				return c.Send("⛔ Unauthorized")
			}
			if chat := c.Chat(); chat != nil {
				b.lastChat.Store(chat.ID)
			}
			return next(c)
		}
	})

	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/symbol", b.handleSymbol)
	b.bot.Handle("/horizon", b.handleHorizon)
	b.bot.Handle("/analyze", b.handleAnalyze)
	b.bot.Handle("/sync", b.handleSync)
	b.bot.Handle("/buy", b.handleTrade(models.Buy))
	b.bot.Handle("/sell", b.handleTrade(models.Sell))
	b.bot.Handle("/trades", b.handleTrades)
	b.bot.Handle(tele.OnText, b.handleChat)

	b.bot.Handle(&btnAnalyze, b.handleAnalyze)
	b.bot.Handle(&btnSync, b.handleSync)
	b.bot.Handle(&btnTrades, b.handleTrades)
	b.bot.Handle(&btnRefresh, b.handleStart)
}

var (
	btnAnalyze = tele.Btn{Text: "🤖 Analyze", Unique: "analyze"}
	btnSync    = tele.Btn{Text: "🔄 Sync prices", Unique: "sync"}
	btnTrades  = tele.Btn{Text: "📋 Trades", Unique: "trades"}
	btnRefresh = tele.Btn{Text: "📊 Refresh", Unique: "refresh"}
)

func (b *Bot) handleStart(c tele.Context) error {
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(btnAnalyze, btnSync),
		menu.Row(btnTrades, btnRefresh),
	)
	return c.Send(formatState(b.engine.State(), time.Since(b.startTime)), menu, tele.ModeMarkdown)
}

func (b *Bot) handleSymbol(c tele.Context) error {
	if c.Message().Payload == "" {
		return c.Send("Usage: /symbol NVDA\nTracked: " + strings.Join(b.engine.Symbols(), ", "))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.engine.SelectSymbol(ctx, c.Message().Payload); err != nil {
		return c.Send("❌ " + err.Error())
	}
	return b.handleStart(c)
}

func (b *Bot) handleHorizon(c tele.Context) error {
	if err := b.engine.SetHorizon(c.Message().Payload); err != nil {
		return c.Send("Usage: /horizon SCALP|DAY|SWING")
	}
	return c.Send("✅ Horizon set to " + strings.ToUpper(c.Message().Payload))
}

func (b *Bot) handleAnalyze(c tele.Context) error {
	_ = c.Notify(tele.Typing)
	result, err := b.engine.Analyze(context.Background())
	if err != nil {
		return c.Send(describeError(err))
	}
	// the analysis notice is pushed by the engine callback when a chat is known
	if b.recipient() == nil {
		return c.Send(formatAnalysis(result), tele.ModeMarkdown)
	}
	return nil
}

func (b *Bot) handleSync(c tele.Context) error {
	prices, err := b.engine.SyncNow(context.Background())
	if err != nil && !errors.Is(err, engine.ErrStaleResult) {
		return c.Send(describeError(err))
	}
	return c.Send(formatPrices(prices, b.engine.State().SyncMessage))
}

func (b *Bot) handleTrade(side models.Side) tele.HandlerFunc {
	return func(c tele.Context) error {
		qty, err := decimal.NewFromString(strings.TrimSpace(c.Message().Payload))
		if err != nil {
			return c.Send(fmt.Sprintf("Usage: /%s QUANTITY", strings.ToLower(string(side))))
		}
		if _, err := b.engine.ExecuteTrade(side, qty); err != nil {
			return c.Send(describeError(err))
		}
		return nil
	}
}

func (b *Bot) handleTrades(c tele.Context) error {
	return c.Send(formatTrades(b.engine.Trades(), 10), tele.ModeMarkdown)
}

func (b *Bot) handleChat(c tele.Context) error {
	_ = c.Notify(tele.Typing)
	reply, err := b.engine.Chat(context.Background(), c.Text())
	if err != nil {
		return c.Send(describeError(err))
	}
	return c.Send(reply)
}

func (b *Bot) recipient() tele.Recipient {
	if b.authorizedID != 0 {
		return &tele.User{ID: b.authorizedID}
	}
	if id := b.lastChat.Load(); id != 0 {
		return tele.ChatID(id)
	}
	return nil
}

func (b *Bot) SendTrade(trade *models.Trade) {
	if to := b.recipient(); to != nil {
		if _, err := b.bot.Send(to, formatTrade(trade), tele.ModeMarkdown); err != nil {
			log.Printf("⚠️ Telegram notify failed: %v", err)
		}
	}
}

func (b *Bot) SendAnalysis(result *models.AnalysisResult) {
	if to := b.recipient(); to != nil {
		if _, err := b.bot.Send(to, formatAnalysis(result), tele.ModeMarkdown); err != nil {
			log.Printf("⚠️ Telegram notify failed: %v", err)
		}
	}
}
