package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/natefinch/lumberjack.v2"

	"quant_terminal/config"
	"quant_terminal/internal/ai"
	"quant_terminal/internal/engine"
	"quant_terminal/internal/exchange"
	"quant_terminal/internal/market"
	"quant_terminal/internal/models"
	"quant_terminal/internal/telegram"
	"quant_terminal/internal/web"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("🚀 Starting Quant Terminal...")

	cfg := config.Load()

	if cfg.LogFile != "" {
		logWriter := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		}
		defer logWriter.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, logWriter))
	}

	decimal.MarshalJSONWithoutQuotes = true

	refs := market.DefaultReferencePrices()
	for sym, p := range cfg.ReferencePrices {
		refs[sym] = p
	}

	var quotes exchange.QuoteSource
	switch cfg.PriceSource {
	case config.SourceBinance:
		quotes = exchange.NewBinanceQuoter(cfg.BinanceAPIKey, cfg.BinanceSecretKey)
	default:
		quotes = exchange.NewCoinGeckoQuoter(cfg.CoinGeckoURL)
	}
	feed := market.NewLiveFeed(quotes, refs, nil)
	generator := market.NewGenerator(refs, nil)

	if cfg.GeminiAPIKey == "" {
		log.Println("⚠️ GEMINI_API_KEY is not set, analysis, sync and chat will fail")
	}
	retry := ai.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.RetryAttempts
	retry.BaseDelay = cfg.RetryBaseDelay
	analyst := ai.NewAnalyst(ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL), ai.AnalystConfig{
		AnalysisModel: cfg.AnalysisModel,
		ChatModel:     cfg.ChatModel,
		Retry:         retry,
		ChatGrounded:  cfg.ChatGrounded,
	})

	account := exchange.NewPaperAccount(decimal.NewFromFloat(cfg.InitialBalance))

	tradingEngine := engine.NewTradingEngine(analyst, feed, generator, account, engine.Options{
		Symbols:       cfg.Symbols,
		HistoryLength: cfg.HistoryLength,
		PollInterval:  cfg.PollInterval,
		News:          cfg.News,
	})

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		b, err := telegram.NewBot(cfg.TelegramToken, cfg.AuthorizedUserID, tradingEngine)
		if err != nil {
			log.Printf("❌ Failed to create Telegram bot, continuing without it: %v", err)
		} else {
			bot = b
		}
	}

	webServer := web.NewServer(tradingEngine, web.NewHub(), cfg.Port, web.Info{
		QuoteSource:     quotes.Name(),
		AIConfigured:    cfg.GeminiAPIKey != "",
		TelegramEnabled: bot != nil,
	})

	tradingEngine.SetCallbacks(
		func(t *models.Trade) {
			webServer.PublishTrade(t)
			if bot != nil {
				bot.SendTrade(t)
			}
		},
		func(a *models.AnalysisResult) {
			webServer.PublishAnalysis(a)
			if bot != nil {
				bot.SendAnalysis(a)
			}
		},
		webServer.Publish,
	)

	webServer.Start()
	if bot != nil {
		go bot.Start()
	}
	if err := tradingEngine.Start(); err != nil {
		log.Fatalf("❌ Failed to start trading terminal: %v", err)
	}

	log.Println("✅ All systems initialized")
	log.Printf("🌐 Web dashboard: http://localhost:%s\n", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down...")
	tradingEngine.Stop()
	if bot != nil {
		bot.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webServer.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Web server shutdown: %v", err)
	}

	log.Println("👋 Goodbye!")
}
