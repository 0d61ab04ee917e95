package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"

	tele "gopkg.in/telebot.v3"
)

// DecisionEngine is the slice of the fusion engine the bot needs.
type DecisionEngine interface {
	RequestDecision(ctx context.Context, symbol string) (*domain.FusedDecision, error)
	Store() *fusion.SnapshotStore
}

// PriceReader provides the current market snapshot for a symbol.
type PriceReader interface {
	GetCurrentPrice(ctx context.Context, symbol string) (*domain.PriceSnapshot, error)
	GetCurrentPrices(ctx context.Context) ([]*domain.PriceSnapshot, error)
}

func StartTelegramBot(engine DecisionEngine, market PriceReader) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/start", func(c tele.Context) error {
		return c.Send(helpMessage())
	})

	b.Handle("/help", func(c tele.Context) error {
		return c.Send(helpMessage())
	})

	b.Handle("/trade", func(c tele.Context) error {
		symbol, errMsg := parseSymbolArg(c.Args(), "/trade BTC")
		if errMsg != "" {
			return c.Send(errMsg)
		}
		return c.Send(tradeMessage(context.Background(), engine, symbol))
	})

	b.Handle("/sentiment", func(c tele.Context) error {
		symbol, errMsg := parseSymbolArg(c.Args(), "/sentiment ETH")
		if errMsg != "" {
			return c.Send(errMsg)
		}
		return c.Send(sentimentMessage(engine.Store(), symbol, time.Now()))
	})

	b.Handle("/market", func(c tele.Context) error {
		return c.Send(marketMessage(context.Background(), market))
	})

	b.Handle("/price", func(c tele.Context) error {
		symbol, errMsg := parseSymbolArg(c.Args(), "/price BTC")
		if errMsg != "" {
			return c.Send(errMsg)
		}
		return c.Send(priceMessage(context.Background(), market, symbol))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func helpMessage() string {
	return strings.Join([]string{
		"Commands:",
		"/trade SYMBOL - fused trade recommendation with rationale",
		"/sentiment SYMBOL - latest aggregated sentiment",
		"/market - current prices for all tracked coins",
		"/price SYMBOL - current price snapshot",
		"",
		"Supported: " + strings.Join(domain.SupportedSymbols, ", "),
	}, "\n")
}

func parseSymbolArg(args []string, usage string) (string, string) {
	if len(args) == 0 {
		return "", fmt.Sprintf("Usage: %s\nSupported: %s", usage, strings.Join(domain.SupportedSymbols, ", "))
	}
	symbol := strings.ToUpper(args[0])
	if _, ok := domain.CoinGeckoID[symbol]; !ok {
		return "", fmt.Sprintf("Unknown symbol: %s\nSupported: %s", symbol, strings.Join(domain.SupportedSymbols, ", "))
	}
	return symbol, ""
}

func tradeMessage(ctx context.Context, engine DecisionEngine, symbol string) string {
	decision, err := engine.RequestDecision(ctx, symbol)
	if err != nil {
		var insufficient *fusion.InsufficientSignalError
		if errors.As(err, &insufficient) {
			var sb strings.Builder
			fmt.Fprintf(&sb, "Not enough signal data for %s yet.\n", symbol)
			for _, reason := range insufficient.Excluded {
				sb.WriteString("- " + reason + "\n")
			}
			sb.WriteString("Try again in a few minutes.")
			return sb.String()
		}
		return fmt.Sprintf("Error computing recommendation for %s: %v", symbol, err)
	}
	return fusion.FormatDecision(decision)
}

func sentimentMessage(store *fusion.SnapshotStore, symbol string, now time.Time) string {
	sig, ok := store.Latest(symbol, domain.SourceSentiment)
	if !ok {
		return fmt.Sprintf("No sentiment data for %s yet. Try again in a few minutes.", symbol)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Sentiment for %s\n", symbol)
	fmt.Fprintf(&sb, "Score: %+.2f (%.0f%% confidence)\n", sig.Score, sig.Confidence*100)
	fmt.Fprintf(&sb, "As of: %s ago\n", now.Sub(sig.Timestamp).Round(time.Minute))
	if len(sig.Rationale) > 0 {
		sb.WriteString("Sources:\n")
		for _, line := range sig.Rationale {
			sb.WriteString("- " + line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func marketMessage(ctx context.Context, market PriceReader) string {
	snapshots, err := market.GetCurrentPrices(ctx)
	if err != nil {
		return fmt.Sprintf("Error fetching market data: %v", err)
	}
	bySymbol := make(map[string]*domain.PriceSnapshot, len(snapshots))
	for _, snap := range snapshots {
		if snap != nil {
			bySymbol[snap.Symbol] = snap
		}
	}
	var sb strings.Builder
	sb.WriteString("Market overview\n")
	for _, symbol := range domain.SupportedSymbols {
		snap, ok := bySymbol[symbol]
		if !ok {
			fmt.Fprintf(&sb, "%s: no data\n", symbol)
			continue
		}
		fmt.Fprintf(&sb, "%s: $%.2f (%+.2f%%)\n", symbol, snap.PriceUSD, snap.Change24hPct)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func priceMessage(ctx context.Context, market PriceReader, symbol string) string {
	snapshot, err := market.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("Error fetching price for %s: %v", symbol, err)
	}
	return fmt.Sprintf(
		"%s\nPrice: $%.2f\n24h Change: %.2f%%\n24h Volume: $%.0f",
		symbol, snapshot.PriceUSD, snapshot.Change24hPct, snapshot.Volume24h,
	)
}
