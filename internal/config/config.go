package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"
)

type Config struct {
	Port             string
	APIKey           string
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string

	CoinGeckoPollSecs int

	OpenAIAPIKey string
	OpenAIModel  string

	Subreddits []string
	RSSFeeds   []string

	TechnicalRefreshSecs int
	SentimentRefreshSecs int
	PolicyRefreshSecs    int

	Fusion fusion.WeightingPolicy
}

func Load() *Config {
	cfg := &Config{
		Port:             os.Getenv("PORT"),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.APIKey == "" {
		log.Println("Warning: API_KEY not set, API auth disabled")
	}
	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.CoinGeckoPollSecs = envInt("COINGECKO_POLL_SECS", 60)

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if cfg.OpenAIAPIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set, sentiment scoring falls back to heuristics")
	}
	cfg.OpenAIModel = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	cfg.Subreddits = envList("SENTIMENT_SUBREDDITS", []string{"CryptoCurrency", "Bitcoin", "ethereum"})
	cfg.RSSFeeds = envList("SENTIMENT_RSS_FEEDS", []string{
		"https://www.coindesk.com/arc/outboundfeeds/rss/",
		"https://cointelegraph.com/rss",
	})

	cfg.TechnicalRefreshSecs = envInt("TECHNICAL_REFRESH_SECS", 300)
	cfg.SentimentRefreshSecs = envInt("SENTIMENT_REFRESH_SECS", 900)
	cfg.PolicyRefreshSecs = envInt("POLICY_REFRESH_SECS", 600)

	cfg.Fusion = loadFusionPolicy()

	return cfg
}

// loadFusionPolicy starts from the default weighting policy and applies
// any FUSION_* overrides. Invalid overrides are logged and ignored so a
// typo in one variable never takes the engine down.
func loadFusionPolicy() fusion.WeightingPolicy {
	policy := fusion.DefaultPolicy()

	policy.BaseWeights[domain.SourceTechnical] = envFloat("FUSION_WEIGHT_TECHNICAL", policy.BaseWeights[domain.SourceTechnical])
	policy.BaseWeights[domain.SourceSentiment] = envFloat("FUSION_WEIGHT_SENTIMENT", policy.BaseWeights[domain.SourceSentiment])
	policy.BaseWeights[domain.SourcePolicy] = envFloat("FUSION_WEIGHT_POLICY", policy.BaseWeights[domain.SourcePolicy])

	policy.MaxAge[domain.SourceTechnical] = envDuration("FUSION_MAX_AGE_TECHNICAL_SECS", policy.MaxAge[domain.SourceTechnical])
	policy.MaxAge[domain.SourceSentiment] = envDuration("FUSION_MAX_AGE_SENTIMENT_SECS", policy.MaxAge[domain.SourceSentiment])
	policy.MaxAge[domain.SourcePolicy] = envDuration("FUSION_MAX_AGE_POLICY_SECS", policy.MaxAge[domain.SourcePolicy])

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("FUSION_DECAY"))); v != "" {
		switch fusion.DecayShape(v) {
		case fusion.DecayLinear, fusion.DecayExponential:
			policy.Decay = fusion.DecayShape(v)
		default:
			log.Printf("Warning: unsupported FUSION_DECAY=%q, keeping %q", v, policy.Decay)
		}
	}

	policy.DominanceThreshold = envFloat("FUSION_DOMINANCE_THRESHOLD", policy.DominanceThreshold)

	policy.Thresholds.StrongBuy = envFloat("FUSION_THRESHOLD_STRONG_BUY", policy.Thresholds.StrongBuy)
	policy.Thresholds.Buy = envFloat("FUSION_THRESHOLD_BUY", policy.Thresholds.Buy)
	policy.Thresholds.Sell = envFloat("FUSION_THRESHOLD_SELL", policy.Thresholds.Sell)
	policy.Thresholds.StrongSell = envFloat("FUSION_THRESHOLD_STRONG_SELL", policy.Thresholds.StrongSell)
	policy.Thresholds.TierHigh = envFloat("FUSION_TIER_HIGH", policy.Thresholds.TierHigh)
	policy.Thresholds.TierMedium = envFloat("FUSION_TIER_MEDIUM", policy.Thresholds.TierMedium)

	if err := policy.Validate(); err != nil {
		log.Printf("Warning: FUSION_* overrides produced an invalid policy (%v), reverting to defaults", err)
		return fusion.DefaultPolicy()
	}
	return policy
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("Warning: invalid %s=%q, using %d", key, v, def)
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid %s=%q, using %v", key, v, def)
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		log.Printf("Warning: invalid %s=%q, using %s", key, v, def)
	}
	return def
}

func envList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
