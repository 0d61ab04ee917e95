package config

import (
	"testing"
	"time"

	"trademate/internal/domain"
	"trademate/internal/fusion"
)

func clearFusionEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"FUSION_WEIGHT_TECHNICAL", "FUSION_WEIGHT_SENTIMENT", "FUSION_WEIGHT_POLICY",
		"FUSION_MAX_AGE_TECHNICAL_SECS", "FUSION_MAX_AGE_SENTIMENT_SECS", "FUSION_MAX_AGE_POLICY_SECS",
		"FUSION_DECAY", "FUSION_DOMINANCE_THRESHOLD",
		"FUSION_THRESHOLD_STRONG_BUY", "FUSION_THRESHOLD_BUY",
		"FUSION_THRESHOLD_SELL", "FUSION_THRESHOLD_STRONG_SELL",
		"FUSION_TIER_HIGH", "FUSION_TIER_MEDIUM",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("API_KEY", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("COINGECKO_POLL_SECS", "")
	t.Setenv("SENTIMENT_SUBREDDITS", "")
	t.Setenv("SENTIMENT_RSS_FEEDS", "")
	t.Setenv("TECHNICAL_REFRESH_SECS", "")
	clearFusionEnv(t)

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.CoinGeckoPollSecs != 60 {
		t.Fatalf("expected default poll secs 60, got %d", cfg.CoinGeckoPollSecs)
	}
	if len(cfg.Subreddits) == 0 || len(cfg.RSSFeeds) == 0 {
		t.Fatalf("expected default sentiment sources, got %+v / %+v", cfg.Subreddits, cfg.RSSFeeds)
	}
	if err := cfg.Fusion.Validate(); err != nil {
		t.Fatalf("default fusion policy must validate: %v", err)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("API_KEY", "secret")
	t.Setenv("COINGECKO_POLL_SECS", "120")
	t.Setenv("SENTIMENT_SUBREDDITS", "Bitcoin, solana ,")
	t.Setenv("TECHNICAL_REFRESH_SECS", "bad")
	clearFusionEnv(t)

	cfg := Load()
	if cfg.Port != "9000" || cfg.APIKey != "secret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CoinGeckoPollSecs != 120 {
		t.Fatalf("expected poll secs 120, got %d", cfg.CoinGeckoPollSecs)
	}
	if len(cfg.Subreddits) != 2 || cfg.Subreddits[0] != "Bitcoin" || cfg.Subreddits[1] != "solana" {
		t.Fatalf("unexpected subreddits: %+v", cfg.Subreddits)
	}
	if cfg.TechnicalRefreshSecs != 300 {
		t.Fatalf("invalid refresh secs should fall back to default, got %d", cfg.TechnicalRefreshSecs)
	}
}

func TestLoadFusionOverrides(t *testing.T) {
	clearFusionEnv(t)
	t.Setenv("FUSION_WEIGHT_SENTIMENT", "0.5")
	t.Setenv("FUSION_MAX_AGE_TECHNICAL_SECS", "900")
	t.Setenv("FUSION_DECAY", "exp")
	t.Setenv("FUSION_DOMINANCE_THRESHOLD", "0.7")

	cfg := Load()
	if got := cfg.Fusion.BaseWeights[domain.SourceSentiment]; got != 0.5 {
		t.Fatalf("expected sentiment weight 0.5, got %v", got)
	}
	if got := cfg.Fusion.MaxAge[domain.SourceTechnical]; got != 15*time.Minute {
		t.Fatalf("expected technical max age 15m, got %v", got)
	}
	if cfg.Fusion.Decay != fusion.DecayExponential {
		t.Fatalf("expected exponential decay, got %q", cfg.Fusion.Decay)
	}
	if cfg.Fusion.DominanceThreshold != 0.7 {
		t.Fatalf("expected dominance threshold 0.7, got %v", cfg.Fusion.DominanceThreshold)
	}
}

func TestLoadInvalidFusionOverridesRevertToDefaults(t *testing.T) {
	clearFusionEnv(t)
	t.Setenv("FUSION_THRESHOLD_BUY", "0.9")
	t.Setenv("FUSION_THRESHOLD_STRONG_BUY", "0.3")

	cfg := Load()
	defaults := fusion.DefaultPolicy()
	if cfg.Fusion.Thresholds.Buy != defaults.Thresholds.Buy {
		t.Fatalf("inverted thresholds should revert to defaults, got %+v", cfg.Fusion.Thresholds)
	}
	if err := cfg.Fusion.Validate(); err != nil {
		t.Fatalf("loaded policy must always validate: %v", err)
	}
}
