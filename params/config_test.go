package params

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Feed.Mode != "ws" {
		t.Errorf("Feed.Mode = %q, want ws", cfg.Feed.Mode)
	}
	if cfg.Node.APIAddr != ":8080" {
		t.Errorf("Node.APIAddr = %q, want :8080", cfg.Node.APIAddr)
	}
	if cfg.Policy.Enabled {
		t.Error("Policy.Enabled = true, want false by default")
	}
	if cfg.Policy.QuoteSize != 40 || cfg.Policy.SkewFactor != 0.25 {
		t.Errorf("policy defaults = %+v", cfg.Policy)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("TRADER_ID", "42")
	t.Setenv("FEED_MODE", "replay")
	t.Setenv("FEED_REPLAY_PATH", "/tmp/feed.jsonl")
	t.Setenv("KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("POLICY_ENABLED", "true")
	t.Setenv("POLICY_SYMBOL", "ABC")
	t.Setenv("POLICY_MIN_INTERVAL_MS", "25")

	cfg := LoadFromEnv("")

	if cfg.Node.TraderID != 42 {
		t.Errorf("TraderID = %d, want 42", cfg.Node.TraderID)
	}
	if cfg.Feed.Mode != "replay" || cfg.Feed.ReplayPath != "/tmp/feed.jsonl" {
		t.Errorf("Feed = %+v", cfg.Feed)
	}
	if len(cfg.Feed.KafkaBrokers) != 2 || cfg.Feed.KafkaBrokers[1] != "b2:9092" {
		t.Errorf("KafkaBrokers = %v", cfg.Feed.KafkaBrokers)
	}
	if !cfg.Policy.Enabled || cfg.Policy.Symbol != "ABC" {
		t.Errorf("Policy = %+v", cfg.Policy)
	}
	if cfg.Policy.MinInterval != 25*time.Millisecond {
		t.Errorf("MinInterval = %v, want 25ms", cfg.Policy.MinInterval)
	}
}

func TestLoadFromEnv_BadNumbersKeepDefaults(t *testing.T) {
	t.Setenv("TRADER_ID", "not-a-number")
	t.Setenv("POLICY_QUOTE_SIZE", "forty")

	cfg := LoadFromEnv("")

	if cfg.Node.TraderID != 0 {
		t.Errorf("TraderID = %d, want default 0", cfg.Node.TraderID)
	}
	if cfg.Policy.QuoteSize != 40 {
		t.Errorf("QuoteSize = %d, want default 40", cfg.Policy.QuoteSize)
	}
}
