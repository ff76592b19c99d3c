package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Feed selects where venue events come from.
type Feed struct {
	// Mode is "ws", "kafka", or "replay".
	Mode string

	// WSURL is the venue session endpoint for ws mode.
	WSURL string

	// Kafka settings for kafka mode.
	KafkaBrokers []string
	KafkaGroup   string
	KafkaTopic   string

	// ReplayPath is the JSONL event file for replay mode.
	ReplayPath string
}

// Policy holds the quoting parameters. These are strategy knobs, not
// engine invariants; revisions tune them freely.
type Policy struct {
	Enabled     bool
	Symbol      string
	QuoteSize   int64
	SkewFactor  float64
	SignalDepth int
	MinInterval time.Duration
}

type Node struct {
	TraderID uint64
	DataDir  string
	APIAddr  string
	LogLevel string
	LogFile  string

	// CheckpointEvery is the ledger checkpoint cadence in packets.
	CheckpointEvery int
}

type Config struct {
	Node   Node
	Feed   Feed
	Policy Policy
}

func Default() Config {
	return Config{
		Node: Node{
			DataDir:         "data",
			APIAddr:         ":8080",
			LogLevel:        "info",
			CheckpointEvery: 100,
		},
		Feed: Feed{
			Mode:         "ws",
			WSURL:        "ws://127.0.0.1:9001/feed",
			KafkaBrokers: []string{"127.0.0.1:9092"},
			KafkaGroup:   "mirrorbook",
			KafkaTopic:   "venue-events",
		},
		Policy: Policy{
			Enabled:     false,
			QuoteSize:   40,
			SkewFactor:  0.25,
			SignalDepth: 30,
			MinInterval: 10 * time.Millisecond,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: env > .env > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.Node.TraderID = envUint64("TRADER_ID", cfg.Node.TraderID)
	cfg.Node.DataDir = envString("DATA_DIR", cfg.Node.DataDir)
	cfg.Node.APIAddr = envString("API_ADDR", cfg.Node.APIAddr)
	cfg.Node.LogLevel = envString("LOG_LEVEL", cfg.Node.LogLevel)
	cfg.Node.LogFile = envString("LOG_FILE", cfg.Node.LogFile)
	cfg.Node.CheckpointEvery = int(envInt64("CHECKPOINT_EVERY", int64(cfg.Node.CheckpointEvery)))

	cfg.Feed.Mode = envString("FEED_MODE", cfg.Feed.Mode)
	cfg.Feed.WSURL = envString("FEED_WS_URL", cfg.Feed.WSURL)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Feed.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.Feed.KafkaGroup = envString("KAFKA_GROUP", cfg.Feed.KafkaGroup)
	cfg.Feed.KafkaTopic = envString("KAFKA_TOPIC", cfg.Feed.KafkaTopic)
	cfg.Feed.ReplayPath = envString("FEED_REPLAY_PATH", cfg.Feed.ReplayPath)

	cfg.Policy.Enabled = envString("POLICY_ENABLED", "") == "true"
	cfg.Policy.Symbol = envString("POLICY_SYMBOL", cfg.Policy.Symbol)
	cfg.Policy.QuoteSize = envInt64("POLICY_QUOTE_SIZE", cfg.Policy.QuoteSize)
	cfg.Policy.SkewFactor = envFloat("POLICY_SKEW_FACTOR", cfg.Policy.SkewFactor)
	cfg.Policy.SignalDepth = int(envInt64("POLICY_SIGNAL_DEPTH", int64(cfg.Policy.SignalDepth)))
	if ms := envInt64("POLICY_MIN_INTERVAL_MS", 0); ms > 0 {
		cfg.Policy.MinInterval = time.Duration(ms) * time.Millisecond
	}

	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envUint64(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
