// Package config loads the copy trader configuration from a YAML file,
// a .env file and COPYTRADER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"solana-copy-trader/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. COPYTRADER_TRADE_AMOUNT_LAMPORTS.
const EnvPrefix = "COPYTRADER"

// Config is the full application configuration.
type Config struct {
	TargetWallet string           `mapstructure:"target_wallet"`
	RPC          RPCConfig        `mapstructure:"rpc"`
	Wallet       WalletConfig     `mapstructure:"wallet"`
	Trade        TradeConfig      `mapstructure:"trade"`
	Monitor      MonitorConfig    `mapstructure:"monitor"`
	Exit         ExitConfig       `mapstructure:"exit"`
	Jupiter      JupiterConfig    `mapstructure:"jupiter"`
	Audit        AuditConfig      `mapstructure:"audit"`
	Postgres     PostgresConfig   `mapstructure:"postgres"`
	ClickHouse   ClickHouseConfig `mapstructure:"clickhouse"`
	Redis        RedisConfig      `mapstructure:"redis"`
	Telegram     TelegramConfig   `mapstructure:"telegram"`
	Metrics      MetricsConfig    `mapstructure:"metrics"`
	Log          LogConfig        `mapstructure:"log"`
}

// RPCConfig holds node endpoints.
type RPCConfig struct {
	HTTPEndpoint string        `mapstructure:"http_endpoint"`
	WSEndpoint   string        `mapstructure:"ws_endpoint"`
	Commitment   string        `mapstructure:"commitment"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// WalletConfig holds the operator key.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"` // base58 64-byte secret key
}

// TradeConfig holds mirroring parameters.
type TradeConfig struct {
	AmountLamports       uint64  `mapstructure:"amount_lamports"`
	MinTargetLamports    uint64  `mapstructure:"min_target_lamports"`
	SlippageBps          int     `mapstructure:"slippage_bps"`
	ProfitTargetMultiple float64 `mapstructure:"profit_target_multiple"`
	PriorityFeeLamports  uint64  `mapstructure:"priority_fee_lamports"`
}

// MonitorConfig holds event pipeline parameters.
type MonitorConfig struct {
	SignatureWindow         int           `mapstructure:"signature_window"`
	SignatureWindowMultiple int           `mapstructure:"signature_window_multiple"`
	MaxConcurrent           int           `mapstructure:"max_concurrent"`
	FetchAttempts           int           `mapstructure:"fetch_attempts"`
	FetchBaseDelay          time.Duration `mapstructure:"fetch_base_delay"`
}

// ExitConfig holds exit evaluator parameters.
type ExitConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

// JupiterConfig holds the swap API location.
type JupiterConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// AuditConfig holds trade log settings.
type AuditConfig struct {
	CSVPath    string `mapstructure:"csv_path"`
	BufferSize int    `mapstructure:"buffer_size"`
}

// PostgresConfig enables the Postgres audit store and subscriber registry.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// ClickHouseConfig enables the ClickHouse trade analytics store.
type ClickHouseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig enables the shared token metadata cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// TelegramConfig enables the Telegram notifier.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// MetricsConfig holds the HTTP listener for /metrics, /health and /positions.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.timeout", 30*time.Second)
	v.SetDefault("rpc.max_retries", 3)
	v.SetDefault("trade.slippage_bps", 500)
	v.SetDefault("trade.profit_target_multiple", 1.25)
	v.SetDefault("trade.priority_fee_lamports", 500000)
	v.SetDefault("monitor.signature_window", 10)
	v.SetDefault("monitor.signature_window_multiple", 10)
	v.SetDefault("monitor.max_concurrent", 8)
	v.SetDefault("monitor.fetch_attempts", 5)
	v.SetDefault("monitor.fetch_base_delay", 500*time.Millisecond)
	v.SetDefault("exit.interval", 5*time.Second)
	v.SetDefault("exit.max_concurrent", 4)
	v.SetDefault("jupiter.base_url", "https://quote-api.jup.ag/v6")
	v.SetDefault("audit.csv_path", "trade_log.csv")
	v.SetDefault("audit.buffer_size", 256)
	v.SetDefault("postgres.max_conns", 8)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// keys lists every setting so environment variables bind without a file entry.
var keys = []string{
	"target_wallet",
	"rpc.http_endpoint", "rpc.ws_endpoint", "rpc.commitment", "rpc.timeout", "rpc.max_retries",
	"wallet.private_key",
	"trade.amount_lamports", "trade.min_target_lamports", "trade.slippage_bps",
	"trade.profit_target_multiple", "trade.priority_fee_lamports",
	"monitor.signature_window", "monitor.signature_window_multiple", "monitor.max_concurrent",
	"monitor.fetch_attempts", "monitor.fetch_base_delay",
	"exit.interval", "exit.max_concurrent",
	"jupiter.base_url",
	"audit.csv_path", "audit.buffer_size",
	"postgres.dsn", "postgres.max_conns", "clickhouse.dsn",
	"redis.addr", "redis.password", "redis.db", "redis.ttl",
	"telegram.token", "telegram.chat_id",
	"metrics.addr",
	"log.level", "log.format",
}

// Load reads path (optional) over the built-in defaults and applies .env and
// environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid field as a *domain.ConfigurationError.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, reason string) {
		errs = append(errs, &domain.ConfigurationError{Field: field, Reason: reason})
	}

	if c.TargetWallet == "" {
		add("target_wallet", "required")
	}
	if c.RPC.HTTPEndpoint == "" {
		add("rpc.http_endpoint", "required")
	}
	if c.RPC.WSEndpoint == "" {
		add("rpc.ws_endpoint", "required")
	}
	if c.Wallet.PrivateKey == "" {
		add("wallet.private_key", "required")
	}
	if c.Trade.AmountLamports == 0 {
		add("trade.amount_lamports", "must be positive")
	}
	if c.Trade.SlippageBps < 0 || c.Trade.SlippageBps > 10_000 {
		add("trade.slippage_bps", "must be between 0 and 10000")
	}
	if c.Trade.ProfitTargetMultiple <= 0 {
		add("trade.profit_target_multiple", "must be positive")
	}
	if c.Monitor.SignatureWindow <= 0 {
		add("monitor.signature_window", "must be positive")
	}
	if c.Monitor.SignatureWindowMultiple <= 0 {
		add("monitor.signature_window_multiple", "must be positive")
	}
	if c.Monitor.MaxConcurrent <= 0 {
		add("monitor.max_concurrent", "must be positive")
	}
	if c.Exit.Interval <= 0 {
		add("exit.interval", "must be positive")
	}
	if c.Exit.MaxConcurrent <= 0 {
		add("exit.max_concurrent", "must be positive")
	}
	if c.Telegram.ChatID != 0 && c.Telegram.Token == "" {
		add("telegram.token", "required when telegram.chat_id is set")
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		add("log.format", fmt.Sprintf("unknown format %q (valid: json, console)", c.Log.Format))
	}
	return errors.Join(errs...)
}
