package config

import (
	"btc-paper-trader-go/internal/execution"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Binance   Binance   `mapstructure:"binance"`
	Trading   Trading   `mapstructure:"trading"`
	Simulator Simulator `mapstructure:"simulator"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// Binance holds the configuration for the Binance market data endpoints.
type Binance struct {
	BaseURL        string  `mapstructure:"base_url"`
	StreamURL      string  `mapstructure:"stream_url"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the web servers.
type Server struct {
	Port   int `mapstructure:"port"`
	UIPort int `mapstructure:"ui_port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Trading holds the configuration for the paper account and its automation.
type Trading struct {
	Symbol           string  `mapstructure:"symbol"`
	InitialBalance   float64 `mapstructure:"initial_balance"`
	FeeRate          float64 `mapstructure:"fee_rate"`
	Slippage         float64 `mapstructure:"slippage"`
	TakeProfitPct    float64 `mapstructure:"take_profit_pct"`
	StopLossPct      float64 `mapstructure:"stop_loss_pct"`
	AutoTrade        bool    `mapstructure:"auto_trade"`
	Running          bool    `mapstructure:"running"`
	MaxDailyLoss     float64 `mapstructure:"max_daily_loss"`
	MaxDrawdownPct   float64 `mapstructure:"max_drawdown_pct"`
	TickInterval     int     `mapstructure:"tick_interval"`     // seconds, poll mode
	AnalysisInterval int     `mapstructure:"analysis_interval"` // seconds
	Strategy         string  `mapstructure:"strategy"`
	FeedMode         string  `mapstructure:"feed_mode"` // stream or poll
	AdvisorURL       string  `mapstructure:"advisor_url"`
}

// Simulator holds the simulated venue latency and failure rates.
type Simulator struct {
	MinLatencyMs     int     `mapstructure:"min_latency_ms"`
	MaxLatencyMs     int     `mapstructure:"max_latency_ms"`
	CloseLatencyMs   int     `mapstructure:"close_latency_ms"`
	OpenFailureRate  float64 `mapstructure:"open_failure_rate"`
	CloseFailureRate float64 `mapstructure:"close_failure_rate"`
	Seed             int64   `mapstructure:"seed"` // 0 seeds from the clock
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Engine converts the trading section into the execution engine configuration.
func (c Config) Engine() execution.Config {
	return execution.Config{
		FeeRate:        c.Trading.FeeRate,
		Slippage:       c.Trading.Slippage,
		TakeProfitPct:  c.Trading.TakeProfitPct,
		StopLossPct:    c.Trading.StopLossPct,
		MaxDailyLoss:   c.Trading.MaxDailyLoss,
		MaxDrawdownPct: c.Trading.MaxDrawdownPct,
		AutoTrade:      c.Trading.AutoTrade,
	}
}

// Faults converts the simulator section into the fault injector configuration.
func (s Simulator) Faults() execution.FaultConfig {
	return execution.FaultConfig{
		MinLatency:       time.Duration(s.MinLatencyMs) * time.Millisecond,
		MaxLatency:       time.Duration(s.MaxLatencyMs) * time.Millisecond,
		CloseLatency:     time.Duration(s.CloseLatencyMs) * time.Millisecond,
		OpenFailureRate:  s.OpenFailureRate,
		CloseFailureRate: s.CloseFailureRate,
	}
}

// TickEvery is the poll interval of the price feed.
func (t Trading) TickEvery() time.Duration {
	return time.Duration(t.TickInterval) * time.Second
}

// AnalysisEvery is the interval between advisory runs.
func (t Trading) AnalysisEvery() time.Duration {
	return time.Duration(t.AnalysisInterval) * time.Second
}

// LoadConfig reads configuration from file or environment variables.
// A .env file next to the config file, if present, is loaded first.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	def := execution.DefaultConfig()
	faults := execution.DefaultFaultConfig()

	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.stream_url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("binance.rate_limit", 20)      // requests per second
	v.SetDefault("binance.rate_limit_burst", 5) // burst size

	v.SetDefault("trading.symbol", "BTCUSDT")
	v.SetDefault("trading.initial_balance", 10000)
	v.SetDefault("trading.fee_rate", def.FeeRate)
	v.SetDefault("trading.slippage", def.Slippage)
	v.SetDefault("trading.take_profit_pct", def.TakeProfitPct)
	v.SetDefault("trading.stop_loss_pct", def.StopLossPct)
	v.SetDefault("trading.max_daily_loss", def.MaxDailyLoss)
	v.SetDefault("trading.max_drawdown_pct", def.MaxDrawdownPct)
	v.SetDefault("trading.running", true)
	v.SetDefault("trading.tick_interval", 1)
	v.SetDefault("trading.analysis_interval", 15)
	v.SetDefault("trading.strategy", "indicator")
	v.SetDefault("trading.feed_mode", "stream")

	v.SetDefault("simulator.min_latency_ms", faults.MinLatency.Milliseconds())
	v.SetDefault("simulator.max_latency_ms", faults.MaxLatency.Milliseconds())
	v.SetDefault("simulator.close_latency_ms", faults.CloseLatency.Milliseconds())
	v.SetDefault("simulator.open_failure_rate", faults.OpenFailureRate)
	v.SetDefault("simulator.close_failure_rate", faults.CloseFailureRate)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.ui_port", 8081)
	v.SetDefault("database.dsn", "paper_trader.db")
}
