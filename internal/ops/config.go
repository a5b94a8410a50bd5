// Package ops loads and validates the runtime configuration.
package ops

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yanun0323/errors"

	"main/internal/schema"
	"main/internal/strategy"
)

// FileConfig mirrors the YAML config layout.
type FileConfig struct {
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Contract ContractConfig `mapstructure:"contract"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Session  SessionConfig  `mapstructure:"session"`
	Timeouts TimeoutConfig  `mapstructure:"timeouts"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Obs      ObsConfig      `mapstructure:"obs"`
}

// GatewayConfig locates the trading gateway endpoint.
type GatewayConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	ClientID int    `mapstructure:"client_id"`
}

// ContractConfig describes the traded instrument.
type ContractConfig struct {
	Symbol        string `mapstructure:"symbol"`
	SecType       string `mapstructure:"sec_type"`
	Exchange      string `mapstructure:"exchange"`
	Currency      string `mapstructure:"currency"`
	LocalSymbol   string `mapstructure:"local_symbol"`
	LastTradeDate string `mapstructure:"last_trade_date"`
}

// StrategyConfig carries the trading parameters.
type StrategyConfig struct {
	Quantity        int64   `mapstructure:"quantity"`
	Tick            float64 `mapstructure:"tick"`
	ATRLength       int     `mapstructure:"atr_length"`
	IntervalMinutes int     `mapstructure:"interval_minutes"`
	// DailyDuration is the gateway duration string for the daily-bar
	// preload. The ATR smoothing needs far more history than its
	// window to converge, so the default is deliberately long.
	DailyDuration string `mapstructure:"daily_duration"`
}

// SessionConfig carries the session wall-clock boundaries as "HH:MM".
type SessionConfig struct {
	Start       string `mapstructure:"start"`
	EntryCutoff string `mapstructure:"entry_cutoff"`
	CloseOut    string `mapstructure:"close_out"`
	Close       string `mapstructure:"close"`
	Timezone    string `mapstructure:"timezone"`
}

// TimeoutConfig carries the per-call wait bounds in seconds.
type TimeoutConfig struct {
	OrderID    int `mapstructure:"order_id"`
	Execution  int `mapstructure:"execution"`
	Account    int `mapstructure:"account"`
	Contract   int `mapstructure:"contract"`
	Historical int `mapstructure:"historical"`
	Positions  int `mapstructure:"positions"`
	OpenOrders int `mapstructure:"open_orders"`
}

// JournalConfig points at the optional postgres trade journal. The
// journal is skipped entirely when no DSN and no host are set.
type JournalConfig struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// Enabled reports whether a journal destination is configured.
func (c JournalConfig) Enabled() bool { return c.DSN != "" || c.Host != "" }

// ObsConfig configures metrics and the optional profiler.
type ObsConfig struct {
	MetricsAddr     string `mapstructure:"metrics_addr"`
	PyroscopeServer string `mapstructure:"pyroscope_server"`
	AppName         string `mapstructure:"app_name"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Gateway  GatewayConfig
	Contract schema.Contract
	Strategy StrategyConfig
	Session  SessionTimes
	Timeouts Timeouts
	Journal  JournalConfig
	Obs      ObsConfig
}

// SessionTimes are the parsed session boundaries.
type SessionTimes struct {
	Start       strategy.TimeOfDay
	EntryCutoff strategy.TimeOfDay
	CloseOut    strategy.TimeOfDay
	Close       strategy.TimeOfDay
	Location    *time.Location
}

// Timeouts are the resolved per-call wait bounds.
type Timeouts struct {
	OrderID    time.Duration
	Execution  time.Duration
	Account    time.Duration
	Contract   time.Duration
	Historical time.Duration
	Positions  time.Duration
	OpenOrders time.Duration
}

// Load reads the YAML config from path (or the working directory when
// path is empty) and resolves it.
func Load(path string) (Loaded, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "decode config")
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	contract, err := resolveContract(cfg.Contract)
	if err != nil {
		return Loaded{}, err
	}
	strat, err := resolveStrategy(cfg.Strategy)
	if err != nil {
		return Loaded{}, err
	}
	session, err := resolveSession(cfg.Session)
	if err != nil {
		return Loaded{}, err
	}
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 7497
	}
	return Loaded{
		Gateway:  cfg.Gateway,
		Contract: contract,
		Strategy: strat,
		Session:  session,
		Timeouts: resolveTimeouts(cfg.Timeouts),
		Journal:  cfg.Journal,
		Obs:      cfg.Obs,
	}, nil
}

func resolveContract(cfg ContractConfig) (schema.Contract, error) {
	if cfg.Symbol == "" {
		return schema.Contract{}, errors.New("contract symbol is empty")
	}
	if cfg.LocalSymbol == "" {
		return schema.Contract{}, errors.New("contract local symbol is empty")
	}
	if cfg.SecType == "" {
		cfg.SecType = "FUT"
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "NSE"
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return schema.Contract{
		Symbol:        cfg.Symbol,
		SecType:       cfg.SecType,
		Exchange:      cfg.Exchange,
		Currency:      cfg.Currency,
		LocalSymbol:   cfg.LocalSymbol,
		LastTradeDate: cfg.LastTradeDate,
	}, nil
}

func resolveStrategy(cfg StrategyConfig) (StrategyConfig, error) {
	if cfg.Quantity <= 0 {
		cfg.Quantity = 75
	}
	if cfg.Tick <= 0 {
		cfg.Tick = 0.05
	}
	if cfg.ATRLength <= 0 {
		cfg.ATRLength = 14
	}
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 5
	}
	if cfg.DailyDuration == "" {
		cfg.DailyDuration = "2 Y"
	}
	if 60%cfg.IntervalMinutes != 0 {
		return StrategyConfig{}, errors.Errorf("interval %d does not divide the hour", cfg.IntervalMinutes)
	}
	return cfg, nil
}

func resolveSession(cfg SessionConfig) (SessionTimes, error) {
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return SessionTimes{}, errors.Wrapf(err, "load timezone %s", cfg.Timezone)
	}
	out := SessionTimes{Location: loc}
	for _, f := range []struct {
		raw      string
		fallback string
		dst      *strategy.TimeOfDay
	}{
		{cfg.Start, "09:22", &out.Start},
		{cfg.EntryCutoff, "15:00", &out.EntryCutoff},
		{cfg.CloseOut, "15:15", &out.CloseOut},
		{cfg.Close, "15:30", &out.Close},
	} {
		raw := f.raw
		if raw == "" {
			raw = f.fallback
		}
		t, err := time.Parse("15:04", raw)
		if err != nil {
			return SessionTimes{}, errors.Wrapf(err, "parse session time %q", raw)
		}
		*f.dst = strategy.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
	}
	return out, nil
}

func resolveTimeouts(cfg TimeoutConfig) Timeouts {
	seconds := func(n, fallback int) time.Duration {
		if n <= 0 {
			n = fallback
		}
		return time.Duration(n) * time.Second
	}
	return Timeouts{
		OrderID:    seconds(cfg.OrderID, 5),
		Execution:  seconds(cfg.Execution, 5),
		Account:    seconds(cfg.Account, 10),
		Contract:   seconds(cfg.Contract, 10),
		Historical: seconds(cfg.Historical, 30),
		Positions:  seconds(cfg.Positions, 10),
		OpenOrders: seconds(cfg.OpenOrders, 5),
	}
}
