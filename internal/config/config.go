// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Valid operating modes for a run.
const (
	ModePaper    = "paper"
	ModeTraining = "training"
	ModeDemo     = "demo"
	ModeProd     = "prod"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	RunsDir     string `yaml:"runs_dir"`
}

// Exchange describes connectivity to the prediction-market venue. Demo and
// prod share a client; only the API root differs. The key id is read from the
// environment so secrets stay out of config files.
type Exchange struct {
	DemoRoot     string `yaml:"demo_root"`
	ProdRoot     string `yaml:"prod_root"`
	WSRoot       string `yaml:"ws_root"`
	KeyIDEnv     string `yaml:"key_id_env"`
	LimitMarkets int    `yaml:"limit_markets"`
	UseStub      bool   `yaml:"use_stub"`
	StubMarkets  int    `yaml:"stub_markets"`
}

// Strategy groups the decision thresholds.
type Strategy struct {
	MinEdgeProb       float64 `yaml:"min_edge_prob"`
	MaxSpreadCents    int     `yaml:"max_spread_cents"`
	MinDepthContracts int     `yaml:"min_depth_contracts"`
	MakerOnly         bool    `yaml:"maker_only"`
	TakerFeeCents     int     `yaml:"est_taker_fee_cents_per_contract"`
	CooldownSeconds   int     `yaml:"decision_cooldown_seconds"`
	EnableTakerTest   bool    `yaml:"enable_taker_test"`
}

// Risk encodes guard-rails for how much size the engine may take on.
type Risk struct {
	BankrollUSD         float64 `yaml:"bankroll_usd"`
	MaxRiskPerMarketUSD float64 `yaml:"max_risk_per_market_usd"`
	MaxTotalExposureUSD float64 `yaml:"max_total_exposure_usd"`
}

// News configures the headline feeds consumed by the signal layer.
type News struct {
	Feeds         []string `yaml:"feeds"`
	LookbackHours int      `yaml:"lookback_hours"`
}

// Run sets the default cadence of the polling loop.
type Run struct {
	Mode         string `yaml:"mode"`
	Minutes      int    `yaml:"minutes"`
	CycleSeconds int    `yaml:"cycle_seconds"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
	News     News     `yaml:"news"`
	Run      Run      `yaml:"run"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ValidMode reports whether the mode string names a known executor.
func ValidMode(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModePaper, ModeTraining, ModeDemo, ModeProd:
		return true
	}
	return false
}

// APIRoot picks the exchange root for the mode. Training uses the production
// root: real market data, never any orders.
func (e Exchange) APIRoot(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeDemo:
		return e.DemoRoot
	default:
		return e.ProdRoot
	}
}
