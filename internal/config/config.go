package config

import (
	"context"
	"fmt"
	"os"

	"github.com/gregtusar/ctdbasis/pkg/secrets"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Account  AccountConfig  `mapstructure:"account"`
	Data     DataConfig     `mapstructure:"data"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	GCP      GCPConfig      `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type AccountConfig struct {
	// GatewayURL points at the local brokerage gateway, e.g.
	// https://localhost:5000.
	GatewayURL        string  `mapstructure:"gateway_url"`
	AccountID         string  `mapstructure:"account_id"`
	Token             string  `mapstructure:"token"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	InsecureTLS       bool    `mapstructure:"insecure_tls"`

	// Offline substitutes StaticNetLiquidation for the gateway call.
	Offline              bool    `mapstructure:"offline"`
	StaticNetLiquidation float64 `mapstructure:"static_net_liquidation"`
}

type DataConfig struct {
	BondBasketPath    string `mapstructure:"bond_basket_path"`
	FuturesQuotesPath string `mapstructure:"futures_quotes_path"`
}

type TradingConfig struct {
	Leverage             float64 `mapstructure:"leverage"`
	SMAThreshold         float64 `mapstructure:"sma_threshold"`
	VolumeScale          float64 `mapstructure:"volume_scale"`
	MaxDeferralDays      int     `mapstructure:"max_deferral_days"`
	DaysInYear           int     `mapstructure:"days_in_year"`
	LongEligibilityDays  float64 `mapstructure:"long_eligibility_days"`
	ShortEligibilityDays float64 `mapstructure:"short_eligibility_days"`
	SettlementLagDays    int     `mapstructure:"settlement_lag_days"`
}

type RiskConfig struct {
	LegDelta         float64 `mapstructure:"leg_delta"`
	ScenarioLimit    float64 `mapstructure:"scenario_limit"`
	OverlayLimit     float64 `mapstructure:"overlay_limit"`
	EquityDeltaLimit float64 `mapstructure:"equity_delta_limit"`
	MaxCandidates    int     `mapstructure:"max_candidates"`
}

type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type GCPConfig struct {
	ProjectID   string              `mapstructure:"project_id"`
	UseSecrets  bool                `mapstructure:"use_secrets"`
	SecretNames secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ctd-hedger")
	}

	v.SetEnvPrefix("HEDGE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)

	// Account gateway defaults
	v.SetDefault("account.gateway_url", "https://localhost:5000")
	v.SetDefault("account.requests_per_second", 5.0)
	v.SetDefault("account.insecure_tls", true)
	v.SetDefault("account.offline", false)
	v.SetDefault("account.static_net_liquidation", 0)

	// Data defaults
	v.SetDefault("data.bond_basket_path", "./data/bond_basket.csv")
	v.SetDefault("data.futures_quotes_path", "./data/futures_quotes.csv")

	// Trading defaults
	v.SetDefault("trading.leverage", 4.0)
	v.SetDefault("trading.sma_threshold", 2000.0)
	v.SetDefault("trading.volume_scale", 10.0)
	v.SetDefault("trading.max_deferral_days", 96)
	v.SetDefault("trading.days_in_year", 360)
	v.SetDefault("trading.long_eligibility_days", 36.0)
	v.SetDefault("trading.short_eligibility_days", 2.0)
	v.SetDefault("trading.settlement_lag_days", 1)

	// Risk defaults
	v.SetDefault("risk.leg_delta", 0.65)
	v.SetDefault("risk.scenario_limit", 20.0)
	v.SetDefault("risk.overlay_limit", 10.0)
	v.SetDefault("risk.equity_delta_limit", 0.01)
	v.SetDefault("risk.max_candidates", 10)

	// Snapshot defaults
	v.SetDefault("snapshot.enabled", true)
	v.SetDefault("snapshot.dir", "./snapshots")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	// GCP defaults
	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.gateway_account_id", secretNames.GatewayAccountID)
	v.SetDefault("gcp.secret_names.gateway_token", secretNames.GatewayToken)
}

func overrideFromEnv(config *Config) {
	if gatewayURL := os.Getenv("HEDGE_GATEWAY_URL"); gatewayURL != "" {
		config.Account.GatewayURL = gatewayURL
	}
	if accountID := os.Getenv("HEDGE_ACCOUNT_ID"); accountID != "" {
		config.Account.AccountID = accountID
	}
	if token := os.Getenv("HEDGE_GATEWAY_TOKEN"); token != "" {
		config.Account.Token = token
	}

	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	// Only load secrets that are not already set
	if config.Account.AccountID == "" {
		config.Account.AccountID = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.GatewayAccountID, "")
	}
	if config.Account.Token == "" {
		config.Account.Token = secretManager.GetSecretWithDefault(ctx,
			config.GCP.SecretNames.GatewayToken, "")
	}

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}
