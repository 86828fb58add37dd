package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/davidjwilkins/declarative-settlements/consts"
	"github.com/davidjwilkins/declarative-settlements/errors"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RECONCILER"

type MethodConfig struct {
	ID        string             `mapstructure:"id" validate:"required"`
	ServerURL string             `mapstructure:"server_url" validate:"required,url"`
	APIKey    string             `mapstructure:"api_key"`
	StoreID   string             `mapstructure:"store_id" validate:"required"`
	Flow      consts.PaymentFlow `mapstructure:"flow" validate:"oneof=payment-link direct-invoice"`
	Timeout   time.Duration      `mapstructure:"timeout" validate:"gte=0"`
}

type Config struct {
	HTTPAddr    string                  `mapstructure:"http_addr" validate:"required"`
	LogLevel    string                  `mapstructure:"log_level"`
	Policy      consts.ValidationPolicy `mapstructure:"policy" validate:"oneof=abort continue"`
	Concurrency int                     `mapstructure:"concurrency" validate:"gte=1"`
	Methods     []MethodConfig          `mapstructure:"methods" validate:"dive"`
	Breez       SingleMethod            `mapstructure:"breez"`
}

// SingleMethod is the shorthand for a deployment with one payment method, so it can be
// configured from the environment alone. It is folded into Methods when Methods is empty.
type SingleMethod struct {
	MethodID  string             `mapstructure:"method_id"`
	ServerURL string             `mapstructure:"server_url"`
	APIKey    string             `mapstructure:"api_key"`
	StoreID   string             `mapstructure:"store_id"`
	Flow      consts.PaymentFlow `mapstructure:"flow"`
	Timeout   time.Duration      `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("policy", string(consts.ValidationPolicyAbort))
	v.SetDefault("concurrency", 4)
	v.SetDefault("breez.method_id", "")
	v.SetDefault("breez.server_url", "")
	v.SetDefault("breez.api_key", "")
	v.SetDefault("breez.store_id", "")
	v.SetDefault("breez.flow", string(consts.PaymentFlowPaymentLink))
	v.SetDefault("breez.timeout", "10s")
}

// Load reads configuration from path (optional), a .env file in the working directory
// if there is one, and RECONCILER_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if breez := cfg.Breez; len(cfg.Methods) == 0 && breez.ServerURL != "" {
		cfg.Methods = []MethodConfig{{
			ID:        breez.MethodID,
			ServerURL: breez.ServerURL,
			APIKey:    breez.APIKey,
			StoreID:   breez.StoreID,
			Flow:      breez.Flow,
			Timeout:   breez.Timeout,
		}}
	}
	for i := range cfg.Methods {
		if cfg.Methods[i].Flow == "" {
			cfg.Methods[i].Flow = consts.PaymentFlowPaymentLink
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, err)
	}
	seen := make(map[string]struct{}, len(c.Methods))
	for _, m := range c.Methods {
		if _, ok := seen[m.ID]; ok {
			return fmt.Errorf("%w: payment method %q configured twice", errors.ErrInvalidConfig, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}
