package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	AppURL     string                    `mapstructure:"app_url"`
	Server     ServerConfig              `mapstructure:"server"`
	Database   DatabaseConfig            `mapstructure:"database"`
	Redis      RedisConfig               `mapstructure:"redis"`
	JWT        JWTConfig                 `mapstructure:"jwt"`
	OSS        OSSConfig                 `mapstructure:"oss"`
	Email      EmailConfig               `mapstructure:"email"`
	Queue      QueueConfig               `mapstructure:"queue"`
	CORS       CORSConfig                `mapstructure:"cors"`
	Log        LogConfig                 `mapstructure:"log"`
	Payment    PaymentConfig             `mapstructure:"payment"`
	Plans      map[string]PlanConfig     `mapstructure:"plans"`
	Currencies map[string]CurrencyConfig `mapstructure:"currencies"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	DispatchQueue string `mapstructure:"dispatch_queue"`
	MaxWorkers    int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type PaymentConfig struct {
	PollIntervalSeconds  int     `mapstructure:"poll_interval_seconds"`
	SweepIntervalSeconds int     `mapstructure:"sweep_interval_seconds"`
	OracleMode           string  `mapstructure:"oracle_mode"` // simulated, redis
	ConfirmProbability   float64 `mapstructure:"confirm_probability"`
	WebhookSecret        string  `mapstructure:"webhook_secret"`
}

// PlanConfig 套餐：美元价格与赠送的短信额度
type PlanConfig struct {
	Price   float64 `mapstructure:"price"`
	Credits int64   `mapstructure:"credits"`
}

type CurrencyConfig struct {
	PriceUSD      float64 `mapstructure:"price_usd"`
	WalletAddress string  `mapstructure:"wallet_address"`
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := base()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 套餐价格与赠送额度必须为正数
func (c *Config) Validate() error {
	for id, p := range c.Plans {
		if p.Price <= 0 {
			return fmt.Errorf("plan %q: price must be positive, got %v", id, p.Price)
		}
		if p.Credits <= 0 {
			return fmt.Errorf("plan %q: credits must be positive, got %d", id, p.Credits)
		}
	}
	return nil
}

// Default 返回内置默认配置
func Default() *Config {
	cfg := base()
	cfg.applyDefaults()
	return cfg
}

func base() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080, Mode: "debug"},
		JWT:    JWTConfig{ExpireHours: 168},
		Queue:  QueueConfig{DispatchQueue: "sms_dispatch", MaxWorkers: 2},
		Log: LogConfig{
			Level:      "info",
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Payment: PaymentConfig{
			PollIntervalSeconds:  3,
			SweepIntervalSeconds: 60,
			OracleMode:           "simulated",
			ConfirmProbability:   0.3,
		},
	}
}

func (c *Config) applyDefaults() {
	if len(c.Plans) == 0 {
		c.Plans = map[string]PlanConfig{
			"professional": {Price: 149, Credits: 10000},
			"business":     {Price: 299, Credits: 25000},
			"enterprise":   {Price: 599, Credits: 50000},
		}
	}
	// viper 会把键名转成小写，货币代码统一用大写
	if len(c.Currencies) > 0 {
		upper := make(map[string]CurrencyConfig, len(c.Currencies))
		for code, cur := range c.Currencies {
			upper[strings.ToUpper(code)] = cur
		}
		c.Currencies = upper
	}
	if len(c.Currencies) == 0 {
		c.Currencies = map[string]CurrencyConfig{
			"BTC":  {PriceUSD: 45000, WalletAddress: "bc1q4h77y69kwdcr558w7ejzyntmjr9xy5wsqp9sys"},
			"ETH":  {PriceUSD: 2800, WalletAddress: "0x1f2a5b807058c171aa28a19b21ee77a1ab93da06"},
			"USDT": {PriceUSD: 1, WalletAddress: "TUZKzK18cp2J1gxK9zNrEBkARBntgcZFEz"},
			"LTC":  {PriceUSD: 75, WalletAddress: "LU2KwsLukY2onmTRwtbTfLQserH6StS496"},
			"XMR":  {PriceUSD: 160, WalletAddress: "89ByM65SQ36GuSeoPBd1wc3JYypiyoKPb2LHqyktc9gc7z8SPGuRTukAHGGCLzp2QUjPYvjt8Wxa9QVQrTku9BtYGEnrY64"},
			"SOL":  {PriceUSD: 65, WalletAddress: "B2fBMqSxTRRYpNHVHCKB5vi5iA7y6wXAEs3UkBrvi3Pf"},
		}
	}
	if c.Payment.PollIntervalSeconds <= 0 {
		c.Payment.PollIntervalSeconds = 3
	}
}
