package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Cache     CacheConfig
	Watch     WatchConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

// DataConfig names the source of every dataset the dashboard reads.
// Paths may point at .csv, .xlsx or .db files; spreadsheet sheets and
// SQLite tables are selected with a "#name" suffix.
type DataConfig struct {
	Primary           string
	ChannelSpend      string
	RevenueSummary    string
	ProductRevenue    string
	OptymAllocation   string
	RobynMaxResponse  string
	RobynTarget       string
	RobynBudget       string
	FeatureImportance string
	RevenueColumn     string
	Identity          string
	Categories        []string
	Channels          []string
	SpendChannels     []string
	WeatherFactors    []string
	StockIndexColumn  string
	AllocationPeriods int
}

type CacheConfig struct {
	Redis   RedisConfig
	TTL     time.Duration
	Breaker BreakerConfig
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

type WatchConfig struct {
	Enabled  bool
	Debounce time.Duration
}

type RateLimitConfig struct {
	Enabled              bool
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/gmv-dashboard")

	v.SetEnvPrefix("GMV_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	switch c.Data.Identity {
	case "stat", "content":
	default:
		return fmt.Errorf("data.identity must be \"stat\" or \"content\", got %q", c.Data.Identity)
	}
	if c.Data.Primary == "" {
		return errors.New("data.primary is required")
	}
	if len(c.Data.Categories) == 0 {
		return errors.New("data.categories must not be empty")
	}
	if c.Data.AllocationPeriods < 0 {
		return fmt.Errorf("data.allocationPeriods must not be negative, got %d", c.Data.AllocationPeriods)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("server.development", false)

	v.SetDefault("data.primary", "attached_assets/final_merged.csv")
	v.SetDefault("data.channelSpend", "attached_assets/final_optimized_spend.csv")
	v.SetDefault("data.revenueSummary", "attached_assets/final_overall_revenue.csv")
	v.SetDefault("data.productRevenue", "attached_assets/final_product_revenue.csv")
	v.SetDefault("data.optymAllocation", "attached_assets/merged_file.csv")
	v.SetDefault("data.robynMaxResponse", "attached_assets/1_190_4_max_response_reallocated.csv")
	v.SetDefault("data.robynTarget", "attached_assets/1_190_4_target_efficiency_reallocated.csv")
	v.SetDefault("data.robynBudget", "attached_assets/Robyn_marketing_budget_allocation.csv")
	v.SetDefault("data.featureImportance", "attached_assets/feature_importance_values.csv")
	v.SetDefault("data.revenueColumn", "overall_revenue")
	v.SetDefault("data.identity", "stat")
	v.SetDefault("data.categories", []string{"Camera", "CameraAccessory", "EntertainmentSmall", "GameCDDVD", "GamingHardware"})
	v.SetDefault("data.channels", []string{"TV", "Digital", "Sponsorship", "Content Marketing", "Online Marketing", "Affiliates", "SEM", "Radio", "Other"})
	v.SetDefault("data.spendChannels", []string{"TV", "Digital", "Sponsorship", "Content Marketing", "Online marketing", "Affiliates", "SEM", "Radio", "Other"})
	v.SetDefault("data.weatherFactors", []string{"tavg", "prcp", "wspd", "pres"})
	v.SetDefault("data.stockIndexColumn", "Stock Index")
	v.SetDefault("data.allocationPeriods", 12)

	v.SetDefault("cache.ttl", 6*time.Hour)
	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.breaker.failureThreshold", 5)
	v.SetDefault("cache.breaker.timeout", 30*time.Second)

	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.debounce", 250*time.Millisecond)

	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.maxRequestsPerMinute", 120)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}
