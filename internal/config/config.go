package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Catalog        CatalogConfig        `mapstructure:"catalog"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// CatalogConfig selects where the snapshot is loaded from.
type CatalogConfig struct {
	Source       string `mapstructure:"source"`
	SnapshotPath string `mapstructure:"snapshot_path"`
	GraphRatings bool   `mapstructure:"graph_ratings"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
	Warm RedisInstanceConfig `mapstructure:"warm"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topics  struct {
		CatalogReload string `mapstructure:"catalog_reload"`
	} `mapstructure:"topics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RecommendationConfig struct {
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
	FactorRank          int           `mapstructure:"factor_rank"`
	DefaultCount        int           `mapstructure:"default_count"`
	MaxCount            int           `mapstructure:"max_count"`
	RandomSeed          uint64        `mapstructure:"random_seed"`
	Index               IndexConfig   `mapstructure:"index"`
	Caching             CachingConfig `mapstructure:"caching"`
}

type IndexConfig struct {
	MinDF       int `mapstructure:"min_df"`
	MaxFeatures int `mapstructure:"max_features"`
	NGramMin    int `mapstructure:"ngram_min"`
	NGramMax    int `mapstructure:"ngram_max"`
}

type CachingConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	RecommendationsTTL time.Duration `mapstructure:"recommendations_ttl"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Environment variable overrides
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate rejects settings the engine cannot start with.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceFile:
		if c.Catalog.SnapshotPath == "" {
			return fmt.Errorf("catalog.snapshot_path is required for the %q source", SourceFile)
		}
	case SourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the %q source", SourcePostgres)
		}
	default:
		return fmt.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}

	if c.Catalog.GraphRatings && c.Neo4j.URL == "" {
		return fmt.Errorf("neo4j.url is required when catalog.graph_ratings is set")
	}

	r := c.Recommendation
	if r.SimilarityThreshold < 0 || r.SimilarityThreshold >= 1 {
		return fmt.Errorf("recommendation.similarity_threshold must be in [0, 1), got %v", r.SimilarityThreshold)
	}
	if r.DefaultCount <= 0 || r.MaxCount < r.DefaultCount {
		return fmt.Errorf("recommendation.default_count must be positive and not above max_count")
	}
	if r.Index.NGramMin <= 0 || r.Index.NGramMax < r.Index.NGramMin {
		return fmt.Errorf("recommendation.index ngram range [%d, %d] is invalid", r.Index.NGramMin, r.Index.NGramMax)
	}

	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Catalog defaults
	viper.SetDefault("catalog.source", SourceFile)
	viper.SetDefault("catalog.snapshot_path", "./data/books.csv")
	viper.SetDefault("catalog.graph_ratings", false)

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.warm.max_retries", 3)
	viper.SetDefault("redis.warm.pool_size", 5)
	viper.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	viper.SetDefault("kafka.group_id", "shelfrec")
	viper.SetDefault("kafka.topics.catalog_reload", "catalog-reload")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommendation defaults
	viper.SetDefault("recommendation.similarity_threshold", 0.1)
	viper.SetDefault("recommendation.factor_rank", 20)
	viper.SetDefault("recommendation.default_count", 5)
	viper.SetDefault("recommendation.max_count", 50)
	viper.SetDefault("recommendation.random_seed", 0)
	viper.SetDefault("recommendation.index.min_df", 3)
	viper.SetDefault("recommendation.index.max_features", 10000)
	viper.SetDefault("recommendation.index.ngram_min", 1)
	viper.SetDefault("recommendation.index.ngram_max", 3)

	// Caching defaults
	viper.SetDefault("recommendation.caching.enabled", true)
	viper.SetDefault("recommendation.caching.recommendations_ttl", "15m")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
