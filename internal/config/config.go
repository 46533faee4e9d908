package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/temcen/wayfinder/pkg/models"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
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

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type RedisConfig struct {
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
		UserInteractions string `mapstructure:"user_interactions"`
	} `mapstructure:"topics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RecommendationConfig struct {
	Defaults       OptionsConfig       `mapstructure:"defaults"`
	Fusion         FusionConfig        `mapstructure:"fusion"`
	Collaborative  CollaborativeConfig `mapstructure:"collaborative"`
	Trending       TrendingConfig      `mapstructure:"trending"`
	Profile        ProfileConfig       `mapstructure:"profile"`
	Caching        CachingConfig       `mapstructure:"caching"`
	Timeout        time.Duration       `mapstructure:"timeout"`
	CandidateLimit int                 `mapstructure:"candidate_limit"`
}

type OptionsConfig struct {
	MaxResults             int     `mapstructure:"max_results"`
	MinScore               float64 `mapstructure:"min_score"`
	DiversityFactor        float64 `mapstructure:"diversity_factor"`
	IncludeExplanations    bool    `mapstructure:"include_explanations"`
	ExcludeInteracted      bool    `mapstructure:"exclude_interacted"`
	BoostFreshContent      bool    `mapstructure:"boost_fresh_content"`
	GeographicRadiusMeters float64 `mapstructure:"geographic_radius_meters"`
}

type FusionConfig struct {
	ContentWeight       float64 `mapstructure:"content_weight"`
	CollaborativeWeight float64 `mapstructure:"collaborative_weight"`
	TrendingWeight      float64 `mapstructure:"trending_weight"`
}

type CollaborativeConfig struct {
	MaxPeers            int     `mapstructure:"max_peers"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	PeerCandidateLimit  int     `mapstructure:"peer_candidate_limit"`
}

type TrendingConfig struct {
	WindowDays  int     `mapstructure:"window_days"`
	DecayFactor float64 `mapstructure:"decay_factor"`
	Confidence  float64 `mapstructure:"confidence"`
}

type ProfileConfig struct {
	InteractionLimit int           `mapstructure:"interaction_limit"`
	CacheSize        int           `mapstructure:"cache_size"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

type CachingConfig struct {
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

// DefaultOptions converts the configured defaults into per-call options.
func (c RecommendationConfig) DefaultOptions() models.RecommendationOptions {
	return models.RecommendationOptions{
		MaxResults:             c.Defaults.MaxResults,
		MinScore:               c.Defaults.MinScore,
		DiversityFactor:        c.Defaults.DiversityFactor,
		IncludeExplanations:    c.Defaults.IncludeExplanations,
		ExcludeInteracted:      c.Defaults.ExcludeInteracted,
		BoostFreshContent:      c.Defaults.BoostFreshContent,
		GeographicRadiusMeters: c.Defaults.GeographicRadiusMeters,
	}
}

// DefaultRecommendationConfig returns the engine settings used when no
// configuration file is loaded, e.g. in tests.
func DefaultRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{
		Defaults: OptionsConfig{
			MaxResults:             20,
			MinScore:               0.1,
			DiversityFactor:        0.3,
			IncludeExplanations:    true,
			ExcludeInteracted:      true,
			BoostFreshContent:      true,
			GeographicRadiusMeters: 50000,
		},
		Fusion: FusionConfig{
			ContentWeight:       0.4,
			CollaborativeWeight: 0.4,
			TrendingWeight:      0.2,
		},
		Collaborative: CollaborativeConfig{
			MaxPeers:            10,
			SimilarityThreshold: 0.3,
			PeerCandidateLimit:  200,
		},
		Trending: TrendingConfig{
			WindowDays:  7,
			DecayFactor: 0.8,
			Confidence:  0.7,
		},
		Profile: ProfileConfig{
			InteractionLimit: 100,
			CacheSize:        1024,
			CacheTTL:         5 * time.Minute,
		},
		Caching: CachingConfig{
			RecommendationsTTL: 24 * time.Hour,
		},
		Timeout:        2 * time.Second,
		CandidateLimit: 500,
	}
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

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

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.url", "localhost:6379")
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.timeout", "5s")

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.group_id", "recommendation-cache-invalidator")
	viper.SetDefault("kafka.topics.user_interactions", "user-interactions")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Recommendation defaults
	d := DefaultRecommendationConfig()
	viper.SetDefault("recommendation.defaults.max_results", d.Defaults.MaxResults)
	viper.SetDefault("recommendation.defaults.min_score", d.Defaults.MinScore)
	viper.SetDefault("recommendation.defaults.diversity_factor", d.Defaults.DiversityFactor)
	viper.SetDefault("recommendation.defaults.include_explanations", d.Defaults.IncludeExplanations)
	viper.SetDefault("recommendation.defaults.exclude_interacted", d.Defaults.ExcludeInteracted)
	viper.SetDefault("recommendation.defaults.boost_fresh_content", d.Defaults.BoostFreshContent)
	viper.SetDefault("recommendation.defaults.geographic_radius_meters", d.Defaults.GeographicRadiusMeters)

	viper.SetDefault("recommendation.fusion.content_weight", d.Fusion.ContentWeight)
	viper.SetDefault("recommendation.fusion.collaborative_weight", d.Fusion.CollaborativeWeight)
	viper.SetDefault("recommendation.fusion.trending_weight", d.Fusion.TrendingWeight)

	viper.SetDefault("recommendation.collaborative.max_peers", d.Collaborative.MaxPeers)
	viper.SetDefault("recommendation.collaborative.similarity_threshold", d.Collaborative.SimilarityThreshold)
	viper.SetDefault("recommendation.collaborative.peer_candidate_limit", d.Collaborative.PeerCandidateLimit)

	viper.SetDefault("recommendation.trending.window_days", d.Trending.WindowDays)
	viper.SetDefault("recommendation.trending.decay_factor", d.Trending.DecayFactor)
	viper.SetDefault("recommendation.trending.confidence", d.Trending.Confidence)

	viper.SetDefault("recommendation.profile.interaction_limit", d.Profile.InteractionLimit)
	viper.SetDefault("recommendation.profile.cache_size", d.Profile.CacheSize)
	viper.SetDefault("recommendation.profile.cache_ttl", "5m")

	viper.SetDefault("recommendation.caching.recommendations_ttl", "24h")
	viper.SetDefault("recommendation.timeout", "2s")
	viper.SetDefault("recommendation.candidate_limit", d.CandidateLimit)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
