package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`
	Server struct {
		HTTPPort  string          `mapstructure:"HTTPPort"`
		Timeout   time.Duration   `mapstructure:"HTTPTimeout"`
		RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	} `mapstructure:"server"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
		Redis RedisConfig `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Conversation  ConversationConfig  `mapstructure:"conversation"`
	Retrieval     RetrievalConfig     `mapstructure:"retrieval"`
	Ranking       RankingConfig       `mapstructure:"ranking"`
	Accommodation AccommodationConfig `mapstructure:"accommodation"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Observability struct {
		ServiceName string `mapstructure:"serviceName"`
		MetricsPort string `mapstructure:"metricsPort"`
	} `mapstructure:"observability"`
}

// RateLimitConfig bounds requests per client address. RequestsPerSecond <= 0 disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LLMConfig struct {
	Model             string        `mapstructure:"model"`
	EmbeddingModel    string        `mapstructure:"embeddingModel"`
	Temperature       float32       `mapstructure:"temperature"`
	Timeout           time.Duration `mapstructure:"timeout"`
	EmbeddingTimeout  time.Duration `mapstructure:"embeddingTimeout"`
	RequestsPerSecond float64       `mapstructure:"requestsPerSecond"`
	Burst             int           `mapstructure:"burst"`
	EmbeddingCacheTTL time.Duration `mapstructure:"embeddingCacheTTL"`
}

type ConversationConfig struct {
	RequiredSlots []string      `mapstructure:"requiredSlots"`
	SessionTTL    time.Duration `mapstructure:"sessionTTL"`
	LockTTL       time.Duration `mapstructure:"lockTTL"`
	MaxHistory    int           `mapstructure:"maxHistory"`
}

type RetrievalConfig struct {
	StructuredLimit int           `mapstructure:"structuredLimit"`
	SemanticTopK    int           `mapstructure:"semanticTopK"`
	MinRating       float64       `mapstructure:"minRating"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RankingConfig holds the fusion weights. Only their ordering effects are contractual:
// StructuredBase must exceed SemanticBase and every weight must be non-negative.
type RankingConfig struct {
	StructuredBase    float64 `mapstructure:"structuredBase"`
	SemanticBase      float64 `mapstructure:"semanticBase"`
	RankPenalty       float64 `mapstructure:"rankPenalty"`
	RatingWeight      float64 `mapstructure:"ratingWeight"`
	ThemeWeight       float64 `mapstructure:"themeWeight"`
	RequirementWeight float64 `mapstructure:"requirementWeight"`
	EcoBoost          float64 `mapstructure:"ecoBoost"`
	OutputCap         int     `mapstructure:"outputCap"`
}

type AccommodationConfig struct {
	RatingFloor  float64       `mapstructure:"ratingFloor"`
	NearRadiusKm float64       `mapstructure:"nearRadiusKm"`
	TopN         int           `mapstructure:"topN"`
	Seed         uint64        `mapstructure:"seed"`
	SearchLimit  int           `mapstructure:"searchLimit"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type SchedulerConfig struct {
	Oracle          string        `mapstructure:"oracle"`
	OSRMBaseURL     string        `mapstructure:"osrmBaseURL"`
	OSRMProfile     string        `mapstructure:"osrmProfile"`
	SpeedKmh        float64       `mapstructure:"speedKmh"`
	OverheadMinutes int           `mapstructure:"overheadMinutes"`
	OracleTimeout   time.Duration `mapstructure:"oracleTimeout"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// TRIP_LLM_MODEL overrides llm.model and so on.
	v.SetEnvPrefix("trip")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.Ranking.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

func (r RankingConfig) Validate() error {
	for name, w := range map[string]float64{
		"rankPenalty":       r.RankPenalty,
		"ratingWeight":      r.RatingWeight,
		"themeWeight":       r.ThemeWeight,
		"requirementWeight": r.RequirementWeight,
		"ecoBoost":          r.EcoBoost,
		"semanticBase":      r.SemanticBase,
	} {
		if w < 0 {
			return fmt.Errorf("ranking.%s must not be negative, got %v", name, w)
		}
	}
	if r.StructuredBase <= r.SemanticBase {
		return fmt.Errorf("ranking.structuredBase (%v) must exceed ranking.semanticBase (%v)", r.StructuredBase, r.SemanticBase)
	}
	return nil
}

// DefaultRanking mirrors the shipped config.yml weights.
func DefaultRanking() RankingConfig {
	return RankingConfig{
		StructuredBase:    1.0,
		SemanticBase:      0.8,
		RankPenalty:       0.01,
		RatingWeight:      0.1,
		ThemeWeight:       0.3,
		RequirementWeight: 0.2,
		EcoBoost:          0.5,
		OutputCap:         50,
	}
}
