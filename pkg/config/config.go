package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Corpus    CorpusConfig
	Redis     RedisConfig
	Generator GeneratorConfig
	Safety    SafetyConfig
	Matcher   MatcherConfig
	Lexicon   LexiconConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	MetricsPort  int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type CorpusConfig struct {
	// SeedPath is the JSON file used to populate an empty corpus on boot.
	SeedPath string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type GeneratorConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type SafetyConfig struct {
	SpamWindowSec int
	SpamRepeatMax int
	WarningLimit  int
	HistoryCap    int
}

type MatcherConfig struct {
	Threshold float64
	TopK      int
}

type LexiconConfig struct {
	// Path to a YAML lexicon file. Empty means the embedded default.
	Path string
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/fleetassist")

	viper.SetEnvPrefix("FLEETASSIST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.metricsPort", 9090)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/fleetassist.db")

	viper.SetDefault("corpus.seedPath", "./data/faqs.json")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("generator.model", "gpt-4")
	viper.SetDefault("generator.temperature", 0.2)
	viper.SetDefault("generator.maxTokens", 1024)
	viper.SetDefault("generator.timeoutSec", 20)

	viper.SetDefault("safety.spamWindowSec", 300)
	viper.SetDefault("safety.spamRepeatMax", 3)
	viper.SetDefault("safety.warningLimit", 3)
	viper.SetDefault("safety.historyCap", 50)

	viper.SetDefault("matcher.threshold", 0.3)
	viper.SetDefault("matcher.topK", 5)

	viper.SetDefault("lexicon.path", "")

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
