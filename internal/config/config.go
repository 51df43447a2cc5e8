package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
	"gopkg.in/yaml.v3"

	"NewsScanner/internal/domain"
)

const (
	defaultTimezone = "America/Sao_Paulo"
	configPathEnv   = "NEWSSCANNER_CONFIG"
	logLevelEnv     = "NEWSSCANNER_LOG_LEVEL"
	outputModeEnv   = "NEWSSCANNER_OUTPUT"
	databaseDSNEnv  = "DATABASE_DSN"
	mongoURIEnv     = "MONGO_URI"
	redisAddrEnv    = "REDIS_ADDR"
	redisPassEnv    = "REDIS_PASSWORD"
	sshPasswordEnv  = "SSH_PASSWORD"

	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Output modes.
const (
	OutputJSON     = "json"
	OutputMongo    = "mongo"
	OutputPostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Output     OutputConfig     `yaml:"output"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Tunnel     TunnelConfig     `yaml:"tunnel"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CrawlConfig tunes one crawl run.
type CrawlConfig struct {
	Source            string         `yaml:"source"`
	KeywordsFile      string         `yaml:"keywordsFile"`
	PatternsFile      string         `yaml:"patternsFile"`
	Concurrency       int            `yaml:"concurrency"`
	RequestsPerSecond float64        `yaml:"requestsPerSecond"`
	Burst             int            `yaml:"burst"`
	Timezone          string         `yaml:"timezone"`
	UserAgent         string         `yaml:"userAgent"`
	Timeout           time.Duration  `yaml:"timeout"`
	MaxPages          int            `yaml:"maxPages"`
	ExpectedURLs      uint           `yaml:"expectedUrls"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the crawl timezone.
func (c CrawlConfig) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OutputConfig picks the article store.
type OutputConfig struct {
	Mode string `yaml:"mode"`
	Dir  string `yaml:"dir"`
}

// CheckpointConfig locates the per-source checkpoint files.
type CheckpointConfig struct {
	Dir string `yaml:"dir"`
	// Strict turns a malformed checkpoint file into a fatal error instead of a fresh start.
	Strict bool `yaml:"strict"`
}

// MongoConfig describes the Mongo connection.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// PostgresConfig describes the Postgres connection.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig enables the Redis-backed fetch history when Address is set.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TunnelConfig opens an SSH port forward before connecting to the database.
type TunnelConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	KeyFile    string `yaml:"keyFile"`
	KnownHosts string `yaml:"knownHosts"`
	RemoteAddr string `yaml:"remoteAddr"`
	LocalAddr  string `yaml:"localAddr"`
}

// TelegramConfig wires the end-of-run report.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// MetricsConfig exposes Prometheus metrics when Address is set.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Load applies defaults, then the YAML file (path, or $NEWSSCANNER_CONFIG), then .env and
// environment overrides. CLI flags are applied by the caller afterwards.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("%w: load .env: %v", domain.ErrConfig, err)
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%w: read %s: %v", domain.ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.Finalize()
}

// Finalize binds the timezone and validates. Call it again after CLI overrides.
func (c *Config) Finalize() error {
	if c.Crawl.Concurrency <= 0 {
		c.Crawl.Concurrency = defaultConcurrency()
	}
	if err := c.bindTimezone(); err != nil {
		return err
	}
	return c.Validate()
}

// Validate reports the first inconsistent setting as domain.ErrConfig.
func (c Config) Validate() error {
	switch c.Output.Mode {
	case OutputJSON:
		if c.Output.Dir == "" {
			return fmt.Errorf("%w: output.dir is required for json output", domain.ErrConfig)
		}
	case OutputMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("%w: mongo.uri and mongo.database are required", domain.ErrConfig)
		}
	case OutputPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("%w: postgres.dsn is required", domain.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown output.mode %q", domain.ErrConfig, c.Output.Mode)
	}

	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("%w: crawl.maxPages must not be negative", domain.ErrConfig)
	}
	if c.Crawl.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: crawl.requestsPerSecond must not be negative", domain.ErrConfig)
	}
	if c.Tunnel.Enabled && (c.Tunnel.Host == "" || c.Tunnel.RemoteAddr == "") {
		return fmt.Errorf("%w: tunnel.host and tunnel.remoteAddr are required", domain.ErrConfig)
	}
	if c.Tunnel.Enabled && c.Output.Mode == OutputJSON {
		return fmt.Errorf("%w: tunnel is only used with mongo or postgres output", domain.ErrConfig)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(outputModeEnv); v != "" {
		c.Output.Mode = strings.ToLower(v)
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv(mongoURIEnv); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Address = v
	}
	if v := os.Getenv(redisPassEnv); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv(sshPasswordEnv); v != "" {
		c.Tunnel.Password = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Crawl.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %s", domain.ErrConfig, tz)
	}
	c.Crawl.Timezone = tz
	c.Crawl.location = loc
	return nil
}

func defaultConcurrency() int {
	if n, err := cpu.Counts(false); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// String renders the settings that matter in a startup log line, without secrets.
func (c Config) String() string {
	return "source=" + c.Crawl.Source +
		" output=" + c.Output.Mode +
		" concurrency=" + strconv.Itoa(c.Crawl.Concurrency) +
		" timezone=" + c.Crawl.Timezone
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Crawl: CrawlConfig{
			Source:            "diplomatique",
			RequestsPerSecond: 2,
			Burst:             4,
			Timezone:          defaultTimezone,
			UserAgent:         "Mozilla/5.0 (compatible; NewsScanner/1.0)",
			Timeout:           30 * time.Second,
			ExpectedURLs:      100_000,
		},
		Output:     OutputConfig{Mode: OutputJSON, Dir: "output"},
		Checkpoint: CheckpointConfig{Dir: "."},
		Mongo:      MongoConfig{Database: "news"},
	}
}
