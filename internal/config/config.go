// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/askthws/harvester/internal/blob"
	"github.com/askthws/harvester/internal/store"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Stats   StatsConfig   `mapstructure:"stats"`
}

// ServerConfig controls the stats HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the crawl loop.
type CrawlerConfig struct {
	Seeds              []string `mapstructure:"seeds"`
	AllowedDomains     []string `mapstructure:"allowed_domains"`
	UserAgent          string   `mapstructure:"user_agent"`
	Concurrency        int      `mapstructure:"concurrency"`
	TimeoutSeconds     int      `mapstructure:"timeout_seconds"`
	Retries            int      `mapstructure:"retries"`
	RedirectLimit      int      `mapstructure:"redirect_limit"`
	DelayMilliseconds  int      `mapstructure:"delay_milliseconds"`
	MaxBodySizeMB      int      `mapstructure:"max_body_size_mb"`
	IgnoredURLPatterns []string `mapstructure:"ignored_url_patterns"`
	SoftErrorStrings   []string `mapstructure:"soft_error_strings"`
	RespectRobots      bool     `mapstructure:"respect_robots"`
	RobotsBypassPrefix string   `mapstructure:"robots_bypass_prefix"`
	ParseWorkers       int      `mapstructure:"parse_workers"`
	ParseQueueDepth    int      `mapstructure:"parse_queue_depth"`
}

// Timeout converts the configured fetch timeout into a duration.
func (c CrawlerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Delay converts the configured per-domain delay into a duration.
func (c CrawlerConfig) Delay() time.Duration {
	return time.Duration(c.DelayMilliseconds) * time.Millisecond
}

// DBConfig controls access to Postgres.
type DBConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Name       string `mapstructure:"name"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	SSLMode    string `mapstructure:"ssl_mode"`
	PagesTable string `mapstructure:"pages_table"`
	FilesTable string `mapstructure:"files_table"`
	MaxConns   int32  `mapstructure:"max_conns"`
}

// DSN assembles a pgx connection string from the discrete fields.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// StorageConfig selects the blob backend for oversized payloads.
type StorageConfig struct {
	Backend        string `mapstructure:"backend"`
	BaseDir        string `mapstructure:"base_dir"`
	GCSBucket      string `mapstructure:"gcs_bucket"`
	ThresholdBytes int64  `mapstructure:"threshold_bytes"`
}

// BlobConfig converts the storage section into the blob package config.
func (s StorageConfig) BlobConfig() blob.Config {
	return blob.Config{
		Backend:   s.Backend,
		BaseDir:   s.BaseDir,
		GCSBucket: s.GCSBucket,
	}
}

// LoggingConfig toggles zap development features and the rotating log file.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	FileEnabled bool   `mapstructure:"file_enabled"`
	FilePath    string `mapstructure:"file_path"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
}

// StatsConfig controls the shutdown statistics export.
type StatsConfig struct {
	CSVEnabled bool   `mapstructure:"csv_enabled"`
	CSVDir     string `mapstructure:"csv_dir"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("crawler.seeds", []string{"https://www.thws.de/", "https://fiw.thws.de/"})
	v.SetDefault("crawler.allowed_domains", []string{"thws.de"})
	v.SetDefault("crawler.user_agent", "askthws-harvester/0.4.0")
	v.SetDefault("crawler.concurrency", 16)
	v.SetDefault("crawler.timeout_seconds", 60)
	v.SetDefault("crawler.retries", 3)
	v.SetDefault("crawler.redirect_limit", 20)
	v.SetDefault("crawler.delay_milliseconds", 0)
	v.SetDefault("crawler.max_body_size_mb", 100)
	v.SetDefault("crawler.ignored_url_patterns", []string{
		"tx_fhwsvideo_frontend",
		"/videos/",
		"/wp-content/uploads/",
		"/login/",
	})
	v.SetDefault("crawler.soft_error_strings", []string{
		"diese seite existiert nicht",
		"this page does not exist",
		"seite nicht gefunden",
		"not found",
		"404",
		"sorry, there is no translation for this news-article.",
		"studierende melden sich mit ihrer k-nummer als benutzername am e-learning system an.",
		"falls sie die seitenadresse manuell in ihren browser eingegeben haben," +
			"kontrollieren sie bitte die korrekte schreibweise.",
		"aktuell keine einträge vorhanden",
		"sorry, there are no translated news-articles in this archive period",
	})
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.robots_bypass_prefix", "/fileadmin/")
	v.SetDefault("crawler.parse_workers", 4)
	v.SetDefault("crawler.parse_queue_depth", 64)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "harvester")
	v.SetDefault("db.user", "harvester")
	v.SetDefault("db.ssl_mode", "disable")
	v.SetDefault("db.pages_table", "pages")
	v.SetDefault("db.files_table", "files")
	v.SetDefault("db.max_conns", 8)

	v.SetDefault("storage.backend", blob.BackendLocal)
	v.SetDefault("storage.base_dir", "./blobs")
	v.SetDefault("storage.threshold_bytes", int64(store.DefaultBlobThreshold))

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.file_enabled", true)
	v.SetDefault("logging.file_path", "harvester.log")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 5)

	v.SetDefault("stats.csv_enabled", true)
	v.SetDefault("stats.csv_dir", ".")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if len(c.Crawler.Seeds) == 0 {
		return fmt.Errorf("crawler.seeds must not be empty")
	}
	if len(c.Crawler.AllowedDomains) == 0 {
		return fmt.Errorf("crawler.allowed_domains must not be empty")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.Retries < 0 {
		return fmt.Errorf("crawler.retries must be >= 0")
	}
	if c.Crawler.RedirectLimit <= 0 {
		return fmt.Errorf("crawler.redirect_limit must be > 0")
	}
	if c.Crawler.ParseWorkers <= 0 {
		return fmt.Errorf("crawler.parse_workers must be > 0")
	}
	switch c.Storage.Backend {
	case blob.BackendLocal:
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for the local backend")
		}
	case blob.BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	case blob.BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of local, memory, gcs")
	}
	if c.Storage.ThresholdBytes <= 0 {
		return fmt.Errorf("storage.threshold_bytes must be > 0")
	}
	return nil
}
