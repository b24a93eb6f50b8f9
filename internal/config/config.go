package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"tablebook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig          `yaml:"app"`
	Database    DatabaseConfig     `yaml:"database"`
	Redis       RedisConfig        `yaml:"redis"`
	Cache       CacheConfig        `yaml:"cache"`
	Booking     BookingConfig      `yaml:"booking"`
	NATS        NATSConfig         `yaml:"nats"`
	Telegram    TelegramConfig     `yaml:"telegram"`
	Google      GoogleConfig       `yaml:"google"`
	Exports     ExportConfig       `yaml:"exports"`
	Backup      BackupConfig       `yaml:"backup"`
	Monitoring  MonitoringConfig   `yaml:"monitoring"`
	Logging     LoggingConfig      `yaml:"logging"`
	API         APIConfig          `yaml:"api"`
	Restaurants []RestaurantConfig `yaml:"restaurants"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

// Location resolves the configured time zone used for "today".
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(a.Timezone)
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

type DatabaseConfig struct {
	Driver string      `yaml:"driver"`
	Path   string      `yaml:"path"`
	Mongo  MongoConfig `yaml:"mongo"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type CacheConfig struct {
	AvailabilityTTL time.Duration `yaml:"availability_ttl"`
}

type BookingConfig struct {
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
	DistributedLocks  bool          `yaml:"distributed_locks"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	NotifyQueueSize   int           `yaml:"notify_queue_size"`
	NotifyWorkers     int           `yaml:"notify_workers"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
	BookingsSheetName     string `yaml:"bookings_sheet_name"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	StoragePath   string        `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
	JWTSecret    string         `yaml:"jwt_secret"`
	JWTIssuer    string         `yaml:"jwt_issuer"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RestaurantConfig seeds the restaurant catalog and, optionally, an initial
// availability configuration stored when none exists yet.
type RestaurantConfig struct {
	ID           string                         `yaml:"id"`
	Name         string                         `yaml:"name"`
	StaffChatID  int64                          `yaml:"staff_chat_id"`
	Availability *models.RestaurantAvailability `yaml:"availability"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case DriverMongo:
		if c.Database.Mongo.URI == "" {
			return errors.New("mongo uri is required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	if c.Booking.DistributedLocks && c.Redis.Address == "" {
		return errors.New("distributed locks require redis")
	}
	// slot locks must outlive the request holding them
	if c.Booking.LockTTL > 0 && c.Booking.RequestTimeout >= c.Booking.LockTTL {
		return fmt.Errorf("booking lock_ttl (%s) must exceed request_timeout (%s)", c.Booking.LockTTL, c.Booking.RequestTimeout)
	}

	return ValidateRestaurants(c.Restaurants)
}

func ValidateRestaurants(restaurants []RestaurantConfig) error {
	ids := make(map[string]bool)
	for _, r := range restaurants {
		if r.ID == "" {
			return fmt.Errorf("restaurant '%s' has empty ID", r.Name)
		}
		if ids[r.ID] {
			return fmt.Errorf("duplicate restaurant ID found: %s", r.ID)
		}
		ids[r.ID] = true
		if r.Availability != nil && r.Availability.RestaurantID != "" && r.Availability.RestaurantID != r.ID {
			return fmt.Errorf("restaurant %s: availability belongs to %s", r.ID, r.Availability.RestaurantID)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tablebook"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Mongo.Database == "" {
		c.Database.Mongo.Database = "tablebook"
	}
	if c.Cache.AvailabilityTTL == 0 {
		c.Cache.AvailabilityTTL = 5 * time.Minute
	}

	if c.Booking.RequestTimeout == 0 {
		c.Booking.RequestTimeout = 5 * time.Second
	}
	if c.Booking.LockTTL == 0 {
		c.Booking.LockTTL = 10 * time.Second
	}
	if c.Booking.RateLimitWindow == 0 {
		c.Booking.RateLimitWindow = time.Minute
	}
	if c.Booking.RetryDelay == 0 {
		c.Booking.RetryDelay = 50 * time.Millisecond
	}
	if c.Booking.NotifyQueueSize == 0 {
		c.Booking.NotifyQueueSize = models.WorkerQueueSize
	}
	if c.Booking.NotifyWorkers == 0 {
		c.Booking.NotifyWorkers = 2
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "tablebook"
	}
	if c.Google.BookingsSheetName == "" {
		c.Google.BookingsSheetName = "Bookings"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}

	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 20
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 40
	}
}
