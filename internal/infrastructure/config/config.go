package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Freshness bounds for warehouse stock snapshots.
const (
	MinFreshnessThreshold     = 15 * time.Minute
	MaxFreshnessThreshold     = 60 * time.Minute
	DefaultFreshnessThreshold = 30 * time.Minute
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	Signature    SignatureConfig
	ERP          ERPConfig
	Dispatch     DispatchConfig
	StockSync    StockSyncConfig
	Orchestrator OrchestratorConfig
	Storage      StorageConfig
	Printing     PrintingConfig
	Telemetry    TelemetryConfig
	Swagger      SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// RedisConfig holds Redis connection settings.
// When disabled the sync lock and webhook dedup fall back to process memory.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
}

// SignatureConfig holds the e-signature provider client settings
type SignatureConfig struct {
	BaseURL  string
	Token    string
	SignerID string // company-side signer registered with the provider
	Timeout  time.Duration
}

// ERPConfig holds the ERP (1C) client settings
type ERPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// DispatchConfig holds the driver dispatch broker settings
type DispatchConfig struct {
	Enabled         bool
	AMQPURL         string
	Exchange        string
	PublishTimeout  time.Duration
	PickupAddress   string
	PickupLatitude  float64
	PickupLongitude float64
}

// StockSyncConfig holds warehouse stock synchronization settings
type StockSyncConfig struct {
	FreshnessThreshold time.Duration
	LockTTL            time.Duration
	Workers            int
	QueueSize          int
	JobTimeout         time.Duration
	SweepInterval      time.Duration
	RetryAttempts      int
}

// OrchestratorConfig holds retry and timeout policy for outbound calls
type OrchestratorConfig struct {
	RetryAttempts        int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	ExternalCallTimeout  time.Duration
}

// StorageConfig holds S3-compatible artifact storage settings
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// PrintingConfig holds document rendering settings
type PrintingConfig struct {
	PDFEnabled      bool
	ChromeRemoteURL string // empty launches a local headless Chrome
	Timeout         time.Duration
}

// TelemetryConfig holds OpenTelemetry and profiling configuration.
// Enabled gates traces; metrics, logs and profiles have their own switches.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool // development only
	DBTraceEnabled    bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	ProfilingEnabled  bool
	ProfilingServer   string
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PROC_ prefix (e.g., PROC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PROC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.name"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
		},
		Signature: SignatureConfig{
			BaseURL:  v.GetString("signature.base_url"),
			Token:    v.GetString("signature.token"),
			SignerID: v.GetString("signature.signer_id"),
			Timeout:  v.GetDuration("signature.timeout"),
		},
		ERP: ERPConfig{
			BaseURL: v.GetString("erp.base_url"),
			Token:   v.GetString("erp.token"),
			Timeout: v.GetDuration("erp.timeout"),
		},
		Dispatch: DispatchConfig{
			Enabled:         v.GetBool("dispatch.enabled"),
			AMQPURL:         v.GetString("dispatch.amqp_url"),
			Exchange:        v.GetString("dispatch.exchange"),
			PublishTimeout:  v.GetDuration("dispatch.publish_timeout"),
			PickupAddress:   v.GetString("dispatch.pickup_address"),
			PickupLatitude:  v.GetFloat64("dispatch.pickup_latitude"),
			PickupLongitude: v.GetFloat64("dispatch.pickup_longitude"),
		},
		StockSync: StockSyncConfig{
			FreshnessThreshold: v.GetDuration("stock_sync.freshness_threshold"),
			LockTTL:            v.GetDuration("stock_sync.lock_ttl"),
			Workers:            v.GetInt("stock_sync.workers"),
			QueueSize:          v.GetInt("stock_sync.queue_size"),
			JobTimeout:         v.GetDuration("stock_sync.job_timeout"),
			SweepInterval:      v.GetDuration("stock_sync.sweep_interval"),
			RetryAttempts:      v.GetInt("stock_sync.retry_attempts"),
		},
		Orchestrator: OrchestratorConfig{
			RetryAttempts:        v.GetInt("orchestrator.retry_attempts"),
			RetryInitialInterval: v.GetDuration("orchestrator.retry_initial_interval"),
			RetryMaxInterval:     v.GetDuration("orchestrator.retry_max_interval"),
			ExternalCallTimeout:  v.GetDuration("orchestrator.external_call_timeout"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Printing: PrintingConfig{
			PDFEnabled:      v.GetBool("printing.pdf_enabled"),
			ChromeRemoteURL: v.GetString("printing.chrome_remote_url"),
			Timeout:         v.GetDuration("printing.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:  v.GetBool("telemetry.profiling_enabled"),
			ProfilingServer:   v.GetString("telemetry.profiling_server"),
		},
		Swagger: SwaggerConfig{
			Enabled: v.GetBool("swagger.enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "procurement"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "procurement"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "procurement"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB, signatures are base64
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// No default origins: cross-origin access must be configured explicitly.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Delivery-ID"}
	}
	if cfg.Signature.Timeout == 0 {
		cfg.Signature.Timeout = 30 * time.Second
	}
	if cfg.ERP.Timeout == 0 {
		cfg.ERP.Timeout = 20 * time.Second
	}
	if cfg.Dispatch.Exchange == "" {
		cfg.Dispatch.Exchange = "dispatch"
	}
	if cfg.Dispatch.PublishTimeout == 0 {
		cfg.Dispatch.PublishTimeout = 5 * time.Second
	}
	if cfg.StockSync.FreshnessThreshold == 0 {
		cfg.StockSync.FreshnessThreshold = DefaultFreshnessThreshold
	}
	if cfg.StockSync.LockTTL == 0 {
		cfg.StockSync.LockTTL = 5 * time.Minute
	}
	if cfg.StockSync.Workers == 0 {
		cfg.StockSync.Workers = 4
	}
	if cfg.StockSync.QueueSize == 0 {
		cfg.StockSync.QueueSize = 64
	}
	if cfg.StockSync.JobTimeout == 0 {
		cfg.StockSync.JobTimeout = 2 * time.Minute
	}
	if cfg.StockSync.SweepInterval == 0 {
		cfg.StockSync.SweepInterval = 5 * time.Minute
	}
	if cfg.StockSync.RetryAttempts == 0 {
		cfg.StockSync.RetryAttempts = 3
	}
	if cfg.Orchestrator.RetryAttempts == 0 {
		cfg.Orchestrator.RetryAttempts = 3
	}
	if cfg.Orchestrator.RetryInitialInterval == 0 {
		cfg.Orchestrator.RetryInitialInterval = 200 * time.Millisecond
	}
	if cfg.Orchestrator.RetryMaxInterval == 0 {
		cfg.Orchestrator.RetryMaxInterval = 5 * time.Second
	}
	if cfg.Orchestrator.ExternalCallTimeout == 0 {
		cfg.Orchestrator.ExternalCallTimeout = 30 * time.Second
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "procurement-documents"
	}
	if cfg.Printing.Timeout == 0 {
		cfg.Printing.Timeout = 30 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.StockSync.FreshnessThreshold < MinFreshnessThreshold || c.StockSync.FreshnessThreshold > MaxFreshnessThreshold {
		return fmt.Errorf("stock_sync.freshness_threshold must be between %s and %s, got %s",
			MinFreshnessThreshold, MaxFreshnessThreshold, c.StockSync.FreshnessThreshold)
	}
	if c.StockSync.Workers < 1 {
		return fmt.Errorf("stock_sync.workers must be positive")
	}
	if c.Orchestrator.RetryAttempts < 1 {
		return fmt.Errorf("orchestrator.retry_attempts must be at least 1")
	}

	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Signature.BaseURL == "" {
			return fmt.Errorf("signature.base_url is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.ProfilingEnabled && c.Telemetry.ProfilingServer == "" {
		return fmt.Errorf("telemetry.profiling_server is required when profiling is enabled")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
