package config

import (
	"fmt"
	"strings"
	"time"

	"eli-dashboard/internal/util"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment   string
	Server        ServerConfig
	Logging       LoggingConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Postgres      PostgresConfig
	Neo4j         Neo4jConfig
	Vertex        VertexConfig
	Cloudflare    CloudflareConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Clickhouse    ClickhouseConfig
	Elasticsearch ElasticsearchConfig
	Media         MediaConfig
	Metrics       MetricsConfig
	Stream        StreamConfig
}

type ServerConfig struct {
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AuthConfig struct {
	JWTSecret    string
	Password     string
	PasswordHash string
	TokenTTL     time.Duration
	CookieName   string

	// failed-login throttling, enforced only when Redis is available
	MaxFailedLogins int
	FailureWindow   time.Duration
	LockDuration    time.Duration

	Argon2MemoryCost  int
	Argon2TimeCost    int
	Argon2Parallelism int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

type VertexConfig struct {
	ProjectID          string
	Location           string
	Model              string
	ServiceAccountJSON string
	APIKey             string
}

type CloudflareConfig struct {
	APIToken  string
	AccountID string
	Endpoint  string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers      []string
	AnomalyTopic string
	AlertTopic   string
}

type ClickhouseConfig struct {
	URL        string
	Username   string
	Password   string
	Database   string
	AuditTable string
}

type ElasticsearchConfig struct {
	URL         string
	Username    string
	Password    string
	EventsIndex string
}

type MediaConfig struct {
	S3Region      string
	PresignExpiry time.Duration
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type StreamConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Lookback     time.Duration
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() *Config {
	_ = godotenv.Load()

	env := util.GetEnv("APP_ENV", util.GetEnv("NODE_ENV", "development"))

	cfg := &Config{
		Environment: env,
		Server: ServerConfig{
			Port:         util.GetEnvInt("PORT", 5001),
			TLSPort:      util.GetEnvInt("TLS_PORT", 8443),
			EnableTLS:    util.GetEnvBool("ENABLE_TLS", false),
			AutoCert:     util.GetEnvBool("AUTO_CERT", false),
			Domain:       util.GetEnv("DOMAIN", "localhost"),
			CertFile:     util.GetEnv("TLS_CERT_FILE", ""),
			KeyFile:      util.GetEnv("TLS_KEY_FILE", ""),
			AutoCertDir:  util.GetEnv("AUTO_CERT_DIR", "./certs"),
			Email:        util.GetEnv("AUTO_CERT_EMAIL", ""),
			ReadTimeout:  util.GetEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: util.GetEnvDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			IdleTimeout:  util.GetEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Logging: LoggingConfig{
			Level:  util.GetEnv("LOG_LEVEL", "info"),
			Format: util.GetEnv("LOG_FORMAT", defaultLogFormat(env)),
		},
		Auth: AuthConfig{
			JWTSecret:         util.GetEnv("JWT_SECRET", ""),
			Password:          util.GetEnv("APP_PASSWORD", ""),
			PasswordHash:      util.GetEnv("APP_PASSWORD_HASH", ""),
			TokenTTL:          util.GetEnvDuration("JWT_TTL", 24*time.Hour),
			CookieName:        "authToken",
			MaxFailedLogins:   util.GetEnvInt("LOGIN_MAX_FAILURES", 5),
			FailureWindow:     util.GetEnvDuration("LOGIN_FAILURE_WINDOW", 15*time.Minute),
			LockDuration:      util.GetEnvDuration("LOGIN_LOCK_DURATION", 15*time.Minute),
			Argon2MemoryCost:  util.GetEnvInt("ARGON2_MEMORY_COST", 64*1024),
			Argon2TimeCost:    util.GetEnvInt("ARGON2_TIME_COST", 3),
			Argon2Parallelism: util.GetEnvInt("ARGON2_PARALLELISM", 2),
		},
		CORS: CORSConfig{
			AllowedOrigins: util.GetEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		},
		Postgres: PostgresConfig{
			URL:             util.GetEnv("DATABASE_URL", util.GetEnv("POSTGRES_URL", "")),
			MaxOpenConns:    util.GetEnvInt("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    util.GetEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: util.GetEnvDuration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Neo4j: Neo4jConfig{
			URI:      util.GetEnv("NEO4J_URI", ""),
			Username: util.GetEnv("NEO4J_USERNAME", "neo4j"),
			Password: util.GetEnv("NEO4J_PASSWORD", ""),
			Database: util.GetEnv("NEO4J_DATABASE", "neo4j"),
		},
		Vertex: VertexConfig{
			ProjectID:          util.GetEnv("GOOGLE_PROJECT_ID", ""),
			Location:           util.GetEnv("GOOGLE_LOCATION", "us-central1"),
			Model:              util.GetEnv("VERTEX_MODEL", "gemini-1.5-flash-002"),
			ServiceAccountJSON: util.GetEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
			APIKey:             util.GetEnv("GOOGLE_API_KEY", ""),
		},
		Cloudflare: CloudflareConfig{
			APIToken:  util.GetEnv("CLOUDFLARE_API_TOKEN", ""),
			AccountID: util.GetEnv("CLOUDFLARE_ACCOUNT_ID", ""),
			Endpoint:  util.GetEnv("CLOUDFLARE_GRAPHQL_URL", "https://api.cloudflare.com/client/v4/graphql"),
		},
		Redis: RedisConfig{
			URL:      util.GetEnv("REDIS_URL", ""),
			Password: util.GetEnv("REDIS_PASSWORD", ""),
			DB:       util.GetEnvInt("REDIS_DB", 0),
			PoolSize: util.GetEnvInt("REDIS_POOL_SIZE", 20),
		},
		Kafka: KafkaConfig{
			Brokers:      util.GetEnvList("KAFKA_BROKERS", nil),
			AnomalyTopic: util.GetEnv("KAFKA_ANOMALY_TOPIC", "eli.anomalies"),
			AlertTopic:   util.GetEnv("KAFKA_ALERT_TOPIC", "eli.alerts"),
		},
		Clickhouse: ClickhouseConfig{
			URL:        util.GetEnv("CLICKHOUSE_URL", ""),
			Username:   util.GetEnv("CLICKHOUSE_USERNAME", "default"),
			Password:   util.GetEnv("CLICKHOUSE_PASSWORD", ""),
			Database:   util.GetEnv("CLICKHOUSE_DATABASE", "default"),
			AuditTable: util.GetEnv("CLICKHOUSE_AUDIT_TABLE", "auth_events"),
		},
		Elasticsearch: ElasticsearchConfig{
			URL:         util.GetEnv("ELASTICSEARCH_URL", ""),
			Username:    util.GetEnv("ELASTICSEARCH_USERNAME", ""),
			Password:    util.GetEnv("ELASTICSEARCH_PASSWORD", ""),
			EventsIndex: util.GetEnv("ELASTICSEARCH_EVENTS_INDEX", "eli-events"),
		},
		Media: MediaConfig{
			S3Region:      util.GetEnv("MEDIA_S3_REGION", ""),
			PresignExpiry: util.GetEnvDuration("MEDIA_PRESIGN_EXPIRY", 15*time.Minute),
		},
		Metrics: MetricsConfig{
			Enabled: util.GetEnvBool("METRICS_ENABLED", true),
			Path:    util.GetEnv("METRICS_PATH", "/metrics"),
		},
		Stream: StreamConfig{
			PollInterval: util.GetEnvDuration("STREAM_POLL_INTERVAL", 1500*time.Millisecond),
			BatchSize:    util.GetEnvInt("STREAM_BATCH_SIZE", 50),
			Lookback:     util.GetEnvDuration("STREAM_LOOKBACK", time.Minute),
		},
	}

	return cfg
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var problems []string
	if c.Postgres.URL == "" {
		problems = append(problems, "DATABASE_URL/POSTGRES_URL is not set")
	}
	if c.Stream.PollInterval <= 0 {
		problems = append(problems, "STREAM_POLL_INTERVAL must be positive")
	}
	if c.Stream.BatchSize <= 0 {
		problems = append(problems, "STREAM_BATCH_SIZE must be positive")
	}
	if c.IsProduction() {
		if c.Auth.JWTSecret == "" {
			problems = append(problems, "JWT_SECRET is required in production")
		}
		if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
			problems = append(problems, "APP_PASSWORD or APP_PASSWORD_HASH is required in production")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) Neo4jEnabled() bool  { return c.Neo4j.URI != "" }
func (c *Config) VertexEnabled() bool { return c.Vertex.ProjectID != "" && c.Vertex.Location != "" }
func (c *Config) CloudflareEnabled() bool {
	return c.Cloudflare.APIToken != "" && c.Cloudflare.AccountID != ""
}
func (c *Config) RedisEnabled() bool      { return c.Redis.URL != "" }
func (c *Config) KafkaEnabled() bool      { return len(c.Kafka.Brokers) > 0 }
func (c *Config) ClickhouseEnabled() bool { return c.Clickhouse.URL != "" }
func (c *Config) ElasticsearchEnabled() bool {
	return c.Elasticsearch.URL != ""
}
func (c *Config) MediaPresignEnabled() bool { return c.Media.S3Region != "" }

func defaultLogFormat(env string) string {
	if env == "production" {
		return "json"
	}
	return "console"
}
