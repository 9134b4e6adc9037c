package factory

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"eli-dashboard/internal/bucketing"
	"eli-dashboard/internal/client"
	"eli-dashboard/internal/config"
	"eli-dashboard/internal/handler"
	"eli-dashboard/internal/hashing"
	"eli-dashboard/internal/metrics"
	"eli-dashboard/internal/repository/clickhouse"
	"eli-dashboard/internal/repository/elasticsearch"
	"eli-dashboard/internal/repository/redis"
	"eli-dashboard/internal/service"
	"eli-dashboard/internal/tls"
	"eli-dashboard/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	tlsManager *tls.TLSManager

	// Clients
	postgresClient   *client.PostgresClient
	neo4jClient      *client.Neo4jClient
	redisClient      *client.RedisClient
	kafkaProducer    *client.KafkaProducer
	esClient         *client.ESClient
	clickhouseClient *client.ClickHouseClient
	s3Presigner      *client.S3Presigner
	vertexClient     *client.VertexClient
	cloudflareClient *client.CloudflareClient

	// Managers
	hasher           *hashing.Hasher
	bucketingManager *bucketing.BucketingManager
	metrics          *metrics.Metrics

	// Repositories
	loginLimiter *redis.LoginLimiter
	auditRepo    *clickhouse.AuthAuditRepository
	eventIndex   *elasticsearch.EventIndex

	serviceFactory *service.ServiceFactory

	closeOnce sync.Once
}

// NewFactory loads config and connects every configured backend. Postgres is
// mandatory; the rest degrade to "not configured" when absent or unreachable
// outside production.
func NewFactory() (*Factory, error) {
	cfg := config.LoadConfig()

	util.Init(cfg.Environment, cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factory := &Factory{
		config: cfg,
	}

	if cfg.Server.EnableTLS {
		factory.tlsManager = tls.NewTLSManager(&tls.TLSConfig{
			EnableTLS:   cfg.Server.EnableTLS,
			AutoCert:    cfg.Server.AutoCert,
			Domain:      cfg.Server.Domain,
			CertFile:    cfg.Server.CertFile,
			KeyFile:     cfg.Server.KeyFile,
			AutoCertDir: cfg.Server.AutoCertDir,
			Email:       cfg.Server.Email,
			Environment: cfg.Environment,
		})
	}

	if err := factory.initializeClients(); err != nil {
		factory.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	factory.initializeManagers()
	factory.initializeRepositories()

	util.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("neo4j_enabled", factory.neo4jClient != nil),
		util.Bool("redis_enabled", factory.redisClient != nil),
		util.Bool("kafka_enabled", factory.kafkaProducer != nil),
		util.Bool("clickhouse_enabled", factory.clickhouseClient != nil),
		util.Bool("elasticsearch_enabled", factory.esClient != nil),
		util.Bool("vertex_enabled", factory.vertexClient.Enabled()),
		util.Bool("cloudflare_enabled", factory.cloudflareClient.Enabled()),
	)

	return factory, nil
}

// initializeClients connects Postgres first, then every optional backend
// whose settings are present.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := client.NewPostgresClient(f.config)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	f.postgresClient = pg

	var initErrors []error

	if f.config.Neo4jEnabled() {
		if c, err := client.NewNeo4jClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("neo4j: %w", err))
		} else {
			f.neo4jClient = c
		}
	}

	if f.config.RedisEnabled() {
		if c, err := client.NewRedisClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else {
			f.redisClient = c
		}
	}

	if f.config.KafkaEnabled() {
		if producer, err := client.NewKafkaProducer(f.config); err != nil {
			util.Warn("Kafka producer initialization failed - proceeding without Kafka", util.ErrorField(err))
		} else {
			f.kafkaProducer = producer
		}
	}

	if f.config.ElasticsearchEnabled() {
		if c, err := client.NewElasticsearchClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else {
			f.esClient = c
		}
	}

	if f.config.ClickhouseEnabled() {
		if c, err := client.NewClickHouseClient(f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("clickhouse: %w", err))
		} else {
			f.clickhouseClient = c
		}
	}

	if f.config.MediaPresignEnabled() {
		if p, err := client.NewS3Presigner(ctx, f.config); err != nil {
			initErrors = append(initErrors, fmt.Errorf("s3: %w", err))
		} else {
			f.s3Presigner = p
		}
	}

	if f.config.VertexEnabled() {
		if v, err := client.NewVertexClient(ctx, f.config); err != nil {
			util.Warn("Vertex AI initialization failed - AI endpoints will report not configured", util.ErrorField(err))
		} else {
			f.vertexClient = v
		}
	}

	if f.config.CloudflareEnabled() {
		f.cloudflareClient = client.NewCloudflareClient(f.config)
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			util.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

// initializeManagers initializes hashing, bucketing and metrics
func (f *Factory) initializeManagers() {
	f.hasher = hashing.NewHasher(f.config)
	f.bucketingManager = bucketing.NewBucketingManager()
	if f.config.Metrics.Enabled {
		f.metrics = metrics.New()
	}

	util.Info("Managers initialized successfully",
		util.Bool("hashing_initialized", f.hasher != nil),
		util.Bool("bucketing_initialized", f.bucketingManager != nil),
		util.Bool("metrics_enabled", f.metrics != nil),
	)
}

func (f *Factory) initializeRepositories() {
	auth := f.config.Auth
	if f.redisClient != nil {
		f.loginLimiter = redis.NewLoginLimiter(f.redisClient, auth.MaxFailedLogins, auth.FailureWindow, auth.LockDuration)
	}

	if f.clickhouseClient != nil {
		repo, err := clickhouse.NewAuthAuditRepository(f.clickhouseClient, f.config.Clickhouse.AuditTable)
		if err != nil {
			util.Warn("Auth audit disabled", util.ErrorField(err))
		} else {
			f.auditRepo = repo
		}
	}

	if f.esClient != nil {
		f.eventIndex = elasticsearch.NewEventIndex(f.esClient, f.config.Elasticsearch.EventsIndex)
	}
}

// ==============================
// Service Factory
// ==============================

// ServiceFactory converts the typed client pointers into service interfaces.
// A nil pointer must become a nil interface, not a typed nil.
func (f *Factory) ServiceFactory() *service.ServiceFactory {
	if f.serviceFactory == nil {
		deps := service.Dependencies{
			Config:    f.config,
			DB:        f.postgresClient.DB,
			Generator: f.vertexClient,
			Traffic:   f.cloudflareClient,
			Verifier:  f.hasher,
			Bucketing: f.bucketingManager,
			Metrics:   f.metrics,
			Logger:    util.Get(),
		}
		if f.neo4jClient != nil {
			deps.Graph = f.neo4jClient
		}
		if f.kafkaProducer != nil {
			deps.Producer = f.kafkaProducer
		}
		if f.loginLimiter != nil {
			deps.Throttle = f.loginLimiter
		}
		if f.auditRepo != nil {
			deps.Audit = f.auditRepo
		}
		if f.eventIndex != nil {
			deps.Search = f.eventIndex
		}
		if f.s3Presigner != nil {
			deps.Presigner = f.s3Presigner
		}
		f.serviceFactory = service.NewServiceFactory(deps)
	}
	return f.serviceFactory
}

// Router wires every handler onto the chi router.
func (f *Factory) Router() http.Handler {
	sf := f.ServiceFactory()
	logger := util.Get()

	handlers := handler.Handlers{
		Auth: handler.NewAuthHandler(sf.AuthService(), f.config.IsProduction(), util.Named("auth_handler")),
		System: handler.NewSystemHandler(
			deploymentInfo(f.config, f.postgresClient != nil, f.neo4jClient != nil),
			logger,
		).WithReadiness(f.HealthCheck),
		Dashboard: handler.NewDashboardHandler(sf.DashboardService(), sf.GraphService(), logger),
		Events:    handler.NewEventHandler(sf.EventService(), logger),
		Snapshots: handler.NewSnapshotHandler(sf.SnapshotService(), logger),
		Users:     handler.NewUserHandler(sf.UserService(), logger),
		AI: handler.NewAIHandler(
			sf.AIMetricsService(),
			sf.AnomalyService(),
			sf.StreamService(),
			sf.AIService(),
			f.metrics,
			util.Named("ai_handler"),
		),
		Media: handler.NewMediaHandler(sf.MediaService(), logger),
	}

	return handler.NewRouter(handlers, handler.RouterOptions{
		AllowedOrigins: f.config.CORS.AllowedOrigins,
		RequireHTTPS:   f.config.IsProduction() && f.config.Server.EnableTLS,
		Metrics:        f.metrics,
		MetricsPath:    f.config.Metrics.Path,
	}, logger)
}

// deploymentInfo reports auth as configured once a login password exists.
func deploymentInfo(cfg *config.Config, hasDatabase, hasNeo4j bool) handler.DeploymentInfo {
	return handler.DeploymentInfo{
		Environment: cfg.Environment,
		HasDatabase: hasDatabase,
		HasNeo4j:    hasNeo4j,
		HasAuth:     cfg.Auth.Password != "" || cfg.Auth.PasswordHash != "",
	}
}

// ==============================
// Health Checks
// ==============================

// HealthCheck pings every connected backend. Backends that were never
// configured are not reported.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	healthErrors := make(map[string]error)

	if f.postgresClient != nil {
		if err := f.postgresClient.HealthCheck(ctx); err != nil {
			healthErrors["postgres"] = err
		}
	} else {
		healthErrors["postgres"] = fmt.Errorf("postgres client not initialized")
	}

	if f.neo4jClient != nil {
		if err := f.neo4jClient.HealthCheck(ctx); err != nil {
			healthErrors["neo4j"] = err
		}
	}

	if f.redisClient != nil {
		if err := f.redisClient.HealthCheck(ctx); err != nil {
			healthErrors["redis"] = err
		}
	}

	if f.esClient != nil {
		if err := f.esClient.HealthCheck(ctx); err != nil {
			healthErrors["elasticsearch"] = err
		}
	}

	if f.clickhouseClient != nil {
		if err := f.clickhouseClient.HealthCheck(ctx); err != nil {
			healthErrors["clickhouse"] = err
		}
	}

	if f.kafkaProducer != nil {
		if err := f.kafkaProducer.HealthCheck(ctx); err != nil {
			healthErrors["kafka"] = err
		}
	}

	return healthErrors
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		util.Info("Shutting down factory...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				util.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				util.Info("ClickHouse client closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			util.Info("Elasticsearch client closed")
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				util.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				util.Info("Kafka producer closed")
			}
		}

		if f.vertexClient != nil {
			f.vertexClient.Close()
		}

		if f.neo4jClient != nil {
			if err := f.neo4jClient.Close(ctx); err != nil {
				util.Error("Failed to close Neo4j driver", util.ErrorField(err))
			} else {
				util.Info("Neo4j driver closed")
			}
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				util.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				util.Info("Redis client closed")
			}
		}

		if f.postgresClient != nil {
			if err := f.postgresClient.Close(); err != nil {
				util.Error("Failed to close Postgres pool", util.ErrorField(err))
			} else {
				util.Info("Postgres pool closed")
			}
		}

		util.Sync()
		util.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.TLSManager {
	return f.tlsManager
}
