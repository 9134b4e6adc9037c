package service

import (
	"database/sql"

	"go.uber.org/zap"

	"eli-dashboard/internal/bucketing"
	"eli-dashboard/internal/config"
	"eli-dashboard/internal/metrics"
	"eli-dashboard/internal/repository/neo4j"
	"eli-dashboard/internal/repository/postgres"
)

// Dependencies are the long-lived handles services are built from. Optional
// handles are nil interfaces when their backend is not configured.
type Dependencies struct {
	Config    *config.Config
	DB        *sql.DB
	Graph     neo4j.Runner
	Generator Generator
	Traffic   TrafficSource
	Producer  MessageProducer
	Throttle  LoginThrottle
	Audit     AuditRecorder
	Search    EventSearcher
	Presigner Presigner
	Verifier  PasswordVerifier
	Bucketing *bucketing.BucketingManager
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	deps Dependencies

	dashboardRepo *postgres.DashboardRepository
	eventRepo     *postgres.EventRepository
	snapshotRepo  *postgres.SnapshotRepository
	anomalyRepo   *postgres.AnomalyRepository
	notifier      *Notifier

	authService      *AuthService
	dashboardService *DashboardService
	graphService     *GraphService
	eventService     *EventService
	snapshotService  *SnapshotService
	userService      *UserService
	aiMetricsService *AIMetricsService
	anomalyService   *AnomalyService
	streamService    *StreamService
	aiService        *AIService
	mediaService     *MediaService
}

func NewServiceFactory(deps Dependencies) *ServiceFactory {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &ServiceFactory{deps: deps}
}

func (f *ServiceFactory) named(name string) *zap.Logger {
	return f.deps.Logger.Named(name)
}

func (f *ServiceFactory) dashboardRepository() *postgres.DashboardRepository {
	if f.dashboardRepo == nil {
		f.dashboardRepo = postgres.NewDashboardRepository(f.deps.DB)
	}
	return f.dashboardRepo
}

func (f *ServiceFactory) eventRepository() *postgres.EventRepository {
	if f.eventRepo == nil {
		f.eventRepo = postgres.NewEventRepository(f.deps.DB)
	}
	return f.eventRepo
}

func (f *ServiceFactory) snapshotRepository() *postgres.SnapshotRepository {
	if f.snapshotRepo == nil {
		f.snapshotRepo = postgres.NewSnapshotRepository(f.deps.DB)
	}
	return f.snapshotRepo
}

func (f *ServiceFactory) anomalyRepository() *postgres.AnomalyRepository {
	if f.anomalyRepo == nil {
		f.anomalyRepo = postgres.NewAnomalyRepository(f.deps.DB)
	}
	return f.anomalyRepo
}

func (f *ServiceFactory) alertNotifier() *Notifier {
	if f.notifier == nil {
		cfg := f.deps.Config.Kafka
		f.notifier = NewNotifier(f.deps.Producer, cfg.AnomalyTopic, cfg.AlertTopic, f.named("notifier"))
	}
	return f.notifier
}

func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.deps.Config.Auth,
			f.deps.Verifier,
			f.deps.Throttle,
			f.deps.Audit,
			f.deps.Metrics,
			f.named("auth"),
		)
	}
	return f.authService
}

func (f *ServiceFactory) DashboardService() *DashboardService {
	if f.dashboardService == nil {
		f.dashboardService = NewDashboardService(f.dashboardRepository(), f.eventRepository(), f.named("dashboard"))
	}
	return f.dashboardService
}

// GraphService returns a service whose calls fail with ErrNotConfigured when
// no graph store is wired.
func (f *ServiceFactory) GraphService() *GraphService {
	if f.graphService == nil {
		var graph GraphStore
		var identities IdentityStore
		if f.deps.Graph != nil {
			graph = neo4j.NewGraphRepository(f.deps.Graph)
			identities = neo4j.NewIdentityRepository(f.deps.Graph)
		}
		f.graphService = NewGraphService(graph, identities, f.deps.Bucketing, f.named("graph"))
	}
	return f.graphService
}

func (f *ServiceFactory) EventService() *EventService {
	if f.eventService == nil {
		f.eventService = NewEventService(f.eventRepository(), f.snapshotRepository(), f.deps.Search, f.named("events"))
	}
	return f.eventService
}

func (f *ServiceFactory) SnapshotService() *SnapshotService {
	if f.snapshotService == nil {
		f.snapshotService = NewSnapshotService(f.snapshotRepository(), f.named("snapshots"))
	}
	return f.snapshotService
}

func (f *ServiceFactory) UserService() *UserService {
	if f.userService == nil {
		f.userService = NewUserService(postgres.NewUserRepository(f.deps.DB), f.named("users"))
	}
	return f.userService
}

func (f *ServiceFactory) AIMetricsService() *AIMetricsService {
	if f.aiMetricsService == nil {
		f.aiMetricsService = NewAIMetricsService(
			postgres.NewDetectionRepository(f.deps.DB),
			f.alertNotifier(),
			f.deps.Metrics,
			f.named("ai_metrics"),
		)
	}
	return f.aiMetricsService
}

func (f *ServiceFactory) AnomalyService() *AnomalyService {
	if f.anomalyService == nil {
		f.anomalyService = NewAnomalyService(
			f.dashboardRepository(),
			f.anomalyRepository(),
			f.alertNotifier(),
			f.deps.Metrics,
			f.named("anomaly"),
		)
	}
	return f.anomalyService
}

func (f *ServiceFactory) StreamService() *StreamService {
	if f.streamService == nil {
		cfg := f.deps.Config.Stream
		f.streamService = NewStreamService(f.anomalyRepository(), cfg.PollInterval, cfg.BatchSize, cfg.Lookback, f.named("stream"))
	}
	return f.streamService
}

func (f *ServiceFactory) AIService() *AIService {
	if f.aiService == nil {
		var flow FlowStore
		if f.deps.Graph != nil {
			flow = neo4j.NewGraphRepository(f.deps.Graph)
		}
		f.aiService = NewAIService(
			f.dashboardRepository(),
			f.anomalyRepository(),
			postgres.NewInsightRepository(f.deps.DB),
			flow,
			f.deps.Generator,
			f.deps.Traffic,
			f.named("ai"),
		)
	}
	return f.aiService
}

func (f *ServiceFactory) MediaService() *MediaService {
	if f.mediaService == nil {
		f.mediaService = NewMediaService(f.snapshotRepository(), f.deps.Presigner, f.named("media"))
	}
	return f.mediaService
}
