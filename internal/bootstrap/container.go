package bootstrap

import (
	"fmt"

	"sentinel/internal/adapters/ai"
	"sentinel/internal/adapters/config"
	redisclient "sentinel/internal/adapters/redis"
	sqliteclient "sentinel/internal/adapters/sqlite"
	"sentinel/internal/analysis"
	"sentinel/internal/api"
	"sentinel/internal/api/health"
	"sentinel/internal/domain/article"
	domainRisk "sentinel/internal/domain/risk"
	"sentinel/internal/events"
	"sentinel/internal/pipeline"
	"sentinel/internal/queue"
	sqliterepo "sentinel/internal/repository/sqlite"
	"sentinel/internal/risk"
	"sentinel/internal/themes"
	"sentinel/internal/workers"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config *config.Config
	Log    *logger.Logger

	// Infrastructure Layer (Data stores)
	RiskDB        *sqliteclient.Client
	KnowledgeDB   *sqliteclient.Client
	RiskPool      *sqliteclient.Pool
	KnowledgePool *sqliteclient.Pool
	Redis         *redisclient.Client // nil unless enabled

	// Domain Layer - Repositories
	Repos *Repositories

	// Event system
	Events *Events

	// Task queue
	Queue         *queue.Queue
	sqliteBackend *queue.SQLiteBackend
	redisBackend  *queue.RedisBackend

	// Business Logic
	Pipeline   *pipeline.Processor
	RiskCalc   *risk.Calculator
	ReadModels *api.ReadModels

	// Application Layer
	Scheduler *workers.Scheduler
	Server    *api.Server
}

// Repositories groups all data access components
type Repositories struct {
	Raw          article.RawRepository
	Articles     article.Repository
	Calculations domainRisk.Repository
	EventStore   events.Store
}

// Events groups the event system components
type Events struct {
	Store    events.Store
	Detector *events.ChangeDetector
	Emitter  *events.Emitter
}

// New builds the full dependency graph. Nothing starts running until
// the caller starts the queue, scheduler and server.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	if err := c.initStores(); err != nil {
		c.Close()
		return nil, err
	}
	c.initRepositories()
	c.initEvents()
	if err := c.initQueue(); err != nil {
		c.Close()
		return nil, err
	}
	c.initBusiness()
	c.initWorkers()
	c.initServer()

	log.Info("Container initialized",
		"queue_backend", cfg.Queue.Backend,
		"redis", c.Redis != nil,
	)
	return c, nil
}

func (c *Container) initStores() error {
	riskDB, err := sqliteclient.NewClient(c.Config.Database.RiskPath, c.Config.Database)
	if err != nil {
		return errors.Wrap(err, "open risk database")
	}
	c.RiskDB = riskDB

	knowledgeDB, err := sqliteclient.NewClient(c.Config.Database.KnowledgePath, c.Config.Database)
	if err != nil {
		return errors.Wrap(err, "open knowledge database")
	}
	c.KnowledgeDB = knowledgeDB

	c.RiskPool = sqliteclient.NewPool(riskDB, c.Config.Database.MaxConnections, c.Log)
	c.KnowledgePool = sqliteclient.NewPool(knowledgeDB, c.Config.Database.MaxConnections, c.Log)

	if c.Config.Redis.Enabled || c.Config.Queue.Backend == "redis" {
		client, err := redisclient.NewClient(c.Config.Redis)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		c.Redis = client
	}

	return nil
}

func (c *Container) initRepositories() {
	// Repositories go through the bounded pools so query traffic fails
	// fast under exhaustion instead of queueing inside database/sql.
	riskDB := sqliterepo.NewPooledDB(c.RiskPool)
	knowledgeDB := sqliterepo.NewPooledDB(c.KnowledgePool)

	c.Repos = &Repositories{
		Raw:          sqliterepo.NewRawArticleRepository(knowledgeDB),
		Articles:     sqliterepo.NewArticleRepository(riskDB),
		Calculations: sqliterepo.NewCalculationRepository(riskDB),
		EventStore:   sqliterepo.NewEventRepository(riskDB),
	}
}

func (c *Container) initEvents() {
	var cache events.HashCache
	if c.Redis != nil {
		cache = c.Redis
	}
	detector := events.NewChangeDetector(cache)

	c.Events = &Events{
		Store:    c.Repos.EventStore,
		Detector: detector,
		Emitter:  events.NewEmitter(c.Repos.EventStore, detector, c.Log),
	}
}

func (c *Container) initQueue() error {
	var backend queue.Backend
	switch c.Config.Queue.Backend {
	case "sqlite", "":
		sb := queue.NewSQLiteBackend(c.RiskDB.DB())
		c.sqliteBackend = sb
		backend = sb
	case "redis":
		rb := queue.NewRedisBackend(c.Redis, c.Config.Queue.KeyPrefix, c.Config.Queue.PollDelay)
		c.redisBackend = rb
		backend = rb
	case "memory":
		backend = queue.NewMemoryBackend()
	default:
		return errors.Newf("unknown queue backend %q", c.Config.Queue.Backend)
	}

	c.Queue = queue.New(backend, c.Config.Queue, c.Log)
	return nil
}

func (c *Container) initBusiness() {
	chat := ai.NewOpenAIProvider(c.Config.AI)

	optimizer := analysis.NewOptimizer(chat, c.Repos.Articles, *c.Config, c.Log)
	prefilter := analysis.NewPrefilter(chat, *c.Config, c.Log)
	classifier := themes.NewClassifier(chat, *c.Config, c.Log)

	c.RiskCalc = risk.NewCalculator(c.Repos.Calculations, c.Events.Emitter, c.Log)

	c.Pipeline = pipeline.NewProcessor(
		c.Repos.Raw,
		c.Repos.Articles,
		prefilter,
		optimizer,
		classifier,
		c.RiskCalc,
		c.Events.Emitter,
		c.Config.Pipeline,
		c.Log,
	)
	c.Pipeline.Register(c.Queue)

	c.ReadModels = api.NewReadModels(c.Repos.Articles, c.Repos.Calculations, c.Events.Emitter, c.Log)
}

func (c *Container) initWorkers() {
	intervals := c.Config.Workers
	scheduler := workers.NewScheduler()

	scheduler.RegisterWorker(workers.NewIngestWorker(
		c.Repos.Raw, c.Queue, c.Config.Pipeline.IngestBatchSize, intervals.IngestInterval, true))
	var locker workers.Locker
	if c.Redis != nil {
		locker = c.Redis
	}
	scheduler.RegisterWorker(workers.NewRiskWorker(c.Queue, locker, intervals.RiskInterval, true))
	scheduler.RegisterWorker(workers.NewCleanupWorker(
		c.Events.Store, c.Config.Pipeline.EventRetentionDays, intervals.CleanupInterval, true))
	scheduler.RegisterWorker(workers.NewAlertsWorker(c.ReadModels, intervals.AlertsInterval, true))

	c.Scheduler = scheduler
}

func (c *Container) initServer() {
	healthHandler := health.New(
		c.Log,
		c.RiskDB.DB(),
		c.KnowledgeDB.DB(),
		c.RiskPool,
		c.Redis,
		c.Config.App.Name,
		Version,
	)
	dashboard := api.NewDashboardHandler(
		c.Repos.Articles, c.Repos.Raw, c.Repos.Calculations, c.Queue, c.Log)
	stream := api.NewStreamHandler(c.Events.Store, c.ReadModels, c.Config.API, c.Log)

	c.Server = api.NewServer(api.ServerConfig{
		Addr:        c.Config.API.Addr(),
		ServiceName: c.Config.App.Name,
		Version:     Version,
	}, healthHandler, dashboard, stream, c.Log)
}

// Close releases infrastructure resources. Safe to call on a partially
// constructed container.
func (c *Container) Close() {
	if c.RiskPool != nil {
		c.RiskPool.Close()
	}
	if c.KnowledgePool != nil {
		c.KnowledgePool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warn("Failed to close redis", "error", err)
		}
	}
	for name, client := range map[string]*sqliteclient.Client{
		"risk":      c.RiskDB,
		"knowledge": c.KnowledgeDB,
	} {
		if client == nil {
			continue
		}
		if err := client.Close(); err != nil {
			c.Log.Warn(fmt.Sprintf("Failed to close %s database", name), "error", err)
		}
	}
}
