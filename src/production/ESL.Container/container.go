package container

import (
	"context"
	"fmt"
	"sync"

	"gitlab.com/maplesense1/esl.label_server/src/production/ESL.ApiService/health"
	"gitlab.com/maplesense1/esl.label_server/src/production/ESL.ApiService/implementation/services"
	config "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Config"
	logger "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Logger"
	publisher "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Publisher"
	renderer "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Renderer"
	implementation "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Implementation"
	interfaces "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Repository/Interfaces"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container manages dependencies and their lifecycle. Every component is
// built on first use and shared afterwards.
type Container struct {
	config *config.Config
	logger *logger.Logger

	mongoClient *mongo.Client
	labels      interfaces.LabelRepository
	logs        interfaces.TelemetryRepository
	renderer    *renderer.Renderer
	publisher   publisher.Publisher

	labelService    *services.LabelService
	healthChecker   *health.HealthChecker
	databaseManager *health.DatabaseManager

	// Mutex for thread-safe access
	mu sync.Mutex

	// Cleanup functions, run in reverse order on Shutdown
	cleanupFuncs []func() error
}

// NewContainer loads configuration from the environment and creates a container
func NewContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return NewContainerWithConfig(cfg, logger.NewLogger(&cfg.Logging)), nil
}

// NewContainerWithConfig creates a container around an existing configuration
func NewContainerWithConfig(cfg *config.Config, log *logger.Logger) *Container {
	return &Container{
		config: cfg,
		logger: log,
	}
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.logger
}

// GetMongoClient returns the shared MongoDB client, connecting on first use
func (c *Container) GetMongoClient() (*mongo.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mongoClientLocked()
}

func (c *Container) mongoClientLocked() (*mongo.Client, error) {
	if c.mongoClient != nil {
		return c.mongoClient, nil
	}

	client, err := health.ConnectMongoWithTimeout(c.config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	c.mongoClient = client
	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		return client.Disconnect(context.Background())
	})

	c.logger.Logger.Info().Str("database", c.config.Database.Name).Msg("Connected to MongoDB")
	return client, nil
}

// GetRepositories returns the registry and telemetry stores for the
// configured driver
func (c *Container) GetRepositories() (interfaces.LabelRepository, interfaces.TelemetryRepository, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repositoriesLocked()
}

func (c *Container) repositoriesLocked() (interfaces.LabelRepository, interfaces.TelemetryRepository, error) {
	if c.labels != nil {
		return c.labels, c.logs, nil
	}

	switch c.config.Database.Driver {
	case config.DriverMemory:
		c.logger.Warn("Using in-memory storage; labels are lost on restart")
		c.labels = implementation.NewMemoryLabelRepository()
		c.logs = implementation.NewMemoryTelemetryRepository()
	default:
		client, err := c.mongoClientLocked()
		if err != nil {
			return nil, nil, err
		}
		db := client.Database(c.config.Database.Name)
		c.labels = implementation.NewMongoLabelRepository(db.Collection(c.config.Database.LabelsCollection))
		c.logs = implementation.NewMongoTelemetryRepository(db.Collection(c.config.Database.LogsCollection))
	}

	return c.labels, c.logs, nil
}

// GetRenderer returns the label renderer
func (c *Container) GetRenderer() *renderer.Renderer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rendererLocked()
}

func (c *Container) rendererLocked() *renderer.Renderer {
	if c.renderer == nil {
		layout := renderer.DefaultLayout()
		layout.HeaderCaption = c.config.Render.HeaderCaption
		c.renderer = renderer.New(layout, c.config.Render.FontPath)
	}
	return c.renderer
}

// GetPublisher returns the device channel publisher for the configured
// transport, connecting on first use
func (c *Container) GetPublisher() (publisher.Publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.publisherLocked()
}

func (c *Container) publisherLocked() (publisher.Publisher, error) {
	if c.publisher != nil {
		return c.publisher, nil
	}

	var (
		pub publisher.Publisher
		err error
	)
	switch c.config.Publisher.Transport {
	case config.TransportNATS:
		pub, err = publisher.NewNATSPublisher(c.config, c.logger)
	default:
		pub, err = publisher.NewMQTTPublisher(c.config, c.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s publisher: %w", c.config.Publisher.Transport, err)
	}

	c.setPublisherLocked(pub)
	return pub, nil
}

// SetPublisher installs an already constructed publisher, replacing the
// configured transport
func (c *Container) SetPublisher(pub publisher.Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setPublisherLocked(pub)
}

func (c *Container) setPublisherLocked(pub publisher.Publisher) {
	c.publisher = pub
	c.cleanupFuncs = append(c.cleanupFuncs, func() error {
		pub.Close()
		return nil
	})
}

// GetLabelService returns the label service wired to the configured stores,
// renderer and publisher
func (c *Container) GetLabelService() (*services.LabelService, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.labelService != nil {
		return c.labelService, nil
	}

	labels, logs, err := c.repositoriesLocked()
	if err != nil {
		return nil, err
	}
	pub, err := c.publisherLocked()
	if err != nil {
		return nil, err
	}

	c.labelService = services.NewLabelService(labels, logs, c.rendererLocked(), pub, c.logger)
	return c.labelService, nil
}

// GetHealthChecker returns the health checker
func (c *Container) GetHealthChecker() (*health.HealthChecker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthChecker != nil {
		return c.healthChecker, nil
	}

	var client *mongo.Client
	if c.config.Database.Driver != config.DriverMemory {
		var err error
		if client, err = c.mongoClientLocked(); err != nil {
			return nil, fmt.Errorf("failed to get database for health checker: %w", err)
		}
	}
	pub, err := c.publisherLocked()
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher for health checker: %w", err)
	}

	c.healthChecker = health.NewHealthChecker(client, pub)
	return c.healthChecker, nil
}

// InitializeDatabase creates the indexes the registry relies on. It is a
// no-op for the memory driver.
func (c *Container) InitializeDatabase(ctx context.Context) error {
	if c.config.Database.Driver == config.DriverMemory {
		return nil
	}

	c.mu.Lock()
	if c.databaseManager == nil {
		client, err := c.mongoClientLocked()
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to get database manager: %w", err)
		}
		c.databaseManager = health.NewDatabaseManager(client, c.config.Database)
	}
	dbManager := c.databaseManager
	c.mu.Unlock()

	if err := dbManager.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	c.logger.Info("Database initialized successfully")
	return nil
}

// HealthCheck performs a comprehensive health check
func (c *Container) HealthCheck(ctx context.Context) map[string]interface{} {
	healthChecker, err := c.GetHealthChecker()
	if err != nil {
		return map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	return healthChecker.GetHealthStatus(ctx)
}

// Shutdown gracefully shuts down the container and all its dependencies
func (c *Container) Shutdown(_ context.Context) error {
	c.logger.Info("Shutting down container...")

	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](); err != nil {
			c.logger.ErrorWithError(err, "Error during cleanup")
		}
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// AddCleanupFunc adds a cleanup function
func (c *Container) AddCleanupFunc(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
