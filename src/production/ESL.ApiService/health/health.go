package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	config "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Config"
	publisher "gitlab.com/maplesense1/esl.label_server/src/production/ESL.Publisher"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Check states reported by GetHealthStatus
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
	StatusDegraded = "degraded"
)

// HealthChecker provides health check functionality
type HealthChecker struct {
	client    *mongo.Client
	publisher publisher.Publisher
}

// NewHealthChecker creates a new health checker. client is nil when the
// memory driver is in use.
func NewHealthChecker(client *mongo.Client, pub publisher.Publisher) *HealthChecker {
	return &HealthChecker{client: client, publisher: pub}
}

// PingMongo checks if the MongoDB connection is healthy
func (h *HealthChecker) PingMongo(ctx context.Context) error {
	if h.client == nil {
		return fmt.Errorf("mongo client is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.client.Ping(ctx, readpref.Primary())
}

// GetHealthStatus returns the current health status
func (h *HealthChecker) GetHealthStatus(ctx context.Context) map[string]interface{} {
	checks := make(map[string]interface{})
	overall := StatusOK

	switch {
	case h.client == nil:
		checks["mongo"] = map[string]interface{}{"status": StatusDisabled}
	default:
		if err := h.PingMongo(ctx); err != nil {
			overall = StatusDegraded
			checks["mongo"] = map[string]interface{}{"status": StatusError, "error": err.Error()}
		} else {
			checks["mongo"] = map[string]interface{}{"status": StatusOK}
		}
	}

	if h.publisher != nil && h.publisher.IsConnected() {
		checks["publisher"] = map[string]interface{}{"status": StatusOK}
	} else {
		overall = StatusDegraded
		checks["publisher"] = map[string]interface{}{"status": StatusError, "error": "not connected"}
	}

	return map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    overall,
		"checks":    checks,
	}
}

// ConnectMongoWithTimeout creates a MongoDB connection and verifies it with a ping
func ConnectMongoWithTimeout(cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Database.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.Database.URI)
	if strings.HasPrefix(cfg.Database.URI, "mongodb+srv://") {
		clientOptions.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	clientOptions.SetServerSelectionTimeout(cfg.Database.ConnectTimeout)
	clientOptions.SetConnectTimeout(cfg.Database.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}

	return client, nil
}

// DatabaseManager handles schema-level database operations
type DatabaseManager struct {
	db  *mongo.Database
	cfg config.DatabaseConfig
}

// NewDatabaseManager creates a new database manager
func NewDatabaseManager(client *mongo.Client, cfg config.DatabaseConfig) *DatabaseManager {
	return &DatabaseManager{db: client.Database(cfg.Name), cfg: cfg}
}

// CreateIndexes creates the required indexes if they don't exist. The unique
// index on macAddress is what makes concurrent discovery resolve to a single
// record.
func (dm *DatabaseManager) CreateIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := dm.db.Collection(dm.cfg.LabelsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "macAddress", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("macAddress_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create labels index: %w", err)
	}

	_, err = dm.db.Collection(dm.cfg.LogsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "macAddress", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("macAddress_createdAt"),
	})
	if err != nil {
		return fmt.Errorf("failed to create logs index: %w", err)
	}

	return nil
}
