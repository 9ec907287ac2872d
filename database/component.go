package database

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/voicegate/component"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
)

// Component wraps DB and implements component.Component for lifecycle management.
type Component struct {
	db     *DB
	cfg    Config
	log    *logger.Logger
	models []interface{}
}

var _ component.Component = (*Component)(nil)
var _ component.Describable = (*Component)(nil)

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// WithAutoMigrate registers models for auto-migration on Start.
func (c *Component) WithAutoMigrate(models ...interface{}) *Component {
	c.models = append(c.models, models...)
	return c
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start opens the database and optionally runs auto-migration.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	c.db = db

	if c.cfg.AutoMigrate && len(c.models) > 0 {
		if err := c.db.AutoMigrate(c.models...); err != nil {
			return fmt.Errorf("database auto-migrate: %w", err)
		}
	}
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CheckHealth pings the database and reports pool statistics.
func (c *Component) CheckHealth(ctx context.Context) observability.Health {
	h := observability.Health{Name: c.Name(), Status: observability.HealthStatusUp}
	if c.db == nil {
		h.Status = observability.HealthStatusDown
		h.Message = "database not initialized"
		return h
	}

	start := time.Now()
	sqlDB, err := c.db.GormDB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		h.Status = observability.HealthStatusDown
		h.Message = fmt.Sprintf("ping failed: %v", err)
		return h
	}

	stats := sqlDB.Stats()
	h.Details = map[string]string{
		"latency":          time.Since(start).String(),
		"open_connections": fmt.Sprint(stats.OpenConnections),
		"in_use":           fmt.Sprint(stats.InUse),
	}
	return h
}

// Describe returns infrastructure summary info for the startup log.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s pool=%d", c.cfg.Path, c.cfg.MaxOpenConns)
	if c.cfg.AutoMigrate {
		details += " auto-migrate=on"
	}
	return component.Description{Name: "Database", Type: "database", Details: details}
}
