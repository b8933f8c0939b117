/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for plan results and
// import summaries.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/panelforge/internal/models"
)

// Default TTL values for different cache types
const (
	DefaultImportTTL   = 30 * time.Minute
	DefaultPlanSetTTL  = 1 * time.Hour
	DefaultPlanHTMLTTL = 1 * time.Hour
)

// Key prefixes for Redis cache
const (
	KeyImport   = "panelforge:cache:import:"    // + import_id
	KeyPlanSet  = "panelforge:cache:plan_set:"  // + plan_set_id
	KeyPlanHTML = "panelforge:cache:plan_html:" // + plan_set_id
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	ImportTTL   time.Duration
	PlanSetTTL  time.Duration
	PlanHTMLTTL time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		ImportTTL:      DefaultImportTTL,
		PlanSetTTL:     DefaultPlanSetTTL,
		PlanHTMLTTL:    DefaultPlanHTMLTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// Import caching methods

// GetImport retrieves a cached import by ID.
func (c *Cache) GetImport(ctx context.Context, importID string) (*models.AvailabilityImport, bool) {
	var imp models.AvailabilityImport
	found, err := c.get(ctx, KeyImport+importID, &imp)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("import_id", importID).Msg("import cache hit")
	return &imp, true
}

// SetImport caches an import record.
func (c *Cache) SetImport(ctx context.Context, imp *models.AvailabilityImport) error {
	c.logger.Debug().Str("import_id", imp.ID).Msg("caching import")
	return c.set(ctx, KeyImport+imp.ID, imp, c.config.ImportTTL)
}

// InvalidateImport removes an import summary from cache.
func (c *Cache) InvalidateImport(ctx context.Context, importID string) error {
	c.logger.Debug().Str("import_id", importID).Msg("invalidating import cache")
	return c.delete(ctx, KeyImport+importID)
}

// Plan set caching methods

// CachedPlanSet is a completed planning run with its surfaced options.
type CachedPlanSet struct {
	ID          string                `json:"id"`
	ImportID    string                `json:"import_id"`
	Status      string                `json:"status"`
	Policy      models.PolicySnapshot `json:"policy"`
	Panel       models.PanelRequest   `json:"panel"`
	OptionCount int                   `json:"option_count"`
	Options     []CachedPlanOption    `json:"options"`
	CreatedAt   time.Time             `json:"created_at"`
}

// CachedPlanOption is one agenda within a cached plan set.
type CachedPlanOption struct {
	ID       string          `json:"id"`
	Day      time.Time       `json:"day"`
	Label    string          `json:"label"`
	StartsAt time.Time       `json:"starts_at"`
	EndsAt   time.Time       `json:"ends_at"`
	Legs     models.PlanLegs `json:"legs"`
}

// GetPlanSet retrieves a cached plan set by ID.
func (c *Cache) GetPlanSet(ctx context.Context, planSetID string) (*CachedPlanSet, bool) {
	var plan CachedPlanSet
	found, err := c.get(ctx, KeyPlanSet+planSetID, &plan)
	if err != nil || !found {
		return nil, false
	}
	c.logger.Debug().Str("plan_set_id", planSetID).Msg("plan set cache hit")
	return &plan, true
}

// SetPlanSet caches a completed plan set. Running or failed runs are never
// cached; their status still changes.
func (c *Cache) SetPlanSet(ctx context.Context, plan *CachedPlanSet) error {
	if plan.Status != string(models.PlanSetComplete) {
		return nil
	}
	c.logger.Debug().Str("plan_set_id", plan.ID).Msg("caching plan set")
	return c.set(ctx, KeyPlanSet+plan.ID, plan, c.config.PlanSetTTL)
}

// InvalidatePlanSet removes a plan set and its rendered document from cache.
func (c *Cache) InvalidatePlanSet(ctx context.Context, planSetID string) error {
	c.logger.Debug().Str("plan_set_id", planSetID).Msg("invalidating plan set cache")
	if err := c.delete(ctx, KeyPlanSet+planSetID); err != nil {
		return err
	}
	return c.delete(ctx, KeyPlanHTML+planSetID)
}

// Rendered document caching methods

// GetPlanHTML retrieves the cached rendered document for a plan set.
func (c *Cache) GetPlanHTML(ctx context.Context, planSetID string) (string, bool) {
	var html string
	found, err := c.get(ctx, KeyPlanHTML+planSetID, &html)
	if err != nil || !found {
		return "", false
	}
	c.logger.Debug().Str("plan_set_id", planSetID).Msg("plan html cache hit")
	return html, true
}

// SetPlanHTML caches the rendered document for a plan set.
func (c *Cache) SetPlanHTML(ctx context.Context, planSetID, html string) error {
	c.logger.Debug().Str("plan_set_id", planSetID).Msg("caching plan html")
	return c.set(ctx, KeyPlanHTML+planSetID, html, c.config.PlanHTMLTTL)
}

// Bulk invalidation methods

// InvalidateImportPlans removes every cache entry derived from an import:
// the import summary plus all plan sets that reference it would need a scan,
// so plan caches are invalidated per plan set by the caller.
func (c *Cache) InvalidateImportPlans(ctx context.Context, importID string) error {
	c.logger.Debug().Str("import_id", importID).Msg("invalidating import caches")
	return c.InvalidateImport(ctx, importID)
}
