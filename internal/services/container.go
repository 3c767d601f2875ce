package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/silverstate/nvsos-api/internal/config"
	"github.com/sirupsen/logrus"
)

// cacheCleanupInterval is how often the memory cache reaps expired entries.
const cacheCleanupInterval = 5 * time.Minute

// Container holds all service dependencies
type Container struct {
	config         *config.Config
	logger         *logrus.Logger
	redisClient    *redis.Client
	cacheService   *CacheService
	EntityService  EntityServiceInterface
	CacheService   CacheServiceInterface
	BrowserService BrowserServiceInterface
	CaptchaSolver  CaptchaSolverInterface
	Extractor      ExtractorInterface
}

// NewContainer creates a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	if err := container.initRedis(); err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	if err := container.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return container, nil
}

// initRedis initializes the Redis client. A failed connection downgrades to
// the in-memory cache rather than aborting startup.
func (c *Container) initRedis() error {
	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	ctx := context.Background()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.Warn("Redis connection failed, running without cache")
		c.redisClient = nil
	} else {
		c.logger.Info("Redis connection established")
	}

	return nil
}

// initServices initializes all services
func (c *Container) initServices() error {
	c.cacheService = NewCacheService(c.redisClient, c.config.Scraper.CacheTTL, c.logger)
	c.cacheService.StartCleanupRoutine(cacheCleanupInterval)
	c.CacheService = c.cacheService

	browserService, err := NewBrowserService(c.config.Browser, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize browser service: %w", err)
	}
	c.BrowserService = browserService

	c.CaptchaSolver = NewCaptchaSolver(c.config.Scraper.SolveCaptchaAPIKey, c.logger)
	c.Extractor = NewExtractor(c.logger)

	entityService, err := NewEntityService(c.config.Scraper, c.CacheService, c.BrowserService, c.CaptchaSolver, c.Extractor, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize entity service: %w", err)
	}
	c.EntityService = entityService

	return nil
}

// Close closes all service connections
func (c *Container) Close() error {
	var errs []error

	if c.cacheService != nil {
		c.cacheService.StopCleanupRoutine()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.BrowserService != nil {
		if err := c.BrowserService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser service: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}

// Health checks the health of all services
func (c *Container) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if c.redisClient != nil {
		ctx := context.Background()
		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			health["redis"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
		} else {
			health["redis"] = map[string]interface{}{
				"status": "healthy",
			}
		}
	} else {
		health["redis"] = map[string]interface{}{
			"status": "disabled",
		}
	}

	if c.BrowserService != nil {
		health["browser"] = c.BrowserService.Health()
	}

	if c.EntityService != nil {
		health["entity"] = c.EntityService.Health()
	}

	return health
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}
