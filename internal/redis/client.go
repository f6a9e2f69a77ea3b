package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/brfledger/utilitybilling/internal/config"
	"github.com/brfledger/utilitybilling/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	UseTLS   bool
	PoolSize int
	Timeout  time.Duration
}

// ConfigFromSettings maps the application configuration onto a Config
func ConfigFromSettings(cfg config.RedisConfig) Config {
	return Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
		UseTLS:   cfg.UseTLS,
		PoolSize: cfg.PoolSize,
		Timeout:  cfg.Timeout,
	}
}

// Client wraps Redis client functionality
type Client struct {
	rdb  *redis.Client
	log  *logger.Logger
	opts *redis.Options
}

// NewClient creates a new Redis client
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		PoolSize:     cfg.PoolSize,
	}

	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("connected to redis", "addr", opts.Addr)

	return &Client{
		rdb:  rdb,
		log:  log,
		opts: opts,
	}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection and reconnects once if it is broken
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.rdb.Ping(ctx).Result(); err != nil {
		c.log.Warnw("redis ping failed, reconnecting", "error", err)
		return c.reconnect(ctx)
	}
	return nil
}

// reconnect attempts to reconnect to Redis
func (c *Client) reconnect(ctx context.Context) error {
	if err := c.rdb.Close(); err != nil {
		c.log.Errorw("failed to close existing redis connection", "error", err)
	}

	c.rdb = redis.NewClient(c.opts)

	if _, err := c.rdb.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to reconnect to Redis: %w", err)
	}

	c.log.Infow("reconnected to redis", "addr", c.opts.Addr)
	return nil
}
