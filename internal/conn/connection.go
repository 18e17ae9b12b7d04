package conn

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Conn is one short-lived connection to a Redis node or proxy.
// It is owned by a single collection attempt and closed when the attempt ends.
type Conn interface {
	// Query issues a command whose reply is a bulk or simple string
	Query(ctx context.Context, args ...interface{}) (string, error)

	// QuerySlice issues a command whose reply is an array
	QuerySlice(ctx context.Context, args ...interface{}) ([]interface{}, error)

	Close() error
}

// Dialer opens connections
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

// DialerConfig holds connection settings shared by every poll
type DialerConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Password       string
}

// RedisDialer dials through go-redis with a single-connection pool and
// go-redis' own retries disabled; retrying is the caller's business.
type RedisDialer struct {
	config DialerConfig
}

// NewRedisDialer creates a dialer
func NewRedisDialer(cfg DialerConfig) *RedisDialer {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 3 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	return &RedisDialer{config: cfg}
}

// Dial prepares a connection to addr. The TCP connect happens lazily on the
// first command, so connect failures surface there as ConnectionFault.
func (d *RedisDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	if addr == "" {
		return nil, fmt.Errorf("empty address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        d.config.Password,
		DialTimeout:     d.config.ConnectTimeout,
		ReadTimeout:     d.config.ReadTimeout,
		WriteTimeout:    d.config.ReadTimeout,
		PoolSize:        1,
		MaxIdleConns:    1,
		MaxRetries:      -1,
		Protocol:        2, // proxies do not speak HELLO
		DisableIdentity: true,
	})
	return &redisConn{addr: addr, client: client}, nil
}

type redisConn struct {
	addr   string
	client *redis.Client
}

func (c *redisConn) Query(ctx context.Context, args ...interface{}) (string, error) {
	v, err := c.client.Do(ctx, args...).Text()
	if err != nil {
		return "", classify(c.addr, args, err)
	}
	return v, nil
}

func (c *redisConn) QuerySlice(ctx context.Context, args ...interface{}) ([]interface{}, error) {
	v, err := c.client.Do(ctx, args...).Slice()
	if err != nil {
		return nil, classify(c.addr, args, err)
	}
	return v, nil
}

func (c *redisConn) Close() error {
	return c.client.Close()
}

// WithConn dials addr, runs fn and closes the connection on every exit path
func WithConn(ctx context.Context, d Dialer, addr string, fn func(Conn) error) error {
	c, err := d.Dial(ctx, addr)
	if err != nil {
		if IsTransient(err) {
			return err
		}
		return &ConnectionFault{Addr: addr, Op: "DIAL", Err: err}
	}
	defer func() { _ = c.Close() }()

	return fn(c)
}
