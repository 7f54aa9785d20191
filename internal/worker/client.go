package worker

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
)

const defaultRedisPort = "6379"

// ParseRedisURL accepts a bare host:port or a redis:// or rediss:// URL with
// optional credentials and a database number as the path, e.g.
// rediss://default:pw@cache:6380/2. rediss enables TLS.
func ParseRedisURL(redisURL string) (asynq.RedisClientOpt, error) {
	if !strings.Contains(redisURL, "://") {
		return asynq.RedisClientOpt{Addr: withDefaultPort(redisURL)}, nil
	}

	u, err := url.Parse(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return asynq.RedisClientOpt{}, fmt.Errorf("invalid REDIS_URL: unsupported scheme %q", u.Scheme)
	}

	opt := asynq.RedisClientOpt{Addr: withDefaultPort(u.Host)}
	if u.User != nil {
		opt.Username = u.User.Username()
		opt.Password, _ = u.User.Password()
	}
	if db := strings.Trim(u.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil || n < 0 {
			return asynq.RedisClientOpt{}, fmt.Errorf("invalid REDIS_URL: database %q is not a number", db)
		}
		opt.DB = n
	}
	if u.Scheme == "rediss" {
		opt.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()}
	}
	return opt, nil
}

func withDefaultPort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, defaultRedisPort)
}

// NewClient returns an enqueueing client for the job API.
func NewClient(redisURL string) (*asynq.Client, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

// NewInspector returns the inspector the job API reads task state and results from.
func NewInspector(redisURL string) (*asynq.Inspector, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return asynq.NewInspector(opt), nil
}
