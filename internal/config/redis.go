package config

// This file defines the key-value store client constructor.  The store is
// the only persistence the queue has: counters, daily metadata, ticket lists,
// archives and prize settings all live there.  A hosted store is usually
// reached with a single rediss:// URL; self-hosted deployments can use the
// host/port variables instead.

import (
    "context"
    "crypto/tls"
    "fmt"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates the store client using environment variables.
// Supported variables are:
//   REDIS_URL – full connection URL (redis:// or rediss://), takes precedence
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
// The timeout bounds every socket read/write and the startup ping.  Unlike
// the cache and rate limiter, the queue cannot degrade without the store, so
// a failed ping is returned as an error.
func NewRedisClient(timeout time.Duration) (*redis.Client, error) {
    opts, err := redisOptions()
    if err != nil {
        return nil, err
    }
    opts.DialTimeout = timeout
    opts.ReadTimeout = timeout
    opts.WriteTimeout = timeout
    opts.MaxRetries = 2
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
    }
    return client, nil
}

func redisOptions() (*redis.Options, error) {
    if url := os.Getenv("REDIS_URL"); url != "" {
        opts, err := redis.ParseURL(url)
        if err != nil {
            return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
        }
        return opts, nil
    }
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
        if n, err := strconv.Atoi(dbStr); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }, nil
}
