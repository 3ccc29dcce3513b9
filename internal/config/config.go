// Package config reads server settings from CONSTRUCTUM_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the server configuration. Each field names its variable.
type Config struct {
	DatabaseURL string // CONSTRUCTUM_DATABASE_URL, required; "memory" for the in-memory store
	GRPCAddr    string // CONSTRUCTUM_GRPC_ADDR
	HTTPAddr    string // CONSTRUCTUM_HTTP_ADDR
	NATSURL     string // CONSTRUCTUM_NATS_URL; empty disables events
	AuthToken   string // CONSTRUCTUM_AUTH_TOKEN; empty disables auth

	CascadePreserveDuration bool          // CONSTRUCTUM_CASCADE_PRESERVE_DURATION
	DragIdleTimeout         time.Duration // CONSTRUCTUM_DRAG_IDLE_TIMEOUT

	SyncInterval   time.Duration // CONSTRUCTUM_SYNC_INTERVAL; 0 disables sync
	SyncS3Bucket   string        // CONSTRUCTUM_SYNC_S3_BUCKET; enables S3
	SyncS3Endpoint string        // CONSTRUCTUM_SYNC_S3_ENDPOINT, e.g. MinIO
	SyncS3Region   string        // CONSTRUCTUM_SYNC_S3_REGION
	SyncS3Key      string        // CONSTRUCTUM_SYNC_S3_KEY
	SyncGitRepo    string        // CONSTRUCTUM_SYNC_GIT_REPO; path to a clone, enables git
	SyncGitFile    string        // CONSTRUCTUM_SYNC_GIT_FILE
	SyncGitBranch  string        // CONSTRUCTUM_SYNC_GIT_BRANCH
}

// env reads variables and collects every parse failure.
type env struct {
	errs []error
}

func (e *env) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *env) duration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(e.str(key, fallback))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
	}
	return d
}

func (e *env) boolean(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
	}
	return b
}

// Load reads the configuration. All invalid variables are reported
// together.
func Load() (*Config, error) {
	var e env
	c := &Config{
		DatabaseURL: e.str("CONSTRUCTUM_DATABASE_URL", ""),
		GRPCAddr:    e.str("CONSTRUCTUM_GRPC_ADDR", ":9090"),
		HTTPAddr:    e.str("CONSTRUCTUM_HTTP_ADDR", ":8080"),
		NATSURL:     e.str("CONSTRUCTUM_NATS_URL", ""),
		AuthToken:   e.str("CONSTRUCTUM_AUTH_TOKEN", ""),

		CascadePreserveDuration: e.boolean("CONSTRUCTUM_CASCADE_PRESERVE_DURATION", false),
		DragIdleTimeout:         e.duration("CONSTRUCTUM_DRAG_IDLE_TIMEOUT", "2m"),

		SyncInterval:   e.duration("CONSTRUCTUM_SYNC_INTERVAL", "3m"),
		SyncS3Bucket:   e.str("CONSTRUCTUM_SYNC_S3_BUCKET", ""),
		SyncS3Endpoint: e.str("CONSTRUCTUM_SYNC_S3_ENDPOINT", ""),
		SyncS3Region:   e.str("CONSTRUCTUM_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      e.str("CONSTRUCTUM_SYNC_S3_KEY", "constructum/backup.jsonl"),
		SyncGitRepo:    e.str("CONSTRUCTUM_SYNC_GIT_REPO", ""),
		SyncGitFile:    e.str("CONSTRUCTUM_SYNC_GIT_FILE", "schedule.jsonl"),
		SyncGitBranch:  e.str("CONSTRUCTUM_SYNC_GIT_BRANCH", "main"),
	}
	if c.DatabaseURL == "" {
		e.errs = append(e.errs, errors.New("CONSTRUCTUM_DATABASE_URL is required"))
	}
	if c.SyncInterval < 0 {
		e.errs = append(e.errs, fmt.Errorf("CONSTRUCTUM_SYNC_INTERVAL: negative duration %s", c.SyncInterval))
	}
	if err := errors.Join(e.errs...); err != nil {
		return nil, err
	}
	return c, nil
}
