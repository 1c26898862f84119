package config

import "os"

// Config holds workspace-engine process configuration.
type Config struct {
	LogLevel string

	// Relational tier (pkg/persistence/relational)
	DatabaseURL string

	// Coordination store backing the leader-election debouncer (pkg/kvcoord)
	RedisAddr string

	// Function-execution RPC (pkg/funcrun)
	NATSURL        string
	FuncRunSubject string

	// Object-store tier (pkg/persistence/objectstore)
	ObjectStoreBucketPrefix string
	ObjectStoreCacheName    string
	ObjectStoreRegion       string
	ObjectStoreEndpoint     string // non-empty for an S3-compatible endpoint other than AWS

	// OpenTelemetry collector (pkg/observability)
	OTLPEndpoint string
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "postgres://workspace_engine@localhost:5433/workspace_engine?sslmode=disable"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	funcRunSubject := os.Getenv("FUNCRUN_SUBJECT")
	if funcRunSubject == "" {
		funcRunSubject = "funcrun.execute"
	}

	bucketPrefix := os.Getenv("OBJECT_STORE_BUCKET_PREFIX")
	if bucketPrefix == "" {
		bucketPrefix = "workspace-engine"
	}

	cacheName := os.Getenv("OBJECT_STORE_CACHE_NAME")
	if cacheName == "" {
		cacheName = "layerdb"
	}

	region := os.Getenv("OBJECT_STORE_REGION")
	if region == "" {
		region = "us-east-1"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:                logLevel,
		DatabaseURL:             dbURL,
		RedisAddr:               redisAddr,
		NATSURL:                 natsURL,
		FuncRunSubject:          funcRunSubject,
		ObjectStoreBucketPrefix: bucketPrefix,
		ObjectStoreCacheName:    cacheName,
		ObjectStoreRegion:       region,
		ObjectStoreEndpoint:     os.Getenv("OBJECT_STORE_ENDPOINT"),
		OTLPEndpoint:            otlpEndpoint,
	}
}
