package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/workspace-engine/pkg/attribute"
	"github.com/Mindburn-Labs/workspace-engine/pkg/audit"
	"github.com/Mindburn-Labs/workspace-engine/pkg/config"
	"github.com/Mindburn-Labs/workspace-engine/pkg/dvg/debounce"
	"github.com/Mindburn-Labs/workspace-engine/pkg/funcrun"
	"github.com/Mindburn-Labs/workspace-engine/pkg/kvcoord"
	"github.com/Mindburn-Labs/workspace-engine/pkg/observability"
	"github.com/Mindburn-Labs/workspace-engine/pkg/persistence/objectstore"
	"github.com/Mindburn-Labs/workspace-engine/pkg/persistence/relational"
)

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorBlue  = "\033[34m"
	colorGreen = "\033[32m"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint proper, split out from main so tests can drive
// it with captured args and output.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) >= 2 && args[1] == "health" {
		return runHealthCmd(stdout, stderr)
	}
	runServer()
	return 0
}

func runHealthCmd(out, errOut io.Writer) int {
	resp, err := http.Get("http://localhost:8081/health")
	if err != nil {
		fmt.Fprintf(errOut, "health check failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(errOut, "health check failed: status %d\n", resp.StatusCode)
		return 1
	}
	fmt.Fprintln(out, "OK")
	return 0
}

func runServer() {
	fmt.Fprintf(os.Stdout, "%sworkspace-engine starting...%s\n", colorBold+colorBlue, colorReset)
	ctx := context.Background()
	cfg := config.Load()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:    "workspace-engine",
		ServiceVersion: "1.0.0",
		Environment:    cfg.LogLevel,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
		Enabled:        true,
		Insecure:       true,
	})
	if err != nil {
		log.Fatalf("failed to init observability: %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}
	log.Println("[workspace-engine] postgres: connected")

	funcRuns := relational.NewFuncRunStore(db)
	if err := funcRuns.Init(ctx); err != nil {
		log.Fatalf("failed to init func_runs store: %v", err)
	}
	log.Println("[workspace-engine] relational: func_runs ready")

	objStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}
	log.Println("[workspace-engine] objectstore: ready")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}
	kvStore := kvcoord.NewRedisStore(redisClient)
	log.Println("[workspace-engine] kvcoord: redis connected")

	natsConn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()
	funcrunClient := funcrun.New(natsConn, cfg.FuncRunSubject)
	log.Println("[workspace-engine] funcrun: nats connected")

	resolver, err := attribute.NewFuncResolver()
	if err != nil {
		log.Fatalf("failed to init func resolver: %v", err)
	}

	auditLog := audit.NewStore()
	registry := newChangeSetRegistry(objStore)

	fmt.Fprintf(os.Stdout, "%sready%s\n", colorBold+colorGreen, colorReset)

	// Each change set this process handles gets its own debouncer
	// goroutine, spawned lazily as RegisterChangeSet observes new change
	// sets — there is no standing registry of every open change set in
	// the fleet to range over at startup, so this process starts with
	// zero debouncers and grows them on demand.
	instanceID, err := os.Hostname()
	if err != nil || instanceID == "" {
		instanceID = "workspace-engine"
	}
	spawner := &debouncerSpawner{
		kvStore:    kvStore,
		instanceID: instanceID,
		runner:     newEngineRunner(registry, resolver, funcRuns, funcrunClient, auditLog, obs, cfg.ObjectStoreBucketPrefix),
	}
	log.Printf("[workspace-engine] debouncer spawner ready, instance %s", spawner.instanceID)

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	go func() {
		log.Println("[workspace-engine] health server: :8081")
		if err := http.ListenAndServe(":8081", healthMux); err != nil {
			log.Printf("[workspace-engine] health server error: %v", err)
		}
	}()

	log.Println("[workspace-engine] press ctrl+c to stop")
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("[workspace-engine] shutting down")
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	objCfg := objectstore.Config{
		BucketPrefix: cfg.ObjectStoreBucketPrefix,
		CacheName:    cfg.ObjectStoreCacheName,
		Region:       cfg.ObjectStoreRegion,
		Endpoint:     cfg.ObjectStoreEndpoint,
	}
	if cfg.ObjectStoreEndpoint != "" {
		objCfg.Auth = objectstore.AuthModeStatic
		objCfg.StaticAccessKey = envOrDefault("AWS_ACCESS_KEY_ID", "minioadmin")
		objCfg.StaticSecretKey = envOrDefault("AWS_SECRET_ACCESS_KEY", "minioadmin")
	} else {
		objCfg.Auth = objectstore.AuthModeIAMRole
	}
	return objectstore.NewS3Store(ctx, objCfg)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// debouncerSpawner lazily starts one debounce.Debouncer goroutine per
// change set this process is asked to handle. It is the integration
// point a rebaser worker's mutation-acceptance path calls into once a
// change set has pending dependent-value roots; nothing in this process
// currently discovers change sets on its own (no fleet-wide change-set
// registry is wired), so RegisterChangeSet is this process's only entry
// point for growing its debouncer set.
type debouncerSpawner struct {
	kvStore    kvcoord.Store
	instanceID string
	runner     debounce.DVURunner

	ttl              time.Duration
	dvuCheckInterval time.Duration
}

// RegisterChangeSet starts a Debouncer for changeSetID under
// workspaceID, running until ctx is cancelled. Safe to call more than
// once for the same change set; callers are expected to call it at most
// once per change set they take ownership of.
func (s *debouncerSpawner) RegisterChangeSet(ctx context.Context, workspaceID, changeSetID string) {
	ttl := s.ttl
	if ttl == 0 {
		ttl = 15 * time.Second
	}
	interval := s.dvuCheckInterval
	if interval == 0 {
		interval = 2 * time.Second
	}
	key := workspaceID + "." + changeSetID
	d := debounce.New(s.instanceID, s.kvStore, key, changeSetID, s.runner, ttl, interval)
	go d.Run(ctx)
}
