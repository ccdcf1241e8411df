package main // Entry point package

import (
	"context" // context for the startup registry rebuild
	"log"     // Logging library
	"time"    // timeouts for startup calls

	"github.com/joho/godotenv"    // loads .env files into the environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/account-allocator/internal/config"   // Internal config loader
	"github.com/iliyamo/account-allocator/internal/handler"  // HTTP handlers
	"github.com/iliyamo/account-allocator/internal/pool"     // account allocation engine
	"github.com/iliyamo/account-allocator/internal/queue"    // event publisher and consumer
	"github.com/iliyamo/account-allocator/internal/registry" // pending-claim registry
	"github.com/iliyamo/account-allocator/internal/router"   // Internal router setup
	"github.com/iliyamo/account-allocator/internal/service"  // allocation orchestration
	"github.com/iliyamo/account-allocator/internal/store"    // table backends
)

func main() {
	_ = godotenv.Load() // pull in a local .env when present; real env wins
	cfg := config.Load() // Load environment config

	// Open the configured table backend.
	var (
		st  store.Store
		err error
	)
	switch cfg.StoreBackend {
	case config.BackendBolt:
		st, err = store.OpenBolt(cfg.BoltPath)
	default:
		st, err = store.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	// Wrap the store with the Redis snapshot cache when available. A nil
	// client (Redis down or unconfigured) leaves the store unwrapped.
	cacheCfg := config.LoadSnapshotCacheConfig()
	if cacheCfg.Enabled {
		if client := config.NewRedisClient(); client != nil {
			st = store.WithSnapshotCache(st, client, cacheCfg.Key, cacheCfg.TTL)
			log.Printf("snapshot cache enabled (ttl=%s)", cacheCfg.TTL)
		} else {
			log.Printf("snapshot cache disabled: redis unreachable")
		}
	}

	p := pool.New(st)      // allocation engine over the table
	reg := registry.New()  // in-memory pending-claim registry
	svc := service.New(p, reg, cfg.MaxPending)
	svc.Publish = queue.PublishAccountEvent // best-effort event publishing

	// Rebuild the registry from rows the table still shows as ASSIGNED so a
	// restart does not orphan outstanding claims.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if n, err := svc.RebuildRegistry(ctx); err != nil {
		log.Printf("registry rebuild failed (continuing with empty registry): %v", err)
	} else if n > 0 {
		log.Printf("registry rebuilt with %d pending claim(s)", n)
	}
	cancel()

	// Consume allocation events in the background; the consumer runs its
	// own reconnect loop and never stops the server.
	go func() {
		if err := queue.StartAllocationConsumer(); err != nil {
			log.Printf("allocation consumer stopped: %v", err)
		}
	}()

	e := echo.New()          // Create Echo instance
	router.RegisterRoutes(e) // health check and metrics
	router.RegisterAllocation(e, handler.NewAllocationHandler(svc), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
