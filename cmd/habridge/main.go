// habridge - Home Automation Hub Bridge
//
// This is the main entry point for the habridge service: a caching HTTP
// intermediary between API clients and a home automation hub. It serves
// hub data (entity states, service catalog, configuration) from a TTL
// cache kept fresh by the hub's WebSocket event feed, and passes writes
// straight through to the hub.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/habridge/migrations"

	"github.com/nerrad567/habridge/internal/api"
	"github.com/nerrad567/habridge/internal/cache"
	"github.com/nerrad567/habridge/internal/eventstream"
	"github.com/nerrad567/habridge/internal/history"
	"github.com/nerrad567/habridge/internal/hub"
	"github.com/nerrad567/habridge/internal/infrastructure/config"
	"github.com/nerrad567/habridge/internal/infrastructure/database"
	"github.com/nerrad567/habridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/habridge/internal/infrastructure/logging"
	"github.com/nerrad567/habridge/internal/infrastructure/metrics"
	"github.com/nerrad567/habridge/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// cacheSizeInterval is how often the cache size gauges are refreshed.
const cacheSizeInterval = 15 * time.Second

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting habridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Create the cache store
	store, err := cache.New([]cache.Namespace{
		{Name: cache.NamespaceStates, TTL: cfg.Cache.States.GetTTL(), MaxEntries: cfg.Cache.States.MaxEntries},
		{Name: cache.NamespaceServices, TTL: cfg.Cache.Services.GetTTL(), MaxEntries: cfg.Cache.Services.MaxEntries},
		{Name: cache.NamespaceConfig, TTL: cfg.Cache.Config.GetTTL(), MaxEntries: cfg.Cache.Config.MaxEntries},
	})
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}
	store.SetLogger(log.Component("cache"))

	// Create the hub REST client
	hubClient := hub.New(cfg.Hub)
	hubClient.SetLogger(log.Component("hub"))

	// Metrics collector
	collector := metrics.New()
	go refreshCacheSizes(ctx, collector, store)

	// Warm the cache from the hub. Failure is non-fatal: the bridge starts
	// degraded and fills the cache on demand.
	warmCache(ctx, log, store, hubClient)

	// State history (optional)
	var recorder *history.Recorder
	if cfg.History.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.History.Database.Path,
			WALMode:     cfg.History.Database.WALMode,
			BusyTimeout: cfg.History.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening history database: %w", openErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx); migrateErr != nil {
			return fmt.Errorf("running history migrations: %w", migrateErr)
		}
		log.Info("history database ready", "path", cfg.History.Database.Path)

		repo := history.NewRepository(db.DB)
		retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
		recorder = history.NewRecorder(repo, retention)
		recorder.SetLogger(log.Component("history"))
		go recorder.Run(ctx)
	} else {
		log.Info("history disabled")
	}

	// MQTT fanout (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB time-series recording (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event feed (optional but on by default): keeps the cache fresh from
	// the hub's WebSocket stream and fans state changes out to the
	// optional sinks.
	var feed *eventstream.Client
	if cfg.EventStream.Enabled {
		feed, err = eventstream.New(cfg, store)
		if err != nil {
			return fmt.Errorf("creating event feed: %w", err)
		}
		feed.SetLogger(log.Component("eventstream"))
		feed.SetMetrics(collector)
		feed.SetOnStateChange(stateChangeFanout(log, recorder, mqttClient, influxClient))

		go func() {
			if runErr := feed.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				log.Error("event feed stopped", "error", runErr)
			}
		}()
		log.Info("event feed started")
	} else {
		log.Info("event feed disabled, cache relies on TTL expiry only")
	}

	// HTTP API server
	deps := api.Deps{
		Config:         cfg.API,
		Security:       cfg.Security,
		Logger:         log,
		Cache:          store,
		Hub:            hubClient,
		Metrics:        collector,
		MetricsHandler: collector.Handler(),
		Version:        version,
	}
	if feed != nil {
		deps.Feed = feed
	}
	if recorder != nil {
		deps.History = recorder.Repository()
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. History database (if enabled)

	log.Info("habridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HABRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HABRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// warmCache populates the cache from the hub at startup so the first
// reads are served hot. Each fetch failure is logged and skipped.
func warmCache(ctx context.Context, log *logging.Logger, store *cache.Store, hubClient *hub.Client) {
	states, err := hubClient.FetchAllStates(ctx)
	if err != nil {
		log.Warn("cache warm: fetching states failed", "error", err)
	} else {
		if warmErr := store.Warm(cache.NamespaceStates, hub.AllStatesKey, states); warmErr != nil {
			log.Warn("cache warm: storing states snapshot failed", "error", warmErr)
		}
		for i := range states {
			state := states[i]
			if state.EntityID == "" {
				continue
			}
			if warmErr := store.Warm(cache.NamespaceStates, hub.StateKey(state.EntityID), &state); warmErr != nil {
				log.Debug("cache warm: storing entity failed", "entity_id", state.EntityID, "error", warmErr)
			}
		}
		log.Info("cache warmed with entity states", "count", len(states))
	}

	if catalog, err := hubClient.FetchServices(ctx); err != nil {
		log.Warn("cache warm: fetching services failed", "error", err)
	} else if warmErr := store.Warm(cache.NamespaceServices, hub.ServicesKey, catalog); warmErr != nil {
		log.Warn("cache warm: storing service catalog failed", "error", warmErr)
	}

	if info, err := hubClient.FetchConfig(ctx); err != nil {
		log.Warn("cache warm: fetching config failed", "error", err)
	} else if warmErr := store.Warm(cache.NamespaceConfig, hub.ConfigKey, info); warmErr != nil {
		log.Warn("cache warm: storing hub config failed", "error", warmErr)
	}
}

// stateChangeFanout builds the event feed callback that forwards state
// changes to the optional sinks. Any sink may be nil.
func stateChangeFanout(log *logging.Logger, recorder *history.Recorder, mqttClient *mqtt.Client, influxClient *influxdb.Client) func(eventstream.StateChange) {
	return func(change eventstream.StateChange) {
		if change.NewState == nil {
			return
		}

		if recorder != nil {
			recorder.Enqueue(change.EntityID, change.NewState.State, change.NewState.Attributes)
		}

		if mqttClient != nil {
			payload, err := json.Marshal(change.NewState)
			if err != nil {
				log.Warn("marshalling state for MQTT failed", "entity_id", change.EntityID, "error", err)
			} else if pubErr := mqttClient.PublishState(change.EntityID, payload); pubErr != nil {
				log.Warn("publishing state to MQTT failed", "entity_id", change.EntityID, "error", pubErr)
			}
		}

		if influxClient != nil {
			influxClient.WriteEntityState(change.EntityID, change.NewState.State)
		}
	}
}

// refreshCacheSizes periodically pushes per-namespace entry counts into
// the metrics gauges.
func refreshCacheSizes(ctx context.Context, collector *metrics.Collector, store *cache.Store) {
	ticker := time.NewTicker(cacheSizeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for namespace, stats := range store.Stats() {
				collector.SetCacheSize(namespace, stats.Size)
			}
		}
	}
}
