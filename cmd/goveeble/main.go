// Govee BLE Core - local-first controller for Govee Bluetooth lights.
//
// This is the main entry point. The controller owns the BLE links to the
// configured lamps, exposes them over MQTT, and journals confirmed state
// changes to SQLite. It is designed to run unattended on a small always-on
// host (Raspberry Pi class) next to the lamps it controls.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/azndibs/govee-ble-core/migrations"

	"github.com/azndibs/govee-ble-core/internal/ble"
	"github.com/azndibs/govee-ble-core/internal/bridge"
	"github.com/azndibs/govee-ble-core/internal/infrastructure/config"
	"github.com/azndibs/govee-ble-core/internal/infrastructure/database"
	"github.com/azndibs/govee-ble-core/internal/infrastructure/influxdb"
	"github.com/azndibs/govee-ble-core/internal/infrastructure/logging"
	"github.com/azndibs/govee-ble-core/internal/infrastructure/mqtt"
	"github.com/azndibs/govee-ble-core/internal/light"
	"github.com/azndibs/govee-ble-core/internal/scheduler"
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

// Background maintenance tuning.
const (
	historyRetention     = 30 * 24 * time.Hour
	historyPruneInterval = 6 * time.Hour
	slotTelemetryPeriod  = time.Minute
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Govee BLE Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "lights", len(cfg.Lights))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and bring the schema up to date
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional telemetry)
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
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// BLE transport over the host adapter
	transport, err := ble.NewBlueZTransport()
	if err != nil {
		return fmt.Errorf("enabling BLE adapter: %w", err)
	}
	transport.SetLogger(log)
	log.Info("BLE adapter enabled")

	// Connection budget and run admission
	pool := scheduler.NewSlotPool(cfg.BLE.MaxConnections)
	sched := scheduler.New(cfg.Scheduler.Parallel)
	sched.SetLogger(log)
	defer func() {
		log.Info("stopping scheduler")
		sched.Stop()
	}()

	// MQTT bridge
	b, err := bridge.New(bridge.Options{
		Client: mqttClient,
		QoS:    byte(cfg.MQTT.QoS),
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	// State journal
	history := light.NewSQLiteHistory(db.DB)

	var metrics light.Metrics
	if influxClient != nil {
		metrics = influxClient
	}

	lights, err := buildLights(cfg, transport, pool, sched, history, metrics, b, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing lights")
		for _, l := range lights {
			l.Close()
		}
	}()
	log.Info("lights initialised", "count", len(lights))

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		b.Stop()
	}()

	// Periodic health reporting
	health := bridge.NewHealthReporter(bridge.HealthReporterConfig{
		ControllerID: cfg.Site.ID,
		Version:      version,
		Publisher:    mqttClient,
		Lights:       b,
		Slots:        pool,
		Scheduler:    sched,
	})
	health.SetLogger(log)
	if err := health.PublishStarting(); err != nil {
		log.Warn("failed to publish starting status", "error", err)
	}
	health.Start(ctx)
	defer health.Stop()

	// Background maintenance
	go pruneHistoryLoop(ctx, history, log)
	if influxClient != nil {
		go slotTelemetryLoop(ctx, pool, influxClient)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// buildLights constructs and registers one Light per enabled inventory
// entry.
func buildLights(
	cfg *config.Config,
	transport *ble.BlueZTransport,
	pool *scheduler.SlotPool,
	sched *scheduler.Scheduler,
	history *light.SQLiteHistory,
	metrics light.Metrics,
	b *bridge.Bridge,
	log *logging.Logger,
) ([]*light.Light, error) {
	requester := schedulerRequester{sched}
	lights := make([]*light.Light, 0, len(cfg.Lights))

	for _, lc := range cfg.Lights {
		if !lc.IsEnabled() {
			log.Info("light disabled, skipping", "id", lc.EffectiveID(), "address", lc.Address)
			continue
		}
		id := lc.EffectiveID()

		l := light.New(light.Options{
			Address:   lc.Address,
			Name:      lc.Name,
			Model:     lc.Model,
			Transport: transport,
			Pool:      pool,
			Requester: requester,
			Recorder:  history,
			Metrics:   metrics,
			OnState:   b.StateHandler(id),
			Notifier:  notifierConfig(lc.Notifier),
			Machine: light.Config{
				MaxReconnectAttempts: cfg.BLE.ReconnectAttempts,
				BackoffBase:          cfg.BLE.ReconnectBaseDelay,
				SendDelay:            cfg.BLE.PacketSendDelay,
				IdleDelay:            cfg.BLE.CommandLoopDelay,
				PingInterval:         cfg.BLE.PingInterval,
				KeepAliveTicks:       cfg.BLE.KeepAliveTicks,
				ConnectTimeout:       cfg.BLE.ConnectTimeout,
				WriteTimeout:         cfg.BLE.WriteTimeout,
			},
			Logger: log,
		})
		if err := b.Register(id, l); err != nil {
			return nil, fmt.Errorf("registering light %s: %w", id, err)
		}
		lights = append(lights, l)
		log.Info("light registered", "id", id, "name", l.Name(), "model", lc.Model, "address", lc.Address)
	}
	return lights, nil
}

// schedulerRequester adapts the scheduler to the light package's
// requester interface.
type schedulerRequester struct {
	sched *scheduler.Scheduler
}

func (r schedulerRequester) RequestRun(l *light.Light) {
	r.sched.RequestRun(l)
}

func (r schedulerRequester) Contended() bool {
	return r.sched.Contended()
}

// notifierConfig maps an optional per-light override onto the notifier
// tuning; zero values fall back to the notifier's own defaults.
func notifierConfig(nc *config.NotifierConfig) light.NotifierConfig {
	if nc == nil {
		return light.NotifierConfig{}
	}
	return light.NotifierConfig{
		MinDelay: nc.MinDelay,
		MaxDelay: nc.MaxDelay,
		Penalty:  nc.Penalty,
	}
}

// pruneHistoryLoop trims the state journal on a slow cadence.
func pruneHistoryLoop(ctx context.Context, history *light.SQLiteHistory, log *logging.Logger) {
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := history.Prune(ctx, historyRetention)
			if err != nil {
				log.Error("history prune failed", "error", err)
				continue
			}
			if pruned > 0 {
				log.Info("history pruned", "rows", pruned)
			}
		}
	}
}

// slotTelemetryLoop samples slot pool occupancy into InfluxDB.
func slotTelemetryLoop(ctx context.Context, pool *scheduler.SlotPool, influx *influxdb.Client) {
	ticker := time.NewTicker(slotTelemetryPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			active, stale, queued := pool.Counts()
			influx.WriteSlotPool(active, stale, queued)
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GOVEEBLE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GOVEEBLE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
