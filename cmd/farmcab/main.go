// FarmCab Core - smart farming cabinet controller.
//
// This is the main entry point for the FarmCab Core application. It keeps
// the cabinet's structured records (SQLite) and its realtime state (MQTT
// retained topics) in step, and serves the control API and live view to
// operator UIs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/farmcab/farmcab-core/migrations"

	"github.com/farmcab/farmcab-core/internal/api"
	"github.com/farmcab/farmcab-core/internal/area"
	"github.com/farmcab/farmcab-core/internal/control"
	"github.com/farmcab/farmcab-core/internal/device"
	"github.com/farmcab/farmcab-core/internal/infrastructure/config"
	"github.com/farmcab/farmcab-core/internal/infrastructure/database"
	"github.com/farmcab/farmcab-core/internal/infrastructure/influxdb"
	"github.com/farmcab/farmcab-core/internal/infrastructure/logging"
	"github.com/farmcab/farmcab-core/internal/infrastructure/mqtt"
	"github.com/farmcab/farmcab-core/internal/liveview"
	"github.com/farmcab/farmcab-core/internal/rtdb"
	"github.com/farmcab/farmcab-core/internal/schedule"
	"github.com/farmcab/farmcab-core/internal/sensor"
	"github.com/farmcab/farmcab-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

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
	log.Info("starting FarmCab Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "cabinet", cfg.Cabinet.ID)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(deviceRepo)
	registry.SetLogger(log)

	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", registry.GetDeviceCount())

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
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected, retained state restored")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Realtime store over retained topics
	store := rtdb.NewMQTTStore(mqttClient, byte(cfg.MQTT.QoS)) //nolint:gosec // QoS validated 0-2 by config

	// Domain services
	controlService := control.NewService(registry, store)
	controlService.SetLogger(log)

	scheduleRepo := schedule.NewSQLiteRepository(db.DB)
	syncService := schedule.NewSyncService(scheduleRepo, registry, store, cfg.Location())
	syncService.SetLogger(log)

	sensorRepo := sensor.NewSQLiteRepository(db.DB)
	projection := liveview.NewProjection(sensorRepo, registry, scheduleRepo, store)
	projection.SetLogger(log)
	defer projection.Close()

	// Connect to InfluxDB and start the telemetry recorder (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		recorder := telemetry.NewRecorder(sensorRepo, store, influxClient)
		recorder.SetLogger(log)
		if startErr := recorder.Start(ctx, cfg.Cabinet.ID); startErr != nil {
			return fmt.Errorf("starting telemetry recorder: %w", startErr)
		}
		defer func() {
			log.Info("stopping telemetry recorder")
			recorder.Close()
		}()
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		Logger:      log,
		Registry:    registry,
		Areas:       area.NewSQLiteRepository(db.DB),
		Control:     controlService,
		Sync:        syncService,
		Live:        projection,
		Health:      buildHealthCheckers(db, mqttClient, influxClient),
		ContainerID: cfg.Cabinet.ID,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, telemetry, InfluxDB, live view, MQTT, database

	log.Info("FarmCab Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FARMCAB_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FARMCAB_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildHealthCheckers wires component health probes for the API health endpoint.
func buildHealthCheckers(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) map[string]api.HealthChecker {
	checkers := map[string]api.HealthChecker{
		"database": db.HealthCheck,
		"mqtt":     mqttClient.HealthCheck,
	}
	if influxClient != nil {
		checkers["influxdb"] = influxClient.HealthCheck
	}
	return checkers
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
