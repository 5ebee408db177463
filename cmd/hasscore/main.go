// Hass Core - MQTT Entity Platform
//
// This is the main entry point for the Hass Core service. It mirrors
// device-side MQTT topics into local entities (selects, update slots,
// lawn mowers), persists their state for restart recovery, and exposes
// them over a REST/WebSocket API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fcollonval/hass-core/internal/api"
	"github.com/fcollonval/hass-core/internal/entity"
	"github.com/fcollonval/hass-core/internal/infrastructure/config"
	"github.com/fcollonval/hass-core/internal/infrastructure/database"
	"github.com/fcollonval/hass-core/internal/infrastructure/influxdb"
	"github.com/fcollonval/hass-core/internal/infrastructure/logging"
	"github.com/fcollonval/hass-core/internal/infrastructure/mqtt"
	"github.com/fcollonval/hass-core/internal/template"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hass Core",
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
	log.Info("configuration loaded", "path", configPath, "entities", len(cfg.Entities))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
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

	store := database.NewStateStore(db)

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

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
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
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the entity registry on top of the infrastructure
	registry := entity.NewRegistry(entity.Deps{
		Transport: &mqttTransport{client: mqttClient},
		Templates: template.NewEngine(),
		Store:     store,
		Logger:    log,
	})
	defer func() {
		log.Info("stopping entities")
		if closeErr := registry.Close(); closeErr != nil {
			log.Error("error stopping entities", "error", closeErr)
		}
	}()

	if influxClient != nil {
		registry.AddNotifier(&influxNotifier{client: influxClient})
	}

	// Start the API server before entities so the WebSocket hub catches
	// restore-time and early state changes where possible
	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Registry: registry,
		History:  store,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	registry.AddNotifier(apiServer.Hub())

	// Set up entities from configuration
	if err := setupEntities(ctx, cfg, registry, log); err != nil {
		return err
	}
	log.Info("entities initialised", "count", registry.Count())

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Entity registry
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("Hass Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HASSCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HASSCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// setupEntities builds and starts every configured entity. A single bad
// entity definition aborts startup so misconfiguration is caught at boot
// rather than silently dropping entities.
func setupEntities(ctx context.Context, cfg *config.Config, registry *entity.Registry, log *logging.Logger) error {
	for _, ec := range cfg.Entities {
		entCfg := entityConfig(ec)
		if _, err := registry.Setup(ctx, entCfg); err != nil {
			return fmt.Errorf("setting up entity %s: %w", ec.ID, err)
		}
		log.Debug("entity started", "entity", ec.ID, "kind", ec.Kind)
	}
	return nil
}

// entityConfig converts a declarative YAML entity definition to the
// entity layer's configuration type.
func entityConfig(ec config.EntityConfig) entity.Config {
	return entity.Config{
		ID:   ec.ID,
		Name: ec.Name,
		Kind: entity.Kind(ec.Kind),

		StateTopic:   ec.StateTopic,
		CommandTopic: ec.CommandTopic,

		QoS:        byte(ec.EffectiveQoS()),
		Retain:     ec.Retain,
		Encoding:   ec.EffectiveEncoding(),
		Optimistic: ec.Optimistic,

		ValueTemplate:   ec.ValueTemplate,
		CommandTemplate: ec.CommandTemplate,

		Options: ec.Options,

		LatestVersionTopic:    ec.LatestVersionTopic,
		LatestVersionTemplate: ec.LatestVersionTemplate,
		DeviceClass:           ec.DeviceClass,
		Title:                 ec.Title,
		ReleaseSummary:        ec.ReleaseSummary,
		ReleaseURL:            ec.ReleaseURL,
		EntityPicture:         ec.EntityPicture,
		PayloadInstall:        ec.PayloadInstall,

		StartMowingCommandTopic:    ec.StartMowingCommandTopic,
		StartMowingCommandTemplate: ec.StartMowingCommandTemplate,
		PauseCommandTopic:          ec.PauseCommandTopic,
		PauseCommandTemplate:       ec.PauseCommandTemplate,
		DockCommandTopic:           ec.DockCommandTopic,
		DockCommandTemplate:        ec.DockCommandTemplate,
	}
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

// mqttTransport adapts the infrastructure MQTT client to the entity
// layer's Transport interface. The handler signatures are structurally
// identical but are distinct named types, so the subscription callback
// is rewrapped.
type mqttTransport struct {
	client *mqtt.Client
}

// Subscribe implements entity.Transport.
func (t *mqttTransport) Subscribe(topic string, qos byte, handler entity.MessageHandler) error {
	return t.client.Subscribe(topic, qos, func(topic string, payload []byte) error {
		return handler(topic, payload)
	})
}

// Unsubscribe implements entity.Transport.
func (t *mqttTransport) Unsubscribe(topic string) error {
	return t.client.Unsubscribe(topic)
}

// Publish implements entity.Transport.
func (t *mqttTransport) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return t.client.Publish(topic, payload, qos, retained)
}

// influxNotifier forwards committed entity state changes to InfluxDB as
// time-series points. Writes are non-blocking; failures surface through
// the client's error callback.
type influxNotifier struct {
	client *influxdb.Client
}

// EntityStateChanged implements entity.Notifier.
func (n *influxNotifier) EntityStateChanged(snap entity.Snapshot) {
	n.client.WriteStateChange(snap.ID, string(snap.Kind), snap.NativeValue())

	if snap.Kind == entity.KindUpdate && snap.InstalledVersion != nil && snap.LatestVersion != nil {
		n.client.WriteVersionChange(snap.ID, *snap.InstalledVersion, *snap.LatestVersion)
	}
}
