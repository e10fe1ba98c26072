package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	_ "github.com/msgpo/kalliope-app/migrations"

	"github.com/msgpo/kalliope-app/internal/audit"
	"github.com/msgpo/kalliope-app/internal/geofence"
	"github.com/msgpo/kalliope-app/internal/geofence/owntracks"
	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
	"github.com/msgpo/kalliope-app/internal/infrastructure/database"
	"github.com/msgpo/kalliope-app/internal/infrastructure/influxdb"
	"github.com/msgpo/kalliope-app/internal/infrastructure/logging"
	"github.com/msgpo/kalliope-app/internal/infrastructure/mqtt"
	"github.com/msgpo/kalliope-app/internal/kalliope"
)

// Default configuration file path, used when it exists and neither
// --config nor KALLIOPE_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

// app holds what a command needs, built lazily so that commands only
// connect to the services they use.
type app struct {
	cfg *config.Config
	log *logging.Logger

	db       *database.DB
	migrated bool
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	history  *audit.Recorder

	closers []func()
}

// newApp loads configuration and sets up logging.
func newApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg: cfg,
		log: logging.New(cfg.Logging, version),
	}, nil
}

// loadConfig resolves the configuration source. An explicit path must
// exist; otherwise configuration comes from the environment.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("KALLIOPE_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			path = defaultConfigPath
		}
	}
	if path == "" {
		cfg, err := config.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// close releases connections in reverse order of opening.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// client builds the Kalliope client. Runs are recorded to the local
// history and to InfluxDB when those are enabled; either failing to open
// only disables that recorder.
func (a *app) client(ctx context.Context) *kalliope.Client {
	var recorders kalliope.Recorders
	if a.cfg.Database.History {
		history, err := a.runHistory(ctx)
		if err != nil {
			a.log.Warn("run history disabled", "error", err)
		} else {
			recorders = append(recorders, history)
		}
	}
	if a.cfg.InfluxDB.Enabled {
		influx, err := a.influxClient()
		if err != nil {
			a.log.Warn("run telemetry disabled", "error", err)
		} else {
			recorders = append(recorders, influx)
		}
	}

	opts := []kalliope.Option{
		kalliope.WithTimeout(a.cfg.GetKalliopeTimeout()),
		kalliope.WithLogger(a.log),
	}
	if len(recorders) > 0 {
		opts = append(opts, kalliope.WithRecorder(recorders))
	}
	return kalliope.New(opts...)
}

// runHistory returns the recorder writing to the run_history table.
func (a *app) runHistory(ctx context.Context) (*audit.Recorder, error) {
	if a.history != nil {
		return a.history, nil
	}
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	a.history = audit.NewRecorder(audit.NewSQLiteRepository(db.DB), a.log)
	return a.history, nil
}

func (a *app) influxClient() (*influxdb.Client, error) {
	if a.influx != nil {
		return a.influx, nil
	}
	influx, err := influxdb.Connect(a.cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	influx.SetOnError(func(err error) {
		a.log.Error("InfluxDB write error", "error", err)
	})
	a.log.Info("InfluxDB connected",
		"url", a.cfg.InfluxDB.URL,
		"org", a.cfg.InfluxDB.Org,
		"bucket", a.cfg.InfluxDB.Bucket,
	)
	a.influx = influx
	a.closers = append(a.closers, func() {
		if err := influx.Close(); err != nil {
			a.log.Error("error closing InfluxDB", "error", err)
		}
	})
	return influx, nil
}

// database opens the local database and applies pending migrations.
func (a *app) database(ctx context.Context) (*database.DB, error) {
	if a.db != nil && a.migrated {
		return a.db, nil
	}
	db, err := a.openDatabase()
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	a.migrated = true
	return db, nil
}

// openDatabase opens the local database without touching its schema.
func (a *app) openDatabase() (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Open(a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.closers = append(a.closers, func() {
		if err := db.Close(); err != nil {
			a.log.Error("error closing database", "error", err)
		}
	})
	a.log.Debug("database opened", "path", a.cfg.Database.Path)
	a.db = db
	return db, nil
}

func (a *app) mqttClient() (*mqtt.Client, error) {
	if a.mqtt != nil {
		return a.mqtt, nil
	}
	client, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(a.log.With("component", "mqtt"))
	a.log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port),
		"client_id", a.cfg.MQTT.Broker.ClientID,
	)
	a.mqtt = client
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.log.Error("error closing MQTT", "error", err)
		}
	})
	return client, nil
}

// errNoStore is returned by commands that need the local fence registry
// when another platform is configured.
var errNoStore = errors.New("the local fence registry is only kept by the sqlite geofence platform")

// store opens the local fence registry.
func (a *app) store(ctx context.Context) (*geofence.SQLiteStore, error) {
	if a.cfg.Geofence.Platform != config.PlatformSQLite {
		return nil, errNoStore
	}
	db, err := a.database(ctx)
	if err != nil {
		return nil, err
	}
	store := geofence.NewSQLiteStore(db)
	if err := store.Initialize(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// platform builds the configured geofence platform.
func (a *app) platform(ctx context.Context) (geofence.Platform, error) {
	switch a.cfg.Geofence.Platform {
	case config.PlatformOwnTracks:
		client, err := a.mqttClient()
		if err != nil {
			return nil, err
		}
		return owntracks.NewPlatform(client, a.cfg.Geofence.OwnTracks, client.QoS()), nil
	case config.PlatformSQLite, "":
		db, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		return geofence.NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unknown geofence platform %q", a.cfg.Geofence.Platform)
	}
}
