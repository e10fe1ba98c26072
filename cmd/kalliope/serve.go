package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msgpo/kalliope-app/internal/api"
	"github.com/msgpo/kalliope-app/internal/audit"
	"github.com/msgpo/kalliope-app/internal/geofence"
	"github.com/msgpo/kalliope-app/internal/geofence/owntracks"
	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
)

func newServeCmd(setup setupFunc) *cobra.Command {
	var arm bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay API and the geofence trigger loop",
		Long: `serve starts the relay HTTP API. With geofences enabled it also arms a
fence for every geolocation synapse and starts the synapse when a device
enters it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(cmd.Context(), arm)
		},
	}
	cmd.Flags().BoolVar(&arm, "arm", true, "arm geofences on startup")
	return cmd
}

// serve runs until ctx is cancelled.
func (a *app) serve(ctx context.Context, arm bool) error {
	a.log.Info("starting kalliope-app",
		"version", version,
		"commit", commit,
		"build_date", date,
		"kalliope", a.cfg.Settings().BaseURL(),
	)

	client := a.client(ctx)
	settings := a.cfg.Settings()

	deps := api.Deps{
		Config:   a.cfg.API,
		Logger:   a.log,
		Synapses: client,
		Settings: settings,
		Version:  version,
	}
	watcherCfg := owntracks.WatcherConfig{
		Runner:      client,
		Settings:    settings,
		TopicPrefix: a.cfg.Geofence.OwnTracks.TopicPrefix,
		Logger:      a.log.With("component", "owntracks"),
	}

	var transitions owntracks.TransitionRecorders
	if a.history != nil {
		transitions = append(transitions, a.history)
		deps.History = audit.NewSQLiteRepository(a.db.DB)
	}
	if a.influx != nil {
		transitions = append(transitions, a.influx)
	}
	if len(transitions) > 0 {
		watcherCfg.History = transitions
	}

	var bridge *geofence.Bridge
	if a.cfg.Geofence.Enabled {
		var platform geofence.Platform
		switch a.cfg.Geofence.Platform {
		case config.PlatformSQLite:
			store, err := a.store(ctx)
			if err != nil {
				return fmt.Errorf("opening fence registry: %w", err)
			}
			deps.Fences = store
			watcherCfg.Recorder = store
			platform = store
		default:
			p, err := a.platform(ctx)
			if err != nil {
				return err
			}
			platform = p
		}
		bridge = geofence.NewBridge(platform)
		bridge.SetLogger(a.log.With("component", "geofence"))
		deps.Geofence = bridge
	}

	if a.mqtt != nil {
		watcherCfg.Announcer = a.mqtt
		watcherCfg.QoS = a.mqtt.QoS()
	}
	watcher := owntracks.NewWatcher(watcherCfg)
	deps.OwnTracks = watcher

	if a.mqtt != nil {
		if err := watcher.Start(ctx, a.mqtt); err != nil {
			return fmt.Errorf("starting geofence watcher: %w", err)
		}
		defer func() {
			if err := watcher.Stop(); err != nil {
				a.log.Warn("error stopping geofence watcher", "error", err)
			}
		}()
	}

	if bridge != nil && arm {
		a.armOnStartup(ctx, client, bridge)
	}

	deps.Checks = a.healthChecks()
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			a.log.Error("error closing API server", "error", err)
		}
	}()
	a.log.Info("kalliope-app ready", "address", server.Addr())

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return nil
}

// armOnStartup registers fences once. Failures are logged; the relay keeps
// running and fences can be armed later through the API.
func (a *app) armOnStartup(ctx context.Context, client api.SynapseService, bridge *geofence.Bridge) {
	synapses, err := client.GetSynapses(ctx, a.cfg.Settings())
	if err != nil {
		a.log.Warn("listing synapses for geofences failed", "error", err)
		return
	}
	if _, err := bridge.SetGeofence(ctx, synapses); err != nil {
		a.log.Warn("arming geofences failed", "error", err)
	}
}

// healthChecks returns a check for every backend this process opened.
func (a *app) healthChecks() map[string]api.HealthChecker {
	checks := make(map[string]api.HealthChecker)
	if a.db != nil {
		checks["database"] = a.db
	}
	if a.mqtt != nil {
		checks["mqtt"] = a.mqtt
	}
	if a.influx != nil {
		checks["influxdb"] = a.influx
	}
	return checks
}
