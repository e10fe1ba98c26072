package geofence

import (
	"context"
	"fmt"
	"sync"

	"github.com/msgpo/kalliope-app/internal/synapse"
)

// Logger is the logging interface used by Bridge.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// initAttempt is one in-flight call to Platform.Initialize.
type initAttempt struct {
	done chan struct{}
	err  error
}

// Bridge registers geolocation synapses as fences on a Platform.
//
// Thread Safety:
//   - SetGeofence is safe for concurrent use. Platform.Initialize is never
//     called concurrently with itself.
type Bridge struct {
	platform Platform

	mu      sync.Mutex
	state   State
	attempt *initAttempt

	logger Logger
}

// NewBridge creates an uninitialised Bridge over platform.
func NewBridge(platform Platform) *Bridge {
	return &Bridge{
		platform: platform,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for initialisation and registration failures.
func (b *Bridge) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.mu.Lock()
	b.logger = logger
	b.mu.Unlock()
}

// State returns the current initialisation state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SetGeofence initialises the platform if needed, then registers an entry
// fence for every geolocation synapse in synapses.
//
// The returned error is non-nil only when initialisation fails; it wraps
// ErrInitFailed and the bridge stays uninitialised. Per-fence failures are
// logged and collected in Result.Failed without stopping the batch.
func (b *Bridge) SetGeofence(ctx context.Context, synapses []synapse.Synapse) (Result, error) {
	if err := b.ensureInitialized(ctx); err != nil {
		b.log().Warn("geofence platform initialisation failed", "error", err)
		return Result{}, fmt.Errorf("%w: %w", ErrInitFailed, err)
	}

	var result Result
	for _, f := range Fences(synapses) {
		err := f.Validate()
		if err == nil {
			err = b.platform.AddOrUpdate(ctx, f)
		}
		if err != nil {
			b.log().Warn("geofence registration failed", "fence", f.ID, "error", err)
			result.Failed = append(result.Failed, Failure{ID: f.ID, Err: err})
			continue
		}
		result.Registered = append(result.Registered, f.ID)
	}

	b.log().Info("geofences armed",
		"registered", len(result.Registered),
		"failed", len(result.Failed),
	)
	return result, nil
}

// ensureInitialized runs Platform.Initialize unless the bridge is already
// initialised. A caller that finds an attempt in flight waits for its
// outcome.
func (b *Bridge) ensureInitialized(ctx context.Context) error {
	b.mu.Lock()
	switch b.state {
	case StateInitialized:
		b.mu.Unlock()
		return nil
	case StateInitializing:
		attempt := b.attempt
		b.mu.Unlock()
		select {
		case <-attempt.done:
			return attempt.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	attempt := &initAttempt{done: make(chan struct{})}
	b.state = StateInitializing
	b.attempt = attempt
	b.mu.Unlock()

	err := b.platform.Initialize(ctx)

	b.mu.Lock()
	if err != nil {
		b.state = StateUninitialized
	} else {
		b.state = StateInitialized
	}
	b.attempt = nil
	attempt.err = err
	close(attempt.done)
	b.mu.Unlock()

	return err
}

func (b *Bridge) log() Logger {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logger
}
