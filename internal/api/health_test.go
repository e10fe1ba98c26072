package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
	"github.com/msgpo/kalliope-app/internal/infrastructure/logging"
)

type checkFunc func(ctx context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func TestHealth_Components(t *testing.T) {
	ok := checkFunc(func(context.Context) error { return nil })
	down := checkFunc(func(context.Context) error { return errors.New("mqtt: client not connected") })

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantCode   int
		wantStatus string
		wantParts  map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthChecker{"database": ok, "mqtt": ok},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantParts:  map[string]string{"database": "ok", "mqtt": "ok"},
		},
		{
			name:       "one down",
			checks:     map[string]HealthChecker{"database": ok, "mqtt": down},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantParts:  map[string]string{"database": "ok", "mqtt": "mqtt: client not connected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, testServer(t, Deps{Checks: tt.checks}), http.MethodGet, "/api/v1/health", "")

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body healthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body: %v", err)
			}
			if body.Status != tt.wantStatus || body.Version != "test" {
				t.Errorf("status = %q version = %q", body.Status, body.Version)
			}
			if len(body.Components) != len(tt.wantParts) {
				t.Errorf("components = %v, want %v", body.Components, tt.wantParts)
			}
			for name, want := range tt.wantParts {
				if body.Components[name] != want {
					t.Errorf("components[%s] = %q, want %q", name, body.Components[name], want)
				}
			}
		})
	}
}

func TestHealth_CheckHasDeadline(t *testing.T) {
	var hadDeadline bool
	check := checkFunc(func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})

	do(t, testServer(t, Deps{Checks: map[string]HealthChecker{"influxdb": check}}), http.MethodGet, "/api/v1/health", "")

	if !hadDeadline {
		t.Error("health check ran without a deadline")
	}
}

func TestPanicRecovered(t *testing.T) {
	logger := logging.NewWithWriter(config.LoggingConfig{Level: "error", Format: "text"}, "test", io.Discard)
	srv, err := New(Deps{Logger: logger, Synapses: &fakeSynapses{}})
	if err != nil {
		t.Fatal(err)
	}
	h := srv.withRequestID(srv.accessLog(srv.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))))

	rec := do(t, h, http.MethodGet, "/", "")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing on recovered response")
	}
}
