package influxdb_test

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
	"github.com/msgpo/kalliope-app/internal/infrastructure/influxdb"
)

// fakeInflux answers pings and collects written line protocol.
type fakeInflux struct {
	mu      sync.Mutex
	healthy bool
	lines   []string
	query   string
}

func (f *fakeInflux) handler(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/ping":
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/write":
		var body io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			body = zr
		}
		data, _ := io.ReadAll(body) //nolint:errcheck // Test server
		f.query = r.URL.RawQuery
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if line != "" {
				f.lines = append(f.lines, line)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func newFakeInflux(t *testing.T, healthy bool) (*fakeInflux, config.InfluxDBConfig) {
	t.Helper()
	fake := &fakeInflux{healthy: healthy}
	srv := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(srv.Close)
	return fake, config.InfluxDBConfig{
		Enabled:       true,
		URL:           srv.URL,
		Token:         "test-token",
		Org:           "kalliope",
		Bucket:        "telemetry",
		BatchSize:     10,
		FlushInterval: 1,
	}
}

// waitForLines polls until n lines were written.
func waitForLines(t *testing.T, fake *fakeInflux, n int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lines := fake.written(); len(lines) >= n {
			return lines
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("written lines = %v, want %d", fake.written(), n)
	return nil
}

func TestConnect_Disabled(t *testing.T) {
	_, cfg := newFakeInflux(t, true)
	cfg.Enabled = false

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	_, cfg := newFakeInflux(t, false)

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: true, URL: "http://127.0.0.1:1", Org: "o", Bucket: "b"}

	if _, err := influxdb.Connect(cfg); !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestHealthCheck(t *testing.T) {
	_, cfg := newFakeInflux(t, true)

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
	if err := (&influxdb.Client{}).HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() on zero client error = %v, want ErrNotConnected", err)
	}
}

func TestRecordRunAndTransition(t *testing.T) {
	fake, cfg := newFakeInflux(t, true)

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	var (
		errMu    sync.Mutex
		writeErr error
	)
	client.SetOnError(func(err error) {
		errMu.Lock()
		writeErr = err
		errMu.Unlock()
	})

	client.RecordRun("say-hello", "name", "complete", 42*time.Millisecond, nil)
	client.RecordTransition("home", "owntracks/alice/phone/event", "enter", time.Unix(1791964800, 0))
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	lines := waitForLines(t, fake, 2)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{
		"synapse_runs,",
		"synapse=say-hello",
		"duration_ms=42",
		"geofence_transitions,event=enter,fence=home",
		`device="owntracks/alice/phone/event"`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("written %q, missing %q", joined, want)
		}
	}
	fake.mu.Lock()
	query := fake.query
	fake.mu.Unlock()
	if !strings.Contains(query, "bucket=telemetry") || !strings.Contains(query, "org=kalliope") {
		t.Errorf("write query = %q", query)
	}
	errMu.Lock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
	errMu.Unlock()

	// Dropped once closed.
	client.RecordRun("late", "name", "complete", time.Millisecond, nil)
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestZeroClient(t *testing.T) {
	client := &influxdb.Client{}

	client.RecordRun("s", "name", "complete", time.Millisecond, nil)
	client.RecordTransition("home", "dev", "exit", time.Time{})
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}
