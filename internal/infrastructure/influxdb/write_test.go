package influxdb

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
)

func TestSynapseRunPoint(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		run  SynapseRun
		want []string
	}{
		{
			name: "completed run",
			run:  SynapseRun{Synapse: "home", Trigger: "name", Status: "complete", Duration: 1500 * time.Microsecond, At: at},
			want: []string{
				"synapse_runs,",
				"status=complete",
				"synapse=home",
				"trigger=name",
				"duration_ms=1.5",
				"success=true",
			},
		},
		{
			name: "failed run",
			run:  SynapseRun{Synapse: "home", Trigger: "name", Status: "complete", Err: errors.New("boom"), At: at},
			want: []string{"status=error", "success=false"},
		},
		{
			name: "missing status",
			run:  SynapseRun{Synapse: "lights", Trigger: "order", At: at},
			want: []string{"status=unknown", "trigger=order", "success=true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := write.PointToLineProtocol(synapseRunPoint(tt.run), time.Second)
			for _, part := range tt.want {
				if !strings.Contains(line, part) {
					t.Errorf("line %q does not contain %q", line, part)
				}
			}
			if !strings.HasSuffix(strings.TrimSpace(line), " 1791964800") {
				t.Errorf("line %q does not end with the run timestamp", line)
			}
		})
	}
}

func TestSynapseRunPoint_DefaultsTimestamp(t *testing.T) {
	before := time.Now()
	p := synapseRunPoint(SynapseRun{Synapse: "s"})

	if p.Time().Before(before.Add(-time.Second)) {
		t.Errorf("Time() = %v, want about now", p.Time())
	}
	if p.Name() != MeasurementSynapseRuns {
		t.Errorf("Name() = %q, want %q", p.Name(), MeasurementSynapseRuns)
	}
}

func TestTransitionPoint(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

	line := write.PointToLineProtocol(transitionPoint("home", "10.0.0.7", "exit", at), time.Second)

	for _, want := range []string{"geofence_transitions,event=exit,fence=home ", `device="10.0.0.7"`, "count=1i", " 1791964800"} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q does not contain %q", line, want)
		}
	}
}

func TestClientOptions(t *testing.T) {
	opts := clientOptions(config.InfluxDBConfig{BatchSize: 0, FlushInterval: -1})
	if opts.BatchSize() != defaultBatchSize || opts.FlushInterval() != uint(defaultFlushInterval.Milliseconds()) {
		t.Errorf("defaults = %d/%d", opts.BatchSize(), opts.FlushInterval())
	}

	opts = clientOptions(config.InfluxDBConfig{BatchSize: 5, FlushInterval: 2})
	if opts.BatchSize() != 5 || opts.FlushInterval() != 2000 {
		t.Errorf("configured = %d/%d, want 5/2000", opts.BatchSize(), opts.FlushInterval())
	}
}
