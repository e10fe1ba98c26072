package audit

import (
	"context"
	"time"
)

// writeTimeout bounds one history insert made from RecordRun.
const writeTimeout = 5 * time.Second

// Logger is the logging interface used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes kalliope client runs to a Repository.
type Recorder struct {
	repo   Repository
	logger Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder. logger may be nil.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger, now: time.Now}
}

// RecordRun implements kalliope.Recorder. Insert failures are logged.
func (r *Recorder) RecordRun(subject, trigger, status string, duration time.Duration, err error) {
	e := &Entry{
		Action:     ActionRun,
		Subject:    subject,
		Source:     trigger,
		Status:     status,
		DurationMS: float64(duration) / float64(time.Millisecond),
		CreatedAt:  r.now().UTC(),
	}
	if err != nil {
		e.Status = "error"
		e.Error = err.Error()
	}
	r.create(e)
}

// RecordTransition writes a geofence transition reported by device.
func (r *Recorder) RecordTransition(fence, device, event string, at time.Time) {
	r.create(&Entry{
		Action:    ActionTransition,
		Subject:   fence,
		Source:    device,
		Status:    event,
		CreatedAt: at.UTC(),
	})
}

func (r *Recorder) create(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.repo.Create(ctx, e); err != nil {
		r.logger.Warn("writing run history failed", "action", e.Action, "subject", e.Subject, "error", err)
	}
}
