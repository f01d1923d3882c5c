package attendance

import (
	"context"
	"log/slog"
	"time"

	"smarttrack/internal/metrics"
	"smarttrack/internal/qrtoken"
	"smarttrack/internal/queue"
)

// Publisher receives events for accepted check-ins and issued sessions.
type Publisher = queue.Publisher

// StaffPlaceholder is the staff name copied into a record when the period's
// owner can no longer be found.
const StaffPlaceholder = "Academic Staff"

type deps struct {
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
	publisher  Publisher
	loc        *time.Location
	minMinutes int
	maxMinutes int
	qr         qrtoken.Options
}

func defaultDeps() deps {
	return deps{
		now:        time.Now,
		logger:     slog.Default(),
		loc:        time.UTC,
		minMinutes: 1,
		maxMinutes: 10,
		qr:         qrtoken.DefaultOptions(),
	}
}

// Option configures the attendance services.
type Option func(*deps)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		if now != nil {
			d.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *deps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

func WithPublisher(p Publisher) Option {
	return func(d *deps) { d.publisher = p }
}

// WithLocation sets the zone used for the human-readable date, day and time.
func WithLocation(loc *time.Location) Option {
	return func(d *deps) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// WithDurationRange bounds session length in minutes.
func WithDurationRange(minMinutes, maxMinutes int) Option {
	return func(d *deps) {
		if minMinutes >= 1 && maxMinutes >= minMinutes {
			d.minMinutes = minMinutes
			d.maxMinutes = maxMinutes
		}
	}
}

func WithQROptions(opts qrtoken.Options) Option {
	return func(d *deps) { d.qr = opts }
}

func (d *deps) publish(ctx context.Context, typ string, v any) {
	if d.publisher == nil {
		return
	}
	if err := queue.PublishJSON(ctx, d.publisher, typ, v); err != nil {
		d.logger.WarnContext(ctx, "event publish failed", "type", typ, "error", err)
	}
}

// CheckInEvent is published after a record is appended.
type CheckInEvent struct {
	RecordID  string `json:"record_id"`
	PeriodID  string `json:"period_id"`
	StudentID string `json:"student_id"`
	Subject   string `json:"subject"`
	Timestamp int64  `json:"timestamp"`
}

// PeriodIssuedEvent is published after a session is created.
type PeriodIssuedEvent struct {
	PeriodID      string `json:"period_id"`
	StaffID       string `json:"staff_id"`
	Subject       string `json:"subject"`
	ExpiresAt     int64  `json:"expires_at"`
	NetworkLocked bool   `json:"network_locked"`
}
