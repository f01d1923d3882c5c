package attendance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smarttrack/internal/model"
	"smarttrack/internal/qrtoken"
	"smarttrack/internal/queue"
	"smarttrack/internal/sentinel"
	"smarttrack/internal/store"
)

// Issuer creates attendance sessions and tracks the one each staff member
// currently has on display.
type Issuer struct {
	store store.Store
	deps
}

// NewIssuer creates an issuer backed by a store.
func NewIssuer(st store.Store, opts ...Option) *Issuer {
	d := defaultDeps()
	for _, opt := range opts {
		opt(&d)
	}
	return &Issuer{store: st, deps: d}
}

// SessionRequest is a staff member's request to open a check-in window.
type SessionRequest struct {
	StaffID            string
	Subject            string
	DurationMinutes    int
	NetworkLock        bool
	NetworkFingerprint string
}

// CreateSession validates the request, stores a new period at the head of
// the period collection and marks it as the staff member's current session.
// A session still on display is replaced; its period stays valid until it
// expires.
func (i *Issuer) CreateSession(ctx context.Context, req SessionRequest) (model.Period, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return model.Period{}, sentinel.New(sentinel.ErrInvalidInput, "subject is required")
	}
	if req.DurationMinutes < i.minMinutes || req.DurationMinutes > i.maxMinutes {
		return model.Period{}, sentinel.New(sentinel.ErrInvalidInput,
			fmt.Sprintf("duration must be between %d and %d minutes", i.minMinutes, i.maxMinutes))
	}
	lock := ""
	if req.NetworkLock {
		lock = strings.TrimSpace(req.NetworkFingerprint)
		if lock == "" {
			return model.Period{}, sentinel.New(sentinel.ErrInvalidInput, "network lock requires a network fingerprint")
		}
	}

	staff, err := store.FindUser(ctx, i.store, req.StaffID)
	if err != nil {
		return model.Period{}, err
	}
	if staff.Role != model.RoleStaff {
		return model.Period{}, sentinel.New(sentinel.ErrPolicyDenied, "only staff can issue sessions")
	}

	now := i.now()
	local := now.In(i.loc)
	period := model.Period{
		ID:          i.store.NewID(),
		StaffID:     req.StaffID,
		Date:        local.Format("2006-01-02"),
		Day:         local.Weekday().String(),
		Time:        local.Format("15:04"),
		Subject:     subject,
		NetworkLock: lock,
		CreatedAt:   now.UnixMilli(),
		ExpiresAt:   now.Add(time.Duration(req.DurationMinutes) * time.Minute).UnixMilli(),
	}

	periods, err := i.store.Periods(ctx)
	if err != nil {
		return model.Period{}, err
	}
	if err := i.store.SavePeriods(ctx, append([]model.Period{period}, periods...)); err != nil {
		return model.Period{}, err
	}

	marker := &model.ActiveSession{
		PeriodID:  period.ID,
		StaffID:   period.StaffID,
		Subject:   period.Subject,
		ExpiresAt: period.ExpiresAt,
		State:     model.SessionActive,
	}
	if err := i.store.SetCurrentSession(ctx, req.StaffID, marker); err != nil {
		return model.Period{}, err
	}

	i.metrics.IncSessionsIssued()
	i.logger.InfoContext(ctx, "session issued",
		"period_id", period.ID, "staff_id", period.StaffID, "subject", period.Subject,
		"expires_at", period.ExpiresAt, "network_locked", lock != "")
	i.publish(ctx, queue.TypePeriodIssued, PeriodIssuedEvent{
		PeriodID:      period.ID,
		StaffID:       period.StaffID,
		Subject:       period.Subject,
		ExpiresAt:     period.ExpiresAt,
		NetworkLocked: lock != "",
	})
	return period, nil
}

// Remaining is the whole seconds left before expiresAt, never negative.
func Remaining(expiresAt int64, now time.Time) int {
	ms := expiresAt - now.UnixMilli()
	if ms <= 0 {
		return 0
	}
	return int(ms / 1000)
}

// CurrentSession returns the staff member's session marker with its state
// brought up to date. A staff member without a marker gets SessionNone.
func (i *Issuer) CurrentSession(ctx context.Context, staffID string) (model.ActiveSession, error) {
	return i.current(ctx, staffID, i.now())
}

func (i *Issuer) current(ctx context.Context, staffID string, now time.Time) (model.ActiveSession, error) {
	marker, err := i.store.CurrentSession(ctx, staffID)
	if err != nil {
		return model.ActiveSession{}, err
	}
	if marker == nil {
		return model.ActiveSession{StaffID: staffID, State: model.SessionNone}, nil
	}
	if marker.State == model.SessionActive && Remaining(marker.ExpiresAt, now) == 0 {
		marker.State = model.SessionExpired
		if err := i.store.SetCurrentSession(ctx, staffID, marker); err != nil {
			return model.ActiveSession{}, err
		}
	}
	return *marker, nil
}

// Dismiss takes the session off display. Records already accepted stay.
func (i *Issuer) Dismiss(ctx context.Context, staffID string) (model.ActiveSession, error) {
	current, err := i.CurrentSession(ctx, staffID)
	if err != nil {
		return model.ActiveSession{}, err
	}
	if current.State == model.SessionNone {
		return current, sentinel.New(sentinel.ErrNotFound, "no session on display")
	}
	if err := i.store.SetCurrentSession(ctx, staffID, nil); err != nil {
		return model.ActiveSession{}, err
	}
	current.State = model.SessionDismissed
	i.logger.InfoContext(ctx, "session dismissed", "period_id", current.PeriodID, "staff_id", staffID)
	return current, nil
}

// Countdown emits the remaining seconds of the staff member's active session
// once per tick. The channel closes after emitting zero, when the session is
// no longer the current one, or when ctx ends. On reaching zero the marker
// moves to SessionExpired.
func (i *Issuer) Countdown(ctx context.Context, staffID string, tick time.Duration) (<-chan int, error) {
	current, err := i.CurrentSession(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if current.State != model.SessionActive {
		return nil, sentinel.New(sentinel.ErrNotFound, "no active session")
	}
	if tick <= 0 {
		tick = time.Second
	}

	out := make(chan int, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			now := i.now()
			marker, err := i.current(ctx, staffID, now)
			if err != nil {
				i.logger.WarnContext(ctx, "countdown read failed", "staff_id", staffID, "error", err)
				return
			}
			if marker.PeriodID != current.PeriodID {
				return
			}
			left := Remaining(current.ExpiresAt, now)
			select {
			case out <- left:
			case <-ctx.Done():
				return
			}
			if left == 0 {
				return
			}
		}
	}()
	return out, nil
}

// PeriodSummary is a period with its current headcount.
type PeriodSummary struct {
	model.Period
	Headcount int `json:"headcount"`
}

// Periods lists a staff member's periods, most recent first.
func (i *Issuer) Periods(ctx context.Context, staffID string) ([]PeriodSummary, error) {
	periods, err := i.store.Periods(ctx)
	if err != nil {
		return nil, err
	}
	records, err := i.store.Attendance(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(periods))
	for _, r := range records {
		counts[r.PeriodID]++
	}
	out := []PeriodSummary{}
	for _, p := range periods {
		if p.StaffID == staffID {
			out = append(out, PeriodSummary{Period: p, Headcount: counts[p.ID]})
		}
	}
	return out, nil
}

// PeriodRecords lists the check-ins of one period in arrival order.
func (i *Issuer) PeriodRecords(ctx context.Context, periodID string) ([]model.Record, error) {
	if _, err := store.FindPeriod(ctx, i.store, periodID); err != nil {
		return nil, err
	}
	records, err := i.store.Attendance(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Record{}
	for _, r := range records {
		if r.PeriodID == periodID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Token renders a period id as a QR PNG. The raw id is the payload.
func (i *Issuer) Token(ctx context.Context, periodID string) ([]byte, error) {
	if _, err := store.FindPeriod(ctx, i.store, periodID); err != nil {
		return nil, err
	}
	png, err := qrtoken.Encode(periodID, i.qr)
	if err != nil {
		return nil, fmt.Errorf("render token: %w", err)
	}
	return png, nil
}

// TokenDataURL is Token as a data: URL the dashboard can show without a
// second request.
func (i *Issuer) TokenDataURL(ctx context.Context, periodID string) (string, error) {
	if _, err := store.FindPeriod(ctx, i.store, periodID); err != nil {
		return "", err
	}
	url, err := qrtoken.DataURL(periodID, i.qr)
	if err != nil {
		return "", fmt.Errorf("render token: %w", err)
	}
	return url, nil
}
