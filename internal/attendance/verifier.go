package attendance

import (
	"context"
	"errors"
	"strings"

	"smarttrack/internal/model"
	"smarttrack/internal/queue"
	"smarttrack/internal/sentinel"
	"smarttrack/internal/store"
)

// Rejection reasons shown to the student.
const (
	ReasonInvalidToken    = "invalid token"
	ReasonTokenExpired    = "token expired"
	ReasonNetworkMismatch = "network mismatch"
	ReasonDuplicateEntry  = "duplicate entry"
)

// Verifier checks scanned tokens and appends attendance records. It is the
// only writer of the attendance collection.
type Verifier struct {
	store store.Store
	deps
}

// NewVerifier creates a verifier backed by a store.
func NewVerifier(st store.Store, opts ...Option) *Verifier {
	d := defaultDeps()
	for _, opt := range opts {
		opt(&d)
	}
	return &Verifier{store: st, deps: d}
}

// Verify runs the checks in a fixed order and stops at the first failure:
// unknown period, expiry, network lock, duplicate. A scan at exactly
// expiresAt is accepted.
func (v *Verifier) Verify(ctx context.Context, studentID, token, networkFingerprint string) (model.Record, error) {
	rec, err := v.verify(ctx, studentID, strings.TrimSpace(token), networkFingerprint)
	outcome := outcomeOf(err)
	v.metrics.ObserveScan(outcome)
	if err != nil {
		v.logger.InfoContext(ctx, "scan rejected", "student_id", studentID, "outcome", outcome, "error", err)
		return model.Record{}, err
	}
	v.logger.InfoContext(ctx, "scan accepted", "student_id", studentID, "period_id", rec.PeriodID, "record_id", rec.ID)
	v.publish(ctx, queue.TypeCheckIn, CheckInEvent{
		RecordID:  rec.ID,
		PeriodID:  rec.PeriodID,
		StudentID: rec.StudentID,
		Subject:   rec.Subject,
		Timestamp: rec.Timestamp,
	})
	return rec, nil
}

func (v *Verifier) verify(ctx context.Context, studentID, token, networkFingerprint string) (model.Record, error) {
	period, err := store.FindPeriod(ctx, v.store, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return model.Record{}, sentinel.New(sentinel.ErrNotFound, ReasonInvalidToken)
		}
		return model.Record{}, err
	}

	now := v.now()
	if now.UnixMilli() > period.ExpiresAt {
		return model.Record{}, sentinel.New(sentinel.ErrExpired, ReasonTokenExpired)
	}

	if period.Locked() && networkFingerprint != period.NetworkLock {
		return model.Record{}, sentinel.New(sentinel.ErrPolicyDenied, ReasonNetworkMismatch)
	}

	records, err := v.store.Attendance(ctx)
	if err != nil {
		return model.Record{}, err
	}
	for _, r := range records {
		if r.StudentID == studentID && r.PeriodID == period.ID {
			return model.Record{}, sentinel.New(sentinel.ErrDuplicate, ReasonDuplicateEntry)
		}
	}

	staffName, err := v.staffName(ctx, period.StaffID)
	if err != nil {
		return model.Record{}, err
	}

	rec := model.Record{
		ID:        v.store.NewID(),
		PeriodID:  period.ID,
		StudentID: studentID,
		Timestamp: now.UnixMilli(),
		Subject:   period.Subject,
		StaffName: staffName,
		Date:      period.Date,
	}
	if err := v.store.SaveAttendance(ctx, append(records, rec)); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

func (v *Verifier) staffName(ctx context.Context, staffID string) (string, error) {
	staff, err := store.FindUser(ctx, v.store, staffID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return StaffPlaceholder, nil
	}
	if err != nil {
		return "", err
	}
	if staff.Role != model.RoleStaff || staff.FullName == "" {
		return StaffPlaceholder, nil
	}
	return staff.FullName, nil
}

// History lists a student's records in check-in order.
func (v *Verifier) History(ctx context.Context, studentID string) ([]model.Record, error) {
	records, err := v.store.Attendance(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Record{}
	for _, r := range records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, sentinel.ErrNotFound):
		return "invalid_token"
	case errors.Is(err, sentinel.ErrExpired):
		return "expired"
	case errors.Is(err, sentinel.ErrPolicyDenied):
		return "network_mismatch"
	case errors.Is(err, sentinel.ErrDuplicate):
		return "duplicate"
	}
	return "error"
}
