package store

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"smarttrack/internal/model"
	"smarttrack/internal/sentinel"
)

// Store is the record store every service is built on. Each collection is
// read and replaced as a whole; concurrent writers race and the last one wins.
type Store interface {
	Users(ctx context.Context) ([]model.User, error)
	SaveUsers(ctx context.Context, users []model.User) error
	Periods(ctx context.Context) ([]model.Period, error)
	SavePeriods(ctx context.Context, periods []model.Period) error
	Attendance(ctx context.Context) ([]model.Record, error)
	SaveAttendance(ctx context.Context, records []model.Record) error
	// CurrentSession returns nil when the staff member has no session on display.
	CurrentSession(ctx context.Context, staffID string) (*model.ActiveSession, error)
	// SetCurrentSession replaces the marker; nil clears it.
	SetCurrentSession(ctx context.Context, staffID string, session *model.ActiveSession) error
	NewID() string
	NewDeviceID() string
}

// KV is the byte-level backend a Collections store serializes into.
// Get returns nil, nil for a missing key.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const (
	KeyUsers      = "smarttrack:users"
	KeyPeriods    = "smarttrack:periods"
	KeyAttendance = "smarttrack:attendance"
	keySession    = "smarttrack:session:"
)

// SessionKey is the key of a staff member's current-session marker.
func SessionKey(staffID string) string { return keySession + staffID }

// Collections implements Store by storing each collection as one JSON document.
type Collections struct {
	kv KV
}

// New wraps a KV backend.
func New(kv KV) *Collections {
	return &Collections{kv: kv}
}

func (c *Collections) Users(ctx context.Context) ([]model.User, error) {
	var users []model.User
	return users, c.load(ctx, KeyUsers, &users)
}

func (c *Collections) SaveUsers(ctx context.Context, users []model.User) error {
	return c.save(ctx, KeyUsers, nonNil(users))
}

func (c *Collections) Periods(ctx context.Context) ([]model.Period, error) {
	var periods []model.Period
	return periods, c.load(ctx, KeyPeriods, &periods)
}

func (c *Collections) SavePeriods(ctx context.Context, periods []model.Period) error {
	return c.save(ctx, KeyPeriods, nonNil(periods))
}

func (c *Collections) Attendance(ctx context.Context) ([]model.Record, error) {
	var records []model.Record
	return records, c.load(ctx, KeyAttendance, &records)
}

func (c *Collections) SaveAttendance(ctx context.Context, records []model.Record) error {
	return c.save(ctx, KeyAttendance, nonNil(records))
}

func (c *Collections) CurrentSession(ctx context.Context, staffID string) (*model.ActiveSession, error) {
	raw, err := c.kv.Get(ctx, SessionKey(staffID))
	if err != nil {
		return nil, fmt.Errorf("load current session: %w", err)
	}
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	var s model.ActiveSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode current session: %w", err)
	}
	return &s, nil
}

func (c *Collections) SetCurrentSession(ctx context.Context, staffID string, session *model.ActiveSession) error {
	if session == nil {
		if err := c.kv.Delete(ctx, SessionKey(staffID)); err != nil {
			return fmt.Errorf("clear current session: %w", err)
		}
		return nil
	}
	return c.save(ctx, SessionKey(staffID), session)
}

func (c *Collections) NewID() string { return uuid.NewString() }

func (c *Collections) NewDeviceID() string { return uuid.NewString() }

func (c *Collections) load(ctx context.Context, key string, dst any) error {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (c *Collections) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// FindUser looks a user up by id.
func FindUser(ctx context.Context, s Store, id string) (model.User, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sentinel.New(sentinel.ErrNotFound, "user not found")
}

// FindPeriod looks a period up by id.
func FindPeriod(ctx context.Context, s Store, id string) (model.Period, error) {
	periods, err := s.Periods(ctx)
	if err != nil {
		return model.Period{}, err
	}
	for _, p := range periods {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Period{}, sentinel.New(sentinel.ErrNotFound, "period not found")
}
