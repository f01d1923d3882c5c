// Package admin implements the administrator's operations over the user
// collection.
package admin

import (
	"context"
	"log/slog"
	"strings"

	"smarttrack/internal/metrics"
	"smarttrack/internal/model"
	"smarttrack/internal/sentinel"
	"smarttrack/internal/store"
)

// Binding filters users by device binding.
type Binding string

const (
	BindingAll      Binding = "all"
	BindingLinked   Binding = "linked"
	BindingUnlinked Binding = "unlinked"
)

// ParseBinding maps an empty value to BindingAll.
func ParseBinding(s string) (Binding, error) {
	switch b := Binding(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BindingAll:
		return BindingAll, nil
	case BindingLinked, BindingUnlinked:
		return b, nil
	}
	return "", sentinel.New(sentinel.ErrInvalidInput, "binding must be all, linked or unlinked")
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	// Query is a case-insensitive substring of name, email, admission
	// number or staff id.
	Query   string
	Role    model.Role
	Binding Binding
}

func (f Filter) match(u model.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	switch f.Binding {
	case BindingLinked:
		if !u.Bound() {
			return false
		}
	case BindingUnlinked:
		if u.Bound() {
			return false
		}
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{u.FullName, u.Email, u.AdmissionNumber(), u.StaffID()} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Registry lists, deletes and unbinds users. Deleting a user leaves their
// periods and attendance records in place.
type Registry struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewRegistry creates a registry; logger and m may be nil.
func NewRegistry(st store.Store, logger *slog.Logger, m *metrics.Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: st, logger: logger, metrics: m}
}

// List returns matching users in stored order, without passwords.
func (r *Registry) List(ctx context.Context, f Filter) ([]model.User, error) {
	users, err := r.store.Users(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.User{}
	for _, u := range users {
		if f.match(u) {
			out = append(out, u.Public())
		}
	}
	return out, nil
}

// Delete removes one user.
func (r *Registry) Delete(ctx context.Context, id string) error {
	n, err := r.remove(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.New(sentinel.ErrNotFound, "user not found")
	}
	return nil
}

// BulkDelete removes every listed user that exists and reports how many.
func (r *Registry) BulkDelete(ctx context.Context, ids []string) (int, error) {
	return r.remove(ctx, ids)
}

// Unbind clears one user's device binding.
func (r *Registry) Unbind(ctx context.Context, id string) error {
	n, err := r.unbind(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.New(sentinel.ErrNotFound, "user not found")
	}
	return nil
}

// BulkUnbind clears the binding of every listed user that exists.
func (r *Registry) BulkUnbind(ctx context.Context, ids []string) (int, error) {
	return r.unbind(ctx, ids)
}

func (r *Registry) remove(ctx context.Context, ids []string) (int, error) {
	drop := toSet(ids)
	users, err := r.store.Users(ctx)
	if err != nil {
		return 0, err
	}
	kept := make([]model.User, 0, len(users))
	for _, u := range users {
		if !drop[u.ID] {
			kept = append(kept, u)
		}
	}
	n := len(users) - len(kept)
	if n == 0 {
		return 0, nil
	}
	if err := r.store.SaveUsers(ctx, kept); err != nil {
		return 0, err
	}
	r.logger.InfoContext(ctx, "users deleted", "count", n)
	return n, nil
}

func (r *Registry) unbind(ctx context.Context, ids []string) (int, error) {
	want := toSet(ids)
	users, err := r.store.Users(ctx)
	if err != nil {
		return 0, err
	}
	matched, cleared := 0, 0
	for i := range users {
		if !want[users[i].ID] {
			continue
		}
		matched++
		if users[i].Bound() {
			users[i].DeviceFingerprint = ""
			cleared++
		}
	}
	if cleared > 0 {
		if err := r.store.SaveUsers(ctx, users); err != nil {
			return 0, err
		}
		r.metrics.AddDeviceUnbinds(cleared)
		r.logger.InfoContext(ctx, "devices unbound", "count", cleared)
	}
	return matched, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Stats summarizes the store for the admin dashboard.
type Stats struct {
	Users             map[model.Role]int `json:"users"`
	Linked            int                `json:"linked"`
	Sessions          int                `json:"sessions"`
	Records           int                `json:"records"`
	RecordsPerStudent map[string]int     `json:"records_per_student"`
}

func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	users, err := r.store.Users(ctx)
	if err != nil {
		return Stats{}, err
	}
	periods, err := r.store.Periods(ctx)
	if err != nil {
		return Stats{}, err
	}
	records, err := r.store.Attendance(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		Users:             map[model.Role]int{model.RoleStudent: 0, model.RoleStaff: 0},
		Sessions:          len(periods),
		Records:           len(records),
		RecordsPerStudent: map[string]int{},
	}
	for _, u := range users {
		st.Users[u.Role]++
		if u.Bound() {
			st.Linked++
		}
	}
	for _, rec := range records {
		st.RecordsPerStudent[rec.StudentID]++
	}
	return st, nil
}
