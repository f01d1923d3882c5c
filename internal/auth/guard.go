package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"smarttrack/internal/metrics"
	"smarttrack/internal/model"
	"smarttrack/internal/sentinel"
	"smarttrack/internal/store"
)

// Rejection reasons.
const (
	ReasonAuthFailed     = "authentication failed"
	ReasonDeviceMismatch = "device mismatch"
)

// AdminID is the user id carried by the configured administrator.
const AdminID = "admin"

// AdminCredentials are the single administrator's login. Admins are not
// stored in the user collection.
type AdminCredentials struct {
	Username string
	Password string
}

// Guard registers users, authenticates them and enforces the one-device
// binding for students.
//
// Secrets are stored and compared in plaintext, and this path carries no
// rate limiting of its own.
type Guard struct {
	store   store.Store
	admin   AdminCredentials
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

func WithLogger(logger *slog.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) GuardOption {
	return func(g *Guard) { g.metrics = m }
}

// NewGuard creates a guard backed by a store.
func NewGuard(st store.Store, admin AdminCredentials, opts ...GuardOption) *Guard {
	g := &Guard{store: st, admin: admin, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterRequest is a self-service sign-up.
type RegisterRequest struct {
	FullName        string     `json:"full_name"`
	Email           string     `json:"email"`
	Password        string     `json:"password"`
	Role            model.Role `json:"role"`
	AdmissionNumber string     `json:"admission_number"`
	Course          string     `json:"course"`
	Year            string     `json:"year"`
	StaffID         string     `json:"staff_id"`
	Subject         string     `json:"subject"`
}

// Register creates a student or staff account. Emails are unique,
// compared case-insensitively.
func (g *Guard) Register(ctx context.Context, req RegisterRequest) (model.User, error) {
	name := strings.TrimSpace(req.FullName)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return model.User{}, sentinel.New(sentinel.ErrInvalidInput, "name, email and password are required")
	}

	user := model.User{
		FullName: name,
		Email:    email,
		Password: req.Password,
		Role:     req.Role,
	}
	switch req.Role {
	case model.RoleStudent:
		admission := strings.TrimSpace(req.AdmissionNumber)
		course := strings.TrimSpace(req.Course)
		if admission == "" || course == "" {
			return model.User{}, sentinel.New(sentinel.ErrInvalidInput, "students need an admission number and course")
		}
		user.Student = &model.StudentProfile{AdmissionNumber: admission, Course: course, Year: strings.TrimSpace(req.Year)}
	case model.RoleStaff:
		user.Staff = &model.StaffProfile{StaffID: strings.TrimSpace(req.StaffID), Subject: strings.TrimSpace(req.Subject)}
	case model.RoleAdmin:
		return model.User{}, sentinel.New(sentinel.ErrPolicyDenied, "admin accounts cannot be registered")
	default:
		return model.User{}, sentinel.New(sentinel.ErrInvalidInput, "unknown role")
	}

	users, err := g.store.Users(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return model.User{}, sentinel.New(sentinel.ErrDuplicate, "email already registered")
		}
	}

	user.ID = g.store.NewID()
	if err := user.Validate(); err != nil {
		return model.User{}, sentinel.New(sentinel.ErrInvalidInput, err.Error())
	}
	if err := g.store.SaveUsers(ctx, append(users, user)); err != nil {
		return model.User{}, err
	}
	g.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// LoginResult is a successful authentication.
type LoginResult struct {
	User       model.User `json:"user"`
	NewlyBound bool       `json:"newly_bound"`
}

// Authenticate checks credentials for role. Students are additionally bound
// to candidateDeviceID on their first login and rejected from any other
// device afterwards until an administrator unbinds them.
func (g *Guard) Authenticate(ctx context.Context, role model.Role, identifier, secret, candidateDeviceID string) (LoginResult, error) {
	res, err := g.authenticate(ctx, role, strings.TrimSpace(identifier), secret, strings.TrimSpace(candidateDeviceID))
	outcome := "ok"
	switch {
	case errors.Is(err, sentinel.ErrPolicyDenied):
		outcome = "device_mismatch"
	case errors.Is(err, sentinel.ErrInvalidCredentials):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	g.metrics.ObserveLogin(string(role), outcome)
	if err != nil {
		g.logger.InfoContext(ctx, "login rejected", "role", role, "outcome", outcome, "error", err)
		return LoginResult{}, err
	}
	g.logger.InfoContext(ctx, "login", "role", role, "user_id", res.User.ID, "newly_bound", res.NewlyBound)
	return res, nil
}

func (g *Guard) authenticate(ctx context.Context, role model.Role, identifier, secret, candidate string) (LoginResult, error) {
	if role == model.RoleAdmin {
		if g.admin.Username == "" || identifier != g.admin.Username || secret != g.admin.Password {
			return LoginResult{}, sentinel.New(sentinel.ErrInvalidCredentials, ReasonAuthFailed)
		}
		return LoginResult{User: model.User{ID: AdminID, FullName: "Administrator", Role: model.RoleAdmin}}, nil
	}

	users, err := g.store.Users(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	idx := -1
	for i, u := range users {
		if u.Role == role && strings.EqualFold(u.Email, identifier) && u.Password == secret {
			idx = i
			break
		}
	}
	if idx < 0 || identifier == "" {
		return LoginResult{}, sentinel.New(sentinel.ErrInvalidCredentials, ReasonAuthFailed)
	}
	user := users[idx]
	if role != model.RoleStudent {
		return LoginResult{User: user}, nil
	}

	if candidate == "" {
		return LoginResult{}, sentinel.New(sentinel.ErrInvalidInput, "device id is required")
	}
	switch user.DeviceFingerprint {
	case candidate:
		return LoginResult{User: user}, nil
	case "":
		users[idx].DeviceFingerprint = candidate
		if err := g.store.SaveUsers(ctx, users); err != nil {
			return LoginResult{}, err
		}
		g.metrics.IncDeviceBindings()
		g.logger.InfoContext(ctx, "device bound", "user_id", user.ID)
		return LoginResult{User: users[idx], NewlyBound: true}, nil
	}
	return LoginResult{}, sentinel.New(sentinel.ErrPolicyDenied, ReasonDeviceMismatch)
}

// UnbindDevice clears a user's device binding; the next login binds again.
func (g *Guard) UnbindDevice(ctx context.Context, userID string) (model.User, error) {
	users, err := g.store.Users(ctx)
	if err != nil {
		return model.User{}, err
	}
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		users[i].DeviceFingerprint = ""
		if err := g.store.SaveUsers(ctx, users); err != nil {
			return model.User{}, err
		}
		g.metrics.AddDeviceUnbinds(1)
		g.logger.InfoContext(ctx, "device unbound", "user_id", userID)
		return users[i], nil
	}
	return model.User{}, sentinel.New(sentinel.ErrNotFound, "user not found")
}
