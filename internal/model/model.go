package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of account kinds.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole accepts the role names case-insensitively.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleStaff:
		return RoleStaff, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// StudentProfile holds the fields only students carry.
type StudentProfile struct {
	AdmissionNumber string `json:"admission_number"`
	Course          string `json:"course"`
	Year            string `json:"year,omitempty"`
}

// StaffProfile holds the fields only staff carry.
type StaffProfile struct {
	StaffID string `json:"staff_id,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// User is a registered account. Exactly one of Student or Staff is set,
// matching Role. Admin principals are never stored.
type User struct {
	ID                string          `json:"id"`
	FullName          string          `json:"full_name"`
	Email             string          `json:"email"`
	Password          string          `json:"password,omitempty"`
	Role              Role            `json:"role"`
	DeviceFingerprint string          `json:"device_fingerprint,omitempty"`
	Student           *StudentProfile `json:"student,omitempty"`
	Staff             *StaffProfile   `json:"staff,omitempty"`
}

// Validate checks that the role-specific profile matches the role.
func (u User) Validate() error {
	switch u.Role {
	case RoleStudent:
		if u.Student == nil || u.Staff != nil {
			return fmt.Errorf("student %s must carry only a student profile", u.ID)
		}
	case RoleStaff:
		if u.Staff == nil || u.Student != nil {
			return fmt.Errorf("staff %s must carry only a staff profile", u.ID)
		}
	case RoleAdmin:
		if u.Student != nil || u.Staff != nil {
			return fmt.Errorf("admin %s must not carry a profile", u.ID)
		}
	default:
		return fmt.Errorf("user %s has unknown role %q", u.ID, u.Role)
	}
	return nil
}

// Bound reports whether the account is linked to a device.
func (u User) Bound() bool { return u.DeviceFingerprint != "" }

// AdmissionNumber is empty for non-students.
func (u User) AdmissionNumber() string {
	if u.Student == nil {
		return ""
	}
	return u.Student.AdmissionNumber
}

// StaffID is empty for non-staff.
func (u User) StaffID() string {
	if u.Staff == nil {
		return ""
	}
	return u.Staff.StaffID
}

// Public strips the password before the user leaves the service boundary.
func (u User) Public() User {
	u.Password = ""
	return u
}

// Period is one time-boxed check-in window. Instants are epoch milliseconds.
type Period struct {
	ID          string `json:"id"`
	StaffID     string `json:"staff_id"`
	Date        string `json:"date"`
	Day         string `json:"day"`
	Time        string `json:"time"`
	Subject     string `json:"subject"`
	NetworkLock string `json:"network_lock"`
	CreatedAt   int64  `json:"created_at"`
	ExpiresAt   int64  `json:"expires_at"`
}

// Locked reports whether scans must come from the lock network.
func (p Period) Locked() bool { return strings.TrimSpace(p.NetworkLock) != "" }

// Record is the immutable proof of one check-in.
type Record struct {
	ID        string `json:"id"`
	PeriodID  string `json:"period_id"`
	StudentID string `json:"student_id"`
	Timestamp int64  `json:"timestamp"`
	Subject   string `json:"subject"`
	StaffName string `json:"staff_name"`
	Date      string `json:"date"`
}

// SessionState is the lifecycle of a staff member's displayed session.
type SessionState string

const (
	SessionNone      SessionState = "none"
	SessionActive    SessionState = "active"
	SessionExpired   SessionState = "expired"
	SessionDismissed SessionState = "dismissed"
)

// ActiveSession is the current-session marker for one staff member.
type ActiveSession struct {
	PeriodID  string       `json:"period_id"`
	StaffID   string       `json:"staff_id"`
	Subject   string       `json:"subject"`
	ExpiresAt int64        `json:"expires_at"`
	State     SessionState `json:"state"`
}
