package models

import (
	"strings"
	"time"
)

// Role names recognised by the dashboard.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleStaff    = "staff"
	RoleUser     = "user"
	RoleOperator = "operator"
	RoleRecorder = "recorder"
)

// Permission is one of the CRUD+approve flags.
type Permission string

const (
	PermCreate  Permission = "create"
	PermRead    Permission = "read"
	PermUpdate  Permission = "update"
	PermDelete  Permission = "delete"
	PermApprove Permission = "approve"
)

// Permissions is the role-derived permission object exposed in the session.
type Permissions struct {
	Create  bool `json:"create"`
	Read    bool `json:"read"`
	Update  bool `json:"update"`
	Delete  bool `json:"delete"`
	Approve bool `json:"approve"`
}

// Allows reports whether p grants perm.
func (p Permissions) Allows(perm Permission) bool {
	switch perm {
	case PermCreate:
		return p.Create
	case PermRead:
		return p.Read
	case PermUpdate:
		return p.Update
	case PermDelete:
		return p.Delete
	case PermApprove:
		return p.Approve
	}
	return false
}

// PermissionsForRole maps a role name to its permissions. Unknown roles can only read.
func PermissionsForRole(role string) Permissions {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleAdmin:
		return Permissions{Create: true, Read: true, Update: true, Delete: true, Approve: true}
	case RoleManager:
		return Permissions{Create: true, Read: true, Update: true, Approve: true}
	case RoleStaff, RoleUser, RoleOperator, RoleRecorder:
		return Permissions{Create: true, Read: true, Update: true}
	}
	return Permissions{Read: true}
}

// SessionUser is the authenticated dashboard user.
type SessionUser struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name,omitempty"`
	Role        string      `json:"role"`
	Department  string      `json:"department,omitempty"`
	HODID       string      `json:"hod_id,omitempty"`
	Permissions Permissions `json:"permissions"`
}

// MergeProfile overlays non-empty fields of the upstream "me" profile. The role stays as
// issued in the token.
func (u SessionUser) MergeProfile(profile Record) SessionUser {
	if profile == nil {
		return u
	}
	if name := profile.String("name", "full_name", "fullName", "username"); name != "" {
		u.Name = name
	} else if first := profile.String("first_name", "firstName"); first != "" {
		u.Name = strings.TrimSpace(first + " " + profile.String("last_name", "lastName"))
	}
	if email := profile.String("email"); email != "" {
		u.Email = email
	}
	if dept := profile.String("department", "department_name", "departmentName"); dept != "" {
		u.Department = dept
	}
	if hod := profile.String("hod_id", "hodId", "hod"); hod != "" {
		u.HODID = hod
	}
	u.Permissions = PermissionsForRole(u.Role)
	return u
}

// Session is the server-side session record.
type Session struct {
	ID          string      `json:"id"`
	User        SessionUser `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
