package auth

import "time"

// User is a stable external principal. The numeric ID comes from the identity
// provider and is independent of any single workspace. PasswordHash is empty
// for accounts that never set a local password.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	Picture      string
	IsOwner      bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Workspace is the tenancy boundary for roles, config sections, and
// permission decisions. GroupID is the external group identifier.
type Workspace struct {
	GroupID   int64
	CreatedAt time.Time
}

// Role is one identity's standing within one workspace: a set of permission
// labels, a rank used for seniority comparisons, and an optional owner-role
// flag that grants the universal permission set inside that workspace only.
type Role struct {
	ID               string
	WorkspaceGroupID int64
	Name             string
	Permissions      []string
	IsOwnerRole      bool
	Rank             int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Membership binds a user to a role. A user holds at most one role per
// workspace.
type Membership struct {
	UserID           int64
	RoleID           string
	WorkspaceGroupID int64
	CreatedAt        time.Time
}
