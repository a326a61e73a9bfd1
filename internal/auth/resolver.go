package auth

import (
	"context"
	"errors"
	"fmt"
)

// UserStore loads identity records.
type UserStore interface {
	Find(ctx context.Context, userID int64) (User, error)
}

// WorkspaceStore answers workspace lookups. FindWorkspace returns
// ErrNotFound for a missing workspace so the gate can fail with not-found
// before any permission resolution happens.
type WorkspaceStore interface {
	FindWorkspace(ctx context.Context, groupID int64) (Workspace, error)
}

// RoleStore loads a user's role within a workspace. FindByUser returns
// ErrNotFound when the user holds no role there.
type RoleStore interface {
	FindByUser(ctx context.Context, userID, workspaceGroupID int64) (Role, error)
}

// Permit is the effective permission state of one identity within one
// workspace, resolved at call time. It gives no isolation guarantee against
// concurrent role changes.
type Permit struct {
	Permissions map[string]struct{}
	IsOwner     bool
	Member      bool
	Rank        int
}

// Has reports whether the permit grants the given label. Owners pass every
// check. Labels outside the fixed vocabulary never grant access even when
// present in storage.
func (p Permit) Has(label string) bool {
	if p.IsOwner {
		return true
	}
	if !KnownPermission(label) {
		return false
	}
	_, ok := p.Permissions[label]
	return ok
}

// HasStanding reports whether the identity is a member of the workspace at
// all: an owner, or the holder of any role. Used by operations that require
// no specific permission.
func (p Permit) HasStanding() bool {
	return p.IsOwner || p.Member
}

// Resolver computes effective permissions for an identity within a workspace.
type Resolver struct {
	users UserStore
	roles RoleStore
}

// NewResolver constructs a Resolver.
func NewResolver(users UserStore, roles RoleStore) (*Resolver, error) {
	if users == nil || roles == nil {
		return nil, errors.New("auth: user and role stores are required")
	}
	return &Resolver{users: users, roles: roles}, nil
}

// Resolve returns the Permit for userID within workspaceGroupID.
//
// A global owner resolves to the universal permission set in every workspace;
// the workspace role is still consulted so the rank reads correctly, but a
// failure there cannot demote the owner. A workspace owner role resolves to
// the universal set within that workspace only. No role means an empty set
// and rank 0.
func (r *Resolver) Resolve(ctx context.Context, userID, workspaceGroupID int64) (Permit, error) {
	if userID <= 0 || workspaceGroupID <= 0 {
		return Permit{}, fmt.Errorf("%w: user and workspace ids are required", ErrInvalidInput)
	}
	user, err := r.users.Find(ctx, userID)
	if err != nil {
		return Permit{}, err
	}
	if user.IsOwner {
		permit := Permit{Permissions: UniversalPermissions(), IsOwner: true, Member: true}
		if role, err := r.roles.FindByUser(ctx, userID, workspaceGroupID); err == nil {
			permit.Rank = role.Rank
		}
		return permit, nil
	}

	role, err := r.roles.FindByUser(ctx, userID, workspaceGroupID)
	if errors.Is(err, ErrNotFound) {
		return Permit{Permissions: map[string]struct{}{}}, nil
	}
	if err != nil {
		return Permit{}, err
	}
	if role.IsOwnerRole {
		return Permit{Permissions: UniversalPermissions(), IsOwner: true, Member: true, Rank: role.Rank}, nil
	}

	set := make(map[string]struct{}, len(role.Permissions))
	for _, label := range role.Permissions {
		set[label] = struct{}{}
	}
	return Permit{Permissions: set, Member: true, Rank: role.Rank}, nil
}
