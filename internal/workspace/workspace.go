// Package workspace holds the business records guarded endpoints operate on.
package workspace

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("workspace: not found")

// ActivitySession is a scheduled staff session that has started and not yet
// ended, listed on the workspace home view.
type ActivitySession struct {
	ID               string     `json:"id"`
	WorkspaceGroupID int64      `json:"workspaceGroupId"`
	OwnerUserID      int64      `json:"ownerUserId"`
	OwnerUsername    string     `json:"ownerUsername"`
	OwnerPicture     string     `json:"ownerPicture,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	EndedAt          *time.Time `json:"endedAt,omitempty"`
}

// AllyVisit is a scheduled visit to an allied group.
type AllyVisit struct {
	ID               string    `json:"id"`
	WorkspaceGroupID int64     `json:"workspaceGroupId"`
	AllyID           string    `json:"allyId"`
	Name             string    `json:"name"`
	Time             time.Time `json:"time"`
}

// AllyVisitUpdate carries the fields a PATCH may change.
type AllyVisitUpdate struct {
	Name *string
	Time *time.Time
}

// Store describes the persistence the guarded endpoints need.
type Store interface {
	ActiveSessions(ctx context.Context, workspaceGroupID int64) ([]ActivitySession, error)
	UpdateAllyVisit(ctx context.Context, workspaceGroupID int64, visitID string, upd AllyVisitUpdate) (AllyVisit, error)
	DeleteAllyVisit(ctx context.Context, workspaceGroupID int64, visitID string) error
}
