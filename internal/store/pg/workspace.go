package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"groupdesk.org/internal/workspace"
)

var _ workspace.Store = (*Store)(nil)

func (s *Store) ActiveSessions(ctx context.Context, workspaceGroupID int64) ([]workspace.ActivitySession, error) {
	rows, err := s.db.QueryContext(ctx, `
		select s.id, s.workspace_group_id, s.owner_user_id, u.username, coalesce(u.picture, ''), s.started_at, s.ended_at
		from activity_sessions s
		join users u on u.user_id = s.owner_user_id
		where s.workspace_group_id=$1 and s.started_at is not null and s.ended_at is null
		order by s.started_at
	`, workspaceGroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []workspace.ActivitySession
	for rows.Next() {
		var (
			sess      workspace.ActivitySession
			startedAt sql.NullTime
			endedAt   sql.NullTime
		)
		if err := rows.Scan(&sess.ID, &sess.WorkspaceGroupID, &sess.OwnerUserID, &sess.OwnerUsername, &sess.OwnerPicture, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		if startedAt.Valid {
			t := startedAt.Time
			sess.StartedAt = &t
		}
		if endedAt.Valid {
			t := endedAt.Time
			sess.EndedAt = &t
		}
		result = append(result, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateAllyVisit(ctx context.Context, workspaceGroupID int64, visitID string, upd workspace.AllyVisitUpdate) (workspace.AllyVisit, error) {
	name := sql.NullString{}
	if upd.Name != nil {
		name = sql.NullString{String: *upd.Name, Valid: true}
	}
	visitTime := sql.NullTime{}
	if upd.Time != nil {
		visitTime = sql.NullTime{Time: *upd.Time, Valid: true}
	}

	var (
		visit workspace.AllyVisit
		at    time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		update ally_visits
		set name = coalesce($1, name), time = coalesce($2, time), updated_at = now()
		where id=$3 and workspace_group_id=$4
		returning id, workspace_group_id, ally_id, name, time
	`, name, visitTime, visitID, workspaceGroupID).Scan(&visit.ID, &visit.WorkspaceGroupID, &visit.AllyID, &visit.Name, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return workspace.AllyVisit{}, workspace.ErrNotFound
	}
	if err != nil {
		return workspace.AllyVisit{}, err
	}
	visit.Time = at
	return visit, nil
}

func (s *Store) DeleteAllyVisit(ctx context.Context, workspaceGroupID int64, visitID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from ally_visits where id=$1 and workspace_group_id=$2
	`, visitID, workspaceGroupID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return workspace.ErrNotFound
	}
	return nil
}
