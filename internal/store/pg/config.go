package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"groupdesk.org/internal/ids"
	"groupdesk.org/internal/wsconfig"
)

var _ wsconfig.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, workspaceGroupID int64, name string) (map[string]any, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `
		select value from configs where workspace_group_id=$1 and name=$2
	`, workspaceGroupID, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	value := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, false, fmt.Errorf("decode config %s: %w", name, err)
		}
	}
	return value, true, nil
}

// Set upserts a config section as a single atomic write so an abandoned
// request can never leave the section half-written.
func (s *Store) Set(ctx context.Context, workspaceGroupID int64, name string, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode config %s: %w", name, err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into configs(id, workspace_group_id, name, value)
		values ($1,$2,$3,$4)
		on conflict (workspace_group_id, name) do update
		set value = excluded.value, updated_at = now()
	`, ids.New(), workspaceGroupID, name, raw)
	return err
}
