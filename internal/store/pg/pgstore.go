package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"groupdesk.org/internal/auth"
)

// Store is the PostgreSQL persistence layer shared by the auth, config, and
// workspace subsystems.
type Store struct {
	db *sql.DB
}

var (
	_ auth.UserStore      = (*Store)(nil)
	_ auth.WorkspaceStore = (*Store)(nil)
	_ auth.RoleStore      = (*Store)(nil)
)

// Open connects to PostgreSQL via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing database handle (used by tests).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Users ---------------------------------------------------------------------

func (s *Store) Find(ctx context.Context, userID int64) (auth.User, error) {
	var (
		user         auth.User
		displayName  sql.NullString
		picture      sql.NullString
		passwordHash sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		select user_id, username, display_name, picture, is_owner, password_hash, created_at, updated_at
		from users where user_id=$1
	`, userID).Scan(&user.ID, &user.Username, &displayName, &picture, &user.IsOwner, &passwordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	user.DisplayName = displayName.String
	user.Picture = picture.String
	user.PasswordHash = passwordHash.String
	return user, nil
}

// Workspaces ----------------------------------------------------------------

func (s *Store) FindWorkspace(ctx context.Context, groupID int64) (auth.Workspace, error) {
	var ws auth.Workspace
	err := s.db.QueryRowContext(ctx, `
		select group_id, created_at from workspaces where group_id=$1
	`, groupID).Scan(&ws.GroupID, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Workspace{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Workspace{}, err
	}
	return ws, nil
}

// Roles ---------------------------------------------------------------------

func (s *Store) FindByUser(ctx context.Context, userID, workspaceGroupID int64) (auth.Role, error) {
	var (
		role     auth.Role
		rawPerms []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select r.id, r.workspace_group_id, r.name, r.permissions, r.is_owner_role, r.rank, r.created_at, r.updated_at
		from roles r
		join role_members m on m.role_id = r.id
		where m.user_id=$1 and m.workspace_group_id=$2
	`, userID, workspaceGroupID).Scan(&role.ID, &role.WorkspaceGroupID, &role.Name, &rawPerms, &role.IsOwnerRole, &role.Rank, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	if len(rawPerms) > 0 {
		if err := json.Unmarshal(rawPerms, &role.Permissions); err != nil {
			return auth.Role{}, err
		}
	}
	return role, nil
}

// MembershipsByUser lists every role a user holds across workspaces, used by
// login to hydrate the workspace list.
func (s *Store) MembershipsByUser(ctx context.Context, userID int64) ([]auth.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		select user_id, role_id, workspace_group_id, created_at
		from role_members where user_id=$1
		order by workspace_group_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Membership
	for rows.Next() {
		var m auth.Membership
		if err := rows.Scan(&m.UserID, &m.RoleID, &m.WorkspaceGroupID, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
