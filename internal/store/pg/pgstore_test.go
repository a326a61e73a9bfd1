package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"groupdesk.org/internal/auth"
	"groupdesk.org/internal/workspace"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestFindUser(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"user_id", "username", "display_name", "picture", "is_owner", "password_hash", "created_at", "updated_at"}).
		AddRow(int64(261), "builderman", "Builderman", nil, true, "$2a$10$hash", now, now)
	mock.ExpectQuery("select user_id, username, display_name, picture, is_owner, password_hash.*from users").
		WithArgs(int64(261)).WillReturnRows(rows)

	user, err := store.Find(context.Background(), 261)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if user.ID != 261 || user.Username != "builderman" || !user.IsOwner {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Picture != "" {
		t.Fatalf("null picture should scan empty, got %q", user.Picture)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestFindUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from users").WithArgs(int64(404)).WillReturnError(sql.ErrNoRows)

	if _, err := store.Find(context.Background(), 404); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected auth.ErrNotFound, got %v", err)
	}
}

func TestFindWorkspaceNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("from workspaces").WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	if _, err := store.FindWorkspace(context.Background(), 9); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected auth.ErrNotFound, got %v", err)
	}
}

func TestFindByUserDecodesPermissions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "workspace_group_id", "name", "permissions", "is_owner_role", "rank", "created_at", "updated_at"}).
		AddRow("01J5A", int64(5), "Moderator", []byte(`["view_members","manage_wall"]`), false, 12, now, now)
	mock.ExpectQuery("from roles r.*join role_members m").
		WithArgs(int64(261), int64(5)).WillReturnRows(rows)

	role, err := store.FindByUser(context.Background(), 261, 5)
	if err != nil {
		t.Fatalf("FindByUser: %v", err)
	}
	if role.Name != "Moderator" || role.Rank != 12 {
		t.Fatalf("unexpected role: %+v", role)
	}
	if len(role.Permissions) != 2 || role.Permissions[0] != "view_members" {
		t.Fatalf("unexpected permissions: %v", role.Permissions)
	}
}

func TestConfigGetMissingSection(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select value from configs").
		WithArgs(int64(5), "activity").WillReturnError(sql.ErrNoRows)

	value, found, err := store.Get(context.Background(), 5, "activity")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found || value != nil {
		t.Fatalf("missing section should report found=false, got %v %v", value, found)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into configs").
		WithArgs(sqlmock.AnyArg(), int64(5), "activity", []byte(`{"role":12}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := store.Set(context.Background(), 5, "activity", map[string]any{"role": 12}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	rows := sqlmock.NewRows([]string{"value"}).AddRow([]byte(`{"role":12}`))
	mock.ExpectQuery("select value from configs").
		WithArgs(int64(5), "activity").WillReturnRows(rows)

	value, found, err := store.Get(context.Background(), 5, "activity")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found || value["role"] != float64(12) {
		t.Fatalf("unexpected section: %v %v", value, found)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteAllyVisitNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from ally_visits").
		WithArgs("01J5B", int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteAllyVisit(context.Background(), 5, "01J5B"); !errors.Is(err, workspace.ErrNotFound) {
		t.Fatalf("expected workspace.ErrNotFound, got %v", err)
	}
}

func TestUpdateAllyVisitPartial(t *testing.T) {
	store, mock := newMockStore(t)
	when := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "workspace_group_id", "ally_id", "name", "time"}).
		AddRow("01J5B", int64(5), "01J5C", "Joint training", when)
	mock.ExpectQuery("update ally_visits").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "01J5B", int64(5)).WillReturnRows(rows)

	name := "Joint training"
	visit, err := store.UpdateAllyVisit(context.Background(), 5, "01J5B", workspace.AllyVisitUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateAllyVisit: %v", err)
	}
	if visit.Name != "Joint training" || !visit.Time.Equal(when) {
		t.Fatalf("unexpected visit: %+v", visit)
	}
}

func TestActiveSessions(t *testing.T) {
	store, mock := newMockStore(t)
	started := time.Now().Add(-time.Hour)

	rows := sqlmock.NewRows([]string{"id", "workspace_group_id", "owner_user_id", "username", "picture", "started_at", "ended_at"}).
		AddRow("01J5D", int64(5), int64(261), "builderman", "", started, nil)
	mock.ExpectQuery("from activity_sessions s").
		WithArgs(int64(5)).WillReturnRows(rows)

	sessions, err := store.ActiveSessions(context.Background(), 5)
	if err != nil {
		t.Fatalf("ActiveSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected one live session, got %d", len(sessions))
	}
	sess := sessions[0]
	if sess.OwnerUsername != "builderman" || sess.StartedAt == nil || sess.EndedAt != nil {
		t.Fatalf("unexpected session: %+v", sess)
	}
}
