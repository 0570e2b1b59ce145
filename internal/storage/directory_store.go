package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// DirectoryStore answers workspace membership and employee lookups used by
// the authorization layer.
type DirectoryStore struct {
	conn   *Connection
	logger *slog.Logger
}

// NewDirectoryStore creates a directory store backed by the given connection.
func NewDirectoryStore(conn *Connection, logger *slog.Logger) *DirectoryStore {
	return &DirectoryStore{
		conn:   conn,
		logger: logger.With(slog.String("component", "directory_store")),
	}
}

// WorkspaceIDsForUser returns the workspaces a user is a member of.
func (s *DirectoryStore) WorkspaceIDsForUser(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT workspace_id FROM workspace_members WHERE user_id = $1`

	return s.queryIDs(ctx, query, userID)
}

// AllWorkspaceIDs returns every workspace. Used for admin principals, whose
// scope is unrestricted.
func (s *DirectoryStore) AllWorkspaceIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM workspaces`

	return s.queryIDs(ctx, query)
}

// EmployeeByUser returns the employee record for a user, or nil when the
// user is not an employee.
func (s *DirectoryStore) EmployeeByUser(ctx context.Context, userID string) (*Employee, error) {
	query := `
		SELECT id, user_id, workspace_id, name, role, team_id
		FROM employees
		WHERE user_id = $1
	`

	var (
		employee Employee
		teamID   sql.NullString
	)

	err := s.conn.QueryRowContext(ctx, query, userID).Scan(
		&employee.ID,
		&employee.UserID,
		&employee.WorkspaceID,
		&employee.Name,
		&employee.Role,
		&teamID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryQueryFailed, err)
	}

	if teamID.Valid {
		employee.TeamID = &teamID.String
	}

	return &employee, nil
}

// TeamEmployeeIDs returns the employees belonging to a team.
func (s *DirectoryStore) TeamEmployeeIDs(ctx context.Context, teamID string) ([]string, error) {
	query := `SELECT id FROM employees WHERE team_id = $1`

	return s.queryIDs(ctx, query, teamID)
}

func (s *DirectoryStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("directory query failed", slog.String("error", err.Error()))

		return nil, fmt.Errorf("%w: %w", ErrDirectoryQueryFailed, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDirectoryQueryFailed, err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryQueryFailed, err)
	}

	return ids, nil
}
