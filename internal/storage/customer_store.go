package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tracelens-io/tracelens/internal/pagination"
)

type (
	// CustomerStore provides read access to the customer list. Every query is
	// a single round trip: the assigned employee, the latest call, and the
	// call aggregates are joined in rather than fetched per row, so the page
	// query count stays flat regardless of page size.
	CustomerStore struct {
		conn   *Connection
		logger *slog.Logger
	}
)

// NewCustomerStore creates a customer store backed by the given connection.
func NewCustomerStore(conn *Connection, logger *slog.Logger) *CustomerStore {
	return &CustomerStore{
		conn:   conn,
		logger: logger.With(slog.String("component", "customer_store")),
	}
}

// customerSelect is the shared projection for customer list queries.
// The two LATERAL joins keep the latest call and the aggregates correlated
// per customer without a second query.
const customerSelect = `
SELECT
	c.id, c.workspace_id, c.name, c.phone, c.email, c.status, c.created_at,
	e.id, e.name,
	lc.id, lc.direction, lc.status, lc.duration_sec, lc.created_at,
	COALESCE(agg.total_calls, 0),
	COALESCE(agg.total_duration_sec, 0),
	COALESCE(agg.successful_calls, 0)
FROM customers c
LEFT JOIN employees e ON e.id = c.employee_id
LEFT JOIN LATERAL (
	SELECT id, direction, status, duration_sec, created_at
	FROM calls
	WHERE customer_id = c.id
	ORDER BY created_at DESC
	LIMIT 1
) lc ON TRUE
LEFT JOIN LATERAL (
	SELECT
		COUNT(*) AS total_calls,
		COALESCE(SUM(duration_sec), 0) AS total_duration_sec,
		COUNT(*) FILTER (WHERE status = 'completed') AS successful_calls
	FROM calls
	WHERE customer_id = c.id
) agg ON TRUE
`

// List returns up to pageSize+1 customers matching the filter, ordered by
// (created_at DESC, id DESC). The extra row lets the caller detect a further
// page without counting.
//
// A forward cursor resumes strictly after the cursor position. A reverse
// cursor scans strictly before it in ascending order; the caller re-reverses
// the rows into display order.
func (s *CustomerStore) List(
	ctx context.Context,
	filter *CustomerFilter,
	pageSize int,
	cursor *pagination.Cursor,
) ([]Customer, error) {
	var args []interface{}

	clauses := filter.whereClauses(&args)
	orderBy := "c.created_at DESC, c.id DESC"

	if cursor != nil {
		args = append(args, cursor.CreatedAt)
		tsIdx := len(args)
		args = append(args, cursor.ID)
		idIdx := len(args)

		if cursor.Reverse {
			clauses = append(clauses, fmt.Sprintf(
				"c.created_at >= $%d AND NOT (c.created_at = $%d AND c.id <= $%d)",
				tsIdx, tsIdx, idIdx,
			))
			orderBy = "c.created_at ASC, c.id ASC"
		} else {
			clauses = append(clauses, fmt.Sprintf(
				"c.created_at <= $%d AND NOT (c.created_at = $%d AND c.id >= $%d)",
				tsIdx, tsIdx, idIdx,
			))
		}
	}

	args = append(args, pageSize+1)

	query := fmt.Sprintf("%s\nWHERE %s\nORDER BY %s\nLIMIT $%d",
		customerSelect, strings.Join(clauses, " AND "), orderBy, len(args))

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("customer list query failed",
			slog.String("workspace_id", filter.WorkspaceID),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("%w: %w", ErrCustomerQueryFailed, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	customers := make([]Customer, 0, pageSize+1)

	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCustomerQueryFailed, err)
		}

		customers = append(customers, customer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCustomerQueryFailed, err)
	}

	return customers, nil
}

// CountCustomers returns the exact number of non-deleted customers in a
// workspace. This is a full scan on large workspaces; callers cache the
// result and serve the cached value on the hot path.
func (s *CustomerStore) CountCustomers(ctx context.Context, workspaceID string) (int, error) {
	var count int

	query := `SELECT COUNT(*) FROM customers WHERE workspace_id = $1 AND is_deleted = FALSE`

	if err := s.conn.QueryRowContext(ctx, query, workspaceID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrCustomerQueryFailed, err)
	}

	return count, nil
}

// HealthCheck verifies the underlying database connection.
func (s *CustomerStore) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

func scanCustomer(rows *sql.Rows) (Customer, error) {
	var (
		customer     Customer
		phone        sql.NullString
		email        sql.NullString
		employeeID   sql.NullString
		employeeName sql.NullString
		callID       sql.NullString
		callDir      sql.NullString
		callStatus   sql.NullString
		callDuration sql.NullFloat64
		callAt       sql.NullTime
	)

	err := rows.Scan(
		&customer.ID,
		&customer.WorkspaceID,
		&customer.Name,
		&phone,
		&email,
		&customer.Status,
		&customer.CreatedAt,
		&employeeID,
		&employeeName,
		&callID,
		&callDir,
		&callStatus,
		&callDuration,
		&callAt,
		&customer.CallStats.TotalCalls,
		&customer.CallStats.TotalDurationSec,
		&customer.CallStats.SuccessfulCalls,
	)
	if err != nil {
		return Customer{}, err
	}

	if phone.Valid {
		customer.Phone = &phone.String
	}

	if email.Valid {
		customer.Email = &email.String
	}

	if employeeID.Valid {
		customer.EmployeeID = &employeeID.String
	}

	if employeeName.Valid {
		customer.EmployeeName = &employeeName.String
	}

	if callID.Valid {
		customer.LatestCall = &Call{
			ID:          callID.String,
			Direction:   callDir.String,
			Status:      callStatus.String,
			DurationSec: callDuration.Float64,
			CreatedAt:   callAt.Time,
		}
	}

	return customer, nil
}
