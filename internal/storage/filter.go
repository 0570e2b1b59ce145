package storage

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// CustomerFilter narrows a customer list query. The zero value matches every
// non-deleted customer in the workspace.
type CustomerFilter struct {
	WorkspaceID string

	// Statuses restricts results to customers in any of these statuses.
	Statuses []string

	// ExcludeStatuses removes customers in any of these statuses.
	ExcludeStatuses []string

	// EmployeeID restricts results to customers assigned to this employee.
	EmployeeID string

	// HasPhone filters on phone presence: true keeps customers with a phone
	// number, false keeps those without. Nil disables the filter.
	HasPhone *bool
}

// whereClauses renders the filter as SQL predicates against alias "c",
// appending bind values to args. Soft-deleted rows are always excluded.
func (f *CustomerFilter) whereClauses(args *[]interface{}) []string {
	clauses := []string{"c.is_deleted = FALSE"}

	*args = append(*args, f.WorkspaceID)
	clauses = append(clauses, fmt.Sprintf("c.workspace_id = $%d", len(*args)))

	if len(f.Statuses) > 0 {
		*args = append(*args, pq.Array(f.Statuses))
		clauses = append(clauses, fmt.Sprintf("c.status = ANY($%d)", len(*args)))
	}

	if len(f.ExcludeStatuses) > 0 {
		*args = append(*args, pq.Array(f.ExcludeStatuses))
		clauses = append(clauses, fmt.Sprintf("c.status <> ALL($%d)", len(*args)))
	}

	if f.EmployeeID != "" {
		*args = append(*args, f.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("c.employee_id = $%d", len(*args)))
	}

	if f.HasPhone != nil {
		if *f.HasPhone {
			clauses = append(clauses, "c.phone IS NOT NULL")
		} else {
			clauses = append(clauses, "c.phone IS NULL")
		}
	}

	return clauses
}

// ParseStatusList splits a comma-separated status parameter into a clean
// slice, dropping empty entries.
func ParseStatusList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	statuses := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			statuses = append(statuses, trimmed)
		}
	}

	return statuses
}
