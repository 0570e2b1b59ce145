package storage

import (
	"errors"
	"time"
)

// Sentinel errors for storage operations.
var (
	// ErrCustomerQueryFailed is returned when a customer list query fails.
	ErrCustomerQueryFailed = errors.New("customer query failed")

	// ErrDirectoryQueryFailed is returned when a workspace directory query fails.
	ErrDirectoryQueryFailed = errors.New("directory query failed")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

type (
	// Customer is a single row of the customer list, joined with its assigned
	// employee, the most recent call, and per-customer call aggregates.
	Customer struct {
		ID           string     `json:"id"`
		WorkspaceID  string     `json:"workspace_id"`
		Name         string     `json:"name"`
		Phone        *string    `json:"phone"`
		Email        *string    `json:"email"`
		Status       string     `json:"status"`
		EmployeeID   *string    `json:"employee_id"`
		EmployeeName *string    `json:"employee_name"`
		CreatedAt    time.Time  `json:"created_at"`
		LatestCall   *Call      `json:"latest_call"`
		CallStats    CallStats  `json:"call_stats"`
	}

	// Call is a summary of a single call record.
	Call struct {
		ID          string    `json:"id"`
		Direction   string    `json:"direction"`
		Status      string    `json:"status"`
		DurationSec float64   `json:"duration_sec"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// CallStats aggregates a customer's call history.
	CallStats struct {
		TotalCalls       int     `json:"total_calls"`
		TotalDurationSec float64 `json:"total_duration_sec"`
		SuccessfulCalls  int     `json:"successful_calls"`
	}

	// Employee links a user account to a workspace with a role. TeamID is nil
	// for employees not assigned to a team.
	Employee struct {
		ID          string
		UserID      string
		WorkspaceID string
		Name        string
		Role        string
		TeamID      *string
	}
)
