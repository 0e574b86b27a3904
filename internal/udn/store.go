// Package udn allocates User Defined Network IDs and encodes the active
// assignments into FreeRADIUS users-file stanzas.
//
// The allocator keeps no state between calls. Every operation receives the
// Store it runs against, normally a single database transaction, and the
// store's unique constraints are the only concurrency control relied upon.
package udn

import (
	"context"
	"time"

	"github.com/robcowart/udnm/internal/database/models"
)

// Store is the storage session an allocator operation runs against.
// Only active assignments are visible through the lookup methods.
type Store interface {
	// ScanActiveIDs calls fn for each active UDN ID in ascending order
	// until fn returns false or the IDs run out.
	ScanActiveIDs(ctx context.Context, fn func(udnID int) bool) error
	// GetActiveByUser returns ErrNotFound when the user has no active assignment.
	GetActiveByUser(ctx context.Context, userID int64) (*models.Assignment, error)
	// GetActiveByID returns ErrNotFound when the UDN ID is free.
	GetActiveByID(ctx context.Context, udnID int) (*models.Assignment, error)
	// ListActiveByMAC returns active assignments for the normalized MAC, ascending by UDN ID.
	ListActiveByMAC(ctx context.Context, mac string) ([]*models.Assignment, error)
	// ListActive returns every active assignment, ascending by UDN ID.
	ListActive(ctx context.Context) ([]*models.Assignment, error)
	CountActive(ctx context.Context) (int, error)
	// InsertAssignment returns an error matching ErrAlreadyAssigned when a
	// unique constraint rejects the row.
	InsertAssignment(ctx context.Context, a *models.Assignment) error
	UpdateMAC(ctx context.Context, id string, mac string, at time.Time) error
	Deactivate(ctx context.Context, id string, at time.Time) error
	TouchLastAuth(ctx context.Context, id string, at time.Time) error
}
