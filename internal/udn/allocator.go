package udn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/robcowart/udnm/internal/database/models"
)

// Metadata is descriptive data carried through to the users file.
type Metadata struct {
	UserName   string
	UserEmail  string
	Unit       string
	NetworkID  string
	SSIDNumber *int
	Note       string
}

// AssignRequest represents a request to grant a user a UDN ID
type AssignRequest struct {
	UserID     int64
	MACAddress string // optional, any accepted MAC form
	SpecificID *int   // optional, otherwise the lowest free ID is used
	Metadata   Metadata
}

// PoolStatus summarises pool utilisation
type PoolStatus struct {
	Total              int     `json:"total"`
	Assigned           int     `json:"assigned"`
	Available          int     `json:"available"`
	UtilizationPercent float64 `json:"utilization_percent"`
}

// NextAvailable returns the lowest ID in [MinID, MaxID] not held by an
// active assignment.
//
// The scan is linear in the number of active assignments and stops at the
// first gap. Allocation happens on human registration events, so this is
// cheap enough; a free-list would be needed for high-rate allocation.
func NextAvailable(ctx context.Context, store Store) (int, error) {
	candidate := MinID
	err := store.ScanActiveIDs(ctx, func(id int) bool {
		if id < candidate {
			return true
		}
		if id > candidate {
			return false
		}
		candidate++
		return candidate <= MaxID
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan active udn ids: %w", err)
	}
	if candidate > MaxID {
		return 0, ErrPoolExhausted
	}
	return candidate, nil
}

// Assign grants req.UserID a UDN ID. The returned bool is true when a new
// assignment was created and false when the user's existing active
// assignment was returned.
//
// A repeated request for a user that already holds an ID returns that
// assignment, persisting a newly supplied MAC address if it differs.
func Assign(ctx context.Context, store Store, req *AssignRequest) (*models.Assignment, bool, error) {
	existing, err := store.GetActiveByUser(ctx, req.UserID)
	switch {
	case err == nil:
		if err := updateExistingMAC(ctx, store, existing, req.MACAddress); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up assignment for user %d: %w", req.UserID, err)
	}

	udnID, err := resolveID(ctx, store, req.SpecificID)
	if err != nil {
		return nil, false, err
	}

	var mac sql.NullString
	if req.MACAddress != "" {
		normalized, err := NormalizeMAC(req.MACAddress)
		if err != nil {
			return nil, false, err
		}
		mac = sql.NullString{String: normalized, Valid: true}
	}

	now := time.Now().UTC()
	a := &models.Assignment{
		ID:         uuid.New().String(),
		UDNID:      udnID,
		UserID:     req.UserID,
		MACAddress: mac,
		UserName:   optString(req.Metadata.UserName),
		UserEmail:  optString(req.Metadata.UserEmail),
		Unit:       optString(req.Metadata.Unit),
		NetworkID:  optString(req.Metadata.NetworkID),
		Note:       optString(req.Metadata.Note),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Metadata.SSIDNumber != nil {
		a.SSIDNumber = sql.NullInt64{Int64: int64(*req.Metadata.SSIDNumber), Valid: true}
	}

	if err := store.InsertAssignment(ctx, a); err != nil {
		if errors.Is(err, ErrAlreadyAssigned) {
			return resolveInsertConflict(ctx, store, req, udnID)
		}
		return nil, false, fmt.Errorf("failed to store assignment: %w", err)
	}

	return a, true, nil
}

// resolveInsertConflict runs after a unique index rejected a new row. Either
// the user gained an assignment concurrently, which is then returned as
// existing, or another user took udnID. When the store cannot be queried
// after the failed insert (an aborted postgres transaction) the conflict is
// reported without a holder.
func resolveInsertConflict(ctx context.Context, store Store, req *AssignRequest, udnID int) (*models.Assignment, bool, error) {
	if existing, err := store.GetActiveByUser(ctx, req.UserID); err == nil {
		if err := updateExistingMAC(ctx, store, existing, req.MACAddress); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	conflict := &AlreadyAssignedError{UDNID: udnID}
	if holder, err := store.GetActiveByID(ctx, udnID); err == nil {
		conflict.UserID = holder.UserID
	}
	return nil, false, conflict
}

func updateExistingMAC(ctx context.Context, store Store, a *models.Assignment, mac string) error {
	if mac == "" {
		return nil
	}
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return err
	}
	if a.MACAddress.Valid && a.MACAddress.String == normalized {
		return nil
	}

	now := time.Now().UTC()
	if err := store.UpdateMAC(ctx, a.ID, normalized, now); err != nil {
		return fmt.Errorf("failed to update mac address: %w", err)
	}
	a.MACAddress = sql.NullString{String: normalized, Valid: true}
	a.UpdatedAt = now
	return nil
}

func resolveID(ctx context.Context, store Store, specific *int) (int, error) {
	if specific == nil {
		return NextAvailable(ctx, store)
	}

	id := *specific
	if err := ValidateID(id); err != nil {
		return 0, err
	}

	holder, err := store.GetActiveByID(ctx, id)
	switch {
	case err == nil:
		return 0, &AlreadyAssignedError{UDNID: id, UserID: holder.UserID}
	case errors.Is(err, ErrNotFound):
		return id, nil
	default:
		return 0, fmt.Errorf("failed to check udn id %d: %w", id, err)
	}
}

// Revoke deactivates every active assignment for the MAC address. It
// reports false, without error, when nothing matched.
func Revoke(ctx context.Context, store Store, mac string) (bool, error) {
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return false, err
	}

	assignments, err := store.ListActiveByMAC(ctx, normalized)
	if err != nil {
		return false, fmt.Errorf("failed to look up mac %s: %w", normalized, err)
	}
	return deactivate(ctx, store, assignments)
}

// RevokeUser deactivates the user's active assignment, if any.
func RevokeUser(ctx context.Context, store Store, userID int64) (bool, error) {
	a, err := store.GetActiveByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up assignment for user %d: %w", userID, err)
	}
	return deactivate(ctx, store, []*models.Assignment{a})
}

func deactivate(ctx context.Context, store Store, assignments []*models.Assignment) (bool, error) {
	now := time.Now().UTC()
	for _, a := range assignments {
		if err := store.Deactivate(ctx, a.ID, now); err != nil {
			return false, fmt.Errorf("failed to revoke udn id %d: %w", a.UDNID, err)
		}
		a.IsActive = false
		a.RevokedAt = sql.NullTime{Time: now, Valid: true}
	}
	return len(assignments) > 0, nil
}

// MarkAuthenticated records a successful authentication for the MAC address.
func MarkAuthenticated(ctx context.Context, store Store, mac string, at time.Time) (bool, error) {
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return false, err
	}

	assignments, err := store.ListActiveByMAC(ctx, normalized)
	if err != nil {
		return false, fmt.Errorf("failed to look up mac %s: %w", normalized, err)
	}
	for _, a := range assignments {
		if err := store.TouchLastAuth(ctx, a.ID, at.UTC()); err != nil {
			return false, fmt.Errorf("failed to record authentication for udn id %d: %w", a.UDNID, err)
		}
	}
	return len(assignments) > 0, nil
}

// LookupByMAC returns the active assignment with the lowest UDN ID for the MAC.
func LookupByMAC(ctx context.Context, store Store, mac string) (*models.Assignment, error) {
	normalized, err := NormalizeMAC(mac)
	if err != nil {
		return nil, err
	}

	assignments, err := store.ListActiveByMAC(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to look up mac %s: %w", normalized, err)
	}
	if len(assignments) == 0 {
		return nil, ErrNotFound
	}
	return assignments[0], nil
}

// LookupByID returns the active assignment holding udnID.
func LookupByID(ctx context.Context, store Store, udnID int) (*models.Assignment, error) {
	if err := ValidateID(udnID); err != nil {
		return nil, err
	}
	return store.GetActiveByID(ctx, udnID)
}

// Status reports pool utilisation. UtilizationPercent is rounded to four
// decimal places so small changes stay visible in a pool this large.
func Status(ctx context.Context, store Store) (*PoolStatus, error) {
	assigned, err := store.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active assignments: %w", err)
	}

	utilization := float64(assigned) / float64(PoolSize) * 100
	return &PoolStatus{
		Total:              PoolSize,
		Assigned:           assigned,
		Available:          PoolSize - assigned,
		UtilizationPercent: math.Round(utilization*10000) / 10000,
	}, nil
}

func optString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
