package udn

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robcowart/udnm/internal/database/models"
)

// memStore is an in-memory Store that enforces the same active-row
// uniqueness rules as the database schema.
type memStore struct {
	rows []*models.Assignment
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) active() []*models.Assignment {
	var out []*models.Assignment
	for _, r := range m.rows {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UDNID < out[j].UDNID })
	return out
}

func (m *memStore) find(id string) *models.Assignment {
	for _, r := range m.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func clone(a *models.Assignment) *models.Assignment {
	c := *a
	return &c
}

func (m *memStore) ScanActiveIDs(_ context.Context, fn func(int) bool) error {
	for _, r := range m.active() {
		if !fn(r.UDNID) {
			return nil
		}
	}
	return nil
}

func (m *memStore) GetActiveByUser(_ context.Context, userID int64) (*models.Assignment, error) {
	for _, r := range m.active() {
		if r.UserID == userID {
			return clone(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) GetActiveByID(_ context.Context, udnID int) (*models.Assignment, error) {
	for _, r := range m.active() {
		if r.UDNID == udnID {
			return clone(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListActiveByMAC(_ context.Context, mac string) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, r := range m.active() {
		if r.MACAddress.Valid && r.MACAddress.String == mac {
			out = append(out, clone(r))
		}
	}
	return out, nil
}

func (m *memStore) ListActive(_ context.Context) ([]*models.Assignment, error) {
	var out []*models.Assignment
	for _, r := range m.active() {
		out = append(out, clone(r))
	}
	return out, nil
}

func (m *memStore) CountActive(_ context.Context) (int, error) {
	return len(m.active()), nil
}

func (m *memStore) InsertAssignment(_ context.Context, a *models.Assignment) error {
	for _, r := range m.active() {
		if r.UDNID == a.UDNID || r.UserID == a.UserID {
			return fmt.Errorf("unique constraint: %w", ErrAlreadyAssigned)
		}
	}
	m.rows = append(m.rows, clone(a))
	return nil
}

func (m *memStore) UpdateMAC(_ context.Context, id string, mac string, at time.Time) error {
	r := m.find(id)
	if r == nil {
		return ErrNotFound
	}
	r.MACAddress.String, r.MACAddress.Valid = mac, true
	r.UpdatedAt = at
	return nil
}

func (m *memStore) Deactivate(_ context.Context, id string, at time.Time) error {
	r := m.find(id)
	if r == nil {
		return ErrNotFound
	}
	r.IsActive = false
	r.RevokedAt.Time, r.RevokedAt.Valid = at, true
	r.UpdatedAt = at
	return nil
}

func (m *memStore) TouchLastAuth(_ context.Context, id string, at time.Time) error {
	r := m.find(id)
	if r == nil {
		return ErrNotFound
	}
	r.LastAuthAt.Time, r.LastAuthAt.Valid = at, true
	return nil
}

// fullStore reports every ID in the pool as taken.
type fullStore struct {
	Store
}

func (fullStore) ScanActiveIDs(_ context.Context, fn func(int) bool) error {
	for id := MinID; id <= MaxID; id++ {
		if !fn(id) {
			return nil
		}
	}
	return nil
}

func (fullStore) GetActiveByUser(context.Context, int64) (*models.Assignment, error) {
	return nil, ErrNotFound
}

func (fullStore) CountActive(context.Context) (int, error) {
	return PoolSize, nil
}

// countStore reports a fixed number of active assignments.
type countStore struct {
	Store
	n int
}

func (s countStore) CountActive(context.Context) (int, error) {
	return s.n, nil
}

// insertRaceStore simulates a concurrent writer taking the ID between the
// scan and the insert.
type insertRaceStore struct {
	*memStore
}

func (s insertRaceStore) InsertAssignment(context.Context, *models.Assignment) error {
	return fmt.Errorf("UNIQUE constraint failed: %w", ErrAlreadyAssigned)
}

// winnerStore lets a concurrent writer commit a row just before the insert,
// then rejects the insert as the unique index would.
type winnerStore struct {
	*memStore
	winner func(lost *models.Assignment) *models.Assignment
}

func (s winnerStore) InsertAssignment(_ context.Context, a *models.Assignment) error {
	s.rows = append(s.rows, s.winner(a))
	return fmt.Errorf("UNIQUE constraint failed: %w", ErrAlreadyAssigned)
}
