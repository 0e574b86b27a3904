package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/robcowart/udnm/internal/database/models"
	"github.com/robcowart/udnm/internal/udn"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Session runs UDN assignment queries against a connection or a transaction.
// It implements udn.Store.
type Session struct {
	q      queryer
	dbType string
}

var _ udn.Store = (*Session)(nil)

const assignmentColumns = `id, udn_id, user_id, mac_address, user_name, user_email, unit,
	network_id, ssid_number, note, is_active, created_at, updated_at, revoked_at, last_auth_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*models.Assignment, error) {
	var a models.Assignment
	err := row.Scan(
		&a.ID, &a.UDNID, &a.UserID, &a.MACAddress, &a.UserName, &a.UserEmail, &a.Unit,
		&a.NetworkID, &a.SSIDNumber, &a.Note, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		&a.RevokedAt, &a.LastAuthAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Session) getOne(ctx context.Context, query string, args ...any) (*models.Assignment, error) {
	a, err := scanAssignment(s.q.QueryRowContext(ctx, rebind(s.dbType, query), args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, udn.ErrNotFound
	}
	return a, err
}

func (s *Session) list(ctx context.Context, query string, args ...any) ([]*models.Assignment, error) {
	rows, err := s.q.QueryContext(ctx, rebind(s.dbType, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

// ScanActiveIDs streams active UDN IDs in ascending order
func (s *Session) ScanActiveIDs(ctx context.Context, fn func(udnID int) bool) error {
	query := rebind(s.dbType, `SELECT udn_id FROM udn_assignments WHERE is_active = ? ORDER BY udn_id`)

	rows, err := s.q.QueryContext(ctx, query, true)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if !fn(id) {
			break
		}
	}

	return rows.Err()
}

// GetActiveByUser retrieves the active assignment for a user
func (s *Session) GetActiveByUser(ctx context.Context, userID int64) (*models.Assignment, error) {
	return s.getOne(ctx, `SELECT `+assignmentColumns+` FROM udn_assignments
		WHERE user_id = ? AND is_active = ?`, userID, true)
}

// GetActiveByID retrieves the active assignment holding a UDN ID
func (s *Session) GetActiveByID(ctx context.Context, udnID int) (*models.Assignment, error) {
	return s.getOne(ctx, `SELECT `+assignmentColumns+` FROM udn_assignments
		WHERE udn_id = ? AND is_active = ?`, udnID, true)
}

// ListActiveByMAC retrieves active assignments for a normalized MAC address
func (s *Session) ListActiveByMAC(ctx context.Context, mac string) ([]*models.Assignment, error) {
	return s.list(ctx, `SELECT `+assignmentColumns+` FROM udn_assignments
		WHERE mac_address = ? AND is_active = ? ORDER BY udn_id`, mac, true)
}

// ListActive retrieves all active assignments ordered by UDN ID
func (s *Session) ListActive(ctx context.Context) ([]*models.Assignment, error) {
	return s.list(ctx, `SELECT `+assignmentColumns+` FROM udn_assignments
		WHERE is_active = ? ORDER BY udn_id`, true)
}

// ListHistory retrieves every assignment a user has held, oldest first
func (s *Session) ListHistory(ctx context.Context, userID int64) ([]*models.Assignment, error) {
	return s.list(ctx, `SELECT `+assignmentColumns+` FROM udn_assignments
		WHERE user_id = ? ORDER BY created_at, udn_id`, userID)
}

// CountActive counts active assignments
func (s *Session) CountActive(ctx context.Context) (int, error) {
	query := rebind(s.dbType, `SELECT COUNT(*) FROM udn_assignments WHERE is_active = ?`)

	var count int
	if err := s.q.QueryRowContext(ctx, query, true).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// InsertAssignment stores a new assignment. Unique index violations are
// reported as udn.ErrAlreadyAssigned.
func (s *Session) InsertAssignment(ctx context.Context, a *models.Assignment) error {
	query := rebind(s.dbType, `INSERT INTO udn_assignments (`+assignmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.q.ExecContext(ctx, query,
		a.ID, a.UDNID, a.UserID, a.MACAddress, a.UserName, a.UserEmail, a.Unit,
		a.NetworkID, a.SSIDNumber, a.Note, a.IsActive, a.CreatedAt, a.UpdatedAt,
		a.RevokedAt, a.LastAuthAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", udn.ErrAlreadyAssigned, err)
		}
		return err
	}
	return nil
}

// UpdateMAC sets the MAC address on an assignment
func (s *Session) UpdateMAC(ctx context.Context, id string, mac string, at time.Time) error {
	return s.exec(ctx, `UPDATE udn_assignments SET mac_address = ?, updated_at = ? WHERE id = ?`, mac, at, id)
}

// Deactivate revokes an assignment, keeping the row
func (s *Session) Deactivate(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx, `UPDATE udn_assignments SET is_active = ?, revoked_at = ?, updated_at = ? WHERE id = ?`,
		false, at, at, id)
}

// TouchLastAuth records the time of the latest successful authentication
func (s *Session) TouchLastAuth(ctx context.Context, id string, at time.Time) error {
	return s.exec(ctx, `UPDATE udn_assignments SET last_auth_at = ? WHERE id = ?`, at, id)
}

func (s *Session) exec(ctx context.Context, query string, args ...any) error {
	result, err := s.q.ExecContext(ctx, rebind(s.dbType, query), args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}
