// Package service implements the application layer of udnm: UDN assignment
// operations run in a single transaction each, with the FreeRADIUS users
// file regenerated after every change, plus operator account management.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robcowart/udnm/internal/config"
	"github.com/robcowart/udnm/internal/database"
	"github.com/robcowart/udnm/internal/database/models"
	"github.com/robcowart/udnm/internal/udn"
	"go.uber.org/zap"
)

// UDNService runs UDN pool operations against the database
type UDNService struct {
	db        *database.Database
	encoder   udn.Encoder
	usersFile string
	logger    *zap.Logger

	// serialises users file writes
	writeMu sync.Mutex
}

// NewUDNService creates a new UDN service
func NewUDNService(db *database.Database, cfg *config.Config, logger *zap.Logger) *UDNService {
	return &UDNService{
		db:        db,
		encoder:   udn.Encoder{RejectMessage: cfg.Radius.RejectMessage},
		usersFile: cfg.Radius.UsersFile,
		logger:    logger,
	}
}

// Assign grants a UDN ID to a user. created is false when the user's
// existing assignment was returned.
func (s *UDNService) Assign(ctx context.Context, req *udn.AssignRequest) (*models.Assignment, bool, error) {
	var (
		assignment *models.Assignment
		created    bool
	)
	err := s.db.InTx(ctx, func(tx *database.Session) error {
		var err error
		assignment, created, err = udn.Assign(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("UDN assigned",
			zap.Int("udn_id", assignment.UDNID),
			zap.Int64("user_id", assignment.UserID),
			zap.String("mac", assignment.MACAddress.String),
		)
	} else {
		s.logger.Debug("UDN already assigned to user",
			zap.Int("udn_id", assignment.UDNID),
			zap.Int64("user_id", assignment.UserID),
		)
	}

	s.syncAfterChange(ctx)
	return assignment, created, nil
}

// Revoke deactivates every active assignment for a MAC address
func (s *UDNService) Revoke(ctx context.Context, mac string) (bool, error) {
	var revoked bool
	err := s.db.InTx(ctx, func(tx *database.Session) error {
		var err error
		revoked, err = udn.Revoke(ctx, tx, mac)
		return err
	})
	if err != nil {
		return false, err
	}

	if revoked {
		s.logger.Info("UDN revoked", zap.String("mac", mac))
		s.syncAfterChange(ctx)
	}
	return revoked, nil
}

// RevokeUser deactivates the user's active assignment
func (s *UDNService) RevokeUser(ctx context.Context, userID int64) (bool, error) {
	var revoked bool
	err := s.db.InTx(ctx, func(tx *database.Session) error {
		var err error
		revoked, err = udn.RevokeUser(ctx, tx, userID)
		return err
	})
	if err != nil {
		return false, err
	}

	if revoked {
		s.logger.Info("UDN revoked", zap.Int64("user_id", userID))
		s.syncAfterChange(ctx)
	}
	return revoked, nil
}

// MarkAuthenticated records a successful RADIUS authentication for a MAC
func (s *UDNService) MarkAuthenticated(ctx context.Context, mac string) (bool, error) {
	var found bool
	err := s.db.InTx(ctx, func(tx *database.Session) error {
		var err error
		found, err = udn.MarkAuthenticated(ctx, tx, mac, time.Now())
		return err
	})
	return found, err
}

// LookupByMAC returns the active assignment for a MAC address
func (s *UDNService) LookupByMAC(ctx context.Context, mac string) (*models.Assignment, error) {
	return udn.LookupByMAC(ctx, s.db.Session(), mac)
}

// LookupByID returns the active assignment holding a UDN ID
func (s *UDNService) LookupByID(ctx context.Context, udnID int) (*models.Assignment, error) {
	return udn.LookupByID(ctx, s.db.Session(), udnID)
}

// ListActive returns all active assignments ordered by UDN ID
func (s *UDNService) ListActive(ctx context.Context) ([]*models.Assignment, error) {
	return s.db.Session().ListActive(ctx)
}

// History returns every assignment a user has held, including revoked ones
func (s *UDNService) History(ctx context.Context, userID int64) ([]*models.Assignment, error) {
	return s.db.Session().ListHistory(ctx, userID)
}

// NextAvailable previews the ID the next automatic assignment would get
func (s *UDNService) NextAvailable(ctx context.Context) (int, error) {
	return udn.NextAvailable(ctx, s.db.Session())
}

// Status reports pool utilisation
func (s *UDNService) Status(ctx context.Context) (*udn.PoolStatus, error) {
	return udn.Status(ctx, s.db.Session())
}

// RenderUsers renders every active assignment as a FreeRADIUS users file
func (s *UDNService) RenderUsers(ctx context.Context) (string, error) {
	assignments, err := s.db.Session().ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list active assignments: %w", err)
	}
	return s.encoder.EncodeAll(assignments), nil
}

// SyncUsersFile writes the users file when one is configured
func (s *UDNService) SyncUsersFile(ctx context.Context) error {
	if s.usersFile == "" {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// Render under the lock so a slower writer never replaces newer content
	content, err := s.RenderUsers(ctx)
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.usersFile, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write users file: %w", err)
	}

	s.logger.Debug("Users file written", zap.String("path", s.usersFile))
	return nil
}

// syncAfterChange refreshes the users file after a committed change. The
// change itself has succeeded, so failures are logged rather than returned.
func (s *UDNService) syncAfterChange(ctx context.Context) {
	if err := s.SyncUsersFile(ctx); err != nil {
		s.logger.Error("Failed to refresh users file", zap.String("path", s.usersFile), zap.Error(err))
	}
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so readers only ever see a complete file
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
