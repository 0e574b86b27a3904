// Package models defines the data structures for database entities in udnm.
// It includes UDN assignments, operator accounts and system configuration.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents an operator account allowed to use the API
type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"created_at"`
}

// Assignment binds a UDN ID to a user and, optionally, a device MAC address.
// Revoked rows keep IsActive=false and are retained for audit.
type Assignment struct {
	ID         string         `db:"id" json:"id"`
	UDNID      int            `db:"udn_id" json:"udn_id"`
	UserID     int64          `db:"user_id" json:"user_id"`
	MACAddress sql.NullString `db:"mac_address" json:"mac_address"`
	UserName   sql.NullString `db:"user_name" json:"user_name"`
	UserEmail  sql.NullString `db:"user_email" json:"user_email"`
	Unit       sql.NullString `db:"unit" json:"unit"`
	NetworkID  sql.NullString `db:"network_id" json:"network_id"`
	SSIDNumber sql.NullInt64  `db:"ssid_number" json:"ssid_number"`
	Note       sql.NullString `db:"note" json:"note"`
	IsActive   bool           `db:"is_active" json:"is_active"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
	RevokedAt  sql.NullTime   `db:"revoked_at" json:"revoked_at"`
	LastAuthAt sql.NullTime   `db:"last_auth_at" json:"last_auth_at"`
}

// MarshalJSON flattens the sql.Null* fields into plain values or null
func (a *Assignment) MarshalJSON() ([]byte, error) {
	type Alias Assignment
	return json.Marshal(&struct {
		*Alias
		MACAddress *string    `json:"mac_address"`
		UserName   *string    `json:"user_name"`
		UserEmail  *string    `json:"user_email"`
		Unit       *string    `json:"unit"`
		NetworkID  *string    `json:"network_id"`
		SSIDNumber *int64     `json:"ssid_number"`
		Note       *string    `json:"note"`
		RevokedAt  *time.Time `json:"revoked_at"`
		LastAuthAt *time.Time `json:"last_auth_at"`
	}{
		Alias:      (*Alias)(a),
		MACAddress: nullString(a.MACAddress),
		UserName:   nullString(a.UserName),
		UserEmail:  nullString(a.UserEmail),
		Unit:       nullString(a.Unit),
		NetworkID:  nullString(a.NetworkID),
		SSIDNumber: nullInt(a.SSIDNumber),
		Note:       nullString(a.Note),
		RevokedAt:  nullTime(a.RevokedAt),
		LastAuthAt: nullTime(a.LastAuthAt),
	})
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

// SystemConfig represents system-wide configuration stored in the database
type SystemConfig struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}
