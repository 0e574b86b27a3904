package udn

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned for MAC addresses that are not 12 hex digits.
	ErrInvalidFormat = errors.New("invalid mac address format")
	// ErrOutOfRange is returned for UDN IDs outside [MinID, MaxID].
	ErrOutOfRange = errors.New("udn id out of range")
	// ErrAlreadyAssigned is returned when a UDN ID is held by another active assignment.
	ErrAlreadyAssigned = errors.New("udn id already assigned")
	// ErrPoolExhausted is returned when every ID in the pool is in use.
	ErrPoolExhausted = errors.New("udn id pool exhausted")
	// ErrNotFound is returned by lookups that match no active assignment.
	ErrNotFound = errors.New("udn assignment not found")
)

// AlreadyAssignedError names the user currently holding a requested UDN ID.
// UserID is zero when the holder could not be read back after the store's
// unique constraint rejected an insert.
type AlreadyAssignedError struct {
	UDNID  int
	UserID int64
}

func (e *AlreadyAssignedError) Error() string {
	if e.UserID == 0 {
		return fmt.Sprintf("udn id %d is already assigned", e.UDNID)
	}
	return fmt.Sprintf("udn id %d is already assigned to user %d", e.UDNID, e.UserID)
}

// Is lets errors.Is(err, ErrAlreadyAssigned) match the typed error.
func (e *AlreadyAssignedError) Is(target error) bool {
	return target == ErrAlreadyAssigned
}
