package udn

import "fmt"

const (
	// MinID is the lowest assignable UDN ID. ID 1 is reserved by the access points.
	MinID = 2
	// MaxID is the highest assignable UDN ID.
	MaxID = 16777200
	// PoolSize is the number of IDs in [MinID, MaxID].
	PoolSize = MaxID - MinID + 1
)

// ValidateID checks that id lies within [MinID, MaxID].
func ValidateID(id int) error {
	if id < MinID || id > MaxID {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrOutOfRange, id, MinID, MaxID)
	}
	return nil
}
