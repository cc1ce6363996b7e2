package uid

import "github.com/google/uuid"

// New generates a new unique identifier. IDs are time-ordered (UUIDv7) so
// request logs sort by arrival; a random v4 is used if the clock source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// IsValid checks if a string is a UUID in its canonical 36-character form.
// The braced and urn: forms uuid.Parse also accepts are rejected.
func IsValid(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
