package uuidutil

import "github.com/google/uuid"

// New returns a time-ordered UUIDv7, falling back to a random v4 if the
// clock source fails.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func IsValid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
