package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// MarkerPatch is a partial update to a marker. Nil fields are left alone.
type MarkerPatch struct {
	Position *string
	Quote    *string
	Note     *string
	Type     *string
}
