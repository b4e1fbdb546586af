package domain

import "time"

// User is referenced everywhere else only by its username, which is unique
// and stable. The password hash never leaves the auth service layer.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
