package domain

import "time"

// APIKey grants write access to template administration.
type APIKey struct {
	TokenHash string
	Name      string
	Active    bool
	CreatedAt time.Time
}
