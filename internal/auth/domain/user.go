package domain

import (
	"fmt"
	"time"
)

// Category groups users by the kind of caller they are. It selects the
// default scope and the issuer used for their tokens.
type Category string

const (
	CategoryAPIClient       Category = "API_CLIENT"
	CategoryAnonymousClient Category = "ANONYMOUS_CLIENT"
	CategoryAdmin           Category = "ADMIN"
	CategoryManager         Category = "MANAGER"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryAPIClient,
	CategoryAnonymousClient,
	CategoryAdmin,
	CategoryManager,
}

// ParseCategory validates a stored or configured category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("domain: unknown user category %q", s)
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string // argon2id encoded, bcrypt accepted for legacy rows
	Category     Category
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject returns the token subject identifying u under prefix.
func (u User) Subject(prefix string) string {
	return FormatSubject(prefix, u.Username, u.ID)
}
