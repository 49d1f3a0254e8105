// Package user provides campus account and trust-score storage.
//
// Accounts themselves are provisioned by the SSO/registration service;
// this package stores the profile and reputation data the marketplace
// reads and the rating engine writes.
package user

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

// User is a campus account.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	TrustScore int       `json:"trustScore"`
	FullName   string    `json:"fullName,omitempty"`
	Department string    `json:"department,omitempty"`
	Year       int       `json:"year,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists user data.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id string) (*User, error)
	AddTrustScore(ctx context.Context, id string, points int) error
}
