package authsvc

import (
	"context"
	"errors"
	"time"
)

// User is a registered account. Email is stored lower-cased.
type User struct {
	ID           string    `json:"_id" gorm:"primaryKey;size:36"`
	Username     string    `json:"username" gorm:"uniqueIndex;size:30;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// UserRepository is the credential store. Create must reject a username or
// email that is already taken with ErrUserExists.
type UserRepository interface {
	Create(ctx context.Context, u User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

type contextKey string

// UserIDContextKey holds the verified user ID of the caller. It is absent for
// anonymous requests.
const UserIDContextKey contextKey = "UserID"

// UserIDFromContext returns the verified user ID, or "" when the request is
// anonymous.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(UserIDContextKey).(string)
	return id
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUserExists      = errors.New("username or email already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrLoginFailed     = errors.New("Login failed")

	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
)
