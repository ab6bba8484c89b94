package admin

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, apperror.KindNotFound, "admin not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, apperror.KindInvalidInput, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, apperror.KindUnauthorized, "invalid email or password")
	ErrInactive           = apperror.New(http.StatusForbidden, apperror.KindUnauthorized, "admin is inactive")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "password is too short")
)

// Admin is a venue operator allowed to manage rooms and bookings.
type Admin struct {
	ID           string // UUID
	Email        string
	PasswordHash string
	DisplayName  *string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}
