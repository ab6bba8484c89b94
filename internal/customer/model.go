package customer

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/escape-room-booking/internal/pkg/apperror"
)

var (
	ErrNameRequired = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "customer name is required")
	ErrInvalidEmail = apperror.New(http.StatusBadRequest, apperror.KindInvalidInput, "customer email is invalid")
)

// Customer is the person a booking is made for. Customers are unique by
// normalized e-mail.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contact is the customer data submitted with a booking request.
type Contact struct {
	Name  string
	Email string
	Phone string
}
