package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const OrderStatusOnTheWay = "On the way"

type Credentials struct {
	UserID       int64
	Username     string
	Email        string
	PasswordHash string // bcrypt hash
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserExtra holds the optional contact details a user fills in on the profile page.
type UserExtra struct {
	UserID        int64  `json:"-"`
	ContactNumber string `json:"contactNumber"`
	Address       string `json:"address"`
	Birthdate     string `json:"birthdate,omitempty"`
}

type Profile struct {
	User
	Extra *UserExtra `json:"extra,omitempty"`
}

type RefreshToken struct {
	ID        uuid.UUID
	UserID    int64
	TokenHash string
	UserAgent string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	Revoked   bool

	Token string `json:"token,omitempty"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"created_at"`
}

type CartItem struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	ImageURL  string  `json:"imageUrl"`
}

type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"-"`
	Status    string      `json:"status"`
	Total     float64     `json:"total"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []OrderItem `json:"items"`
}

type OrderItem struct {
	ID        int64   `json:"id"`
	OrderID   int64   `json:"-"`
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}
