package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"

	"freshly/internal/libsql"
	"freshly/internal/models"
)

const (
	usersTable         = "users"
	userExtrasTable    = "user_extras"
	productsTable      = "products"
	cartItemsTable     = "cart_items"
	ordersTable        = "orders"
	orderItemsTable    = "order_items"
	refreshTokensTable = "refresh_tokens"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Executor runs a single parameterized statement. *libsql.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, sql string, args ...any) (*libsql.Result, error)
}

type Storage interface {

	// users
	CreateUser(ctx context.Context, user models.User, passwordHash string) (userID int64, err error)
	GetUserByID(ctx context.Context, userID int64) (models.User, error)
	GetCredentialsByLogin(ctx context.Context, login string) (models.Credentials, error)
	GetUserExtra(ctx context.Context, userID int64) (models.UserExtra, error)
	UpsertUserExtra(ctx context.Context, extra models.UserExtra) error

	// refresh tokens
	CreateRefreshToken(ctx context.Context, token models.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenID uuid.UUID) (models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID uuid.UUID) (bool, error)
	RemoveAllRefreshTokensForUser(ctx context.Context, userID int64) error
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)

	// catalog
	CreateProduct(ctx context.Context, p models.Product) (int64, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	SetProductImage(ctx context.Context, id int64, imageURL string) error

	// cart
	AddCartItem(ctx context.Context, userID, productID, quantity int64) (total int64, created bool, err error)
	SetCartQuantity(ctx context.Context, userID, productID, quantity int64) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ListCart(ctx context.Context, userID int64) ([]models.CartItem, error)
	TakeCart(ctx context.Context, userID int64) ([]models.CartItem, error)

	// orders
	CreateOrder(ctx context.Context, userID int64, status string) (int64, error)
	AddOrderItems(ctx context.Context, orderID int64, lines []models.CartItem) (int64, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	ListOrders(ctx context.Context, userID int64) ([]models.Order, error)
}

// LibSQLStorage implements Storage on top of the remote SQL gateway.
type LibSQLStorage struct {
	db Executor
}

func NewLibSQLStorage(db Executor) *LibSQLStorage {
	return &LibSQLStorage{db: db}
}

// first returns the first row of res or ErrNotFound.
func first(res *libsql.Result) (libsql.Row, error) {
	row, ok := res.First()
	if !ok {
		return libsql.Row{}, ErrNotFound
	}
	return row, nil
}

// nullable reads an optional text column as "" when NULL.
func nullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
