package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freshly/internal/libsql/libsqltest"
	"freshly/internal/models"
)

func newTestStorage(t *testing.T) (*LibSQLStorage, *libsqltest.Server) {
	t.Helper()

	srv := libsqltest.NewServer(t)
	client := srv.NewClient(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, Migrate(context.Background(), client, log))
	return NewLibSQLStorage(client), srv
}

func createUser(t *testing.T, st *LibSQLStorage, username, email string) int64 {
	t.Helper()
	id, err := st.CreateUser(context.Background(), models.User{Username: username, Email: email}, "hash")
	require.NoError(t, err)
	return id
}

func TestMigrate_Idempotent(t *testing.T) {
	srv := libsqltest.NewServer(t)
	client := srv.NewClient(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	require.NoError(t, Migrate(ctx, client, log))
	require.NoError(t, Migrate(ctx, client, log))

	var n int
	require.NoError(t, srv.DB().QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- comment\nCREATE TABLE a (x INT);\n\n  CREATE INDEX i ON a(x) ;\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a(x)"}, got)
}

func TestUsers(t *testing.T) {
	st, _ := newTestStorage(t)
	ctx := context.Background()

	id, err := st.CreateUser(ctx, models.User{Username: "leeyam20", Email: "A@B.com", FirstName: "Lee"}, "hash")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = st.CreateUser(ctx, models.User{Username: "other", Email: "a@b.com"}, "hash")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = st.CreateUser(ctx, models.User{Username: "leeyam20", Email: "c@d.com"}, "hash")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	user, err := st.GetUserByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "leeyam20", user.Username)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "Lee", user.FirstName)
	assert.Empty(t, user.LastName)
	assert.False(t, user.CreatedAt.IsZero())

	for _, login := range []string{"a@b.com", "A@B.COM", "leeyam20"} {
		cred, err := st.GetCredentialsByLogin(ctx, login)
		require.NoError(t, err, login)
		assert.Equal(t, id, cred.UserID)
		assert.Equal(t, "hash", cred.PasswordHash)
	}

	_, err = st.GetCredentialsByLogin(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	// a username shaped like someone else's email never shadows that account
	other, err := st.CreateUser(ctx, models.User{Username: "x@y.com", Email: "x2@y.com"}, "other-hash")
	require.NoError(t, err)
	owner, err := st.CreateUser(ctx, models.User{Username: "xy", Email: "x@y.com"}, "owner-hash")
	require.NoError(t, err)
	cred, err := st.GetCredentialsByLogin(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Equal(t, owner, cred.UserID)
	assert.NotEqual(t, other, cred.UserID)
	_, err = st.GetUserByID(ctx, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserExtras(t *testing.T) {
	st, _ := newTestStorage(t)
	ctx := context.Background()
	id := createUser(t, st, "leeyam20", "a@b.com")

	_, err := st.GetUserExtra(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.UpsertUserExtra(ctx, models.UserExtra{UserID: id, ContactNumber: "123", Address: "Main st", Birthdate: "1990-01-02"}))
	require.NoError(t, st.UpsertUserExtra(ctx, models.UserExtra{UserID: id, ContactNumber: "456", Address: "Side st"}))

	extra, err := st.GetUserExtra(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "456", extra.ContactNumber)
	assert.Equal(t, "Side st", extra.Address)
	assert.Equal(t, "1990-01-02", extra.Birthdate, "birthdate is kept when omitted")
}

func TestRefreshTokens(t *testing.T) {
	st, _ := newTestStorage(t)
	ctx := context.Background()
	userID := createUser(t, st, "leeyam20", "a@b.com")

	now := time.Now().UTC().Truncate(time.Second)
	live := models.RefreshToken{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    userID,
		TokenHash: "h1",
		UserAgent: "test",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	expired := live
	expired.ID = uuid.Must(uuid.NewV4())
	expired.ExpiresAt = now.Add(-time.Hour)

	require.NoError(t, st.CreateRefreshToken(ctx, live))
	require.NoError(t, st.CreateRefreshToken(ctx, expired))

	got, err := st.GetRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "h1", got.TokenHash)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.True(t, now.Add(time.Hour).Equal(got.ExpiresAt))
	assert.Nil(t, got.UsedAt)
	assert.False(t, got.Revoked)

	ok, err := st.RevokeRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.RevokeRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second revoke must lose")

	got, err = st.GetRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	assert.True(t, got.Revoked)
	assert.NotNil(t, got.UsedAt)

	n, err := st.DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = st.GetRefreshToken(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	fresh := live
	fresh.ID = uuid.Must(uuid.NewV4())
	require.NoError(t, st.CreateRefreshToken(ctx, fresh))
	require.NoError(t, st.RemoveAllRefreshTokensForUser(ctx, userID))
	_, err = st.GetRefreshToken(ctx, fresh.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProducts(t *testing.T) {
	st, _ := newTestStorage(t)
	ctx := context.Background()

	id, err := st.CreateProduct(ctx, models.Product{Name: "Apple", Description: "Green", Price: 1.5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	p, err := st.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Apple", p.Name)
	assert.Equal(t, 1.5, p.Price)
	assert.Empty(t, p.ImageURL)

	p.Name, p.Price = "Red apple", 2
	require.NoError(t, st.UpdateProduct(ctx, p))
	require.NoError(t, st.SetProductImage(ctx, id, "https://cdn.example.com/apple.png"))

	list, err := st.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Red apple", list[0].Name)
	assert.Equal(t, 2.0, list[0].Price)
	assert.Equal(t, "https://cdn.example.com/apple.png", list[0].ImageURL)

	require.NoError(t, st.DeleteProduct(ctx, id))
	assert.ErrorIs(t, st.DeleteProduct(ctx, id), ErrNotFound)
	assert.ErrorIs(t, st.UpdateProduct(ctx, p), ErrNotFound)
	_, err = st.GetProduct(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err = st.ListProducts(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCartAndOrders(t *testing.T) {
	st, _ := newTestStorage(t)
	ctx := context.Background()
	userID := createUser(t, st, "leeyam20", "a@b.com")

	apple, err := st.CreateProduct(ctx, models.Product{Name: "Apple", Price: 1.5})
	require.NoError(t, err)
	pear, err := st.CreateProduct(ctx, models.Product{Name: "Pear", Price: 2})
	require.NoError(t, err)

	total, created, err := st.AddCartItem(ctx, userID, apple, 2)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2), total)

	total, created, err = st.AddCartItem(ctx, userID, apple, 3)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(5), total)

	_, _, err = st.AddCartItem(ctx, userID, pear, 1)
	require.NoError(t, err)

	require.NoError(t, st.SetCartQuantity(ctx, userID, pear, 4))
	assert.ErrorIs(t, st.SetCartQuantity(ctx, userID, 999, 1), ErrNotFound)

	items, err := st.ListCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.CartItem{ID: items[0].ID, ProductID: apple, Name: "Apple", Price: 1.5, Quantity: 5}, items[0])
	assert.Equal(t, int64(4), items[1].Quantity)

	orderID, err := st.CreateOrder(ctx, userID, models.OrderStatusOnTheWay)
	require.NoError(t, err)

	lines, err := st.TakeCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, apple, lines[0].ProductID)
	assert.Equal(t, int64(5), lines[0].Quantity)

	lines2, err := st.TakeCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, lines2, "a taken cart is empty")

	copied, err := st.AddOrderItems(ctx, orderID, lines)
	require.NoError(t, err)
	assert.Equal(t, int64(2), copied)

	items, err = st.ListCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// later price changes do not touch the order snapshot
	require.NoError(t, st.UpdateProduct(ctx, models.Product{ID: apple, Name: "Apple", Price: 10}))

	orders, err := st.ListOrders(ctx, userID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.Equal(t, models.OrderStatusOnTheWay, orders[0].Status)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, 1.5, orders[0].Items[0].Price)
	assert.InDelta(t, 5*1.5+4*2, orders[0].Total, 1e-9)

	assert.ErrorIs(t, st.RemoveCartItem(ctx, userID, pear), ErrNotFound)
}

func TestDeleteOrder(t *testing.T) {
	st, _ := newTestStorage(t)
	ctx := context.Background()
	userID := createUser(t, st, "leeyam20", "a@b.com")

	orderID, err := st.CreateOrder(ctx, userID, models.OrderStatusOnTheWay)
	require.NoError(t, err)

	copied, err := st.AddOrderItems(ctx, orderID, nil)
	require.NoError(t, err)
	assert.Zero(t, copied)

	require.NoError(t, st.DeleteOrder(ctx, orderID))
	assert.ErrorIs(t, st.DeleteOrder(ctx, orderID), ErrNotFound)

	orders, err := st.ListOrders(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
