package auth

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"freshly/internal/models"
)

type memoryTokens struct {
	stored []models.RefreshToken
}

func (m *memoryTokens) CreateRefreshToken(_ context.Context, token models.RefreshToken) error {
	m.stored = append(m.stored, token)
	return nil
}

func TestGenerateAndStoreRefreshToken(t *testing.T) {
	st := &memoryTokens{}

	token, err := GenerateAndStoreRefreshToken(context.Background(), st, 5, 24*time.Hour, "curl/8.0")
	require.NoError(t, err)
	require.Len(t, st.stored, 1)

	stored := st.stored[0]
	assert.Empty(t, stored.Token, "the encoded token is never persisted")
	assert.Equal(t, int64(5), stored.UserID)
	assert.Equal(t, "curl/8.0", stored.UserAgent)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), stored.ExpiresAt, time.Minute)

	id, secret, err := ParseRefreshToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, id)
	assert.Len(t, secret, refreshSecretLen)
	assert.NotContains(t, stored.TokenHash, secret)
	assert.True(t, CheckRefreshToken(secret, stored.TokenHash))
	assert.False(t, CheckRefreshToken("wrong", stored.TokenHash))
}

func TestParseRefreshToken_Malformed(t *testing.T) {
	id := uuid.Must(uuid.NewV4())

	for _, raw := range []string{
		"",
		"%%%not-base64",
		base64.StdEncoding.EncodeToString([]byte("no-separator")),
		base64.StdEncoding.EncodeToString([]byte("not-a-uuid:secret")),
		base64.StdEncoding.EncodeToString([]byte(id.String() + ":")),
	} {
		_, _, err := ParseRefreshToken(raw)
		assert.ErrorIs(t, err, ErrMalformedRefreshToken, raw)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("pw", hash))
	assert.False(t, CheckPasswordHash("PW", hash))
	assert.False(t, CheckPasswordHash("pw", "not-a-bcrypt-hash"))
}

func TestPasswordHash_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("p", MaxPasswordLength))
	require.NoError(t, err)

	_, err = HashPassword(strings.Repeat("p", MaxPasswordLength+1))
	assert.Error(t, err)
}

func TestCheckDummyPassword(t *testing.T) {
	cost, err := bcrypt.Cost(dummyHash())
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)

	for _, pw := range []string{"", "pw", "freshly"} {
		assert.False(t, CheckDummyPassword(pw))
	}
}
