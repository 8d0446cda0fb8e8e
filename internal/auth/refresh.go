package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"freshly/internal/models"
)

const refreshSecretLen = 32

type RefreshTokenCreator interface {
	CreateRefreshToken(ctx context.Context, token models.RefreshToken) error
}

// GenerateAndStoreRefreshToken creates an opaque refresh token for userID and
// persists only the bcrypt hash of its secret. The returned token carries the
// encoded value in Token.
func GenerateAndStoreRefreshToken(ctx context.Context, st RefreshTokenCreator, userID int64, ttl time.Duration, userAgent string) (models.RefreshToken, error) {
	const op = "auth.GenerateAndStoreRefreshToken"

	refreshToken := models.RefreshToken{}

	tokenID, err := uuid.NewV4()
	if err != nil {
		return refreshToken, fmt.Errorf("%s: %w", op, err)
	}

	secret, err := RandomString(refreshSecretLen)
	if err != nil {
		return refreshToken, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := HashRefresh(secret)
	if err != nil {
		return refreshToken, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	refreshToken = models.RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: hashed,
		UserAgent: userAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := st.CreateRefreshToken(ctx, refreshToken); err != nil {
		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken.Token = EncodeRefreshToken(tokenID, secret)

	return refreshToken, nil
}

func EncodeRefreshToken(id uuid.UUID, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id.String() + ":" + secret))
}

// ParseRefreshToken splits an encoded refresh token into its id and secret.
func ParseRefreshToken(encoded string) (uuid.UUID, string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return uuid.Nil, "", ErrMalformedRefreshToken
	}

	idStr, secret, ok := strings.Cut(string(data), ":")
	if !ok || secret == "" {
		return uuid.Nil, "", ErrMalformedRefreshToken
	}

	id, err := uuid.FromString(idStr)
	if err != nil {
		return uuid.Nil, "", ErrMalformedRefreshToken
	}

	return id, secret, nil
}
