package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"freshly/internal/models"
)

func (s *LibSQLStorage) CreateRefreshToken(ctx context.Context, token models.RefreshToken) error {
	const op = "storage.CreateRefreshToken"

	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, token_hash, user_agent, created_at, expires_at, used_at, revoked)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, refreshTokensTable)

	_, err := s.db.Execute(ctx, query, token.ID.String(), token.UserID, token.TokenHash, token.UserAgent,
		token.CreatedAt, token.ExpiresAt, token.UsedAt, token.Revoked)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *LibSQLStorage) GetRefreshToken(ctx context.Context, tokenID uuid.UUID) (models.RefreshToken, error) {
	const op = "storage.GetRefreshToken"

	var refreshToken models.RefreshToken
	query := fmt.Sprintf(`SELECT
	id, user_id, token_hash, user_agent, created_at, expires_at, used_at, revoked
	FROM %s WHERE id = ?`, refreshTokensTable)

	res, err := s.db.Execute(ctx, query, tokenID.String())
	if err != nil {
		return refreshToken, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return refreshToken, fmt.Errorf("%s: %w", op, err)
	}

	var id string
	err = row.Scan(
		&id,
		&refreshToken.UserID,
		&refreshToken.TokenHash,
		&refreshToken.UserAgent,
		&refreshToken.CreatedAt,
		&refreshToken.ExpiresAt,
		&refreshToken.UsedAt,
		&refreshToken.Revoked,
	)
	if err != nil {
		return refreshToken, fmt.Errorf("%s: %w", op, err)
	}

	if refreshToken.ID, err = uuid.FromString(id); err != nil {
		return refreshToken, fmt.Errorf("%s: %w", op, err)
	}

	return refreshToken, nil
}

// RevokeRefreshToken marks the token used. It reports false when the token
// was already revoked, so concurrent callers cannot both consume it.
func (s *LibSQLStorage) RevokeRefreshToken(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	const op = "storage.RevokeRefreshToken"

	query := fmt.Sprintf(`UPDATE %s SET revoked = 1, used_at = ?
	WHERE id = ? AND revoked = 0 RETURNING id`, refreshTokensTable)

	res, err := s.db.Execute(ctx, query, time.Now().UTC(), tokenID.String())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return len(res.Rows) == 1, nil
}

func (s *LibSQLStorage) RemoveAllRefreshTokensForUser(ctx context.Context, userID int64) error {
	const op = "storage.RemoveAllRefreshTokensForUser"

	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", refreshTokensTable)

	if _, err := s.db.Execute(ctx, query, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredRefreshTokens removes tokens that expired before now or
// were already revoked.
func (s *LibSQLStorage) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.DeleteExpiredRefreshTokens"

	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ? OR revoked = 1", refreshTokensTable)

	res, err := s.db.Execute(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.AffectedRowCount, nil
}
