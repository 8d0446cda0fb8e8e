package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"freshly/internal/auth"
	"freshly/internal/models"
	"freshly/internal/storage"
	"freshly/internal/upstream"
)

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (in *RegisterInput) normalize() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if in.Username == "" {
		return invalid("username", "is required")
	}
	if len(in.Username) > 64 {
		return invalid("username", "is too long")
	}
	if strings.Contains(in.Username, "@") {
		return invalid("username", "must not contain @")
	}
	if err := validEmail(in.Email); err != nil {
		return err
	}
	return validPassword(in.Password)
}

func validPassword(password string) error {
	if password == "" {
		return invalid("password", "is required")
	}
	if len(password) > auth.MaxPasswordLength {
		return invalid("password", "is too long")
	}
	return nil
}

func validEmail(email string) error {
	if email == "" {
		return invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("email", "is not a valid address")
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput, userAgent string) (models.User, TokenPair, error) {
	const op = "service.Register"

	log := s.log.With(slog.String("op", op))

	if err := in.normalize(); err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.storage.CreateUser(ctx, models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}, passwordHash)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issuePair(ctx, user.ID, user.Username, user.Email, userAgent)
	if err != nil {
		return models.User{}, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("user_id", user.ID))

	return user, pair, nil
}

// Login checks credentials against the local user table. An unknown email
// is tried against the external directory and imported on success.
func (s *Service) Login(ctx context.Context, login, password, userAgent string) (TokenPair, error) {
	const op = "service.Login"

	log := s.log.With(slog.String("op", op))

	login = strings.TrimSpace(login)
	if login == "" {
		return TokenPair{}, fmt.Errorf("%s: %w", op, invalid("login", "is required"))
	}
	if err := validPassword(password); err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	cred, err := s.storage.GetCredentialsByLogin(ctx, login)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if s.directory == nil || !strings.Contains(login, "@") {
			auth.CheckDummyPassword(password)
			return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		cred, err = s.importFromDirectory(ctx, login, password)
		if err != nil {
			return TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("user imported from directory", slog.Int64("user_id", cred.UserID))
	case err != nil:
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	default:
		if !auth.CheckPasswordHash(password, cred.PasswordHash) {
			return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
	}

	pair, err := s.issuePair(ctx, cred.UserID, cred.Username, cred.Email, userAgent)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("user logged in", slog.Int64("user_id", cred.UserID))

	return pair, nil
}

func (s *Service) importFromDirectory(ctx context.Context, email, password string) (models.Credentials, error) {
	const op = "service.importFromDirectory"

	du, err := s.directory.Validate(ctx, email, password)
	if err != nil {
		if errors.Is(err, upstream.ErrRejected) {
			return models.Credentials{}, ErrInvalidCredentials
		}
		return models.Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return models.Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	email = strings.ToLower(strings.TrimSpace(du.Email))
	username, _, _ := strings.Cut(email, "@")
	user := models.User{Username: username, Email: email, FirstName: du.FirstName, LastName: du.LastName}

	id, err := s.storage.CreateUser(ctx, user, passwordHash)
	if errors.Is(err, storage.ErrAlreadyExists) {
		// the local part is taken by someone else
		suffix, rerr := auth.RandomString(6)
		if rerr != nil {
			return models.Credentials{}, fmt.Errorf("%s: %w", op, rerr)
		}
		user.Username = username + "-" + strings.ToLower(suffix)
		id, err = s.storage.CreateUser(ctx, user, passwordHash)
	}
	if err != nil {
		return models.Credentials{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.Credentials{UserID: id, Username: user.Username, Email: email, PasswordHash: passwordHash}, nil
}

// Refresh rotates a refresh token. Of two concurrent calls with the same
// token only one succeeds.
func (s *Service) Refresh(ctx context.Context, rawToken, userAgent string) (TokenPair, error) {
	const op = "service.Refresh"

	log := s.log.With(slog.String("op", op))

	tokenID, secret, err := auth.ParseRefreshToken(rawToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	stored, err := s.storage.GetRefreshToken(ctx, tokenID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if stored.Revoked {
		log.Warn("revoked refresh token presented", slog.String("token_id", tokenID.String()), slog.Int64("user_id", stored.UserID))
		return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}
	if !auth.CheckRefreshToken(secret, stored.TokenHash) {
		return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}
	if time.Now().After(stored.ExpiresAt) {
		return TokenPair{}, fmt.Errorf("%s: %w", op, ErrRefreshTokenExpired)
	}

	won, err := s.storage.RevokeRefreshToken(ctx, tokenID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !won {
		return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	user, err := s.storage.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TokenPair{}, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issuePair(ctx, user.ID, user.Username, user.Email, userAgent)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (s *Service) Logout(ctx context.Context, userID int64) error {
	const op = "service.Logout"

	if err := s.storage.RemoveAllRefreshTokensForUser(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Service) issuePair(ctx context.Context, userID int64, username, email, userAgent string) (TokenPair, error) {
	access, err := s.tokens.Issue(auth.Identity{UserID: userID, Username: username, Email: email})
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := auth.GenerateAndStoreRefreshToken(ctx, s.storage, userID, s.refreshTTL, userAgent)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.TTL() / time.Second),
	}, nil
}
