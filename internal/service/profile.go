package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"freshly/internal/models"
	"freshly/internal/storage"
)

func (s *Service) Profile(ctx context.Context, userID int64) (models.Profile, error) {
	const op = "service.Profile"

	user, err := s.storage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Profile{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	profile := models.Profile{User: user}

	extra, err := s.storage.GetUserExtra(ctx, userID)
	switch {
	case err == nil:
		profile.Extra = &extra
	case !errors.Is(err, storage.ErrNotFound):
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return profile, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID int64, extra models.UserExtra) (models.UserExtra, error) {
	const op = "service.UpdateProfile"

	extra.UserID = userID
	extra.ContactNumber = strings.TrimSpace(extra.ContactNumber)
	extra.Address = strings.TrimSpace(extra.Address)
	extra.Birthdate = strings.TrimSpace(extra.Birthdate)

	if extra.ContactNumber == "" || extra.Address == "" {
		return models.UserExtra{}, fmt.Errorf("%s: %w", op, invalid("", "contactNumber and address are required"))
	}
	if extra.Birthdate != "" {
		if _, err := time.Parse("2006-01-02", extra.Birthdate); err != nil {
			return models.UserExtra{}, fmt.Errorf("%s: %w", op, invalid("birthdate", "must be YYYY-MM-DD"))
		}
	}

	if err := s.storage.UpsertUserExtra(ctx, extra); err != nil {
		return models.UserExtra{}, fmt.Errorf("%s: %w", op, err)
	}

	stored, err := s.storage.GetUserExtra(ctx, userID)
	if err != nil {
		return models.UserExtra{}, fmt.Errorf("%s: %w", op, err)
	}

	return stored, nil
}

// ListDirectoryUsers proxies the external directory listing.
func (s *Service) ListDirectoryUsers(ctx context.Context) (json.RawMessage, error) {
	const op = "service.ListDirectoryUsers"

	if s.directory == nil {
		return nil, fmt.Errorf("%s: directory is not configured", op)
	}

	users, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return users, nil
}
