package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"freshly/internal/auth"
	"freshly/internal/media"
	"freshly/internal/storage"
	"freshly/internal/upstream"
)

const defaultRefreshTTL = 30 * 24 * time.Hour

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
	TTL() time.Duration
}

// Directory is the external user directory consulted for accounts that
// predate local registration.
type Directory interface {
	Validate(ctx context.Context, email, password string) (upstream.DirectoryUser, error)
	ListUsers(ctx context.Context) (json.RawMessage, error)
}

type ImageStore interface {
	PresignProductImage(ctx context.Context, productID int64, contentType string) (media.Upload, error)
}

type Service struct {
	storage    storage.Storage
	tokens     TokenIssuer
	directory  Directory
	images     ImageStore
	refreshTTL time.Duration
	log        *slog.Logger
}

// NewService wires the business layer. directory and images may be nil,
// which disables directory login and image uploads respectively.
func NewService(st storage.Storage, tokens TokenIssuer, directory Directory, images ImageStore, refreshTTL time.Duration, log *slog.Logger) *Service {
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}
	return &Service{
		storage:    st,
		tokens:     tokens,
		directory:  directory,
		images:     images,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// CleanupRefreshTokens drops expired and revoked refresh tokens.
func (s *Service) CleanupRefreshTokens(ctx context.Context) (int64, error) {
	return s.storage.DeleteExpiredRefreshTokens(ctx, time.Now())
}
