package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"freshly/internal/media"
	"freshly/internal/models"
	"freshly/internal/storage"
)

type ProductInput struct {
	Name        string
	Description string
	Price       float64
}

func (in *ProductInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.Name == "" {
		return invalid("name", "is required")
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return invalid("price", "must be a non-negative number")
	}
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "service.ListProducts"

	products, err := s.storage.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	const op = "service.GetProduct"

	p, err := s.storage.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, notFound(err, ErrProductNotFound))
	}

	return p, nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	const op = "service.CreateProduct"

	log := s.log.With(slog.String("op", op))

	if err := in.normalize(); err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.storage.CreateProduct(ctx, models.Product{Name: in.Name, Description: in.Description, Price: in.Price})
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := s.storage.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("product created", slog.Int64("product_id", id))

	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (models.Product, error) {
	const op = "service.UpdateProduct"

	if err := in.normalize(); err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	err := s.storage.UpdateProduct(ctx, models.Product{ID: id, Name: in.Name, Description: in.Description, Price: in.Price})
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, notFound(err, ErrProductNotFound))
	}

	p, err := s.storage.GetProduct(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, notFound(err, ErrProductNotFound))
	}

	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	const op = "service.DeleteProduct"

	if err := s.storage.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, ErrProductNotFound))
	}

	return nil
}

// CreateImageUpload presigns an upload for a new product image and points
// the product at the object's public URL.
func (s *Service) CreateImageUpload(ctx context.Context, productID int64, contentType string) (media.Upload, error) {
	const op = "service.CreateImageUpload"

	if s.images == nil {
		return media.Upload{}, fmt.Errorf("%s: %w", op, ErrImagesDisabled)
	}

	if _, err := s.storage.GetProduct(ctx, productID); err != nil {
		return media.Upload{}, fmt.Errorf("%s: %w", op, notFound(err, ErrProductNotFound))
	}

	upload, err := s.images.PresignProductImage(ctx, productID, contentType)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedContentType) {
			return media.Upload{}, fmt.Errorf("%s: %w", op, invalid("content_type", "must be image/jpeg, image/png, image/webp or image/gif"))
		}
		return media.Upload{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.storage.SetProductImage(ctx, productID, upload.PublicURL); err != nil {
		return media.Upload{}, fmt.Errorf("%s: %w", op, notFound(err, ErrProductNotFound))
	}

	return upload, nil
}

// notFound swaps storage.ErrNotFound for the domain-specific sentinel.
func notFound(err, domain error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return domain
	}
	return err
}
