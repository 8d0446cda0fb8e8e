package storage

import (
	"context"
	"fmt"

	"freshly/internal/libsql"
	"freshly/internal/models"
)

const productColumns = "id, name, description, price, image_url, created_at"

func scanProduct(row libsql.Row) (models.Product, error) {
	var (
		p           models.Product
		description *string
		imageURL    *string
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &p.Price, &imageURL, &p.CreatedAt); err != nil {
		return p, err
	}
	p.Description, p.ImageURL = nullable(description), nullable(imageURL)
	return p, nil
}

func (s *LibSQLStorage) CreateProduct(ctx context.Context, p models.Product) (int64, error) {
	const op = "storage.CreateProduct"

	query := fmt.Sprintf("INSERT INTO %s (name, description, price, image_url) VALUES (?, ?, ?, ?) RETURNING id", productsTable)

	res, err := s.db.Execute(ctx, query, p.Name, p.Description, p.Price, nullIfEmpty(p.ImageURL))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *LibSQLStorage) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	const op = "storage.GetProduct"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", productColumns, productsTable)

	res, err := s.db.Execute(ctx, query, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p, err := scanProduct(row)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *LibSQLStorage) ListProducts(ctx context.Context) ([]models.Product, error) {
	const op = "storage.ListProducts"

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", productColumns, productsTable)

	res, err := s.db.Execute(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	products := make([]models.Product, 0, len(res.Rows))
	for _, row := range res.Rows {
		p, err := scanProduct(row)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		products = append(products, p)
	}

	return products, nil
}

func (s *LibSQLStorage) UpdateProduct(ctx context.Context, p models.Product) error {
	const op = "storage.UpdateProduct"

	query := fmt.Sprintf("UPDATE %s SET name = ?, description = ?, price = ? WHERE id = ?", productsTable)

	res, err := s.db.Execute(ctx, query, p.Name, p.Description, p.Price, p.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.AffectedRowCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

func (s *LibSQLStorage) DeleteProduct(ctx context.Context, id int64) error {
	const op = "storage.DeleteProduct"

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", productsTable)

	res, err := s.db.Execute(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.AffectedRowCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

func (s *LibSQLStorage) SetProductImage(ctx context.Context, id int64, imageURL string) error {
	const op = "storage.SetProductImage"

	query := fmt.Sprintf("UPDATE %s SET image_url = ? WHERE id = ?", productsTable)

	res, err := s.db.Execute(ctx, query, imageURL, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.AffectedRowCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}
