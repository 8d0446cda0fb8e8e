package storage

import (
	"context"
	"fmt"
	"sort"

	"freshly/internal/models"
)

// AddCartItem inserts a cart line or increments the existing one. It returns
// the resulting quantity and whether the line was new.
func (s *LibSQLStorage) AddCartItem(ctx context.Context, userID, productID, quantity int64) (int64, bool, error) {
	const op = "storage.AddCartItem"

	query := fmt.Sprintf(`INSERT INTO %s (user_id, product_id, quantity) VALUES (?, ?, ?)
	ON CONFLICT(user_id, product_id) DO UPDATE SET
		quantity = quantity + excluded.quantity,
		updated_at = CURRENT_TIMESTAMP
	RETURNING quantity`, cartItemsTable)

	res, err := s.db.Execute(ctx, query, userID, productID, quantity)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	row, err := first(res)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	// quantities are positive, so only a fresh line ends up at exactly the added amount
	return total, total == quantity, nil
}

func (s *LibSQLStorage) SetCartQuantity(ctx context.Context, userID, productID, quantity int64) error {
	const op = "storage.SetCartQuantity"

	query := fmt.Sprintf(`UPDATE %s SET quantity = ?, updated_at = CURRENT_TIMESTAMP
	WHERE user_id = ? AND product_id = ?`, cartItemsTable)

	res, err := s.db.Execute(ctx, query, quantity, userID, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.AffectedRowCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

func (s *LibSQLStorage) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	const op = "storage.RemoveCartItem"

	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND product_id = ?", cartItemsTable)

	res, err := s.db.Execute(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.AffectedRowCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

func (s *LibSQLStorage) ListCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	const op = "storage.ListCart"

	query := fmt.Sprintf(`SELECT c.id, c.product_id, p.name, p.price, c.quantity, p.image_url
	FROM %s c JOIN %s p ON p.id = c.product_id
	WHERE c.user_id = ?
	ORDER BY c.id`, cartItemsTable, productsTable)

	res, err := s.db.Execute(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	items := make([]models.CartItem, 0, len(res.Rows))
	for _, row := range res.Rows {
		var (
			item     models.CartItem
			imageURL *string
		)
		if err := row.Scan(&item.ID, &item.ProductID, &item.Name, &item.Price, &item.Quantity, &imageURL); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		item.ImageURL = nullable(imageURL)
		items = append(items, item)
	}

	return items, nil
}

// TakeCart removes every cart line of the user and returns what was removed.
// Of two concurrent calls only one gets the lines.
func (s *LibSQLStorage) TakeCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	const op = "storage.TakeCart"

	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = ? RETURNING id, product_id, quantity", cartItemsTable)

	res, err := s.db.Execute(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lines := make([]models.CartItem, 0, len(res.Rows))
	for _, row := range res.Rows {
		var line models.CartItem
		if err := row.Scan(&line.ID, &line.ProductID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		lines = append(lines, line)
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })

	return lines, nil
}
