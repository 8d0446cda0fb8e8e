package storage

import (
	"context"
	"fmt"
	"strings"

	"freshly/internal/models"
)

func (s *LibSQLStorage) CreateOrder(ctx context.Context, userID int64, status string) (int64, error) {
	const op = "storage.CreateOrder"

	query := fmt.Sprintf("INSERT INTO %s (user_id, status) VALUES (?, ?) RETURNING id", ordersTable)

	res, err := s.db.Execute(ctx, query, userID, status)
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

// AddOrderItems writes lines into orderID at the current product prices
// and returns the number of items written.
func (s *LibSQLStorage) AddOrderItems(ctx context.Context, orderID int64, lines []models.CartItem) (int64, error) {
	const op = "storage.AddOrderItems"

	if len(lines) == 0 {
		return 0, nil
	}

	values := make([]string, 0, len(lines))
	args := make([]any, 0, 1+2*len(lines))
	args = append(args, orderID)
	for _, line := range lines {
		values = append(values, "(?, ?)")
		args = append(args, line.ProductID, line.Quantity)
	}

	query := fmt.Sprintf(`INSERT INTO %s (order_id, product_id, quantity, price)
	SELECT ?, v.column1, v.column2, COALESCE(p.price, 0)
	FROM (VALUES %s) AS v LEFT JOIN %s p ON p.id = v.column1`,
		orderItemsTable, strings.Join(values, ", "), productsTable)

	res, err := s.db.Execute(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.AffectedRowCount, nil
}

func (s *LibSQLStorage) DeleteOrder(ctx context.Context, orderID int64) error {
	const op = "storage.DeleteOrder"

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", ordersTable)

	res, err := s.db.Execute(ctx, query, orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.AffectedRowCount == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

// ListOrders returns the user's orders newest first, each with its items.
func (s *LibSQLStorage) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	const op = "storage.ListOrders"

	query := fmt.Sprintf("SELECT id, status, created_at FROM %s WHERE user_id = ? ORDER BY id DESC", ordersTable)

	res, err := s.db.Execute(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	orders := make([]models.Order, 0, len(res.Rows))
	index := make(map[int64]int, len(res.Rows))
	for _, row := range res.Rows {
		o := models.Order{UserID: userID, Items: []models.OrderItem{}}
		if err := row.Scan(&o.ID, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemsQuery := fmt.Sprintf(`SELECT i.id, i.order_id, i.product_id, COALESCE(p.name, ''), i.quantity, i.price
	FROM %s i
	JOIN %s o ON o.id = i.order_id
	LEFT JOIN %s p ON p.id = i.product_id
	WHERE o.user_id = ?
	ORDER BY i.id`, orderItemsTable, ordersTable, productsTable)

	res, err = s.db.Execute(ctx, itemsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, row := range res.Rows {
		var item models.OrderItem
		if err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		i, ok := index[item.OrderID]
		if !ok {
			continue
		}
		orders[i].Items = append(orders[i].Items, item)
		orders[i].Total += item.Price * float64(item.Quantity)
	}

	return orders, nil
}
