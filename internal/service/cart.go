package service

import (
	"context"
	"fmt"
	"log/slog"

	"freshly/internal/models"
)

func (s *Service) Cart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	const op = "service.Cart"

	items, err := s.storage.ListCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return items, nil
}

// AddToCart adds quantity of a product to the user's cart. created is false
// when an existing line was incremented.
func (s *Service) AddToCart(ctx context.Context, userID, productID, quantity int64) (total int64, created bool, err error) {
	const op = "service.AddToCart"

	if productID <= 0 {
		return 0, false, fmt.Errorf("%s: %w", op, invalid("productId", "is required"))
	}
	if quantity <= 0 {
		return 0, false, fmt.Errorf("%s: %w", op, invalid("quantity", "must be positive"))
	}

	if _, err := s.storage.GetProduct(ctx, productID); err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, notFound(err, ErrProductNotFound))
	}

	total, created, err = s.storage.AddCartItem(ctx, userID, productID, quantity)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}

	return total, created, nil
}

// UpdateCartQuantity sets the quantity of an existing line. Zero removes it.
func (s *Service) UpdateCartQuantity(ctx context.Context, userID, productID, quantity int64) error {
	const op = "service.UpdateCartQuantity"

	if productID <= 0 {
		return fmt.Errorf("%s: %w", op, invalid("productId", "is required"))
	}
	if quantity < 0 {
		return fmt.Errorf("%s: %w", op, invalid("quantity", "must not be negative"))
	}

	var err error
	if quantity == 0 {
		err = s.storage.RemoveCartItem(ctx, userID, productID)
	} else {
		err = s.storage.SetCartQuantity(ctx, userID, productID, quantity)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, notFound(err, ErrCartItemNotFound))
	}

	return nil
}

// Checkout turns the cart into an order. The cart is emptied in one
// statement first, so concurrent checkouts cannot order the same lines
// twice. If the order cannot be written the lines go back to the cart.
func (s *Service) Checkout(ctx context.Context, userID int64) (int64, error) {
	const op = "service.Checkout"

	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID))

	lines, err := s.storage.TakeCart(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	orderID, err := s.storage.CreateOrder(ctx, userID, models.OrderStatusOnTheWay)
	if err != nil {
		s.restoreCart(ctx, log, userID, lines)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	copied, err := s.storage.AddOrderItems(ctx, orderID, lines)
	if err == nil && copied != int64(len(lines)) {
		err = fmt.Errorf("wrote %d of %d order items", copied, len(lines))
	}
	if err != nil {
		if derr := s.storage.DeleteOrder(ctx, orderID); derr != nil {
			log.Error("failed to drop incomplete order", slog.Int64("order_id", orderID), slog.Any("error", derr))
		}
		s.restoreCart(ctx, log, userID, lines)
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("order placed", slog.Int64("order_id", orderID), slog.Int64("lines", copied))

	return orderID, nil
}

func (s *Service) restoreCart(ctx context.Context, log *slog.Logger, userID int64, lines []models.CartItem) {
	for _, line := range lines {
		if _, _, err := s.storage.AddCartItem(ctx, userID, line.ProductID, line.Quantity); err != nil {
			log.Error("failed to restore cart line", slog.Int64("product_id", line.ProductID), slog.Any("error", err))
		}
	}
}

func (s *Service) Orders(ctx context.Context, userID int64) ([]models.Order, error) {
	const op = "service.Orders"

	orders, err := s.storage.ListOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return orders, nil
}
