package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartRequest struct {
	ProductID int64  `json:"productId" binding:"required,gt=0"`
	Quantity  *int64 `json:"quantity" binding:"omitempty,gt=0"`
}

type updateCartRequest struct {
	ProductID int64  `json:"productId" binding:"required,gt=0"`
	Quantity  *int64 `json:"quantity" binding:"required,gte=0"`
}

// GET /cart
func (h *Handler) GetCart(c *gin.Context) {
	const op = "handler.GetCart"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	items, err := h.serviceLayer.Cart(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "cartItems": items})
}

// POST /cart
func (h *Handler) AddToCart(c *gin.Context) {
	const op = "handler.AddToCart"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	var req addToCartRequest
	if !bindJSON(c, log, &req) {
		return
	}

	quantity := int64(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	total, created, err := h.serviceLayer.AddToCart(c.Request.Context(), claims.UserID, req.ProductID, quantity)
	if err != nil {
		h.fail(c, log, err)

		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	c.JSON(status, gin.H{"success": true, "productId": req.ProductID, "quantity": total})
}

// PUT /cart
func (h *Handler) UpdateCart(c *gin.Context) {
	const op = "handler.UpdateCart"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	var req updateCartRequest
	if !bindJSON(c, log, &req) {
		return
	}

	if err := h.serviceLayer.UpdateCartQuantity(c.Request.Context(), claims.UserID, req.ProductID, *req.Quantity); err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "productId": req.ProductID, "quantity": *req.Quantity})
}

// POST /cart/checkout
func (h *Handler) Checkout(c *gin.Context) {
	const op = "handler.Checkout"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	orderID, err := h.serviceLayer.Checkout(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": orderID})
}

// GET /orders
func (h *Handler) ListOrders(c *gin.Context) {
	const op = "handler.ListOrders"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	orders, err := h.serviceLayer.Orders(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orders": orders})
}
