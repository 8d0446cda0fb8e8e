package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"freshly/internal/service"
)

type productRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
}

func (r productRequest) input() service.ProductInput {
	return service.ProductInput{Name: r.Name, Description: r.Description, Price: *r.Price}
}

type imageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// GET /products
func (h *Handler) ListProducts(c *gin.Context) {
	const op = "handler.ListProducts"

	log := h.log.With(slog.String("op", op))

	products, err := h.serviceLayer.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

// GET /products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	const op = "handler.GetProduct"

	log := h.log.With(slog.String("op", op))

	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := h.serviceLayer.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, product)
}

// POST /products
func (h *Handler) CreateProduct(c *gin.Context) {
	const op = "handler.CreateProduct"

	log := h.log.With(slog.String("op", op))

	var req productRequest
	if !bindJSON(c, log, &req) {
		return
	}

	product, err := h.serviceLayer.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusCreated, product)
}

// PUT /products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	const op = "handler.UpdateProduct"

	log := h.log.With(slog.String("op", op))

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req productRequest
	if !bindJSON(c, log, &req) {
		return
	}

	product, err := h.serviceLayer.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, product)
}

// DELETE /products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	const op = "handler.DeleteProduct"

	log := h.log.With(slog.String("op", op))

	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.serviceLayer.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// POST /products/:id/image
func (h *Handler) CreateProductImageUpload(c *gin.Context) {
	const op = "handler.CreateProductImageUpload"

	log := h.log.With(slog.String("op", op))

	id, ok := parseID(c)
	if !ok {
		return
	}

	var req imageUploadRequest
	if !bindJSON(c, log, &req) {
		return
	}

	upload, err := h.serviceLayer.CreateImageUpload(c.Request.Context(), id, req.ContentType)
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, upload)
}
