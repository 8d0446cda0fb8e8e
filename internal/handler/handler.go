package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"freshly/internal/auth"
	"freshly/internal/service"
	"freshly/internal/upstream"
)

const claimsKey = "claims"

func AuthMiddleware(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, claims, err := gate.Authenticate(c.Request)
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, auth.Reason(err))

			return
		}

		c.Request = r
		c.Set(claimsKey, claims)

		c.Next()
	}
}

type Handler struct {
	serviceLayer *service.Service
	gate         *auth.Gate
	log          *slog.Logger
}

type errorResponse struct {
	Error string `json:"error"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Error: errMessage})
}

func NewHandler(srvc *service.Service, gate *auth.Gate, lgr *slog.Logger) *Handler {
	return &Handler{
		serviceLayer: srvc,
		gate:         gate,
		log:          lgr,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	useJSONFieldNames()

	router := gin.New()
	router.Use(h.recovery(), requestLogger(h.log), gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", h.Welcome)
	router.GET("/health", h.Health)

	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/refresh", h.RefreshTokens)

	router.GET("/products", h.ListProducts)
	router.GET("/products/:id", h.GetProduct)

	protected := router.Group("/")
	protected.Use(AuthMiddleware(h.gate))
	{
		protected.POST("/logout", h.Logout)
		protected.GET("/profile", h.GetProfile)
		protected.POST("/profile", h.UpdateProfile)
		protected.GET("/users", h.ListDirectoryUsers)

		protected.POST("/products", h.CreateProduct)
		protected.PUT("/products/:id", h.UpdateProduct)
		protected.DELETE("/products/:id", h.DeleteProduct)
		protected.POST("/products/:id/image", h.CreateProductImageUpload)

		protected.GET("/cart", h.GetCart)
		protected.POST("/cart", h.AddToCart)
		protected.PUT("/cart", h.UpdateCart)
		protected.POST("/cart/checkout", h.Checkout)

		protected.GET("/orders", h.ListOrders)
	}

	return router
}

// GET /
func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Freshly Backend API!"})
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		log.Log(c.Request.Context(), level, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.log.Error("panic recovered", slog.Any("panic", recovered), slog.String("path", c.Request.URL.Path))

		newErrorResponse(c, http.StatusInternalServerError, "internal error")
	})
}

// currentUser returns the claims AuthMiddleware stored on the context.
func currentUser(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		newErrorResponse(c, http.StatusBadRequest, "invalid id")

		return 0, false
	}
	return id, true
}

// fail maps a service error onto a status code. Unknown errors are logged
// and reported as a generic 500.
func (h *Handler) fail(c *gin.Context, log *slog.Logger, err error) {
	var ve *service.ValidationError

	switch {
	case errors.As(err, &ve):
		newErrorResponse(c, http.StatusBadRequest, ve.Error())
	case errors.Is(err, service.ErrEmptyCart):
		newErrorResponse(c, http.StatusBadRequest, service.ErrEmptyCart.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrRefreshTokenExpired):
		newErrorResponse(c, http.StatusUnauthorized, rootMessage(err,
			service.ErrInvalidCredentials, service.ErrInvalidRefreshToken, service.ErrRefreshTokenExpired))
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCartItemNotFound):
		newErrorResponse(c, http.StatusNotFound, rootMessage(err,
			service.ErrUserNotFound, service.ErrProductNotFound, service.ErrCartItemNotFound))
	case errors.Is(err, service.ErrUserExists):
		newErrorResponse(c, http.StatusConflict, service.ErrUserExists.Error())
	case errors.Is(err, upstream.ErrUpstream):
		log.Warn("user directory failure", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadGateway, upstream.ErrUpstream.Error())
	case errors.Is(err, service.ErrImagesDisabled):
		newErrorResponse(c, http.StatusNotImplemented, service.ErrImagesDisabled.Error())
	default:
		log.Error("request failed", slog.Any("error", err))

		newErrorResponse(c, http.StatusInternalServerError, "internal error")
	}
}

func rootMessage(err error, candidates ...error) string {
	for _, target := range candidates {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "internal error"
}

var registerNames sync.Once

// useJSONFieldNames makes validation errors name fields the way clients send them.
func useJSONFieldNames() {
	registerNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

// bindJSON decodes the body into req and writes a 400 on failure.
func bindJSON(c *gin.Context, log *slog.Logger, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Debug("failed to bind request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, bindingMessage(err))

		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
