package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"freshly/internal/models"
	"freshly/internal/service"
)

type registerRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type registerResponse struct {
	User models.User `json:"user"`
	service.TokenPair
}

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

func (r loginRequest) identifier() string {
	switch {
	case r.Login != "":
		return r.Login
	case r.Email != "":
		return r.Email
	default:
		return r.Username
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type profileRequest struct {
	ContactNumber string `json:"contactNumber" binding:"required"`
	Address       string `json:"address" binding:"required"`
	Birthdate     string `json:"birthdate"`
}

// POST /register
func (h *Handler) Register(c *gin.Context) {
	const op = "handler.Register"

	log := h.log.With(slog.String("op", op))

	var req registerRequest
	if !bindJSON(c, log, &req) {
		return
	}

	user, pair, err := h.serviceLayer.Register(c.Request.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, c.Request.UserAgent())
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusCreated, registerResponse{User: user, TokenPair: pair})
}

// POST /login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req loginRequest
	if !bindJSON(c, log, &req) {
		return
	}

	pair, err := h.serviceLayer.Login(c.Request.Context(), req.identifier(), req.Password, c.Request.UserAgent())
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, pair)
}

// POST /refresh
func (h *Handler) RefreshTokens(c *gin.Context) {
	const op = "handler.RefreshTokens"

	log := h.log.With(slog.String("op", op))

	var req refreshRequest
	if !bindJSON(c, log, &req) {
		return
	}

	pair, err := h.serviceLayer.Refresh(c.Request.Context(), req.RefreshToken, c.Request.UserAgent())
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, pair)
}

// POST /logout
func (h *Handler) Logout(c *gin.Context) {
	const op = "handler.Logout"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	if err := h.serviceLayer.Logout(c.Request.Context(), claims.UserID); err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logout"})
}

// GET /profile
func (h *Handler) GetProfile(c *gin.Context) {
	const op = "handler.GetProfile"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	profile, err := h.serviceLayer.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, profile)
}

// POST /profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	const op = "handler.UpdateProfile"

	log := h.log.With(slog.String("op", op))

	claims, ok := currentUser(c)
	if !ok {
		newErrorResponse(c, http.StatusUnauthorized, "unauthorized")

		return
	}

	var req profileRequest
	if !bindJSON(c, log, &req) {
		return
	}

	extra, err := h.serviceLayer.UpdateProfile(c.Request.Context(), claims.UserID, models.UserExtra{
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		Birthdate:     req.Birthdate,
	})
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "extra": extra})
}

// GET /users
func (h *Handler) ListDirectoryUsers(c *gin.Context) {
	const op = "handler.ListDirectoryUsers"

	log := h.log.With(slog.String("op", op))

	users, err := h.serviceLayer.ListDirectoryUsers(c.Request.Context())
	if err != nil {
		h.fail(c, log, err)

		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", users)
}
