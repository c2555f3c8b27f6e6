package handlers

import (
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/quickcommerce/internal/config"
	"github.com/example/quickcommerce/internal/models"
	"github.com/example/quickcommerce/internal/utils"
)

var errEmailTaken = errors.New("email already registered")

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	store  *Store
	cfg    *config.Config
	logger *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(store *Store, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, cfg: cfg, logger: logger}
}

// Register creates a new user account and signs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	details := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		details["email"] = "must be a valid email address"
	}
	if len(req.Password) < 8 {
		details["password"] = "must be at least 8 characters"
	}
	if len(details) > 0 {
		return validationFailed(c, "Validation failed", details)
	}

	user, err := h.store.AddUser(strings.TrimSpace(req.Name), req.Email, req.Phone, req.Password)
	if errors.Is(err, errEmailTaken) {
		return fiber.NewError(fiber.StatusConflict, "An account with this email already exists")
	}
	if err != nil {
		return err
	}

	h.logger.Info("[auth] user registered", "userId", user.ID)
	return h.issue(c.Status(fiber.StatusCreated), user)
}

// Login authenticates an existing user.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	acc, ok := h.store.accountByEmail(req.Email)
	if !ok || !utils.CheckPassword(acc.passwordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid email or password")
	}
	return h.issue(c, acc.user)
}

func (h *AuthHandler) issue(c *fiber.Ctx, user models.User) error {
	access, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, utils.TokenTypeAccess, h.cfg.AccessTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}
	refresh, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, utils.TokenTypeRefresh, h.cfg.RefreshTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(models.AuthResponse{
		Success:      true,
		User:         &user,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "refresh token is required")
	}
	if h.store.isRevoked(req.RefreshToken) {
		return fiber.NewError(fiber.StatusUnauthorized, "refresh token revoked")
	}

	claims, err := utils.ParseToken(h.cfg.JWTSecret, req.RefreshToken, utils.TokenTypeRefresh)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired refresh token")
	}
	if _, ok := h.store.user(claims.UserID); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "user no longer exists")
	}

	access, err := utils.GenerateToken(h.cfg.JWTSecret, claims.UserID, utils.TokenTypeAccess, h.cfg.AccessTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}
	return c.JSON(fiber.Map{"success": true, "accessToken": access})
}

// Logout revokes the refresh token in the body.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err == nil && req.RefreshToken != "" {
		h.store.revoke(req.RefreshToken)
	}
	return c.JSON(fiber.Map{"success": true, "message": "Logged out"})
}
