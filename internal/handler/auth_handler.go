package handler

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/snapselect/snapselect/internal/service"
	"github.com/snapselect/snapselect/pkg/logger"
	"github.com/snapselect/snapselect/pkg/response"
)

const authTokenCookieName = "auth_token"

// emailRegex provides additional validation beyond net/mail
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isValidEmail(email string) bool {
	if len(email) > 254 {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	return emailRegex.MatchString(email)
}

func isValidPasswordLength(password string) bool {
	n := len(password)
	return n >= 8 && n <= 128
}

type AuthHandler struct {
	authSvc  *service.AuthService
	tokenTTL int // hours, mirrors the cookie lifetime
}

func NewAuthHandler(authSvc *service.AuthService, tokenTTLHours int) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, tokenTTL: tokenTTLHours}
}

// setCSRFCookie generates and sets a CSRF token cookie on the response.
func setCSRFCookie(c *fiber.Ctx) string {
	token := GenerateCSRFToken()
	c.Cookie(&fiber.Cookie{
		Name:     "csrf_token",
		Value:    token,
		HTTPOnly: false, // Must be readable by JS
		Secure:   true,
		SameSite: "Strict",
		Path:     "/",
		MaxAge:   86400, // 24 hours
	})
	return token
}

func (h *AuthHandler) setAuthCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     authTokenCookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
		Path:     "/",
		MaxAge:   h.tokenTTL * 3600,
	})
}

func clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     authTokenCookieName,
		Value:    "",
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
		Path:     "/",
		MaxAge:   -1,
	})
}

type AuthResponse struct {
	Token        string      `json:"token"`
	CSRFToken    string      `json:"csrf_token,omitempty"`
	Photographer interface{} `json:"photographer,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.Email = normalizeEmail(req.Email)

	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	if !isValidEmail(req.Email) {
		return response.BadRequest(c, "invalid email format")
	}

	if !isValidPasswordLength(req.Password) {
		return response.BadRequest(c, "password must be between 8 and 128 characters")
	}

	photographer, token, err := h.authSvc.Register(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return response.Conflict(c, "email already registered")
		}
		logger.Error().Err(err).Str("email", req.Email).Msg("Register failed")
		return response.InternalError(c, "registration failed")
	}

	csrfToken := setCSRFCookie(c)
	h.setAuthCookie(c, token)

	return response.Created(c, AuthResponse{
		Token:        token,
		CSRFToken:    csrfToken,
		Photographer: photographer,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	req.Email = normalizeEmail(req.Email)

	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	if !isValidEmail(req.Email) {
		return response.BadRequest(c, "invalid email format")
	}

	if len(req.Password) > 128 {
		return response.BadRequest(c, "password is too long")
	}

	photographer, token, err := h.authSvc.Login(req.Email, req.Password)
	if err != nil {
		RecordAuthFailure("invalid_credentials")
		logger.Audit("login_failed", "", map[string]string{
			"ip": c.IP(),
		})
		return response.Unauthorized(c, "invalid credentials")
	}

	logger.Audit("login_success", photographer.ID, map[string]string{
		"email": photographer.Email,
	})

	csrfToken := setCSRFCookie(c)
	h.setAuthCookie(c, token)

	return response.Success(c, AuthResponse{
		Token:        token,
		CSRFToken:    csrfToken,
		Photographer: photographer,
	})
}

// Logout handles POST /auth/logout by clearing the auth cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	clearAuthCookie(c)
	return response.Success(c, map[string]string{
		"message": "logged out",
	})
}

// GetMe handles GET /auth/me.
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	id := photographerID(c)
	if id == "" {
		return response.Unauthorized(c, "authentication required")
	}

	photographer, err := h.authSvc.GetByID(id)
	if err != nil {
		if errors.Is(err, service.ErrPhotographerNotFound) {
			return response.NotFound(c, "photographer not found")
		}
		return response.InternalError(c, "failed to load photographer")
	}

	return response.Success(c, photographer)
}
