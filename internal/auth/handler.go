package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/identity"
	"github.com/shillmonger/TrustLoanETH/internal/session"
)

// CookieConfig controls the session cookie attributes.
type CookieConfig struct {
	Secure bool
	Domain string
}

// Handler exposes wallet sign-in endpoints.
type Handler struct {
	svc    *Service
	cookie CookieConfig
	logger *slog.Logger
}

func NewHandler(svc *Service, cookie CookieConfig, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, cookie: cookie, logger: logger}
}

type nonceRequest struct {
	Address string `json:"address"`
}

// Nonce issues a sign-in challenge.
func (h *Handler) Nonce(c *fiber.Ctx) error {
	var req nonceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	ch, err := h.svc.Challenge(c.UserContext(), req.Address)
	if err != nil {
		return h.fail(err, "nonce")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "data": ch})
}

type signInRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// SignIn exchanges a signed challenge for a session cookie and bearer token.
func (h *Handler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	sess, err := h.svc.SignIn(c.UserContext(), SignInInput{Address: req.Address, Message: req.Message, Signature: req.Signature})
	if err != nil {
		return h.fail(err, "sign_in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  sess.ExpiresAt,
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	h.logger.Info("auth.sign_in completed", slog.String("user_id", sess.UserID))
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token":     sess.ID,
			"expiresAt": sess.ExpiresAt,
			"userId":    sess.UserID,
		},
	})
}

// SignOut deletes the current session and clears the cookie.
func (h *Handler) SignOut(c *fiber.Ctx) error {
	if token := session.TokenFromRequest(c); token != "" {
		if err := h.svc.SignOut(c.UserContext(), token); err != nil {
			return h.fail(err, "sign_out")
		}
	}
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  time.Unix(0, 0),
		Secure:   h.cookie.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *Handler) fail(err error, op string) error {
	var verr *identity.ValidationError
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(http.StatusBadRequest, verr.Message)
	case errors.Is(err, ErrInvalidChallenge):
		return fiber.NewError(http.StatusUnauthorized, "Sign-in message expired or invalid")
	case errors.Is(err, ErrInvalidSignature):
		return fiber.NewError(http.StatusUnauthorized, "Invalid signature")
	}
	h.logger.Error("auth."+op+" failed", slog.Any("error", err))
	return fiber.NewError(http.StatusInternalServerError, identity.MsgInternal)
}
