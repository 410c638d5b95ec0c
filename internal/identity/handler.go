package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shillmonger/TrustLoanETH/internal/session"
	"github.com/shillmonger/TrustLoanETH/internal/wallet"
)

// Recorder receives identity flow outcomes.
type Recorder interface {
	RecordRegistration(result string)
	RecordDetection(match string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRegistration(string) {}
func (nopRecorder) RecordDetection(string)    {}

// Handler exposes identity endpoints.
type Handler struct {
	service  *Service
	logger   *slog.Logger
	recorder Recorder
}

// NewHandler constructs an identity HTTP handler. A nil recorder disables metrics.
func NewHandler(service *Service, logger *slog.Logger, recorder Recorder) *Handler {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Handler{service: service, logger: logger, recorder: recorder}
}

// LookupFor picks the identity key a session resolves to: email when present, id otherwise.
func LookupFor(s session.Session) LookupKey {
	if s.Email != "" {
		return ByEmail(s.Email)
	}
	return ByID(s.UserID)
}

type registerRequest struct {
	Address        string `json:"address"`
	WalletProvider string `json:"walletProvider"`
	Email          string `json:"email"`
}

// Register handles wallet onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		h.recorder.RecordRegistration("invalid")
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	rec, err := h.service.Register(c.UserContext(), RegisterInput{
		Address:        req.Address,
		WalletProvider: req.WalletProvider,
		Email:          req.Email,
	})
	if err != nil {
		var (
			verr     *ValidationError
			conflict *ConflictError
		)
		switch {
		case errors.As(err, &verr):
			h.recorder.RecordRegistration("invalid")
		case errors.As(err, &conflict):
			h.recorder.RecordRegistration("conflict")
		default:
			h.recorder.RecordRegistration("error")
		}
		return h.fail(err, "register")
	}

	h.recorder.RecordRegistration("created")
	h.logger.Info("identity.register completed",
		slog.String("user_id", rec.ID),
		slog.String("address", wallet.ChecksumAddress(rec.Address)),
		slog.String("wallet_provider", string(rec.WalletProvider)),
	)
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "data": rec.Public()})
}

// SaveUser remembers a connected address. Errors use the {error} envelope.
func (h *Handler) SaveUser(c *fiber.Ctx) error {
	var req struct {
		Address string `json:"address"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	rec, err := h.service.SaveUser(c.UserContext(), req.Address)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": verr.Message})
		}
		h.logger.Error("identity.save_user failed", slog.Any("error", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": MsgInternal})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"address":   rec.Address,
			"createdAt": rec.CreatedAt,
			"lastLogin": rec.LastLogin,
		},
	})
}

// GetWallet returns the wallet bound to the current session.
func (h *Handler) GetWallet(c *fiber.Ctx) error {
	sess, ok := session.FromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	rec, err := h.service.WalletForSession(c.UserContext(), LookupFor(sess))
	if err != nil {
		return h.fail(err, "get_wallet")
	}
	return c.Status(http.StatusOK).JSON(walletResponse(rec))
}

type updateWalletRequest struct {
	WalletAddress  string `json:"walletAddress"`
	WalletProvider string `json:"walletProvider"`
}

// UpdateWallet rebinds the wallet on the current session's identity.
func (h *Handler) UpdateWallet(c *fiber.Ctx) error {
	sess, ok := session.FromCtx(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Unauthorized")
	}
	var req updateWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	rec, err := h.service.UpdateWalletForSession(c.UserContext(), LookupFor(sess), UpdateWalletInput{
		Address:        req.WalletAddress,
		WalletProvider: req.WalletProvider,
	})
	if err != nil {
		return h.fail(err, "update_wallet")
	}
	h.logger.Info("identity.wallet updated",
		slog.String("user_id", rec.ID),
		slog.String("wallet_provider", string(rec.DisplayProvider())),
	)
	return c.Status(http.StatusOK).JSON(walletResponse(rec))
}

type detectRequest struct {
	wallet.InjectedEnvironment
	RegisteredProvider string `json:"registeredProvider"`
}

// Detect classifies a client-reported injected wallet environment. The result is advisory.
func (h *Handler) Detect(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	d := wallet.Detect(req.InjectedEnvironment)
	h.recorder.RecordDetection(string(d.Match))

	data := fiber.Map{
		"provider": d.Provider,
		"match":    d.Match,
		"known":    d.Known(),
	}
	if req.RegisteredProvider != "" {
		registered, err := wallet.ParseProvider(req.RegisteredProvider)
		if err != nil {
			return h.fail(invalidProvider(), "detect")
		}
		data["matchesRegistered"] = wallet.MatchesRegistered(req.InjectedEnvironment, registered)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "data": data})
}

func walletResponse(rec Identity) fiber.Map {
	return fiber.Map{
		"success": true,
		"data": fiber.Map{
			"userId":         rec.ID,
			"walletAddress":  rec.Address,
			"walletProvider": rec.DisplayProvider(),
		},
	}
}

// fail maps domain errors to HTTP errors. Unexpected causes are logged and replaced
// with a generic message.
func (h *Handler) fail(err error, op string) error {
	var (
		verr     *ValidationError
		conflict *ConflictError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.NewError(http.StatusBadRequest, verr.Message)
	case errors.As(err, &conflict):
		return fiber.NewError(http.StatusBadRequest, conflict.Message())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, MsgUserNotFound)
	case errors.Is(err, ErrNoWallet):
		return fiber.NewError(http.StatusNotFound, MsgNoWallet)
	}
	h.logger.Error("identity."+op+" failed", slog.Any("error", err))
	return fiber.NewError(http.StatusInternalServerError, MsgInternal)
}
