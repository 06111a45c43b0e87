package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/auth"
)

// AuthHandler exposes the device login flow.
type AuthHandler struct {
	registry *app.Registry
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(registry *app.Registry) *AuthHandler {
	return &AuthHandler{registry: registry}
}

type requestOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

type padInputRequest struct {
	Input string `json:"input"`
	Paste bool   `json:"paste"`
}

type submitPinRequest struct {
	Pin string `json:"pin"`
}

type cancelRequest struct {
	Forget bool `json:"forget"`
}

// Session returns the device's loading flag, identity and flow state.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}

	st := d.State
	data := fiber.Map{
		"loading": st.Loading(),
		"flow":    d.Auth.Snapshot(),
	}
	if !st.Loading() {
		data["authenticated"] = st.Session.IsAuthenticated()
		data["user"] = st.Session.User()
		data["last_identity"] = st.LastIdentity.Get()
		if last := st.LastIdentity.Get(); last != nil {
			data["has_pin"] = st.Pins.HasPin(last.Phone)
		}
	}

	return c.JSON(fiber.Map{"success": true, "data": data})
}

// RequestOTP sends a one-time code to the given phone.
func (h *AuthHandler) RequestOTP(c *fiber.Ctx) error {
	var req requestOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.RequestOTP(c.UserContext(), req.Phone)
	})
}

// ResendOTP re-sends the code after the cooldown.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.ResendOTP(c.UserContext())
	})
}

// VerifyOTP checks a complete code.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.VerifyOTP(c.UserContext(), req.Code)
	})
}

// OTPDigits feeds keystrokes (or a paste) to the OTP pad.
func (h *AuthHandler) OTPDigits(c *fiber.Ctx) error {
	var req padInputRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		if req.Paste {
			return o.PasteOTP(c.UserContext(), req.Input)
		}
		return o.EnterOTP(c.UserContext(), req.Input)
	})
}

// SubmitPin enters a whole PIN into the active pad.
func (h *AuthHandler) SubmitPin(c *fiber.Ctx) error {
	var req submitPinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.SubmitPin(req.Pin)
	})
}

// PinDigits feeds keystrokes to the active PIN pad.
func (h *AuthHandler) PinDigits(c *fiber.Ctx) error {
	var req padInputRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.EnterPin(req.Input)
	})
}

// StartPinEntry opens the PIN screen for the returning user.
func (h *AuthHandler) StartPinEntry(c *fiber.Ctx) error {
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.BeginPinEntry()
	})
}

// Cancel abandons the flow; forget also drops the remembered identity.
func (h *AuthHandler) Cancel(c *fiber.Ctx) error {
	var req cancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.Cancel(req.Forget)
	})
}

// Logout ends the session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	return h.run(c, func(o *auth.Orchestrator) (auth.Snapshot, error) {
		return o.Logout()
	})
}

func (h *AuthHandler) run(c *fiber.Ctx, op func(*auth.Orchestrator) (auth.Snapshot, error)) error {
	d, err := currentDevice(c, h.registry)
	if err != nil {
		return err
	}

	snap, err := op(d.Auth)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": snap})
}
