package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zinco/internal/auth"
)

type sessionData struct {
	Loading       bool           `json:"loading"`
	Authenticated bool           `json:"authenticated"`
	HasPin        bool           `json:"has_pin"`
	Flow          auth.Snapshot  `json:"flow"`
	User          map[string]any `json:"user"`
	LastIdentity  map[string]any `json:"last_identity"`
}

func (e *testEnv) session(t *testing.T, token string) sessionData {
	t.Helper()
	status, env := e.do(t, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, status)

	var data sessionData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestSession_RequiresDeviceToken(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, body.Success)

	status, _ = env.do(t, http.MethodGet, "/api/session", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSession_NewDevice(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	data := env.session(t, token)
	assert.False(t, data.Loading)
	assert.False(t, data.Authenticated)
	assert.Nil(t, data.User)
	assert.Nil(t, data.LastIdentity)
	assert.Equal(t, auth.StateAnonymous, data.Flow.State)
}

func TestAuth_LoginFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": testPhone})
	require.Equal(t, http.StatusOK, status)
	snap := decodeSnapshot(t, body)
	assert.Equal(t, auth.StateOTPRequested, snap.State)
	assert.Equal(t, "66812345678", snap.Phone)
	assert.Equal(t, "AB12", snap.Ref)
	assert.False(t, snap.CanResend)

	status, body = env.do(t, http.MethodPost, "/api/auth/otp/digits", token, fiber.Map{"input": testCode, "paste": true})
	require.Equal(t, http.StatusOK, status)
	snap = decodeSnapshot(t, body)
	assert.Equal(t, auth.StatePinSetupPending, snap.State)
	assert.Equal(t, auth.StepSet, snap.Step)

	status, body = env.do(t, http.MethodPost, "/api/auth/pin", token, fiber.Map{"pin": "111111"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.StepConfirm, decodeSnapshot(t, body).Step)

	status, body = env.do(t, http.MethodPost, "/api/auth/pin", token, fiber.Map{"pin": "111111"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.StateAuthenticated, decodeSnapshot(t, body).State)

	data := env.session(t, token)
	assert.True(t, data.Authenticated)
	assert.True(t, data.HasPin)
	assert.Equal(t, "66812345678", data.User["phone"])
	assert.Equal(t, "User 5678", data.LastIdentity["name"])
}

func TestAuth_WrongCodeIsNotAnError(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	status, _ := env.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": testPhone})
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/api/auth/otp/verify", token, fiber.Map{"code": "000000"})
	require.Equal(t, http.StatusOK, status)
	snap := decodeSnapshot(t, body)
	assert.Equal(t, auth.StateOTPRequested, snap.State)
	assert.Equal(t, "Invalid OTP code", snap.Error)
}

func TestAuth_InvalidPhone(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": "08123abc78"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Message)
}

func TestAuth_OutOfOrderCallsConflict(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	status, _ := env.do(t, http.MethodPost, "/api/auth/otp/verify", token, fiber.Map{"code": testCode})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": testPhone})
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodPost, "/api/auth/otp/resend", token, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestAuth_RepeatedRequestWaitsForCooldown(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	status, _ := env.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": testPhone})
	require.Equal(t, http.StatusOK, status)

	status, body := env.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": testPhone})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, body.Success)
}

func TestAuth_MalformedPin(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	env.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": testPhone})
	env.do(t, http.MethodPost, "/api/auth/otp/verify", token, fiber.Map{"code": testCode})

	status, _ := env.do(t, http.MethodPost, "/api/auth/pin", token, fiber.Map{"pin": "12ab"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAuth_LogoutThenPinLogin(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)
	env.login(t, token)

	status, body := env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.StateAnonymous, decodeSnapshot(t, body).State)
	assert.False(t, env.session(t, token).Authenticated)

	status, body = env.do(t, http.MethodPost, "/api/auth/pin/start", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.StatePinEntryPending, decodeSnapshot(t, body).State)

	status, body = env.do(t, http.MethodPost, "/api/auth/pin", token, fiber.Map{"pin": "999999"})
	require.Equal(t, http.StatusOK, status)
	snap := decodeSnapshot(t, body)
	assert.Equal(t, "Incorrect PIN. Please try again.", snap.Error)
	assert.Equal(t, 2, snap.AttemptsLeft)

	status, body = env.do(t, http.MethodPost, "/api/auth/pin", token, fiber.Map{"pin": "111111"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, auth.StateAuthenticated, decodeSnapshot(t, body).State)
	assert.True(t, env.session(t, token).Authenticated)
}

func TestAuth_PinStartWithoutReturningUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	status, _ := env.do(t, http.MethodPost, "/api/auth/pin/start", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuth_CancelForget(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)
	env.login(t, token)
	env.do(t, http.MethodPost, "/api/auth/logout", token, nil)

	status, _ := env.do(t, http.MethodPost, "/api/auth/cancel", token, fiber.Map{"forget": true})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, env.session(t, token).LastIdentity)
}

func TestAuth_DevicesAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t)
	second := env.register(t)
	env.login(t, first)

	assert.True(t, env.session(t, first).Authenticated)
	assert.False(t, env.session(t, second).Authenticated)
}
