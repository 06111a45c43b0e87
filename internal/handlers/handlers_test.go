package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/zinco/internal/app"
	"github.com/example/zinco/internal/apperrors"
	"github.com/example/zinco/internal/auth"
	"github.com/example/zinco/internal/clock"
	"github.com/example/zinco/internal/config"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/middleware"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/services"
	"github.com/example/zinco/internal/storage"
	"github.com/example/zinco/internal/store"
)

const (
	testSecret = "test-secret"
	testPhone  = "0812345678"
	testCode   = "123456"
)

type stubGateway struct{}

func (stubGateway) RequestOTP(_ context.Context, _ services.OTPRequest) (*services.OTPResult, error) {
	return &services.OTPResult{Status: "success", Token: "tok-1", Ref: "AB12"}, nil
}

func (stubGateway) VerifyOTP(_ context.Context, req services.VerifyRequest) (*services.VerifyResult, error) {
	if req.Pin != testCode {
		return nil, apperrors.NewProviderError("", "5000", "Invalid OTP code")
	}
	return &services.VerifyResult{Status: "success"}, nil
}

type recordingNotifier struct {
	orders chan models.Order
}

func (n *recordingNotifier) NotifyNewOrder(_ context.Context, order models.Order) error {
	n.orders <- order
	return nil
}

type testEnv struct {
	app      *fiber.App
	registry *app.Registry
	mock     sqlmock.Sqlmock
	notifier *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStorage(t, func(uuid.UUID) storage.Storage { return storage.NewMemory() })
}

func newTestEnvWithStorage(t *testing.T, open app.StorageOpener) *testEnv {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	registry := app.NewRegistry(app.RegistryConfig{
		Open:    open,
		Gateway: stubGateway{},
		Codec:   store.PlainCodec{},
		Clock:   clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Options: auth.DefaultOptions(),
		Logger:  logger.Nop(),
	})
	t.Cleanup(registry.Close)

	notifier := &recordingNotifier{orders: make(chan models.Order, 1)}
	validate := NewValidator()
	device := middleware.DeviceMiddleware(testSecret)

	deviceHandler := NewDeviceHandler(config.JWT{Secret: testSecret, TTLHours: 1})
	authHandler := NewAuthHandler(registry)
	profileHandler := NewProfileHandler(registry, nil, validate)
	productHandler := NewProductHandler(db)
	cartHandler := NewCartHandler(registry, db)
	checkoutHandler := NewCheckoutHandler(registry, db, validate, notifier, nil, logger.Nop())
	orderHandler := NewOrderHandler(registry, db)

	a := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Nop())})
	api := a.Group("/api")
	api.Post("/devices", deviceHandler.Register)
	api.Get("/products", productHandler.ListProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Get("/session", device, authHandler.Session)
	api.Post("/auth/otp", device, authHandler.RequestOTP)
	api.Post("/auth/otp/resend", device, authHandler.ResendOTP)
	api.Post("/auth/otp/verify", device, authHandler.VerifyOTP)
	api.Post("/auth/otp/digits", device, authHandler.OTPDigits)
	api.Post("/auth/pin", device, authHandler.SubmitPin)
	api.Post("/auth/pin/start", device, authHandler.StartPinEntry)
	api.Post("/auth/cancel", device, authHandler.Cancel)
	api.Post("/auth/logout", device, authHandler.Logout)
	api.Get("/profile", device, profileHandler.GetProfile)
	api.Put("/profile", device, profileHandler.UpdateProfile)
	api.Put("/profile/avatar", device, profileHandler.UploadAvatar)
	api.Get("/cart", device, cartHandler.GetCart)
	api.Delete("/cart", device, cartHandler.ClearCart)
	api.Post("/cart/items", device, cartHandler.AddItem)
	api.Put("/cart/items/:id", device, cartHandler.UpdateItem)
	api.Delete("/cart/items/:id", device, cartHandler.RemoveItem)
	api.Post("/checkout", device, checkoutHandler.Checkout)
	api.Get("/orders", device, orderHandler.ListOrders)
	api.Get("/orders/:id", device, orderHandler.GetOrder)

	return &testEnv{app: a, registry: registry, mock: mock, notifier: notifier}
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination map[string]any  `json:"pagination"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// register creates a device and returns its token.
func (e *testEnv) register(t *testing.T) string {
	t.Helper()
	status, env := e.do(t, http.MethodPost, "/api/devices", "", nil)
	require.Equal(t, http.StatusCreated, status)

	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

// login drives a new device through OTP and PIN setup.
func (e *testEnv) login(t *testing.T, token string) {
	t.Helper()
	status, _ := e.do(t, http.MethodPost, "/api/auth/otp", token, fiber.Map{"phone": testPhone})
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, http.MethodPost, "/api/auth/otp/verify", token, fiber.Map{"code": testCode})
	require.Equal(t, http.StatusOK, status)
	status, _ = e.do(t, http.MethodPost, "/api/auth/pin", token, fiber.Map{"pin": "111111"})
	require.Equal(t, http.StatusOK, status)
	status, env := e.do(t, http.MethodPost, "/api/auth/pin", token, fiber.Map{"pin": "111111"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, auth.StateAuthenticated, decodeSnapshot(t, env).State)
}

func decodeSnapshot(t *testing.T, env envelope) auth.Snapshot {
	t.Helper()
	var snap auth.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

var productColumns = []string{"id", "name", "description", "price", "image_url", "stock", "category", "created_at", "updated_at"}

func expectProduct(mock sqlmock.Sqlmock, id, name string, price float64) {
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(id, name, "", price, "", 10, "soap", time.Now(), time.Now()))
}
