package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/storage"
)

type cartData struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
}

func decodeCart(t *testing.T, env envelope) cartData {
	t.Helper()
	var data cartData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestCart_AddUpdateRemove(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	expectProduct(env.mock, "soap-1", "Zinc soap", 120)
	status, body := env.do(t, http.MethodPost, "/api/cart/items", token, fiber.Map{"product_id": "soap-1", "quantity": 2})
	require.Equal(t, http.StatusOK, status)
	cart := decodeCart(t, body)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.TotalItems)
	assert.InDelta(t, 240, cart.TotalPrice, 0.001)

	expectProduct(env.mock, "soap-1", "Zinc soap", 120)
	status, body = env.do(t, http.MethodPost, "/api/cart/items", token, fiber.Map{"product_id": "soap-1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, decodeCart(t, body).TotalItems)

	status, body = env.do(t, http.MethodPut, "/api/cart/items/soap-1", token, fiber.Map{"quantity": 5})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 5, decodeCart(t, body).TotalItems)

	status, body = env.do(t, http.MethodPut, "/api/cart/items/soap-1", token, fiber.Map{"quantity": 0})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decodeCart(t, body).Items)

	status, body = env.do(t, http.MethodDelete, "/api/cart/items/soap-1", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, decodeCart(t, body).TotalItems)

	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestCart_Clear(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	expectProduct(env.mock, "soap-1", "Zinc soap", 120)
	env.do(t, http.MethodPost, "/api/cart/items", token, fiber.Map{"product_id": "soap-1", "quantity": 1})

	status, body := env.do(t, http.MethodDelete, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, status)
	cart := decodeCart(t, body)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalPrice)
}

func TestCart_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	env.mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(productColumns))

	status, body := env.do(t, http.MethodPost, "/api/cart/items", token, fiber.Map{"product_id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "product not found", body.Message)
}

func TestCart_MissingProductID(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	status, _ := env.do(t, http.MethodPost, "/api/cart/items", token, fiber.Map{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestCart_DatabaseFailure(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t)

	env.mock.ExpectQuery(`SELECT \* FROM "products"`).WillReturnError(errors.New("connection reset"))

	status, body := env.do(t, http.MethodPost, "/api/cart/items", token, fiber.Map{"product_id": "soap-1"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body.Message)
}

func TestCart_IsPerDevice(t *testing.T) {
	env := newTestEnv(t)
	first := env.register(t)
	second := env.register(t)

	expectProduct(env.mock, "soap-1", "Zinc soap", 120)
	env.do(t, http.MethodPost, "/api/cart/items", first, fiber.Map{"product_id": "soap-1", "quantity": 1})

	_, body := env.do(t, http.MethodGet, "/api/cart", second, nil)
	assert.Empty(t, decodeCart(t, body).Items)
}

type unreadableStorage struct {
	*storage.Memory
}

func (unreadableStorage) Get(string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestCart_UnreadableStorageIsUnavailable(t *testing.T) {
	env := newTestEnvWithStorage(t, func(uuid.UUID) storage.Storage {
		return unreadableStorage{Memory: storage.NewMemory()}
	})
	token := env.register(t)
	assert.Equal(t, 0, env.registry.Len())

	status, body := env.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "device storage unavailable", body.Message)
	assert.Equal(t, 0, env.registry.Len())
}
