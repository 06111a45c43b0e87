package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/storage"
)

var (
	productP = models.Product{ID: "1", Name: "Test Product", Price: 100, Stock: 10}
	productQ = models.Product{ID: "2", Name: "Test Product 2", Price: 200, Stock: 5}
)

func TestCart_Empty(t *testing.T) {
	cart := newCart(t, storage.NewMemory())
	assert.Empty(t, cart.Items())
	assert.Equal(t, 0, cart.TotalItems())
	assert.Equal(t, 0.0, cart.TotalPrice())
}

func TestCart_AddSameProduct(t *testing.T) {
	cart := newCart(t, storage.NewMemory())
	for i := 0; i < 10; i++ {
		require.NoError(t, cart.Add(productP, 1))
	}

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
	assert.Equal(t, 10, cart.Quantity("1"))
}

func TestCart_Totals(t *testing.T) {
	cart := newCart(t, storage.NewMemory())
	require.NoError(t, cart.Add(productP, 2))
	require.NoError(t, cart.Add(productQ, 3))

	assert.Equal(t, 5, cart.TotalItems())
	assert.Equal(t, 800.0, cart.TotalPrice())

	require.NoError(t, cart.SetQuantity("2", 1))
	assert.Equal(t, 400.0, cart.TotalPrice())
}

func TestCart_AddDefaultsToOne(t *testing.T) {
	cart := newCart(t, storage.NewMemory())
	require.NoError(t, cart.Add(productP, 0))
	require.NoError(t, cart.Add(productP, -4))
	assert.Equal(t, 2, cart.Quantity("1"))
}

func TestCart_SetQuantityRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		cart := newCart(t, storage.NewMemory())
		require.NoError(t, cart.Add(productP, 1))
		require.NoError(t, cart.Add(productQ, 1))

		require.NoError(t, cart.SetQuantity("1", qty))

		items := cart.Items()
		require.Len(t, items, 1)
		assert.Equal(t, "2", items[0].Product.ID)
	}
}

func TestCart_SetQuantityAbsentIsNoop(t *testing.T) {
	cart := newCart(t, storage.NewMemory())
	require.NoError(t, cart.SetQuantity("1", 5))
	assert.Empty(t, cart.Items())
}

func TestCart_Remove(t *testing.T) {
	cart := newCart(t, storage.NewMemory())
	require.NoError(t, cart.Add(productP, 1))
	require.NoError(t, cart.Add(productQ, 1))

	require.NoError(t, cart.Remove("1"))
	require.NoError(t, cart.Remove("missing"))

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].Product.ID)
}

func TestCart_ClearPersistsEmpty(t *testing.T) {
	s := storage.NewMemory()
	cart := newCart(t, s)
	require.NoError(t, cart.Add(productP, 1))
	require.NoError(t, cart.Add(productQ, 1))

	require.NoError(t, cart.Clear())
	assert.Empty(t, cart.Items())
	assert.Equal(t, 0.0, cart.TotalPrice())

	raw, err := s.Get(CartKey)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestCart_PersistsAndRestores(t *testing.T) {
	s := storage.NewMemory()
	cart := newCart(t, s)
	require.NoError(t, cart.Add(productP, 2))

	raw, err := s.Get(CartKey)
	require.NoError(t, err)
	var stored []models.CartItem
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "1", stored[0].Product.ID)

	restored := newCart(t, s)
	require.Len(t, restored.Items(), 1)
	assert.Equal(t, "Test Product", restored.Items()[0].Product.Name)
	assert.Equal(t, 2, restored.TotalItems())
}

func TestCart_DropsInvalidLinesOnLoad(t *testing.T) {
	s := storage.NewMemory()
	require.NoError(t, s.Set(CartKey, []byte(`[{"product":{"id":"1","price":100},"quantity":0},{"product":{"id":"2","price":200},"quantity":2}]`)))

	cart := newCart(t, s)
	require.Len(t, cart.Items(), 1)
	assert.Equal(t, 400.0, cart.TotalPrice())
}

func TestCart_PersistFailureKeepsMemory(t *testing.T) {
	cart := newCart(t, failingStorage{storage.NewMemory()})
	require.Error(t, cart.Add(productP, 1))
	assert.Empty(t, cart.Items())
}
