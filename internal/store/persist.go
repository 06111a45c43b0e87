// Package store holds the device-local records: session, PIN vault,
// last identity and cart. Each store loads its record once, keeps it in
// memory as the source of truth, and writes the full value back to
// storage before changing memory, so the two never diverge across a
// successful call.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/storage"
)

// Storage keys, one per record.
const (
	SessionKey      = "zinco_session"
	PinsKey         = "zinco_user_pins"
	LastIdentityKey = "zinco_last_user"
	CartKey         = "zinco_cart"
)

// loadJSON decodes key into a value of T. A missing key or undecodable
// JSON yields def; corruption is logged, never returned. Any other read
// failure is returned: loading a default over an unreadable record would
// let the next write replace it.
func loadJSON[T any](s storage.Storage, key string, def T, log *logger.Logger) (T, error) {
	raw, err := s.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("load %s: %w", key, err)
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		log.Warn("corrupted record, using default", "key", key, "error", err)
		return def, nil
	}
	return value, nil
}

func saveJSON(s storage.Storage, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(key, raw); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
