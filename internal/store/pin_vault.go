package store

import (
	"crypto/subtle"
	"sync"

	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/storage"
	"github.com/example/zinco/internal/utils"
)

// PinCodec decides how a PIN is kept at rest.
type PinCodec interface {
	Encode(pin string) (string, error)
	Match(stored, candidate string) bool
}

// PlainCodec stores the PIN verbatim. The vault is a local convenience
// gate, not a credential store.
type PlainCodec struct{}

func (PlainCodec) Encode(pin string) (string, error) { return pin, nil }

func (PlainCodec) Match(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// BcryptCodec stores a bcrypt hash of the PIN.
type BcryptCodec struct{}

func (BcryptCodec) Encode(pin string) (string, error) { return utils.HashSecret(pin) }

func (BcryptCodec) Match(stored, candidate string) bool {
	return utils.CheckSecret(stored, candidate)
}

// CodecFor returns the codec named by the AUTH_PIN_HASHING setting.
func CodecFor(name string) PinCodec {
	if name == "bcrypt" {
		return BcryptCodec{}
	}
	return PlainCodec{}
}

// PinVault maps phones to PINs, at most one per phone.
type PinVault struct {
	mu      sync.RWMutex
	storage storage.Storage
	codec   PinCodec
	pins    []models.PinRecord
}

// NewPinVault loads the vault from s.
func NewPinVault(s storage.Storage, codec PinCodec, log *logger.Logger) (*PinVault, error) {
	if codec == nil {
		codec = PlainCodec{}
	}
	pins, err := loadJSON(s, PinsKey, []models.PinRecord{}, log)
	if err != nil {
		return nil, err
	}
	return &PinVault{storage: s, codec: codec, pins: pins}, nil
}

// HasPin reports whether phone has a PIN.
func (v *PinVault) HasPin(phone string) bool {
	_, ok := v.GetPin(phone)
	return ok
}

// GetPin returns the stored PIN for phone. With BcryptCodec this is the hash.
func (v *PinVault) GetPin(phone string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, p := range v.pins {
		if p.Phone == phone {
			return p.Pin, true
		}
	}
	return "", false
}

// VerifyPin reports whether candidate matches the PIN stored for phone.
func (v *PinVault) VerifyPin(phone, candidate string) bool {
	stored, ok := v.GetPin(phone)
	if !ok {
		return false
	}
	return v.codec.Match(stored, candidate)
}

// SavePin stores pin for phone, replacing an existing entry in place.
func (v *PinVault) SavePin(phone, pin string) error {
	encoded, err := v.codec.Encode(pin)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	next := make([]models.PinRecord, len(v.pins), len(v.pins)+1)
	copy(next, v.pins)

	replaced := false
	for i := range next {
		if next[i].Phone == phone {
			next[i].Pin = encoded
			replaced = true
			break
		}
	}
	if !replaced {
		next = append(next, models.PinRecord{Phone: phone, Pin: encoded})
	}

	if err := saveJSON(v.storage, PinsKey, next); err != nil {
		return err
	}
	v.pins = next
	return nil
}

// Len returns the number of stored PINs.
func (v *PinVault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.pins)
}
