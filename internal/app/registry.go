package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/zinco/internal/auth"
	"github.com/example/zinco/internal/clock"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/storage"
	"github.com/example/zinco/internal/store"
)

const (
	defaultIdleTTL    = 30 * time.Minute
	defaultMaxDevices = 10000
)

// Device is the loaded state and login flow of one device.
type Device struct {
	ID    uuid.UUID
	State *State
	Auth  *auth.Orchestrator

	lastSeen time.Time
}

// StorageOpener returns the durable storage of a device.
type StorageOpener func(deviceID uuid.UUID) storage.Storage

// RegistryConfig holds the shared collaborators of every device.
type RegistryConfig struct {
	Open    StorageOpener
	Gateway auth.Gateway
	Codec   store.PinCodec
	Clock   clock.Clock
	Options auth.Options
	Logger  *logger.Logger

	// IdleTTL evicts devices not used for this long. MaxDevices caps the
	// cache; the least recently used device goes first.
	IdleTTL    time.Duration
	MaxDevices int
}

// Registry lazily loads and caches one Device per device ID. Devices
// never share state. Evicted devices keep their storage and reload on
// next use; only their in-flight login flow is lost.
type Registry struct {
	cfg RegistryConfig

	mu      sync.Mutex
	devices map[uuid.UUID]*Device
	sweeper *clock.Timer
	closed  bool
}

// NewRegistry creates an empty Registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.MaxDevices <= 0 {
		cfg.MaxDevices = defaultMaxDevices
	}
	return &Registry{cfg: cfg, devices: make(map[uuid.UUID]*Device)}
}

// Device returns the loaded Device for id, loading it on first use. A
// device whose storage cannot be read is not cached.
func (r *Registry) Device(id uuid.UUID) (*Device, error) {
	r.mu.Lock()

	now := r.cfg.Clock.Now()
	if d, ok := r.devices[id]; ok {
		d.lastSeen = now
		r.mu.Unlock()
		return d, nil
	}

	log := &logger.Logger{Logger: r.cfg.Logger.With("device_id", id.String())}
	state := NewState(r.cfg.Open(id), r.cfg.Codec, log)
	if err := state.Load(); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("load device %s: %w", id, err)
	}

	d := &Device{
		ID:    id,
		State: state,
		Auth: auth.New(auth.Deps{
			Gateway:      r.cfg.Gateway,
			Session:      state.Session,
			Pins:         state.Pins,
			LastIdentity: state.LastIdentity,
			Clock:        r.cfg.Clock,
			Logger:       log,
		}, r.cfg.Options),
		lastSeen: now,
	}

	var evicted *Device
	if len(r.devices) >= r.cfg.MaxDevices {
		evicted = r.evictOldestLocked()
	}
	r.devices[id] = d
	r.mu.Unlock()

	if evicted != nil {
		evicted.Auth.Close()
	}
	return d, nil
}

// Forget stops the flow of id and drops it from the cache. Its storage
// is left intact.
func (r *Registry) Forget(id uuid.UUID) {
	r.mu.Lock()
	d, ok := r.devices[id]
	delete(r.devices, id)
	r.mu.Unlock()

	if ok {
		d.Auth.Close()
	}
}

// Sweep evicts every device idle for longer than IdleTTL and returns
// how many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.cfg.Clock.Now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var idle []*Device
	for id, d := range r.devices {
		if d.lastSeen.Before(cutoff) {
			idle = append(idle, d)
			delete(r.devices, id)
		}
	}
	r.mu.Unlock()

	for _, d := range idle {
		d.Auth.Close()
	}
	if len(idle) > 0 {
		r.cfg.Logger.Debug("evicted idle devices", "count", len(idle))
	}
	return len(idle)
}

// StartSweeper runs Sweep every interval until Close.
func (r *Registry) StartSweeper(interval time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if interval <= 0 || r.closed || r.sweeper != nil {
		return
	}
	r.scheduleSweepLocked(interval)
}

func (r *Registry) scheduleSweepLocked(interval time.Duration) {
	r.sweeper = r.cfg.Clock.AfterFunc(interval, func() {
		r.Sweep()

		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.closed {
			r.scheduleSweepLocked(interval)
		}
	})
}

// evictOldestLocked drops the least recently used device and returns
// it for the caller to close outside the lock.
func (r *Registry) evictOldestLocked() *Device {
	var oldest *Device
	for _, d := range r.devices {
		if oldest == nil || d.lastSeen.Before(oldest.lastSeen) {
			oldest = d
		}
	}
	if oldest != nil {
		delete(r.devices, oldest.ID)
	}
	return oldest
}

// Close stops the sweeper and every cached flow.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	r.sweeper.Stop()
	r.sweeper = nil
	devices := r.devices
	r.devices = make(map[uuid.UUID]*Device)
	r.mu.Unlock()

	for _, d := range devices {
		d.Auth.Close()
	}
}

// Len returns the number of cached devices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}
