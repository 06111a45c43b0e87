// Package app assembles the per-device application state: the four
// persisted stores and the login flow that drives them.
package app

import (
	"sync/atomic"

	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/storage"
	"github.com/example/zinco/internal/store"
)

// State bundles the stores of one device. Nothing may read the stores
// until Load has returned; Loading reports whether that has happened.
type State struct {
	storage storage.Storage
	codec   store.PinCodec
	log     *logger.Logger
	loaded  atomic.Bool

	LastIdentity *store.LastIdentityCache
	Session      *store.SessionStore
	Pins         *store.PinVault
	Cart         *store.CartStore
}

// NewState creates an unloaded State over s.
func NewState(s storage.Storage, codec store.PinCodec, log *logger.Logger) *State {
	if codec == nil {
		codec = store.PlainCodec{}
	}
	return &State{storage: s, codec: codec, log: log}
}

// Load reads every store from storage. The last identity loads before
// the session because login and profile updates write through to it.
// On a read failure nothing is published and the State stays loading.
func (s *State) Load() error {
	if s.loaded.Load() {
		return nil
	}

	last, err := store.NewLastIdentityCache(s.storage, s.log)
	if err != nil {
		return err
	}
	session, err := store.NewSessionStore(s.storage, last, s.log)
	if err != nil {
		return err
	}
	pins, err := store.NewPinVault(s.storage, s.codec, s.log)
	if err != nil {
		return err
	}
	cart, err := store.NewCartStore(s.storage, s.log)
	if err != nil {
		return err
	}

	s.LastIdentity, s.Session, s.Pins, s.Cart = last, session, pins, cart
	s.loaded.Store(true)
	return nil
}

// Loading reports whether Load has not completed yet. A loading State
// is neither authenticated nor anonymous. Registry only hands out loaded
// States, so HTTP callers always see false; the flag is for in-process
// callers that build a State themselves.
func (s *State) Loading() bool {
	return !s.loaded.Load()
}
