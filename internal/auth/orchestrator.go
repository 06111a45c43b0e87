// Package auth drives the phone login flow of one device: OTP request
// and verification, PIN setup, PIN re-entry and lockout.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/zinco/internal/apperrors"
	"github.com/example/zinco/internal/clock"
	"github.com/example/zinco/internal/logger"
	"github.com/example/zinco/internal/models"
	"github.com/example/zinco/internal/phone"
	"github.com/example/zinco/internal/services"
	"github.com/example/zinco/internal/store"
)

// State is a step of the login flow.
type State string

const (
	StateAnonymous       State = "anonymous"
	StateOTPRequested    State = "otp_requested"
	StatePinSetupPending State = "pin_setup_pending"
	StatePinEntryPending State = "pin_entry_pending"
	StateLockedOut       State = "locked_out"
	StateAuthenticated   State = "authenticated"
)

// PinStep is the active pad of the set-PIN flow.
type PinStep string

const (
	StepSet     PinStep = "set"
	StepConfirm PinStep = "confirm"
)

// Backspace is the pad input character that erases a digit.
const Backspace = '<'

const (
	msgIncompleteOTP = "Please enter all 6 digits"
	msgSendFailed    = "Failed to send OTP"
	msgPinMismatch   = "PINs do not match. Please try again."
	msgPinIncorrect  = "Incorrect PIN. Please try again."
	msgNoPhone       = "Phone number not found"
	msgLockedOut     = "Too many incorrect attempts. Redirecting to login..."
)

var (
	ErrInvalidState     = fmt.Errorf("%w: operation not allowed in current login state", apperrors.ErrConflict)
	ErrResendNotAllowed = fmt.Errorf("%w: resend not allowed yet", apperrors.ErrConflict)
	ErrNoReturningUser  = fmt.Errorf("%w: no returning user with a PIN", apperrors.ErrNotFound)
)

// Gateway is the part of the OTP provider client the flow uses.
type Gateway interface {
	RequestOTP(ctx context.Context, req services.OTPRequest) (*services.OTPResult, error)
	VerifyOTP(ctx context.Context, req services.VerifyRequest) (*services.VerifyResult, error)
}

// Options tunes the flow timing and limits.
type Options struct {
	ResendCooldown int
	Tick           time.Duration
	MaxPinAttempts int
	LockoutDelay   time.Duration
	Lang           string
}

// DefaultOptions returns the stock flow settings.
func DefaultOptions() Options {
	return Options{
		ResendCooldown: 60,
		Tick:           time.Second,
		MaxPinAttempts: 3,
		LockoutDelay:   1500 * time.Millisecond,
	}
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Gateway      Gateway
	Session      *store.SessionStore
	Pins         *store.PinVault
	LastIdentity *store.LastIdentityCache
	Clock        clock.Clock
	Logger       *logger.Logger
}

// Snapshot is a read-only view of the flow.
type Snapshot struct {
	State        State   `json:"state"`
	Step         PinStep `json:"step,omitempty"`
	Phone        string  `json:"phone,omitempty"`
	Ref          string  `json:"ref,omitempty"`
	OTP          PadView `json:"otp"`
	Pin          PadView `json:"pin"`
	Attempts     int     `json:"attempts"`
	AttemptsLeft int     `json:"attempts_left"`
	ResendIn     int     `json:"resend_in"`
	CanResend    bool    `json:"can_resend"`
	Error        string  `json:"error,omitempty"`
	Notice       string  `json:"notice,omitempty"`
}

// Orchestrator is the login state machine for one device. Methods are
// safe for concurrent use; calls are serialized.
type Orchestrator struct {
	deps Deps
	opts Options

	mu      sync.Mutex
	state   State
	phone   string
	token   string
	ref     string
	otp     Pad
	pin     Pad
	confirm Pad
	step    PinStep

	attempts int
	errMsg   string
	notice   string

	resend    *Countdown
	lockTimer *clock.Timer
	lockGen   int
}

// New creates an Orchestrator. Its initial state follows the session:
// Authenticated when a user is logged in, Anonymous otherwise.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	defaults := DefaultOptions()
	if opts.MaxPinAttempts <= 0 {
		opts.MaxPinAttempts = defaults.MaxPinAttempts
	}
	if opts.LockoutDelay <= 0 {
		opts.LockoutDelay = defaults.LockoutDelay
	}
	if opts.Tick <= 0 {
		opts.Tick = defaults.Tick
	}

	o := &Orchestrator{
		deps:   deps,
		opts:   opts,
		state:  StateAnonymous,
		step:   StepSet,
		resend: NewCountdown(deps.Clock, opts.Tick),
	}
	if deps.Session.IsAuthenticated() {
		o.state = StateAuthenticated
	}
	return o
}

// Snapshot returns the current flow view.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// RequestOTP sends a code to phoneNumber and starts the resend cooldown.
// While a code is pending it may switch to another number; the same
// number is refused until the cooldown ends.
func (o *Orchestrator) RequestOTP(ctx context.Context, phoneNumber string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAnonymous && o.state != StateOTPRequested {
		return o.snapshotLocked(), ErrInvalidState
	}

	canonical, err := phone.Normalize(phoneNumber)
	if err != nil {
		o.errMsg = apperrors.Message(err)
		return o.snapshotLocked(), err
	}
	// Asking again for the pending phone is a resend and obeys its cooldown.
	if o.state == StateOTPRequested && canonical == o.phone && !o.resend.Done() {
		return o.snapshotLocked(), ErrResendNotAllowed
	}

	res, err := o.request(ctx, canonical)
	if err != nil {
		return o.snapshotLocked(), err
	}

	o.phone = canonical
	o.token = res.Token
	o.ref = res.Ref
	o.otp.Reset()
	o.errMsg = ""
	o.notice = ""
	o.state = StateOTPRequested
	o.resend.Start(o.opts.ResendCooldown)

	o.deps.Logger.Info("otp requested", "phone", canonical, "ref", res.Ref)
	return o.snapshotLocked(), nil
}

// ResendOTP re-issues the code once the cooldown has elapsed.
func (o *Orchestrator) ResendOTP(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateOTPRequested {
		return o.snapshotLocked(), ErrInvalidState
	}
	if !o.resend.Done() {
		return o.snapshotLocked(), ErrResendNotAllowed
	}

	res, err := o.request(ctx, o.phone)
	if err != nil {
		return o.snapshotLocked(), err
	}

	o.token = res.Token
	o.ref = res.Ref
	o.otp.Reset()
	o.errMsg = ""
	o.resend.Start(o.opts.ResendCooldown)
	return o.snapshotLocked(), nil
}

// EnterOTP feeds pad input: digits fill slots and Backspace erases. The
// code is verified as soon as the sixth slot is filled.
func (o *Orchestrator) EnterOTP(ctx context.Context, input string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateOTPRequested {
		return o.snapshotLocked(), ErrInvalidState
	}

	o.errMsg = ""
	for _, r := range input {
		if r == Backspace {
			o.otp.Backspace()
			continue
		}
		if o.otp.Enter(r) {
			return o.verifyLocked(ctx, o.otp.Value())
		}
	}
	return o.snapshotLocked(), nil
}

// PasteOTP spreads a pasted code across the pad from the focused slot.
func (o *Orchestrator) PasteOTP(ctx context.Context, code string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateOTPRequested {
		return o.snapshotLocked(), ErrInvalidState
	}

	o.errMsg = ""
	if o.otp.Paste(code) {
		return o.verifyLocked(ctx, o.otp.Value())
	}
	return o.snapshotLocked(), nil
}

// VerifyOTP checks code with the provider. A rejected code is reported
// in the snapshot, not as an error.
func (o *Orchestrator) VerifyOTP(ctx context.Context, code string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateOTPRequested {
		return o.snapshotLocked(), ErrInvalidState
	}
	return o.verifyLocked(ctx, code)
}

// EnterPin feeds pad input to the active PIN pad (set, confirm or entry).
func (o *Orchestrator) EnterPin(input string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StatePinSetupPending && o.state != StatePinEntryPending {
		return o.snapshotLocked(), ErrInvalidState
	}
	return o.enterPinLocked(input)
}

// SubmitPin enters a whole six-digit PIN into the active pad.
func (o *Orchestrator) SubmitPin(pin string) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StatePinSetupPending && o.state != StatePinEntryPending {
		return o.snapshotLocked(), ErrInvalidState
	}
	if len(pin) != PadLength || !allDigits(pin) {
		return o.snapshotLocked(), apperrors.Wrap(apperrors.ErrMissingInput, "PIN must be 6 digits")
	}

	o.activePad().Reset()
	return o.enterPinLocked(pin)
}

// BeginPinEntry starts PIN re-entry for the returning user: the active
// session user, else the last identity.
func (o *Orchestrator) BeginPinEntry() (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateAnonymous && o.state != StateAuthenticated {
		return o.snapshotLocked(), ErrInvalidState
	}

	p := o.returningPhone()
	if p == "" || !o.deps.Pins.HasPin(p) {
		return o.snapshotLocked(), ErrNoReturningUser
	}

	o.resetFlowLocked()
	o.phone = p
	o.state = StatePinEntryPending
	return o.snapshotLocked(), nil
}

// Cancel abandons the current flow and returns to Anonymous. An
// unfinished login is logged out. The last identity survives unless
// forget is set.
func (o *Orchestrator) Cancel(forget bool) (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateAuthenticated {
		return o.snapshotLocked(), ErrInvalidState
	}

	if o.deps.Session.IsAuthenticated() {
		if err := o.deps.Session.Logout(); err != nil {
			return o.snapshotLocked(), err
		}
	}
	if forget {
		if err := o.deps.LastIdentity.Clear(); err != nil {
			return o.snapshotLocked(), err
		}
	}

	o.resetFlowLocked()
	o.state = StateAnonymous
	return o.snapshotLocked(), nil
}

// Logout ends the session from any state. PINs and the last identity
// are kept.
func (o *Orchestrator) Logout() (Snapshot, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.deps.Session.Logout(); err != nil {
		return o.snapshotLocked(), err
	}
	o.resetFlowLocked()
	o.state = StateAnonymous
	return o.snapshotLocked(), nil
}

// Close stops every timer the flow owns.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopTimersLocked()
}

func (o *Orchestrator) request(ctx context.Context, canonical string) (*services.OTPResult, error) {
	res, err := o.deps.Gateway.RequestOTP(ctx, services.OTPRequest{To: canonical, Lang: o.opts.Lang})
	if err == nil && res.Token == "" {
		err = apperrors.NewProviderError("", res.Code, msgSendFailed)
	}
	if err != nil {
		o.errMsg = apperrors.Message(err)
		o.deps.Logger.Warn("otp request failed", "phone", canonical, "error", err)
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) verifyLocked(ctx context.Context, code string) (Snapshot, error) {
	if len(code) != PadLength {
		o.errMsg = msgIncompleteOTP
		return o.snapshotLocked(), nil
	}

	_, err := o.deps.Gateway.VerifyOTP(ctx, services.VerifyRequest{Token: o.token, Pin: code})
	if err != nil {
		o.errMsg = apperrors.Message(err)
		var perr *apperrors.ProviderError
		if apperrors.As(err, &perr) {
			o.deps.Logger.Info("otp rejected", "phone", o.phone, "code", perr.Code)
			return o.snapshotLocked(), nil
		}
		return o.snapshotLocked(), err
	}

	user := models.NewUser(o.phone, o.deps.Clock.Now())
	if err := o.deps.Session.Login(user); err != nil {
		o.errMsg = apperrors.Message(err)
		return o.snapshotLocked(), err
	}

	o.resend.Stop()
	o.token = ""
	o.ref = ""
	o.otp.Reset()
	o.errMsg = ""
	o.attempts = 0
	o.pin.Reset()
	o.confirm.Reset()
	o.step = StepSet

	if o.deps.Pins.HasPin(o.phone) {
		o.state = StatePinEntryPending
	} else {
		o.state = StatePinSetupPending
	}
	o.deps.Logger.Info("otp verified", "phone", o.phone, "next", string(o.state))
	return o.snapshotLocked(), nil
}

func (o *Orchestrator) enterPinLocked(input string) (Snapshot, error) {
	for _, r := range input {
		if o.state != StatePinSetupPending && o.state != StatePinEntryPending {
			break
		}
		if r == Backspace {
			o.activePad().Backspace()
			continue
		}
		if !isDigit(r) {
			continue
		}
		o.errMsg = ""
		if !o.activePad().Enter(r) {
			continue
		}
		if err := o.completePinLocked(); err != nil {
			return o.snapshotLocked(), err
		}
	}
	return o.snapshotLocked(), nil
}

func (o *Orchestrator) activePad() *Pad {
	if o.state == StatePinSetupPending && o.step == StepConfirm {
		return &o.confirm
	}
	return &o.pin
}

func (o *Orchestrator) completePinLocked() error {
	if o.state == StatePinSetupPending {
		return o.completeSetupLocked()
	}
	return o.completeEntryLocked()
}

func (o *Orchestrator) completeSetupLocked() error {
	if o.step == StepSet {
		o.step = StepConfirm
		o.confirm.Reset()
		return nil
	}

	if o.pin.Value() != o.confirm.Value() {
		o.errMsg = msgPinMismatch
		o.pin.Reset()
		o.confirm.Reset()
		o.step = StepSet
		return nil
	}

	p := o.sessionPhone()
	if p == "" {
		o.errMsg = msgNoPhone
		return nil
	}
	if err := o.deps.Pins.SavePin(p, o.pin.Value()); err != nil {
		o.errMsg = apperrors.Message(err)
		return err
	}

	o.deps.Logger.Info("pin saved", "phone", p)
	o.resetFlowLocked()
	o.state = StateAuthenticated
	return nil
}

func (o *Orchestrator) completeEntryLocked() error {
	p := o.returningPhone()
	if p == "" {
		o.errMsg = msgNoPhone
		o.pin.Reset()
		return nil
	}

	if !o.deps.Pins.VerifyPin(p, o.pin.Value()) {
		o.attempts++
		o.pin.Reset()
		o.errMsg = msgPinIncorrect
		o.deps.Logger.Info("pin rejected", "phone", p, "attempts", o.attempts)
		if o.attempts >= o.opts.MaxPinAttempts {
			o.lockOutLocked()
		}
		return nil
	}

	if !o.deps.Session.IsAuthenticated() {
		if err := o.deps.Session.Login(o.returningUser(p)); err != nil {
			o.errMsg = apperrors.Message(err)
			return err
		}
	}

	o.resetFlowLocked()
	o.state = StateAuthenticated
	return nil
}

func (o *Orchestrator) lockOutLocked() {
	o.state = StateLockedOut
	o.notice = msgLockedOut
	o.lockGen++
	gen := o.lockGen
	o.lockTimer = o.deps.Clock.AfterFunc(o.opts.LockoutDelay, func() { o.expireLockout(gen) })
}

func (o *Orchestrator) expireLockout(gen int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.lockGen || o.state != StateLockedOut {
		return
	}
	o.lockTimer = nil
	if err := o.deps.Session.Logout(); err != nil {
		o.deps.Logger.Error("logout after lockout", "error", err)
	}
	o.resetFlowLocked()
	o.state = StateAnonymous
}

// returningUser rebuilds an identity for a PIN login without a session.
func (o *Orchestrator) returningUser(p string) models.User {
	user := models.NewUser(p, o.deps.Clock.Now())
	if last := o.deps.LastIdentity.Get(); last != nil && last.Phone == p {
		if last.Name != "" {
			user.Name = last.Name
		}
		user.ProfilePicture = last.Image
	}
	return user
}

func (o *Orchestrator) sessionPhone() string {
	if u := o.deps.Session.User(); u != nil && u.Phone != "" {
		return u.Phone
	}
	return o.phone
}

func (o *Orchestrator) returningPhone() string {
	if u := o.deps.Session.User(); u != nil && u.Phone != "" {
		return u.Phone
	}
	if last := o.deps.LastIdentity.Get(); last != nil {
		return last.Phone
	}
	return ""
}

func (o *Orchestrator) resetFlowLocked() {
	o.stopTimersLocked()
	o.phone = ""
	o.token = ""
	o.ref = ""
	o.otp.Reset()
	o.pin.Reset()
	o.confirm.Reset()
	o.step = StepSet
	o.attempts = 0
	o.errMsg = ""
	o.notice = ""
}

func (o *Orchestrator) stopTimersLocked() {
	o.resend.Stop()
	o.lockGen++
	if o.lockTimer != nil {
		o.lockTimer.Stop()
		o.lockTimer = nil
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:    o.state,
		Phone:    o.phone,
		Ref:      o.ref,
		OTP:      o.otp.View(),
		Attempts: o.attempts,
		Error:    o.errMsg,
		Notice:   o.notice,
	}
	switch o.state {
	case StateOTPRequested:
		snap.ResendIn = o.resend.Remaining()
		snap.CanResend = snap.ResendIn == 0
	case StatePinSetupPending:
		snap.Step = o.step
		snap.Pin = o.activePad().View()
	case StatePinEntryPending:
		snap.Pin = o.pin.View()
	}
	snap.AttemptsLeft = max(o.opts.MaxPinAttempts-o.attempts, 0)
	return snap
}

func allDigits(s string) bool {
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}
