package pairsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the client session lifecycle state.
type State string

const (
	// StateLoggedOut means no usable credentials exist. Pairing must be
	// started (or restarted) to leave this state.
	StateLoggedOut State = "LOGGED_OUT"

	// StateRestoring means a process restart is being reconciled: stored
	// credentials may exist but the identity provider has not yet
	// reported whether the user's session survived. While in this state
	// the machine refuses every logout side effect - stored credentials
	// are not cleared, no matter how long restoration takes.
	StateRestoring State = "RESTORING"

	// StateDeviceRegistered means a pairing code has been minted and is
	// waiting for user approval.
	StateDeviceRegistered State = "DEVICE_REGISTERED"

	// StatePairingInProgress means an exchange poll is in flight.
	StatePairingInProgress State = "PAIRING_IN_PROGRESS"

	// StateAuthenticated means a device token is stored and usable.
	StateAuthenticated State = "AUTHENTICATED"
)

// allowedTransitions is the complete transition table. Every state
// change funnels through SessionManager.transition, which consults this
// table; there is no other way to mutate the state.
var allowedTransitions = map[State][]State{
	StateLoggedOut:         {StateDeviceRegistered, StateRestoring},
	StateRestoring:         {StateAuthenticated, StateLoggedOut},
	StateDeviceRegistered:  {StatePairingInProgress, StateLoggedOut},
	StatePairingInProgress: {StateAuthenticated, StateDeviceRegistered, StateLoggedOut},
	StateAuthenticated:     {StateLoggedOut, StateRestoring},
}

// ErrInvalidTransition is returned when a requested state change is not
// in the transition table.
var ErrInvalidTransition = errors.New("pairsdk: invalid session state transition")

// ErrPairingAbandoned is reported through the error callback when the
// polling loop gives up (attempt cap or code expiry) without a token.
var ErrPairingAbandoned = errors.New("pairsdk: pairing abandoned before approval")

// IdentityOutcome is the definitive answer from the identity provider's
// own session restoration.
type IdentityOutcome struct {
	// UserID is the restored user, empty when SessionFound is false.
	UserID string

	// SessionFound distinguishes "the user's session is gone" from "the
	// user's session is fine". A Restore call that cannot determine
	// either returns an error instead.
	SessionFound bool
}

// IdentityRestorer is the narrow boundary over the identity provider
// SDK's asynchronous session restoration. Restore blocks until the
// provider knows the answer; returning an error means the answer is
// still unknown, which is NOT the same as SessionFound=false.
type IdentityRestorer interface {
	Restore(ctx context.Context) (IdentityOutcome, error)
}

// SessionOptions configures a SessionManager.
type SessionOptions struct {
	// Client talks to the pairing service. Required.
	Client *Client

	// Store persists credentials across restarts. Required.
	Store CredentialStore

	// Restorer reconciles the identity provider session on restart.
	// Required for Restore; pairing works without it.
	Restorer IdentityRestorer

	// PollInterval overrides the server-suggested exchange cadence.
	PollInterval time.Duration

	// MaxPollAttempts caps the polling loop. Default 120.
	MaxPollAttempts int

	// OnStateChange is invoked after every state transition, outside the
	// manager's lock. Optional; used by UIs to render the current state.
	OnStateChange func(State)

	// OnPairingFailed is invoked when the polling loop ends without a
	// token, with the terminal error. Optional.
	OnPairingFailed func(error)
}

const defaultMaxPollAttempts = 120

// SessionManager owns the client-side pairing lifecycle. All state
// lives behind one mutex and changes only through the transition table,
// so "are we logged out" always has exactly one answer.
type SessionManager struct {
	client   *Client
	store    CredentialStore
	restorer IdentityRestorer

	pollInterval    time.Duration
	maxPollAttempts int
	onStateChange   func(State)
	onPairingFailed func(error)

	mu       sync.Mutex
	state    State
	creds    Credentials
	pairing  *pairingAttempt
	stopPoll context.CancelFunc
	pollDone chan struct{}
}

// pairingAttempt is the in-flight ceremony state between Register and
// the exchange outcome.
type pairingAttempt struct {
	DeviceID  string
	Code      string
	ExpiresAt time.Time
}

// NewSessionManager creates a session manager in LOGGED_OUT.
func NewSessionManager(opts SessionOptions) (*SessionManager, error) {
	if opts.Client == nil {
		return nil, errors.New("pairsdk: SessionOptions.Client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("pairsdk: SessionOptions.Store is required")
	}

	maxAttempts := opts.MaxPollAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxPollAttempts
	}

	return &SessionManager{
		client:          opts.Client,
		store:           opts.Store,
		restorer:        opts.Restorer,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: maxAttempts,
		onStateChange:   opts.OnStateChange,
		onPairingFailed: opts.OnPairingFailed,
		state:           StateLoggedOut,
	}, nil
}

// State returns the current session state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Credentials returns the current credentials. Only meaningful in
// AUTHENTICATED.
func (m *SessionManager) Credentials() Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds
}

// transition is the single mutation entry point. Callers hold m.mu.
// The state-change callback fires after the lock is released.
func (m *SessionManager) transition(to State) error {
	from := m.state
	if from != to && !transitionAllowed(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = to

	if m.onStateChange != nil && from != to {
		cb := m.onStateChange
		defer func() {
			m.mu.Unlock()
			cb(to)
			m.mu.Lock()
		}()
	}
	return nil
}

func transitionAllowed(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Restore reconciles state after a process restart. It enters RESTORING
// and stays there until the identity provider reports a definitive
// outcome; a slow or erroring restorer never clears stored credentials.
// "Session not yet loaded" and "session absent" are different facts and
// only the second one logs the user out.
func (m *SessionManager) Restore(ctx context.Context) (State, error) {
	if m.restorer == nil {
		return m.State(), errors.New("pairsdk: no IdentityRestorer configured")
	}

	m.mu.Lock()
	if err := m.transition(StateRestoring); err != nil {
		m.mu.Unlock()
		return m.state, err
	}
	m.mu.Unlock()

	// Blocking call to the identity provider. However long this takes,
	// the machine holds RESTORING and touches nothing.
	outcome, err := m.restorer.Restore(ctx)
	if err != nil {
		// Outcome unknown. Stay in RESTORING so the caller can retry;
		// stored credentials remain untouched.
		return StateRestoring, fmt.Errorf("identity restoration inconclusive: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !outcome.SessionFound {
		// Definitive negative: the provider completed restoration and
		// found nothing. Now, and only now, clearing is allowed.
		_ = m.store.Clear()
		m.creds = Credentials{}
		return StateLoggedOut, m.transition(StateLoggedOut)
	}

	creds, err := m.store.Load()
	if err != nil || !creds.Valid(time.Now()) {
		// The user's provider session survived but our device token did
		// not. The token is useless; pairing must restart.
		_ = m.store.Clear()
		m.creds = Credentials{}
		return StateLoggedOut, m.transition(StateLoggedOut)
	}

	m.creds = creds
	return StateAuthenticated, m.transition(StateAuthenticated)
}

// StartPairing registers the device and begins the exchange polling
// loop in the background. The returned registration carries the code to
// show the user. deviceID is empty on first pairing.
func (m *SessionManager) StartPairing(ctx context.Context, deviceID, deviceName string) (*RegisterResponse, error) {
	m.mu.Lock()
	if m.state != StateLoggedOut {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: pairing requires %s, currently %s", ErrInvalidTransition, StateLoggedOut, m.state)
	}
	m.mu.Unlock()

	reg, err := m.client.Register(ctx, deviceID, deviceName)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if err := m.transition(StateDeviceRegistered); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.pairing = &pairingAttempt{
		DeviceID:  reg.DeviceID,
		Code:      reg.PairingCode,
		ExpiresAt: reg.ExpiresAt,
	}

	interval := m.pollInterval
	if interval <= 0 {
		interval = time.Duration(reg.PollIntervalSeconds) * time.Second
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	m.stopPoll = cancel
	m.pollDone = make(chan struct{})
	go m.pollLoop(pollCtx, *m.pairing, interval, m.pollDone)
	m.mu.Unlock()

	return reg, nil
}

// CancelPairing aborts an in-flight ceremony and returns to LOGGED_OUT.
func (m *SessionManager) CancelPairing() {
	m.mu.Lock()
	cancel, done := m.stopPoll, m.pollDone
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateDeviceRegistered || m.state == StatePairingInProgress {
		m.pairing = nil
		_ = m.transition(StateLoggedOut)
	}
}

// WaitForPairing blocks until the current polling loop finishes, for
// callers that want the outcome synchronously.
func (m *SessionManager) WaitForPairing() State {
	m.mu.Lock()
	done := m.pollDone
	m.mu.Unlock()

	if done != nil {
		<-done
	}
	return m.State()
}

// pollLoop drives sequential exchange attempts. A single timer fires
// each attempt and is re-armed only after the attempt completes, so
// attempts never overlap even if the host delays callbacks. The loop
// stops on success, a terminal error, the attempt cap, or the code's
// own expiry.
func (m *SessionManager) pollLoop(ctx context.Context, attempt pairingAttempt, interval time.Duration, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for attempts := 0; attempts < m.maxPollAttempts; attempts++ {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Wall-clock cutoff: the code is dead, stop asking.
		if time.Now().After(attempt.ExpiresAt) {
			m.failPairing(ErrPairingAbandoned)
			return
		}

		if m.exchangeOnce(ctx, attempt) {
			return
		}

		timer.Reset(interval)
	}

	m.failPairing(ErrPairingAbandoned)
}

// exchangeOnce performs one exchange attempt. Returns true when the
// loop should stop (success or terminal failure).
func (m *SessionManager) exchangeOnce(ctx context.Context, attempt pairingAttempt) bool {
	m.mu.Lock()
	if m.state == StateDeviceRegistered {
		if err := m.transition(StatePairingInProgress); err != nil {
			m.mu.Unlock()
			return true
		}
	}
	m.mu.Unlock()

	tok, err := m.client.Exchange(ctx, attempt.DeviceID, attempt.Code)
	switch {
	case err == nil:
		creds := Credentials{
			DeviceID:    attempt.DeviceID,
			DeviceToken: tok.DeviceToken,
			ExpiresAt:   time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		}
		if dev, err := m.client.Device(ctx, tok.DeviceToken); err == nil {
			creds.UserID = dev.UserID
		}
		if err := m.store.Save(creds); err != nil {
			m.failPairing(fmt.Errorf("failed to persist credentials: %w", err))
			return true
		}

		m.mu.Lock()
		m.creds = creds
		m.pairing = nil
		_ = m.transition(StateAuthenticated)
		m.mu.Unlock()
		return true

	case IsNotReady(err):
		// The only retryable outcome: user has not approved yet.
		m.mu.Lock()
		_ = m.transition(StateDeviceRegistered)
		m.mu.Unlock()
		return false

	case IsRateLimited(err):
		// Back off but keep the attempt alive; the budget recovers.
		m.mu.Lock()
		_ = m.transition(StateDeviceRegistered)
		m.mu.Unlock()
		return false

	case errors.Is(err, context.Canceled):
		return true

	default:
		// code_expired, not_linked, transport failure: terminal for this
		// ceremony.
		m.failPairing(err)
		return true
	}
}

// failPairing ends the ceremony without a token. Stored credentials
// from any previous pairing are already gone by this point (pairing
// only starts from LOGGED_OUT), so there is nothing to clear.
func (m *SessionManager) failPairing(cause error) {
	m.mu.Lock()
	m.pairing = nil
	_ = m.transition(StateLoggedOut)
	cb := m.onPairingFailed
	m.mu.Unlock()

	if cb != nil {
		cb(cause)
	}
}

// Logout revokes the device's tokens server-side and clears storage.
// This is the only path, besides a definitive negative restoration,
// that clears persisted credentials.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return fmt.Errorf("%w: logout requires %s, currently %s", ErrInvalidTransition, StateAuthenticated, m.state)
	}
	token := m.creds.DeviceToken
	m.mu.Unlock()

	// Best effort: the server may already consider us revoked.
	var pe *PairingError
	if err := m.client.Unlink(ctx, token); err != nil && !errors.As(err, &pe) {
		return err
	}

	if err := m.store.Clear(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = Credentials{}
	return m.transition(StateLoggedOut)
}

// RefreshToken rotates the device token before it expires and persists
// the replacement.
func (m *SessionManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return fmt.Errorf("%w: refresh requires %s, currently %s", ErrInvalidTransition, StateAuthenticated, m.state)
	}
	creds := m.creds
	m.mu.Unlock()

	tok, err := m.client.Refresh(ctx, creds.DeviceToken)
	if err != nil {
		if IsTerminal(err) || errors.Is(err, ErrInvalidToken) {
			// The token is gone for good; only re-pairing recovers.
			_ = m.store.Clear()
			m.mu.Lock()
			m.creds = Credentials{}
			_ = m.transition(StateLoggedOut)
			m.mu.Unlock()
		}
		return err
	}

	creds.DeviceToken = tok.DeviceToken
	creds.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if err := m.store.Save(creds); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = creds
	return nil
}
