package pairsdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService is a scripted pairing service for driving the session
// machine over real HTTP.
type fakeService struct {
	mu sync.Mutex

	approveAfter  int // exchanges that return not_ready before success
	exchangeCalls int
	unlinkCalls   int
	codeExpiresAt time.Time
	exchangeErr   *PairingError // forced terminal outcome, if set
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/pairing/register", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		expires := f.codeExpiresAt
		f.mu.Unlock()
		if expires.IsZero() {
			expires = time.Now().Add(5 * time.Minute)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(RegisterResponse{
			RegistrationID:      "reg-1",
			DeviceID:            "dev-1",
			PairingCode:         "ABCD2345",
			ExpiresAt:           expires,
			PollIntervalSeconds: 1,
		})
	})

	mux.HandleFunc("POST /v1/pairing/exchange", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.exchangeCalls++
		calls := f.exchangeCalls
		forced := f.exchangeErr
		approveAfter := f.approveAfter
		f.mu.Unlock()

		if forced != nil {
			forced.WriteError(w)
			return
		}
		if calls <= approveAfter {
			ErrNotReady.WriteError(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TokenResponse{
			DeviceToken: "token-abc",
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		})
	})

	mux.HandleFunc("GET /v1/device", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DeviceResponse{
			DeviceID: "dev-1",
			UserID:   "user-alice",
			PairedAt: time.Now(),
		})
	})

	mux.HandleFunc("POST /v1/pairing/unlink", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.unlinkCalls++
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (f *fakeService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchangeCalls
}

// blockingRestorer resolves only when released, simulating an identity
// provider SDK that takes arbitrarily long to restore its session.
type blockingRestorer struct {
	release chan IdentityOutcome
}

func (r *blockingRestorer) Restore(ctx context.Context) (IdentityOutcome, error) {
	select {
	case out := <-r.release:
		return out, nil
	case <-ctx.Done():
		return IdentityOutcome{}, ctx.Err()
	}
}

type staticRestorer struct {
	outcome IdentityOutcome
	err     error
}

func (r *staticRestorer) Restore(context.Context) (IdentityOutcome, error) {
	return r.outcome, r.err
}

func newTestManager(t *testing.T, svc *fakeService, opts SessionOptions) (*SessionManager, *MemoryStore) {
	t.Helper()

	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	store := NewMemoryStore()
	opts.Client = NewClient(srv.URL)
	opts.Store = store
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}

	m, err := NewSessionManager(opts)
	require.NoError(t, err)
	return m, store
}

func TestPairingSucceedsAfterApproval(t *testing.T) {
	svc := &fakeService{approveAfter: 3}

	var states []State
	var mu sync.Mutex
	m, store := newTestManager(t, svc, SessionOptions{
		OnStateChange: func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		},
	})

	reg, err := m.StartPairing(context.Background(), "", "Hall Display")
	require.NoError(t, err)
	require.Equal(t, "ABCD2345", reg.PairingCode)
	require.Equal(t, StateDeviceRegistered, m.State())

	require.Equal(t, StateAuthenticated, m.WaitForPairing())
	require.GreaterOrEqual(t, svc.calls(), 4)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "token-abc", creds.DeviceToken)
	assert.Equal(t, "dev-1", creds.DeviceID)
	assert.Equal(t, "user-alice", creds.UserID)
	assert.True(t, creds.Valid(time.Now()))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, StatePairingInProgress)
	assert.Equal(t, StateAuthenticated, states[len(states)-1])
}

func TestPairingStopsOnTerminalError(t *testing.T) {
	svc := &fakeService{exchangeErr: ErrNotLinked}

	var failure error
	done := make(chan struct{})
	m, store := newTestManager(t, svc, SessionOptions{
		OnPairingFailed: func(err error) {
			failure = err
			close(done)
		},
	})

	_, err := m.StartPairing(context.Background(), "", "Hall Display")
	require.NoError(t, err)

	require.Equal(t, StateLoggedOut, m.WaitForPairing())
	<-done
	require.ErrorIs(t, failure, ErrNotLinked)
	assert.Equal(t, 1, svc.calls(), "terminal errors must not be retried")

	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestPairingBoundedByAttemptCap(t *testing.T) {
	svc := &fakeService{approveAfter: 1 << 30} // never approves

	m, _ := newTestManager(t, svc, SessionOptions{
		MaxPollAttempts: 5,
	})

	_, err := m.StartPairing(context.Background(), "", "Hall Display")
	require.NoError(t, err)

	require.Equal(t, StateLoggedOut, m.WaitForPairing())
	assert.Equal(t, 5, svc.calls())
}

func TestPairingBoundedByCodeExpiry(t *testing.T) {
	svc := &fakeService{
		approveAfter:  1 << 30,
		codeExpiresAt: time.Now().Add(30 * time.Millisecond),
	}

	m, _ := newTestManager(t, svc, SessionOptions{
		MaxPollAttempts: 1000,
	})

	_, err := m.StartPairing(context.Background(), "", "Hall Display")
	require.NoError(t, err)

	require.Equal(t, StateLoggedOut, m.WaitForPairing())
	assert.Less(t, svc.calls(), 1000, "polling must stop at the code's own expiry")
}

func TestCancelPairing(t *testing.T) {
	svc := &fakeService{approveAfter: 1 << 30}

	m, _ := newTestManager(t, svc, SessionOptions{})

	_, err := m.StartPairing(context.Background(), "", "Hall Display")
	require.NoError(t, err)

	m.CancelPairing()
	require.Equal(t, StateLoggedOut, m.State())
}

// The production defect this machine exists to prevent: a slow identity
// provider restoration must never be read as "logged out".
func TestRestoreNeverClearsBeforeOutcome(t *testing.T) {
	svc := &fakeService{}
	restorer := &blockingRestorer{release: make(chan IdentityOutcome)}
	m, store := newTestManager(t, svc, SessionOptions{Restorer: restorer})

	require.NoError(t, store.Save(Credentials{
		DeviceID:    "dev-1",
		DeviceToken: "token-abc",
		UserID:      "user-alice",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	type result struct {
		state State
		err   error
	}
	results := make(chan result, 1)
	go func() {
		s, err := m.Restore(context.Background())
		results <- result{s, err}
	}()

	// Arbitrary delay: restoration has not resolved, so the machine must
	// hold RESTORING with credentials intact - no logged-out flash.
	require.Eventually(t, func() bool {
		return m.State() == StateRestoring
	}, time.Second, time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, StateRestoring, m.State())
	_, err := store.Load()
	require.NoError(t, err, "credentials must survive an unresolved restoration")

	restorer.release <- IdentityOutcome{UserID: "user-alice", SessionFound: true}
	res := <-results
	require.NoError(t, res.err)
	require.Equal(t, StateAuthenticated, res.state)
	require.Equal(t, "token-abc", m.Credentials().DeviceToken)
}

func TestRestoreDefinitiveNegativeLogsOut(t *testing.T) {
	svc := &fakeService{}
	m, store := newTestManager(t, svc, SessionOptions{
		Restorer: &staticRestorer{outcome: IdentityOutcome{SessionFound: false}},
	})

	require.NoError(t, store.Save(Credentials{
		DeviceID:    "dev-1",
		DeviceToken: "token-abc",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	state, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateLoggedOut, state)

	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestRestoreErrorHoldsState(t *testing.T) {
	svc := &fakeService{}
	m, store := newTestManager(t, svc, SessionOptions{
		Restorer: &staticRestorer{err: errors.New("provider unreachable")},
	})

	require.NoError(t, store.Save(Credentials{
		DeviceID:    "dev-1",
		DeviceToken: "token-abc",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	state, err := m.Restore(context.Background())
	require.Error(t, err)
	require.Equal(t, StateRestoring, state)

	// An inconclusive outcome is not a logout.
	_, err = store.Load()
	require.NoError(t, err)
}

func TestRestoreWithExpiredToken(t *testing.T) {
	svc := &fakeService{}
	m, store := newTestManager(t, svc, SessionOptions{
		Restorer: &staticRestorer{outcome: IdentityOutcome{UserID: "user-alice", SessionFound: true}},
	})

	require.NoError(t, store.Save(Credentials{
		DeviceID:    "dev-1",
		DeviceToken: "token-abc",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}))

	state, err := m.Restore(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateLoggedOut, state, "an expired token cannot restore a session")
}

func TestLogoutRevokesAndClears(t *testing.T) {
	svc := &fakeService{approveAfter: 0}
	m, store := newTestManager(t, svc, SessionOptions{})

	_, err := m.StartPairing(context.Background(), "", "Hall Display")
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, m.WaitForPairing())

	require.NoError(t, m.Logout(context.Background()))
	require.Equal(t, StateLoggedOut, m.State())
	svc.mu.Lock()
	require.Equal(t, 1, svc.unlinkCalls)
	svc.mu.Unlock()

	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestTransitionTable(t *testing.T) {
	m, _ := newTestManager(t, &fakeService{}, SessionOptions{})

	// Logout from LOGGED_OUT is refused.
	err := m.Logout(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Refresh without a session is refused.
	err = m.RefreshToken(context.Background())
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPollAttemptsNeverOverlap(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/pairing/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(RegisterResponse{
			DeviceID:            "dev-1",
			PairingCode:         "ABCD2345",
			ExpiresAt:           time.Now().Add(time.Minute),
			PollIntervalSeconds: 1,
		})
	})
	mux.HandleFunc("POST /v1/pairing/exchange", func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		// Make the attempt slower than the poll interval.
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		ErrNotReady.WriteError(w)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	m, err := NewSessionManager(SessionOptions{
		Client:          NewClient(srv.URL),
		Store:           NewMemoryStore(),
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 10,
	})
	require.NoError(t, err)

	_, err = m.StartPairing(context.Background(), "", "Hall Display")
	require.NoError(t, err)
	m.WaitForPairing()

	require.Equal(t, int32(1), maxInFlight.Load(), "exchange attempts must be sequential")
}
