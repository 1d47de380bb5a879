// Package session drives the per-wallet lifecycle of a dashboard session:
// Absent -> Fetching -> Loaded | Errored -> Absent. Fetches run in the
// background; when the same wallet is added twice, the later-issued fetch
// wins and earlier in-flight ones are cancelled before they can write.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
	"github.com/yourorg/staking-dashboard/internal/store"
)

var loadedWallets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dashboard_loaded_wallets",
	Help: "Wallets currently in Loaded state",
})

// Status is a wallet's lifecycle state within the session.
type Status string

// Wallet lifecycle states
const (
	StatusAbsent   Status = "absent"
	StatusFetching Status = "fetching"
	StatusLoaded   Status = "loaded"
	StatusErrored  Status = "errored"
)

// RewardsFetcher is the remote collaborator that loads a wallet's history.
type RewardsFetcher interface {
	Rewards(ctx context.Context, wallet string) (*model.WalletResponse, error)
}

// WalletState is the externally visible state of one wallet.
type WalletState struct {
	Address string `json:"address"`
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`

	// ErrorKind distinguishes network/http/parsing failures so the UI can
	// offer different remediation
	ErrorKind string `json:"errorKind,omitempty"`
}

type walletState struct {
	status  Status
	gen     uint64
	cancel  context.CancelFunc
	lastErr error
}

// Session owns the wallet selection and coordinates fetches against the
// record store. All writes go through the session; aggregation reads a
// consistent snapshot of Loaded wallets only.
type Session struct {
	mu        sync.Mutex
	fetcher   RewardsFetcher
	store     *store.Store
	timeout   time.Duration
	selection []string
	states    map[string]*walletState
	nextGen   uint64
}

// New creates a session over the given fetcher and store.
func New(fetcher RewardsFetcher, st *store.Store, timeout time.Duration) *Session {
	return &Session{
		fetcher: fetcher,
		store:   st,
		timeout: timeout,
		states:  make(map[string]*walletState),
	}
}

// Add registers a wallet and starts (or restarts) its fetch. Re-adding a
// wallet keeps its position in the selection order; any in-flight fetch for
// it is cancelled so only the newest result can land.
func (s *Session) Add(wallet string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, known := s.states[wallet]
	if !known {
		s.selection = append(s.selection, wallet)
		st = &walletState{}
		s.states[wallet] = st
	}
	if st.cancel != nil {
		st.cancel()
	}
	if st.status == StatusLoaded {
		loadedWallets.Dec()
	}

	s.nextGen++
	gen := s.nextGen
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	st.status = StatusFetching
	st.gen = gen
	st.cancel = cancel
	st.lastErr = nil

	logrus.WithField("wallet", wallet).Info("Wallet fetch started")
	go s.fetch(ctx, wallet, gen)
}

// fetch runs in the background and commits its result only if it is still
// the newest fetch for the wallet. Stale and cancelled fetches write
// nothing.
func (s *Session) fetch(ctx context.Context, wallet string, gen uint64) {
	resp, err := s.fetcher.Rewards(ctx, wallet)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, known := s.states[wallet]
	if !known || st.gen != gen {
		logrus.WithField("wallet", wallet).Debug("Discarding stale fetch result")
		return
	}
	st.cancel()
	st.cancel = nil

	if err != nil {
		st.status = StatusErrored
		st.lastErr = err
		logrus.WithFields(logrus.Fields{
			"wallet": wallet,
			"kind":   string(errs.KindOf(err)),
		}).WithError(err).Warn("Wallet fetch failed")
		return
	}

	s.store.Upsert(wallet, resp)
	st.status = StatusLoaded
	loadedWallets.Inc()
	logrus.WithFields(logrus.Fields{
		"wallet":    wallet,
		"providers": len(resp.ProvidersFullRewardsData),
	}).Info("Wallet loaded")
}

// Remove drops a wallet from the session: cancels any in-flight fetch,
// forgets its state and removes its stored response. Provider owner
// mappings deliberately survive.
func (s *Session) Remove(wallet string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, known := s.states[wallet]
	if !known {
		return
	}
	if st.cancel != nil {
		st.cancel()
	}
	if st.status == StatusLoaded {
		loadedWallets.Dec()
	}
	delete(s.states, wallet)
	for i, w := range s.selection {
		if w == wallet {
			s.selection = append(s.selection[:i], s.selection[i+1:]...)
			break
		}
	}
	s.store.Remove(wallet)
	logrus.WithField("wallet", wallet).Info("Wallet removed")
}

// Status returns the lifecycle state of one wallet.
func (s *Session) Status(wallet string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, known := s.states[wallet]; known {
		return st.status
	}
	return StatusAbsent
}

// States lists every wallet of the selection with its current state, in
// selection order.
func (s *Session) States() []WalletState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WalletState, 0, len(s.selection))
	for _, w := range s.selection {
		st := s.states[w]
		ws := WalletState{Address: w, Status: st.status}
		if st.lastErr != nil {
			ws.Error = st.lastErr.Error()
			ws.ErrorKind = string(errs.KindOf(st.lastErr))
		}
		out = append(out, ws)
	}
	return out
}

// Selection returns the ordered wallet selection, Loaded or not.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.selection...)
}

// Snapshot builds the aggregation input from the wallets currently Loaded,
// preserving selection order.
func (s *Session) Snapshot() model.AggregationInput {
	s.mu.Lock()
	loaded := make([]string, 0, len(s.selection))
	for _, w := range s.selection {
		if st := s.states[w]; st != nil && st.status == StatusLoaded {
			loaded = append(loaded, w)
		}
	}
	s.mu.Unlock()

	return s.store.Snapshot(loaded)
}
