// Package store holds the in-memory session state: one rewards response per
// wallet and the canonical provider owner map derived from those responses.
package store

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/staking-dashboard/internal/model"
)

var ownerConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "dashboard_owner_conflicts_total",
	Help: "Provider owner disagreements between responses (first-observed owner kept)",
})

// Store is the mutable heart of a session. All writes happen from request
// handlers; aggregation reads a snapshot and never touches the store again.
type Store struct {
	mu        sync.RWMutex
	responses map[string]*model.WalletResponse
	owners    map[string]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		responses: make(map[string]*model.WalletResponse),
		owners:    make(map[string]string),
	}
}

// Upsert stores or replaces the response for a wallet and records the
// provider owners it carries.
func (s *Store) Upsert(wallet string, resp *model.WalletResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses[wallet] = resp
	s.recordOwnersLocked(resp)
}

// recordOwnersLocked folds a response's provider identities into the owner
// map. Owner attribution must be deterministic regardless of fetch order, so
// the first observed owner wins; later disagreements are logged and counted
// but never overwrite.
func (s *Store) recordOwnersLocked(resp *model.WalletResponse) {
	for _, info := range resp.ProvidersWithIdentityInfo {
		if info.ProviderAddress == "" || info.OwnerAddress == "" {
			continue
		}
		existing, ok := s.owners[info.ProviderAddress]
		if !ok {
			s.owners[info.ProviderAddress] = info.OwnerAddress
			continue
		}
		if existing != info.OwnerAddress {
			ownerConflicts.Inc()
			logrus.WithFields(logrus.Fields{
				"provider": info.ProviderAddress,
				"oldOwner": existing,
				"newOwner": info.OwnerAddress,
			}).Warn("Provider owner conflict, keeping first-observed owner")
		}
	}
}

// Remove drops the wallet's response. Owner mappings are observationally
// monotonic and deliberately survive wallet removal.
func (s *Store) Remove(wallet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.responses, wallet)
}

// Get returns the stored response for a wallet, if any.
func (s *Store) Get(wallet string) (*model.WalletResponse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp, ok := s.responses[wallet]
	return resp, ok
}

// WalletsPresent lists the wallets with a stored response, sorted for
// deterministic output.
func (s *Store) WalletsPresent() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wallets := make([]string, 0, len(s.responses))
	for w := range s.responses {
		wallets = append(wallets, w)
	}
	sort.Strings(wallets)
	return wallets
}

// Owner returns the canonical owner for a provider, if known.
func (s *Store) Owner(provider string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.owners[provider]
	return owner, ok
}

// Snapshot assembles the aggregation input for the given ordered selection.
// Wallets without a stored response are skipped; the maps are copies so the
// snapshot stays stable while fetches land concurrently.
func (s *Store) Snapshot(selection []string) model.AggregationInput {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := model.AggregationInput{
		SelectedWallets: make([]string, 0, len(selection)),
		Responses:       make(map[string]*model.WalletResponse, len(selection)),
		ProviderOwners:  make(map[string]string, len(s.owners)),
	}
	for _, w := range selection {
		if resp, ok := s.responses[w]; ok {
			in.SelectedWallets = append(in.SelectedWallets, w)
			in.Responses[w] = resp
		}
	}
	for p, o := range s.owners {
		in.ProviderOwners[p] = o
	}
	return in
}
