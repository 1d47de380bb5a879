// Package model defines the core data structures for the staking dashboard.
package model

import (
	"github.com/shopspring/decimal"
)

// EpochReward is a single reward observation for one (wallet, provider, epoch)
// triple as returned by the analytics API. Reward amounts may be transported
// as JSON strings to preserve precision beyond float64; decimal.Decimal
// accepts both quoted and bare numbers.
type EpochReward struct {
	// Epoch is the blockchain epoch index this observation belongs to
	Epoch int64 `json:"epoch"`

	// TotalStaked is the amount the wallet had staked with the provider
	// during this epoch
	TotalStaked decimal.Decimal `json:"totalStaked"`

	// EpochUserRewards is the delegator-side reward for this epoch
	EpochUserRewards decimal.Decimal `json:"epochUserRewards"`

	// OwnerRewards is the additional reward paid to the provider's owner
	// wallet for this epoch. It only counts for the viewing wallet when
	// that wallet owns the provider.
	OwnerRewards decimal.Decimal `json:"ownerRewards"`
}

// ProviderInfo carries identity and display metadata for a staking provider.
type ProviderInfo struct {
	// ProviderAddress is the provider's contract address
	ProviderAddress string `json:"provider"`

	// OwnerAddress is the wallet that owns the provider. For a given
	// provider the owner is fixed; conflicting observations are resolved
	// first-wins by the owner resolver.
	OwnerAddress string `json:"owner"`

	// Identity is the provider's registered display name, if any
	Identity string `json:"identity,omitempty"`

	// ServiceFee is the provider's fee, expressed as a percentage
	ServiceFee float64 `json:"serviceFee"`

	// APR is the provider's advertised annual percentage rate
	APR float64 `json:"apr"`

	// Display metadata
	AvatarURL string `json:"avatar,omitempty"`
	URL       string `json:"url,omitempty"`
}

// WalletResponse is the full per-wallet payload of the rewards endpoint.
// It is immutable once ingested.
type WalletResponse struct {
	WalletAddress string `json:"walletAddress"`

	// CurrentEpoch is the network epoch at fetch time
	CurrentEpoch int64 `json:"currentEpoch"`

	// ProvidersFullRewardsData maps provider address to that wallet's
	// per-epoch reward history, sorted ascending by epoch with unique
	// epochs per provider.
	ProvidersFullRewardsData map[string][]EpochReward `json:"providersFullRewardsData"`

	// ProvidersWithIdentityInfo lists identity metadata for every provider
	// the wallet has history with.
	ProvidersWithIdentityInfo []ProviderInfo `json:"providersWithIdentityInfo"`
}

// AggregationInput is the read-only snapshot all derived views are computed
// from: the ordered wallet selection, the stored responses for loaded
// wallets, and the canonical provider owner map.
type AggregationInput struct {
	SelectedWallets []string
	Responses       map[string]*WalletResponse
	ProviderOwners  map[string]string
}

// EpochRow is one chart row: an epoch plus one numeric column per selected
// wallet. Wallets without data at the epoch hold 0.
type EpochRow struct {
	Epoch  int64              `json:"epoch"`
	Values map[string]float64 `json:"values"`
}

// Bucket is a contiguous merger of epoch rows used when a series is too
// dense to plot 1:1. Values are sums over the merged rows, never averages.
type Bucket struct {
	// Epoch is the last epoch of the merged chunk, keeping the x-axis
	// monotonically increasing.
	Epoch  int64              `json:"epoch"`
	Label  string             `json:"label"`
	Values map[string]float64 `json:"values"`
}

// MinMax is an inclusive value range over a trailing window.
type MinMax struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// GlobalStats summarises the whole selection across the full epoch window.
// Grand totals are kept in decimal so string-transported amounts survive
// aggregation exactly; rolling windows are display values and stay float64.
type GlobalStats struct {
	TotalRewards          decimal.Decimal            `json:"totalRewards"`
	Avg7                  float64                    `json:"avg7"`
	Avg30                 float64                    `json:"avg30"`
	MinMax7               MinMax                     `json:"minMax7"`
	MinMax30              MinMax                     `json:"minMax30"`
	TotalRewardsPerWallet map[string]decimal.Decimal `json:"totalRewardsPerWallet,omitempty"`
}

// ColorMap assigns a stable hex color to each wallet address.
type ColorMap map[string]string

// Clone returns a deep copy so callers can mutate freely.
func (c ColorMap) Clone() ColorMap {
	out := make(ColorMap, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// GovernanceVote is one entry of the governance distribution: a voter, its
// vote power and its share of its side and of the overall turnout.
type GovernanceVote struct {
	Address    string          `json:"address"`
	Herotag    string          `json:"herotag,omitempty"`
	Vote       decimal.Decimal `json:"vote"`
	VoteShort  string          `json:"voteShort"`
	Share      float64         `json:"share"`
	ShareTotal float64         `json:"shareTotal"`
}

// GovernanceVotes is the payload of the governance distribution endpoint.
type GovernanceVotes struct {
	Yes                []GovernanceVote `json:"orderedGovernanceVotesByAddressYes"`
	No                 []GovernanceVote `json:"orderedGovernanceVotesByAddressNo"`
	TotalVotedYes      decimal.Decimal  `json:"totalVotedYes"`
	TotalVotedYesShort string           `json:"totalVotedYesShort"`
	TotalVotedNo       decimal.Decimal  `json:"totalVotedNo"`
	TotalVotedNoShort  string           `json:"totalVotedNoShort"`
	TotalVoted         decimal.Decimal  `json:"totalVoted"`
	TotalVotedShort    string           `json:"totalVotedShort"`
}

// TopVoters returns the n largest voters of one side, preserving the API
// ordering (already sorted by vote power descending).
func TopVoters(votes []GovernanceVote, n int) []GovernanceVote {
	if n <= 0 || len(votes) == 0 {
		return nil
	}
	if n > len(votes) {
		n = len(votes)
	}
	out := make([]GovernanceVote, n)
	copy(out, votes[:n])
	return out
}
