package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/staking-dashboard/internal/config"
	"github.com/yourorg/staking-dashboard/internal/errs"
)

const rewardsFixture = `{
	"walletAddress": "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
	"currentEpoch": 1500,
	"providersFullRewardsData": {
		"P1": [
			{"epoch": 100, "totalStaked": "2500000000000000000000", "epochUserRewards": "1.5", "ownerRewards": 0.25},
			{"epoch": 101, "totalStaked": "2500000000000000000000", "epochUserRewards": 2.0, "ownerRewards": "0.25"}
		]
	},
	"providersWithIdentityInfo": [
		{"provider": "P1", "owner": "0xabc", "identity": "Staking Co", "serviceFee": 10, "apr": 7.5}
	],
	"someFutureField": true
}`

func testClient(baseURL string) *Client {
	cfg := config.Config{
		APIBaseURL:      baseURL,
		BreakerCooldown: time.Second,
	}
	return New(cfg)
}

func TestRewards(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(rewardsFixture))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Rewards(context.Background(), "0x8ba1f109551bD432803012645Ac136ddd64DBA72")
	require.NoError(t, err)
	assert.Equal(t, "/user/rewards/0x8ba1f109551bD432803012645Ac136ddd64DBA72", gotPath)
	assert.EqualValues(t, 1500, resp.CurrentEpoch)

	// String-transported numerics parse into exact decimals.
	records := resp.ProvidersFullRewardsData["P1"]
	require.Len(t, records, 2)
	assert.True(t, records[0].EpochUserRewards.Equal(decimal.NewFromFloat(1.5)))
	staked, _ := decimal.NewFromString("2500000000000000000000")
	assert.True(t, records[0].TotalStaked.Equal(staked))

	require.Len(t, resp.ProvidersWithIdentityInfo, 1)
	assert.Equal(t, "0xabc", resp.ProvidersWithIdentityInfo[0].OwnerAddress)
}

func TestRewardsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "wallet not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Rewards(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Equal(t, errs.KindHTTP, errs.KindOf(err))

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Contains(t, e.Body, "wallet not found")
}

func TestRewardsParsingError(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "broken json", body: `{"walletAddress": `},
		{name: "wrong shape", body: `{"walletAddress": "0xabc", "providersFullRewardsData": [1, 2]}`},
		{name: "shape violation", body: `{"walletAddress": "0xabc", "providersFullRewardsData": {"P1": [{"epoch": -3}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Rewards(context.Background(), "0xabc")
			require.Error(t, err)
			assert.Equal(t, errs.KindParsing, errs.KindOf(err))
		})
	}
}

func TestRewardsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := testClient(srv.URL).Rewards(ctx, "0xabc")
	require.Error(t, err)
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
}

func TestGovernanceVotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scripts/governance-votes", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"orderedGovernanceVotesByAddressYes": [
				{"address": "0xaaa", "herotag": "alice", "vote": "1000000", "voteShort": "1M", "share": 0.6, "shareTotal": 0.45}
			],
			"orderedGovernanceVotesByAddressNo": [
				{"address": "0xbbb", "vote": 250000, "voteShort": "250K", "share": 1.0, "shareTotal": 0.2}
			],
			"totalVotedYes": "1000000",
			"totalVotedYesShort": "1M",
			"totalVotedNo": 250000,
			"totalVotedNoShort": "250K",
			"totalVoted": 1250000,
			"totalVotedShort": "1.25M"
		}`))
	}))
	defer srv.Close()

	votes, err := testClient(srv.URL).GovernanceVotes(context.Background())
	require.NoError(t, err)
	require.Len(t, votes.Yes, 1)
	assert.Equal(t, "alice", votes.Yes[0].Herotag)
	assert.True(t, votes.TotalVoted.Equal(decimal.NewFromInt(1250000)))
}

func TestGovernanceVotesInvalidShare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"orderedGovernanceVotesByAddressYes": [
				{"address": "0xaaa", "share": 1.7, "shareTotal": 0.4}
			]
		}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GovernanceVotes(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.KindParsing, errs.KindOf(err))
}

// After enough consecutive failures the breaker opens and rejects calls
// without hitting the remote.
func TestRewardsBreakerOpens(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Rewards(context.Background(), "0xabc")
		require.Error(t, err)
	}

	hitsBefore := hits
	_, err := c.Rewards(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err), "open breaker reads as transport unavailability")
	assert.Equal(t, hitsBefore, hits, "open breaker must not reach the remote")
}
