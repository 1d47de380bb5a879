package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
	"github.com/yourorg/staking-dashboard/internal/store"
)

type fetchResult struct {
	resp *model.WalletResponse
	err  error
}

type call struct {
	wallet  string
	ctx     context.Context
	release chan fetchResult
}

// fakeFetcher hands each incoming fetch to the test, which decides when and
// how it completes.
type fakeFetcher struct {
	calls chan *call
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(chan *call, 8)}
}

func (f *fakeFetcher) Rewards(ctx context.Context, wallet string) (*model.WalletResponse, error) {
	c := &call{wallet: wallet, ctx: ctx, release: make(chan fetchResult, 1)}
	f.calls <- c
	select {
	case r := <-c.release:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, errs.New(errs.KindNetwork, "fakeFetcher.Rewards", ctx.Err())
	}
}

func (f *fakeFetcher) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no fetch issued")
		return nil
	}
}

func response(wallet string) *model.WalletResponse {
	return &model.WalletResponse{
		WalletAddress: wallet,
		ProvidersFullRewardsData: map[string][]model.EpochReward{
			"P1": {{Epoch: 100}},
		},
	}
}

func waitForStatus(t *testing.T, s *Session, wallet string, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.Status(wallet) == want
	}, 2*time.Second, 5*time.Millisecond, "wallet %s never reached %s", wallet, want)
}

func TestAddLoadsWallet(t *testing.T) {
	f := newFakeFetcher()
	st := store.New()
	s := New(f, st, time.Minute)

	assert.Equal(t, StatusAbsent, s.Status("w1"))

	s.Add("w1")
	assert.Equal(t, StatusFetching, s.Status("w1"))

	c := f.next(t)
	assert.Equal(t, "w1", c.wallet)
	c.release <- fetchResult{resp: response("w1")}

	waitForStatus(t, s, "w1", StatusLoaded)
	_, ok := st.Get("w1")
	assert.True(t, ok)
}

func TestFetchFailureMarksErrored(t *testing.T) {
	f := newFakeFetcher()
	st := store.New()
	s := New(f, st, time.Minute)

	s.Add("w1")
	f.next(t).release <- fetchResult{err: errs.Newf(errs.KindHTTP, "fetch.Rewards", "boom")}

	waitForStatus(t, s, "w1", StatusErrored)

	// No store mutation on failure.
	_, ok := st.Get("w1")
	assert.False(t, ok)

	states := s.States()
	require.Len(t, states, 1)
	assert.Equal(t, string(errs.KindHTTP), states[0].ErrorKind)
}

// Re-adding a wallet cancels the in-flight fetch; only the later-issued
// result may land.
func TestLaterFetchWins(t *testing.T) {
	f := newFakeFetcher()
	st := store.New()
	s := New(f, st, time.Minute)

	s.Add("w1")
	first := f.next(t)

	s.Add("w1")
	second := f.next(t)

	// The earlier fetch was cancelled before it could write.
	assert.Error(t, first.ctx.Err())

	stale := response("w1")
	stale.CurrentEpoch = 1
	first.release <- fetchResult{resp: stale}

	fresh := response("w1")
	fresh.CurrentEpoch = 2
	second.release <- fetchResult{resp: fresh}

	waitForStatus(t, s, "w1", StatusLoaded)
	got, ok := st.Get("w1")
	require.True(t, ok)
	assert.EqualValues(t, 2, got.CurrentEpoch, "stale result must not survive")
}

func TestRemoveCancelsAndForgets(t *testing.T) {
	f := newFakeFetcher()
	st := store.New()
	s := New(f, st, time.Minute)

	s.Add("w1")
	c := f.next(t)

	s.Remove("w1")
	assert.Error(t, c.ctx.Err())
	assert.Equal(t, StatusAbsent, s.Status("w1"))
	assert.Empty(t, s.Selection())

	// A late result from the cancelled fetch writes nothing.
	c.release <- fetchResult{resp: response("w1")}
	time.Sleep(20 * time.Millisecond)
	_, ok := st.Get("w1")
	assert.False(t, ok)
	assert.Equal(t, StatusAbsent, s.Status("w1"))
}

func TestSnapshotReadsLoadedOnly(t *testing.T) {
	f := newFakeFetcher()
	st := store.New()
	s := New(f, st, time.Minute)

	s.Add("w1")
	s.Add("w2")
	s.Add("w3")

	// Load w1 and w3, fail w2.
	for i := 0; i < 3; i++ {
		c := f.next(t)
		switch c.wallet {
		case "w2":
			c.release <- fetchResult{err: errs.Newf(errs.KindNetwork, "fetch.Rewards", "down")}
		default:
			c.release <- fetchResult{resp: response(c.wallet)}
		}
	}
	waitForStatus(t, s, "w1", StatusLoaded)
	waitForStatus(t, s, "w2", StatusErrored)
	waitForStatus(t, s, "w3", StatusLoaded)

	in := s.Snapshot()
	assert.Equal(t, []string{"w1", "w3"}, in.SelectedWallets)

	// Selection still lists every wallet, in insertion order.
	assert.Equal(t, []string{"w1", "w2", "w3"}, s.Selection())
}

func TestSelectionOrderStableOnReadd(t *testing.T) {
	f := newFakeFetcher()
	s := New(f, store.New(), time.Minute)

	s.Add("w1")
	s.Add("w2")
	f.next(t)
	f.next(t)

	// Re-adding keeps the original position.
	s.Add("w1")
	f.next(t)
	assert.Equal(t, []string{"w1", "w2"}, s.Selection())
}
