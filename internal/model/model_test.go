package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestTopVoters(t *testing.T) {
	votes := []GovernanceVote{
		{Address: "0xaaa", Vote: decimal.NewFromInt(300)},
		{Address: "0xbbb", Vote: decimal.NewFromInt(200)},
		{Address: "0xccc", Vote: decimal.NewFromInt(100)},
	}

	top := TopVoters(votes, 2)
	if len(top) != 2 || top[0].Address != "0xaaa" || top[1].Address != "0xbbb" {
		t.Errorf("TopVoters(2) got = %v", top)
	}

	// n beyond the list length returns everything.
	if got := TopVoters(votes, 10); len(got) != 3 {
		t.Errorf("TopVoters(10) got %d entries, want 3", len(got))
	}
	if got := TopVoters(votes, 0); got != nil {
		t.Errorf("TopVoters(0) got = %v, want nil", got)
	}
	if got := TopVoters(nil, 5); got != nil {
		t.Errorf("TopVoters(nil) got = %v, want nil", got)
	}

	// The result is a copy, not a view.
	top[0].Address = "mutated"
	if votes[0].Address != "0xaaa" {
		t.Error("TopVoters leaked a mutable view of its input")
	}
}

func TestColorMapClone(t *testing.T) {
	orig := ColorMap{"w1": "#1f77b4"}
	clone := orig.Clone()
	clone["w2"] = "#ff7f0e"

	if _, ok := orig["w2"]; ok {
		t.Error("Clone shares storage with the original")
	}
	if clone["w1"] != "#1f77b4" {
		t.Errorf("clone lost entries: %v", clone)
	}
}
