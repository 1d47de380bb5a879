// Package validation checks remote API payloads before they are handed to
// the record store, and wallet addresses before a fetch is issued. A shape
// violation is a parsing error; unknown extra fields are ignored upstream by
// the JSON decoder.
package validation

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
)

// ValidWalletAddress reports whether addr is a plausible wallet address.
func ValidWalletAddress(addr string) bool {
	return common.IsHexAddress(addr)
}

// WalletResponse validates the shape of a rewards payload: required fields
// present, non-negative epochs and rewards, and per-provider histories
// sorted ascending with unique epochs.
func WalletResponse(resp *model.WalletResponse) error {
	const op = "validation.WalletResponse"

	if resp == nil {
		return errs.Newf(errs.KindParsing, op, "empty response")
	}
	if resp.WalletAddress == "" {
		return errs.Newf(errs.KindParsing, op, "missing walletAddress")
	}
	if resp.CurrentEpoch < 0 {
		return errs.Newf(errs.KindParsing, op, "negative currentEpoch %d", resp.CurrentEpoch)
	}

	for provider, records := range resp.ProvidersFullRewardsData {
		if provider == "" {
			return errs.Newf(errs.KindParsing, op, "empty provider address in rewards data")
		}
		lastEpoch := int64(-1)
		for i, rec := range records {
			if rec.Epoch < 0 {
				return errs.Newf(errs.KindParsing, op, "provider %s: negative epoch %d", provider, rec.Epoch)
			}
			if rec.Epoch <= lastEpoch {
				return errs.Newf(errs.KindParsing, op,
					"provider %s: epochs not strictly ascending at index %d (%d after %d)",
					provider, i, rec.Epoch, lastEpoch)
			}
			lastEpoch = rec.Epoch
			if rec.EpochUserRewards.IsNegative() || rec.OwnerRewards.IsNegative() {
				return errs.Newf(errs.KindParsing, op, "provider %s epoch %d: negative reward", provider, rec.Epoch)
			}
		}
	}

	for _, info := range resp.ProvidersWithIdentityInfo {
		if info.ProviderAddress == "" {
			return errs.Newf(errs.KindParsing, op, "provider identity without provider address")
		}
		if info.OwnerAddress == "" {
			logrus.WithField("provider", info.ProviderAddress).Debug("Provider identity without owner address")
		}
	}

	return nil
}

// GovernanceVotes validates the governance distribution payload. Shares are
// fractions and must stay within [0,1].
func GovernanceVotes(g *model.GovernanceVotes) error {
	const op = "validation.GovernanceVotes"

	if g == nil {
		return errs.Newf(errs.KindParsing, op, "empty response")
	}
	if err := validateVoteSide(op, "yes", g.Yes); err != nil {
		return err
	}
	return validateVoteSide(op, "no", g.No)
}

func validateVoteSide(op, side string, votes []model.GovernanceVote) error {
	for i, v := range votes {
		if v.Address == "" {
			return errs.Newf(errs.KindParsing, op, "%s vote %d: missing address", side, i)
		}
		if v.Share < 0 || v.Share > 1 {
			return errs.Newf(errs.KindParsing, op, "%s vote %d: share %f out of [0,1]", side, i, v.Share)
		}
		if v.ShareTotal < 0 || v.ShareTotal > 1 {
			return errs.Newf(errs.KindParsing, op, "%s vote %d: shareTotal %f out of [0,1]", side, i, v.ShareTotal)
		}
	}
	return nil
}
