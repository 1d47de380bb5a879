// Package aggregate implements the pure aggregation pipeline that reshapes
// raw per-wallet, per-provider, per-epoch reward records into the derived
// views the dashboard serves: cross-wallet epoch rows, cumulative series,
// display buckets and global statistics. Every function is a pure function
// of its inputs and safe to recompute eagerly on any state change.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/yourorg/staking-dashboard/internal/model"
)

// EffectiveReward is the reward the viewing wallet actually earned from one
// record: the delegator reward plus, when the viewer owns the provider, the
// owner reward. Providers missing from the owner map are treated as not
// owned by the viewer.
func EffectiveReward(rec model.EpochReward, viewer, provider string, owners map[string]string) decimal.Decimal {
	v := rec.EpochUserRewards
	if owner, ok := owners[provider]; ok && owner == viewer {
		v = v.Add(rec.OwnerRewards)
	}
	return v
}

// SeriesPoint is one (epoch, value) observation of a per-provider series.
type SeriesPoint struct {
	Epoch int64           `json:"epoch"`
	Value decimal.Decimal `json:"value"`
}

// PerProviderSeries maps EffectiveReward over one wallet's stored history
// for one provider, preserving the stored epoch order. Missing epochs are
// not synthesized.
func PerProviderSeries(in model.AggregationInput, viewer, provider string) []SeriesPoint {
	resp, ok := in.Responses[viewer]
	if !ok {
		return nil
	}
	records := resp.ProvidersFullRewardsData[provider]
	if len(records) == 0 {
		return nil
	}

	series := make([]SeriesPoint, len(records))
	for i, rec := range records {
		series[i] = SeriesPoint{
			Epoch: rec.Epoch,
			Value: EffectiveReward(rec, viewer, provider, in.ProviderOwners),
		}
	}
	return series
}

// BuildEpochRows produces one row per epoch observed anywhere in the
// selection, with one column per selected wallet holding that wallet's
// effective reward summed across its providers. Column order follows the
// selection, rows ascend strictly by epoch, and rows where every wallet is
// zero are kept: they are semantically meaningful gaps. Runs in O(total
// observations).
func BuildEpochRows(in model.AggregationInput) []model.EpochRow {
	// wallet -> epoch -> summed effective reward
	perWallet := make(map[string]map[int64]decimal.Decimal, len(in.SelectedWallets))
	epochSet := make(map[int64]struct{})

	for _, wallet := range in.SelectedWallets {
		resp, ok := in.Responses[wallet]
		if !ok {
			continue
		}
		sums := make(map[int64]decimal.Decimal)
		for provider, records := range resp.ProvidersFullRewardsData {
			for _, rec := range records {
				epochSet[rec.Epoch] = struct{}{}
				sums[rec.Epoch] = sums[rec.Epoch].Add(EffectiveReward(rec, wallet, provider, in.ProviderOwners))
			}
		}
		perWallet[wallet] = sums
	}

	epochs := make([]int64, 0, len(epochSet))
	for e := range epochSet {
		epochs = append(epochs, e)
	}
	sort.Slice(epochs, func(i, j int) bool { return epochs[i] < epochs[j] })

	rows := make([]model.EpochRow, len(epochs))
	for i, e := range epochs {
		values := make(map[string]float64, len(in.SelectedWallets))
		for _, wallet := range in.SelectedWallets {
			values[wallet] = perWallet[wallet][e].InexactFloat64()
		}
		rows[i] = model.EpochRow{Epoch: e, Values: values}
	}
	return rows
}

// Cumulative converts per-epoch rows into running totals per wallet. The
// input is not mutated; epochs are copied unchanged.
func Cumulative(rows []model.EpochRow, wallets []string) []model.EpochRow {
	out := make([]model.EpochRow, len(rows))
	running := make(map[string]float64, len(wallets))

	for i, row := range rows {
		values := make(map[string]float64, len(wallets))
		for _, w := range wallets {
			running[w] += row.Values[w]
			values[w] = running[w]
		}
		out[i] = model.EpochRow{Epoch: row.Epoch, Values: values}
	}
	return out
}

// TotalPoint is one epoch's total across every selected wallet.
type TotalPoint struct {
	Epoch int64   `json:"epoch"`
	Total float64 `json:"total"`
}

// TotalSeries collapses the wallet columns of each row into a single total,
// before any bucketing. This is the series the global statistics windows
// operate on.
func TotalSeries(rows []model.EpochRow, wallets []string) []TotalPoint {
	series := make([]TotalPoint, len(rows))
	for i, row := range rows {
		var total float64
		for _, w := range wallets {
			total += row.Values[w]
		}
		series[i] = TotalPoint{Epoch: row.Epoch, Total: total}
	}
	return series
}

// Stats computes the global statistics for the selection. Grand totals are
// summed in decimal directly from the stored records so string-transported
// amounts are preserved exactly; the rolling windows are computed from the
// float64 total series, trailing by row count rather than epoch number.
func Stats(in model.AggregationInput, rows []model.EpochRow) model.GlobalStats {
	stats := model.GlobalStats{
		TotalRewardsPerWallet: make(map[string]decimal.Decimal, len(in.SelectedWallets)),
	}

	for _, wallet := range in.SelectedWallets {
		total := decimal.Zero
		if resp, ok := in.Responses[wallet]; ok {
			for provider, records := range resp.ProvidersFullRewardsData {
				for _, rec := range records {
					total = total.Add(EffectiveReward(rec, wallet, provider, in.ProviderOwners))
				}
			}
		}
		stats.TotalRewardsPerWallet[wallet] = total
		stats.TotalRewards = stats.TotalRewards.Add(total)
	}

	series := TotalSeries(rows, in.SelectedWallets)
	stats.Avg7, stats.MinMax7 = trailingWindow(series, 7)
	stats.Avg30, stats.MinMax30 = trailingWindow(series, 30)
	return stats
}

// trailingWindow averages and bounds the last n points by count. Shorter
// series use what is present; an empty series yields zeros.
func trailingWindow(series []TotalPoint, n int) (float64, model.MinMax) {
	if len(series) == 0 {
		return 0, model.MinMax{}
	}
	start := len(series) - n
	if start < 0 {
		start = 0
	}
	window := series[start:]

	sum := 0.0
	mm := model.MinMax{Min: window[0].Total, Max: window[0].Total}
	for _, p := range window {
		sum += p.Total
		if p.Total < mm.Min {
			mm.Min = p.Total
		}
		if p.Total > mm.Max {
			mm.Max = p.Total
		}
	}
	return sum / float64(len(window)), mm
}
