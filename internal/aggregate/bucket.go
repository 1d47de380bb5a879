package aggregate

import (
	"fmt"

	"github.com/yourorg/staking-dashboard/internal/model"
)

// MaxChartPoints is the default display budget for a single chart.
const MaxChartPoints = 100

// Bucketize down-samples a dense epoch series to at most maxPoints buckets.
// Rewards are additive, so merged rows are summed per wallet (never
// averaged): the grand total over the window is preserved and the
// area-under-curve reading of the chart stays honest. Each bucket is keyed
// by the last epoch of its chunk so the x-axis remains monotonic.
//
// When the series already fits the budget, every row becomes its own
// single-epoch bucket.
func Bucketize(rows []model.EpochRow, wallets []string, maxPoints int) []model.Bucket {
	if maxPoints < 1 {
		maxPoints = 1
	}
	if len(rows) == 0 {
		return []model.Bucket{}
	}

	if len(rows) <= maxPoints {
		buckets := make([]model.Bucket, len(rows))
		for i, row := range rows {
			buckets[i] = model.Bucket{
				Epoch:  row.Epoch,
				Label:  fmt.Sprintf("Epoch %d", row.Epoch),
				Values: copyValues(row.Values, wallets),
			}
		}
		return buckets
	}

	bucketSize := (len(rows) + maxPoints - 1) / maxPoints

	buckets := make([]model.Bucket, 0, (len(rows)+bucketSize-1)/bucketSize)
	for start := 0; start < len(rows); start += bucketSize {
		end := start + bucketSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		values := make(map[string]float64, len(wallets))
		for _, row := range chunk {
			for _, w := range wallets {
				values[w] += row.Values[w]
			}
		}

		first, last := chunk[0].Epoch, chunk[len(chunk)-1].Epoch
		label := fmt.Sprintf("Epoch %d", last)
		if len(chunk) > 1 {
			label = fmt.Sprintf("Epochs %d–%d", first, last)
		}

		buckets = append(buckets, model.Bucket{Epoch: last, Label: label, Values: values})
	}
	return buckets
}

// CumulativeBuckets converts bucketized per-epoch values into running
// totals, for the cumulative chart when the window exceeds the display
// budget. Because buckets are sum-preserving, the final value equals the
// full-resolution cumulative total.
func CumulativeBuckets(buckets []model.Bucket, wallets []string) []model.Bucket {
	out := make([]model.Bucket, len(buckets))
	running := make(map[string]float64, len(wallets))

	for i, b := range buckets {
		values := make(map[string]float64, len(wallets))
		for _, w := range wallets {
			running[w] += b.Values[w]
			values[w] = running[w]
		}
		out[i] = model.Bucket{Epoch: b.Epoch, Label: b.Label, Values: values}
	}
	return out
}

func copyValues(values map[string]float64, wallets []string) map[string]float64 {
	out := make(map[string]float64, len(wallets))
	for _, w := range wallets {
		out[w] = values[w]
	}
	return out
}
