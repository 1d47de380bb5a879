// Package export projects the aggregated reward data into the two-sheet
// spreadsheet the dashboard offers for download.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/yourorg/staking-dashboard/internal/aggregate"
	"github.com/yourorg/staking-dashboard/internal/model"
)

// Sheet names
const (
	RewardsSheet = "Rewards per epoch"
	SummarySheet = "Summary"
)

// Workbook holds both sheets as arrays-of-arrays, header row first. The
// rendering layer (xlsx here, anything else elsewhere) stays separate from
// the projection.
type Workbook struct {
	RewardsPerEpoch [][]interface{}
	Summary         [][]interface{}
}

// FileName builds the download name from the given local date.
func FileName(now time.Time) string {
	return fmt.Sprintf("staking-rewards-export-%s.xlsx", now.Format("2006-01-02"))
}

// ShortenAddress compacts a long address for column headers.
func ShortenAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:8] + "..." + addr[len(addr)-4:]
}

// Build produces both sheets from the aggregation input.
//
// "Rewards per epoch" has one row per observed (epoch, wallet) pair, sorted
// ascending by epoch then wallet, with one column per provider holding the
// wallet's effective reward at that epoch. Absent cells are 0.
//
// "Summary" has one row per selected wallet (selection order) with
// per-provider totals across all epochs and a final grand total.
func Build(in model.AggregationInput) Workbook {
	providers := providerUnion(in)

	rewardsHeader := make([]interface{}, 0, len(providers)+2)
	rewardsHeader = append(rewardsHeader, "Epoch", "Wallet")
	summaryHeader := make([]interface{}, 0, len(providers)+2)
	summaryHeader = append(summaryHeader, "Wallet")
	for _, p := range providers {
		rewardsHeader = append(rewardsHeader, ShortenAddress(p))
		summaryHeader = append(summaryHeader, ShortenAddress(p))
	}
	summaryHeader = append(summaryHeader, "Total")

	wb := Workbook{
		RewardsPerEpoch: [][]interface{}{rewardsHeader},
		Summary:         [][]interface{}{summaryHeader},
	}

	// wallet -> epoch -> provider -> effective reward
	type cellKey struct {
		epoch    int64
		provider string
	}
	perWallet := make(map[string]map[cellKey]decimal.Decimal, len(in.SelectedWallets))
	for _, wallet := range in.SelectedWallets {
		resp, ok := in.Responses[wallet]
		if !ok {
			continue
		}
		cells := make(map[cellKey]decimal.Decimal)
		for provider, records := range resp.ProvidersFullRewardsData {
			for _, rec := range records {
				k := cellKey{epoch: rec.Epoch, provider: provider}
				cells[k] = cells[k].Add(aggregate.EffectiveReward(rec, wallet, provider, in.ProviderOwners))
			}
		}
		perWallet[wallet] = cells
	}

	// Rewards per epoch: observed (epoch, wallet) pairs only.
	type pair struct {
		epoch  int64
		wallet string
	}
	pairSet := make(map[pair]struct{})
	for wallet, cells := range perWallet {
		for k := range cells {
			pairSet[pair{epoch: k.epoch, wallet: wallet}] = struct{}{}
		}
	}
	pairs := make([]pair, 0, len(pairSet))
	for p := range pairSet {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].epoch != pairs[j].epoch {
			return pairs[i].epoch < pairs[j].epoch
		}
		return pairs[i].wallet < pairs[j].wallet
	})

	for _, p := range pairs {
		row := make([]interface{}, 0, len(providers)+2)
		row = append(row, p.epoch, p.wallet)
		for _, provider := range providers {
			v := perWallet[p.wallet][cellKey{epoch: p.epoch, provider: provider}]
			row = append(row, v.InexactFloat64())
		}
		wb.RewardsPerEpoch = append(wb.RewardsPerEpoch, row)
	}

	// Summary: per-provider totals and grand total, selection order.
	for _, wallet := range in.SelectedWallets {
		row := make([]interface{}, 0, len(providers)+2)
		row = append(row, wallet)
		total := decimal.Zero
		for _, provider := range providers {
			sum := decimal.Zero
			for k, v := range perWallet[wallet] {
				if k.provider == provider {
					sum = sum.Add(v)
				}
			}
			total = total.Add(sum)
			row = append(row, sum.InexactFloat64())
		}
		row = append(row, total.InexactFloat64())
		wb.Summary = append(wb.Summary, row)
	}

	return wb
}

// providerUnion collects the sorted union of provider addresses observed
// across the selection.
func providerUnion(in model.AggregationInput) []string {
	set := make(map[string]struct{})
	for _, wallet := range in.SelectedWallets {
		resp, ok := in.Responses[wallet]
		if !ok {
			continue
		}
		for provider := range resp.ProvidersFullRewardsData {
			set[provider] = struct{}{}
		}
	}
	providers := make([]string, 0, len(set))
	for p := range set {
		providers = append(providers, p)
	}
	sort.Strings(providers)
	return providers
}

// WriteXLSX renders the workbook to xlsx bytes.
func WriteXLSX(wb Workbook) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSheet(f, RewardsSheet, wb.RewardsPerEpoch); err != nil {
		return nil, err
	}
	if err := writeSheet(f, SummarySheet, wb.Summary); err != nil {
		return nil, err
	}
	// Drop the default sheet excelize creates.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, name string, rows [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
