// Package colors assigns each wallet a stable chart color. Assignments are
// persisted so a wallet keeps its color across sessions; persistence
// failures are logged and never block assignment.
package colors

import (
	"regexp"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
)

// Palette is the fixed color rotation for wallet series.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728",
	"#9467bd", "#8c564b", "#e377c2", "#7f7f7f",
	"#bcbd22", "#17becf", "#aec7e8", "#ffbb78",
	"#98df8a", "#ff9896", "#c5b0d5", "#c49c94",
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Assigner keeps the persisted wallet->color map and derives assignments
// for the current selection. The in-memory map stays authoritative when the
// backing storage misbehaves.
type Assigner struct {
	mu      sync.Mutex
	storage Storage
	stored  model.ColorMap
}

// NewAssigner loads the persisted map best-effort: a corrupt or unreadable
// store logs a warning and starts empty.
func NewAssigner(storage Storage) *Assigner {
	stored, err := storage.Load()
	if err != nil {
		logrus.WithError(err).Warn("Color map load failed, starting empty")
		stored = model.ColorMap{}
	}
	if stored == nil {
		stored = model.ColorMap{}
	}
	return &Assigner{storage: storage, stored: stored}
}

// Assign returns a color per wallet of the selection, in selection order.
// Wallets already keyed in the persisted map reuse their color; new wallets
// take the first palette color not used by a wallet assigned earlier in the
// same call, wrapping to the start of the palette when exhausted. The
// persisted map keeps entries for wallets absent from the selection.
func (a *Assigner) Assign(selection []string) model.ColorMap {
	a.mu.Lock()
	defer a.mu.Unlock()

	assigned := make(model.ColorMap, len(selection))
	used := make(map[string]bool, len(selection))

	for _, wallet := range selection {
		color, ok := a.stored[wallet]
		if !ok {
			color = firstFree(used)
		}
		assigned[wallet] = color
		used[color] = true
	}

	a.mergeAndPersistLocked(assigned)
	return assigned
}

// Override pins an explicit color for a wallet.
func (a *Assigner) Override(wallet, color string) error {
	if !hexColorRe.MatchString(color) {
		return errs.Newf(errs.KindParsing, "colors.Override", "invalid hex color %q", color)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.mergeAndPersistLocked(model.ColorMap{wallet: color})
	return nil
}

// Reset discards every stored choice and re-derives colors by selection
// index, wrapping over the palette.
func (a *Assigner) Reset(selection []string) model.ColorMap {
	a.mu.Lock()
	defer a.mu.Unlock()

	assigned := make(model.ColorMap, len(selection))
	for i, wallet := range selection {
		assigned[wallet] = Palette[i%len(Palette)]
	}

	a.stored = assigned.Clone()
	a.persistLocked()
	return assigned
}

// firstFree picks the lowest-index palette color not yet used in this
// assignment round, falling back to the palette start when all are taken.
func firstFree(used map[string]bool) string {
	for _, c := range Palette {
		if !used[c] {
			return c
		}
	}
	return Palette[0]
}

func (a *Assigner) mergeAndPersistLocked(assigned model.ColorMap) {
	for wallet, color := range assigned {
		a.stored[wallet] = color
	}
	a.persistLocked()
}

func (a *Assigner) persistLocked() {
	if err := a.storage.Save(a.stored.Clone()); err != nil {
		logrus.WithError(err).Warn("Color map persist failed, in-memory state stays authoritative")
	}
}
