package colors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/staking-dashboard/internal/errs"
	"github.com/yourorg/staking-dashboard/internal/model"
)

// memStorage is an in-memory Storage double; failLoad simulates corruption.
type memStorage struct {
	data     model.ColorMap
	failLoad bool
	saves    int
}

func (m *memStorage) Load() (model.ColorMap, error) {
	if m.failLoad {
		return model.ColorMap{}, errs.Newf(errs.KindStorage, "memStorage.Load", "corrupt")
	}
	return m.data.Clone(), nil
}

func (m *memStorage) Save(c model.ColorMap) error {
	m.data = c.Clone()
	m.saves++
	return nil
}

func TestAssignFreshSelection(t *testing.T) {
	st := &memStorage{data: model.ColorMap{}}
	a := NewAssigner(st)

	got := a.Assign([]string{"a", "b", "c"})
	assert.Equal(t, model.ColorMap{
		"a": Palette[0],
		"b": Palette[1],
		"c": Palette[2],
	}, got)
	assert.Equal(t, 1, st.saves)
}

// A freed color is recycled: after "a" leaves, the new wallet "d" takes
// Palette[0] even though "a" still holds it in storage.
func TestAssignRecyclesFreedColors(t *testing.T) {
	st := &memStorage{data: model.ColorMap{}}
	a := NewAssigner(st)

	a.Assign([]string{"a", "b", "c"})
	got := a.Assign([]string{"b", "c", "d"})

	assert.Equal(t, model.ColorMap{
		"b": Palette[1],
		"c": Palette[2],
		"d": Palette[0],
	}, got)

	// The persisted map keeps the absent wallet's entry.
	assert.Equal(t, Palette[0], st.data["a"])
}

// Wallets that stay in the selection keep their colors across calls.
func TestAssignStability(t *testing.T) {
	st := &memStorage{data: model.ColorMap{}}
	a := NewAssigner(st)

	small := a.Assign([]string{"a", "b"})
	grown := a.Assign([]string{"a", "b", "c", "d"})

	for w, c := range small {
		assert.Equal(t, c, grown[w], "wallet %s changed color", w)
	}

	// Identical selection, identical output.
	again := a.Assign([]string{"a", "b", "c", "d"})
	assert.Equal(t, grown, again)
}

func TestAssignPaletteExhaustion(t *testing.T) {
	a := NewAssigner(&memStorage{data: model.ColorMap{}})

	selection := make([]string, len(Palette)+2)
	for i := range selection {
		selection[i] = string(rune('a' + i))
	}
	got := a.Assign(selection)

	// Wallets beyond the palette wrap to its start.
	assert.Equal(t, Palette[0], got[selection[len(Palette)]])
	assert.Equal(t, Palette[0], got[selection[len(Palette)+1]])
}

func TestOverride(t *testing.T) {
	st := &memStorage{data: model.ColorMap{}}
	a := NewAssigner(st)

	require.NoError(t, a.Override("a", "#123abc"))
	got := a.Assign([]string{"a", "b"})
	assert.Equal(t, "#123abc", got["a"])
	assert.Equal(t, "#123abc", st.data["a"])

	err := a.Override("a", "red")
	require.Error(t, err)
	assert.Equal(t, errs.KindParsing, errs.KindOf(err))
}

func TestReset(t *testing.T) {
	st := &memStorage{data: model.ColorMap{"a": "#123abc", "stale": "#ffffff"}}
	a := NewAssigner(st)

	got := a.Reset([]string{"a", "b"})
	assert.Equal(t, model.ColorMap{
		"a": Palette[0],
		"b": Palette[1],
	}, got)

	// Reset discards stored choices, stale entries included.
	_, ok := st.data["stale"]
	assert.False(t, ok)
}

// A corrupt store must not prevent startup; assignment starts empty.
func TestCorruptStorageStartsEmpty(t *testing.T) {
	a := NewAssigner(&memStorage{failLoad: true})
	got := a.Assign([]string{"a"})
	assert.Equal(t, Palette[0], got["a"])
}

func TestPaletteSize(t *testing.T) {
	assert.GreaterOrEqual(t, len(Palette), 15)
	seen := map[string]bool{}
	for _, c := range Palette {
		assert.False(t, seen[c], "duplicate palette color %s", c)
		seen[c] = true
	}
}
