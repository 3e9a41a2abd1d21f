package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(scores ...int) []Entry {
	out := make([]Entry, len(scores))
	for i, s := range scores {
		out[i] = Entry{ID: fmt.Sprintf("p%02d", i+1), Name: fmt.Sprintf("Panchayat %d", i+1), UtilizationScore: s}
	}
	return out
}

func ids(es []Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestRank(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	es := entries(40, 90, 10, 70, 55, 20, 85, 5)

	board := Rank(es, 3, 5, now)

	assert.Equal(t, 8, board.TotalPanchayats)
	assert.Equal(t, now, board.LastUpdated)

	require.Len(t, board.TopPerformers, 3)
	assert.Equal(t, []string{"p02", "p07", "p04"}, ids(board.TopPerformers))
	assert.Equal(t, MedalGold, board.TopPerformers[0].Medal)
	assert.Equal(t, MedalSilver, board.TopPerformers[1].Medal)
	assert.Equal(t, MedalBronze, board.TopPerformers[2].Medal)
	assert.Equal(t, []int{1, 2, 3}, []int{board.TopPerformers[0].Rank, board.TopPerformers[1].Rank, board.TopPerformers[2].Rank})

	// Worst first: ranks 8, 7, 6, 5, 4.
	require.Len(t, board.BottomPerformers, 5)
	assert.Equal(t, []string{"p08", "p03", "p06", "p01", "p05"}, ids(board.BottomPerformers))
	assert.Equal(t, 8, board.BottomPerformers[0].Rank)
	assert.Equal(t, 4, board.BottomPerformers[4].Rank)
	for _, e := range board.BottomPerformers {
		assert.Empty(t, e.Medal)
	}

	// Ranks are written back into the input slice.
	for i, e := range es {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestRank_TiesBrokenByID(t *testing.T) {
	es := []Entry{
		{ID: "c", UtilizationScore: 50},
		{ID: "a", UtilizationScore: 50},
		{ID: "b", UtilizationScore: 50},
		{ID: "d", UtilizationScore: 60},
	}
	board := Rank(es, 3, 5, time.Now())
	assert.Equal(t, []string{"d", "a", "b"}, ids(board.TopPerformers))
	assert.Equal(t, []string{"c", "b", "a", "d"}, ids(board.BottomPerformers))
}

func TestRank_Small(t *testing.T) {
	board := Rank(entries(12, 30), 3, 5, time.Now())
	assert.Len(t, board.TopPerformers, 2)
	assert.Len(t, board.BottomPerformers, 2)
	assert.Equal(t, "p01", board.BottomPerformers[0].ID)

	empty := Rank(nil, 3, 5, time.Now())
	assert.Empty(t, empty.TopPerformers)
	assert.Empty(t, empty.BottomPerformers)
	assert.Equal(t, 0, empty.TotalPanchayats)
}
