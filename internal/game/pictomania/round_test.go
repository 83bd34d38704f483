package pictomania

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/apperrors"
)

func TestScoreCards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		players int
		want    []int
	}{
		{2, []int{3}},
		{3, []int{2, 1}},
		{4, []int{2, 1, 1}},
		{5, []int{3, 2, 1, 1}},
		{6, []int{3, 2, 1, 1, 1}},
		{8, []int{1, 1, 1, 1, 1, 1, 1}},
		{1, []int{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreCards(tt.players), "players=%d", tt.players)
	}
}

func TestRound_SetGuess(t *testing.T) {
	t.Parallel()

	r := NewRound([]string{"a", "b", "c"})

	assert.ErrorIs(t, r.SetGuess("a", "a", 1), errGuessSelf)
	assert.ErrorIs(t, r.SetGuess("x", "b", 1), apperrors.ErrNotInRoom)
	assert.ErrorIs(t, r.SetGuess("a", "x", 1), apperrors.ErrNotInRoom)

	require.NoError(t, r.SetGuess("a", "b", 4))
	assert.ErrorIs(t, r.SetGuess("a", "b", 5), errGuessLocked, "一旦猜过就锁定")
	assert.ErrorIs(t, r.SetGuess("a", "c", 4), errNumberUsed)
	require.NoError(t, r.SetGuess("a", "c", 2))
	require.NoError(t, r.SetGuess("b", "c", 4), "不同猜者可以用同一个数字")

	n, ok := r.Guess("a", "b")
	assert.True(t, ok)
	assert.Equal(t, 4, n)
}

func TestRound_ProcessGuessOrder(t *testing.T) {
	t.Parallel()

	r := NewRound([]string{"a", "b", "c", "d"})

	assert.Equal(t, 0, r.ProcessGuess("b", "a", false))
	assert.Equal(t, 2, r.ProcessGuess("c", "a", true), "第一个猜中拿最大的卡")
	assert.Equal(t, 1, r.ProcessGuess("b", "a", true))
	assert.Equal(t, 1, r.ProcessGuess("d", "a", true))
	assert.Equal(t, 0, r.ProcessGuess("d", "a", true), "卡用完后不再得分")

	history := r.History("a")
	require.Len(t, history, 4)
	assert.Equal(t, "c", history[0].GuesserID)
	assert.Equal(t, 1, history[0].Order)
	assert.Equal(t, 4, history[3].Order)
	assert.Empty(t, r.ScoreCardsOf("a"))
}

func TestRound_FinalScores(t *testing.T) {
	t.Parallel()

	t.Run("剩余得分卡扣分", func(t *testing.T) {
		t.Parallel()
		r := NewRound([]string{"a", "b", "c"})
		r.ProcessGuess("b", "a", true)
		r.ProcessGuess("c", "a", true)
		r.ProcessGuess("a", "b", true)

		final := r.FinalScores()
		assert.Equal(t, 2, final["a"], "得 2，自己的卡被拿光")
		assert.Equal(t, 2-1, final["b"], "得 2，剩一张 1 分卡")
		assert.Equal(t, 1-3, final["c"], "得 1，剩 2+1")
	})

	t.Run("两人局不扣分", func(t *testing.T) {
		t.Parallel()
		r := NewRound([]string{"a", "b"})
		r.ProcessGuess("a", "b", true)

		final := r.FinalScores()
		assert.Equal(t, 3, final["a"])
		assert.Equal(t, 0, final["b"])
	})
}

func TestRound_RemovePlayer(t *testing.T) {
	t.Parallel()

	r := NewRound([]string{"a", "b", "c"})
	require.NoError(t, r.SetGuess("a", "c", 3))
	require.NoError(t, r.SetGuess("c", "a", 1))
	r.ProcessGuess("c", "a", true)

	r.RemovePlayer("c")

	assert.Equal(t, []string{"a", "b"}, r.Players())
	_, ok := r.Guess("a", "c")
	assert.False(t, ok)
	assert.Empty(t, r.History("a"))
	assert.NotContains(t, r.FinalScores(), "c")
}

func TestRound_Rebind(t *testing.T) {
	t.Parallel()

	r := NewRound([]string{"a-old", "b", "c"})
	require.NoError(t, r.SetGuess("a-old", "b", 2))
	require.NoError(t, r.SetGuess("b", "a-old", 5))
	r.ProcessGuess("a-old", "b", true)
	r.ProcessGuess("b", "a-old", true)

	r.Rebind("a-old", "a-new")

	raw, err := json.Marshal(r.Data())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "a-old")

	n, ok := r.Guess("b", "a-new")
	assert.True(t, ok)
	assert.Equal(t, 5, n)
	assert.Equal(t, "a-new", r.History("b")[0].GuesserID)
	assert.Equal(t, 2-1, r.FinalScores()["a-new"], "得 2 分，剩一张 1 分卡")
}

func TestRound_DataRoundTrip(t *testing.T) {
	t.Parallel()

	r := NewRound([]string{"a", "b", "c"})
	require.NoError(t, r.SetGuess("a", "b", 2))
	r.ProcessGuess("a", "b", true)

	raw, err := json.Marshal(r.Data())
	require.NoError(t, err)

	var d RoundData
	require.NoError(t, json.Unmarshal(raw, &d))
	restored := RoundFromData(&d)

	assert.Equal(t, r.Data(), restored.Data())
	assert.ErrorIs(t, restored.SetGuess("a", "b", 3), errGuessLocked)
}

func TestNewMemoryWords(t *testing.T) {
	t.Parallel()

	w := NewMemoryWords(map[int][][]string{
		3: {{"1", "2", "3", "4", "5", "6", "7", "8"}, {"太短"}},
		1: {{"a", "b", "c", "d", "e", "f", "g"}},
	})
	assert.Equal(t, []int{1, 3}, w.Levels())
	require.Len(t, w.Cards(3), 1)
	assert.Len(t, w.Cards(3)[0], WordsPerCard)

	for _, level := range DefaultWords().Levels() {
		assert.GreaterOrEqual(t, len(DefaultWords().Cards(level)), len(Symbols))
	}
}
