package take6

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/apperrors"
)

func orderedDeck() []int {
	deck := make([]int, DeckSize)
	for i := range deck {
		deck[i] = i + 1
	}
	return deck
}

func TestBullHeads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		card int
		want int
	}{
		{55, 7},
		{11, 5},
		{44, 5},
		{10, 3},
		{100, 3},
		{5, 2},
		{25, 2},
		{1, 1},
		{104, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BullHeads(tt.card), "card %d", tt.card)
	}
}

func TestNewRound_Deal(t *testing.T) {
	t.Parallel()

	r := NewRound([]string{"a", "b", "c"})
	seen := map[int]bool{}
	for _, pid := range []string{"a", "b", "c"} {
		hand := r.Hand(pid)
		assert.Len(t, hand, HandSize)
		assert.IsIncreasing(t, hand)
		for _, c := range hand {
			seen[c] = true
		}
	}
	for _, row := range r.Rows() {
		require.Len(t, row, 1)
		seen[row[0]] = true
	}
	assert.Len(t, seen, 3*HandSize+RowCount)
	assert.Equal(t, StageSelecting, r.Stage())
	assert.Equal(t, 1, r.Turn())
}

func TestSelect_Validation(t *testing.T) {
	t.Parallel()

	r := newRound([]string{"a", "b"}, orderedDeck())

	assert.ErrorIs(t, r.Select("ghost", 1), apperrors.ErrNotInRoom)
	assert.ErrorIs(t, r.Select("a", 50), apperrors.ErrCardNotInHand)
	require.NoError(t, r.Select("a", 5))
	assert.ErrorIs(t, r.Select("a", 6), errAlreadyPicked)
	assert.Equal(t, 5, r.Selected("a"))
	assert.Len(t, r.Hand("a"), HandSize-1)
}

func TestSelect_PlacesOnClosestLowerRow(t *testing.T) {
	t.Parallel()

	r := RoundFromData(&RoundData{
		Rows: [][]int{{10}, {20}, {30}, {40}},
		Players: map[string]*SeatData{
			"a": {Hand: []int{25, 90}},
			"b": {Hand: []int{35, 91}},
		},
		Order: []string{"a", "b"},
	})

	require.NoError(t, r.Select("a", 25))
	assert.Equal(t, StageSelecting, r.Stage(), "还有人没选时不结算")
	require.NoError(t, r.Select("b", 35))

	rows := r.Rows()
	assert.Equal(t, []int{20, 25}, rows[1])
	assert.Equal(t, []int{30, 35}, rows[2])
	assert.Equal(t, 2, r.Turn())
	assert.Equal(t, 0, r.Selected("a"))
}

func TestSelect_SixthCardTakesRow(t *testing.T) {
	t.Parallel()

	r := RoundFromData(&RoundData{
		Rows: [][]int{{1, 2, 3, 4, 5}, {60}, {70}, {80}},
		Players: map[string]*SeatData{
			"a": {Hand: []int{6, 99}},
			"b": {Hand: []int{81, 100}},
		},
		Order: []string{"a", "b"},
	})

	require.NoError(t, r.Select("a", 6))
	require.NoError(t, r.Select("b", 81))

	assert.Equal(t, []int{6}, r.Rows()[0])
	assert.Equal(t, 1+1+1+1+2, r.Score("a"))
	assert.Equal(t, []int{1, 2, 3, 4, 5}, r.ScorePile("a"))
	assert.Equal(t, []int{80, 81}, r.Rows()[3])
}

func TestChooseRow_BlockedCard(t *testing.T) {
	t.Parallel()

	r := RoundFromData(&RoundData{
		Rows: [][]int{{20, 55}, {30}, {40}, {50}},
		Players: map[string]*SeatData{
			"a": {Hand: []int{3, 99}},
			"b": {Hand: []int{5, 98}},
		},
		Order: []string{"a", "b"},
	})

	require.NoError(t, r.Select("a", 3))
	require.NoError(t, r.Select("b", 5))

	require.Equal(t, StageChoosingRow, r.Stage())
	require.NotNil(t, r.Blocked())
	assert.Equal(t, PendingCard{PlayerID: "a", Card: 3}, *r.Blocked())
	assert.ErrorIs(t, r.Select("a", 99), errNotSelecting)

	assert.ErrorIs(t, r.ChooseRow("b", 0), apperrors.ErrNotYourTurn)
	assert.ErrorIs(t, r.ChooseRow("a", 4), apperrors.ErrInvalidRow)
	assert.ErrorIs(t, r.ChooseRow("a", -1), apperrors.ErrInvalidRow)

	require.NoError(t, r.ChooseRow("a", 0))
	assert.Equal(t, 3+7, r.Score("a"))
	assert.Equal(t, []int{3, 5}, r.Rows()[0], "恢复结算后 5 放在 3 后面")
	assert.Equal(t, StageSelecting, r.Stage())
	assert.Nil(t, r.Blocked())

	assert.ErrorIs(t, r.ChooseRow("a", 0), apperrors.ErrInvalidRow)
}

func TestRound_GameOverLowestScoreWins(t *testing.T) {
	t.Parallel()

	r := RoundFromData(&RoundData{
		Rows: [][]int{{10, 11, 12, 13, 14}, {60}, {70}, {80}},
		Players: map[string]*SeatData{
			"a": {Hand: []int{15}},
			"b": {Hand: []int{81}},
		},
		Order: []string{"a", "b"},
	})

	require.NoError(t, r.Select("a", 15))
	require.NoError(t, r.Select("b", 81))

	assert.Equal(t, StageGameOver, r.Stage())
	assert.Equal(t, "b", r.Winner())
}

func TestFullGame_Completes(t *testing.T) {
	t.Parallel()

	players := []string{"a", "b", "c", "d"}
	r := NewRound(players)

	for r.Stage() != StageGameOver {
		switch r.Stage() {
		case StageSelecting:
			for _, pid := range players {
				hand := r.Hand(pid)
				require.NotEmpty(t, hand)
				require.NoError(t, r.Select(pid, hand[len(hand)-1]))
			}
		case StageChoosingRow:
			require.NoError(t, r.ChooseRow(r.Blocked().PlayerID, 0))
		}
	}
	assert.Equal(t, HandSize+1, r.Turn())
	assert.NotEmpty(t, r.Winner())
}

func TestRound_RemovePlayer(t *testing.T) {
	t.Parallel()

	r := newRound([]string{"a", "b", "c"}, orderedDeck())
	require.NoError(t, r.Select("a", 1))
	require.NoError(t, r.Select("b", 11))

	r.RemovePlayer("c")
	assert.Equal(t, []string{"a", "b"}, r.Players())
	require.Equal(t, StageChoosingRow, r.Stage(), "剩下的人都选完了，立即亮牌")
	assert.Equal(t, "a", r.Blocked().PlayerID)
}

func TestRound_RemoveBlockedPlayer(t *testing.T) {
	t.Parallel()

	r := RoundFromData(&RoundData{
		Rows: [][]int{{20}, {30}, {40}, {50}},
		Players: map[string]*SeatData{
			"a": {Hand: []int{3, 99}},
			"b": {Hand: []int{25, 98}},
			"c": {Hand: []int{26, 97}},
		},
		Order: []string{"a", "b", "c"},
	})
	for pid, c := range map[string]int{"a": 3, "b": 25, "c": 26} {
		require.NoError(t, r.Select(pid, c))
	}
	require.Equal(t, StageChoosingRow, r.Stage())

	r.RemovePlayer("a")
	assert.Equal(t, StageSelecting, r.Stage())
	assert.Equal(t, []int{20, 25, 26}, r.Rows()[0])
}

func TestRound_Rebind(t *testing.T) {
	t.Parallel()

	r := RoundFromData(&RoundData{
		Rows: [][]int{{20}, {30}, {40}, {50}},
		Players: map[string]*SeatData{
			"old": {Hand: []int{3, 99}},
			"b":   {Hand: []int{2, 98}},
			"c":   {Hand: []int{1, 97}},
		},
		Order: []string{"old", "b", "c"},
	})
	require.NoError(t, r.Select("old", 3))
	require.NoError(t, r.Select("b", 2))
	require.NoError(t, r.Select("c", 1))
	// 1 被卡住等待 c 选行，2、3（属于 b、old）还在待放置队列里
	require.Equal(t, StageChoosingRow, r.Stage())

	r.Rebind("old", "new")
	r.Rebind("c", "c2")

	assert.Equal(t, []string{"new", "b", "c2"}, r.Players())
	assert.Equal(t, "c2", r.Blocked().PlayerID)
	assert.Contains(t, r.Pending(), PendingCard{PlayerID: "new", Card: 3})
	assert.Equal(t, []int{99}, r.Hand("new"))

	raw, err := json.Marshal(r.Data())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"old"`)
	assert.NotContains(t, string(raw), `"c"`)

	require.NoError(t, r.ChooseRow("c2", 1))
	assert.Equal(t, StageSelecting, r.Stage())
}

func TestRoundData_RoundTrip(t *testing.T) {
	t.Parallel()

	r := NewRound([]string{"a", "b"})
	require.NoError(t, r.Select("a", r.Hand("a")[0]))

	raw, err := json.Marshal(r.Data())
	require.NoError(t, err)
	var d RoundData
	require.NoError(t, json.Unmarshal(raw, &d))

	restored := RoundFromData(&d)
	assert.Equal(t, r.Data(), restored.Data())
}
