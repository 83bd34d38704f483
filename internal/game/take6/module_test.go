package take6

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/protocol"
)

func setup(t *testing.T, ids ...string) (*Module, *game.Room, *game.RecordingOutbox) {
	t.Helper()
	m := New()
	r := game.NewRoom("r1", GameID, m.NewSettings(game.JoinOptions{}))
	game.SeatPlayers(r, m, ids...)
	return m, r, &game.RecordingOutbox{}
}

func call(m *Module, out game.Outbox, r *game.Room, action, sender string, data any) game.Result {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	return m.Handlers()[action](out, r, sender, raw)
}

func TestModule_StartGame(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b", "c")
	assert.ErrorIs(t, call(m, out, r, "start_game", "b", nil).Err, apperrors.ErrNotHost)

	res := call(m, out, r, "start_game", "a", nil)
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, game.PhasePlaying, r.Phase)

	states := out.OfType(protocol.MsgUpdateState)
	require.Len(t, states, 3)
	for _, s := range states {
		var view PrivateState
		require.NoError(t, json.Unmarshal(s.Msg.Payload, &view))
		assert.Len(t, view.Hand, HandSize)
		assert.Len(t, view.Rows, RowCount)
	}
}

func TestModule_PlayAndChooseRow(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	r.Phase = game.PhasePlaying
	r.State = RoundFromData(&RoundData{
		Rows: [][]int{{20, 55}, {30}, {40}, {50}},
		Players: map[string]*SeatData{
			"a": {Hand: []int{3, 99}},
			"b": {Hand: []int{5, 98}},
		},
		Order: []string{"a", "b"},
	})

	assert.ErrorIs(t, call(m, out, r, "play_card", "a", playCardData{Card: 42}).Err, apperrors.ErrCardNotInHand)
	require.Equal(t, game.OutcomeChanged, call(m, out, r, "play_card", "a", playCardData{Card: 3}).Outcome)

	view := m.ViewPlayer(r, r.Players[0], false).(*PlayerView)
	assert.True(t, view.HasSelected)
	assert.Zero(t, view.SelectedCard, "别人看不到选了哪张")

	require.Equal(t, game.OutcomeChanged, call(m, out, r, "play_card", "b", playCardData{Card: 5}).Outcome)
	assert.Equal(t, StageChoosingRow, RoundOf(r).Stage())

	res := call(m, out, r, "choose_row", "a", nil)
	assert.ErrorIs(t, res.Err, apperrors.ErrInvalidRow)

	res = call(m, out, r, "choose_row", "a", map[string]int{"rowIndex": 0})
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, 10, r.Players[0].Score, "房间分数同步为牛头数")
}

func TestModule_GameOverAndWinner(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	r.Phase = game.PhasePlaying
	r.State = RoundFromData(&RoundData{
		Rows: [][]int{{10, 11, 12, 13, 14}, {60}, {70}, {80}},
		Players: map[string]*SeatData{
			"a": {Hand: []int{15}},
			"b": {Hand: []int{81}},
		},
		Order: []string{"a", "b"},
	})

	call(m, out, r, "play_card", "a", playCardData{Card: 15})
	call(m, out, r, "play_card", "b", playCardData{Card: 81})

	assert.Equal(t, game.PhaseGameOver, r.Phase)
	assert.Equal(t, "b", game.Winner(m, r).ID, "牛头最少者获胜")
}

func TestModule_GetState(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	assert.ErrorIs(t, call(m, out, r, "get_state", "a", nil).Err, apperrors.ErrGameNotStart)

	call(m, out, r, "start_game", "a", nil)
	out.Reset()

	res := call(m, out, r, "get_state", "b", nil)
	assert.Equal(t, game.OutcomeUnchanged, res.Outcome)
	msgs := out.OfType(protocol.MsgUpdateState)
	require.Len(t, msgs, 1)
	assert.Equal(t, "b", msgs[0].To)
}

func TestModule_OnLeave(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	call(m, out, r, "start_game", "a", nil)

	r.RemoveByAnchor("b")
	res := m.OnLeave(out, r, "b")
	assert.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, game.PhaseWaiting, r.Phase)
	assert.Nil(t, RoundOf(r))
}

func TestModule_OnReconnect(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a-old", "b")
	call(m, out, r, "start_game", "a-old", nil)
	call(m, out, r, "play_card", "a-old", playCardData{Card: RoundOf(r).Hand("a-old")[0]})
	out.Reset()

	r.Players[0].ID = "a-new"
	m.OnReconnect(out, r, "a-old", "a-new")

	raw, err := m.Serialize(r)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "a-old")
	assert.NotZero(t, RoundOf(r).Selected("a-new"))

	msgs := out.OfType(protocol.MsgUpdateState)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a-new", msgs[0].To)
}

func TestModule_SerializeRoundTrip(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	call(m, out, r, "start_game", "a", nil)

	raw, err := m.Serialize(r)
	require.NoError(t, err)

	restored := game.NewRoom("r1", GameID, nil)
	require.NoError(t, m.Deserialize(restored, raw))
	assert.Equal(t, RoundOf(r).Data(), RoundOf(restored).Data())
}
