package uno

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/protocol"
)

func newTestRoom(t *testing.T, ids ...string) (*Module, *game.Room, *game.RecordingOutbox) {
	t.Helper()
	m := New()
	r := game.NewRoom("r1", GameID, m.NewSettings(game.JoinOptions{}))
	game.SeatPlayers(r, m, ids...)
	return m, r, &game.RecordingOutbox{}
}

func act(m *Module, out game.Outbox, r *game.Room, action, sender string, data any) game.Result {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	return m.Handlers()[action](out, r, sender, raw)
}

func TestModule_Info(t *testing.T) {
	t.Parallel()

	info := New().Info()
	assert.Equal(t, "uno", info.ID)
	assert.Equal(t, 6, info.MaxPlayers)
}

func TestStartGame_Rules(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a")
	res := act(m, out, r, "start_game", "a", nil)
	assert.ErrorIs(t, res.Err, apperrors.ErrNotEnoughPlayers)

	game.SeatPlayers(r, m, "b")
	res = act(m, out, r, "start_game", "b", nil)
	assert.ErrorIs(t, res.Err, apperrors.ErrNotHost)

	res = act(m, out, r, "start_game", "a", nil)
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, game.PhasePlaying, r.Phase)
	require.NotNil(t, RoundOf(r))

	hands := out.OfType(protocol.MsgHandUpdate)
	assert.Len(t, hands, 2, "开局给每个人私发手牌")

	res = act(m, out, r, "start_game", "a", nil)
	assert.ErrorIs(t, res.Err, apperrors.ErrGameStarted)
}

func TestActions_RequirePlaying(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	for _, action := range []string{"play_card", "draw_card", "pass_turn", "call_uno", "challenge_uno", "get_hand"} {
		res := act(m, out, r, action, "a", nil)
		assert.Equal(t, game.OutcomeRejected, res.Outcome, action)
		assert.ErrorIs(t, res.Err, apperrors.ErrGameNotStart, action)
	}
}

func TestGetHand_Unchanged(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	act(m, out, r, "start_game", "a", nil)
	out.Reset()

	res := act(m, out, r, "get_hand", "b", nil)
	assert.Equal(t, game.OutcomeUnchanged, res.Outcome)

	msgs := out.OfType(protocol.MsgHandUpdate)
	require.Len(t, msgs, 1)
	assert.Equal(t, "b", msgs[0].To)

	var payload HandUpdatePayload
	require.NoError(t, json.Unmarshal(msgs[0].Msg.Payload, &payload))
	assert.Len(t, payload.Hand, DefaultStartingCards)
}

func TestPlayCard_TwoPlayerReverseToast(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	r.Phase = game.PhasePlaying
	r.State = fixedRound(map[string][]Card{
		"a": {{Color: Red, Value: ValueReverse}, num(Red, "1")},
		"b": {num(Green, "1")},
	}, []string{"a", "b"}, num(Red, "5"), nil)

	res := act(m, out, r, "play_card", "a", playCardData{Card: Card{Color: Red, Value: ValueReverse}})
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, "a", RoundOf(r).CurrentPlayer())
	assert.NotEmpty(t, out.OfType(protocol.MsgToast))
}

func TestPlayCard_RoundWinScoresAndReturnsToWaiting(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b", "c")
	r.Phase = game.PhasePlaying
	r.State = fixedRound(map[string][]Card{
		"a": {num(Red, "1")},
		"b": {num(Green, "9"), {Color: Green, Value: ValueSkip}},
		"c": {{Color: Wild, Value: ValueWild}},
	}, []string{"a", "b", "c"}, num(Red, "5"), nil)

	res := act(m, out, r, "play_card", "a", playCardData{Card: num(Red, "1")})
	require.Equal(t, game.OutcomeChanged, res.Outcome)

	assert.Equal(t, 9+20+50, r.Players[0].Score)
	assert.Equal(t, game.PhaseWaiting, r.Phase)
	assert.Nil(t, RoundOf(r), "一局结束后清空")
}

func TestPlayCard_TargetScoreEndsGame(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	r.Players[0].Score = 490
	r.Phase = game.PhasePlaying
	r.State = fixedRound(map[string][]Card{
		"a": {num(Red, "1")},
		"b": {{Color: Green, Value: ValueSkip}},
	}, []string{"a", "b"}, num(Red, "5"), nil)

	act(m, out, r, "play_card", "a", playCardData{Card: num(Red, "1")})

	assert.Equal(t, 510, r.Players[0].Score)
	assert.Equal(t, game.PhaseGameOver, r.Phase)
	assert.Equal(t, "a", game.Winner(m, r).ID)

	view := m.ViewPlayer(r, r.Players[1], r.Phase.Reveals()).(*PlayerView)
	assert.Len(t, view.Hand, 1, "结束后公开手牌")
}

func TestDrawCard_AutoPassWhenUnplayable(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	r.Phase = game.PhasePlaying
	r.State = fixedRound(map[string][]Card{
		"a": {num(Blue, "1")},
		"b": {num(Green, "1")},
	}, []string{"a", "b"}, num(Red, "5"), []Card{num(Yellow, "2")})

	res := act(m, out, r, "draw_card", "a", nil)
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, "b", RoundOf(r).CurrentPlayer())
	assert.NotEmpty(t, out.OfType(protocol.MsgToast))
}

func TestDrawCard_PlayableStaysOnTurn(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	r.Phase = game.PhasePlaying
	r.State = fixedRound(map[string][]Card{
		"a": {num(Blue, "1")},
		"b": {num(Green, "1")},
	}, []string{"a", "b"}, num(Red, "5"), []Card{num(Red, "2")})

	act(m, out, r, "draw_card", "a", nil)
	assert.Equal(t, "a", RoundOf(r).CurrentPlayer())

	res := act(m, out, r, "pass_turn", "a", nil)
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, "b", RoundOf(r).CurrentPlayer())
}

func TestCallUnoAndChallenge(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	r.Phase = game.PhasePlaying
	r.State = fixedRound(map[string][]Card{
		"a": {num(Blue, "1")},
		"b": {num(Green, "1"), num(Green, "2")},
	}, []string{"a", "b"}, num(Red, "5"), []Card{num(Red, "2"), num(Red, "3")})

	res := act(m, out, r, "challenge_uno", "b", challengeData{TargetID: "a"})
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, 3, RoundOf(r).HandSize("a"))

	res = act(m, out, r, "call_uno", "b", nil)
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	shouts := out.OfType(protocol.MsgUnoShouted)
	require.Len(t, shouts, 1)
	assert.Empty(t, shouts[0].To, "喊 UNO 广播给全房间")

	res = act(m, out, r, "challenge_uno", "a", challengeData{TargetID: "b"})
	assert.ErrorIs(t, res.Err, apperrors.ErrCannotChallenge)
}

func TestViewPlayer_HidesHand(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	act(m, out, r, "start_game", "a", nil)

	hidden := m.ViewPlayer(r, r.Players[1], false).(*PlayerView)
	assert.Equal(t, DefaultStartingCards, hidden.HandCount)
	assert.Nil(t, hidden.Hand)

	own := m.ViewPlayer(r, r.Players[1], true).(*PlayerView)
	assert.Len(t, own.Hand, DefaultStartingCards)

	state := m.ViewState(r, "a").(*StateView)
	assert.Equal(t, "a", state.CurrentPlayer)
}

func TestSerialize_RoundTrip(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b")
	act(m, out, r, "start_game", "a", nil)

	raw, err := m.Serialize(r)
	require.NoError(t, err)

	restored := game.NewRoom("r1", GameID, nil)
	require.NoError(t, m.Deserialize(restored, raw))
	require.NotNil(t, RoundOf(restored))
	assert.Equal(t, RoundOf(r).Data(), RoundOf(restored).Data())

	empty := game.NewRoom("r2", GameID, nil)
	raw, err = m.Serialize(empty)
	require.NoError(t, err)
	require.NoError(t, m.Deserialize(empty, raw))
	assert.Nil(t, RoundOf(empty))
}

func TestDecodeSettings(t *testing.T) {
	t.Parallel()

	m := New()
	s, err := m.DecodeSettings(json.RawMessage(`{"startingCards":5}`))
	require.NoError(t, err)
	assert.Equal(t, &Settings{StartingCards: 5, TargetScore: DefaultTargetScore}, s)

	s, err = m.DecodeSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, m.NewSettings(game.JoinOptions{}), s)

	_, err = m.DecodeSettings(json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestOnReconnect_RewritesEveryReference(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "old-a", "b")
	act(m, out, r, "start_game", "old-a", nil)
	require.NoError(t, RoundOf(r).CallUno("old-a"))
	out.Reset()

	r.Players[0].ID = "new-a"
	m.OnReconnect(out, r, "old-a", "new-a")

	assert.Equal(t, "new-a", RoundOf(r).CurrentPlayer())
	raw, err := m.Serialize(r)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "old-a")

	hands := out.OfType(protocol.MsgHandUpdate)
	require.Len(t, hands, 1)
	assert.Equal(t, "new-a", hands[0].To)
}

// plantCard 把 card 从牌堆或其他手牌换到 playerID 的第一张，总张数不变
func plantCard(t *testing.T, round *Round, playerID string, card Card) {
	t.Helper()
	hand := round.hands[playerID]
	require.NotEmpty(t, hand)
	if hand[0] == card {
		return
	}
	if i := slices.Index(round.deck, card); i >= 0 {
		round.deck[i], hand[0] = hand[0], round.deck[i]
		return
	}
	for id, other := range round.hands {
		if id == playerID {
			continue
		}
		if i := slices.Index(other, card); i >= 0 {
			other[i], hand[0] = hand[0], other[i]
			return
		}
	}
	t.Fatalf("找不到 %s", card)
}

func TestPlayCard_DrawTwoWithDealtHands(t *testing.T) {
	t.Parallel()

	m, r, out := newTestRoom(t, "a", "b", "c")
	require.Equal(t, game.OutcomeChanged, act(m, out, r, "start_game", "a", nil).Outcome)
	round := RoundOf(r)
	require.NotNil(t, round)
	require.Equal(t, "a", round.CurrentPlayer())
	for _, id := range []string{"a", "b", "c"} {
		require.Equal(t, DefaultStartingCards, round.HandSize(id))
	}
	require.Equal(t, len(NewDeck()), round.TotalCards())

	drawTwo := Card{Color: round.ActiveColor(), Value: ValueDrawTwo}
	plantCard(t, round, "a", drawTwo)
	out.Reset()

	res := act(m, out, r, "play_card", "a", playCardData{Card: drawTwo})
	require.Equal(t, game.OutcomeChanged, res.Outcome)

	assert.Equal(t, DefaultStartingCards-1, round.HandSize("a"))
	assert.Equal(t, DefaultStartingCards+2, round.HandSize("b"))
	assert.Equal(t, DefaultStartingCards, round.HandSize("c"))
	assert.Equal(t, "c", round.CurrentPlayer(), "被罚摸的下家跳过")
	assert.Equal(t, drawTwo, round.TopCard())
	assert.Equal(t, len(NewDeck()), round.TotalCards())
	assert.Len(t, out.OfType(protocol.MsgHandUpdate), 3)
}
