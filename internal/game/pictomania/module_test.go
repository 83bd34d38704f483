package pictomania

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
	m := New(nil)
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

// assign 固定每位玩家的符号和数字，所有人进入猜题阶段
func assign(r *game.Room, cards map[string]Guess) {
	for _, p := range r.Players {
		c := cards[p.ID]
		ps := PlayerStateOf(p)
		ps.SymbolCard = c.Symbol
		ps.NumberCard = c.Number
		p.IsDoneDrawing = true
	}
}

func guess(target, symbol string, number int) guessData {
	return guessData{TargetPlayerID: target, Symbol: symbol, Number: number}
}

func TestModule_NewSettings(t *testing.T) {
	t.Parallel()

	m := New(nil)
	s := m.NewSettings(game.JoinOptions{DrawTime: 90}).(*Settings)
	assert.Equal(t, 90, s.DrawTime)
	assert.Equal(t, DefaultTotalRounds, s.TotalRounds)

	s = m.NewSettings(game.JoinOptions{DrawTime: 5}).(*Settings)
	assert.Equal(t, DefaultDrawTime, s.DrawTime, "超出范围时使用默认值")
}

func TestModule_StartGame(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a")
	assert.ErrorIs(t, call(m, out, r, "start_game", "a", nil).Err, apperrors.ErrNotEnoughPlayers)

	game.SeatPlayers(r, m, "b", "c")
	res := call(m, out, r, "start_game", "a", map[string]int{"difficulty": 2})
	require.Equal(t, game.OutcomeChanged, res.Outcome)

	assert.Equal(t, game.PhasePlaying, r.Phase)
	assert.Equal(t, DefaultDrawTime, r.TimeLeft)
	assert.Equal(t, 2, r.Settings.(*Settings).Difficulty)

	st := StateOf(r)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.CurrentRound)
	assert.Len(t, st.WordCards, len(Symbols))

	for _, p := range r.Players {
		ps := PlayerStateOf(p)
		require.Contains(t, st.WordCards, ps.SymbolCard)
		assert.Equal(t, st.WordCards[ps.SymbolCard][ps.NumberCard-1], ps.TargetWord)
		assert.False(t, p.IsDoneDrawing)
	}

	assert.ErrorIs(t, call(m, out, r, "start_game", "a", nil).Err, apperrors.ErrGameStarted)
}

func TestModule_OnStart(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	call(m, out, r, "start_game", "a", nil)
	m.OnStart(out, r)

	msgs := out.OfType(protocol.MsgGameStarted)
	require.Len(t, msgs, 1)
	var payload GameStartedPayload
	require.NoError(t, json.Unmarshal(msgs[0].Msg.Payload, &payload))
	assert.Equal(t, StateOf(r).WordCards, payload.Cards)
}

func TestModule_GuessRules(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b", "c")
	call(m, out, r, "start_game", "a", nil)

	res := call(m, out, r, "guess_word", "a", guess("b", "star", 1))
	assert.ErrorIs(t, res.Err, errNotDoneDrawing)

	require.Equal(t, game.OutcomeChanged, call(m, out, r, "player_finish_drawing", "a", nil).Outcome)
	assert.Equal(t, game.OutcomeUnchanged, call(m, out, r, "player_finish_drawing", "a", nil).Outcome)

	assert.Equal(t, protocol.ErrCodeInvalidGuess, apperrors.CodeOf(call(m, out, r, "guess_word", "a", guess("b", "star", 8)).Err))
	assert.Equal(t, protocol.ErrCodeInvalidGuess, apperrors.CodeOf(call(m, out, r, "guess_word", "a", guess("b", "hexagon", 1)).Err))
	assert.ErrorIs(t, call(m, out, r, "guess_word", "a", guess("a", "star", 1)).Err, errGuessSelf)
	assert.ErrorIs(t, call(m, out, r, "guess_word", "a", guess("zzz", "star", 1)).Err, apperrors.ErrNotInRoom)

	require.Equal(t, game.OutcomeChanged, call(m, out, r, "guess_word", "a", guess("b", "star", 1)).Outcome)
	assert.ErrorIs(t, call(m, out, r, "guess_word", "a", guess("b", "moon", 2)).Err, errGuessLocked)
	assert.ErrorIs(t, call(m, out, r, "guess_word", "a", guess("c", "moon", 1)).Err, errNumberUsed)

	ps := PlayerStateOf(r.Player("a"))
	require.Len(t, ps.MyGuesses, 1)
	assert.EqualValues(t, 1, ps.MyGuesses[0].Seq)
	assert.False(t, ps.IsDoneGuessing)
}

func TestModule_RoundFlow(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b", "c")
	r.Settings.(*Settings).TotalRounds = 2
	call(m, out, r, "start_game", "a", nil)
	assign(r, map[string]Guess{
		"a": {Symbol: "star", Number: 1},
		"b": {Symbol: "moon", Number: 2},
		"c": {Symbol: "cloud", Number: 3},
	})

	// b 先猜中 a，c 后猜中 a，a 猜中 b
	call(m, out, r, "guess_word", "b", guess("a", "star", 1))
	call(m, out, r, "guess_word", "c", guess("a", "star", 1))
	call(m, out, r, "guess_word", "a", guess("b", "moon", 2))
	call(m, out, r, "guess_word", "a", guess("c", "moon", 4))
	assert.True(t, PlayerStateOf(r.Player("a")).IsDoneGuessing, "猜完所有对手后自动结束")
	assert.Equal(t, game.PhasePlaying, r.Phase)

	call(m, out, r, "player_finish_guessing", "b", nil)
	assert.Equal(t, game.PhasePlaying, r.Phase)
	out.Reset()
	call(m, out, r, "player_finish_guessing", "c", nil)

	require.Equal(t, game.PhaseRoundEnded, r.Phase)
	assert.Zero(t, r.TimeLeft)
	assert.Equal(t, 2, r.Player("a").Score, "猜中 b 得 2，自己的卡被拿光")
	assert.Equal(t, 2-1, r.Player("b").Score)
	assert.Equal(t, 1-3, r.Player("c").Score)
	assert.Equal(t, []string{"b", "c"}, PlayerStateOf(r.Player("a")).GuessedCorrectlyBy)
	assert.NotEmpty(t, out.OfType(protocol.MsgToast))

	st := StateOf(r)
	require.Len(t, st.History, 3)
	assert.Equal(t, "a", st.History[0].PlayerID)
	assert.Len(t, st.History[0].GuessedBy, 2)

	require.Equal(t, game.OutcomeChanged, call(m, out, r, "next_round", "b", nil).Outcome)
	assert.Equal(t, game.PhasePlaying, r.Phase)
	assert.Equal(t, 2, st.CurrentRound)
	assert.Equal(t, 2, r.Player("a").Score, "下一回合保留总分")

	for _, id := range []string{"a", "b", "c"} {
		call(m, out, r, "player_finish_guessing", id, nil)
	}
	assert.Equal(t, game.PhaseGameOver, r.Phase, "达到总回合数后结束")

	require.Equal(t, game.OutcomeChanged, call(m, out, r, "start_game", "a", nil).Outcome)
	assert.Equal(t, 1, StateOf(r).CurrentRound)
	assert.Zero(t, r.Player("a").Score, "新一局清零")
}

func TestModule_UploadImage(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	res := call(m, out, r, "upload_image", "a", protocol.UploadImagePayload{ImageBase64: "data:image/png;base64,x"})
	assert.ErrorIs(t, res.Err, apperrors.ErrGameNotStart)

	call(m, out, r, "start_game", "a", nil)
	out.Reset()

	res = call(m, out, r, "upload_image", "a", protocol.UploadImagePayload{})
	assert.ErrorIs(t, res.Err, apperrors.ErrInvalidPayload)
	big := make([]byte, maxImageSize+1)
	res = call(m, out, r, "upload_image", "a", protocol.UploadImagePayload{ImageBase64: string(big)})
	assert.ErrorIs(t, res.Err, errImageTooLarge)

	first := "data:image/png;base64,first"
	res = call(m, out, r, "upload_image", "a", protocol.UploadImagePayload{ImageBase64: first})
	assert.Equal(t, game.OutcomeUnchanged, res.Outcome)
	call(m, out, r, "upload_image", "a", protocol.UploadImagePayload{ImageBase64: "data:image/png;base64,again"})

	canvases := out.OfType(protocol.MsgUpdateCanvas)
	require.Len(t, canvases, 1, "同一回合只广播第一次上传")
	assert.Empty(t, canvases[0].To)
	var payload protocol.UpdateCanvasPayload
	require.NoError(t, json.Unmarshal(canvases[0].Msg.Payload, &payload))
	assert.Equal(t, protocol.UpdateCanvasPayload{PlayerID: "a", ImageBase64: first}, payload)

	// 回合结算后 b 才上传，直接补进历史记录
	for _, id := range []string{"a", "b"} {
		r.Player(id).IsDoneDrawing = true
		call(m, out, r, "player_finish_guessing", id, nil)
	}
	require.NotEqual(t, game.PhasePlaying, r.Phase)
	call(m, out, r, "upload_image", "b", protocol.UploadImagePayload{ImageBase64: "data:image/png;base64,late"})

	st := StateOf(r)
	require.Len(t, st.History, 2)
	assert.Equal(t, first, st.History[0].ImageBase64)
	assert.Equal(t, r.Player("a").Color, st.History[0].PlayerColor)
	assert.Equal(t, "data:image/png;base64,late", st.History[1].ImageBase64)

	call(m, out, r, "next_round", "a", nil)
	assert.Empty(t, PlayerStateOf(r.Player("a")).Drawing, "新回合重新收画作")
}

func TestModule_OnTimeout(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	assert.Equal(t, game.OutcomeUnchanged, m.OnTimeout(out, r).Outcome)

	call(m, out, r, "start_game", "a", nil)
	out.Reset()
	res := m.OnTimeout(out, r)
	assert.Equal(t, game.OutcomeChanged, res.Outcome)
	for _, p := range r.Players {
		assert.True(t, p.IsDoneDrawing)
	}
	assert.Len(t, out.OfType(protocol.MsgToast), 1)
	assert.Equal(t, game.PhasePlaying, r.Phase, "超时后仍在猜题")
}

func TestModule_OnDisconnect(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b", "c")
	call(m, out, r, "start_game", "a", nil)
	call(m, out, r, "player_finish_guessing", "a", nil)
	call(m, out, r, "player_finish_guessing", "b", nil)

	r.Player("c").Disconnected = true
	res := m.OnDisconnect(out, r, "c")
	assert.Equal(t, game.OutcomeChanged, res.Outcome)
	assert.Equal(t, game.PhaseRoundEnded, r.Phase)
}

func TestModule_OnLeave(t *testing.T) {
	t.Parallel()

	t.Run("剩余玩家继续", func(t *testing.T) {
		t.Parallel()
		m, r, out := setup(t, "a", "b", "c")
		call(m, out, r, "start_game", "a", nil)
		assign(r, map[string]Guess{
			"a": {Symbol: "star", Number: 1},
			"b": {Symbol: "moon", Number: 2},
			"c": {Symbol: "cloud", Number: 3},
		})
		call(m, out, r, "guess_word", "a", guess("c", "cloud", 3))
		call(m, out, r, "player_finish_guessing", "b", nil)

		r.RemoveByAnchor("c")
		res := m.OnLeave(out, r, "c")
		assert.Equal(t, game.OutcomeChanged, res.Outcome)
		assert.Empty(t, PlayerStateOf(r.Player("a")).MyGuesses, "对离开玩家的猜测被移除")
		assert.Equal(t, []string{"a", "b"}, StateOf(r).Round.Players())
		assert.Equal(t, game.PhasePlaying, r.Phase)
	})

	t.Run("人数不足", func(t *testing.T) {
		t.Parallel()
		m, r, out := setup(t, "a", "b")
		call(m, out, r, "start_game", "a", nil)

		r.RemoveByAnchor("b")
		m.OnLeave(out, r, "b")
		assert.Equal(t, game.PhaseWaiting, r.Phase)
		assert.Nil(t, StateOf(r))
	})
}

func TestModule_OnReconnect(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a-old", "b", "c")
	r.Player("a-old").Username = "alice"
	call(m, out, r, "start_game", "b", nil)
	assign(r, map[string]Guess{
		"a-old": {Symbol: "star", Number: 1},
		"b":     {Symbol: "moon", Number: 2},
		"c":     {Symbol: "cloud", Number: 3},
	})
	call(m, out, r, "guess_word", "a-old", guess("b", "moon", 2))
	call(m, out, r, "guess_word", "b", guess("a-old", "star", 1))
	call(m, out, r, "guess_word", "c", guess("a-old", "star", 1))
	call(m, out, r, "player_finish_guessing", "a-old", nil)
	call(m, out, r, "player_finish_guessing", "b", nil)
	call(m, out, r, "player_finish_guessing", "c", nil)
	require.Equal(t, game.PhaseRoundEnded, r.Phase)
	call(m, out, r, "next_round", "b", nil)
	assign(r, map[string]Guess{
		"a-old": {Symbol: "star", Number: 1},
		"b":     {Symbol: "moon", Number: 2},
		"c":     {Symbol: "cloud", Number: 3},
	})
	call(m, out, r, "guess_word", "b", guess("a-old", "star", 1))

	r.Player("a-old").ID = "a-new"
	m.OnReconnect(out, r, "a-old", "a-new")

	raw, err := m.Serialize(r)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "a-old")

	res := call(m, out, r, "guess_word", "a-new", guess("b", "moon", 2))
	assert.Equal(t, game.OutcomeChanged, res.Outcome, "新 ID 可以继续猜")
}

func TestModule_UpdateSettings(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	assert.ErrorIs(t, call(m, out, r, "update_settings", "b", map[string]int{"drawTime": 30}).Err, apperrors.ErrNotHost)

	res := call(m, out, r, "update_settings", "a", map[string]int{"drawTime": 30, "totalRounds": 3})
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	s := r.Settings.(*Settings)
	assert.Equal(t, 30, s.DrawTime)
	assert.Equal(t, 3, s.TotalRounds)

	assert.Equal(t, game.OutcomeRejected, call(m, out, r, "update_settings", "a", map[string]int{"drawTime": 1}).Outcome)
	assert.Equal(t, game.OutcomeRejected, call(m, out, r, "update_settings", "a", map[string]int{"difficulty": 9}).Outcome)
	assert.Equal(t, 30, s.DrawTime, "拒绝时不修改")

	call(m, out, r, "start_game", "a", nil)
	assert.ErrorIs(t, call(m, out, r, "update_settings", "a", map[string]int{"drawTime": 40}).Err, apperrors.ErrGameStarted)
}

func TestModule_Views(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b")
	call(m, out, r, "start_game", "a", nil)

	hidden := m.ViewPlayer(r, r.Player("a"), false).(*PlayerView)
	assert.Empty(t, hidden.TargetWord)
	assert.Empty(t, hidden.SymbolCard)
	assert.Zero(t, hidden.NumberCard)

	shown := m.ViewPlayer(r, r.Player("a"), true).(*PlayerView)
	assert.NotEmpty(t, shown.TargetWord)

	view := m.ViewState(r, "a").(*StateView)
	assert.Equal(t, []int{3}, view.ScoreCards["a"])
}

func TestModule_SerializeRoundTrip(t *testing.T) {
	t.Parallel()

	m, r, out := setup(t, "a", "b", "c")
	call(m, out, r, "start_game", "a", nil)
	call(m, out, r, "player_finish_drawing", "b", nil)

	raw, err := m.Serialize(r)
	require.NoError(t, err)

	restored := game.NewRoom("r1", GameID, nil)
	game.SeatPlayers(restored, nil, "a", "b", "c")
	require.NoError(t, m.Deserialize(restored, raw))

	st := StateOf(restored)
	require.NotNil(t, st)
	assert.Equal(t, StateOf(r).WordCards, st.WordCards)
	assert.Equal(t, StateOf(r).Round.Data(), st.Round.Data())
	assert.Equal(t, PlayerStateOf(r.Player("b")), PlayerStateOf(restored.Player("b")))

	empty := game.NewRoom("r2", GameID, nil)
	game.SeatPlayers(empty, nil, "a")
	require.NoError(t, m.Deserialize(empty, nil))
	assert.Nil(t, StateOf(empty))
	assert.NotNil(t, PlayerStateOf(empty.Player("a")))
}
