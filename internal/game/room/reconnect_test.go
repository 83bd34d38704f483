package room

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/game/pictomania"
	"github.com/palemoky/party-games/internal/game/take6"
	"github.com/palemoky/party-games/internal/game/uno"
	"github.com/palemoky/party-games/internal/protocol"
)

// startedRoom 房间里坐下 old-conn（锚点 anchor-a）和 b，然后开局
func startedRoom(t *testing.T, mod game.Module) *game.Room {
	t.Helper()
	r := game.NewRoom("r1", mod.Info().ID, mod.NewSettings(game.JoinOptions{}))
	game.SeatPlayers(r, mod, "old-conn", "b", "c")
	r.Players[0].AnchorID = "anchor-a"
	r.Players[0].Username = "Alice"

	res := mod.Handlers()["start_game"](&game.RecordingOutbox{}, r, "old-conn", nil)
	require.Equal(t, game.OutcomeChanged, res.Outcome)
	return r
}

func assertNoOldID(t *testing.T, mod game.Module, r *game.Room) {
	t.Helper()
	data, err := Snapshot(mod, r)
	require.NoError(t, err)
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "old-conn")
}

func TestBind_UnknownAnchor(t *testing.T) {
	t.Parallel()

	mod := uno.New()
	r := startedRoom(t, mod)

	oldID, ok := Bind(&game.RecordingOutbox{}, mod, r, "nobody", "new-conn")
	assert.False(t, ok)
	assert.Empty(t, oldID)
	assert.NotNil(t, r.Player("old-conn"))
}

func TestBind_Uno(t *testing.T) {
	t.Parallel()

	mod := uno.New()
	r := startedRoom(t, mod)
	r.Players[0].Disconnected = true
	round := uno.RoundOf(r)
	require.Equal(t, "old-conn", round.CurrentPlayer(), "房主先手")
	hand := round.Hand("old-conn")

	out := &game.RecordingOutbox{}
	oldID, ok := Bind(out, mod, r, "anchor-a", "new-conn")
	require.True(t, ok)
	assert.Equal(t, "old-conn", oldID)

	p := r.PlayerByAnchor("anchor-a")
	assert.Equal(t, "new-conn", p.ID)
	assert.False(t, p.Disconnected)
	assert.Equal(t, "new-conn", round.CurrentPlayer(), "回合指针跟随新 ID")
	assert.Equal(t, hand, round.Hand("new-conn"))
	assertNoOldID(t, mod, r)

	msgs := out.OfType(protocol.MsgHandUpdate)
	require.Len(t, msgs, 1)
	assert.Equal(t, "new-conn", msgs[0].To)
}

func TestBind_Take6(t *testing.T) {
	t.Parallel()

	mod := take6.New()
	r := startedRoom(t, mod)
	round := take6.RoundOf(r)
	card := round.Hand("old-conn")[0]
	res := mod.Handlers()["play_card"](&game.RecordingOutbox{}, r, "old-conn", json.RawMessage(`{"card":`+itoa(card)+`}`))
	require.Equal(t, game.OutcomeChanged, res.Outcome)

	_, ok := Bind(&game.RecordingOutbox{}, mod, r, "anchor-a", "new-conn")
	require.True(t, ok)
	assert.Equal(t, card, round.Selected("new-conn"))
	assertNoOldID(t, mod, r)
}

func TestBind_Pictomania(t *testing.T) {
	t.Parallel()

	mod := pictomania.New(nil)
	r := startedRoom(t, mod)
	out := &game.RecordingOutbox{}
	for _, p := range r.Players {
		p.IsDoneDrawing = true
	}
	target := pictomania.PlayerStateOf(r.Player("old-conn"))
	guess := func(sender, to, symbol string, number int) {
		raw, _ := json.Marshal(map[string]any{"targetPlayerId": to, "symbol": symbol, "number": number})
		res := mod.Handlers()["guess_word"](out, r, sender, raw)
		require.Equal(t, game.OutcomeChanged, res.Outcome)
	}
	guess("b", "old-conn", target.SymbolCard, target.NumberCard)
	guess("old-conn", "b", "star", 1)

	_, ok := Bind(out, mod, r, "anchor-a", "new-conn")
	require.True(t, ok)
	assertNoOldID(t, mod, r)

	n, found := pictomania.StateOf(r).Round.Guess("new-conn", "b")
	assert.True(t, found)
	assert.Equal(t, 1, n)
	assert.Equal(t, "new-conn", pictomania.PlayerStateOf(r.Player("b")).MyGuesses[0].TargetPlayerID)
}

func TestBind_SameID(t *testing.T) {
	t.Parallel()

	mod := uno.New()
	r := startedRoom(t, mod)
	out := &game.RecordingOutbox{}

	oldID, ok := Bind(out, mod, r, "anchor-a", "old-conn")
	assert.True(t, ok)
	assert.Equal(t, "old-conn", oldID)
	assert.Empty(t, out.Messages(), "ID 未变化时不调用模块")
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
