// Package take6 实现誰是牛頭王（6 nimmt!）游戏模块。
package take6

import (
	"encoding/json"
	"fmt"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const (
	GameID     = "take6"
	maxPlayers = 10
)

// Settings 牛头王没有可调设置
type Settings struct{}

// PlayerView 玩家的游戏部分
type PlayerView struct {
	HandCount    int   `json:"handCount"`
	HasSelected  bool  `json:"hasSelected"`
	BullHeads    int   `json:"bullHeads"`
	ScorePile    []int `json:"scorePile"`
	Hand         []int `json:"hand,omitempty"`
	SelectedCard int   `json:"selectedCard,omitempty"`
}

// StateView 牌桌公共状态
type StateView struct {
	Stage   Stage         `json:"stage"`
	Rows    [][]int       `json:"rows"`
	Round   int           `json:"round"`
	Pending []PendingCard `json:"pendingCards"`
	Blocked *PendingCard  `json:"currentTurnCard,omitempty"`
	Winner  string        `json:"winner,omitempty"`
}

// PrivateState get_state 返回的个人视图
type PrivateState struct {
	*StateView
	Hand         []int `json:"hand"`
	SelectedCard int   `json:"selectedCard,omitempty"`
}

type playCardData struct {
	Card int `json:"card"`
}

type chooseRowData struct {
	RowIndex *int `json:"rowIndex"`
}

type stateData struct {
	Round *RoundData `json:"round"`
}

// Module 牛头王游戏模块
type Module struct {
	handlers map[string]game.Handler
}

// New 创建牛头王模块
func New() *Module {
	m := &Module{}
	m.handlers = map[string]game.Handler{
		"start_game": m.startGame,
		"play_card":  m.playCard,
		"choose_row": m.chooseRow,
		"get_state":  m.getState,
	}
	return m
}

func (m *Module) Info() game.Info {
	return game.Info{ID: GameID, Name: "誰是牛頭王", Icon: "🐮", MaxPlayers: maxPlayers}
}

func (m *Module) NewSettings(game.JoinOptions) any { return &Settings{} }

func (m *Module) InitPlayer(p *game.Player) {
	p.Score = 0
	p.State = nil
}

func (m *Module) Handlers() map[string]game.Handler { return m.handlers }

// RoundOf 取出房间当前的一局
func RoundOf(r *game.Room) *Round {
	round, _ := r.State.(*Round)
	return round
}

func (m *Module) ViewState(r *game.Room, _ string) any {
	round := RoundOf(r)
	if round == nil {
		return nil
	}
	return stateView(round)
}

func stateView(round *Round) *StateView {
	return &StateView{
		Stage:   round.Stage(),
		Rows:    round.Rows(),
		Round:   round.Turn(),
		Pending: round.Pending(),
		Blocked: round.Blocked(),
		Winner:  round.Winner(),
	}
}

func (m *Module) ViewPlayer(r *game.Room, p *game.Player, reveal bool) any {
	round := RoundOf(r)
	if round == nil {
		return &PlayerView{}
	}
	hand := round.Hand(p.ID)
	view := &PlayerView{
		HandCount:   len(hand),
		HasSelected: round.Selected(p.ID) != 0,
		BullHeads:   round.Score(p.ID),
		ScorePile:   round.ScorePile(p.ID),
	}
	if reveal {
		view.Hand = hand
		view.SelectedCard = round.Selected(p.ID)
	}
	return view
}

func (m *Module) DecodeSettings(json.RawMessage) (any, error) { return &Settings{}, nil }

func (m *Module) Serialize(r *game.Room) (json.RawMessage, error) {
	var data stateData
	if round := RoundOf(r); round != nil {
		data.Round = round.Data()
	}
	return json.Marshal(data)
}

func (m *Module) Deserialize(r *game.Room, raw json.RawMessage) error {
	r.State = nil
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var data stateData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("decode take6 state: %w", err)
	}
	if data.Round != nil {
		r.State = RoundFromData(data.Round)
	}
	return nil
}

// Winner 牛头最少者获胜
func (m *Module) Winner(r *game.Room) *game.Player {
	var best *game.Player
	for _, p := range r.Players {
		if best == nil || p.Score < best.Score {
			best = p
		}
	}
	return best
}

func (m *Module) OnReconnect(out game.Outbox, r *game.Room, oldID, newID string) {
	round := RoundOf(r)
	if round == nil {
		return
	}
	round.Rebind(oldID, newID)
	sendPrivateState(out, round, newID)
}

func (m *Module) OnLeave(out game.Outbox, r *game.Room, playerID string) game.Result {
	round := RoundOf(r)
	if round == nil || r.Phase != game.PhasePlaying {
		return game.Unchanged()
	}
	round.RemovePlayer(playerID)
	if len(round.Players()) < 2 {
		r.Phase = game.PhaseWaiting
		r.State = nil
		game.ToastAll(out, protocol.ToastWarning, "人数不足，本局已结束")
		return game.Changed()
	}
	syncRound(out, r, round)
	return game.Changed()
}

func sendPrivateState(out game.Outbox, round *Round, playerID string) {
	out.Send(playerID, codec.MustNewMessage(protocol.MsgUpdateState, &PrivateState{
		StateView:    stateView(round),
		Hand:         round.Hand(playerID),
		SelectedCard: round.Selected(playerID),
	}))
}

// syncRound 同步分数并在整局结束时切换阶段
func syncRound(out game.Outbox, r *game.Room, round *Round) {
	for _, p := range r.Players {
		p.Score = round.Score(p.ID)
	}
	if round.Stage() != StageGameOver {
		return
	}
	r.Phase = game.PhaseGameOver
	if w := r.Player(round.Winner()); w != nil {
		game.ToastAll(out, protocol.ToastSuccess,
			fmt.Sprintf("🏆 %s 以 %d 个牛头获胜！", w.Username, w.Score))
	}
}

func (m *Module) startGame(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	if host := r.Host(); host == nil || host.ID != sender {
		return game.Reject(apperrors.ErrNotHost)
	}
	if r.Phase == game.PhasePlaying {
		return game.Reject(apperrors.ErrGameStarted)
	}
	if len(r.Players) < 2 {
		return game.Reject(apperrors.ErrNotEnoughPlayers)
	}

	round := NewRound(r.PlayerIDs())
	r.State = round
	r.Phase = game.PhasePlaying
	r.TimeLeft = 0
	syncRound(out, r, round)

	for _, p := range r.Players {
		sendPrivateState(out, round, p.ID)
	}
	game.ToastAll(out, protocol.ToastSuccess, "🐮 誰是牛頭王 开始！")
	return game.Changed()
}

func (m *Module) playCard(out game.Outbox, r *game.Room, sender string, data json.RawMessage) game.Result {
	round := RoundOf(r)
	if round == nil || r.Phase != game.PhasePlaying {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	req, err := codec.ParseData[playCardData](data)
	if err != nil {
		return game.Reject(apperrors.ErrInvalidPayload)
	}
	if err := round.Select(sender, req.Card); err != nil {
		return game.Reject(err)
	}
	syncRound(out, r, round)
	return game.Changed()
}

func (m *Module) chooseRow(out game.Outbox, r *game.Room, sender string, data json.RawMessage) game.Result {
	round := RoundOf(r)
	if round == nil || r.Phase != game.PhasePlaying {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	req, err := codec.ParseData[chooseRowData](data)
	if err != nil || req.RowIndex == nil {
		return game.Reject(apperrors.ErrInvalidRow)
	}
	if err := round.ChooseRow(sender, *req.RowIndex); err != nil {
		return game.Reject(err)
	}
	syncRound(out, r, round)
	return game.Changed()
}

func (m *Module) getState(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	round := RoundOf(r)
	if round == nil {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	sendPrivateState(out, round, sender)
	return game.Unchanged()
}
