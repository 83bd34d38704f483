// Package uno 实现 UNO 纸牌游戏模块。
package uno

import (
	"encoding/json"
	"fmt"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const (
	GameID             = "uno"
	DefaultTargetScore = 500
	maxPlayers         = 6
)

// 模块私有事件
const (
	MsgHandUpdate = protocol.MsgHandUpdate
	MsgUnoShouted = protocol.MsgUnoShouted
)

// Settings 房间设置
type Settings struct {
	StartingCards int `json:"startingCards"`
	TargetScore   int `json:"targetScore"`
}

// PlayerView 玩家的公开信息，Hand 只在可见时填充
type PlayerView struct {
	HandCount int    `json:"handCount"`
	IsUno     bool   `json:"isUno"`
	Hand      []Card `json:"hand,omitempty"`
}

// StateView 牌桌公共状态
type StateView struct {
	TopCard          Card   `json:"topCard"`
	ActiveColor      Color  `json:"activeColor"`
	CurrentPlayer    string `json:"currentPlayer"`
	Direction        int    `json:"direction"`
	DeckSize         int    `json:"deckSize"`
	HasDrawnThisTurn bool   `json:"hasDrawnThisTurn"`
	Winner           string `json:"winner,omitempty"`
}

// HandUpdatePayload 私发手牌
type HandUpdatePayload struct {
	Hand []Card `json:"hand"`
}

// UnoShoutedPayload 有人喊了 UNO
type UnoShoutedPayload struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

type playCardData struct {
	Card        Card  `json:"card"`
	ChosenColor Color `json:"chosenColor"`
}

type challengeData struct {
	TargetID string `json:"targetId"`
}

type stateData struct {
	Round *RoundData `json:"round"`
}

// Module UNO 游戏模块
type Module struct {
	handlers map[string]game.Handler
}

// New 创建 UNO 模块
func New() *Module {
	m := &Module{}
	m.handlers = map[string]game.Handler{
		"start_game":    m.startGame,
		"play_card":     m.playCard,
		"draw_card":     m.drawCard,
		"pass_turn":     m.passTurn,
		"call_uno":      m.callUno,
		"challenge_uno": m.challengeUno,
		"get_hand":      m.getHand,
	}
	return m
}

func (m *Module) Info() game.Info {
	return game.Info{ID: GameID, Name: "UNO", Icon: "🎴", MaxPlayers: maxPlayers}
}

func (m *Module) NewSettings(game.JoinOptions) any {
	return &Settings{StartingCards: DefaultStartingCards, TargetScore: DefaultTargetScore}
}

func (m *Module) InitPlayer(p *game.Player) {
	p.Score = 0
	p.State = nil
}

func (m *Module) Handlers() map[string]game.Handler {
	return m.handlers
}

// RoundOf 取出房间当前的一局，没有时返回 nil
func RoundOf(r *game.Room) *Round {
	round, _ := r.State.(*Round)
	return round
}

func settingsOf(r *game.Room) *Settings {
	if s, ok := r.Settings.(*Settings); ok {
		return s
	}
	return &Settings{StartingCards: DefaultStartingCards, TargetScore: DefaultTargetScore}
}

func (m *Module) ViewState(r *game.Room, _ string) any {
	round := RoundOf(r)
	if round == nil {
		return nil
	}
	return &StateView{
		TopCard:          round.TopCard(),
		ActiveColor:      round.ActiveColor(),
		CurrentPlayer:    round.CurrentPlayer(),
		Direction:        round.Direction(),
		DeckSize:         round.DeckSize(),
		HasDrawnThisTurn: round.HasDrawnThisTurn(),
		Winner:           round.Winner(),
	}
}

func (m *Module) ViewPlayer(r *game.Room, p *game.Player, reveal bool) any {
	round := RoundOf(r)
	if round == nil {
		return &PlayerView{}
	}
	view := &PlayerView{
		HandCount: round.HandSize(p.ID),
		IsUno:     round.UnoCalled(p.ID),
	}
	if reveal {
		view.Hand = round.Hand(p.ID)
	}
	return view
}

func (m *Module) DecodeSettings(data json.RawMessage) (any, error) {
	s := &Settings{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode uno settings: %w", err)
		}
	}
	if s.StartingCards <= 0 {
		s.StartingCards = DefaultStartingCards
	}
	if s.TargetScore <= 0 {
		s.TargetScore = DefaultTargetScore
	}
	return s, nil
}

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
		return fmt.Errorf("decode uno state: %w", err)
	}
	if data.Round != nil {
		r.State = RoundFromData(data.Round)
	}
	return nil
}

// OnReconnect 改写本局里的旧 ID，并把手牌补发给重连的玩家
func (m *Module) OnReconnect(out game.Outbox, r *game.Room, oldID, newID string) {
	round := RoundOf(r)
	if round == nil {
		return
	}
	round.Rebind(oldID, newID)
	sendHand(out, round, newID)
}

// OnLeave 从本局移除离开的玩家，不足两人时结束本局
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
	syncHands(out, r)
	return game.Changed()
}

func sendHand(out game.Outbox, round *Round, playerID string) {
	msg := codec.MustNewMessage(MsgHandUpdate, HandUpdatePayload{Hand: round.Hand(playerID)})
	out.Send(playerID, msg)
}

// syncHands 每次变化后把各自的手牌私发给所有人
func syncHands(out game.Outbox, r *game.Room) {
	round := RoundOf(r)
	if round == nil {
		return
	}
	for _, p := range r.Players {
		sendHand(out, round, p.ID)
	}
}

// activeRound 校验游戏进行中并返回当前局
func activeRound(r *game.Room) (*Round, error) {
	round := RoundOf(r)
	if round == nil || r.Phase != game.PhasePlaying {
		return nil, apperrors.ErrGameNotStart
	}
	return round, nil
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

	// 上一场已经结束，重新开始时清零
	if r.Phase == game.PhaseGameOver {
		for _, p := range r.Players {
			p.Score = 0
		}
	}

	r.State = NewRound(r.PlayerIDs(), settingsOf(r).StartingCards)
	r.Phase = game.PhasePlaying
	r.TimeLeft = 0

	syncHands(out, r)
	game.ToastAll(out, protocol.ToastSuccess, "🎴 UNO 游戏开始！")
	return game.Changed()
}

func (m *Module) playCard(out game.Outbox, r *game.Room, sender string, data json.RawMessage) game.Result {
	round, err := activeRound(r)
	if err != nil {
		return game.Reject(err)
	}
	req, err := codec.ParseData[playCardData](data)
	if err != nil {
		return game.Reject(apperrors.ErrInvalidPayload)
	}
	if err := round.PlayCard(sender, req.Card, req.ChosenColor); err != nil {
		return game.Reject(err)
	}

	if len(r.Players) == 2 && req.Card.Value == ValueReverse {
		game.ToastAll(out, protocol.ToastInfo, "⚠️ 2人游戏规则：反转牌等同禁止牌，请再出一张！")
	}

	if winnerID := round.Winner(); winnerID != "" {
		m.finishRound(out, r, round, winnerID)
		return game.Changed()
	}

	syncHands(out, r)
	return game.Changed()
}

// finishRound 胜者获得其余玩家手牌分，达到目标分则整场结束
func (m *Module) finishRound(out game.Outbox, r *game.Room, round *Round, winnerID string) {
	points := 0
	for _, p := range r.Players {
		if p.ID != winnerID {
			points += round.HandScore(p.ID)
		}
	}

	winner := r.Player(winnerID)
	if winner == nil {
		r.Phase = game.PhaseWaiting
		r.State = nil
		return
	}
	winner.Score += points

	if winner.Score >= settingsOf(r).TargetScore {
		r.Phase = game.PhaseGameOver
		syncHands(out, r)
		game.ToastAll(out, protocol.ToastSuccess,
			fmt.Sprintf("🏆 恭喜 %s 达到 %d 分，获得最终胜利！", winner.Username, winner.Score))
		return
	}

	r.Phase = game.PhaseWaiting
	r.State = nil
	game.ToastAll(out, protocol.ToastSuccess,
		fmt.Sprintf("🎉 %s 赢得本局！获得 %d 分（总分: %d）", winner.Username, points, winner.Score))
}

func (m *Module) drawCard(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	round, err := activeRound(r)
	if err != nil {
		return game.Reject(err)
	}
	card, ok, err := round.Draw(sender)
	if err != nil {
		return game.Reject(err)
	}

	// 摸到的牌不能出就自动跳过
	if !ok || !round.IsPlayable(card) {
		if err := round.Pass(sender); err == nil {
			game.ToastAll(out, protocol.ToastInfo, "无牌可出，自动换下一位")
		}
	}

	syncHands(out, r)
	return game.Changed()
}

func (m *Module) passTurn(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	round, err := activeRound(r)
	if err != nil {
		return game.Reject(err)
	}
	if err := round.Pass(sender); err != nil {
		return game.Reject(err)
	}
	syncHands(out, r)
	return game.Changed()
}

func (m *Module) callUno(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	round, err := activeRound(r)
	if err != nil {
		return game.Reject(err)
	}
	if err := round.CallUno(sender); err != nil {
		return game.Reject(err)
	}

	username := ""
	if p := r.Player(sender); p != nil {
		username = p.Username
	}
	out.Broadcast(codec.MustNewMessage(MsgUnoShouted, UnoShoutedPayload{PlayerID: sender, Username: username}))
	return game.Changed()
}

func (m *Module) challengeUno(out game.Outbox, r *game.Room, sender string, data json.RawMessage) game.Result {
	round, err := activeRound(r)
	if err != nil {
		return game.Reject(err)
	}
	req, err := codec.ParseData[challengeData](data)
	if err != nil {
		return game.Reject(apperrors.ErrInvalidPayload)
	}
	if err := round.Challenge(sender, req.TargetID); err != nil {
		return game.Reject(err)
	}

	challenger, target := "", ""
	if p := r.Player(sender); p != nil {
		challenger = p.Username
	}
	if p := r.Player(req.TargetID); p != nil {
		target = p.Username
	}
	game.ToastAll(out, protocol.ToastWarning,
		fmt.Sprintf("⚠️ %s 挑战成功！%s 必须摸 2 张牌！", challenger, target))

	syncHands(out, r)
	return game.Changed()
}

func (m *Module) getHand(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	round := RoundOf(r)
	if round == nil {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	sendHand(out, round, sender)
	return game.Unchanged()
}
