// Package pictomania 实现妙笔神猜：所有人同时画自己的目标词，再互相猜。
package pictomania

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/game"
	"github.com/palemoky/party-games/internal/protocol"
	"github.com/palemoky/party-games/internal/protocol/codec"
)

const (
	GameID     = "pictomania"
	maxPlayers = 6

	DefaultDrawTime    = 60
	DefaultTotalRounds = 5
	DefaultDifficulty  = 1

	minDrawTime    = 10
	maxDrawTime    = 300
	maxTotalRounds = 20

	maxImageSize = 512 << 10
)

// Symbols 六种符号，每种对应一张词卡
var Symbols = []string{"star", "triangle", "square", "circle", "cloud", "moon"}

var errNotDoneDrawing = apperrors.New(protocol.ErrCodeInvalidGuess, "⚠️ 您必须先点击「画好了」才能开始猜题！")
var errDoneGuessing = apperrors.New(protocol.ErrCodeInvalidGuess, "⚠️ 您已经结束猜题，无法再猜！")
var errImageTooLarge = apperrors.New(protocol.ErrCodeInvalidMsg, "画作太大，上传失败")

// Settings 房间设置
type Settings struct {
	DrawTime    int `json:"drawTime"`
	TotalRounds int `json:"totalRounds"`
	Difficulty  int `json:"difficulty"`
}

// Guess 一次猜测
type Guess struct {
	TargetPlayerID string `json:"targetPlayerId"`
	Symbol         string `json:"symbol"`
	Number         int    `json:"number"`
	Seq            int64  `json:"seq"`
}

// PlayerState 挂在 game.Player.State 上的玩家状态
type PlayerState struct {
	SymbolCard         string   `json:"symbolCard"`
	NumberCard         int      `json:"numberCard"`
	TargetWord         string   `json:"targetWord"`
	GuessedCorrectlyBy []string `json:"guessedCorrectlyBy"`
	IsDoneGuessing     bool     `json:"isDoneGuessing"`
	MyGuesses          []Guess  `json:"myGuesses"`
	Drawing            string   `json:"drawing,omitempty"` // 本回合上传的画作
}

// HistoryRecord 每回合每位画者的记录
type HistoryRecord struct {
	Round      int            `json:"round"`
	PlayerID   string         `json:"playerId"`
	PlayerName  string         `json:"playerName"`
	PlayerColor string         `json:"playerColor"`
	Word        string         `json:"word"`
	GuessedBy   []HistoryEntry `json:"guessedBy"`
	ImageBase64 string         `json:"imageBase64,omitempty"`
}

// State 房间级状态
type State struct {
	WordCards    map[string][]string
	CurrentRound int
	History      []HistoryRecord
	Seq          int64
	Round        *Round
}

// PlayerView 玩家的游戏部分
type PlayerView struct {
	IsDoneGuessing     bool     `json:"isDoneGuessing"`
	GuessedCorrectlyBy []string `json:"guessedCorrectlyBy"`
	GuessCount         int      `json:"guessCount"`
	SymbolCard         string   `json:"symbolCard,omitempty"`
	NumberCard         int      `json:"numberCard,omitempty"`
	TargetWord         string   `json:"targetWord,omitempty"`
	MyGuesses          []Guess  `json:"myGuesses,omitempty"`
}

// StateView 公共状态
type StateView struct {
	WordCards    map[string][]string `json:"wordCards"`
	CurrentRound int                 `json:"currentRound"`
	History      []HistoryRecord     `json:"history"`
	ScoreCards   map[string][]int    `json:"scoreCards,omitempty"`
}

// GameStartedPayload 新回合的词卡
type GameStartedPayload struct {
	Cards map[string][]string `json:"cards"`
	Round int                 `json:"round"`
}

type startData struct {
	Difficulty int `json:"difficulty"`
}

type guessData struct {
	TargetPlayerID string `json:"targetPlayerId"`
	Symbol         string `json:"symbol"`
	Number         int    `json:"number"`
}

type settingsData struct {
	DrawTime    *int `json:"drawTime"`
	TotalRounds *int `json:"totalRounds"`
	Difficulty  *int `json:"difficulty"`
}

// Module 妙笔神猜游戏模块
type Module struct {
	words    WordSource
	handlers map[string]game.Handler
}

// New 创建模块，words 为空时使用内置词库
func New(words WordSource) *Module {
	if words == nil {
		words = DefaultWords()
	}
	m := &Module{words: words}
	m.handlers = map[string]game.Handler{
		"start_game":             m.startGame,
		"next_round":             m.startGame,
		"player_finish_drawing":  m.finishDrawing,
		"player_finish_guessing": m.finishGuessing,
		"guess_word":             m.guessWord,
		"update_settings":        m.updateSettings,
		"upload_image":           m.uploadImage,
	}
	return m
}

func (m *Module) Info() game.Info {
	return game.Info{ID: GameID, Name: "妙笔神猜", Icon: "🎨", MaxPlayers: maxPlayers}
}

func (m *Module) NewSettings(opts game.JoinOptions) any {
	s := &Settings{DrawTime: DefaultDrawTime, TotalRounds: DefaultTotalRounds, Difficulty: DefaultDifficulty}
	if opts.DrawTime >= minDrawTime && opts.DrawTime <= maxDrawTime {
		s.DrawTime = opts.DrawTime
	}
	return s
}

func (m *Module) InitPlayer(p *game.Player) {
	p.Score = 0
	p.IsDoneDrawing = false
	p.State = newPlayerState()
}

func newPlayerState() *PlayerState {
	return &PlayerState{GuessedCorrectlyBy: []string{}, MyGuesses: []Guess{}}
}

func (m *Module) Handlers() map[string]game.Handler { return m.handlers }

// StateOf 取出房间状态
func StateOf(r *game.Room) *State {
	st, _ := r.State.(*State)
	return st
}

// PlayerStateOf 取出玩家状态，缺失时补一个空的
func PlayerStateOf(p *game.Player) *PlayerState {
	ps, ok := p.State.(*PlayerState)
	if !ok || ps == nil {
		ps = newPlayerState()
		p.State = ps
	}
	return ps
}

func settingsOf(r *game.Room) *Settings {
	if s, ok := r.Settings.(*Settings); ok {
		return s
	}
	s := &Settings{DrawTime: DefaultDrawTime, TotalRounds: DefaultTotalRounds, Difficulty: DefaultDifficulty}
	r.Settings = s
	return s
}

func (m *Module) ViewState(r *game.Room, _ string) any {
	st := StateOf(r)
	if st == nil {
		return nil
	}
	view := &StateView{
		WordCards:    st.WordCards,
		CurrentRound: st.CurrentRound,
		History:      st.History,
	}
	if st.Round != nil {
		view.ScoreCards = make(map[string][]int)
		for _, pid := range st.Round.Players() {
			view.ScoreCards[pid] = st.Round.ScoreCardsOf(pid)
		}
	}
	return view
}

func (m *Module) ViewPlayer(_ *game.Room, p *game.Player, reveal bool) any {
	ps := PlayerStateOf(p)
	view := &PlayerView{
		IsDoneGuessing:     ps.IsDoneGuessing,
		GuessedCorrectlyBy: ps.GuessedCorrectlyBy,
		GuessCount:         len(ps.MyGuesses),
	}
	if reveal {
		view.SymbolCard = ps.SymbolCard
		view.NumberCard = ps.NumberCard
		view.TargetWord = ps.TargetWord
		view.MyGuesses = ps.MyGuesses
	}
	return view
}

func (m *Module) DecodeSettings(data json.RawMessage) (any, error) {
	s := &Settings{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode pictomania settings: %w", err)
		}
	}
	if s.DrawTime <= 0 {
		s.DrawTime = DefaultDrawTime
	}
	if s.TotalRounds <= 0 {
		s.TotalRounds = DefaultTotalRounds
	}
	if s.Difficulty <= 0 {
		s.Difficulty = DefaultDifficulty
	}
	return s, nil
}

// OnStart 回合开始时广播词卡
func (m *Module) OnStart(out game.Outbox, r *game.Room) {
	st := StateOf(r)
	if st == nil {
		return
	}
	out.Broadcast(codec.MustNewMessage(protocol.MsgGameStarted, GameStartedPayload{
		Cards: st.WordCards,
		Round: st.CurrentRound,
	}))
}

// OnTimeout 画图时间到，所有人进入猜题
func (m *Module) OnTimeout(out game.Outbox, r *game.Room) game.Result {
	if r.Phase != game.PhasePlaying {
		return game.Unchanged()
	}
	for _, p := range r.Players {
		p.IsDoneDrawing = true
	}
	game.ToastAll(out, protocol.ToastInfo, "⏰ 时间到！请把握时间猜题，所有人都猜完后将结束回合。")
	return game.Changed()
}

// OnDisconnect 掉线玩家视为已猜完，可能触发回合结算
func (m *Module) OnDisconnect(out game.Outbox, r *game.Room, _ string) game.Result {
	if r.Phase != game.PhasePlaying {
		return game.Unchanged()
	}
	if m.checkAndFinishRound(out, r) {
		return game.Changed()
	}
	return game.Unchanged()
}

// OnLeave 从本回合移除离开的玩家
func (m *Module) OnLeave(out game.Outbox, r *game.Room, playerID string) game.Result {
	st := StateOf(r)
	if st == nil || st.Round == nil || r.Phase != game.PhasePlaying {
		return game.Unchanged()
	}
	st.Round.RemovePlayer(playerID)
	for _, p := range r.Players {
		ps := PlayerStateOf(p)
		ps.MyGuesses = slices.DeleteFunc(ps.MyGuesses, func(g Guess) bool { return g.TargetPlayerID == playerID })
	}
	if len(r.Players) < 2 {
		r.Phase = game.PhaseWaiting
		r.TimeLeft = 0
		r.State = nil
		game.ToastAll(out, protocol.ToastWarning, "人数不足，本局已结束")
		return game.Changed()
	}
	m.checkAndFinishRound(out, r)
	return game.Changed()
}

// OnReconnect 改写回合、玩家状态和历史记录中的旧 ID
func (m *Module) OnReconnect(_ game.Outbox, r *game.Room, oldID, newID string) {
	for _, p := range r.Players {
		ps := PlayerStateOf(p)
		for i := range ps.MyGuesses {
			if ps.MyGuesses[i].TargetPlayerID == oldID {
				ps.MyGuesses[i].TargetPlayerID = newID
			}
		}
		for i, gid := range ps.GuessedCorrectlyBy {
			if gid == oldID {
				ps.GuessedCorrectlyBy[i] = newID
			}
		}
	}

	st := StateOf(r)
	if st == nil {
		return
	}
	if st.Round != nil {
		st.Round.Rebind(oldID, newID)
	}
	for i := range st.History {
		h := &st.History[i]
		if h.PlayerID == oldID {
			h.PlayerID = newID
		}
		for j := range h.GuessedBy {
			if h.GuessedBy[j].GuesserID == oldID {
				h.GuessedBy[j].GuesserID = newID
			}
		}
	}
}

func (m *Module) startGame(out game.Outbox, r *game.Room, _ string, data json.RawMessage) game.Result {
	switch r.Phase {
	case game.PhaseWaiting, game.PhaseGameOver:
		if len(r.Players) < 2 {
			return game.Reject(apperrors.ErrNotEnoughPlayers)
		}
		if req, err := codec.ParseData[startData](data); err == nil && m.hasLevel(req.Difficulty) {
			settingsOf(r).Difficulty = req.Difficulty
		}
		for _, p := range r.Players {
			p.Score = 0
		}
		r.State = &State{CurrentRound: 1, History: []HistoryRecord{}}
		m.startRound(r)
		return game.Changed()

	case game.PhaseRoundEnded:
		st := StateOf(r)
		if st == nil {
			return game.Reject(apperrors.ErrGameNotStart)
		}
		if st.CurrentRound >= settingsOf(r).TotalRounds {
			r.Phase = game.PhaseGameOver
			return game.Changed()
		}
		st.CurrentRound++
		m.startRound(r)
		return game.Changed()
	}
	return game.Reject(apperrors.ErrGameStarted)
}

func (m *Module) hasLevel(level int) bool {
	return level > 0 && slices.Contains(m.words.Levels(), level)
}

// startRound 抽词卡、发符号和数字，重置玩家状态并开始倒计时
func (m *Module) startRound(r *game.Room) {
	st := StateOf(r)
	settings := settingsOf(r)

	cards := m.words.Cards(settings.Difficulty)
	if len(cards) == 0 {
		cards = m.words.Cards(DefaultDifficulty)
	}
	active := Symbols[:min(len(Symbols), len(cards))]
	picked := slices.Clone(cards)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	st.WordCards = make(map[string][]string, len(active))
	for i, sym := range active {
		st.WordCards[sym] = picked[i]
	}

	st.Round = NewRound(r.PlayerIDs())
	symbols := slices.Clone(active)
	rand.Shuffle(len(symbols), func(i, j int) { symbols[i], symbols[j] = symbols[j], symbols[i] })

	for i, p := range r.Players {
		ps := newPlayerState()
		if len(symbols) > 0 {
			ps.SymbolCard = symbols[i%len(symbols)]
			ps.NumberCard = rand.IntN(WordsPerCard) + 1
			ps.TargetWord = st.WordCards[ps.SymbolCard][ps.NumberCard-1]
		} else {
			ps.TargetWord = "未知"
		}
		p.State = ps
		p.IsDoneDrawing = false
	}

	r.Phase = game.PhasePlaying
	r.TimeLeft = settings.DrawTime
}

func (m *Module) finishDrawing(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	if r.Phase != game.PhasePlaying {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	p := r.Player(sender)
	if p == nil {
		return game.Reject(apperrors.ErrNotInRoom)
	}
	if p.IsDoneDrawing {
		return game.Unchanged()
	}
	p.IsDoneDrawing = true

	allDone := true
	for _, other := range r.Players {
		if !other.IsDoneDrawing {
			allDone = false
			break
		}
	}
	if allDone {
		game.ToastAll(out, protocol.ToastInfo, "🎨 所有人都画完了，请把握时间猜题！")
	}
	return game.Changed()
}

func (m *Module) finishGuessing(out game.Outbox, r *game.Room, sender string, _ json.RawMessage) game.Result {
	if r.Phase != game.PhasePlaying {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	p := r.Player(sender)
	if p == nil {
		return game.Reject(apperrors.ErrNotInRoom)
	}
	PlayerStateOf(p).IsDoneGuessing = true
	m.checkAndFinishRound(out, r)
	return game.Changed()
}

func (m *Module) guessWord(out game.Outbox, r *game.Room, sender string, data json.RawMessage) game.Result {
	st := StateOf(r)
	if r.Phase != game.PhasePlaying || st == nil || st.Round == nil {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	req, err := codec.ParseData[guessData](data)
	if err != nil {
		return game.Reject(apperrors.ErrInvalidPayload)
	}

	guesser := r.Player(sender)
	target := r.Player(req.TargetPlayerID)
	if guesser == nil || target == nil {
		return game.Reject(apperrors.ErrNotInRoom)
	}
	if req.Number < 1 || req.Number > WordsPerCard || !slices.Contains(Symbols, req.Symbol) {
		return game.Reject(apperrors.New(protocol.ErrCodeInvalidGuess, "无效的猜测"))
	}

	gs := PlayerStateOf(guesser)
	if !guesser.IsDoneDrawing {
		return game.Reject(errNotDoneDrawing)
	}
	if gs.IsDoneGuessing {
		return game.Reject(errDoneGuessing)
	}
	if err := st.Round.SetGuess(sender, target.ID, req.Number); err != nil {
		return game.Reject(err)
	}

	st.Seq++
	gs.MyGuesses = append(gs.MyGuesses, Guess{
		TargetPlayerID: target.ID,
		Symbol:         req.Symbol,
		Number:         req.Number,
		Seq:            st.Seq,
	})

	// 猜完所有在线对手后自动结束猜题
	opponents := 0
	for _, p := range r.Players {
		if !p.Disconnected && p.ID != sender {
			opponents++
		}
	}
	if opponents > 0 && len(gs.MyGuesses) >= opponents {
		gs.IsDoneGuessing = true
		m.checkAndFinishRound(out, r)
	}
	return game.Changed()
}

func (m *Module) updateSettings(_ game.Outbox, r *game.Room, sender string, data json.RawMessage) game.Result {
	if host := r.Host(); host == nil || host.ID != sender {
		return game.Reject(apperrors.ErrNotHost)
	}
	if r.Phase != game.PhaseWaiting {
		return game.Reject(apperrors.ErrGameStarted)
	}
	req, err := codec.ParseData[settingsData](data)
	if err != nil {
		return game.Reject(apperrors.ErrInvalidPayload)
	}

	s := settingsOf(r)
	if req.DrawTime != nil {
		if *req.DrawTime < minDrawTime || *req.DrawTime > maxDrawTime {
			return game.Reject(apperrors.New(protocol.ErrCodeInvalidMsg,
				fmt.Sprintf("画图时间需在 %d~%d 秒之间", minDrawTime, maxDrawTime)))
		}
		s.DrawTime = *req.DrawTime
	}
	if req.TotalRounds != nil {
		if *req.TotalRounds < 1 || *req.TotalRounds > maxTotalRounds {
			return game.Reject(apperrors.New(protocol.ErrCodeInvalidMsg,
				fmt.Sprintf("回合数需在 1~%d 之间", maxTotalRounds)))
		}
		s.TotalRounds = *req.TotalRounds
	}
	if req.Difficulty != nil {
		if !m.hasLevel(*req.Difficulty) {
			return game.Reject(apperrors.New(protocol.ErrCodeInvalidMsg, "没有这个难度"))
		}
		s.Difficulty = *req.Difficulty
	}
	return game.Changed()
}

// uploadImage 保存画者本回合的画作并广播给房间，同一回合只收第一次。
// 回合已经结算时直接补进历史记录
func (m *Module) uploadImage(out game.Outbox, r *game.Room, sender string, data json.RawMessage) game.Result {
	st := StateOf(r)
	if st == nil || st.CurrentRound == 0 {
		return game.Reject(apperrors.ErrGameNotStart)
	}
	req, err := codec.ParseData[protocol.UploadImagePayload](data)
	if err != nil || req.ImageBase64 == "" {
		return game.Reject(apperrors.ErrInvalidPayload)
	}
	if len(req.ImageBase64) > maxImageSize {
		return game.Reject(errImageTooLarge)
	}

	ps := PlayerStateOf(r.Player(sender))
	if ps.Drawing != "" {
		return game.Unchanged()
	}
	ps.Drawing = req.ImageBase64
	for i := range st.History {
		h := &st.History[i]
		if h.Round == st.CurrentRound && h.PlayerID == sender && h.ImageBase64 == "" {
			h.ImageBase64 = req.ImageBase64
		}
	}

	out.Broadcast(codec.MustNewMessage(protocol.MsgUpdateCanvas, protocol.UpdateCanvasPayload{
		PlayerID:    sender,
		ImageBase64: req.ImageBase64,
	}))
	return game.Unchanged()
}

// checkAndFinishRound 所有人都猜完（或掉线）时按到达顺序结算，返回是否结算了
func (m *Module) checkAndFinishRound(out game.Outbox, r *game.Room) bool {
	st := StateOf(r)
	if r.Phase != game.PhasePlaying || st == nil || st.Round == nil {
		return false
	}
	for _, p := range r.Players {
		if !p.Disconnected && !PlayerStateOf(p).IsDoneGuessing {
			return false
		}
	}

	type pending struct {
		guesser string
		Guess
	}
	var all []pending
	for _, p := range r.Players {
		for _, g := range PlayerStateOf(p).MyGuesses {
			all = append(all, pending{guesser: p.ID, Guess: g})
		}
	}
	slices.SortFunc(all, func(a, b pending) int { return int(a.Seq - b.Seq) })

	for _, g := range all {
		target := r.Player(g.TargetPlayerID)
		if target == nil {
			continue
		}
		ts := PlayerStateOf(target)
		correct := ts.SymbolCard == g.Symbol && ts.NumberCard == g.Number
		st.Round.ProcessGuess(g.guesser, g.TargetPlayerID, correct)
	}

	final := st.Round.FinalScores()
	for _, p := range r.Players {
		p.Score += final[p.ID]

		history := st.Round.History(p.ID)
		guessers := make([]string, len(history))
		for i, h := range history {
			guessers[i] = h.GuesserID
		}
		ps := PlayerStateOf(p)
		ps.GuessedCorrectlyBy = guessers

		st.History = append(st.History, HistoryRecord{
			Round:       st.CurrentRound,
			PlayerID:    p.ID,
			PlayerName:  p.Username,
			PlayerColor: p.Color,
			Word:        ps.TargetWord,
			GuessedBy:   history,
			ImageBase64: ps.Drawing,
		})
	}

	if st.CurrentRound >= settingsOf(r).TotalRounds {
		r.Phase = game.PhaseGameOver
	} else {
		r.Phase = game.PhaseRoundEnded
	}
	r.TimeLeft = 0
	game.ToastAll(out, protocol.ToastInfo, fmt.Sprintf("第 %d 回合结束！公布答案中...", st.CurrentRound))
	return true
}

// StateData 持久化形式
type StateData struct {
	WordCards    map[string][]string     `json:"wordCards"`
	CurrentRound int                     `json:"currentRound"`
	History      []HistoryRecord         `json:"history"`
	Seq          int64                   `json:"seq"`
	Round        *RoundData              `json:"round,omitempty"`
	Players      map[string]*PlayerState `json:"players"`
}

func (m *Module) Serialize(r *game.Room) (json.RawMessage, error) {
	data := StateData{Players: make(map[string]*PlayerState, len(r.Players))}
	for _, p := range r.Players {
		data.Players[p.ID] = PlayerStateOf(p)
	}
	if st := StateOf(r); st != nil {
		data.WordCards = st.WordCards
		data.CurrentRound = st.CurrentRound
		data.History = st.History
		data.Seq = st.Seq
		if st.Round != nil {
			data.Round = st.Round.Data()
		}
	}
	return json.Marshal(data)
}

func (m *Module) Deserialize(r *game.Room, raw json.RawMessage) error {
	r.State = nil
	var data StateData
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("decode pictomania state: %w", err)
		}
	}
	for _, p := range r.Players {
		ps := data.Players[p.ID]
		if ps == nil {
			ps = newPlayerState()
		}
		p.State = ps
	}
	if data.CurrentRound == 0 && data.Round == nil {
		return nil
	}
	st := &State{
		WordCards:    data.WordCards,
		CurrentRound: data.CurrentRound,
		History:      data.History,
		Seq:          data.Seq,
	}
	if data.Round != nil {
		st.Round = RoundFromData(data.Round)
	}
	r.State = st
	return nil
}

