package take6

import (
	"math/rand/v2"
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/protocol"
)

const (
	DeckSize    = 104
	HandSize    = 10
	RowCount    = 4
	maxRowCards = 5 // 第 6 张牌收走整行
)

// Stage 一局内部的阶段
type Stage string

const (
	StageSelecting   Stage = "selecting"
	StageChoosingRow Stage = "choosing_row"
	StageGameOver    Stage = "game_over"
)

var (
	errNotSelecting  = apperrors.New(protocol.ErrCodeInvalidCard, "等待其他玩家选择收取的行")
	errAlreadyPicked = apperrors.New(protocol.ErrCodeInvalidCard, "本轮已经选过牌了")
)

// BullHeads 牌上的牛头数
func BullHeads(card int) int {
	switch {
	case card == 55:
		return 7
	case card%11 == 0:
		return 5
	case card%10 == 0:
		return 3
	case card%5 == 0:
		return 2
	}
	return 1
}

// PendingCard 已亮出、等待放置的牌
type PendingCard struct {
	PlayerID string `json:"playerId"`
	Card     int    `json:"card"`
}

type seat struct {
	hand      []int
	selected  int // 0 表示未选
	scorePile []int
	score     int
}

// Round 一局誰是牛頭王
//
// 所有人同时选牌，全部选完后按牌面从小到大依次放置。
type Round struct {
	deck    []int
	rows    [RowCount][]int
	seats   map[string]*seat
	order   []string
	stage   Stage
	pending []PendingCard
	blocked *PendingCard
	turn    int
	winner  string
}

// NewRound 洗牌、发牌并摆出 4 行起始牌
func NewRound(players []string) *Round {
	deck := make([]int, DeckSize)
	for i := range deck {
		deck[i] = i + 1
	}
	rand.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return newRound(players, deck)
}

func newRound(players []string, deck []int) *Round {
	r := &Round{
		deck:  deck,
		seats: make(map[string]*seat, len(players)),
		order: slices.Clone(players),
		stage: StageSelecting,
		turn:  1,
	}
	for _, pid := range r.order {
		n := min(HandSize, len(r.deck))
		hand := slices.Clone(r.deck[:n])
		r.deck = r.deck[n:]
		slices.Sort(hand)
		r.seats[pid] = &seat{hand: hand}
	}
	for i := range r.rows {
		if len(r.deck) == 0 {
			break
		}
		r.rows[i] = []int{r.deck[0]}
		r.deck = r.deck[1:]
	}
	return r
}

func (r *Round) Stage() Stage   { return r.stage }
func (r *Round) Turn() int      { return r.turn }
func (r *Round) Winner() string { return r.winner }

// Players 座位顺序
func (r *Round) Players() []string { return slices.Clone(r.order) }

// Rows 返回 4 行的副本
func (r *Round) Rows() [][]int {
	rows := make([][]int, RowCount)
	for i, row := range r.rows {
		rows[i] = slices.Clone(row)
	}
	return rows
}

// Blocked 正在等待选行的牌
func (r *Round) Blocked() *PendingCard {
	if r.blocked == nil {
		return nil
	}
	b := *r.blocked
	return &b
}

// Pending 已亮出尚未放置的牌
func (r *Round) Pending() []PendingCard { return slices.Clone(r.pending) }

func (r *Round) Hand(playerID string) []int {
	if s, ok := r.seats[playerID]; ok {
		return slices.Clone(s.hand)
	}
	return nil
}

func (r *Round) Selected(playerID string) int {
	if s, ok := r.seats[playerID]; ok {
		return s.selected
	}
	return 0
}

func (r *Round) Score(playerID string) int {
	if s, ok := r.seats[playerID]; ok {
		return s.score
	}
	return 0
}

func (r *Round) ScorePile(playerID string) []int {
	if s, ok := r.seats[playerID]; ok {
		return slices.Clone(s.scorePile)
	}
	return nil
}

// Select 选一张牌；所有人都选完后立即亮牌并结算
func (r *Round) Select(playerID string, card int) error {
	s, ok := r.seats[playerID]
	if !ok {
		return apperrors.ErrNotInRoom
	}
	if r.stage != StageSelecting {
		return errNotSelecting
	}
	if s.selected != 0 {
		return errAlreadyPicked
	}
	idx := slices.Index(s.hand, card)
	if idx < 0 {
		return apperrors.ErrCardNotInHand
	}

	s.hand = slices.Delete(s.hand, idx, idx+1)
	s.selected = card

	if r.allSelected() {
		r.reveal()
		r.resolve()
	}
	return nil
}

func (r *Round) allSelected() bool {
	if len(r.order) == 0 {
		return false
	}
	for _, pid := range r.order {
		if r.seats[pid].selected == 0 {
			return false
		}
	}
	return true
}

func (r *Round) reveal() {
	r.pending = r.pending[:0]
	for _, pid := range r.order {
		s := r.seats[pid]
		r.pending = append(r.pending, PendingCard{PlayerID: pid, Card: s.selected})
		s.selected = 0
	}
	slices.SortFunc(r.pending, func(a, b PendingCard) int { return a.Card - b.Card })
}

// resolve 依次放置亮出的牌，遇到放不下的牌时停下等待选行
func (r *Round) resolve() {
	for len(r.pending) > 0 {
		next := r.pending[0]
		r.pending = r.pending[1:]
		if !r.place(next) {
			r.blocked = &next
			r.stage = StageChoosingRow
			return
		}
	}

	r.blocked = nil
	r.stage = StageSelecting
	r.turn++

	for _, pid := range r.order {
		if len(r.seats[pid].hand) > 0 {
			return
		}
	}
	r.stage = StageGameOver
	r.winner = r.lowestScore()
}

// place 放到末尾牌最大且小于该牌的行，返回 false 表示比所有行都小
func (r *Round) place(pc PendingCard) bool {
	best, bestLast := -1, -1
	for i, row := range r.rows {
		if len(row) == 0 {
			continue
		}
		last := row[len(row)-1]
		if pc.Card > last && last > bestLast {
			best, bestLast = i, last
		}
	}
	if best < 0 {
		return false
	}
	if len(r.rows[best]) >= maxRowCards {
		r.takeRow(best, pc)
		return true
	}
	r.rows[best] = append(r.rows[best], pc.Card)
	return true
}

func (r *Round) takeRow(idx int, pc PendingCard) {
	if s, ok := r.seats[pc.PlayerID]; ok {
		for _, c := range r.rows[idx] {
			s.score += BullHeads(c)
		}
		s.scorePile = append(s.scorePile, r.rows[idx]...)
	}
	r.rows[idx] = []int{pc.Card}
}

// ChooseRow 被卡住的玩家收走一行，然后继续结算
func (r *Round) ChooseRow(playerID string, rowIndex int) error {
	if r.stage != StageChoosingRow || r.blocked == nil {
		return apperrors.ErrInvalidRow
	}
	if r.blocked.PlayerID != playerID {
		return apperrors.ErrNotYourTurn
	}
	if rowIndex < 0 || rowIndex >= RowCount {
		return apperrors.ErrInvalidRow
	}

	r.takeRow(rowIndex, *r.blocked)
	r.blocked = nil
	r.resolve()
	return nil
}

func (r *Round) lowestScore() string {
	winner, lowest := "", 0
	for _, pid := range r.order {
		if s := r.seats[pid].score; winner == "" || s < lowest {
			winner, lowest = pid, s
		}
	}
	return winner
}

// RemovePlayer 玩家离开：丢弃其手牌和待放置的牌，必要时继续结算
func (r *Round) RemovePlayer(playerID string) {
	if _, ok := r.seats[playerID]; !ok {
		return
	}
	delete(r.seats, playerID)
	r.order = slices.DeleteFunc(r.order, func(pid string) bool { return pid == playerID })
	r.pending = slices.DeleteFunc(r.pending, func(pc PendingCard) bool { return pc.PlayerID == playerID })

	switch {
	case r.stage == StageChoosingRow && r.blocked != nil && r.blocked.PlayerID == playerID:
		r.blocked = nil
		r.resolve()
	case r.stage == StageSelecting && r.allSelected():
		r.reveal()
		r.resolve()
	}
}

// Rebind 把所有引用 oldID 的地方改成 newID
func (r *Round) Rebind(oldID, newID string) {
	if oldID == newID {
		return
	}
	if s, ok := r.seats[oldID]; ok {
		r.seats[newID] = s
		delete(r.seats, oldID)
	}
	for i, pid := range r.order {
		if pid == oldID {
			r.order[i] = newID
		}
	}
	for i := range r.pending {
		if r.pending[i].PlayerID == oldID {
			r.pending[i].PlayerID = newID
		}
	}
	if r.blocked != nil && r.blocked.PlayerID == oldID {
		r.blocked.PlayerID = newID
	}
	if r.winner == oldID {
		r.winner = newID
	}
}
