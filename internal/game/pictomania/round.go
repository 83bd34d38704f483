package pictomania

import (
	"maps"
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
	"github.com/palemoky/party-games/internal/protocol"
)

var (
	errGuessSelf   = apperrors.New(protocol.ErrCodeInvalidGuess, "无法猜测自己！")
	errGuessLocked = apperrors.New(protocol.ErrCodeInvalidGuess, "无法修改！您已经猜过这个玩家了")
	errNumberUsed  = apperrors.New(protocol.ErrCodeInvalidGuess, "这个数字已经用在其他人身上了")
)

// HistoryEntry 某位画者被猜中的一条记录
type HistoryEntry struct {
	GuesserID string `json:"guesserId"`
	Score     int    `json:"score"`
	Order     int    `json:"order"`
}

// ScoreCards 按人数分配的得分卡，先猜中的人拿最大的
func ScoreCards(playerCount int) []int {
	switch playerCount {
	case 2:
		return []int{3}
	case 3:
		return []int{2, 1}
	case 4:
		return []int{2, 1, 1}
	case 5:
		return []int{3, 2, 1, 1}
	case 6:
		return []int{3, 2, 1, 1, 1}
	}
	cards := make([]int, max(0, playerCount-1))
	for i := range cards {
		cards[i] = 1
	}
	return cards
}

// Round 一回合的猜题结算
type Round struct {
	players    []string
	scoreCards map[string][]int          // 画者 -> 剩余得分卡
	correct    map[string][]HistoryEntry // 画者 -> 猜中记录
	scores     map[string]int            // 本回合猜中所得
	guesses    map[string]map[string]int // 猜者 -> 画者 -> 数字
}

// NewRound 为每位玩家发得分卡
func NewRound(players []string) *Round {
	r := &Round{
		players:    slices.Clone(players),
		scoreCards: make(map[string][]int, len(players)),
		correct:    make(map[string][]HistoryEntry, len(players)),
		scores:     make(map[string]int, len(players)),
		guesses:    make(map[string]map[string]int, len(players)),
	}
	for _, pid := range r.players {
		r.scoreCards[pid] = ScoreCards(len(players))
		r.correct[pid] = []HistoryEntry{}
		r.guesses[pid] = make(map[string]int)
	}
	return r
}

func (r *Round) Players() []string { return slices.Clone(r.players) }

// ScoreCardsOf 画者剩余的得分卡
func (r *Round) ScoreCardsOf(playerID string) []int {
	return slices.Clone(r.scoreCards[playerID])
}

// History 画者被猜中的记录
func (r *Round) History(playerID string) []HistoryEntry {
	return slices.Clone(r.correct[playerID])
}

// Guess 猜者对画者猜的数字
func (r *Round) Guess(guesserID, targetID string) (int, bool) {
	n, ok := r.guesses[guesserID][targetID]
	return n, ok
}

// SetGuess 记录猜测：每个画者只能猜一次，同一个数字不能用在两个人身上
func (r *Round) SetGuess(guesserID, targetID string, number int) error {
	mine, ok := r.guesses[guesserID]
	if !ok {
		return apperrors.ErrNotInRoom
	}
	if _, ok := r.scoreCards[targetID]; !ok {
		return apperrors.ErrNotInRoom
	}
	if guesserID == targetID {
		return errGuessSelf
	}
	if _, done := mine[targetID]; done {
		return errGuessLocked
	}
	for tid, n := range mine {
		if n == number && tid != targetID {
			return errNumberUsed
		}
	}
	mine[targetID] = number
	return nil
}

// ProcessGuess 结算一次猜测，猜中时拿走画者最大的得分卡
func (r *Round) ProcessGuess(guesserID, targetID string, correct bool) int {
	if !correct {
		return 0
	}
	points := 0
	if cards := r.scoreCards[targetID]; len(cards) > 0 {
		points = cards[0]
		r.scoreCards[targetID] = cards[1:]
	}
	r.correct[targetID] = append(r.correct[targetID], HistoryEntry{
		GuesserID: guesserID,
		Score:     points,
		Order:     len(r.correct[targetID]) + 1,
	})
	r.scores[guesserID] += points
	return points
}

// FinalScores 本回合最终得分：猜中所得减去自己剩下的得分卡（两人局不扣）
func (r *Round) FinalScores() map[string]int {
	final := maps.Clone(r.scores)
	if final == nil {
		final = make(map[string]int)
	}
	if len(r.players) == 2 {
		return final
	}
	for _, pid := range r.players {
		penalty := 0
		for _, c := range r.scoreCards[pid] {
			penalty += c
		}
		final[pid] -= penalty
	}
	return final
}

// RemovePlayer 玩家离开：移除其得分卡以及所有与之相关的猜测
func (r *Round) RemovePlayer(playerID string) {
	r.players = slices.DeleteFunc(r.players, func(pid string) bool { return pid == playerID })
	delete(r.scoreCards, playerID)
	delete(r.correct, playerID)
	delete(r.scores, playerID)
	delete(r.guesses, playerID)
	for _, mine := range r.guesses {
		delete(mine, playerID)
	}
	for target, list := range r.correct {
		r.correct[target] = slices.DeleteFunc(list, func(e HistoryEntry) bool { return e.GuesserID == playerID })
	}
}

// Rebind 把所有引用 oldID 的地方改成 newID
func (r *Round) Rebind(oldID, newID string) {
	if oldID == newID {
		return
	}
	for i, pid := range r.players {
		if pid == oldID {
			r.players[i] = newID
		}
	}
	if v, ok := r.scoreCards[oldID]; ok {
		r.scoreCards[newID] = v
		delete(r.scoreCards, oldID)
	}
	if v, ok := r.scores[oldID]; ok {
		r.scores[newID] = v
		delete(r.scores, oldID)
	}
	if v, ok := r.correct[oldID]; ok {
		r.correct[newID] = v
		delete(r.correct, oldID)
	}
	for _, list := range r.correct {
		for i := range list {
			if list[i].GuesserID == oldID {
				list[i].GuesserID = newID
			}
		}
	}
	if v, ok := r.guesses[oldID]; ok {
		r.guesses[newID] = v
		delete(r.guesses, oldID)
	}
	for _, mine := range r.guesses {
		if n, ok := mine[oldID]; ok {
			mine[newID] = n
			delete(mine, oldID)
		}
	}
}

// RoundData Round 的纯数据形式
type RoundData struct {
	Players    []string                  `json:"players"`
	ScoreCards map[string][]int          `json:"scoreCards"`
	Correct    map[string][]HistoryEntry `json:"correctGuesses"`
	Scores     map[string]int            `json:"scores"`
	Guesses    map[string]map[string]int `json:"activeGuesses"`
}

// Data 导出快照
func (r *Round) Data() *RoundData {
	d := &RoundData{
		Players:    slices.Clone(r.players),
		ScoreCards: make(map[string][]int, len(r.scoreCards)),
		Correct:    make(map[string][]HistoryEntry, len(r.correct)),
		Scores:     maps.Clone(r.scores),
		Guesses:    make(map[string]map[string]int, len(r.guesses)),
	}
	for k, v := range r.scoreCards {
		d.ScoreCards[k] = slices.Clone(v)
	}
	for k, v := range r.correct {
		d.Correct[k] = slices.Clone(v)
	}
	for k, v := range r.guesses {
		d.Guesses[k] = maps.Clone(v)
	}
	return d
}

// RoundFromData 从快照重建
func RoundFromData(d *RoundData) *Round {
	r := &Round{
		players:    slices.Clone(d.Players),
		scoreCards: make(map[string][]int, len(d.ScoreCards)),
		correct:    make(map[string][]HistoryEntry, len(d.Correct)),
		scores:     make(map[string]int, len(d.Scores)),
		guesses:    make(map[string]map[string]int, len(d.Guesses)),
	}
	for k, v := range d.ScoreCards {
		r.scoreCards[k] = slices.Clone(v)
	}
	for k, v := range d.Correct {
		r.correct[k] = slices.Clone(v)
	}
	maps.Copy(r.scores, d.Scores)
	for k, v := range d.Guesses {
		m := make(map[string]int, len(v))
		maps.Copy(m, v)
		r.guesses[k] = m
	}
	for _, pid := range r.players {
		if r.guesses[pid] == nil {
			r.guesses[pid] = make(map[string]int)
		}
		if r.correct[pid] == nil {
			r.correct[pid] = []HistoryEntry{}
		}
	}
	return r
}
