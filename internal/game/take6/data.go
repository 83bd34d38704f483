package take6

import "slices"

// SeatData 单个玩家的持久化数据
type SeatData struct {
	Hand      []int `json:"hand"`
	Selected  int   `json:"selectedCard,omitempty"`
	ScorePile []int `json:"scorePile"`
	Score     int   `json:"score"`
}

// RoundData Round 的纯数据形式
type RoundData struct {
	Deck    []int                `json:"deck"`
	Rows    [][]int              `json:"rows"`
	Players map[string]*SeatData `json:"players"`
	Order   []string             `json:"order"`
	Stage   Stage                `json:"stage"`
	Pending []PendingCard        `json:"pendingCards"`
	Blocked *PendingCard         `json:"currentTurnCard,omitempty"`
	Turn    int                  `json:"round"`
	Winner  string               `json:"winner,omitempty"`
}

// Data 导出快照
func (r *Round) Data() *RoundData {
	d := &RoundData{
		Deck:    slices.Clone(r.deck),
		Rows:    r.Rows(),
		Players: make(map[string]*SeatData, len(r.seats)),
		Order:   slices.Clone(r.order),
		Stage:   r.stage,
		Pending: slices.Clone(r.pending),
		Blocked: r.Blocked(),
		Turn:    r.turn,
		Winner:  r.winner,
	}
	for pid, s := range r.seats {
		d.Players[pid] = &SeatData{
			Hand:      slices.Clone(s.hand),
			Selected:  s.selected,
			ScorePile: slices.Clone(s.scorePile),
			Score:     s.score,
		}
	}
	return d
}

// RoundFromData 从快照重建
func RoundFromData(d *RoundData) *Round {
	r := &Round{
		deck:    slices.Clone(d.Deck),
		seats:   make(map[string]*seat, len(d.Players)),
		order:   slices.Clone(d.Order),
		stage:   d.Stage,
		pending: slices.Clone(d.Pending),
		turn:    d.Turn,
		winner:  d.Winner,
	}
	for i := 0; i < RowCount && i < len(d.Rows); i++ {
		r.rows[i] = slices.Clone(d.Rows[i])
	}
	for pid, s := range d.Players {
		if s == nil {
			continue
		}
		r.seats[pid] = &seat{
			hand:      slices.Clone(s.Hand),
			selected:  s.Selected,
			scorePile: slices.Clone(s.ScorePile),
			score:     s.Score,
		}
	}
	// 旧快照没有座位顺序时按 map 补齐
	if len(r.order) == 0 {
		for pid := range r.seats {
			r.order = append(r.order, pid)
		}
		slices.Sort(r.order)
	}
	for _, pid := range r.order {
		if _, ok := r.seats[pid]; !ok {
			r.seats[pid] = &seat{}
		}
	}
	if d.Blocked != nil {
		b := *d.Blocked
		r.blocked = &b
	}
	if r.stage == "" {
		r.stage = StageSelecting
	}
	if r.turn <= 0 {
		r.turn = 1
	}
	return r
}
