package uno

import (
	"maps"
	"slices"
)

// RoundData Round 的纯数据形式，用于持久化
type RoundData struct {
	Deck             []Card            `json:"deck"`
	DiscardPile      []Card            `json:"discardPile"`
	Hands            map[string][]Card `json:"hands"`
	Players          []string          `json:"players"`
	CurrentIndex     int               `json:"currentPlayerIndex"`
	Direction        int               `json:"direction"`
	ActiveColor      Color             `json:"activeColor"`
	UnoCalled        []string          `json:"unoCalled"`
	Winner           string            `json:"winner,omitempty"`
	HasDrawnThisTurn bool              `json:"hasDrawnThisTurn"`
}

// Data 导出快照
func (r *Round) Data() *RoundData {
	hands := make(map[string][]Card, len(r.hands))
	for pid, h := range r.hands {
		hands[pid] = slices.Clone(h)
	}
	called := slices.Sorted(maps.Keys(r.unoCalled))
	return &RoundData{
		Deck:             slices.Clone(r.deck),
		DiscardPile:      slices.Clone(r.discard),
		Hands:            hands,
		Players:          slices.Clone(r.players),
		CurrentIndex:     r.current,
		Direction:        r.direction,
		ActiveColor:      r.activeColor,
		UnoCalled:        called,
		Winner:           r.winner,
		HasDrawnThisTurn: r.hasDrawn,
	}
}

// RoundFromData 从快照重建，缺省字段取安全值
func RoundFromData(d *RoundData) *Round {
	r := &Round{
		deck:        slices.Clone(d.Deck),
		discard:     slices.Clone(d.DiscardPile),
		hands:       make(map[string][]Card, len(d.Hands)),
		players:     slices.Clone(d.Players),
		current:     d.CurrentIndex,
		direction:   d.Direction,
		activeColor: d.ActiveColor,
		unoCalled:   make(map[string]bool, len(d.UnoCalled)),
		winner:      d.Winner,
		hasDrawn:    d.HasDrawnThisTurn,
		shuffle:     Shuffle,
	}
	for pid, h := range d.Hands {
		r.hands[pid] = slices.Clone(h)
	}
	for _, pid := range d.UnoCalled {
		r.unoCalled[pid] = true
	}
	if r.direction != 1 && r.direction != -1 {
		r.direction = 1
	}
	if r.current < 0 || r.current >= len(r.players) {
		r.current = 0
	}
	if r.activeColor == "" {
		r.activeColor = Red
	}
	return r
}
