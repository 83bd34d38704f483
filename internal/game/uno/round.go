package uno

import (
	"slices"

	"github.com/palemoky/party-games/internal/apperrors"
)

// DefaultStartingCards 每人起手张数
const DefaultStartingCards = 7

// Round 一局 UNO 的状态机
//
// 手牌按连接 ID 存放，重连后由 Rebind 统一改写。
// 一局内 牌堆 + 弃牌堆 + 所有手牌 的总张数保持不变。
type Round struct {
	deck        []Card
	discard     []Card
	hands       map[string][]Card
	players     []string
	current     int
	direction   int
	activeColor Color
	unoCalled   map[string]bool
	winner      string
	hasDrawn    bool

	shuffle func([]Card)
}

// NewRound 洗牌、发牌并翻开起始牌
func NewRound(players []string, startingCards int) *Round {
	return newRound(players, NewDeck(), startingCards, Shuffle)
}

func newRound(players []string, deck []Card, startingCards int, shuffle func([]Card)) *Round {
	if startingCards <= 0 {
		startingCards = DefaultStartingCards
	}
	r := &Round{
		deck:      deck,
		hands:     make(map[string][]Card, len(players)),
		players:   slices.Clone(players),
		direction: 1,
		unoCalled: make(map[string]bool),
		shuffle:   shuffle,
	}
	r.shuffle(r.deck)

	for _, pid := range r.players {
		r.hands[pid] = r.takeFromDeck(startingCards)
	}

	// 起始牌不能是万能牌或功能牌：放回牌底，重新洗牌再翻
	for {
		if len(r.deck) == 0 {
			break
		}
		start := r.deck[0]
		r.deck = r.deck[1:]
		if start.IsWild() || start.IsAction() {
			r.deck = append(r.deck, start)
			r.shuffle(r.deck)
			continue
		}
		r.discard = append(r.discard, start)
		r.activeColor = start.Color
		break
	}
	return r
}

// takeFromDeck 从牌堆顶取最多 n 张，不回收弃牌堆
func (r *Round) takeFromDeck(n int) []Card {
	n = min(n, len(r.deck))
	cards := slices.Clone(r.deck[:n])
	r.deck = r.deck[n:]
	return cards
}

// drawCards 摸 n 张，牌堆不够时把弃牌堆（保留顶牌）洗回牌堆
func (r *Round) drawCards(n int) []Card {
	cards := make([]Card, 0, n)
	for len(cards) < n {
		if len(r.deck) == 0 && !r.recycle() {
			break
		}
		cards = append(cards, r.deck[0])
		r.deck = r.deck[1:]
	}
	return cards
}

func (r *Round) recycle() bool {
	if len(r.discard) <= 1 {
		return false
	}
	top := r.discard[len(r.discard)-1]
	r.deck = append(r.deck, r.discard[:len(r.discard)-1]...)
	r.discard = []Card{top}
	r.shuffle(r.deck)
	return true
}

// CurrentPlayer 当前行动玩家
func (r *Round) CurrentPlayer() string {
	if len(r.players) == 0 {
		return ""
	}
	return r.players[r.current]
}

// TopCard 弃牌堆顶
func (r *Round) TopCard() Card {
	if len(r.discard) == 0 {
		return Card{}
	}
	return r.discard[len(r.discard)-1]
}

func (r *Round) ActiveColor() Color { return r.activeColor }
func (r *Round) Direction() int     { return r.direction }
func (r *Round) DeckSize() int      { return len(r.deck) }
func (r *Round) Winner() string     { return r.winner }

// HasDrawnThisTurn 当前玩家本回合是否已摸牌
func (r *Round) HasDrawnThisTurn() bool { return r.hasDrawn }

// Players 行动顺序
func (r *Round) Players() []string { return slices.Clone(r.players) }

// Hand 返回手牌副本
func (r *Round) Hand(playerID string) []Card {
	return slices.Clone(r.hands[playerID])
}

// HandSize 手牌张数
func (r *Round) HandSize(playerID string) int {
	return len(r.hands[playerID])
}

// UnoCalled 是否已喊 UNO
func (r *Round) UnoCalled(playerID string) bool {
	return r.unoCalled[playerID]
}

// TotalCards 全部牌的张数
func (r *Round) TotalCards() int {
	n := len(r.deck) + len(r.discard)
	for _, h := range r.hands {
		n += len(h)
	}
	return n
}

// IsPlayable 万能牌总能出；否则需同色或同面值
func (r *Round) IsPlayable(c Card) bool {
	if c.IsWild() {
		return true
	}
	return c.Color == r.activeColor || c.Value == r.TopCard().Value
}

// PlayCard 出牌并结算效果
func (r *Round) PlayCard(playerID string, card Card, chosenColor Color) error {
	if r.winner != "" {
		return apperrors.ErrGameNotStart
	}
	if playerID != r.CurrentPlayer() {
		return apperrors.ErrNotYourTurn
	}

	hand := r.hands[playerID]
	idx := slices.Index(hand, card)
	if idx < 0 {
		return apperrors.ErrCardNotInHand
	}
	if !r.IsPlayable(card) {
		return apperrors.ErrInvalidCard
	}
	if card.IsWild() && !chosenColor.Valid() {
		return apperrors.ErrColorRequired
	}

	hand = slices.Delete(hand, idx, idx+1)
	r.hands[playerID] = hand
	r.discard = append(r.discard, card)
	if card.IsWild() {
		r.activeColor = chosenColor
	} else {
		r.activeColor = card.Color
	}

	if len(hand) > 1 {
		delete(r.unoCalled, playerID)
	}
	if len(hand) == 0 {
		r.winner = playerID
		return nil
	}

	r.resolve(card)
	return nil
}

func (r *Round) resolve(card Card) {
	switch card.Value {
	case ValueSkip:
		r.advance()
		r.advance()
	case ValueReverse:
		r.direction = -r.direction
		// 两人局反转等同禁止，出牌者再出一次
		if len(r.players) == 2 {
			r.advance()
		}
		r.advance()
	case ValueDrawTwo:
		r.penalize(2)
	case ValueWildDrawFour:
		r.penalize(4)
	default:
		r.advance()
	}
}

// penalize 下家摸 n 张并失去 UNO 状态，然后跳过下家
func (r *Round) penalize(n int) {
	r.advance()
	target := r.CurrentPlayer()
	r.hands[target] = append(r.hands[target], r.drawCards(n)...)
	delete(r.unoCalled, target)
	r.advance()
}

func (r *Round) advance() {
	n := len(r.players)
	r.current = ((r.current+r.direction)%n + n) % n
	r.hasDrawn = false
}

// Draw 当前玩家摸一张牌，每回合只能摸一次
//
// 牌堆与弃牌堆都无牌可摸时返回 ok=false，但本回合仍视为已摸牌，可以跳过。
func (r *Round) Draw(playerID string) (card Card, ok bool, err error) {
	if r.winner != "" {
		return Card{}, false, apperrors.ErrGameNotStart
	}
	if playerID != r.CurrentPlayer() {
		return Card{}, false, apperrors.ErrNotYourTurn
	}
	if r.hasDrawn {
		return Card{}, false, apperrors.ErrAlreadyDrawn
	}

	r.hasDrawn = true
	drawn := r.drawCards(1)
	if len(drawn) == 0 {
		return Card{}, false, nil
	}
	r.hands[playerID] = append(r.hands[playerID], drawn[0])
	delete(r.unoCalled, playerID)
	return drawn[0], true, nil
}

// Pass 摸牌后跳过
func (r *Round) Pass(playerID string) error {
	if r.winner != "" {
		return apperrors.ErrGameNotStart
	}
	if playerID != r.CurrentPlayer() {
		return apperrors.ErrNotYourTurn
	}
	if !r.hasDrawn {
		return apperrors.ErrMustDrawFirst
	}
	r.advance()
	return nil
}

// CallUno 喊 UNO
func (r *Round) CallUno(playerID string) error {
	if _, ok := r.hands[playerID]; !ok {
		return apperrors.ErrNotInRoom
	}
	r.unoCalled[playerID] = true
	return nil
}

// Challenge 质疑只剩一张牌却没喊 UNO 的其他玩家，成功则对方罚摸 2 张
func (r *Round) Challenge(challengerID, targetID string) error {
	if _, ok := r.hands[challengerID]; !ok {
		return apperrors.ErrNotInRoom
	}
	if challengerID == targetID {
		return apperrors.ErrCannotChallenge
	}
	hand, ok := r.hands[targetID]
	if !ok || len(hand) != 1 || r.unoCalled[targetID] {
		return apperrors.ErrCannotChallenge
	}
	r.hands[targetID] = append(hand, r.drawCards(2)...)
	delete(r.unoCalled, targetID)
	return nil
}

// HandScore 手牌总分
func (r *Round) HandScore(playerID string) int {
	total := 0
	for _, c := range r.hands[playerID] {
		total += c.Points()
	}
	return total
}

// RemovePlayer 玩家离开：手牌放回牌底，行动指针仍指向在座玩家
func (r *Round) RemovePlayer(playerID string) {
	idx := slices.Index(r.players, playerID)
	if idx < 0 {
		return
	}
	r.deck = append(r.deck, r.hands[playerID]...)
	delete(r.hands, playerID)
	delete(r.unoCalled, playerID)
	r.players = slices.Delete(r.players, idx, idx+1)

	switch {
	case len(r.players) == 0:
		r.current = 0
	case idx < r.current:
		r.current--
	case idx == r.current:
		r.hasDrawn = false
		if r.direction < 0 {
			r.current--
		}
		r.current = (r.current + len(r.players)) % len(r.players)
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
	if hand, ok := r.hands[oldID]; ok {
		r.hands[newID] = hand
		delete(r.hands, oldID)
	}
	if r.unoCalled[oldID] {
		delete(r.unoCalled, oldID)
		r.unoCalled[newID] = true
	}
	if r.winner == oldID {
		r.winner = newID
	}
}
