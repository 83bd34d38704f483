package uno

import (
	"math/rand/v2"
	"strconv"
)

// Color 牌的颜色，万能牌的颜色为 Wild
type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
	Wild   Color = "wild"
)

// Colors 四种可选颜色
var Colors = []Color{Red, Blue, Green, Yellow}

// Valid 是否为万能牌可以指定的颜色
func (c Color) Valid() bool {
	switch c {
	case Red, Blue, Green, Yellow:
		return true
	}
	return false
}

// Value 牌面
type Value string

const (
	ValueSkip         Value = "skip"
	ValueReverse      Value = "reverse"
	ValueDrawTwo      Value = "draw_two"
	ValueWild         Value = "wild"
	ValueWildDrawFour Value = "wild_draw_four"
)

// Card 一张 UNO 牌
type Card struct {
	Color Color `json:"color"`
	Value Value `json:"value"`
}

func (c Card) String() string {
	return string(c.Color) + ":" + string(c.Value)
}

// IsWild 是否万能牌
func (c Card) IsWild() bool {
	return c.Color == Wild
}

// IsAction 是否功能牌（禁止、反转、+2）
func (c Card) IsAction() bool {
	switch c.Value {
	case ValueSkip, ValueReverse, ValueDrawTwo:
		return true
	}
	return false
}

// Points 结算分值：数字牌按面值，功能牌 20，万能牌 50
func (c Card) Points() int {
	switch {
	case c.IsWild():
		return 50
	case c.IsAction():
		return 20
	}
	n, err := strconv.Atoi(string(c.Value))
	if err != nil {
		return 0
	}
	return n
}

// DeckSize 一副牌的张数
const DeckSize = 108

// NewDeck 生成一副未洗的牌
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	faces := []Value{"1", "2", "3", "4", "5", "6", "7", "8", "9", ValueSkip, ValueReverse, ValueDrawTwo}

	for _, color := range Colors {
		deck = append(deck, Card{Color: color, Value: "0"})
		for range 2 {
			for _, v := range faces {
				deck = append(deck, Card{Color: color, Value: v})
			}
		}
	}

	for range 4 {
		deck = append(deck, Card{Color: Wild, Value: ValueWild})
	}
	for range 4 {
		deck = append(deck, Card{Color: Wild, Value: ValueWildDrawFour})
	}
	return deck
}

// Shuffle 原地洗牌
func Shuffle(cards []Card) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
