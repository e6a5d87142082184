package game

// DeckSize is the number of cards dealt into every room.
const DeckSize = 16

// PairCount is the number of distinct card values in a deck.
const PairCount = DeckSize / 2

// Card is a single token on the board. Its id is assigned once and
// stays stable for the room's lifetime; flip and match operations
// mutate it in place.
type Card struct {
	ID      int  `json:"id"`
	Value   int  `json:"value"`
	Flipped bool `json:"flipped"`
	Matched bool `json:"matched"`
}

// NewDeck builds the 16-card deck: 8 values with two cards each, ids
// assigned before shuffling so they stay unique regardless of board
// order. The shuffle function has the signature of rand.Shuffle so
// tests can substitute a deterministic order.
func NewDeck(shuffle func(n int, swap func(i, j int))) []Card {
	cards := make([]Card, 0, DeckSize)
	for v := 0; v < PairCount; v++ {
		cards = append(cards,
			Card{ID: v * 2, Value: v},
			Card{ID: v*2 + 1, Value: v},
		)
	}
	shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return cards
}
