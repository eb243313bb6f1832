package rules

import "minefield/internal/tile"

// HandType distinguishes the three completing forms a 14-tile hand
// can take.
type HandType int

const (
	Regular HandType = iota
	SevenPairs
	Kokushi13
)

// ScoringContext carries everything about the match situation needed
// to score a winning hand, mirroring Game.options() in the source.
type ScoringContext struct {
	FanpaiWinds []tile.Tile // seat wind(s) worth fan for this seat
	DoraInd     tile.Tile
	UraDoraInd  *tile.Tile // nil unless revealed (win-time only)
	Hotei       bool       // last discard of the hand
	Ippatsu     bool       // opponent has made exactly one prior discard
}

func (c ScoringContext) isFanpaiWind(t tile.Tile) bool {
	for _, w := range c.FanpaiWinds {
		if w == t {
			return true
		}
	}
	return false
}

// Hand is one candidate interpretation of a 14-tile winning hand.
type Hand struct {
	Tiles   []tile.Tile // sorted 14
	Wait    tile.Tile
	Type    HandType
	Groups  Decomposition // only set for Type == Regular
	Options ScoringContext
}

// AllHands enumerates every interpretation (regular decompositions,
// seven-pairs, kokushi) of a sorted 14-tile hand. Mirrors rules.py's
// all_hands — the regular and seven-pairs interpretations are always
// distinct (a seven-pairs Hand carries no groups, while every regular
// decomposition has four pon/chi melds; a hand such as M11 22 33 77 88
// 99 X55 yields both), and kokushi tiles never overlap a scoreable
// pon/chi/pair residue since it spans all three suits plus every honor.
func AllHands(sorted []tile.Tile, wait tile.Tile, opts ScoringContext) []Hand {
	var out []Hand
	for _, d := range Decompose(sorted) {
		out = append(out, Hand{Tiles: sorted, Wait: wait, Type: Regular, Groups: d, Options: opts})
	}
	if IsSevenPairs(sorted) {
		out = append(out, Hand{Tiles: sorted, Wait: wait, Type: SevenPairs, Options: opts})
	}
	if IsKokushi(sorted) {
		out = append(out, Hand{Tiles: sorted, Wait: wait, Type: Kokushi13, Options: opts})
	}
	return out
}
