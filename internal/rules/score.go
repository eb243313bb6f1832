package rules

import "minefield/internal/tile"

// Limit buckets the fan+dora total into the standard riichi scoring
// tiers, §4.1's table. Code 5 also covers any yakuman.
type Limit int

const (
	BelowMangan Limit = iota
	Mangan
	Haneman
	Baiman
	Sanbaiman
	Yakuman
)

// BasePoints is indexed by Limit and gives the non-dealer point value
// of a win at that limit (§4.1).
var BasePoints = [...]int{
	BelowMangan: 0,
	Mangan:      8000,
	Haneman:     12000,
	Baiman:      16000,
	Sanbaiman:   24000,
	Yakuman:     32000,
}

// Result is the scored outcome of a winning interpretation: its yaku,
// fan, dora, and resulting limit/points.
type Result struct {
	Hand    Hand
	Yaku    []Yaku
	Yakuman bool
	Fan     int
	Dora    int
	Limit   Limit
	Points  int
}

// Fan sums the fixed fan value of each yaku present (ignored for
// yakuman hands, which are scored by limit alone per §4.1).
func fanOf(yakus []Yaku) int {
	total := 0
	for _, y := range yakus {
		total += fanValue[y]
	}
	return total
}

func hasYakuman(yakus []Yaku) bool {
	for _, y := range yakus {
		if y.isYakuman() {
			return true
		}
	}
	return false
}

// DoraCount returns how many dora tiles (the cyclic successor of ind)
// appear in tiles. A zero/unset indicator (no dora round in effect)
// counts as zero dora rather than panicking through Next.
func DoraCount(tiles []tile.Tile, ind tile.Tile) int {
	if !ind.Valid() {
		return 0
	}
	dora := ind.Next()
	n := 0
	for _, t := range tiles {
		if t == dora {
			n++
		}
	}
	return n
}

// Score evaluates one Hand interpretation: yaku, fan, dora, limit.
// Hands with no yaku score nil (unwinnable, §4.1).
func Score(h Hand) *Result {
	yakus := h.Yaku()
	if len(yakus) == 0 {
		return nil
	}
	yakuman := hasYakuman(yakus)
	fan := fanOf(yakus)
	dora := DoraCount(h.Tiles, h.Options.DoraInd)
	if h.Options.UraDoraInd != nil {
		dora += DoraCount(h.Tiles, *h.Options.UraDoraInd)
	}

	limit := limitFor(yakuman, fan+dora)
	return &Result{
		Hand:    h,
		Yaku:    yakus,
		Yakuman: yakuman,
		Fan:     fan,
		Dora:    dora,
		Limit:   limit,
		Points:  BasePoints[limit],
	}
}

func limitFor(yakuman bool, total int) Limit {
	switch {
	case yakuman:
		return Yakuman
	case total >= 13:
		return Yakuman
	case total >= 11:
		return Sanbaiman
	case total >= 8:
		return Baiman
	case total >= 6:
		return Haneman
	case total >= 5:
		return Mangan
	default:
		return BelowMangan
	}
}

// better reports whether a beats b under §4.1's "Best-hand selection"
// tie-break: (limit, fan, yakuman-over-non-yakuman, more-yaku-wins).
func better(a, b *Result) bool {
	if a.Limit != b.Limit {
		return a.Limit > b.Limit
	}
	if a.Fan != b.Fan {
		return a.Fan > b.Fan
	}
	if a.Yakuman != b.Yakuman {
		return a.Yakuman
	}
	return len(a.Yaku) > len(b.Yaku)
}

// BestHand enumerates every interpretation of the 14-tile hand and
// picks the one maximizing the §4.1 tie-break. Returns nil if no
// interpretation carries a yaku — the hand does not win.
func BestHand(sorted []tile.Tile, wait tile.Tile, opts ScoringContext) *Result {
	var best *Result
	for _, h := range AllHands(sorted, wait, opts) {
		r := Score(h)
		if r == nil {
			continue
		}
		if best == nil || better(r, best) {
			best = r
		}
	}
	return best
}
