package rules

import "minefield/internal/tile"

// Decompose enumerates every regular {pair + 4 groups} interpretation
// of a sorted 14-tile hand. Recursion bottoms out quickly: a hand has
// at most 5 groups (one pair, four melds), so the call depth is fixed
// regardless of hand size.
//
// Grounded on original_source/rules/rules.py's find_pair/begin_pon/
// begin_chi/decompose_regular, kept as a recursive enumeration
// (allGroups) whose depth is bounded by the four melds.
func Decompose(sorted []tile.Tile) []Decomposition {
	var out []Decomposition
	for pairIdx, residue := range pairCandidates(sorted) {
		groups := allGroups(residue)
		for _, g := range groups {
			d := make(Decomposition, 0, 5)
			d = append(d, Group{Kind: Pair, Anchor: sorted[pairIdx]})
			d = append(d, g...)
			out = append(out, d)
		}
	}
	return out
}

// pairCandidates scans adjacent equal tiles for a pair, skipping a
// candidate position when three copies are adjacent (tiles[i] ==
// tiles[i+1] == tiles[i+2]) since consuming the first two would
// miscount a triplet as a pair. Returns, for each viable pair
// position, the index of the pair's anchor tile and the 12-tile
// residue with that pair removed.
func pairCandidates(sorted []tile.Tile) map[int][]tile.Tile {
	out := make(map[int][]tile.Tile)
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i] != sorted[i+1] {
			continue
		}
		if i+2 < len(sorted) && sorted[i+1] == sorted[i+2] {
			continue
		}
		residue := make([]tile.Tile, 0, len(sorted)-2)
		residue = append(residue, sorted[:i]...)
		residue = append(residue, sorted[i+2:]...)
		out[i] = residue
	}
	return out
}

// allGroups enumerates every way to peel the (sorted, 12-tile) residue
// into four pon/chi groups, each decomposition produced exactly once
// by always anchoring on the lowest remaining tile.
func allGroups(residue []tile.Tile) [][]Group {
	if len(residue) == 0 {
		return [][]Group{{}}
	}

	var out [][]Group
	anchor := residue[0]

	// triplet
	if len(residue) >= 3 && residue[1] == anchor && residue[2] == anchor {
		rest := residue[3:]
		for _, tail := range allGroups(rest) {
			g := append([]Group{{Kind: Pon, Anchor: anchor}}, tail...)
			out = append(out, g)
		}
	}

	// run — only numeric suits, anchor rank <= 7, both successors present
	if anchor.IsNumbered() && anchor.Rank <= 7 {
		second := tile.Tile{Suit: anchor.Suit, Rank: anchor.Rank + 1}
		third := tile.Tile{Suit: anchor.Suit, Rank: anchor.Rank + 2}
		rest, ok1 := tile.Remove(residue[1:], second)
		if ok1 {
			rest2, ok2 := tile.Remove(rest, third)
			if ok2 {
				for _, tail := range allGroups(rest2) {
					g := append([]Group{{Kind: Chi, Anchor: anchor}}, tail...)
					out = append(out, g)
				}
			}
		}
	}

	return out
}

// IsSevenPairs reports whether the sorted 14 tiles form seven distinct
// pairs with no tile appearing four times (a quad is not two pairs).
func IsSevenPairs(sorted []tile.Tile) bool {
	if len(sorted) != 14 {
		return false
	}
	for i := 0; i < 14; i += 2 {
		if sorted[i] != sorted[i+1] {
			return false
		}
	}
	for i := 0; i+2 < 14; i += 2 {
		if sorted[i] == sorted[i+2] {
			return false // four of a kind isn't two pairs
		}
	}
	return true
}

// thirteenOrphans is the fixed set of terminal/honor tiles kokushi is
// built from: 1 and 9 of each numbered suit, plus all seven honors.
func thirteenOrphans() []tile.Tile {
	return []tile.Tile{
		tile.MustParse("M1"), tile.MustParse("M9"),
		tile.MustParse("P1"), tile.MustParse("P9"),
		tile.MustParse("S1"), tile.MustParse("S9"),
		tile.MustParse("X1"), tile.MustParse("X2"), tile.MustParse("X3"),
		tile.MustParse("X4"), tile.MustParse("X5"), tile.MustParse("X6"), tile.MustParse("X7"),
	}
}

// IsKokushi reports whether the 14 tiles comprise all thirteen
// terminal/honor tiles plus one duplicate among them.
func IsKokushi(tiles []tile.Tile) bool {
	if len(tiles) != 14 {
		return false
	}
	counts := tile.Multiset(tiles)
	orphans := thirteenOrphans()
	orphanSet := make(map[int]bool, 13)
	for _, o := range orphans {
		orphanSet[o.Index()] = true
	}
	for i, c := range counts {
		if orphanSet[i] {
			if c == 0 {
				return false
			}
		} else if c != 0 {
			return false
		}
	}
	return true
}
