package rules

import (
	"strings"
	"time"

	"minefield/common/cache"
	"minefield/internal/tile"
)

// waitCache memoizes Waits by (hand, scoring context) — nil until
// EnableWaitCache is called, at which point every Waits call consults
// and populates it. Disabled by default so tests see deterministic,
// cache-free behavior.
var waitCache *cache.GeneralCache

// EnableWaitCache turns on wait-set memoization. Repeated hand shapes
// are common across a long-running process (the 34-candidate scan in
// Waits dominates OnHand's cost), so caching the result cuts CPU at
// the price of holding up to maxCost cached wait sets, each entry
// expiring after ttl.
func EnableWaitCache(maxCost int64, ttl time.Duration) error {
	c, err := cache.NewGeneralCache(maxCost, ttl)
	if err != nil {
		return err
	}
	waitCache = c
	return nil
}

func waitKey(hand13 []tile.Tile, opts ScoringContext) string {
	var b strings.Builder
	for _, t := range hand13 {
		b.WriteString(t.String())
	}
	b.WriteByte('|')
	for _, w := range opts.FanpaiWinds {
		b.WriteString(w.String())
	}
	b.WriteByte('|')
	b.WriteString(opts.DoraInd.String())
	if opts.Hotei {
		b.WriteByte('H')
	}
	if opts.Ippatsu {
		b.WriteByte('I')
	}
	return b.String()
}

// Waits returns every tile that, added to the 13-tile hand13, yields
// a 14-tile hand with at least one yaku-bearing interpretation — the
// set of tiles this hand is waiting on (§4.1's wait solver, component D).
func Waits(hand13 []tile.Tile, opts ScoringContext) []tile.Tile {
	if waitCache == nil {
		return computeWaits(hand13, opts)
	}
	key := waitKey(hand13, opts)
	if cached, ok := waitCache.Get(key); ok {
		return cached.([]tile.Tile)
	}
	out := computeWaits(hand13, opts)
	waitCache.Set(key, out)
	waitCache.Wait()
	return out
}

func computeWaits(hand13 []tile.Tile, opts ScoringContext) []tile.Tile {
	var out []tile.Tile
	for _, candidate := range tile.All34() {
		full := make([]tile.Tile, 0, 14)
		full = append(full, hand13...)
		full = append(full, candidate)
		tile.Sort(full)
		if BestHand(full, candidate, opts) != nil {
			out = append(out, candidate)
		}
	}
	return out
}

// Waiting reports whether hand13 has at least one completing tile.
func Waiting(hand13 []tile.Tile, opts ScoringContext) bool {
	return len(Waits(hand13, opts)) > 0
}
