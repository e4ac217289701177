package feed

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"snapfeed/internal/models"
)

// FilterKind selects one of the feed projections.
type FilterKind string

const (
	FilterNewest    FilterKind = "newest"
	FilterFollowing FilterKind = "following"
	FilterTrending  FilterKind = "trending"
	FilterMine      FilterKind = "mine"
)

// ParseFilterKind validates a client-supplied filter name.
func ParseFilterKind(s string) (FilterKind, bool) {
	switch FilterKind(s) {
	case FilterNewest, FilterFollowing, FilterTrending, FilterMine:
		return FilterKind(s), true
	}
	return "", false
}

// Apply projects snaps into the requested view. It is pure: the input slice
// is never reordered or modified, every path works on a fresh slice. Muted
// authors are dropped from every view. currentUser may be empty for an
// unauthenticated viewer, in which case the mine view is empty.
//
//	newest:    snaps as flattened by the ledger, muted authors removed
//	following: only snaps whose author is in following, order preserved
//	trending:  stable-sorted descending by total payout estimate
//	mine:      only snaps authored by currentUser
func Apply(snaps []models.Snap, kind FilterKind, following mapset.Set[string], muted mapset.Set[string], currentUser string) []models.Snap {
	out := make([]models.Snap, 0, len(snaps))
	for _, s := range snaps {
		if muted != nil && muted.Contains(s.Author) {
			continue
		}
		switch kind {
		case FilterFollowing:
			if following == nil || !following.Contains(s.Author) {
				continue
			}
		case FilterMine:
			if currentUser == "" || s.Author != currentUser {
				continue
			}
		}
		out = append(out, s)
	}
	if kind == FilterTrending {
		sortByPayoutDesc(out)
	}
	return out
}

// sortByPayoutDesc orders snaps by their summed payout estimate, highest
// first. Payouts are parsed once per snap, not once per comparison; snaps
// with equal or unparseable (zero) payouts keep their relative order.
func sortByPayoutDesc(snaps []models.Snap) {
	type rankedSnap struct {
		snap   models.Snap
		payout float64
	}
	ranked := make([]rankedSnap, len(snaps))
	for i, s := range snaps {
		ranked[i] = rankedSnap{snap: s, payout: s.PayoutTotal()}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].payout > ranked[j].payout
	})
	for i := range ranked {
		snaps[i] = ranked[i].snap
	}
}
