// Package ranking orders scored accounts into a leaderboard.
package ranking

import (
	"sort"

	"github.com/okian/fleetpower/internal/domain/fleet"
	"github.com/okian/fleetpower/internal/domain/power"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank           int     `json:"rank"`
	Address        string  `json:"address"`
	DisplayAddress string  `json:"display_address"`
	TotalPower     int64   `json:"total_power"`
	Tier           string  `json:"tier"`
	ShipCount      int     `json:"ship_count"`
	AverageLevel   float64 `json:"average_level"`
	Current        bool    `json:"current,omitempty"`
}

// EntryFor builds an unranked entry from a scorer result.
func EntryFor(address string, r power.Result) Entry {
	return Entry{
		Address:        address,
		DisplayAddress: fleet.ShortAddress(address),
		TotalPower:     r.TotalPower,
		Tier:           r.Tier,
		ShipCount:      r.FleetCount,
		AverageLevel:   r.AverageLevel,
	}
}

// Rank returns a copy of entries sorted by TotalPower descending. Ties keep
// their input order and share a rank: an entry's rank is one plus the number
// of entries with strictly greater power.
func Rank(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalPower > out[j].TotalPower
	})
	for i := range out {
		if i > 0 && out[i].TotalPower == out[i-1].TotalPower {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

// WithCurrent merges the current user's entry into entries and ranks the
// result. An existing row for the same address is replaced in place; otherwise
// the entry is appended. The current row is never pinned.
func WithCurrent(entries []Entry, current Entry) []Entry {
	current.Current = true
	merged := make([]Entry, 0, len(entries)+1)
	replaced := false
	for _, e := range entries {
		if !replaced && fleet.SameAddress(e.Address, current.Address) {
			merged = append(merged, current)
			replaced = true
			continue
		}
		merged = append(merged, e)
	}
	if !replaced {
		merged = append(merged, current)
	}
	return Rank(merged)
}

// RankOf finds the rank of address in an already ranked slice.
func RankOf(ranked []Entry, address string) (int, bool) {
	for _, e := range ranked {
		if fleet.SameAddress(e.Address, address) {
			return e.Rank, true
		}
	}
	return 0, false
}

// Top returns at most n leading entries. It shares the backing array.
func Top(ranked []Entry, n int) []Entry {
	if n < 0 {
		n = 0
	}
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}
