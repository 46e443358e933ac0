// Package power computes fleet battle power from an account's ships and gems.
//
// Compute is pure: it never mutates its inputs, never fails and treats
// missing data as zero. Floating point operations follow a fixed order so
// results are reproducible across callers.
package power

import (
	"math"

	"github.com/okian/fleetpower/internal/domain/fleet"
)

// Scoring table.
const (
	stakingRate = 0.2

	fleetSizeRate     = 0.05
	fleetSizePerShips = 5
	fleetSizeMaxRate  = 0.5

	sapphirePower = 50
	sunstonePower = 75
	lithiumPower  = 100
)

var basePower = [...]float64{
	fleet.Common:    100,
	fleet.Rare:      200,
	fleet.Epic:      400,
	fleet.Legendary: 800,
}

var levelMultiplier = map[int]float64{1: 1.0, 2: 1.3, 3: 1.7, 4: 2.2, 5: 3.0}

var diversityRate = map[int]float64{2: 0.05, 3: 0.10, 4: 0.20}

// Tier is a named power threshold.
type Tier struct {
	Name     string `json:"name"`
	MinPower int64  `json:"min_power"`
}

// Tiers is ordered from the highest threshold down.
var Tiers = []Tier{
	{Name: "Galactic Ruler", MinPower: 50000},
	{Name: "Star Overlord", MinPower: 25000},
	{Name: "Fleet Commander", MinPower: 15000},
	{Name: "Space Admiral", MinPower: 8000},
	{Name: "Star Captain", MinPower: 5000},
	{Name: "Cruiser Captain", MinPower: 3000},
	{Name: "Frigate Captain", MinPower: 1500},
	{Name: "Recruit Commander", MinPower: 800},
	{Name: "Cadet Captain", MinPower: 300},
	{Name: "Space Recruit", MinPower: 0},
}

// TierFor returns the highest tier whose threshold total reaches.
func TierFor(total int64) string {
	for _, t := range Tiers {
		if total >= t.MinPower {
			return t.Name
		}
	}
	return Tiers[len(Tiers)-1].Name
}

// BasePower returns the unlevelled power of a rarity; unknown rarities score as Common.
func BasePower(r fleet.Rarity) float64 {
	return basePower[r.Normalize()]
}

// LevelMultiplier returns the level multiplier; levels outside 1..5 use 1.0.
func LevelMultiplier(level int) float64 {
	if m, ok := levelMultiplier[level]; ok {
		return m
	}
	return 1.0
}

// ShipPower returns the unfloored power of one ship including its staking bonus.
func ShipPower(ship fleet.ShipAsset) float64 {
	p := BasePower(ship.Rarity) * LevelMultiplier(ship.Level)
	if ship.Staked {
		p *= 1 + stakingRate
	}
	return p
}

// Subtotal is a count and its power contribution.
type Subtotal struct {
	Count int     `json:"count"`
	Power float64 `json:"power"`
}

// GemSubtotal is a gem count and its power contribution.
type GemSubtotal struct {
	Count uint64 `json:"count"`
	Power int64  `json:"power"`
}

// ShipBreakdown groups ship power by rarity.
type ShipBreakdown struct {
	Common    Subtotal `json:"common"`
	Rare      Subtotal `json:"rare"`
	Epic      Subtotal `json:"epic"`
	Legendary Subtotal `json:"legendary"`
}

func (b *ShipBreakdown) slot(r fleet.Rarity) *Subtotal {
	switch r.Normalize() {
	case fleet.Rare:
		return &b.Rare
	case fleet.Epic:
		return &b.Epic
	case fleet.Legendary:
		return &b.Legendary
	default:
		return &b.Common
	}
}

// GemBreakdown groups gem power by kind.
type GemBreakdown struct {
	Sapphire GemSubtotal `json:"sapphire"`
	Sunstone GemSubtotal `json:"sunstone"`
	Lithium  GemSubtotal `json:"lithium"`
}

// Bonuses are the floored power amounts each bonus contributed.
type Bonuses struct {
	// Staking is the extra power from the 20% staking multiplier, summed
	// over staked ships and floored. It is already inside ShipPower.
	Staking   int64 `json:"staking"`
	FleetSize int64 `json:"fleet_size"`
	Diversity int64 `json:"diversity"`
}

// Breakdown explains how TotalPower was reached.
type Breakdown struct {
	Ships         ShipBreakdown `json:"ships"`
	Gems          GemBreakdown  `json:"gems"`
	Bonuses       Bonuses       `json:"bonuses"`
	FleetSizeRate float64       `json:"fleet_size_rate"`
	DiversityRate float64       `json:"diversity_rate"`
}

// Result is the battle power of one account.
type Result struct {
	TotalPower   int64     `json:"total_power"`
	ShipPower    int64     `json:"ship_power"`
	GemPower     int64     `json:"gem_power"`
	Tier         string    `json:"tier"`
	FleetCount   int       `json:"fleet_count"`
	StakedCount  int       `json:"staked_count"`
	AverageLevel float64   `json:"average_level"`
	Breakdown    Breakdown `json:"breakdown"`
}

// Compute scores a fleet. nil ships are an empty fleet.
func Compute(ships []fleet.ShipAsset, gems fleet.GemHolding) Result {
	var (
		b          Breakdown
		shipTotal  float64
		stakeExtra float64
		levels     int
		staked     int
		rarities   = make(map[fleet.Rarity]struct{}, len(fleet.Rarities))
	)

	for _, ship := range ships {
		r := ship.Rarity.Normalize()
		p := ShipPower(ship)
		if ship.Staked {
			staked++
			stakeExtra += p - BasePower(r)*LevelMultiplier(ship.Level)
		}
		shipTotal += p
		levels += ship.Level
		rarities[r] = struct{}{}

		slot := b.Ships.slot(r)
		slot.Count++
		slot.Power += p
	}

	b.Gems = GemBreakdown{
		Sapphire: gemSubtotal(gems.Sapphire, sapphirePower),
		Sunstone: gemSubtotal(gems.Sunstone, sunstonePower),
		Lithium:  gemSubtotal(gems.Lithium, lithiumPower),
	}
	gemTotal := addSat(addSat(b.Gems.Sapphire.Power, b.Gems.Sunstone.Power), b.Gems.Lithium.Power)

	count := len(ships)
	b.FleetSizeRate = math.Min(float64(count/fleetSizePerShips)*fleetSizeRate, fleetSizeMaxRate)
	b.DiversityRate = diversityRate[len(rarities)]

	base := shipTotal + float64(gemTotal)
	total := math.Floor(base + base*(b.FleetSizeRate+b.DiversityRate))

	b.Bonuses = Bonuses{
		Staking:   floorInt(stakeExtra),
		FleetSize: floorInt(base * b.FleetSizeRate),
		Diversity: floorInt(base * b.DiversityRate),
	}

	res := Result{
		TotalPower:  floorInt(total),
		ShipPower:   floorInt(shipTotal),
		GemPower:    gemTotal,
		FleetCount:  count,
		StakedCount: staked,
		Breakdown:   b,
	}
	if count > 0 {
		res.AverageLevel = math.Round(float64(levels)/float64(count)*10) / 10
	}
	res.Tier = TierFor(res.TotalPower)
	return res
}

// gemSubtotal saturates at math.MaxInt64 instead of wrapping.
func gemSubtotal(count uint64, unit int64) GemSubtotal {
	if count > uint64(math.MaxInt64/unit) {
		return GemSubtotal{Count: count, Power: math.MaxInt64}
	}
	return GemSubtotal{Count: count, Power: int64(count) * unit}
}

// addSat adds two non-negative values, saturating at math.MaxInt64.
func addSat(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// floorInt floors f into [0, math.MaxInt64].
func floorInt(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= 0 || math.IsNaN(f):
		return 0
	}
	return int64(math.Floor(f))
}
