// pkg/core/ship.go
package core

import (
	"fmt"
	"slices"
)

// Tactics is a ship's doctrine; it decides the range the ship tries to hold.
type Tactics string

const (
	TacticsSwarm     Tactics = "swarm"
	TacticsTorpedo   Tactics = "torpedo"
	TacticsPicket    Tactics = "picket"
	TacticsLine      Tactics = "line"
	TacticsArtillery Tactics = "artillery"
	TacticsCarrier   Tactics = "carrier"
)

// AllTactics lists every recognised doctrine.
var AllTactics = []Tactics{
	TacticsSwarm,
	TacticsTorpedo,
	TacticsPicket,
	TacticsLine,
	TacticsArtillery,
	TacticsCarrier,
}

// Valid reports whether t is a recognised doctrine.
func (t Tactics) Valid() bool {
	return slices.Contains(AllTactics, t)
}

// ShipDesign is a fully computed, immutable ship stat block. Combat entities
// point at a design but never modify it.
type ShipDesign struct {
	Name string

	// Cost in mineral-equivalents, weapons included.
	Cost    float64
	Power   float64
	Speed   float64
	Evasion float64

	HullHealth      float64
	HullRegen       float64
	ArmourHealth    float64
	ArmourRegen     float64
	ArmourHardening float64
	ShieldHealth    float64
	ShieldRegen     float64
	ShieldHardening float64

	DisengageChances        int
	DisengageChanceModifier float64

	TrackingBonus                  float64
	TrackingModifier               float64
	ChanceToHitBonus               float64
	FireRateModifier               float64
	ExplosiveWeaponsDamageModifier float64
	WeaponsRangeModifier           float64
	EngagementRangeModifier        float64

	Tactics Tactics
	Weapons []*Weapon
}

// EffectiveRange is a weapon's max range after this ship's range modifier.
func (s *ShipDesign) EffectiveRange(w *Weapon) float64 {
	return w.MaxRange * (1 + s.WeaponsRangeModifier)
}

// MaxWeaponRange is the longest unmodified max range of any mounted weapon.
func (s *ShipDesign) MaxWeaponRange() float64 {
	var longest float64
	for _, w := range s.Weapons {
		longest = max(longest, w.MaxRange)
	}
	return longest
}

// EngagementRange is the distance at which this ship opens fire.
func (s *ShipDesign) EngagementRange() float64 {
	return s.MaxWeaponRange() * (1 + s.WeaponsRangeModifier) * (1 + s.EngagementRangeModifier)
}

// PreferredRange returns the distance the ship tries to keep from its
// nearest enemy. It panics on an unrecognised doctrine: tactics are
// validated when designs are loaded.
func (s *ShipDesign) PreferredRange() float64 {
	switch s.Tactics {
	case TacticsSwarm, TacticsTorpedo:
		return 0
	case TacticsPicket, TacticsLine:
		return median(s.effectiveRanges())
	case TacticsArtillery, TacticsCarrier:
		ranges := s.effectiveRanges()
		if len(ranges) == 0 {
			return 0
		}
		return slices.Max(ranges)
	default:
		panic(fmt.Sprintf("ship design %q: unknown tactics %q", s.Name, s.Tactics))
	}
}

func (s *ShipDesign) effectiveRanges() []float64 {
	ranges := make([]float64, 0, len(s.Weapons))
	for _, w := range s.Weapons {
		ranges = append(ranges, s.EffectiveRange(w))
	}
	return ranges
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
