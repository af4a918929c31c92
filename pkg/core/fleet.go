// pkg/core/fleet.go
package core

// FleetEntry is a ship design and how many copies of it a fleet fields.
type FleetEntry struct {
	Ship  *ShipDesign
	Count int
}

// Fleet is a named composition of ship designs.
type Fleet struct {
	Name  string
	Ships []FleetEntry
}

// Cost is the total mineral-equivalent cost of every ship in the fleet.
func (f *Fleet) Cost() float64 {
	var total float64
	for _, e := range f.Ships {
		total += e.Ship.Cost * float64(e.Count)
	}
	return total
}

// ShipCount is the number of hulls the fleet fields.
func (f *Fleet) ShipCount() int {
	var n int
	for _, e := range f.Ships {
		n += e.Count
	}
	return n
}

// EngagementRange is the longest engagement range of any ship design in the fleet.
func (f *Fleet) EngagementRange() float64 {
	var longest float64
	for _, e := range f.Ships {
		longest = max(longest, e.Ship.EngagementRange())
	}
	return longest
}
