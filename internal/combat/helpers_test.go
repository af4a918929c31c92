package combat

import "github.com/athena2/fleeteval/pkg/core"

// fixedRand always returns the same draw.
type fixedRand float64

func (f fixedRand) Float64() float64 { return float64(f) }

func testWeapon(mods ...func(*core.Weapon)) *core.Weapon {
	w := &core.Weapon{
		Name:                 "laser",
		Size:                 "S",
		MinDamage:            10,
		MaxDamage:            10,
		MaxRange:             50,
		Accuracy:             1,
		Cooldown:             1,
		ShieldDamageModifier: 1,
		ArmourDamageModifier: 1,
		HullDamageModifier:   1,
		Kind:                 core.WeaponRegular,
	}
	for _, m := range mods {
		m(w)
	}
	return w
}

func testDesign(mods ...func(*core.ShipDesign)) *core.ShipDesign {
	d := &core.ShipDesign{
		Name:                    "frigate",
		Cost:                    100,
		Speed:                   10,
		HullHealth:              100,
		DisengageChances:        1,
		DisengageChanceModifier: 1,
		Tactics:                 core.TacticsLine,
		Weapons:                 []*core.Weapon{testWeapon()},
	}
	for _, m := range mods {
		m(d)
	}
	return d
}

func testFleet(name string, d *core.ShipDesign, count int) *core.Fleet {
	return &core.Fleet{Name: name, Ships: []core.FleetEntry{{Ship: d, Count: count}}}
}

func unarmed(d *core.ShipDesign) {
	d.Weapons = nil
	d.Tactics = core.TacticsSwarm
}
