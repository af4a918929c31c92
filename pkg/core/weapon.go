// pkg/core/weapon.go
package core

// WeaponKind selects which payload a Weapon carries.
type WeaponKind int

const (
	WeaponRegular WeaponKind = iota
	WeaponProjectile
	WeaponHangar
)

func (k WeaponKind) String() string {
	switch k {
	case WeaponRegular:
		return "regular"
	case WeaponProjectile:
		return "projectile"
	case WeaponHangar:
		return "hangar"
	default:
		return "unknown"
	}
}

// Weapon tags with combat effects.
const (
	TagPointDefence = "point-defence"
	TagExplosive    = "explosive"
)

// ProjectileSpec is the payload of a projectile weapon: the missile or
// torpedo launched each time the weapon fires.
type ProjectileSpec struct {
	Speed         float64
	Evasion       float64
	RetargetRange float64
	Hull          float64
	Armour        float64
}

// StrikeCraftSpec describes one craft launched from a hangar.
type StrikeCraftSpec struct {
	Range   float64
	Speed   float64
	Evasion float64
	Shield  float64
	Armour  float64
	Hull    float64
}

// HangarSpec is the payload of a hangar weapon.
type HangarSpec struct {
	UnitsPerHangar float64
	RegenPerDay    float64
	StrikeCraft    StrikeCraftSpec
}

// Weapon is an immutable weapon component. Kind decides which of
// Projectile or Hangar is set; both are nil for regular weapons.
type Weapon struct {
	Name string
	Size string
	Tag  string

	Power     float64
	MinDamage float64
	MaxDamage float64
	MinRange  float64
	MaxRange  float64
	Tracking  float64
	Accuracy  float64
	Cooldown  float64

	ShieldDamageModifier float64
	ShieldSkipModifier   float64
	ArmourDamageModifier float64
	ArmourSkipModifier   float64
	HullDamageModifier   float64
	// SizeDamageModifier is read from design files and kept for reference.
	// Battles do not apply it.
	SizeDamageModifier float64

	Cost Cost

	Kind       WeaponKind
	Projectile *ProjectileSpec
	Hangar     *HangarSpec
}

// IsPointDefence reports whether the weapon may engage projectiles and
// strike craft as well as ships.
func (w *Weapon) IsPointDefence() bool {
	return w.Tag == TagPointDefence
}

// IsExplosive reports whether explosive damage bonuses apply.
func (w *Weapon) IsExplosive() bool {
	return w.Tag == TagExplosive
}
