package parser

import "github.com/athena2/fleeteval/pkg/core"

// Modes accepted by a runspec.
const (
	ModeManual = "manual"
	ModeAuto   = "auto"
)

// Runspec is the on-disk description of an evaluation run.
type Runspec struct {
	Mode               string      `mapstructure:"mode" validate:"required,oneof=manual auto"`
	FightLengthLimit   float64     `mapstructure:"fightLengthLimit" validate:"gte=0"`
	WithdrawMultiplier float64     `mapstructure:"withdrawMultiplier" validate:"gte=0,lte=1"`
	Timestep           float64     `mapstructure:"timestep" validate:"gt=0"`
	Trials             int         `mapstructure:"trials" validate:"gte=1"`
	DebugDump          bool        `mapstructure:"debugDump"`
	Load               LoadSpec    `mapstructure:"load"`
	Fleets             []FleetSpec `mapstructure:"fleets" validate:"dive"`
}

// LoadSpec lists the design files a runspec pulls in. Relative paths are
// resolved against the runspec's directory.
type LoadSpec struct {
	Weapons []string `mapstructure:"weapons" validate:"dive,required"`
	Ships   []string `mapstructure:"ships" validate:"dive,required"`
}

type FleetSpec struct {
	Name  string          `mapstructure:"name" validate:"required"`
	Ships []FleetShipSpec `mapstructure:"ships" validate:"required,min=1,dive"`
}

type FleetShipSpec struct {
	Ship  string `mapstructure:"ship" validate:"required"`
	Count int    `mapstructure:"count" validate:"gte=1"`
}

// WeaponSpec is a weapon file. A projectileSpeed key makes it a projectile
// weapon and an unitsPerHangar key makes it a hangar.
type WeaponSpec struct {
	Name      string  `mapstructure:"name" validate:"required"`
	Size      string  `mapstructure:"size" validate:"len=1"`
	Tag       string  `mapstructure:"tag"`
	Power     float64 `mapstructure:"power"`
	MinDamage float64 `mapstructure:"minDamage" validate:"gte=0"`
	MaxDamage float64 `mapstructure:"maxDamage" validate:"gtefield=MinDamage"`
	MinRange  float64 `mapstructure:"minRange" validate:"gte=0"`
	MaxRange  float64 `mapstructure:"maxRange" validate:"gtefield=MinRange"`
	Tracking  float64 `mapstructure:"tracking" validate:"gte=0"`
	Accuracy  float64 `mapstructure:"accuracy" validate:"gte=0,lte=1"`
	Cooldown  float64 `mapstructure:"cooldown" validate:"gte=0"`

	ShieldDamageModifier float64 `mapstructure:"shieldDamageModifier" validate:"gte=0"`
	ShieldSkipModifier   float64 `mapstructure:"shieldSkipModifier" validate:"gte=0,lte=1"`
	ArmourDamageModifier float64 `mapstructure:"armourDamageModifier" validate:"gte=0"`
	ArmourSkipModifier   float64 `mapstructure:"armourSkipModifier" validate:"gte=0,lte=1"`
	HullDamageModifier   float64 `mapstructure:"hullDamageModifier" validate:"gte=0"`
	SizeDamageModifier   float64 `mapstructure:"sizeDamageModifier"`

	Cost core.Cost `mapstructure:"cost"`

	ProjectileSpeed         *float64 `mapstructure:"projectileSpeed" validate:"omitempty,gt=0"`
	ProjectileEvasion       float64  `mapstructure:"projectileEvasion" validate:"gte=0"`
	ProjectileRetargetRange float64  `mapstructure:"projectileRetargetRange" validate:"gte=0"`
	ProjectileHull          float64  `mapstructure:"projectileHull" validate:"gte=0"`
	ProjectileArmour        float64  `mapstructure:"projectileArmour" validate:"gte=0"`

	UnitsPerHangar     *float64 `mapstructure:"unitsPerHangar" validate:"omitempty,gte=0"`
	RegenPerDay        float64  `mapstructure:"regenPerDay" validate:"gte=0"`
	StrikeCraftRange   float64  `mapstructure:"strikeCraftRange" validate:"gte=0"`
	StrikeCraftSpeed   float64  `mapstructure:"strikeCraftSpeed" validate:"gte=0"`
	StrikeCraftEvasion float64  `mapstructure:"strikeCraftEvasion" validate:"gte=0"`
	StrikeCraftShield  float64  `mapstructure:"strikeCraftShield" validate:"gte=0"`
	StrikeCraftArmour  float64  `mapstructure:"strikeCraftArmour" validate:"gte=0"`
	StrikeCraftHull    float64  `mapstructure:"strikeCraftHull" validate:"gte=0"`
}

// ShipSpec is a ship file: a precomputed stat block plus weapon names.
type ShipSpec struct {
	Name    string    `mapstructure:"name" validate:"required"`
	Cost    core.Cost `mapstructure:"cost"`
	Power   float64   `mapstructure:"power"`
	Speed   float64   `mapstructure:"speed" validate:"gte=0"`
	Evasion float64   `mapstructure:"evasion" validate:"gte=0"`

	HullHealth      float64 `mapstructure:"hullHealth" validate:"gt=0"`
	HullRegen       float64 `mapstructure:"hullRegen" validate:"gte=0"`
	ArmourHealth    float64 `mapstructure:"armourHealth" validate:"gte=0"`
	ArmourRegen     float64 `mapstructure:"armourRegen" validate:"gte=0"`
	ArmourHardening float64 `mapstructure:"armourHardening" validate:"gte=0,lte=1"`
	ShieldHealth    float64 `mapstructure:"shieldHealth" validate:"gte=0"`
	ShieldRegen     float64 `mapstructure:"shieldRegen" validate:"gte=0"`
	ShieldHardening float64 `mapstructure:"shieldHardening" validate:"gte=0,lte=1"`

	DisengageChances        int     `mapstructure:"disengageChances" validate:"gte=0"`
	DisengageChanceModifier float64 `mapstructure:"disengageChanceModifier" validate:"gte=0"`

	TrackingBonus                  float64 `mapstructure:"trackingBonus"`
	TrackingModifier               float64 `mapstructure:"trackingModifier" validate:"gte=-1"`
	ChanceToHitBonus               float64 `mapstructure:"chanceToHitBonus"`
	FireRateModifier               float64 `mapstructure:"fireRateModifier" validate:"gt=-1"`
	ExplosiveWeaponsDamageModifier float64 `mapstructure:"explosiveWeaponsDamageModifier" validate:"gte=-1"`
	WeaponsRangeModifier           float64 `mapstructure:"weaponsRangeModifier" validate:"gte=-1"`
	EngagementRangeModifier        float64 `mapstructure:"engagementRangeModifier" validate:"gte=-1"`

	Tactics string   `mapstructure:"tactics" validate:"required,tactics"`
	Weapons []string `mapstructure:"weapons" validate:"dive,required"`
}
