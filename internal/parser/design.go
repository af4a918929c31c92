package parser

import (
	"fmt"
	"strconv"

	"github.com/athena2/fleeteval/internal/cache"
	"github.com/athena2/fleeteval/pkg/core"
)

// ReadWeapon loads and validates one weapon file.
func (p *Parser) ReadWeapon(path string) (*core.Weapon, error) {
	var spec WeaponSpec
	if err := readDesignFile(path, &spec); err != nil {
		return nil, err
	}
	w, err := p.ParseWeapon(spec)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, loadErr(path, err)
	}
	return w, nil
}

// ParseWeapon validates a decoded weapon and converts it to its tagged form.
func (p *Parser) ParseWeapon(spec WeaponSpec) (*core.Weapon, error) {
	if err := p.validate.Struct(&spec); err != nil {
		return nil, fromValidation("", err)
	}

	w := &core.Weapon{
		Name:                 spec.Name,
		Size:                 spec.Size,
		Tag:                  spec.Tag,
		Power:                spec.Power,
		MinDamage:            spec.MinDamage,
		MaxDamage:            spec.MaxDamage,
		MinRange:             spec.MinRange,
		MaxRange:             spec.MaxRange,
		Tracking:             spec.Tracking,
		Accuracy:             spec.Accuracy,
		Cooldown:             spec.Cooldown,
		ShieldDamageModifier: spec.ShieldDamageModifier,
		ShieldSkipModifier:   spec.ShieldSkipModifier,
		ArmourDamageModifier: spec.ArmourDamageModifier,
		ArmourSkipModifier:   spec.ArmourSkipModifier,
		HullDamageModifier:   spec.HullDamageModifier,
		SizeDamageModifier:   spec.SizeDamageModifier,
		Cost:                 spec.Cost,
		Kind:                 core.WeaponRegular,
	}

	switch {
	case spec.ProjectileSpeed != nil && spec.UnitsPerHangar != nil:
		return nil, loadErr("", ErrAmbiguousWeapon)
	case spec.ProjectileSpeed != nil:
		w.Kind = core.WeaponProjectile
		w.Projectile = &core.ProjectileSpec{
			Speed:         *spec.ProjectileSpeed,
			Evasion:       spec.ProjectileEvasion,
			RetargetRange: spec.ProjectileRetargetRange,
			Hull:          spec.ProjectileHull,
			Armour:        spec.ProjectileArmour,
		}
	case spec.UnitsPerHangar != nil:
		w.Kind = core.WeaponHangar
		w.Hangar = &core.HangarSpec{
			UnitsPerHangar: *spec.UnitsPerHangar,
			RegenPerDay:    spec.RegenPerDay,
			StrikeCraft: core.StrikeCraftSpec{
				Range:   spec.StrikeCraftRange,
				Speed:   spec.StrikeCraftSpeed,
				Evasion: spec.StrikeCraftEvasion,
				Shield:  spec.StrikeCraftShield,
				Armour:  spec.StrikeCraftArmour,
				Hull:    spec.StrikeCraftHull,
			},
		}
	}

	p.logger.Debug("Parsed weapon", "name", w.Name, "kind", w.Kind.String())
	return w, nil
}

// ReadShip loads one ship file, resolving its weapons against designs.
func (p *Parser) ReadShip(path string, designs *cache.DesignCache) (*core.ShipDesign, error) {
	var spec ShipSpec
	if err := readDesignFile(path, &spec); err != nil {
		return nil, err
	}
	s, err := p.ParseShip(spec, designs)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, loadErr(path, err)
	}
	return s, nil
}

// ParseShip validates a decoded ship, resolves its weapons and totals its
// cost. A ship whose weapons draw more power than it supplies is rejected.
func (p *Parser) ParseShip(spec ShipSpec, designs *cache.DesignCache) (*core.ShipDesign, error) {
	if err := p.validate.Struct(&spec); err != nil {
		return nil, fromValidation("", err)
	}

	weapons := make([]*core.Weapon, 0, len(spec.Weapons))
	cost := spec.Cost
	power := spec.Power
	for i, name := range spec.Weapons {
		w, ok := designs.GetWeapon(name)
		if !ok {
			return nil, loadErr("", fmt.Errorf("%w '%s'", ErrUnknownWeapon, name), "weapons", strconv.Itoa(i))
		}
		weapons = append(weapons, w)
		cost = cost.Add(w.Cost)
		power += w.Power
	}
	if power < 0 {
		return nil, loadErr("", fmt.Errorf("%w: %g", ErrInsufficientPower, power), "power")
	}

	s := &core.ShipDesign{
		Name:                           spec.Name,
		Cost:                           cost.MineralEquivalent(),
		Power:                          power,
		Speed:                          spec.Speed,
		Evasion:                        spec.Evasion,
		HullHealth:                     spec.HullHealth,
		HullRegen:                      spec.HullRegen,
		ArmourHealth:                   spec.ArmourHealth,
		ArmourRegen:                    spec.ArmourRegen,
		ArmourHardening:                spec.ArmourHardening,
		ShieldHealth:                   spec.ShieldHealth,
		ShieldRegen:                    spec.ShieldRegen,
		ShieldHardening:                spec.ShieldHardening,
		DisengageChances:               spec.DisengageChances,
		DisengageChanceModifier:        spec.DisengageChanceModifier,
		TrackingBonus:                  spec.TrackingBonus,
		TrackingModifier:               spec.TrackingModifier,
		ChanceToHitBonus:               spec.ChanceToHitBonus,
		FireRateModifier:               spec.FireRateModifier,
		ExplosiveWeaponsDamageModifier: spec.ExplosiveWeaponsDamageModifier,
		WeaponsRangeModifier:           spec.WeaponsRangeModifier,
		EngagementRangeModifier:        spec.EngagementRangeModifier,
		Tactics:                        core.Tactics(spec.Tactics),
		Weapons:                        weapons,
	}

	p.logger.Debug("Parsed ship", "name", s.Name, "cost", s.Cost, "weapons", len(weapons))
	return s, nil
}
