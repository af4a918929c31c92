package cache

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/athena2/fleeteval/pkg/core"
)

var ErrDuplicateDesign = errors.New("duplicate design name")

// DesignCache holds every weapon and ship design loaded for a run, keyed by
// name, so fleets and ships can resolve their references.
type DesignCache struct {
	m       sync.RWMutex
	weapons map[string]*core.Weapon
	ships   map[string]*core.ShipDesign
}

func NewDesignCache() *DesignCache {
	return &DesignCache{
		weapons: make(map[string]*core.Weapon),
		ships:   make(map[string]*core.ShipDesign),
	}
}

func (c *DesignCache) AddWeapon(w *core.Weapon) error {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.weapons[w.Name]; ok {
		return fmt.Errorf("weapon %q: %w", w.Name, ErrDuplicateDesign)
	}
	c.weapons[w.Name] = w
	return nil
}

func (c *DesignCache) AddShip(s *core.ShipDesign) error {
	c.m.Lock()
	defer c.m.Unlock()
	if _, ok := c.ships[s.Name]; ok {
		return fmt.Errorf("ship %q: %w", s.Name, ErrDuplicateDesign)
	}
	c.ships[s.Name] = s
	return nil
}

func (c *DesignCache) GetWeapon(name string) (*core.Weapon, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	w, ok := c.weapons[name]
	return w, ok
}

func (c *DesignCache) GetShip(name string) (*core.ShipDesign, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	s, ok := c.ships[name]
	return s, ok
}

// WeaponNames returns the loaded weapon names in sorted order.
func (c *DesignCache) WeaponNames() []string {
	c.m.RLock()
	defer c.m.RUnlock()
	names := make([]string, 0, len(c.weapons))
	for name := range c.weapons {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ShipNames returns the loaded ship names in sorted order.
func (c *DesignCache) ShipNames() []string {
	c.m.RLock()
	defer c.m.RUnlock()
	names := make([]string, 0, len(c.ships))
	for name := range c.ships {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
