// pkg/core/cost.go
package core

import "fmt"

// Cost is a resource bill for a hull or component.
type Cost struct {
	Alloys             float64 `json:"alloys" mapstructure:"alloys" validate:"gte=0"`
	Minerals           float64 `json:"minerals" mapstructure:"minerals" validate:"gte=0"`
	DarkMatter         float64 `json:"darkMatter" mapstructure:"darkMatter" validate:"gte=0"`
	StrategicResources float64 `json:"strategicResources" mapstructure:"strategicResources" validate:"gte=0"`
	Zro                float64 `json:"zro" mapstructure:"zro" validate:"gte=0"`
	Nanites            float64 `json:"nanites" mapstructure:"nanites" validate:"gte=0"`
}

// Add returns the element-wise sum of two costs.
func (c Cost) Add(o Cost) Cost {
	return Cost{
		Alloys:             c.Alloys + o.Alloys,
		Minerals:           c.Minerals + o.Minerals,
		DarkMatter:         c.DarkMatter + o.DarkMatter,
		StrategicResources: c.StrategicResources + o.StrategicResources,
		Zro:                c.Zro + o.Zro,
		Nanites:            c.Nanites + o.Nanites,
	}
}

// MineralEquivalent collapses the bill into a single comparable value.
func (c Cost) MineralEquivalent() float64 {
	return c.Alloys*2 +
		c.Minerals +
		c.DarkMatter*20 +
		c.StrategicResources*5 +
		c.Zro*20 +
		c.Nanites*40
}

func (c Cost) String() string {
	return fmt.Sprintf("%g mineral-equivalents", c.MineralEquivalent())
}
