package model

import (
	"fmt"

	"github.com/gridpool/gridpool/core/quantity"
)

// ComponentCategory is the closed set of device kinds the distributor knows
// how to drive. New kinds must be added here rather than discovered at
// runtime.
type ComponentCategory int

const (
	CategoryBattery ComponentCategory = iota
	CategoryInverter
	CategoryEVCharger
	CategoryCHP
)

// String returns a stable name used in config files, logs and metric labels.
func (c ComponentCategory) String() string {
	switch c {
	case CategoryBattery:
		return "battery"
	case CategoryInverter:
		return "inverter"
	case CategoryEVCharger:
		return "ev_charger"
	case CategoryCHP:
		return "chp"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory converts a config string into a ComponentCategory.
func ParseCategory(s string) (ComponentCategory, error) {
	switch s {
	case "battery":
		return CategoryBattery, nil
	case "inverter":
		return CategoryInverter, nil
	case "ev_charger":
		return CategoryEVCharger, nil
	case "chp":
		return CategoryCHP, nil
	default:
		return 0, fmt.Errorf("unknown component category %q", s)
	}
}

// Component is a physical device in the microgrid. It is owned by the
// topology collaborator; the coordinator treats it as read-only input and
// re-reads availability right before distribution.
type Component struct {
	ID        string
	Category  ComponentCategory
	Bounds    quantity.Bound
	Exclusion quantity.ExclusionBand
	Available bool

	// BoundsKnown is false when the topology collaborator has not yet
	// reported rated bounds for the component. Such components are excluded
	// from distribution and counted as failed.
	BoundsKnown bool
}

// Validate checks the rated bounds of the component.
func (c Component) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("component id must not be empty")
	}
	if !c.BoundsKnown {
		return nil
	}
	if err := c.Bounds.Validate(); err != nil {
		return fmt.Errorf("component %s: %w", c.ID, err)
	}
	if err := c.Exclusion.Validate(); err != nil {
		return fmt.Errorf("component %s: %w", c.ID, err)
	}
	// Band edges outside the rated bounds would be clamped back to a nonzero
	// value inside the band when a command is issued.
	if !c.Exclusion.IsEmpty() {
		if !c.Bounds.Contains(c.Exclusion.Lower) || !c.Bounds.Contains(c.Exclusion.Upper) {
			return fmt.Errorf("component %s: exclusion band [%s, %s] exceeds bounds [%s, %s]",
				c.ID, c.Exclusion.Lower, c.Exclusion.Upper, c.Bounds.Lower, c.Bounds.Upper)
		}
	}
	return nil
}

// Headroom returns the remaining capacity of the component toward the
// requested direction, given the value currently commanded to it. Discharge
// (positive) headroom is the distance to the upper edge, charge (negative)
// headroom the distance to the lower edge. The result is never negative.
func (c Component) Headroom(current quantity.Quantity, direction int) quantity.Quantity {
	unit := c.Bounds.Unit()
	if !c.BoundsKnown {
		return quantity.Zero(unit)
	}
	var room float64
	switch {
	case direction > 0:
		room = c.Bounds.Upper.Value - current.Value
	case direction < 0:
		room = current.Value - c.Bounds.Lower.Value
	default:
		return quantity.Zero(unit)
	}
	if room < 0 {
		room = 0
	}
	return quantity.Quantity{Value: room, Unit: unit}
}
