package hvac

import "fmt"

// SystemType is an integer enum.
type SystemType int

const (
	SystemUnknown SystemType = iota
	SystemCentral
	SystemHeatPump
	SystemMiniSplit
	SystemWindow
	SystemFurnace
)

func (s SystemType) Valid() bool {
	switch s {
	case SystemCentral, SystemHeatPump, SystemMiniSplit, SystemWindow, SystemFurnace:
		return true
	default:
		return false
	}
}

func (s SystemType) String() string {
	switch s {
	case SystemCentral:
		return "central"
	case SystemHeatPump:
		return "heat_pump"
	case SystemMiniSplit:
		return "mini_split"
	case SystemWindow:
		return "window"
	case SystemFurnace:
		return "furnace"
	default:
		return "unknown"
	}
}

func ParseSystemType(s string) (SystemType, error) {
	switch s {
	case "central":
		return SystemCentral, nil
	case "heat_pump":
		return SystemHeatPump, nil
	case "mini_split":
		return SystemMiniSplit, nil
	case "window":
		return SystemWindow, nil
	case "furnace":
		return SystemFurnace, nil
	default:
		return SystemUnknown, fmt.Errorf("invalid hvac system type: %q", s)
	}
}

// Sizing rules of thumb, W of delivered thermal per m² of floor.
type capacityWPerM2 struct {
	heating float64
	cooling float64
}

func sizingFor(t SystemType) capacityWPerM2 {
	switch t {
	case SystemCentral:
		return capacityWPerM2{heating: 70, cooling: 50}
	case SystemHeatPump:
		return capacityWPerM2{heating: 55, cooling: 45}
	case SystemMiniSplit:
		return capacityWPerM2{heating: 40, cooling: 35}
	case SystemWindow:
		return capacityWPerM2{heating: 25, cooling: 20}
	case SystemFurnace:
		// Furnaces heat only.
		return capacityWPerM2{heating: 80, cooling: 0}
	default:
		return capacityWPerM2{}
	}
}

// System is the immutable description of the installed HVAC equipment.
type System struct {
	Type             SystemType
	AgeYears         int
	HeatingCapacityW float64
	CoolingCapacityW float64
}

func (s System) Valid() bool {
	return s.Type.Valid() && s.AgeYears >= 0 && s.HeatingCapacityW > 0
}

// CanCool reports whether the system has any cooling capacity at all.
func (s System) CanCool() bool {
	return s.CoolingCapacityW > 0
}

// NewSystem sizes a system for the given floor area.
func NewSystem(t SystemType, ageYears int, floorAreaM2 float64) (System, error) {
	if !t.Valid() {
		return System{}, ErrInvalidSystemType
	}
	if ageYears < 0 {
		return System{}, ErrInvalidSystemAge
	}
	if floorAreaM2 <= 0 {
		return System{}, ErrInvalidFloorArea
	}
	sz := sizingFor(t)
	return System{
		Type:             t,
		AgeYears:         ageYears,
		HeatingCapacityW: sz.heating * floorAreaM2,
		CoolingCapacityW: sz.cooling * floorAreaM2,
	}, nil
}
