package hvac

// Efficiency model. Pure functions of the operating point; both the thermal
// model and the schedule planner depend on these.

const (
	MinHeatingCOP = 1.2
	MaxHeatingCOP = 4.0
	MinCoolingCOP = 1.5
	MaxCoolingCOP = 4.5

	// Linear age degradation, 1% per year up to 30%.
	agePenaltyPerYear = 0.01
	agePenaltyCap     = 0.30

	// Part-load efficiency peaks near 75% load.
	partLoadPeak    = 0.75
	partLoadPenalty = 0.35
)

func referenceHeatingCOP(t SystemType) float64 {
	switch t {
	case SystemHeatPump:
		return 3.4
	case SystemMiniSplit:
		return 3.6
	case SystemCentral:
		return 3.0
	case SystemWindow:
		return 2.8
	case SystemFurnace:
		// Resistance/combustion heat, no refrigerant cycle.
		return 1.0
	default:
		return 1.0
	}
}

func referenceCoolingCOP(t SystemType) float64 {
	switch t {
	case SystemHeatPump:
		return 3.6
	case SystemMiniSplit:
		return 3.8
	case SystemCentral:
		return 3.8
	case SystemWindow:
		return 3.0
	default:
		return 3.0
	}
}

// HeatingCOP estimates delivered-to-electrical ratio for heating at the given
// operating point. Heat pumps lose efficiency as the outdoor temperature drops
// below 0°C; every system degrades linearly with age and away from its
// part-load sweet spot. The result is clamped to [MinHeatingCOP, MaxHeatingCOP].
func HeatingCOP(t SystemType, outdoorC, targetC, partLoad float64, ageYears int) float64 {
	cop := referenceHeatingCOP(t)

	if t == SystemHeatPump || t == SystemMiniSplit {
		if outdoorC < 0 {
			cop -= 0.06 * -outdoorC
		}
	}
	// Mild penalty for a large lift between outdoor and target.
	lift := targetC - outdoorC
	if lift > 0 {
		cop -= 0.01 * lift
	}

	cop *= partLoadFactor(partLoad)
	cop *= ageFactor(ageYears)
	return clampCOP(cop, MinHeatingCOP, MaxHeatingCOP)
}

// CoolingCOP is the cooling counterpart; efficiency drops as the outdoor
// temperature climbs above 35°C. Clamped to [MinCoolingCOP, MaxCoolingCOP].
func CoolingCOP(t SystemType, outdoorC, targetC, partLoad float64, ageYears int) float64 {
	cop := referenceCoolingCOP(t)

	if outdoorC > 35 {
		cop -= 0.08 * (outdoorC - 35)
	}
	lift := outdoorC - targetC
	if lift > 0 {
		cop -= 0.01 * lift
	}

	cop *= partLoadFactor(partLoad)
	cop *= ageFactor(ageYears)
	return clampCOP(cop, MinCoolingCOP, MaxCoolingCOP)
}

func partLoadFactor(partLoad float64) float64 {
	if partLoad < 0.05 {
		partLoad = 0.05
	}
	if partLoad > 1 {
		partLoad = 1
	}
	d := partLoad - partLoadPeak
	return 1 - partLoadPenalty*d*d
}

func ageFactor(ageYears int) float64 {
	if ageYears < 0 {
		ageYears = 0
	}
	penalty := agePenaltyPerYear * float64(ageYears)
	if penalty > agePenaltyCap {
		penalty = agePenaltyCap
	}
	return 1 - penalty
}

func clampCOP(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
